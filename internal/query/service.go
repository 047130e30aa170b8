package query

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/docsage/docsage/internal/answer"
	"github.com/docsage/docsage/internal/index"
	"github.com/docsage/docsage/internal/log"
)

// Client input errors, checked with errors.Is at the API boundary.
var (
	// ErrEmptyQuestion indicates a blank question.
	ErrEmptyQuestion = errors.New("question is required")

	// ErrQuestionTooShort indicates a question below the minimum length.
	ErrQuestionTooShort = errors.New("question too short")
)

// Origin says which path produced an answer.
type Origin string

const (
	// OriginPrefilter means a pre-filter matched (e.g. a greeting).
	OriginPrefilter Origin = "prefilter"

	// OriginFAQ means a curated FAQ entry matched.
	OriginFAQ Origin = "faq"

	// OriginRetrieval means the answer was synthesized from retrieved chunks.
	OriginRetrieval Origin = "retrieval"

	// OriginNoResults means retrieval found nothing above the threshold.
	OriginNoResults Origin = "no_results"
)

// NoResultsResponse is returned verbatim when nothing in the index clears
// the similarity threshold.
const NoResultsResponse = "I couldn't find anything about that in the indexed documents. " +
	"Try rephrasing the question, or check whether the relevant document has been shared with me."

// Answer is the outcome of one question.
type Answer struct {
	Text    string          `json:"answer"`
	Origin  Origin          `json:"origin"`
	Sources []answer.Source `json:"sources,omitempty"`
}

// FAQMatcher checks a question against curated entries.
type FAQMatcher interface {
	Match(ctx context.Context, question string) (answer string, ok bool, err error)
}

// ResultRetriever finds ranked chunks for a question.
type ResultRetriever interface {
	Retrieve(ctx context.Context, question string) ([]index.Result, error)
}

// Synthesizer generates a grounded answer from retrieved chunks.
type Synthesizer interface {
	Synthesize(ctx context.Context, question, role string, results []index.Result) (string, []answer.Source, error)
}

// Service runs the full question pipeline:
//
//	emptiness check → pre-filters → length validation → FAQ → retrieve → synthesize
//
// Pre-filters run before length validation so a bare "hi" gets a greeting
// instead of a validation error. The whole path is read-only.
type Service struct {
	filters        []Filter
	faq            FAQMatcher
	retriever      ResultRetriever
	synth          Synthesizer
	minQuestionLen int
	logger         log.Logger
}

// NewService creates a query Service. Passing nil filters installs
// DefaultFilters; pass an empty non-nil slice to disable pre-filtering.
func NewService(faq FAQMatcher, retriever ResultRetriever, synth Synthesizer,
	filters []Filter, minQuestionLen int, logger log.Logger) (*Service, error) {
	if faq == nil || retriever == nil || synth == nil {
		return nil, fmt.Errorf("faq, retriever and synthesizer are required")
	}
	if filters == nil {
		filters = DefaultFilters()
	}
	if minQuestionLen < 1 {
		minQuestionLen = 4
	}
	if logger == nil {
		logger = log.NewNop()
	}
	return &Service{
		filters:        filters,
		faq:            faq,
		retriever:      retriever,
		synth:          synth,
		minQuestionLen: minQuestionLen,
		logger:         logger,
	}, nil
}

// Ask answers one question. role is the caller's self-declared role and only
// influences the synthesis prompt.
func (s *Service) Ask(ctx context.Context, question, role string) (*Answer, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return nil, ErrEmptyQuestion
	}

	if response, name, ok := applyFilters(s.filters, question); ok {
		s.logger.Debug("pre-filter matched", "filter", name)
		return &Answer{Text: response, Origin: OriginPrefilter}, nil
	}

	if utf8.RuneCountInString(question) < s.minQuestionLen {
		return nil, fmt.Errorf("%w: %d runes, need at least %d",
			ErrQuestionTooShort, utf8.RuneCountInString(question), s.minQuestionLen)
	}

	if faqAnswer, ok, err := s.faq.Match(ctx, question); err != nil {
		return nil, fmt.Errorf("faq lookup: %w", err)
	} else if ok {
		return &Answer{Text: faqAnswer, Origin: OriginFAQ}, nil
	}

	results, err := s.retriever.Retrieve(ctx, question)
	if err != nil {
		return nil, fmt.Errorf("retrieving: %w", err)
	}
	if len(results) == 0 {
		return &Answer{Text: NoResultsResponse, Origin: OriginNoResults}, nil
	}

	text, sources, err := s.synth.Synthesize(ctx, question, role, results)
	if err != nil {
		return nil, fmt.Errorf("synthesizing: %w", err)
	}

	return &Answer{Text: text, Origin: OriginRetrieval, Sources: sources}, nil
}
