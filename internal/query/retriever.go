package query

import (
	"context"
	"fmt"
	"strings"

	pgvector "github.com/pgvector/pgvector-go"

	"github.com/docsage/docsage/internal/index"
	"github.com/docsage/docsage/internal/log"
)

// Embedder turns text into a fixed-dimension vector.
type Embedder interface {
	Embed(ctx context.Context, text string) (pgvector.Vector, error)
}

// Searcher runs thresholded similarity search over the chunk index.
type Searcher interface {
	Search(ctx context.Context, vec pgvector.Vector, threshold float64, limit int) ([]index.Result, error)
}

// Retriever embeds a question and finds similar chunks. An empty result set
// is a valid outcome: it means nothing in the index cleared the similarity
// threshold.
type Retriever struct {
	embedder  Embedder
	searcher  Searcher
	threshold float64
	topK      int
	logger    log.Logger
}

// NewRetriever creates a Retriever.
func NewRetriever(embedder Embedder, searcher Searcher, threshold float64, topK int, logger log.Logger) (*Retriever, error) {
	if embedder == nil || searcher == nil {
		return nil, fmt.Errorf("embedder and searcher are required")
	}
	if threshold < 0 || threshold > 1 {
		return nil, fmt.Errorf("threshold %g outside [0, 1]", threshold)
	}
	if topK <= 0 {
		topK = 5
	}
	if logger == nil {
		logger = log.NewNop()
	}
	return &Retriever{
		embedder:  embedder,
		searcher:  searcher,
		threshold: threshold,
		topK:      topK,
		logger:    logger,
	}, nil
}

// Retrieve returns the ranked chunks for a question.
func (r *Retriever) Retrieve(ctx context.Context, question string) ([]index.Result, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return nil, nil
	}

	vec, err := r.embedder.Embed(ctx, question)
	if err != nil {
		return nil, fmt.Errorf("embedding question: %w", err)
	}

	results, err := r.searcher.Search(ctx, vec, r.threshold, r.topK)
	if err != nil {
		return nil, fmt.Errorf("searching index: %w", err)
	}

	r.logger.Debug("retrieval done", "results", len(results), "threshold", r.threshold)
	return results, nil
}
