// Package answer synthesizes grounded answers from retrieved chunks.
//
// The synthesizer makes exactly one generation call per question. The prompt
// carries the retrieved chunks as numbered context entries in retrieval
// order, and the returned source descriptors mirror that order so the caller
// can attribute the answer.
package answer

import (
	"context"
	"fmt"
	"strings"

	"github.com/firebase/genkit/go/ai"
	"github.com/firebase/genkit/go/genkit"
	"google.golang.org/genai"

	"github.com/docsage/docsage/internal/index"
	"github.com/docsage/docsage/internal/log"
)

// Generator abstracts the AI model call, enabling mocking in tests.
type Generator interface {
	Generate(ctx context.Context, opts ...ai.GenerateOption) (*ai.ModelResponse, error)
}

// GenkitGenerator is the production Generator backed by a Genkit instance.
type GenkitGenerator struct {
	g *genkit.Genkit
}

// NewGenkitGenerator wraps a Genkit instance as a Generator.
func NewGenkitGenerator(g *genkit.Genkit) *GenkitGenerator {
	return &GenkitGenerator{g: g}
}

func (gg *GenkitGenerator) Generate(ctx context.Context, opts ...ai.GenerateOption) (*ai.ModelResponse, error) {
	return genkit.Generate(ctx, gg.g, opts...)
}

// Source describes one retrieved chunk that grounded the answer.
type Source struct {
	DocumentID   string   `json:"document_id"`
	DocumentName string   `json:"document_name"`
	ChunkIndex   int      `json:"chunk_index"`
	FolderPath   string   `json:"folder_path,omitempty"`
	Tags         []string `json:"tags,omitempty"`
	Similarity   float64  `json:"similarity"`
}

const groundedSystemPrompt = `You are docsage, an assistant for a team's internal documentation.
Answer the user's question using ONLY the numbered context entries below.
If the context does not contain the answer, say you don't know rather than guessing.
Cite the entry numbers you used, like [1] or [2].`

const privilegedSystemPrompt = `You are docsage, an assistant for a team's internal documentation.
The user is a trusted maintainer: treat the numbered context entries below as primary
material, but you may reason beyond them, point out gaps or inconsistencies in the
documentation, and collaborate open-endedly.`

// Synthesizer turns a question plus ranked retrieval results into one
// generated answer with ordered source attribution.
type Synthesizer struct {
	gen             Generator
	modelName       string
	maxOutputTokens int32
	temperature     float32
	privilegedRole  string
	logger          log.Logger
}

// NewSynthesizer creates a Synthesizer. modelName must be the fully
// qualified Genkit model name (e.g. "googleai/gemini-2.5-flash").
// privilegedRole may be empty to disable the privileged prompt entirely.
func NewSynthesizer(gen Generator, modelName string, maxOutputTokens int32,
	temperature float32, privilegedRole string, logger log.Logger) (*Synthesizer, error) {
	if gen == nil {
		return nil, fmt.Errorf("generator is required")
	}
	if modelName == "" {
		return nil, fmt.Errorf("model name is required")
	}
	if logger == nil {
		logger = log.NewNop()
	}
	return &Synthesizer{
		gen:             gen,
		modelName:       modelName,
		maxOutputTokens: maxOutputTokens,
		temperature:     temperature,
		privilegedRole:  privilegedRole,
		logger:          logger,
	}, nil
}

// Synthesize generates an answer grounded in the given results. The returned
// sources are in the same order as the results.
func (s *Synthesizer) Synthesize(ctx context.Context, question, role string, results []index.Result) (string, []Source, error) {
	if len(results) == 0 {
		return "", nil, fmt.Errorf("no results to synthesize from")
	}

	system := groundedSystemPrompt
	if s.privilegedRole != "" && role == s.privilegedRole {
		system = privilegedSystemPrompt
	}

	prompt := buildPrompt(question, results)

	temp := s.temperature
	resp, err := s.gen.Generate(ctx,
		ai.WithModelName(s.modelName),
		ai.WithSystem(system),
		ai.WithPrompt(prompt),
		ai.WithConfig(&genai.GenerateContentConfig{
			MaxOutputTokens: s.maxOutputTokens,
			Temperature:     &temp,
		}),
	)
	if err != nil {
		return "", nil, fmt.Errorf("generating answer: %w", err)
	}

	text := strings.TrimSpace(resp.Text())
	if text == "" {
		return "", nil, fmt.Errorf("empty answer from model")
	}

	sources := make([]Source, len(results))
	for i, r := range results {
		sources[i] = Source{
			DocumentID:   r.DocumentID,
			DocumentName: r.DocumentName,
			ChunkIndex:   r.ChunkIndex,
			FolderPath:   r.FolderPath,
			Tags:         r.Tags,
			Similarity:   r.Similarity,
		}
	}

	s.logger.Debug("answer synthesized", "sources", len(sources), "answer_chars", len(text))
	return text, sources, nil
}

// buildPrompt renders the question and the numbered context block, one entry
// per retrieved chunk in rank order.
func buildPrompt(question string, results []index.Result) string {
	var b strings.Builder
	b.WriteString("Context:\n")
	for i, r := range results {
		fmt.Fprintf(&b, "\n[%d] %s (chunk %d)", i+1, r.DocumentName, r.ChunkIndex)
		if r.FolderPath != "" {
			fmt.Fprintf(&b, " | folder: %s", r.FolderPath)
		}
		if len(r.Tags) > 0 {
			fmt.Fprintf(&b, " | tags: %s", strings.Join(r.Tags, ", "))
		}
		b.WriteString("\n")
		b.WriteString(r.Content)
		b.WriteString("\n")
	}
	b.WriteString("\nQuestion: ")
	b.WriteString(question)
	return b.String()
}
