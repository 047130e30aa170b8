// Package embedding wraps the Genkit embedder behind a single-text API shared
// by the ingestion and query paths.
package embedding

import (
	"context"
	"fmt"

	"github.com/firebase/genkit/go/ai"
	pgvector "github.com/pgvector/pgvector-go"
	"google.golang.org/genai"
)

// Dimension is the embedding vector dimension. gemini-embedding-001 defaults
// to 3072; the index schema stores vector(768), so every embed call requests
// truncation to this value. Changing it requires a schema migration and a
// full re-index.
const Dimension int32 = 768

// TextEmbedder converts text into fixed-dimension vectors.
type TextEmbedder struct {
	embedder ai.Embedder
}

// New creates a TextEmbedder.
func New(embedder ai.Embedder) (*TextEmbedder, error) {
	if embedder == nil {
		return nil, fmt.Errorf("embedder is required")
	}
	return &TextEmbedder{embedder: embedder}, nil
}

// Embed generates a vector embedding for the given text.
func (e *TextEmbedder) Embed(ctx context.Context, text string) (pgvector.Vector, error) {
	dim := Dimension
	resp, err := e.embedder.Embed(ctx, &ai.EmbedRequest{
		Input:   []*ai.Document{ai.DocumentFromText(text, nil)},
		Options: &genai.EmbedContentConfig{OutputDimensionality: &dim},
	})
	if err != nil {
		return pgvector.Vector{}, fmt.Errorf("embedding text: %w", err)
	}
	if len(resp.Embeddings) == 0 || len(resp.Embeddings[0].Embedding) == 0 {
		return pgvector.Vector{}, fmt.Errorf("empty embedding response")
	}
	if got := len(resp.Embeddings[0].Embedding); got != int(Dimension) {
		return pgvector.Vector{}, fmt.Errorf("unexpected embedding dimension: got %d, want %d", got, Dimension)
	}
	return pgvector.NewVector(resp.Embeddings[0].Embedding), nil
}
