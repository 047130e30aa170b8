package index_test

import (
	"context"
	"testing"
	"time"

	pgvector "github.com/pgvector/pgvector-go"

	"github.com/docsage/docsage/internal/embedding"
	"github.com/docsage/docsage/internal/index"
	"github.com/docsage/docsage/internal/log"
	"github.com/docsage/docsage/internal/testutil"
)

// axisVector returns a unit vector pointing along the given axis, so cosine
// similarity between two axisVectors is 1 for the same axis and 0 otherwise.
func axisVector(axis int) pgvector.Vector {
	v := make([]float32, embedding.Dimension)
	v[axis] = 1
	return pgvector.NewVector(v)
}

func TestStore_Integration(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	tdb, cleanup := testutil.SetupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	store, err := index.NewStore(tdb.Pool, log.NewNop())
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}

	modified := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	meta := index.DocumentMeta{
		Name:         "Onboarding Guide",
		ModifiedTime: modified,
		FolderPath:   "/handbook",
		Tags:         []string{"hr", "onboarding"},
	}
	chunks := []index.Chunk{
		{Index: 0, Content: "first chunk", Embedding: axisVector(0)},
		{Index: 1, Content: "second chunk", Embedding: axisVector(1)},
	}

	chunkErrs, err := store.Replace(ctx, "doc-1", meta, chunks)
	if err != nil {
		t.Fatalf("Replace: %v", err)
	}
	if len(chunkErrs) != 0 {
		t.Fatalf("Replace chunk errors = %v, want none", chunkErrs)
	}

	results, err := store.Search(ctx, axisVector(0), 0.5, 5)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(results) != 1 {
		t.Fatalf("Search returned %d results, want 1", len(results))
	}
	got := results[0]
	if got.DocumentID != "doc-1" || got.ChunkIndex != 0 || got.Content != "first chunk" {
		t.Errorf("unexpected result: %+v", got)
	}
	if got.DocumentName != "Onboarding Guide" || got.FolderPath != "/handbook" {
		t.Errorf("metadata not carried: %+v", got)
	}
	if len(got.Tags) != 2 || got.Tags[0] != "hr" {
		t.Errorf("Tags = %v, want [hr onboarding]", got.Tags)
	}
	if got.Similarity < 0.99 {
		t.Errorf("Similarity = %g, want ~1", got.Similarity)
	}

	// Replacing with fewer chunks removes the stale rows.
	_, err = store.Replace(ctx, "doc-1", meta, []index.Chunk{
		{Index: 0, Content: "only chunk", Embedding: axisVector(2)},
	})
	if err != nil {
		t.Fatalf("second Replace: %v", err)
	}
	results, err = store.Search(ctx, axisVector(1), 0.5, 5)
	if err != nil {
		t.Fatalf("Search after replace: %v", err)
	}
	if len(results) != 0 {
		t.Errorf("stale chunk still indexed: %+v", results)
	}

	if err := store.Purge(ctx, "doc-1"); err != nil {
		t.Fatalf("Purge: %v", err)
	}
	results, err = store.Search(ctx, axisVector(2), 0.5, 5)
	if err != nil {
		t.Fatalf("Search after purge: %v", err)
	}
	if len(results) != 0 {
		t.Errorf("purged chunk still indexed: %+v", results)
	}

	// Purging an unknown document is a no-op.
	if err := store.Purge(ctx, "doc-unknown"); err != nil {
		t.Errorf("Purge unknown document: %v", err)
	}
}
