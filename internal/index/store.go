// Package index maintains the pgvector-backed chunk index.
//
// The index holds one row per (document_id, chunk_index). Re-ingesting a
// document replaces all of its rows; removing a document purges them. Search
// runs cosine similarity over the stored embeddings with a similarity floor
// and a result cap.
package index

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	pgvector "github.com/pgvector/pgvector-go"

	"github.com/docsage/docsage/internal/log"
)

// Querier is the common interface satisfied by both *pgxpool.Pool and pgx.Tx.
type Querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

const deleteChunksSQL = `DELETE FROM document_chunks WHERE document_id = $1`

const insertChunkSQL = `INSERT INTO document_chunks
	(document_id, chunk_index, content, embedding, document_name, modified_time, folder_path, tags)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

// searchSQL ranks by cosine distance with deterministic tie-breaks so equal
// scores always come back in the same order.
const searchSQL = `SELECT document_id, chunk_index, content, document_name, folder_path, tags,
	1 - (embedding <=> $1) AS similarity
	FROM document_chunks
	WHERE 1 - (embedding <=> $1) >= $2
	ORDER BY embedding <=> $1, created_at, document_id, chunk_index
	LIMIT $3`

// Chunk is one embedded piece of a document ready for indexing.
type Chunk struct {
	Index     int
	Content   string
	Embedding pgvector.Vector
}

// DocumentMeta carries the denormalized attribution columns stored with every
// chunk row.
type DocumentMeta struct {
	Name         string
	ModifiedTime time.Time
	FolderPath   string
	Tags         []string
}

// ChunkError reports an insert failure for a single chunk during Replace.
type ChunkError struct {
	Index int
	Err   error
}

func (e ChunkError) Error() string {
	return fmt.Sprintf("chunk %d: %v", e.Index, e.Err)
}

func (e ChunkError) Unwrap() error { return e.Err }

// Result is one ranked row from a similarity search.
type Result struct {
	DocumentID   string
	ChunkIndex   int
	Content      string
	DocumentName string
	FolderPath   string
	Tags         []string
	Similarity   float64
}

// Store manages document chunks backed by PostgreSQL + pgvector.
//
// Store is safe for concurrent use by multiple goroutines.
type Store struct {
	q      Querier
	logger log.Logger
}

// NewStore creates a chunk index store.
func NewStore(pool *pgxpool.Pool, logger log.Logger) (*Store, error) {
	if pool == nil {
		return nil, fmt.Errorf("pool is required")
	}
	return NewStoreWithQuerier(pool, logger), nil
}

// NewStoreWithQuerier creates a Store over any Querier. Used in tests with a
// mock querier.
func NewStoreWithQuerier(q Querier, logger log.Logger) *Store {
	if logger == nil {
		logger = log.NewNop()
	}
	return &Store{q: q, logger: logger}
}

// Replace swaps a document's indexed chunks: all existing rows for the
// document are deleted, then the given chunks are inserted one by one.
//
// A failed insert does not abort the rest; failures come back as ChunkErrors
// so the caller can report a degraded ingestion. The returned error is
// non-nil only when the delete itself fails, in which case no inserts were
// attempted and the previous index state is untouched. Re-running Replace
// with the same inputs converges to the same rows.
func (s *Store) Replace(ctx context.Context, docID string, meta DocumentMeta, chunks []Chunk) ([]ChunkError, error) {
	if docID == "" {
		return nil, fmt.Errorf("document id is required")
	}

	if _, err := s.q.Exec(ctx, deleteChunksSQL, docID); err != nil {
		return nil, fmt.Errorf("deleting chunks for %s: %w", docID, err)
	}

	var modifiedTime any
	if !meta.ModifiedTime.IsZero() {
		modifiedTime = meta.ModifiedTime
	}
	tags := meta.Tags
	if tags == nil {
		tags = []string{}
	}

	var chunkErrs []ChunkError
	for _, chunk := range chunks {
		_, err := s.q.Exec(ctx, insertChunkSQL,
			docID, chunk.Index, chunk.Content, chunk.Embedding,
			meta.Name, modifiedTime, meta.FolderPath, tags)
		if err != nil {
			s.logger.Warn("chunk insert failed",
				"document_id", docID, "chunk_index", chunk.Index, "error", err)
			chunkErrs = append(chunkErrs, ChunkError{Index: chunk.Index, Err: err})
		}
	}

	return chunkErrs, nil
}

// Purge removes all indexed chunks for a document. Purging an unknown
// document is a no-op.
func (s *Store) Purge(ctx context.Context, docID string) error {
	if docID == "" {
		return fmt.Errorf("document id is required")
	}

	tag, err := s.q.Exec(ctx, deleteChunksSQL, docID)
	if err != nil {
		return fmt.Errorf("purging chunks for %s: %w", docID, err)
	}

	s.logger.Debug("purged document", "document_id", docID, "rows", tag.RowsAffected())
	return nil
}

// Search returns chunks whose cosine similarity to the query vector meets
// the threshold, best first, capped at limit. An empty result set is a valid
// outcome, not an error.
func (s *Store) Search(ctx context.Context, vec pgvector.Vector, threshold float64, limit int) ([]Result, error) {
	if limit <= 0 {
		limit = 5
	}

	rows, err := s.q.Query(ctx, searchSQL, vec, threshold, limit)
	if err != nil {
		return nil, fmt.Errorf("searching chunks: %w", err)
	}
	defer rows.Close()

	var results []Result
	for rows.Next() {
		var r Result
		if err := rows.Scan(&r.DocumentID, &r.ChunkIndex, &r.Content,
			&r.DocumentName, &r.FolderPath, &r.Tags, &r.Similarity); err != nil {
			return nil, fmt.Errorf("scanning search row: %w", err)
		}
		results = append(results, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating search rows: %w", err)
	}

	return results, nil
}
