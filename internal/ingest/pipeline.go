package ingest

import (
	"context"
	"fmt"

	pgvector "github.com/pgvector/pgvector-go"

	"github.com/docsage/docsage/internal/index"
	"github.com/docsage/docsage/internal/log"
	"github.com/docsage/docsage/internal/source"
)

// Stage names identify where in the pipeline a document failed.
type Stage string

const (
	StageResolve  Stage = "resolve"
	StageMetadata Stage = "metadata"
	StageExtract  Stage = "extract"
	StageEmbed    Stage = "embed"
	StageIndex    Stage = "index"
	StagePurge    Stage = "purge"
)

// StageError wraps a pipeline failure with the document and stage it hit.
type StageError struct {
	DocumentID string
	Stage      Stage
	Err        error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("ingesting %s at stage %s: %v", e.DocumentID, e.Stage, e.Err)
}

func (e *StageError) Unwrap() error { return e.Err }

// Outcome summarizes what a processed notification did to the index.
type Outcome string

const (
	// OutcomeIndexed means the document's chunks were replaced.
	OutcomeIndexed Outcome = "indexed"

	// OutcomePurged means the document's chunks were removed.
	OutcomePurged Outcome = "purged"

	// OutcomeSkipped means the MIME type is unsupported; the index was not
	// touched.
	OutcomeSkipped Outcome = "skipped"

	// OutcomeAcknowledged means a sync handshake was received; nothing to do.
	OutcomeAcknowledged Outcome = "acknowledged"
)

// Report describes the result of one processed notification. ChunkErrors is
// non-empty for a degraded ingestion where some chunks failed to embed or
// insert while the rest were indexed.
type Report struct {
	DocumentID  string             `json:"document_id,omitempty"`
	Outcome     Outcome            `json:"outcome"`
	ChunkCount  int                `json:"chunk_count"`
	ChunkErrors []index.ChunkError `json:"-"`
}

// MetadataFetcher looks up a document's attributes at its source.
type MetadataFetcher interface {
	Metadata(ctx context.Context, fileID string) (*source.Metadata, error)
}

// TextExtractor fetches a document's plain text. ok=false means the MIME
// type is unsupported and the document should be skipped.
type TextExtractor interface {
	Text(ctx context.Context, fileID, mimeType string) (text string, ok bool, err error)
}

// Splitter breaks text into chunk strings.
type Splitter interface {
	Split(text string) []string
}

// Embedder turns text into a fixed-dimension vector.
type Embedder interface {
	Embed(ctx context.Context, text string) (pgvector.Vector, error)
}

// Indexer maintains the chunk index.
type Indexer interface {
	Replace(ctx context.Context, docID string, meta index.DocumentMeta, chunks []index.Chunk) ([]index.ChunkError, error)
	Purge(ctx context.Context, docID string) error
}

// Pipeline processes one notification end to end:
//
//	resolve → (removal: purge) | metadata → extract → chunk → embed → index
//
// Each run is idempotent: re-delivering the same notification converges to
// the same index state. The pipeline does not serialize concurrent runs for
// the same document; callers needing that must serialize deliveries.
type Pipeline struct {
	fetcher  MetadataFetcher
	extract  TextExtractor
	splitter Splitter
	embedder Embedder
	indexer  Indexer
	logger   log.Logger
}

// New creates a Pipeline. All collaborators are required.
func New(fetcher MetadataFetcher, extract TextExtractor, splitter Splitter,
	embedder Embedder, indexer Indexer, logger log.Logger) (*Pipeline, error) {
	if fetcher == nil || extract == nil || splitter == nil || embedder == nil || indexer == nil {
		return nil, fmt.Errorf("all pipeline collaborators are required")
	}
	if logger == nil {
		logger = log.NewNop()
	}
	return &Pipeline{
		fetcher:  fetcher,
		extract:  extract,
		splitter: splitter,
		embedder: embedder,
		indexer:  indexer,
		logger:   logger,
	}, nil
}

// Process runs one notification through the pipeline.
func (p *Pipeline) Process(ctx context.Context, n Notification) (*Report, error) {
	event, err := Resolve(n)
	if err != nil {
		return nil, &StageError{Stage: StageResolve, Err: err}
	}

	switch event.Kind {
	case EventSync:
		p.logger.Debug("sync handshake acknowledged", "channel_id", n.ChannelID)
		return &Report{Outcome: OutcomeAcknowledged}, nil
	case EventRemoved:
		return p.purge(ctx, event.DocumentID)
	}

	return p.reindex(ctx, event.DocumentID)
}

func (p *Pipeline) purge(ctx context.Context, docID string) (*Report, error) {
	if err := p.indexer.Purge(ctx, docID); err != nil {
		return nil, &StageError{DocumentID: docID, Stage: StagePurge, Err: err}
	}
	p.logger.Info("document purged", "document_id", docID)
	return &Report{DocumentID: docID, Outcome: OutcomePurged}, nil
}

func (p *Pipeline) reindex(ctx context.Context, docID string) (*Report, error) {
	md, err := p.fetcher.Metadata(ctx, docID)
	if err != nil {
		return nil, &StageError{DocumentID: docID, Stage: StageMetadata, Err: err}
	}

	// Trashed metadata is a removal signal in its own right: some Drive
	// channels deliver a plain change event when a file moves to trash.
	if md.Trashed {
		return p.purge(ctx, docID)
	}

	text, ok, err := p.extract.Text(ctx, docID, md.MimeType)
	if err != nil {
		return nil, &StageError{DocumentID: docID, Stage: StageExtract, Err: err}
	}
	if !ok {
		p.logger.Info("unsupported mime type, skipping",
			"document_id", docID, "mime_type", md.MimeType)
		return &Report{DocumentID: docID, Outcome: OutcomeSkipped}, nil
	}

	meta := index.DocumentMeta{
		Name:         md.Name,
		ModifiedTime: md.ModifiedTime,
		FolderPath:   md.FolderPath,
		Tags:         md.Tags,
	}

	pieces := p.splitter.Split(text)
	if len(pieces) == 0 {
		// A document that became empty still replaces (clears) its old rows.
		if _, err := p.indexer.Replace(ctx, docID, meta, nil); err != nil {
			return nil, &StageError{DocumentID: docID, Stage: StageIndex, Err: err}
		}
		p.logger.Info("document indexed empty", "document_id", docID)
		return &Report{DocumentID: docID, Outcome: OutcomeIndexed}, nil
	}

	// Embed chunk by chunk; one failed embedding degrades the ingestion
	// instead of aborting it.
	var chunks []index.Chunk
	var chunkErrs []index.ChunkError
	for i, piece := range pieces {
		vec, err := p.embedder.Embed(ctx, piece)
		if err != nil {
			p.logger.Warn("chunk embedding failed",
				"document_id", docID, "chunk_index", i, "error", err)
			chunkErrs = append(chunkErrs, index.ChunkError{Index: i, Err: err})
			continue
		}
		chunks = append(chunks, index.Chunk{Index: i, Content: piece, Embedding: vec})
	}

	// Nothing embedded at all: leave the previous index state alone rather
	// than replacing a document with zero rows.
	if len(chunks) == 0 {
		return nil, &StageError{DocumentID: docID, Stage: StageEmbed,
			Err: fmt.Errorf("all %d chunks failed to embed", len(pieces))}
	}

	insertErrs, err := p.indexer.Replace(ctx, docID, meta, chunks)
	if err != nil {
		return nil, &StageError{DocumentID: docID, Stage: StageIndex, Err: err}
	}
	chunkErrs = append(chunkErrs, insertErrs...)

	if len(chunkErrs) > 0 {
		p.logger.Warn("document indexed degraded",
			"document_id", docID, "indexed", len(chunks)-len(insertErrs), "failed", len(chunkErrs))
	} else {
		p.logger.Info("document indexed",
			"document_id", docID, "chunks", len(chunks))
	}

	return &Report{
		DocumentID:  docID,
		Outcome:     OutcomeIndexed,
		ChunkCount:  len(chunks) - len(insertErrs),
		ChunkErrors: chunkErrs,
	}, nil
}
