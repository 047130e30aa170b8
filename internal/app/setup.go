package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/firebase/genkit/go/genkit"
	"github.com/firebase/genkit/go/plugins/googlegenai"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/docsage/docsage/api"
	"github.com/docsage/docsage/db"
	"github.com/docsage/docsage/internal/answer"
	"github.com/docsage/docsage/internal/chunker"
	"github.com/docsage/docsage/internal/config"
	"github.com/docsage/docsage/internal/embedding"
	"github.com/docsage/docsage/internal/extract"
	"github.com/docsage/docsage/internal/faq"
	"github.com/docsage/docsage/internal/index"
	"github.com/docsage/docsage/internal/ingest"
	"github.com/docsage/docsage/internal/log"
	"github.com/docsage/docsage/internal/query"
	"github.com/docsage/docsage/internal/source"
)

// Setup creates and initializes the application.
// Returns an App with embedded cleanup — call Close() to release.
func Setup(ctx context.Context, cfg *config.Config, logger log.Logger) (_ *App, retErr error) {
	if logger == nil {
		logger = log.NewNop()
	}
	a := &App{Config: cfg, Logger: logger}

	// On error, clean up everything already initialized
	defer func() {
		if retErr != nil {
			if err := a.Close(); err != nil {
				logger.Warn("cleanup during setup failure", "error", err)
			}
		}
	}()

	pool, err := provideDBPool(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}
	a.DBPool = pool

	g, err := provideGenkit(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}
	a.Genkit = g

	a.Embedder = googlegenai.GoogleAIEmbedder(g, cfg.EmbedderModel)
	if a.Embedder == nil {
		return nil, fmt.Errorf("embedder %q not found", cfg.EmbedderModel)
	}

	textEmbedder, err := embedding.New(a.Embedder)
	if err != nil {
		return nil, fmt.Errorf("creating text embedder: %w", err)
	}

	indexStore, err := index.NewStore(pool, logger)
	if err != nil {
		return nil, fmt.Errorf("creating index store: %w", err)
	}
	faqStore, err := faq.NewStore(pool, logger)
	if err != nil {
		return nil, fmt.Errorf("creating faq store: %w", err)
	}

	pipeline, err := provideIngestPipeline(ctx, cfg, textEmbedder, indexStore, logger)
	if err != nil {
		return nil, err
	}
	a.Pipeline = pipeline

	svc, err := provideQueryService(g, cfg, textEmbedder, indexStore, faqStore, logger)
	if err != nil {
		return nil, err
	}
	a.QueryService = svc

	server, err := api.NewServer(api.ServerConfig{
		Asker:       svc,
		Pipeline:    pipeline,
		Pool:        pool,
		CORSOrigins: cfg.CORSOrigins,
		TrustProxy:  cfg.TrustProxy,
		RateBurst:   cfg.RateBurst,
		Logger:      logger,
	})
	if err != nil {
		return nil, fmt.Errorf("creating server: %w", err)
	}
	a.Server = server

	// Set up lifecycle management
	_, cancel := context.WithCancel(ctx)
	a.cancel = cancel

	return a, nil
}

// provideDBPool creates a PostgreSQL connection pool and runs migrations.
// Pool is configured with sensible defaults for connection management.
func provideDBPool(ctx context.Context, cfg *config.Config, logger log.Logger) (*pgxpool.Pool, error) {
	if err := db.Migrate(cfg.PostgresURL(), logger); err != nil {
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	poolCfg, err := pgxpool.ParseConfig(cfg.PostgresConnectionString())
	if err != nil {
		return nil, fmt.Errorf("parsing connection config: %w", err)
	}

	poolCfg.MaxConns = 10
	poolCfg.MinConns = 2
	poolCfg.MaxConnLifetime = 30 * time.Minute
	poolCfg.MaxConnIdleTime = 5 * time.Minute
	poolCfg.HealthCheckPeriod = 1 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("creating connection pool: %w", err)
	}

	pingCtx, pingCancel := context.WithTimeout(ctx, 5*time.Second)
	defer pingCancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}

	return pool, nil
}

// provideGenkit initializes Genkit with the Google AI plugin. Credentials
// come from the GEMINI_API_KEY environment variable.
func provideGenkit(ctx context.Context, cfg *config.Config, logger log.Logger) (*genkit.Genkit, error) {
	g := genkit.Init(ctx, genkit.WithPlugins(&googlegenai.GoogleAI{}))
	if g == nil {
		return nil, errors.New("initializing genkit")
	}
	logger.Info("initialized Genkit", "model", cfg.ModelName, "embedder", cfg.EmbedderModel)
	return g, nil
}

// provideIngestPipeline wires the Drive client, extractor, chunker, embedder
// and index store into the ingestion pipeline.
func provideIngestPipeline(ctx context.Context, cfg *config.Config, embedder *embedding.TextEmbedder,
	store *index.Store, logger log.Logger) (*ingest.Pipeline, error) {
	drive, err := source.NewClient(ctx, cfg.DriveCredentialsFile)
	if err != nil {
		return nil, fmt.Errorf("creating drive client: %w", err)
	}

	pipeline, err := ingest.New(
		drive,
		extract.New(drive),
		chunker.New(cfg.ChunkSize, cfg.ChunkOverlap),
		embedder,
		store,
		logger,
	)
	if err != nil {
		return nil, fmt.Errorf("creating ingestion pipeline: %w", err)
	}
	return pipeline, nil
}

// provideQueryService wires the FAQ store, retriever and answer synthesizer
// into the query service.
func provideQueryService(g *genkit.Genkit, cfg *config.Config, embedder *embedding.TextEmbedder,
	store *index.Store, faqStore *faq.Store, logger log.Logger) (*query.Service, error) {
	retriever, err := query.NewRetriever(embedder, store, cfg.SimilarityThreshold, cfg.MaxResults, logger)
	if err != nil {
		return nil, fmt.Errorf("creating retriever: %w", err)
	}

	synth, err := answer.NewSynthesizer(
		answer.NewGenkitGenerator(g),
		cfg.FullModelName(),
		cfg.MaxOutputTokens,
		cfg.Temperature,
		cfg.PrivilegedRole,
		logger,
	)
	if err != nil {
		return nil, fmt.Errorf("creating synthesizer: %w", err)
	}

	svc, err := query.NewService(faqStore, retriever, synth, nil, cfg.MinQuestionLen, logger)
	if err != nil {
		return nil, fmt.Errorf("creating query service: %w", err)
	}
	return svc, nil
}
