// Package app wires the docsage components together.
//
// Setup constructs every collaborator exactly once per process (pool, Genkit,
// Drive client, stores, pipeline, query service) and hands back an App whose
// Close releases them in reverse order.
package app

import (
	"context"

	"github.com/firebase/genkit/go/ai"
	"github.com/firebase/genkit/go/genkit"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/docsage/docsage/api"
	"github.com/docsage/docsage/internal/config"
	"github.com/docsage/docsage/internal/ingest"
	"github.com/docsage/docsage/internal/log"
	"github.com/docsage/docsage/internal/query"
)

// App holds the assembled application.
type App struct {
	Config *config.Config
	Logger log.Logger

	Genkit   *genkit.Genkit
	Embedder ai.Embedder
	DBPool   *pgxpool.Pool

	Pipeline     *ingest.Pipeline
	QueryService *query.Service
	Server       *api.Server

	cancel context.CancelFunc
}

// Close gracefully shuts down all resources.
func (a *App) Close() error {
	if a.Logger != nil {
		a.Logger.Info("shutting down application")
	}

	if a.cancel != nil {
		a.cancel()
	}

	if a.DBPool != nil {
		a.DBPool.Close()
		if a.Logger != nil {
			a.Logger.Info("database pool closed")
		}
	}

	return nil
}
