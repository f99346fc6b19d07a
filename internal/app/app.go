// Package app wires the application together: configuration, logging,
// the database pool, the Genkit AI provider, and the ingestion and
// query pipelines. Commands call Setup once and work with the returned
// App; Close releases everything in reverse order.
package app

import (
	"context"
	"log/slog"

	"github.com/firebase/genkit/go/ai"
	"github.com/firebase/genkit/go/genkit"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/aixone/knowledge-agent/internal/config"
	"github.com/aixone/knowledge-agent/internal/embedding"
	"github.com/aixone/knowledge-agent/internal/generation"
	"github.com/aixone/knowledge-agent/internal/knowledge"
	"github.com/aixone/knowledge-agent/internal/permission"
	"github.com/aixone/knowledge-agent/internal/store"
)

// App is the application container.
type App struct {
	Config *config.Config
	Logger *slog.Logger

	Genkit   *genkit.Genkit
	Embedder ai.Embedder
	DBPool   *pgxpool.Pool // nil in memory mode

	// Adapters
	Gateway    *embedding.Gateway
	Permission *permission.Client
	Generator  *generation.Generator
	Memory     *store.Memory // nil unless memory mode

	// Pipelines
	Ingestor *knowledge.Ingestor
	Querier  *knowledge.Querier

	// DocumentReader serves the read-side document endpoints; backed by
	// the Postgres or the in-memory store depending on mode.
	Documents DocumentStore

	cancel context.CancelFunc
}

// DocumentStore is the read-side view of stored documents consumed by
// the surfaces. Both store implementations satisfy this.
type DocumentStore interface {
	GetDocument(ctx context.Context, id string) (knowledge.Document, error)
	ListDocuments(ctx context.Context) ([]knowledge.Document, error)
}

// Close releases all resources. Safe to call after a failed Setup.
func (a *App) Close() error {
	if a.Logger != nil {
		a.Logger.Info("shutting down")
	}

	if a.cancel != nil {
		a.cancel()
	}
	if a.DBPool != nil {
		a.DBPool.Close()
		if a.Logger != nil {
			a.Logger.Debug("database pool closed")
		}
	}
	return nil
}
