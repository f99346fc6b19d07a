package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/firebase/genkit/go/ai"
	"github.com/firebase/genkit/go/genkit"
	"github.com/firebase/genkit/go/plugins/googlegenai"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/aixone/knowledge-agent/db"
	"github.com/aixone/knowledge-agent/internal/config"
	"github.com/aixone/knowledge-agent/internal/embedding"
	"github.com/aixone/knowledge-agent/internal/generation"
	"github.com/aixone/knowledge-agent/internal/knowledge"
	"github.com/aixone/knowledge-agent/internal/permission"
	"github.com/aixone/knowledge-agent/internal/store"
)

// Options tunes Setup beyond the loaded configuration.
type Options struct {
	// UseMemory replaces PostgreSQL with the in-process store. Intended
	// for development and demos; nothing survives a restart.
	UseMemory bool
}

// Setup creates and initializes the application.
// On error everything already initialized is released before returning.
func Setup(ctx context.Context, cfg *config.Config, logger *slog.Logger, opts Options) (_ *App, retErr error) {
	if cfg == nil {
		return nil, config.ErrConfigNil
	}
	if logger == nil {
		logger = slog.Default()
	}

	// Everything initialized below hangs off this context; Close cancels
	// it so background work in the providers stops with the app.
	ctx, cancel := context.WithCancel(ctx)

	a := &App{Config: cfg, Logger: logger, cancel: cancel}
	defer func() {
		if retErr != nil {
			if err := a.Close(); err != nil {
				logger.Warn("cleanup during setup failure", "error", err)
			}
		}
	}()

	g, err := provideGenkit(ctx, cfg)
	if err != nil {
		return nil, err
	}
	a.Genkit = g

	embedder := provideEmbedder(g, cfg)
	if embedder == nil {
		return nil, fmt.Errorf("embedder %q not found for provider %q", cfg.EmbedderModel, cfg.Provider)
	}
	a.Embedder = embedder

	a.Gateway = embedding.New(embedder, logger)
	a.Permission = permission.New(cfg.PermissionBaseURL, cfg.PermissionTimeout, logger)
	a.Generator = generation.New(g, cfg.ModelName, logger)

	var (
		chunkStore knowledge.ChunkStore
		searcher   knowledge.Searcher
		attributes knowledge.AttributeSource
	)
	if opts.UseMemory {
		mem := store.NewMemory(0)
		a.Memory = mem
		a.Documents = mem
		chunkStore, searcher, attributes = mem, mem, mem
		logger.Info("using in-memory store, data will not survive restart")
	} else {
		pool, err := provideDBPool(ctx, cfg, logger)
		if err != nil {
			return nil, err
		}
		a.DBPool = pool

		pg := store.NewPostgres(pool, 0, logger)
		a.Documents = pg
		chunkStore, searcher, attributes = pg, pg, pg
	}

	a.Ingestor = knowledge.NewIngestor(chunkStore, a.Gateway, cfg.ChunkLength, logger)
	a.Querier = knowledge.NewQuerier(searcher, a.Permission, attributes, a.Generator, logger)

	return a, nil
}

// provideGenkit initializes Genkit with the configured AI provider.
func provideGenkit(ctx context.Context, cfg *config.Config) (*genkit.Genkit, error) {
	provider := cfg.Provider
	if provider == "" {
		provider = "googleai"
	}
	if provider != "googleai" {
		return nil, fmt.Errorf("unsupported provider %q (only googleai is wired)", provider)
	}

	g := genkit.Init(ctx, genkit.WithPlugins(&googlegenai.GoogleAI{}))
	if g == nil {
		return nil, errors.New("initializing genkit with googleai provider")
	}
	return g, nil
}

// provideEmbedder looks up the embedder registered by the provider
// plugin.
func provideEmbedder(g *genkit.Genkit, cfg *config.Config) ai.Embedder {
	return googlegenai.GoogleAIEmbedder(g, cfg.EmbedderModel)
}

// provideDBPool runs migrations and creates the PostgreSQL pool.
func provideDBPool(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*pgxpool.Pool, error) {
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
	poolCfg.HealthCheckPeriod = time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("creating connection pool: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}
	return pool, nil
}
