package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/firebase/genkit/go/genkit"
	"github.com/firebase/genkit/go/plugins/googlegenai"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/eddowding/mothersalmanac-sub002/db"
	"github.com/eddowding/mothersalmanac-sub002/internal/batch"
	"github.com/eddowding/mothersalmanac-sub002/internal/config"
	"github.com/eddowding/mothersalmanac-sub002/internal/entity"
	"github.com/eddowding/mothersalmanac-sub002/internal/graph"
	"github.com/eddowding/mothersalmanac-sub002/internal/observability"
	"github.com/eddowding/mothersalmanac-sub002/internal/page"
	"github.com/eddowding/mothersalmanac-sub002/internal/search"
	"github.com/eddowding/mothersalmanac-sub002/internal/wiki"
)

// Setup creates and initializes the application.
// Returns an App with embedded cleanup; call Close() to release.
func Setup(ctx context.Context, cfg *config.Config, logger *slog.Logger) (_ *App, retErr error) {
	if cfg == nil {
		return nil, config.ErrConfigNil
	}
	if logger == nil {
		logger = slog.Default()
	}
	a := &App{Config: cfg, Logger: logger}

	// On error, release everything already initialized.
	defer func() {
		if retErr != nil {
			if err := a.Close(); err != nil {
				logger.Warn("cleanup during setup failure", "error", err)
			}
		}
	}()

	// Tracing must be wired before Genkit so its TracerProvider picks up
	// the service identity.
	a.otelCleanup = provideOtelShutdown(ctx, cfg, logger)

	pool, err := provideDBPool(ctx, cfg)
	if err != nil {
		return nil, err
	}
	a.DBPool = pool

	g, err := provideGenkit(ctx)
	if err != nil {
		return nil, err
	}
	a.Genkit = g
	a.Embedder = googlegenai.GoogleAIEmbedder(g, cfg.EmbedderModel)
	if a.Embedder == nil {
		return nil, fmt.Errorf("embedder %q not found", cfg.EmbedderModel)
	}

	if err := providePipeline(a); err != nil {
		return nil, err
	}

	return a, nil
}

// provideOtelShutdown sets up Datadog tracing when enabled.
func provideOtelShutdown(ctx context.Context, cfg *config.Config, logger *slog.Logger) func() {
	if !cfg.Datadog.Enabled {
		return func() {}
	}

	shutdown, err := observability.SetupDatadog(ctx, observability.Config{
		AgentHost:   cfg.Datadog.AgentHost,
		Environment: cfg.Datadog.Environment,
		ServiceName: cfg.Datadog.ServiceName,
	})
	if err != nil {
		logger.Warn("datadog setup failed, tracing disabled", "error", err)
		return func() {}
	}

	//nolint:contextcheck // Independent context: shutdown runs during teardown when parent is canceled
	return func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdown(shutdownCtx); err != nil {
			logger.Warn("shutting down tracer provider", "error", err)
		}
	}
}

// provideDBPool runs migrations and creates the PostgreSQL connection pool.
func provideDBPool(ctx context.Context, cfg *config.Config) (*pgxpool.Pool, error) {
	if err := db.Migrate(cfg.PostgresURL()); err != nil {
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

// provideGenkit initializes Genkit with the Google AI plugin.
// GEMINI_API_KEY is read by the plugin from the environment.
func provideGenkit(ctx context.Context) (*genkit.Genkit, error) {
	g := genkit.Init(ctx, genkit.WithPlugins(&googlegenai.GoogleAI{}))
	if g == nil {
		return nil, errors.New("initializing genkit with gemini provider")
	}
	return g, nil
}

// siteIndex composes the page and graph stores into the lookup interface
// entity extraction needs for tier assignment.
type siteIndex struct {
	pages *page.Store
	graph *graph.Store
}

func (s siteIndex) PageExists(ctx context.Context, slug string) (bool, error) {
	return s.pages.Exists(ctx, slug)
}

func (s siteIndex) MentionCount(ctx context.Context, slug string) (int, error) {
	return s.graph.MentionCount(ctx, slug)
}

var _ entity.SiteIndex = siteIndex{}

// provideTokenEstimator maps the configured encoding name to an estimator.
// "heuristic" (or empty) selects the chars/4 approximation; anything else
// is treated as a tiktoken encoding name.
func provideTokenEstimator(encoding string) (wiki.TokenEstimator, error) {
	if encoding == "" || encoding == config.DefaultTokenEncoding {
		return wiki.HeuristicEstimator{}, nil
	}
	return wiki.NewTiktokenEstimator(encoding)
}

// providePipeline builds the stores and the generation pipeline on top of
// the pool and Genkit instance.
func providePipeline(a *App) error {
	cfg := a.Config
	logger := a.Logger

	chunks, err := search.NewPostgresChunks(a.DBPool)
	if err != nil {
		return fmt.Errorf("creating chunk querier: %w", err)
	}
	searchClient, err := search.New(chunks, a.Embedder, logger)
	if err != nil {
		return fmt.Errorf("creating search client: %w", err)
	}
	a.Search = searchClient

	pages, err := page.NewStore(a.DBPool, logger)
	if err != nil {
		return fmt.Errorf("creating page store: %w", err)
	}
	a.Pages = pages

	graphStore, err := graph.NewStore(a.DBPool, pages, logger)
	if err != nil {
		return fmt.Errorf("creating graph store: %w", err)
	}
	a.Graph = graphStore

	extractor, err := entity.NewPatternExtractor(siteIndex{pages: pages, graph: graphStore}, logger)
	if err != nil {
		return fmt.Errorf("creating entity extractor: %w", err)
	}
	a.Extractor = extractor

	estimator, err := provideTokenEstimator(cfg.Generation.TokenEncoding)
	if err != nil {
		return fmt.Errorf("creating token estimator: %w", err)
	}

	assembler, err := wiki.NewAssembler(estimator)
	if err != nil {
		return fmt.Errorf("creating context assembler: %w", err)
	}

	textGen, err := wiki.NewGenkitGenerator(a.Genkit, "googleai/"+cfg.ModelName)
	if err != nil {
		return fmt.Errorf("creating text generator: %w", err)
	}

	generator, err := wiki.NewGenerator(searchClient, assembler, textGen, extractor,
		graphStore, pages,
		wiki.ConfigFromGeneration(cfg.Generation, cfg.Temperature, cfg.MaxTokens),
		logger)
	if err != nil {
		return fmt.Errorf("creating generator: %w", err)
	}
	a.Generator = generator

	reextractor, err := batch.NewReextractor(pages, extractor, graphStore,
		time.Duration(cfg.Generation.ReextractDelayMs)*time.Millisecond, logger)
	if err != nil {
		return fmt.Errorf("creating reextractor: %w", err)
	}
	a.Reextractor = reextractor

	return nil
}
