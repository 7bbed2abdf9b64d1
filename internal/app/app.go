// Package app provides application initialization and dependency wiring.
//
// App is the container that owns the process-lifetime components: the
// database pool, the Genkit instance, the stores, and the generation
// pipeline built on top of them.
package app

import (
	"log/slog"

	"github.com/firebase/genkit/go/ai"
	"github.com/firebase/genkit/go/genkit"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/eddowding/mothersalmanac-sub002/internal/batch"
	"github.com/eddowding/mothersalmanac-sub002/internal/config"
	"github.com/eddowding/mothersalmanac-sub002/internal/entity"
	"github.com/eddowding/mothersalmanac-sub002/internal/graph"
	"github.com/eddowding/mothersalmanac-sub002/internal/page"
	"github.com/eddowding/mothersalmanac-sub002/internal/search"
	"github.com/eddowding/mothersalmanac-sub002/internal/wiki"
)

// App is the core application container.
type App struct {
	Config *config.Config
	Logger *slog.Logger

	Genkit   *genkit.Genkit
	Embedder ai.Embedder
	DBPool   *pgxpool.Pool

	Search      *search.Client
	Pages       *page.Store
	Graph       *graph.Store
	Extractor   entity.Extractor
	Generator   *wiki.Generator
	Reextractor *batch.Reextractor

	otelCleanup func()
}

// Close gracefully shuts down all resources.
func (a *App) Close() error {
	if a.Logger != nil {
		a.Logger.Info("shutting down application")
	}

	if a.otelCleanup != nil {
		a.otelCleanup()
	}

	if a.DBPool != nil {
		a.DBPool.Close()
		if a.Logger != nil {
			a.Logger.Debug("database pool closed")
		}
	}

	return nil
}
