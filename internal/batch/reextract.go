// Package batch runs maintenance sweeps over the generated corpus.
package batch

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/time/rate"

	"github.com/eddowding/mothersalmanac-sub002/internal/entity"
	"github.com/eddowding/mothersalmanac-sub002/internal/page"
)

// PageSource lists and loads pages for a sweep. Satisfied by the page store.
type PageSource interface {
	ListPublishedSlugs(ctx context.Context, limit int32) ([]string, error)
	Get(ctx context.Context, slug string) (*page.Page, error)
}

// GraphRecorder folds mentions into the link graph. Satisfied by the
// graph store.
type GraphRecorder interface {
	RecordMentions(ctx context.Context, fromSlug string, mentions []entity.Mention) error
}

// Stats summarizes one re-extraction sweep.
type Stats struct {
	Pages    int
	Mentions int
	Failures int
}

// Reextractor re-runs entity extraction over published pages, refreshing
// stub counts and connection edges as extraction heuristics improve.
//
// Pages are processed sequentially with a fixed inter-item delay: the sweep
// is throughput-bounded as a courtesy to the upstream services, not for
// correctness. Per-page failures are counted and skipped; only context
// cancellation aborts the sweep.
type Reextractor struct {
	pages     PageSource
	extractor entity.Extractor
	graph     GraphRecorder
	limiter   *rate.Limiter
	logger    *slog.Logger
}

// NewReextractor creates a sweep runner pacing one page per delay interval.
func NewReextractor(pages PageSource, extractor entity.Extractor, graph GraphRecorder, delay time.Duration, logger *slog.Logger) (*Reextractor, error) {
	if pages == nil {
		return nil, fmt.Errorf("page source is required")
	}
	if extractor == nil {
		return nil, fmt.Errorf("extractor is required")
	}
	if graph == nil {
		return nil, fmt.Errorf("graph recorder is required")
	}
	if delay <= 0 {
		return nil, fmt.Errorf("delay must be positive, got %v", delay)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Reextractor{
		pages:     pages,
		extractor: extractor,
		graph:     graph,
		limiter:   rate.NewLimiter(rate.Every(delay), 1),
		logger:    logger,
	}, nil
}

// Run sweeps up to limit published pages.
func (r *Reextractor) Run(ctx context.Context, limit int32) (Stats, error) {
	slugs, err := r.pages.ListPublishedSlugs(ctx, limit)
	if err != nil {
		return Stats{}, fmt.Errorf("listing pages for re-extraction: %w", err)
	}

	var stats Stats
	for _, slug := range slugs {
		if err := r.limiter.Wait(ctx); err != nil {
			return stats, fmt.Errorf("sweep aborted: %w", err)
		}

		mentions, err := r.reextract(ctx, slug)
		if err != nil {
			if ctx.Err() != nil {
				return stats, fmt.Errorf("sweep aborted: %w", ctx.Err())
			}
			r.logger.Warn("re-extraction failed for page", "slug", slug, "error", err)
			stats.Failures++
			continue
		}
		stats.Pages++
		stats.Mentions += mentions
	}

	r.logger.Info("re-extraction sweep completed",
		"pages", stats.Pages, "mentions", stats.Mentions, "failures", stats.Failures)
	return stats, nil
}

func (r *Reextractor) reextract(ctx context.Context, slug string) (int, error) {
	p, err := r.pages.Get(ctx, slug)
	if err != nil {
		return 0, fmt.Errorf("loading page: %w", err)
	}

	mentions, err := r.extractor.Extract(ctx, p.Content)
	if err != nil {
		return 0, fmt.Errorf("extracting entities: %w", err)
	}

	if err := r.graph.RecordMentions(ctx, slug, mentions); err != nil {
		return 0, fmt.Errorf("recording mentions: %w", err)
	}
	return len(mentions), nil
}
