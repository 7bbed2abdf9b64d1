package wiki

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/eddowding/mothersalmanac-sub002/internal/config"
	"github.com/eddowding/mothersalmanac-sub002/internal/entity"
	"github.com/eddowding/mothersalmanac-sub002/internal/page"
	"github.com/eddowding/mothersalmanac-sub002/internal/search"
)

// Sentinel errors surfaced to callers.
var (
	ErrEmptyQuery      = errors.New("query must not be empty")
	ErrBuildInProgress = errors.New("a build for this slug is already in progress")
	ErrNoStoredQuery   = errors.New("page has no stored query to regenerate from")
)

// eventBuffer sizes the progress channel: enough to absorb bursts of small
// content deltas without blocking the model stream on a slow consumer.
const eventBuffer = 32

// Searcher retrieves relevant chunks for a query.
type Searcher interface {
	Search(ctx context.Context, query string, opts ...search.Option) search.Result
}

// GenerateRequest is one call to the streaming text-generation backend.
type GenerateRequest struct {
	System      string
	Prompt      string
	Temperature float32
	MaxTokens   int
}

// TextGenerator is the streaming text-generation backend. onDelta is called
// for each incremental text chunk; returning an error from it aborts the
// stream. The returned string is the complete generated text.
//
// Usage metadata may arrive interleaved with text (input count at stream
// start, output count at stream end); implementations fold it into the
// returned TokenUsage.
type TextGenerator interface {
	GenerateStream(ctx context.Context, req GenerateRequest, onDelta func(text string) error) (string, page.TokenUsage, error)
}

// PageStore is the durable page cache the orchestrator persists into.
type PageStore interface {
	Get(ctx context.Context, slug string) (*page.Page, error)
	Put(ctx context.Context, p *page.Page) error
	Invalidate(ctx context.Context, slug string) error
	IsStale(p *page.Page) bool
	AcquireBuildLock(ctx context.Context, slug string) (release func(), ok bool, err error)
}

// GraphUpdater folds extracted mentions into the link graph. Both methods
// are best-effort from the pipeline's perspective: the orchestrator logs
// and ignores their errors.
type GraphUpdater interface {
	RecordMentions(ctx context.Context, fromSlug string, mentions []entity.Mention) error
	MarkGenerated(ctx context.Context, slug string) error
}

// Config holds the orchestrator's tunables.
type Config struct {
	SimilarityThreshold float64
	SearchLimit         int32
	ContextTokenBudget  int
	PageTTL             time.Duration
	PipelineTimeout     time.Duration
	Temperature         float32
	MaxTokens           int
	Costs               CostTable
}

// ConfigFromGeneration converts the application-level generation settings.
func ConfigFromGeneration(g config.GenerationConfig, temperature float32, maxTokens int) Config {
	return Config{
		SimilarityThreshold: g.SimilarityThreshold,
		SearchLimit:         int32(g.SearchLimit),
		ContextTokenBudget:  g.ContextTokenBudget,
		PageTTL:             time.Duration(g.PageTTLHours) * time.Hour,
		PipelineTimeout:     time.Duration(g.PipelineTimeoutSeconds) * time.Second,
		Temperature:         temperature,
		MaxTokens:           maxTokens,
		Costs: CostTable{
			InputPerMtok:  g.InputCostPerMtok,
			OutputPerMtok: g.OutputCostPerMtok,
		},
	}
}

func (c *Config) validate() error {
	if c.SimilarityThreshold < 0 || c.SimilarityThreshold > 1 {
		return fmt.Errorf("similarity threshold must be in [0, 1], got %v", c.SimilarityThreshold)
	}
	if c.SearchLimit <= 0 {
		return fmt.Errorf("search limit must be positive, got %d", c.SearchLimit)
	}
	if c.ContextTokenBudget <= 0 {
		return fmt.Errorf("context token budget must be positive, got %d", c.ContextTokenBudget)
	}
	if c.PageTTL <= 0 {
		return fmt.Errorf("page TTL must be positive, got %v", c.PageTTL)
	}
	if c.PipelineTimeout <= 0 {
		return fmt.Errorf("pipeline timeout must be positive, got %v", c.PipelineTimeout)
	}
	return nil
}

// Generator is the top-level generation orchestrator. One Generator serves
// all requests; each call runs an independent pipeline with no shared
// mutable state beyond the durable stores.
type Generator struct {
	searcher  Searcher
	assembler *Assembler
	textGen   TextGenerator
	extractor entity.Extractor
	graph     GraphUpdater
	pages     PageStore
	cfg       Config
	logger    *slog.Logger
	now       func() time.Time
}

// NewGenerator wires the pipeline together.
func NewGenerator(
	searcher Searcher,
	assembler *Assembler,
	textGen TextGenerator,
	extractor entity.Extractor,
	graph GraphUpdater,
	pages PageStore,
	cfg Config,
	logger *slog.Logger,
) (*Generator, error) {
	if searcher == nil {
		return nil, fmt.Errorf("searcher is required")
	}
	if assembler == nil {
		return nil, fmt.Errorf("assembler is required")
	}
	if textGen == nil {
		return nil, fmt.Errorf("text generator is required")
	}
	if extractor == nil {
		return nil, fmt.Errorf("entity extractor is required")
	}
	if graph == nil {
		return nil, fmt.Errorf("graph updater is required")
	}
	if pages == nil {
		return nil, fmt.Errorf("page store is required")
	}
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Generator{
		searcher:  searcher,
		assembler: assembler,
		textGen:   textGen,
		extractor: extractor,
		graph:     graph,
		pages:     pages,
		cfg:       cfg,
		logger:    logger,
		now:       time.Now,
	}, nil
}

// buildParams carries per-request variations of the pipeline.
type buildParams struct {
	query        string
	slug         string
	forcePublish bool
	skipCache    bool
}

// Generate runs the full pipeline for a query and streams progress events.
//
// The returned channel is closed after exactly one terminal event (done or
// error). Canceling ctx aborts the pipeline; nothing is persisted on
// cancellation since the page write happens only at the final phase. A
// fresh cached page short-circuits the pipeline and is returned directly.
func (g *Generator) Generate(ctx context.Context, query string) (<-chan ProgressEvent, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, ErrEmptyQuery
	}
	slug := entity.Slugify(query)
	if slug == "" {
		return nil, fmt.Errorf("%w: no usable characters in query", ErrEmptyQuery)
	}

	events := make(chan ProgressEvent, eventBuffer)
	go func() {
		defer close(events)
		g.run(ctx, events, buildParams{query: query, slug: slug})
	}()
	return events, nil
}

// GenerateSync runs the pipeline to completion, discarding incremental
// events. Used by non-streaming callers such as batch regeneration.
func (g *Generator) GenerateSync(ctx context.Context, query string) (*page.Page, error) {
	events, err := g.Generate(ctx, query)
	if err != nil {
		return nil, err
	}
	return drain(events)
}

// Regenerate reruns generation for an existing page using its stored
// original query, invalidating the cached copy first. The result is
// force-published regardless of its computed confidence.
func (g *Generator) Regenerate(ctx context.Context, slug string) (*page.Page, error) {
	slug = strings.TrimSpace(slug)
	if slug == "" {
		return nil, ErrEmptyQuery
	}

	existing, err := g.pages.Get(ctx, slug)
	if err != nil {
		return nil, fmt.Errorf("loading page for regeneration: %w", err)
	}
	query := strings.TrimSpace(existing.Metadata.Query)
	if query == "" {
		return nil, fmt.Errorf("slug %q: %w", slug, ErrNoStoredQuery)
	}

	if err := g.pages.Invalidate(ctx, slug); err != nil {
		return nil, fmt.Errorf("invalidating page for regeneration: %w", err)
	}

	events := make(chan ProgressEvent, eventBuffer)
	go func() {
		defer close(events)
		g.run(ctx, events, buildParams{
			query:        query,
			slug:         slug,
			forcePublish: true,
			skipCache:    true,
		})
	}()
	return drain(events)
}

// drain consumes a stream to its terminal event.
func drain(events <-chan ProgressEvent) (*page.Page, error) {
	for ev := range events {
		switch ev.Type {
		case EventDone:
			return ev.Page, nil
		case EventError:
			return nil, errors.New(ev.Message)
		}
	}
	return nil, errors.New("event stream ended without terminal event")
}

// run executes the pipeline, emitting events and exactly one terminal.
func (g *Generator) run(ctx context.Context, events chan<- ProgressEvent, params buildParams) {
	ctx, cancel := context.WithTimeout(ctx, g.cfg.PipelineTimeout)
	defer cancel()

	// send delivers non-terminal events, giving up once the pipeline
	// context expires. Terminal events are written to the channel directly:
	// the stream contract promises exactly one done or error before close,
	// and racing a terminal write against ctx.Done() would drop it. Callers
	// consume the channel until close, so the direct write cannot wedge.
	send := func(ev ProgressEvent) bool {
		select {
		case events <- ev:
			return true
		case <-ctx.Done():
			return false
		}
	}

	logger := g.logger.With("slug", params.slug)
	start := g.now()

	if !params.skipCache {
		if cached, err := g.pages.Get(ctx, params.slug); err == nil && !g.pages.IsStale(cached) {
			logger.Debug("serving cached page")
			send(statusEvent(statusFinishing))
			events <- doneEvent(cached)
			return
		}
	}

	release, ok, err := g.pages.AcquireBuildLock(ctx, params.slug)
	if err != nil {
		events <- errorEvent(fmt.Sprintf("acquiring build lock: %v", err))
		return
	}
	if !ok {
		events <- errorEvent(ErrBuildInProgress.Error())
		return
	}
	defer release()

	p, err := g.build(ctx, params, send, logger)
	if err != nil {
		if ctx.Err() != nil {
			logger.Info("generation aborted", "error", ctx.Err())
			events <- errorEvent(abortMessage(ctx.Err()))
			return
		}
		logger.Error("generation failed", "error", err)
		events <- errorEvent(err.Error())
		return
	}

	logger.Info("page generated",
		"published", p.Published,
		"confidence", p.ConfidenceScore,
		"fallback", p.Metadata.AIFallback,
		"cost_usd", p.Metadata.EstimatedCostUSD,
		"elapsed", time.Since(start))
	events <- doneEvent(p)
}

// abortMessage names the reason a pipeline context ended early.
func abortMessage(err error) string {
	if errors.Is(err, context.DeadlineExceeded) {
		return "generation timed out"
	}
	return "generation canceled"
}

// build is the searching -> generating -> finishing pipeline body. It
// returns the persisted page or the fatal error that aborted the request.
func (g *Generator) build(ctx context.Context, params buildParams, send func(ProgressEvent) bool, logger *slog.Logger) (*page.Page, error) {
	// Searching.
	if !send(statusEvent(statusSearching)) {
		return nil, ctx.Err()
	}

	result := g.searcher.Search(ctx, params.query,
		search.WithThreshold(g.cfg.SimilarityThreshold),
		search.WithLimit(g.cfg.SearchLimit))
	assembled := g.assembler.Assemble(result, g.cfg.ContextTokenBudget)
	fallback := assembled.Empty()

	req := GenerateRequest{
		System:      sourcedSystemPrompt,
		Prompt:      buildSourcedPrompt(params.query, assembled),
		Temperature: g.cfg.Temperature,
		MaxTokens:   g.cfg.MaxTokens,
	}
	if fallback {
		logger.Info("no sources retrieved, using general-knowledge fallback")
		req.System = fallbackSystemPrompt
		req.Prompt = buildFallbackPrompt(params.query)
	}

	// Generating. The stream is the single long-running suspension point.
	if !send(statusEvent(statusWriting)) {
		return nil, ctx.Err()
	}

	content, usage, err := g.textGen.GenerateStream(ctx, req, func(delta string) error {
		if !send(contentEvent(delta)) {
			return ctx.Err()
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("generation stream: %w", err)
	}
	if strings.TrimSpace(content) == "" {
		return nil, fmt.Errorf("generation stream produced no content")
	}

	// Finishing.
	if !send(statusEvent(statusFinishing)) {
		return nil, ctx.Err()
	}

	confidence := Score(result.SourceCount(), len(content))
	if fallback {
		confidence = config.FallbackConfidence
	}

	// Entity extraction and the graph update are best-effort: a failure
	// here costs link freshness, never the page.
	var entityLinks []string
	mentions, err := g.extractor.Extract(ctx, content)
	if err != nil {
		logger.Warn("entity extraction failed, continuing without links", "error", err)
	} else {
		for _, m := range mentions {
			entityLinks = append(entityLinks, m.Slug)
		}
		if err := g.graph.RecordMentions(ctx, params.slug, mentions); err != nil {
			logger.Warn("link graph update failed", "error", err)
		}
	}

	now := g.now()
	p := &page.Page{
		Slug:            params.slug,
		Title:           Title(content, params.query),
		Content:         content,
		Excerpt:         Excerpt(content),
		ConfidenceScore: confidence,
		Published:       params.forcePublish || confidence >= config.PublishConfidenceThreshold,
		GeneratedAt:     now,
		TTLExpiresAt:    now.Add(g.cfg.PageTTL),
		Metadata: page.Metadata{
			Query:            params.query,
			SourcesUsed:      assembled.Sources,
			EntityLinks:      entityLinks,
			ChunkCount:       len(result.Chunks),
			TokenUsage:       usage,
			EstimatedCostUSD: g.cfg.Costs.Estimate(usage),
			SearchStats: page.SearchStats{
				ChunkCount:    len(result.Chunks),
				SourceCount:   result.SourceCount(),
				TopSimilarity: topSimilarity(result),
				Threshold:     g.cfg.SimilarityThreshold,
			},
			GenerationSource: generationSource(fallback),
			AIFallback:       fallback,
		},
	}

	if err := g.pages.Put(ctx, p); err != nil {
		return nil, fmt.Errorf("persisting page: %w", err)
	}

	if err := g.graph.MarkGenerated(ctx, params.slug); err != nil {
		logger.Warn("marking stub generated failed", "error", err)
	}

	return p, nil
}

func generationSource(fallback bool) string {
	if fallback {
		return page.SourceAIKnowledge
	}
	return page.SourceRetrieval
}

func topSimilarity(r search.Result) float64 {
	if r.Empty() {
		return 0
	}
	return r.Chunks[0].Similarity
}
