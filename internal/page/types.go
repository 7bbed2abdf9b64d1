// Package page provides the durable store of generated wiki pages.
//
// Pages are keyed by slug. A page row is created once per generation cycle
// and fully replaced on regeneration (no partial patching). Staleness is
// driven by ttl_expires_at: a stale page is still served, but flagged so
// callers can schedule regeneration.
package page

import (
	"errors"
	"strings"
	"time"
)

// Generation source values recorded in page metadata.
const (
	// SourceRetrieval marks pages generated from retrieved document chunks.
	SourceRetrieval = "retrieval"

	// SourceAIKnowledge marks pages generated without sources, relying on
	// the model's parametric knowledge (the fallback branch).
	SourceAIKnowledge = "ai_knowledge"
)

// ErrNotFound indicates no page exists for the requested slug.
var ErrNotFound = errors.New("page not found")

// TokenUsage records generation-stream token counts.
// Input count typically arrives at stream start, output count at stream end.
type TokenUsage struct {
	InputTokens  int `json:"input_tokens"`
	OutputTokens int `json:"output_tokens"`
}

// SearchStats captures retrieval quality indicators for a generation cycle.
type SearchStats struct {
	ChunkCount    int     `json:"chunk_count"`
	SourceCount   int     `json:"source_count"`
	TopSimilarity float64 `json:"top_similarity"`
	Threshold     float64 `json:"threshold"`
}

// Metadata is the structured provenance record stored alongside a page.
type Metadata struct {
	Query            string      `json:"query"`
	SourcesUsed      []string    `json:"sources_used"`
	EntityLinks      []string    `json:"entity_links"`
	ChunkCount       int         `json:"chunk_count"`
	TokenUsage       TokenUsage  `json:"token_usage"`
	EstimatedCostUSD float64     `json:"estimated_cost_usd"`
	SearchStats      SearchStats `json:"search_stats"`
	GenerationSource string      `json:"generation_source"`
	AIFallback       bool        `json:"ai_fallback"`
}

// Page is a generated wiki article.
type Page struct {
	Slug            string
	Title           string
	Content         string
	Excerpt         string
	ConfidenceScore float64
	Published       bool
	GeneratedAt     time.Time
	TTLExpiresAt    time.Time
	Metadata        Metadata
}

// Stale reports whether the page's TTL has elapsed at the given instant.
func (p *Page) Stale(now time.Time) bool {
	return now.After(p.TTLExpiresAt)
}

// Validate checks the invariants a page must satisfy before persistence.
func (p *Page) Validate() error {
	if p == nil {
		return errors.New("page is nil")
	}
	if strings.TrimSpace(p.Slug) == "" {
		return errors.New("page slug must not be empty")
	}
	if strings.TrimSpace(p.Content) == "" {
		return errors.New("page content must not be empty")
	}
	if p.ConfidenceScore < 0 || p.ConfidenceScore > 1 {
		return errors.New("confidence score must be in [0, 1]")
	}
	if p.TTLExpiresAt.IsZero() {
		return errors.New("page TTL must be set")
	}
	return nil
}
