// Package entity extracts candidate topic mentions from generated article
// text and assigns each a confidence tier.
//
// Extraction is a heuristic, pattern-based strategy hidden behind the
// Extractor interface so it can be swapped for a model-based engine without
// touching the orchestrator or the link-graph layer.
package entity

import "context"

// Tier is a coarse quality label for a candidate entity link.
type Tier string

const (
	// TierStrong requires an existing page and at least three prior
	// site-wide mentions.
	TierStrong Tier = "strong"

	// TierMedium requires an existing page, or at least two prior mentions
	// with relevance above 0.7.
	TierMedium Tier = "medium"

	// TierWeak requires at least one prior mention with relevance above 0.5.
	TierWeak Tier = "weak"

	// TierGhost marks candidates with no supporting evidence yet.
	TierGhost Tier = "ghost"
)

// Mention is one candidate entity found in article text. Ephemeral: produced
// per generation cycle and aggregated into stubs by the graph layer.
type Mention struct {
	Text            string
	Slug            string // normalized, see Slugify
	Confidence      Tier
	ContextSentence string
	Relevance       float64 // pattern-strength score in [0, 1]
}

// Extractor finds entity mentions in markdown article content.
type Extractor interface {
	Extract(ctx context.Context, content string) ([]Mention, error)
}

// SiteIndex answers the two site-wide questions tier assignment depends on:
// whether a page already exists for a slug, and how often the slug has been
// mentioned across the corpus so far.
type SiteIndex interface {
	PageExists(ctx context.Context, slug string) (bool, error)
	MentionCount(ctx context.Context, slug string) (int, error)
}

// assignTier combines page existence, prior mention count and pattern
// relevance into a tier.
func assignTier(pageExists bool, mentionCount int, relevance float64) Tier {
	switch {
	case pageExists && mentionCount >= 3:
		return TierStrong
	case pageExists || (mentionCount >= 2 && relevance > 0.7):
		return TierMedium
	case mentionCount >= 1 && relevance > 0.5:
		return TierWeak
	default:
		return TierGhost
	}
}
