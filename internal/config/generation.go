package config

// Generation pipeline defaults.
//
// The cost rates are a pricing table, not something derived per call:
// they track the upstream provider's published per-million-token prices
// and change only when the provider's pricing changes.
const (
	// DefaultSimilarityThreshold is the minimum cosine similarity for a
	// chunk to be considered relevant to a query.
	DefaultSimilarityThreshold = 0.75

	// DefaultSearchLimit caps the number of chunks retrieved per query.
	DefaultSearchLimit = 15

	// DefaultContextTokenBudget bounds the estimated token size of the
	// assembled retrieval context passed to the generation model.
	DefaultContextTokenBudget = 8000

	// DefaultPageTTLHours is how long a generated page stays fresh before
	// it is flagged stale (served-but-flagged, regeneration candidate).
	DefaultPageTTLHours = 24 * 7

	// DefaultPipelineTimeoutSeconds bounds one generation cycle end to end,
	// covering the synchronous-fallback path when no task queue is present.
	DefaultPipelineTimeoutSeconds = 180

	// DefaultInputCostPerMtok / DefaultOutputCostPerMtok are USD per
	// million tokens for the default generation model.
	DefaultInputCostPerMtok  = 3.0
	DefaultOutputCostPerMtok = 15.0

	// DefaultReextractDelayMs is the inter-page delay during batch
	// link-graph re-extraction (courtesy pacing toward upstream services).
	DefaultReextractDelayMs = 500

	// DefaultTokenEncoding selects the context-budget token estimator.
	// "heuristic" uses the chars/4 approximation; any other value names a
	// tiktoken BPE encoding (e.g. "cl100k_base") for exact counts.
	DefaultTokenEncoding = "heuristic"

	// PublishConfidenceThreshold is the confidence score at or above which
	// a generated page is published rather than kept as a draft.
	PublishConfidenceThreshold = 0.6

	// FallbackConfidence is the fixed confidence assigned to pages generated
	// without retrieved sources (general-knowledge fallback). Deliberately a
	// constant rather than a computed score.
	FallbackConfidence = 0.7
)

// GenerationConfig groups the tunable knobs of the generation pipeline.
type GenerationConfig struct {
	SimilarityThreshold    float64 `mapstructure:"similarity_threshold" json:"similarity_threshold"`
	SearchLimit            int     `mapstructure:"search_limit" json:"search_limit"`
	ContextTokenBudget     int     `mapstructure:"context_token_budget" json:"context_token_budget"`
	PageTTLHours           int     `mapstructure:"page_ttl_hours" json:"page_ttl_hours"`
	PipelineTimeoutSeconds int     `mapstructure:"pipeline_timeout_seconds" json:"pipeline_timeout_seconds"`
	InputCostPerMtok       float64 `mapstructure:"input_cost_per_mtok" json:"input_cost_per_mtok"`
	OutputCostPerMtok      float64 `mapstructure:"output_cost_per_mtok" json:"output_cost_per_mtok"`
	ReextractDelayMs       int     `mapstructure:"reextract_delay_ms" json:"reextract_delay_ms"`
	TokenEncoding          string  `mapstructure:"token_encoding" json:"token_encoding"`
}
