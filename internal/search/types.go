package search

import (
	"github.com/google/uuid"

	"github.com/eddowding/mothersalmanac-sub002/internal/config"
)

// VectorDimension is the embedding dimension used across the corpus.
// gemini-embedding-001 is truncated to 768 dims via OutputDimensionality;
// the chunks.embedding column is declared vector(768) to match.
const VectorDimension int32 = 768

// Chunk is the atomic retrieval unit: a contiguous span of source-document
// text with a precomputed embedding. Chunks are produced by the external
// ingestion pipeline and are immutable here.
type Chunk struct {
	ID            uuid.UUID
	DocumentID    uuid.UUID
	DocumentTitle string
	SectionTitle  string
	PageNumber    int32
	ChunkIndex    int32
	Content       string
	Similarity    float64 // Cosine similarity to the query, in [0, 1]
}

// Result is an ordered sequence of chunks for one query, ordered by
// descending similarity. All entries satisfy Similarity >= the requested
// threshold.
type Result struct {
	Query  string
	Chunks []Chunk
}

// Empty reports whether retrieval produced no relevant chunks.
func (r Result) Empty() bool {
	return len(r.Chunks) == 0
}

// SourceCount returns the number of distinct documents represented in the
// result set.
func (r Result) SourceCount() int {
	seen := make(map[uuid.UUID]struct{}, len(r.Chunks))
	for _, c := range r.Chunks {
		seen[c.DocumentID] = struct{}{}
	}
	return len(seen)
}

// Option configures search behavior using the functional options pattern.
type Option func(*searchConfig)

type searchConfig struct {
	threshold float64
	limit     int32
}

// WithThreshold sets the minimum cosine similarity for returned chunks.
func WithThreshold(t float64) Option {
	return func(c *searchConfig) {
		c.threshold = t
	}
}

// WithLimit caps the number of returned chunks.
func WithLimit(n int32) Option {
	return func(c *searchConfig) {
		if n > 0 {
			c.limit = n
		}
	}
}

func buildSearchConfig(opts []Option) *searchConfig {
	cfg := &searchConfig{
		threshold: config.DefaultSimilarityThreshold,
		limit:     config.DefaultSearchLimit,
	}
	for _, opt := range opts {
		opt(cfg)
	}
	return cfg
}
