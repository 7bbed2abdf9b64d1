// Package search provides vector similarity search over the document corpus.
//
// The Client embeds a text query and runs a cosine-similarity query against
// PostgreSQL + pgvector. Retrieval failures degrade to empty results rather
// than propagating: the generation pipeline falls back to general-knowledge
// generation when no sources are available, so a broken search backend must
// never abort a request.
package search

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/firebase/genkit/go/ai"
	"github.com/pgvector/pgvector-go"
	"google.golang.org/genai"
)

// searchTimeout bounds a single similarity query to prevent a slow backend
// from consuming the whole pipeline budget.
const searchTimeout = 10 * time.Second

// ChunkQuerier defines the similarity-search operation the Client consumes.
// Following Go best practices: interfaces are defined by the consumer, not
// the provider. PostgresChunks is the production implementation.
//
// Implementations must return chunks ordered by descending similarity, all
// satisfying similarity >= threshold, at most limit entries.
type ChunkQuerier interface {
	SimilarChunks(ctx context.Context, embedding pgvector.Vector, threshold float64, limit int32) ([]Chunk, error)
}

// Client performs semantic search over document chunks.
//
// Client is safe for concurrent use by multiple goroutines.
type Client struct {
	chunks   ChunkQuerier
	embedder ai.Embedder
	logger   *slog.Logger
}

// New creates a search Client.
func New(chunks ChunkQuerier, embedder ai.Embedder, logger *slog.Logger) (*Client, error) {
	if chunks == nil {
		return nil, fmt.Errorf("chunk querier is required")
	}
	if embedder == nil {
		return nil, fmt.Errorf("embedder is required")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{chunks: chunks, embedder: embedder, logger: logger}, nil
}

// Search embeds the query and returns the most similar chunks.
//
// Failure contract: backend or embedding errors are logged and reported as
// an empty Result, not returned. Downstream stages treat "no chunks" and
// "backend down" identically (general-knowledge fallback).
func (c *Client) Search(ctx context.Context, query string, opts ...Option) Result {
	vec, err := c.embed(ctx, query)
	if err != nil {
		c.logger.Error("query embedding failed, returning empty results",
			"error", err, "query_length", len(query))
		return Result{Query: query}
	}

	res := c.SearchByVector(ctx, vec, opts...)
	res.Query = query
	return res
}

// SearchByVector runs the similarity query for an already-computed embedding.
//
// Exposed separately so callers (and tests) can verify that the embed-then-
// search path and a direct vector query return identical result sets: the
// historical failure class here is a serialization mismatch between the
// client-side vector representation and the literal format the backend
// expects, which manifests as silently empty results.
func (c *Client) SearchByVector(ctx context.Context, embedding pgvector.Vector, opts ...Option) Result {
	cfg := buildSearchConfig(opts)

	queryCtx, cancel := context.WithTimeout(ctx, searchTimeout)
	defer cancel()

	chunks, err := c.chunks.SimilarChunks(queryCtx, embedding, cfg.threshold, cfg.limit)
	if err != nil {
		c.logger.Error("similarity search failed, returning empty results",
			"error", err, "threshold", cfg.threshold, "limit", cfg.limit)
		return Result{}
	}

	c.logger.Debug("similarity search completed",
		"chunks", len(chunks), "threshold", cfg.threshold, "limit", cfg.limit)
	return Result{Chunks: chunks}
}

// embed generates the query embedding, truncated to VectorDimension.
func (c *Client) embed(ctx context.Context, text string) (pgvector.Vector, error) {
	dim := VectorDimension
	resp, err := c.embedder.Embed(ctx, &ai.EmbedRequest{
		Input:   []*ai.Document{ai.DocumentFromText(text, nil)},
		Options: &genai.EmbedContentConfig{OutputDimensionality: &dim},
	})
	if err != nil {
		return pgvector.Vector{}, fmt.Errorf("embedding query: %w", err)
	}
	if len(resp.Embeddings) == 0 || len(resp.Embeddings[0].Embedding) == 0 {
		return pgvector.Vector{}, fmt.Errorf("empty embedding response")
	}
	return pgvector.NewVector(resp.Embeddings[0].Embedding), nil
}
