package search

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"
)

// similarChunksSQL ranks chunks by cosine similarity to the query vector.
// The vector is bound as a pgvector.Vector parameter so the driver emits
// the bracketed literal format pgvector expects; hand-built strings here
// have historically produced silently empty result sets.
const similarChunksSQL = `
	SELECT id, document_id, document_title,
	       COALESCE(section_title, ''), COALESCE(page_number, 0), chunk_index,
	       content, 1 - (embedding <=> $1) AS similarity
	FROM chunks
	WHERE embedding IS NOT NULL
	  AND 1 - (embedding <=> $1) >= $2
	ORDER BY embedding <=> $1
	LIMIT $3`

// PostgresChunks implements ChunkQuerier over a pgx connection pool.
type PostgresChunks struct {
	pool *pgxpool.Pool
}

// NewPostgresChunks creates the production chunk querier.
func NewPostgresChunks(pool *pgxpool.Pool) (*PostgresChunks, error) {
	if pool == nil {
		return nil, fmt.Errorf("pool is required")
	}
	return &PostgresChunks{pool: pool}, nil
}

// SimilarChunks returns chunks ordered by descending cosine similarity.
func (p *PostgresChunks) SimilarChunks(ctx context.Context, embedding pgvector.Vector, threshold float64, limit int32) ([]Chunk, error) {
	rows, err := p.pool.Query(ctx, similarChunksSQL, embedding, threshold, limit)
	if err != nil {
		return nil, fmt.Errorf("querying similar chunks: %w", err)
	}
	defer rows.Close()

	var chunks []Chunk
	for rows.Next() {
		var c Chunk
		if err := rows.Scan(&c.ID, &c.DocumentID, &c.DocumentTitle,
			&c.SectionTitle, &c.PageNumber, &c.ChunkIndex,
			&c.Content, &c.Similarity); err != nil {
			return nil, fmt.Errorf("scanning chunk row: %w", err)
		}
		chunks = append(chunks, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating chunk rows: %w", err)
	}
	return chunks, nil
}

var _ ChunkQuerier = (*PostgresChunks)(nil)
