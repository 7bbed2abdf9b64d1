package page

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const getPageSQL = `
	SELECT slug, title, content, excerpt, confidence_score, published,
	       generated_at, ttl_expires_at, metadata
	FROM wiki_pages
	WHERE slug = $1`

const putPageSQL = `
	INSERT INTO wiki_pages
	       (slug, title, content, excerpt, confidence_score, published,
	        generated_at, ttl_expires_at, metadata)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	ON CONFLICT (slug) DO UPDATE SET
	       title            = EXCLUDED.title,
	       content          = EXCLUDED.content,
	       excerpt          = EXCLUDED.excerpt,
	       confidence_score = EXCLUDED.confidence_score,
	       published        = EXCLUDED.published,
	       generated_at     = EXCLUDED.generated_at,
	       ttl_expires_at   = EXCLUDED.ttl_expires_at,
	       metadata         = EXCLUDED.metadata`

const deletePageSQL = `DELETE FROM wiki_pages WHERE slug = $1`

const pageExistsSQL = `SELECT EXISTS (SELECT 1 FROM wiki_pages WHERE slug = $1)`

const listPublishedSlugsSQL = `
	SELECT slug FROM wiki_pages
	WHERE published
	ORDER BY generated_at
	LIMIT $1`

// Store persists generated pages in PostgreSQL.
//
// Store is safe for concurrent use by multiple goroutines.
type Store struct {
	pool   *pgxpool.Pool
	logger *slog.Logger
}

// NewStore creates a page store backed by the given pool.
func NewStore(pool *pgxpool.Pool, logger *slog.Logger) (*Store, error) {
	if pool == nil {
		return nil, fmt.Errorf("pool is required")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{pool: pool, logger: logger}, nil
}

// Get loads a page by slug. Returns ErrNotFound when no page exists.
func (s *Store) Get(ctx context.Context, slug string) (*Page, error) {
	var (
		p    Page
		meta []byte
	)
	err := s.pool.QueryRow(ctx, getPageSQL, slug).Scan(
		&p.Slug, &p.Title, &p.Content, &p.Excerpt, &p.ConfidenceScore,
		&p.Published, &p.GeneratedAt, &p.TTLExpiresAt, &meta)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("slug %q: %w", slug, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("loading page %q: %w", slug, err)
	}
	if len(meta) > 0 {
		if err := json.Unmarshal(meta, &p.Metadata); err != nil {
			return nil, fmt.Errorf("decoding metadata for %q: %w", slug, err)
		}
	}
	return &p, nil
}

// Put upserts a page, fully replacing any prior version of the same slug.
func (s *Store) Put(ctx context.Context, p *Page) error {
	if err := p.Validate(); err != nil {
		return fmt.Errorf("invalid page: %w", err)
	}

	meta, err := json.Marshal(p.Metadata)
	if err != nil {
		return fmt.Errorf("encoding metadata for %q: %w", p.Slug, err)
	}

	if _, err := s.pool.Exec(ctx, putPageSQL,
		p.Slug, p.Title, p.Content, p.Excerpt, p.ConfidenceScore,
		p.Published, p.GeneratedAt, p.TTLExpiresAt, meta); err != nil {
		return fmt.Errorf("storing page %q: %w", p.Slug, err)
	}

	s.logger.Debug("page stored",
		"slug", p.Slug, "published", p.Published,
		"confidence", p.ConfidenceScore)
	return nil
}

// Invalidate removes a page so the next request regenerates it.
// Removing an absent slug is not an error.
func (s *Store) Invalidate(ctx context.Context, slug string) error {
	tag, err := s.pool.Exec(ctx, deletePageSQL, slug)
	if err != nil {
		return fmt.Errorf("invalidating page %q: %w", slug, err)
	}
	s.logger.Debug("page invalidated", "slug", slug, "existed", tag.RowsAffected() > 0)
	return nil
}

// Exists reports whether a page row exists for the slug, published or not.
func (s *Store) Exists(ctx context.Context, slug string) (bool, error) {
	var exists bool
	if err := s.pool.QueryRow(ctx, pageExistsSQL, slug).Scan(&exists); err != nil {
		return false, fmt.Errorf("checking page %q: %w", slug, err)
	}
	return exists, nil
}

// IsStale reports whether the page's TTL has elapsed.
func (s *Store) IsStale(p *Page) bool {
	return p.Stale(time.Now())
}

// ListPublishedSlugs returns up to limit published page slugs, oldest first.
// Used by maintenance jobs that sweep the corpus (re-extraction, TTL refresh).
func (s *Store) ListPublishedSlugs(ctx context.Context, limit int32) ([]string, error) {
	rows, err := s.pool.Query(ctx, listPublishedSlugsSQL, limit)
	if err != nil {
		return nil, fmt.Errorf("listing published pages: %w", err)
	}
	defer rows.Close()

	var slugs []string
	for rows.Next() {
		var slug string
		if err := rows.Scan(&slug); err != nil {
			return nil, fmt.Errorf("scanning slug: %w", err)
		}
		slugs = append(slugs, slug)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating slugs: %w", err)
	}
	return slugs, nil
}

// AcquireBuildLock takes the per-slug session advisory lock that serializes
// page generation. When ok is false another process holds the lock and the
// caller should wait for that build instead of starting its own.
//
// The lock is keyed on hashtext(slug) and held on a dedicated connection for
// the duration of the build, since a generation cycle spans a streaming model
// call and must not pin a transaction open that long. The returned release
// function must be called exactly once.
func (s *Store) AcquireBuildLock(ctx context.Context, slug string) (release func(), ok bool, err error) {
	conn, err := s.pool.Acquire(ctx)
	if err != nil {
		return nil, false, fmt.Errorf("acquiring connection for build lock: %w", err)
	}

	var locked bool
	if err := conn.QueryRow(ctx,
		`SELECT pg_try_advisory_lock(hashtext($1))`, slug).Scan(&locked); err != nil {
		conn.Release()
		return nil, false, fmt.Errorf("acquiring build lock for %q: %w", slug, err)
	}
	if !locked {
		conn.Release()
		return nil, false, nil
	}

	release = func() {
		// Unlock on a fresh context so cancellation of the build does not
		// leak the advisory lock for the life of the connection.
		unlockCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if _, err := conn.Exec(unlockCtx,
			`SELECT pg_advisory_unlock(hashtext($1))`, slug); err != nil {
			s.logger.Warn("releasing build lock failed", "slug", slug, "error", err)
		}
		conn.Release()
	}
	return release, true, nil
}
