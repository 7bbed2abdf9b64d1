// Package graph maintains the link graph grown from entity mentions: stub
// suggestions for topics without pages, and weighted connection edges
// between pages that reference each other.
//
// All writes here are best-effort from the pipeline's perspective. The store
// itself returns real errors; the orchestrator chooses to log and ignore
// them, since link-graph freshness is non-critical to page availability.
package graph

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/eddowding/mothersalmanac-sub002/internal/entity"
)

// Initial edge strength comes from the mention's relevance; each repeat
// observation strengthens the edge by a fixed step, capped at 1.
const (
	strengthStep = 0.1
	strengthCap  = 1.0
)

const upsertStubSQL = `
	INSERT INTO stubs (id, slug, title, mentioned_in, mention_count, confidence, created_at)
	VALUES ($1, $2, $3, ARRAY[$4], 1, $5, $6)
	ON CONFLICT (slug) DO UPDATE SET
	       mention_count = stubs.mention_count + 1,
	       mentioned_in  = CASE
	                         WHEN $4 = ANY (stubs.mentioned_in) THEN stubs.mentioned_in
	                         ELSE array_append(stubs.mentioned_in, $4)
	                       END,
	       confidence    = EXCLUDED.confidence`

const upsertConnectionSQL = `
	INSERT INTO page_connections (from_slug, to_slug, strength, link_text, updated_at)
	VALUES ($1, $2, $3, $4, $5)
	ON CONFLICT (from_slug, to_slug) DO UPDATE SET
	       strength   = LEAST(page_connections.strength + $6, $7),
	       link_text  = EXCLUDED.link_text,
	       updated_at = EXCLUDED.updated_at`

const markGeneratedSQL = `UPDATE stubs SET is_generated = TRUE WHERE slug = $1`

const mentionCountSQL = `SELECT mention_count FROM stubs WHERE slug = $1`

const pendingStubsSQL = `
	SELECT slug FROM stubs
	WHERE NOT is_generated AND confidence = ANY($1)
	ORDER BY mention_count DESC
	LIMIT $2`

// Querier is the subset of pgx operations the store needs. Satisfied by
// *pgxpool.Pool and pgx.Tx alike.
type Querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

// PageChecker reports whether a real page exists for a slug. Satisfied by
// the page store.
type PageChecker interface {
	Exists(ctx context.Context, slug string) (bool, error)
}

// Store persists stubs and page connections.
//
// Store is safe for concurrent use by multiple goroutines.
type Store struct {
	db     Querier
	pages  PageChecker
	logger *slog.Logger
	now    func() time.Time
}

// NewStore creates a link-graph store.
func NewStore(db Querier, pages PageChecker, logger *slog.Logger) (*Store, error) {
	if db == nil {
		return nil, fmt.Errorf("querier is required")
	}
	if pages == nil {
		return nil, fmt.Errorf("page checker is required")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{db: db, pages: pages, logger: logger, now: time.Now}, nil
}

// RecordMentions folds one generation cycle's mentions into the graph.
//
// Mentions resolving to an existing page become (or strengthen) a connection
// edge from fromSlug; the rest become (or increment) a stub suggestion.
// Self-references are skipped. Processing continues past individual
// failures; the joined error reports everything that went wrong.
func (s *Store) RecordMentions(ctx context.Context, fromSlug string, mentions []entity.Mention) error {
	if fromSlug == "" {
		return fmt.Errorf("from slug must not be empty")
	}

	var errs []error
	for _, m := range mentions {
		if m.Slug == "" || m.Slug == fromSlug {
			continue
		}

		exists, err := s.pages.Exists(ctx, m.Slug)
		if err != nil {
			errs = append(errs, fmt.Errorf("checking page %q: %w", m.Slug, err))
			continue
		}

		if exists {
			err = s.upsertConnection(ctx, fromSlug, m)
		} else {
			err = s.upsertStub(ctx, fromSlug, m)
		}
		if err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (s *Store) upsertStub(ctx context.Context, fromSlug string, m entity.Mention) error {
	confidence := m.Confidence
	if confidence == entity.TierGhost {
		// Stubs carry strong|medium|weak only; ghost evidence is recorded
		// at the floor so repeat mentions can promote it.
		confidence = entity.TierWeak
	}

	if _, err := s.db.Exec(ctx, upsertStubSQL,
		uuid.New(), m.Slug, m.Text, fromSlug, string(confidence), s.now()); err != nil {
		return fmt.Errorf("upserting stub %q: %w", m.Slug, err)
	}
	return nil
}

func (s *Store) upsertConnection(ctx context.Context, fromSlug string, m entity.Mention) error {
	if _, err := s.db.Exec(ctx, upsertConnectionSQL,
		fromSlug, m.Slug, m.Relevance, m.Text, s.now(),
		strengthStep, strengthCap); err != nil {
		return fmt.Errorf("upserting connection %s -> %s: %w", fromSlug, m.Slug, err)
	}
	return nil
}

// MarkGenerated flips a stub's is_generated flag once a page for its slug
// exists. A missing stub row is fine: not every page originates from a stub.
func (s *Store) MarkGenerated(ctx context.Context, slug string) error {
	tag, err := s.db.Exec(ctx, markGeneratedSQL, slug)
	if err != nil {
		return fmt.Errorf("marking stub %q generated: %w", slug, err)
	}
	if tag.RowsAffected() == 0 {
		s.logger.Debug("no stub to mark generated", "slug", slug)
	}
	return nil
}

// MentionCount returns the site-wide mention count for a slug, zero when no
// stub exists yet.
func (s *Store) MentionCount(ctx context.Context, slug string) (int, error) {
	var count int
	err := s.db.QueryRow(ctx, mentionCountSQL, slug).Scan(&count)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("counting mentions for %q: %w", slug, err)
	}
	return count, nil
}

// PendingStubs returns ungenerated stub slugs at the given confidence
// levels, most-mentioned first. Used to surface suggested topics.
func (s *Store) PendingStubs(ctx context.Context, tiers []entity.Tier, limit int32) ([]string, error) {
	levels := make([]string, len(tiers))
	for i, tier := range tiers {
		levels[i] = string(tier)
	}

	rows, err := s.db.Query(ctx, pendingStubsSQL, levels, limit)
	if err != nil {
		return nil, fmt.Errorf("listing pending stubs: %w", err)
	}
	defer rows.Close()

	var slugs []string
	for rows.Next() {
		var slug string
		if err := rows.Scan(&slug); err != nil {
			return nil, fmt.Errorf("scanning stub slug: %w", err)
		}
		slugs = append(slugs, slug)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating stub slugs: %w", err)
	}
	return slugs, nil
}
