package page_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/eddowding/mothersalmanac-sub002/internal/log"
	"github.com/eddowding/mothersalmanac-sub002/internal/page"
	"github.com/eddowding/mothersalmanac-sub002/internal/testutil"
)

func TestStore_Integration(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	db, cleanup := testutil.SetupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	store, err := page.NewStore(db.Pool, log.NewNop())
	if err != nil {
		t.Fatalf("NewStore() unexpected error: %v", err)
	}

	now := time.Now().UTC().Truncate(time.Microsecond)
	p := &page.Page{
		Slug:            "sleep-training",
		Title:           "Sleep Training",
		Content:         "# Sleep Training\n\nConsistency matters.",
		Excerpt:         "Consistency matters.",
		ConfidenceScore: 0.72,
		Published:       true,
		GeneratedAt:     now,
		TTLExpiresAt:    now.Add(7 * 24 * time.Hour),
		Metadata: page.Metadata{
			Query:            "how do I sleep train",
			SourcesUsed:      []string{"doc-1", "doc-2"},
			EntityLinks:      []string{"night-waking"},
			ChunkCount:       5,
			TokenUsage:       page.TokenUsage{InputTokens: 4000, OutputTokens: 900},
			EstimatedCostUSD: 0.0255,
			GenerationSource: page.SourceRetrieval,
		},
	}

	t.Run("get missing page", func(t *testing.T) {
		if _, err := store.Get(ctx, "nothing-here"); !errors.Is(err, page.ErrNotFound) {
			t.Errorf("Get() error = %v, want ErrNotFound", err)
		}
	})

	t.Run("put and get round trip", func(t *testing.T) {
		if err := store.Put(ctx, p); err != nil {
			t.Fatalf("Put() unexpected error: %v", err)
		}

		got, err := store.Get(ctx, "sleep-training")
		if err != nil {
			t.Fatalf("Get() unexpected error: %v", err)
		}
		if got.Title != p.Title || got.Content != p.Content {
			t.Error("round trip altered title or content")
		}
		if got.Metadata.Query != p.Metadata.Query {
			t.Errorf("metadata query = %q, want %q", got.Metadata.Query, p.Metadata.Query)
		}
		if got.Metadata.TokenUsage != p.Metadata.TokenUsage {
			t.Errorf("token usage = %+v, want %+v", got.Metadata.TokenUsage, p.Metadata.TokenUsage)
		}
	})

	t.Run("put replaces existing row", func(t *testing.T) {
		updated := *p
		updated.Content = "# Sleep Training\n\nRevised guidance."
		updated.ConfidenceScore = 0.9
		if err := store.Put(ctx, &updated); err != nil {
			t.Fatalf("Put() unexpected error: %v", err)
		}

		got, err := store.Get(ctx, "sleep-training")
		if err != nil {
			t.Fatalf("Get() unexpected error: %v", err)
		}
		if got.ConfidenceScore != 0.9 {
			t.Errorf("confidence = %v, want full replace to 0.9", got.ConfidenceScore)
		}
	})

	t.Run("exists", func(t *testing.T) {
		ok, err := store.Exists(ctx, "sleep-training")
		if err != nil || !ok {
			t.Errorf("Exists() = %v, %v; want true, nil", ok, err)
		}
		ok, err = store.Exists(ctx, "never-generated")
		if err != nil || ok {
			t.Errorf("Exists() = %v, %v; want false, nil", ok, err)
		}
	})

	t.Run("list published slugs", func(t *testing.T) {
		slugs, err := store.ListPublishedSlugs(ctx, 10)
		if err != nil {
			t.Fatalf("ListPublishedSlugs() unexpected error: %v", err)
		}
		if len(slugs) != 1 || slugs[0] != "sleep-training" {
			t.Errorf("slugs = %v, want [sleep-training]", slugs)
		}
	})

	t.Run("build lock excludes second acquirer", func(t *testing.T) {
		release, ok, err := store.AcquireBuildLock(ctx, "sleep-training")
		if err != nil || !ok {
			t.Fatalf("first AcquireBuildLock() = %v, %v; want acquired", ok, err)
		}

		_, ok2, err := store.AcquireBuildLock(ctx, "sleep-training")
		if err != nil {
			t.Fatalf("second AcquireBuildLock() unexpected error: %v", err)
		}
		if ok2 {
			t.Error("second acquirer should be refused while lock is held")
		}

		release()

		release3, ok3, err := store.AcquireBuildLock(ctx, "sleep-training")
		if err != nil || !ok3 {
			t.Fatalf("reacquire after release = %v, %v; want acquired", ok3, err)
		}
		release3()
	})

	t.Run("invalidate removes the page", func(t *testing.T) {
		if err := store.Invalidate(ctx, "sleep-training"); err != nil {
			t.Fatalf("Invalidate() unexpected error: %v", err)
		}
		if _, err := store.Get(ctx, "sleep-training"); !errors.Is(err, page.ErrNotFound) {
			t.Errorf("Get() after invalidate error = %v, want ErrNotFound", err)
		}
		// Invalidating again is not an error.
		if err := store.Invalidate(ctx, "sleep-training"); err != nil {
			t.Errorf("repeat Invalidate() unexpected error: %v", err)
		}
	})
}
