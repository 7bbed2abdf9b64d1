package search

import (
	"context"
	"errors"
	"testing"

	"github.com/firebase/genkit/go/ai"
	"github.com/firebase/genkit/go/core/api"
	"github.com/google/uuid"
	"github.com/pgvector/pgvector-go"

	"github.com/eddowding/mothersalmanac-sub002/internal/log"
)

// fixedEmbedder returns the same embedding for every input.
type fixedEmbedder struct {
	vec []float32
	err error
}

func (f *fixedEmbedder) Name() string            { return "fixed-embedder" }
func (f *fixedEmbedder) Register(_ api.Registry) {}

func (f *fixedEmbedder) Embed(_ context.Context, req *ai.EmbedRequest) (*ai.EmbedResponse, error) {
	if f.err != nil {
		return nil, f.err
	}
	embeddings := make([]*ai.Embedding, len(req.Input))
	for i := range req.Input {
		embeddings[i] = &ai.Embedding{Embedding: f.vec}
	}
	return &ai.EmbedResponse{Embeddings: embeddings}, nil
}

// fakeChunks records the embedding it was queried with and returns canned chunks.
type fakeChunks struct {
	gotVector    pgvector.Vector
	gotThreshold float64
	gotLimit     int32
	chunks       []Chunk
	err          error
}

func (f *fakeChunks) SimilarChunks(_ context.Context, embedding pgvector.Vector, threshold float64, limit int32) ([]Chunk, error) {
	f.gotVector = embedding
	f.gotThreshold = threshold
	f.gotLimit = limit
	if f.err != nil {
		return nil, f.err
	}
	return f.chunks, nil
}

func testChunks(n int) []Chunk {
	docA := uuid.New()
	docB := uuid.New()
	out := make([]Chunk, 0, n)
	for i := 0; i < n; i++ {
		doc := docA
		if i%2 == 1 {
			doc = docB
		}
		out = append(out, Chunk{
			ID:            uuid.New(),
			DocumentID:    doc,
			DocumentTitle: "Infant Sleep Basics",
			Content:       "Newborns sleep in short cycles.",
			Similarity:    0.95 - float64(i)*0.02,
			ChunkIndex:    int32(i),
		})
	}
	return out
}

func TestSearch_ReturnsChunks(t *testing.T) {
	chunks := &fakeChunks{chunks: testChunks(4)}
	client, err := New(chunks, &fixedEmbedder{vec: []float32{0.1, 0.2, 0.3}}, log.NewNop())
	if err != nil {
		t.Fatalf("New() unexpected error: %v", err)
	}

	res := client.Search(context.Background(), "sleep training",
		WithThreshold(0.8), WithLimit(10))

	if res.Query != "sleep training" {
		t.Errorf("Query = %q, want %q", res.Query, "sleep training")
	}
	if len(res.Chunks) != 4 {
		t.Fatalf("got %d chunks, want 4", len(res.Chunks))
	}
	if chunks.gotThreshold != 0.8 {
		t.Errorf("threshold passed to backend = %v, want 0.8", chunks.gotThreshold)
	}
	if chunks.gotLimit != 10 {
		t.Errorf("limit passed to backend = %v, want 10", chunks.gotLimit)
	}
}

// TestSearch_VectorPathEquivalence asserts that the embed-then-search path
// and the direct vector path hit the backend with the identical vector and
// return identical result sets. A mismatch here is the classic silent-empty-
// results serialization bug.
func TestSearch_VectorPathEquivalence(t *testing.T) {
	vec := []float32{0.5, -0.25, 0.125}
	want := testChunks(3)

	wrapped := &fakeChunks{chunks: want}
	direct := &fakeChunks{chunks: want}

	client, err := New(wrapped, &fixedEmbedder{vec: vec}, log.NewNop())
	if err != nil {
		t.Fatalf("New() unexpected error: %v", err)
	}
	directClient, err := New(direct, &fixedEmbedder{vec: vec}, log.NewNop())
	if err != nil {
		t.Fatalf("New() unexpected error: %v", err)
	}

	wrappedRes := client.Search(context.Background(), "tummy time")
	directRes := directClient.SearchByVector(context.Background(), pgvector.NewVector(vec))

	if len(wrappedRes.Chunks) != len(directRes.Chunks) {
		t.Fatalf("wrapped returned %d chunks, direct returned %d",
			len(wrappedRes.Chunks), len(directRes.Chunks))
	}
	for i := range wrappedRes.Chunks {
		if wrappedRes.Chunks[i].ID != directRes.Chunks[i].ID {
			t.Errorf("chunk %d differs between paths", i)
		}
	}

	// The backend must see byte-identical vector literals on both paths.
	if wrapped.gotVector.String() != direct.gotVector.String() {
		t.Errorf("vector literal mismatch: wrapped=%q direct=%q",
			wrapped.gotVector.String(), direct.gotVector.String())
	}
}

func TestSearch_BackendErrorDegradesToEmpty(t *testing.T) {
	chunks := &fakeChunks{err: errors.New("connection refused")}
	client, err := New(chunks, &fixedEmbedder{vec: []float32{1}}, log.NewNop())
	if err != nil {
		t.Fatalf("New() unexpected error: %v", err)
	}

	res := client.Search(context.Background(), "weaning")
	if !res.Empty() {
		t.Errorf("expected empty result on backend error, got %d chunks", len(res.Chunks))
	}
	if res.Query != "weaning" {
		t.Errorf("Query = %q, want preserved on failure", res.Query)
	}
}

func TestSearch_EmbedErrorDegradesToEmpty(t *testing.T) {
	client, err := New(&fakeChunks{chunks: testChunks(2)},
		&fixedEmbedder{err: errors.New("quota exceeded")}, log.NewNop())
	if err != nil {
		t.Fatalf("New() unexpected error: %v", err)
	}

	res := client.Search(context.Background(), "first foods")
	if !res.Empty() {
		t.Error("expected empty result when embedding fails")
	}
}

func TestNew_Validation(t *testing.T) {
	if _, err := New(nil, &fixedEmbedder{}, log.NewNop()); err == nil {
		t.Error("New() with nil querier should fail")
	}
	if _, err := New(&fakeChunks{}, nil, log.NewNop()); err == nil {
		t.Error("New() with nil embedder should fail")
	}
}

func TestResult_SourceCount(t *testing.T) {
	docA := uuid.New()
	docB := uuid.New()
	res := Result{Chunks: []Chunk{
		{DocumentID: docA}, {DocumentID: docB}, {DocumentID: docA},
	}}
	if got := res.SourceCount(); got != 2 {
		t.Errorf("SourceCount() = %d, want 2", got)
	}
}

func TestBuildSearchConfig_Defaults(t *testing.T) {
	cfg := buildSearchConfig(nil)
	if cfg.threshold != 0.75 {
		t.Errorf("default threshold = %v, want 0.75", cfg.threshold)
	}
	if cfg.limit != 15 {
		t.Errorf("default limit = %v, want 15", cfg.limit)
	}

	// Non-positive limit is ignored.
	cfg = buildSearchConfig([]Option{WithLimit(0)})
	if cfg.limit != 15 {
		t.Errorf("WithLimit(0) should keep default, got %v", cfg.limit)
	}
}
