package wiki

import (
	"strings"
	"testing"

	"github.com/google/uuid"

	"github.com/eddowding/mothersalmanac-sub002/internal/search"
)

func chunksForDocs(similarities []float64, docCount int, content string) search.Result {
	docs := make([]uuid.UUID, docCount)
	for i := range docs {
		docs[i] = uuid.New()
	}
	chunks := make([]search.Chunk, len(similarities))
	for i, sim := range similarities {
		chunks[i] = search.Chunk{
			ID:            uuid.New(),
			DocumentID:    docs[i%docCount],
			DocumentTitle: "Feeding Guide",
			Content:       content,
			Similarity:    sim,
			ChunkIndex:    int32(i),
		}
	}
	return search.Result{Query: "sleep training", Chunks: chunks}
}

func newTestAssembler(t *testing.T) *Assembler {
	t.Helper()
	a, err := NewAssembler(HeuristicEstimator{})
	if err != nil {
		t.Fatalf("NewAssembler() unexpected error: %v", err)
	}
	return a
}

func TestAssemble_RespectsBudget(t *testing.T) {
	a := newTestAssembler(t)
	// Each chunk block is ~1000 chars -> ~250 tokens.
	result := chunksForDocs([]float64{0.9, 0.85, 0.8, 0.75}, 2, strings.Repeat("x", 1000))

	assembled := a.Assemble(result, 600)
	if assembled.Empty() {
		t.Fatal("non-empty result must produce non-empty context")
	}
	if got := (HeuristicEstimator{}).EstimateTokens(assembled.Context); got > 600 {
		t.Errorf("context estimate %d exceeds budget 600", got)
	}
}

func TestAssemble_AlwaysIncludesTopChunk(t *testing.T) {
	a := newTestAssembler(t)
	result := chunksForDocs([]float64{0.9}, 1, strings.Repeat("y", 4000))

	// A single chunk far over budget is still included.
	assembled := a.Assemble(result, 10)
	if assembled.Empty() {
		t.Fatal("top chunk must be included even when it exceeds the budget")
	}
	if !strings.Contains(assembled.Context, "yyyy") {
		t.Error("context should contain the top chunk's content")
	}
	if len(assembled.Sources) != 1 {
		t.Errorf("got %d sources, want 1", len(assembled.Sources))
	}
}

func TestAssemble_EmptyResult(t *testing.T) {
	a := newTestAssembler(t)
	assembled := a.Assemble(search.Result{}, 8000)
	if !assembled.Empty() {
		t.Error("empty result should produce empty context")
	}
	if len(assembled.Sources) != 0 {
		t.Errorf("empty result should have no sources, got %d", len(assembled.Sources))
	}
}

func TestAssemble_DeduplicatesSourcesInOrder(t *testing.T) {
	a := newTestAssembler(t)
	docA := uuid.New()
	docB := uuid.New()
	result := search.Result{Chunks: []search.Chunk{
		{DocumentID: docA, DocumentTitle: "A", Content: "one", Similarity: 0.9},
		{DocumentID: docB, DocumentTitle: "B", Content: "two", Similarity: 0.85},
		{DocumentID: docA, DocumentTitle: "A", Content: "three", Similarity: 0.8},
	}}

	assembled := a.Assemble(result, 8000)
	want := []string{docA.String(), docB.String()}
	if len(assembled.Sources) != 2 {
		t.Fatalf("got %d sources, want 2", len(assembled.Sources))
	}
	for i, w := range want {
		if assembled.Sources[i] != w {
			t.Errorf("sources[%d] = %s, want %s (first-appearance order)", i, assembled.Sources[i], w)
		}
	}
}

func TestAssemble_Deterministic(t *testing.T) {
	a := newTestAssembler(t)
	result := chunksForDocs([]float64{0.91, 0.88, 0.85, 0.8}, 2, strings.Repeat("z", 500))

	first := a.Assemble(result, 1000)
	second := a.Assemble(result, 1000)
	if first.Context != second.Context {
		t.Error("assembly must be deterministic for identical input")
	}
}

// Mirrors a typical retrieval: 8 chunks over 3 documents within budget.
func TestAssemble_FullRetrievalScenario(t *testing.T) {
	a := newTestAssembler(t)
	sims := []float64{0.91, 0.88, 0.85, 0.80, 0.79, 0.77, 0.76, 0.75}
	result := chunksForDocs(sims, 3, strings.Repeat("w", 400))

	assembled := a.Assemble(result, 8000)
	if len(assembled.Sources) != 3 {
		t.Errorf("got %d sources, want 3 distinct documents", len(assembled.Sources))
	}
	// All 8 chunks fit: 8 * ~110 tokens is well under 8000.
	if got := strings.Count(assembled.Context, "[Source:"); got != 8 {
		t.Errorf("context contains %d chunks, want all 8", got)
	}
}

func TestNewAssembler_RequiresEstimator(t *testing.T) {
	if _, err := NewAssembler(nil); err == nil {
		t.Error("NewAssembler(nil) should fail")
	}
}
