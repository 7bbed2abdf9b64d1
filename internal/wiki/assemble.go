package wiki

import (
	"fmt"
	"strings"

	"github.com/eddowding/mothersalmanac-sub002/internal/search"
)

// AssembledContext is the bounded context string handed to the model,
// with the distinct source documents it draws from.
type AssembledContext struct {
	Context string
	Sources []string // document IDs, deduplicated, ordered by first appearance
}

// Empty reports whether no chunks made it into the context.
func (a AssembledContext) Empty() bool {
	return a.Context == ""
}

// Assembler packs retrieved chunks into a token-budgeted context string.
//
// Assembly is deterministic: the same result list and budget produce the
// same context every call. Chunks are taken in ranking order; the walk
// stops once the next chunk would exceed the budget. A non-empty result
// always contributes at least its top chunk, even if that single chunk
// alone exceeds the budget, so retrieval hits never degrade to an empty
// context.
type Assembler struct {
	estimator TokenEstimator
}

// NewAssembler creates an assembler using the given token estimator.
func NewAssembler(estimator TokenEstimator) (*Assembler, error) {
	if estimator == nil {
		return nil, fmt.Errorf("token estimator is required")
	}
	return &Assembler{estimator: estimator}, nil
}

// Assemble greedily packs chunks into the token budget.
func (a *Assembler) Assemble(result search.Result, tokenBudget int) AssembledContext {
	if result.Empty() {
		return AssembledContext{}
	}

	var (
		b       strings.Builder
		sources []string
		seen    = make(map[string]struct{})
		used    int
	)

	for i, chunk := range result.Chunks {
		block := formatChunk(chunk)
		cost := a.estimator.EstimateTokens(block)
		if i > 0 && used+cost > tokenBudget {
			break
		}

		b.WriteString(block)
		used += cost

		docID := chunk.DocumentID.String()
		if _, ok := seen[docID]; !ok {
			seen[docID] = struct{}{}
			sources = append(sources, docID)
		}
	}

	return AssembledContext{
		Context: strings.TrimSuffix(b.String(), "\n\n"),
		Sources: sources,
	}
}

// formatChunk renders one chunk with its citation header.
func formatChunk(c search.Chunk) string {
	var b strings.Builder
	b.WriteString("[Source: ")
	b.WriteString(c.DocumentTitle)
	if c.SectionTitle != "" {
		b.WriteString(", ")
		b.WriteString(c.SectionTitle)
	}
	if c.PageNumber > 0 {
		fmt.Fprintf(&b, ", p.%d", c.PageNumber)
	}
	b.WriteString("]\n")
	b.WriteString(c.Content)
	b.WriteString("\n\n")
	return b.String()
}
