package wiki

import (
	"fmt"

	"github.com/pkoukk/tiktoken-go"
)

// TokenEstimator estimates the token cost of a text span for context-budget
// packing. Estimates only need to be consistent, not exact: the budget has
// headroom and the same estimator is used for every chunk.
type TokenEstimator interface {
	EstimateTokens(text string) int
}

// HeuristicEstimator approximates tokens as characters divided by four,
// which tracks English prose closely enough for budget packing and is
// fully deterministic with no model dependency.
type HeuristicEstimator struct{}

// EstimateTokens returns len(text)/4, minimum 1 for non-empty text.
func (HeuristicEstimator) EstimateTokens(text string) int {
	if len(text) == 0 {
		return 0
	}
	n := len(text) / 4
	if n == 0 {
		n = 1
	}
	return n
}

// TiktokenEstimator counts tokens with a real BPE encoding. More accurate
// than the heuristic for mixed-language or code-heavy corpora.
type TiktokenEstimator struct {
	enc *tiktoken.Tiktoken
}

// NewTiktokenEstimator loads the named encoding (e.g. "cl100k_base").
func NewTiktokenEstimator(encoding string) (*TiktokenEstimator, error) {
	enc, err := tiktoken.GetEncoding(encoding)
	if err != nil {
		return nil, fmt.Errorf("loading encoding %q: %w", encoding, err)
	}
	return &TiktokenEstimator{enc: enc}, nil
}

// EstimateTokens returns the exact BPE token count.
func (t *TiktokenEstimator) EstimateTokens(text string) int {
	return len(t.enc.Encode(text, nil, nil))
}

var (
	_ TokenEstimator = HeuristicEstimator{}
	_ TokenEstimator = (*TiktokenEstimator)(nil)
)
