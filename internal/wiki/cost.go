package wiki

import "github.com/eddowding/mothersalmanac-sub002/internal/page"

// CostTable converts token usage to an estimated spend in USD using fixed
// per-million-token rates. The rates are configuration constants, not
// something to rederive per call.
type CostTable struct {
	InputPerMtok  float64
	OutputPerMtok float64
}

// Estimate returns the dollar cost of the given usage.
func (t CostTable) Estimate(usage page.TokenUsage) float64 {
	const mtok = 1_000_000.0
	return float64(usage.InputTokens)/mtok*t.InputPerMtok +
		float64(usage.OutputTokens)/mtok*t.OutputPerMtok
}
