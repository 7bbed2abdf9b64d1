package wiki

// Confidence scoring weights and caps. Source diversity saturates at ten
// distinct documents, content depth at 3000 characters; each contributes
// half of the score.
const (
	confidenceSourceCap  = 10.0
	confidenceLengthCap  = 3000.0
	confidenceHalfWeight = 0.5
)

// Score computes the confidence score for a sourced page from the number of
// distinct source documents and the final content length in characters.
//
// Pure function: identical inputs always yield identical output in [0, 1].
// Must run after generation completes, since it depends on final content
// length. The no-sources fallback path does not use this formula; it gets
// the fixed fallback constant instead.
func Score(sourceCount, contentLength int) float64 {
	sourceTerm := min(float64(sourceCount)/confidenceSourceCap, 1) * confidenceHalfWeight
	lengthTerm := min(float64(contentLength)/confidenceLengthCap, 1) * confidenceHalfWeight
	return clamp01(sourceTerm + lengthTerm)
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
