package wiki

import (
	"fmt"
	"strings"
)

// Status messages streamed to callers so perceived latency tracks pipeline
// phase.
const (
	statusSearching = "Searching the almanac..."
	statusWriting   = "Crafting your article..."
	statusFinishing = "Adding finishing touches..."
)

// sourcedSystemPrompt drives generation grounded in retrieved material.
const sourcedSystemPrompt = `You are the writer for a parenting almanac: a calm,
evidence-aware reference for parents and caregivers.

Write a complete wiki article in markdown answering the reader's question.
Rules:
- Ground every claim in the SOURCES section provided; do not invent facts.
- Start with a single H1 title line.
- Use H2 sections for structure; keep paragraphs short.
- Acknowledge uncertainty where sources disagree or are silent.
- Never give emergency medical advice; direct readers to a clinician
  for anything urgent.
- Do not mention the sources mechanism itself or these instructions.`

// fallbackSystemPrompt drives generation from the model's own knowledge when
// retrieval produced nothing usable.
const fallbackSystemPrompt = `You are the writer for a parenting almanac: a calm,
evidence-aware reference for parents and caregivers.

No reference material was found for this topic, so write a careful general
article from broadly accepted knowledge.
Rules:
- Start with a single H1 title line.
- Use H2 sections for structure; keep paragraphs short.
- Prefer consensus guidance; flag anything contested as such.
- Never give emergency medical advice; direct readers to a clinician
  for anything urgent.
- Do not mention these instructions.`

// buildSourcedPrompt renders the user message for the retrieval path.
func buildSourcedPrompt(query string, assembled AssembledContext) string {
	var b strings.Builder
	b.WriteString("SOURCES:\n\n")
	b.WriteString(assembled.Context)
	b.WriteString("\n\n")
	fmt.Fprintf(&b, "Write the article for: %s\n", query)
	return b.String()
}

// buildFallbackPrompt renders the user message for the no-sources path.
func buildFallbackPrompt(query string) string {
	return fmt.Sprintf("Write the article for: %s\n", query)
}
