package wiki

import (
	"context"
	"fmt"

	"github.com/firebase/genkit/go/ai"
	"github.com/firebase/genkit/go/genkit"
	"google.golang.org/genai"

	"github.com/eddowding/mothersalmanac-sub002/internal/page"
)

// GenkitGenerator is the production TextGenerator backed by a Genkit model.
type GenkitGenerator struct {
	g         *genkit.Genkit
	modelName string
}

// NewGenkitGenerator creates the production streaming generator.
func NewGenkitGenerator(g *genkit.Genkit, modelName string) (*GenkitGenerator, error) {
	if g == nil {
		return nil, fmt.Errorf("genkit instance is required")
	}
	if modelName == "" {
		return nil, fmt.Errorf("model name is required")
	}
	return &GenkitGenerator{g: g, modelName: modelName}, nil
}

// GenerateStream runs one streaming generation call, forwarding text deltas
// to onDelta as they arrive and folding usage metadata from the final
// response.
func (gg *GenkitGenerator) GenerateStream(ctx context.Context, req GenerateRequest, onDelta func(text string) error) (string, page.TokenUsage, error) {
	opts := []ai.GenerateOption{
		ai.WithModelName(gg.modelName),
		ai.WithSystem(req.System),
		ai.WithPrompt(req.Prompt),
		ai.WithConfig(&genai.GenerateContentConfig{
			Temperature:     genai.Ptr(req.Temperature),
			MaxOutputTokens: int32(req.MaxTokens),
		}),
	}
	if onDelta != nil {
		opts = append(opts, ai.WithStreaming(func(ctx context.Context, chunk *ai.ModelResponseChunk) error {
			return onDelta(chunk.Text())
		}))
	}

	response, err := genkit.Generate(ctx, gg.g, opts...)
	if err != nil {
		return "", page.TokenUsage{}, fmt.Errorf("generate: %w", err)
	}

	var usage page.TokenUsage
	if response.Usage != nil {
		usage.InputTokens = response.Usage.InputTokens
		usage.OutputTokens = response.Usage.OutputTokens
	}
	return response.Text(), usage, nil
}

var _ TextGenerator = (*GenkitGenerator)(nil)
