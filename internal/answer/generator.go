// Package answer turns retrieval results, web snippets, or the model's own
// knowledge into step-structured math answers.
package answer

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/firebase/genkit/go/ai"
	"github.com/firebase/genkit/go/genkit"
)

// Generator produces raw model text for a prompt. Implemented by
// GenkitGenerator in production and by test doubles.
type Generator interface {
	Generate(ctx context.Context, system, prompt string) (string, error)
}

// GenkitGenerator calls the configured model through Genkit.
type GenkitGenerator struct {
	g         *genkit.Genkit
	modelName string
	config    map[string]any
	logger    *slog.Logger
}

// NewGenkitGenerator creates a Generator bound to one model. modelName must
// be fully qualified (e.g. "googleai/gemini-2.5-flash"). A nil logger falls
// back to slog.Default().
func NewGenkitGenerator(g *genkit.Genkit, modelName string, temperature float32, maxTokens int, logger *slog.Logger) *GenkitGenerator {
	if logger == nil {
		logger = slog.Default()
	}
	return &GenkitGenerator{
		g:         g,
		modelName: modelName,
		config: map[string]any{
			"temperature":     temperature,
			"maxOutputTokens": maxTokens,
		},
		logger: logger,
	}
}

// Generate runs one completion and returns the model text.
func (gg *GenkitGenerator) Generate(ctx context.Context, system, prompt string) (string, error) {
	resp, err := genkit.Generate(ctx, gg.g,
		ai.WithModelName(gg.modelName),
		ai.WithSystem(system),
		ai.WithPrompt(prompt),
		ai.WithConfig(gg.config),
	)
	if err != nil {
		return "", fmt.Errorf("model generation: %w", err)
	}

	text := resp.Text()
	gg.logger.Debug("generation completed", "model", gg.modelName, "response_len", len(text))
	return text, nil
}
