package config

import (
	"fmt"
	"log/slog"
	"os"
	"slices"
)

// validProviders lists the supported AI providers.
var validProviders = []string{ProviderGemini, ProviderOllama, ProviderOpenAI}

// Validate validates configuration values.
// Returns sentinel errors that can be checked with errors.Is().
func (c *Config) Validate() error {
	if c == nil {
		return ErrConfigNil
	}

	// Provider and API key validation
	if !slices.Contains(validProviders, c.Provider) {
		return fmt.Errorf("%w: %q (must be one of: gemini, ollama, openai)", ErrInvalidProvider, c.Provider)
	}
	if c.Provider == ProviderGemini && os.Getenv("GEMINI_API_KEY") == "" {
		return fmt.Errorf("%w: GEMINI_API_KEY environment variable is required for the gemini provider",
			ErrMissingAPIKey)
	}

	// Model configuration validation
	if c.ModelName == "" {
		return fmt.Errorf("%w: model_name cannot be empty", ErrInvalidModelName)
	}
	if c.EmbedderModel == "" {
		return fmt.Errorf("%w: embedder_model cannot be empty", ErrInvalidEmbedderModel)
	}

	// Temperature range per the Gemini API: 0.0 (deterministic) to 2.0.
	if c.Temperature < 0.0 || c.Temperature > 2.0 {
		return fmt.Errorf("%w: must be between 0.0 and 2.0, got %.2f", ErrInvalidTemperature, c.Temperature)
	}
	if c.MaxTokens < 1 || c.MaxTokens > 2097152 {
		return fmt.Errorf("%w: must be between 1 and 2,097,152, got %d", ErrInvalidMaxTokens, c.MaxTokens)
	}

	// Routing configuration validation
	if c.KBThreshold < 0.0 || c.KBThreshold > 1.0 {
		return fmt.Errorf("%w: must be between 0.0 and 1.0, got %.3f", ErrInvalidThreshold, c.KBThreshold)
	}
	if c.KBTopK < 1 || c.KBTopK > 50 {
		return fmt.Errorf("%w: must be between 1 and 50, got %d", ErrInvalidTopK, c.KBTopK)
	}
	if c.GeneratedConfidence < 0.0 || c.GeneratedConfidence > 1.0 {
		return fmt.Errorf("%w: must be between 0.0 and 1.0, got %.3f",
			ErrInvalidGeneratedConfidence, c.GeneratedConfidence)
	}
	if c.GeneratedConfidence >= c.KBThreshold {
		slog.Warn("generated_confidence is at or above kb_threshold; generated answers will not signal weaker provenance",
			"generated_confidence", c.GeneratedConfidence,
			"kb_threshold", c.KBThreshold)
	}

	// Retraining configuration validation
	if c.MinFeedbackRating < 1 || c.MinFeedbackRating > 5 {
		return fmt.Errorf("%w: must be between 1 and 5, got %d", ErrInvalidMinRating, c.MinFeedbackRating)
	}

	// Web search validation
	if c.WebSearchEnabled && c.SearchAPIKey == "" {
		return fmt.Errorf("%w: SERPER_API_KEY is required when web_search_enabled is true",
			ErrMissingSearchAPIKey)
	}

	// PostgreSQL configuration validation
	if c.PostgresHost == "" {
		return fmt.Errorf("%w: host cannot be empty", ErrInvalidPostgresHost)
	}
	if c.PostgresPort < 1 || c.PostgresPort > 65535 {
		return fmt.Errorf("%w: must be between 1 and 65535, got %d", ErrInvalidPostgresPort, c.PostgresPort)
	}
	if c.PostgresDBName == "" {
		return fmt.Errorf("%w: database name cannot be empty", ErrInvalidPostgresDBName)
	}
	if c.PostgresPassword == "mathagent_dev_password" {
		slog.Warn("using default development password for PostgreSQL",
			"hint", "change postgres_password in config.yaml for production deployments")
	}

	return nil
}
