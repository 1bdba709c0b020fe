package config

import (
	"errors"
	"testing"
)

// validConfig returns a configuration that passes all validation checks.
func validConfig() *Config {
	return &Config{
		Provider:            ProviderOllama, // no API key requirement
		ModelName:           "llama3.3",
		EmbedderModel:       "nomic-embed-text",
		Temperature:         0.0,
		MaxTokens:           1024,
		KBThreshold:         0.78,
		KBTopK:              3,
		GeneratedConfidence: 0.60,
		MinFeedbackRating:   4,
		DataDir:             "data",
		PostgresHost:        "localhost",
		PostgresPort:        5432,
		PostgresUser:        "mathagent",
		PostgresPassword:    "secure_password_123",
		PostgresDBName:      "mathagent",
		PostgresSSLMode:     "disable",
	}
}

func TestValidateAccepts(t *testing.T) {
	cfg := validConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate() = %v, want nil", err)
	}
}

func TestValidateNilConfig(t *testing.T) {
	var cfg *Config
	if err := cfg.Validate(); !errors.Is(err, ErrConfigNil) {
		t.Errorf("Validate() = %v, want ErrConfigNil", err)
	}
}

func TestValidateRejections(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr error
	}{
		{
			name:    "unknown provider",
			mutate:  func(c *Config) { c.Provider = "anthropic" },
			wantErr: ErrInvalidProvider,
		},
		{
			name:    "empty model name",
			mutate:  func(c *Config) { c.ModelName = "" },
			wantErr: ErrInvalidModelName,
		},
		{
			name:    "empty embedder model",
			mutate:  func(c *Config) { c.EmbedderModel = "" },
			wantErr: ErrInvalidEmbedderModel,
		},
		{
			name:    "temperature too high",
			mutate:  func(c *Config) { c.Temperature = 2.5 },
			wantErr: ErrInvalidTemperature,
		},
		{
			name:    "negative temperature",
			mutate:  func(c *Config) { c.Temperature = -0.1 },
			wantErr: ErrInvalidTemperature,
		},
		{
			name:    "zero max tokens",
			mutate:  func(c *Config) { c.MaxTokens = 0 },
			wantErr: ErrInvalidMaxTokens,
		},
		{
			name:    "threshold above one",
			mutate:  func(c *Config) { c.KBThreshold = 1.2 },
			wantErr: ErrInvalidThreshold,
		},
		{
			name:    "negative threshold",
			mutate:  func(c *Config) { c.KBThreshold = -0.1 },
			wantErr: ErrInvalidThreshold,
		},
		{
			name:    "zero top_k",
			mutate:  func(c *Config) { c.KBTopK = 0 },
			wantErr: ErrInvalidTopK,
		},
		{
			name:    "generated confidence above one",
			mutate:  func(c *Config) { c.GeneratedConfidence = 1.5 },
			wantErr: ErrInvalidGeneratedConfidence,
		},
		{
			name:    "rating cutoff below one",
			mutate:  func(c *Config) { c.MinFeedbackRating = 0 },
			wantErr: ErrInvalidMinRating,
		},
		{
			name:    "rating cutoff above five",
			mutate:  func(c *Config) { c.MinFeedbackRating = 6 },
			wantErr: ErrInvalidMinRating,
		},
		{
			name:    "web search without key",
			mutate:  func(c *Config) { c.WebSearchEnabled = true; c.SearchAPIKey = "" },
			wantErr: ErrMissingSearchAPIKey,
		},
		{
			name:    "empty postgres host",
			mutate:  func(c *Config) { c.PostgresHost = "" },
			wantErr: ErrInvalidPostgresHost,
		},
		{
			name:    "postgres port out of range",
			mutate:  func(c *Config) { c.PostgresPort = 70000 },
			wantErr: ErrInvalidPostgresPort,
		},
		{
			name:    "empty postgres db name",
			mutate:  func(c *Config) { c.PostgresDBName = "" },
			wantErr: ErrInvalidPostgresDBName,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)
			if err := cfg.Validate(); !errors.Is(err, tt.wantErr) {
				t.Errorf("Validate() = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestGeminiRequiresAPIKey(t *testing.T) {
	t.Setenv("GEMINI_API_KEY", "")
	cfg := validConfig()
	cfg.Provider = ProviderGemini
	if err := cfg.Validate(); !errors.Is(err, ErrMissingAPIKey) {
		t.Errorf("Validate() = %v, want ErrMissingAPIKey", err)
	}

	t.Setenv("GEMINI_API_KEY", "test-key")
	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate() with API key = %v, want nil", err)
	}
}
