package config

import (
	"encoding/json"
	"strings"
	"testing"
)

func TestPostgresConnectionString(t *testing.T) {
	cfg := validConfig()
	dsn := cfg.PostgresConnectionString()

	for _, want := range []string{"host=localhost", "port=5432", "user=mathagent", "dbname=mathagent", "sslmode=disable"} {
		if !strings.Contains(dsn, want) {
			t.Errorf("DSN missing %q: %s", want, dsn)
		}
	}
}

func TestPostgresConnectionStringQuotesPassword(t *testing.T) {
	cfg := validConfig()
	cfg.PostgresPassword = "pass with spaces"
	dsn := cfg.PostgresConnectionString()
	if !strings.Contains(dsn, "password='pass with spaces'") {
		t.Errorf("password not quoted in DSN: %s", dsn)
	}
}

func TestPostgresURL(t *testing.T) {
	cfg := validConfig()
	u := cfg.PostgresURL()
	if !strings.HasPrefix(u, "postgres://") {
		t.Errorf("URL should use postgres scheme: %s", u)
	}
	if !strings.Contains(u, "sslmode=disable") {
		t.Errorf("URL missing sslmode: %s", u)
	}
}

func TestFullModelName(t *testing.T) {
	tests := []struct {
		provider string
		model    string
		want     string
	}{
		{ProviderGemini, "gemini-2.5-flash", "googleai/gemini-2.5-flash"},
		{ProviderOllama, "llama3.3", "ollama/llama3.3"},
		{ProviderOpenAI, "gpt-4o", "openai/gpt-4o"},
		{ProviderGemini, "googleai/gemini-2.5-flash", "googleai/gemini-2.5-flash"}, // already qualified
	}
	for _, tt := range tests {
		cfg := &Config{Provider: tt.provider, ModelName: tt.model}
		if got := cfg.FullModelName(); got != tt.want {
			t.Errorf("FullModelName(%s, %s) = %q, want %q", tt.provider, tt.model, got, tt.want)
		}
	}
}

func TestMarshalJSONMasksSecrets(t *testing.T) {
	cfg := validConfig()
	cfg.PostgresPassword = "super_secret_password"
	cfg.SearchAPIKey = "serper_api_key_value"

	data, err := json.Marshal(cfg)
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}

	s := string(data)
	if strings.Contains(s, "super_secret_password") {
		t.Error("postgres password leaked in JSON output")
	}
	if strings.Contains(s, "serper_api_key_value") {
		t.Error("search API key leaked in JSON output")
	}
	if !strings.Contains(s, maskedValue) {
		t.Error("expected masked placeholder in JSON output")
	}
}

func TestStringMasksSecrets(t *testing.T) {
	cfg := validConfig()
	cfg.PostgresPassword = "another_secret_value"
	if strings.Contains(cfg.String(), "another_secret_value") {
		t.Error("String() leaked postgres password")
	}
}

func TestMaskSecret(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"", ""},
		{"short", maskedValue},
		{"12345678", maskedValue},
		{"my_long_secret_key", "my<" + maskedValue + ">ey"},
	}
	for _, tt := range tests {
		if got := maskSecret(tt.in); got != tt.want {
			t.Errorf("maskSecret(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
