package config

import (
	"errors"
	"os"
	"testing"
	"time"
)

// validBaseConfig returns a Config with all required fields set for the given provider.
func validBaseConfig(provider string) *Config {
	cfg := &Config{
		Provider:           provider,
		ModelName:          "gemini-2.5-flash",
		EmbedderModel:      "gemini-embedding-001",
		EmbeddingDimension: 1536,
		TopK:               5,
		ScoreThreshold:     0.5,
		ChunkSize:          1000,
		ChunkOverlap:       200,
		ContentDir:         "./content",
		TranslationTTL:     14 * 24 * time.Hour,
		PostgresHost:       "localhost",
		PostgresPort:       5432,
		PostgresUser:       "lectern",
		PostgresPassword:   "test_password",
		PostgresDBName:     "lectern",
		PostgresSSLMode:    "disable",
	}
	switch provider {
	case ProviderOllama:
		cfg.ModelName = "llama3.3"
		cfg.OllamaHost = "http://localhost:11434"
	case ProviderOpenAI:
		cfg.ModelName = "gpt-4o-mini"
		cfg.EmbedderModel = "text-embedding-3-small"
	}
	return cfg
}

// setEnvForProvider sets the required API key for the given provider and
// registers cleanup.
func setEnvForProvider(t *testing.T, provider string) {
	t.Helper()
	switch provider {
	case "", ProviderGemini:
		t.Setenv("GEMINI_API_KEY", "test-api-key")
	case ProviderOpenAI:
		t.Setenv("OPENAI_API_KEY", "test-openai-key")
	}
}

func TestValidateSuccess(t *testing.T) {
	providers := []string{"", ProviderGemini, ProviderOllama, ProviderOpenAI}

	for _, provider := range providers {
		name := provider
		if name == "" {
			name = "default"
		}
		t.Run(name, func(t *testing.T) {
			setEnvForProvider(t, provider)

			cfg := validBaseConfig(provider)
			if err := cfg.Validate(); err != nil {
				t.Errorf("Validate() unexpected error with valid config (provider %q): %v", provider, err)
			}
		})
	}
}

func TestValidateInvalidProvider(t *testing.T) {
	cfg := validBaseConfig(ProviderGemini)
	cfg.Provider = "unsupported"

	err := cfg.Validate()
	if !errors.Is(err, ErrInvalidProvider) {
		t.Errorf("Validate() = %v, want ErrInvalidProvider", err)
	}
}

func TestValidateMissingAPIKey(t *testing.T) {
	if os.Getenv("GEMINI_API_KEY") != "" {
		t.Setenv("GEMINI_API_KEY", "")
	}

	cfg := validBaseConfig(ProviderGemini)
	err := cfg.Validate()
	if !errors.Is(err, ErrMissingAPIKey) {
		t.Errorf("Validate() = %v, want ErrMissingAPIKey", err)
	}
}

func TestValidateChunking(t *testing.T) {
	setEnvForProvider(t, ProviderGemini)

	tests := []struct {
		name    string
		size    int
		overlap int
		wantErr bool
	}{
		{"valid", 1000, 200, false},
		{"zero overlap", 1000, 0, false},
		{"overlap equals size", 1000, 1000, true},
		{"overlap exceeds size", 500, 800, true},
		{"negative overlap", 1000, -1, true},
		{"zero size", 0, 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validBaseConfig(ProviderGemini)
			cfg.ChunkSize = tt.size
			cfg.ChunkOverlap = tt.overlap

			err := cfg.Validate()
			if tt.wantErr && !errors.Is(err, ErrInvalidChunking) {
				t.Errorf("Validate() = %v, want ErrInvalidChunking", err)
			}
			if !tt.wantErr && err != nil {
				t.Errorf("Validate() unexpected error: %v", err)
			}
		})
	}
}

func TestValidateRetrievalKnobs(t *testing.T) {
	setEnvForProvider(t, ProviderGemini)

	cfg := validBaseConfig(ProviderGemini)
	cfg.TopK = 0
	if err := cfg.Validate(); !errors.Is(err, ErrInvalidRetrieval) {
		t.Errorf("TopK=0: Validate() = %v, want ErrInvalidRetrieval", err)
	}

	cfg = validBaseConfig(ProviderGemini)
	cfg.ScoreThreshold = 1.5
	if err := cfg.Validate(); !errors.Is(err, ErrInvalidRetrieval) {
		t.Errorf("ScoreThreshold=1.5: Validate() = %v, want ErrInvalidRetrieval", err)
	}
}

func TestValidatePostgres(t *testing.T) {
	setEnvForProvider(t, ProviderGemini)

	cfg := validBaseConfig(ProviderGemini)
	cfg.PostgresPort = 0
	if err := cfg.Validate(); !errors.Is(err, ErrInvalidPostgres) {
		t.Errorf("port=0: Validate() = %v, want ErrInvalidPostgres", err)
	}

	cfg = validBaseConfig(ProviderGemini)
	cfg.PostgresSSLMode = "prefer"
	if err := cfg.Validate(); !errors.Is(err, ErrInvalidPostgres) {
		t.Errorf("sslmode=prefer: Validate() = %v, want ErrInvalidPostgres", err)
	}

	cfg = validBaseConfig(ProviderGemini)
	cfg.PostgresPassword = ""
	if err := cfg.Validate(); !errors.Is(err, ErrInvalidPostgres) {
		t.Errorf("empty password: Validate() = %v, want ErrInvalidPostgres", err)
	}
}

func TestValidateTranslationTTL(t *testing.T) {
	setEnvForProvider(t, ProviderGemini)

	cfg := validBaseConfig(ProviderGemini)
	cfg.TranslationTTL = 0
	if err := cfg.Validate(); !errors.Is(err, ErrInvalidTTL) {
		t.Errorf("ttl=0: Validate() = %v, want ErrInvalidTTL", err)
	}
}
