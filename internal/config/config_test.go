package config

import (
	"testing"
	"time"
)

func TestNewFromEnv(t *testing.T) {
	t.Run("Success", func(t *testing.T) {
		t.Setenv("PORT", "")
		t.Setenv("LLM_PROVIDER", "")
		t.Setenv("JWT_SECRET", "secret")
		t.Setenv("GROQ_API_KEY", "groq_key")
		t.Setenv("GEMINI_API_KEY", "")
		t.Setenv("TELEGRAM_ALLOWED_USER_IDS", "12, 34")
		t.Setenv("SCRAPE_TIMEOUT_SECONDS", "5")

		cfg, err := NewFromEnv()
		if err != nil {
			t.Fatalf("Expected no error, got %v", err)
		}
		if cfg.JWTSecret != "secret" {
			t.Errorf("Expected JWTSecret to be 'secret', got '%s'", cfg.JWTSecret)
		}
		if cfg.LLMProvider != "groq" {
			t.Errorf("Expected LLMProvider to be 'groq', got '%s'", cfg.LLMProvider)
		}
		if cfg.Port != "8080" {
			t.Errorf("Expected default Port '8080', got '%s'", cfg.Port)
		}
		if cfg.ScrapeTimeout != 5*time.Second {
			t.Errorf("Expected ScrapeTimeout 5s, got %v", cfg.ScrapeTimeout)
		}
		if len(cfg.TelegramAllowedUserIDs) != 2 || cfg.TelegramAllowedUserIDs[1] != 34 {
			t.Errorf("Expected allowed IDs [12 34], got %v", cfg.TelegramAllowedUserIDs)
		}
	})

	t.Run("GeminiFallback", func(t *testing.T) {
		t.Setenv("LLM_PROVIDER", "")
		t.Setenv("JWT_SECRET", "secret")
		t.Setenv("GROQ_API_KEY", "")
		t.Setenv("GEMINI_API_KEY", "gemini_key")

		cfg, err := NewFromEnv()
		if err != nil {
			t.Fatalf("Expected no error, got %v", err)
		}
		if cfg.LLMProvider != "gemini" {
			t.Errorf("Expected LLMProvider to be 'gemini', got '%s'", cfg.LLMProvider)
		}
	})

	t.Run("MissingJWTSecret", func(t *testing.T) {
		t.Setenv("JWT_SECRET", "")
		t.Setenv("GROQ_API_KEY", "groq_key")

		_, err := NewFromEnv()
		if err == nil {
			t.Fatal("Expected an error for missing JWT_SECRET, got nil")
		}
		expectedError := "JWT_SECRET environment variable not set"
		if err.Error() != expectedError {
			t.Errorf("Expected error '%s', got '%s'", expectedError, err.Error())
		}
	})

	t.Run("MissingLLMKeys", func(t *testing.T) {
		t.Setenv("JWT_SECRET", "secret")
		t.Setenv("GROQ_API_KEY", "")
		t.Setenv("GEMINI_API_KEY", "")

		_, err := NewFromEnv()
		if err == nil {
			t.Fatal("Expected an error for missing LLM keys, got nil")
		}
	})

	t.Run("InvalidPort", func(t *testing.T) {
		t.Setenv("JWT_SECRET", "secret")
		t.Setenv("GROQ_API_KEY", "groq_key")
		t.Setenv("PORT", "99999")

		if _, err := NewFromEnv(); err == nil {
			t.Fatal("Expected an error for invalid PORT, got nil")
		}
	})

	t.Run("UnknownProvider", func(t *testing.T) {
		t.Setenv("JWT_SECRET", "secret")
		t.Setenv("GROQ_API_KEY", "groq_key")
		t.Setenv("LLM_PROVIDER", "openai")

		if _, err := NewFromEnv(); err == nil {
			t.Fatal("Expected an error for unknown LLM_PROVIDER, got nil")
		}
	})
}
