package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds the configuration for the application.
type Config struct {
	Port         string
	LogLevel     string
	DatabasePath string
	APIBaseURL   string

	JWTSecret    string
	TokenTTL     time.Duration
	LLMProvider  string
	GeminiAPIKey string
	GroqAPIKey   string

	ScrapeTimeout time.Duration

	// Telegram Config
	TelegramBotToken       string
	TelegramWebhookURL     string
	TelegramAllowedUserIDs []int64
	AdminTelegramID        int64
	SessionTTL             time.Duration
}

// NewFromEnv creates a new Config object from environment variables.
func NewFromEnv() (*Config, error) {
	jwtSecret := os.Getenv("JWT_SECRET")
	if jwtSecret == "" {
		return nil, fmt.Errorf("JWT_SECRET environment variable not set")
	}

	geminiAPIKey := os.Getenv("GEMINI_API_KEY")
	groqAPIKey := os.Getenv("GROQ_API_KEY")
	if geminiAPIKey == "" && groqAPIKey == "" {
		return nil, fmt.Errorf("GROQ_API_KEY or GEMINI_API_KEY environment variable not set")
	}

	provider := strings.ToLower(getEnv("LLM_PROVIDER", ""))
	switch provider {
	case "":
		provider = "groq"
		if groqAPIKey == "" {
			provider = "gemini"
		}
	case "groq", "gemini":
	default:
		return nil, fmt.Errorf("LLM_PROVIDER must be groq or gemini, got %q", provider)
	}

	port := getEnv("PORT", "8080")
	if p, err := strconv.Atoi(port); err != nil || p < 1 || p > 65535 {
		return nil, fmt.Errorf("invalid PORT number %q", port)
	}

	// Telegram Config (Optional for the API server, required for the bot)
	allowed, err := parseIDList(os.Getenv("TELEGRAM_ALLOWED_USER_IDS"))
	if err != nil {
		return nil, fmt.Errorf("invalid TELEGRAM_ALLOWED_USER_IDS: %w", err)
	}
	var adminID int64
	if s := os.Getenv("ADMIN_TELEGRAM_ID"); s != "" {
		adminID, err = strconv.ParseInt(s, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid ADMIN_TELEGRAM_ID: %w", err)
		}
	}

	return &Config{
		Port:                   port,
		LogLevel:               getEnv("LOG_LEVEL", "info"),
		DatabasePath:           getEnv("DATABASE_PATH", "data/petfoodverifai.db"),
		APIBaseURL:             getEnv("API_BASE_URL", "http://localhost:"+port),
		JWTSecret:              jwtSecret,
		TokenTTL:               time.Duration(getEnvAsInt("TOKEN_TTL_MINUTES", 60)) * time.Minute,
		LLMProvider:            provider,
		GeminiAPIKey:           geminiAPIKey,
		GroqAPIKey:             groqAPIKey,
		ScrapeTimeout:          time.Duration(getEnvAsInt("SCRAPE_TIMEOUT_SECONDS", 15)) * time.Second,
		TelegramBotToken:       os.Getenv("TELEGRAM_BOT_TOKEN"),
		TelegramWebhookURL:     os.Getenv("TELEGRAM_WEBHOOK_URL"),
		TelegramAllowedUserIDs: allowed,
		AdminTelegramID:        adminID,
		SessionTTL:             time.Duration(getEnvAsInt("SESSION_TTL_MINUTES", 30)) * time.Minute,
	}, nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	v, err := strconv.Atoi(os.Getenv(key))
	if err != nil || v <= 0 {
		return fallback
	}
	return v
}

func parseIDList(s string) ([]int64, error) {
	var ids []int64
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		id, err := strconv.ParseInt(part, 10, 64)
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, nil
}
