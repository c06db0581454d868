package config

import (
	"errors"
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	DatabaseURL      string
	DBMaxConnections int
	DBAutoMigrate    bool
	RedisURL         string

	LogLevel    string
	Debug       bool
	ServiceName string
	Environment string
	Hostname    string
	Port        string

	AllowedOrigins []string

	// Platform-wide provider secret used when a tenant has none.
	DefaultOpenAIKey  string
	OpenRouterReferer string
	OpenRouterTitle   string
	GeminiAPIKeys     []string
	ProviderTimeout   time.Duration

	EmbeddingProvider string
	EmbeddingAPIKey   string

	KnowledgeChunkLimit int
}

func LoadConfig() (*Config, error) {
	databaseURL := os.Getenv("DATABASE_URL")
	if databaseURL == "" {
		return nil, errors.New("DATABASE_URL is required")
	}

	defaultKey := strings.TrimSpace(os.Getenv("DEFAULT_OPENAI_KEY"))

	embeddingProvider := strings.ToLower(getEnvOrDefault("EMBEDDING_PROVIDER", "openai"))
	if embeddingProvider != "openai" && embeddingProvider != "gemini" {
		return nil, errors.New("EMBEDDING_PROVIDER must be openai or gemini")
	}

	return &Config{
		DatabaseURL:      databaseURL,
		DBMaxConnections: getEnvInt("DB_MAX_CONNECTIONS", 20),
		DBAutoMigrate:    getEnvBool("DB_AUTO_MIGRATE", true),
		RedisURL:         os.Getenv("REDIS_URL"),

		LogLevel:    getEnvOrDefault("LOG_LEVEL", "info"),
		Debug:       getEnvBool("DEBUG", false),
		ServiceName: getEnvOrDefault("SERVICE_NAME", "widget-engine"),
		Environment: getEnvOrDefault("ENVIRONMENT", "development"),
		Hostname:    getEnvOrDefault("HOSTNAME", "widget-engine"),
		Port:        getEnvOrDefault("PORT", "8080"),

		AllowedOrigins: getEnvList("ALLOWED_ORIGINS", []string{"*"}),

		DefaultOpenAIKey:  defaultKey,
		OpenRouterReferer: getEnvOrDefault("OPENROUTER_REFERER", "http://localhost:8080"),
		OpenRouterTitle:   getEnvOrDefault("OPENROUTER_TITLE", "Widget Assistant"),
		GeminiAPIKeys:     getEnvList("GEMINI_API_KEYS", nil),
		ProviderTimeout:   getEnvDuration("PROVIDER_TIMEOUT", 30*time.Second),

		EmbeddingProvider: embeddingProvider,
		EmbeddingAPIKey:   getEnvOrDefault("EMBEDDING_API_KEY", defaultKey),

		KnowledgeChunkLimit: getEnvInt("KNOWLEDGE_CHUNK_LIMIT", 300),
	}, nil
}

// IsProduction reports whether the service runs with production settings.
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

func getEnvOrDefault(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if parsed, err := strconv.Atoi(strings.TrimSpace(v)); err == nil {
			return parsed
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if parsed, err := strconv.ParseBool(strings.TrimSpace(v)); err == nil {
			return parsed
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if parsed, err := time.ParseDuration(strings.TrimSpace(v)); err == nil && parsed > 0 {
			return parsed
		}
	}
	return fallback
}

// getEnvList splits a comma-separated variable, dropping blanks.
func getEnvList(key string, fallback []string) []string {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback
	}
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	if len(out) == 0 {
		return fallback
	}
	return out
}
