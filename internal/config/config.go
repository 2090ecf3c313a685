package config

import (
	"fmt"
	"log/slog"
	"os"
	"strings"
)

// Config is the process configuration, loaded once at startup from the
// environment.
type Config struct {
	Port        string
	Environment string
	LogLevel    slog.Level

	RedisURL string

	// StoryPath is the story definition the api serves.
	StoryPath string
	// LoreDir holds the YAML lore modules the worker may update.
	LoreDir string

	// LLMProvider selects the generation backend: "gemini",
	// "anthropic", "venice", or "mock".
	LLMProvider string
	LLMModel    string
	APIKey      string

	// GenerateScenes disables generation entirely when false; the
	// engine then serves only hand-authored scenes.
	GenerateScenes bool
}

// Load reads configuration from the environment. A missing provider
// credential is a startup error: refusing to boot beats failing deep
// inside the first generation call.
func Load() (*Config, error) {
	cfg := &Config{
		Port:           getEnv("PORT", "8080"),
		Environment:    getEnv("ENVIRONMENT", "development"),
		LogLevel:       parseLogLevel(getEnv("LOG_LEVEL", "info")),
		RedisURL:       getEnv("REDIS_URL", "redis://localhost:6379"),
		StoryPath:      getEnv("STORY_PATH", "data/story.yaml"),
		LoreDir:        getEnv("LORE_DIR", "data/lore"),
		LLMProvider:    strings.ToLower(getEnv("LLM_PROVIDER", "gemini")),
		LLMModel:       getEnv("LLM_MODEL", ""),
		APIKey:         os.Getenv("LLM_API_KEY"),
		GenerateScenes: getEnv("GENERATE_SCENES", "true") != "false",
	}

	switch cfg.LLMProvider {
	case "gemini", "anthropic", "venice":
		if cfg.APIKey == "" {
			return nil, fmt.Errorf("LLM_API_KEY is required for provider %s", cfg.LLMProvider)
		}
	case "mock":
	default:
		return nil, fmt.Errorf("unknown LLM_PROVIDER %q", cfg.LLMProvider)
	}

	return cfg, nil
}

func parseLogLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
