// Package config holds environment parsing for the CLI and the process
// runtime.
package config

import (
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Settings is everything the process runtime reads from the environment.
type Settings struct {
	Provider     string
	GeminiAPIKey string
	AnthropicKey string
	Model        string
	StateDB      string
	ArtifactDir  string
	PromptDir    string
	RedisAddr    string
	RedisDB      int
	OTelEnabled  bool
}

// Load reads an optional .env file, then the process environment. A
// missing .env file is not an error.
func Load() Settings {
	_ = godotenv.Load()
	return Settings{
		Provider:     GetEnv("PRODFLOW_PROVIDER", "gemini"),
		GeminiAPIKey: strings.TrimSpace(os.Getenv("GEMINI_API_KEY")),
		AnthropicKey: strings.TrimSpace(os.Getenv("ANTHROPIC_API_KEY")),
		Model:        strings.TrimSpace(os.Getenv("PRODFLOW_MODEL")),
		StateDB:      GetEnv("PRODFLOW_STATE_DB", "prodflow.db"),
		ArtifactDir:  GetEnv("PRODFLOW_ARTIFACT_DIR", "artifacts"),
		PromptDir:    strings.TrimSpace(os.Getenv("PRODFLOW_PROMPT_DIR")),
		RedisAddr:    strings.TrimSpace(os.Getenv("PRODFLOW_REDIS_ADDR")),
		RedisDB:      ParseIntEnv("PRODFLOW_REDIS_DB", 0),
		OTelEnabled:  ParseBoolString(os.Getenv("PRODFLOW_OTEL"), false),
	}
}

func GetEnv(key, fallback string) string {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback
	}
	return raw
}

func ParseIntEnv(key string, fallback int) int {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return value
}

func ParseBoolString(raw string, fallback bool) bool {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "1", "true", "yes", "on":
		return true
	case "0", "false", "no", "off":
		return false
	default:
		return fallback
	}
}
