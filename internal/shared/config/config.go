package config

import (
	"log"
	"os"
	"strconv"
	"strings"
)

// Config holds application configuration.
type Config struct {
	Port                string
	CORSAllowOrigin     []string
	LLMProvider         string
	LLMModel            string
	LLMTimeoutSeconds   int
	DefaultCurrency     string
	BatchRetentionHours int
	UploadDir           string
	DatabaseURL         string
	Env                 string
}

// Load reads configuration from environment variables with sensible defaults.
func Load() Config {
	// Best-effort load of local env files for dev convenience.
	loadEnvFiles(".env", "cmd/.env")

	env := normalizeEnv(getEnv("ENV", "dev"))
	dbURL := os.Getenv("DATABASE_URL")

	if env == "production" && dbURL == "" {
		log.Printf("DATABASE_URL is empty; batch job history will not survive restarts")
	}

	return Config{
		Port:                getEnv("PORT", "8080"),
		CORSAllowOrigin:     splitAndTrim(getEnv("CORS_ALLOW_ORIGINS", "http://localhost:5173")),
		LLMProvider:         normalizeProvider(getEnv("LLM_PROVIDER", "")),
		LLMModel:            getEnv("LLM_MODEL", ""),
		LLMTimeoutSeconds:   getEnvInt("LLM_TIMEOUT_SECONDS", 60),
		DefaultCurrency:     strings.ToUpper(getEnv("DEFAULT_CURRENCY", "USD")),
		BatchRetentionHours: getEnvInt("BATCH_RETENTION_HOURS", 24),
		UploadDir:           getEnv("UPLOAD_DIR", "data/uploads"),
		DatabaseURL:         dbURL,
		Env:                 env,
	}
}

func getEnv(key, def string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return def
}

func getEnvInt(key string, def int) int {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def
	}
	parsed, err := strconv.Atoi(raw)
	if err != nil || parsed < 0 {
		return def
	}
	return parsed
}

func splitAndTrim(raw string) []string {
	parts := strings.Split(raw, ",")
	var out []string
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func normalizeEnv(raw string) string {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "production", "prod":
		return "production"
	case "staging":
		return "staging"
	case "local":
		return "local"
	default:
		return "dev"
	}
}

func normalizeProvider(raw string) string {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "openai":
		return "openai"
	case "gemini", "google":
		return "gemini"
	default:
		return ""
	}
}
