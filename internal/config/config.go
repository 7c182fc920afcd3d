package config

import (
	"os"
	"strconv"
	"time"
)

type Config struct {
	Port            string
	Environment     string
	SupabaseURL     string
	SupabaseKey     string // Service role key, used by cmd/seed only
	SupabaseDBURL   string
	SupabaseJWKSURL string // Constructed from SupabaseURL + /auth/v1/.well-known/jwks.json
	CORSOrigins     string
	TablePrefix     string
	PublicBaseURL   string // Share links are PublicBaseURL + /shared/<token>
	LogDir          string // Empty disables file logging
	// Transcription
	TranscriptionURL    string
	TranscriptionAPIKey string
	// Refinement LLM
	AnthropicAPIKey string
	RefineProvider  string
	RefineModel     string
	// Editor sessions
	SessionTTL time.Duration
	// Dictation rate limit, requests per minute per user
	DictationRPM int
	Debug        bool
}

func Load() *Config {
	env := getEnv("ENVIRONMENT", "dev")
	supabaseURL := getEnv("SUPABASE_URL", "")

	return &Config{
		Port:                getEnv("PORT", "8080"),
		Environment:         env,
		SupabaseURL:         supabaseURL,
		SupabaseKey:         getEnv("SUPABASE_KEY", ""),
		SupabaseDBURL:       getEnv("SUPABASE_DB_URL", ""),
		SupabaseJWKSURL:     supabaseURL + "/auth/v1/.well-known/jwks.json",
		CORSOrigins:         getEnv("CORS_ORIGINS", "http://localhost:3000"),
		TablePrefix:         getTablePrefix(env),
		PublicBaseURL:       getEnv("PUBLIC_BASE_URL", "http://localhost:3000"),
		LogDir:              getEnv("LOG_DIR", ""),
		TranscriptionURL:    getEnv("TRANSCRIPTION_URL", "https://api.assemblyai.com"),
		TranscriptionAPIKey: getEnv("TRANSCRIPTION_API_KEY", ""),
		AnthropicAPIKey:     getEnv("ANTHROPIC_API_KEY", ""),
		RefineProvider:      getEnv("REFINE_PROVIDER", "anthropic"),
		RefineModel:         getEnv("REFINE_MODEL", ""),
		SessionTTL:          getDuration("SESSION_TTL", DefaultSessionTTL),
		DictationRPM:        getInt("DICTATION_RPM", DefaultDictationRPM),
		Debug:               getEnv("DEBUG", getDefaultDebug(env)) == "true",
	}
}

// getDefaultDebug returns the default debug setting based on environment
func getDefaultDebug(env string) string {
	if env == "prod" {
		return "false"
	}
	return "true"
}

// getTablePrefix returns the table prefix based on environment.
// TABLE_PREFIX overrides it.
func getTablePrefix(env string) string {
	if prefix := os.Getenv("TABLE_PREFIX"); prefix != "" {
		return prefix
	}

	switch env {
	case "prod":
		return "prod_"
	case "test":
		return "test_"
	default:
		return "dev_"
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getInt(key string, defaultValue int) int {
	if n, err := strconv.Atoi(os.Getenv(key)); err == nil && n > 0 {
		return n
	}
	return defaultValue
}

func getDuration(key string, defaultValue time.Duration) time.Duration {
	if d, err := time.ParseDuration(os.Getenv(key)); err == nil && d > 0 {
		return d
	}
	return defaultValue
}
