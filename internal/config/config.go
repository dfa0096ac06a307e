package config

import (
	"os"
	"strings"
	"time"
)

type Config struct {
	Port        string
	Environment string
	DatabaseURL string // Empty runs the server on the in-memory store
	CORSOrigins string
	TablePrefix string
	// Auth
	JWTSecret string
	JWKSURL   string // Takes precedence over JWTSecret when set
	// Generation
	LLMProvider        string
	LLMModel           string
	AnthropicAPIKey    string
	RedisURL           string // Empty disables the generation cache
	GenerationCacheTTL time.Duration
	// Search (empty MeiliURL searches by scanning posts)
	MeiliURL    string
	MeiliAPIKey string
	MeiliIndex  string
	// Published post archive (empty S3Endpoint disables archiving)
	S3Endpoint  string
	S3AccessKey string
	S3SecretKey string
	S3Bucket    string
	S3UseSSL    bool
	// Editor client
	AutosaveDelay time.Duration
	APIURL        string
	APIToken      string
	// Debug flags
	Debug bool
}

func Load() *Config {
	env := getEnv("ENVIRONMENT", "dev")
	anthropicKey := getEnv("ANTHROPIC_API_KEY", "")
	provider := getEnv("LLM_PROVIDER", getDefaultProvider(anthropicKey))

	return &Config{
		Port:        getEnv("PORT", "8000"),
		Environment: env,
		DatabaseURL: getEnv("DATABASE_URL", ""),
		CORSOrigins: getEnv("CORS_ORIGINS", "http://localhost:5173"),
		TablePrefix: getTablePrefix(env),
		JWTSecret:   getEnv("JWT_SECRET", ""),
		JWKSURL:     getEnv("JWKS_URL", ""),
		// Generation
		LLMProvider:        provider,
		LLMModel:           getEnv("LLM_MODEL", getDefaultModel(provider)),
		AnthropicAPIKey:    anthropicKey,
		RedisURL:           getEnv("REDIS_URL", ""),
		GenerationCacheTTL: getDuration("GENERATION_CACHE_TTL", 24*time.Hour),
		// Search
		MeiliURL:    getEnv("MEILI_URL", ""),
		MeiliAPIKey: getEnv("MEILI_API_KEY", ""),
		MeiliIndex:  getEnv("MEILI_INDEX", getTablePrefix(env)+"posts"),
		// Archive
		S3Endpoint:  getEnv("S3_ENDPOINT", ""),
		S3AccessKey: getEnv("S3_ACCESS_KEY", ""),
		S3SecretKey: getEnv("S3_SECRET_KEY", ""),
		S3Bucket:    getEnv("S3_BUCKET", "inkwell-published"),
		S3UseSSL:    getEnv("S3_USE_SSL", "true") == "true",
		// Editor client
		AutosaveDelay: getDuration("AUTOSAVE_DELAY", DefaultAutosaveDelayMs*time.Millisecond),
		APIURL:        strings.TrimRight(getEnv("INKWELL_API_URL", "http://127.0.0.1:8000"), "/"),
		APIToken:      getEnv("INKWELL_TOKEN", ""),
		// Debug flags - default to true in dev/test, false in production
		Debug: getEnv("DEBUG", getDefaultDebug(env)) == "true",
	}
}

// CORSOriginList splits CORSOrigins on commas.
func (c *Config) CORSOriginList() []string {
	var origins []string
	for _, o := range strings.Split(c.CORSOrigins, ",") {
		if o = strings.TrimSpace(o); o != "" {
			origins = append(origins, o)
		}
	}
	return origins
}

// getDefaultProvider picks anthropic when a key is configured, lorem otherwise
func getDefaultProvider(anthropicKey string) string {
	if anthropicKey != "" {
		return "anthropic"
	}
	return "lorem"
}

// getDefaultModel returns the model used when LLM_MODEL is unset
func getDefaultModel(provider string) string {
	if provider == "lorem" {
		return "lorem-fast"
	}
	return "claude-haiku-4-5-20251001"
}

// getDefaultDebug returns the default debug setting based on environment
func getDefaultDebug(env string) string {
	if env == "prod" {
		return "false"
	}
	return "true"
}

// getTablePrefix returns the table prefix based on environment
func getTablePrefix(env string) string {
	// Allow manual override via TABLE_PREFIX env var
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

// getDuration parses a Go duration ("2s", "24h"); invalid values fall back
func getDuration(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	d, err := time.ParseDuration(value)
	if err != nil || d <= 0 {
		return defaultValue
	}
	return d
}
