package config

import (
	"os"
	"strconv"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"
)

// Store backends
const (
	StorePostgres = "postgres"
	StoreRedis    = "redis"
	StoreMemory   = "memory"
)

type Config struct {
	Port        string
	Environment string
	CORSOrigins string
	// Storage
	StoreBackend string
	DatabaseURL  string
	TablePrefix  string
	RedisURL     string
	// LLM Configuration
	DefaultProvider string
	DefaultModel    string
	AnthropicAPIKey string
	OpenAIAPIKey    string
	OpenAIBaseURL   string
	MaxSteps        int
	ProviderRPS     float64
	ProviderBurst   int
	// Tools
	WeatherBaseURL string
	// Auth (empty JWKS URL disables bearer auth)
	AuthJWKSURL string
	// Logging
	LogDir      string
	LogMaxFiles int
}

func Load() *Config {
	env := getEnv("ENVIRONMENT", "dev")

	return &Config{
		Port:            getEnv("PORT", "8080"),
		Environment:     env,
		CORSOrigins:     getEnv("CORS_ORIGINS", "http://localhost:3000"),
		StoreBackend:    strings.ToLower(getEnv("STORE_BACKEND", StorePostgres)),
		DatabaseURL:     getEnv("DATABASE_URL", ""),
		TablePrefix:     getTablePrefix(env),
		RedisURL:        getEnv("REDIS_URL", "redis://localhost:6379/0"),
		DefaultProvider: getEnv("DEFAULT_PROVIDER", "anthropic"),
		DefaultModel:    getEnv("DEFAULT_MODEL", "claude-haiku-4-5-20251001"),
		AnthropicAPIKey: getEnv("ANTHROPIC_API_KEY", ""),
		OpenAIAPIKey:    getEnv("OPENAI_API_KEY", ""),
		OpenAIBaseURL:   getEnv("OPENAI_BASE_URL", ""),
		MaxSteps:        getEnvInt("MAX_STEPS", DefaultMaxSteps),
		ProviderRPS:     getEnvFloat("PROVIDER_RPS", 0),
		ProviderBurst:   getEnvInt("PROVIDER_BURST", 1),
		WeatherBaseURL:  getEnv("WEATHER_BASE_URL", "https://api.open-meteo.com"),
		AuthJWKSURL:     getEnv("AUTH_JWKS_URL", ""),
		LogDir:          getEnv("LOG_DIR", ""),
		LogMaxFiles:     getEnvInt("LOG_MAX_FILES", DefaultLogMaxFiles),
	}
}

// Validate checks that the loaded configuration is usable
func (c *Config) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Port, validation.Required, is.Port),
		validation.Field(&c.StoreBackend, validation.Required,
			validation.In(StorePostgres, StoreRedis, StoreMemory)),
		validation.Field(&c.DatabaseURL,
			validation.When(c.StoreBackend == StorePostgres, validation.Required)),
		validation.Field(&c.RedisURL,
			validation.When(c.StoreBackend == StoreRedis, validation.Required)),
		validation.Field(&c.DefaultProvider, validation.Required,
			validation.In("anthropic", "openai", "lorem")),
		validation.Field(&c.DefaultModel, validation.Required),
		validation.Field(&c.AnthropicAPIKey,
			validation.When(c.ActiveProvider() == "anthropic", validation.Required)),
		validation.Field(&c.OpenAIAPIKey,
			validation.When(c.ActiveProvider() == "openai", validation.Required)),
		validation.Field(&c.MaxSteps, validation.Required, validation.Min(1), validation.Max(MaxStepsLimit)),
		validation.Field(&c.ProviderRPS, validation.Min(0.0)),
		validation.Field(&c.ProviderBurst, validation.Min(1)),
		validation.Field(&c.WeatherBaseURL, validation.Required, is.URL),
		validation.Field(&c.AuthJWKSURL, is.URL),
		validation.Field(&c.LogMaxFiles, validation.Min(1)),
	)
}

// ActiveProvider is the provider the server will call. A "provider/model"
// DEFAULT_MODEL takes precedence over DEFAULT_PROVIDER.
func (c *Config) ActiveProvider() string {
	if provider, _, ok := strings.Cut(c.DefaultModel, "/"); ok && provider != "" {
		return provider
	}
	return c.DefaultProvider
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

func getEnvInt(key string, defaultValue int) int {
	v, err := strconv.Atoi(os.Getenv(key))
	if err != nil {
		return defaultValue
	}
	return v
}

func getEnvFloat(key string, defaultValue float64) float64 {
	v, err := strconv.ParseFloat(os.Getenv(key), 64)
	if err != nil {
		return defaultValue
	}
	return v
}
