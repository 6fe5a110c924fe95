package config

import (
	"os"
	"strconv"
	"time"
)

// Config holds application configuration
type Config struct {
	Port          string
	Env           string
	LogLevel      string
	DatabaseURL   string
	RedisAddr     string
	RedisPassword string
	RedisTLS      bool

	// Practice timezone used when interpreting availability rules and
	// exception dates.
	PracticeTimezone string

	// Slot generation defaults.
	DefaultSlotMinutes int
	MaxRangeDays       int

	// Eligibility clearinghouse integration.
	EligibilityBaseURL  string
	EligibilityAPIKey   string
	EligibilityTimeout  time.Duration
	EligibilityProvider string
	EligibilityNPI      string

	// Circuit breaker tuning for external integrations.
	BreakerFailureThreshold int
	BreakerWindow           time.Duration
	BreakerOpenTimeout      time.Duration

	// Per-IP API rate limiting.
	RateLimitPerSecond int
	RateLimitBurst     int

	// CORSAllowedOrigins for the booking UI.
	CORSAllowedOrigins string
}

// Load reads configuration from environment variables
func Load() *Config {
	return &Config{
		Port:          getEnv("PORT", "8080"),
		Env:           getEnv("ENV", "development"),
		LogLevel:      getEnv("LOG_LEVEL", "info"),
		DatabaseURL:   getEnv("DATABASE_URL", ""),
		RedisAddr:     getEnv("REDIS_ADDR", "redis:6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisTLS:      getEnvAsBool("REDIS_TLS", false),

		PracticeTimezone: getEnv("PRACTICE_TZ", "America/Chicago"),

		DefaultSlotMinutes: getEnvAsInt("DEFAULT_SLOT_MINUTES", 60),
		MaxRangeDays:       getEnvAsInt("MAX_RANGE_DAYS", 31),

		EligibilityBaseURL:  getEnv("ELIGIBILITY_BASE_URL", ""),
		EligibilityAPIKey:   getEnv("ELIGIBILITY_API_KEY", ""),
		EligibilityTimeout:  getEnvAsDuration("ELIGIBILITY_TIMEOUT", 15*time.Second),
		EligibilityProvider: getEnv("ELIGIBILITY_PROVIDER_NAME", ""),
		EligibilityNPI:      getEnv("ELIGIBILITY_PROVIDER_NPI", ""),

		BreakerFailureThreshold: getEnvAsInt("BREAKER_FAILURE_THRESHOLD", 5),
		BreakerWindow:           getEnvAsDuration("BREAKER_WINDOW", time.Minute),
		BreakerOpenTimeout:      getEnvAsDuration("BREAKER_OPEN_TIMEOUT", 30*time.Second),

		RateLimitPerSecond: getEnvAsInt("RATE_LIMIT_PER_SECOND", 10),
		RateLimitBurst:     getEnvAsInt("RATE_LIMIT_BURST", 20),

		CORSAllowedOrigins: getEnv("CORS_ALLOWED_ORIGINS", ""),
	}
}

// getEnv retrieves an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAsInt retrieves an environment variable as an integer or returns a default value
func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}

// getEnvAsBool retrieves an environment variable as a boolean or returns a default value
func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseBool(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}
	if value, err := time.ParseDuration(valueStr); err == nil {
		return value
	}
	return defaultValue
}
