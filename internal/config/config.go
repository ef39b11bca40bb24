package config

import (
	"errors"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	DatabaseURL   string
	RedisURL      string
	JWTSecret     string
	ServerPort    string
	Environment   string
	JWTExpiry     time.Duration
	EventsChannel string

	// Outbox for events that could not be published
	OutboxPath          string
	OutboxRetryInterval time.Duration

	// Rate limiting
	RateLimitMaxRequests int
	RateLimitWindow      time.Duration

	CORSAllowedOrigins []string
}

func Load() *Config {
	// Try to load .env file, but don't fail if it doesn't exist
	// (Docker containers use environment variables directly)
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment")
	}

	cfg := &Config{
		DatabaseURL:   os.Getenv("DATABASE_URL"),
		RedisURL:      getEnv("REDIS_URL", "redis://localhost:6379/0"),
		JWTSecret:     os.Getenv("JWT_SECRET"),
		ServerPort:    getEnv("SERVER_PORT", ":8080"),
		Environment:   getEnv("ENVIRONMENT", "development"),
		JWTExpiry:     getEnvAsDuration("JWT_EXPIRY", "24h"),
		EventsChannel: getEnv("EVENTS_CHANNEL", "lify:events"),

		OutboxPath:          getEnv("OUTBOX_PATH", "data/outbox.log"),
		OutboxRetryInterval: getEnvAsDuration("OUTBOX_RETRY_INTERVAL", "30s"),

		RateLimitMaxRequests: getEnvAsInt("RATE_LIMIT_MAX_REQUESTS", 100),
		RateLimitWindow:      getEnvAsDuration("RATE_LIMIT_WINDOW", "1m"),

		CORSAllowedOrigins: getEnvAsList("CORS_ALLOWED_ORIGINS", "*"),
	}

	return cfg
}

// Validate reports settings the server cannot start without
func (c *Config) Validate() error {
	if c.DatabaseURL == "" {
		return errors.New("DATABASE_URL is required")
	}
	if c.JWTSecret == "" {
		return errors.New("JWT_SECRET is required")
	}
	return nil
}

func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

// getEnvAsInt retrieves environment variable as int with default value
func getEnvAsInt(key string, defaultVal int) int {
	valStr := os.Getenv(key)
	if valStr == "" {
		return defaultVal
	}
	val, err := strconv.Atoi(valStr)
	if err != nil {
		log.Printf("Invalid %s value, using default: %d", key, defaultVal)
		return defaultVal
	}
	return val
}

// getEnvAsDuration retrieves environment variable as duration with default value
func getEnvAsDuration(key string, defaultVal string) time.Duration {
	valStr := os.Getenv(key)
	if valStr == "" {
		valStr = defaultVal
	}
	duration, err := time.ParseDuration(valStr)
	if err != nil {
		log.Printf("Invalid %s value, using default: %s", key, defaultVal)
		duration, _ = time.ParseDuration(defaultVal)
	}
	return duration
}

func getEnvAsList(key string, defaultVal string) []string {
	raw := getEnv(key, defaultVal)
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
