package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
)

// Config holds all configuration for the application.
type Config struct {
	Port     string
	Env      string
	RedisURL string
	LogLevel zerolog.Level

	// Realtime
	AllowedOrigins []string      // editor origins allowed for CORS and websockets
	RoomIdleTTL    time.Duration // how long an empty room stays loaded
	HistoryLimit   int           // changes kept per document for rebasing
	SendBuffer     int           // outbound frames queued per connection

	// Rate limiting
	RateLimitWhitelist []string // IPs or CIDRs exempt from rate limiting
	AutoBlockEnabled   bool     // Enable auto-blocking after repeated violations
	JoinsPerMinute     int      // join-document frames allowed per socket
}

// Load reads configuration from environment variables.
// In development, it loads from .env file if present.
// In production, it panics on missing required variables.
func Load() *Config {
	// Load .env file if it exists (for development)
	_ = godotenv.Load()

	cfg := &Config{
		Port:               getEnv("PORT", "3001"),
		Env:                getEnv("ENV", "development"),
		RedisURL:           os.Getenv("REDIS_URL"),
		LogLevel:           getLevel("LOG_LEVEL", zerolog.InfoLevel),
		AllowedOrigins:     getList("ALLOWED_ORIGINS", []string{"http://localhost:5173"}),
		RoomIdleTTL:        getDuration("ROOM_IDLE_TTL", 10*time.Minute),
		HistoryLimit:       getInt("HISTORY_LIMIT", 500),
		SendBuffer:         getInt("SEND_BUFFER", 256),
		RateLimitWhitelist: getList("RATE_LIMIT_WHITELIST", nil),
		AutoBlockEnabled:   getEnv("AUTO_BLOCK_ENABLED", "false") == "true",
		JoinsPerMinute:     getInt("JOINS_PER_MINUTE", 20),
	}

	// In production, require redis for rate limiting
	if cfg.Env == "production" {
		if cfg.RedisURL == "" {
			panic("REDIS_URL is required in production")
		}
	}

	return cfg
}

// IsDevelopment returns true if running in development mode.
func (c *Config) IsDevelopment() bool {
	return c.Env == "development"
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getList parses a comma-separated variable, skipping empty entries.
func getList(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	var out []string
	for _, entry := range strings.Split(value, ",") {
		entry = strings.TrimSpace(entry)
		if entry != "" {
			out = append(out, entry)
		}
	}
	return out
}

func getInt(key string, defaultValue int) int {
	n, err := strconv.Atoi(os.Getenv(key))
	if err != nil || n < 0 {
		return defaultValue
	}
	return n
}

func getDuration(key string, defaultValue time.Duration) time.Duration {
	d, err := time.ParseDuration(os.Getenv(key))
	if err != nil || d < 0 {
		return defaultValue
	}
	return d
}

func getLevel(key string, defaultValue zerolog.Level) zerolog.Level {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	level, err := zerolog.ParseLevel(strings.ToLower(value))
	if err != nil {
		return defaultValue
	}
	return level
}
