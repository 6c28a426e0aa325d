// Package config reads server configuration from environment variables.
package config

import (
	"os"
	"strconv"
	"time"
)

type Config struct {
	// Server
	Port            string
	CORSOrigin      string
	ShutdownTimeout time.Duration

	// Mongo
	MongoURI      string
	MongoDatabase string

	// Redis (optional; empty disables the Redis cache)
	RedisAddr string

	// JWT
	JWTSecret            string
	AccessTokenDuration  time.Duration
	RefreshTokenDuration time.Duration

	// Messaging
	MessagePageSize   int
	UserSearchLimit   int
	SearchCacheTTL    time.Duration
	MaxMessageContent int

	// Logging
	LogLevel string
	DevMode  bool
}

// Load reads configuration from the environment. Call after godotenv
// has populated it.
func Load() *Config {
	return &Config{
		Port:            getEnv("PORT", "8080"),
		CORSOrigin:      getEnv("CORS_ORIGIN", "http://localhost:3000"),
		ShutdownTimeout: getDurationEnv("SHUTDOWN_TIMEOUT", 10*time.Second),

		MongoURI:      getEnv("MONGODB_URI", "mongodb://localhost:27017"),
		MongoDatabase: getEnv("MONGODB_DATABASE", "pairtalk"),

		RedisAddr: getEnv("REDIS_ADDR", ""),

		JWTSecret:            getEnv("JWT_SECRET", ""),
		AccessTokenDuration:  getDurationEnv("ACCESS_TOKEN_DURATION", 15*time.Minute),
		RefreshTokenDuration: getDurationEnv("REFRESH_TOKEN_DURATION", 30*24*time.Hour),

		MessagePageSize:   getIntEnv("MESSAGE_PAGE_SIZE", 50),
		UserSearchLimit:   getIntEnv("USER_SEARCH_LIMIT", 20),
		SearchCacheTTL:    getDurationEnv("SEARCH_CACHE_TTL", 30*time.Second),
		MaxMessageContent: getIntEnv("MAX_MESSAGE_CONTENT", 5000),

		LogLevel: getEnv("LOG_LEVEL", "info"),
		DevMode:  getBoolEnv("DEV_MODE", false),
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getBoolEnv(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func getDurationEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
