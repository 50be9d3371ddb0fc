package main

import (
	"os"
	"strconv"
)

// Config holds the daemon configuration from environment variables.
type Config struct {
	Port           string
	Embedder       string // "local" or "openai"
	Device         string // "cpu" or "gpu:N"
	RulesDir       string
	JournalPath    string
	EmbedCacheSize int
	LogLevel       string
	LogFormat      string
	JaegerEndpoint string
	Environment    string
}

// LoadConfig reads the configuration from the environment.
func LoadConfig() Config {
	return Config{
		Port:           getEnv("REWRITERD_PORT", "8080"),
		Embedder:       getEnv("REWRITERD_EMBEDDER", "local"),
		Device:         getEnv("REWRITERD_DEVICE", "cpu"),
		RulesDir:       getEnv("REWRITERD_RULES_DIR", ""),
		JournalPath:    getEnv("REWRITERD_JOURNAL_PATH", ""),
		EmbedCacheSize: getEnvInt("REWRITERD_EMBED_CACHE_SIZE", 1024),
		LogLevel:       getEnv("LOG_LEVEL", "info"),
		LogFormat:      getEnv("LOG_FORMAT", "json"),
		JaegerEndpoint: getEnv("JAEGER_ENDPOINT", ""),
		Environment:    getEnv("ENVIRONMENT", "development"),
	}
}

// getEnv gets an environment variable with a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvInt gets an integer environment variable with a default value
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}
