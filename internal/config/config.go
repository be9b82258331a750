// Package config provides configuration for the health bot.
package config

import (
	"os"
	"strconv"
	"time"
)

// Config holds the service configuration.
type Config struct {
	// Server settings
	HTTPPort int

	// Database
	DatabaseURL string

	// Messaging channel credentials
	ChannelSecret      string
	ChannelAccessToken string
	MessagingAPIURL    string

	// Classifier settings
	ClassifierBaseURL string
	ClassifierAPIKey  string
	ClassifierModel   string
	ClassifierTimeout time.Duration

	// Media storage
	MediaDir         string
	MediaFallbackDir string
	MediaMaxDim      int

	// Dedup marker lifetime
	EventMarkerTTL time.Duration

	// Logging
	LogLevel string
}

// Load loads configuration from environment variables.
func Load() *Config {
	cfg := &Config{
		HTTPPort:           getEnvInt("HTTP_PORT", 8080),
		DatabaseURL:        getEnv("DATABASE_URL", "file:healthbot.db?cache=shared&mode=rwc"),
		ChannelSecret:      getEnv("CHANNEL_SECRET", ""),
		ChannelAccessToken: getEnv("CHANNEL_ACCESS_TOKEN", ""),
		MessagingAPIURL:    getEnv("MESSAGING_API_URL", "https://api.line.me"),
		ClassifierBaseURL:  getEnv("CLASSIFIER_BASE_URL", "https://api.openai.com/v1"),
		ClassifierAPIKey:   getEnv("CLASSIFIER_API_KEY", ""),
		ClassifierModel:    getEnv("CLASSIFIER_MODEL", "gpt-4o-mini"),
		ClassifierTimeout:  time.Duration(getEnvInt("CLASSIFIER_TIMEOUT_MS", 60000)) * time.Millisecond,
		MediaDir:           getEnv("MEDIA_DIR", "media"),
		MediaFallbackDir:   getEnv("MEDIA_FALLBACK_DIR", "media-fallback"),
		MediaMaxDim:        getEnvInt("MEDIA_MAX_DIM", 1024),
		EventMarkerTTL:     time.Duration(getEnvInt("EVENT_MARKER_TTL_MS", 300000)) * time.Millisecond,
		LogLevel:           getEnv("LOG_LEVEL", "info"),
	}
	return cfg
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	if val := os.Getenv(key); val != "" {
		if intVal, err := strconv.Atoi(val); err == nil {
			return intVal
		}
	}
	return defaultVal
}
