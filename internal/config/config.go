// Package config handles loading application configuration from environment variables.
// All settings have sensible defaults for local development.
package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all application settings loaded from environment variables.
type Config struct {
	Port                 string
	DatabasePath         string
	LibraryDir           string
	JWTSecret            string
	AdminConsolePassword string

	TwitchClientID     string
	TwitchClientSecret string
	TwitchChannelName  string
	TwitchUserID       string

	AdminTokenDuration time.Duration
	BotTokenDuration   time.Duration

	// AwardCooldownMinutes gates externally-triggered point awards
	// (chat redeems). Internal awards bypass the gate.
	AwardCooldownMinutes int
	MaxRequestsPerUser   int

	RateLimitPerMinute int
	CORSAllowedOrigins []string
	TrustedProxies     []string
}

// Load reads configuration from environment variables, using defaults where not set.
func Load() *Config {
	return &Config{
		Port:                 getEnv("PORT", "1300"),
		DatabasePath:         getEnv("DATABASE_PATH", "./mainstage.db"),
		LibraryDir:           getEnv("LIBRARY_DIR", "./data"),
		JWTSecret:            getEnv("JWT_SECRET", "change-me-in-production"), // #nosec G101 -- intentional dev default
		AdminConsolePassword: getEnv("ADMIN_CONSOLE_PASSWORD", "admin123"),   // #nosec G101 -- intentional dev default
		TwitchClientID:       getEnv("TWITCH_CLIENT_ID", ""),
		TwitchClientSecret:   getEnv("TWITCH_CLIENT_SECRET", ""),
		TwitchChannelName:    getEnv("TWITCH_CHANNEL_NAME", "the13thgeek"),
		TwitchUserID:         getEnv("TWITCH_USER_ID", "806548553"),
		AdminTokenDuration:   getDurationEnv("ADMIN_TOKEN_DURATION", 7*24*time.Hour),
		BotTokenDuration:     getDurationEnv("BOT_TOKEN_DURATION", 30*24*time.Hour),
		AwardCooldownMinutes: getIntEnv("AWARD_COOLDOWN_MINUTES", 60),
		MaxRequestsPerUser:   getIntEnv("MAX_REQUESTS_PER_USER", 3),
		RateLimitPerMinute:   getIntEnv("RATE_LIMIT_PER_MINUTE", 30),
		CORSAllowedOrigins:   []string{"http://localhost:5173", "http://localhost:3000"},
		TrustedProxies:       getStringSliceEnv("TRUSTED_PROXIES"),
	}
}

func getStringSliceEnv(key string) []string {
	value := os.Getenv(key)
	if value == "" {
		return nil
	}
	var result []string
	for _, s := range strings.Split(value, ",") {
		s = strings.TrimSpace(s)
		if s != "" {
			result = append(result, s)
		}
	}
	return result
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getDurationEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}
