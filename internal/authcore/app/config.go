package app

import (
	"os"
	"strconv"
	"time"

	"github.com/edgekit/authcore/internal/authcore/service"
)

type Config struct {
	DatabaseFile string // Path to SQLite database file (default: ./authcore.db)

	AccessSecret  string // Required: HS256 secret for the access token family
	RefreshSecret string // Required: HS256 secret for the refresh token family
	AccessTTL     time.Duration
	RefreshTTL    time.Duration

	PBKDF2Iterations int // Password hashing work factor (default: 100000)
	PBKDF2Bits       int // Hash width, one of 256/384/512 (default: 256)

	SessionTTL       time.Duration // Session lifetime (default: 30 days)
	MaxSessions      int           // Per-user active session cap (default: 5)
	SessionRetention time.Duration // How long expired rows are kept (default: 7 days)

	MaintenanceInterval time.Duration // Sweep interval (default: 1h)
	EventBufferSize     int           // Dispatcher buffer (default: 256)

	Challenge service.ChallengeConfig

	Env                 string // Environment (dev, staging, prod) (default: dev)
	LogLevel            string // Log level (debug, info, warn, error) (default: info)
	LogFormat           string // Log format (json, text) (default: json)
	Port                int    // HTTP server port (default: 8080)
	ShutdownGracePeriod time.Duration
}

func LoadConfig() Config {
	return Config{
		DatabaseFile: getEnvOrDefault("AUTH_DATABASE_FILE", "authcore.db"),

		AccessSecret:  os.Getenv("AUTH_ACCESS_SECRET"),
		RefreshSecret: os.Getenv("AUTH_REFRESH_SECRET"),
		AccessTTL:     getEnvDurationOrDefault("AUTH_ACCESS_TTL", 15*time.Minute),
		RefreshTTL:    getEnvDurationOrDefault("AUTH_REFRESH_TTL", 7*24*time.Hour),

		PBKDF2Iterations: getEnvIntOrDefault("AUTH_PBKDF2_ITERATIONS", 100000),
		PBKDF2Bits:       getEnvIntOrDefault("AUTH_PBKDF2_BITS", 256),

		SessionTTL:       getEnvDurationOrDefault("AUTH_SESSION_TTL", 30*24*time.Hour),
		MaxSessions:      getEnvIntOrDefault("AUTH_MAX_SESSIONS", 5),
		SessionRetention: getEnvDurationOrDefault("AUTH_SESSION_RETENTION", 7*24*time.Hour),

		MaintenanceInterval: getEnvDurationOrDefault("AUTH_MAINTENANCE_INTERVAL", 1*time.Hour),
		EventBufferSize:     getEnvIntOrDefault("AUTH_EVENT_BUFFER", 256),

		Challenge: service.ChallengeConfig{
			Window:           getEnvDurationOrDefault("AUTH_CHALLENGE_WINDOW", 15*time.Minute),
			FailureThreshold: getEnvIntOrDefault("AUTH_CHALLENGE_THRESHOLD", 3),
			HighThreshold:    getEnvIntOrDefault("AUTH_CHALLENGE_HIGH_THRESHOLD", 6),
			LowDifficulty:    getEnvIntOrDefault("AUTH_CHALLENGE_LOW_DIFFICULTY", 3),
			HighDifficulty:   getEnvIntOrDefault("AUTH_CHALLENGE_HIGH_DIFFICULTY", 5),
		},

		Env:                 getEnvOrDefault("ENV", "dev"),
		LogLevel:            getEnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:           getEnvOrDefault("LOG_FORMAT", "json"),
		Port:                getEnvIntOrDefault("PORT", 8080),
		ShutdownGracePeriod: getEnvDurationOrDefault("SHUTDOWN_GRACE_PERIOD", 10*time.Second),
	}
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvIntOrDefault(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	if intValue, err := strconv.Atoi(value); err == nil {
		return intValue
	}
	return defaultValue
}

func getEnvDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	if duration, err := time.ParseDuration(value); err == nil {
		return duration
	}
	return defaultValue
}
