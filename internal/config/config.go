package config

import (
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

type Config struct {
	// Environment
	Environment string
	LogLevel    string

	// Database
	DatabaseURL    string
	MigrateOnStart bool

	// Redis
	RedisURL string

	// Server
	Port        string
	FrontendURL string

	// Game Settings
	TickRateHz            int
	SaveTimeoutSecs       int
	SessionTTLMinutes     int
	IdleUnloadSeconds     int
	IdleWorkerPollSeconds int

	// Security
	JWTSecret      string
	SeatTokenHours int
}

func Load() *Config {
	// Load .env file if it exists
	godotenv.Load()

	return &Config{
		// Environment
		Environment: getEnv("APP_ENV", "development"),
		LogLevel:    getEnv("LOG_LEVEL", "info"),

		// Database
		DatabaseURL:    getEnv("DATABASE_URL", "postgres://localhost:5432/carrom?sslmode=disable"),
		MigrateOnStart: getEnvBool("MIGRATE_ON_START", false),

		// Redis
		RedisURL: getEnv("REDIS_URL", "redis://localhost:6379/0"),

		// Server
		Port:        getEnv("APP_PORT", "8080"),
		FrontendURL: getEnv("FRONTEND_URL", "http://localhost:5173"),

		// Game Settings
		TickRateHz:            getEnvInt("TICK_RATE_HZ", 60),
		SaveTimeoutSecs:       getEnvInt("SAVE_TIMEOUT_SECONDS", 5),
		SessionTTLMinutes:     getEnvInt("SESSION_TTL_MINUTES", 60),
		IdleUnloadSeconds:     getEnvInt("IDLE_UNLOAD_SECONDS", 900),
		IdleWorkerPollSeconds: getEnvInt("IDLE_WORKER_POLL_SECONDS", 30),

		// Security
		JWTSecret:      getEnv("JWT_SECRET", "change-me-in-production"),
		SeatTokenHours: getEnvInt("SEAT_TOKEN_HOURS", 24),
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}
