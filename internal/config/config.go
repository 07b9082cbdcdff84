package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	// Server
	Port string
	Env  string

	// Database
	DatabaseURL   string
	MigrationsDir string
	DBMaxConns    int

	// Redis
	RedisURL string

	// JWT
	JWTSecret       string
	AccessTokenTTL  time.Duration
	RefreshTokenTTL time.Duration

	// Lifecycle views
	Timezone        string
	TickInterval    time.Duration
	FocusInterval   time.Duration
	ReloadInterval  time.Duration
	ViewIdleTimeout time.Duration

	// Write-behind pool
	WriteWorkers   int
	WriteQueueSize int
	WriteTimeout   time.Duration

	// Auth rate limit
	AuthRateLimit  int
	AuthRateWindow time.Duration

	// Frontend
	FrontendURL string
}

func Load() *Config {
	// Load .env file if it exists
	godotenv.Load()

	cfg := &Config{
		Port:            getEnvOrDefault("PORT", "8080"),
		Env:             getEnvOrDefault("ENV", "development"),
		DatabaseURL:     mustGetEnv("DATABASE_URL"),
		MigrationsDir:   getEnvOrDefault("MIGRATIONS_DIR", "migrations"),
		DBMaxConns:      getEnvAsIntOrDefault("DB_MAX_CONNS", 0),
		RedisURL:        mustGetEnv("REDIS_URL"),
		JWTSecret:       mustGetEnv("JWT_SECRET"),
		AccessTokenTTL:  getEnvAsDurationOrDefault("ACCESS_TOKEN_TTL", 15*time.Minute),
		RefreshTokenTTL: getEnvAsDurationOrDefault("REFRESH_TOKEN_TTL", 7*24*time.Hour),
		Timezone:        getEnvOrDefault("TIMEZONE", "Local"),
		TickInterval:    getEnvAsDurationOrDefault("LIFECYCLE_TICK_INTERVAL", time.Second),
		FocusInterval:   getEnvAsDurationOrDefault("LIFECYCLE_FOCUS_INTERVAL", 100*time.Millisecond),
		ReloadInterval:  getEnvAsDurationOrDefault("LIFECYCLE_RELOAD_INTERVAL", 30*time.Second),
		ViewIdleTimeout: getEnvAsDurationOrDefault("VIEW_IDLE_TIMEOUT", 15*time.Minute),
		WriteWorkers:    getEnvAsIntOrDefault("WRITE_WORKERS", 4),
		WriteQueueSize:  getEnvAsIntOrDefault("WRITE_QUEUE_SIZE", 256),
		WriteTimeout:    getEnvAsDurationOrDefault("WRITE_TIMEOUT", 10*time.Second),
		AuthRateLimit:   getEnvAsIntOrDefault("AUTH_RATE_LIMIT", 10),
		AuthRateWindow:  getEnvAsDurationOrDefault("AUTH_RATE_WINDOW", time.Minute),
		FrontendURL:     getEnvOrDefault("FRONTEND_URL", "http://localhost:5173"),
	}

	return cfg
}

// Location resolves Timezone. An unknown zone falls back to the server's
// local time.
func (c *Config) Location() *time.Location {
	if c.Timezone == "" || c.Timezone == "Local" {
		return time.Local
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.Local
	}
	return loc
}

func mustGetEnv(key string) string {
	val := os.Getenv(key)
	if val == "" {
		panic(fmt.Sprintf("required environment variable %s is not set", key))
	}
	return val
}

func getEnvOrDefault(key, defaultVal string) string {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	return val
}

func getEnvAsIntOrDefault(key string, defaultVal int) int {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	n, err := strconv.Atoi(val)
	if err != nil {
		return defaultVal
	}
	return n
}

// getEnvAsDurationOrDefault reads a Go duration string from key, or a whole
// number of seconds from key_SECONDS.
func getEnvAsDurationOrDefault(key string, defaultVal time.Duration) time.Duration {
	if val := os.Getenv(key); val != "" {
		if d, err := time.ParseDuration(val); err == nil && d > 0 {
			return d
		}
	}
	if val := os.Getenv(key + "_SECONDS"); val != "" {
		if seconds, err := strconv.Atoi(val); err == nil && seconds > 0 {
			return time.Duration(seconds) * time.Second
		}
	}
	return defaultVal
}
