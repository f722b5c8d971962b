// internal/config/config.go
//
// Process configuration read from the environment.
// main loads a .env file (godotenv) before calling Load, so values may come
// from either place. Every variable has a development default.
//
//   PORT                  HTTP listen port (5175)
//   LOG_LEVEL             zerolog level (info)
//   LOG_FORMAT            json | console (json)
//   CLIENT_ORIGIN         CORS origin (http://localhost:5173)
//   JWT_SECRET            session token HMAC key (dev_secret_change_me)
//   SESSION_TOKEN_HOURS   session token lifetime (24)
//   STORE                 memory | sqlite (memory)
//   DB_PATH               SQLite file (./data/flipcards.db)
//   SESSION_IDLE_MINUTES  idle time before a live session is evicted (30)

package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

const (
	StoreMemory = "memory"
	StoreSQLite = "sqlite"

	defaultSecret = "dev_secret_change_me"
)

// Config holds the server settings.
type Config struct {
	Port         string
	LogLevel     string
	LogFormat    string
	ClientOrigin string
	JWTSecret    string
	TokenTTL     time.Duration
	Store        string
	DBPath       string
	IdleTimeout  time.Duration
}

// Load reads the configuration from the environment.
func Load() (Config, error) {
	tokenHours, err := envInt("SESSION_TOKEN_HOURS", 24)
	if err != nil {
		return Config{}, err
	}
	idleMinutes, err := envInt("SESSION_IDLE_MINUTES", 30)
	if err != nil {
		return Config{}, err
	}

	c := Config{
		Port:         getEnv("PORT", "5175"),
		LogLevel:     getEnv("LOG_LEVEL", "info"),
		LogFormat:    getEnv("LOG_FORMAT", "json"),
		ClientOrigin: getEnv("CLIENT_ORIGIN", "http://localhost:5173"),
		JWTSecret:    getEnv("JWT_SECRET", defaultSecret),
		TokenTTL:     time.Duration(tokenHours) * time.Hour,
		Store:        getEnv("STORE", StoreMemory),
		DBPath:       getEnv("DB_PATH", "./data/flipcards.db"),
		IdleTimeout:  time.Duration(idleMinutes) * time.Minute,
	}
	return c, c.Validate()
}

// Validate reports the first invalid setting.
func (c Config) Validate() error {
	if c.Store != StoreMemory && c.Store != StoreSQLite {
		return fmt.Errorf("config: STORE must be %q or %q, got %q", StoreMemory, StoreSQLite, c.Store)
	}
	if c.LogFormat != "json" && c.LogFormat != "console" {
		return fmt.Errorf("config: LOG_FORMAT must be json or console, got %q", c.LogFormat)
	}
	if c.TokenTTL <= 0 {
		return fmt.Errorf("config: SESSION_TOKEN_HOURS must be positive")
	}
	if c.Port == "" {
		return fmt.Errorf("config: PORT is empty")
	}
	return nil
}

// DefaultSecret reports whether the development JWT secret is in use.
func (c Config) DefaultSecret() bool { return c.JWTSecret == defaultSecret }

// getEnv returns the value of k or def if unset/empty.
func getEnv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func envInt(k string, def int) (int, error) {
	v := os.Getenv(k)
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("config: %s: %w", k, err)
	}
	return n, nil
}
