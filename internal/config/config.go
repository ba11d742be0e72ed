// Package config reads server settings from the environment (and a .env file
// in development).
package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds every environment-driven setting.
type Config struct {
	Port                    string
	LogLevel                string
	DatabaseURL             string
	FirebaseCredentialsFile string
	JWTSecret               string
	JWTExpiry               time.Duration
	CookieName              string
	ClientOrigin            string
	Production              bool
	MismatchDelay           time.Duration
}

// Load reads .env (if present) and then the process environment.
func Load() Config {
	_ = godotenv.Load()
	return Config{
		Port:                    Get("PORT", "5175"),
		LogLevel:                Get("LOG_LEVEL", "info"),
		DatabaseURL:             Get("DATABASE_URL", "memory://"),
		FirebaseCredentialsFile: Get("FIREBASE_CREDENTIALS_FILE", ""),
		JWTSecret:               Get("JWT_SECRET", "dev_secret_change_me"),
		JWTExpiry:               time.Duration(Int("JWT_EXPIRES_DAYS", 14)) * 24 * time.Hour,
		CookieName:              Get("COOKIE_NAME", "memory_token"),
		ClientOrigin:            Get("CLIENT_ORIGIN", "http://localhost:5173"),
		Production:              os.Getenv("NODE_ENV") == "production",
		MismatchDelay:           time.Duration(Int("MISMATCH_DELAY_MS", 1000)) * time.Millisecond,
	}
}

// Get returns the value of k or def if unset/empty.
func Get(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

// Int parses k as an integer, falling back to def.
func Int(k string, def int) int {
	if v := os.Getenv(k); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}
