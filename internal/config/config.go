// Package config provides application configuration.
package config

import (
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/joho/godotenv"
)

// Config holds the configuration for both bridge services.
type Config struct {
	// Issuer (trading-API service) settings
	IssuerPort string
	IssuerHost string

	// SecretKey signs the issuer's session tokens.
	SecretKey string

	// SessionTimeout is the sliding session lifetime on the issuer.
	SessionTimeout time.Duration

	// Web backend settings
	WebPort string
	WebHost string

	// MT5APIURL is the issuer base URL the web backend talks to.
	MT5APIURL string

	// DBPath is the sqlite database for the web backend's session mirror.
	DBPath string

	// EncryptionSecret seals mirrored tokens at rest.
	EncryptionSecret string

	// DemoMode runs the issuer against the simulated terminal.
	DemoMode bool
}

// Load reads .env (if present) and builds a Config from the environment.
func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, relying on environment variables")
	}
	return New()
}

// New creates a new Config with values from environment variables or defaults.
func New() *Config {
	return &Config{
		IssuerPort:       getEnv("ISSUER_PORT", "5001"),
		IssuerHost:       getEnv("ISSUER_HOST", "0.0.0.0"),
		SecretKey:        getEnv("SECRET_KEY", "change-me-in-production-please"),
		SessionTimeout:   30 * time.Minute,
		WebPort:          getEnv("PORT", "8080"),
		WebHost:          getEnv("HOST", "localhost"),
		MT5APIURL:        getEnv("MT5_API_URL", "http://mt5:5001"),
		DBPath:           getEnv("DB_PATH", filepath.Join("data", "bridge.db")),
		EncryptionSecret: getEnv("ENCRYPTION_SECRET", "change-me-in-production-32chars!"),
		DemoMode:         getEnv("DEMO_MODE", "true") == "true",
	}
}

// IssuerAddress returns the address the issuer binds to.
func (c *Config) IssuerAddress() string {
	return c.IssuerHost + ":" + c.IssuerPort
}

// WebAddress returns the address the web backend binds to.
func (c *Config) WebAddress() string {
	return c.WebHost + ":" + c.WebPort
}

// getEnv returns the value of an environment variable or a default value.
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
