package main

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"log"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

type Config struct {
	Port        string
	Environment string
	LogLevel    string

	SessionSecret []byte
	CookieMaxAge  int

	DatabasePath string

	// When RedisAddr is set, role sessions are kept in Redis so every
	// storefront instance sees the same records; otherwise sqlite.
	RedisAddr     string
	RedisPassword string

	AuthBaseURL   string
	AuthAPIKey    string
	AuthJWTSecret string

	GoogleClientID     string
	GoogleClientSecret string
	GoogleRedirectURL  string
}

func LoadConfig() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using system environment variables")
	}

	config := &Config{}

	sessionSecret := os.Getenv("SESSION_SECRET")
	if sessionSecret == "" {
		return nil, fmt.Errorf("SESSION_SECRET environment variable is required")
	}
	if len(sessionSecret) < 32 {
		return nil, fmt.Errorf("SESSION_SECRET must be at least 32 characters long")
	}
	config.SessionSecret = []byte(sessionSecret)

	config.AuthBaseURL = os.Getenv("AUTH_BASE_URL")
	if config.AuthBaseURL == "" {
		return nil, fmt.Errorf("AUTH_BASE_URL environment variable is required")
	}

	config.AuthJWTSecret = os.Getenv("AUTH_JWT_SECRET")
	if config.AuthJWTSecret == "" {
		return nil, fmt.Errorf("AUTH_JWT_SECRET environment variable is required")
	}

	config.AuthAPIKey = os.Getenv("AUTH_API_KEY")

	config.GoogleClientID = os.Getenv("GOOGLE_CLIENT_ID")
	config.GoogleClientSecret = os.Getenv("GOOGLE_CLIENT_SECRET")
	config.GoogleRedirectURL = getEnvWithDefault("GOOGLE_REDIRECT_URL", "http://localhost:8080/auth/callback")

	config.Port = getEnvWithDefault("PORT", "8080")
	config.DatabasePath = getEnvWithDefault("DATABASE_PATH", "./esygrab.db")
	config.RedisAddr = os.Getenv("REDIS_ADDR")
	config.RedisPassword = os.Getenv("REDIS_PASSWORD")
	config.LogLevel = getEnvWithDefault("LOG_LEVEL", "INFO")
	config.Environment = getEnvWithDefault("ENVIRONMENT", "development")

	maxAge, err := strconv.Atoi(getEnvWithDefault("COOKIE_MAX_AGE", "86400"))
	if err != nil {
		return nil, fmt.Errorf("invalid COOKIE_MAX_AGE: %v", err)
	}
	config.CookieMaxAge = maxAge

	return config, nil
}

func getEnvWithDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func GenerateSecureToken(length int) (string, error) {
	bytes := make([]byte, length)
	if _, err := rand.Read(bytes); err != nil {
		return "", err
	}
	return hex.EncodeToString(bytes), nil
}

func GenerateCSRFToken() (string, error) {
	return GenerateSecureToken(32)
}
