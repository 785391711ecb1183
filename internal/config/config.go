package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config stores all configuration of the application, read from
// environment variables (a .env file is loaded in main for local runs).
type Config struct {
	// Server
	Port       string
	CORSOrigin string

	// Database
	DatabaseURL string

	// Sessions
	JWTSecret  string
	SessionTTL time.Duration

	// Google OAuth
	GoogleClientID     string
	GoogleClientSecret string
	GoogleRedirectURL  string

	// Email
	SMTPHost     string
	SMTPPort     int
	SMTPUsername string
	SMTPPassword string
	MailFrom     string
	MailTimeout  time.Duration

	// Emails granted the admin flag at first sign-in.
	AdminEmails []string

	// Logging
	LogLevel string
	LogDev   bool
}

// Load reads configuration from the environment with local-friendly
// defaults.
func Load() *Config {
	return &Config{
		Port:       getEnv("PORT", "8080"),
		CORSOrigin: getEnv("CORS_ORIGIN", "*"),

		DatabaseURL: getEnv("DATABASE_URL", "sqlite://birchside.db"),

		JWTSecret:  getEnv("JWT_SECRET", "birchside-secret-change-in-production"),
		SessionTTL: getEnvAsDuration("SESSION_TTL", 7*24*time.Hour),

		GoogleClientID:     getEnv("GOOGLE_CLIENT_ID", ""),
		GoogleClientSecret: getEnv("GOOGLE_CLIENT_SECRET", ""),
		GoogleRedirectURL:  getEnv("GOOGLE_REDIRECT_URL", "http://localhost:8080/auth/google/callback"),

		SMTPHost:     getEnv("SMTP_HOST", "localhost"),
		SMTPPort:     getEnvAsInt("SMTP_PORT", 587),
		SMTPUsername: getEnv("SMTP_USERNAME", ""),
		SMTPPassword: getEnv("SMTP_PASSWORD", ""),
		MailFrom:     getEnv("MAIL_FROM", "hello@birchside.org"),
		MailTimeout:  getEnvAsDuration("MAIL_TIMEOUT", 10*time.Second),

		AdminEmails: splitList(getEnv("ADMIN_EMAILS", "")),

		LogLevel: getEnv("LOG_LEVEL", ""),
		LogDev:   getEnv("LOG_DEV", "") == "1",
	}
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value, err := strconv.Atoi(getEnv(key, "")); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value, err := time.ParseDuration(getEnv(key, "")); err == nil {
		return value
	}
	return defaultValue
}
