package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config holds application configuration
type Config struct {
	Port     string
	DBConn   string
	LogLevel string

	JWTSecret  string
	AccessTTL  time.Duration
	RefreshTTL time.Duration

	VaultAddr       string
	VaultToken      string
	VaultSecretPath string

	CardExpirationYears int

	IPStackURL string
	IPStackKey string

	SMTPHost     string
	SMTPPort     string
	SMTPUsername string
	SMTPPassword string
	SenderEmail  string
}

// NewConfig loads configuration from environment variables
func NewConfig() (*Config, error) {
	cfg := &Config{
		Port:     getEnv("PORT", "8080"),
		DBConn:   getEnv("DB_CONN", "host=localhost port=5432 user=test password=test dbname=bank sslmode=disable"),
		LogLevel: getEnv("LOG_LEVEL", "INFO"),

		JWTSecret:  getEnv("JWT_SECRET", ""),
		AccessTTL:  getEnvDuration("JWT_ACCESS_TTL", 15*time.Minute),
		RefreshTTL: getEnvDuration("JWT_REFRESH_TTL", 7*24*time.Hour),

		VaultAddr:       getEnv("VAULT_ADDR", "http://localhost:8200"),
		VaultToken:      getEnv("VAULT_TOKEN", ""),
		VaultSecretPath: getEnv("VAULT_SECRET_PATH", "secret/data/bank/encryption"),

		CardExpirationYears: getEnvInt("CARD_EXPIRATION_YEARS", 3),

		IPStackURL: getEnv("IPSTACK_URL", "http://api.ipstack.com"),
		IPStackKey: getEnv("IPSTACK_ACCESS_KEY", ""),

		SMTPHost:     getEnv("SMTP_HOST", "localhost"),
		SMTPPort:     getEnv("SMTP_PORT", "25"),
		SMTPUsername: getEnv("SMTP_USERNAME", ""),
		SMTPPassword: getEnv("SMTP_PASSWORD", ""),
		SenderEmail:  getEnv("SENDER_EMAIL", "noreply@bank.local"),
	}

	if cfg.DBConn == "" {
		return nil, fmt.Errorf("DB_CONN is required")
	}
	if cfg.JWTSecret == "" {
		return nil, fmt.Errorf("JWT_SECRET is required")
	}
	if cfg.VaultToken == "" {
		return nil, fmt.Errorf("VAULT_TOKEN is required")
	}

	return cfg, nil
}

func getEnv(key, defaultVal string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	if value, exists := os.LookupEnv(key); exists {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return defaultVal
}

func getEnvDuration(key string, defaultVal time.Duration) time.Duration {
	if value, exists := os.LookupEnv(key); exists {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultVal
}
