// config/config.go
package config

import (
	"fmt"
	"os"
	"strconv"
)

type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Redis    RedisConfig
	Paynow   PaynowConfig
}

type ServerConfig struct {
	Port string
	Env  string
}

type DatabaseConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
	SSLMode  string
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// PaynowConfig holds the gateway integration credentials and callback URLs.
// The integration id/key are opaque secrets supplied at process start.
type PaynowConfig struct {
	IntegrationID  string
	IntegrationKey string
	ReturnURL      string
	ResultURL      string
	BaseURL        string
}

func Load() *Config {
	return &Config{
		Server: ServerConfig{
			Port: getEnv("SERVER_PORT", "8080"),
			Env:  getEnv("ENVIRONMENT", "development"),
		},
		Database: DatabaseConfig{
			// An empty host selects the in-memory store (local development).
			Host:     getEnv("DB_HOST", ""),
			Port:     getEnv("DB_PORT", "5432"),
			User:     getEnv("DB_USER", "postgres"),
			Password: getEnv("DB_PASSWORD", ""),
			DBName:   getEnv("DB_NAME", "loanpay"),
			SSLMode:  getEnv("DB_SSL_MODE", "disable"),
		},
		Redis: RedisConfig{
			// An empty addr selects the in-memory attempt counter.
			Addr:     getEnv("REDIS_ADDR", ""),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvInt("REDIS_DB", 0),
		},
		Paynow: PaynowConfig{
			IntegrationID:  getEnv("PAYNOW_INTEGRATION_ID", ""),
			IntegrationKey: getEnv("PAYNOW_INTEGRATION_KEY", ""),
			ReturnURL:      getEnv("PAYNOW_RETURN_URL", "http://localhost:3000/payment/return"),
			ResultURL:      getEnv("PAYNOW_RESULT_URL", "http://localhost:8080/api/paynow/result"),
			BaseURL:        getEnv("PAYNOW_BASE_URL", ""),
		},
	}
}

func (d DatabaseConfig) Enabled() bool {
	return d.Host != ""
}

func (d DatabaseConfig) ConnString() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%s/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.DBName, d.SSLMode,
	)
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return defaultValue
}
