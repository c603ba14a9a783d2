package config

import (
	"os"
	"strconv"
	"time"
)

// Config holds all configuration for the application.
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Redis    RedisConfig
	Ledger   LedgerConfig
	Korapay  KorapayConfig
	NewRelic NewRelicConfig
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Port         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// DatabaseConfig holds PostgreSQL configuration.
type DatabaseConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
	SSLMode  string
}

// RedisConfig holds Redis configuration.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// LedgerConfig holds blockchain connection and signing configuration.
// The private key belongs to the operator wallet that submits settlement
// transactions; read-only processes leave it empty.
type LedgerConfig struct {
	RPCURL           string
	PrivateKey       string
	ChainID          int64
	TicketContract   string
	PassContract     string
	PaymentsContract string
	ConfirmDepth     uint64
	ConfirmTimeout   time.Duration
}

// KorapayConfig holds the identity-verification provider configuration.
type KorapayConfig struct {
	BaseURL   string
	SecretKey string
	Timeout   time.Duration
}

// NewRelicConfig holds New Relic configuration.
type NewRelicConfig struct {
	AppName    string
	LicenseKey string
	Enabled    bool
}

// Load loads configuration from environment variables.
func Load() *Config {
	return &Config{
		Server: ServerConfig{
			Port:         getEnv("SERVER_PORT", "8080"),
			ReadTimeout:  getDurationEnv("SERVER_READ_TIMEOUT", 10*time.Second),
			WriteTimeout: getDurationEnv("SERVER_WRITE_TIMEOUT", 120*time.Second),
		},
		Database: DatabaseConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnv("DB_PORT", "5432"),
			User:     getEnv("DB_USER", "postgres"),
			Password: getEnv("DB_PASSWORD", "postgres"),
			DBName:   getEnv("DB_NAME", "railpay"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", "localhost:6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getIntEnv("REDIS_DB", 0),
		},
		Ledger: LedgerConfig{
			RPCURL:           getEnv("LEDGER_RPC_URL", "http://localhost:8545"),
			PrivateKey:       getEnv("LEDGER_PRIVATE_KEY", ""),
			ChainID:          int64(getIntEnv("LEDGER_CHAIN_ID", 1337)),
			TicketContract:   getEnv("LEDGER_TICKET_CONTRACT", ""),
			PassContract:     getEnv("LEDGER_PASS_CONTRACT", ""),
			PaymentsContract: getEnv("LEDGER_PAYMENTS_CONTRACT", ""),
			ConfirmDepth:     uint64(getIntEnv("LEDGER_CONFIRM_DEPTH", 1)),
			ConfirmTimeout:   getDurationEnv("LEDGER_CONFIRM_TIMEOUT", 90*time.Second),
		},
		Korapay: KorapayConfig{
			BaseURL:   getEnv("KORAPAY_BASE_URL", "https://api.korapay.com/merchant/api/v1"),
			SecretKey: getEnv("KORAPAY_SECRET_KEY", ""),
			Timeout:   getDurationEnv("KORAPAY_TIMEOUT", 15*time.Second),
		},
		NewRelic: NewRelicConfig{
			AppName:    getEnv("NEW_RELIC_APP_NAME", "railpay-settlement"),
			LicenseKey: getEnv("NEW_RELIC_LICENSE_KEY", ""),
			Enabled:    getBoolEnv("NEW_RELIC_ENABLED", false),
		},
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getBoolEnv(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}

func getDurationEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}
