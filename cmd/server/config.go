package main

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"

	"salesledger/internal/core/numerator"
	"salesledger/internal/domain/documents/sale"
	"salesledger/internal/infrastructure/cache"
	"salesledger/internal/infrastructure/storage/postgres"
	"salesledger/pkg/telemetry"
)

// Config is the server configuration assembled from the environment.
type Config struct {
	Env      string
	Port     string
	LogLevel string

	DatabaseURL    string
	DBMaxConns     int
	DBMinConns     int
	StatementLimit time.Duration
	MigrateOnStart bool

	Sale sale.Config

	Redis cache.Config

	JWTSecret          string
	AuthEnabled        bool
	IdempotencyEnabled bool
	CORSOrigins        []string

	Telemetry telemetry.Config
}

// loadConfig reads an optional .env file and then the process environment.
func loadConfig() (Config, error) {
	// A missing .env is fine; real deployments set the environment directly.
	_ = godotenv.Load()

	cfg := Config{
		Env:                getEnv("APP_ENV", "development"),
		Port:               getEnv("APP_PORT", "8080"),
		LogLevel:           getEnv("LOG_LEVEL", "info"),
		DatabaseURL:        mustEnv("DATABASE_URL"),
		DBMaxConns:         getEnvInt("DB_MAX_CONNS", 25),
		DBMinConns:         getEnvInt("DB_MIN_CONNS", 2),
		StatementLimit:     getEnvDuration("TX_STATEMENT_TIMEOUT", postgres.DefaultTxOptions().StatementTimeout),
		MigrateOnStart:     getEnvBool("MIGRATE_ON_START", false),
		JWTSecret:          getEnv("JWT_SECRET", ""),
		AuthEnabled:        getEnvBool("AUTH_ENABLED", false),
		IdempotencyEnabled: getEnvBool("IDEMPOTENCY_ENABLED", true),
		CORSOrigins:        getEnvList("CORS_ALLOWED_ORIGINS"),
		Redis: cache.Config{
			Addr:     getEnv("REDIS_ADDR", ""),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvInt("REDIS_DB", 0),
			TTL:      getEnvDuration("PRODUCT_CACHE_TTL", 5*time.Minute),
		},
		Telemetry: telemetry.Config{
			Enabled:        getEnvBool("OTEL_ENABLED", false),
			Endpoint:       getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", ""),
			ServiceName:    getEnv("SERVICE_NAME", "salesledger"),
			ServiceVersion: version,
			Insecure:       true,
		},
	}

	saleCfg, err := loadSaleConfig()
	if err != nil {
		return Config{}, err
	}
	cfg.Sale = saleCfg

	if cfg.AuthEnabled && cfg.JWTSecret == "" {
		return Config{}, fmt.Errorf("JWT_SECRET is required when AUTH_ENABLED=true")
	}
	return cfg, nil
}

func loadSaleConfig() (sale.Config, error) {
	cfg := sale.DefaultConfig()

	var err error
	if cfg.DefaultTaxPercent, err = getEnvDecimal("SALE_DEFAULT_TAX_PERCENT", cfg.DefaultTaxPercent); err != nil {
		return cfg, err
	}
	if cfg.PriceTolerance, err = getEnvDecimal("SALE_PRICE_TOLERANCE", cfg.PriceTolerance); err != nil {
		return cfg, err
	}
	if cfg.NumberStrategy, err = numerator.ParseStrategy(getEnv("SALE_NUMBER_STRATEGY", "random")); err != nil {
		return cfg, err
	}

	cfg.NumberPrefix = getEnv("SALE_NUMBER_PREFIX", cfg.NumberPrefix)
	cfg.NumberMaxAttempts = getEnvInt("SALE_NUMBER_MAX_ATTEMPTS", cfg.NumberMaxAttempts)
	cfg.RestockOnCancel = getEnvBool("SALE_RESTOCK_ON_CANCEL", cfg.RestockOnCancel)
	return cfg, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func mustEnv(key string) string {
	value := os.Getenv(key)
	if value == "" {
		fmt.Printf("required environment variable %s not set\n", key)
		os.Exit(1)
	}
	return value
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if result, err := strconv.Atoi(value); err == nil {
			return result
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if result, err := strconv.ParseBool(value); err == nil {
			return result
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

func getEnvDecimal(key string, defaultValue decimal.Decimal) (decimal.Decimal, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	d, err := decimal.NewFromString(value)
	if err != nil {
		return defaultValue, fmt.Errorf("%s: %w", key, err)
	}
	return d, nil
}

func getEnvList(key string) []string {
	var out []string
	for _, part := range strings.Split(os.Getenv(key), ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
