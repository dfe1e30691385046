package config

import (
	"errors"
	"fmt"
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
)

const (
	defaultDSN         = "host=localhost user=postgres password=postgres dbname=cruise port=5432 sslmode=disable"
	defaultCORSOrigins = "http://localhost:3000"
)

type Config struct {
	Env         string
	HTTPPort    string
	DatabaseDSN string
	JWTSecret   string
	CORSOrigins string

	RedisAddr     string // empty: period cache disabled
	RedisPassword string
	RedisDB       int

	LogLevel string
	LogFile  string // empty: stdout only

	Settlement SettlementConfig
}

// SettlementConfig: policy values of the monthly affiliate settlement.
type SettlementConfig struct {
	Location               *time.Location
	Timeout                time.Duration
	PeriodCacheTTL         time.Duration
	CardFeeRate            decimal.Decimal // fraction of total sale amount
	CorporateTaxRate       decimal.Decimal // fraction of total net revenue
	DefaultWithholdingRate decimal.Decimal // percent
}

// Load reads the environment (and ./.env when present).
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Printf("[WARN] .env could not be read: %v", err)
	}

	cfg := &Config{
		Env:           getEnv("APP_ENV", "development"),
		HTTPPort:      getEnv("HTTP_PORT", "8080"),
		DatabaseDSN:   getEnv("DATABASE_DSN", defaultDSN),
		JWTSecret:     getEnv("JWT_SECRET", ""),
		CORSOrigins:   getEnv("CORS_ALLOWED_ORIGINS", defaultCORSOrigins),
		RedisAddr:     getEnv("REDIS_ADDR", ""),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		LogLevel:      getEnv("LOG_LEVEL", "info"),
		LogFile:       getEnv("LOG_FILE", ""),
	}

	var err error
	if cfg.RedisDB, err = strconv.Atoi(getEnv("REDIS_DB", "0")); err != nil {
		return nil, fmt.Errorf("invalid REDIS_DB: %w", err)
	}
	if cfg.Settlement, err = loadSettlement(); err != nil {
		return nil, err
	}

	if cfg.JWTSecret == "" {
		return nil, errors.New("JWT_SECRET is not set")
	}
	if len(cfg.JWTSecret) < 32 {
		return nil, errors.New("JWT_SECRET must be at least 32 characters")
	}
	if cfg.DatabaseDSN == defaultDSN {
		log.Println("[WARN] DATABASE_DSN is using the default value, set your own Postgres DSN for production")
	}
	if cfg.CORSOrigins == defaultCORSOrigins {
		log.Println("[WARN] CORS_ALLOWED_ORIGINS is using the default value")
	}

	return cfg, nil
}

func loadSettlement() (SettlementConfig, error) {
	var sc SettlementConfig
	var err error

	tz := getEnv("REPORT_TIMEZONE", "Local")
	if sc.Location, err = time.LoadLocation(tz); err != nil {
		return sc, fmt.Errorf("invalid REPORT_TIMEZONE: %w", err)
	}
	if sc.Timeout, err = time.ParseDuration(getEnv("REPORT_TIMEOUT", "30s")); err != nil {
		return sc, fmt.Errorf("invalid REPORT_TIMEOUT: %w", err)
	}
	if sc.PeriodCacheTTL, err = time.ParseDuration(getEnv("PERIOD_CACHE_TTL", "5m")); err != nil {
		return sc, fmt.Errorf("invalid PERIOD_CACHE_TTL: %w", err)
	}
	if sc.CardFeeRate, err = getDecimal("CARD_FEE_RATE", "0.035"); err != nil {
		return sc, err
	}
	if sc.CorporateTaxRate, err = getDecimal("CORPORATE_TAX_RATE", "0.10"); err != nil {
		return sc, err
	}
	if sc.DefaultWithholdingRate, err = getDecimal("DEFAULT_WITHHOLDING_RATE", "3.3"); err != nil {
		return sc, err
	}
	return sc, nil
}

// DefaultSettlement: the historical policy values, used when nothing is configured.
func DefaultSettlement() SettlementConfig {
	return SettlementConfig{
		Location:               time.Local,
		Timeout:                30 * time.Second,
		PeriodCacheTTL:         5 * time.Minute,
		CardFeeRate:            decimal.RequireFromString("0.035"),
		CorporateTaxRate:       decimal.RequireFromString("0.10"),
		DefaultWithholdingRate: decimal.RequireFromString("3.3"),
	}
}

func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getDecimal(key, def string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(getEnv(key, def))
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid %s: %w", key, err)
	}
	if d.IsNegative() {
		return decimal.Zero, fmt.Errorf("%s must not be negative", key)
	}
	return d, nil
}
