// Package config loads runtime configuration from the environment, with an
// optional .env file for local development.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
)

type Config struct {
	ServiceName string
	Env         string
	HTTPAddr    string

	// StoreBackend selects "memory" or "postgres".
	StoreBackend string
	Database     DatabaseConfig

	ShippingFlatFee       decimal.Decimal
	FreeShippingThreshold decimal.Decimal
	DeliverySLA           time.Duration

	PaymentSecret string
	Currency      string

	// ServiceablePrefixes limits deliveries to postal codes with one of these
	// prefixes; empty means everywhere.
	ServiceablePrefixes []string
}

type DatabaseConfig struct {
	URL             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

func Load() (*Config, error) {
	// Missing .env is fine; real deployments set the environment directly.
	_ = godotenv.Load()

	cfg := &Config{
		ServiceName:  getEnv("SERVICE_NAME", "orderflow"),
		Env:          getEnv("ENV", "dev"),
		HTTPAddr:     getEnv("HTTP_ADDR", ":8080"),
		StoreBackend: getEnv("STORE_BACKEND", "memory"),
		Database: DatabaseConfig{
			URL:             getEnv("DATABASE_URL", ""),
			MaxOpenConns:    getEnvInt("DB_MAX_OPEN_CONNS", 25),
			MaxIdleConns:    getEnvInt("DB_MAX_IDLE_CONNS", 5),
			ConnMaxLifetime: getEnvDuration("DB_CONN_MAX_LIFETIME", 5*time.Minute),
		},
		DeliverySLA:   getEnvDuration("DELIVERY_SLA", 48*time.Hour),
		PaymentSecret: getEnv("PAYMENT_SECRET", "dev-secret"),
		Currency:      getEnv("CURRENCY", "USD"),
	}

	var err error
	if cfg.ShippingFlatFee, err = getEnvDecimal("SHIPPING_FLAT_FEE", "5.99"); err != nil {
		return nil, err
	}
	if cfg.FreeShippingThreshold, err = getEnvDecimal("FREE_SHIPPING_THRESHOLD", "50"); err != nil {
		return nil, err
	}

	if raw := getEnv("SERVICEABLE_PREFIXES", ""); raw != "" {
		cfg.ServiceablePrefixes = strings.Split(raw, ",")
	}

	switch cfg.StoreBackend {
	case "memory":
	case "postgres":
		if cfg.Database.URL == "" {
			return nil, fmt.Errorf("config: DATABASE_URL is required when STORE_BACKEND=postgres")
		}
	default:
		return nil, fmt.Errorf("config: unknown STORE_BACKEND %q", cfg.StoreBackend)
	}

	return cfg, nil
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getEnvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func getEnvDuration(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}

func getEnvDecimal(key, def string) (decimal.Decimal, error) {
	raw := getEnv(key, def)
	d, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero, fmt.Errorf("config: %s: invalid amount %q", key, raw)
	}
	return d, nil
}
