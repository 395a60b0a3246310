package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type AppConfig struct {
	Port string
}

type PostgresConfig struct {
	Host            string
	Port            string
	User            string
	Password        string
	DBName          string
	SSLMode         string
	MaxConns        int32
	MinConns        int32
	MaxConnLifetime time.Duration
	MigrationsPath  string
}

type KhaltiConfig struct {
	GatewayURL string
	SecretKey  string
	Timeout    time.Duration
}

type SMTPConfig struct {
	Host     string
	Port     string
	Username string
	Password string
	From     string
}

// PricingConfig holds the server-side checkout pricing policy. Order totals
// submitted by clients are validated against these values.
type PricingConfig struct {
	TaxRate     float64
	ShippingFee float64
}

type Config struct {
	App      AppConfig
	Postgres PostgresConfig
	Khalti   KhaltiConfig
	SMTP     SMTPConfig
	Pricing  PricingConfig
}

// Load reads configuration from the environment, optionally preloading a
// .env file from path. A missing .env file is not an error.
func Load(path string) (*Config, error) {
	if path != "" {
		if err := godotenv.Load(path); err != nil && !os.IsNotExist(err) {
			return nil, fmt.Errorf("failed to load .env: %w", err)
		}
	}

	cfg := &Config{}

	cfg.App.Port = getEnv("APP_PORT", "8080")

	cfg.Postgres.Host = os.Getenv("DB_HOST")
	cfg.Postgres.Port = getEnv("DB_PORT", "5432")
	cfg.Postgres.User = os.Getenv("DB_USER")
	cfg.Postgres.Password = os.Getenv("DB_PASSWORD")
	cfg.Postgres.DBName = os.Getenv("DB_NAME")
	cfg.Postgres.SSLMode = getEnv("DB_SSLMODE", "disable")
	cfg.Postgres.MaxConns = int32(getEnvInt("DB_MAX_CONNS", 10))
	cfg.Postgres.MinConns = int32(getEnvInt("DB_MIN_CONNS", 2))
	cfg.Postgres.MaxConnLifetime = getEnvDuration("DB_MAX_CONN_LIFETIME", time.Hour)
	cfg.Postgres.MigrationsPath = getEnv("DB_MIGRATIONS_PATH", "migrations")

	for name, value := range map[string]string{
		"DB_HOST":     cfg.Postgres.Host,
		"DB_USER":     cfg.Postgres.User,
		"DB_PASSWORD": cfg.Postgres.Password,
		"DB_NAME":     cfg.Postgres.DBName,
	} {
		if value == "" {
			return nil, fmt.Errorf("%s is required", name)
		}
	}

	// A missing gateway config would otherwise surface only at the first
	// checkout, so it is required up front like the database settings.
	cfg.Khalti.GatewayURL = os.Getenv("KHALTI_GATEWAY_URL")
	cfg.Khalti.SecretKey = os.Getenv("KHALTI_SECRET_KEY")
	cfg.Khalti.Timeout = getEnvDuration("KHALTI_TIMEOUT", 10*time.Second)

	for name, value := range map[string]string{
		"KHALTI_GATEWAY_URL": cfg.Khalti.GatewayURL,
		"KHALTI_SECRET_KEY":  cfg.Khalti.SecretKey,
	} {
		if value == "" {
			return nil, fmt.Errorf("%s is required", name)
		}
	}

	cfg.SMTP.Host = os.Getenv("EMAIL_HOST")
	cfg.SMTP.Port = getEnv("EMAIL_PORT", "587")
	cfg.SMTP.Username = os.Getenv("EMAIL_USER")
	cfg.SMTP.Password = os.Getenv("EMAIL_PASSWORD")
	cfg.SMTP.From = os.Getenv("EMAIL_FROM")

	cfg.Pricing.TaxRate = getEnvFloat("PRICING_TAX_RATE", 0.13)
	cfg.Pricing.ShippingFee = getEnvFloat("PRICING_SHIPPING_FEE", 100)

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

func getEnvFloat(key string, fallback float64) float64 {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return fallback
	}
	return f
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fallback
	}
	return d
}
