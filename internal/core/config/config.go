package config

import (
	"log/slog"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"

	"github.com/ibrahimkeyboad/swiftportal/internal/core/domain"
)

type Config struct {
	Port          string
	DatabaseURL   string
	Env           string
	SessionSecret string

	// Per-payment ceiling, inclusive.
	TransactionCeiling decimal.Decimal

	Prevalidation PrevalidationConfig
}

// PrevalidationConfig covers the external account pre-validation service.
// ConsumerKey, SigningIdentity and SigningKeyPath have no sane defaults:
// without them we cannot sign the JWT-bearer assertion, so Load fails hard
// instead of limping along.
type PrevalidationConfig struct {
	BaseURL         string
	TokenURL        string
	RevokeURL       string
	ConsumerKey     string
	ConsumerSecret  string
	SigningIdentity string // subject DN / BIC identifying us to the service
	SigningKeyPath  string
	SigningCertPath string
	RequestTimeout  time.Duration
}

// Load reads .env file and environment variables into a Config.
func Load() (*Config, error) {
	// .env may be absent in production, that's fine
	if err := godotenv.Load(); err != nil {
		slog.Warn("No .env file found, relying on system env variables")
	}

	ceiling, err := decimal.NewFromString(getEnv("TRANSACTION_CEILING", "100000.00"))
	if err != nil {
		return nil, &domain.ConfigurationError{Setting: "TRANSACTION_CEILING"}
	}

	cfg := &Config{
		Port:               getEnv("PORT", "3000"),
		DatabaseURL:        getEnv("DATABASE_URL", ""),
		Env:                getEnv("ENV", "development"),
		SessionSecret:      getEnv("SESSION_SECRET", ""),
		TransactionCeiling: ceiling,
		Prevalidation: PrevalidationConfig{
			BaseURL:         getEnv("PREVAL_BASE_URL", ""),
			TokenURL:        getEnv("PREVAL_TOKEN_URL", ""),
			RevokeURL:       getEnv("PREVAL_REVOKE_URL", ""),
			ConsumerKey:     getEnv("PREVAL_CONSUMER_KEY", ""),
			ConsumerSecret:  getEnv("PREVAL_CONSUMER_SECRET", ""),
			SigningIdentity: getEnv("PREVAL_SIGNING_IDENTITY", ""),
			SigningKeyPath:  getEnv("PREVAL_SIGNING_KEY_PATH", ""),
			SigningCertPath: getEnv("PREVAL_SIGNING_CERT_PATH", ""),
			RequestTimeout:  getEnvDuration("PREVAL_TIMEOUT", 8*time.Second),
		},
	}

	for setting, value := range map[string]string{
		"DATABASE_URL":            cfg.DatabaseURL,
		"SESSION_SECRET":          cfg.SessionSecret,
		"PREVAL_BASE_URL":         cfg.Prevalidation.BaseURL,
		"PREVAL_TOKEN_URL":        cfg.Prevalidation.TokenURL,
		"PREVAL_CONSUMER_KEY":     cfg.Prevalidation.ConsumerKey,
		"PREVAL_SIGNING_IDENTITY": cfg.Prevalidation.SigningIdentity,
		"PREVAL_SIGNING_KEY_PATH": cfg.Prevalidation.SigningKeyPath,
	} {
		if value == "" {
			return nil, &domain.ConfigurationError{Setting: setting}
		}
	}

	return cfg, nil
}

// Helper to get env with a default fallback
func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if value, exists := os.LookupEnv(key); exists {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
		slog.Warn("Ignoring unparseable duration", "key", key, "value", value)
	}
	return fallback
}
