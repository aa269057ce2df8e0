package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"zubari/internal/models/db_models"
)

const (
	StoreDriverPostgres = "postgres"
	StoreDriverSQLite   = "sqlite"
	StoreDriverMemory   = "memory"

	// FreeQuota is the number of metered calls a free account may make.
	FreeQuota = 5

	// PayOSCurrency is the only currency payOS charges. The dong has no minor
	// unit, so prices are whole dong.
	PayOSCurrency = "VND"
)

type Config struct {
	Port      string
	StaticDir string
	LogLevel  string
	LogFormat string

	// CORSOrigins is empty when every origin is allowed.
	CORSOrigins []string
	// AdminEmails sign up with the admin role.
	AdminEmails []string

	StoreDriver  string
	PostgresURL  string
	SQLitePath   string
	StoreTimeout time.Duration
	RedisURL     string

	JWTSecret string
	JWTTTL    time.Duration
	FreeQuota int

	Payment    PaymentConfig
	Capability CapabilityConfig
	SMTP       SMTPConfig
}

type PaymentConfig struct {
	Provider string // "payos" | "mock"
	Currency string
	// Prices in the provider's minor units.
	MonthlyMinor int64
	YearlyMinor  int64

	PayOSClientID    string
	PayOSAPIKey      string
	PayOSChecksumKey string
	ReturnURL        string
	CancelURL        string
}

type CapabilityConfig struct {
	Provider     string // "mock" | "openai" | "gemini"
	OpenAIAPIKey string
	OpenAIModel  string
	GeminiAPIKey string
	GeminiModel  string
}

type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
	AppName  string
	BaseURL  string
}

// PriceFor returns the amount charged for a plan in minor units.
func (p PaymentConfig) PriceFor(plan db_models.Plan) int64 {
	if plan == db_models.PlanYearly {
		return p.YearlyMinor
	}
	return p.MonthlyMinor
}

// Load reads an optional .env file and then the process environment.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		Port:      getEnvWithDefault("PORT", "3000"),
		StaticDir: getEnvWithDefault("STATIC_DIR", "public"),
		LogLevel:  getEnvWithDefault("LOG_LEVEL", "info"),
		LogFormat: getEnvWithDefault("LOG_FORMAT", "json"),

		CORSOrigins: splitList(os.Getenv("CORS_ORIGINS")),
		AdminEmails: splitList(strings.ToLower(os.Getenv("ADMIN_EMAILS"))),

		StoreDriver: strings.ToLower(getEnvWithDefault("STORE_DRIVER", StoreDriverPostgres)),
		PostgresURL: os.Getenv("POSTGRES_URL"),
		SQLitePath:  getEnvWithDefault("SQLITE_PATH", "zubari.db"),
		RedisURL:    os.Getenv("REDIS_URL"),

		JWTSecret: os.Getenv("JWT_SECRET"),
		FreeQuota: FreeQuota,

		Payment: PaymentConfig{
			Provider:         strings.ToLower(getEnvWithDefault("PAYMENT_PROVIDER", "payos")),
			PayOSClientID:    os.Getenv("PAYOS_CLIENT_ID"),
			PayOSAPIKey:      os.Getenv("PAYOS_API_KEY"),
			PayOSChecksumKey: os.Getenv("PAYOS_CHECKSUM_KEY"),
			ReturnURL:        os.Getenv("PAYMENT_RETURN_URL"),
			CancelURL:        os.Getenv("PAYMENT_CANCEL_URL"),
		},
		Capability: CapabilityConfig{
			Provider:     strings.ToLower(getEnvWithDefault("CAPABILITY_PROVIDER", "mock")),
			OpenAIAPIKey: os.Getenv("OPENAI_API_KEY"),
			OpenAIModel:  getEnvWithDefault("OPENAI_MODEL", "gpt-4o-mini"),
			GeminiAPIKey: os.Getenv("GEMINI_API_KEY"),
			GeminiModel:  getEnvWithDefault("GEMINI_MODEL", "gemini-1.5-flash"),
		},
		SMTP: SMTPConfig{
			Host:     os.Getenv("SMTP_HOST"),
			Username: os.Getenv("SMTP_USERNAME"),
			Password: os.Getenv("SMTP_PASSWORD"),
			From:     os.Getenv("SMTP_FROM"),
			AppName:  getEnvWithDefault("APP_NAME", "Zubari AI Study Buddy"),
			BaseURL:  getEnvWithDefault("APP_BASE_URL", "http://localhost:3000"),
		},
	}

	defaultCurrency := "KES"
	if cfg.Payment.Provider == "payos" {
		defaultCurrency = PayOSCurrency
	}
	cfg.Payment.Currency = strings.ToUpper(getEnvWithDefault("CURRENCY", defaultCurrency))

	var err error
	if cfg.StoreTimeout, err = durationEnv("STORE_TIMEOUT", 3*time.Second); err != nil {
		return nil, err
	}
	if cfg.JWTTTL, err = durationEnv("JWT_TTL", 24*time.Hour); err != nil {
		return nil, err
	}
	// 1000.00 and 10000.00 in a two-decimal currency, or whole dong for payOS
	if cfg.Payment.MonthlyMinor, err = int64Env("PRICE_MONTHLY_MINOR", 100000); err != nil {
		return nil, err
	}
	if cfg.Payment.YearlyMinor, err = int64Env("PRICE_YEARLY_MINOR", 1000000); err != nil {
		return nil, err
	}
	smtpPort, err := int64Env("SMTP_PORT", 587)
	if err != nil {
		return nil, err
	}
	cfg.SMTP.Port = int(smtpPort)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	var errs []error

	switch c.StoreDriver {
	case StoreDriverPostgres:
		if c.PostgresURL == "" {
			errs = append(errs, errors.New("POSTGRES_URL is required when STORE_DRIVER=postgres"))
		}
	case StoreDriverSQLite, StoreDriverMemory:
	default:
		errs = append(errs, fmt.Errorf("unsupported STORE_DRIVER %q", c.StoreDriver))
	}

	if c.JWTSecret == "" {
		errs = append(errs, errors.New("JWT_SECRET is required"))
	}
	if c.StoreTimeout <= 0 {
		errs = append(errs, errors.New("STORE_TIMEOUT must be positive"))
	}
	if c.Payment.MonthlyMinor <= 0 || c.Payment.YearlyMinor <= 0 {
		errs = append(errs, errors.New("plan prices must be positive"))
	}

	switch c.Payment.Provider {
	case "payos":
		if c.Payment.PayOSClientID == "" || c.Payment.PayOSAPIKey == "" || c.Payment.PayOSChecksumKey == "" {
			errs = append(errs, errors.New("missing payOS credentials"))
		}
		if c.Payment.Currency != PayOSCurrency {
			errs = append(errs, fmt.Errorf("payOS charges only %s, got CURRENCY=%q", PayOSCurrency, c.Payment.Currency))
		}
	case "mock":
	default:
		errs = append(errs, fmt.Errorf("unsupported PAYMENT_PROVIDER %q", c.Payment.Provider))
	}

	switch c.Capability.Provider {
	case "mock":
	case "openai":
		if c.Capability.OpenAIAPIKey == "" {
			errs = append(errs, errors.New("OPENAI_API_KEY is required when using OpenAI provider"))
		}
	case "gemini":
		if c.Capability.GeminiAPIKey == "" {
			errs = append(errs, errors.New("GEMINI_API_KEY is required when using Gemini provider"))
		}
	default:
		errs = append(errs, fmt.Errorf("unsupported CAPABILITY_PROVIDER %q", c.Capability.Provider))
	}

	return errors.Join(errs...)
}

// getEnvWithDefault returns environment variable or default value
func getEnvWithDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func durationEnv(key string, def time.Duration) (time.Duration, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return def, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return d, nil
}

func int64Env(key string, def int64) (int64, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return def, nil
	}
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return v, nil
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
