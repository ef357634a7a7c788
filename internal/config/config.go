package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/v2"
)

const (
	defaultMXBaseURL        = "https://api.mxmerchant.com/checkout/v3"
	defaultMXPaymentPageURL = "https://pay.mxmerchant.com"
	defaultMXSuccessURL     = "https://celebrationchevrolet.com/payment/success"
	defaultMXFailureURL     = "https://celebrationchevrolet.com/payment/cancel"
)

// MX holds MX Merchant checkout API settings.
type MX struct {
	APIKey         string
	APISecret      string
	MerchantID     string
	BaseURL        string
	PaymentPageURL string
	SuccessURL     string
	FailureURL     string
	RequestTimeout time.Duration
}

// Configured reports whether credentials for the checkout API are present.
func (m MX) Configured() bool {
	return m.APIKey != "" && m.APISecret != ""
}

// Twilio holds the SMS channel credentials.
type Twilio struct {
	AccountSID  string
	AuthToken   string
	PhoneNumber string
}

// Configured is true only when every Twilio setting is present.
func (t Twilio) Configured() bool {
	return t.AccountSID != "" && t.AuthToken != "" && t.PhoneNumber != ""
}

// SES holds the email channel credentials.
type SES struct {
	AccessKeyID     string
	SecretAccessKey string
	Region          string
	FromEmail       string
}

// Configured is true only when every SES setting is present.
func (s SES) Configured() bool {
	return s.AccessKeyID != "" && s.SecretAccessKey != "" && s.Region != "" && s.FromEmail != ""
}

// Config holds application configuration loaded from the environment.
type Config struct {
	AppEnv                string
	Port                  string
	RedisURL              string
	CORSAllowedOrigins    []string
	BodyLimitBytes        int64
	RateLimitCreatePerMin int
	MX                    MX
	Twilio                Twilio
	SES                   SES
}

// Load reads configuration from environment variables and optional .env files.
func Load() (*Config, error) {
	_ = godotenv.Load()

	k := koanf.New(".")
	if err := k.Load(env.Provider("", ".", func(s string) string { return s }), nil); err != nil {
		return nil, fmt.Errorf("load env: %w", err)
	}

	cfg := &Config{
		AppEnv:                valueOrDefault(k.String("NODE_ENV"), "development"),
		Port:                  valueOrDefault(k.String("PORT"), "3000"),
		RedisURL:              strings.TrimSpace(k.String("REDIS_URL")),
		CORSAllowedOrigins:    splitAndTrim(k.String("CORS_ALLOWED_ORIGINS")),
		BodyLimitBytes:        int64(parseInt(k.String("BODY_LIMIT_BYTES"), 1<<20)),
		RateLimitCreatePerMin: parseInt(k.String("RATE_LIMIT_CREATE_PER_MIN"), 30),
		MX: MX{
			APIKey:         strings.TrimSpace(k.String("MX_API_KEY")),
			APISecret:      strings.TrimSpace(k.String("MX_API_SECRET")),
			MerchantID:     strings.TrimSpace(k.String("MX_MERCHANT_ID")),
			BaseURL:        strings.TrimRight(valueOrDefault(k.String("MX_BASE_URL"), defaultMXBaseURL), "/"),
			PaymentPageURL: strings.TrimRight(valueOrDefault(k.String("MX_PAYMENT_PAGE_URL"), defaultMXPaymentPageURL), "/"),
			SuccessURL:     valueOrDefault(k.String("MX_SUCCESS_URL"), defaultMXSuccessURL),
			FailureURL:     valueOrDefault(k.String("MX_FAILURE_URL"), defaultMXFailureURL),
			RequestTimeout: parseDuration(k.String("MX_REQUEST_TIMEOUT"), "30s"),
		},
		Twilio: Twilio{
			AccountSID:  strings.TrimSpace(k.String("TWILIO_ACCOUNT_SID")),
			AuthToken:   strings.TrimSpace(k.String("TWILIO_AUTH_TOKEN")),
			PhoneNumber: strings.TrimSpace(k.String("TWILIO_PHONE_NUMBER")),
		},
		SES: SES{
			AccessKeyID:     strings.TrimSpace(k.String("AWS_ACCESS_KEY_ID")),
			SecretAccessKey: strings.TrimSpace(k.String("AWS_SECRET_ACCESS_KEY")),
			Region:          strings.TrimSpace(k.String("AWS_REGION")),
			FromEmail:       strings.TrimSpace(k.String("SES_FROM_EMAIL")),
		},
	}

	if cfg.MX.MerchantID != "" {
		if _, err := strconv.ParseInt(cfg.MX.MerchantID, 10, 64); err != nil {
			return nil, fmt.Errorf("MX_MERCHANT_ID must be numeric: %w", err)
		}
	}

	return cfg, nil
}

// HTTPAddr returns the address the HTTP server should bind to.
func (c *Config) HTTPAddr() string {
	port := strings.TrimSpace(c.Port)
	if port == "" {
		port = "3000"
	}
	if strings.HasPrefix(port, ":") {
		return port
	}
	return ":" + port
}

func splitAndTrim(value string) []string {
	if value == "" {
		return nil
	}
	parts := strings.Split(value, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}
	return result
}

func valueOrDefault(value, fallback string) string {
	if strings.TrimSpace(value) != "" {
		return strings.TrimSpace(value)
	}
	return fallback
}

func parseDuration(value, fallback string) time.Duration {
	base := strings.TrimSpace(value)
	if base == "" {
		base = fallback
	}
	d, err := time.ParseDuration(base)
	if err != nil {
		d, _ = time.ParseDuration(fallback)
	}
	return d
}

func parseInt(value string, fallback int) int {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(trimmed)
	if err != nil || parsed < 0 {
		return fallback
	}
	return parsed
}

// MustLoad behaves like Load but panics on error. Useful for tests and command entrypoints.
func MustLoad() *Config {
	cfg, err := Load()
	if err != nil {
		panic(err)
	}
	return cfg
}

// LoadForTests allows tests to override environment variables without touching the real environment.
func LoadForTests(env map[string]string) (*Config, error) {
	original := make(map[string]string, len(env))
	for key := range env {
		original[key] = os.Getenv(key)
		if err := setEnvVar(key, env[key]); err != nil {
			return nil, err
		}
	}
	cfg, err := Load()
	restoreErr := restoreEnv(original)
	if err != nil {
		return nil, err
	}
	return cfg, restoreErr
}

func setEnvVar(key, value string) error {
	if value == "" {
		return os.Unsetenv(key)
	}
	return os.Setenv(key, value)
}

func restoreEnv(values map[string]string) error {
	var errs []string
	for key, value := range values {
		if err := setEnvVar(key, value); err != nil {
			errs = append(errs, fmt.Sprintf("%s: %v", key, err))
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("restore env: %s", strings.Join(errs, "; "))
	}
	return nil
}
