package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/v2"
)

// Storage drivers understood by the terminal.
const (
	StorageMemory = "memory"
	StorageBolt   = "bolt"
	StorageRedis  = "redis"
)

// Config holds terminal configuration loaded from the environment.
type Config struct {
	AppEnv     string
	Port       string
	TerminalID string

	BackendURL         string
	BackendTimeout     time.Duration
	BackendMaxAttempts int
	BreakerMinRequests int
	BreakerFailRatio   float64
	BreakerOpenFor     time.Duration
	CSRFCookieName     string
	CSRFHeaderName     string
	CSRFToken          string

	StorageDriver string
	StoragePath   string
	RedisURL      string
	CartKey       string

	TaxRateBPS           int
	CurrencyCode         string
	SalesChannel         string
	DefaultPaymentMethod string
	ProductCacheTTL      time.Duration

	CORSAllowedOrigins []string
	BodyLimitBytes     int64
}

// Load reads configuration from environment variables and optional .env files.
func Load() (*Config, error) {
	_ = godotenv.Load()

	k := koanf.New(".")
	if err := k.Load(env.Provider("", ".", func(s string) string { return s }), nil); err != nil {
		return nil, fmt.Errorf("load env: %w", err)
	}

	cfg := &Config{
		AppEnv:     valueOrDefault(k.String("APP_ENV"), "development"),
		Port:       valueOrDefault(k.String("PORT"), "8090"),
		TerminalID: strings.TrimSpace(k.String("POS_TERMINAL_ID")),

		BackendURL:         strings.TrimRight(strings.TrimSpace(k.String("POS_BACKEND_URL")), "/"),
		BackendTimeout:     parseDuration(k.String("POS_BACKEND_TIMEOUT"), "10s"),
		BackendMaxAttempts: parseInt(k.String("POS_BACKEND_MAX_ATTEMPTS"), 1),
		BreakerMinRequests: parseInt(k.String("POS_BREAKER_MIN_REQUESTS"), 5),
		BreakerFailRatio:   parseFloat(k.String("POS_BREAKER_FAILURE_RATIO"), 0.5),
		BreakerOpenFor:     parseDuration(k.String("POS_BREAKER_OPEN_FOR"), "30s"),
		CSRFCookieName:     valueOrDefault(k.String("POS_CSRF_COOKIE"), "csrftoken"),
		CSRFHeaderName:     valueOrDefault(k.String("POS_CSRF_HEADER"), "X-CSRFToken"),
		CSRFToken:          strings.TrimSpace(k.String("POS_CSRF_TOKEN")),

		StorageDriver: strings.ToLower(valueOrDefault(k.String("POS_STORAGE_DRIVER"), StorageBolt)),
		StoragePath:   valueOrDefault(k.String("POS_STORAGE_PATH"), "forneria-pos.db"),
		RedisURL:      strings.TrimSpace(k.String("REDIS_URL")),
		CartKey:       valueOrDefault(k.String("POS_CART_KEY"), "forneria_cart_v1"),

		TaxRateBPS:           parseInt(k.String("POS_TAX_RATE_BPS"), 1900),
		CurrencyCode:         valueOrDefault(k.String("POS_CURRENCY"), "CLP"),
		SalesChannel:         valueOrDefault(k.String("POS_SALES_CHANNEL"), "presencial"),
		DefaultPaymentMethod: valueOrDefault(k.String("POS_DEFAULT_PAYMENT_METHOD"), "efectivo"),
		ProductCacheTTL:      parseDuration(k.String("POS_PRODUCT_CACHE_TTL"), "5m"),

		CORSAllowedOrigins: splitAndTrim(k.String("CORS_ALLOWED_ORIGINS")),
		BodyLimitBytes:     int64(parseInt(k.String("HTTP_BODY_LIMIT_BYTES"), 1<<20)),
	}

	if cfg.TerminalID == "" {
		cfg.TerminalID = uuid.NewString()
	}

	if cfg.BackendURL == "" {
		return nil, errors.New("POS_BACKEND_URL is required")
	}
	if _, err := url.ParseRequestURI(cfg.BackendURL); err != nil {
		return nil, fmt.Errorf("POS_BACKEND_URL is invalid: %w", err)
	}
	switch cfg.StorageDriver {
	case StorageMemory, StorageBolt:
	case StorageRedis:
		if cfg.RedisURL == "" {
			return nil, errors.New("REDIS_URL is required for the redis storage driver")
		}
	default:
		return nil, fmt.Errorf("unsupported POS_STORAGE_DRIVER %q", cfg.StorageDriver)
	}
	if cfg.TaxRateBPS < 0 {
		return nil, errors.New("POS_TAX_RATE_BPS must not be negative")
	}

	return cfg, nil
}

// HTTPAddr returns the address the HTTP server should bind to.
func (c *Config) HTTPAddr() string {
	port := strings.TrimSpace(c.Port)
	if port == "" {
		port = "8090"
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
	if trimmed := strings.TrimSpace(value); trimmed != "" {
		return trimmed
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
	parsed, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		return fallback
	}
	return parsed
}

func parseFloat(value string, fallback float64) float64 {
	parsed, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
	if err != nil {
		return fallback
	}
	return parsed
}

// MustLoad behaves like Load but panics on error.
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
