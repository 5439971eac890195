package config_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/noah-isme/forneria-pos/internal/config"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := config.LoadForTests(map[string]string{
		"POS_BACKEND_URL":    "http://backend.local/",
		"POS_STORAGE_DRIVER": "memory",
		"POS_TERMINAL_ID":    "caja-1",
		"POS_TAX_RATE_BPS":   "",
		"POS_CART_KEY":       "",
	})
	require.NoError(t, err)
	require.Equal(t, "http://backend.local", cfg.BackendURL)
	require.Equal(t, "caja-1", cfg.TerminalID)
	require.Equal(t, 1900, cfg.TaxRateBPS)
	require.Equal(t, "forneria_cart_v1", cfg.CartKey)
	require.Equal(t, "csrftoken", cfg.CSRFCookieName)
	require.Equal(t, "X-CSRFToken", cfg.CSRFHeaderName)
	require.Equal(t, 10*time.Second, cfg.BackendTimeout)
	require.Equal(t, 1, cfg.BackendMaxAttempts)
}

func TestLoadRequiresBackend(t *testing.T) {
	_, err := config.LoadForTests(map[string]string{
		"POS_BACKEND_URL": "",
	})
	require.Error(t, err)
}

func TestLoadRedisDriverNeedsURL(t *testing.T) {
	_, err := config.LoadForTests(map[string]string{
		"POS_BACKEND_URL":    "http://backend.local",
		"POS_STORAGE_DRIVER": "redis",
		"REDIS_URL":          "",
	})
	require.Error(t, err)
}

func TestLoadGeneratesTerminalID(t *testing.T) {
	cfg, err := config.LoadForTests(map[string]string{
		"POS_BACKEND_URL":    "http://backend.local",
		"POS_STORAGE_DRIVER": "memory",
		"POS_TERMINAL_ID":    "",
	})
	require.NoError(t, err)
	require.NotEmpty(t, cfg.TerminalID)
}

func TestHTTPAddr(t *testing.T) {
	cfg := &config.Config{Port: "9000"}
	require.Equal(t, ":9000", cfg.HTTPAddr())
	cfg.Port = ":7000"
	require.Equal(t, ":7000", cfg.HTTPAddr())
}
