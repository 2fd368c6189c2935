package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setRequiredEnv(t *testing.T) {
	t.Helper()
	t.Setenv("EXPORT_TOAST_CLIENT_ID", "client-id")
	t.Setenv("EXPORT_TOAST_CLIENT_SECRET", "client-secret")
}

func TestLoadDefaults(t *testing.T) {
	setRequiredEnv(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "info", cfg.Server.LogLevel)
	assert.Equal(t, "https://ws-api.toasttab.com", cfg.Toast.BaseURL)
	assert.Len(t, cfg.Toast.Locations, 5)
	assert.Empty(t, cfg.Delivery.DefaultWebhookURL)
	assert.Equal(t, 3, cfg.Delivery.MaxAttempts)
	assert.Equal(t, 1*time.Second, cfg.Delivery.RetryWaitMin)
	assert.Equal(t, 30*time.Second, cfg.Delivery.RetryWaitMax)
	assert.Equal(t, 10*time.Second, cfg.Delivery.Timeout)
}

func TestLoadEnvironmentOverrides(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("EXPORT_SERVER_PORT", "9999")
	t.Setenv("EXPORT_SERVER_LOG_LEVEL", "debug")
	t.Setenv("EXPORT_DELIVERY_DEFAULT_WEBHOOK_URL", "https://hooks.example.com/sales")
	t.Setenv("EXPORT_DELIVERY_MAX_ATTEMPTS", "5")
	t.Setenv("EXPORT_DELIVERY_TIMEOUT", "30s")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 9999, cfg.Server.Port)
	assert.Equal(t, "debug", cfg.Server.LogLevel)
	assert.Equal(t, "https://hooks.example.com/sales", cfg.Delivery.DefaultWebhookURL)
	assert.Equal(t, 5, cfg.Delivery.MaxAttempts)
	assert.Equal(t, 30*time.Second, cfg.Delivery.Timeout)
}

func TestLoadRejectsMissingCredentials(t *testing.T) {
	t.Setenv("EXPORT_TOAST_CLIENT_ID", "")
	t.Setenv("EXPORT_TOAST_CLIENT_SECRET", "")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid configuration")
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	tests := []struct {
		name  string
		key   string
		value string
	}{
		{name: "bad log level", key: "EXPORT_SERVER_LOG_LEVEL", value: "verbose"},
		{name: "port out of range", key: "EXPORT_SERVER_PORT", value: "99999"},
		{name: "zero attempts", key: "EXPORT_DELIVERY_MAX_ATTEMPTS", value: "0"},
		{name: "webhook URL not a URL", key: "EXPORT_DELIVERY_DEFAULT_WEBHOOK_URL", value: "not-a-url"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			setRequiredEnv(t)
			t.Setenv(tc.key, tc.value)

			_, err := Load()
			assert.Error(t, err)
		})
	}
}

func TestLocationGUIDs(t *testing.T) {
	cfg := ToastConfig{Locations: map[string]string{
		"1": "guid-1",
		"2": "guid-2",
	}}

	locations, err := cfg.LocationGUIDs()
	require.NoError(t, err)
	assert.Equal(t, map[int]string{1: "guid-1", 2: "guid-2"}, locations)
}

func TestLocationGUIDsRejectsNonIntegerKeys(t *testing.T) {
	cfg := ToastConfig{Locations: map[string]string{"west-portal": "guid-1"}}

	_, err := cfg.LocationGUIDs()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "west-portal")
}
