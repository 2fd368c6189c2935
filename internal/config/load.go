package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

// defaultLocations is the restaurant GUID table used when no locations are
// configured explicitly.
var defaultLocations = map[string]string{
	"1": "8a3b1856-f4ed-4f13-8f64-6349fbffe1f1",
	"2": "424bca99-0858-4c55-9fe6-ba3936f2fe1b",
	"3": "09017aed-dc03-494c-a1b1-cbb0b71a0141",
	"4": "2058e275-2eff-4cf0-8eeb-12001129d782",
	"5": "2437b9ff-00d5-4cec-b629-704f72e5f5ae",
}

// Load reads configuration from an optional config.yaml and from EXPORT_*
// environment variables, with environment taking precedence. Returns a
// validated Config or an error if loading/validation fails.
func Load() (*Config, error) {
	v := viper.New()

	v.SetDefault("server.port", 8080)
	v.SetDefault("server.log_level", "info")

	v.SetDefault("toast.base_url", "https://ws-api.toasttab.com")
	v.SetDefault("toast.auth_url", "https://ws-api.toasttab.com/authentication/v1/authentication/login")
	v.SetDefault("toast.client_id", "")
	v.SetDefault("toast.client_secret", "")
	v.SetDefault("toast.locations", defaultLocations)

	v.SetDefault("delivery.default_webhook_url", "")
	v.SetDefault("delivery.max_attempts", 3)
	v.SetDefault("delivery.retry_wait_min", "1s")
	v.SetDefault("delivery.retry_wait_max", "30s")
	v.SetDefault("delivery.timeout", "10s")

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	// EXPORT_SERVER_PORT, EXPORT_TOAST_CLIENT_ID, and so on.
	v.SetEnvPrefix("EXPORT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}

	if err := validator.New().Struct(&cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	if _, err := cfg.Toast.LocationGUIDs(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}
