package config

import (
	"fmt"
	"strconv"
	"time"
)

// Config holds all application configuration.
// It organizes settings into logical groups for better maintainability.
type Config struct {
	Server   ServerConfig   `mapstructure:"server"   validate:"required"`
	Toast    ToastConfig    `mapstructure:"toast"    validate:"required"`
	Delivery DeliveryConfig `mapstructure:"delivery" validate:"required"`
}

// ServerConfig contains all HTTP server related settings.
type ServerConfig struct {
	Port     int    `mapstructure:"port"      validate:"required,gt=0,lt=65536"`
	LogLevel string `mapstructure:"log_level" validate:"required,oneof=debug info warn error"`
}

// ToastConfig contains the upstream Toast API endpoints, the machine client
// credentials, and the location index to restaurant GUID table.
type ToastConfig struct {
	BaseURL      string `mapstructure:"base_url"      validate:"required,url"`
	AuthURL      string `mapstructure:"auth_url"      validate:"required,url"`
	ClientID     string `mapstructure:"client_id"     validate:"required"`
	ClientSecret string `mapstructure:"client_secret" validate:"required"`

	// Locations maps a location index (as a string key, for config file and
	// env friendliness) to the restaurant GUID sent upstream.
	Locations map[string]string `mapstructure:"locations" validate:"required,min=1"`
}

// LocationGUIDs returns the location table keyed by integer index.
func (c ToastConfig) LocationGUIDs() (map[int]string, error) {
	locations := make(map[int]string, len(c.Locations))
	for key, guid := range c.Locations {
		index, err := strconv.Atoi(key)
		if err != nil {
			return nil, fmt.Errorf("location index %q is not an integer", key)
		}
		locations[index] = guid
	}
	return locations, nil
}

// DeliveryConfig contains the webhook delivery policy.
type DeliveryConfig struct {
	// DefaultWebhookURL is the target for requests that ask for default
	// delivery. May be empty, in which case such requests are rejected at
	// validation time.
	DefaultWebhookURL string `mapstructure:"default_webhook_url" validate:"omitempty,url"`

	MaxAttempts  int           `mapstructure:"max_attempts"   validate:"required,gte=1"`
	RetryWaitMin time.Duration `mapstructure:"retry_wait_min" validate:"required"`
	RetryWaitMax time.Duration `mapstructure:"retry_wait_max" validate:"required"`
	Timeout      time.Duration `mapstructure:"timeout"        validate:"required"`
}
