package model

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/viper"
)

// ServerConfig holds the connection settings for the dashboard backend.
type ServerConfig struct {
	// BaseURL is the root URL of the REST API
	// (e.g., https://dash.example.com/api/v1).
	BaseURL string `mapstructure:"base_url" yaml:"base_url"`

	// SocketURL is the root URL of the realtime endpoint. When empty it
	// is derived from BaseURL by stripping the API path prefix.
	SocketURL string `mapstructure:"socket_url" yaml:"socket_url"`

	// OrganizationID is the active tenant context sent with every
	// authenticated request. Empty means no tenant header is attached.
	OrganizationID string `mapstructure:"organization_id" yaml:"organization_id"`
}

// SessionConfig controls how long persisted credentials remain valid.
type SessionConfig struct {
	// AccessTokenTTLDays is the lifetime of the persisted access token.
	AccessTokenTTLDays int `mapstructure:"access_token_ttl_days" yaml:"access_token_ttl_days"`

	// RefreshTokenTTLDays is the lifetime of the persisted refresh token.
	RefreshTokenTTLDays int `mapstructure:"refresh_token_ttl_days" yaml:"refresh_token_ttl_days"`
}

// RealtimeConfig controls the notification channel's reconnect behavior.
type RealtimeConfig struct {
	// ReconnectAttempts is how many times a dropped connection is retried
	// before giving up.
	ReconnectAttempts int `mapstructure:"reconnect_attempts" yaml:"reconnect_attempts"`

	// ReconnectDelayMS is the fixed delay between reconnect attempts.
	ReconnectDelayMS int `mapstructure:"reconnect_delay_ms" yaml:"reconnect_delay_ms"`
}

// AppConfig is the top-level application configuration.
type AppConfig struct {
	Server   ServerConfig   `mapstructure:"server" yaml:"server"`
	Session  SessionConfig  `mapstructure:"session" yaml:"session"`
	Realtime RealtimeConfig `mapstructure:"realtime" yaml:"realtime"`

	// DatabasePath is the location of the local notification cache.
	DatabasePath string `mapstructure:"database_path" yaml:"database_path"`
}

// DefaultConfigPath returns the default path for the configuration file,
// located at ~/.config/dashterm/config.yaml.
func DefaultConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", "config.yaml")
	}
	return filepath.Join(home, ".config", "dashterm", "config.yaml")
}

// DefaultDatabasePath returns the default path for the local cache database,
// located at ~/.local/share/dashterm/cache.db.
func DefaultDatabasePath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", "cache.db")
	}
	return filepath.Join(home, ".local", "share", "dashterm", "cache.db")
}

// defaultAppConfig returns a sensible default configuration.
func defaultAppConfig() *AppConfig {
	return &AppConfig{
		Server: ServerConfig{
			BaseURL: "http://localhost:3000/api/v1",
		},
		Session: SessionConfig{
			AccessTokenTTLDays:  7,
			RefreshTokenTTLDays: 30,
		},
		Realtime: RealtimeConfig{
			ReconnectAttempts: 5,
			ReconnectDelayMS:  1000,
		},
		DatabasePath: DefaultDatabasePath(),
	}
}

// LoadConfig reads configuration from the given YAML file path using Viper.
// If the file does not exist, it returns a default configuration.
func LoadConfig(path string) (*AppConfig, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	// Set defaults so missing keys resolve to sensible values.
	v.SetDefault("server.base_url", "http://localhost:3000/api/v1")
	v.SetDefault("session.access_token_ttl_days", 7)
	v.SetDefault("session.refresh_token_ttl_days", 30)
	v.SetDefault("realtime.reconnect_attempts", 5)
	v.SetDefault("realtime.reconnect_delay_ms", 1000)
	v.SetDefault("database_path", DefaultDatabasePath())

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(*os.PathError); ok {
			return defaultAppConfig(), nil
		}
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return defaultAppConfig(), nil
		}
		return nil, fmt.Errorf("reading config %s: %w", path, err)
	}

	cfg := defaultAppConfig()
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}

	return cfg, nil
}

// SaveConfig writes the given configuration to a YAML file at path,
// creating parent directories if needed.
func SaveConfig(path string, cfg *AppConfig) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating config directory %s: %w", dir, err)
	}

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	v.Set("server", cfg.Server)
	v.Set("session", cfg.Session)
	v.Set("realtime", cfg.Realtime)
	v.Set("database_path", cfg.DatabasePath)

	if err := v.WriteConfigAs(path); err != nil {
		return fmt.Errorf("writing config to %s: %w", path, err)
	}

	return nil
}
