package config

import (
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"
)

// Config is the explicit client configuration (~/.leaguechat/config.toml).
// Everything the chat view needs (identity, channel, feature flags) is
// passed in here rather than looked up from ambient state.
type Config struct {
	ServerURL       string `toml:"server_url"`
	DefaultChannel  string `toml:"default_channel"`
	AuthToken       string `toml:"auth_token"`
	SendTimeoutSecs int    `toml:"send_timeout_secs"`

	User     UserConfig    `toml:"user"`
	Cache    CacheConfig   `toml:"cache"`
	Features FeatureConfig `toml:"features"`
}

// UserConfig is the local user's identity in the league.
type UserConfig struct {
	ID     string `toml:"id"`
	Name   string `toml:"name"`
	Email  string `toml:"email"`
	Avatar string `toml:"avatar"`
}

// CacheConfig controls the local scrollback cache.
type CacheConfig struct {
	Enabled bool   `toml:"enabled"`
	Path    string `toml:"path"`
}

// FeatureConfig holds feature flags mirrored from the product config.
type FeatureConfig struct {
	Presence     bool `toml:"presence"`
	ReadReceipts bool `toml:"read_receipts"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		SendTimeoutSecs: 30,
		Features:        FeatureConfig{Presence: true, ReadReceipts: true},
	}
}

// SendTimeout returns the configured send confirmation timeout.
func (c *Config) SendTimeout() time.Duration {
	if c.SendTimeoutSecs <= 0 {
		return 30 * time.Second
	}
	return time.Duration(c.SendTimeoutSecs) * time.Second
}

// Load reads config from the given path, layered over Default. Returns an
// error if the file is missing.
func Load(path string) (*Config, error) {
	cfg := Default()
	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Save writes config to the given path, creating parent dirs as needed.
func Save(path string, cfg *Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return err
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
	if err != nil {
		return err
	}
	encErr := toml.NewEncoder(f).Encode(cfg)
	if closeErr := f.Close(); closeErr != nil && encErr == nil {
		return closeErr
	}
	return encErr
}

// ResolveChannel determines the active channel key using precedence:
// 1. flag override, 2. config default_channel.
func (c *Config) ResolveChannel(flagOverride string) string {
	if flagOverride != "" {
		return flagOverride
	}
	return c.DefaultChannel
}
