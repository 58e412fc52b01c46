package config

import (
	"os"
	"path/filepath"
)

// BaseDir returns ~/.leaguechat.
func BaseDir() string {
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".leaguechat")
}

// Path returns the config file path.
func Path() string {
	return filepath.Join(BaseDir(), "config.toml")
}

// CachePath returns the scrollback cache database path, honoring the
// configured override.
func (c *Config) CachePath() string {
	if c.Cache.Path != "" {
		return c.Cache.Path
	}
	return filepath.Join(BaseDir(), "cache.db")
}

// LogDir returns the log directory.
func LogDir() string {
	return filepath.Join(BaseDir(), "logs")
}

// LogPath returns the client log file path.
func LogPath() string {
	return filepath.Join(LogDir(), "leaguechat.log")
}

// EnsureDirs creates the config directory tree with owner-only permissions.
func EnsureDirs() error {
	for _, d := range []string{BaseDir(), LogDir()} {
		if err := os.MkdirAll(d, 0700); err != nil {
			return err
		}
	}
	return nil
}
