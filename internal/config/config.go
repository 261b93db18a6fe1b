// Package config loads the client configuration from
// ~/.config/sealmail/config.yaml via viper, with defaults for every
// setting so a missing file still yields a working client.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/viper"
)

// Config is the top-level client configuration.
type Config struct {
	// BaseURL is the root URL of the mail service API.
	BaseURL string `mapstructure:"base_url" yaml:"base_url"`

	// DBPath is the sqlite cache location.
	DBPath string `mapstructure:"db_path" yaml:"db_path"`

	// PageSize is the mailbox fetch page size.
	PageSize int `mapstructure:"page_size" yaml:"page_size"`

	// PollIntervalSec is how often the watch loop polls for events.
	PollIntervalSec int `mapstructure:"poll_interval_sec" yaml:"poll_interval_sec"`

	// UndoWindowSec is how long a move stays undoable.
	UndoWindowSec int `mapstructure:"undo_window_sec" yaml:"undo_window_sec"`
}

// PollInterval returns the poll interval as a duration.
func (c *Config) PollInterval() time.Duration {
	return time.Duration(c.PollIntervalSec) * time.Second
}

// UndoWindow returns the undo window as a duration.
func (c *Config) UndoWindow() time.Duration {
	return time.Duration(c.UndoWindowSec) * time.Second
}

// DefaultPath returns the default configuration file location,
// ~/.config/sealmail/config.yaml.
func DefaultPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", "config.yaml")
	}
	return filepath.Join(home, ".config", "sealmail", "config.yaml")
}

// DefaultDBPath returns the default cache location,
// ~/.local/share/sealmail/cache.db.
func DefaultDBPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", "cache.db")
	}
	return filepath.Join(home, ".local", "share", "sealmail", "cache.db")
}

func defaults() *Config {
	return &Config{
		BaseURL:         "https://mail.sealmail.dev/api",
		DBPath:          DefaultDBPath(),
		PageSize:        1000,
		PollIntervalSec: 30,
		UndoWindowSec:   10,
	}
}

// Load reads the configuration from path. A missing file returns the
// defaults; a malformed file is an error.
func Load(path string) (*Config, error) {
	if path == "" {
		path = DefaultPath()
	}

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	cfg := defaults()
	v.SetDefault("base_url", cfg.BaseURL)
	v.SetDefault("db_path", cfg.DBPath)
	v.SetDefault("page_size", cfg.PageSize)
	v.SetDefault("poll_interval_sec", cfg.PollIntervalSec)
	v.SetDefault("undo_window_sec", cfg.UndoWindowSec)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !os.IsNotExist(err) {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	return cfg, nil
}

// Write saves the configuration as YAML, creating parent directories
// as needed. Used by `sm init` to seed a starter file.
func Write(path string, cfg *Config) error {
	if path == "" {
		path = DefaultPath()
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	v.Set("base_url", cfg.BaseURL)
	v.Set("db_path", cfg.DBPath)
	v.Set("page_size", cfg.PageSize)
	v.Set("poll_interval_sec", cfg.PollIntervalSec)
	v.Set("undo_window_sec", cfg.UndoWindowSec)

	if err := v.WriteConfigAs(path); err != nil {
		return fmt.Errorf("write config %s: %w", path, err)
	}
	return nil
}
