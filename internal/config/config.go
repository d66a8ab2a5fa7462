// Package config handles wdlplay configuration using Viper.
//
// Configuration sources (in priority order):
//  1. Environment variables (WDLPLAY_*), including those from ./.env
//  2. Config file (~/.config/wdlplay/config.yaml)
//  3. Built-in defaults
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/musher-dev/wdlplay/internal/paths"
)

const (
	// DefaultServerURL is the checker and engine endpoint of a local playground.
	DefaultServerURL = "http://localhost:3000"
	// DefaultCheckDebounce is how long edits settle before a check.
	DefaultCheckDebounce = 100 * time.Millisecond
	// DefaultCheckTimeout bounds one checker call.
	DefaultCheckTimeout = 10 * time.Second
	// DefaultCheckCacheSize is the number of verdicts remembered per source.
	DefaultCheckCacheSize = 64
	// DefaultDialTimeout bounds opening the order channel.
	DefaultDialTimeout = 10 * time.Second
	// DefaultTheme selects colors from the terminal background.
	DefaultTheme = "auto"

	envFile = ".env"
)

// Keys lists every key wdlplay understands.
var Keys = []string{
	"server.url",
	"session.url",
	"check.debounce",
	"check.timeout",
	"check.cache_size",
	"session.dial_timeout",
	"ui.theme",
}

var themes = []string{"auto", "dark", "light"}

// Config holds the wdlplay configuration.
type Config struct {
	v *viper.Viper
}

// Load reads configuration from all sources.
func Load() *Config {
	if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
		fmt.Fprintf(os.Stderr, "Warning: error reading %s: %v\n", envFile, err)
	}

	v := viper.New()

	v.SetDefault("server.url", DefaultServerURL)
	v.SetDefault("session.url", "")
	v.SetDefault("check.debounce", DefaultCheckDebounce)
	v.SetDefault("check.timeout", DefaultCheckTimeout)
	v.SetDefault("check.cache_size", DefaultCheckCacheSize)
	v.SetDefault("session.dial_timeout", DefaultDialTimeout)
	v.SetDefault("ui.theme", DefaultTheme)

	if root, err := paths.ConfigRoot(); err == nil {
		v.AddConfigPath(root)
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}

	v.SetEnvPrefix("WDLPLAY")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			fmt.Fprintf(os.Stderr, "Warning: error reading config file: %v\n", err)
		}
	}

	return &Config{v: v}
}

// Known reports whether key is a wdlplay setting.
func Known(key string) bool {
	return slices.Contains(Keys, key)
}

// Get returns a configuration value.
func (c *Config) Get(key string) any {
	return c.v.Get(key)
}

// GetString returns a configuration value as string.
func (c *Config) GetString(key string) string {
	return c.v.GetString(key)
}

// GetInt returns a configuration value as int.
func (c *Config) GetInt(key string) int {
	return c.v.GetInt(key)
}

// Set sets a configuration value and persists it.
func (c *Config) Set(key string, value any) error {
	c.v.Set(key, value)

	if err := c.Validate(); err != nil {
		return err
	}

	configFile, err := paths.ConfigFile()
	if err != nil {
		return fmt.Errorf("resolve config file: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(configFile), 0o700); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}

	if err := c.v.WriteConfigAs(configFile); err != nil {
		return fmt.Errorf("write config: %w", err)
	}

	return nil
}

// All returns all configuration as a map.
func (c *Config) All() map[string]any {
	return c.v.AllSettings()
}

// Validate rejects values the rest of wdlplay cannot use.
func (c *Config) Validate() error {
	var errs []error

	for _, key := range []string{"check.debounce", "check.timeout", "session.dial_timeout"} {
		if d := c.v.GetDuration(key); d <= 0 {
			errs = append(errs, fmt.Errorf("%s must be a positive duration, got %q", key, c.v.GetString(key)))
		}
	}

	if c.CacheSize() < 0 {
		errs = append(errs, errors.New("check.cache_size must not be negative"))
	}

	if !slices.Contains(themes, c.Theme()) {
		errs = append(errs, fmt.Errorf("ui.theme must be one of %s", strings.Join(themes, ", ")))
	}

	return errors.Join(errs...)
}

// ServerURL returns the checker base URL.
func (c *Config) ServerURL() string {
	return strings.TrimRight(c.GetString("server.url"), "/")
}

// SessionURL returns the explicit order channel URL, or "" to derive it from
// the server URL.
func (c *Config) SessionURL() string {
	return c.GetString("session.url")
}

// CheckDebounce returns the edit debounce window.
func (c *Config) CheckDebounce() time.Duration {
	return c.v.GetDuration("check.debounce")
}

// CheckTimeout returns the per-check timeout.
func (c *Config) CheckTimeout() time.Duration {
	return c.v.GetDuration("check.timeout")
}

// CacheSize returns the verdict cache size; 0 disables caching.
func (c *Config) CacheSize() int {
	return c.GetInt("check.cache_size")
}

// DialTimeout returns the order channel dial timeout.
func (c *Config) DialTimeout() time.Duration {
	return c.v.GetDuration("session.dial_timeout")
}

// Theme returns the editor color theme.
func (c *Config) Theme() string {
	return c.GetString("ui.theme")
}
