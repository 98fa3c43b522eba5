// Package config loads spry configuration from .spry.yml, SPRY_* environment
// variables and command-line flags, with flags taking highest precedence.
package config

import (
	"fmt"

	"github.com/spf13/viper"
)

// Config is the root configuration for the spry CLI and preview server.
type Config struct {
	Server ServerConfig `mapstructure:"server"`
	Render RenderConfig `mapstructure:"render"`
	Log    LogConfig    `mapstructure:"log"`
	Watch  WatchConfig  `mapstructure:"watch"`
}

// ServerConfig configures the preview server.
type ServerConfig struct {
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`
	Open bool   `mapstructure:"open"`
}

// RenderConfig configures the engine.
type RenderConfig struct {
	// Template is the path of the master template file.
	Template string `mapstructure:"template"`
	// Data is the path of a JSON or YAML data file applied at startup.
	Data string `mapstructure:"data"`
	// Placeholder is rendered for missing interpolation values.
	Placeholder string `mapstructure:"placeholder"`
	// Debug enables verbose render tracing.
	Debug bool `mapstructure:"debug"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// WatchConfig configures the file watcher driving live reload.
type WatchConfig struct {
	// Paths are the directories watched recursively.
	Paths []string `mapstructure:"paths"`
	// DebounceMs groups rapid changes before re-rendering.
	DebounceMs int `mapstructure:"debounce_ms"`
}

// Load unmarshals the active viper state into a validated Config.
func Load() (*Config, error) {
	setDefaults()

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func setDefaults() {
	viper.SetDefault("server.host", "localhost")
	viper.SetDefault("server.port", 8090)
	viper.SetDefault("render.placeholder", "")
	viper.SetDefault("log.level", "info")
	viper.SetDefault("log.format", "text")
	viper.SetDefault("watch.paths", []string{"."})
	viper.SetDefault("watch.debounce_ms", 100)
}

// Validate rejects configurations the runtime cannot honor.
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port %d", c.Server.Port)
	}
	switch c.Log.Format {
	case "", "text", "json":
	default:
		return fmt.Errorf("invalid log format %q (want text or json)", c.Log.Format)
	}
	if c.Watch.DebounceMs < 0 {
		return fmt.Errorf("invalid watch debounce %dms", c.Watch.DebounceMs)
	}
	return nil
}
