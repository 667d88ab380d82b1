// Package config loads the daemon's runtime configuration from environment
// variables, config.yaml, and built-in defaults, in that order of precedence.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Watcher holds filesystem watch pipeline tuning.
type Watcher struct {
	DebounceMS int `mapstructure:"debounce_ms"`
	Workers    int `mapstructure:"workers"`
}

// Jobs holds scheduler tuning.
type Jobs struct {
	Workers     int `mapstructure:"workers"`
	PollMS      int `mapstructure:"poll_ms"`
	MaxAttempts int `mapstructure:"max_attempts"`
}

// Thumbs holds the thumbnail service's cache and scheduling tuning.
type Thumbs struct {
	Workers       int    `mapstructure:"workers"`
	CacheDir      string `mapstructure:"cache_dir"`
	MaxCacheBytes int64  `mapstructure:"max_cache_bytes"`
	MaxEntries    int    `mapstructure:"max_entries"`
}

// Admin holds the localhost debug surface's configuration.
type Admin struct {
	Enabled bool   `mapstructure:"enabled"`
	Addr    string `mapstructure:"addr"`
}

// Logging holds internal/logger wiring.
type Logging struct {
	Level         string `mapstructure:"level"`
	Dir           string `mapstructure:"dir"`
	ConsoleOutput bool   `mapstructure:"console_output"`
	ConsoleColor  bool   `mapstructure:"console_color"`
}

// Config is the fully resolved daemon configuration.
type Config struct {
	DataDir    string   `mapstructure:"data_dir"`
	SocketPath string   `mapstructure:"socket_path"`
	Roots      []string `mapstructure:"roots"`
	Watcher    Watcher  `mapstructure:"watcher"`
	Jobs       Jobs     `mapstructure:"jobs"`
	Thumbs     Thumbs   `mapstructure:"thumbs"`
	Admin      Admin    `mapstructure:"admin"`
	Logging    Logging  `mapstructure:"logging"`
}

// DebounceDuration returns the watcher debounce delay as a time.Duration.
func (c Config) DebounceDuration() time.Duration {
	return time.Duration(c.Watcher.DebounceMS) * time.Millisecond
}

// JobsPollInterval returns the scheduler dispatch poll interval.
func (c Config) JobsPollInterval() time.Duration {
	return time.Duration(c.Jobs.PollMS) * time.Millisecond
}

func defaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", "Lunio")
	}
	return filepath.Join(home, "Lunio")
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("data_dir", defaultDataDir())
	v.SetDefault("socket_path", filepath.Join(defaultDataDir(), "runtime", "lunio.sock"))

	v.SetDefault("watcher.debounce_ms", 250)
	v.SetDefault("watcher.workers", 4)

	v.SetDefault("jobs.workers", 4)
	v.SetDefault("jobs.poll_ms", 50)
	v.SetDefault("jobs.max_attempts", 3)

	v.SetDefault("thumbs.workers", 2)
	v.SetDefault("thumbs.cache_dir", filepath.Join(defaultDataDir(), "data", "thumbs"))
	v.SetDefault("thumbs.max_cache_bytes", int64(512*1024*1024))
	v.SetDefault("thumbs.max_entries", 20000)

	v.SetDefault("admin.enabled", false)
	v.SetDefault("admin.addr", "127.0.0.1:7777")

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.dir", filepath.Join(defaultDataDir(), "logs"))
	v.SetDefault("logging.console_output", true)
	v.SetDefault("logging.console_color", true)
}

// Load reads configuration from configPath (if non-empty and present), the
// environment (prefixed LUNIO_, nested keys joined with underscores), and
// falls back to defaults for anything unset. A missing config file is not an
// error: the daemon runs on defaults alone.
func Load(configPath string) (Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix("LUNIO")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configPath != "" {
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			if _, ok := err.(viper.ConfigFileNotFoundError); !ok && !os.IsNotExist(err) {
				return Config{}, fmt.Errorf("config: reading %s: %w", configPath, err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("config: decoding: %w", err)
	}

	if cfg.SocketPath == "" {
		cfg.SocketPath = filepath.Join(cfg.DataDir, "runtime", "lunio.sock")
	}
	if cfg.Thumbs.CacheDir == "" {
		cfg.Thumbs.CacheDir = filepath.Join(cfg.DataDir, "data", "thumbs")
	}
	if cfg.Logging.Dir == "" {
		cfg.Logging.Dir = filepath.Join(cfg.DataDir, "logs")
	}

	return cfg, nil
}
