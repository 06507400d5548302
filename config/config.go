// Package config loads server configuration from a TOML file with
// environment-variable overrides for the deployment-sensitive values.
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/BurntSushi/toml"
)

// Config is the full server configuration.
type Config struct {
	Addr          string      `toml:"addr"`
	PresetFile    string      `toml:"preset_file"`
	PreviewURL    string      `toml:"preview_url"`
	LogLevel      string      `toml:"log_level"`
	SessionTTL    Duration    `toml:"session_ttl"`
	SweepSchedule string      `toml:"sweep_schedule"`
	Cache         CacheConfig `toml:"cache"`
}

// CacheConfig selects and tunes the preview response cache.
type CacheConfig struct {
	Backend   string   `toml:"backend"` // memory | redis | none
	TTL       Duration `toml:"ttl"`
	RedisAddr string   `toml:"redis_addr"`
}

// Duration lets TOML values like "30m" decode into a time.Duration.
type Duration time.Duration

func (d *Duration) UnmarshalText(text []byte) error {
	parsed, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	*d = Duration(parsed)
	return nil
}

func (d Duration) Std() time.Duration {
	return time.Duration(d)
}

// Default returns the configuration used when no file is present.
func Default() Config {
	return Config{
		Addr:          ":8080",
		PresetFile:    "/data/presets.json",
		PreviewURL:    "http://localhost:9000",
		LogLevel:      "info",
		SessionTTL:    Duration(30 * time.Minute),
		SweepSchedule: "@every 1m",
		Cache: CacheConfig{
			Backend: "memory",
			TTL:     Duration(5 * time.Minute),
		},
	}
}

// Load reads path on top of the defaults, then applies environment
// overrides. A missing file is not an error — defaults plus environment
// apply.
func Load(path string) (Config, error) {
	cfg := Default()

	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			return Config{}, fmt.Errorf("config %s: %w", path, err)
		}
	}

	if port := os.Getenv("PORT"); port != "" {
		cfg.Addr = ":" + port
	}
	if v := os.Getenv("PRESET_FILE"); v != "" {
		cfg.PresetFile = v
	}
	if v := os.Getenv("PREVIEW_URL"); v != "" {
		cfg.PreviewURL = v
	}
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		cfg.Cache.RedisAddr = v
		cfg.Cache.Backend = "redis"
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.LogLevel = v
	}
	return cfg, nil
}
