// Package config loads daemon configuration from YAML with .env and
// environment variable overrides.
package config

import (
	"log"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Languages accepted for share entries. Informational only: the bridge polls
// the same endpoint regardless, but the preference is kept for display.
var Languages = map[string]string{
	"fr": "Français",
	"en": "English",
	"es": "Español",
	"de": "Deutsch",
}

const (
	DefaultLanguage        = "fr"
	DefaultScanIntervalMin = 5
	MinScanIntervalMin     = 1
	MaxScanIntervalMin     = 60
)

// Config holds all daemon configuration.
type Config struct {
	Server  ServerConfig  `yaml:"server" json:"server"`
	Shares  []ShareConfig `yaml:"shares" json:"shares"`
	Redis   RedisConfig   `yaml:"redis" json:"redis"`
	Logging LoggingConfig `yaml:"logging" json:"logging"`
}

// ShareConfig is one configured ride share.
type ShareConfig struct {
	ShareURL            string `yaml:"share_url" json:"shareUrl"`
	Language            string `yaml:"language" json:"language"`
	ScanIntervalMinutes int    `yaml:"scan_interval_minutes" json:"scanIntervalMinutes"`
}

// RedisConfig enables the optional last-seen store when Addr is set.
type RedisConfig struct {
	Addr     string `yaml:"addr" json:"addr"`
	Password string `yaml:"password" json:"-"`
	DB       int    `yaml:"db" json:"db"`
}

// LoggingConfig controls the CSV ride log.
type LoggingConfig struct {
	Enabled    bool   `yaml:"enabled" json:"enabled"`
	Path       string `yaml:"path" json:"path"`
	IntervalMs int    `yaml:"interval_ms" json:"intervalMs"`
}

// ServerConfig holds the HTTP listener settings.
type ServerConfig struct {
	ListenAddr string `yaml:"listen_addr" json:"listenAddr"`
}

// DefaultConfig returns a config with sensible defaults and no shares.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{ListenAddr: ":8099"},
		Logging: LoggingConfig{
			Enabled:    false,
			Path:       "/var/log/libertyrider",
			IntervalMs: 1000,
		},
	}
}

// LoadConfig reads config from a YAML file, then applies .env and environment
// variable overrides. Falls back to defaults if the YAML is missing.
func LoadConfig(path string) *Config {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		log.Printf("[config] no config at %s, using defaults", path)
	} else if err := yaml.Unmarshal(data, cfg); err != nil {
		log.Printf("[config] error parsing %s: %v, using defaults", path, err)
		cfg = DefaultConfig()
	} else {
		log.Printf("[config] loaded from %s", path)
	}

	// .env next to the config file, or in CWD; real env takes precedence.
	for _, ep := range []string{filepath.Join(filepath.Dir(path), ".env"), ".env"} {
		loadEnvFile(ep)
	}

	cfg.applyEnvOverrides()
	cfg.Normalize()
	return cfg
}

// Normalize applies per-share defaults and bounds: language falls back to fr,
// scan interval is clamped to [1, 60] minutes with a default of 5.
func (c *Config) Normalize() {
	for i := range c.Shares {
		share := &c.Shares[i]
		if _, ok := Languages[share.Language]; !ok {
			if share.Language != "" {
				log.Printf("[config] unknown language %q, using %s", share.Language, DefaultLanguage)
			}
			share.Language = DefaultLanguage
		}
		if share.ScanIntervalMinutes == 0 {
			share.ScanIntervalMinutes = DefaultScanIntervalMin
		}
		if share.ScanIntervalMinutes < MinScanIntervalMin {
			share.ScanIntervalMinutes = MinScanIntervalMin
		}
		if share.ScanIntervalMinutes > MaxScanIntervalMin {
			share.ScanIntervalMinutes = MaxScanIntervalMin
		}
	}
}

// loadEnvFile reads a simple KEY=VALUE .env file and sets os env vars.
func loadEnvFile(path string) {
	data, err := os.ReadFile(path)
	if err != nil {
		return
	}
	log.Printf("[config] loading .env from %s", path)
	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		parts := strings.SplitN(line, "=", 2)
		if len(parts) != 2 {
			continue
		}
		key := strings.TrimSpace(parts[0])
		val := strings.Trim(strings.TrimSpace(parts[1]), `"'`)
		if os.Getenv(key) == "" {
			os.Setenv(key, val)
		}
	}
}

// applyEnvOverrides reads environment variables and overrides config values.
// Supported: LISTEN_ADDR, REDIS_ADDR, REDIS_PASSWORD, REDIS_DB, LOG_ENABLED,
// LOG_PATH, LOG_INTERVAL_MS, SHARE_URL, SHARE_LANGUAGE, SCAN_INTERVAL_MINUTES.
func (c *Config) applyEnvOverrides() {
	if v := os.Getenv("LISTEN_ADDR"); v != "" {
		c.Server.ListenAddr = v
	}
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		c.Redis.Addr = v
	}
	if v := os.Getenv("REDIS_PASSWORD"); v != "" {
		c.Redis.Password = v
	}
	if v := os.Getenv("REDIS_DB"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.Redis.DB = n
		}
	}
	if v := os.Getenv("LOG_ENABLED"); v != "" {
		c.Logging.Enabled = v == "1" || v == "true" || v == "yes"
	}
	if v := os.Getenv("LOG_PATH"); v != "" {
		c.Logging.Path = v
	}
	if v := os.Getenv("LOG_INTERVAL_MS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.Logging.IntervalMs = n
		}
	}

	// SHARE_URL defines a single share when the YAML lists none, handy for
	// container deployments.
	if v := os.Getenv("SHARE_URL"); v != "" && len(c.Shares) == 0 {
		share := ShareConfig{ShareURL: v, Language: os.Getenv("SHARE_LANGUAGE")}
		if iv := os.Getenv("SCAN_INTERVAL_MINUTES"); iv != "" {
			if n, err := strconv.Atoi(iv); err == nil {
				share.ScanIntervalMinutes = n
			}
		}
		c.Shares = append(c.Shares, share)
	}
}
