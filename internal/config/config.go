// Package config layers wfmk settings from defaults, an optional YAML
// config file, WFMK_* environment variables, and CLI flags (applied by
// the caller), in that order of precedence.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/wfmk/wfmk/internal/market"
)

// Defaults for every tunable.
const (
	DefaultPlatform  = "pc"
	DefaultLanguage  = "en"
	DefaultTTLItems  = "1d"
	DefaultTTLOrders = "10m"
	DefaultRateLimit = 180
	DefaultTimeout   = "15s"
	DefaultOutput    = "table"
)

// Output format names accepted by --output.
const (
	OutputTable  = "table"
	OutputJSON   = "json"
	OutputNDJSON = "ndjson"
)

// Config is the raw, stringly-typed configuration as read from file,
// environment, and flags. Resolve validates it into Settings.
type Config struct {
	Platform  string `yaml:"platform"`
	Language  string `yaml:"language"`
	CacheDir  string `yaml:"cache_dir"`
	NoCache   bool   `yaml:"no_cache"`
	TTLItems  string `yaml:"ttl_items"`
	TTLOrders string `yaml:"ttl_orders"`
	RateLimit int    `yaml:"rate_limit"`
	Timeout   string `yaml:"timeout"`
	Output    string `yaml:"output"`
}

// Settings is the validated, typed configuration the rest of the tool
// consumes.
type Settings struct {
	Platform  market.Platform
	Language  string
	CacheDir  string
	NoCache   bool
	TTLItems  time.Duration
	TTLOrders time.Duration
	RateLimit int
	Timeout   time.Duration
	Output    string
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Platform:  DefaultPlatform,
		Language:  DefaultLanguage,
		CacheDir:  DefaultCacheDir(),
		TTLItems:  DefaultTTLItems,
		TTLOrders: DefaultTTLOrders,
		RateLimit: DefaultRateLimit,
		Timeout:   DefaultTimeout,
		Output:    DefaultOutput,
	}
}

// DefaultCacheDir returns the platform cache location for wfmk,
// falling back to a temp path when the user cache dir is unknown.
func DefaultCacheDir() string {
	base, err := os.UserCacheDir()
	if err != nil {
		return filepath.Join(os.TempDir(), "wfmk-cache")
	}
	return filepath.Join(base, "wfmk")
}

// DefaultConfigPath returns the expected config file location.
func DefaultConfigPath() string {
	base, err := os.UserConfigDir()
	if err != nil {
		return ""
	}
	return filepath.Join(base, "wfmk", "config.yaml")
}

// Load builds a Config from defaults, the YAML file at path (skipped
// when absent or path is empty), and WFMK_* environment variables.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case err == nil:
			if err := yaml.Unmarshal(data, &cfg); err != nil {
				return Config{}, fmt.Errorf("parsing config file %s: %w", path, err)
			}
		case os.IsNotExist(err):
			// Config file is optional.
		default:
			return Config{}, fmt.Errorf("reading config file %s: %w", path, err)
		}
	}

	cfg.applyEnv()
	return cfg, nil
}

// applyEnv overlays WFMK_* environment variables.
func (c *Config) applyEnv() {
	setString := func(dst *string, key string) {
		if v := os.Getenv(key); v != "" {
			*dst = v
		}
	}
	setString(&c.Platform, "WFMK_PLATFORM")
	setString(&c.Language, "WFMK_LANGUAGE")
	setString(&c.CacheDir, "WFMK_CACHE_DIR")
	setString(&c.TTLItems, "WFMK_TTL_ITEMS")
	setString(&c.TTLOrders, "WFMK_TTL_ORDERS")
	setString(&c.Timeout, "WFMK_TIMEOUT")
	setString(&c.Output, "WFMK_OUTPUT")

	if v := os.Getenv("WFMK_RATE_LIMIT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.RateLimit = n
		}
	}
	if v := os.Getenv("WFMK_NO_CACHE"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			c.NoCache = b
		}
	}
}

// Resolve validates the configuration and converts it to typed
// Settings. Every invalid value is caught here, at startup, never at
// first use.
func (c Config) Resolve() (Settings, error) {
	platform, err := market.ParsePlatform(c.Platform)
	if err != nil {
		return Settings{}, err
	}

	if c.Language == "" {
		return Settings{}, errors.New("language cannot be empty")
	}

	ttlItems, err := ParseTTL(c.TTLItems)
	if err != nil {
		return Settings{}, fmt.Errorf("ttl_items: %w", err)
	}
	if ttlItems <= 0 {
		return Settings{}, fmt.Errorf("ttl_items must be positive, got %q", c.TTLItems)
	}
	ttlOrders, err := ParseTTL(c.TTLOrders)
	if err != nil {
		return Settings{}, fmt.Errorf("ttl_orders: %w", err)
	}
	if ttlOrders <= 0 {
		return Settings{}, fmt.Errorf("ttl_orders must be positive, got %q", c.TTLOrders)
	}

	if c.RateLimit <= 0 {
		return Settings{}, fmt.Errorf("rate_limit must be positive, got %d", c.RateLimit)
	}

	timeout, err := time.ParseDuration(c.Timeout)
	if err != nil {
		return Settings{}, fmt.Errorf("timeout: %w", err)
	}
	if timeout <= 0 {
		return Settings{}, fmt.Errorf("timeout must be positive, got %s", c.Timeout)
	}

	switch c.Output {
	case OutputTable, OutputJSON, OutputNDJSON:
	default:
		return Settings{}, fmt.Errorf("unknown output format %q (expected table, json, or ndjson)", c.Output)
	}

	cacheDir := c.CacheDir
	if cacheDir == "" {
		cacheDir = DefaultCacheDir()
	}

	return Settings{
		Platform:  platform,
		Language:  c.Language,
		CacheDir:  cacheDir,
		NoCache:   c.NoCache,
		TTLItems:  ttlItems,
		TTLOrders: ttlOrders,
		RateLimit: c.RateLimit,
		Timeout:   timeout,
		Output:    c.Output,
	}, nil
}

// ttlPattern accepts a count with a single unit suffix: 1d, 24h, 1440m,
// 86400s, or a bare second count.
var ttlPattern = regexp.MustCompile(`^(\d+)([dhms]?)$`)

// ParseTTL parses a cache TTL string. Unlike time.ParseDuration it
// accepts day suffixes and bare second counts, matching the accepted
// flag grammar (e.g. "1d", "24h", "1440m", "86400").
func ParseTTL(s string) (time.Duration, error) {
	m := ttlPattern.FindStringSubmatch(s)
	if m == nil {
		return 0, fmt.Errorf("invalid time value %q", s)
	}

	n, err := strconv.Atoi(m[1])
	if err != nil {
		return 0, fmt.Errorf("invalid time value %q", s)
	}

	switch m[2] {
	case "d":
		return time.Duration(n) * 24 * time.Hour, nil
	case "h":
		return time.Duration(n) * time.Hour, nil
	case "m":
		return time.Duration(n) * time.Minute, nil
	default:
		return time.Duration(n) * time.Second, nil
	}
}
