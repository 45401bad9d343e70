// Package config loads and validates larder's configuration: engine
// settings (thresholds, shelf lives, alert classes), daemon cadences, and
// collaborator endpoints. A YAML file is the source of truth; a .env file
// and process environment provide deployment overrides.
package config

import (
	"os"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	ferrors "git.home.luguber.info/inful/larder/internal/foundation/errors"
	"git.home.luguber.info/inful/larder/internal/freshness"
	"git.home.luguber.info/inful/larder/internal/monitor"
	"git.home.luguber.info/inful/larder/internal/notify"
)

// Duration is a time.Duration that unmarshals from YAML strings like "5m".
type Duration time.Duration

func (d *Duration) UnmarshalYAML(node *yaml.Node) error {
	var raw string
	if err := node.Decode(&raw); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(raw)
	if err != nil {
		return ferrors.ConfigError("invalid duration").
			WithContext("value", raw).WithCause(err).Build()
	}
	*d = Duration(parsed)
	return nil
}

func (d Duration) MarshalYAML() (any, error) {
	return time.Duration(d).String(), nil
}

func (d Duration) Std() time.Duration { return time.Duration(d) }

// Config is the root configuration document.
type Config struct {
	Log      LogConfig         `yaml:"log"`
	Store    StoreConfig       `yaml:"store"`
	Settings SettingsConfig    `yaml:"settings"`
	Monitor  MonitorConfig     `yaml:"monitor"`
	Refresh  RefreshConfig     `yaml:"refresh"`
	Cleanup  CleanupConfig     `yaml:"cleanup"`
	NATS     notify.NATSConfig `yaml:"nats"`
	HTTP     HTTPConfig        `yaml:"http"`
	Report   ReportConfig      `yaml:"report"`
}

type LogConfig struct {
	Level  string `yaml:"level"`  // debug|info|warn|error
	Format string `yaml:"format"` // text|json
}

type StoreConfig struct {
	// Path is the SQLite database path; ":memory:" selects an ephemeral store.
	Path string `yaml:"path"`
}

// SettingsConfig is the user-tunable engine settings: the settings
// provider of the lifecycle engine. It implements freshness.CategoryProfile.
type SettingsConfig struct {
	// NearExpiryThreshold is the generic near-expiry window in days.
	NearExpiryThreshold int `yaml:"near_expiry_threshold_days"`

	// CategoryThresholds overrides the near-expiry window per category.
	CategoryThresholds map[string]int `yaml:"category_thresholds"`

	// ShelfLives is the per-category default shelf life in days.
	ShelfLives map[string]int `yaml:"shelf_lives"`

	// DefaultShelfLife applies to categories absent from ShelfLives.
	DefaultShelfLife int `yaml:"default_shelf_life_days"`
}

// NearExpiryThresholdDays implements freshness.CategoryProfile.
func (s SettingsConfig) NearExpiryThresholdDays(category string) int {
	if days, ok := s.CategoryThresholds[category]; ok && days > 0 {
		return days
	}
	if s.NearExpiryThreshold > 0 {
		return s.NearExpiryThreshold
	}
	return freshness.DefaultNearExpiryThresholdDays
}

// ShelfLifeDays implements freshness.CategoryProfile.
func (s SettingsConfig) ShelfLifeDays(category string) int {
	if days, ok := s.ShelfLives[category]; ok && days > 0 {
		return days
	}
	if s.DefaultShelfLife > 0 {
		return s.DefaultShelfLife
	}
	return freshness.DefaultShelfLifeDays
}

type MonitorConfig struct {
	Interval Duration             `yaml:"interval"`
	Alerts   monitor.AlertClasses `yaml:"alerts"`
}

// RefreshConfig tunes the statistics refresh debouncer.
type RefreshConfig struct {
	QuietWindow Duration `yaml:"quiet_window"`
	MaxDelay    Duration `yaml:"max_delay"`
}

type CleanupConfig struct {
	Enabled bool `yaml:"enabled"`
	// Schedule is a cron expression for the sweep of stale used items.
	Schedule string `yaml:"schedule"`
}

type HTTPConfig struct {
	Enabled bool   `yaml:"enabled"`
	Addr    string `yaml:"addr"`
}

type ReportConfig struct {
	OutputDir string `yaml:"output_dir"`
}

// Default returns the configuration used when no file is present.
func Default() *Config {
	return &Config{
		Log:   LogConfig{Level: "info", Format: "text"},
		Store: StoreConfig{Path: "larder.db"},
		Settings: SettingsConfig{
			NearExpiryThreshold: freshness.DefaultNearExpiryThresholdDays,
			DefaultShelfLife:    freshness.DefaultShelfLifeDays,
		},
		Monitor: MonitorConfig{
			Interval: Duration(monitor.DefaultInterval),
			Alerts:   monitor.AlertClasses{NearExpiry: true, Expired: true},
		},
		Refresh: RefreshConfig{
			QuietWindow: Duration(500 * time.Millisecond),
			MaxDelay:    Duration(5 * time.Second),
		},
		Cleanup: CleanupConfig{Enabled: true, Schedule: "0 3 * * *"},
		NATS:    notify.NATSConfig{Subject: notify.DefaultSubject, Stream: notify.DefaultStream},
		HTTP:    HTTPConfig{Enabled: true, Addr: ":8085"},
		Report:  ReportConfig{OutputDir: "reports"},
	}
}

// Load reads the YAML file at path over the defaults, then applies .env and
// environment overrides. A missing file yields the defaults.
func Load(path string) (*Config, error) {
	// Missing .env files are fine; deployment may rely on real env vars.
	_ = godotenv.Load()

	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			applyEnv(cfg)
			return cfg, cfg.Validate()
		}
		return nil, ferrors.WrapError(err, ferrors.CategoryConfig, "read config file").
			WithContext("path", path).Build()
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, ferrors.WrapError(err, ferrors.CategoryConfig, "parse config file").
			WithContext("path", path).Build()
	}

	applyEnv(cfg)
	return cfg, cfg.Validate()
}

// applyEnv layers deployment overrides on top of the file values.
func applyEnv(cfg *Config) {
	if v := os.Getenv("LARDER_DB_PATH"); v != "" {
		cfg.Store.Path = v
	}
	if v := os.Getenv("LARDER_NATS_URL"); v != "" {
		cfg.NATS.URL = v
		cfg.NATS.Enabled = true
	}
	if v := os.Getenv("LARDER_HTTP_ADDR"); v != "" {
		cfg.HTTP.Addr = v
	}
	if v := os.Getenv("LARDER_LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}
}

// Validate rejects configurations the daemon cannot run with.
func (c *Config) Validate() error {
	if c.Store.Path == "" {
		return ferrors.ConfigError("store path is required").Build()
	}
	if c.Monitor.Interval.Std() < 0 {
		return ferrors.ConfigError("monitor interval cannot be negative").Build()
	}
	if c.Refresh.QuietWindow.Std() < 0 || c.Refresh.MaxDelay.Std() < 0 {
		return ferrors.ConfigError("refresh durations cannot be negative").Build()
	}
	if c.NATS.Enabled && c.NATS.URL == "" {
		return ferrors.ConfigError("nats enabled but url is empty").Build()
	}
	for category, days := range c.Settings.CategoryThresholds {
		if days < 0 {
			return ferrors.ConfigError("category threshold cannot be negative").
				WithContext("category", category).Build()
		}
	}
	for category, days := range c.Settings.ShelfLives {
		if days < 0 {
			return ferrors.ConfigError("shelf life cannot be negative").
				WithContext("category", category).Build()
		}
	}
	switch c.Log.Level {
	case "", "debug", "info", "warn", "error":
	default:
		return ferrors.ConfigError("unknown log level").
			WithContext("level", c.Log.Level).Build()
	}
	return nil
}
