package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

type TargetCfg struct {
	Label string `yaml:"label" json:"label"`
	Path  string `yaml:"path" json:"path"`
}

type PrometheusCfg struct {
	Port int `yaml:"port" json:"port"` // 0 disables the metrics server
}

type LoggingCfg struct {
	Dir          string `yaml:"dir" json:"dir"`                     // Directory for the log file (default: user cache dir)
	RotationDays int    `yaml:"rotation_days" json:"rotation_days"` // Days to keep logs before rotation
}

type HistoryCfg struct {
	Enabled      bool   `yaml:"enabled" json:"enabled"`
	DatabasePath string `yaml:"database_path" json:"database_path"` // SQLite file for run history
}

type ResourceLimits struct {
	MaxCPUPercent float64 `yaml:"max_cpu_percent" json:"max_cpu_percent"` // 0 disables throttling
}

type SafetyCfg struct {
	ExtraProtected []string `yaml:"extra_protected" json:"extra_protected"` // Trees that must never be wiped
}

type Config struct {
	Targets         []TargetCfg    `yaml:"targets" json:"targets"`
	Presets         []string       `yaml:"presets" json:"presets"` // Well-known folder names, resolved at run time
	IntervalMinutes int            `yaml:"interval_minutes" json:"interval_minutes"`
	Prometheus      PrometheusCfg  `yaml:"prometheus" json:"prometheus"`
	Logging         LoggingCfg     `yaml:"logging" json:"logging"`
	History         HistoryCfg     `yaml:"history" json:"history"`
	ResourceLimits  ResourceLimits `yaml:"resource_limits" json:"resource_limits"`
	Safety          SafetyCfg      `yaml:"safety" json:"safety"`
}

var (
	ErrNoTargets     = errors.New("configuration must specify targets or presets")
	errInvalidPath   = errors.New("path must be absolute")
	errNegativeValue = errors.New("value cannot be negative")
	errCPUOutOfRange = errors.New("max_cpu_percent must be between 0 and 100")
)

// Default returns a configuration with every default applied and no targets
func Default() *Config {
	cfg := &Config{History: HistoryCfg{Enabled: true}}
	cfg.applyDefaults()
	return cfg
}

func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open config: %w", err)
	}
	defer f.Close()

	cfg, err := decode(f)
	if err != nil {
		return nil, err
	}
	if err := cfg.validateAndDefault(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func decode(r io.Reader) (*Config, error) {
	cfg := &Config{History: HistoryCfg{Enabled: true}}
	decoder := yaml.NewDecoder(r)
	if err := decoder.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("decode yaml: %w", err)
	}
	return cfg, nil
}

// Validate checks that the configuration names something to clean.
// Load does not require it because targets may still come from flags.
func (c *Config) Validate() error {
	if len(c.Targets) == 0 && len(c.Presets) == 0 {
		return ErrNoTargets
	}
	return nil
}

// AddTarget appends a target after normalising it the way Load does
func (c *Config) AddTarget(label, path string) error {
	t, err := normalizeTarget(TargetCfg{Label: label, Path: path})
	if err != nil {
		return err
	}
	c.Targets = append(c.Targets, t)
	return nil
}

func (c *Config) validateAndDefault() error {
	if c.IntervalMinutes < 0 {
		return fmt.Errorf("interval_minutes: %w", errNegativeValue)
	}
	if c.Prometheus.Port < 0 {
		return fmt.Errorf("prometheus.port: %w", errNegativeValue)
	}
	if c.ResourceLimits.MaxCPUPercent < 0 || c.ResourceLimits.MaxCPUPercent > 100 {
		return errCPUOutOfRange
	}

	for i := range c.Targets {
		t, err := normalizeTarget(c.Targets[i])
		if err != nil {
			return err
		}
		c.Targets[i] = t
	}

	cleaned := make([]string, 0, len(c.Safety.ExtraProtected))
	for _, p := range c.Safety.ExtraProtected {
		cp, err := cleanAbsolute(p)
		if err != nil {
			return fmt.Errorf("safety.extra_protected: %w", err)
		}
		cleaned = append(cleaned, cp)
	}
	c.Safety.ExtraProtected = cleaned

	c.applyDefaults()
	return nil
}

func (c *Config) applyDefaults() {
	if c.IntervalMinutes == 0 {
		c.IntervalMinutes = 60 // Default: hourly in daemon mode
	}

	if c.Logging.RotationDays <= 0 {
		c.Logging.RotationDays = 30 // Default: keep logs for 30 days
	}
	if c.Logging.Dir == "" {
		if dir, err := os.UserCacheDir(); err == nil {
			c.Logging.Dir = filepath.Join(dir, "disk-janitor", "logs")
		}
	}

	if c.History.DatabasePath == "" {
		if dir, err := os.UserConfigDir(); err == nil {
			c.History.DatabasePath = filepath.Join(dir, "disk-janitor", "history.db")
		}
	}
}

func normalizeTarget(t TargetCfg) (TargetCfg, error) {
	cp, err := cleanAbsolute(t.Path)
	if err != nil {
		return TargetCfg{}, err
	}
	t.Path = cp
	if t.Label == "" {
		t.Label = filepath.Base(cp)
	}
	return t, nil
}

func cleanAbsolute(p string) (string, error) {
	if p == "" {
		return "", errInvalidPath
	}
	cp := filepath.Clean(p)
	if !filepath.IsAbs(cp) {
		return "", fmt.Errorf("%w: %s", errInvalidPath, p)
	}
	return cp, nil
}

// StatePaths returns the directories holding the history database and the log files
func (c *Config) StatePaths() []string {
	var dirs []string
	if c.History.Enabled && c.History.DatabasePath != "" {
		dirs = append(dirs, filepath.Dir(c.History.DatabasePath))
	}
	if c.Logging.Dir != "" {
		dirs = append(dirs, c.Logging.Dir)
	}
	for i, d := range dirs {
		if abs, err := filepath.Abs(d); err == nil {
			dirs[i] = abs
		}
	}
	return dirs
}

func (c *Config) Interval() time.Duration {
	return time.Duration(c.IntervalMinutes) * time.Minute
}

func (c *Config) PrometheusAddress() string {
	return fmt.Sprintf(":%d", c.Prometheus.Port)
}
