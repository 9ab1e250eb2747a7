// Package config loads the transit configuration file.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/aretw0/transit/pkg/domain"
	"github.com/aretw0/transit/pkg/progress"
	"gopkg.in/yaml.v3"
)

// DefaultPath is where the CLI looks for a config file.
const DefaultPath = "transit.yaml"

// ErrUnknownPreset is returned by Preset for names not in the file.
var ErrUnknownPreset = errors.New("unknown preset")

// Config is the file layout.
type Config struct {
	LogLevel string         `yaml:"log_level" json:"log_level"`
	Progress ProgressConfig `yaml:"progress" json:"progress"`
	HTTP     HTTPConfig     `yaml:"http" json:"http"`
	Redis    RedisConfig    `yaml:"redis" json:"redis"`

	// Presets are named request templates, decoded with domain.DecodeRequest.
	Presets map[string]map[string]any `yaml:"presets" json:"presets"`
}

// ProgressConfig tunes the progress hub.
type ProgressConfig struct {
	TickInterval time.Duration `yaml:"tick_interval" json:"tick_interval"`
	MinVisible   time.Duration `yaml:"min_visible" json:"min_visible"`
	Speed        float64       `yaml:"speed" json:"speed"`
}

// HTTPConfig configures `transit serve`.
type HTTPConfig struct {
	Addr string `yaml:"addr" json:"addr"`
	// RateLimit is the number of mutating requests allowed per second. 0 disables it.
	RateLimit float64 `yaml:"rate_limit" json:"rate_limit"`
	RateBurst int     `yaml:"rate_burst" json:"rate_burst"`
}

// RedisConfig configures the Redis cache and gate bridge. An empty Addr disables both.
type RedisConfig struct {
	Addr    string        `yaml:"addr" json:"addr"`
	Channel string        `yaml:"channel" json:"channel"`
	Prefix  string        `yaml:"prefix" json:"prefix"`
	MaxIdle time.Duration `yaml:"max_idle" json:"max_idle"`
}

// Default returns the configuration used when no file exists.
func Default() Config {
	return Config{
		LogLevel: "info",
		Progress: ProgressConfig{
			TickInterval: progress.DefaultTickInterval,
			MinVisible:   progress.DefaultMinVisible,
			Speed:        progress.DefaultSpeed,
		},
		HTTP: HTTPConfig{Addr: ":8080"},
	}
}

// Load reads a YAML or JSON file over the defaults. A missing file yields the defaults.
func Load(path string) (Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("failed to read config: %w", err)
	}

	if strings.ToLower(filepath.Ext(path)) == ".json" {
		err = json.Unmarshal(data, &cfg)
	} else {
		err = yaml.Unmarshal(data, &cfg)
	}
	if err != nil {
		return cfg, fmt.Errorf("failed to parse %s: %w", filepath.Base(path), err)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Validate checks the log level and every preset.
func (c Config) Validate() error {
	if _, err := c.Level(); err != nil {
		return err
	}
	if c.Progress.Speed < 0 || c.Progress.TickInterval < 0 || c.Progress.MinVisible < 0 {
		return fmt.Errorf("progress settings must not be negative")
	}
	if c.HTTP.RateLimit < 0 || c.HTTP.RateBurst < 0 {
		return fmt.Errorf("http rate limit must not be negative")
	}
	for _, name := range c.PresetNames() {
		if _, err := c.Preset(name); err != nil {
			return err
		}
	}
	return nil
}

// Level parses LogLevel.
func (c Config) Level() (slog.Level, error) {
	var lvl slog.Level
	if c.LogLevel == "" {
		return slog.LevelInfo, nil
	}
	if err := lvl.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return lvl, fmt.Errorf("invalid log_level %q: %w", c.LogLevel, err)
	}
	return lvl, nil
}

// PresetNames lists presets in sorted order.
func (c Config) PresetNames() []string {
	names := make([]string, 0, len(c.Presets))
	for name := range c.Presets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Preset decodes the named request template.
func (c Config) Preset(name string) (domain.Request, error) {
	raw, ok := c.Presets[name]
	if !ok {
		return domain.Request{}, fmt.Errorf("%w: %s", ErrUnknownPreset, name)
	}
	req, err := domain.DecodeRequest(raw)
	if err != nil {
		return domain.Request{}, fmt.Errorf("preset %s: %w", name, err)
	}
	return req, nil
}

// HubOptions turns the progress settings into hub options.
func (c Config) HubOptions(logger *slog.Logger) []progress.Option {
	opts := []progress.Option{progress.WithLogger(logger)}
	if c.Progress.TickInterval > 0 {
		opts = append(opts, progress.WithTickInterval(c.Progress.TickInterval))
	}
	if c.Progress.MinVisible > 0 {
		opts = append(opts, progress.WithMinVisible(c.Progress.MinVisible))
	}
	if c.Progress.Speed > 0 {
		opts = append(opts, progress.WithSpeed(progress.ConstantSpeed(c.Progress.Speed)))
	}
	return opts
}
