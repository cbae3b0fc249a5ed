// Package config loads the mcint configuration file and builds the logger.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"mc-integrator/domain"
	"mc-integrator/integrand"
	"mc-integrator/quadrature"
)

// Config is the full set of settings for one mcint invocation.
type Config struct {
	Run        RunConfig          `yaml:"run"`
	Quadrature quadrature.Options `yaml:"quadrature"`
	Output     OutputConfig       `yaml:"output"`
	Storage    StorageConfig      `yaml:"storage"`
	Log        LogConfig          `yaml:"log"`
}

type RunConfig struct {
	Function       string        `yaml:"function"`
	A              float64       `yaml:"a"`
	B              float64       `yaml:"b"`
	Samples        int           `yaml:"samples"`
	Seed           uint64        `yaml:"seed"`
	Workers        int           `yaml:"workers"`
	MaxEvaluations int64         `yaml:"max_evaluations"`
	Timeout        time.Duration `yaml:"timeout"`
}

// OutputConfig names the files a run writes. Empty paths are skipped, except
// Readme and Plot which always have a value after Default.
type OutputConfig struct {
	Readme      string `yaml:"readme"`
	Plot        string `yaml:"plot"`
	Chart       string `yaml:"chart"`
	JSON        string `yaml:"json"`
	MetricsFile string `yaml:"metrics_file"`
	MetricsJSON string `yaml:"metrics_json"`
	// Summary prints the collector summary after the result lines.
	Summary bool `yaml:"summary"`
}

type StorageConfig struct {
	// History is the SQLite run-history path.
	History string `yaml:"history"`
	// Redis is the address of the shared reference cache.
	Redis    string        `yaml:"redis"`
	CacheTTL time.Duration `yaml:"cache_ttl"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Default returns the settings of the original integration script: x^2 on
// [0, 2] with 100000 samples.
func Default() Config {
	return Config{
		Run: RunConfig{
			Function: integrand.DefaultName,
			A:        0,
			B:        2,
			Samples:  100000,
			Workers:  1,
		},
		Quadrature: quadrature.DefaultOptions(),
		Output: OutputConfig{
			Readme: "README.md",
			Plot:   "integral_plot.png",
		},
		Storage: StorageConfig{
			CacheTTL: 24 * time.Hour,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// Load reads the YAML file at path over Default. Unknown keys are rejected.
func Load(path string) (Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("failed to read the config file: %w", err)
	}
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return Config{}, fmt.Errorf("failed to parse the config file %s: %w", path, err)
	}
	return cfg, nil
}

// Validate checks that cfg describes a runnable integration.
func (c Config) Validate() error {
	if _, err := integrand.Lookup(c.Run.Function); err != nil {
		return err
	}
	if err := domain.ValidateInterval(c.Run.A, c.Run.B); err != nil {
		return err
	}
	if err := domain.ValidateSampleCount(c.Run.Samples); err != nil {
		return err
	}
	if c.Run.Workers < 0 {
		return fmt.Errorf("workers must not be negative, got %d", c.Run.Workers)
	}
	if c.Run.MaxEvaluations < 0 {
		return fmt.Errorf("max evaluations must not be negative, got %d", c.Run.MaxEvaluations)
	}
	if c.Run.Timeout < 0 {
		return fmt.Errorf("timeout must not be negative, got %s", c.Run.Timeout)
	}
	if err := c.Quadrature.Validate(); err != nil {
		return err
	}
	if _, err := ParseLevel(c.Log.Level); err != nil {
		return err
	}
	switch strings.ToLower(c.Log.Format) {
	case "", "text", "json":
	default:
		return fmt.Errorf("unknown log format %q (want text or json)", c.Log.Format)
	}
	return nil
}

// ParseLevel parses debug, info, warn or error.
func ParseLevel(s string) (slog.Level, error) {
	var level slog.Level
	if s == "" {
		return slog.LevelInfo, nil
	}
	if err := level.UnmarshalText([]byte(s)); err != nil {
		return 0, fmt.Errorf("invalid log level %q: %w", s, err)
	}
	return level, nil
}

// NewLogger builds a text or JSON slog logger writing to w.
func NewLogger(level, format string, w io.Writer) (*slog.Logger, error) {
	lvl, err := ParseLevel(level)
	if err != nil {
		return nil, err
	}
	opts := &slog.HandlerOptions{Level: lvl}
	switch strings.ToLower(format) {
	case "json":
		return slog.New(slog.NewJSONHandler(w, opts)), nil
	case "", "text":
		return slog.New(slog.NewTextHandler(w, opts)), nil
	default:
		return nil, fmt.Errorf("unknown log format %q (want text or json)", format)
	}
}
