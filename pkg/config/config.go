// Package config provides configuration loading and management for dosekit.
// It handles loading configuration from YAML files, applies DOSEKIT_*
// environment overrides and provides default values.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// EnvPrefix is the prefix of environment variables that override file values.
const EnvPrefix = "DOSEKIT"

// Config represents the application configuration loaded from YAML
type Config struct {
	// Analysis parameters
	Analysis struct {
		// DepthAdjust is added to the row coordinate to obtain depth in mm
		DepthAdjust float64 `yaml:"depthAdjust"`

		// AveragingHalfWidth is the half-width in mm of the window around
		// the central axis that depth doses and profiles are averaged over
		AveragingHalfWidth float64 `yaml:"averagingHalfWidth"`

		// Depths lists the depths in mm at which profiles are extracted
		Depths []float64 `yaml:"depths"`

		// ResampleStep is the profile resampling step in mm
		ResampleStep float64 `yaml:"resampleStep"`

		// Frame is the coordinate frame reported for the dose grid
		Frame string `yaml:"frame"`

		// NumWorkers bounds the number of structures analysed concurrently
		NumWorkers int `yaml:"numWorkers"`
	} `yaml:"analysis"`

	// DVH parameters
	DVH struct {
		// Bins is the number of histogram bins
		Bins int `yaml:"bins"`
	} `yaml:"dvh"`

	// Output parameters
	Output struct {
		// Dir receives plots and reports
		Dir string `yaml:"dir"`

		// PNG enables gonum/plot curve images
		PNG bool `yaml:"png"`

		// HTML enables the interactive chart page
		HTML bool `yaml:"html"`

		// Planes enables JPEG dumps of every dose plane
		Planes bool `yaml:"planes"`

		// Verbose controls the level of logging output
		Verbose bool `yaml:"verbose"`
	} `yaml:"output"`

	// Store parameters
	Store struct {
		// Enabled records every analysis run in the results database
		Enabled bool `yaml:"enabled"`

		// Path is the SQLite database file
		Path string `yaml:"path"`
	} `yaml:"store"`
}

// DefaultConfig returns a configuration with default values
func DefaultConfig() *Config {
	cfg := &Config{}

	cfg.Analysis.DepthAdjust = 0
	cfg.Analysis.AveragingHalfWidth = 0
	cfg.Analysis.Depths = []float64{15, 50, 100, 200}
	cfg.Analysis.ResampleStep = 0.1
	cfg.Analysis.Frame = "FIXED"
	cfg.Analysis.NumWorkers = runtime.NumCPU()

	cfg.DVH.Bins = 100

	cfg.Output.Dir = "dosekit_output"
	cfg.Output.PNG = true
	cfg.Output.HTML = true
	cfg.Output.Planes = false
	cfg.Output.Verbose = false

	cfg.Store.Enabled = false
	cfg.Store.Path = "dosekit.db"

	return cfg
}

// LoadConfig loads configuration from a YAML file and applies environment
// overrides. If the file doesn't exist, the defaults are used.
func LoadConfig(configPath string) (*Config, error) {
	cfg := DefaultConfig()

	if configPath != "" {
		data, err := os.ReadFile(configPath)
		switch {
		case os.IsNotExist(err):
		case err != nil:
			return nil, fmt.Errorf("error reading config file: %w", err)
		default:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("error parsing config file: %w", err)
			}
		}
	}

	if err := applyEnv(cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyEnv overrides cfg with DOSEKIT_* environment variables, for example
// DOSEKIT_ANALYSIS_DEPTH_ADJUST or DOSEKIT_STORE_PATH.
func applyEnv(cfg *Config) error {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("analysis.depth_adjust", cfg.Analysis.DepthAdjust)
	v.SetDefault("analysis.averaging_half_width", cfg.Analysis.AveragingHalfWidth)
	v.SetDefault("analysis.resample_step", cfg.Analysis.ResampleStep)
	v.SetDefault("analysis.frame", cfg.Analysis.Frame)
	v.SetDefault("analysis.num_workers", cfg.Analysis.NumWorkers)
	v.SetDefault("dvh.bins", cfg.DVH.Bins)
	v.SetDefault("output.dir", cfg.Output.Dir)
	v.SetDefault("output.png", cfg.Output.PNG)
	v.SetDefault("output.html", cfg.Output.HTML)
	v.SetDefault("output.planes", cfg.Output.Planes)
	v.SetDefault("output.verbose", cfg.Output.Verbose)
	v.SetDefault("store.enabled", cfg.Store.Enabled)
	v.SetDefault("store.path", cfg.Store.Path)

	cfg.Analysis.DepthAdjust = v.GetFloat64("analysis.depth_adjust")
	cfg.Analysis.AveragingHalfWidth = v.GetFloat64("analysis.averaging_half_width")
	cfg.Analysis.ResampleStep = v.GetFloat64("analysis.resample_step")
	cfg.Analysis.Frame = v.GetString("analysis.frame")
	cfg.Analysis.NumWorkers = v.GetInt("analysis.num_workers")
	cfg.DVH.Bins = v.GetInt("dvh.bins")
	cfg.Output.Dir = v.GetString("output.dir")
	cfg.Output.PNG = v.GetBool("output.png")
	cfg.Output.HTML = v.GetBool("output.html")
	cfg.Output.Planes = v.GetBool("output.planes")
	cfg.Output.Verbose = v.GetBool("output.verbose")
	cfg.Store.Enabled = v.GetBool("store.enabled")
	cfg.Store.Path = v.GetString("store.path")

	// Depths arrive from the environment as a space or comma separated list.
	if raw, ok := os.LookupEnv(EnvPrefix + "_ANALYSIS_DEPTHS"); ok {
		depths, err := parseDepths(raw)
		if err != nil {
			return err
		}
		cfg.Analysis.Depths = depths
	}
	return nil
}

func parseDepths(raw string) ([]float64, error) {
	fields := strings.FieldsFunc(raw, func(r rune) bool { return r == ',' || r == ' ' })
	out := make([]float64, 0, len(fields))
	for _, f := range fields {
		d, err := strconv.ParseFloat(f, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid depth %q in %s_ANALYSIS_DEPTHS: %w", f, EnvPrefix, err)
		}
		out = append(out, d)
	}
	return out, nil
}

// Validate checks value ranges that the analysis relies on.
func (c *Config) Validate() error {
	if c.Analysis.AveragingHalfWidth < 0 {
		return fmt.Errorf("analysis.averagingHalfWidth must be non-negative, got %g", c.Analysis.AveragingHalfWidth)
	}
	if c.Analysis.ResampleStep <= 0 {
		return fmt.Errorf("analysis.resampleStep must be positive, got %g", c.Analysis.ResampleStep)
	}
	if c.Analysis.NumWorkers < 1 {
		return fmt.Errorf("analysis.numWorkers must be at least 1, got %d", c.Analysis.NumWorkers)
	}
	if c.DVH.Bins < 1 {
		return fmt.Errorf("dvh.bins must be at least 1, got %d", c.DVH.Bins)
	}
	return nil
}

// SaveConfig saves the configuration to a YAML file
func SaveConfig(cfg *Config, configPath string) error {
	// Create directory if it doesn't exist
	dir := filepath.Dir(configPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("error creating config directory: %w", err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("error marshaling config: %w", err)
	}

	if err := os.WriteFile(configPath, data, 0644); err != nil {
		return fmt.Errorf("error writing config file: %w", err)
	}

	return nil
}

// CreateDefaultConfigFile creates a default configuration file at the specified path
func CreateDefaultConfigFile(configPath string) error {
	cfg := DefaultConfig()
	return SaveConfig(cfg, configPath)
}
