// Package config provides configuration loading and management for maskstats.
// It handles loading configuration from YAML files and provides default values.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// DefaultConfigPath is used when no --config flag is given
const DefaultConfigPath = "maskstats.yaml"

// Config represents the application configuration loaded from YAML
type Config struct {
	// Analysis parameters
	Analysis struct {
		// PixelSizeMicrons is the physical edge length of one pixel. Nil keeps
		// all results in pixel units.
		PixelSizeMicrons *float64 `yaml:"pixelSizeMicrons,omitempty"`
	} `yaml:"analysis"`

	// Output parameters
	Output struct {
		// Dir is where reports and renders are written
		Dir string `yaml:"dir"`

		// ReportFile is the YAML report name inside Dir; empty disables it
		ReportFile string `yaml:"reportFile"`

		// WorkbookFile is the .xlsx report name inside Dir; empty disables it
		WorkbookFile string `yaml:"workbookFile"`

		// Database is the SQLite result store path; empty disables it
		Database string `yaml:"database"`

		// RenderOverlays writes label map and NND histogram images
		RenderOverlays bool `yaml:"renderOverlays"`

		// Verbose enables debug logging
		Verbose bool `yaml:"verbose"`
	} `yaml:"output"`
}

// DefaultConfig returns a configuration with default values
func DefaultConfig() *Config {
	cfg := &Config{}

	cfg.Output.Dir = "maskstats_output"
	cfg.Output.ReportFile = "report.yaml"
	cfg.Output.WorkbookFile = "report.xlsx"
	cfg.Output.Database = ""
	cfg.Output.RenderOverlays = false
	cfg.Output.Verbose = false

	return cfg
}

// Validate checks values that the analysis cannot recover from
func (c *Config) Validate() error {
	if p := c.Analysis.PixelSizeMicrons; p != nil && *p <= 0 {
		return fmt.Errorf("pixelSizeMicrons must be positive, got %g", *p)
	}
	return nil
}

// LoadConfig loads configuration from a YAML file
// If the file doesn't exist, it returns the default configuration
func LoadConfig(configPath string) (*Config, error) {
	cfg := DefaultConfig()

	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return cfg, nil
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("error parsing config file: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config file %s: %w", configPath, err)
	}

	return cfg, nil
}

// SaveConfig saves the configuration to a YAML file
func SaveConfig(cfg *Config, configPath string) error {
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
