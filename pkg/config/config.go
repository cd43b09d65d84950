// Package config provides configuration loading and management for
// dicomcore. It handles loading configuration from YAML files and
// provides default values. The core packages take these values as
// explicit constructor parameters; config is how the outer layer
// produces them.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"gopkg.in/yaml.v3"
)

// Config represents the application configuration loaded from YAML.
type Config struct {
	// Processing parameters
	Processing struct {
		// NumWorkers specifies how many goroutines convert slices
		// during volume assembly
		NumWorkers int `yaml:"numWorkers"`
	} `yaml:"processing"`

	// Calibration holds the Hounsfield QA tolerances
	Calibration struct {
		// WaterToleranceHU is the fatal deviation bound for the water
		// reference point
		WaterToleranceHU float64 `yaml:"waterToleranceHU"`

		// AirToleranceHU is the fatal deviation bound for the air
		// reference point
		AirToleranceHU float64 `yaml:"airToleranceHU"`

		// SlopeTolerance is the warning bound for rescale slope
		// deviation from 1.0
		SlopeTolerance float64 `yaml:"slopeTolerance"`

		// NoiseThresholdHU is the warning bound for the central-region
		// noise estimate
		NoiseThresholdHU float64 `yaml:"noiseThresholdHU"`
	} `yaml:"calibration"`

	// Cache parameters
	Cache struct {
		// MaxEntries bounds the render cache entry count
		MaxEntries int `yaml:"maxEntries"`
	} `yaml:"cache"`

	// Output parameters
	Output struct {
		// Format selects the raster encoding for exported slices
		// ("png" or "jpeg")
		Format string `yaml:"format"`

		// Verbose controls the level of logging output
		Verbose bool `yaml:"verbose"`
	} `yaml:"output"`
}

// DefaultConfig returns a configuration with default values.
func DefaultConfig() *Config {
	cfg := &Config{}

	cfg.Processing.NumWorkers = runtime.NumCPU()

	cfg.Calibration.WaterToleranceHU = 5
	cfg.Calibration.AirToleranceHU = 50
	cfg.Calibration.SlopeTolerance = 0.01
	cfg.Calibration.NoiseThresholdHU = 10

	cfg.Cache.MaxEntries = 200

	cfg.Output.Format = "png"
	cfg.Output.Verbose = true

	return cfg
}

// LoadConfig loads configuration from a YAML file.
// If the file doesn't exist, it returns the default configuration.
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

	return cfg, nil
}

// SaveConfig saves the configuration to a YAML file.
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

// CreateDefaultConfigFile creates a default configuration file at the
// specified path.
func CreateDefaultConfigFile(configPath string) error {
	return SaveConfig(DefaultConfig(), configPath)
}
