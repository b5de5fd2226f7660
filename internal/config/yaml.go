package config

import (
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

// Load loads configuration from a YAML file specified by path. If path is
// empty, it searches default locations ("tuner.yaml", "config.yaml"). If no
// file is found, the built-in defaults are used. After loading, environment
// variable overrides are applied and the result is validated.
func Load(path string) (*Config, error) {
	cfg := NewConfig()

	if path == "" {
		candidates := []string{
			"tuner.yaml",
			"config.yaml",
		}
		found := false
		for _, candidate := range candidates {
			if _, err := os.Stat(candidate); err == nil {
				path = candidate
				found = true
				break
			}
		}
		if !found {
			cfg.applyEnvOverrides()
			if err := cfg.Validate(); err != nil {
				return nil, fmt.Errorf("invalid default configuration: %w", err)
			}
			return cfg, nil
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	// Environment overrides win over file values.
	cfg.applyEnvOverrides()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// Validate checks the configuration for values the engine cannot work with.
func (c *Config) Validate() error {
	if c.SampleRate < MinSampleRate || c.SampleRate > MaxSampleRate {
		return fmt.Errorf("sample_rate %.0f out of range [%d, %d]", c.SampleRate, MinSampleRate, MaxSampleRate)
	}
	if c.Channels < 1 {
		return fmt.Errorf("channels must be at least 1, got %d", c.Channels)
	}
	if c.FramesPerBuffer < 1 {
		return fmt.Errorf("frames_per_buffer must be at least 1, got %d", c.FramesPerBuffer)
	}
	return nil
}

// applyEnvOverrides applies TUNER_* environment variables on top of the
// current values.
func (c *Config) applyEnvOverrides() {
	if val, ok := os.LookupEnv("TUNER_DEVICE"); ok {
		if iVal, err := strconv.Atoi(val); err == nil {
			c.DeviceID = iVal
		}
	}
	if val, ok := os.LookupEnv("TUNER_SAMPLE_RATE"); ok {
		if fVal, err := strconv.ParseFloat(val, 64); err == nil {
			c.SampleRate = fVal
		}
	}
	if val, ok := os.LookupEnv("TUNER_SERVE_ADDR"); ok {
		c.ServeAddr = val
	}
	if val, ok := os.LookupEnv("TUNER_LOG_LEVEL"); ok {
		c.LogLevel = val
	}
	if val, ok := os.LookupEnv("TUNER_VERBOSE"); ok {
		if bVal, err := strconv.ParseBool(val); err == nil {
			c.Verbose = bVal
		}
	}
}
