// SPDX-License-Identifier: MIT
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// LoadConfig loads configuration from a YAML file specified by path. If path
// is empty, it searches default locations ("config.yaml"). If no file is
// found, it uses built-in defaults. After loading, it applies environment
// variable overrides and validates the final configuration.
func LoadConfig(path string) (*Config, error) {
	cfg := NewConfig()

	if path == "" {
		candidates := []string{
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

	// Apply environment variable overrides AFTER loading from file.
	cfg.applyEnvOverrides()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// Validate checks the configuration for values the pipeline cannot run with.
func (c *Config) Validate() error {
	if c.Spectral.WindowSeconds <= 0 || c.Spectral.WindowSeconds > MaxWindowSeconds {
		return fmt.Errorf("spectral.window_seconds must be in (0, %g], got %g",
			MaxWindowSeconds, c.Spectral.WindowSeconds)
	}
	if c.Spectral.Interval <= 0 {
		return fmt.Errorf("spectral.interval must be positive, got %g", c.Spectral.Interval)
	}
	if c.Spectral.Alpha < 0 || c.Spectral.Alpha > 1 {
		return fmt.Errorf("spectral.taper_alpha must be in [0, 1], got %g", c.Spectral.Alpha)
	}
	if c.Source.RingCapacity <= 0 {
		return fmt.Errorf("source.ring_capacity must be positive, got %d", c.Source.RingCapacity)
	}
	if c.Workers.MaxWorkers <= 0 {
		return fmt.Errorf("workers.max_workers must be positive, got %d", c.Workers.MaxWorkers)
	}
	if c.Transport.UDPEnabled {
		if c.Transport.UDPTargetAddress == "" {
			return fmt.Errorf("transport.udp_target_address must be set when UDP is enabled")
		}
		if c.Transport.UDPSendInterval <= 0 {
			return fmt.Errorf("transport.udp_send_interval must be positive when UDP is enabled")
		}
	}
	return nil
}

// applyEnvOverrides applies SPECTRO_* environment variables on top of the
// loaded configuration.
func (cfg *Config) applyEnvOverrides() {
	// SPECTRO_DEBUG
	if val, ok := os.LookupEnv("SPECTRO_DEBUG"); ok {
		if bVal, err := strconv.ParseBool(val); err == nil {
			cfg.Debug = bVal
		}
	}
	// SPECTRO_LOG_LEVEL
	if val, ok := os.LookupEnv("SPECTRO_LOG_LEVEL"); ok {
		cfg.LogLevel = val
	}
	// SPECTRO_RECORDING_DIR
	if val, ok := os.LookupEnv("SPECTRO_RECORDING_DIR"); ok {
		cfg.Recording.Dir = val
	}

	// SPECTRO_UDP_{...} overrides for the transport layer.
	if val, ok := os.LookupEnv("SPECTRO_UDP_ENABLED"); ok {
		if bVal, err := strconv.ParseBool(val); err == nil {
			cfg.Transport.UDPEnabled = bVal
		}
	}
	if val, ok := os.LookupEnv("SPECTRO_UDP_TARGET_ADDRESS"); ok {
		cfg.Transport.UDPTargetAddress = val
	}
	if val, ok := os.LookupEnv("SPECTRO_UDP_SEND_INTERVAL"); ok {
		if d, err := time.ParseDuration(val); err == nil {
			cfg.Transport.UDPSendInterval = d
		}
	}

	// SPECTRO_WEBSOCKET_{...}
	if val, ok := os.LookupEnv("SPECTRO_WEBSOCKET_ENABLED"); ok {
		if bVal, err := strconv.ParseBool(val); err == nil {
			cfg.Transport.WebSocketEnabled = bVal
		}
	}
	if val, ok := os.LookupEnv("SPECTRO_WEBSOCKET_PORT"); ok {
		cfg.Transport.WebSocketPort = val
	}
}
