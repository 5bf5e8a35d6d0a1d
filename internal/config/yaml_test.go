// SPDX-License-Identifier: MIT
package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeTempConfig(t *testing.T, content string) string {
	t.Helper()
	tmp := t.TempDir()
	path := filepath.Join(tmp, "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write temp config: %v", err)
	}
	return path
}

func TestLoadConfig_EmptyPath(t *testing.T) {
	cfg, err := LoadConfig("")
	if err != nil {
		t.Errorf("expected nil error, got %v", err)
	}
	if cfg == nil {
		t.Fatal("expected default config, got nil")
	}
	if cfg.Spectral.WindowSeconds != DefaultWindowSeconds {
		t.Errorf("default window mismatch: got %g, want %g",
			cfg.Spectral.WindowSeconds, DefaultWindowSeconds)
	}
	if cfg.Source.RingCapacity != DefaultRingCapacity {
		t.Errorf("default ring capacity mismatch: got %d, want %d",
			cfg.Source.RingCapacity, DefaultRingCapacity)
	}
	if cfg.Workers.MaxWorkers != DefaultMaxWorkers {
		t.Errorf("default worker cap mismatch: got %d, want %d",
			cfg.Workers.MaxWorkers, DefaultMaxWorkers)
	}
}

func TestLoadConfig_FileNotFound(t *testing.T) {
	cfg, err := LoadConfig("nonexistent.yaml")
	if err == nil {
		t.Errorf("expected error for missing file, got nil")
	}
	if cfg != nil {
		t.Errorf("expected nil config on error, got %+v", cfg)
	}
}

func TestLoadConfig_UnmarshalError(t *testing.T) {
	path := writeTempConfig(t, ":\n:bad")
	_, err := LoadConfig(path)
	if err == nil || !strings.Contains(err.Error(), "failed to parse config file") {
		t.Error("expected unmarshal error, got nil or wrong error")
	}
}

func TestLoadConfig_FileValues(t *testing.T) {
	path := writeTempConfig(t, `
log_level: debug
source:
  device_id: 2
  ring_capacity: 50000
spectral:
  window_seconds: 0.5
  interval: 0.1
  taper_alpha: 0.5
transport:
  udp_enabled: true
  udp_target_address: "10.0.0.1:9999"
  udp_send_interval: 50ms
`)
	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig error: %v", err)
	}
	if cfg.Source.DeviceID != 2 {
		t.Errorf("device_id: got %d, want 2", cfg.Source.DeviceID)
	}
	if cfg.Source.RingCapacity != 50000 {
		t.Errorf("ring_capacity: got %d, want 50000", cfg.Source.RingCapacity)
	}
	if cfg.Spectral.WindowSeconds != 0.5 {
		t.Errorf("window_seconds: got %g, want 0.5", cfg.Spectral.WindowSeconds)
	}
	if cfg.Transport.UDPSendInterval != 50*time.Millisecond {
		t.Errorf("udp_send_interval: got %v, want 50ms", cfg.Transport.UDPSendInterval)
	}
}

func TestLoadConfig_EnvOverrides(t *testing.T) {
	t.Setenv("SPECTRO_UDP_ENABLED", "true")
	t.Setenv("SPECTRO_UDP_TARGET_ADDRESS", "192.168.1.5:7777")
	t.Setenv("SPECTRO_RECORDING_DIR", "/tmp/spectro-rec")

	cfg, err := LoadConfig("")
	if err != nil {
		t.Fatalf("LoadConfig error: %v", err)
	}
	if !cfg.Transport.UDPEnabled {
		t.Error("expected UDP enabled from env override")
	}
	if cfg.Transport.UDPTargetAddress != "192.168.1.5:7777" {
		t.Errorf("udp_target_address: got %s", cfg.Transport.UDPTargetAddress)
	}
	if cfg.Recording.Dir != "/tmp/spectro-rec" {
		t.Errorf("recording dir: got %s", cfg.Recording.Dir)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		desc    string
		mutate  func(*Config)
		wantErr string
	}{
		{"valid defaults", func(c *Config) {}, ""},
		{"zero window", func(c *Config) { c.Spectral.WindowSeconds = 0 }, "window_seconds"},
		{"window too long", func(c *Config) { c.Spectral.WindowSeconds = 1.5 }, "window_seconds"},
		{"negative interval", func(c *Config) { c.Spectral.Interval = -0.1 }, "interval"},
		{"alpha out of range", func(c *Config) { c.Spectral.Alpha = 1.2 }, "taper_alpha"},
		{"zero ring capacity", func(c *Config) { c.Source.RingCapacity = 0 }, "ring_capacity"},
		{"zero worker cap", func(c *Config) { c.Workers.MaxWorkers = 0 }, "max_workers"},
		{"udp without address", func(c *Config) {
			c.Transport.UDPEnabled = true
			c.Transport.UDPTargetAddress = ""
		}, "udp_target_address"},
	}

	for _, tt := range tests {
		t.Run(tt.desc, func(t *testing.T) {
			cfg := NewConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("expected valid config, got %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("expected error containing %q, got %v", tt.wantErr, err)
			}
		})
	}
}
