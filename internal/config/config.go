package config

import "time"

// Core configuration constants that define the boundaries and defaults
// for the acquisition and spectral-estimation pipeline.
const (
	// Default values for the pipeline configuration
	DefaultDeviceID      = MinDeviceID // Default to system default input device
	DefaultChannel       = 0           // 0 means "first channel / use as-is"
	DefaultWindowSeconds = 0.3         // FFT window length in seconds
	DefaultInterval      = 0.3         // Cadence between estimates in seconds
	DefaultAlpha         = 0.25        // Tukey taper alpha
	DefaultRingCapacity  = 100000      // Rolling buffer size for device streams (samples)
	DefaultMaxWorkers    = 7           // Concurrent worker cap
	DefaultRecordingDir  = "./recordings"
	DefaultCommand       = ""    // No command by default
	DefaultVerbosity     = false // Quiet operation

	// Hardware and processing limits
	MinDeviceID      = -1  // -1 represents system default device
	MaxWindowSeconds = 1.0 // Window length is clamped to (0, 1] seconds

	// Pacing and startup timing
	FilePacing   = 80 * time.Millisecond  // Sleep between file-source cycles
	PollInterval = 100 * time.Millisecond // Cancellation/cadence poll granularity
	ReadyTimeout = 10 * time.Second       // Bound on source open during startup
)

// Config holds all runtime configuration for the pipeline. It is built
// from defaults, an optional YAML file, environment overrides, and finally
// command line flags.
type Config struct {
	Debug    bool   `yaml:"debug"`
	LogLevel string `yaml:"log_level"`

	Source    SourceConfig    `yaml:"source"`
	Spectral  SpectralConfig  `yaml:"spectral"`
	Recording RecordingConfig `yaml:"recording"`
	Transport TransportConfig `yaml:"transport"`
	Workers   WorkerConfig    `yaml:"workers"`

	// One-off command to execute instead of running the pipeline (e.g. "list").
	Command string `yaml:"-"`
}

// SourceConfig selects the acquisition source and its buffering.
type SourceConfig struct {
	DeviceID     int    `yaml:"device_id"`     // PortAudio input device index (-1 for default)
	File         string `yaml:"file"`          // WAV file path; empty means device input
	Channel      int    `yaml:"channel"`       // 1-indexed channel for file sources; 0 = first
	RingCapacity int    `yaml:"ring_capacity"` // Rolling buffer capacity in samples
}

// SpectralConfig holds the initial spectral estimation settings.
type SpectralConfig struct {
	WindowSeconds float64 `yaml:"window_seconds"` // FFT window length, clamped to (0, 1]
	Interval      float64 `yaml:"interval"`       // Cadence dt between estimates, seconds
	Alpha         float64 `yaml:"taper_alpha"`    // Tukey alpha, clamped to [0, 1]
}

// RecordingConfig holds settings for the per-worker recording files.
type RecordingConfig struct {
	Dir string `yaml:"dir"` // Directory for tempwav_<id>.wav files
}

// TransportConfig holds settings for publishing records to external sinks.
type TransportConfig struct {
	WebSocketEnabled bool          `yaml:"websocket_enabled"` // Serve records over WebSocket
	WebSocketPort    string        `yaml:"websocket_port"`    // Port for the /events endpoint
	UDPEnabled       bool          `yaml:"udp_enabled"`       // Send spectra as binary UDP packets
	UDPTargetAddress string        `yaml:"udp_target_address"`
	UDPSendInterval  time.Duration `yaml:"udp_send_interval"`
}

// WorkerConfig bounds the concurrent worker pool.
type WorkerConfig struct {
	MaxWorkers int `yaml:"max_workers"`
}

// NewConfig creates a new Config instance with default values. This is the
// base configuration before applying file, environment, or flag overrides.
func NewConfig() *Config {
	return &Config{
		Debug:    DefaultVerbosity,
		LogLevel: "info",
		Source: SourceConfig{
			DeviceID:     DefaultDeviceID,
			Channel:      DefaultChannel,
			RingCapacity: DefaultRingCapacity,
		},
		Spectral: SpectralConfig{
			WindowSeconds: DefaultWindowSeconds,
			Interval:      DefaultInterval,
			Alpha:         DefaultAlpha,
		},
		Recording: RecordingConfig{
			Dir: DefaultRecordingDir,
		},
		Transport: TransportConfig{
			WebSocketEnabled: false,
			WebSocketPort:    "8080",
			UDPEnabled:       false,
			UDPTargetAddress: "127.0.0.1:9090",
			UDPSendInterval:  33 * time.Millisecond, // ~30Hz
		},
		Workers: WorkerConfig{
			MaxWorkers: DefaultMaxWorkers,
		},
		Command: DefaultCommand,
	}
}
