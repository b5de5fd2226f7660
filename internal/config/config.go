package config

// Core configuration constants that define the boundaries and defaults
// for the tuner.
const (
	// Default values for the capture and analysis configuration.
	DefaultChannels        = 1           // Mono input
	DefaultDeviceID        = MinDeviceID // System default input device
	DefaultSampleRate      = 44100       // CD-quality audio
	DefaultFramesPerBuffer = 1024        // Capture batch size per callback
	DefaultLowLatency      = false       // Standard latency mode
	DefaultWindow          = "hann"      // Analysis window function
	DefaultRecord          = false       // Don't record by default
	DefaultOutputFile      = ""          // Auto-generated filename
	DefaultServeAddr       = ""          // Reading broadcast disabled
	DefaultLogLevel        = "info"
	DefaultCommand         = ""    // No one-off command by default
	DefaultVerbosity       = false // Quiet operation

	// Hardware limits.
	MinDeviceID   = -1     // -1 represents the system default device
	MinSampleRate = 8000   // Minimum usable sample rate (Hz)
	MaxSampleRate = 192000 // Maximum supported sample rate (Hz)
)

// Config holds all runtime configuration for the tuner. Values come from
// built-in defaults, then an optional YAML file, then environment overrides,
// then command line flags, in that order.
type Config struct {
	// Audio device settings.
	Channels        int     `yaml:"channels"`          // Input channels to capture (1=mono, 2=stereo)
	DeviceID        int     `yaml:"device"`            // Input device index (-1 for default)
	SampleRate      float64 `yaml:"sample_rate"`       // Sample rate in Hz
	FramesPerBuffer int     `yaml:"frames_per_buffer"` // Capture batch size (affects latency)
	LowLatency      bool    `yaml:"low_latency"`       // Request low latency from the device

	// Analysis settings.
	Window string `yaml:"window"` // Window function name (e.g. "hann", "hamming")

	// Recording options.
	Record     bool   `yaml:"record"`      // Record raw input to a WAV file
	OutputFile string `yaml:"output_file"` // Recording destination path

	// Broadcast options.
	ServeAddr string `yaml:"serve_addr"` // Address for the reading broadcast server, "" disables

	// Runtime options.
	LogLevel string `yaml:"log_level"` // Logging level name
	Verbose  bool   `yaml:"verbose"`   // Force debug logging
	Command  string `yaml:"-"`         // One-off command to execute (e.g. "list")
	TUIMode  bool   `yaml:"-"`         // Terminal UI mode enabled
}

// NewConfig creates a Config with built-in defaults. This is the base
// configuration before file, environment, and flag values are applied.
func NewConfig() *Config {
	return &Config{
		Channels:        DefaultChannels,
		DeviceID:        DefaultDeviceID,
		SampleRate:      DefaultSampleRate,
		FramesPerBuffer: DefaultFramesPerBuffer,
		LowLatency:      DefaultLowLatency,
		Window:          DefaultWindow,
		Record:          DefaultRecord,
		OutputFile:      DefaultOutputFile,
		ServeAddr:       DefaultServeAddr,
		LogLevel:        DefaultLogLevel,
		Command:         DefaultCommand,
		Verbose:         DefaultVerbosity,
	}
}
