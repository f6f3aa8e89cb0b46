// ABOUTME: TOML configuration with defaults and validation
// ABOUTME: Maps config sections onto session and backend options
// Package config handles configuration file loading and parsing.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/harperreed/brownnoise/pkg/audio"
	"github.com/harperreed/brownnoise/pkg/audio/output"
	"github.com/harperreed/brownnoise/pkg/stream"
	"github.com/pelletier/go-toml/v2"
)

// Default configuration values.
const (
	DefaultBackend      = output.BackendBeep
	DefaultVolume       = 1.0
	DefaultListen       = ":8927"
	DefaultRemoteName   = "brownnoise"
	DefaultInterruption = true
)

// Duration is a time.Duration that can be unmarshaled from human-readable strings.
// Supports formats like "3s", "500ms", "1m", or integer milliseconds.
type Duration time.Duration

// UnmarshalText implements encoding.TextUnmarshaler for TOML parsing.
func (d *Duration) UnmarshalText(text []byte) error {
	s := string(text)

	if ms, err := strconv.ParseInt(s, 10, 64); err == nil {
		*d = Duration(time.Duration(ms) * time.Millisecond)
		return nil
	}

	dur, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: must be like '3s', '500ms' or milliseconds: %w", s, err)
	}
	*d = Duration(dur)
	return nil
}

// MarshalText implements encoding.TextMarshaler for TOML output.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(time.Duration(d).String()), nil
}

// Duration returns the underlying time.Duration.
func (d Duration) Duration() time.Duration {
	return time.Duration(d)
}

// Config represents the brownnoise configuration.
type Config struct {
	Audio         AudioConfig         `toml:"audio"`
	Stream        StreamConfig        `toml:"stream"`
	Fade          FadeConfig          `toml:"fade"`
	Interruptions InterruptionsConfig `toml:"interruptions"`
	Remote        RemoteConfig        `toml:"remote"`
}

// AudioConfig selects the output device.
type AudioConfig struct {
	Backend    string  `toml:"backend"`     // beep, oto, malgo, portaudio
	SampleRate int     `toml:"sample_rate"` // Hz
	Volume     float64 `toml:"volume"`      // 0.0 to 1.0
	BitDepth   int     `toml:"bit_depth"`   // 16 or 32 (float), oto and malgo only
}

// StreamConfig holds buffer scheduling settings.
type StreamConfig struct {
	PullBufferSize     int      `toml:"pull_buffer_size"`     // frames per pull callback
	PushBufferDuration Duration `toml:"push_buffer_duration"` // length of each queued buffer
	MinQueuedBuffers   int      `toml:"min_queued_buffers"`   // queue depth kept while playing
}

// FadeConfig holds fade-in settings.
type FadeConfig struct {
	Enabled  bool     `toml:"enabled"`
	Duration Duration `toml:"duration"`
}

// InterruptionsConfig controls yielding to other media players.
type InterruptionsConfig struct {
	Enabled bool `toml:"enabled"`
}

// RemoteConfig controls the network control surface.
type RemoteConfig struct {
	Enabled   bool   `toml:"enabled"`
	Listen    string `toml:"listen"`    // host:port
	Advertise bool   `toml:"advertise"` // announce over mDNS
	Name      string `toml:"name"`      // mDNS instance name
}

// DefaultConfig returns a Config with default values.
func DefaultConfig() *Config {
	return &Config{
		Audio: AudioConfig{
			Backend:    DefaultBackend,
			SampleRate: audio.DefaultSampleRate,
			Volume:     DefaultVolume,
			BitDepth:   output.BitDepthFloat32,
		},
		Stream: StreamConfig{
			PullBufferSize:     audio.PullBufferSize,
			PushBufferDuration: Duration(audio.PushBufferDuration),
			MinQueuedBuffers:   audio.MinQueuedBuffers,
		},
		Fade: FadeConfig{
			Enabled:  true,
			Duration: Duration(audio.FadeInDuration),
		},
		Interruptions: InterruptionsConfig{
			Enabled: DefaultInterruption,
		},
		Remote: RemoteConfig{
			Enabled:   false,
			Listen:    DefaultListen,
			Advertise: true,
			Name:      DefaultRemoteName,
		},
	}
}

// ConfigPath returns the path to the config file.
// Uses XDG_CONFIG_HOME if set, otherwise ~/.config.
func ConfigPath() string {
	configHome := os.Getenv("XDG_CONFIG_HOME")
	if configHome == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return ""
		}
		configHome = filepath.Join(home, ".config")
	}
	return filepath.Join(configHome, "brownnoise", "config.toml")
}

// LoadConfig loads configuration from the specified path.
// If path is empty, uses the default config path.
// Returns default config if file doesn't exist.
func LoadConfig(path string) (*Config, error) {
	if path == "" {
		path = ConfigPath()
	}

	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return cfg, nil
		}
		return nil, err
	}

	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}

	return cfg, nil
}

// Save writes the configuration to the specified path.
// Creates parent directories if needed.
func (c *Config) Save(path string) error {
	if path == "" {
		path = ConfigPath()
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	data, err := toml.Marshal(c)
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0644)
}

// Validate rejects values the engine cannot run with.
func (c *Config) Validate() error {
	backend := strings.ToLower(c.Audio.Backend)
	if backend != "" && !slices.Contains(output.Backends(), backend) {
		return fmt.Errorf("%w: %q", output.ErrUnknownBackend, c.Audio.Backend)
	}
	if c.Audio.SampleRate < 0 {
		return fmt.Errorf("sample_rate must not be negative, got %d", c.Audio.SampleRate)
	}
	switch c.Audio.BitDepth {
	case 0, output.BitDepthInt16, output.BitDepthFloat32:
	default:
		return fmt.Errorf("%w: bit_depth %d (want 16 or 32)", output.ErrUnsupportedBitDepth, c.Audio.BitDepth)
	}
	if c.Audio.Volume < 0 || c.Audio.Volume > 1 {
		return fmt.Errorf("volume must be between 0 and 1, got %v", c.Audio.Volume)
	}
	if c.Stream.PullBufferSize < 0 {
		return fmt.Errorf("pull_buffer_size must not be negative, got %d", c.Stream.PullBufferSize)
	}
	if c.Stream.MinQueuedBuffers < 0 {
		return fmt.Errorf("min_queued_buffers must not be negative, got %d", c.Stream.MinQueuedBuffers)
	}
	if c.Stream.PushBufferDuration < 0 || c.Fade.Duration < 0 {
		return errors.New("durations must not be negative")
	}
	return nil
}

// Format returns the stream format for the configured sample rate.
func (c *Config) Format() audio.Format {
	rate := c.Audio.SampleRate
	if rate <= 0 {
		rate = audio.DefaultSampleRate
	}
	return audio.Mono(rate)
}

// SessionOptions maps the config onto session tunables.
func (c *Config) SessionOptions() stream.Options {
	return stream.Options{
		FadeEnabled:        c.Fade.Enabled,
		FadeDuration:       c.Fade.Duration.Duration(),
		PushBufferDuration: c.Stream.PushBufferDuration.Duration(),
		MinQueuedBuffers:   c.Stream.MinQueuedBuffers,
	}
}

// OutputOptions maps the config onto backend options.
func (c *Config) OutputOptions() output.Options {
	return output.Options{
		Volume:       c.Audio.Volume,
		BufferFrames: c.Stream.PullBufferSize,
		BitDepth:     c.Audio.BitDepth,
	}
}
