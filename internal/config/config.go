package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/voxstream/voxstream/pkg/audio"
)

// LiveConfig stores live-session connection settings.
type LiveConfig struct {
	URL    string `yaml:"url"`
	APIKey string `yaml:"api_key"`
	Model  string `yaml:"model"`
}

// PlaybackConfig stores the streaming playback engine settings.
type PlaybackConfig struct {
	SampleRate           int `yaml:"sample_rate"`             // Hz, must match the stream
	FrameSize            int `yaml:"frame_size"`              // samples per scheduling unit
	InitialBufferDelayMs int `yaml:"initial_buffer_delay_ms"` // head start before the first frame
	LookaheadMs          int `yaml:"lookahead_ms"`            // eager scheduling horizon
	PollIntervalMs       int `yaml:"poll_interval_ms"`        // drain re-check interval
	RearmMarginMs        int `yaml:"rearm_margin_ms"`         // wake-up jitter budget
	GainRampMs           int `yaml:"gain_ramp_ms"`            // click-avoidance ramp on stop

	// OutputPath is where the rendered PCM stream is written. Empty
	// discards the realtime render; turns still reach the delivery
	// collaborator.
	OutputPath string `yaml:"output_path"`
}

// TurnConfig stores turn aggregation settings.
type TurnConfig struct {
	AudioMIMEPrefix    string `yaml:"audio_mime_prefix"`
	FilePrefix         string `yaml:"file_prefix"`
	DiscardOnInterrupt *bool  `yaml:"discard_on_interrupt"`
}

// DeliveryConfig stores the playback-device HTTP client settings.
type DeliveryConfig struct {
	BaseURL          string `yaml:"base_url"`
	RequestTimeoutMs int    `yaml:"request_timeout_ms"`
	MaxStoredFiles   int    `yaml:"max_stored_files"` // remote files kept before oldest is deleted

	// InitialVolume is applied to the device at startup, range [0, 1].
	// Unset leaves the device's current volume alone.
	InitialVolume *float64 `yaml:"initial_volume"`
}

// MetricsConfig stores the Prometheus endpoint settings.
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Address string `yaml:"address"`
}

// Config stores the application configuration.
type Config struct {
	Live     LiveConfig     `yaml:"live"`
	Playback PlaybackConfig `yaml:"playback"`
	Turn     TurnConfig     `yaml:"turn"`
	Delivery DeliveryConfig `yaml:"delivery"`
	Metrics  MetricsConfig  `yaml:"metrics"`
	LogLevel string         `yaml:"log_level"`
}

// Defaults for everything the config file leaves out. Stream format
// defaults come from the shared audio constants so the decode, playback
// and container layers agree.
const (
	DefaultSampleRate           = audio.SampleRate
	DefaultFrameSize            = audio.FrameSize
	DefaultInitialBufferDelayMs = 100
	DefaultLookaheadMs          = 200
	DefaultPollIntervalMs       = 100
	DefaultRearmMarginMs        = 50
	DefaultGainRampMs           = 100

	DefaultAudioMIMEPrefix  = "audio/pcm"
	DefaultFilePrefix       = "turn"
	DefaultRequestTimeoutMs = 10_000
	DefaultMaxStoredFiles   = 8
)

// LoadConfig loads the configuration from the given file path and applies
// defaults for unset values.
func LoadConfig(filePath string) (*Config, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", filePath, err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", filePath, err)
	}

	cfg.applyDefaults()

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Playback.SampleRate == 0 {
		c.Playback.SampleRate = DefaultSampleRate
	}
	if c.Playback.FrameSize == 0 {
		c.Playback.FrameSize = DefaultFrameSize
	}
	if c.Playback.InitialBufferDelayMs == 0 {
		c.Playback.InitialBufferDelayMs = DefaultInitialBufferDelayMs
	}
	if c.Playback.LookaheadMs == 0 {
		c.Playback.LookaheadMs = DefaultLookaheadMs
	}
	if c.Playback.PollIntervalMs == 0 {
		c.Playback.PollIntervalMs = DefaultPollIntervalMs
	}
	if c.Playback.RearmMarginMs == 0 {
		c.Playback.RearmMarginMs = DefaultRearmMarginMs
	}
	if c.Playback.GainRampMs == 0 {
		c.Playback.GainRampMs = DefaultGainRampMs
	}
	if c.Turn.AudioMIMEPrefix == "" {
		c.Turn.AudioMIMEPrefix = DefaultAudioMIMEPrefix
	}
	if c.Turn.FilePrefix == "" {
		c.Turn.FilePrefix = DefaultFilePrefix
	}
	if c.Turn.DiscardOnInterrupt == nil {
		discard := true
		c.Turn.DiscardOnInterrupt = &discard
	}
	if c.Delivery.RequestTimeoutMs == 0 {
		c.Delivery.RequestTimeoutMs = DefaultRequestTimeoutMs
	}
	if c.Delivery.MaxStoredFiles == 0 {
		c.Delivery.MaxStoredFiles = DefaultMaxStoredFiles
	}
}

func (c *Config) validate() error {
	if c.Playback.SampleRate <= 0 {
		return fmt.Errorf("playback sample rate must be positive, got %d", c.Playback.SampleRate)
	}
	if c.Playback.FrameSize <= 0 {
		return fmt.Errorf("playback frame size must be positive, got %d", c.Playback.FrameSize)
	}
	if c.Playback.LookaheadMs < c.Playback.RearmMarginMs {
		return fmt.Errorf("lookahead (%d ms) must not be smaller than the re-arm margin (%d ms)",
			c.Playback.LookaheadMs, c.Playback.RearmMarginMs)
	}
	if v := c.Delivery.InitialVolume; v != nil && (*v < 0 || *v > 1) {
		return fmt.Errorf("delivery initial volume must be between 0 and 1, got %v", *v)
	}
	return nil
}

// InitialBufferDelay returns the head start applied before the first frame.
func (p PlaybackConfig) InitialBufferDelay() time.Duration {
	return time.Duration(p.InitialBufferDelayMs) * time.Millisecond
}

// Lookahead returns the eager scheduling horizon.
func (p PlaybackConfig) Lookahead() time.Duration {
	return time.Duration(p.LookaheadMs) * time.Millisecond
}

// PollInterval returns the drain re-check interval.
func (p PlaybackConfig) PollInterval() time.Duration {
	return time.Duration(p.PollIntervalMs) * time.Millisecond
}

// RearmMargin returns the wake-up jitter budget.
func (p PlaybackConfig) RearmMargin() time.Duration {
	return time.Duration(p.RearmMarginMs) * time.Millisecond
}

// GainRamp returns the click-avoidance ramp length.
func (p PlaybackConfig) GainRamp() time.Duration {
	return time.Duration(p.GainRampMs) * time.Millisecond
}

// ShouldDiscardOnInterrupt reports whether an interrupted turn's accumulated
// audio is discarded instead of being flushed by a later turn-complete.
func (t TurnConfig) ShouldDiscardOnInterrupt() bool {
	return t.DiscardOnInterrupt == nil || *t.DiscardOnInterrupt
}

// RequestTimeout returns the per-request timeout for the delivery client.
func (d DeliveryConfig) RequestTimeout() time.Duration {
	return time.Duration(d.RequestTimeoutMs) * time.Millisecond
}
