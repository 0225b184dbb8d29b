package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/voxstream/voxstream/internal/config"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadConfig_Defaults(t *testing.T) {
	path := writeConfig(t, `
live:
  url: wss://example.com/session
  model: test-model
delivery:
  base_url: http://device.local:8080
`)

	cfg, err := config.LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "wss://example.com/session", cfg.Live.URL)
	assert.Equal(t, 24_000, cfg.Playback.SampleRate)
	assert.Equal(t, 7_680, cfg.Playback.FrameSize)
	assert.Equal(t, 100*time.Millisecond, cfg.Playback.InitialBufferDelay())
	assert.Equal(t, 200*time.Millisecond, cfg.Playback.Lookahead())
	assert.Equal(t, 100*time.Millisecond, cfg.Playback.PollInterval())
	assert.Equal(t, 50*time.Millisecond, cfg.Playback.RearmMargin())
	assert.Equal(t, 100*time.Millisecond, cfg.Playback.GainRamp())
	assert.Equal(t, "audio/pcm", cfg.Turn.AudioMIMEPrefix)
	assert.Equal(t, "turn", cfg.Turn.FilePrefix)
	assert.True(t, cfg.Turn.ShouldDiscardOnInterrupt())
	assert.Equal(t, 10*time.Second, cfg.Delivery.RequestTimeout())
	assert.Equal(t, 8, cfg.Delivery.MaxStoredFiles)
}

func TestLoadConfig_Overrides(t *testing.T) {
	path := writeConfig(t, `
playback:
  frame_size: 4800
  lookahead_ms: 400
turn:
  file_prefix: reply
  discard_on_interrupt: false
delivery:
  initial_volume: 0.5
`)

	cfg, err := config.LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, 4_800, cfg.Playback.FrameSize)
	assert.Equal(t, 400*time.Millisecond, cfg.Playback.Lookahead())
	assert.Equal(t, "reply", cfg.Turn.FilePrefix)
	assert.False(t, cfg.Turn.ShouldDiscardOnInterrupt())
	require.NotNil(t, cfg.Delivery.InitialVolume)
	assert.Equal(t, 0.5, *cfg.Delivery.InitialVolume)
}

func TestLoadConfig_Invalid(t *testing.T) {
	tests := map[string]string{
		"negative_frame_size":    "playback:\n  frame_size: -1\n",
		"lookahead_below_margin": "playback:\n  lookahead_ms: 20\n  rearm_margin_ms: 50\n",
		"volume_above_one":       "delivery:\n  initial_volume: 1.5\n",
		"negative_volume":        "delivery:\n  initial_volume: -0.2\n",
		"malformed_yaml":         "playback: [not a map\n",
	}

	for name, content := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := config.LoadConfig(writeConfig(t, content))
			assert.Error(t, err)
		})
	}
}

func TestLoadConfig_MissingFile(t *testing.T) {
	_, err := config.LoadConfig(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}
