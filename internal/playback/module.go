package playback

import (
	"io"
	"os"

	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/voxstream/voxstream/internal/config"
	"github.com/voxstream/voxstream/internal/metrics"
)

var Module = fx.Module("playback",
	fx.Provide(
		NewDevice,
		providePlayer,
	),
)

func providePlayer(lc fx.Lifecycle, logger *zap.Logger, cfg *config.Config, device Device, m *metrics.Metrics) Player {
	p := NewPlayer(logger, cfg, device, m)
	lc.Append(fx.StopHook(p.Close))
	return p
}

// NewDevice builds the output device from configuration: a paced PCM
// writer to the configured path, or a discarding writer when no path
// is set.
func NewDevice(lc fx.Lifecycle, cfg *config.Config, logger *zap.Logger) (Device, error) {
	var sink io.Writer = io.Discard
	var file *os.File
	if cfg.Playback.OutputPath != "" {
		f, err := os.OpenFile(cfg.Playback.OutputPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return nil, err
		}
		file = f
		sink = f
	}

	device := NewWriterDevice(sink, cfg.Playback.SampleRate, logger)
	lc.Append(fx.StopHook(func() error {
		err := device.Close()
		if file != nil {
			if cerr := file.Close(); err == nil {
				err = cerr
			}
		}
		return err
	}))
	return device, nil
}
