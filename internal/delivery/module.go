package delivery

import (
	"context"
	"fmt"

	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/voxstream/voxstream/internal/config"
	"github.com/voxstream/voxstream/internal/turn"
)

var Module = fx.Module("delivery",
	fx.Provide(
		NewClient,
		func(c Client) turn.Deliverer { return c },
	),
	fx.Invoke(registerStartupVolume),
)

type startupVolumeParams struct {
	fx.In

	LC     fx.Lifecycle
	Logger *zap.Logger
	Cfg    *config.Config
	Client Client
}

// registerStartupVolume applies the configured device volume when the
// application starts. Left unset, the device keeps whatever it had.
func registerStartupVolume(p startupVolumeParams) {
	if p.Cfg.Delivery.InitialVolume == nil {
		return
	}
	volume := *p.Cfg.Delivery.InitialVolume
	p.LC.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			if err := p.Client.SetVolume(ctx, volume); err != nil {
				return fmt.Errorf("failed to apply startup volume: %w", err)
			}
			p.Logger.Info("Device volume applied", zap.Float64("volume", volume))
			return nil
		},
	})
}
