package live

import "go.uber.org/fx"

var Module = fx.Module("live",
	fx.Provide(
		NewPlaybackHandlers,
		NewClient,
	),
)
