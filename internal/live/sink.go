package live

import (
	"context"
	"encoding/base64"
	"time"

	"go.uber.org/zap"

	"github.com/voxstream/voxstream/internal/playback"
	"github.com/voxstream/voxstream/internal/turn"
)

const turnShipTimeout = 30 * time.Second

// NewPlaybackHandlers routes session events into the realtime playback
// engine and the turn aggregator. Audio fragments feed both: decoded
// chunks go straight to the player, while the aggregator keeps the
// encoded text for the end-of-turn assembly.
func NewPlaybackHandlers(logger *zap.Logger, player playback.Player, aggregator turn.Aggregator) Handlers {
	// Once a turn ships, the remote device takes over playback; stop any
	// local tail still draining so the two outputs never overlap.
	aggregator.OnPlaybackPaused(func() {
		logger.Info("Turn delivered, pausing local playback")
		player.Stop()
	})

	return Handlers{
		OnAudio: func(mimeType, data string) {
			aggregator.AddAudio(mimeType, data)

			pcm, err := base64.StdEncoding.DecodeString(data)
			if err != nil {
				logger.Warn("Skipping undecodable audio fragment",
					zap.String("mime_type", mimeType),
					zap.Error(err))
				return
			}
			player.Submit(pcm)
		},
		OnText: func(text string) {
			logger.Info("Model text", zap.String("text", text))
		},
		OnTurnComplete: func() {
			player.Complete()
			// Shipping the turn does network I/O; keep it off the read loop.
			go func() {
				ctx, cancel := context.WithTimeout(context.Background(), turnShipTimeout)
				defer cancel()
				if err := aggregator.CompleteTurn(ctx); err != nil {
					logger.Error("Failed to ship completed turn", zap.Error(err))
				}
			}()
		},
		OnInterrupted: func() {
			player.Stop()
			go func() {
				ctx, cancel := context.WithTimeout(context.Background(), turnShipTimeout)
				defer cancel()
				if err := aggregator.Interrupt(ctx); err != nil {
					logger.Error("Failed to handle interrupted turn", zap.Error(err))
				}
			}()
		},
		OnToolCall: func(call ToolCall) {
			for _, fn := range call.FunctionCalls {
				logger.Info("Tool call requested",
					zap.String("id", fn.ID),
					zap.String("name", fn.Name))
			}
		},
		OnToolCallCancellation: func(cancellation ToolCallCancellation) {
			logger.Info("Tool calls cancelled", zap.Strings("ids", cancellation.IDs))
		},
	}
}
