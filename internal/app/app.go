// Package app provides the main application structure and lifecycle management.
package app

import (
	"context"

	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/voxstream/voxstream/internal/live"
	"github.com/voxstream/voxstream/internal/playback"
)

// Application represents the main application with its lifecycle.
type Application struct {
	app *fx.App
}

// New creates a new Application with the provided modules and options.
func New(modules ...fx.Option) *Application {
	options := append(modules, fx.Invoke(registerLifecycleHooks))

	return &Application{
		app: fx.New(options...),
	}
}

// Run starts the application and blocks until it's stopped.
func (a *Application) Run() {
	a.app.Run()
}

// Stop gracefully stops the application.
func (a *Application) Stop(ctx context.Context) error {
	return a.app.Stop(ctx)
}

// registerLifecycleHooks connects the live session on start and tears
// it down on stop. The session begins dispatching audio to the
// playback pipeline as soon as the connection handshake finishes.
func registerLifecycleHooks(lc fx.Lifecycle, client live.Client, player playback.Player, logger *zap.Logger) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			logger.Info("Starting application: connecting live session")

			if err := player.Resume(ctx); err != nil {
				logger.Error("Failed to resume playback device", zap.Error(err))
				return err
			}
			if err := client.Connect(ctx); err != nil {
				logger.Error("Failed to connect live session", zap.Error(err))
				return err
			}

			logger.Info("Application started successfully")
			return nil
		},
		OnStop: func(ctx context.Context) error {
			logger.Info("Stopping application: closing live session")

			if err := client.Close(); err != nil {
				logger.Error("Failed to close live session", zap.Error(err))
				return err
			}

			logger.Info("Application stopped successfully")
			return nil
		},
	})
}
