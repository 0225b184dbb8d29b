// Package main provides the entry point for the voxstream playback pipeline.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/fx"

	"github.com/voxstream/voxstream/internal/app"
	"github.com/voxstream/voxstream/internal/config"
	"github.com/voxstream/voxstream/internal/delivery"
	"github.com/voxstream/voxstream/internal/infrastructure"
	"github.com/voxstream/voxstream/internal/live"
	"github.com/voxstream/voxstream/internal/metrics"
	"github.com/voxstream/voxstream/internal/playback"
	"github.com/voxstream/voxstream/internal/turn"
	pkginfra "github.com/voxstream/voxstream/pkg/infrastructure"
)

func main() {
	configPath := "config.yaml"
	if len(os.Args) > 1 {
		configPath = os.Args[1]
	}

	application := app.New(
		// Core modules
		config.Module,
		infrastructure.LoggerModule,
		metrics.Module,

		// Pipeline modules
		playback.Module,
		turn.Module,
		delivery.Module,
		live.Module,

		// Supply the config path
		fx.Supply(configPath),

		// Route Fx's own logging through zap
		fx.WithLogger(pkginfra.NewFxLoggerAdapter),
	)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go application.Run()

	sig := <-sigCh
	fmt.Printf("Received signal: %s, initiating shutdown.\n", sig)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	err := application.Stop(shutdownCtx)
	cancel()

	if err != nil {
		fmt.Printf("Error during shutdown: %v\n", err)
		os.Exit(1)
	}

	fmt.Println("Application has shut down gracefully.")
}
