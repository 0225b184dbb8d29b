package metrics

import (
	"context"
	"net"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/voxstream/voxstream/internal/config"
)

// Module provides pipeline metrics and, when enabled, the scrape endpoint.
var Module = fx.Module("metrics",
	fx.Provide(provideMetrics),
	fx.Invoke(registerServer),
)

func provideMetrics() *Metrics {
	return New(prometheus.DefaultRegisterer)
}

// registerServer starts the Prometheus scrape endpoint when metrics are
// enabled in the configuration.
func registerServer(lc fx.Lifecycle, cfg *config.Config, logger *zap.Logger) {
	if !cfg.Metrics.Enabled {
		return
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	server := &http.Server{Addr: cfg.Metrics.Address, Handler: mux}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			ln, err := net.Listen("tcp", server.Addr)
			if err != nil {
				return err
			}
			logger.Info("Metrics server listening", zap.String("address", server.Addr))
			go func() {
				if err := server.Serve(ln); err != nil && err != http.ErrServerClosed {
					logger.Error("Metrics server error", zap.Error(err))
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			return server.Shutdown(ctx)
		},
	})
}
