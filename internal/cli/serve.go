package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/wavebound/storyline"
	httpAdapter "github.com/wavebound/storyline/pkg/adapters/http"
	"github.com/wavebound/storyline/pkg/observability"
)

// ShutdownTimeout bounds how long in-flight requests may take on shutdown.
const ShutdownTimeout = 5 * time.Second

// NewAPI builds the authoring and preview API with its own metrics registry.
// Preview sessions use the engine's playback settings.
func NewAPI(engine *storyline.Engine, logger *slog.Logger) *httpAdapter.Server {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	metrics := observability.NewMetrics(reg)

	return httpAdapter.NewServer(engine.Episodes(),
		httpAdapter.WithLogger(logger),
		httpAdapter.WithVersion(storyline.Version),
		httpAdapter.WithMetricsHandler(promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg})),
		httpAdapter.WithHooks(observability.Chain(observability.LogHooks(logger), metrics.Hooks())),
		httpAdapter.WithPlaybackOptions(engine.PlaybackOptions()...),
	)
}

// Serve runs api on addr until ctx is cancelled, then shuts down gracefully.
func Serve(ctx context.Context, addr string, api *httpAdapter.Server, out io.Writer) error {
	// Request contexts derive from base so open event streams end on shutdown.
	base, cancelBase := context.WithCancel(context.Background())
	defer cancelBase()
	srv := &http.Server{
		Addr:              addr,
		Handler:           api.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return base },
	}

	serverErrors := make(chan error, 1)
	go func() {
		printSystemMessage(out, "Starting storyline server on %s", addr)
		serverErrors <- srv.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		api.Close()
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("server error: %w", err)

	case <-ctx.Done():
		printSystemMessage(out, "Shutting down")
		cancelBase()
		api.Close()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), ShutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			_ = srv.Close()
			return fmt.Errorf("graceful shutdown did not complete in %v: %w", ShutdownTimeout, err)
		}
		printSystemMessage(out, "Server stopped")
		return nil
	}
}
