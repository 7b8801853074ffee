package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/RishiKendai/provenance/internal/metrics"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

// StartServer serves router on port in the background and returns the server
// for graceful shutdown.
func StartServer(router *gin.Engine, port string) *http.Server {
	srv := newServer(port, router)
	go serve(srv, "HTTP")
	return srv
}

// StartMetricsServer exposes /metrics on its own port.
func StartMetricsServer(port string) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler())

	srv := newServer(port, mux)
	go serve(srv, "Metrics")
	return srv
}

func newServer(port string, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              fmt.Sprintf(":%s", port),
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}
}

func serve(srv *http.Server, name string) {
	log.Info().Str("address", srv.Addr).Msgf("%s server started", name)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatal().Err(err).Msgf("%s server failed to start", name)
	}
}

// ShutdownServer waits up to timeout for in-flight requests to finish.
func ShutdownServer(srv *http.Server, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}

	log.Info().Str("address", srv.Addr).Msg("Server shutdown complete")
	return nil
}
