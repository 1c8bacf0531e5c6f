package relay

import (
	"context"
	"net/http"
	"time"

	"github.com/rs/zerolog"
)

// NewServer creates the HTTP server hosting the relay. Read/write
// timeouts apply to the plain HTTP surface; established WebSocket
// connections manage their own deadlines in the client pumps.
func NewServer(cfg Config, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:         cfg.Addr,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
}

// ShutdownServer gracefully stops the HTTP server, waiting for in-flight
// requests up to the timeout.
func ShutdownServer(server *http.Server, timeout time.Duration, log zerolog.Logger) error {
	log.Info().Msg("shutting down http server")

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Warn().Err(err).Msg("http server shutdown")
		return err
	}

	log.Info().Msg("http server shutdown complete")
	return nil
}
