// shared/api/server.go
package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// BaseServer bundles a mux router with a pre-configured http.Server so every
// service starts from the same middleware and timeout settings.
type BaseServer struct {
	Router *mux.Router
	Server *http.Server
	Logger zerolog.Logger
}

// NewBaseServer builds a BaseServer listening on addr with the common
// middleware applied.
func NewBaseServer(addr string, logger zerolog.Logger) *BaseServer {
	router := mux.NewRouter()

	router.Use(LoggingMiddleware(logger))
	router.Use(CORSMiddleware)

	server := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	return &BaseServer{
		Router: router,
		Server: server,
		Logger: logger,
	}
}

// Start runs the HTTP server until it is shut down.
func (bs *BaseServer) Start() error {
	bs.Logger.Info().Str("addr", bs.Server.Addr).Msg("starting HTTP server")
	if err := bs.Server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("HTTP server failed: %w", err)
	}
	return nil
}

// Shutdown drains in-flight requests and stops the server.
func (bs *BaseServer) Shutdown(ctx context.Context) error {
	log.Info().Msg("shutting down HTTP server")
	return bs.Server.Shutdown(ctx)
}
