// Package httpserver builds the API server with sane timeouts.
package httpserver

import (
	"context"
	"net/http"
	"time"
)

// ShutdownTimeout bounds graceful drain on exit.
const ShutdownTimeout = 10 * time.Second

// New builds an HTTP server with defaults suited to a small JSON API.
func New(addr string, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
}

// Shutdown drains the server within ShutdownTimeout.
func Shutdown(srv *http.Server) error {
	ctx, cancel := context.WithTimeout(context.Background(), ShutdownTimeout)
	defer cancel()
	return srv.Shutdown(ctx)
}
