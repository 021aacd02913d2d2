// Package handlers provides the HTTP surface of the profiles service,
// bridging the transport layer and business logic: routing, request
// decoding, policy checks and error translation.
package handlers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"
)

// Server wraps the HTTP server lifecycle.
type Server struct {
	httpServer   *http.Server
	logger       *zap.Logger
	httpEndpoint string
}

// NewServer constructs a Server for the given port and handler.
func NewServer(httpPort int, handler http.Handler, logger *zap.Logger) *Server {
	endpoint := fmt.Sprintf(":%d", httpPort)
	return &Server{
		httpServer: &http.Server{
			Addr:    endpoint,
			Handler: handler,
		},
		logger:       logger,
		httpEndpoint: endpoint,
	}
}

// Start runs the HTTP server until it is shut down.
func (s *Server) Start() error {
	s.logger.Info("Starting HTTP server", zap.String("endpoint", s.httpEndpoint))
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("HTTP serve error: %w", err)
	}
	return nil
}

// Stop gracefully shuts down the HTTP server.
func (s *Server) Stop() {
	s.logger.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := s.httpServer.Shutdown(ctx); err != nil {
		s.logger.Error("HTTP server shutdown error", zap.Error(err))
	}

	s.logger.Info("Server stopped")
}
