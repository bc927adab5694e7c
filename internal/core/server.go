// Package core provides the API chassis for the potager service.
// It assembles a chi router and enforces cross-cutting concerns -- request
// identity, authentication, logging, and panic recovery -- before requests
// reach domain-specific handlers.
package core

import (
	"context"
	"crypto/sha256"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"

	"github.com/go-chi/chi/v5"

	"potager/internal/config"
)

// Server encapsulates the dependencies of the potager API, allowing for
// easy injection during testing and distinct configuration for different
// environments.
type Server struct {
	Config    *config.Config
	Logger    *slog.Logger
	Validator *Validator
	Metrics   MetricsCollector

	// V1RouteRegistrars mount domain handler routes under /v1. They are
	// populated by the application entry point; the indirection avoids an
	// import cycle between core and the handler packages.
	V1RouteRegistrars []func(chi.Router)

	// HealthProbes are the dependency checks run by the readiness
	// endpoint. The liveness endpoint never runs them.
	HealthProbes []HealthProbe

	router *chi.Mux

	// Cache of the last accepted bearer token digest; see RequireToken.
	tokenMu     sync.RWMutex
	tokenDigest [sha256.Size]byte
	tokenSeen   bool

	shutdownFuncs []func(context.Context) error
}

// NewServer initializes dependencies, sets up the router, and prepares the
// server for route mounting. It performs a "fail-fast" check on critical
// configuration.
//
// The caller is responsible for mounting routes (via MountRoutes) after
// construction. This separation allows tests to customize route
// registration.
func NewServer(cfg *config.Config, logger *slog.Logger) (*Server, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config must not be nil")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger must not be nil")
	}

	return &Server{
		Config:    cfg,
		Logger:    logger,
		Validator: NewValidator(logger),
		router:    chi.NewRouter(),
	}, nil
}

// Handler returns the http.Handler interface for the router, for use with
// http.Server.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Router returns the underlying chi.Mux for route registration.
func (s *Server) Router() *chi.Mux {
	return s.router
}

// RegisterShutdown adds a cleanup function run by Shutdown. The entry
// point registers the database pool close here so the HTTP layer and
// its backing resources share one termination path.
func (s *Server) RegisterShutdown(fn func(context.Context) error) {
	s.shutdownFuncs = append(s.shutdownFuncs, fn)
}

// Shutdown performs a graceful termination of server resources, running
// the registered cleanup functions in reverse registration order.
func (s *Server) Shutdown(ctx context.Context) error {
	s.Logger.Info("server shutdown initiated")

	var errs []error
	for i := len(s.shutdownFuncs) - 1; i >= 0; i-- {
		if err := s.shutdownFuncs[i](ctx); err != nil {
			s.Logger.Error("shutdown cleanup failed", "error", err)
			errs = append(errs, err)
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("shutdown cleanup: %w", errors.Join(errs...))
	}

	s.Logger.Info("server shutdown complete")
	return nil
}
