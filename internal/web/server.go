package web

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/kozaktomas/photo-curator/internal/database"
	"github.com/kozaktomas/photo-curator/internal/labels"
	"github.com/kozaktomas/photo-curator/internal/logging"
	"github.com/kozaktomas/photo-curator/internal/recommend"
	"github.com/kozaktomas/photo-curator/internal/web/handlers"
	"github.com/kozaktomas/photo-curator/internal/web/middleware"
)

// Dependencies are the domain objects served by the API
type Dependencies struct {
	Curator  *recommend.Curator
	Settings *labels.Settings
	Index    *database.FingerprintIndex
	// Caches are cleared by DELETE /api/v1/cache
	Caches []handlers.CacheClearer
	Logger *slog.Logger
}

// Server represents the web server
type Server struct {
	deps       Dependencies
	logger     *slog.Logger
	router     *chi.Mux
	httpServer *http.Server

	// baseCtx parents every request and is cancelled when shutdown starts,
	// which ends open event streams.
	baseCtx    context.Context
	cancelBase context.CancelFunc
}

// NewServer creates a new web server
func NewServer(deps Dependencies, host string, port int, allowedOrigins []string) *Server {
	r := chi.NewRouter()
	if deps.Index == nil {
		deps.Index = database.NewFingerprintIndex()
	}

	s := &Server{
		deps:   deps,
		logger: logging.OrDefault(deps.Logger),
		router: r,
	}

	// Set up middleware stack
	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.RealIP)
	r.Use(chiMiddleware.Logger)
	r.Use(chiMiddleware.Recoverer)
	r.Use(middleware.CORS(allowedOrigins))
	r.Use(middleware.SecurityHeaders())

	s.setupRoutes()

	s.baseCtx, s.cancelBase = context.WithCancel(context.Background())

	s.httpServer = &http.Server{
		Addr:        fmt.Sprintf("%s:%d", host, port),
		Handler:     r,
		ReadTimeout: 30 * time.Second,
		// no WriteTimeout, the event stream stays open
		IdleTimeout: 60 * time.Second,
		BaseContext: func(net.Listener) context.Context { return s.baseCtx },
	}
	s.httpServer.RegisterOnShutdown(s.cancelBase)

	return s
}

// Start starts the HTTP server
func (s *Server) Start() error {
	s.logger.Info("starting web server", "addr", s.httpServer.Addr)
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("failed to start server: %w", err)
	}
	return nil
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down web server")
	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutting down server: %w", err)
	}
	return nil
}

// Router returns the chi router for testing
func (s *Server) Router() *chi.Mux {
	return s.router
}
