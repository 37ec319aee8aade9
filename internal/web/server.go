// Package web serves the optional HTTP status API next to the control loop.
package web

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	log "github.com/sirupsen/logrus"

	"github.com/shayanshabani/MotionGuard-IoT-and-Vision-Integration/internal/web/handlers"
	"github.com/shayanshabani/MotionGuard-IoT-and-Vision-Integration/internal/web/middleware"
)

// Server represents the web server
type Server struct {
	router     *chi.Mux
	httpServer *http.Server
	log        log.FieldLogger
}

// NewServer creates a status server on addr for the given gate. broker may be nil.
func NewServer(addr string, g handlers.Gate, broker handlers.Broker, gallerySize int, allowedOrigins []string, logger log.FieldLogger) *Server {
	if logger == nil {
		logger = log.StandardLogger()
	}
	r := chi.NewRouter()

	s := &Server{
		router: r,
		log:    logger.WithField("component", "web"),
	}

	// Set up middleware stack
	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.RealIP)
	r.Use(chiMiddleware.RequestLogger(&chiMiddleware.DefaultLogFormatter{Logger: s.log, NoColor: true}))
	r.Use(chiMiddleware.Recoverer)
	r.Use(chiMiddleware.Timeout(30 * time.Second))
	r.Use(middleware.CORS(allowedOrigins))

	s.setupRoutes(handlers.NewGateHandler(g, broker, gallerySize, s.log))

	s.httpServer = &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return s
}

func (s *Server) setupRoutes(gateHandler *handlers.GateHandler) {
	s.router.Get("/api/v1/health", handlers.HealthCheck)

	s.router.Route("/api/v1", func(r chi.Router) {
		r.Get("/status", gateHandler.Status)
		r.Post("/trigger", gateHandler.Trigger)
		r.Get("/probe", gateHandler.Probe)
	})
}

// Start starts the HTTP server and blocks until it is shut down.
func (s *Server) Start() error {
	s.log.WithField("addr", s.httpServer.Addr).Info("Starting status server")
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("failed to start server: %w", err)
	}
	return nil
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	s.log.Info("Shutting down status server")
	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutting down server: %w", err)
	}
	return nil
}

// Router returns the chi router for testing
func (s *Server) Router() *chi.Mux {
	return s.router
}
