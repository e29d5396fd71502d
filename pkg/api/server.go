// Package api serves the DLT decoder over HTTP.
//
// Routes under /api/v1 require the X-API-Key header when an API key is
// configured. /metrics is left open for scraping.
package api

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"golang.org/x/sync/errgroup"
)

const shutdownTimeout = 5 * time.Second

// Router builds the HTTP handler with all routes configured
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(requestLogger(s.logger))
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"*"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	// Prometheus metrics endpoint (unprotected for scraping)
	r.Handle("/metrics", s.metrics.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(s.metrics.InstrumentAuthMiddleware(apiKeyMiddleware(s.config.APIKey)))

		// Health check
		r.Get("/health", s.metrics.InstrumentHandler("GET", "/api/v1/health", s.handleHealth))

		// Decoding
		r.Post("/decode", s.metrics.InstrumentHandler("POST", "/api/v1/decode", s.handleDecode))
		r.Post("/arguments/decode", s.metrics.InstrumentHandler("POST", "/api/v1/arguments/decode", s.handleDecodeArguments))

		// Archive
		r.Get("/archive", s.metrics.InstrumentHandler("GET", "/api/v1/archive", s.handleListArchived))
		r.Get("/archive/{id}", s.metrics.InstrumentHandler("GET", "/api/v1/archive/{id}", s.handleGetArchived))
	})

	return r
}

// ListenAndServe serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context) error {
	addr := s.config.Bind + ":" + strconv.Itoa(s.config.Port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		s.logger.Info("starting DLT decode server", "addr", addr, "auth", s.config.APIKey != "")
		if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		s.logger.Info("shutting down DLT decode server")
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

// StartServer starts the HTTP server with all routes configured and blocks
// until ctx is cancelled
func StartServer(ctx context.Context, archive RecordArchive, config ServerConfig) error {
	server := NewServer(archive, config, NewMetrics())
	return server.ListenAndServe(ctx)
}
