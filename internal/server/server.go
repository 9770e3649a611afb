// Package server provides the HTTP API for vecstore.
package server

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"
	"golang.org/x/time/rate"

	"github.com/hyperjump/vecstore/internal/config"
	"github.com/hyperjump/vecstore/internal/store"
)

// Server is the HTTP server for the vecstore API.
type Server struct {
	store   *store.Store
	config  *config.Config
	logger  *zap.Logger
	server  *http.Server
	sem     *semaphore.Weighted
	limiter *rate.Limiter
	started time.Time
}

// NewServer creates a server with the given dependencies.
func NewServer(st *store.Store, cfg *config.Config, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Server{
		store:   st,
		config:  cfg,
		logger:  logger,
		started: time.Now(),
	}
	if cfg.Server.MaxConcurrent > 0 {
		s.sem = semaphore.NewWeighted(int64(cfg.Server.MaxConcurrent))
	}
	if rps := cfg.Server.RequestsPerSecond; rps > 0 {
		s.limiter = rate.NewLimiter(rate.Limit(rps), max(1, int(rps)))
	}
	return s
}

// Handler builds the router.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(s.logRequests)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Compress(5))

	r.Get("/health", s.handleHealth)

	r.Route("/api/v1", func(r chi.Router) {
		if s.config.Server.MaxBodyBytes > 0 {
			r.Use(middleware.RequestSize(s.config.Server.MaxBodyBytes))
		}
		r.Use(s.limitConcurrency)
		r.Use(s.limitRate)

		r.Get("/status", s.handleStatus)
		r.Get("/collections", s.handleListCollections)
		r.Post("/collections", s.handleCreateCollection)
		r.Delete("/collections/{id}", s.handleDeleteCollection)
		r.Post("/collections/{id}/documents", s.handleAddDocuments)
		r.Get("/collections/{id}/documents", s.handleGetDocuments)
		r.Post("/collections/{id}/query", s.handleQuery)
	})
	return r
}

// Start starts the HTTP server and blocks until it stops.
func (s *Server) Start() error {
	addr := s.config.Server.Addr()
	s.server = &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	s.logger.Info("Starting server", zap.String("addr", addr))
	return s.server.ListenAndServe()
}

// Stop gracefully shuts down the server.
func (s *Server) Stop(ctx context.Context) error {
	if s.server != nil {
		return s.server.Shutdown(ctx)
	}
	return nil
}
