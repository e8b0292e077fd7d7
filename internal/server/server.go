// Package server provides the HTTP API for Shoko.
package server

import (
	"context"
	"net/http"
	"sync/atomic"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/hyperjump/shoko/internal/config"
	"github.com/hyperjump/shoko/internal/indexer"
	"github.com/hyperjump/shoko/internal/storage"
)

// Server is the HTTP server for the Shoko API.
type Server struct {
	storage  storage.Storage
	manager  *indexer.Manager
	config   config.ServerConfig
	defaults atomic.Pointer[config.IndexConfig]
	limiter  *rate.Limiter // nil when rebuilds are unlimited
	logger   *zap.Logger
	server   *http.Server
}

// NewServer creates a server with the given dependencies.
func NewServer(store storage.Storage, manager *indexer.Manager, cfg *config.Config, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Server{
		storage: store,
		manager: manager,
		config:  cfg.Server,
		logger:  logger,
	}
	if cfg.Server.IndexRateLimit > 0 {
		s.limiter = rate.NewLimiter(rate.Limit(cfg.Server.IndexRateLimit), max(cfg.Server.IndexBurst, 1))
	}
	s.ReloadIndexDefaults(cfg.Index)
	s.server = &http.Server{
		Addr:    cfg.Server.Addr(),
		Handler: s.Router(),
	}
	return s
}

// ReloadIndexDefaults replaces the request-level defaults (algorithm, metric, k
// and max k) used by subsequent requests.
func (s *Server) ReloadIndexDefaults(cfg config.IndexConfig) {
	s.defaults.Store(&cfg)
}

func (s *Server) indexDefaults() *config.IndexConfig {
	return s.defaults.Load()
}

// Router returns the HTTP handler serving the API.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	if s.config.RequestTimeout > 0 {
		r.Use(middleware.Timeout(s.config.RequestTimeout))
	}
	r.Use(middleware.Compress(5))

	r.Get("/", s.handleRoot)
	r.Get("/health", s.handleHealth)
	r.Get("/status", s.handleStatus)

	r.Route("/libraries", func(r chi.Router) {
		r.Post("/", s.handleCreateLibrary)
		r.Get("/", s.handleListLibraries)
		r.Get("/{id}", s.handleGetLibrary)
		r.Put("/{id}", s.handleUpdateLibrary)
		r.Delete("/{id}", s.handleDeleteLibrary)
		r.Get("/{id}/documents", s.handleListLibraryDocuments)
	})
	r.Route("/documents", func(r chi.Router) {
		r.Post("/", s.handleCreateDocument)
		r.Get("/{id}", s.handleGetDocument)
		r.Put("/{id}", s.handleUpdateDocument)
		r.Delete("/{id}", s.handleDeleteDocument)
		r.Get("/{id}/chunks", s.handleListDocumentChunks)
	})
	r.Route("/chunks", func(r chi.Router) {
		r.Post("/", s.handleCreateChunk)
		r.Get("/{id}", s.handleGetChunk)
		r.Put("/{id}", s.handleUpdateChunk)
		r.Delete("/{id}", s.handleDeleteChunk)
	})
	r.Route("/indexing", func(r chi.Router) {
		r.Post("/index/{libraryId}", s.handleIndex)
		r.Post("/search/{libraryId}", s.handleSearch)
		r.Get("/status/{libraryId}", s.handleIndexStatus)
	})
	return r
}

// Start starts the HTTP server and blocks until it stops.
func (s *Server) Start() error {
	s.logger.Info("Starting server", zap.String("addr", s.server.Addr))
	return s.server.ListenAndServe()
}

// Stop gracefully shuts down the server.
func (s *Server) Stop(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}
