// Package server exposes a docservice.Service over HTTP.
package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/matzehuels/docmap/pkg/config"
	"github.com/matzehuels/docmap/pkg/docservice"
)

const shutdownTimeout = 10 * time.Second

// Server is the document service HTTP API.
type Server struct {
	router chi.Router
	svc    *docservice.Service
	log    *log.Logger
	cfg    config.Server
}

// New creates the server and its routes.
func New(svc *docservice.Service, logger *log.Logger, cfg config.Server) *Server {
	if logger == nil {
		logger = log.Default()
	}
	s := &Server{svc: svc, log: logger, cfg: cfg}
	s.setupRoutes()
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) setupRoutes() {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(RequestLogger(s.log))

	r.Get("/health", s.handleHealth)

	r.Route(docservice.APIPrefix, func(r chi.Router) {
		r.Get("/mindmap/{documentID}", s.handleMindMap)

		r.Get("/nodes/{nodeID}", s.handleNode)
		r.Patch("/nodes/{nodeID}", s.handleUpdateNode)
		r.Post("/nodes/{nodeID}/expand", s.handleExpand)

		r.Get("/documents", s.handleListDocuments)
		r.Post("/documents", s.handleImport)
		r.Post("/documents/{contentHash}/load", s.handleLoadDocument)
		r.Get("/documents/{contentHash}/audit", s.handleAudit)
		r.Delete("/documents/{contentHash}", s.handleDeleteDocument)
	})

	s.router = r
}

// ListenAndServe serves on cfg.Addr until ctx is cancelled, then shuts down
// gracefully.
func (s *Server) ListenAndServe(ctx context.Context) error {
	httpServer := &http.Server{
		Addr:         s.cfg.Addr,
		Handler:      s,
		ReadTimeout:  s.cfg.ReadTimeout.Duration,
		WriteTimeout: s.cfg.WriteTimeout.Duration,
		IdleTimeout:  s.cfg.IdleTimeout.Duration,
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.Info("starting document service", "addr", s.cfg.Addr, "documents", s.svc.Index.Len())
		errCh <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	s.log.Info("shutting down...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return httpServer.Shutdown(shutdownCtx)
}
