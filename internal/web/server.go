// Package web exposes the import service over HTTP.
package web

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/JonMunkholm/allocimport/internal/config"
	"github.com/JonMunkholm/allocimport/internal/importer"
	"github.com/JonMunkholm/allocimport/internal/web/middleware"
)

// Server is the HTTP server of the import API.
type Server struct {
	svc    *importer.Service
	cfg    config.ServerConfig
	router *chi.Mux
	server *http.Server
}

// NewServer creates a Server for svc.
func NewServer(svc *importer.Service, cfg config.ServerConfig, security config.SecurityConfig) *Server {
	s := &Server{
		svc:    svc,
		cfg:    cfg,
		router: chi.NewRouter(),
	}
	s.setupMiddleware(security)
	s.setupRoutes(security)
	return s
}

func (s *Server) setupMiddleware(security config.SecurityConfig) {
	s.router.Use(chimw.RequestID)
	s.router.Use(middleware.TrustedRealIP(security.TrustedProxies))
	s.router.Use(middleware.Logger)
	s.router.Use(chimw.Recoverer)
	if s.cfg.RequestTimeout > 0 {
		s.router.Use(chimw.Timeout(s.cfg.RequestTimeout))
	}
	s.router.Use(securityHeaders)
}

func (s *Server) setupRoutes(security config.SecurityConfig) {
	s.router.Get("/healthz", s.handleHealth)

	s.router.Route("/api", func(r chi.Router) {
		r.Use(middleware.APIKeyAuth(security))

		r.Get("/imports", s.handleListImports)
		r.Post("/imports", s.handleCreateImport)
		r.Get("/imports/{id}", s.handleGetImport)
		r.Post("/imports/{id}/run", s.handleRunImport)
		r.Get("/imports/{id}/rejects", s.handleListRejects)
	})
}

// Start listens on the configured address until Shutdown is called.
func (s *Server) Start() error {
	s.server = &http.Server{
		Addr:         s.cfg.Addr(),
		Handler:      s.router,
		ReadTimeout:  s.cfg.ReadTimeout,
		WriteTimeout: s.cfg.WriteTimeout,
		IdleTimeout:  s.cfg.IdleTimeout,
	}

	slog.Info("starting server", "addr", s.server.Addr)
	return s.server.ListenAndServe()
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

// Router returns the underlying chi router for testing.
func (s *Server) Router() *chi.Mux {
	return s.router
}

func securityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Cache-Control", "no-store")
		next.ServeHTTP(w, r)
	})
}

// writeJSON encodes v as the response body. Encoding errors are only logged
// since the status has already been sent.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("json encode error", "error", err)
	}
}

// healthStatus is the body of GET /healthz.
type healthStatus struct {
	Status  string                 `json:"status"`
	Imports importer.LimiterStatus `json:"imports"`
	Time    time.Time              `json:"time"`
}
