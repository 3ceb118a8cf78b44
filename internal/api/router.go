package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func (s *Server) setupRouter() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.requestLogger)
	r.Use(s.recoverer)
	if s.metrics != nil {
		r.Use(s.instrument)
	}

	r.Get("/metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}).ServeHTTP)
	r.Get("/health", s.handleHealthCheck)

	r.Route("/api/analyses", func(r chi.Router) {
		r.Use(s.authenticate)
		r.Post("/", s.handleCreateAnalysis)
		r.Get("/", s.handleListAnalyses)
		r.Get("/{id}", s.handleGetAnalysis)
		r.Post("/{id}/feedback", s.handleFeedback)
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		s.renderError(w, http.StatusNotFound, "Resource not found.")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		s.renderError(w, http.StatusMethodNotAllowed, "Method not allowed.")
	})

	return r
}
