package api

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"petfoodverifai/internal/auth"
)

const msgUnauthorized = "Authentication is required to access this resource."

func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		s.logger.Info("http request",
			zap.String("request_id", middleware.GetReqID(r.Context())),
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Int("bytes", ww.BytesWritten()),
			zap.Duration("duration", time.Since(start)),
			zap.String("remote_addr", r.RemoteAddr),
		)
	})
}

// recoverer turns a panic into a 500 envelope.
func (s *Server) recoverer(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				if rec == http.ErrAbortHandler {
					panic(rec)
				}
				s.logger.Error("panic in handler",
					zap.Any("panic", rec),
					zap.String("request_id", middleware.GetReqID(r.Context())),
					zap.Stack("stack"),
				)
				s.renderError(w, http.StatusInternalServerError, "An unexpected error occurred.")
			}
		}()
		next.ServeHTTP(w, r)
	})
}

// instrument records request counts and latency by route pattern.
func (s *Server) instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		path := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
			path = rctx.RoutePattern()
		}
		status := strconv.Itoa(ww.Status())
		s.metrics.RequestDuration.WithLabelValues(r.Method, path, status).Observe(time.Since(start).Seconds())
		s.metrics.RequestsTotal.WithLabelValues(r.Method, path, status).Inc()
	})
}

func (s *Server) authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || strings.TrimSpace(token) == "" {
			s.renderError(w, http.StatusUnauthorized, msgUnauthorized)
			return
		}

		userID, err := s.verifier.Verify(strings.TrimSpace(token))
		if err != nil {
			s.logger.Debug("rejected token", zap.Error(err))
			s.renderError(w, http.StatusUnauthorized, msgUnauthorized)
			return
		}

		next.ServeHTTP(w, r.WithContext(auth.WithUser(r.Context(), userID)))
	})
}
