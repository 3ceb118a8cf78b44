package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"petfoodverifai/internal/apierror"
	"petfoodverifai/internal/auth"
	"petfoodverifai/internal/backend"
	"petfoodverifai/internal/errs"
)

const (
	analyzeTimeout = 90 * time.Second
	maxRequestBody = 1 << 20 // 1 MB
)

func (s *Server) handleCreateAnalysis(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBody)

	var req backend.CreateAnalysisRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.renderError(w, http.StatusBadRequest, "Invalid request body.")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), analyzeTimeout)
	defer cancel()

	userID, _ := auth.UserFromContext(ctx)
	result, err := s.service.Create(ctx, userID, req)
	if err != nil {
		s.handleServiceError(w, err)
		return
	}

	w.Header().Set("Location", "/api/analyses/"+result.AnalysisID)
	s.renderJSON(w, http.StatusCreated, result)
}

func (s *Server) handleListAnalyses(w http.ResponseWriter, r *http.Request) {
	page, err := queryInt(r, "page")
	if err != nil {
		s.renderError(w, http.StatusBadRequest, "page must be a number.")
		return
	}
	pageSize, err := queryInt(r, "pageSize")
	if err != nil {
		s.renderError(w, http.StatusBadRequest, "pageSize must be a number.")
		return
	}

	userID, _ := auth.UserFromContext(r.Context())
	result, err := s.service.List(r.Context(), userID, page, pageSize)
	if err != nil {
		s.handleServiceError(w, err)
		return
	}
	s.renderJSON(w, http.StatusOK, result)
}

func (s *Server) handleGetAnalysis(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.UserFromContext(r.Context())
	result, err := s.service.Get(r.Context(), userID, chi.URLParam(r, "id"))
	if err != nil {
		s.handleServiceError(w, err)
		return
	}
	s.renderJSON(w, http.StatusOK, result)
}

type feedbackRequest struct {
	IsPositive *bool `json:"isPositive"`
}

func (s *Server) handleFeedback(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBody)

	var req feedbackRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.renderError(w, http.StatusBadRequest, "Invalid request body.")
		return
	}
	if req.IsPositive == nil {
		s.renderJSON(w, http.StatusBadRequest, apierror.New(http.StatusBadRequest, "Validation failed.", map[string][]string{
			"IsPositive": {"The isPositive field is required."},
		}))
		return
	}

	userID, _ := auth.UserFromContext(r.Context())
	if err := s.service.SubmitFeedback(r.Context(), userID, chi.URLParam(r, "id"), *req.IsPositive); err != nil {
		s.handleServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleHealthCheck(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	if s.db != nil {
		if err := s.db.PingContext(ctx); err != nil {
			s.logger.Error("health check failed for database", zap.Error(err))
			s.renderJSON(w, http.StatusServiceUnavailable, map[string]string{"database": "unhealthy"})
			return
		}
	}
	s.renderJSON(w, http.StatusOK, map[string]string{"database": "healthy"})
}

func (s *Server) handleServiceError(w http.ResponseWriter, err error) {
	var appErr *errs.AppError
	if !errors.As(err, &appErr) {
		s.logger.Error("unhandled service error", zap.Error(err))
		s.renderError(w, http.StatusInternalServerError, "An unexpected error occurred.")
		return
	}

	status := http.StatusInternalServerError
	switch appErr.Kind {
	case errs.InvalidInput:
		status = http.StatusBadRequest
	case errs.Unauthorized:
		status = http.StatusUnauthorized
	case errs.NotFound:
		status = http.StatusNotFound
	case errs.Unavailable:
		status = http.StatusServiceUnavailable
	case errs.Unknown:
		s.logger.Error("service error", zap.Error(err))
	}

	resp := apierror.New(status, appErr.Message, appErr.Fields)
	if status == http.StatusServiceUnavailable && appErr.Cause != nil {
		resp.Details = appErr.Cause.Error()
	}
	s.renderJSON(w, status, resp)
}

func (s *Server) renderJSON(w http.ResponseWriter, status int, data any) {
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(data); err != nil {
		s.logger.Error("failed to encode response", zap.Error(err))
		http.Error(w, `{"status":500,"message":"Internal Server Error"}`, http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = buf.WriteTo(w)
}

func (s *Server) renderError(w http.ResponseWriter, status int, message string) {
	s.renderJSON(w, status, &apierror.Response{Status: status, Message: message})
}

func queryInt(r *http.Request, key string) (int, error) {
	v := r.URL.Query().Get(key)
	if v == "" {
		return 0, nil
	}
	return strconv.Atoi(v)
}
