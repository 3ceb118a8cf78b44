// Package api serves the analysis HTTP API.
package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"petfoodverifai/internal/analysis"
	"petfoodverifai/internal/backend"
	"petfoodverifai/internal/metrics"
)

// Service is the analysis use-case layer.
type Service interface {
	Create(ctx context.Context, userID string, req backend.CreateAnalysisRequest) (*backend.AnalysisResult, error)
	Get(ctx context.Context, userID, id string) (*analysis.Analysis, error)
	List(ctx context.Context, userID string, page, pageSize int) (*analysis.Page, error)
	SubmitFeedback(ctx context.Context, userID, id string, isPositive bool) error
}

// TokenVerifier resolves a bearer token to a user ID.
type TokenVerifier interface {
	Verify(token string) (string, error)
}

// Pinger reports whether the database is reachable.
type Pinger interface {
	PingContext(ctx context.Context) error
}

// Server holds the dependencies for the HTTP server.
type Server struct {
	port       string
	service    Service
	verifier   TokenVerifier
	db         Pinger
	metrics    *metrics.HTTP
	gatherer   prometheus.Gatherer
	logger     *zap.Logger
	router     http.Handler
	httpServer *http.Server
}

// Deps groups the collaborators of NewServer.
type Deps struct {
	Service  Service
	Verifier TokenVerifier
	DB       Pinger
	Metrics  *metrics.HTTP
	Gatherer prometheus.Gatherer
	Logger   *zap.Logger
}

func NewServer(port string, d Deps) *Server {
	if d.Logger == nil {
		d.Logger = zap.NewNop()
	}
	if d.Gatherer == nil {
		d.Gatherer = prometheus.DefaultGatherer
	}
	s := &Server{
		port:     port,
		service:  d.Service,
		verifier: d.Verifier,
		db:       d.DB,
		metrics:  d.Metrics,
		gatherer: d.Gatherer,
		logger:   d.Logger,
	}
	s.router = s.setupRouter()
	return s
}

// Handler returns the routed handler, for tests and embedding.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) Start() error {
	s.httpServer = &http.Server{
		Addr:              fmt.Sprintf(":%s", s.port),
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
		// Creating an analysis scrapes a page and waits for the LLM.
		WriteTimeout: analyzeTimeout + 10*time.Second,
	}
	s.logger.Info("api server listening", zap.String("port", s.port))
	return s.httpServer.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	if s.httpServer == nil {
		return nil
	}
	return s.httpServer.Shutdown(ctx)
}
