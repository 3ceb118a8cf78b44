// Package app wires configuration, storage and services into the API server
// and the Telegram bot.
package app

import (
	"context"
	"errors"
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"petfoodverifai/internal/analysis"
	"petfoodverifai/internal/api"
	"petfoodverifai/internal/auth"
	"petfoodverifai/internal/backend"
	"petfoodverifai/internal/config"
	"petfoodverifai/internal/database"
	"petfoodverifai/internal/llm"
	"petfoodverifai/internal/metrics"
	"petfoodverifai/internal/recommend"
	"petfoodverifai/internal/scraper"
	"petfoodverifai/internal/telegram"
)

// App holds the application's dependencies.
type App struct {
	cfg    *config.Config
	logger *zap.Logger

	db           *database.DB
	metricsStore *metrics.Store
	analyses     *analysis.Repository
	sessions     *telegram.SessionRepository
	issuer       *auth.Issuer

	textGen  llm.TextGenerator
	fetcher  scraper.Fetcher
	reg      prometheus.Registerer
	gatherer prometheus.Gatherer
}

// Option customizes an App.
type Option func(*App)

// WithTextGenerator replaces the configured LLM provider.
func WithTextGenerator(g llm.TextGenerator) Option {
	return func(a *App) { a.textGen = g }
}

// WithFetcher replaces the product page scraper.
func WithFetcher(f scraper.Fetcher) Option {
	return func(a *App) { a.fetcher = f }
}

// WithRegistry exports metrics to reg instead of the default registry.
func WithRegistry(reg *prometheus.Registry) Option {
	return func(a *App) {
		a.reg = reg
		a.gatherer = reg
	}
}

// New opens the database and builds the shared stores.
func New(cfg *config.Config, logger *zap.Logger, opts ...Option) (*App, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	db, err := database.NewDB(cfg.DatabasePath)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	a := &App{
		cfg:          cfg,
		logger:       logger,
		db:           db,
		metricsStore: metrics.NewStore(db.SQL),
		analyses:     analysis.NewRepository(db.SQL),
		sessions:     telegram.NewSessionRepository(db.SQL, cfg.SessionTTL),
		issuer:       auth.NewIssuer(cfg.JWTSecret, cfg.TokenTTL),
		fetcher:      scraper.New(cfg.ScrapeTimeout),
		reg:          prometheus.DefaultRegisterer,
		gatherer:     prometheus.DefaultGatherer,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a, nil
}

// APIServer builds the analysis HTTP server.
func (a *App) APIServer(ctx context.Context) (*api.Server, error) {
	if a.textGen == nil {
		textGen, err := llm.New(ctx, a.cfg)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize %s client: %w", a.cfg.LLMProvider, err)
		}
		a.textGen = textGen
	}

	httpMetrics := metrics.NewHTTP(a.reg)
	service := analysis.NewService(
		a.analyses,
		a.fetcher,
		recommend.New(a.textGen),
		a.metricsStore,
		httpMetrics,
		a.logger.Named("analysis"),
	)

	return api.NewServer(a.cfg.Port, api.Deps{
		Service:  service,
		Verifier: a.issuer,
		DB:       a.db.SQL,
		Metrics:  httpMetrics,
		Gatherer: a.gatherer,
		Logger:   a.logger.Named("api"),
	}), nil
}

// Bot builds the Telegram bot. The bot talks to the API at cfg.APIBaseURL
// like any other client.
func (a *App) Bot(botAPI *tgbotapi.BotAPI) (*telegram.Bot, error) {
	flow := telegram.NewFlow(
		botAPI,
		a.sessions,
		backend.NewClient(a.cfg.APIBaseURL),
		a.issuer,
		nil,
		a.logger.Named("flow"),
	)
	return telegram.NewBot(a.cfg, botAPI, flow, a.metricsStore, a.logger.Named("telegram"))
}

// IssueToken mints an API token for userID.
func (a *App) IssueToken(userID string) (string, error) {
	return a.issuer.Issue(userID)
}

// Close releases the LLM client and the database.
func (a *App) Close() error {
	var errs []error
	if c, ok := a.textGen.(llm.Closer); ok {
		errs = append(errs, c.Close())
	}
	errs = append(errs, a.db.Close())
	return errors.Join(errs...)
}
