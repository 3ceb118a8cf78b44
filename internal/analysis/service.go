package analysis

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"petfoodverifai/internal/analyzeform"
	"petfoodverifai/internal/backend"
	"petfoodverifai/internal/errs"
	"petfoodverifai/internal/recommend"
	"petfoodverifai/internal/scraper"
	"petfoodverifai/internal/shared"
)

// Server-side field names, as the API reports them in validation errors.
const (
	FieldProductName     = "ProductName"
	FieldProductURL      = "ProductUrl"
	FieldSpecies         = "Species"
	FieldBreed           = "Breed"
	FieldAge             = "Age"
	FieldAdditionalInfo  = "AdditionalInfo"
	FieldIngredientsText = "IngredientsText"
)

const (
	maxAdditionalInfoLength = 1000
	// A product page that failed to scrape for a user this recently is
	// analyzed without ingredients when that user again sends none.
	ScrapeFailureWindow = time.Hour
)

const (
	MsgValidationFailed   = "One or more validation errors occurred."
	MsgAdditionalInfoLong = "Additional information must be at most 1000 characters"
	MsgScrapeUnavailable  = "We could not retrieve the ingredients from the product page."
	MsgLLMUnavailable     = "The recommendation service is temporarily unavailable."
	MsgAnalysisNotFound   = "Analysis not found."
	MsgUnexpectedError    = "An unexpected error occurred."
)

// Outcome labels passed to the OutcomeCounter.
const (
	OutcomeCreated      = "created"
	OutcomeInvalid      = "invalid"
	OutcomeScrapeFailed = "scrape_failed"
	OutcomeLLMFailed    = "llm_failed"
	OutcomeError        = "error"
)

type Recommender interface {
	Recommend(ctx context.Context, in recommend.Input) (recommend.Result, error)
}

// UsageRecorder persists LLM token usage.
type UsageRecorder interface {
	RecordMeta(ctx context.Context, meta shared.AgentMeta) error
}

type OutcomeCounter interface {
	IncAnalyses(outcome string)
}

type Store interface {
	UpsertProduct(ctx context.Context, p Product) (string, error)
	RecordScrapeFailure(ctx context.Context, userID, url string, at time.Time) error
	LastScrapeFailure(ctx context.Context, userID, url string) (time.Time, error)
	ClearScrapeFailure(ctx context.Context, userID, url string) error
	InsertAnalysis(ctx context.Context, a *Analysis) error
	Get(ctx context.Context, id, userID string) (*Analysis, error)
	ListByUser(ctx context.Context, userID string, page, pageSize int) ([]Analysis, int, error)
	SaveFeedback(ctx context.Context, analysisID, userID string, isPositive bool) error
}

// Service implements the analysis use cases.
type Service struct {
	store       Store
	fetcher     scraper.Fetcher
	recommender Recommender
	usage       UsageRecorder
	outcomes    OutcomeCounter
	logger      *zap.Logger
	now         func() time.Time
}

// NewService creates a Service. usage and outcomes may be nil.
func NewService(store Store, fetcher scraper.Fetcher, recommender Recommender, usage UsageRecorder, outcomes OutcomeCounter, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		store:       store,
		fetcher:     fetcher,
		recommender: recommender,
		usage:       usage,
		outcomes:    outcomes,
		logger:      logger,
		now:         time.Now,
	}
}

// Create validates the request, resolves the ingredient list, asks for a
// recommendation and stores the analysis.
func (s *Service) Create(ctx context.Context, userID string, req backend.CreateAnalysisRequest) (*backend.AnalysisResult, error) {
	req = trimRequest(req)
	if fields := Validate(req); len(fields) > 0 {
		s.count(OutcomeInvalid)
		return nil, errs.Invalid(MsgValidationFailed, fields)
	}

	ingredients, err := s.resolveIngredients(ctx, userID, req)
	if err != nil {
		return nil, err
	}

	in := recommend.Input{
		ProductName: req.ProductName,
		ProductURL:  req.ProductURL,
		Species:     req.Species.String(),
		Breed:       req.Breed,
		Age:         req.Age,
	}
	if req.AdditionalInfo != nil {
		in.AdditionalInfo = *req.AdditionalInfo
	}
	if ingredients != nil {
		in.Ingredients = *ingredients
	}

	res, err := s.recommender.Recommend(ctx, in)
	s.recordUsage(ctx, res.Meta)
	if err != nil {
		s.count(OutcomeLLMFailed)
		s.logger.Error("recommendation failed", zap.String("product_url", req.ProductURL), zap.Error(err))
		return nil, errs.New(errs.Unavailable, MsgLLMUnavailable, err)
	}

	productID, err := s.store.UpsertProduct(ctx, Product{
		ID:              uuid.NewString(),
		Name:            req.ProductName,
		URL:             req.ProductURL,
		IngredientsText: ingredients,
	})
	if err != nil {
		s.count(OutcomeError)
		return nil, errs.New(errs.Unknown, MsgUnexpectedError, err)
	}

	a := &Analysis{
		ID:              uuid.NewString(),
		UserID:          userID,
		ProductID:       productID,
		ProductName:     req.ProductName,
		ProductURL:      req.ProductURL,
		Species:         req.Species,
		Breed:           req.Breed,
		Age:             req.Age,
		AdditionalInfo:  req.AdditionalInfo,
		IngredientsText: ingredients,
		Recommendation:  res.Recommendation.Recommendation,
		Justification:   res.Recommendation.Justification,
		Concerns:        toConcerns(res.Recommendation.Concerns),
		CreatedAt:       s.now().UTC(),
	}
	if err := s.store.InsertAnalysis(ctx, a); err != nil {
		s.count(OutcomeError)
		return nil, errs.New(errs.Unknown, MsgUnexpectedError, err)
	}
	if err := s.store.ClearScrapeFailure(ctx, userID, req.ProductURL); err != nil {
		s.logger.Warn("failed to clear scrape failure", zap.Error(err))
	}

	s.count(OutcomeCreated)
	s.logger.Info("analysis created",
		zap.String("analysis_id", a.ID),
		zap.String("user_id", userID),
		zap.String("recommendation", a.Recommendation),
		zap.Bool("scraped", req.IngredientsText == nil && ingredients != nil),
	)
	return a.Result(), nil
}

// resolveIngredients returns the client's list, else scrapes the product page.
// A nil result means the analysis proceeds without an ingredient list, which
// only happens after the same user's scrape of the page recently failed.
func (s *Service) resolveIngredients(ctx context.Context, userID string, req backend.CreateAnalysisRequest) (*string, error) {
	if req.IngredientsText != nil {
		return req.IngredientsText, nil
	}

	failedAt, err := s.store.LastScrapeFailure(ctx, userID, req.ProductURL)
	switch {
	case err == nil && s.now().Sub(failedAt) < ScrapeFailureWindow:
		s.logger.Info("recent scrape failure, analyzing without ingredients",
			zap.String("user_id", userID),
			zap.String("product_url", req.ProductURL),
		)
		return nil, nil
	case err != nil && !errors.Is(err, ErrNotFound):
		s.count(OutcomeError)
		return nil, errs.New(errs.Unknown, MsgUnexpectedError, err)
	}

	text, err := s.fetcher.FetchIngredients(ctx, req.ProductURL)
	if err == nil {
		return &text, nil
	}

	s.count(OutcomeScrapeFailed)
	s.logger.Warn("ingredient scrape failed", zap.String("product_url", req.ProductURL), zap.Error(err))
	if rerr := s.store.RecordScrapeFailure(ctx, userID, req.ProductURL, s.now()); rerr != nil {
		s.logger.Error("failed to record scrape failure", zap.Error(rerr))
	}
	return nil, errs.New(errs.Unavailable, MsgScrapeUnavailable, err)
}

// Get returns one of the user's analyses.
func (s *Service) Get(ctx context.Context, userID, id string) (*Analysis, error) {
	a, err := s.store.Get(ctx, id, userID)
	if errors.Is(err, ErrNotFound) {
		return nil, errs.New(errs.NotFound, MsgAnalysisNotFound, err)
	}
	if err != nil {
		return nil, errs.New(errs.Unknown, MsgUnexpectedError, err)
	}
	return a, nil
}

// List returns a page of the user's analyses.
func (s *Service) List(ctx context.Context, userID string, page, pageSize int) (*Page, error) {
	page, pageSize = NormalizePaging(page, pageSize)
	items, total, err := s.store.ListByUser(ctx, userID, page, pageSize)
	if err != nil {
		return nil, errs.New(errs.Unknown, MsgUnexpectedError, err)
	}
	return &Page{
		Items:      items,
		Page:       page,
		PageSize:   pageSize,
		TotalCount: total,
		TotalPages: (total + pageSize - 1) / pageSize,
	}, nil
}

// SubmitFeedback records whether the user found the analysis helpful.
func (s *Service) SubmitFeedback(ctx context.Context, userID, id string, isPositive bool) error {
	err := s.store.SaveFeedback(ctx, id, userID, isPositive)
	if errors.Is(err, ErrNotFound) {
		return errs.New(errs.NotFound, MsgAnalysisNotFound, err)
	}
	if err != nil {
		return errs.New(errs.Unknown, MsgUnexpectedError, err)
	}
	return nil
}

// Validate applies the form rules to a create request and returns
// the failures keyed by server field name.
func Validate(req backend.CreateAnalysisRequest) map[string][]string {
	fields := map[string][]string{}
	add := func(field, msg string) {
		if msg != "" {
			fields[field] = append(fields[field], msg)
		}
	}

	add(FieldProductName, analyzeform.ValidateProductName(req.ProductName))
	add(FieldProductURL, analyzeform.ValidateProductURL(req.ProductURL))
	if !req.Species.Valid() {
		add(FieldSpecies, analyzeform.MsgSpeciesRequired)
	}
	add(FieldBreed, analyzeform.ValidateBreed(req.Breed))
	add(FieldAge, analyzeform.ValidateAge(strconv.Itoa(req.Age)))
	if req.AdditionalInfo != nil && len([]rune(*req.AdditionalInfo)) > maxAdditionalInfoLength {
		add(FieldAdditionalInfo, MsgAdditionalInfoLong)
	}
	if req.IngredientsText != nil {
		add(FieldIngredientsText, analyzeform.ValidateIngredients(*req.IngredientsText, true, false))
	}
	return fields
}

func trimRequest(req backend.CreateAnalysisRequest) backend.CreateAnalysisRequest {
	req.ProductName = strings.TrimSpace(req.ProductName)
	req.ProductURL = strings.TrimSpace(req.ProductURL)
	req.Breed = strings.TrimSpace(req.Breed)
	if req.AdditionalInfo != nil {
		info := strings.TrimSpace(*req.AdditionalInfo)
		req.AdditionalInfo = &info
		if info == "" {
			req.AdditionalInfo = nil
		}
	}
	if req.IngredientsText != nil {
		text := strings.TrimSpace(*req.IngredientsText)
		req.IngredientsText = &text
	}
	return req
}

func toConcerns(in []recommend.Concern) []backend.Concern {
	out := make([]backend.Concern, 0, len(in))
	for _, c := range in {
		out = append(out, backend.Concern{Type: c.Type, Description: c.Description})
	}
	return out
}

func (s *Service) recordUsage(ctx context.Context, meta shared.AgentMeta) {
	if s.usage == nil || meta.AgentName == "" {
		return
	}
	if err := s.usage.RecordMeta(ctx, meta); err != nil {
		s.logger.Warn("failed to record llm usage", zap.Error(err))
	}
}

func (s *Service) count(outcome string) {
	if s.outcomes != nil {
		s.outcomes.IncAnalyses(outcome)
	}
}
