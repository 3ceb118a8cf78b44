// Package submission turns a validated analyze form into a create-analysis
// call and maps the outcome back onto the form's scrape state.
package submission

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"petfoodverifai/internal/analyzeform"
	"petfoodverifai/internal/apierror"
	"petfoodverifai/internal/backend"
)

const (
	successRedirectDelay = 500 * time.Millisecond
	loginRedirectDelay   = 2000 * time.Millisecond
)

const (
	MsgScraping        = "Retrieving ingredients from the product page. This may take a moment..."
	MsgSubmitting      = "Submitting your analysis..."
	MsgSucceeded       = "Analysis complete. Redirecting to your results..."
	MsgSessionExpired  = "Your session has expired. Please log in again."
	MsgScrapeFailed    = "We couldn't retrieve the ingredients automatically. Please enter them manually."
	MsgValidationError = "Please correct the highlighted fields and try again."
	MsgGenericFailure  = "Failed to create the analysis. Please try again."
)

// ErrSubmissionInFlight is returned when Submit is called while another
// submission is still waiting for the backend.
var ErrSubmissionInFlight = errors.New("a submission is already in progress")

// Backend creates analyses.
type Backend interface {
	CreateAnalysis(ctx context.Context, payload backend.CreateAnalysisRequest, authToken string) (*backend.AnalysisResult, error)
}

// Navigator moves the host UI to another view.
type Navigator interface {
	ToResults(analysisID string)
	ToLogin()
}

// Session supplies the auth token of the signed-in user.
type Session interface {
	Token() string
}

// Status is the lifecycle of the current submission.
type Status string

const (
	StatusIdle       Status = "idle"
	StatusSubmitting Status = "submitting"
	StatusSucceeded  Status = "succeeded"
	StatusFailed     Status = "failed"
)

// Outcome tells the caller how a Submit call ended.
type Outcome int

const (
	OutcomeInvalid Outcome = iota
	OutcomeSucceeded
	OutcomeUnauthorized
	OutcomeNeedsManualIngredients
	OutcomeServerValidation
	OutcomeFailed
)

// Orchestrator runs submissions for one form.
type Orchestrator struct {
	form      *analyzeform.Form
	backend   Backend
	navigator Navigator
	session   Session
	scheduler Scheduler
	logger    *zap.Logger

	mu            sync.Mutex
	status        Status
	statusMessage string
	alert         string
	result        *backend.AnalysisResult
}

// New creates an Orchestrator. A nil scheduler uses real timers.
func New(form *analyzeform.Form, b Backend, nav Navigator, session Session, scheduler Scheduler, logger *zap.Logger) *Orchestrator {
	if scheduler == nil {
		scheduler = RealScheduler{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Orchestrator{
		form:      form,
		backend:   b,
		navigator: nav,
		session:   session,
		scheduler: scheduler,
		logger:    logger,
		status:    StatusIdle,
	}
}

// Submit validates the form and, when valid, calls the backend. It blocks
// until the backend answers and always leaves the scrape state settled.
func (o *Orchestrator) Submit(ctx context.Context) (Outcome, error) {
	o.mu.Lock()
	if o.status == StatusSubmitting {
		o.mu.Unlock()
		return OutcomeFailed, ErrSubmissionInFlight
	}

	if !o.form.ValidateForm() {
		// The validation summary is the only error surface now.
		o.alert = ""
		o.mu.Unlock()
		return OutcomeInvalid, nil
	}

	values := o.form.Values()
	payload, err := BuildPayload(values)
	if err != nil {
		o.mu.Unlock()
		return OutcomeInvalid, err
	}

	o.alert = ""
	o.result = nil
	o.status = StatusSubmitting
	if values.HasManualIngredients {
		o.form.SetScrapeState(analyzeform.ScrapeSubmitting)
		o.statusMessage = MsgSubmitting
	} else {
		o.form.SetScrapeState(analyzeform.ScrapeScraping)
		o.statusMessage = MsgScraping
	}
	o.mu.Unlock()

	token := ""
	if o.session != nil {
		token = o.session.Token()
	}

	result, err := o.backend.CreateAnalysis(ctx, payload, token)

	o.mu.Lock()
	defer o.mu.Unlock()
	if err != nil {
		return o.handleFailure(err), nil
	}
	return o.handleSuccess(result), nil
}

func (o *Orchestrator) handleSuccess(result *backend.AnalysisResult) Outcome {
	o.form.SetScrapeState(analyzeform.ScrapeIdle)
	o.status = StatusSucceeded
	o.statusMessage = MsgSucceeded
	o.result = result

	o.logger.Info("analysis created", zap.String("analysis_id", result.AnalysisID))
	id := result.AnalysisID
	o.scheduler.AfterFunc(successRedirectDelay, func() {
		o.navigator.ToResults(id)
	})
	return OutcomeSucceeded
}

func (o *Orchestrator) handleFailure(err error) Outcome {
	o.status = StatusFailed

	var apiErr *apierror.Response
	if !errors.As(err, &apiErr) {
		o.logger.Warn("analysis request failed", zap.Error(err))
		return o.genericFailure()
	}

	o.logger.Info("analysis rejected", zap.Int("status", apiErr.Status), zap.String("message", apiErr.Message))
	switch apiErr.Status {
	case http.StatusUnauthorized:
		o.form.SetScrapeState(analyzeform.ScrapeIdle)
		o.setAlert(MsgSessionExpired)
		o.scheduler.AfterFunc(loginRedirectDelay, o.navigator.ToLogin)
		return OutcomeUnauthorized

	case http.StatusServiceUnavailable:
		o.form.SetScrapeState(analyzeform.ScrapeAwaitingManual)
		o.setAlert(MsgScrapeFailed)
		return OutcomeNeedsManualIngredients

	case http.StatusBadRequest:
		o.form.SetScrapeState(analyzeform.ScrapeIdle)
		fieldErrs, nerr := apierror.Normalize(apiErr)
		if nerr != nil {
			o.logger.Warn("malformed validation response", zap.Error(nerr))
			return o.genericFailure()
		}
		merged := map[analyzeform.Field]string{}
		for key, msg := range fieldErrs {
			if key == apierror.FormKey {
				continue
			}
			field := analyzeform.Field(apierror.LowerFirst(key))
			if _, seen := merged[field]; !seen {
				merged[field] = msg
			}
		}
		if len(merged) == 0 {
			o.setAlert(fieldErrs[apierror.FormKey])
			return OutcomeServerValidation
		}
		o.alert = ""
		o.statusMessage = MsgValidationError
		o.form.ApplyServerErrors(merged)
		return OutcomeServerValidation

	default:
		return o.genericFailure()
	}
}

func (o *Orchestrator) genericFailure() Outcome {
	o.form.SetScrapeState(analyzeform.ScrapeIdle)
	o.setAlert(MsgGenericFailure)
	return OutcomeFailed
}

// setAlert makes the alert the single visible error surface.
func (o *Orchestrator) setAlert(msg string) {
	o.alert = msg
	o.statusMessage = msg
	o.form.HideValidationSummary()
}

// Status returns the current submission status.
func (o *Orchestrator) Status() Status {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.status
}

// StatusMessage is the screen-reader description of the current phase.
func (o *Orchestrator) StatusMessage() string {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.statusMessage
}

// Alert is the most recent API-derived error, or "".
func (o *Orchestrator) Alert() string {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.alert
}

// Result is the last successful analysis, if any.
func (o *Orchestrator) Result() *backend.AnalysisResult {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.result
}

// BuildPayload converts validated form values to the wire request.
// Ingredient text is only sent in manual mode without the "none available" flag.
func BuildPayload(v analyzeform.Values) (backend.CreateAnalysisRequest, error) {
	species, err := backend.ParseSpecies(string(v.Species))
	if err != nil {
		return backend.CreateAnalysisRequest{}, err
	}
	age, err := analyzeform.ParseAge(v.Age)
	if err != nil {
		return backend.CreateAnalysisRequest{}, err
	}

	req := backend.CreateAnalysisRequest{
		ProductName: strings.TrimSpace(v.ProductName),
		ProductURL:  strings.TrimSpace(v.ProductURL),
		Species:     species,
		Breed:       strings.TrimSpace(v.Breed),
		Age:         age,
	}
	if info := strings.TrimSpace(v.AdditionalInfo); info != "" {
		req.AdditionalInfo = &info
	}
	if v.HasManualIngredients && !v.NoIngredientsAvailable {
		text := strings.TrimSpace(v.IngredientsText)
		req.IngredientsText = &text
	}
	return req, nil
}
