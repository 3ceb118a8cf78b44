package submission

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"petfoodverifai/internal/analyzeform"
	"petfoodverifai/internal/apierror"
	"petfoodverifai/internal/backend"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type fakeBackend struct {
	mu      sync.Mutex
	calls   []backend.CreateAnalysisRequest
	tokens  []string
	result  *backend.AnalysisResult
	err     error
	release chan struct{}
	started chan struct{}
}

func (f *fakeBackend) CreateAnalysis(ctx context.Context, payload backend.CreateAnalysisRequest, token string) (*backend.AnalysisResult, error) {
	f.mu.Lock()
	f.calls = append(f.calls, payload)
	f.tokens = append(f.tokens, token)
	f.mu.Unlock()

	if f.started != nil {
		close(f.started)
	}
	if f.release != nil {
		<-f.release
	}
	return f.result, f.err
}

type fakeNavigator struct {
	results []string
	logins  int
}

func (n *fakeNavigator) ToResults(id string) { n.results = append(n.results, id) }
func (n *fakeNavigator) ToLogin()            { n.logins++ }

type staticSession string

func (s staticSession) Token() string { return string(s) }

// manualScheduler records delays and runs the callbacks on Fire.
type manualScheduler struct {
	delays []time.Duration
	funcs  []func()
}

func (s *manualScheduler) AfterFunc(d time.Duration, f func()) {
	s.delays = append(s.delays, d)
	s.funcs = append(s.funcs, f)
}

func (s *manualScheduler) Fire() {
	for _, f := range s.funcs {
		f()
	}
	s.funcs = nil
}

func validForm() *analyzeform.Form {
	return analyzeform.New(analyzeform.Values{
		ProductName:    "  Orijen Original ",
		ProductURL:     "https://shop.test/orijen",
		Species:        analyzeform.SpeciesCat,
		Breed:          "Maine Coon",
		Age:            "7",
		AdditionalInfo: "   ",
	})
}

type harness struct {
	form  *analyzeform.Form
	be    *fakeBackend
	nav   *fakeNavigator
	sched *manualScheduler
	orch  *Orchestrator
}

func newHarness(form *analyzeform.Form, be *fakeBackend) *harness {
	h := &harness{form: form, be: be, nav: &fakeNavigator{}, sched: &manualScheduler{}}
	h.orch = New(form, be, h.nav, staticSession("token-1"), h.sched, nil)
	return h
}

func TestSubmit_InvalidFormDoesNotCallBackend(t *testing.T) {
	h := newHarness(analyzeform.New(analyzeform.DefaultValues()), &fakeBackend{})

	outcome, err := h.orch.Submit(context.Background())
	require.NoError(t, err)
	assert.Equal(t, OutcomeInvalid, outcome)
	assert.Empty(t, h.be.calls)
	assert.True(t, h.form.ShowValidationSummary())
	assert.Equal(t, analyzeform.ScrapeIdle, h.form.ScrapeState())
	assert.Equal(t, StatusIdle, h.orch.Status())
}

func TestSubmit_SuccessRedirectsAfterDelay(t *testing.T) {
	h := newHarness(validForm(), &fakeBackend{result: &backend.AnalysisResult{AnalysisID: "an-1"}})

	outcome, err := h.orch.Submit(context.Background())
	require.NoError(t, err)
	assert.Equal(t, OutcomeSucceeded, outcome)
	assert.Equal(t, StatusSucceeded, h.orch.Status())
	assert.Equal(t, analyzeform.ScrapeIdle, h.form.ScrapeState())
	assert.Equal(t, MsgSucceeded, h.orch.StatusMessage())
	assert.Equal(t, "an-1", h.orch.Result().AnalysisID)

	require.Equal(t, []time.Duration{500 * time.Millisecond}, h.sched.delays)
	assert.Empty(t, h.nav.results)
	h.sched.Fire()
	assert.Equal(t, []string{"an-1"}, h.nav.results)

	require.Len(t, h.be.calls, 1)
	got := h.be.calls[0]
	assert.Equal(t, "Orijen Original", got.ProductName)
	assert.Equal(t, backend.SpeciesCat, got.Species)
	assert.Equal(t, 7, got.Age)
	assert.Nil(t, got.AdditionalInfo)
	assert.Nil(t, got.IngredientsText)
	assert.Equal(t, []string{"token-1"}, h.be.tokens)
}

func TestSubmit_ScrapeStateWhilePending(t *testing.T) {
	t.Run("automatic mode scrapes", func(t *testing.T) {
		be := &fakeBackend{result: &backend.AnalysisResult{AnalysisID: "x"}, release: make(chan struct{}), started: make(chan struct{})}
		h := newHarness(validForm(), be)

		done := make(chan struct{})
		go func() {
			defer close(done)
			_, _ = h.orch.Submit(context.Background())
		}()
		<-be.started
		assert.Equal(t, analyzeform.ScrapeScraping, h.form.ScrapeState())
		assert.Equal(t, StatusSubmitting, h.orch.Status())
		assert.Equal(t, MsgScraping, h.orch.StatusMessage())

		_, err := h.orch.Submit(context.Background())
		assert.ErrorIs(t, err, ErrSubmissionInFlight)

		close(be.release)
		<-done
		assert.Len(t, be.calls, 1)
	})

	t.Run("manual mode submits", func(t *testing.T) {
		be := &fakeBackend{result: &backend.AnalysisResult{AnalysisID: "x"}, release: make(chan struct{}), started: make(chan struct{})}
		form := validForm()
		form.EnableManualIngredients()
		form.UpdateManualIngredients("  Chicken, rice, fish oil  ")
		h := newHarness(form, be)

		done := make(chan struct{})
		go func() {
			defer close(done)
			_, _ = h.orch.Submit(context.Background())
		}()
		<-be.started
		assert.Equal(t, analyzeform.ScrapeSubmitting, h.form.ScrapeState())
		assert.Equal(t, MsgSubmitting, h.orch.StatusMessage())
		close(be.release)
		<-done

		require.NotNil(t, be.calls[0].IngredientsText)
		assert.Equal(t, "Chicken, rice, fish oil", *be.calls[0].IngredientsText)
	})
}

func TestSubmit_NoIngredientsAvailableSendsNull(t *testing.T) {
	form := validForm()
	form.EnableManualIngredients()
	form.UpdateManualIngredients("x")
	form.ToggleNoIngredients(true)
	h := newHarness(form, &fakeBackend{result: &backend.AnalysisResult{AnalysisID: "x"}})

	outcome, err := h.orch.Submit(context.Background())
	require.NoError(t, err)
	assert.Equal(t, OutcomeSucceeded, outcome)
	assert.Nil(t, h.be.calls[0].IngredientsText)
}

func TestSubmit_Unauthorized(t *testing.T) {
	h := newHarness(validForm(), &fakeBackend{err: &apierror.Response{Status: 401, Message: "token expired"}})

	outcome, err := h.orch.Submit(context.Background())
	require.NoError(t, err)
	assert.Equal(t, OutcomeUnauthorized, outcome)
	assert.Equal(t, analyzeform.ScrapeIdle, h.form.ScrapeState())
	assert.Equal(t, MsgSessionExpired, h.orch.Alert())
	assert.Equal(t, StatusFailed, h.orch.Status())

	require.Equal(t, []time.Duration{2 * time.Second}, h.sched.delays)
	assert.Zero(t, h.nav.logins)
	h.sched.Fire()
	assert.Equal(t, 1, h.nav.logins)
}

func TestSubmit_ServiceUnavailableOffersManualEntry(t *testing.T) {
	h := newHarness(validForm(), &fakeBackend{err: &apierror.Response{Status: 503}})

	outcome, err := h.orch.Submit(context.Background())
	require.NoError(t, err)
	assert.Equal(t, OutcomeNeedsManualIngredients, outcome)
	assert.Equal(t, analyzeform.ScrapeAwaitingManual, h.form.ScrapeState())
	assert.Equal(t, MsgScrapeFailed, h.orch.Alert())
	assert.False(t, h.form.ManualIngredients().Visible)
	assert.Empty(t, h.sched.delays)

	h.form.EnableManualIngredients()
	assert.True(t, h.form.ManualIngredients().Visible)
	assert.Equal(t, analyzeform.ScrapeManualReady, h.form.ScrapeState())
}

func TestSubmit_ServerValidationMergesFieldErrors(t *testing.T) {
	h := newHarness(validForm(), &fakeBackend{err: apierror.New(400, "Validation failed", map[string][]string{
		"Breed":       {"Unknown breed", "ignored"},
		"ProductName": {"Product already analyzed"},
	})})

	outcome, err := h.orch.Submit(context.Background())
	require.NoError(t, err)
	assert.Equal(t, OutcomeServerValidation, outcome)
	assert.Equal(t, analyzeform.ScrapeIdle, h.form.ScrapeState())
	assert.Equal(t, analyzeform.Errors{
		analyzeform.FieldBreed:       "Unknown breed",
		analyzeform.FieldProductName: "Product already analyzed",
	}, h.form.Errors())
	assert.True(t, h.form.ShowValidationSummary())
	assert.Empty(t, h.orch.Alert())
}

func TestSubmit_ServerValidationArrayErrors(t *testing.T) {
	field := "ProductName"
	h := newHarness(validForm(), &fakeBackend{err: &apierror.Response{
		Status: 400,
		Errors: &apierror.Errors{List: []*apierror.FieldError{{Field: &field, Message: "taken"}}},
	}})

	outcome, err := h.orch.Submit(context.Background())
	require.NoError(t, err)
	assert.Equal(t, OutcomeServerValidation, outcome)
	assert.Equal(t, analyzeform.Errors{analyzeform.FieldProductName: "taken"}, h.form.Errors())
	assert.True(t, h.form.ShowValidationSummary())
	assert.Empty(t, h.orch.Alert())
}

func TestSubmit_ServerValidationWithoutFields(t *testing.T) {
	h := newHarness(validForm(), &fakeBackend{err: &apierror.Response{Status: 400, Message: "Bad payload"}})

	outcome, err := h.orch.Submit(context.Background())
	require.NoError(t, err)
	assert.Equal(t, OutcomeServerValidation, outcome)
	assert.Equal(t, "Bad payload", h.orch.Alert())
	assert.False(t, h.form.ShowValidationSummary())
}

func TestSubmit_OtherFailures(t *testing.T) {
	for name, beErr := range map[string]error{
		"server error":  &apierror.Response{Status: 500},
		"network error": errors.New("dial tcp: connection refused"),
	} {
		t.Run(name, func(t *testing.T) {
			h := newHarness(validForm(), &fakeBackend{err: beErr})

			outcome, err := h.orch.Submit(context.Background())
			require.NoError(t, err)
			assert.Equal(t, OutcomeFailed, outcome)
			assert.Equal(t, analyzeform.ScrapeIdle, h.form.ScrapeState())
			assert.Equal(t, MsgGenericFailure, h.orch.Alert())
			assert.Empty(t, h.sched.delays)
		})
	}
}

func TestSubmit_RetryAfterFailure(t *testing.T) {
	be := &fakeBackend{err: &apierror.Response{Status: 500}}
	h := newHarness(validForm(), be)

	_, err := h.orch.Submit(context.Background())
	require.NoError(t, err)

	be.err = nil
	be.result = &backend.AnalysisResult{AnalysisID: "second"}
	outcome, err := h.orch.Submit(context.Background())
	require.NoError(t, err)
	assert.Equal(t, OutcomeSucceeded, outcome)
	assert.Empty(t, h.orch.Alert())
	assert.Len(t, be.calls, 2)
}

func TestSubmit_ValidationClearsPreviousAlert(t *testing.T) {
	h := newHarness(validForm(), &fakeBackend{err: &apierror.Response{Status: 500}})
	_, err := h.orch.Submit(context.Background())
	require.NoError(t, err)
	require.NotEmpty(t, h.orch.Alert())

	require.NoError(t, h.form.UpdateField(analyzeform.FieldBreed, ""))
	outcome, err := h.orch.Submit(context.Background())
	require.NoError(t, err)
	assert.Equal(t, OutcomeInvalid, outcome)
	assert.Empty(t, h.orch.Alert())
	assert.True(t, h.form.ShowValidationSummary())
}

func TestSubmit_ExponentAgeNeverReachesBackend(t *testing.T) {
	form := validForm()
	require.NoError(t, form.UpdateField(analyzeform.FieldAge, "1e20"))
	h := newHarness(form, &fakeBackend{result: &backend.AnalysisResult{AnalysisID: "a1"}})

	outcome, err := h.orch.Submit(context.Background())
	require.NoError(t, err)
	assert.Equal(t, OutcomeInvalid, outcome)
	assert.Equal(t, analyzeform.MsgAgeNotWhole, h.form.Errors()[analyzeform.FieldAge])
	assert.Empty(t, h.be.calls)
}

func TestBuildPayload_AgeOutOfRange(t *testing.T) {
	v := validForm().Values()
	v.Age = "99999999999"
	_, err := BuildPayload(v)
	assert.Error(t, err)

	v.Age = "7"
	req, err := BuildPayload(v)
	require.NoError(t, err)
	assert.Equal(t, 7, req.Age)
}
