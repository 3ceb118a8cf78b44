package analyzeform

import (
	"errors"
	"fmt"
	"strings"
	"sync"
)

// ErrUnknownField is returned when a field name is not a text input of the form.
var ErrUnknownField = errors.New("unknown form field")

// Form holds the values, errors and scrape state of one analyze-form session.
//
// An error is cleared as soon as its field changes and only comes back on the
// next HandleBlur or ValidateForm. The mutex lets a host read snapshots while a
// submission is pending; a form still has a single logical owner.
type Form struct {
	mu          sync.Mutex
	values      Values
	errors      Errors
	scrape      ScrapeState
	showSummary bool
}

// New creates a form pre-filled with the given values. Pass DefaultValues()
// for an empty form or a previous submission for the re-analyze flow.
func New(initial Values) *Form {
	return &Form{
		values: initial,
		errors: Errors{},
		scrape: ScrapeIdle,
	}
}

// UpdateField sets a text field and clears its error, whatever the new value.
func (f *Form) UpdateField(name Field, value string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	switch name {
	case FieldProductName:
		f.values.ProductName = value
	case FieldProductURL:
		f.values.ProductURL = value
	case FieldSpecies:
		f.values.Species = Species(value)
	case FieldBreed:
		f.values.Breed = value
	case FieldAge:
		f.values.Age = value
	case FieldAdditionalInfo:
		f.values.AdditionalInfo = value
	case FieldIngredientsText:
		f.values.IngredientsText = value
	default:
		return fmt.Errorf("%w: %q", ErrUnknownField, name)
	}
	delete(f.errors, name)
	return nil
}

// HandleBlur trims text fields in place and re-runs the field's validator.
func (f *Form) HandleBlur(name Field) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if trimmedOnBlur[name] {
		f.trim(name)
	}

	switch name {
	case FieldAdditionalInfo:
		return nil
	case FieldProductName, FieldProductURL, FieldSpecies, FieldBreed, FieldAge, FieldIngredientsText:
	default:
		return fmt.Errorf("%w: %q", ErrUnknownField, name)
	}

	f.setError(name, validate(name, f.values))
	return nil
}

// ValidateForm runs every applicable validator, replaces the error map with
// the result and reports whether the form is valid. The validation summary is
// shown exactly when at least one error exists.
func (f *Form) ValidateForm() bool {
	f.mu.Lock()
	defer f.mu.Unlock()

	next := Errors{}
	fields := requiredFields
	if f.values.HasManualIngredients && !f.values.NoIngredientsAvailable {
		fields = append(fields[:len(fields):len(fields)], FieldIngredientsText)
	}
	for _, name := range fields {
		if msg := validate(name, f.values); msg != "" {
			next[name] = msg
		}
	}

	f.errors = next
	f.showSummary = len(next) > 0
	return len(next) == 0
}

// SetScrapeState overrides the scrape state.
func (f *Form) SetScrapeState(s ScrapeState) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.scrape = s
}

// ApplyServerErrors merges field errors reported by the server and shows the
// validation summary when any error is present.
func (f *Form) ApplyServerErrors(fieldErrors map[Field]string) {
	f.mu.Lock()
	defer f.mu.Unlock()

	for name, msg := range fieldErrors {
		f.errors[name] = msg
	}
	f.showSummary = len(f.errors) > 0
}

// HideValidationSummary hides the summary so an API alert is the only error surface.
func (f *Form) HideValidationSummary() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.showSummary = false
}

func (f *Form) Values() Values {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.values
}

func (f *Form) Errors() Errors {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.errors.clone()
}

func (f *Form) ScrapeState() ScrapeState {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.scrape
}

func (f *Form) ShowValidationSummary() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.showSummary
}

// AgeWarning returns the non-blocking age advisory for the current value.
func (f *Form) AgeWarning() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return AgeAdvisory(f.values.Age)
}

func (f *Form) trim(name Field) {
	switch name {
	case FieldProductName:
		f.values.ProductName = strings.TrimSpace(f.values.ProductName)
	case FieldProductURL:
		f.values.ProductURL = strings.TrimSpace(f.values.ProductURL)
	case FieldBreed:
		f.values.Breed = strings.TrimSpace(f.values.Breed)
	case FieldIngredientsText:
		f.values.IngredientsText = strings.TrimSpace(f.values.IngredientsText)
	}
}

func (f *Form) setError(name Field, msg string) {
	if msg == "" {
		delete(f.errors, name)
		return
	}
	f.errors[name] = msg
}
