package analyzeform

// ManualMode is the explicit form of the (hasManualIngredients,
// noIngredientsAvailable) pair.
type ManualMode int

const (
	// Automatic means ingredients come from scraping the product URL.
	Automatic ManualMode = iota
	// ManualEntering means the user types the ingredient list.
	ManualEntering
	// ManualNoneAvailable means the user declared that no list exists.
	ManualNoneAvailable
)

func (m ManualMode) String() string {
	switch m {
	case Automatic:
		return "automatic"
	case ManualEntering:
		return "manual"
	case ManualNoneAvailable:
		return "none-available"
	default:
		return "unknown"
	}
}

// ManualIngredientsState is derived from Values and never stored on its own.
type ManualIngredientsState struct {
	Visible                bool
	Value                  string
	NoIngredientsAvailable bool
	Mode                   ManualMode
}

func manualMode(v Values) ManualMode {
	switch {
	case !v.HasManualIngredients:
		return Automatic
	case v.NoIngredientsAvailable:
		return ManualNoneAvailable
	default:
		return ManualEntering
	}
}

// ManualIngredients returns the manual-ingredients panel state.
func (f *Form) ManualIngredients() ManualIngredientsState {
	f.mu.Lock()
	defer f.mu.Unlock()

	return ManualIngredientsState{
		Visible:                f.values.HasManualIngredients,
		Value:                  f.values.IngredientsText,
		NoIngredientsAvailable: f.values.NoIngredientsAvailable,
		Mode:                   manualMode(f.values),
	}
}

// EnableManualIngredients opens the manual panel, usually after a failed scrape.
func (f *Form) EnableManualIngredients() {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.values.HasManualIngredients = true
	f.scrape = ScrapeManualReady
}

// ResetManualIngredients returns to automatic mode and drops any manual text
// so it cannot leak into a later automatic submission.
func (f *Form) ResetManualIngredients() {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.values.HasManualIngredients = false
	f.values.IngredientsText = ""
	f.values.NoIngredientsAvailable = false
	delete(f.errors, FieldIngredientsText)
	f.scrape = ScrapeIdle
}

// UpdateManualIngredients sets the ingredient text and clears its error.
func (f *Form) UpdateManualIngredients(text string) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.values.IngredientsText = text
	delete(f.errors, FieldIngredientsText)
}

// ToggleNoIngredients marks that the product has no ingredient list. Checking
// it exempts the ingredient field from validation and clears its error; the
// typed text is kept.
func (f *Form) ToggleNoIngredients(checked bool) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.values.NoIngredientsAvailable = checked
	if checked {
		delete(f.errors, FieldIngredientsText)
	}
}
