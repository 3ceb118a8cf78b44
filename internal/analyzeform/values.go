package analyzeform

// Field identifies a form input using the client-side key.
type Field string

const (
	FieldProductName     Field = "productName"
	FieldProductURL      Field = "productUrl"
	FieldSpecies         Field = "species"
	FieldBreed           Field = "breed"
	FieldAge             Field = "age"
	FieldAdditionalInfo  Field = "additionalInfo"
	FieldIngredientsText Field = "ingredientsText"
)

// requiredFields are validated on every ValidateForm call, in display order.
var requiredFields = []Field{
	FieldProductName,
	FieldProductURL,
	FieldSpecies,
	FieldBreed,
	FieldAge,
}

// trimmedOnBlur lists the text fields that are trimmed in place on blur.
var trimmedOnBlur = map[Field]bool{
	FieldProductName:     true,
	FieldProductURL:      true,
	FieldBreed:           true,
	FieldIngredientsText: true,
}

// Species as selected in the form. The zero value means nothing was picked.
type Species string

const (
	SpeciesUnset Species = ""
	SpeciesCat   Species = "Cat"
	SpeciesDog   Species = "Dog"
)

// Values is the mutable state of a single analyze form.
type Values struct {
	ProductName            string  `json:"productName"`
	ProductURL             string  `json:"productUrl"`
	Species                Species `json:"species"`
	Breed                  string  `json:"breed"`
	Age                    string  `json:"age"` // raw text; empty means not provided
	AdditionalInfo         string  `json:"additionalInfo"`
	IngredientsText        string  `json:"ingredientsText"`
	HasManualIngredients   bool    `json:"hasManualIngredients"`
	NoIngredientsAvailable bool    `json:"noIngredientsAvailable"`
}

// DefaultValues returns the values of a freshly mounted form.
func DefaultValues() Values {
	return Values{}
}

// Errors maps a field to its current error message. A missing key means the
// field is valid.
type Errors map[Field]string

func (e Errors) clone() Errors {
	out := make(Errors, len(e))
	for k, v := range e {
		out[k] = v
	}
	return out
}

// ScrapeState drives which affordances the host UI shows.
type ScrapeState string

const (
	ScrapeIdle           ScrapeState = "idle"
	ScrapeScraping       ScrapeState = "scraping"
	ScrapeAwaitingManual ScrapeState = "awaitingManual"
	ScrapeManualReady    ScrapeState = "manualReady"
	ScrapeSubmitting     ScrapeState = "submitting"
)
