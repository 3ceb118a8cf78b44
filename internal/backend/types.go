package backend

import (
	"fmt"
	"time"
)

// Species is the wire encoding of a pet species.
type Species int

const (
	SpeciesCat Species = 0
	SpeciesDog Species = 1
)

func (s Species) String() string {
	switch s {
	case SpeciesCat:
		return "Cat"
	case SpeciesDog:
		return "Dog"
	default:
		return fmt.Sprintf("Species(%d)", int(s))
	}
}

// Valid reports whether s is a known species value.
func (s Species) Valid() bool {
	return s == SpeciesCat || s == SpeciesDog
}

// ParseSpecies maps the form value ("Cat" or "Dog") to the wire enum.
func ParseSpecies(v string) (Species, error) {
	switch v {
	case "Cat":
		return SpeciesCat, nil
	case "Dog":
		return SpeciesDog, nil
	}
	return 0, fmt.Errorf("unknown species %q", v)
}

// CreateAnalysisRequest is the payload of POST /api/analyses.
type CreateAnalysisRequest struct {
	ProductName     string  `json:"productName"`
	ProductURL      string  `json:"productUrl"`
	Species         Species `json:"species"`
	Breed           string  `json:"breed"`
	Age             int     `json:"age"`
	AdditionalInfo  *string `json:"additionalInfo"`
	IngredientsText *string `json:"ingredientsText"`
}

// Concern is one issue the recommendation flagged.
type Concern struct {
	Type        string `json:"type"`
	Description string `json:"description"`
}

// AnalysisResult is the response of a successful analysis creation.
type AnalysisResult struct {
	AnalysisID     string    `json:"analysisId"`
	ProductID      string    `json:"productId"`
	Recommendation string    `json:"recommendation"`
	Justification  string    `json:"justification"`
	Concerns       []Concern `json:"concerns"`
	CreatedAt      time.Time `json:"createdAt"`
}
