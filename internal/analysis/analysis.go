// Package analysis creates, stores and lists pet food analyses.
package analysis

import (
	"errors"
	"time"

	"petfoodverifai/internal/backend"
)

// ErrNotFound is returned when a row does not exist or belongs to another user.
var ErrNotFound = errors.New("not found")

// Product is a pet food product, unique by URL.
type Product struct {
	ID              string
	Name            string
	URL             string
	IngredientsText *string
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// Analysis is one recommendation for one pet.
type Analysis struct {
	ID              string            `json:"analysisId"`
	UserID          string            `json:"-"`
	ProductID       string            `json:"productId"`
	ProductName     string            `json:"productName"`
	ProductURL      string            `json:"productUrl"`
	Species         backend.Species   `json:"species"`
	Breed           string            `json:"breed"`
	Age             int               `json:"age"`
	AdditionalInfo  *string           `json:"additionalInfo"`
	IngredientsText *string           `json:"ingredientsText"`
	Recommendation  string            `json:"recommendation"`
	Justification   string            `json:"justification"`
	Concerns        []backend.Concern `json:"concerns"`
	Feedback        *bool             `json:"feedback"`
	CreatedAt       time.Time         `json:"createdAt"`
}

// Result converts a stored analysis into the create-analysis response.
func (a *Analysis) Result() *backend.AnalysisResult {
	return &backend.AnalysisResult{
		AnalysisID:     a.ID,
		ProductID:      a.ProductID,
		Recommendation: a.Recommendation,
		Justification:  a.Justification,
		Concerns:       a.Concerns,
		CreatedAt:      a.CreatedAt,
	}
}

// Page is one page of a user's analyses, newest first.
type Page struct {
	Items      []Analysis `json:"items"`
	Page       int        `json:"page"`
	PageSize   int        `json:"pageSize"`
	TotalCount int        `json:"totalCount"`
	TotalPages int        `json:"totalPages"`
}

const (
	DefaultPageSize = 10
	MaxPageSize     = 50
)

// NormalizePaging applies the default page and page size and caps the size.
func NormalizePaging(page, pageSize int) (int, int) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = DefaultPageSize
	}
	if pageSize > MaxPageSize {
		pageSize = MaxPageSize
	}
	return page, pageSize
}
