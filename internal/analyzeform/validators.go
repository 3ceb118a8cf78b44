package analyzeform

import (
	"fmt"
	"math"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"unicode/utf8"
)

const (
	MsgProductNameRequired = "Product name is required"
	MsgProductNameTooShort = "Product name must be at least 2 characters"
	MsgProductURLRequired  = "Product URL is required"
	MsgProductURLInvalid   = "Please enter a valid URL"
	MsgSpeciesRequired     = "Please select a species"
	MsgBreedRequired       = "Breed is required"
	MsgBreedTooShort       = "Breed must be at least 2 characters"
	MsgBreedOnlyNumbers    = "Breed cannot be only numbers"
	MsgAgeRequired         = "Age is required"
	MsgAgeTooLow           = "Age must be at least 1 year"
	MsgAgeNotWhole         = "Age must be a whole number"
	MsgAgeTooHigh          = "Age is too large"
	MsgIngredientsRequired = "Please enter ingredients or check \"No ingredient list available\""
	MsgIngredientsTooShort = "Ingredients list seems too short. Please provide more detail."

	MsgAgeAdvisory = "Please double-check the age. Pets older than 30 years are very rare."
)

const (
	minNameLength        = 2
	minBreedLength       = 2
	minIngredientsLength = 10
	advisoryAgeThreshold = 30
	maxAge               = math.MaxInt32
)

// agePattern admits plain decimal notation only. Exponents and hex floats
// are rejected before strconv sees them.
var agePattern = regexp.MustCompile(`^[+-]?[0-9]+(\.[0-9]+)?$`)

// ValidateProductName returns the error message for a product name, or "".
func ValidateProductName(v string) string {
	v = strings.TrimSpace(v)
	if v == "" {
		return MsgProductNameRequired
	}
	if utf8.RuneCountInString(v) < minNameLength {
		return MsgProductNameTooShort
	}
	return ""
}

// ValidateProductURL requires an absolute URL.
func ValidateProductURL(v string) string {
	v = strings.TrimSpace(v)
	if v == "" {
		return MsgProductURLRequired
	}
	u, err := url.Parse(v)
	if err != nil || u.Scheme == "" || (u.Host == "" && u.Opaque == "") {
		return MsgProductURLInvalid
	}
	return ""
}

// ValidateSpecies accepts exactly "Cat" or "Dog".
func ValidateSpecies(v Species) string {
	if v != SpeciesCat && v != SpeciesDog {
		return MsgSpeciesRequired
	}
	return ""
}

// ValidateBreed rejects short breeds and breeds made only of digits.
func ValidateBreed(v string) string {
	v = strings.TrimSpace(v)
	if v == "" {
		return MsgBreedRequired
	}
	if utf8.RuneCountInString(v) < minBreedLength {
		return MsgBreedTooShort
	}
	if onlyDigits(v) {
		return MsgBreedOnlyNumbers
	}
	return ""
}

// ValidateAge requires a whole number of years, at least 1.
func ValidateAge(v string) string {
	v = strings.TrimSpace(v)
	if v == "" {
		return MsgAgeRequired
	}
	age, ok := parseYears(v)
	if !ok {
		return MsgAgeNotWhole
	}
	if age < 1 {
		return MsgAgeTooLow
	}
	if age != math.Trunc(age) {
		return MsgAgeNotWhole
	}
	if age > maxAge {
		return MsgAgeTooHigh
	}
	return ""
}

// ValidateIngredients only applies while manual entry is active and the user
// has not declared that no ingredient list exists.
func ValidateIngredients(v string, hasManual, noIngredients bool) string {
	if !hasManual || noIngredients {
		return ""
	}
	v = strings.TrimSpace(v)
	if v == "" {
		return MsgIngredientsRequired
	}
	if utf8.RuneCountInString(v) < minIngredientsLength {
		return MsgIngredientsTooShort
	}
	return ""
}

// AgeAdvisory returns a non-blocking notice for unusually high ages.
func AgeAdvisory(v string) string {
	age, ok := parseYears(strings.TrimSpace(v))
	if !ok || age <= advisoryAgeThreshold {
		return ""
	}
	return MsgAgeAdvisory
}

// ParseAge converts a validated age to an int.
func ParseAge(v string) (int, error) {
	v = strings.TrimSpace(v)
	age, ok := parseYears(v)
	if !ok {
		return 0, fmt.Errorf("invalid age %q", v)
	}
	if age < math.MinInt32 || age > maxAge {
		return 0, fmt.Errorf("age %q out of range", v)
	}
	return int(age), nil
}

func parseYears(v string) (float64, bool) {
	if !agePattern.MatchString(v) {
		return 0, false
	}
	age, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, false
	}
	return age, true
}

// onlyDigits reports whether s consists of ASCII digits.
func onlyDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// validate runs the validator for a single field against the given values.
func validate(f Field, v Values) string {
	switch f {
	case FieldProductName:
		return ValidateProductName(v.ProductName)
	case FieldProductURL:
		return ValidateProductURL(v.ProductURL)
	case FieldSpecies:
		return ValidateSpecies(v.Species)
	case FieldBreed:
		return ValidateBreed(v.Breed)
	case FieldAge:
		return ValidateAge(v.Age)
	case FieldIngredientsText:
		return ValidateIngredients(v.IngredientsText, v.HasManualIngredients, v.NoIngredientsAvailable)
	}
	return ""
}
