package analyzeform

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateProductName(t *testing.T) {
	cases := map[string]string{
		"":              MsgProductNameRequired,
		"   ":           MsgProductNameRequired,
		"A":             MsgProductNameTooShort,
		" A ":           MsgProductNameTooShort,
		"AB":            "",
		"Royal Canin":   "",
		"  Acana Red  ": "",
	}
	for in, want := range cases {
		assert.Equal(t, want, ValidateProductName(in), "input %q", in)
	}
}

func TestValidateProductURL(t *testing.T) {
	cases := map[string]string{
		"":                          MsgProductURLRequired,
		"  ":                        MsgProductURLRequired,
		"not-a-url":                 MsgProductURLInvalid,
		"www.example.com/food":      MsgProductURLInvalid,
		"https://":                  MsgProductURLInvalid,
		"https://example.com/food":  "",
		" http://shop.test/p?id=1 ": "",
	}
	for in, want := range cases {
		assert.Equal(t, want, ValidateProductURL(in), "input %q", in)
	}
}

func TestValidateSpecies(t *testing.T) {
	assert.Equal(t, "", ValidateSpecies(SpeciesCat))
	assert.Equal(t, "", ValidateSpecies(SpeciesDog))
	assert.Equal(t, MsgSpeciesRequired, ValidateSpecies(SpeciesUnset))
	assert.Equal(t, MsgSpeciesRequired, ValidateSpecies("cat"))
	assert.Equal(t, MsgSpeciesRequired, ValidateSpecies("Bird"))
}

func TestValidateBreed(t *testing.T) {
	cases := map[string]string{
		"":         MsgBreedRequired,
		"  ":       MsgBreedRequired,
		"a":        MsgBreedTooShort,
		"1":        MsgBreedTooShort,
		"123":      MsgBreedOnlyNumbers,
		" 42 ":     MsgBreedOnlyNumbers,
		"Mix123":   "",
		"Labrador": "",
		"١٢":       "",
	}
	for in, want := range cases {
		assert.Equal(t, want, ValidateBreed(in), "input %q", in)
	}
}

func TestValidateAge(t *testing.T) {
	cases := map[string]string{
		"":            MsgAgeRequired,
		" ":           MsgAgeRequired,
		"0":           MsgAgeTooLow,
		"-3":          MsgAgeTooLow,
		"0.5":         MsgAgeTooLow,
		"2.5":         MsgAgeNotWhole,
		"1.1":         MsgAgeNotWhole,
		"abc":         MsgAgeNotWhole,
		"1e20":        MsgAgeNotWhole,
		"1e3":         MsgAgeNotWhole,
		"0x1p4":       MsgAgeNotWhole,
		"Inf":         MsgAgeNotWhole,
		"99999999999": MsgAgeTooHigh,
		"1":           "",
		"14":          "",
		"45":          "",
	}
	for in, want := range cases {
		assert.Equal(t, want, ValidateAge(in), "input %q", in)
	}
}

func TestValidateIngredients(t *testing.T) {
	t.Run("automatic mode always passes", func(t *testing.T) {
		assert.Equal(t, "", ValidateIngredients("", false, false))
		assert.Equal(t, "", ValidateIngredients("x", false, false))
	})

	t.Run("no ingredients available always passes", func(t *testing.T) {
		assert.Equal(t, "", ValidateIngredients("", true, true))
		assert.Equal(t, "", ValidateIngredients("Short", true, true))
	})

	t.Run("manual mode", func(t *testing.T) {
		assert.Equal(t, MsgIngredientsRequired, ValidateIngredients("   ", true, false))
		assert.Equal(t, MsgIngredientsTooShort, ValidateIngredients("Short", true, false))
		assert.Equal(t, "", ValidateIngredients("Chicken, rice, fish oil", true, false))
	})
}

func TestAgeAdvisory(t *testing.T) {
	assert.Equal(t, "", AgeAdvisory("30"))
	assert.Equal(t, "", AgeAdvisory(""))
	assert.Equal(t, "", AgeAdvisory("abc"))
	assert.Equal(t, MsgAgeAdvisory, AgeAdvisory("31"))
	// Advisory only: the value is still valid.
	assert.Equal(t, "", ValidateAge("31"))
}

func TestParseAge(t *testing.T) {
	age, err := ParseAge(" 14 ")
	require.NoError(t, err)
	assert.Equal(t, 14, age)

	for _, in := range []string{"1e20", "1e3", "0x1p4", "99999999999", "abc"} {
		_, err := ParseAge(in)
		assert.Error(t, err, "input %q", in)
	}
}
