package errs

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAppError(t *testing.T) {
	cause := errors.New("dial tcp: timeout")
	err := New(Unavailable, "Could not retrieve ingredients", cause)

	assert.Equal(t, "Could not retrieve ingredients: dial tcp: timeout", err.Error())
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, "Validation failed", Invalid("Validation failed", nil).Error())
}

func TestKindOf(t *testing.T) {
	wrapped := fmt.Errorf("create analysis: %w", New(NotFound, "Analysis not found", nil))

	assert.Equal(t, NotFound, KindOf(wrapped))
	assert.Equal(t, Unknown, KindOf(errors.New("plain")))
	assert.Equal(t, "not_found", NotFound.String())
}
