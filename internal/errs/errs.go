package errs

import (
	"errors"
	"fmt"
)

// Kind categorizes application errors for HTTP status mapping.
type Kind int

const (
	// Unknown represents an unclassified error (HTTP 500).
	Unknown Kind = iota
	// InvalidInput indicates the request failed validation (HTTP 400).
	InvalidInput
	// Unauthorized indicates a missing or invalid token (HTTP 401).
	Unauthorized
	// NotFound indicates the resource does not exist for the caller (HTTP 404).
	NotFound
	// Unavailable indicates an upstream dependency failed, such as the
	// product page or the LLM (HTTP 503).
	Unavailable
)

func (k Kind) String() string {
	switch k {
	case InvalidInput:
		return "invalid_input"
	case Unauthorized:
		return "unauthorized"
	case NotFound:
		return "not_found"
	case Unavailable:
		return "unavailable"
	default:
		return "unknown"
	}
}

// AppError carries a category, user message, per-field messages and original cause.
type AppError struct {
	Kind    Kind
	Message string
	// Fields maps server field names to their messages.
	Fields map[string][]string
	Cause  error
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Cause
}

func New(kind Kind, message string, cause error) *AppError {
	return &AppError{Kind: kind, Message: message, Cause: cause}
}

// Invalid builds an InvalidInput error with field messages.
func Invalid(message string, fields map[string][]string) *AppError {
	return &AppError{Kind: InvalidInput, Message: message, Fields: fields}
}

// KindOf returns the Kind of the first AppError in err's chain, or Unknown.
func KindOf(err error) Kind {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Kind
	}
	return Unknown
}
