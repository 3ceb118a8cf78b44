// Package apierror defines the JSON error envelope shared by the API server
// and its clients, and flattens it into one message per form field.
package apierror

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"unicode"
	"unicode/utf8"
)

// FormKey holds errors that do not belong to a single field.
const FormKey = "form"

// DefaultMessage is used when a response carries nothing displayable.
const DefaultMessage = "Something went wrong. Please try again."

// ErrNilEntry is returned by Normalize when the errors array contains null.
var ErrNilEntry = errors.New("apierror: null entry in errors array")

// FieldError is one entry of the array-shaped errors list.
type FieldError struct {
	Field   *string `json:"field,omitempty"`
	Message string  `json:"message"`
}

// Errors accepts both shapes seen on the wire: an array of FieldError, or an
// object mapping a field to its messages.
type Errors struct {
	List    []*FieldError
	ByField map[string][]string
}

func (e Errors) empty() bool {
	return e.List == nil && e.ByField == nil
}

func (e Errors) MarshalJSON() ([]byte, error) {
	if e.List != nil {
		return json.Marshal(e.List)
	}
	return json.Marshal(e.ByField)
}

func (e *Errors) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	switch {
	case bytes.Equal(b, []byte("null")):
		return nil
	case len(b) > 0 && b[0] == '[':
		return json.Unmarshal(b, &e.List)
	default:
		return json.Unmarshal(b, &e.ByField)
	}
}

// Response is the error body returned by the API.
type Response struct {
	Status  int     `json:"status"`
	Message string  `json:"message,omitempty"`
	Details string  `json:"details,omitempty"`
	Errors  *Errors `json:"errors,omitempty"`
}

func (r *Response) Error() string {
	msg := r.Message
	if msg == "" {
		msg = http.StatusText(r.Status)
	}
	return fmt.Sprintf("api error %d: %s", r.Status, msg)
}

// FieldErrorMap holds at most one message per field plus an optional FormKey entry.
type FieldErrorMap map[string]string

// Normalize flattens a Response into a FieldErrorMap keyed by client field
// names. The first message for a field wins. A null entry in an array-shaped errors list is reported as
// ErrNilEntry rather than skipped.
func Normalize(resp *Response) (FieldErrorMap, error) {
	out := FieldErrorMap{}
	if resp == nil {
		out[FormKey] = DefaultMessage
		return out, nil
	}

	if resp.Errors != nil && !resp.Errors.empty() {
		if resp.Errors.List != nil {
			for i, entry := range resp.Errors.List {
				if entry == nil {
					return nil, fmt.Errorf("%w at index %d", ErrNilEntry, i)
				}
				key := FormKey
				if entry.Field != nil {
					key = LowerFirst(*entry.Field)
				}
				if _, seen := out[key]; !seen {
					out[key] = entry.Message
				}
			}
		} else {
			for key, msg := range FirstPerField(resp.Errors.ByField) {
				if _, seen := out[key]; !seen {
					out[key] = msg
				}
			}
		}
	}

	if _, ok := out[FormKey]; !ok && resp.Message != "" {
		out[FormKey] = resp.Message
	}
	if len(out) == 0 {
		out[FormKey] = DefaultMessage
	}
	return out, nil
}

// FirstPerField keeps the first message of every field and converts
// server-side field casing ("ProductName") to client keys ("productName").
func FirstPerField(byField map[string][]string) map[string]string {
	keys := make([]string, 0, len(byField))
	for k := range byField {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	out := make(map[string]string, len(keys))
	for _, k := range keys {
		msgs := byField[k]
		if len(msgs) == 0 {
			continue
		}
		key := LowerFirst(k)
		if _, seen := out[key]; !seen {
			out[key] = msgs[0]
		}
	}
	return out
}

// LowerFirst lower-cases the first character of s.
func LowerFirst(s string) string {
	r, size := utf8.DecodeRuneInString(s)
	if r == utf8.RuneError {
		return s
	}
	return string(unicode.ToLower(r)) + s[size:]
}

// New builds a Response with field errors in server casing.
func New(status int, message string, fields map[string][]string) *Response {
	resp := &Response{Status: status, Message: message}
	if len(fields) > 0 {
		resp.Errors = &Errors{ByField: fields}
	}
	return resp
}
