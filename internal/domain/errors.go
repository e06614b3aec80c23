package domain

import (
	"errors"
	"maps"
	"slices"
	"strings"
)

// Sentinels that adapters translate into transport status codes.
var (
	// ErrNotFound: no todo with the requested ID.
	ErrNotFound = errors.New("not found")
	// ErrValidation: the caller sent something malformed. Match it with
	// errors.Is; use errors.As with *ValidationError for the fields.
	ErrValidation = errors.New("validation error")
	// ErrConflict: a remote todo store refused the write as conflicting.
	ErrConflict = errors.New("conflict")
	// ErrForbidden: a remote todo store refused the caller.
	ErrForbidden = errors.New("forbidden")
	// ErrUnavailable: the todo store cannot be reached right now.
	ErrUnavailable = errors.New("unavailable")
)

// ValidationError lists the offending fields, keyed by location
// ("body", "path.id", "title") with a short message each.
type ValidationError struct {
	Fields map[string]string
}

// InvalidField returns a ValidationError for a single field.
func InvalidField(field, msg string) *ValidationError {
	return &ValidationError{Fields: map[string]string{field: msg}}
}

// Error lists the fields in sorted order so the text is stable.
func (e *ValidationError) Error() string {
	var b strings.Builder
	b.WriteString(ErrValidation.Error())
	for i, field := range slices.Sorted(maps.Keys(e.Fields)) {
		if i == 0 {
			b.WriteString(": ")
		} else {
			b.WriteString("; ")
		}
		b.WriteString(field + ": " + e.Fields[field])
	}
	return b.String()
}

func (e *ValidationError) Unwrap() error {
	return ErrValidation
}
