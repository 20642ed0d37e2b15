package model

import (
	"errors"
	"strings"
)

var (
	// ErrInvalidCriteria marks criteria rejected at submission time
	ErrInvalidCriteria = errors.New("invalid criteria")

	// ErrProviderTimeout is returned when an external provider exceeds its deadline
	ErrProviderTimeout = errors.New("provider timeout")

	// ErrProviderUnavailable is returned when an external provider fails or has no answer
	ErrProviderUnavailable = errors.New("provider unavailable")

	// ErrCatalogUnavailable aborts a scheduled evaluation before any state is written
	ErrCatalogUnavailable = errors.New("catalog unavailable")

	// ErrSavedSearchNotFound is returned for missing, deleted or foreign saved searches
	ErrSavedSearchNotFound = errors.New("saved search not found")
)

// FieldError is a field-level validation message
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// InvalidCriteriaError lists every rejected field of a criteria submission
type InvalidCriteriaError struct {
	Fields []FieldError
}

func (e *InvalidCriteriaError) Error() string {
	parts := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		parts = append(parts, f.Field+": "+f.Message)
	}
	return ErrInvalidCriteria.Error() + ": " + strings.Join(parts, "; ")
}

func (e *InvalidCriteriaError) Unwrap() error {
	return ErrInvalidCriteria
}
