package cache

import (
	"errors"
	"fmt"
)

// CacheError represents a failure surfaced by the cache's strict read
// paths. Missing data is normally reported as absent values, not errors;
// only opt-in strict operations produce a CacheError.
type CacheError struct {
	// Code identifies the error category.
	Code ErrorCode

	// Message is a human-readable description.
	Message string

	// ID identifies the affected entity, when applicable.
	ID EntityID

	// Field identifies the affected field, when applicable.
	Field string
}

// ErrorCode categorizes cache errors.
type ErrorCode string

const (
	// ErrCodeEntityNotFound indicates a strict fragment read against an
	// entity that is not in the composed view.
	ErrCodeEntityNotFound ErrorCode = "ENTITY_NOT_FOUND"

	// ErrCodeBadPayload indicates input that is not a JSON-compatible
	// value (only produced by payload loading helpers, never by the
	// engine's own write path).
	ErrCodeBadPayload ErrorCode = "BAD_PAYLOAD"
)

// Error implements the error interface.
func (e *CacheError) Error() string {
	switch {
	case e.ID != "" && e.Field != "":
		return fmt.Sprintf("%s: %s (entity=%s, field=%s)", e.Code, e.Message, e.ID, e.Field)
	case e.ID != "":
		return fmt.Sprintf("%s: %s (entity=%s)", e.Code, e.Message, e.ID)
	default:
		return fmt.Sprintf("%s: %s", e.Code, e.Message)
	}
}

// NewEntityNotFoundError creates a CacheError for a strict fragment miss.
func NewEntityNotFoundError(id EntityID) *CacheError {
	return &CacheError{
		Code:    ErrCodeEntityNotFound,
		Message: "entity not found in composed view",
		ID:      id,
	}
}

// IsEntityNotFound reports whether err is an entity-not-found error.
// Uses errors.As to handle wrapped errors.
func IsEntityNotFound(err error) bool {
	var ce *CacheError
	if errors.As(err, &ce) {
		return ce.Code == ErrCodeEntityNotFound
	}
	return false
}
