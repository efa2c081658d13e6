// Package shared contains common domain types, errors, events, and value objects
// that are used across all domain packages. This package has zero external dependencies.
package shared

import (
	"errors"
	"fmt"
)

// Base domain errors that can be used for error checking with errors.Is().
var (
	// Entity errors
	ErrNotFound      = errors.New("entity not found")
	ErrAlreadyExists = errors.New("entity already exists")
	ErrInvalidEntity = errors.New("invalid entity")

	// Validation errors
	ErrValidation      = errors.New("validation error")
	ErrInvalidInput    = errors.New("invalid input")
	ErrEmptyValue      = errors.New("value cannot be empty")
	ErrNegativeValue   = errors.New("value cannot be negative")
	ErrValueOutOfRange = errors.New("value out of range")
	ErrInvalidFormat   = errors.New("invalid format")

	// External service errors
	ErrExternalService    = errors.New("external service error")
	ErrServiceUnavailable = errors.New("service unavailable")
	ErrTimeout            = errors.New("operation timeout")
	ErrRateLimited        = errors.New("rate limited")
)

// DomainError represents a domain-specific error with context.
type DomainError struct {
	Domain  string // e.g., "player", "ranking", "sync"
	Op      string // Operation that failed, e.g., "Fetch", "Upsert"
	Kind    error  // Base error type for errors.Is() checking
	Message string // Human-readable message
	Err     error  // Underlying error (optional)
}

// Error implements the error interface.
func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s.%s: %s: %v", e.Domain, e.Op, e.Message, e.Err)
	}
	return fmt.Sprintf("%s.%s: %s", e.Domain, e.Op, e.Message)
}

// Unwrap returns the underlying error for errors.Unwrap().
func (e *DomainError) Unwrap() error {
	if e.Err != nil {
		return e.Err
	}
	return e.Kind
}

// Is implements errors.Is() matching.
func (e *DomainError) Is(target error) bool {
	if e.Kind != nil && errors.Is(e.Kind, target) {
		return true
	}
	if e.Err != nil && errors.Is(e.Err, target) {
		return true
	}
	return false
}

// NewDomainError creates a new domain error.
func NewDomainError(domain, op string, kind error, message string) *DomainError {
	return &DomainError{
		Domain:  domain,
		Op:      op,
		Kind:    kind,
		Message: message,
	}
}

// WrapError wraps an existing error with domain context.
func WrapError(domain, op string, kind error, message string, err error) *DomainError {
	return &DomainError{
		Domain:  domain,
		Op:      op,
		Kind:    kind,
		Message: message,
		Err:     err,
	}
}

// Player domain errors
var (
	ErrPlayerNotFound  = NewDomainError("player", "Find", ErrNotFound, "player not found")
	ErrInvalidHotel    = NewDomainError("player", "Validate", ErrInvalidInput, "invalid hotel")
	ErrInvalidUsername = NewDomainError("player", "Validate", ErrInvalidInput, "invalid username")
)

// Ranking domain errors
var (
	ErrInvalidRankingMode = NewDomainError("ranking", "Validate", ErrInvalidInput, "invalid ranking mode")
	ErrCursorStale        = NewDomainError("ranking", "LoadCursor", ErrInvalidEntity, "sync cursor is stale")
)

// Provider errors - failures talking to the Origins public API.
var (
	ErrUserNotFound      = NewDomainError("habbo", "GetUser", ErrNotFound, "user not found on Origins API")
	ErrSkillDataMissing  = NewDomainError("habbo", "GetSkill", ErrNotFound, "no fishing skill data for user")
	ErrProviderFailure   = NewDomainError("habbo", "Request", ErrExternalService, "Origins API request failed")
	ErrMalformedResponse = NewDomainError("habbo", "Parse", ErrInvalidFormat, "invalid response from Origins API")
	ErrProviderRateLimit = NewDomainError("habbo", "Request", ErrRateLimited, "Origins API rate limit exceeded")
	ErrProviderTimeout   = NewDomainError("habbo", "Request", ErrTimeout, "Origins API request timeout")
)

// IsNotFound checks if the error is a "not found" error.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsAlreadyExists checks if the error is an "already exists" error.
func IsAlreadyExists(err error) bool {
	return errors.Is(err, ErrAlreadyExists)
}

// IsValidation checks if the error is a validation error.
func IsValidation(err error) bool {
	return errors.Is(err, ErrValidation) ||
		errors.Is(err, ErrInvalidInput) ||
		errors.Is(err, ErrEmptyValue) ||
		errors.Is(err, ErrNegativeValue) ||
		errors.Is(err, ErrValueOutOfRange)
}

// IsExternalService checks if the error is from an external service.
func IsExternalService(err error) bool {
	return errors.Is(err, ErrExternalService) ||
		errors.Is(err, ErrServiceUnavailable) ||
		errors.Is(err, ErrTimeout) ||
		errors.Is(err, ErrRateLimited)
}

// IsRetryable checks if the operation can be retried on a later sync pass.
// Not-found and validation failures are permanent until the upstream data
// changes, everything else is worth another attempt.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrServiceUnavailable) ||
		errors.Is(err, ErrTimeout) ||
		errors.Is(err, ErrRateLimited) ||
		errors.Is(err, ErrExternalService)
}
