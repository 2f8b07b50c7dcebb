package domain

import (
	"errors"
	"fmt"
	"time"
)

// Sentinel errors forming the failure taxonomy. Handlers and services wrap
// these with context; the HTTP layer maps them to status codes with
// errors.Is and never leaks role or permission detail to the client.
var (
	ErrUnauthenticated = errors.New("unauthenticated")
	ErrForbidden       = errors.New("forbidden")
	ErrMFARequired     = errors.New("mfa required")
	ErrSessionExpired  = errors.New("session expired")
	ErrRateLimited     = errors.New("rate limited")
	ErrNotFound        = errors.New("not found")
	ErrConflict        = errors.New("conflict")
	ErrTimeout         = errors.New("timed out")
	ErrUnknownRole     = errors.New("unknown role")

	// Auth flow errors.
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrUserNotFound       = errors.New("user not found")
	ErrUserExists         = errors.New("user already exists")

	// API key lifecycle.
	ErrAPIKeyNotFound = errors.New("api key not found")
	ErrAPIKeyRevoked  = errors.New("api key already revoked")

	// Break-glass lifecycle.
	ErrGrantNotFound = errors.New("break-glass grant not found")
	ErrGrantConsumed = errors.New("break-glass grant already consumed")
	ErrGrantExpired  = errors.New("break-glass grant expired")
)

// FieldError describes a single failed input field. Field names and rule
// violations are safe to disclose to the caller.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationError carries field-level failures through the taxonomy.
type ValidationError struct {
	Fields []FieldError
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed on %d field(s)", len(e.Fields))
}

// Is lets errors.Is(err, ErrValidation) match wrapped validation failures.
func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

// ErrValidation is the taxonomy anchor for validation failures. Use
// NewValidationError to construct one with field details.
var ErrValidation = errors.New("validation failed")

// NewValidationError wraps field errors into the taxonomy.
func NewValidationError(fields ...FieldError) error {
	return &ValidationError{Fields: fields}
}

// RateLimitError carries the window reset time so the transport layer can
// emit Retry-After metadata.
type RateLimitError struct {
	Limit   int
	ResetAt time.Time
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("rate limited until %s", e.ResetAt.UTC().Format(time.RFC3339))
}

func (e *RateLimitError) Is(target error) bool {
	return target == ErrRateLimited
}
