// Package errors provides standardized error handling for the matching engine.
package errors

import (
	"errors"
	"fmt"
	"time"
)

// ==========================
// 1. Standard Error Types
// ==========================

// ErrorCode represents standardized internal error codes.
type ErrorCode string

const (
	ErrCodeNotFound                 ErrorCode = "NOT_FOUND"
	ErrCodeInvalidConfiguration     ErrorCode = "INVALID_CONFIGURATION"
	ErrCodeNonConvergence           ErrorCode = "NON_CONVERGENCE"
	ErrCodeConcurrentUpdateConflict ErrorCode = "CONCURRENT_UPDATE_CONFLICT"

	ErrCodeDatabaseConnectionFailed ErrorCode = "DATABASE_CONNECTION_FAILED"
	ErrCodeQueryExecutionFailed     ErrorCode = "QUERY_EXECUTION_FAILED"
	ErrCodeMatchPersistFailed       ErrorCode = "MATCH_PERSIST_FAILED"
	ErrCodeOutcomeInvalid           ErrorCode = "OUTCOME_INVALID"
)

// StandardError represents a structured application error.
type StandardError struct {
	Code      ErrorCode              `json:"code"`
	Message   string                 `json:"message"`
	Details   string                 `json:"details,omitempty"`
	Retryable bool                   `json:"retryable"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
	Timestamp time.Time              `json:"timestamp"`
	cause     error
}

func (e *StandardError) Error() string {
	return fmt.Sprintf("StandardError[%s]: %s", e.Code, e.Message)
}

// Unwrap exposes the wrapped cause for errors.Is / errors.As chains.
func (e *StandardError) Unwrap() error {
	return e.cause
}

// Is matches two StandardErrors by code.
func (e *StandardError) Is(target error) bool {
	var se *StandardError
	if errors.As(target, &se) {
		return e.Code == se.Code
	}
	return false
}

// IsCode reports whether err carries the given error code.
func IsCode(err error, code ErrorCode) bool {
	var se *StandardError
	if errors.As(err, &se) {
		return se.Code == code
	}
	return false
}

// ==========================
// 2. Error Constructors
// ==========================

// NewNotFoundError creates a non-retryable lookup error for a missing
// stylist or customer record.
func NewNotFoundError(entity, id string) *StandardError {
	return &StandardError{
		Code:      ErrCodeNotFound,
		Message:   fmt.Sprintf("%s not found", entity),
		Details:   fmt.Sprintf("id: %s", id),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewInvalidConfigurationError creates a non-retryable configuration error.
func NewInvalidConfigurationError(details string) *StandardError {
	return &StandardError{
		Code:      ErrCodeInvalidConfiguration,
		Message:   "Invalid engine configuration",
		Details:   details,
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewNonConvergenceError creates the structured diagnostic returned when the
// deferred-acceptance loop hits its iteration cap. It accompanies a partial
// result and is never a hard failure.
func NewNonConvergenceError(iterations int, unmatched int) *StandardError {
	return &StandardError{
		Code:      ErrCodeNonConvergence,
		Message:   "Deferred acceptance hit iteration cap",
		Details:   fmt.Sprintf("iterations: %d, unmatchedCustomers: %d", iterations, unmatched),
		Retryable: false,
		Metadata: map[string]interface{}{
			"iterations": iterations,
			"unmatched":  unmatched,
		},
		Timestamp: time.Now().UTC(),
	}
}

// NewConcurrentUpdateConflictError is surfaced when a rating update lost its
// compare-and-swap race more times than the retry budget allows.
func NewConcurrentUpdateConflictError(stylistID string, attempts int) *StandardError {
	return &StandardError{
		Code:      ErrCodeConcurrentUpdateConflict,
		Message:   "Rating update lost concurrent race",
		Details:   fmt.Sprintf("stylistId: %s, attempts: %d", stylistID, attempts),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewDatabaseConnectionFailedError creates a retryable connection error.
func NewDatabaseConnectionFailedError(err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeDatabaseConnectionFailed,
		Message:   "Database connection error",
		Details:   err.Error(),
		Retryable: true,
		Timestamp: time.Now().UTC(),
		cause:     err,
	}
}

// NewQueryExecutionFailedError creates a retryable query execution error.
func NewQueryExecutionFailedError(operation string, err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeQueryExecutionFailed,
		Message:   "Query execution error",
		Details:   fmt.Sprintf("operation: %s, error: %s", operation, err.Error()),
		Retryable: true,
		Timestamp: time.Now().UTC(),
		cause:     err,
	}
}

// NewMatchPersistFailedError creates a retryable match sink error.
func NewMatchPersistFailedError(err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeMatchPersistFailed,
		Message:   "Failed to persist match",
		Details:   err.Error(),
		Retryable: true,
		Timestamp: time.Now().UTC(),
		cause:     err,
	}
}

// NewOutcomeInvalidError creates a non-retryable error for an outcome event
// that failed schema validation.
func NewOutcomeInvalidError(details string) *StandardError {
	return &StandardError{
		Code:      ErrCodeOutcomeInvalid,
		Message:   "Outcome event failed validation",
		Details:   details,
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}
