// Package errors provides standardized error handling for the answer pipeline.
package errors

import (
	stderrors "errors"
	"fmt"
	"strings"
	"time"
)

// ==========================
// 1. Standard Error Types
// ==========================

// ErrorCode represents standardized internal error codes.
type ErrorCode string

const (
	// Per-source failures. Absorbed by the executor, never fatal.
	ErrCodeSourceFailed   ErrorCode = "SOURCE_FAILED"
	ErrCodeSourceTimeout  ErrorCode = "SOURCE_TIMEOUT"
	ErrCodeSourceDisabled ErrorCode = "SOURCE_DISABLED"

	// Whole-request outcomes.
	ErrCodeNoAnswer ErrorCode = "NO_ANSWER"

	// Degraded externals. The pipeline falls back to defaults.
	ErrCodeClassifierDegraded ErrorCode = "CLASSIFIER_DEGRADED"
	ErrCodeModelDegraded      ErrorCode = "MODEL_SCORING_DEGRADED"

	// Caller faults.
	ErrCodeInvalidInput ErrorCode = "INVALID_INPUT"

	// Deployment faults. These are fatal.
	ErrCodeConfigInvalid   ErrorCode = "CONFIG_INVALID"
	ErrCodeCatalogInvalid  ErrorCode = "SOURCE_CATALOG_INVALID"
	ErrCodeNoSourcesActive ErrorCode = "NO_SOURCES_ACTIVE"

	// Infrastructure collaborators.
	ErrCodeCacheUnavailable ErrorCode = "CACHE_UNAVAILABLE"
	ErrCodeStoreFailed      ErrorCode = "STORE_FAILED"
)

// StandardError represents a structured application error.
type StandardError struct {
	Code      ErrorCode              `json:"code"`
	Message   string                 `json:"message"`
	Details   string                 `json:"details,omitempty"`
	Retryable bool                   `json:"retryable"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
	Timestamp time.Time              `json:"timestamp"`
}

func (e *StandardError) Error() string {
	return fmt.Sprintf("StandardError[%s]: %s", e.Code, e.Message)
}

// ==========================
// 2. Error Constructors
// ==========================

// NewSourceError creates a retryable error for a failed source call.
func NewSourceError(source string, err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeSourceFailed,
		Message:   fmt.Sprintf("Source '%s' call failed", source),
		Details:   err.Error(),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewSourceTimeoutError creates a retryable error for a timed-out source call.
func NewSourceTimeoutError(source string, timeout time.Duration) *StandardError {
	return &StandardError{
		Code:      ErrCodeSourceTimeout,
		Message:   fmt.Sprintf("Source '%s' exceeded its timeout", source),
		Details:   fmt.Sprintf("timeout: %s", timeout),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewSourceDisabledError marks a call against a source disabled mid-flight.
func NewSourceDisabledError(source string) *StandardError {
	return &StandardError{
		Code:      ErrCodeSourceDisabled,
		Message:   fmt.Sprintf("Source '%s' is disabled", source),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewNoAnswerError records that no source produced a usable result. The
// user-visible outcome is the sentinel answer, this error only feeds logs.
func NewNoAnswerError(consulted int) *StandardError {
	return &StandardError{
		Code:      ErrCodeNoAnswer,
		Message:   "No source produced a usable result before the deadline",
		Details:   fmt.Sprintf("sourcesConsulted: %d", consulted),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewClassifierDegradedError creates a retryable classifier unavailability error.
func NewClassifierDegradedError(err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeClassifierDegraded,
		Message:   "Classifier unavailable, using default query context",
		Details:   err.Error(),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewModelDegradedError creates a retryable model-scoring unavailability error.
func NewModelDegradedError(err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeModelDegraded,
		Message:   "Model scoring unavailable, ranking on historical stats only",
		Details:   err.Error(),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewValidationError creates a non-retryable input validation error.
func NewValidationError(details string) *StandardError {
	return &StandardError{
		Code:      ErrCodeInvalidInput,
		Message:   "Question failed input validation",
		Details:   details,
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewConfigError creates a fatal configuration error.
func NewConfigError(details string) *StandardError {
	return &StandardError{
		Code:      ErrCodeConfigInvalid,
		Message:   "Invalid configuration",
		Details:   details,
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewCatalogError creates a fatal source-catalog error.
func NewCatalogError(details string) *StandardError {
	return &StandardError{
		Code:      ErrCodeCatalogInvalid,
		Message:   "Source catalog failed schema validation",
		Details:   details,
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewNoSourcesActiveError is raised when every registered source is disabled.
// This indicates a deployment problem, not a transient condition.
func NewNoSourcesActiveError() *StandardError {
	return &StandardError{
		Code:      ErrCodeNoSourcesActive,
		Message:   "No enabled sources available",
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewCacheUnavailableError creates a retryable cache infrastructure error.
// The pipeline treats this as a cold cache.
func NewCacheUnavailableError(err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeCacheUnavailable,
		Message:   "Answer cache unavailable",
		Details:   err.Error(),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewStoreFailedError creates a retryable persistence error.
func NewStoreFailedError(err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeStoreFailed,
		Message:   "Conversation persistence failed",
		Details:   err.Error(),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// ==========================
// 3. Utility Functions
// ==========================

// GetErrorCode extracts the ErrorCode from an error, or empty if it is not a
// StandardError.
func GetErrorCode(err error) ErrorCode {
	var stdErr *StandardError
	if stderrors.As(err, &stdErr) {
		return stdErr.Code
	}
	return ""
}

// IsRetryable reports whether the error is a retryable StandardError.
func IsRetryable(err error) bool {
	var stdErr *StandardError
	if stderrors.As(err, &stdErr) {
		return stdErr.Retryable
	}
	return false
}

// IsFatal reports whether the error is configuration-class and must abort
// startup rather than degrade.
func IsFatal(err error) bool {
	switch GetErrorCode(err) {
	case ErrCodeConfigInvalid, ErrCodeCatalogInvalid, ErrCodeNoSourcesActive:
		return true
	default:
		return false
	}
}

// GetErrorCategory returns the category of the error code.
func GetErrorCategory(code ErrorCode) string {
	codeStr := string(code)
	switch {
	case strings.Contains(codeStr, "SOURCE_CATALOG"), strings.Contains(codeStr, "CONFIG"), strings.Contains(codeStr, "ACTIVE"):
		return "CONFIGURATION"
	case strings.Contains(codeStr, "SOURCE"):
		return "SOURCE"
	case strings.Contains(codeStr, "DEGRADED"):
		return "DEGRADED"
	case strings.Contains(codeStr, "CACHE"), strings.Contains(codeStr, "STORE"):
		return "INFRASTRUCTURE"
	case strings.Contains(codeStr, "INVALID"):
		return "VALIDATION"
	default:
		return "OTHER"
	}
}
