package services

import (
	"errors"
	"fmt"
)

// ErrorType represents the type/category of error
type ErrorType string

const (
	ErrorTypeValidation ErrorType = "validation"
	ErrorTypeNotFound   ErrorType = "not_found"
	ErrorTypeInternal   ErrorType = "internal"

	// ErrorTypeDegraded marks failures of optional pipeline dependencies.
	// These are logged and swallowed, never surfaced as a request failure.
	ErrorTypeDegraded ErrorType = "degraded"

	// ErrorTypeExternal marks failures of the mandatory completion
	// dependency. These are fatal to the request.
	ErrorTypeExternal ErrorType = "external"
)

// DomainError represents a structured error with additional context
type DomainError struct {
	Type    ErrorType
	Message string
	Err     error
	Details map[string]interface{}
}

// Error implements the error interface
func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s (%v)", e.Type, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

// Unwrap implements errors.Unwrap
func (e *DomainError) Unwrap() error {
	return e.Err
}

// Is implements errors.Is. Two domain errors match when type and message
// match, so sentinel values below can be compared against wrapped copies.
func (e *DomainError) Is(target error) bool {
	t, ok := target.(*DomainError)
	if !ok {
		return false
	}
	return e.Type == t.Type && e.Message == t.Message
}

// WithDetail adds a detail to the error
func (e *DomainError) WithDetail(key string, value interface{}) *DomainError {
	if e.Details == nil {
		e.Details = make(map[string]interface{})
	}
	e.Details[key] = value
	return e
}

// NewDomainError creates a new domain error
func NewDomainError(errType ErrorType, message string, err error) *DomainError {
	return &DomainError{
		Type:    errType,
		Message: message,
		Err:     err,
		Details: make(map[string]interface{}),
	}
}

// Domain error variables

var (
	// Validation errors (caller-visible, 4xx)
	ErrEmptyQuery   = NewDomainError(ErrorTypeValidation, "query cannot be empty", nil)
	ErrInvalidInput = NewDomainError(ErrorTypeValidation, "invalid input", nil)

	// Degraded-path errors: the pipeline continues with an empty
	// contribution from the failed dependency.
	ErrEmbeddingUnavailable   = NewDomainError(ErrorTypeDegraded, "embedding service unavailable", nil)
	ErrRetrievalUnavailable   = NewDomainError(ErrorTypeDegraded, "case retrieval unavailable", nil)
	ErrPersistenceUnavailable = NewDomainError(ErrorTypeDegraded, "case persistence unavailable", nil)

	// Fatal errors: the request cannot produce an answer without completion.
	ErrCompletionUnavailable = NewDomainError(ErrorTypeExternal, "completion service unavailable", nil)
	ErrPromptTooLarge        = NewDomainError(ErrorTypeExternal, "assembled prompt exceeds model input limit", nil)

	// Internal errors
	ErrInternal      = NewDomainError(ErrorTypeInternal, "internal server error", nil)
	ErrDatabaseError = NewDomainError(ErrorTypeInternal, "database error", nil)
)

// Error type checking helper functions

// IsValidationError checks if an error is a validation error
func IsValidationError(err error) bool {
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Type == ErrorTypeValidation
	}
	return false
}

// IsNotFoundError checks if an error is a not found error
func IsNotFoundError(err error) bool {
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Type == ErrorTypeNotFound
	}
	return false
}

// IsDegradedError reports whether an error belongs to the degrade-and-continue
// class (embedding, retrieval, persistence).
func IsDegradedError(err error) bool {
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Type == ErrorTypeDegraded
	}
	return false
}

// IsExternalError checks if an error is a fatal external dependency error
func IsExternalError(err error) bool {
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Type == ErrorTypeExternal
	}
	return false
}

// IsInternalError checks if an error is an internal error
func IsInternalError(err error) bool {
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Type == ErrorTypeInternal
	}
	return false
}

// GetErrorType returns the ErrorType of a domain error, or empty string if not a domain error
func GetErrorType(err error) ErrorType {
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Type
	}
	return ""
}

// GetErrorDetails returns the details map of a domain error, or nil if not a domain error
func GetErrorDetails(err error) map[string]interface{} {
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Details
	}
	return nil
}

// WrapError wraps an error with additional context
func WrapError(errType ErrorType, message string, err error) error {
	return NewDomainError(errType, message, err)
}

// WrapDegraded wraps an error as a degraded-dependency error
func WrapDegraded(message string, err error) error {
	return NewDomainError(ErrorTypeDegraded, message, err)
}

// WrapExternal wraps an error as a fatal external dependency error
func WrapExternal(message string, err error) error {
	return NewDomainError(ErrorTypeExternal, message, err)
}

// WrapInternal wraps an error as an internal error
func WrapInternal(message string, err error) error {
	return NewDomainError(ErrorTypeInternal, message, err)
}
