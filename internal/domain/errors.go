package domain

import (
	"errors"
	"fmt"
)

// Sentinel errors for caller-level failures. The core arithmetic never returns these.
var (
	ErrUnknownMedication = errors.New("unknown medication")
	ErrInvalidInput      = errors.New("invalid input")
	ErrCatalogUnreadable = errors.New("medication catalog unreadable")
	ErrFeedbackNotFound  = errors.New("feedback not found")
	ErrFeedbackDisabled  = errors.New("feedback storage disabled")
)

// Error codes for different failure scenarios
const (
	CodeInvalidInput      = "INVALID_INPUT"
	CodeValidation        = "VALIDATION_ERROR"
	CodeUnknownMedication = "UNKNOWN_MEDICATION"
	CodeCatalogError      = "CATALOG_ERROR"
	CodeDatabaseError     = "DATABASE_ERROR"
	CodeCacheError        = "CACHE_ERROR"
	CodeRateLimit         = "RATE_LIMIT_EXCEEDED"
	CodeInternalServer    = "INTERNAL_SERVER_ERROR"
	CodeNotFound          = "NOT_FOUND"
	CodeFeedbackDisabled  = "FEEDBACK_DISABLED"
)

// EngineError represents a standardized caller-level error
type EngineError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details string `json:"details,omitempty"`
	Err     error  `json:"-"`
}

// Error implements the error interface
func (e *EngineError) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("%s: %s (%s)", e.Code, e.Message, e.Details)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap exposes the sentinel for errors.Is.
func (e *EngineError) Unwrap() error {
	return e.Err
}

// ValidationError represents input validation errors
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Value   any    `json:"value"`
}

// Error implements the error interface
func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error for field '%s': %s", e.Field, e.Message)
}

// Unwrap lets validation failures match ErrInvalidInput.
func (e *ValidationError) Unwrap() error {
	return ErrInvalidInput
}

// NewEngineError creates a new EngineError wrapping err.
func NewEngineError(code, message, details string, err error) *EngineError {
	return &EngineError{
		Code:    code,
		Message: message,
		Details: details,
		Err:     err,
	}
}

// NewValidationError creates a new ValidationError
func NewValidationError(field, message string, value any) *ValidationError {
	return &ValidationError{
		Field:   field,
		Message: message,
		Value:   value,
	}
}

// UnknownMedicationError reports a catalog miss for id.
func UnknownMedicationError(id string) *EngineError {
	return NewEngineError(CodeUnknownMedication, "medication not found in catalog", id, ErrUnknownMedication)
}

// ErrorCode extracts the code of an EngineError or ValidationError in err's chain.
// Unrecognised errors map to CodeInternalServer.
func ErrorCode(err error) string {
	var engineErr *EngineError
	if errors.As(err, &engineErr) {
		return engineErr.Code
	}
	var validationErr *ValidationError
	if errors.As(err, &validationErr) {
		return CodeValidation
	}
	switch {
	case errors.Is(err, ErrUnknownMedication):
		return CodeUnknownMedication
	case errors.Is(err, ErrInvalidInput):
		return CodeInvalidInput
	case errors.Is(err, ErrFeedbackNotFound):
		return CodeNotFound
	case errors.Is(err, ErrFeedbackDisabled):
		return CodeFeedbackDisabled
	}
	return CodeInternalServer
}
