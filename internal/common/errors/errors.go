// Package errors provides standardized error handling for the task client.
package errors

import (
	"fmt"
	"time"
)

// ==========================
// 1. Standard Error Types
// ==========================

// ErrorCode represents standardized internal error codes.
type ErrorCode string

const (
	// Validation errors (recoverable by editing input)
	ErrCodeEmptyField    ErrorCode = "EMPTY_FIELD"
	ErrCodeInvalidFormat ErrorCode = "INVALID_FORMAT"

	// Submission errors (terminal for the attempt, user may resubmit)
	ErrCodeSubmissionFailed   ErrorCode = "SUBMISSION_FAILED"
	ErrCodeSubmissionRejected ErrorCode = "SUBMISSION_REJECTED"
	ErrCodeSubmissionInFlight ErrorCode = "SUBMISSION_IN_FLIGHT"

	// Polling errors
	ErrCodePollTransportFailed ErrorCode = "POLL_TRANSPORT_FAILED"
	ErrCodeResultMalformed     ErrorCode = "RESULT_MALFORMED"
	ErrCodeTaskFailed          ErrorCode = "TASK_FAILED"

	// Geolocation errors
	ErrCodeGeoPermissionDenied    ErrorCode = "GEO_PERMISSION_DENIED"
	ErrCodeGeoPositionUnavailable ErrorCode = "GEO_POSITION_UNAVAILABLE"
	ErrCodeGeoTimeout             ErrorCode = "GEO_TIMEOUT"
	ErrCodeGeoUnsupported         ErrorCode = "GEO_UNSUPPORTED"

	// Session store errors
	ErrCodeSessionStoreFailed ErrorCode = "SESSION_STORE_FAILED"
)

// User-facing fallback messages. The controller shows exactly one of these
// (or a server-supplied message) at a time per flow.
const (
	GenericSubmissionMessage  = "Failed to start the analysis. Please try again."
	GenericPollFailureMessage = "Failed to get results. Please try again."
	GenericTaskFailureMessage = "Analysis failed. Please try again."
)

// StandardError represents a structured application error.
type StandardError struct {
	Code      ErrorCode `json:"code"`
	Message   string    `json:"message"`
	Details   string    `json:"details,omitempty"`
	Retryable bool      `json:"retryable"`
	Timestamp time.Time `json:"timestamp"`
}

func (e *StandardError) Error() string {
	return fmt.Sprintf("StandardError[%s]: %s", e.Code, e.Message)
}

// UserMessage returns the string shown to the user for this error.
func (e *StandardError) UserMessage() string {
	return e.Message
}

// IsValidation reports whether the error blocks submission and is
// recoverable by editing input.
func (e *StandardError) IsValidation() bool {
	return e.Code == ErrCodeEmptyField || e.Code == ErrCodeInvalidFormat
}

// ==========================
// 2. Error Constructors
// ==========================

// NewEmptyFieldError creates a validation error for a blank required field.
func NewEmptyFieldError(field, message string) *StandardError {
	return &StandardError{
		Code:      ErrCodeEmptyField,
		Message:   message,
		Details:   fmt.Sprintf("field: %s", field),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewInvalidFormatError creates a validation error for a malformed field value.
func NewInvalidFormatError(field, message string) *StandardError {
	return &StandardError{
		Code:      ErrCodeInvalidFormat,
		Message:   message,
		Details:   fmt.Sprintf("field: %s", field),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewSubmissionFailedError creates an error for a transport failure on the
// initial task creation call.
func NewSubmissionFailedError(err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeSubmissionFailed,
		Message:   GenericSubmissionMessage,
		Details:   err.Error(),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewSubmissionRejectedError creates an error for a non-2xx response to the
// initial task creation call.
func NewSubmissionRejectedError(statusCode int, body string) *StandardError {
	return &StandardError{
		Code:      ErrCodeSubmissionRejected,
		Message:   GenericSubmissionMessage,
		Details:   fmt.Sprintf("status %d: %s", statusCode, body),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewSubmissionInFlightError is returned when a submission is attempted while
// another one for the same flow is outstanding.
func NewSubmissionInFlightError(flow string) *StandardError {
	return &StandardError{
		Code:      ErrCodeSubmissionInFlight,
		Message:   "A search is already in progress.",
		Details:   fmt.Sprintf("flow: %s", flow),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewPollTransportError creates an error for a failed status check. A single
// failed check aborts the whole task wait.
func NewPollTransportError(err error) *StandardError {
	return &StandardError{
		Code:      ErrCodePollTransportFailed,
		Message:   GenericPollFailureMessage,
		Details:   err.Error(),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewResultMalformedError creates an error for a result payload that does not
// match the expected wire shape.
func NewResultMalformedError(details string) *StandardError {
	return &StandardError{
		Code:      ErrCodeResultMalformed,
		Message:   GenericPollFailureMessage,
		Details:   details,
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewTaskFailedError creates an error for a server-reported FAILED state.
// An empty serverMessage falls back to the generic task failure string.
func NewTaskFailedError(serverMessage string) *StandardError {
	msg := serverMessage
	if msg == "" {
		msg = GenericTaskFailureMessage
	}
	return &StandardError{
		Code:      ErrCodeTaskFailed,
		Message:   msg,
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewSessionStoreError creates an error for a failed session store operation.
func NewSessionStoreError(op string, err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeSessionStoreFailed,
		Message:   "Session store error",
		Details:   fmt.Sprintf("op: %s, error: %s", op, err.Error()),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// ==========================
// 3. Error Classification
// ==========================

// GetErrorCategory returns a coarse category for metrics labels.
func GetErrorCategory(code ErrorCode) string {
	switch code {
	case ErrCodeEmptyField, ErrCodeInvalidFormat:
		return "validation"
	case ErrCodeSubmissionFailed, ErrCodeSubmissionRejected, ErrCodeSubmissionInFlight:
		return "submission"
	case ErrCodePollTransportFailed, ErrCodeResultMalformed:
		return "polling"
	case ErrCodeTaskFailed:
		return "server"
	case ErrCodeGeoPermissionDenied, ErrCodeGeoPositionUnavailable, ErrCodeGeoTimeout, ErrCodeGeoUnsupported:
		return "geolocation"
	default:
		return "internal"
	}
}

// Normalize ensures any error is represented as a StandardError.
func Normalize(err error) *StandardError {
	if stdErr, ok := err.(*StandardError); ok {
		return stdErr
	}
	return &StandardError{
		Code:      "INTERNAL_ERROR",
		Message:   "Unexpected error",
		Details:   err.Error(),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}
