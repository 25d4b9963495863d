package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// Standard error codes
const (
	CodeValidationError      = "VALIDATION_ERROR"
	CodeNotFound             = "RESOURCE_NOT_FOUND"
	CodeConflict             = "CONFLICT"
	CodeInvalidTransition    = "INVALID_TRANSITION"
	CodeInvalidOrderState    = "INVALID_ORDER_STATE"
	CodeRefundExceedsBalance = "REFUND_EXCEEDS_BALANCE"
	CodeRepositoryError      = "REPOSITORY_ERROR"
	CodeInternalError        = "INTERNAL_ERROR"
	CodeBadRequest           = "BAD_REQUEST"
	CodeServiceUnavailable   = "SERVICE_UNAVAILABLE"
)

// AppError represents an application error with HTTP status and error code
type AppError struct {
	Code       string            `json:"code"`
	Message    string            `json:"message"`
	Details    map[string]string `json:"details,omitempty"`
	HTTPStatus int               `json:"-"`
	Err        error             `json:"-"`
}

// Error implements the error interface
func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the wrapped error
func (e *AppError) Unwrap() error {
	return e.Err
}

// WithDetails adds details to the error
func (e *AppError) WithDetails(details map[string]string) *AppError {
	e.Details = details
	return e
}

// WithDetail adds a single detail to the error
func (e *AppError) WithDetail(key, value string) *AppError {
	if e.Details == nil {
		e.Details = make(map[string]string)
	}
	e.Details[key] = value
	return e
}

// Wrap wraps an existing error
func (e *AppError) Wrap(err error) *AppError {
	e.Err = err
	return e
}

// NewAppError creates a new AppError
func NewAppError(code string, message string, httpStatus int) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: httpStatus,
	}
}

// ErrValidation creates a validation error
func ErrValidation(message string) *AppError {
	return NewAppError(CodeValidationError, message, http.StatusBadRequest)
}

// ErrValidationWithFields creates a validation error with field details
func ErrValidationWithFields(message string, fields map[string]string) *AppError {
	return ErrValidation(message).WithDetails(fields)
}

// ErrNotFound creates a not found error
func ErrNotFound(resource string) *AppError {
	return NewAppError(CodeNotFound, fmt.Sprintf("%s not found", resource), http.StatusNotFound)
}

// ErrNotFoundWithID creates a not found error with ID
func ErrNotFoundWithID(resource, id string) *AppError {
	return ErrNotFound(resource).WithDetail("id", id)
}

// ErrConflict creates a conflict error
func ErrConflict(message string) *AppError {
	return NewAppError(CodeConflict, message, http.StatusConflict)
}

// ErrInvalidTransition creates an error for a status change not permitted
// by the order state machine
func ErrInvalidTransition(from, to string) *AppError {
	return NewAppError(
		CodeInvalidTransition,
		fmt.Sprintf("cannot transition order from %s to %s", from, to),
		http.StatusConflict,
	).WithDetail("from", from).WithDetail("to", to)
}

// ErrInvalidOrderState creates an error for a ledger attachment attempted
// against an order whose state forbids it
func ErrInvalidOrderState(message string) *AppError {
	return NewAppError(CodeInvalidOrderState, message, http.StatusConflict)
}

// ErrRefundExceedsBalance creates an error for a refund larger than the
// remaining refundable balance
func ErrRefundExceedsBalance(requested, remaining float64) *AppError {
	return NewAppError(
		CodeRefundExceedsBalance,
		"refund amount exceeds remaining refundable balance",
		http.StatusUnprocessableEntity,
	).WithDetail("requested", fmt.Sprintf("%.2f", requested)).
		WithDetail("remaining", fmt.Sprintf("%.2f", remaining))
}

// ErrRepository creates an infrastructure/storage error. These are always
// propagated to the caller unchanged, never swallowed.
func ErrRepository(err error) *AppError {
	return NewAppError(CodeRepositoryError, "storage operation failed", http.StatusInternalServerError).Wrap(err)
}

// ErrInternal creates an internal error
func ErrInternal(message string) *AppError {
	if message == "" {
		message = "an internal error occurred"
	}
	return NewAppError(CodeInternalError, message, http.StatusInternalServerError)
}

// ErrBadRequest creates a bad request error
func ErrBadRequest(message string) *AppError {
	return NewAppError(CodeBadRequest, message, http.StatusBadRequest)
}

// ErrServiceUnavailable creates a service unavailable error
func ErrServiceUnavailable(service string) *AppError {
	return NewAppError(CodeServiceUnavailable, fmt.Sprintf("%s is temporarily unavailable", service), http.StatusServiceUnavailable)
}

// IsAppError checks if an error is an AppError
func IsAppError(err error) bool {
	var appErr *AppError
	return errors.As(err, &appErr)
}

// AsAppError converts an error to an AppError if possible
func AsAppError(err error) (*AppError, bool) {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

// FromError converts a standard error to an AppError. Unknown errors are
// treated as internal; callers that know better attach a concrete kind
// before the error reaches this point.
func FromError(err error) *AppError {
	if err == nil {
		return nil
	}

	if appErr, ok := AsAppError(err); ok {
		return appErr
	}

	return ErrInternal("").Wrap(err)
}

// HasCode reports whether err is an AppError carrying the given code
func HasCode(err error, code string) bool {
	appErr, ok := AsAppError(err)
	return ok && appErr.Code == code
}
