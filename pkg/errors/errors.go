package errors

import (
	"context"
	stderrors "errors"
	"fmt"
)

// ErrorCode classifies an AppError for logs, metrics and RPC mapping
type ErrorCode string

const (
	// The remote Pokémon service
	ErrCodeUpstreamUnavailable ErrorCode = "UPSTREAM_UNAVAILABLE"
	ErrCodeUpstreamStatus      ErrorCode = "UPSTREAM_STATUS"
	ErrCodeUpstreamDecode      ErrorCode = "UPSTREAM_DECODE"

	// Detail cache
	ErrCodeStorageNotFound       ErrorCode = "STORAGE_NOT_FOUND"
	ErrCodeStorageConnection     ErrorCode = "STORAGE_CONNECTION"
	ErrCodeStorageTransaction    ErrorCode = "STORAGE_TRANSACTION"
	ErrCodeStorageInitialization ErrorCode = "STORAGE_INITIALIZATION"

	// Widget input
	ErrCodeValidationRequired ErrorCode = "VALIDATION_REQUIRED"
	ErrCodeValidationInvalid  ErrorCode = "VALIDATION_INVALID"
	ErrCodeValidationType     ErrorCode = "VALIDATION_TYPE"

	// Session state
	ErrCodeEntityNotFound   ErrorCode = "ENTITY_NOT_FOUND"
	ErrCodeInvalidOperation ErrorCode = "INVALID_OPERATION"

	// Wire format
	ErrCodeTransportMarshal        ErrorCode = "TRANSPORT_MARSHAL"
	ErrCodeTransportInvalidJSON    ErrorCode = "TRANSPORT_INVALID_JSON"
	ErrCodeTransportMethodNotFound ErrorCode = "TRANSPORT_METHOD_NOT_FOUND"

	ErrCodeInternal           ErrorCode = "INTERNAL_ERROR"
	ErrCodeServiceUnavailable ErrorCode = "SERVICE_UNAVAILABLE"
	ErrCodeContextCanceled    ErrorCode = "CONTEXT_CANCELED"
	ErrCodeContextTimeout     ErrorCode = "CONTEXT_TIMEOUT"
	ErrCodePanic              ErrorCode = "PANIC_RECOVERED"
	ErrCodeConfiguration      ErrorCode = "CONFIGURATION_ERROR"
)

// internalMessage replaces the text of errors that are not AppErrors
const internalMessage = "An internal error occurred"

// AppError is an error with a code and a message safe to show a client.
// Internal keeps the underlying cause for logs only.
type AppError struct {
	Code     ErrorCode   `json:"code"`
	Message  string      `json:"message"`
	Details  interface{} `json:"details,omitempty"`
	Internal error       `json:"-"`
}

func (e *AppError) Error() string {
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Internal
}

// WithDetails attaches structured context and returns e
func (e *AppError) WithDetails(details interface{}) *AppError {
	e.Details = details
	return e
}

func New(code ErrorCode, message string) *AppError {
	return &AppError{Code: code, Message: message}
}

func Newf(code ErrorCode, format string, args ...interface{}) *AppError {
	return New(code, fmt.Sprintf(format, args...))
}

// Wrap attaches code and message to err. A nil err yields nil.
func Wrap(err error, code ErrorCode, message string) *AppError {
	if err == nil {
		return nil
	}
	return &AppError{Code: code, Message: message, Internal: err}
}

func Wrapf(err error, code ErrorCode, format string, args ...interface{}) *AppError {
	if err == nil {
		return nil
	}
	return Wrap(err, code, fmt.Sprintf(format, args...))
}

// As finds the outermost AppError in err's chain
func As(err error) (*AppError, bool) {
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

// Is reports whether the outermost AppError in err carries code
func Is(err error, code ErrorCode) bool {
	appErr, ok := As(err)
	return ok && appErr.Code == code
}

func IsAny(err error, codes ...ErrorCode) bool {
	for _, code := range codes {
		if Is(err, code) {
			return true
		}
	}
	return false
}

// GetCode returns err's code. Errors that are not AppErrors count as
// internal; nil has no code.
func GetCode(err error) ErrorCode {
	if err == nil {
		return ""
	}
	if appErr, ok := As(err); ok {
		return appErr.Code
	}
	return ErrCodeInternal
}

// GetMessage returns text that is safe to send to a client
func GetMessage(err error) string {
	if err == nil {
		return ""
	}
	if appErr, ok := As(err); ok {
		return appErr.Message
	}
	return internalMessage
}

// GetInternal returns the cause to log for err
func GetInternal(err error) error {
	if err == nil {
		return nil
	}
	appErr, ok := As(err)
	if !ok {
		return err
	}
	if appErr.Internal != nil {
		return appErr.Internal
	}
	return appErr
}

// FromContext converts a context error into the matching AppError, or returns nil
func FromContext(err error) *AppError {
	switch {
	case err == nil:
		return nil
	case stderrors.Is(err, context.Canceled):
		return Wrap(err, ErrCodeContextCanceled, "operation canceled")
	case stderrors.Is(err, context.DeadlineExceeded):
		return Wrap(err, ErrCodeContextTimeout, "operation timed out")
	default:
		return nil
	}
}

// NotFound reports a missing node or resource, e.g. NotFound("node 42")
func NotFound(resource string) *AppError {
	return Newf(ErrCodeEntityNotFound, "%s not found", resource)
}

func ValidationRequired(field string) *AppError {
	return Newf(ErrCodeValidationRequired, "%s is required", field)
}

func ValidationInvalid(field, reason string) *AppError {
	return Newf(ErrCodeValidationInvalid, "%s is invalid: %s", field, reason)
}

// Internal hides internalErr behind a generic message
func Internal(internalErr error) *AppError {
	return Wrap(internalErr, ErrCodeInternal, internalMessage)
}
