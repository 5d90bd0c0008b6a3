package transport

import (
	"fmt"
	"net/http"

	"github.com/JamesPrial/pokeflow/pkg/errors"
)

// ToJSONRPCError maps an application error to a JSON-RPC error. The
// original error code travels in data.error_code.
func ToJSONRPCError(err error) *JSONRPCError {
	if err == nil {
		return nil
	}

	code := errors.GetCode(err)
	return &JSONRPCError{
		Code:    jsonRPCCode(code),
		Message: SafeErrorMessage(err),
		Data:    map[string]interface{}{"error_code": string(code)},
	}
}

func jsonRPCCode(code errors.ErrorCode) int {
	switch code {
	case errors.ErrCodeTransportMethodNotFound:
		return MethodNotFound
	case errors.ErrCodeValidationRequired,
		errors.ErrCodeValidationInvalid,
		errors.ErrCodeValidationType:
		return InvalidParams
	case errors.ErrCodeTransportInvalidJSON, errors.ErrCodeTransportMarshal:
		return ParseError

	case errors.ErrCodeEntityNotFound, errors.ErrCodeStorageNotFound:
		return NotFoundError
	case errors.ErrCodeInvalidOperation:
		return InvalidStateError
	case errors.ErrCodeUpstreamUnavailable, errors.ErrCodeUpstreamStatus, errors.ErrCodeUpstreamDecode:
		return UpstreamError

	case errors.ErrCodeInternal,
		errors.ErrCodePanic,
		errors.ErrCodeContextCanceled,
		errors.ErrCodeContextTimeout,
		errors.ErrCodeServiceUnavailable,
		errors.ErrCodeConfiguration,
		errors.ErrCodeStorageConnection,
		errors.ErrCodeStorageTransaction,
		errors.ErrCodeStorageInitialization:
		return InternalError
	default:
		return GenericServerError
	}
}

// ToJSONRPCResponse creates an error response for err
func ToJSONRPCResponse(id interface{}, err error) *JSONRPCResponse {
	if err == nil {
		return NewResult(id, map[string]interface{}{"success": true})
	}
	return &JSONRPCResponse{
		JSONRPC: JSONRPCVersion,
		ID:      id,
		Error:   ToJSONRPCError(err),
	}
}

// ToHTTPStatusCode maps an error to the status of the HTTP response carrying
// it. Only transport-level failures change the status; application errors
// travel with 200 inside the JSON-RPC body.
func ToHTTPStatusCode(err error) int {
	if err == nil {
		return http.StatusOK
	}
	return statusForCode(errors.GetCode(err))
}

func statusForCode(code errors.ErrorCode) int {
	switch code {
	case errors.ErrCodeTransportInvalidJSON, errors.ErrCodeTransportMarshal:
		return http.StatusBadRequest
	case errors.ErrCodeServiceUnavailable:
		return http.StatusServiceUnavailable
	case errors.ErrCodePanic, errors.ErrCodeConfiguration:
		return http.StatusInternalServerError
	default:
		return http.StatusOK
	}
}

// responseStatus derives the HTTP status from the error code carried in a
// response built by ToJSONRPCResponse
func responseStatus(resp *JSONRPCResponse) int {
	if resp == nil || resp.Error == nil {
		return http.StatusOK
	}
	data, ok := resp.Error.Data.(map[string]interface{})
	if !ok {
		return http.StatusOK
	}
	code, ok := data["error_code"].(string)
	if !ok {
		return http.StatusOK
	}
	return statusForCode(errors.ErrorCode(code))
}

// CreateFallbackErrorResponse creates a safe response for failures outside
// the handler
func CreateFallbackErrorResponse(id interface{}, message string) *JSONRPCResponse {
	if message == "" {
		message = "An unexpected error occurred"
	}

	return &JSONRPCResponse{
		JSONRPC: JSONRPCVersion,
		ID:      id,
		Error: &JSONRPCError{
			Code:    InternalError,
			Message: message,
			Data:    map[string]interface{}{"error_code": "FALLBACK_ERROR"},
		},
	}
}

// SafeErrorMessage returns the client-facing message, never the internal cause
func SafeErrorMessage(err error) string {
	if err == nil {
		return ""
	}
	if message := errors.GetMessage(err); message != "" {
		return message
	}
	return "An internal error occurred"
}

// LoggableError returns the full error details for logging
func LoggableError(err error) error {
	if err == nil {
		return nil
	}

	if internal := errors.GetInternal(err); internal != nil {
		return fmt.Errorf("error_code=%s message=%s internal=%v",
			errors.GetCode(err), errors.GetMessage(err), internal)
	}
	return fmt.Errorf("error_code=%s message=%s",
		errors.GetCode(err), errors.GetMessage(err))
}
