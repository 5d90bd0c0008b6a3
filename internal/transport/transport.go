// Package transport carries JSON-RPC 2.0 requests from the diagram widget to
// a RequestHandler over HTTP, SSE or stdio.
package transport

import (
	"context"

	jsoniter "github.com/json-iterator/go"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// JSONRPCVersion is the only protocol version accepted
const JSONRPCVersion = "2.0"

// JSONRPCRequest is one call from the widget. A request without an ID is a
// notification and gets no response.
type JSONRPCRequest struct {
	JSONRPC string                 `json:"jsonrpc"`
	ID      interface{}            `json:"id"`
	Method  string                 `json:"method"`
	Params  map[string]interface{} `json:"params,omitempty"`
}

func (r *JSONRPCRequest) IsNotification() bool {
	return r.ID == nil
}

type JSONRPCResponse struct {
	JSONRPC string        `json:"jsonrpc"`
	ID      interface{}   `json:"id"`
	Result  interface{}   `json:"result,omitempty"`
	Error   *JSONRPCError `json:"error,omitempty"`
}

// JSONRPCError represents a JSON-RPC 2.0 error
type JSONRPCError struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

// RequestHandler handles one JSON-RPC request
type RequestHandler func(ctx context.Context, req *JSONRPCRequest) *JSONRPCResponse

// Transport moves requests from one kind of connection to a RequestHandler
type Transport interface {
	// Start serves requests until ctx is canceled or the transport fails
	Start(ctx context.Context, handler RequestHandler) error

	// Stop gracefully shuts down the transport
	Stop(ctx context.Context) error

	Name() string
}

// Publisher pushes named events to connected widgets
type Publisher interface {
	Publish(event string, payload interface{}) error
}

// Session tracks one connected widget. Times are Unix seconds.
type Session struct {
	ID           string
	Transport    string
	CreatedAt    int64
	LastActivity int64
}

// JSON-RPC 2.0 reserved error codes
const (
	ParseError     = -32700
	InvalidRequest = -32600
	MethodNotFound = -32601
	InvalidParams  = -32602
	InternalError  = -32603
)

// Server-defined error codes
const (
	NotFoundError      = -32001
	InvalidStateError  = -32003
	UpstreamError      = -32010
	GenericServerError = -32000
)

// NewResult wraps result in a success response
func NewResult(id interface{}, result interface{}) *JSONRPCResponse {
	return &JSONRPCResponse{JSONRPC: JSONRPCVersion, ID: id, Result: result}
}

func newErrorResponse(id interface{}, code int, message string, data interface{}) *JSONRPCResponse {
	return &JSONRPCResponse{
		JSONRPC: JSONRPCVersion,
		ID:      id,
		Error:   &JSONRPCError{Code: code, Message: message, Data: data},
	}
}

// NewParseError answers a body that is not valid JSON. The ID is unknown.
func NewParseError() *JSONRPCResponse {
	return newErrorResponse(nil, ParseError, "Parse error", "Invalid JSON format")
}

func NewInvalidRequestError(id interface{}, data string) *JSONRPCResponse {
	return newErrorResponse(id, InvalidRequest, "Invalid Request", data)
}

func NewMethodNotFoundError(id interface{}, method string) *JSONRPCResponse {
	return newErrorResponse(id, MethodNotFound, "Method not found", "Method '"+method+"' is not supported")
}

// ParseRequest decodes one JSON-RPC request
func ParseRequest(data []byte) (*JSONRPCRequest, error) {
	var req JSONRPCRequest
	if err := json.Unmarshal(data, &req); err != nil {
		return nil, err
	}
	return &req, nil
}

// SerializeResponse converts a JSONRPCResponse to JSON bytes
func SerializeResponse(resp *JSONRPCResponse) ([]byte, error) {
	return json.Marshal(resp)
}
