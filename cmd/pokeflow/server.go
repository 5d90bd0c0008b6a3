package main

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/JamesPrial/pokeflow/internal/browser"
	"github.com/JamesPrial/pokeflow/internal/transport"
	"github.com/JamesPrial/pokeflow/pkg/errors"
	"github.com/JamesPrial/pokeflow/pkg/logging"
)

const maxMethodLength = 100

// Server adapts the browsing session to JSON-RPC
type Server struct {
	manager *browser.Manager
	logger  *slog.Logger
}

// NewServer creates a JSON-RPC front for manager
func NewServer(manager *browser.Manager) *Server {
	return &Server{
		manager: manager,
		logger:  logging.GetGlobalLogger("server"),
	}
}

// validateRequest returns an error response when req is not a well-formed
// JSON-RPC 2.0 request
func validateRequest(req *transport.JSONRPCRequest) *transport.JSONRPCResponse {
	if req == nil {
		return transport.NewInvalidRequestError(nil, "Request cannot be null")
	}
	if req.JSONRPC != transport.JSONRPCVersion {
		return transport.NewInvalidRequestError(req.ID, "Invalid or missing 'jsonrpc' field, must be '2.0'")
	}
	if req.Method == "" {
		return transport.NewInvalidRequestError(req.ID, "Missing or empty 'method' field")
	}
	if !isValidMethodName(req.Method) {
		return transport.NewInvalidRequestError(req.ID, fmt.Sprintf("Invalid method format: '%s'", req.Method))
	}
	return nil
}

// isValidMethodName accepts lower-case "group/name" style methods
func isValidMethodName(method string) bool {
	if len(method) > maxMethodLength {
		return false
	}
	for _, r := range method {
		if !((r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') || r == '/' || r == '_') {
			return false
		}
	}
	return !strings.HasPrefix(method, "/") &&
		!strings.HasSuffix(method, "/") &&
		!strings.Contains(method, "//") &&
		strings.Count(method, "/") <= 1
}

// HandleRequest processes one JSON-RPC request. Notifications (no id) are
// executed and yield a nil response.
func (s *Server) HandleRequest(ctx context.Context, req *transport.JSONRPCRequest) (resp *transport.JSONRPCResponse) {
	if invalid := validateRequest(req); invalid != nil {
		return invalid
	}

	defer func() {
		if r := recover(); r != nil {
			s.logger.ErrorContext(ctx, "Panic while handling request",
				slog.String("method", req.Method),
				slog.Any("panic", r),
			)
			resp = transport.ToJSONRPCResponse(req.ID,
				errors.Newf(errors.ErrCodePanic, "internal error while handling %s", req.Method))
		}
	}()

	result, err := s.manager.HandleCall(ctx, req.Method, req.Params)
	if req.IsNotification() {
		if err != nil {
			s.logger.WarnContext(ctx, "Notification failed",
				slog.String("method", req.Method),
				slog.String("error", transport.LoggableError(err).Error()),
			)
		}
		return nil
	}

	if err != nil {
		if errors.Is(err, errors.ErrCodeTransportMethodNotFound) {
			return transport.NewMethodNotFoundError(req.ID, req.Method)
		}
		s.logger.DebugContext(ctx, "Request failed",
			slog.String("method", req.Method),
			slog.String("error", transport.LoggableError(err).Error()),
		)
		return transport.ToJSONRPCResponse(req.ID, err)
	}
	return transport.NewResult(req.ID, result)
}
