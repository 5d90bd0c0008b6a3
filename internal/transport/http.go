package transport

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/JamesPrial/pokeflow/pkg/config"
	"github.com/JamesPrial/pokeflow/pkg/errors"
)

// HTTPTransport answers each JSON-RPC request in the HTTP response body
type HTTPTransport struct {
	*httpServer
}

// NewHTTPTransport creates a new HTTP transport
func NewHTTPTransport(cfg *config.TransportSettings) *HTTPTransport {
	return &HTTPTransport{httpServer: newHTTPServer("http", cfg)}
}

// Start serves /rpc and /health until ctx is canceled
func (t *HTTPTransport) Start(ctx context.Context, handler RequestHandler) error {
	t.setHandler(handler)

	mux := http.NewServeMux()
	mux.HandleFunc("/rpc", t.handleRPC)
	mux.HandleFunc("/health", t.handleHealth)

	return t.serve(ctx, mux, "Content-Type, "+SessionHeader)
}

// Stop gracefully shuts down the HTTP server
func (t *HTTPTransport) Stop(ctx context.Context) error {
	return t.stop(ctx)
}

// Name returns the name of the transport
func (t *HTTPTransport) Name() string {
	return "http"
}

func (t *HTTPTransport) handleRPC(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if !t.acquire() {
		err := errors.New(errors.ErrCodeServiceUnavailable, "Too many concurrent requests")
		writeJSON(w, ToHTTPStatusCode(err), ToJSONRPCResponse(nil, err))
		return
	}
	defer t.release()

	req, errResp, status := t.readRequest(r)
	if errResp != nil {
		writeJSON(w, status, errResp)
		return
	}

	sessionID := t.resolveSession(ctx, r.Header.Get(SessionHeader))
	w.Header().Set(SessionHeader, sessionID)

	resp := t.dispatch(ctx, sessionID, req)
	if resp == nil {
		// Notification
		w.WriteHeader(http.StatusNoContent)
		return
	}
	writeJSON(w, responseStatus(resp), resp)
}

// resolveSession returns the caller's session, replacing a missing or
// expired one
func (t *HTTPTransport) resolveSession(ctx context.Context, sessionID string) string {
	if sessionID != "" {
		if _, ok := t.sessions.GetSession(sessionID); ok {
			return sessionID
		}
		t.logger.DebugContext(ctx, "Session expired or invalid, creating new one",
			slog.String("old_session_id", sessionID),
		)
	}

	session := t.sessions.CreateSession(t.Name())
	t.logger.DebugContext(ctx, "Created new session", slog.String("session_id", session.ID))
	return session.ID
}
