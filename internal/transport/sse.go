package transport

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/JamesPrial/pokeflow/pkg/config"
	"github.com/JamesPrial/pokeflow/pkg/errors"
)

// Event names written to the /events stream
const (
	EventSession   = "session"
	EventConnected = "connected"
	EventMessage   = "message"
	EventPanel     = "panel"
)

const (
	defaultHeartbeat = 30 * time.Second
	clientBuffer     = 16
	queueBuffer      = 100
)

// SSEEvent represents a Server-Sent Event
type SSEEvent struct {
	ID    string
	Event string
	Data  string
}

// sseClient is one open /events stream
type sseClient struct {
	sessionID string
	events    chan *SSEEvent
}

// SSETransport accepts requests on /rpc and delivers responses and pushed
// panel updates on the caller's /events stream
type SSETransport struct {
	*httpServer

	clientsMu sync.RWMutex
	clients   map[string]*sseClient

	queuesMu sync.RWMutex
	queues   map[string]chan *JSONRPCResponse

	eventSeq atomic.Uint64
	done     chan struct{}
	doneOnce sync.Once
}

// NewSSETransport creates a new SSE transport
func NewSSETransport(cfg *config.TransportSettings) *SSETransport {
	t := &SSETransport{
		httpServer: newHTTPServer("sse", cfg),
		clients:    make(map[string]*sseClient),
		queues:     make(map[string]chan *JSONRPCResponse),
		done:       make(chan struct{}),
	}
	t.sessions.OnExpire(t.dropQueue)
	return t
}

// Start serves /rpc, /events and /health until ctx is canceled
func (t *SSETransport) Start(ctx context.Context, handler RequestHandler) error {
	t.setHandler(handler)

	mux := http.NewServeMux()
	mux.HandleFunc("/rpc", t.handleRPC)
	mux.HandleFunc("/events", t.handleSSE)
	mux.HandleFunc("/health", t.handleHealth)

	return t.serve(ctx, mux, "Content-Type, "+SessionHeader+", Last-Event-ID")
}

// Stop closes every event stream and shuts down the server
func (t *SSETransport) Stop(ctx context.Context) error {
	t.doneOnce.Do(func() {
		close(t.done)
	})

	t.clientsMu.RLock()
	clientCount := len(t.clients)
	t.clientsMu.RUnlock()
	t.logger.InfoContext(ctx, "Closing SSE client connections", slog.Int("client_count", clientCount))

	return t.stop(ctx)
}

// Name returns the name of the transport
func (t *SSETransport) Name() string {
	return "sse"
}

// handleRPC runs the request and queues the response for the session's
// event stream
func (t *SSETransport) handleRPC(w http.ResponseWriter, r *http.Request) {
	if !t.acquire() {
		err := errors.New(errors.ErrCodeServiceUnavailable, "Too many concurrent requests")
		writeJSON(w, ToHTTPStatusCode(err), ToJSONRPCResponse(nil, err))
		return
	}
	defer t.release()

	sessionID := r.Header.Get(SessionHeader)
	if sessionID == "" {
		writeJSON(w, http.StatusBadRequest, CreateFallbackErrorResponse(nil, SessionHeader+" header required"))
		return
	}
	if _, ok := t.sessions.GetSession(sessionID); !ok {
		writeJSON(w, http.StatusUnauthorized, CreateFallbackErrorResponse(nil, "Invalid or expired session"))
		return
	}

	req, errResp, status := t.readRequest(r)
	if errResp != nil {
		if status == http.StatusOK {
			// JSON-RPC parse errors go to the stream like any response
			t.enqueue(sessionID, errResp)
			writeJSON(w, http.StatusAccepted, map[string]string{"status": "accepted"})
			return
		}
		writeJSON(w, status, errResp)
		return
	}

	if resp := t.dispatch(r.Context(), sessionID, req); resp != nil {
		t.enqueue(sessionID, resp)
	}
	writeJSON(w, http.StatusAccepted, map[string]string{"status": "accepted"})
}

// handleSSE streams events to one client until it disconnects or the
// transport stops
func (t *SSETransport) handleSSE(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	flusher, ok := w.(http.Flusher)
	if !ok {
		t.logger.ErrorContext(ctx, "SSE not supported by response writer")
		writeJSON(w, http.StatusInternalServerError, CreateFallbackErrorResponse(nil, "SSE not supported"))
		return
	}

	// The stream outlives the server's read and write timeouts
	rc := http.NewResponseController(w)
	if err := rc.SetWriteDeadline(time.Time{}); err != nil {
		t.logger.WarnContext(ctx, "Failed to clear write deadline", slog.String("error", err.Error()))
	}
	if err := rc.SetReadDeadline(time.Time{}); err != nil {
		t.logger.WarnContext(ctx, "Failed to clear read deadline", slog.String("error", err.Error()))
	}

	sessionID := r.Header.Get(SessionHeader)
	if sessionID == "" {
		sessionID = r.URL.Query().Get("session")
	}
	announce := false
	if _, exists := t.sessions.GetSession(sessionID); !exists {
		sessionID = t.sessions.CreateSession(t.Name()).ID
		announce = true
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	w.Header().Set(SessionHeader, sessionID)
	w.WriteHeader(http.StatusOK)

	client := &sseClient{
		sessionID: sessionID,
		events:    make(chan *SSEEvent, clientBuffer),
	}
	queue := t.register(client)
	defer t.unregister(ctx, client)

	if announce {
		writeEvent(w, &SSEEvent{Event: EventSession, Data: fmt.Sprintf(`{"sessionId":%q}`, sessionID)})
	}
	writeEvent(w, &SSEEvent{Event: EventConnected, Data: `{"status":"connected"}`})
	if lastEventID := r.Header.Get("Last-Event-ID"); lastEventID != "" {
		t.logger.InfoContext(ctx, "SSE client reconnected",
			slog.String("session_id", sessionID),
			slog.String("last_event_id", lastEventID),
		)
	}
	flusher.Flush()

	interval := time.Duration(t.config.SSEHeartbeatSecs) * time.Second
	if interval <= 0 {
		interval = defaultHeartbeat
	}
	heartbeat := time.NewTicker(interval)
	defer heartbeat.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-t.done:
			return
		case <-heartbeat.C:
			fmt.Fprint(w, ":heartbeat\n\n")
			flusher.Flush()
		case resp := <-queue:
			data, err := json.Marshal(resp)
			if err != nil {
				t.logger.ErrorContext(ctx, "Failed to marshal queued response", slog.String("error", err.Error()))
				continue
			}
			writeEvent(w, &SSEEvent{Event: EventMessage, Data: string(data)})
			flusher.Flush()
		case event := <-client.events:
			writeEvent(w, event)
			flusher.Flush()
		}
	}
}

func (t *SSETransport) register(client *sseClient) chan *JSONRPCResponse {
	t.clientsMu.Lock()
	t.clients[client.sessionID] = client
	count := len(t.clients)
	t.clientsMu.Unlock()

	t.queuesMu.Lock()
	queue, ok := t.queues[client.sessionID]
	if !ok {
		queue = make(chan *JSONRPCResponse, queueBuffer)
		t.queues[client.sessionID] = queue
	}
	t.queuesMu.Unlock()

	t.logger.Info("SSE client connected",
		slog.String("session_id", client.sessionID),
		slog.Int("total_clients", count),
	)
	return queue
}

func (t *SSETransport) unregister(ctx context.Context, client *sseClient) {
	t.clientsMu.Lock()
	if t.clients[client.sessionID] == client {
		delete(t.clients, client.sessionID)
	}
	_, reconnected := t.clients[client.sessionID]
	remaining := len(t.clients)
	t.clientsMu.Unlock()

	if !reconnected {
		t.queuesMu.Lock()
		if queue, ok := t.queues[client.sessionID]; ok && len(queue) == 0 {
			delete(t.queues, client.sessionID)
		}
		t.queuesMu.Unlock()
	}

	t.logger.InfoContext(ctx, "SSE client disconnected",
		slog.String("session_id", client.sessionID),
		slog.Int("remaining_clients", remaining),
	)
}

// dropQueue discards any responses still waiting for sessionID
func (t *SSETransport) dropQueue(sessionID string) {
	t.queuesMu.Lock()
	delete(t.queues, sessionID)
	t.queuesMu.Unlock()
}

// queueCount returns the number of per-session response queues
func (t *SSETransport) queueCount() int {
	t.queuesMu.RLock()
	defer t.queuesMu.RUnlock()
	return len(t.queues)
}

// enqueue hands resp to the session's stream, creating the queue if the
// stream has not connected yet
func (t *SSETransport) enqueue(sessionID string, resp *JSONRPCResponse) {
	t.queuesMu.Lock()
	queue, ok := t.queues[sessionID]
	if !ok {
		queue = make(chan *JSONRPCResponse, queueBuffer)
		t.queues[sessionID] = queue
	}
	t.queuesMu.Unlock()

	select {
	case queue <- resp:
	default:
		t.logger.Warn("Message queue full, dropping response",
			slog.String("session_id", sessionID),
			slog.Any("id", resp.ID),
		)
	}
}

// BroadcastEvent sends event to every connected client. Clients whose buffer
// is full miss the event.
func (t *SSETransport) BroadcastEvent(event *SSEEvent) {
	t.clientsMu.RLock()
	defer t.clientsMu.RUnlock()

	for _, client := range t.clients {
		select {
		case client.events <- event:
		default:
			t.logger.Warn("SSE client buffer full, skipping event",
				slog.String("session_id", client.sessionID),
				slog.String("event", event.Event),
			)
		}
	}
}

// Publish marshals payload and broadcasts it as a numbered event
func (t *SSETransport) Publish(event string, payload interface{}) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeTransportMarshal, "failed to marshal event payload")
	}
	t.BroadcastEvent(&SSEEvent{
		ID:    strconv.FormatUint(t.eventSeq.Add(1), 10),
		Event: event,
		Data:  string(data),
	})
	return nil
}

// ClientCount returns the number of open event streams
func (t *SSETransport) ClientCount() int {
	t.clientsMu.RLock()
	defer t.clientsMu.RUnlock()
	return len(t.clients)
}

func writeEvent(w http.ResponseWriter, event *SSEEvent) {
	if event.ID != "" {
		fmt.Fprintf(w, "id: %s\n", event.ID)
	}
	if event.Event != "" {
		fmt.Fprintf(w, "event: %s\n", event.Event)
	}
	fmt.Fprintf(w, "data: %s\n\n", event.Data)
}
