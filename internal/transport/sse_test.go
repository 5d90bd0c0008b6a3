package transport

import (
	"bufio"
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sseStream struct {
	resp   *http.Response
	reader *bufio.Reader
}

// next reads one event, skipping comments
func (s *sseStream) next(t *testing.T) SSEEvent {
	t.Helper()
	var event SSEEvent
	for {
		line, err := s.reader.ReadString('\n')
		require.NoError(t, err)
		line = strings.TrimRight(line, "\n")

		switch {
		case line == "":
			if event.Data != "" || event.Event != "" {
				return event
			}
		case strings.HasPrefix(line, ":"):
		case strings.HasPrefix(line, "id: "):
			event.ID = strings.TrimPrefix(line, "id: ")
		case strings.HasPrefix(line, "event: "):
			event.Event = strings.TrimPrefix(line, "event: ")
		case strings.HasPrefix(line, "data: "):
			event.Data = strings.TrimPrefix(line, "data: ")
		}
	}
}

func newSSEServer(t *testing.T) (*SSETransport, *httptest.Server) {
	t.Helper()
	transport := NewSSETransport(testTransportSettings())
	transport.setHandler(echoHandler)

	mux := http.NewServeMux()
	mux.HandleFunc("/rpc", transport.handleRPC)
	mux.HandleFunc("/events", transport.handleSSE)
	server := httptest.NewServer(mux)
	t.Cleanup(func() {
		_ = transport.Stop(context.Background())
		server.Close()
	})
	return transport, server
}

func openStream(t *testing.T, server *httptest.Server, sessionID string) *sseStream {
	t.Helper()
	req, err := http.NewRequest(http.MethodGet, server.URL+"/events", nil)
	require.NoError(t, err)
	if sessionID != "" {
		req.Header.Set(SessionHeader, sessionID)
	}

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	resp, err := server.Client().Do(req.WithContext(ctx))
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })

	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))
	return &sseStream{resp: resp, reader: bufio.NewReader(resp.Body)}
}

func postRPC(t *testing.T, server *httptest.Server, sessionID, body string) *http.Response {
	t.Helper()
	req, err := http.NewRequest(http.MethodPost, server.URL+"/rpc", strings.NewReader(body))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	if sessionID != "" {
		req.Header.Set(SessionHeader, sessionID)
	}
	resp, err := server.Client().Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func TestSSETransport_NewStreamAnnouncesSession(t *testing.T) {
	_, server := newSSEServer(t)

	stream := openStream(t, server, "")
	sessionID := stream.resp.Header.Get(SessionHeader)
	require.NotEmpty(t, sessionID)

	first := stream.next(t)
	assert.Equal(t, EventSession, first.Event)
	assert.Contains(t, first.Data, sessionID)

	assert.Equal(t, EventConnected, stream.next(t).Event)
}

func TestSSETransport_ExistingSessionNotAnnounced(t *testing.T) {
	transport, server := newSSEServer(t)
	session := transport.sessions.CreateSession("sse")

	stream := openStream(t, server, session.ID)

	assert.Equal(t, session.ID, stream.resp.Header.Get(SessionHeader))
	assert.Equal(t, EventConnected, stream.next(t).Event)
}

func TestSSETransport_ResponseDeliveredOnStream(t *testing.T) {
	_, server := newSSEServer(t)

	stream := openStream(t, server, "")
	sessionID := stream.resp.Header.Get(SessionHeader)
	stream.next(t)
	stream.next(t)

	resp := postRPC(t, server, sessionID, `{"jsonrpc":"2.0","id":5,"method":"test/echo","params":{"x":1}}`)
	assert.Equal(t, http.StatusAccepted, resp.StatusCode)

	event := stream.next(t)
	assert.Equal(t, EventMessage, event.Event)

	var rpc JSONRPCResponse
	require.NoError(t, json.Unmarshal([]byte(event.Data), &rpc))
	assert.EqualValues(t, 5, rpc.ID)
	assert.Nil(t, rpc.Error)
}

func TestSSETransport_ParseErrorDeliveredOnStream(t *testing.T) {
	_, server := newSSEServer(t)

	stream := openStream(t, server, "")
	sessionID := stream.resp.Header.Get(SessionHeader)
	stream.next(t)
	stream.next(t)

	resp := postRPC(t, server, sessionID, `not json`)
	assert.Equal(t, http.StatusAccepted, resp.StatusCode)

	var rpc JSONRPCResponse
	require.NoError(t, json.Unmarshal([]byte(stream.next(t).Data), &rpc))
	require.NotNil(t, rpc.Error)
	assert.Equal(t, ParseError, rpc.Error.Code)
}

func TestSSETransport_RPCSessionChecks(t *testing.T) {
	_, server := newSSEServer(t)

	resp := postRPC(t, server, "", `{"jsonrpc":"2.0","id":1,"method":"test/echo"}`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = postRPC(t, server, "unknown", `{"jsonrpc":"2.0","id":1,"method":"test/echo"}`)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestSSETransport_PublishReachesEveryClient(t *testing.T) {
	transport, server := newSSEServer(t)

	first := openStream(t, server, "")
	second := openStream(t, server, "")
	for _, s := range []*sseStream{first, second} {
		s.next(t)
		s.next(t)
	}
	require.Eventually(t, func() bool { return transport.ClientCount() == 2 }, 2*time.Second, 10*time.Millisecond)

	require.NoError(t, transport.Publish(EventPanel, map[string]string{"state": "loading"}))
	require.NoError(t, transport.Publish(EventPanel, map[string]string{"state": "loaded"}))

	for _, s := range []*sseStream{first, second} {
		one := s.next(t)
		assert.Equal(t, EventPanel, one.Event)
		assert.Equal(t, "1", one.ID)
		assert.JSONEq(t, `{"state":"loading"}`, one.Data)

		two := s.next(t)
		assert.Equal(t, "2", two.ID)
		assert.JSONEq(t, `{"state":"loaded"}`, two.Data)
	}
}

func TestSSETransport_PublishUnmarshalable(t *testing.T) {
	transport := NewSSETransport(testTransportSettings())

	err := transport.Publish(EventPanel, make(chan int))
	assert.Error(t, err)
}

func TestSSETransport_StopClosesStreams(t *testing.T) {
	transport, server := newSSEServer(t)

	stream := openStream(t, server, "")
	stream.next(t)
	stream.next(t)

	require.NoError(t, transport.Stop(context.Background()))
	require.NoError(t, transport.Stop(context.Background()), "Stop is idempotent")

	require.Eventually(t, func() bool { return transport.ClientCount() == 0 }, 2*time.Second, 10*time.Millisecond)
}

func TestSSETransport_StreamOutlivesServerTimeouts(t *testing.T) {
	transport := NewSSETransport(testTransportSettings())
	transport.setHandler(echoHandler)

	mux := http.NewServeMux()
	mux.HandleFunc("/events", transport.handleSSE)
	server := httptest.NewUnstartedServer(transport.interceptor.HTTPMiddleware(mux))
	server.Config.ReadTimeout = time.Second
	server.Config.WriteTimeout = time.Second
	server.Start()
	t.Cleanup(func() {
		_ = transport.Stop(context.Background())
		server.Close()
	})

	stream := openStream(t, server, "")
	stream.next(t)
	stream.next(t)

	time.Sleep(1500 * time.Millisecond)
	require.NoError(t, transport.Publish(EventPanel, map[string]string{"state": "loaded"}))

	event := stream.next(t)
	assert.Equal(t, EventPanel, event.Event)
	assert.JSONEq(t, `{"state":"loaded"}`, event.Data)
}

func TestSSETransport_DisconnectDropsDrainedQueue(t *testing.T) {
	transport, server := newSSEServer(t)

	stream := openStream(t, server, "")
	stream.next(t)
	stream.next(t)
	require.Equal(t, 1, transport.queueCount())

	require.NoError(t, stream.resp.Body.Close())

	assert.Eventually(t, func() bool { return transport.queueCount() == 0 }, 2*time.Second, 10*time.Millisecond)
}

func TestSSETransport_ExpiredSessionDropsQueue(t *testing.T) {
	transport := NewSSETransport(testTransportSettings())
	t.Cleanup(transport.sessions.Stop)

	session := transport.sessions.CreateSession("sse")
	transport.enqueue(session.ID, &JSONRPCResponse{JSONRPC: "2.0", ID: 1})
	require.Equal(t, 1, transport.queueCount())

	transport.sessions.mu.Lock()
	session.LastActivity = time.Now().Add(-2 * DefaultSessionTimeout).Unix()
	transport.sessions.mu.Unlock()
	transport.sessions.expire(time.Now())

	assert.Equal(t, 0, transport.queueCount())
}
