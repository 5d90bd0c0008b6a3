package transport

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JamesPrial/pokeflow/pkg/config"
	"github.com/JamesPrial/pokeflow/pkg/errors"
)

func testTransportSettings() *config.TransportSettings {
	return &config.TransportSettings{
		Host:             "127.0.0.1",
		Port:             0,
		ReadTimeout:      30,
		WriteTimeout:     30,
		MaxConnections:   100,
		EnableCORS:       true,
		SSEHeartbeatSecs: 30,
	}
}

func echoHandler(ctx context.Context, req *JSONRPCRequest) *JSONRPCResponse {
	switch req.Method {
	case "test/echo":
		return NewResult(req.ID, map[string]interface{}{"echo": req.Params})
	case "test/missing":
		return ToJSONRPCResponse(req.ID, errors.NotFound("node 99"))
	case "test/broken":
		return ToJSONRPCResponse(req.ID, errors.New(errors.ErrCodeTransportMarshal, "cannot encode"))
	default:
		return NewMethodNotFoundError(req.ID, req.Method)
	}
}

func rpcRequest(t *testing.T, body string) *http.Request {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/rpc", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	return req
}

func decodeResponse(t *testing.T, rr *httptest.ResponseRecorder) JSONRPCResponse {
	t.Helper()
	var resp JSONRPCResponse
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&resp))
	return resp
}

func TestHTTPTransport_HandleRPC(t *testing.T) {
	transport := NewHTTPTransport(testTransportSettings())
	transport.setHandler(echoHandler)

	t.Run("valid request", func(t *testing.T) {
		rr := httptest.NewRecorder()
		transport.handleRPC(rr, rpcRequest(t, `{"jsonrpc":"2.0","id":1,"method":"test/echo","params":{"message":"hello"}}`))

		assert.Equal(t, http.StatusOK, rr.Code)
		resp := decodeResponse(t, rr)
		assert.Nil(t, resp.Error)
		assert.Equal(t, map[string]interface{}{"echo": map[string]interface{}{"message": "hello"}}, resp.Result)
	})

	t.Run("invalid json", func(t *testing.T) {
		rr := httptest.NewRecorder()
		transport.handleRPC(rr, rpcRequest(t, "invalid json"))

		assert.Equal(t, http.StatusOK, rr.Code)
		resp := decodeResponse(t, rr)
		require.NotNil(t, resp.Error)
		assert.Equal(t, ParseError, resp.Error.Code)
	})

	t.Run("application error keeps 200", func(t *testing.T) {
		rr := httptest.NewRecorder()
		transport.handleRPC(rr, rpcRequest(t, `{"jsonrpc":"2.0","id":2,"method":"test/missing"}`))

		assert.Equal(t, http.StatusOK, rr.Code)
		resp := decodeResponse(t, rr)
		require.NotNil(t, resp.Error)
		assert.Equal(t, NotFoundError, resp.Error.Code)
		assert.Equal(t, "node 99 not found", resp.Error.Message)
	})

	t.Run("transport error changes status", func(t *testing.T) {
		rr := httptest.NewRecorder()
		transport.handleRPC(rr, rpcRequest(t, `{"jsonrpc":"2.0","id":3,"method":"test/broken"}`))

		assert.Equal(t, http.StatusBadRequest, rr.Code)
	})

	t.Run("wrong method", func(t *testing.T) {
		rr := httptest.NewRecorder()
		transport.handleRPC(rr, httptest.NewRequest(http.MethodGet, "/rpc", nil))

		assert.Equal(t, http.StatusMethodNotAllowed, rr.Code)
	})

	t.Run("wrong content type", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/rpc", strings.NewReader(`{}`))
		req.Header.Set("Content-Type", "text/plain")
		rr := httptest.NewRecorder()
		transport.handleRPC(rr, req)

		assert.Equal(t, http.StatusUnsupportedMediaType, rr.Code)
	})

	t.Run("content type with charset", func(t *testing.T) {
		req := rpcRequest(t, `{"jsonrpc":"2.0","id":4,"method":"test/echo"}`)
		req.Header.Set("Content-Type", "application/json; charset=utf-8")
		rr := httptest.NewRecorder()
		transport.handleRPC(rr, req)

		assert.Equal(t, http.StatusOK, rr.Code)
	})
}

func TestHTTPTransport_Sessions(t *testing.T) {
	transport := NewHTTPTransport(testTransportSettings())
	transport.setHandler(echoHandler)
	defer transport.sessions.Stop()

	t.Run("creates a session", func(t *testing.T) {
		rr := httptest.NewRecorder()
		transport.handleRPC(rr, rpcRequest(t, `{"jsonrpc":"2.0","id":1,"method":"test/echo"}`))

		sessionID := rr.Header().Get(SessionHeader)
		require.NotEmpty(t, sessionID)
		_, ok := transport.sessions.GetSession(sessionID)
		assert.True(t, ok)
	})

	t.Run("reuses a valid session", func(t *testing.T) {
		session := transport.sessions.CreateSession("http")

		req := rpcRequest(t, `{"jsonrpc":"2.0","id":1,"method":"test/echo"}`)
		req.Header.Set(SessionHeader, session.ID)
		rr := httptest.NewRecorder()
		transport.handleRPC(rr, req)

		assert.Equal(t, session.ID, rr.Header().Get(SessionHeader))
	})

	t.Run("replaces an unknown session", func(t *testing.T) {
		req := rpcRequest(t, `{"jsonrpc":"2.0","id":1,"method":"test/echo"}`)
		req.Header.Set(SessionHeader, "stale")
		rr := httptest.NewRecorder()
		transport.handleRPC(rr, req)

		got := rr.Header().Get(SessionHeader)
		assert.NotEmpty(t, got)
		assert.NotEqual(t, "stale", got)
	})
}

func TestHTTPTransport_ConnectionLimit(t *testing.T) {
	cfg := testTransportSettings()
	cfg.MaxConnections = 1
	transport := NewHTTPTransport(cfg)
	transport.setHandler(echoHandler)

	require.True(t, transport.acquire())
	defer transport.release()

	rr := httptest.NewRecorder()
	transport.handleRPC(rr, rpcRequest(t, `{"jsonrpc":"2.0","id":1,"method":"test/echo"}`))

	assert.Equal(t, http.StatusServiceUnavailable, rr.Code)
}

func TestHTTPTransport_HealthCheck(t *testing.T) {
	transport := NewHTTPTransport(testTransportSettings())

	rr := httptest.NewRecorder()
	transport.handleHealth(rr, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusOK, rr.Code)
	var health map[string]interface{}
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&health))
	assert.Equal(t, "healthy", health["status"])
	assert.Equal(t, "http", health["transport"])
}

func TestCORSMiddleware(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/test", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	handler := corsMiddleware(mux, "Content-Type, "+SessionHeader)

	t.Run("preflight", func(t *testing.T) {
		rr := httptest.NewRecorder()
		handler.ServeHTTP(rr, httptest.NewRequest(http.MethodOptions, "/test", nil))

		assert.Equal(t, http.StatusNoContent, rr.Code)
		assert.Equal(t, "*", rr.Header().Get("Access-Control-Allow-Origin"))
		assert.Equal(t, "POST, GET, OPTIONS", rr.Header().Get("Access-Control-Allow-Methods"))
		assert.Equal(t, "Content-Type, X-Session-ID", rr.Header().Get("Access-Control-Allow-Headers"))
	})

	t.Run("regular request", func(t *testing.T) {
		rr := httptest.NewRecorder()
		handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/test", nil))

		assert.Equal(t, http.StatusOK, rr.Code)
		assert.Equal(t, "*", rr.Header().Get("Access-Control-Allow-Origin"))
	})
}

func TestHTTPTransport_StartAndStop(t *testing.T) {
	transport := NewHTTPTransport(testTransportSettings())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- transport.Start(ctx, echoHandler)
	}()

	require.Eventually(t, func() bool { return transport.Addr() != "" }, 2*time.Second, 10*time.Millisecond)

	resp, err := http.Post("http://"+transport.Addr()+"/rpc", "application/json",
		bytes.NewReader([]byte(`{"jsonrpc":"2.0","id":7,"method":"test/echo"}`)))
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.NotEmpty(t, resp.Header.Get(SessionHeader))

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("transport did not stop")
	}
}
