package transport

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/JamesPrial/pokeflow/pkg/config"
	"github.com/JamesPrial/pokeflow/pkg/errors"
	"github.com/JamesPrial/pokeflow/pkg/logging"
)

// SessionHeader carries the widget session id
const SessionHeader = "X-Session-ID"

const maxBodyBytes = 1 << 20

// httpServer is the listener plumbing shared by the HTTP and SSE transports
type httpServer struct {
	name        string
	config      *config.TransportSettings
	sessions    *SessionManager
	limiter     *semaphore.Weighted
	logger      *slog.Logger
	interceptor *logging.RequestInterceptor

	mu       sync.RWMutex
	server   *http.Server
	handler  RequestHandler
	listener net.Listener
}

func newHTTPServer(name string, cfg *config.TransportSettings) *httpServer {
	logger := logging.GetGlobalLogger("transport." + name)
	s := &httpServer{
		name:        name,
		config:      cfg,
		sessions:    NewSessionManager(DefaultSessionTimeout),
		logger:      logger,
		interceptor: logging.NewRequestInterceptor(logger),
	}
	if cfg.MaxConnections > 0 {
		s.limiter = semaphore.NewWeighted(int64(cfg.MaxConnections))
	}
	return s
}

func (s *httpServer) setHandler(handler RequestHandler) {
	s.mu.Lock()
	s.handler = handler
	s.mu.Unlock()
}

func (s *httpServer) currentHandler() RequestHandler {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.handler
}

// Addr returns the bound address once the server is listening
func (s *httpServer) Addr() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

// serve runs mux until ctx is canceled or the listener fails
func (s *httpServer) serve(ctx context.Context, mux *http.ServeMux, allowHeaders string) error {
	var handler http.Handler = mux
	handler = logging.GetGlobalMetricsCollector().Middleware()(handler)
	handler = s.interceptor.HTTPMiddleware(handler)
	if s.config.EnableCORS {
		handler = corsMiddleware(handler, allowHeaders)
	}

	addr := fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return errors.Wrapf(err, errors.ErrCodeServiceUnavailable, "failed to listen on %s", addr)
	}

	server := &http.Server{
		Handler:      handler,
		ReadTimeout:  time.Duration(s.config.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(s.config.WriteTimeout) * time.Second,
	}
	s.mu.Lock()
	s.server = server
	s.listener = ln
	s.mu.Unlock()

	s.logger.InfoContext(ctx, "Transport listening",
		slog.String("transport", s.name),
		slog.String("address", ln.Addr().String()),
	)

	errChan := make(chan error, 1)
	go func() {
		if err := server.Serve(ln); err != nil && err != http.ErrServerClosed {
			errChan <- err
		}
		close(errChan)
	}()

	select {
	case <-ctx.Done():
		s.logger.InfoContext(ctx, "Transport context canceled", slog.String("transport", s.name))
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
		defer cancel()
		return s.stop(shutdownCtx)
	case err, ok := <-errChan:
		if !ok {
			return nil
		}
		s.logger.ErrorContext(ctx, "Transport server error",
			slog.String("transport", s.name),
			slog.String("error", err.Error()),
		)
		return err
	}
}

func (s *httpServer) stop(ctx context.Context) error {
	s.sessions.Stop()

	s.mu.RLock()
	server := s.server
	s.mu.RUnlock()
	if server == nil {
		return nil
	}

	if err := server.Shutdown(ctx); err != nil {
		s.logger.ErrorContext(ctx, "Error during server shutdown",
			slog.String("transport", s.name),
			slog.String("error", err.Error()),
		)
		return err
	}
	s.logger.InfoContext(ctx, "Transport stopped", slog.String("transport", s.name))
	return nil
}

// acquire takes a connection slot, reporting false when the server is full
func (s *httpServer) acquire() bool {
	return s.limiter == nil || s.limiter.TryAcquire(1)
}

func (s *httpServer) release() {
	if s.limiter != nil {
		s.limiter.Release(1)
	}
}

// readRequest validates the HTTP envelope and decodes the JSON-RPC body. On
// failure the returned response and status should be sent as is.
func (s *httpServer) readRequest(r *http.Request) (*JSONRPCRequest, *JSONRPCResponse, int) {
	ctx := r.Context()

	if r.Method != http.MethodPost {
		s.logger.WarnContext(ctx, "Invalid HTTP method for RPC", slog.String("method", r.Method))
		return nil, CreateFallbackErrorResponse(nil, "Method not allowed"), http.StatusMethodNotAllowed
	}

	contentType := r.Header.Get("Content-Type")
	if i := strings.IndexByte(contentType, ';'); i >= 0 {
		contentType = strings.TrimSpace(contentType[:i])
	}
	if contentType != "application/json" && contentType != "application/json-rpc" {
		s.logger.WarnContext(ctx, "Invalid content type for RPC", slog.String("content_type", contentType))
		return nil, CreateFallbackErrorResponse(nil, "Content-Type must be application/json or application/json-rpc"), http.StatusUnsupportedMediaType
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		s.logger.ErrorContext(ctx, "Failed to read request body", slog.String("error", err.Error()))
		return nil, CreateFallbackErrorResponse(nil, "Failed to read request body"), http.StatusBadRequest
	}

	req, err := ParseRequest(body)
	if err != nil {
		s.logger.WarnContext(ctx, "Failed to parse JSON-RPC request", slog.String("error", err.Error()))
		// Parse errors are JSON-RPC level and travel with 200
		return nil, NewParseError(), http.StatusOK
	}
	return req, nil, 0
}

// dispatch runs the handler with session and request attributes in ctx
func (s *httpServer) dispatch(ctx context.Context, sessionID string, req *JSONRPCRequest) *JSONRPCResponse {
	ctx = logging.WithSessionID(ctx, sessionID)
	ctx = logging.WithOperation(ctx, req.Method)

	handler := s.currentHandler()
	if handler == nil {
		return CreateFallbackErrorResponse(req.ID, "Transport not started")
	}

	start := time.Now()
	resp := handler(ctx, req)
	duration := time.Since(start)

	logger := logging.WithRequestAttrs(ctx, s.logger)
	if resp != nil && resp.Error != nil {
		logger.WarnContext(ctx, "JSON-RPC request completed with error",
			slog.Any("id", req.ID),
			slog.Duration("duration", duration),
			slog.Int("code", resp.Error.Code),
			slog.String("error", resp.Error.Message),
		)
	} else {
		logger.DebugContext(ctx, "JSON-RPC request completed",
			slog.Any("id", req.ID),
			slog.Duration("duration", duration),
		)
	}
	return resp
}

func (s *httpServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":    "healthy",
		"transport": s.name,
		"sessions":  s.sessions.Count(),
		"timestamp": time.Now().Unix(),
	})
}

func corsMiddleware(next http.Handler, allowHeaders string) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "POST, GET, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", allowHeaders)
		w.Header().Set("Access-Control-Expose-Headers", SessionHeader+", "+logging.RequestIDHeader)

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	data, err := json.Marshal(v)
	if err != nil {
		data, _ = json.Marshal(CreateFallbackErrorResponse(nil, "Failed to encode response"))
		status = http.StatusInternalServerError
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(data)
}
