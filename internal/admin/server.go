// Package admin serves operator endpoints: health, runtime log levels and
// Prometheus metrics.
package admin

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	jsoniter "github.com/json-iterator/go"

	"github.com/JamesPrial/pokeflow/pkg/logging"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// StatusFunc reports extra fields for the health response
type StatusFunc func() map[string]interface{}

// AdminServer provides administrative endpoints for runtime configuration
type AdminServer struct {
	logger *slog.Logger
	mux    *http.ServeMux
	status StatusFunc
}

// NewAdminServer creates a new admin server. status may be nil.
func NewAdminServer(status StatusFunc) *AdminServer {
	admin := &AdminServer{
		logger: logging.GetGlobalLogger("admin"),
		mux:    http.NewServeMux(),
		status: status,
	}

	admin.mux.HandleFunc("/health", admin.handleHealth)
	admin.mux.HandleFunc("/log-level", admin.handleLogLevel)
	admin.mux.HandleFunc("/log-levels", admin.handleLogLevels)
	admin.mux.HandleFunc("/metrics", admin.handleMetrics)
	return admin
}

// ServeHTTP implements http.Handler
func (a *AdminServer) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	a.mux.ServeHTTP(w, r)
}

func (a *AdminServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	response := map[string]interface{}{
		"status": "healthy",
		"server": "pokeflow",
	}
	if a.status != nil {
		for k, v := range a.status() {
			response[k] = v
		}
	}
	writeJSON(w, http.StatusOK, response)
}

func (a *AdminServer) handleLogLevel(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		a.getLogLevel(w, r)
	case http.MethodPost, http.MethodPut:
		a.setLogLevel(w, r)
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

// LogLevelRequest represents a log level change request
type LogLevelRequest struct {
	Component string `json:"component"`
	Level     string `json:"level"`
}

// LogLevelResponse represents a log level response
type LogLevelResponse struct {
	Component string `json:"component"`
	Level     string `json:"level"`
	Success   bool   `json:"success"`
	Message   string `json:"message,omitempty"`
}

func (a *AdminServer) getLogLevel(w http.ResponseWriter, r *http.Request) {
	component := r.URL.Query().Get("component")
	if component == "" {
		component = "default"
	}

	levels := logging.GetGlobalLevels()
	level, ok := levels[component]
	if !ok {
		// Components that have not logged yet follow the default
		level = levels["default"]
	}

	writeJSON(w, http.StatusOK, LogLevelResponse{
		Component: component,
		Level:     string(level),
		Success:   true,
	})
}

func (a *AdminServer) setLogLevel(w http.ResponseWriter, r *http.Request) {
	var req LogLevelRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, LogLevelResponse{
			Message: fmt.Sprintf("Invalid JSON: %v", err),
		})
		return
	}

	level := logging.LogLevel(strings.ToLower(strings.TrimSpace(req.Level)))
	if !logging.IsValidLevel(level) {
		writeJSON(w, http.StatusBadRequest, LogLevelResponse{
			Component: req.Component,
			Message:   fmt.Sprintf("Invalid log level '%s'. Must be one of: debug, info, warn, error", req.Level),
		})
		return
	}

	component := req.Component
	if component == "" {
		component = "default"
	}

	logging.UpdateGlobalLevel(component, level)
	a.logger.Info("Log level updated",
		slog.String("target_component", component),
		slog.String("level", string(level)),
	)

	writeJSON(w, http.StatusOK, LogLevelResponse{
		Component: component,
		Level:     string(level),
		Success:   true,
		Message:   fmt.Sprintf("Log level for component '%s' updated to '%s'", component, level),
	})
}

func (a *AdminServer) handleLogLevels(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"levels": logging.GetGlobalLevels(),
	})
}

func (a *AdminServer) handleMetrics(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	if collector := logging.GetGlobalMetricsCollector(); collector != nil {
		collector.GetHTTPHandler().ServeHTTP(w, r)
		return
	}
	writeJSON(w, http.StatusServiceUnavailable, map[string]interface{}{
		"status": "metrics not enabled",
	})
}

// Serve runs the admin server on port until ctx is canceled
func (a *AdminServer) Serve(ctx context.Context, port int) error {
	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           a,
		ReadHeaderTimeout: 10 * time.Second,
	}
	a.logger.InfoContext(ctx, "Starting admin server", slog.String("address", server.Addr))

	errChan := make(chan error, 1)
	go func() {
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errChan <- err
		}
		close(errChan)
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
		defer cancel()
		a.logger.InfoContext(ctx, "Stopping admin server")
		return server.Shutdown(shutdownCtx)
	case err, ok := <-errChan:
		if !ok {
			return nil
		}
		return fmt.Errorf("admin server: %w", err)
	}
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
