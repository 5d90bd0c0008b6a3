package transport

import (
	"fmt"

	"github.com/JamesPrial/pokeflow/pkg/config"
)

// Transport type names accepted by the transportType setting
const (
	TypeHTTP  = "http"
	TypeSSE   = "sse"
	TypeStdio = "stdio"
)

// New builds the transport named by cfg.TransportType, defaulting to HTTP.
// SSE and stdio transports also implement Publisher.
func New(cfg *config.Settings) (Transport, error) {
	switch cfg.TransportType {
	case TypeHTTP, "":
		return NewHTTPTransport(&cfg.Transport), nil
	case TypeSSE:
		return NewSSETransport(&cfg.Transport), nil
	case TypeStdio:
		return NewStdioTransport(), nil
	}
	return nil, fmt.Errorf("unsupported transport type: %s", cfg.TransportType)
}
