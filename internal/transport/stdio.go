package transport

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/JamesPrial/pokeflow/pkg/errors"
	"github.com/JamesPrial/pokeflow/pkg/logging"
)

// StdioTransport reads one JSON-RPC request per line and writes one response
// per line. Published events are written as notifications on the same stream.
type StdioTransport struct {
	in      io.Reader
	out     io.Writer
	outMu   sync.Mutex
	running atomic.Bool
	session string
	logger  *slog.Logger
}

// NewStdioTransport creates a transport on os.Stdin and os.Stdout
func NewStdioTransport() *StdioTransport {
	return NewStdioTransportWithIO(os.Stdin, os.Stdout)
}

// NewStdioTransportWithIO creates a transport on the given streams
func NewStdioTransportWithIO(in io.Reader, out io.Writer) *StdioTransport {
	return &StdioTransport{
		in:      in,
		out:     out,
		session: logging.GenerateID(),
		logger:  logging.GetGlobalLogger("transport.stdio"),
	}
}

// Start processes lines until EOF, Stop or ctx cancellation
func (t *StdioTransport) Start(ctx context.Context, handler RequestHandler) error {
	t.running.Store(true)
	t.logger.InfoContext(ctx, "StdIO transport starting", slog.String("session_id", t.session))

	scanner := bufio.NewScanner(t.in)
	scanner.Buffer(make([]byte, 0, 64*1024), maxBodyBytes)

	for t.running.Load() && scanner.Scan() {
		select {
		case <-ctx.Done():
			t.logger.InfoContext(ctx, "StdIO transport context canceled")
			return ctx.Err()
		default:
		}

		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		requestCtx := logging.NewRequestContext(ctx, "HandleStdIORequest")
		requestCtx = logging.WithSessionID(requestCtx, t.session)

		req, err := ParseRequest([]byte(line))
		if err != nil {
			t.logger.WarnContext(requestCtx, "Failed to parse JSON-RPC request",
				slog.String("error", err.Error()),
			)
			parseErr := errors.Wrap(err, errors.ErrCodeTransportInvalidJSON, "Invalid JSON format")
			t.send(requestCtx, ToJSONRPCResponse(nil, parseErr))
			continue
		}

		requestCtx = logging.WithOperation(requestCtx, req.Method)
		timer := logging.StartTimer(requestCtx, t.logger, req.Method)
		resp := handler(requestCtx, req)
		if resp != nil && resp.Error != nil {
			timer.EndWithError(fmt.Errorf("rpc error %d: %s", resp.Error.Code, resp.Error.Message))
		} else {
			timer.End()
		}

		if resp != nil {
			t.send(requestCtx, resp)
		}
	}

	if err := scanner.Err(); err != nil {
		t.logger.ErrorContext(ctx, "Error reading from stdin", slog.String("error", err.Error()))
		return fmt.Errorf("error reading from stdin: %w", err)
	}

	t.logger.InfoContext(ctx, "StdIO transport stopped")
	return nil
}

// Stop ends the read loop after the current line
func (t *StdioTransport) Stop(ctx context.Context) error {
	t.logger.InfoContext(ctx, "StdIO transport stopping")
	t.running.Store(false)
	return nil
}

// Name returns the name of the transport
func (t *StdioTransport) Name() string {
	return "stdio"
}

// Publish writes a JSON-RPC notification named after event
func (t *StdioTransport) Publish(event string, payload interface{}) error {
	data, err := json.Marshal(map[string]interface{}{
		"jsonrpc": JSONRPCVersion,
		"method":  "event/" + event,
		"params":  payload,
	})
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeTransportMarshal, "failed to marshal event payload")
	}
	return t.writeLine(data)
}

func (t *StdioTransport) send(ctx context.Context, resp *JSONRPCResponse) {
	data, err := SerializeResponse(resp)
	if err != nil {
		t.logger.ErrorContext(ctx, "Failed to marshal response",
			slog.Any("response_id", resp.ID),
			slog.String("error", err.Error()),
		)
		marshalErr := errors.Wrap(err, errors.ErrCodeTransportMarshal, "Failed to serialize response")
		if data, err = SerializeResponse(ToJSONRPCResponse(resp.ID, marshalErr)); err != nil {
			return
		}
	}

	if err := t.writeLine(data); err != nil {
		t.logger.ErrorContext(ctx, "Failed to write response", slog.String("error", err.Error()))
	}
}

func (t *StdioTransport) writeLine(data []byte) error {
	t.outMu.Lock()
	defer t.outMu.Unlock()

	if _, err := t.out.Write(append(data, '\n')); err != nil {
		return err
	}
	return nil
}
