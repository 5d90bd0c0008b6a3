package errors

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"
)

func TestNew(t *testing.T) {
	tests := []struct {
		name    string
		code    ErrorCode
		message string
	}{
		{
			name:    "creates error with code and message",
			code:    ErrCodeEntityNotFound,
			message: "node not found",
		},
		{
			name:    "creates validation error",
			code:    ErrCodeValidationRequired,
			message: "id is required",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := New(tt.code, tt.message)

			if err.Code != tt.code {
				t.Errorf("expected code %s, got %s", tt.code, err.Code)
			}
			if err.Message != tt.message {
				t.Errorf("expected message %s, got %s", tt.message, err.Message)
			}
			if err.Internal != nil {
				t.Error("expected Internal to be nil")
			}
			if err.Error() != tt.message {
				t.Errorf("Error() should return message")
			}
		})
	}
}

func TestWrap(t *testing.T) {
	originalErr := errors.New("dial tcp: connection refused")

	t.Run("wraps standard error", func(t *testing.T) {
		err := Wrap(originalErr, ErrCodeUpstreamUnavailable, "remote service unreachable")
		if err.Internal != originalErr {
			t.Error("expected internal error to be preserved")
		}
		if !errors.Is(err, originalErr) {
			t.Error("expected errors.Is to see through the wrap")
		}
	})

	t.Run("nil error returns nil", func(t *testing.T) {
		if Wrap(nil, ErrCodeInternal, "unused") != nil {
			t.Error("expected nil")
		}
		if Wrapf(nil, ErrCodeInternal, "unused %d", 1) != nil {
			t.Error("expected nil")
		}
	})
}

func TestIsAndGetCode_ThroughFmtWrap(t *testing.T) {
	appErr := New(ErrCodeUpstreamStatus, "unexpected status 500")
	wrapped := fmt.Errorf("fetch detail: %w", appErr)

	if !Is(wrapped, ErrCodeUpstreamStatus) {
		t.Error("expected Is to find the code through fmt.Errorf wrapping")
	}
	if !IsAny(wrapped, ErrCodeUpstreamDecode, ErrCodeUpstreamStatus) {
		t.Error("expected IsAny to match")
	}
	if GetCode(wrapped) != ErrCodeUpstreamStatus {
		t.Errorf("expected %s, got %s", ErrCodeUpstreamStatus, GetCode(wrapped))
	}
	if GetCode(errors.New("plain")) != ErrCodeInternal {
		t.Error("plain errors should report as internal")
	}
	if GetCode(nil) != "" {
		t.Error("nil error should have empty code")
	}
}

func TestGetMessageAndInternal(t *testing.T) {
	inner := errors.New("secret detail")
	err := Wrap(inner, ErrCodeInternal, "safe message")

	if GetMessage(err) != "safe message" {
		t.Errorf("unexpected message %q", GetMessage(err))
	}
	if GetMessage(inner) != "An internal error occurred" {
		t.Errorf("plain errors must not leak their text, got %q", GetMessage(inner))
	}
	if GetInternal(err) != inner {
		t.Error("expected internal error")
	}
	if GetInternal(New(ErrCodeInternal, "x")) == nil {
		t.Error("AppError without internal should return itself")
	}
}

func TestFromContext(t *testing.T) {
	if FromContext(nil) != nil {
		t.Error("nil should map to nil")
	}
	if got := FromContext(context.Canceled); got == nil || got.Code != ErrCodeContextCanceled {
		t.Errorf("expected canceled code, got %v", got)
	}
	wrapped := fmt.Errorf("get: %w", context.DeadlineExceeded)
	if got := FromContext(wrapped); got == nil || got.Code != ErrCodeContextTimeout {
		t.Errorf("expected timeout code, got %v", got)
	}
	if FromContext(errors.New("other")) != nil {
		t.Error("non-context errors should map to nil")
	}
}

func TestFromUpstreamStatus(t *testing.T) {
	tests := []struct {
		status int
		want   ErrorCode
	}{
		{http.StatusNotFound, ErrCodeEntityNotFound},
		{http.StatusTooManyRequests, ErrCodeUpstreamUnavailable},
		{http.StatusBadGateway, ErrCodeUpstreamUnavailable},
		{http.StatusServiceUnavailable, ErrCodeUpstreamUnavailable},
		{http.StatusGatewayTimeout, ErrCodeUpstreamUnavailable},
		{http.StatusInternalServerError, ErrCodeUpstreamStatus},
		{http.StatusBadRequest, ErrCodeUpstreamStatus},
		{http.StatusMovedPermanently, ErrCodeUpstreamStatus},
	}

	for _, tt := range tests {
		t.Run(http.StatusText(tt.status), func(t *testing.T) {
			err := FromUpstreamStatus("detail", "https://pokeapi.test/pokemon/x", tt.status)
			if err.Code != tt.want {
				t.Errorf("expected %s, got %s", tt.want, err.Code)
			}
			details, ok := err.Details.(map[string]interface{})
			if !ok || details["status"] != tt.status {
				t.Errorf("expected status %d in details, got %v", tt.status, err.Details)
			}
		})
	}
}

func TestIsUpstream(t *testing.T) {
	if !IsUpstream(fmt.Errorf("load: %w", New(ErrCodeUpstreamDecode, "bad json"))) {
		t.Error("decode failures come from upstream")
	}
	if IsUpstream(NotFound("node 42")) {
		t.Error("not found is not an upstream failure")
	}
	if IsUpstream(nil) {
		t.Error("nil is not an upstream failure")
	}
}

func TestLogger_LogError(t *testing.T) {
	logger := NewLoggerWithSlog(nil)
	ctx := context.Background()

	if logger.LogError(ctx, nil, "noop") != nil {
		t.Error("nil in, nil out")
	}

	appErr := New(ErrCodeUpstreamDecode, "malformed payload")
	if got := logger.LogError(ctx, appErr, "fetchDetail"); got != appErr {
		t.Error("AppErrors should be returned unchanged")
	}

	got := logger.LogError(ctx, errors.New("raw"), "fetchDetail")
	if GetCode(got) != ErrCodeInternal {
		t.Errorf("raw errors should be wrapped as internal, got %s", GetCode(got))
	}

	if GetCode(logger.LogPanic(ctx, "kaboom", "select")) != ErrCodePanic {
		t.Error("expected panic code")
	}
}
