package errors

import "net/http"

// FromUpstreamStatus classifies a non-2xx response from the remote service.
// label names the endpoint for logs and metrics, url is the requested URL.
func FromUpstreamStatus(label, url string, status int) *AppError {
	details := map[string]interface{}{"url": url, "status": status}

	switch status {
	case http.StatusNotFound:
		return Newf(ErrCodeEntityNotFound, "upstream %s resource not found", label).WithDetails(details)
	case http.StatusTooManyRequests,
		http.StatusBadGateway,
		http.StatusServiceUnavailable,
		http.StatusGatewayTimeout:
		return Newf(ErrCodeUpstreamUnavailable, "upstream %s temporarily unavailable (%d)", label, status).WithDetails(details)
	default:
		return Newf(ErrCodeUpstreamStatus, "upstream %s returned %d", label, status).WithDetails(details)
	}
}

// IsUpstream reports whether err came from talking to the remote service
func IsUpstream(err error) bool {
	return IsAny(err, ErrCodeUpstreamUnavailable, ErrCodeUpstreamStatus, ErrCodeUpstreamDecode)
}
