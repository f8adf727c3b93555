package client

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/raphaelgruber/onyx-admin/internal/metrics"
)

// slowRequestThreshold is the duration above which requests are logged at WARN level.
const slowRequestThreshold = 2 * time.Second

// RequestIDHeader carries a per-request id the backend echoes into its logs.
const RequestIDHeader = "X-Request-ID"

// loggingTransport logs every request with timing and records it in metrics.
type loggingTransport struct {
	next    http.RoundTripper
	logger  *slog.Logger
	metrics *metrics.Collector
}

func newLoggingTransport(next http.RoundTripper, logger *slog.Logger, m *metrics.Collector) *loggingTransport {
	return &loggingTransport{next: next, logger: logger, metrics: m}
}

// RoundTrip implements http.RoundTripper.
func (t *loggingTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if req.Header.Get(RequestIDHeader) == "" {
		// RoundTrippers must not modify the caller's request.
		req = req.Clone(req.Context())
		req.Header.Set(RequestIDHeader, uuid.NewString())
	}

	start := time.Now()
	resp, err := t.next.RoundTrip(req)
	duration := time.Since(start)

	attrs := []any{
		"method", req.Method,
		"path", req.URL.Path,
		"request_id", req.Header.Get(RequestIDHeader),
		"duration_ms", duration.Milliseconds(),
	}

	failed := err != nil || resp.StatusCode >= 400
	t.metrics.RecordTiming(metrics.HTTPOp(req.Method), duration, failed)

	switch {
	case err != nil:
		attrs = append(attrs, "error", err.Error())
		t.logger.Error("request failed", attrs...)
	case resp.StatusCode >= 500:
		attrs = append(attrs, "status", resp.StatusCode)
		t.logger.Error("server error", attrs...)
	case resp.StatusCode >= 400:
		attrs = append(attrs, "status", resp.StatusCode)
		t.logger.Warn("request rejected", attrs...)
	case duration > slowRequestThreshold:
		attrs = append(attrs, "status", resp.StatusCode)
		t.logger.Warn("slow request", attrs...)
	default:
		attrs = append(attrs, "status", resp.StatusCode)
		t.logger.Debug("request completed", attrs...)
	}

	return resp, err
}
