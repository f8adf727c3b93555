// Package mutation performs user-triggered changes against the backend.
//
// Every flow follows the same order: validate locally, optionally test the
// configuration, persist, then invalidate the affected resource keys. Keys
// are only invalidated after the backend accepted the change. Nothing is
// retried; outcomes are reported through a popup.Setter, or as an alert when
// the caller has none.
package mutation

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/raphaelgruber/onyx-admin/internal/client"
	"github.com/raphaelgruber/onyx-admin/internal/metrics"
)

// Doer sends a request to the backend. *client.Client satisfies it.
type Doer interface {
	Do(ctx context.Context, method, path string, body any) ([]byte, error)
}

// Invalidator marks cached resource keys stale. *fetcher.Cache satisfies it.
type Invalidator interface {
	Invalidate(keys ...string)
}

// Step names one stage of a multi-step flow.
type Step string

const (
	StepValidate   Step = "validate"
	StepTest       Step = "test"
	StepPersist    Step = "persist"
	StepSetDefault Step = "set default"
	StepRefresh    Step = "refresh"
)

// StepError reports the stage at which a flow stopped. Stages before it
// have already taken effect on the backend.
type StepError struct {
	Step Step
	Err  error
}

func (e *StepError) Error() string {
	return fmt.Sprintf("%s: %v", e.Step, e.Err)
}

func (e *StepError) Unwrap() error {
	return e.Err
}

// FailedStep returns the stage that stopped a flow, or "" if err did not
// come from one.
func FailedStep(err error) Step {
	var se *StepError
	if errors.As(err, &se) {
		return se.Step
	}
	return ""
}

// Result is the outcome of one request.
type Result struct {
	OK bool
	// Detail is the backend's detail message verbatim, or
	// client.UnknownErrorMessage when there was none.
	Detail string
	// Text is the detail or, without one, the raw response text.
	Text string
	Body []byte
	Err  error
}

// Decode unmarshals the response body of a successful result.
func (r Result) Decode(out any) error {
	if !r.OK {
		return r.Err
	}
	if err := json.Unmarshal(r.Body, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// Dispatcher sends mutations and invalidates cache keys.
type Dispatcher struct {
	doer    Doer
	cache   Invalidator
	logger  *slog.Logger
	metrics *metrics.Collector
}

// Option configures a Dispatcher.
type Option func(*Dispatcher)

// WithLogger sets the logger (default slog.Default()).
func WithLogger(l *slog.Logger) Option {
	return func(d *Dispatcher) { d.logger = l }
}

// WithMetrics records mutation timings in the collector.
func WithMetrics(m *metrics.Collector) Option {
	return func(d *Dispatcher) { d.metrics = m }
}

// NewDispatcher creates a dispatcher. cache may be nil when nothing is cached.
func NewDispatcher(doer Doer, cache Invalidator, opts ...Option) *Dispatcher {
	d := &Dispatcher{doer: doer, cache: cache, logger: slog.Default()}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Perform sends one request and reports its outcome. It never retries.
func (d *Dispatcher) Perform(ctx context.Context, method, endpoint string, body any) Result {
	start := time.Now()
	data, err := d.doer.Do(ctx, method, endpoint, body)
	duration := time.Since(start)
	d.metrics.RecordTiming(metrics.OpMutation, duration, err != nil)

	if err != nil {
		d.logger.Warn("mutation failed",
			"method", method,
			"endpoint", endpoint,
			"duration_ms", duration.Milliseconds(),
			"error", err)
		return Result{
			Detail: client.DetailOf(err),
			Text:   client.TextOf(err),
			Err:    err,
		}
	}

	d.logger.Info("mutation applied",
		"method", method,
		"endpoint", endpoint,
		"duration_ms", duration.Milliseconds())
	return Result{OK: true, Body: data}
}

// Invalidate marks keys stale so their next read or poll reloads them.
// Callers invoke it only after a successful mutation.
func (d *Dispatcher) Invalidate(keys ...string) {
	if d.cache == nil || len(keys) == 0 {
		return
	}
	d.cache.Invalidate(keys...)
}

// Logger returns the dispatcher's logger.
func (d *Dispatcher) Logger() *slog.Logger {
	return d.logger
}
