// Package session wires the console's shared objects together.
//
// A Session is created once when a command starts and passed explicitly to
// everything that needs the backend, the resource cache or the current user.
// Closing it is the sign-out: pollers stop, cached data is dropped and
// further use fails with ErrClosed.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/raphaelgruber/onyx-admin/internal/client"
	"github.com/raphaelgruber/onyx-admin/internal/config"
	"github.com/raphaelgruber/onyx-admin/internal/fetcher"
	"github.com/raphaelgruber/onyx-admin/internal/metrics"
	"github.com/raphaelgruber/onyx-admin/internal/mutation"
	"github.com/raphaelgruber/onyx-admin/internal/popup"
)

var (
	// ErrClosed is returned by a session after Close.
	ErrClosed = errors.New("session closed")

	// ErrNotAdmin is returned by RequireAdmin for non-admin users.
	ErrNotAdmin = errors.New("admin role required")
)

// ProviderStatus tells whether the assistant can answer at all.
type ProviderStatus struct {
	Configured bool                  `yaml:"configured"`
	Default    mutation.DefaultState `yaml:"default"`
	Count      int                   `yaml:"count"`
}

// Session holds the per-invocation state shared by all commands.
type Session struct {
	cfg        config.Config
	logger     *slog.Logger
	metrics    *metrics.Collector
	client     *client.Client
	cache      *fetcher.Cache
	dispatcher *mutation.Dispatcher
	popups     *popup.Factory

	mu     sync.Mutex
	closed bool
}

// Option configures a Session.
type Option func(*options)

type options struct {
	transport []client.Option
}

// WithClientOptions passes extra options to the REST client.
func WithClientOptions(opts ...client.Option) Option {
	return func(o *options) { o.transport = append(o.transport, opts...) }
}

// New builds a session from cfg.
func New(cfg config.Config, logger *slog.Logger, opts ...Option) *Session {
	var o options
	for _, opt := range opts {
		opt(&o)
	}
	if logger == nil {
		logger = slog.Default()
	}

	collector := metrics.NewCollector()
	clientOpts := append([]client.Option{
		client.WithAPIKey(cfg.APIKey),
		client.WithTimeout(cfg.ClientTimeout),
		client.WithLogger(logger),
		client.WithMetrics(collector),
	}, o.transport...)
	c := client.New(cfg.ServerURL, clientOpts...)

	cache := fetcher.New(c, cfg.CacheSize,
		fetcher.WithLogger(logger),
		fetcher.WithMetrics(collector))

	return &Session{
		cfg:     cfg,
		logger:  logger,
		metrics: collector,
		client:  c,
		cache:   cache,
		dispatcher: mutation.NewDispatcher(c, cache,
			mutation.WithLogger(logger),
			mutation.WithMetrics(collector)),
		popups: popup.NewFactory(),
	}
}

// Config returns the configuration the session was built from.
func (s *Session) Config() config.Config { return s.cfg }

// Logger returns the session logger.
func (s *Session) Logger() *slog.Logger { return s.logger }

// Metrics returns the request statistics of this session.
func (s *Session) Metrics() *metrics.Collector { return s.metrics }

// Client returns the REST client.
func (s *Session) Client() *client.Client { return s.client }

// Cache returns the shared resource cache.
func (s *Session) Cache() *fetcher.Cache { return s.cache }

// Dispatcher returns the mutation dispatcher.
func (s *Session) Dispatcher() *mutation.Dispatcher { return s.dispatcher }

// Popups returns the factory consumers build their surfaces from.
func (s *Session) Popups() *popup.Factory { return s.popups }

func (s *Session) check() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	return nil
}

// Settings returns the workspace settings.
func (s *Session) Settings(ctx context.Context) (client.Settings, error) {
	if err := s.check(); err != nil {
		return client.Settings{}, err
	}
	return fetcher.NewResource[client.Settings](s.cache, client.SettingsPath).Get(ctx)
}

// User returns the signed-in user.
func (s *Session) User(ctx context.Context) (client.User, error) {
	if err := s.check(); err != nil {
		return client.User{}, err
	}
	return fetcher.NewResource[client.User](s.cache, client.MePath).Get(ctx)
}

// RequireAdmin fails unless the signed-in user is an admin.
func (s *Session) RequireAdmin(ctx context.Context) error {
	u, err := s.User(ctx)
	if err != nil {
		return err
	}
	if !u.IsAdmin() {
		return fmt.Errorf("%w: signed in as %s (%s)", ErrNotAdmin, u.Email, u.Role)
	}
	return nil
}

// ProviderStatus reports whether any LLM provider is configured.
func (s *Session) ProviderStatus(ctx context.Context) (ProviderStatus, error) {
	if err := s.check(); err != nil {
		return ProviderStatus{}, err
	}
	list, err := fetcher.NewResource[[]client.FullLLMProvider](s.cache, client.LLMProvidersPath).Get(ctx)
	if err != nil {
		return ProviderStatus{}, err
	}
	return ProviderStatus{
		Configured: len(list) > 0,
		Default:    mutation.DefaultStateOf(list),
		Count:      len(list),
	}, nil
}

// Close signs out: every poller stops and cached data is dropped.
// Closing twice is a no-op.
func (s *Session) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	s.mu.Unlock()

	s.cache.Close()
	s.logger.Debug("session closed")
	return nil
}
