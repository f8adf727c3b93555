// Package fetcher keeps a shared, keyed cache of backend resources.
//
// A resource key is the request path including its query string. Every
// consumer asking for the same key shares one cached value and at most one
// in-flight request. Pollers revalidate a key on an interval; mutations
// invalidate keys after they succeed.
package fetcher

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/raphaelgruber/onyx-admin/internal/metrics"
	"golang.org/x/sync/singleflight"
)

// Sentinel errors.
var (
	// ErrNotLoaded is returned when decoding a state that has no data yet.
	ErrNotLoaded = errors.New("resource not loaded")

	// ErrClosed is returned by a cache after Close.
	ErrClosed = errors.New("resource cache closed")
)

// DefaultSize is the number of keys kept when no size is configured.
const DefaultSize = 256

// Loader performs the HTTP GET behind a resource key.
// *client.Client satisfies it.
type Loader interface {
	Do(ctx context.Context, method, path string, body any) ([]byte, error)
}

// State is a snapshot of one cached resource.
// Data is kept across failed revalidations, so Data and Err may both be set.
type State struct {
	Key       string
	Data      []byte
	Err       error
	IsLoading bool
	UpdatedAt time.Time
}

// Loaded reports whether the resource has ever loaded successfully.
func (s State) Loaded() bool {
	return s.Data != nil
}

type entry struct {
	state State
	stale bool
	// gen counts invalidations. dataGen is the gen a load saw when it
	// started, for the load that last stored data.
	gen     uint64
	dataGen uint64
}

// Cache is the shared resource cache. The zero value is not usable; use New.
type Cache struct {
	loader  Loader
	logger  *slog.Logger
	metrics *metrics.Collector

	mu      sync.Mutex
	entries *lru.Cache[string, *entry]
	subs    map[string]map[*Subscription]struct{}
	pollers map[string]*poller
	closed  bool

	group singleflight.Group
}

// Option configures a Cache.
type Option func(*Cache)

// WithLogger sets the logger (default slog.Default()).
func WithLogger(l *slog.Logger) Option {
	return func(c *Cache) { c.logger = l }
}

// WithMetrics records load timings in the collector.
func WithMetrics(m *metrics.Collector) Option {
	return func(c *Cache) { c.metrics = m }
}

// New creates a cache holding at most size keys (DefaultSize if size <= 0).
func New(loader Loader, size int, opts ...Option) *Cache {
	if size <= 0 {
		size = DefaultSize
	}
	entries, err := lru.New[string, *entry](size)
	if err != nil {
		// Only returned for a non-positive size, excluded above.
		panic(err)
	}

	c := &Cache{
		loader:  loader,
		logger:  slog.Default(),
		entries: entries,
		subs:    make(map[string]map[*Subscription]struct{}),
		pollers: make(map[string]*poller),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Peek returns the cached state for key without loading.
func (c *Cache) Peek(key string) (State, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries.Peek(key)
	if !ok {
		return State{Key: key}, false
	}
	return e.state, true
}

// Get returns the cached state for key, loading it first when it is absent,
// stale, or only holds an error.
func (c *Cache) Get(ctx context.Context, key string) State {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return State{Key: key, Err: ErrClosed}
	}
	if e, ok := c.entries.Get(key); ok && !e.stale && e.state.Err == nil && e.state.Loaded() {
		s := e.state
		c.mu.Unlock()
		return s
	}
	c.mu.Unlock()

	return c.Revalidate(ctx, key)
}

// Revalidate loads key from the backend. Concurrent revalidations of the same
// key share a single request and all receive its result. The shared request
// is not cancelled with ctx; it is bounded by the loader's own timeout.
func (c *Cache) Revalidate(ctx context.Context, key string) State {
	loadCtx := context.WithoutCancel(ctx)
	ch := c.group.DoChan(key, func() (any, error) {
		return c.load(loadCtx, key), nil
	})

	select {
	case res := <-ch:
		return res.Val.(State)
	case <-ctx.Done():
		// The shared load keeps running for the other waiters.
		s, _ := c.Peek(key)
		s.Err = ctx.Err()
		return s
	}
}

func (c *Cache) load(ctx context.Context, key string) State {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return State{Key: key, Err: ErrClosed}
	}
	e := c.entryLocked(key)
	e.state.IsLoading = true
	gen := e.gen
	c.mu.Unlock()

	done := c.metrics.Time(metrics.OpFetch)
	data, err := c.loader.Do(ctx, http.MethodGet, key, nil)
	done(err != nil)

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return State{Key: key, Err: ErrClosed}
	}
	// The entry may have been evicted while loading.
	e = c.entryLocked(key)
	e.state.IsLoading = false
	if e.gen < gen {
		e.gen = gen
	}
	switch {
	case gen < e.dataGen:
		// Data from a request sent after a later invalidation is already stored.
		c.logger.Debug("discarding outdated load", "key", key)
	case err != nil:
		e.state.Err = err
		c.logger.Debug("resource load failed", "key", key, "error", err)
	default:
		e.state.Data = data
		e.state.Err = nil
		e.state.UpdatedAt = time.Now()
		e.dataGen = gen
		// An invalidation during the request leaves the entry stale.
		e.stale = gen != e.gen
	}
	s := e.state
	subs := c.subscribersLocked(key)
	c.mu.Unlock()

	for _, sub := range subs {
		sub.deliver(s)
	}
	return s
}

// entryLocked returns the entry for key, creating it. Caller holds c.mu.
func (c *Cache) entryLocked(key string) *entry {
	e, ok := c.entries.Get(key)
	if !ok {
		e = &entry{state: State{Key: key}}
		c.entries.Add(key, e)
	}
	return e
}

// Invalidate marks keys stale. Keys with an active poller are revalidated
// right away; the others reload on their next Get. A request already in
// flight for a key is not joined by later reads, and its result does not
// count as fresh.
func (c *Cache) Invalidate(keys ...string) {
	c.mu.Lock()
	var kicks []*poller
	for _, key := range keys {
		if e, ok := c.entries.Peek(key); ok {
			e.stale = true
			e.gen++
		}
		c.group.Forget(key)
		if p, ok := c.pollers[key]; ok {
			kicks = append(kicks, p)
		}
	}
	c.mu.Unlock()

	for _, p := range kicks {
		p.kick()
	}
	if len(keys) > 0 {
		c.logger.Debug("resources invalidated", "keys", keys)
	}
}

// Close stops every poller, closes every subscription and drops all entries.
// Later calls return ErrClosed states.
func (c *Cache) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	pollers := c.pollers
	c.pollers = make(map[string]*poller)
	var subs []*Subscription
	for _, set := range c.subs {
		for s := range set {
			subs = append(subs, s)
		}
	}
	c.subs = make(map[string]map[*Subscription]struct{})
	c.entries.Purge()
	c.mu.Unlock()

	for _, p := range pollers {
		p.stop()
	}
	for _, s := range subs {
		s.closeChannel()
	}
}

func (c *Cache) subscribersLocked(key string) []*Subscription {
	set := c.subs[key]
	out := make([]*Subscription, 0, len(set))
	for s := range set {
		out = append(out, s)
	}
	return out
}
