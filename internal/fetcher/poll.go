package fetcher

import (
	"context"
	"sync"
	"time"

	"github.com/raphaelgruber/onyx-admin/internal/metrics"
)

// DefaultInterval is the polling interval used when none is given.
const DefaultInterval = 5 * time.Second

// Subscription receives every state produced for one key.
// Only the latest state is buffered: a slow reader skips intermediate ones.
type Subscription struct {
	cache *Cache
	key   string
	ch    chan State
	done  chan struct{}

	mu     sync.Mutex
	closed bool
}

// Key returns the subscribed resource key.
func (s *Subscription) Key() string {
	return s.key
}

// Updates returns the channel of states. It is closed by Close, by the
// context passed to Poll ending, or by the cache closing.
func (s *Subscription) Updates() <-chan State {
	return s.ch
}

// Close unsubscribes. The key's poller stops when its last subscriber leaves.
func (s *Subscription) Close() {
	s.cache.unsubscribe(s)
	s.closeChannel()
}

func (s *Subscription) deliver(st State) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	// Drop the unread state in favour of the newer one.
	select {
	case <-s.ch:
	default:
	}
	s.ch <- st
}

func (s *Subscription) closeChannel() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.closed {
		s.closed = true
		close(s.ch)
		close(s.done)
	}
}

type poller struct {
	key      string
	interval time.Duration
	refs     int
	kickCh   chan struct{}
	cancel   context.CancelFunc
	done     chan struct{}
}

func (p *poller) kick() {
	select {
	case p.kickCh <- struct{}{}:
	default:
	}
}

func (p *poller) stop() {
	p.cancel()
	<-p.done
}

// Poll subscribes to key and makes sure a poller revalidates it every
// interval. There is one poller per key no matter how many subscribers it
// has; the first subscriber's interval wins. The poller loads synchronously,
// so its own requests never overlap, and it joins any load already in flight.
//
// The subscription ends when ctx is done or Close is called.
func (c *Cache) Poll(ctx context.Context, key string, interval time.Duration) *Subscription {
	if interval <= 0 {
		interval = DefaultInterval
	}
	sub := &Subscription{cache: c, key: key, ch: make(chan State, 1), done: make(chan struct{})}

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		sub.closeChannel()
		return sub
	}
	if c.subs[key] == nil {
		c.subs[key] = make(map[*Subscription]struct{})
	}
	c.subs[key][sub] = struct{}{}

	p, ok := c.pollers[key]
	if !ok {
		pctx, cancel := context.WithCancel(context.Background())
		p = &poller{
			key:      key,
			interval: interval,
			kickCh:   make(chan struct{}, 1),
			cancel:   cancel,
			done:     make(chan struct{}),
		}
		c.pollers[key] = p
		go c.runPoller(pctx, p)
	}
	p.refs++
	current, hasState := c.entries.Peek(key)
	c.mu.Unlock()

	if hasState && current.state.Loaded() {
		sub.deliver(current.state)
	}

	go func() {
		select {
		case <-ctx.Done():
			sub.Close()
		case <-sub.done:
		}
	}()

	return sub
}

func (c *Cache) unsubscribe(sub *Subscription) {
	c.mu.Lock()
	set, ok := c.subs[sub.key]
	if !ok {
		c.mu.Unlock()
		return
	}
	if _, ok := set[sub]; !ok {
		c.mu.Unlock()
		return
	}
	delete(set, sub)
	if len(set) == 0 {
		delete(c.subs, sub.key)
	}

	var stop *poller
	if p, ok := c.pollers[sub.key]; ok {
		p.refs--
		if p.refs <= 0 {
			delete(c.pollers, sub.key)
			stop = p
		}
	}
	c.mu.Unlock()

	if stop != nil {
		stop.stop()
		c.logger.Debug("poller stopped", "key", sub.key)
	}
}

func (c *Cache) runPoller(ctx context.Context, p *poller) {
	defer close(p.done)
	c.logger.Debug("poller started", "key", p.key, "interval", p.interval)

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	c.pollOnce(ctx, p.key)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		case <-p.kickCh:
		}
		c.pollOnce(ctx, p.key)
	}
}

func (c *Cache) pollOnce(ctx context.Context, key string) {
	done := c.metrics.Time(metrics.OpPoll)
	s := c.Revalidate(ctx, key)
	done(s.Err != nil && ctx.Err() == nil)
}
