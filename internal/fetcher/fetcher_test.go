package fetcher

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/raphaelgruber/onyx-admin/internal/client"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeLoader serves scripted bodies per key and tracks concurrency.
type fakeLoader struct {
	mu       sync.Mutex
	bodies   map[string]string
	errs     map[string]error
	calls    map[string]int
	delay    time.Duration
	gate     chan struct{}
	inflight atomic.Int32
	maxSeen  atomic.Int32
}

func newFakeLoader() *fakeLoader {
	return &fakeLoader{
		bodies: make(map[string]string),
		errs:   make(map[string]error),
		calls:  make(map[string]int),
	}
}

func (f *fakeLoader) set(key, body string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.bodies[key] = body
	delete(f.errs, key)
}

func (f *fakeLoader) fail(key string, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.errs[key] = err
}

func (f *fakeLoader) count(key string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[key]
}

func (f *fakeLoader) Do(ctx context.Context, method, path string, body any) ([]byte, error) {
	n := f.inflight.Add(1)
	defer f.inflight.Add(-1)
	for {
		seen := f.maxSeen.Load()
		if n <= seen || f.maxSeen.CompareAndSwap(seen, n) {
			break
		}
	}

	// The response reflects the backend state when the request arrives.
	f.mu.Lock()
	f.calls[path]++
	data, ok := f.bodies[path]
	err := f.errs[path]
	f.mu.Unlock()

	if f.gate != nil {
		select {
		case <-f.gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if f.delay > 0 {
		time.Sleep(f.delay)
	}

	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("no body for %s", path)
	}
	return []byte(data), nil
}

func TestGetCachesValue(t *testing.T) {
	loader := newFakeLoader()
	loader.set("/a", `[1,2]`)
	c := New(loader, 0)
	ctx := context.Background()

	first := c.Get(ctx, "/a")
	second := c.Get(ctx, "/a")

	require.NoError(t, first.Err)
	assert.Equal(t, `[1,2]`, string(second.Data))
	assert.Equal(t, 1, loader.count("/a"), "second consumer reuses the cached value")
}

func TestConcurrentGetsShareOneRequest(t *testing.T) {
	loader := newFakeLoader()
	loader.set("/status", `"ok"`)
	loader.gate = make(chan struct{})
	c := New(loader, 0)

	var wg sync.WaitGroup
	results := make([]State, 5)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i] = c.Get(context.Background(), "/status")
		}(i)
	}

	time.Sleep(50 * time.Millisecond)
	close(loader.gate)
	wg.Wait()

	assert.Equal(t, 1, loader.count("/status"))
	for _, r := range results {
		assert.Equal(t, `"ok"`, string(r.Data))
	}
}

func TestErrorKeepsPreviousData(t *testing.T) {
	loader := newFakeLoader()
	loader.set("/p", `{"v":1}`)
	c := New(loader, 0)
	ctx := context.Background()

	require.NoError(t, c.Get(ctx, "/p").Err)

	apiErr := &client.APIError{StatusCode: 500, Detail: "database unavailable"}
	loader.fail("/p", apiErr)
	s := c.Revalidate(ctx, "/p")

	require.Error(t, s.Err)
	var got *client.APIError
	require.True(t, errors.As(s.Err, &got))
	assert.Equal(t, "database unavailable", got.Detail)
	assert.Equal(t, `{"v":1}`, string(s.Data), "stale data is kept alongside the error")

	_, err := Decode[map[string]int](s)
	assert.ErrorIs(t, err, apiErr, "decode refuses errored state")
}

func TestErroredEntryReloadsOnGet(t *testing.T) {
	loader := newFakeLoader()
	loader.fail("/x", errors.New("boom"))
	c := New(loader, 0)
	ctx := context.Background()

	require.Error(t, c.Get(ctx, "/x").Err)
	loader.set("/x", `1`)
	s := c.Get(ctx, "/x")
	require.NoError(t, s.Err)
	assert.Equal(t, 2, loader.count("/x"))
}

func TestInvalidateForcesReload(t *testing.T) {
	loader := newFakeLoader()
	loader.set("/llm", `[]`)
	c := New(loader, 0)
	ctx := context.Background()

	c.Get(ctx, "/llm")
	loader.set("/llm", `[{"id":1}]`)
	assert.Equal(t, `[]`, string(c.Get(ctx, "/llm").Data), "cached until invalidated")

	c.Invalidate("/llm")
	assert.Equal(t, `[{"id":1}]`, string(c.Get(ctx, "/llm").Data))
	assert.Equal(t, 2, loader.count("/llm"))
}

func TestInvalidateDuringLoadIsNotLost(t *testing.T) {
	loader := newFakeLoader()
	loader.set("/k", `"old"`)
	loader.gate = make(chan struct{})
	c := New(loader, 0)
	ctx := context.Background()

	first := make(chan State, 1)
	go func() { first <- c.Get(ctx, "/k") }()
	require.Eventually(t, func() bool { return loader.count("/k") == 1 }, time.Second, 5*time.Millisecond)

	// A mutation commits while the read is in flight.
	loader.set("/k", `"new"`)
	c.Invalidate("/k")
	close(loader.gate)

	assert.Equal(t, `"old"`, string((<-first).Data))
	s := c.Get(ctx, "/k")
	require.NoError(t, s.Err)
	assert.Equal(t, `"new"`, string(s.Data), "the load that raced the invalidation is not fresh")
	assert.Equal(t, 2, loader.count("/k"))
}

func TestInvalidateStartsNewRequest(t *testing.T) {
	loader := newFakeLoader()
	loader.set("/k", `"old"`)
	loader.gate = make(chan struct{})
	c := New(loader, 0)
	ctx := context.Background()

	first := make(chan State, 1)
	go func() { first <- c.Get(ctx, "/k") }()
	require.Eventually(t, func() bool { return loader.count("/k") == 1 }, time.Second, 5*time.Millisecond)

	loader.set("/k", `"new"`)
	c.Invalidate("/k")

	second := make(chan State, 1)
	go func() { second <- c.Revalidate(ctx, "/k") }()
	require.Eventually(t, func() bool { return loader.count("/k") == 2 }, time.Second, 5*time.Millisecond,
		"a read after the invalidation does not join the earlier request")
	close(loader.gate)

	assert.Equal(t, `"new"`, string((<-second).Data))
	<-first
	peeked, _ := c.Peek("/k")
	assert.Equal(t, `"new"`, string(peeked.Data), "the earlier response never overwrites newer data")
}

func TestCanceledWaiterDoesNotFailSharedLoad(t *testing.T) {
	loader := newFakeLoader()
	loader.set("/k", `1`)
	loader.gate = make(chan struct{})
	c := New(loader, 0)

	ctx, cancel := context.WithCancel(context.Background())
	first := make(chan State, 1)
	go func() { first <- c.Get(ctx, "/k") }()
	require.Eventually(t, func() bool { return loader.count("/k") == 1 }, time.Second, 5*time.Millisecond)

	second := make(chan State, 1)
	go func() { second <- c.Get(context.Background(), "/k") }()
	cancel()
	assert.ErrorIs(t, (<-first).Err, context.Canceled)

	close(loader.gate)
	s := <-second
	require.NoError(t, s.Err)
	assert.Equal(t, `1`, string(s.Data))
	assert.Equal(t, 1, loader.count("/k"))

	peeked, _ := c.Peek("/k")
	assert.NoError(t, peeked.Err)
}

func TestPollDeliversTransitions(t *testing.T) {
	loader := newFakeLoader()
	loader.set("/idx", `[{"status":"in_progress"}]`)
	c := New(loader, 0)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sub := c.Poll(ctx, "/idx", 20*time.Millisecond)
	first := <-sub.Updates()
	assert.Contains(t, string(first.Data), "in_progress")

	loader.set("/idx", `[{"status":"success"}]`)
	deadline := time.After(time.Second)
	for {
		select {
		case s := <-sub.Updates():
			if string(s.Data) == `[{"status":"success"}]` {
				return
			}
		case <-deadline:
			t.Fatal("transition not observed within polling window")
		}
	}
}

func TestOnePollerPerKeyWithoutOverlap(t *testing.T) {
	loader := newFakeLoader()
	loader.set("/k", `0`)
	loader.delay = 30 * time.Millisecond
	c := New(loader, 0)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	a := c.Poll(ctx, "/k", 5*time.Millisecond)
	b := c.Poll(ctx, "/k", 5*time.Millisecond)

	c.mu.Lock()
	assert.Len(t, c.pollers, 1)
	assert.Equal(t, 2, c.pollers["/k"].refs)
	c.mu.Unlock()

	time.Sleep(200 * time.Millisecond)
	assert.Equal(t, int32(1), loader.maxSeen.Load(), "requests for a key never overlap")

	a.Close()
	c.mu.Lock()
	assert.Len(t, c.pollers, 1, "poller survives while a subscriber remains")
	c.mu.Unlock()

	b.Close()
	c.mu.Lock()
	assert.Empty(t, c.pollers)
	c.mu.Unlock()

	_, open := <-b.Updates()
	for open {
		_, open = <-b.Updates()
	}
}

func TestInvalidateKicksPoller(t *testing.T) {
	loader := newFakeLoader()
	loader.set("/s", `1`)
	c := New(loader, 0)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sub := c.Poll(ctx, "/s", time.Hour)
	<-sub.Updates()

	loader.set("/s", `2`)
	c.Invalidate("/s")

	select {
	case s := <-sub.Updates():
		assert.Equal(t, `2`, string(s.Data))
	case <-time.After(time.Second):
		t.Fatal("invalidate did not trigger a revalidation")
	}
}

func TestContextEndsSubscription(t *testing.T) {
	loader := newFakeLoader()
	loader.set("/c", `1`)
	c := New(loader, 0)
	ctx, cancel := context.WithCancel(context.Background())

	sub := c.Poll(ctx, "/c", 10*time.Millisecond)
	cancel()

	require.Eventually(t, func() bool {
		c.mu.Lock()
		defer c.mu.Unlock()
		return len(c.pollers) == 0
	}, time.Second, 10*time.Millisecond)

	for range sub.Updates() {
	}
}

func TestCloseStopsEverything(t *testing.T) {
	loader := newFakeLoader()
	loader.set("/z", `1`)
	c := New(loader, 0)

	sub := c.Poll(context.Background(), "/z", 10*time.Millisecond)
	<-sub.Updates()
	c.Close()

	for range sub.Updates() {
	}
	assert.ErrorIs(t, c.Get(context.Background(), "/z").Err, ErrClosed)
	_, ok := c.Peek("/z")
	assert.False(t, ok)

	closedSub := c.Poll(context.Background(), "/z", time.Second)
	_, open := <-closedSub.Updates()
	assert.False(t, open)
}

func TestResourceDecode(t *testing.T) {
	loader := newFakeLoader()
	loader.set(client.LLMProvidersPath, `[{"id":4,"name":"main","provider":"openai","default_model_name":"gpt-4o"}]`)
	c := New(loader, 0)

	r := NewResource[[]client.FullLLMProvider](c, client.LLMProvidersPath)
	providers, err := r.Get(context.Background())
	require.NoError(t, err)
	require.Len(t, providers, 1)
	assert.Equal(t, 4, providers[0].ID)

	_, err = Decode[int](State{Key: "/nothing"})
	assert.ErrorIs(t, err, ErrNotLoaded)
}
