package mutation_test

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/raphaelgruber/onyx-admin/internal/client"
	"github.com/raphaelgruber/onyx-admin/internal/mutation"
	"github.com/raphaelgruber/onyx-admin/internal/popup"
)

type reply struct {
	status int
	body   string
}

// backend is a fake REST backend. Routes are "METHOD path"; every request
// and every invalidation is appended to one event log so tests can check
// ordering.
type backend struct {
	t      *testing.T
	srv    *httptest.Server
	mu     sync.Mutex
	routes map[string]reply
	funcs  map[string]http.HandlerFunc
	events []string
	bodies map[string][]map[string]any
}

func newBackend(t *testing.T) *backend {
	t.Helper()
	b := &backend{
		t:      t,
		routes: make(map[string]reply),
		funcs:  make(map[string]http.HandlerFunc),
		bodies: make(map[string][]map[string]any),
	}
	b.srv = httptest.NewServer(http.HandlerFunc(b.serve))
	t.Cleanup(b.srv.Close)
	return b
}

func (b *backend) on(route string, status int, body string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.routes[route] = reply{status: status, body: body}
}

func (b *backend) handle(route string, fn http.HandlerFunc) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.funcs[route] = fn
}

func (b *backend) serve(w http.ResponseWriter, r *http.Request) {
	route := r.Method + " " + r.URL.RequestURI()
	raw, _ := io.ReadAll(r.Body)

	b.mu.Lock()
	b.events = append(b.events, route)
	if len(raw) > 0 {
		var m map[string]any
		if json.Unmarshal(raw, &m) == nil {
			b.bodies[route] = append(b.bodies[route], m)
		}
	}
	fn, hasFn := b.funcs[route]
	rep, hasRep := b.routes[route]
	b.mu.Unlock()

	switch {
	case hasFn:
		fn(w, r)
	case hasRep:
		w.WriteHeader(rep.status)
		_, _ = io.WriteString(w, rep.body)
	default:
		w.WriteHeader(http.StatusNotFound)
		_, _ = io.WriteString(w, `{"detail":"no route `+route+`"}`)
	}
}

func (b *backend) Invalidate(keys ...string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, k := range keys {
		b.events = append(b.events, "invalidate "+k)
	}
}

func (b *backend) log() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]string(nil), b.events...)
}

func (b *backend) count(route string) int {
	n := 0
	for _, e := range b.log() {
		if e == route {
			n++
		}
	}
	return n
}

func (b *backend) invalidations() []string {
	var out []string
	for _, e := range b.log() {
		if k, ok := strings.CutPrefix(e, "invalidate "); ok {
			out = append(out, k)
		}
	}
	return out
}

func (b *backend) lastBody(route string) map[string]any {
	b.mu.Lock()
	defer b.mu.Unlock()
	bodies := b.bodies[route]
	if len(bodies) == 0 {
		return nil
	}
	return bodies[len(bodies)-1]
}

func (b *backend) client() *client.Client {
	return client.New(b.srv.URL)
}

func (b *backend) dispatcher() *mutation.Dispatcher {
	return mutation.NewDispatcher(b.client(), b)
}

// recorder collects popups reported by a flow.
type recorder struct {
	mu    sync.Mutex
	specs []*popup.Spec
}

func (r *recorder) set(s *popup.Spec) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.specs = append(r.specs, s)
}

func (r *recorder) last() *popup.Spec {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.specs) == 0 {
		return nil
	}
	return r.specs[len(r.specs)-1]
}

func indexOf(events []string, want string) int {
	for i, e := range events {
		if e == want {
			return i
		}
	}
	return -1
}

func strPtr(s string) *string { return &s }
