// Package metrics provides in-memory request statistics for a console session.
package metrics

import (
	"math"
	"sort"
	"sync"
	"time"
)

// OperationMetrics holds aggregated metrics for a single operation.
type OperationMetrics struct {
	Count     int64
	Errors    int64
	TotalTime time.Duration
	MinTime   time.Duration
	MaxTime   time.Duration
}

// OperationSnapshot provides computed stats from raw metrics.
type OperationSnapshot struct {
	Name        string  `yaml:"name"`
	Count       int64   `yaml:"count"`
	Errors      int64   `yaml:"errors"`
	TotalTimeMs int64   `yaml:"total_time_ms"`
	AvgTimeMs   float64 `yaml:"avg_time_ms"`
	MinTimeMs   int64   `yaml:"min_time_ms"`
	MaxTimeMs   int64   `yaml:"max_time_ms"`
}

// Snapshot represents the collected statistics at a point in time.
// Operations are sorted by name.
type Snapshot struct {
	UptimeSeconds float64             `yaml:"uptime_seconds"`
	Operations    []OperationSnapshot `yaml:"operations"`
}

// Operation names recorded by the console.
const (
	OpFetch    = "fetch"
	OpMutation = "mutation"
	OpPoll     = "poll"
)

// HTTPOp returns the operation name used for raw HTTP timings of a method.
func HTTPOp(method string) string {
	return "http_" + method
}

// Collector aggregates in-memory statistics.
// All methods are thread-safe; a nil *Collector discards everything.
type Collector struct {
	mu        sync.RWMutex
	startTime time.Time
	ops       map[string]*OperationMetrics
}

// NewCollector creates a new metrics collector.
func NewCollector() *Collector {
	return &Collector{
		startTime: time.Now(),
		ops:       make(map[string]*OperationMetrics),
	}
}

// getOrCreate returns existing metrics or creates new ones for an operation.
// Caller must hold write lock.
func (c *Collector) getOrCreate(op string) *OperationMetrics {
	m, ok := c.ops[op]
	if !ok {
		m = &OperationMetrics{MinTime: time.Duration(math.MaxInt64)}
		c.ops[op] = m
	}
	return m
}

// RecordTiming records the outcome and duration of one operation.
func (c *Collector) RecordTiming(op string, duration time.Duration, failed bool) {
	if c == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	m := c.getOrCreate(op)
	m.Count++
	m.TotalTime += duration
	if failed {
		m.Errors++
	}

	if duration < m.MinTime {
		m.MinTime = duration
	}
	if duration > m.MaxTime {
		m.MaxTime = duration
	}
}

// Time starts a timer for op; call the returned func with the outcome.
//
//	done := collector.Time(metrics.OpMutation)
//	err := doIt()
//	done(err != nil)
func (c *Collector) Time(op string) func(failed bool) {
	start := time.Now()
	return func(failed bool) {
		c.RecordTiming(op, time.Since(start), failed)
	}
}

// snapshotOp creates a snapshot for an operation, returning nil if no data.
func snapshotOp(name string, m *OperationMetrics) *OperationSnapshot {
	if m == nil || m.Count == 0 {
		return nil
	}

	return &OperationSnapshot{
		Name:        name,
		Count:       m.Count,
		Errors:      m.Errors,
		TotalTimeMs: m.TotalTime.Milliseconds(),
		AvgTimeMs:   float64(m.TotalTime.Milliseconds()) / float64(m.Count),
		MinTimeMs:   m.MinTime.Milliseconds(),
		MaxTimeMs:   m.MaxTime.Milliseconds(),
	}
}

// Snapshot returns a point-in-time snapshot of all metrics.
func (c *Collector) Snapshot() Snapshot {
	if c == nil {
		return Snapshot{}
	}
	c.mu.RLock()
	defer c.mu.RUnlock()

	snap := Snapshot{UptimeSeconds: time.Since(c.startTime).Seconds()}
	for name, m := range c.ops {
		if s := snapshotOp(name, m); s != nil {
			snap.Operations = append(snap.Operations, *s)
		}
	}
	sort.Slice(snap.Operations, func(i, j int) bool {
		return snap.Operations[i].Name < snap.Operations[j].Name
	})
	return snap
}

// Get returns the snapshot for a single operation, or nil if it never ran.
func (c *Collector) Get(op string) *OperationSnapshot {
	if c == nil {
		return nil
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	return snapshotOp(op, c.ops[op])
}
