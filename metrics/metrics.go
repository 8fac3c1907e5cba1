// Copyright 2017 The OPA Authors.  All rights reserved.
// Use of this source code is governed by an Apache2
// license that can be found in the LICENSE file.

// Package metrics records how long the compiler stages take and how much work
// matches do.
package metrics

import (
	"encoding/json"
	"sync"
	"sync/atomic"
	"time"

	go_metrics "github.com/rcrowley/go-metrics"
)

// Names of the metrics recorded by the compiler. Stages are timers, the
// others are noted at their use.
const (
	CompileParse   = "compile_parse"
	CompileRewrite = "compile_rewrite"
	CompileInfer   = "compile_infer"
	BuildPlan      = "build_plan"
	BuildAssemble  = "build_assemble"
	MatchEval      = "match_eval"
	MatchRealize   = "match_realize"
	MatchOps       = "match_ops"         // counter
	MatchInput     = "match_input_bytes" // histogram
)

// Metrics is a collection of named timers, histograms and counters.
type Metrics interface {
	Timer(name string) Timer
	Histogram(name string) Histogram
	Counter(name string) Counter

	// All returns the current values keyed by kind and name, e.g.,
	// "timer_build_plan_ns" or "counter_match_ops".
	All() map[string]any
	json.Marshaler
}

// Timer accumulates the time spent between calls to Start and Stop.
type Timer interface {
	Value() any
	Start()
	// Stop adds the nanoseconds since the last Start and returns them.
	Stop() int64
}

// Histogram summarizes a distribution of values.
type Histogram interface {
	Value() any
	Update(int64)
}

// Counter is a monotonically increasing count.
type Counter interface {
	Value() any
	Add(n uint64)
}

type valuer interface {
	Value() any
}

type metrics struct {
	mtx sync.Mutex
	all map[string]valuer
}

// New returns an empty collection.
func New() Metrics {
	return &metrics{all: map[string]valuer{}}
}

// NoOp returns a collection that records nothing.
func NoOp() Metrics {
	return noOp{}
}

func (m *metrics) Timer(name string) Timer {
	return get(m, "timer_"+name+"_ns", func() Timer { return &timer{} })
}

func (m *metrics) Histogram(name string) Histogram {
	return get(m, "histogram_"+name, func() Histogram {
		return &histogram{go_metrics.NewHistogram(go_metrics.NewExpDecaySample(1028, 0.015))}
	})
}

func (m *metrics) Counter(name string) Counter {
	return get(m, "counter_"+name, func() Counter { return &counter{} })
}

// get returns the metric stored at key, creating it on first use. Keys carry
// the kind, so a name may be used for metrics of different kinds.
func get[T valuer](m *metrics, key string, create func() T) T {
	m.mtx.Lock()
	defer m.mtx.Unlock()
	if v, ok := m.all[key]; ok {
		return v.(T)
	}
	v := create()
	m.all[key] = v
	return v
}

func (m *metrics) All() map[string]any {
	m.mtx.Lock()
	defer m.mtx.Unlock()
	result := make(map[string]any, len(m.all))
	for key, v := range m.all {
		result[key] = v.Value()
	}
	return result
}

func (m *metrics) MarshalJSON() ([]byte, error) {
	return json.Marshal(m.All())
}

type timer struct {
	mtx   sync.Mutex
	start time.Time
	value int64
}

func (t *timer) Start() {
	t.mtx.Lock()
	defer t.mtx.Unlock()
	t.start = time.Now()
}

func (t *timer) Stop() int64 {
	t.mtx.Lock()
	defer t.mtx.Unlock()
	if t.start.IsZero() {
		return 0
	}
	delta := time.Since(t.start).Nanoseconds()
	t.value += delta
	t.start = time.Time{}
	return delta
}

func (t *timer) Value() any {
	t.mtx.Lock()
	defer t.mtx.Unlock()
	return t.value
}

// histogram is safe for concurrent use through the underlying sample.
type histogram struct {
	hist go_metrics.Histogram
}

func (h *histogram) Update(v int64) {
	h.hist.Update(v)
}

func (h *histogram) Value() any {
	snap := h.hist.Snapshot()
	p := snap.Percentiles([]float64{0.5, 0.9, 0.99})
	return map[string]any{
		"count":  snap.Count(),
		"min":    snap.Min(),
		"max":    snap.Max(),
		"mean":   snap.Mean(),
		"median": p[0],
		"90%":    p[1],
		"99%":    p[2],
	}
}

type counter struct {
	n atomic.Uint64
}

func (c *counter) Add(n uint64) {
	c.n.Add(n)
}

func (c *counter) Value() any {
	return c.n.Load()
}

type noOp struct{}

func (noOp) Timer(string) Timer           { return noOp{} }
func (noOp) Histogram(string) Histogram   { return noOp{} }
func (noOp) Counter(string) Counter       { return noOp{} }
func (noOp) All() map[string]any          { return nil }
func (noOp) MarshalJSON() ([]byte, error) { return []byte(`{}`), nil }
func (noOp) Start()                       {}
func (noOp) Stop() int64                  { return 0 }
func (noOp) Update(int64)                 {}
func (noOp) Add(uint64)                   {}
func (noOp) Value() any                   { return nil }
