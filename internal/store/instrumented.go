package store

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/heysubinoy/pyazkv/pkg/kv"
)

// Metrics holds timing statistics for store operations.
// Uses atomic operations for thread-safe updates without locks.
type Metrics struct {
	SaveCount   atomic.Uint64
	GetCount    atomic.Uint64
	DeleteCount atomic.Uint64
	ErrorCount  atomic.Uint64

	// Cumulative latencies in nanoseconds
	SaveLatencyNs   atomic.Uint64
	GetLatencyNs    atomic.Uint64
	DeleteLatencyNs atomic.Uint64
}

// InstrumentedStore wraps any kv.Store implementation with timing metrics.
// Counters are kept both as atomics (for the JSON snapshot) and as
// Prometheus collectors.
type InstrumentedStore struct {
	store   kv.Store
	metrics *Metrics

	ops     *prometheus.CounterVec
	latency *prometheus.HistogramVec
}

// Compile-time check to ensure InstrumentedStore implements kv.Store.
var (
	_ kv.Store = (*InstrumentedStore)(nil)
	_ kv.Taker = (*InstrumentedStore)(nil)
)

// NewInstrumentedStore wraps a store with instrumentation and registers its
// collectors on reg. A nil reg skips Prometheus registration.
func NewInstrumentedStore(store kv.Store, reg prometheus.Registerer) (*InstrumentedStore, error) {
	s := &InstrumentedStore{
		store:   store,
		metrics: &Metrics{},
		ops: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "pyazkv",
			Subsystem: "store",
			Name:      "operations_total",
			Help:      "Store operations by kind and outcome.",
		}, []string{"op", "outcome"}),
		latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "pyazkv",
			Subsystem: "store",
			Name:      "operation_duration_seconds",
			Help:      "Store operation latency.",
			Buckets:   prometheus.ExponentialBuckets(0.0001, 4, 8),
		}, []string{"op"}),
	}

	if reg != nil {
		for _, c := range []prometheus.Collector{s.ops, s.latency} {
			if err := reg.Register(c); err != nil {
				return nil, err
			}
		}
	}
	return s, nil
}

// Unwrap returns the decorated store.
func (s *InstrumentedStore) Unwrap() kv.Store {
	return s.store
}

// Save delegates to the wrapped store and records timing.
func (s *InstrumentedStore) Save(ctx context.Context, key, value string) error {
	start := time.Now()
	err := s.store.Save(ctx, key, value)
	elapsed := time.Since(start)

	s.metrics.SaveCount.Add(1)
	s.metrics.SaveLatencyNs.Add(uint64(elapsed.Nanoseconds()))
	s.observe("save", elapsed, err)

	return err
}

// Get delegates to the wrapped store and records timing.
func (s *InstrumentedStore) Get(ctx context.Context, key string) (string, error) {
	start := time.Now()
	value, err := s.store.Get(ctx, key)
	elapsed := time.Since(start)

	s.metrics.GetCount.Add(1)
	s.metrics.GetLatencyNs.Add(uint64(elapsed.Nanoseconds()))
	s.observe("get", elapsed, err)

	return value, err
}

// Delete delegates to the wrapped store and records timing.
func (s *InstrumentedStore) Delete(ctx context.Context, key string) error {
	start := time.Now()
	err := s.store.Delete(ctx, key)
	elapsed := time.Since(start)

	s.metrics.DeleteCount.Add(1)
	s.metrics.DeleteLatencyNs.Add(uint64(elapsed.Nanoseconds()))
	s.observe("delete", elapsed, err)

	return err
}

// Take delegates to the wrapped store's Take, or to Get followed by Delete
// when the wrapped store has no atomic variant. Counted as a delete.
func (s *InstrumentedStore) Take(ctx context.Context, key string) (string, error) {
	start := time.Now()
	var (
		value string
		err   error
	)
	if t, ok := s.store.(kv.Taker); ok {
		value, err = t.Take(ctx, key)
	} else {
		value, err = s.store.Get(ctx, key)
		if err == nil {
			err = s.store.Delete(ctx, key)
		}
	}
	elapsed := time.Since(start)

	s.metrics.DeleteCount.Add(1)
	s.metrics.DeleteLatencyNs.Add(uint64(elapsed.Nanoseconds()))
	s.observe("delete", elapsed, err)

	return value, err
}

func (s *InstrumentedStore) observe(op string, elapsed time.Duration, err error) {
	outcome := kv.Classify(err).String()
	if err == nil {
		outcome = "ok"
	} else if !kv.IsNotFound(err) {
		s.metrics.ErrorCount.Add(1)
	}
	s.ops.WithLabelValues(op, outcome).Inc()
	s.latency.WithLabelValues(op).Observe(elapsed.Seconds())
}

// GetMetrics returns a snapshot of current metrics.
func (s *InstrumentedStore) GetMetrics() MetricsSnapshot {
	saveCount := s.metrics.SaveCount.Load()
	getCount := s.metrics.GetCount.Load()
	deleteCount := s.metrics.DeleteCount.Load()

	return MetricsSnapshot{
		SaveCount:        saveCount,
		GetCount:         getCount,
		DeleteCount:      deleteCount,
		ErrorCount:       s.metrics.ErrorCount.Load(),
		SaveAvgLatency:   avgLatency(s.metrics.SaveLatencyNs.Load(), saveCount),
		GetAvgLatency:    avgLatency(s.metrics.GetLatencyNs.Load(), getCount),
		DeleteAvgLatency: avgLatency(s.metrics.DeleteLatencyNs.Load(), deleteCount),
	}
}

// ResetMetrics clears the snapshot counters. Prometheus counters are
// monotonic and are left alone.
func (s *InstrumentedStore) ResetMetrics() {
	s.metrics.SaveCount.Store(0)
	s.metrics.GetCount.Store(0)
	s.metrics.DeleteCount.Store(0)
	s.metrics.ErrorCount.Store(0)
	s.metrics.SaveLatencyNs.Store(0)
	s.metrics.GetLatencyNs.Store(0)
	s.metrics.DeleteLatencyNs.Store(0)
}

func avgLatency(totalNs, count uint64) time.Duration {
	if count == 0 {
		return 0
	}
	return time.Duration(totalNs / count)
}

// MetricsSnapshot is a point-in-time view of metrics.
type MetricsSnapshot struct {
	SaveCount        uint64
	GetCount         uint64
	DeleteCount      uint64
	ErrorCount       uint64
	SaveAvgLatency   time.Duration
	GetAvgLatency    time.Duration
	DeleteAvgLatency time.Duration
}
