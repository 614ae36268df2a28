package store

import (
	"context"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/heysubinoy/pyazkv/internal/store/storetest"
	"github.com/heysubinoy/pyazkv/pkg/kv"
)

func TestInstrumentedStore_Contract(t *testing.T) {
	s, err := NewInstrumentedStore(NewMemStore(), nil)
	require.NoError(t, err)
	storetest.Run(t, s)
}

func TestInstrumentedStore_Counts(t *testing.T) {
	reg := prometheus.NewRegistry()
	s, err := NewInstrumentedStore(NewMemStore(), reg)
	require.NoError(t, err)
	ctx := context.Background()

	require.NoError(t, s.Save(ctx, "a", "1"))
	require.NoError(t, s.Save(ctx, "b", "2"))
	_, err = s.Get(ctx, "a")
	require.NoError(t, err)
	_, err = s.Get(ctx, "missing")
	require.ErrorIs(t, err, kv.ErrNotFound)
	_, err = s.Take(ctx, "b")
	require.NoError(t, err)

	snap := s.GetMetrics()
	assert.Equal(t, uint64(2), snap.SaveCount)
	assert.Equal(t, uint64(2), snap.GetCount)
	assert.Equal(t, uint64(1), snap.DeleteCount)
	assert.Equal(t, uint64(0), snap.ErrorCount, "not found is not a backend error")

	assert.Equal(t, 2.0, testutil.ToFloat64(s.ops.WithLabelValues("save", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(s.ops.WithLabelValues("get", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(s.ops.WithLabelValues("get", "not_found")))
	assert.Equal(t, 1.0, testutil.ToFloat64(s.ops.WithLabelValues("delete", "ok")))

	s.ResetMetrics()
	assert.Equal(t, MetricsSnapshot{}, s.GetMetrics())
}

func TestInstrumentedStore_DoubleRegister(t *testing.T) {
	reg := prometheus.NewRegistry()
	_, err := NewInstrumentedStore(NewMemStore(), reg)
	require.NoError(t, err)
	_, err = NewInstrumentedStore(NewMemStore(), reg)
	assert.Error(t, err)
}

// plainStore hides MemStore's Take so the Get+Delete path is used.
type plainStore struct{ kv.Store }

func TestInstrumentedStore_TakeWithoutTaker(t *testing.T) {
	s, err := NewInstrumentedStore(plainStore{NewMemStore()}, nil)
	require.NoError(t, err)
	ctx := context.Background()

	require.NoError(t, s.Save(ctx, "a", "1"))
	got, err := s.Take(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, "1", got)

	_, err = s.Take(ctx, "a")
	assert.ErrorIs(t, err, kv.ErrNotFound)
}
