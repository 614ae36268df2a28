package pubsub

import (
	"context"
	"fmt"
	"testing"
	"time"

	natstest "github.com/nats-io/nats-server/v2/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/heysubinoy/pyazkv/internal/router"
	"github.com/heysubinoy/pyazkv/internal/store"
	"github.com/heysubinoy/pyazkv/pkg/kv"
)

func TestSubjectPrefix(t *testing.T) {
	assert.Equal(t, "pyazkv.repository", SubjectPrefix("pyazkv.repository.>"))
	assert.Equal(t, "a.b", SubjectPrefix("a.b.*.>"))
	assert.Equal(t, "a.b", SubjectPrefix("a.b"))
}

func TestSubscriber_EndToEnd(t *testing.T) {
	srv := natstest.RunRandClientPortServer()
	defer srv.Shutdown()

	conn, err := Connect(srv.ClientURL(), ConnectOptions{Name: "pyazkv-test"})
	require.NoError(t, err)
	defer conn.Close()

	d, mem, _ := newTestDispatcher(t)
	ctx := context.Background()

	sub := NewSubscriber(conn, "", d, nil)
	assert.Equal(t, DefaultSubject, sub.Subject())
	require.NoError(t, sub.Start(ctx))
	assert.Error(t, sub.Start(ctx), "second subscribe is rejected")

	pub := NewPublisher(conn, sub.Subject())
	require.NoError(t, pub.Save("a", "1"))

	require.Eventually(t, func() bool {
		v, err := mem.Get(ctx, "a")
		return err == nil && v == "1"
	}, 2*time.Second, 10*time.Millisecond)

	// Garbage on the same subject tree is dropped and does not stop delivery.
	require.NoError(t, conn.Publish("pyazkv.repository.SAVE", []byte("garbage")))
	require.NoError(t, conn.Publish("pyazkv.repository.NOPE", []byte(`{"key":"z"}`)))
	require.NoError(t, pub.Delete("a"))

	require.Eventually(t, func() bool {
		_, err := mem.Get(ctx, "a")
		return kv.IsNotFound(err)
	}, 2*time.Second, 10*time.Millisecond)
	assert.Equal(t, 0, mem.Len())

	require.NoError(t, sub.Stop())
	require.NoError(t, sub.Stop())
}

func TestSubscriber_NotConnected(t *testing.T) {
	d, _, _ := newTestDispatcher(t)
	sub := NewSubscriber(nil, "x.>", d, nil)
	assert.ErrorIs(t, sub.Start(context.Background()), ErrNotConnected)

	pub := NewPublisher(nil, "x.>")
	assert.ErrorIs(t, pub.Save("a", "1"), ErrNotConnected)
}

func TestConnect_Unreachable(t *testing.T) {
	_, err := Connect("nats://127.0.0.1:1", ConnectOptions{Timeout: 200 * time.Millisecond})
	assert.Error(t, err)
}

// ctxStore fails writes once the caller's context is done, like a network
// client would.
type ctxStore struct {
	*store.MemStore
}

func (s ctxStore) Save(ctx context.Context, key, value string) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("save %q: %v: %w", key, err, kv.ErrBackendUnavailable)
	}
	return s.MemStore.Save(ctx, key, value)
}

func TestSubscriber_DrainAfterCancelStillApplies(t *testing.T) {
	srv := natstest.RunRandClientPortServer()
	defer srv.Shutdown()

	conn, err := Connect(srv.ClientURL(), ConnectOptions{})
	require.NoError(t, err)
	defer conn.Close()

	mem := store.NewMemStore()
	d := NewDispatcher(router.New(ctxStore{mem}, nil), nil)

	ctx, cancel := context.WithCancel(context.Background())
	sub := NewSubscriber(conn, "", d, nil)
	require.NoError(t, sub.Start(ctx))

	// Shutdown order in kv-server: the signal context is cancelled first,
	// then the subscription is drained.
	cancel()
	require.NoError(t, NewPublisher(conn, "").Save("a", "1"))
	require.NoError(t, sub.Stop())

	require.Eventually(t, func() bool {
		v, err := mem.Get(context.Background(), "a")
		return err == nil && v == "1"
	}, 2*time.Second, 10*time.Millisecond)
}
