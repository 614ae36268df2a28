package store

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/heysubinoy/pyazkv/pkg/kv"
)

// Kind names the backend a Selection settled on.
type Kind string

const (
	KindRedis  Kind = "redis"
	KindMemory Kind = "memory"
)

// RemoteFunc constructs the networked backend. It must fail if the backend
// cannot be reached.
type RemoteFunc func(ctx context.Context) (kv.Store, error)

// SelectOptions controls backend selection at startup.
type SelectOptions struct {
	Redis RedisOptions

	// FailFast makes Select return the construction error instead of
	// falling back to a MemStore.
	FailFast bool

	// Remote overrides the networked backend constructor. Defaults to
	// NewRedisStore with Redis.
	Remote RemoteFunc

	Logger *slog.Logger
}

// Selection is the backend chosen for the lifetime of the process.
// It never changes after Select returns.
type Selection struct {
	store    kv.Store
	kind     Kind
	fallback bool
	cause    error
}

// Select tries the networked backend once and falls back to an empty
// MemStore when it is unreachable. There is no retry and no later
// re-probe.
func Select(ctx context.Context, opts SelectOptions) (*Selection, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	attrs := []any{"backend", KindRedis}
	remote := opts.Remote
	if remote == nil {
		attrs = append(attrs, "addr", opts.Redis.Addr())
		redisOpts := opts.Redis
		if redisOpts.Logger == nil {
			redisOpts.Logger = logger
		}
		remote = func(ctx context.Context) (kv.Store, error) {
			return NewRedisStore(ctx, redisOpts)
		}
	}

	st, err := remote(ctx)
	if err == nil {
		logger.Info("storage backend selected", attrs...)
		return &Selection{store: st, kind: KindRedis}, nil
	}

	if opts.FailFast {
		logger.Error("storage backend unavailable", append(attrs, "error", err)...)
		return nil, fmt.Errorf("select backend: %w", err)
	}

	logger.Warn("storage backend unavailable, falling back to in-memory store",
		append(attrs, "error", err)...)
	return &Selection{
		store:    NewMemStore(),
		kind:     KindMemory,
		fallback: true,
		cause:    err,
	}, nil
}

// NewSelection wraps an already constructed store, e.g. a fake in tests.
func NewSelection(st kv.Store, kind Kind) *Selection {
	return &Selection{store: st, kind: kind}
}

// Store returns the active backend.
func (s *Selection) Store() kv.Store {
	return s.store
}

// Kind returns which backend was selected.
func (s *Selection) Kind() Kind {
	return s.kind
}

// Fallback reports whether the networked backend was unreachable and the
// in-memory store was substituted.
func (s *Selection) Fallback() bool {
	return s.fallback
}

// Cause returns the error that triggered the fallback, if any.
func (s *Selection) Cause() error {
	return s.cause
}

// Close releases the backend if it holds resources.
func (s *Selection) Close() error {
	if c, ok := s.store.(io.Closer); ok {
		return c.Close()
	}
	return nil
}
