// Package router routes normalized operations from every ingress surface to
// the active storage backend.
package router

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/heysubinoy/pyazkv/pkg/kv"
)

// Router delegates operations to a single kv.Store and normalizes the
// outcome into kv.Result or a kv taxonomy error. It makes one backend call
// per operation and never retries.
type Router struct {
	store  kv.Store
	logger *slog.Logger
}

// New creates a Router over store.
func New(store kv.Store, logger *slog.Logger) *Router {
	if logger == nil {
		logger = slog.Default()
	}
	return &Router{store: store, logger: logger}
}

// Handle routes op by its kind.
func (r *Router) Handle(ctx context.Context, op kv.Operation) (kv.Result, error) {
	switch op.Kind {
	case kv.OpSave:
		return r.HandleSave(ctx, op.Key, op.Value)
	case kv.OpGet:
		return r.HandleGet(ctx, op.Key)
	case kv.OpDelete:
		return r.HandleDelete(ctx, op.Key)
	default:
		return kv.Result{}, fmt.Errorf("unknown operation kind %d: %w", op.Kind, kv.ErrMalformed)
	}
}

// HandleSave stores value under key.
func (r *Router) HandleSave(ctx context.Context, key, value string) (kv.Result, error) {
	if err := (kv.Operation{Kind: kv.OpSave, Key: key, Value: value}).Validate(); err != nil {
		return kv.Result{}, err
	}
	if err := r.store.Save(ctx, key, value); err != nil {
		return kv.Result{}, r.normalize(kv.OpSave, key, err)
	}
	return kv.Result{Key: key, Value: value}, nil
}

// HandleGet returns the value stored under key.
func (r *Router) HandleGet(ctx context.Context, key string) (kv.Result, error) {
	if err := (kv.Operation{Kind: kv.OpGet, Key: key}).Validate(); err != nil {
		return kv.Result{}, err
	}
	value, err := r.store.Get(ctx, key)
	if err != nil {
		return kv.Result{}, r.normalize(kv.OpGet, key, err)
	}
	return kv.Result{Key: key, Value: value}, nil
}

// HandleDelete removes key and reports the value it held. Stores that
// implement kv.Taker do this atomically; others get a Get then a Delete.
func (r *Router) HandleDelete(ctx context.Context, key string) (kv.Result, error) {
	if err := (kv.Operation{Kind: kv.OpDelete, Key: key}).Validate(); err != nil {
		return kv.Result{}, err
	}

	var (
		value string
		err   error
	)
	if t, ok := r.store.(kv.Taker); ok {
		value, err = t.Take(ctx, key)
	} else {
		value, err = r.store.Get(ctx, key)
		if err == nil {
			err = r.store.Delete(ctx, key)
		}
	}
	if err != nil {
		return kv.Result{}, r.normalize(kv.OpDelete, key, err)
	}
	return kv.Result{Key: key, Value: value, Deleted: true}, nil
}

// normalize keeps taxonomy errors as they are and folds anything else into
// kv.ErrBackendUnavailable.
func (r *Router) normalize(op kv.OpKind, key string, err error) error {
	switch {
	case errors.Is(err, kv.ErrNotFound):
		r.logger.Debug("key not found", "op", op, "key", key)
		return err
	case errors.Is(err, kv.ErrBackendUnavailable), errors.Is(err, kv.ErrMalformed):
		r.logger.Warn("operation failed", "op", op, "key", key, "error", err)
		return err
	default:
		r.logger.Warn("operation failed", "op", op, "key", key, "error", err)
		return fmt.Errorf("%s %q: %v: %w", op, key, err, kv.ErrBackendUnavailable)
	}
}
