// Package pubsub turns asynchronous messages into kv operations.
//
// The trailing segment of a topic selects the operation ("SAVE" or
// "DELETE") and the JSON payload carries the key and value. There is no
// reply channel: every failure is logged and the message is dropped.
package pubsub

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/heysubinoy/pyazkv/pkg/kv"
)

// Handler is the subset of router.Router the dispatcher needs.
type Handler interface {
	HandleSave(ctx context.Context, key, value string) (kv.Result, error)
	HandleDelete(ctx context.Context, key string) (kv.Result, error)
}

// payload is the wire format of a message body. Pointers distinguish a
// missing field from an empty one.
type payload struct {
	Key   *string `json:"key"`
	Value *string `json:"value,omitempty"`
}

// Dispatcher decodes topic and payload and forwards them to a Handler.
// It holds no mutable state and is safe for concurrent deliveries.
type Dispatcher struct {
	handler Handler
	logger  *slog.Logger
}

// NewDispatcher creates a Dispatcher forwarding to h.
func NewDispatcher(h Handler, logger *slog.Logger) *Dispatcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Dispatcher{handler: h, logger: logger}
}

// Dispatch handles one message. It never returns an error and recovers
// from panics raised while handling it.
func (d *Dispatcher) Dispatch(ctx context.Context, topic string, data []byte) {
	defer func() {
		if p := recover(); p != nil {
			d.logger.Error("message handler panicked", "topic", topic, "panic", p)
		}
	}()

	res, err := d.dispatch(ctx, topic, data)
	switch kv.Classify(err) {
	case kv.KindNone:
		d.logger.Info("message applied", "topic", topic, "key", res.Key, "deleted", res.Deleted)
	case kv.KindNotFound:
		d.logger.Info("message dropped: key not found", "topic", topic, "error", err)
	case kv.KindMalformed:
		d.logger.Warn("message dropped: malformed", "topic", topic, "error", err)
	default:
		d.logger.Error("message dropped: backend failure", "topic", topic, "error", err)
	}
}

func (d *Dispatcher) dispatch(ctx context.Context, topic string, data []byte) (kv.Result, error) {
	op, err := Decode(topic, data)
	if err != nil {
		return kv.Result{}, err
	}
	switch op.Kind {
	case kv.OpSave:
		return d.handler.HandleSave(ctx, op.Key, op.Value)
	case kv.OpDelete:
		return d.handler.HandleDelete(ctx, op.Key)
	default:
		return kv.Result{}, fmt.Errorf("operation %s has no reply channel: %w", op.Kind, kv.ErrMalformed)
	}
}

// Decode builds an Operation from a topic and a JSON payload.
func Decode(topic string, data []byte) (kv.Operation, error) {
	keyword := Route(topic)
	kind, err := kv.ParseOpKind(keyword)
	if err != nil {
		return kv.Operation{}, fmt.Errorf("topic %q: %w", topic, err)
	}
	if kind == kv.OpGet {
		return kv.Operation{}, fmt.Errorf("topic %q: GET is not supported asynchronously: %w", topic, kv.ErrMalformed)
	}

	var p payload
	if err := json.Unmarshal(data, &p); err != nil {
		return kv.Operation{}, fmt.Errorf("decode payload: %v: %w", err, kv.ErrMalformed)
	}
	if p.Key == nil {
		return kv.Operation{}, fmt.Errorf("payload is missing \"key\": %w", kv.ErrMalformed)
	}

	op := kv.Operation{Kind: kind, Key: *p.Key}
	if kind == kv.OpSave {
		if p.Value == nil {
			return kv.Operation{}, fmt.Errorf("payload is missing \"value\": %w", kv.ErrMalformed)
		}
		op.Value = *p.Value
	}
	return op, op.Validate()
}

// Route returns the trailing segment of topic. Both "/" (MQTT style) and
// "." (NATS style) separate segments.
func Route(topic string) string {
	return topic[strings.LastIndexAny(topic, "/.")+1:]
}
