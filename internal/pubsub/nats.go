package pubsub

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/heysubinoy/pyazkv/pkg/kv"
)

// DefaultSubject is the wildcard subject the service listens on.
const DefaultSubject = "pyazkv.repository.>"

// ErrNotConnected is returned when the NATS connection is closed or absent.
var ErrNotConnected = errors.New("not connected to NATS")

// ConnectOptions configures the NATS connection.
type ConnectOptions struct {
	Name          string
	Timeout       time.Duration
	ReconnectWait time.Duration
	MaxReconnects int
	Logger        *slog.Logger
}

// Connect dials the NATS server at url and logs connection state changes.
func Connect(url string, opts ConnectOptions) (*nats.Conn, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 5 * time.Second
	}
	if opts.ReconnectWait <= 0 {
		opts.ReconnectWait = 2 * time.Second
	}
	if opts.MaxReconnects == 0 {
		opts.MaxReconnects = -1
	}

	natsOpts := []nats.Option{
		nats.Timeout(opts.Timeout),
		nats.ReconnectWait(opts.ReconnectWait),
		nats.MaxReconnects(opts.MaxReconnects),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				logger.Warn("nats disconnected", "error", err)
			}
		}),
		nats.ReconnectHandler(func(c *nats.Conn) {
			logger.Info("nats reconnected", "url", c.ConnectedUrl())
		}),
		nats.ErrorHandler(func(_ *nats.Conn, sub *nats.Subscription, err error) {
			subject := ""
			if sub != nil {
				subject = sub.Subject
			}
			logger.Error("nats async error", "subject", subject, "error", err)
		}),
	}
	if opts.Name != "" {
		natsOpts = append(natsOpts, nats.Name(opts.Name))
	}

	conn, err := nats.Connect(url, natsOpts...)
	if err != nil {
		return nil, fmt.Errorf("connect to nats at %s: %w", url, err)
	}
	logger.Info("connected to nats", "url", conn.ConnectedUrl())
	return conn, nil
}

// Subscriber feeds messages from a wildcard subject into a Dispatcher.
type Subscriber struct {
	conn       *nats.Conn
	subject    string
	dispatcher *Dispatcher
	logger     *slog.Logger

	mu  sync.Mutex
	sub *nats.Subscription
}

// NewSubscriber creates a Subscriber. An empty subject means DefaultSubject.
func NewSubscriber(conn *nats.Conn, subject string, d *Dispatcher, logger *slog.Logger) *Subscriber {
	if subject == "" {
		subject = DefaultSubject
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Subscriber{conn: conn, subject: subject, dispatcher: d, logger: logger}
}

// Subject returns the subscribed subject.
func (s *Subscriber) Subject() string {
	return s.subject
}

// Start subscribes. Deliveries inherit ctx's values but not its
// cancellation, so messages drained by Stop still reach the backend.
func (s *Subscriber) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.conn == nil || !s.conn.IsConnected() {
		return ErrNotConnected
	}
	if s.sub != nil {
		return fmt.Errorf("already subscribed to %s", s.subject)
	}

	msgCtx := context.WithoutCancel(ctx)
	sub, err := s.conn.Subscribe(s.subject, func(msg *nats.Msg) {
		s.dispatcher.Dispatch(msgCtx, msg.Subject, msg.Data)
	})
	if err != nil {
		return fmt.Errorf("subscribe %s: %w", s.subject, err)
	}
	// Make sure the server has registered interest before returning.
	if err := s.conn.Flush(); err != nil {
		_ = sub.Unsubscribe()
		return fmt.Errorf("flush subscription %s: %w", s.subject, err)
	}

	s.sub = sub
	s.logger.Info("subscribed", "subject", s.subject)
	return nil
}

// Stop drains the subscription so in-flight messages finish.
func (s *Subscriber) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.sub == nil {
		return nil
	}
	err := s.sub.Drain()
	s.sub = nil
	if err != nil {
		return fmt.Errorf("drain %s: %w", s.subject, err)
	}
	s.logger.Info("unsubscribed", "subject", s.subject)
	return nil
}

// Publisher emits operations as messages the Subscriber understands.
type Publisher struct {
	conn   *nats.Conn
	prefix string
}

// NewPublisher creates a Publisher for the subject tree matched by
// wildcard, e.g. "pyazkv.repository.>".
func NewPublisher(conn *nats.Conn, wildcard string) *Publisher {
	if wildcard == "" {
		wildcard = DefaultSubject
	}
	return &Publisher{conn: conn, prefix: SubjectPrefix(wildcard)}
}

// Save publishes a SAVE message.
func (p *Publisher) Save(key, value string) error {
	return p.publish(kv.OpSave, payload{Key: &key, Value: &value})
}

// Delete publishes a DELETE message.
func (p *Publisher) Delete(key string) error {
	return p.publish(kv.OpDelete, payload{Key: &key})
}

func (p *Publisher) publish(kind kv.OpKind, body payload) error {
	if p.conn == nil || p.conn.IsClosed() {
		return ErrNotConnected
	}
	data, err := json.Marshal(body)
	if err != nil {
		return err
	}
	subject := p.prefix + "." + kind.String()
	if err := p.conn.Publish(subject, data); err != nil {
		return fmt.Errorf("publish %s: %w", subject, err)
	}
	return p.conn.Flush()
}

// SubjectPrefix strips trailing wildcard tokens from a NATS subject.
func SubjectPrefix(subject string) string {
	for strings.HasSuffix(subject, ".>") || strings.HasSuffix(subject, ".*") {
		subject = subject[:len(subject)-2]
	}
	return subject
}
