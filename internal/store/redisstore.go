package store

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/heysubinoy/pyazkv/pkg/kv"
)

const defaultDialTimeout = 2 * time.Second

// RedisOptions configures the connection to a Redis server.
type RedisOptions struct {
	Host        string
	Port        int
	DB          int
	Password    string
	DialTimeout time.Duration
	Logger      *slog.Logger
}

// Addr returns the host:port address of the server.
func (o RedisOptions) Addr() string {
	host := o.Host
	if host == "" {
		host = "localhost"
	}
	port := o.Port
	if port == 0 {
		port = 6379
	}
	return net.JoinHostPort(host, strconv.Itoa(port))
}

// RedisStore is a kv.Store backed by a Redis server.
// go-redis errors never escape it; they are translated to
// kv.ErrNotFound or kv.ErrBackendUnavailable.
type RedisStore struct {
	client *redis.Client
	addr   string
	logger *slog.Logger
}

var (
	_ kv.Store = (*RedisStore)(nil)
	_ kv.Taker = (*RedisStore)(nil)
)

// NewRedisStore connects to Redis and verifies the server answers PING.
// The returned error wraps kv.ErrBackendUnavailable when the server
// cannot be reached.
func NewRedisStore(ctx context.Context, opts RedisOptions) (*RedisStore, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	timeout := opts.DialTimeout
	if timeout <= 0 {
		timeout = defaultDialTimeout
	}

	addr := opts.Addr()
	client := redis.NewClient(&redis.Options{
		Addr:         addr,
		Password:     opts.Password,
		DB:           opts.DB,
		DialTimeout:  timeout,
		ReadTimeout:  timeout,
		WriteTimeout: timeout,
		// Fail fast: a broken backend is reported, not retried.
		MaxRetries: -1,
	})

	pingCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis at %s: %v: %w", addr, err, kv.ErrBackendUnavailable)
	}

	logger.Info("connected to redis", "addr", addr, "db", opts.DB)
	return &RedisStore{client: client, addr: addr, logger: logger}, nil
}

// Addr returns the address of the Redis server.
func (s *RedisStore) Addr() string {
	return s.addr
}

// Save writes the value with SET.
func (s *RedisStore) Save(ctx context.Context, key, value string) error {
	if err := s.client.Set(ctx, key, value, 0).Err(); err != nil {
		return s.unavailable("save", key, err)
	}
	s.logger.Debug("saved key", "key", key)
	return nil
}

// Get reads the value with GET.
func (s *RedisStore) Get(ctx context.Context, key string) (string, error) {
	val, err := s.client.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return "", fmt.Errorf("get %q: %w", key, kv.ErrNotFound)
	}
	if err != nil {
		return "", s.unavailable("get", key, err)
	}
	return val, nil
}

// Delete removes the key with DEL. Zero keys removed means the key was absent.
func (s *RedisStore) Delete(ctx context.Context, key string) error {
	n, err := s.client.Del(ctx, key).Result()
	if err != nil {
		return s.unavailable("delete", key, err)
	}
	if n == 0 {
		return fmt.Errorf("delete %q: %w", key, kv.ErrNotFound)
	}
	s.logger.Debug("deleted key", "key", key)
	return nil
}

// Take reads and removes the key with GETDEL.
func (s *RedisStore) Take(ctx context.Context, key string) (string, error) {
	val, err := s.client.GetDel(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return "", fmt.Errorf("take %q: %w", key, kv.ErrNotFound)
	}
	if err != nil {
		return "", s.unavailable("take", key, err)
	}
	return val, nil
}

// Exists reports whether the key is present.
func (s *RedisStore) Exists(ctx context.Context, key string) (bool, error) {
	n, err := s.client.Exists(ctx, key).Result()
	if err != nil {
		return false, s.unavailable("exists", key, err)
	}
	return n > 0, nil
}

// Close releases the connection pool.
func (s *RedisStore) Close() error {
	if err := s.client.Close(); err != nil {
		s.logger.Warn("closing redis client", "error", err)
		return err
	}
	s.logger.Info("redis connection closed", "addr", s.addr)
	return nil
}

func (s *RedisStore) unavailable(op, key string, err error) error {
	s.logger.Error("redis operation failed", "op", op, "key", key, "error", err)
	return fmt.Errorf("%s %q: %v: %w", op, key, err, kv.ErrBackendUnavailable)
}
