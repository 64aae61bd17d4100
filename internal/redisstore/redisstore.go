// Package redisstore implements kv.Backend on top of Redis.
//
// Expiration, atomic increments and list ordering are all provided by the
// Redis server. Client retries are disabled: a failed call surfaces as
// kv.ErrUnavailable on the first attempt.
package redisstore

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/roach88/recall/internal/kv"
)

// Options configures the Redis connection.
type Options struct {
	Addr        string
	Password    string
	DB          int
	DialTimeout time.Duration
	ReadTimeout time.Duration
}

// Store is a kv.Backend backed by a go-redis client.
type Store struct {
	client *redis.Client
	logger *slog.Logger
}

var _ kv.Backend = (*Store)(nil)

// Open connects to Redis and verifies the connection with PING.
func Open(ctx context.Context, opts Options) (*Store, error) {
	client := redis.NewClient(&redis.Options{
		Addr:        opts.Addr,
		Password:    opts.Password,
		DB:          opts.DB,
		DialTimeout: opts.DialTimeout,
		ReadTimeout: opts.ReadTimeout,
		MaxRetries:  -1,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, kv.Unavailable(fmt.Sprintf("connect to %s", opts.Addr), err)
	}

	slog.Debug("redis backend connected", "addr", opts.Addr, "db", opts.DB)
	return New(client), nil
}

// New wraps an existing client. The store takes ownership of the client.
func New(client *redis.Client) *Store {
	return &Store{client: client, logger: slog.Default()}
}

// Client returns the underlying go-redis client.
func (s *Store) Client() *redis.Client {
	return s.client
}

// Incr implements kv.Backend.
func (s *Store) Incr(ctx context.Context, key string) (int64, error) {
	n, err := s.client.Incr(ctx, key).Result()
	if err != nil {
		return 0, wrap("incr", err)
	}
	return n, nil
}

// Get implements kv.Backend.
func (s *Store) Get(ctx context.Context, key string) ([]byte, bool, error) {
	value, err := s.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, wrap("get", err)
	}
	return value, true, nil
}

// Set implements kv.Backend.
func (s *Store) Set(ctx context.Context, key string, value []byte) error {
	if err := s.client.Set(ctx, key, value, 0).Err(); err != nil {
		return wrap("set", err)
	}
	return nil
}

// SetEx implements kv.Backend.
func (s *Store) SetEx(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if err := s.client.SetEx(ctx, key, value, ttl).Err(); err != nil {
		return wrap("setex", err)
	}
	return nil
}

// RPush implements kv.Backend.
func (s *Store) RPush(ctx context.Context, key string, value []byte) error {
	if err := s.client.RPush(ctx, key, value).Err(); err != nil {
		return wrap("rpush", err)
	}
	return nil
}

// LRange implements kv.Backend.
func (s *Store) LRange(ctx context.Context, key string, start, stop int64) ([][]byte, error) {
	items, err := s.client.LRange(ctx, key, start, stop).Result()
	if err != nil {
		return nil, wrap("lrange", err)
	}

	values := make([][]byte, len(items))
	for i, item := range items {
		values[i] = []byte(item)
	}
	return values, nil
}

// FlushAll implements kv.Backend. Only the selected database is flushed.
func (s *Store) FlushAll(ctx context.Context) error {
	if err := s.client.FlushDB(ctx).Err(); err != nil {
		return wrap("flushdb", err)
	}
	s.logger.Debug("redis database flushed")
	return nil
}

// Close implements kv.Backend.
func (s *Store) Close() error {
	return s.client.Close()
}

// wrap separates Redis reply errors (wrong type, bad argument) from transport
// failures. Only the latter are reported as kv.ErrUnavailable.
func wrap(op string, err error) error {
	var reply redis.Error
	if errors.As(err, &reply) {
		return fmt.Errorf("%s: %w", op, err)
	}
	return kv.Unavailable(op, err)
}
