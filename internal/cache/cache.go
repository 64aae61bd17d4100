// Package cache stores arbitrary scalar values under generated keys and
// records every Store call so it can be replayed later.
package cache

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"strconv"

	"github.com/roach88/recall/internal/kv"
	"github.com/roach88/recall/internal/recorder"
	"github.com/roach88/recall/internal/replay"
)

// StoreMethod is the recorded name of Cache.Store.
const StoreMethod = "Cache.store"

// ErrUnsupportedValue is returned by Store for values other than strings,
// byte slices, integers and finite floats, and for unsigned integers above
// math.MaxInt64. Such values are rejected before the call is recorded.
var ErrUnsupportedValue = errors.New("unsupported value type")

// Converter turns raw stored bytes into a caller type.
type Converter func([]byte) (any, error)

// Cache is a key-value cache whose Store operation is counted and logged.
type Cache struct {
	backend  kv.Backend
	keys     KeyGenerator
	logger   *slog.Logger
	recorder *recorder.Recorder
	flush    bool
	store    recorder.Op
}

// Option configures a Cache.
type Option func(*Cache)

// WithKeyGenerator replaces the default UUID key generator.
func WithKeyGenerator(g KeyGenerator) Option {
	return func(c *Cache) {
		c.keys = g
	}
}

// WithLogger sets the logger. Defaults to slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(c *Cache) {
		c.logger = logger
	}
}

// WithRecorder records Store through r instead of a recorder built on the
// cache's own backend.
func WithRecorder(r *recorder.Recorder) Option {
	return func(c *Cache) {
		c.recorder = r
	}
}

// WithoutFlush keeps existing backend contents on New.
func WithoutFlush() Option {
	return func(c *Cache) {
		c.flush = false
	}
}

// New creates a Cache on backend. Unless WithoutFlush is given the backend
// is flushed first, so counters and histories start empty.
func New(ctx context.Context, backend kv.Backend, opts ...Option) (*Cache, error) {
	c := &Cache{
		backend: backend,
		keys:    UUIDGenerator{},
		logger:  slog.Default(),
		flush:   true,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.recorder == nil {
		c.recorder = recorder.New(backend, recorder.WithLogger(c.logger))
	}

	if c.flush {
		if err := backend.FlushAll(ctx); err != nil {
			return nil, fmt.Errorf("flush backend: %w", err)
		}
	}

	c.store = c.recorder.Record(StoreMethod, c.doStore)
	return c, nil
}

// Store saves data under a freshly generated key and returns the key.
// Accepted types are string, []byte, signed and unsigned integers and floats.
func (c *Cache) Store(ctx context.Context, data any) (string, error) {
	if _, err := encode(data); err != nil {
		return "", err
	}
	result, err := c.store(ctx, data)
	if err != nil {
		return "", err
	}
	key, _ := result.(string)
	return key, nil
}

func (c *Cache) doStore(ctx context.Context, args ...any) (any, error) {
	value, err := encode(args[0])
	if err != nil {
		return nil, err
	}

	key := c.keys.Generate()
	if err := c.backend.Set(ctx, key, value); err != nil {
		return nil, fmt.Errorf("store %s: %w", key, err)
	}
	c.logger.Debug("value stored", "key", key, "size", len(value))
	return key, nil
}

// Get returns the value at key passed through conv. With a nil conv the raw
// bytes are returned. A missing key returns found == false and no error.
func (c *Cache) Get(ctx context.Context, key string, conv Converter) (any, bool, error) {
	raw, found, err := c.backend.Get(ctx, key)
	if err != nil {
		return nil, false, fmt.Errorf("get %s: %w", key, err)
	}
	if !found {
		return nil, false, nil
	}
	if conv == nil {
		return raw, true, nil
	}

	v, err := conv(raw)
	if err != nil {
		return nil, true, fmt.Errorf("get %s: %w", key, err)
	}
	return v, true, nil
}

// GetBytes returns the raw bytes at key.
func (c *Cache) GetBytes(ctx context.Context, key string) ([]byte, bool, error) {
	v, found, err := c.Get(ctx, key, nil)
	if err != nil || !found {
		return nil, found, err
	}
	return v.([]byte), true, nil
}

// GetStr returns the value at key decoded as text.
func (c *Cache) GetStr(ctx context.Context, key string) (string, bool, error) {
	v, found, err := c.Get(ctx, key, AsString)
	if err != nil || !found {
		return "", found, err
	}
	return v.(string), true, nil
}

// GetInt returns the value at key parsed as a base-10 integer.
func (c *Cache) GetInt(ctx context.Context, key string) (int64, bool, error) {
	v, found, err := c.Get(ctx, key, AsInt)
	if err != nil || !found {
		return 0, found, err
	}
	return v.(int64), true, nil
}

// Replay writes the recorded Store history to w.
func (c *Cache) Replay(ctx context.Context, w io.Writer) error {
	return replay.Replay(ctx, c.recorder.Backend(), StoreMethod, w)
}

// AsString converts raw bytes to a string.
func AsString(raw []byte) (any, error) {
	return string(raw), nil
}

// AsInt parses raw bytes as a base-10 int64.
func AsInt(raw []byte) (any, error) {
	n, err := strconv.ParseInt(string(raw), 10, 64)
	if err != nil {
		return nil, fmt.Errorf("not an integer: %q", raw)
	}
	return n, nil
}

func encode(data any) ([]byte, error) {
	switch v := data.(type) {
	case string:
		return []byte(v), nil
	case []byte:
		return v, nil
	case int:
		return strconv.AppendInt(nil, int64(v), 10), nil
	case int8:
		return strconv.AppendInt(nil, int64(v), 10), nil
	case int16:
		return strconv.AppendInt(nil, int64(v), 10), nil
	case int32:
		return strconv.AppendInt(nil, int64(v), 10), nil
	case int64:
		return strconv.AppendInt(nil, v, 10), nil
	case uint:
		return encodeUint(uint64(v))
	case uint8:
		return strconv.AppendUint(nil, uint64(v), 10), nil
	case uint16:
		return strconv.AppendUint(nil, uint64(v), 10), nil
	case uint32:
		return strconv.AppendUint(nil, uint64(v), 10), nil
	case uint64:
		return encodeUint(v)
	case float32:
		return encodeFloat(float64(v), 32)
	case float64:
		return encodeFloat(v, 64)
	default:
		return nil, fmt.Errorf("%w: %T", ErrUnsupportedValue, data)
	}
}

// encodeUint rejects values the call log cannot represent as an integer.
func encodeUint(n uint64) ([]byte, error) {
	if n > math.MaxInt64 {
		return nil, fmt.Errorf("%w: unsigned value %d overflows int64", ErrUnsupportedValue, n)
	}
	return strconv.AppendUint(nil, n, 10), nil
}

// encodeFloat writes the shortest round-trip form with a decimal point, so
// 3.0 is stored as "3.0" and matches the logged argument.
func encodeFloat(f float64, bits int) ([]byte, error) {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return nil, fmt.Errorf("%w: non-finite float %v", ErrUnsupportedValue, f)
	}
	b := strconv.AppendFloat(nil, f, 'g', -1, bits)
	if !bytes.ContainsAny(b, ".e") {
		b = append(b, ".0"...)
	}
	return b, nil
}
