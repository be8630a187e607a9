package cache

import (
	"context"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/aussiebroadwan/tasklist/pkg/slogx"
)

// Redis backs the Cache contract with a remote Redis instance. All remote
// calls carry bounded timeouts so an unreachable backend fails fast instead
// of stalling the request; failed writes land in the local fallback queue.
type Redis struct {
	client   *redis.Client
	fallback *fallbackQueue
	logger   *slog.Logger
}

// Config controls the Redis connection and the local fallback buffer.
type Config struct {
	URL          string
	DialTimeout  time.Duration // default 3s
	OpTimeout    time.Duration // per-command read/write timeout, default 5s
	FallbackSize int           // bounded buffer entries, default 1000
}

// NewRedis builds the cache. The connection is lazy: an unreachable backend
// at construction time is fine, the cache just starts in degraded mode.
func NewRedis(cfg Config, logger *slog.Logger) (*Redis, error) {
	opts, err := redis.ParseURL(cfg.URL)
	if err != nil {
		return nil, err
	}
	if cfg.DialTimeout <= 0 {
		cfg.DialTimeout = 3 * time.Second
	}
	if cfg.OpTimeout <= 0 {
		cfg.OpTimeout = 5 * time.Second
	}
	opts.DialTimeout = cfg.DialTimeout
	opts.ReadTimeout = cfg.OpTimeout
	opts.WriteTimeout = cfg.OpTimeout

	return &Redis{
		client:   redis.NewClient(opts),
		fallback: newFallbackQueue(cfg.FallbackSize),
		logger:   logger,
	}, nil
}

// Get returns the cached payload. Absent keys, transport errors, and any
// other failure all read as a miss.
func (c *Redis) Get(ctx context.Context, key string) ([]byte, bool) {
	b, err := c.client.Get(ctx, key).Bytes()
	if err == redis.Nil {
		return nil, false
	}
	if err != nil {
		slogx.FromContext(ctx).Debug("cache get failed", "key", key, "err", err)
		return nil, false
	}
	return b, true
}

// Set writes the value with a TTL, buffering locally when the backend is
// unreachable.
func (c *Redis) Set(ctx context.Context, key string, value []byte, ttl time.Duration) SetResult {
	if err := c.client.Set(ctx, key, value, ttl).Err(); err != nil {
		slogx.FromContext(ctx).Warn("cache set failed, buffering", "key", key, "err", err)
		c.fallback.push(bufferedWrite{op: opSet, key: key, value: value, ttl: ttl})
		return Buffered
	}
	return Committed
}

// Delete evicts keys best-effort.
func (c *Redis) Delete(ctx context.Context, keys ...string) {
	if len(keys) == 0 {
		return
	}
	if err := c.client.Del(ctx, keys...).Err(); err != nil {
		slogx.FromContext(ctx).Warn("cache delete failed", "keys", keys, "err", err)
	}
}

// Append pushes value onto the front of the ring at key and trims it to max
// entries, most recent first.
func (c *Redis) Append(ctx context.Context, key string, value []byte, max int64) SetResult {
	pipe := c.client.TxPipeline()
	pipe.LPush(ctx, key, value)
	pipe.LTrim(ctx, key, 0, max-1)
	if _, err := pipe.Exec(ctx); err != nil {
		slogx.FromContext(ctx).Warn("cache append failed, buffering", "key", key, "err", err)
		c.fallback.push(bufferedWrite{op: opAppend, key: key, value: value, max: max})
		return Buffered
	}
	return Committed
}

// DrainFallback flushes buffered writes in arrival order. The first entry
// that fails is pushed back to the front and draining stops for this call,
// so a persistent outage never busy-loops.
func (c *Redis) DrainFallback(ctx context.Context) int {
	flushed := 0
	for {
		w, ok := c.fallback.pop()
		if !ok {
			return flushed
		}
		if err := c.flush(ctx, w); err != nil {
			c.fallback.requeueFront(w)
			c.logger.Debug("fallback drain stopped", "flushed", flushed, "err", err)
			return flushed
		}
		flushed++
	}
}

func (c *Redis) flush(ctx context.Context, w bufferedWrite) error {
	switch w.op {
	case opAppend:
		pipe := c.client.TxPipeline()
		pipe.LPush(ctx, w.key, w.value)
		pipe.LTrim(ctx, w.key, 0, w.max-1)
		_, err := pipe.Exec(ctx)
		return err
	default:
		return c.client.Set(ctx, w.key, w.value, w.ttl).Err()
	}
}

// Pending reports the number of buffered writes awaiting a drain.
func (c *Redis) Pending() int { return c.fallback.len() }

// Ping checks backend reachability (used by readiness, informational only).
func (c *Redis) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

// Close releases the client's connection pool.
func (c *Redis) Close() error { return c.client.Close() }
