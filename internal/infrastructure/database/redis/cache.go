package redis

import (
	"context"
	"encoding/json"
	"math/rand"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"

	"github.com/dissolveproject/dissolve/internal/config"
	"github.com/dissolveproject/dissolve/internal/infrastructure/monitoring/logging"
	"github.com/dissolveproject/dissolve/pkg/errors"
)

var (
	ErrCacheMiss           = errors.New(errors.CodeCacheError, "cache miss")
	ErrCacheUnavailable    = errors.New(errors.CodeCacheError, "cache unavailable")
	ErrSerializationFailed = errors.New(errors.CodeInternal, "cache serialization failed")
)

// nullCacheMarker is stored in place of a value the loader resolved to nil,
// so a subsequent GetOrSet treats it as a (still-cached) miss instead of
// re-invoking the loader on every call.
const nullCacheMarker = "__null__"

// Serializer converts cached values to and from their wire representation.
type Serializer interface {
	Marshal(v interface{}) ([]byte, error)
	Unmarshal(data []byte, v interface{}) error
}

// JSONSerializer is the default Serializer, used for GenericList items and
// collective-equality digests alike.
type JSONSerializer struct{}

func (s JSONSerializer) Marshal(v interface{}) ([]byte, error) {
	return json.Marshal(v)
}

func (s JSONSerializer) Unmarshal(data []byte, v interface{}) error {
	return json.Unmarshal(data, v)
}

// Cache is the fast-cache surface (C19): an accelerator for GenericList
// items and collective-equality digests. Every method here is safe to treat
// as best-effort — a caller that gets ErrCacheMiss or ErrCacheUnavailable
// should fall back to recomputing the value, never treat it as fatal.
type Cache interface {
	Get(ctx context.Context, key string, dest interface{}) error
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	Delete(ctx context.Context, keys ...string) error
	Exists(ctx context.Context, key string) (bool, error)
	MGet(ctx context.Context, keys []string) (map[string][]byte, error)
	MSet(ctx context.Context, items map[string]interface{}, ttl time.Duration) error
	// GetOrSet returns the cached value for key, or invokes loader on a miss
	// and caches its result (including caching a "miss" when loader returns
	// a nil value, to absorb repeated lookups of a key that legitimately
	// has no value). Concurrent callers for the same key share one loader
	// invocation via singleflight.
	GetOrSet(ctx context.Context, key string, dest interface{}, ttl time.Duration, loader func(ctx context.Context) (interface{}, error)) error
	DeleteByPrefix(ctx context.Context, prefix string) (int64, error)
	HGet(ctx context.Context, key, field string) (string, error)
	HSet(ctx context.Context, key string, fields map[string]interface{}, ttl time.Duration) error
	HGetAll(ctx context.Context, key string) (map[string]string, error)
	HDel(ctx context.Context, key string, fields ...string) error
	Incr(ctx context.Context, key string) (int64, error)
	IncrBy(ctx context.Context, key string, value int64) (int64, error)
	Decr(ctx context.Context, key string) (int64, error)
	Expire(ctx context.Context, key string, ttl time.Duration) error
	TTL(ctx context.Context, key string) (time.Duration, error)
	Ping(ctx context.Context) error
}

type redisCache struct {
	client       *Client
	log          logging.Logger
	prefix       string
	defaultTTL   time.Duration
	serializer   Serializer
	nullCacheTTL time.Duration
	singleflight singleflight.Group
}

type CacheOption func(*redisCache)

func WithPrefix(prefix string) CacheOption {
	return func(c *redisCache) { c.prefix = prefix }
}

func WithDefaultTTL(ttl time.Duration) CacheOption {
	return func(c *redisCache) { c.defaultTTL = ttl }
}

func WithSerializer(s Serializer) CacheOption {
	return func(c *redisCache) { c.serializer = s }
}

func WithNullCacheTTL(ttl time.Duration) CacheOption {
	return func(c *redisCache) { c.nullCacheTTL = ttl }
}

// NewRedisCache builds a Cache over an already-connected Client, defaulting
// its prefix and TTL from cfg.
func NewRedisCache(client *Client, cfg config.CacheConfig, log logging.Logger, opts ...CacheOption) Cache {
	prefix := cfg.KeyPrefix
	if prefix == "" {
		prefix = "dissolve:"
	}
	ttl := cfg.DefaultTTL
	if ttl == 0 {
		ttl = 15 * time.Minute
	}
	c := &redisCache{
		client:       client,
		log:          log,
		prefix:       prefix,
		defaultTTL:   ttl,
		serializer:   JSONSerializer{},
		nullCacheTTL: 30 * time.Second,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *redisCache) buildKey(key string) string {
	return c.prefix + key
}

// jitterTTL spreads expirations +/-10% so a batch of keys set together
// don't all expire in the same instant and stampede the recompute path.
func (c *redisCache) jitterTTL(ttl time.Duration) time.Duration {
	if ttl == 0 {
		return 0
	}
	jitter := time.Duration(float64(ttl) * 0.1 * (rand.Float64()*2 - 1))
	return ttl + jitter
}

func (c *redisCache) Get(ctx context.Context, key string, dest interface{}) error {
	fullKey := c.buildKey(key)
	data, err := c.client.Get(ctx, fullKey).Bytes()
	if err != nil {
		if err == redis.Nil {
			return ErrCacheMiss
		}
		return errors.Wrap(err, errors.CodeCacheError, "cache get failed")
	}

	if string(data) == nullCacheMarker {
		return ErrCacheMiss
	}

	if err := c.serializer.Unmarshal(data, dest); err != nil {
		return errors.Wrap(err, errors.CodeInternal, "cache unmarshal failed")
	}
	return nil
}

func (c *redisCache) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	fullKey := c.buildKey(key)
	if ttl == 0 {
		ttl = c.defaultTTL
	}
	ttl = c.jitterTTL(ttl)

	data, err := c.serializer.Marshal(value)
	if err != nil {
		return errors.Wrap(err, errors.CodeInternal, "cache marshal failed")
	}

	if err := c.client.Set(ctx, fullKey, data, ttl).Err(); err != nil {
		return errors.Wrap(err, errors.CodeCacheError, "cache set failed")
	}
	return nil
}

func (c *redisCache) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	fullKeys := make([]string, len(keys))
	for i, k := range keys {
		fullKeys[i] = c.buildKey(k)
	}
	if err := c.client.Del(ctx, fullKeys...).Err(); err != nil {
		return errors.Wrap(err, errors.CodeCacheError, "cache delete failed")
	}
	return nil
}

func (c *redisCache) Exists(ctx context.Context, key string) (bool, error) {
	val, err := c.client.Exists(ctx, c.buildKey(key)).Result()
	if err != nil {
		return false, errors.Wrap(err, errors.CodeCacheError, "cache exists check failed")
	}
	return val > 0, nil
}

func (c *redisCache) MGet(ctx context.Context, keys []string) (map[string][]byte, error) {
	if len(keys) == 0 {
		return nil, nil
	}
	pipe := c.client.Pipeline()
	cmds := make(map[string]*redis.StringCmd, len(keys))
	for _, k := range keys {
		cmds[k] = pipe.Get(ctx, c.buildKey(k))
	}
	if _, err := pipe.Exec(ctx); err != nil && err != redis.Nil {
		return nil, errors.Wrap(err, errors.CodeCacheError, "cache mget failed")
	}

	result := make(map[string][]byte, len(cmds))
	for k, cmd := range cmds {
		if data, err := cmd.Bytes(); err == nil {
			result[k] = data
		}
	}
	return result, nil
}

func (c *redisCache) MSet(ctx context.Context, items map[string]interface{}, ttl time.Duration) error {
	if len(items) == 0 {
		return nil
	}
	if ttl == 0 {
		ttl = c.defaultTTL
	}
	ttl = c.jitterTTL(ttl)

	pipe := c.client.Pipeline()
	for k, v := range items {
		data, err := c.serializer.Marshal(v)
		if err != nil {
			return errors.Wrap(err, errors.CodeInternal, "cache marshal failed")
		}
		pipe.Set(ctx, c.buildKey(k), data, ttl)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return errors.Wrap(err, errors.CodeCacheError, "cache mset failed")
	}
	return nil
}

func (c *redisCache) GetOrSet(ctx context.Context, key string, dest interface{}, ttl time.Duration, loader func(ctx context.Context) (interface{}, error)) error {
	cached, err := c.client.Get(ctx, c.buildKey(key)).Bytes()
	switch {
	case err == nil && string(cached) == nullCacheMarker:
		return ErrCacheMiss
	case err == nil:
		if err := c.serializer.Unmarshal(cached, dest); err != nil {
			return errors.Wrap(err, errors.CodeInternal, "cache unmarshal failed")
		}
		return nil
	case err != redis.Nil:
		return errors.Wrap(err, errors.CodeCacheError, "cache get failed")
	}

	val, err, _ := c.singleflight.Do(key, func() (interface{}, error) {
		v, loadErr := loader(ctx)
		if loadErr != nil {
			return nil, loadErr
		}

		if v == nil {
			if setErr := c.client.Set(ctx, c.buildKey(key), nullCacheMarker, c.nullCacheTTL).Err(); setErr != nil {
				c.log.Warn("failed to cache null value", logging.Err(setErr))
			}
			return nil, nil
		}

		if setErr := c.Set(ctx, key, v, ttl); setErr != nil {
			c.log.Warn("failed to populate cache in GetOrSet", logging.Err(setErr))
		}
		return v, nil
	})
	if err != nil {
		return err
	}
	if val == nil {
		return ErrCacheMiss
	}

	data, err := c.serializer.Marshal(val)
	if err != nil {
		return errors.Wrap(err, errors.CodeInternal, "cache marshal failed")
	}
	if err := c.serializer.Unmarshal(data, dest); err != nil {
		return errors.Wrap(err, errors.CodeInternal, "cache unmarshal failed")
	}
	return nil
}

func (c *redisCache) DeleteByPrefix(ctx context.Context, prefix string) (int64, error) {
	fullPrefix := c.buildKey(prefix) + "*"
	var deleted int64
	var cursor uint64

	for {
		keys, nextCursor, err := c.client.Scan(ctx, cursor, fullPrefix, 100).Result()
		if err != nil {
			return deleted, errors.Wrap(err, errors.CodeCacheError, "cache scan failed")
		}

		if len(keys) > 0 {
			if err := c.client.Del(ctx, keys...).Err(); err != nil {
				return deleted, errors.Wrap(err, errors.CodeCacheError, "cache delete failed")
			}
			deleted += int64(len(keys))
		}

		cursor = nextCursor
		if cursor == 0 {
			break
		}
	}
	return deleted, nil
}

func (c *redisCache) HGet(ctx context.Context, key, field string) (string, error) {
	val, err := c.client.HGet(ctx, c.buildKey(key), field).Result()
	if err == redis.Nil {
		return "", ErrCacheMiss
	}
	if err != nil {
		return "", errors.Wrap(err, errors.CodeCacheError, "cache hget failed")
	}
	return val, nil
}

func (c *redisCache) HSet(ctx context.Context, key string, fields map[string]interface{}, ttl time.Duration) error {
	pipe := c.client.Pipeline()
	fullKey := c.buildKey(key)

	values := make([]interface{}, 0, len(fields)*2)
	for k, v := range fields {
		values = append(values, k, v)
	}

	pipe.HSet(ctx, fullKey, values...)
	if ttl > 0 {
		pipe.Expire(ctx, fullKey, ttl)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return errors.Wrap(err, errors.CodeCacheError, "cache hset failed")
	}
	return nil
}

func (c *redisCache) HGetAll(ctx context.Context, key string) (map[string]string, error) {
	res, err := c.client.HGetAll(ctx, c.buildKey(key)).Result()
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeCacheError, "cache hgetall failed")
	}
	return res, nil
}

func (c *redisCache) HDel(ctx context.Context, key string, fields ...string) error {
	if err := c.client.HDel(ctx, c.buildKey(key), fields...).Err(); err != nil {
		return errors.Wrap(err, errors.CodeCacheError, "cache hdel failed")
	}
	return nil
}

func (c *redisCache) Incr(ctx context.Context, key string) (int64, error) {
	val, err := c.client.Incr(ctx, c.buildKey(key)).Result()
	if err != nil {
		return 0, errors.Wrap(err, errors.CodeCacheError, "cache incr failed")
	}
	return val, nil
}

func (c *redisCache) IncrBy(ctx context.Context, key string, value int64) (int64, error) {
	val, err := c.client.IncrBy(ctx, c.buildKey(key), value).Result()
	if err != nil {
		return 0, errors.Wrap(err, errors.CodeCacheError, "cache incrby failed")
	}
	return val, nil
}

func (c *redisCache) Decr(ctx context.Context, key string) (int64, error) {
	val, err := c.client.Decr(ctx, c.buildKey(key)).Result()
	if err != nil {
		return 0, errors.Wrap(err, errors.CodeCacheError, "cache decr failed")
	}
	return val, nil
}

func (c *redisCache) Expire(ctx context.Context, key string, ttl time.Duration) error {
	if err := c.client.Expire(ctx, c.buildKey(key), ttl).Err(); err != nil {
		return errors.Wrap(err, errors.CodeCacheError, "cache expire failed")
	}
	return nil
}

func (c *redisCache) TTL(ctx context.Context, key string) (time.Duration, error) {
	ttl, err := c.client.TTL(ctx, c.buildKey(key)).Result()
	if err != nil {
		return 0, errors.Wrap(err, errors.CodeCacheError, "cache ttl failed")
	}
	return ttl, nil
}

func (c *redisCache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx)
}
