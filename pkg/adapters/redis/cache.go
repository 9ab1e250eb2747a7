package redis

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/aretw0/transit/pkg/ports"
	backend "github.com/redis/go-redis/v9"
)

// ErrCacheMiss is returned by Get when key is not cached.
var ErrCacheMiss = errors.New("content not cached")

const (
	// DefaultPrefix namespaces every key the cache writes.
	DefaultPrefix = "transit:cache:"
	// DefaultMaxIdle is how long an entry may go unread before CleanUnused drops it.
	DefaultMaxIdle = 24 * time.Hour

	scanBatch = 100
)

// Cache implements ports.ContentCache on Redis.
//
// Layout, relative to the prefix:
//
//	entry:<key>  content bytes
//	deps:<key>   set of keys <key> depends on
//	index        sorted set of keys scored by last access (unix seconds)
type Cache struct {
	client  *backend.Client
	prefix  string
	maxIdle time.Duration
	clock   ports.Clock
}

var _ ports.ContentCache = (*Cache)(nil)

// CacheOption configures a Cache.
type CacheOption func(*Cache)

// WithPrefix sets the key prefix.
func WithPrefix(prefix string) CacheOption {
	return func(c *Cache) {
		c.prefix = prefix
	}
}

// WithMaxIdle sets the idle age after which CleanUnused drops an entry.
func WithMaxIdle(d time.Duration) CacheOption {
	return func(c *Cache) {
		c.maxIdle = d
	}
}

// WithClock sets the clock used to score accesses.
func WithClock(clock ports.Clock) CacheOption {
	return func(c *Cache) {
		c.clock = clock
	}
}

// NewCache creates a cache over an existing client.
func NewCache(client *backend.Client, opts ...CacheOption) *Cache {
	c := &Cache{
		client:  client,
		prefix:  DefaultPrefix,
		maxIdle: DefaultMaxIdle,
		clock:   ports.SystemClock{},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Cache) entryKey(key string) string { return c.prefix + "entry:" + key }
func (c *Cache) depsKey(key string) string  { return c.prefix + "deps:" + key }
func (c *Cache) indexKey() string           { return c.prefix + "index" }

func (c *Cache) score() float64 {
	return float64(c.clock.Now().Unix())
}

// Put stores data under key and records the keys it depends on.
func (c *Cache) Put(ctx context.Context, key string, data []byte, deps ...string) error {
	_, err := c.client.TxPipelined(ctx, func(pipe backend.Pipeliner) error {
		pipe.Set(ctx, c.entryKey(key), data, 0)
		pipe.Del(ctx, c.depsKey(key))
		if len(deps) > 0 {
			members := make([]any, len(deps))
			for i, d := range deps {
				members[i] = d
			}
			pipe.SAdd(ctx, c.depsKey(key), members...)
		}
		pipe.ZAdd(ctx, c.indexKey(), backend.Z{Score: c.score(), Member: key})
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to cache %q: %w", key, err)
	}
	return nil
}

// Get returns the content under key and refreshes its access time.
func (c *Cache) Get(ctx context.Context, key string) ([]byte, error) {
	data, err := c.client.Get(ctx, c.entryKey(key)).Bytes()
	if errors.Is(err, backend.Nil) {
		return nil, fmt.Errorf("%w: %s", ErrCacheMiss, key)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read %q: %w", key, err)
	}
	if err := c.client.ZAdd(ctx, c.indexKey(), backend.Z{Score: c.score(), Member: key}).Err(); err != nil {
		return nil, fmt.Errorf("failed to touch %q: %w", key, err)
	}
	return data, nil
}

// Keys lists cached keys, least recently used first.
func (c *Cache) Keys(ctx context.Context) ([]string, error) {
	return c.client.ZRange(ctx, c.indexKey(), 0, -1).Result()
}

// ClearAll deletes every key under the prefix.
func (c *Cache) ClearAll(ctx context.Context) error {
	iter := c.client.Scan(ctx, 0, c.prefix+"*", scanBatch).Iterator()
	batch := make([]string, 0, scanBatch)
	for iter.Next(ctx) {
		batch = append(batch, iter.Val())
		if len(batch) == scanBatch {
			if err := c.client.Del(ctx, batch...).Err(); err != nil {
				return fmt.Errorf("failed to clear cache: %w", err)
			}
			batch = batch[:0]
		}
	}
	if err := iter.Err(); err != nil {
		return fmt.Errorf("failed to scan cache: %w", err)
	}
	if len(batch) > 0 {
		if err := c.client.Del(ctx, batch...).Err(); err != nil {
			return fmt.Errorf("failed to clear cache: %w", err)
		}
	}
	return nil
}

// ClearByKey deletes key and the entries it depends on.
func (c *Cache) ClearByKey(ctx context.Context, key string) error {
	deps, err := c.client.SMembers(ctx, c.depsKey(key)).Result()
	if err != nil {
		return fmt.Errorf("failed to read dependencies of %q: %w", key, err)
	}
	return c.drop(ctx, append([]string{key}, deps...))
}

// CleanUnused drops entries not read for longer than the max idle age.
func (c *Cache) CleanUnused(ctx context.Context) error {
	cutoff := c.clock.Now().Add(-c.maxIdle).Unix()
	stale, err := c.client.ZRangeByScore(ctx, c.indexKey(), &backend.ZRangeBy{
		Min: "-inf",
		Max: "(" + strconv.FormatInt(cutoff, 10),
	}).Result()
	if err != nil {
		return fmt.Errorf("failed to query access index: %w", err)
	}
	return c.drop(ctx, stale)
}

func (c *Cache) drop(ctx context.Context, keys []string) error {
	if len(keys) == 0 {
		return nil
	}
	redisKeys := make([]string, 0, 2*len(keys))
	members := make([]any, len(keys))
	for i, k := range keys {
		redisKeys = append(redisKeys, c.entryKey(k), c.depsKey(k))
		members[i] = k
	}
	_, err := c.client.TxPipelined(ctx, func(pipe backend.Pipeliner) error {
		pipe.Del(ctx, redisKeys...)
		pipe.ZRem(ctx, c.indexKey(), members...)
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to drop cache entries: %w", err)
	}
	return nil
}
