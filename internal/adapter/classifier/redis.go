package classifier

import (
	"context"
	"errors"
	"log/slog"
	"strconv"
	"time"

	"github.com/couchcryptid/firegrid/internal/domain"
	"github.com/couchcryptid/firegrid/internal/observability"
	"github.com/redis/go-redis/v9"
)

const redisKeyPrefix = "firegrid:risk:"

// redisStore is the subset of the Redis client used by RedisCache.
type redisStore interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value any, expiration time.Duration) *redis.StatusCmd
}

// RedisCache is a shared second-tier cache in front of a classifier. Redis
// failures are logged and fall through to the inner classifier.
type RedisCache struct {
	inner   domain.Classifier
	store   redisStore
	ttl     time.Duration
	metrics *observability.Metrics
	logger  *slog.Logger
}

// OpenRedis connects to addr. It returns nil when addr is empty.
func OpenRedis(addr string) *redis.Client {
	if addr == "" {
		return nil
	}
	return redis.NewClient(&redis.Options{Addr: addr})
}

// NewRedisCache wraps inner with a Redis-backed cache whose entries expire after ttl.
func NewRedisCache(inner domain.Classifier, client *redis.Client, ttl time.Duration, metrics *observability.Metrics, logger *slog.Logger) *RedisCache {
	return newRedisCache(inner, client, ttl, metrics, logger)
}

func newRedisCache(inner domain.Classifier, store redisStore, ttl time.Duration, metrics *observability.Metrics, logger *slog.Logger) *RedisCache {
	return &RedisCache{
		inner:   inner,
		store:   store,
		ttl:     ttl,
		metrics: metrics,
		logger:  logger,
	}
}

func (c *RedisCache) Classify(ctx context.Context, f domain.Features) (float64, error) {
	key := redisKeyPrefix + featureKey(f)

	val, err := c.store.Get(ctx, key).Result()
	switch {
	case err == nil:
		if p, perr := strconv.ParseFloat(val, 64); perr == nil && p >= 0 && p <= 1 {
			c.metrics.ClassifierCache.WithLabelValues("redis", "hit").Inc()
			return p, nil
		}
		c.logger.Warn("discarding malformed cached probability", "key", key, "value", val)
	case !errors.Is(err, redis.Nil):
		c.logger.Warn("redis cache read failed", "key", key, "error", err)
	}
	c.metrics.ClassifierCache.WithLabelValues("redis", "miss").Inc()

	p, err := c.inner.Classify(ctx, f)
	if err != nil {
		return p, err
	}
	if err := c.store.Set(ctx, key, strconv.FormatFloat(p, 'g', -1, 64), c.ttl).Err(); err != nil {
		c.logger.Warn("redis cache write failed", "key", key, "error", err)
	}
	return p, nil
}
