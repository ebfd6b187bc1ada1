package classifier

import (
	"context"
	"errors"
	"strconv"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeStore is an in-memory redisStore.
type fakeStore struct {
	data    map[string]string
	ttls    map[string]time.Duration
	readErr error
}

func newFakeStore() *fakeStore {
	return &fakeStore{data: map[string]string{}, ttls: map[string]time.Duration{}}
}

func (s *fakeStore) Get(_ context.Context, key string) *redis.StringCmd {
	if s.readErr != nil {
		return redis.NewStringResult("", s.readErr)
	}
	v, ok := s.data[key]
	if !ok {
		return redis.NewStringResult("", redis.Nil)
	}
	return redis.NewStringResult(v, nil)
}

func (s *fakeStore) Set(_ context.Context, key string, value any, ttl time.Duration) *redis.StatusCmd {
	s.data[key] = value.(string)
	s.ttls[key] = ttl
	return redis.NewStatusResult("OK", nil)
}

func TestRedisCache_MissThenHit(t *testing.T) {
	store := newFakeStore()
	inner := &countingClassifier{p: 0.33}
	cache := newRedisCache(inner, store, time.Hour, testMetrics(), discardLogger())

	p, err := cache.Classify(context.Background(), sampleFeatures)
	require.NoError(t, err)
	assert.InDelta(t, 0.33, p, 1e-12)

	key := redisKeyPrefix + featureKey(sampleFeatures)
	assert.Equal(t, strconv.FormatFloat(0.33, 'g', -1, 64), store.data[key])
	assert.Equal(t, time.Hour, store.ttls[key])

	p, err = cache.Classify(context.Background(), sampleFeatures)
	require.NoError(t, err)
	assert.InDelta(t, 0.33, p, 1e-12)
	assert.Equal(t, 1, inner.calls)
}

func TestRedisCache_ReadErrorFallsThrough(t *testing.T) {
	store := newFakeStore()
	store.readErr = errors.New("connection refused")
	inner := &countingClassifier{p: 0.8}
	cache := newRedisCache(inner, store, time.Hour, testMetrics(), discardLogger())

	p, err := cache.Classify(context.Background(), sampleFeatures)
	require.NoError(t, err)
	assert.InDelta(t, 0.8, p, 1e-12)
	assert.Equal(t, 1, inner.calls)
}

func TestRedisCache_MalformedValueIgnored(t *testing.T) {
	store := newFakeStore()
	store.data[redisKeyPrefix+featureKey(sampleFeatures)] = "garbage"
	inner := &countingClassifier{p: 0.4}
	cache := newRedisCache(inner, store, time.Minute, testMetrics(), discardLogger())

	p, err := cache.Classify(context.Background(), sampleFeatures)
	require.NoError(t, err)
	assert.InDelta(t, 0.4, p, 1e-12)
	assert.Equal(t, 1, inner.calls)
}

func TestRedisCache_InnerErrorPropagates(t *testing.T) {
	store := newFakeStore()
	inner := &countingClassifier{err: errors.New("model down")}
	cache := newRedisCache(inner, store, time.Minute, testMetrics(), discardLogger())

	_, err := cache.Classify(context.Background(), sampleFeatures)
	require.Error(t, err)
	assert.Empty(t, store.data)
}

func TestOpenRedis_EmptyAddr(t *testing.T) {
	assert.Nil(t, OpenRedis(""))
}
