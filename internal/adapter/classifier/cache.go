package classifier

import (
	"context"
	"fmt"
	"sync"

	"github.com/couchcryptid/firegrid/internal/domain"
	"github.com/couchcryptid/firegrid/internal/observability"
)

// CachedClassifier wraps a Classifier with an in-memory LRU cache. Identical
// features always map to the same key, so repeated generations of the same
// grid and seed are served from memory.
type CachedClassifier struct {
	inner   domain.Classifier
	cache   *lruCache
	metrics *observability.Metrics
}

// NewCachedClassifier creates a cache decorator around a classifier.
func NewCachedClassifier(inner domain.Classifier, maxEntries int, metrics *observability.Metrics) *CachedClassifier {
	return &CachedClassifier{
		inner:   inner,
		cache:   newLRUCache(maxEntries),
		metrics: metrics,
	}
}

func (c *CachedClassifier) Classify(ctx context.Context, f domain.Features) (float64, error) {
	key := featureKey(f)
	if p, ok := c.cache.get(key); ok {
		c.metrics.ClassifierCache.WithLabelValues("memory", "hit").Inc()
		return p, nil
	}
	c.metrics.ClassifierCache.WithLabelValues("memory", "miss").Inc()

	p, err := c.inner.Classify(ctx, f)
	if err != nil {
		// Failures are not cached so a recovered model is used on the next call.
		return p, err
	}
	c.cache.put(key, p)
	return p, nil
}

// featureKey rounds features to six decimals.
func featureKey(f domain.Features) string {
	return fmt.Sprintf("%.6f|%.6f|%.6f", f.VegetationIndex, f.SurfaceTempC, f.BurnProbability)
}

// lruCache is a simple thread-safe LRU cache of probabilities.
type lruCache struct {
	maxEntries int
	mu         sync.Mutex
	entries    map[string]*entry
	head       *entry // most recently used
	tail       *entry // least recently used
}

type entry struct {
	key   string
	value float64
	prev  *entry
	next  *entry
}

func newLRUCache(maxEntries int) *lruCache {
	return &lruCache{
		maxEntries: maxEntries,
		entries:    make(map[string]*entry),
	}
}

func (c *lruCache) get(key string) (float64, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok {
		return 0, false
	}
	c.moveToFront(e)
	return e.value, true
}

func (c *lruCache) put(key string, value float64) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if e, ok := c.entries[key]; ok {
		e.value = value
		c.moveToFront(e)
		return
	}

	e := &entry{key: key, value: value}
	c.entries[key] = e
	c.addToFront(e)

	if len(c.entries) > c.maxEntries {
		c.evictTail()
	}
}

func (c *lruCache) size() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

func (c *lruCache) moveToFront(e *entry) {
	if e == c.head {
		return
	}
	c.remove(e)
	c.addToFront(e)
}

func (c *lruCache) addToFront(e *entry) {
	e.next = c.head
	e.prev = nil
	if c.head != nil {
		c.head.prev = e
	}
	c.head = e
	if c.tail == nil {
		c.tail = e
	}
}

func (c *lruCache) remove(e *entry) {
	if e.prev != nil {
		e.prev.next = e.next
	} else {
		c.head = e.next
	}
	if e.next != nil {
		e.next.prev = e.prev
	} else {
		c.tail = e.prev
	}
}

func (c *lruCache) evictTail() {
	if c.tail == nil {
		return
	}
	delete(c.entries, c.tail.key)
	c.remove(c.tail)
}
