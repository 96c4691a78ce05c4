package tmdb

import (
	"context"
	"strings"
	"sync"

	"github.com/skyflick/skyflick/internal/domain"
	"github.com/skyflick/skyflick/internal/observability"
)

// CachedCatalog wraps a MovieCatalog with an in-memory LRU cache keyed by the
// normalized query title.
type CachedCatalog struct {
	inner   domain.MovieCatalog
	cache   *lruCache
	metrics *observability.Metrics
}

// NewCachedCatalog creates a cache decorator around a catalog.
func NewCachedCatalog(inner domain.MovieCatalog, maxEntries int, metrics *observability.Metrics) *CachedCatalog {
	return &CachedCatalog{
		inner:   inner,
		cache:   newLRUCache(maxEntries),
		metrics: metrics,
	}
}

func (c *CachedCatalog) SearchMovie(ctx context.Context, title string) (*domain.MovieMetadata, error) {
	key := strings.ToLower(title)
	if meta, ok := c.cache.get(key); ok {
		c.metrics.CatalogCache.WithLabelValues("hit").Inc()
		return meta, nil
	}
	c.metrics.CatalogCache.WithLabelValues("miss").Inc()

	meta, err := c.inner.SearchMovie(ctx, title)
	if err != nil {
		return nil, err
	}
	// Only cache found results so transient misses can be retried.
	if meta != nil {
		c.cache.put(key, meta)
	}
	return meta, nil
}

// lruCache is a simple thread-safe LRU cache for catalog lookups.
type lruCache struct {
	maxEntries int
	mu         sync.Mutex
	entries    map[string]*entry
	head       *entry // most recently used
	tail       *entry // least recently used
}

type entry struct {
	key   string
	value *domain.MovieMetadata
	prev  *entry
	next  *entry
}

func newLRUCache(maxEntries int) *lruCache {
	return &lruCache{
		maxEntries: maxEntries,
		entries:    make(map[string]*entry),
	}
}

func (c *lruCache) get(key string) (*domain.MovieMetadata, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok {
		return nil, false
	}
	c.moveToFront(e)
	return e.value, true
}

func (c *lruCache) put(key string, value *domain.MovieMetadata) {
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
