package store

import (
	"container/list"
	"sync"

	"github.com/i474232898/terraclime/internal/climate"
)

// DefaultCapacity matches the size of the per-process sample memo.
const DefaultCapacity = 128

type cacheEntry struct {
	key    string
	sample climate.Sample
}

// SampleCache is a concurrency-safe, bounded in-memory cache of historical
// samples. Once full, the entry inserted earliest is evicted first; lookups
// do not refresh an entry's position.
type SampleCache struct {
	mu sync.RWMutex

	// key: query key, value: element in order
	entries map[string]*list.Element
	order   *list.List // front = oldest

	capacity  int
	evictions int
}

// NewSampleCache creates a SampleCache holding at most capacity samples.
// If capacity is <= 0, it is treated as unlimited.
func NewSampleCache(capacity int) *SampleCache {
	return &SampleCache{
		entries:  make(map[string]*list.Element),
		order:    list.New(),
		capacity: capacity,
	}
}

// Get returns the cached sample for key.
func (c *SampleCache) Get(key string) (climate.Sample, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	el, ok := c.entries[key]
	if !ok {
		return climate.Sample{}, false
	}
	return el.Value.(*cacheEntry).sample, true
}

// Put stores a sample. Replacing an existing key keeps its original age.
func (c *SampleCache) Put(key string, s climate.Sample) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if el, ok := c.entries[key]; ok {
		el.Value.(*cacheEntry).sample = s
		return
	}

	c.entries[key] = c.order.PushBack(&cacheEntry{key: key, sample: s})

	// Enforce capacity by evicting the oldest insertions.
	for c.capacity > 0 && c.order.Len() > c.capacity {
		oldest := c.order.Front()
		c.order.Remove(oldest)
		delete(c.entries, oldest.Value.(*cacheEntry).key)
		c.evictions++
	}
}

// Len returns the number of cached samples.
func (c *SampleCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.order.Len()
}

// Keys returns cached keys from oldest to newest.
func (c *SampleCache) Keys() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()

	keys := make([]string, 0, c.order.Len())
	for el := c.order.Front(); el != nil; el = el.Next() {
		keys = append(keys, el.Value.(*cacheEntry).key)
	}
	return keys
}

// Stats reports cache occupancy.
type Stats struct {
	Size      int `json:"size"`
	Capacity  int `json:"capacity"`
	Evictions int `json:"evictions"`
}

// Stats returns current cache statistics.
func (c *SampleCache) Stats() Stats {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return Stats{Size: c.order.Len(), Capacity: c.capacity, Evictions: c.evictions}
}
