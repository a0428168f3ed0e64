package complexity

import "sync"

type cacheKey struct {
	fen       string
	dimension float64
}

// scoreCache is a bounded map that evicts the oldest inserted key first.
type scoreCache struct {
	mu       sync.Mutex
	capacity int
	items    map[cacheKey]float64
	order    []cacheKey
}

func newScoreCache(capacity int) *scoreCache {
	if capacity < 1 {
		capacity = 1
	}
	return &scoreCache{
		capacity: capacity,
		items:    make(map[cacheKey]float64, capacity),
	}
}

func (c *scoreCache) Get(key cacheKey) (float64, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	var v, ok = c.items[key]
	return v, ok
}

func (c *scoreCache) Put(key cacheKey, value float64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, found := c.items[key]; found {
		c.items[key] = value
		return
	}
	if len(c.items) >= c.capacity {
		var oldest = c.order[0]
		c.order[0] = cacheKey{}
		c.order = c.order[1:]
		delete(c.items, oldest)
	}
	c.items[key] = value
	c.order = append(c.order, key)
}

func (c *scoreCache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items = make(map[cacheKey]float64, c.capacity)
	c.order = nil
}

func (c *scoreCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.items)
}
