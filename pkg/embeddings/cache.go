package embeddings

import "sync"

// cache is a bounded map of text to embedding. When full, the whole cache is
// dropped rather than tracking recency; query texts repeat rarely enough that
// eviction order does not matter.
type cache struct {
	mu      sync.Mutex
	entries map[string][]float32
	maxSize int
	hits    int
	misses  int
}

func newCache(maxSize int) *cache {
	return &cache{
		entries: make(map[string][]float32),
		maxSize: maxSize,
	}
}

func (c *cache) Get(text string) []float32 {
	c.mu.Lock()
	defer c.mu.Unlock()
	if vec, ok := c.entries[text]; ok {
		c.hits++
		return vec
	}
	c.misses++
	return nil
}

func (c *cache) Put(text string, vec []float32) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.entries) >= c.maxSize {
		c.entries = make(map[string][]float32)
	}
	c.entries[text] = vec
}

func (c *cache) Size() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

func (c *cache) Hits() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.hits
}

func (c *cache) Misses() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.misses
}
