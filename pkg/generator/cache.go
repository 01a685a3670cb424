package generator

// cacheEntry holds one generated snippet and its reuse count.
type cacheEntry struct {
	code string
	hits int
}

// Cache stores generated snippets for reuse within a single run, keyed on
// (action description, page-context digest, prior error). It is in-memory
// and unbounded; a new run starts empty. The pipeline executes one action at
// a time with a single reader and writer, so no locking is needed.
type Cache struct {
	entries map[string]*cacheEntry
	hits    int
	misses  int
}

// CacheStats is a snapshot of cache effectiveness counters.
type CacheStats struct {
	Entries int
	Hits    int
	Misses  int
}

// NewCache returns an empty cache.
func NewCache() *Cache {
	return &Cache{entries: make(map[string]*cacheEntry)}
}

// Get returns the snippet stored under key. A hit bumps the hit counters
// and has no other side effect.
func (c *Cache) Get(key string) (string, bool) {
	entry, ok := c.entries[key]
	if !ok {
		c.misses++
		return "", false
	}
	entry.hits++
	c.hits++
	return entry.code, true
}

// Put stores a snippet under key, replacing any previous value.
func (c *Cache) Put(key, code string) {
	c.entries[key] = &cacheEntry{code: code}
}

// Len returns the number of cached snippets.
func (c *Cache) Len() int {
	return len(c.entries)
}

// Stats returns the current counters.
func (c *Cache) Stats() CacheStats {
	return CacheStats{Entries: len(c.entries), Hits: c.hits, Misses: c.misses}
}
