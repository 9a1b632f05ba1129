package resample

import "sync"

// lruCache is a thread-safe LRU of geometries keyed by sensor ID.
type lruCache struct {
	maxEntries int
	mu         sync.Mutex
	entries    map[string]*lruEntry
	head       *lruEntry // most recently used
	tail       *lruEntry // least recently used
}

type lruEntry struct {
	key   string
	value *Geometry
	prev  *lruEntry
	next  *lruEntry
}

func newLRUCache(maxEntries int) *lruCache {
	return &lruCache{
		maxEntries: maxEntries,
		entries:    make(map[string]*lruEntry),
	}
}

func (c *lruCache) get(key string) (*Geometry, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok {
		return nil, false
	}
	c.moveToFront(e)
	return e.value, true
}

func (c *lruCache) put(key string, value *Geometry) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if e, ok := c.entries[key]; ok {
		e.value = value
		c.moveToFront(e)
		return
	}

	e := &lruEntry{key: key, value: value}
	c.entries[key] = e
	c.pushFront(e)

	for len(c.entries) > c.maxEntries {
		c.unlink(c.tail)
	}
}

func (c *lruCache) delete(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if e, ok := c.entries[key]; ok {
		c.unlink(e)
	}
}

func (c *lruCache) len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

func (c *lruCache) moveToFront(e *lruEntry) {
	if e == c.head {
		return
	}
	c.detach(e)
	c.pushFront(e)
}

func (c *lruCache) pushFront(e *lruEntry) {
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

func (c *lruCache) detach(e *lruEntry) {
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

// unlink removes e from both the list and the index.
func (c *lruCache) unlink(e *lruEntry) {
	delete(c.entries, e.key)
	c.detach(e)
}
