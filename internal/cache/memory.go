package cache

import (
	"container/list"
	"context"
	"path"
	"sync"
	"time"
)

// MemoryStore is an in-process Store: LRU with per-key TTL and size-based eviction.
type MemoryStore struct {
	mu      sync.Mutex
	maxSize int
	now     func() time.Time
	items   map[string]*list.Element
	lru     *list.List
}

type entry struct {
	key       string
	data      []byte
	expiresAt time.Time
}

var _ Store = (*MemoryStore)(nil)

// NewMemoryStore creates a store holding at most maxSize keys.
func NewMemoryStore(maxSize int) *MemoryStore {
	if maxSize <= 0 {
		maxSize = 10000
	}
	return &MemoryStore{
		maxSize: maxSize,
		now:     time.Now,
		items:   make(map[string]*list.Element),
		lru:     list.New(),
	}
}

// Get retrieves a value from the cache
func (c *MemoryStore) Get(_ context.Context, key string) ([]byte, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	elem, exists := c.items[key]
	if !exists {
		return nil, false, nil
	}

	item := elem.Value.(*entry)
	if !c.now().Before(item.expiresAt) {
		c.removeElement(elem)
		return nil, false, nil
	}

	// Move to front (most recently used)
	c.lru.MoveToFront(elem)
	return append([]byte(nil), item.data...), true, nil
}

// Set stores a value in the cache
func (c *MemoryStore) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	item := &entry{
		key:       key,
		data:      append([]byte(nil), value...),
		expiresAt: c.now().Add(ttl),
	}

	if elem, exists := c.items[key]; exists {
		elem.Value = item
		c.lru.MoveToFront(elem)
		return nil
	}

	elem := c.lru.PushFront(item)
	c.items[key] = elem

	// Evict if over capacity
	if c.lru.Len() > c.maxSize {
		if oldest := c.lru.Back(); oldest != nil {
			c.removeElement(oldest)
		}
	}
	return nil
}

// Delete removes a key from the cache
func (c *MemoryStore) Delete(_ context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if elem, exists := c.items[key]; exists {
		c.removeElement(elem)
	}
	return nil
}

// KeysMatching returns live keys matching pattern. Keys never contain '/',
// so path.Match globbing applies to the whole key.
func (c *MemoryStore) KeysMatching(_ context.Context, pattern string) ([]string, error) {
	if _, err := path.Match(pattern, ""); err != nil {
		return nil, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	var out []string
	for key, elem := range c.items {
		if !now.Before(elem.Value.(*entry).expiresAt) {
			continue
		}
		if ok, _ := path.Match(pattern, key); ok {
			out = append(out, key)
		}
	}
	return out, nil
}

func (c *MemoryStore) DeleteMany(_ context.Context, keys []string) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	n := 0
	for _, key := range keys {
		if elem, exists := c.items[key]; exists {
			c.removeElement(elem)
			n++
		}
	}
	return n, nil
}

func (c *MemoryStore) Ping(context.Context) error { return nil }

func (c *MemoryStore) Close() error { return nil }

func (c *MemoryStore) removeElement(elem *list.Element) {
	item := elem.Value.(*entry)
	delete(c.items, item.key)
	c.lru.Remove(elem)
}

// CleanExpired removes all expired entries and returns count of removed items
func (c *MemoryStore) CleanExpired() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	var toRemove []*list.Element
	for elem := c.lru.Front(); elem != nil; elem = elem.Next() {
		if !now.Before(elem.Value.(*entry).expiresAt) {
			toRemove = append(toRemove, elem)
		}
	}
	for _, elem := range toRemove {
		c.removeElement(elem)
	}
	return len(toRemove)
}

// Size returns the current number of items in the cache
func (c *MemoryStore) Size() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.items)
}
