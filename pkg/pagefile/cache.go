package pagefile

import (
	"container/list"
	"sync"
)

// PageCache is an LRU cache for clean pages read back from the file.
// Buffers handed to Put are owned by the cache; buffers returned by
// Get must not be modified.
type PageCache struct {
	mu       sync.RWMutex
	capacity int
	cache    map[uint64]*list.Element
	lru      *list.List

	// Statistics
	hits   int64
	misses int64
}

type cacheEntry struct {
	page uint64
	buf  []byte
}

// NewPageCache creates a new LRU page cache holding up to capacity pages.
func NewPageCache(capacity int) *PageCache {
	return &PageCache{
		capacity: capacity,
		cache:    make(map[uint64]*list.Element),
		lru:      list.New(),
	}
}

// Get retrieves a page from the cache
func (pc *PageCache) Get(page uint64) ([]byte, bool) {
	pc.mu.Lock()
	defer pc.mu.Unlock()

	if elem, ok := pc.cache[page]; ok {
		// Move to front (most recently used)
		pc.lru.MoveToFront(elem)
		pc.hits++
		return elem.Value.(*cacheEntry).buf, true
	}

	pc.misses++
	return nil, false
}

// Put adds a page to the cache
func (pc *PageCache) Put(page uint64, buf []byte) {
	pc.mu.Lock()
	defer pc.mu.Unlock()

	// Check if page already cached
	if elem, ok := pc.cache[page]; ok {
		// Update buffer and move to front
		pc.lru.MoveToFront(elem)
		elem.Value.(*cacheEntry).buf = buf
		return
	}

	// Add new entry
	entry := &cacheEntry{
		page: page,
		buf:  buf,
	}
	elem := pc.lru.PushFront(entry)
	pc.cache[page] = elem

	// Evict if over capacity
	if pc.lru.Len() > pc.capacity {
		pc.evict()
	}
}

// evict removes the least recently used entry
func (pc *PageCache) evict() {
	elem := pc.lru.Back()
	if elem != nil {
		pc.lru.Remove(elem)
		entry := elem.Value.(*cacheEntry)
		delete(pc.cache, entry.page)
	}
}

// Clear removes all entries from the cache
func (pc *PageCache) Clear() {
	pc.mu.Lock()
	defer pc.mu.Unlock()

	pc.cache = make(map[uint64]*list.Element)
	pc.lru = list.New()
	pc.hits = 0
	pc.misses = 0
}

// Stats returns cache statistics
func (pc *PageCache) Stats() (hits, misses int64, hitRate float64) {
	pc.mu.RLock()
	defer pc.mu.RUnlock()

	hits = pc.hits
	misses = pc.misses
	total := hits + misses
	if total > 0 {
		hitRate = float64(hits) / float64(total)
	}
	return
}

// Size returns the current number of cached pages
func (pc *PageCache) Size() int {
	pc.mu.RLock()
	defer pc.mu.RUnlock()
	return pc.lru.Len()
}

// Delete removes a page from the cache
func (pc *PageCache) Delete(page uint64) {
	pc.mu.Lock()
	defer pc.mu.Unlock()

	if elem, ok := pc.cache[page]; ok {
		pc.lru.Remove(elem)
		delete(pc.cache, page)
	}
}
