// Package imagecache provides a bounded least-recently-used cache for
// rendered display arrays. Windowing a full-resolution slice is the
// most expensive step of interactive viewing, so repeated requests with
// identical display parameters are served from here instead.
package imagecache

import (
	"container/list"
	"sync"

	"dicomcore/internal/models"
)

// DefaultMaxEntries is the cache capacity used when none is given.
const DefaultMaxEntries = 200

// Key identifies one rendered result. Equality is structural and
// exact: near-identical window values produce distinct keys, so
// callers quantize display parameters before rendering.
type Key struct {
	ImageID string
	Width   float64
	Center  float64
	Invert  bool
}

type entry struct {
	key  Key
	data []uint8
}

// Cache is a fixed-capacity LRU cache mapping (image, display
// parameters) to the rendered 8-bit display array. It is the only
// shared mutable state in the processing core; a single mutex
// serializes all access.
type Cache struct {
	mu         sync.Mutex
	maxEntries int
	order      *list.List // front = most recently used
	items      map[Key]*list.Element
}

// New creates a cache holding at most maxEntries rendered arrays.
// A non-positive capacity falls back to DefaultMaxEntries.
func New(maxEntries int) *Cache {
	if maxEntries <= 0 {
		maxEntries = DefaultMaxEntries
	}
	return &Cache{
		maxEntries: maxEntries,
		order:      list.New(),
		items:      make(map[Key]*list.Element),
	}
}

func makeKey(imageID string, params models.DisplayParameters) Key {
	return Key{
		ImageID: imageID,
		Width:   params.Width,
		Center:  params.Center,
		Invert:  params.Invert,
	}
}

// Get returns the cached display array for the given image and display
// parameters. A hit promotes the entry to most recently used.
func (c *Cache) Get(imageID string, params models.DisplayParameters) ([]uint8, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	elem, ok := c.items[makeKey(imageID, params)]
	if !ok {
		return nil, false
	}
	c.order.MoveToFront(elem)
	return elem.Value.(*entry).data, true
}

// Put stores a rendered display array. Re-inserting an existing key
// updates its value and recency without consuming extra capacity;
// inserting a new key at capacity evicts the least recently used entry
// first.
func (c *Cache) Put(imageID string, params models.DisplayParameters, data []uint8) {
	c.mu.Lock()
	defer c.mu.Unlock()

	key := makeKey(imageID, params)
	if elem, ok := c.items[key]; ok {
		elem.Value.(*entry).data = data
		c.order.MoveToFront(elem)
		return
	}

	if c.order.Len() >= c.maxEntries {
		oldest := c.order.Back()
		if oldest != nil {
			c.order.Remove(oldest)
			delete(c.items, oldest.Value.(*entry).key)
		}
	}
	c.items[key] = c.order.PushFront(&entry{key: key, data: data})
}

// Clear drops every entry. Used when a global display assumption
// changes and invalidates all cached renders at once.
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.order.Init()
	c.items = make(map[Key]*list.Element)
}

// Len returns the current number of cached entries.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.order.Len()
}
