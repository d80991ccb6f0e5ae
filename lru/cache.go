package lru

import (
	"container/list"
	"sync"
	"time"
)

type Item[V any] struct {
	data    V
	expires time.Time
	keyPtr  *list.Element
}

// Cache is a bounded LRU cache. Items older than ttl are not returned, zero ttl disables expiration.
type Cache[K comparable, V any] struct {
	queue    *list.List
	items    map[K]*Item[V]
	capacity int
	ttl      time.Duration
	now      func() time.Time
	mx       sync.Mutex
}

func New[K comparable, V any](capacity int, ttl time.Duration) *Cache[K, V] {
	if capacity <= 0 {
		capacity = 1
	}
	return &Cache[K, V]{
		queue:    list.New(),
		items:    map[K]*Item[V]{},
		capacity: capacity,
		ttl:      ttl,
		now:      time.Now,
	}
}

func (c *Cache[K, V]) removeElement(e *list.Element) {
	c.queue.Remove(e)
	delete(c.items, e.Value.(K)) //nolint:forcetypeassert // no need
}

func (c *Cache[K, V]) expiration() time.Time {
	if c.ttl == 0 {
		return time.Time{}
	}
	return c.now().Add(c.ttl)
}

func (c *Cache[K, V]) expired(item *Item[V]) bool {
	return !item.expires.IsZero() && c.now().After(item.expires)
}

func (c *Cache[K, V]) Put(k K, v V) {
	c.mx.Lock()
	defer c.mx.Unlock()

	if item, ok := c.items[k]; ok {
		item.data = v
		item.expires = c.expiration()
		c.queue.MoveToFront(item.keyPtr)
		return
	}

	if c.capacity == len(c.items) {
		c.removeElement(c.queue.Back())
	}
	c.items[k] = &Item[V]{
		data:    v,
		expires: c.expiration(),
		keyPtr:  c.queue.PushFront(k),
	}
}

func (c *Cache[K, V]) Get(key K) (v V, ok bool) { //nolint:ireturn // returns generic interface (V) of type param any
	c.mx.Lock()
	defer c.mx.Unlock()

	item, ok := c.items[key]
	if !ok {
		return v, false
	}
	if c.expired(item) {
		c.removeElement(item.keyPtr)
		return v, false
	}

	c.queue.MoveToFront(item.keyPtr)
	return item.data, true
}

func (c *Cache[K, V]) Len() int {
	c.mx.Lock()
	defer c.mx.Unlock()

	return len(c.items)
}

func (c *Cache[K, V]) Keys() (keys []K) {
	c.mx.Lock()
	defer c.mx.Unlock()

	for k := range c.items {
		keys = append(keys, k)
	}
	return keys
}
