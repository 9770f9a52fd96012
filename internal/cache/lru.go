package cache

import (
	"container/list"
	"sync"
	"time"
)

// Options bound an LRUCache. MaxBytes is only enforced when SizeOf is set.
type Options[T any] struct {
	MaxEntries int
	MaxBytes   int64
	TTL        time.Duration
	SizeOf     func(T) int
}

// LRUCache evicts the least recently used entry once it holds more than
// MaxEntries entries or MaxBytes bytes, and drops entries older than TTL.
type LRUCache[T any] struct {
	mu    sync.Mutex
	opts  Options[T]
	index map[string]*list.Element
	order *list.List // front is most recently used
	bytes int64
	now   func() time.Time
}

var _ Cache[int] = (*LRUCache[int])(nil)

type entry[T any] struct {
	key     string
	value   T
	size    int64
	expires time.Time
}

func NewLRUCache[T any](opts Options[T]) *LRUCache[T] {
	if opts.MaxEntries < 1 {
		opts.MaxEntries = 1
	}
	return &LRUCache[T]{
		opts:  opts,
		index: make(map[string]*list.Element),
		order: list.New(),
		now:   time.Now,
	}
}

// BytesCache is an LRU for rendered documents, sized by their length.
func BytesCache(maxEntries int, maxBytes int64, ttl time.Duration) *LRUCache[[]byte] {
	return NewLRUCache(Options[[]byte]{
		MaxEntries: maxEntries,
		MaxBytes:   maxBytes,
		TTL:        ttl,
		SizeOf:     func(b []byte) int { return len(b) },
	})
}

func (c *LRUCache[T]) Get(key string) (T, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var zero T
	el, ok := c.index[key]
	if !ok {
		return zero, false
	}
	e := el.Value.(*entry[T])
	if c.expired(e) {
		c.drop(el)
		return zero, false
	}
	c.order.MoveToFront(el)
	return e.value, true
}

// Set stores value under key. A value larger than MaxBytes on its own is
// not cached at all.
func (c *LRUCache[T]) Set(key string, value T) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var size int64
	if c.opts.SizeOf != nil {
		size = int64(c.opts.SizeOf(value))
		if c.opts.MaxBytes > 0 && size > c.opts.MaxBytes {
			if el, ok := c.index[key]; ok {
				c.drop(el)
			}
			return
		}
	}

	e := &entry[T]{key: key, value: value, size: size}
	if c.opts.TTL > 0 {
		e.expires = c.now().Add(c.opts.TTL)
	}
	if el, ok := c.index[key]; ok {
		c.bytes -= el.Value.(*entry[T]).size
		el.Value = e
		c.order.MoveToFront(el)
	} else {
		c.index[key] = c.order.PushFront(e)
	}
	c.bytes += size

	for c.overBudget() {
		c.drop(c.order.Back())
	}
}

func (c *LRUCache[T]) Delete(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if el, ok := c.index[key]; ok {
		c.drop(el)
	}
}

// DeleteFunc drops every entry whose key matches and returns how many.
func (c *LRUCache[T]) DeleteFunc(match func(key string) bool) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sweep(func(e *entry[T]) bool { return match(e.key) })
}

// CleanExpired drops entries past their TTL.
func (c *LRUCache[T]) CleanExpired() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sweep(c.expired)
}

func (c *LRUCache[T]) Size() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.order.Len()
}

// Bytes reports the summed SizeOf of the cached values.
func (c *LRUCache[T]) Bytes() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.bytes
}

func (c *LRUCache[T]) sweep(remove func(*entry[T]) bool) int {
	n := 0
	for el := c.order.Front(); el != nil; {
		next := el.Next()
		if remove(el.Value.(*entry[T])) {
			c.drop(el)
			n++
		}
		el = next
	}
	return n
}

func (c *LRUCache[T]) overBudget() bool {
	if c.order.Len() > c.opts.MaxEntries {
		return true
	}
	return c.opts.MaxBytes > 0 && c.bytes > c.opts.MaxBytes && c.order.Len() > 1
}

func (c *LRUCache[T]) expired(e *entry[T]) bool {
	return !e.expires.IsZero() && c.now().After(e.expires)
}

func (c *LRUCache[T]) drop(el *list.Element) {
	e := el.Value.(*entry[T])
	c.bytes -= e.size
	delete(c.index, e.key)
	c.order.Remove(el)
}
