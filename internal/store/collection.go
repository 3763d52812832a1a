package store

import "sync"

// collection is an insertion-ordered keyed set of records of one entity kind,
// with an optional unique secondary index. Every method holds the collection
// lock for its whole duration, so index and primary record change together.
type collection[T any] struct {
	mu      sync.RWMutex
	items   map[string]T
	order   []string
	byKey   map[string]string
	orgOf   func(T) string
	keyOf   func(T) string
	cloneFn func(T) T
}

func newCollection[T any](orgOf func(T) string, cloneFn func(T) T) *collection[T] {
	return &collection[T]{
		items:   make(map[string]T),
		orgOf:   orgOf,
		cloneFn: cloneFn,
	}
}

// withUniqueIndex adds a secondary index. keyOf must be stable under update.
func (c *collection[T]) withUniqueIndex(keyOf func(T) string) *collection[T] {
	c.byKey = make(map[string]string)
	c.keyOf = keyOf
	return c
}

func (c *collection[T]) insert(id string, v T) (T, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.insertLocked(id, v)
}

func (c *collection[T]) insertLocked(id string, v T) (T, bool) {
	var zero T
	if _, exists := c.items[id]; exists {
		return zero, false
	}
	if c.keyOf != nil {
		if _, taken := c.byKey[c.keyOf(v)]; taken {
			return zero, false
		}
		c.byKey[c.keyOf(v)] = id
	}
	c.items[id] = c.cloneFn(v)
	c.order = append(c.order, id)
	return c.cloneFn(v), true
}

func (c *collection[T]) get(id string) (T, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	v, ok := c.items[id]
	if !ok {
		return v, false
	}
	return c.cloneFn(v), true
}

func (c *collection[T]) getByKey(key string) (T, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	var zero T
	id, ok := c.byKey[key]
	if !ok {
		return zero, false
	}
	return c.cloneFn(c.items[id]), true
}

func (c *collection[T]) listByOrg(orgID string, keep func(T) bool) []T {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]T, 0)
	for _, id := range c.order {
		v := c.items[id]
		if c.orgOf(v) != orgID {
			continue
		}
		if keep != nil && !keep(v) {
			continue
		}
		out = append(out, c.cloneFn(v))
	}
	return out
}

// update applies fn to a copy of the record and stores the result.
// fn must not change the record's id, org or unique key.
func (c *collection[T]) update(id string, fn func(*T)) (T, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.items[id]
	if !ok {
		return v, false
	}
	next := c.cloneFn(v)
	fn(&next)
	c.items[id] = next
	return c.cloneFn(next), true
}

func (c *collection[T]) delete(id string) (T, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.items[id]
	if !ok {
		return v, false
	}
	delete(c.items, id)
	if c.keyOf != nil {
		delete(c.byKey, c.keyOf(v))
	}
	for i, oid := range c.order {
		if oid == id {
			c.order = append(c.order[:i], c.order[i+1:]...)
			break
		}
	}
	return v, true
}
