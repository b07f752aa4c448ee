package repository

type keyed interface {
	Key() string
}

// Collection is an ordered record list indexed by identity.
// Mutations go through Put and Remove so the collection knows it must be written back.
type Collection[T keyed] struct {
	items []T
	index map[string]int
	dirty bool
}

// newCollection indexes items, dropping records without identity and later duplicates.
// It returns how many records were dropped.
func newCollection[T keyed](items []T) (*Collection[T], int) {
	c := &Collection[T]{
		items: make([]T, 0, len(items)),
		index: make(map[string]int, len(items)),
	}
	dropped := 0
	for _, item := range items {
		key := item.Key()
		if key == "" {
			dropped++
			continue
		}
		if _, exists := c.index[key]; exists {
			dropped++
			continue
		}
		c.index[key] = len(c.items)
		c.items = append(c.items, item)
	}
	return c, dropped
}

// Get returns the record stored under key.
func (c *Collection[T]) Get(key string) (T, bool) {
	if pos, ok := c.index[key]; ok {
		return c.items[pos], true
	}
	var zero T
	return zero, false
}

// Has reports whether key is present.
func (c *Collection[T]) Has(key string) bool {
	_, ok := c.index[key]
	return ok
}

// Put inserts the record or replaces the one sharing its key, keeping its position.
func (c *Collection[T]) Put(item T) {
	key := item.Key()
	if pos, ok := c.index[key]; ok {
		c.items[pos] = item
	} else {
		c.index[key] = len(c.items)
		c.items = append(c.items, item)
	}
	c.dirty = true
}

// Remove deletes and returns the record stored under key.
func (c *Collection[T]) Remove(key string) (T, bool) {
	pos, ok := c.index[key]
	if !ok {
		var zero T
		return zero, false
	}
	removed := c.items[pos]
	c.items = append(c.items[:pos], c.items[pos+1:]...)
	c.reindex()
	c.dirty = true
	return removed, true
}

// RemoveWhere deletes every record matching pred and returns them.
func (c *Collection[T]) RemoveWhere(pred func(T) bool) []T {
	var removed []T
	kept := c.items[:0]
	for _, item := range c.items {
		if pred(item) {
			removed = append(removed, item)
			continue
		}
		kept = append(kept, item)
	}
	if len(removed) == 0 {
		return nil
	}
	c.items = kept
	c.reindex()
	c.dirty = true
	return removed
}

// All returns a copy of the records in stored order.
func (c *Collection[T]) All() []T {
	return append([]T(nil), c.items...)
}

// Filter returns the records matching pred in stored order.
func (c *Collection[T]) Filter(pred func(T) bool) []T {
	result := make([]T, 0)
	for _, item := range c.items {
		if pred(item) {
			result = append(result, item)
		}
	}
	return result
}

// Len returns the number of records.
func (c *Collection[T]) Len() int {
	return len(c.items)
}

// Dirty reports whether the collection changed since it was loaded.
func (c *Collection[T]) Dirty() bool {
	return c.dirty
}

func (c *Collection[T]) reindex() {
	c.index = make(map[string]int, len(c.items))
	for i, item := range c.items {
		c.index[item.Key()] = i
	}
}
