package labels

import "slices"

// Entry is one key and its count.
type Entry struct {
	Key   string
	Count int
}

// Counter counts keys and remembers the order they were first seen.
// Missing keys count as zero.
type Counter struct {
	order  []string
	counts map[string]int
}

// NewCounter returns an empty Counter.
func NewCounter() *Counter {
	return &Counter{counts: make(map[string]int)}
}

// Add increments key by n.
func (c *Counter) Add(key string, n int) {
	if _, ok := c.counts[key]; !ok {
		c.order = append(c.order, key)
	}
	c.counts[key] += n
}

// Get returns the count for key, zero if unseen.
func (c *Counter) Get(key string) int {
	if c == nil {
		return 0
	}
	return c.counts[key]
}

// Len returns the number of distinct keys.
func (c *Counter) Len() int {
	return len(c.order)
}

// Keys returns the keys in first-seen order.
func (c *Counter) Keys() []string {
	return slices.Clone(c.order)
}

// MostCommon returns the n highest counts, largest first. Ties keep
// first-seen order. n < 0 returns every key.
func (c *Counter) MostCommon(n int) []Entry {
	entries := make([]Entry, 0, len(c.order))
	for _, k := range c.order {
		entries = append(entries, Entry{Key: k, Count: c.counts[k]})
	}
	slices.SortStableFunc(entries, func(a, b Entry) int {
		return b.Count - a.Count
	})
	if n >= 0 && n < len(entries) {
		entries = entries[:n]
	}
	return entries
}
