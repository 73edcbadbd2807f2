package catalog

import (
	"context"
	"sort"
	"sync"
)

// MemoryCatalog is an in-process Catalog for tests and single-node use.
type MemoryCatalog struct {
	mu      sync.RWMutex
	entries map[string]Entry
}

// NewMemoryCatalog creates an empty in-memory catalog.
func NewMemoryCatalog() *MemoryCatalog {
	return &MemoryCatalog{
		entries: make(map[string]Entry),
	}
}

// Create registers the entry, honoring replace semantics.
func (c *MemoryCatalog) Create(_ context.Context, entry Entry, replace bool) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.entries[entry.Name]; ok && !replace {
		return ErrIndexExists
	}
	c.entries[entry.Name] = entry
	return nil
}

// Get returns the entry with the given name.
func (c *MemoryCatalog) Get(_ context.Context, name string) (Entry, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	entry, ok := c.entries[name]
	if !ok {
		return Entry{}, ErrIndexNotFound
	}
	return entry, nil
}

// Delete removes the entry.
func (c *MemoryCatalog) Delete(_ context.Context, name string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	delete(c.entries, name)
	return nil
}

// List returns all entries sorted by name.
func (c *MemoryCatalog) List(_ context.Context) ([]Entry, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	entries := make([]Entry, 0, len(c.entries))
	for _, entry := range c.entries {
		entries = append(entries, entry)
	}
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Name < entries[j].Name
	})
	return entries, nil
}
