package archive

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"
)

// ErrDuplicateEntry is returned by Catalog.Record when the key is already recorded.
var ErrDuplicateEntry = errors.New("archive: duplicate catalog entry")

// Entry describes one archived envelope.
type Entry struct {
	Key        string    `json:"key"`
	QueryMode  string    `json:"query_mode"`
	Entities   int       `json:"entities"`
	Relations  int       `json:"relations"`
	Chunks     int       `json:"chunks"`
	References int       `json:"references"`
	Size       int       `json:"size"`
	CreatedAt  time.Time `json:"created_at"`
}

// Catalog indexes archived envelopes.
// Implementations must be safe for concurrent use.
type Catalog interface {
	// Record adds an entry. It returns ErrDuplicateEntry if the key exists.
	Record(ctx context.Context, e Entry) error
	// Entries returns the entries for a query mode, ordered by creation time.
	Entries(ctx context.Context, queryMode string) ([]Entry, error)
	// Remove deletes an entry. Removing a missing entry is not an error.
	Remove(ctx context.Context, queryMode, key string) error
}

// MemoryCatalog is an in-process Catalog.
type MemoryCatalog struct {
	mu      sync.RWMutex
	entries map[string]map[string]Entry // query mode -> key -> entry
}

var _ Catalog = (*MemoryCatalog)(nil)

// NewMemoryCatalog creates an empty catalog.
func NewMemoryCatalog() *MemoryCatalog {
	return &MemoryCatalog{entries: make(map[string]map[string]Entry)}
}

// Record implements Catalog.
func (c *MemoryCatalog) Record(ctx context.Context, e Entry) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	byKey, ok := c.entries[e.QueryMode]
	if !ok {
		byKey = make(map[string]Entry)
		c.entries[e.QueryMode] = byKey
	}
	if _, exists := byKey[e.Key]; exists {
		return ErrDuplicateEntry
	}
	byKey[e.Key] = e
	return nil
}

// Entries implements Catalog.
func (c *MemoryCatalog) Entries(ctx context.Context, queryMode string) ([]Entry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make([]Entry, 0, len(c.entries[queryMode]))
	for _, e := range c.entries[queryMode] {
		out = append(out, e)
	}
	SortEntries(out)
	return out, nil
}

// Remove implements Catalog.
func (c *MemoryCatalog) Remove(ctx context.Context, queryMode, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries[queryMode], key)
	return nil
}

// SortEntries orders entries by creation time, then key.
func SortEntries(entries []Entry) {
	sort.Slice(entries, func(i, j int) bool {
		if !entries[i].CreatedAt.Equal(entries[j].CreatedAt) {
			return entries[i].CreatedAt.Before(entries[j].CreatedAt)
		}
		return entries[i].Key < entries[j].Key
	})
}

