package geocode

import (
	"context"
	"errors"
	"strings"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/text/unicode/norm"

	"github.com/meowafisha/eventmap/internal/model"
	"github.com/meowafisha/eventmap/internal/store"
)

// NormalizeAddress returns the cache key for an address: NFC form, trimmed,
// internal whitespace runs collapsed to one space. Case is kept.
func NormalizeAddress(addr string) string {
	return strings.Join(strings.Fields(norm.NFC.String(addr)), " ")
}

// CacheStats summarizes cache contents.
type CacheStats struct {
	Resolved   int `json:"resolved"`
	Unresolved int `json:"unresolved"`
}

// Cache maps normalized addresses to coordinates. Unresolved coordinates
// are a sentinel meaning every provider failed last time it was tried.
// It is safe for concurrent use.
type Cache struct {
	mu      sync.RWMutex
	entries map[string]model.Coordinates
	dirty   bool
}

// NewCache creates an empty cache.
func NewCache() *Cache {
	return &Cache{entries: make(map[string]model.Coordinates)}
}

// NewCacheFrom creates a cache seeded with entries. Keys are normalized;
// when two keys collapse to one, a resolved value wins.
func NewCacheFrom(entries map[string]model.Coordinates) *Cache {
	c := NewCache()
	for addr, coords := range entries {
		key := NormalizeAddress(addr)
		if key == "" {
			continue
		}
		if prev, ok := c.entries[key]; ok && prev.Valid && !coords.Valid {
			continue
		}
		c.entries[key] = coords
	}
	return c
}

// Lookup returns the cached coordinates for addr.
func (c *Cache) Lookup(addr string) (model.Coordinates, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	coords, ok := c.entries[NormalizeAddress(addr)]
	return coords, ok
}

// Store records coordinates for addr. An unresolved sentinel never replaces
// resolved coordinates. The cache becomes dirty only when a value changes.
func (c *Cache) Store(addr string, coords model.Coordinates) {
	key := NormalizeAddress(addr)
	if key == "" {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	prev, ok := c.entries[key]
	if ok && prev.Valid && !coords.Valid {
		return
	}
	if ok && prev == coords {
		return
	}
	c.entries[key] = coords
	c.dirty = true
}

// Dirty reports whether the cache changed since it was loaded or saved.
func (c *Cache) Dirty() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.dirty
}

// Len returns the number of cached addresses.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// Stats counts resolved and sentinel entries.
func (c *Cache) Stats() CacheStats {
	c.mu.RLock()
	defer c.mu.RUnlock()
	var s CacheStats
	for _, coords := range c.entries {
		if coords.Valid {
			s.Resolved++
		} else {
			s.Unresolved++
		}
	}
	return s
}

// PruneUnresolved drops every sentinel entry and returns how many were removed.
func (c *Cache) PruneUnresolved() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for key, coords := range c.entries {
		if !coords.Valid {
			delete(c.entries, key)
			n++
		}
	}
	if n > 0 {
		c.dirty = true
	}
	return n
}

// LoadCache reads the cache document stored under key. A missing or corrupt
// document yields an empty cache; only store failures are returned.
func LoadCache(ctx context.Context, st store.BlobStore, key string) (*Cache, error) {
	var entries map[string]model.Coordinates
	found, err := store.GetJSON(ctx, st, key, &entries)
	var corrupt *store.CorruptError
	if errors.As(err, &corrupt) {
		zap.L().Warn("geocode cache unreadable, starting empty", zap.String("key", key), zap.Error(err))
		return NewCache(), nil
	}
	if err != nil {
		return nil, err
	}
	if !found {
		zap.L().Info("geocode cache not found, starting empty", zap.String("key", key))
		return NewCache(), nil
	}

	c := NewCacheFrom(entries)
	zap.L().Info("geocode cache loaded", zap.Int("addresses", c.Len()))
	return c, nil
}

// Save writes the cache under key if it changed. It reports whether a write
// happened.
func (c *Cache) Save(ctx context.Context, st store.BlobStore, key string) (bool, error) {
	if !c.Dirty() {
		zap.L().Info("geocode cache unchanged, skipping save")
		return false, nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if err := store.PutJSON(ctx, st, key, c.entries); err != nil {
		return false, err
	}
	c.dirty = false
	zap.L().Info("geocode cache saved", zap.Int("addresses", len(c.entries)))
	return true, nil
}
