package repository

import (
	"context"
	"strconv"
	"sync"
	"time"

	"hotelbooking/internal/models"
)

type cacheEntry struct {
	rooms     []models.AvailableRoom
	expiresAt time.Time
}

// MemorySearchCache drops writes whose generation predates the last
// Invalidate.
type MemorySearchCache struct {
	mu      sync.RWMutex
	entries map[string]cacheEntry
	epoch   uint64
	now     func() time.Time
}

func NewMemorySearchCache() *MemorySearchCache {
	return &MemorySearchCache{entries: make(map[string]cacheEntry), now: time.Now}
}

func (c *MemorySearchCache) GetRooms(_ context.Context, key string) ([]models.AvailableRoom, bool, error) {
	c.mu.RLock()
	entry, ok := c.entries[key]
	c.mu.RUnlock()
	if !ok || c.now().After(entry.expiresAt) {
		return nil, false, nil
	}
	out := make([]models.AvailableRoom, len(entry.rooms))
	copy(out, entry.rooms)
	return out, true, nil
}

func (c *MemorySearchCache) Generation(_ context.Context) (string, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return strconv.FormatUint(c.epoch, 10), nil
}

func (c *MemorySearchCache) SetRooms(_ context.Context, gen, key string, rooms []models.AvailableRoom, ttl time.Duration) error {
	stored := make([]models.AvailableRoom, len(rooms))
	copy(stored, rooms)

	c.mu.Lock()
	defer c.mu.Unlock()
	if gen != strconv.FormatUint(c.epoch, 10) {
		return nil
	}
	c.entries[key] = cacheEntry{rooms: stored, expiresAt: c.now().Add(ttl)}
	return nil
}

func (c *MemorySearchCache) Invalidate(_ context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]cacheEntry)
	c.epoch++
	return nil
}

type MemoryDeduper struct {
	keys sync.Map
	now  func() time.Time
}

func NewMemoryDeduper() *MemoryDeduper {
	return &MemoryDeduper{now: time.Now}
}

func (d *MemoryDeduper) Seen(_ context.Context, key string) (bool, error) {
	val, ok := d.keys.Load(key)
	if !ok {
		return false, nil
	}
	if d.now().After(val.(time.Time)) {
		d.keys.Delete(key)
		return false, nil
	}
	return true, nil
}

func (d *MemoryDeduper) Mark(_ context.Context, key string, ttl time.Duration) error {
	d.keys.Store(key, d.now().Add(ttl))
	return nil
}
