// internal/cache/cache.go
package cache

import (
	"container/list"
	"context"
	"strings"
	"sync"
	"time"

	"github.com/law-makers/tracktime/pkg/models"
	"github.com/rs/zerolog/log"
)

// DefaultTTL applies when Set is called without one
const DefaultTTL = 6 * time.Hour

// Cache stores resolved tracking results by code.
//
// Implementations:
//   - MemoryCache: in-process LRU with expiry
//   - RedisCache: shared across processes
type Cache interface {
	// Get returns the cached result for code and whether it was found
	Get(ctx context.Context, code string) (*models.TrackingResult, bool)

	// Set stores result under its tracking code for ttl
	Set(ctx context.Context, result models.TrackingResult, ttl time.Duration) error

	// Delete removes a cached result. A missing key is not an error.
	Delete(ctx context.Context, code string) error

	// Close releases background resources
	Close() error
}

// Key is the cache key for a tracking code
func Key(code string) string {
	return "tracktime:result:" + strings.ToUpper(strings.TrimSpace(code))
}

type cacheEntry struct {
	Result    models.TrackingResult
	ExpiresAt time.Time
	Key       string
}

// MemoryCache is an LRU bounded by entry count
type MemoryCache struct {
	store      map[string]*list.Element
	lruList    *list.List
	mu         sync.Mutex
	maxEntries int
	now        func() time.Time
	ctx        context.Context
	cancel     context.CancelFunc
	hits       uint64
	misses     uint64
}

// NewMemoryCache creates a cache holding at most maxEntries results
func NewMemoryCache(maxEntries int) *MemoryCache {
	if maxEntries <= 0 {
		maxEntries = 10000
	}

	ctx, cancel := context.WithCancel(context.Background())

	mc := &MemoryCache{
		store:      make(map[string]*list.Element),
		lruList:    list.New(),
		maxEntries: maxEntries,
		now:        time.Now,
		ctx:        ctx,
		cancel:     cancel,
	}

	go mc.cleanupExpired()

	return mc
}

// Get moves a live entry to the front and returns a copy of it
func (mc *MemoryCache) Get(_ context.Context, code string) (*models.TrackingResult, bool) {
	key := Key(code)

	mc.mu.Lock()
	element, exists := mc.store[key]
	if !exists {
		mc.misses++
		mc.mu.Unlock()
		return nil, false
	}

	entry := element.Value.(*cacheEntry)
	if mc.now().After(entry.ExpiresAt) {
		mc.lruList.Remove(element)
		delete(mc.store, key)
		mc.misses++
		mc.mu.Unlock()
		return nil, false
	}

	mc.lruList.MoveToFront(element)
	mc.hits++
	result := entry.Result
	mc.mu.Unlock()

	log.Debug().Str("tracking_code", code).Msg("Cache hit")
	return &result, true
}

// Set stores result, evicting the least recently used entries when full
func (mc *MemoryCache) Set(_ context.Context, result models.TrackingResult, ttl time.Duration) error {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	key := Key(result.TrackingCode)

	mc.mu.Lock()
	defer mc.mu.Unlock()

	entry := &cacheEntry{
		Result:    result,
		ExpiresAt: mc.now().Add(ttl),
		Key:       key,
	}

	if element, exists := mc.store[key]; exists {
		element.Value = entry
		mc.lruList.MoveToFront(element)
		return nil
	}

	for mc.lruList.Len() >= mc.maxEntries {
		mc.evictLRU()
	}

	mc.store[key] = mc.lruList.PushFront(entry)

	log.Debug().
		Str("tracking_code", result.TrackingCode).
		Str("status", string(result.DeliveryStatus)).
		Dur("ttl", ttl).
		Msg("Cached result")

	return nil
}

// Delete removes a cached result
func (mc *MemoryCache) Delete(_ context.Context, code string) error {
	key := Key(code)

	mc.mu.Lock()
	defer mc.mu.Unlock()

	if element, exists := mc.store[key]; exists {
		mc.lruList.Remove(element)
		delete(mc.store, key)
	}
	return nil
}

// Close stops the background cleanup goroutine
func (mc *MemoryCache) Close() error {
	mc.cancel()
	return nil
}

// Len returns the number of entries, expired ones included
func (mc *MemoryCache) Len() int {
	mc.mu.Lock()
	defer mc.mu.Unlock()
	return mc.lruList.Len()
}

// must be called with the lock held
func (mc *MemoryCache) evictLRU() {
	element := mc.lruList.Back()
	if element == nil {
		return
	}
	entry := element.Value.(*cacheEntry)
	mc.lruList.Remove(element)
	delete(mc.store, entry.Key)

	log.Debug().Str("key", entry.Key).Msg("Evicted from cache (LRU)")
}

func (mc *MemoryCache) cleanupExpired() {
	ticker := time.NewTicker(1 * time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			mc.removeExpired()
		case <-mc.ctx.Done():
			return
		}
	}
}

func (mc *MemoryCache) removeExpired() int {
	mc.mu.Lock()
	defer mc.mu.Unlock()

	now := mc.now()
	removed := 0
	var next *list.Element
	for element := mc.lruList.Front(); element != nil; element = next {
		next = element.Next()
		entry := element.Value.(*cacheEntry)
		if now.After(entry.ExpiresAt) {
			mc.lruList.Remove(element)
			delete(mc.store, entry.Key)
			removed++
		}
	}
	return removed
}

// Stats returns cache statistics including hit rate
func (mc *MemoryCache) Stats() map[string]interface{} {
	mc.mu.Lock()
	defer mc.mu.Unlock()

	hitRate := 0.0
	total := mc.hits + mc.misses
	if total > 0 {
		hitRate = float64(mc.hits) / float64(total) * 100
	}

	return map[string]interface{}{
		"entries":     mc.lruList.Len(),
		"max_entries": mc.maxEntries,
		"hits":        mc.hits,
		"misses":      mc.misses,
		"hit_rate":    hitRate,
	}
}

// Nop never stores anything
type Nop struct{}

func (Nop) Get(context.Context, string) (*models.TrackingResult, bool) { return nil, false }
func (Nop) Set(context.Context, models.TrackingResult, time.Duration) error { return nil }
func (Nop) Delete(context.Context, string) error { return nil }
func (Nop) Close() error { return nil }
