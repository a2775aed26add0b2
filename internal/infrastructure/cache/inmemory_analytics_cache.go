package cache

import (
	"context"
	"sync"
	"time"

	"github.com/formbox/backend/internal/domain/forms"
)

// statsEntry holds one cached statistics value with its expiry
type statsEntry struct {
	stats     forms.FieldStats
	expiresAt time.Time
}

// InMemoryAnalyticsCache implements AnalyticsCache with a process-local map.
// Suitable for single-instance deployments and testing; instances do not
// share cached statistics.
type InMemoryAnalyticsCache struct {
	mu        sync.RWMutex
	entries   map[string]statsEntry
	stopChan  chan struct{}
	wg        sync.WaitGroup
	closeOnce sync.Once
}

// NewInMemoryAnalyticsCache creates an in-memory analytics cache and starts
// a background goroutine that evicts expired entries
func NewInMemoryAnalyticsCache() *InMemoryAnalyticsCache {
	c := &InMemoryAnalyticsCache{
		entries:  make(map[string]statsEntry),
		stopChan: make(chan struct{}),
	}

	c.wg.Add(1)
	go c.cleanupLoop()

	return c
}

// Get returns the cached statistics for a table, if present and not expired
func (c *InMemoryAnalyticsCache) Get(_ context.Context, tableName string) (*forms.FieldStats, bool, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	e, ok := c.entries[tableName]
	if !ok || time.Now().After(e.expiresAt) {
		return nil, false, nil
	}
	stats := e.stats
	return &stats, true, nil
}

// Set stores the statistics for a table with the given TTL
func (c *InMemoryAnalyticsCache) Set(_ context.Context, tableName string, stats *forms.FieldStats, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries[tableName] = statsEntry{
		stats:     *stats,
		expiresAt: time.Now().Add(ttl),
	}
	return nil
}

// Invalidate drops the cached statistics for a table
func (c *InMemoryAnalyticsCache) Invalidate(_ context.Context, tableName string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	delete(c.entries, tableName)
	return nil
}

// Close stops the cleanup goroutine
func (c *InMemoryAnalyticsCache) Close() error {
	c.closeOnce.Do(func() {
		close(c.stopChan)
	})
	c.wg.Wait()
	return nil
}

// cleanupLoop periodically removes expired entries
func (c *InMemoryAnalyticsCache) cleanupLoop() {
	defer c.wg.Done()

	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-c.stopChan:
			return
		case <-ticker.C:
			c.evictExpired()
		}
	}
}

func (c *InMemoryAnalyticsCache) evictExpired() {
	now := time.Now()

	c.mu.Lock()
	defer c.mu.Unlock()

	for key, e := range c.entries {
		if now.After(e.expiresAt) {
			delete(c.entries, key)
		}
	}
}

// Ensure InMemoryAnalyticsCache implements AnalyticsCache
var _ AnalyticsCache = (*InMemoryAnalyticsCache)(nil)
