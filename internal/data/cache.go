package data

import (
	"crypto/sha256"
	"encoding/hex"
	"os"
	"sync"
	"time"

	"prepaid-reconcile/internal/model"
)

// CacheEntry is one cached ledger download.
type CacheEntry struct {
	Rows      []model.LedgerRow
	ExpiresAt time.Time
}

// ResponseCache keeps whole-account ledger downloads in memory so repeated
// reconciliations of different windows hit the billing engine once.
//
// Enabled with ENABLE_LEDGER_CACHE=true; never enabled when API_ENV=production,
// since the upstream ledger changes whenever the daily task runs.
type ResponseCache struct {
	mu    sync.RWMutex
	store map[string]*CacheEntry
	ttl   time.Duration
}

var globalCache *ResponseCache
var cacheOnce sync.Once

// GetCache returns the global cache instance, or nil when caching is disabled.
func GetCache() *ResponseCache {
	if os.Getenv("ENABLE_LEDGER_CACHE") != "true" {
		return nil
	}
	if os.Getenv("API_ENV") == "production" {
		return nil
	}

	cacheOnce.Do(func() {
		ttl := 10 * time.Minute
		if ttlStr := os.Getenv("LEDGER_CACHE_TTL"); ttlStr != "" {
			if parsed, err := time.ParseDuration(ttlStr); err == nil {
				ttl = parsed
			}
		}
		globalCache = NewResponseCache(ttl)
		go globalCache.cleanup()
	})
	return globalCache
}

func NewResponseCache(ttl time.Duration) *ResponseCache {
	return &ResponseCache{
		store: make(map[string]*CacheEntry),
		ttl:   ttl,
	}
}

// Get retrieves cached rows if present and not expired.
func (c *ResponseCache) Get(key string) ([]model.LedgerRow, bool) {
	if c == nil {
		return nil, false
	}

	c.mu.RLock()
	defer c.mu.RUnlock()

	entry, exists := c.store[key]
	if !exists {
		return nil, false
	}
	if time.Now().After(entry.ExpiresAt) {
		return nil, false
	}
	return entry.Rows, true
}

func (c *ResponseCache) Set(key string, rows []model.LedgerRow) {
	if c == nil {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.store[key] = &CacheEntry{
		Rows:      rows,
		ExpiresAt: time.Now().Add(c.ttl),
	}
}

func (c *ResponseCache) Clear() {
	if c == nil {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.store = make(map[string]*CacheEntry)
}

func (c *ResponseCache) cleanup() {
	ticker := time.NewTicker(5 * time.Minute)
	defer ticker.Stop()

	for range ticker.C {
		c.mu.Lock()
		now := time.Now()
		for key, entry := range c.store {
			if now.After(entry.ExpiresAt) {
				delete(c.store, key)
			}
		}
		c.mu.Unlock()
	}
}

// GenerateCacheKey hashes the endpoint and account into a cache key.
func GenerateCacheKey(baseURL, accountID string) string {
	hash := sha256.Sum256([]byte(baseURL + "|" + accountID))
	return hex.EncodeToString(hash[:])
}
