// Package memory provides an in-process answer cache used when no redis
// server is configured.
package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/custodia-labs/effortqa/internal/core/domain"
	"github.com/custodia-labs/effortqa/internal/core/ports/driven"
)

// Ensure Cache implements the interface.
var _ driven.AnswerCache = (*Cache)(nil)

// DefaultMaxEntries bounds the number of cached answers.
const DefaultMaxEntries = 1000

type entry struct {
	data      []byte
	expiresAt time.Time
}

// Cache holds serialised answers in a map with per-entry expiry. When full,
// expired entries are dropped first, then the entry closest to expiry.
type Cache struct {
	mu         sync.Mutex
	entries    map[string]entry
	maxEntries int
	now        func() time.Time
}

// New creates a cache holding at most maxEntries answers
// (DefaultMaxEntries when maxEntries <= 0).
func New(maxEntries int) *Cache {
	if maxEntries <= 0 {
		maxEntries = DefaultMaxEntries
	}
	return &Cache{
		entries:    make(map[string]entry),
		maxEntries: maxEntries,
		now:        time.Now,
	}
}

// Get returns a copy of the cached result.
func (c *Cache) Get(_ context.Context, key string) (*domain.ResolveResult, bool, error) {
	c.mu.Lock()
	e, ok := c.entries[key]
	if ok && !c.now().Before(e.expiresAt) {
		delete(c.entries, key)
		ok = false
	}
	c.mu.Unlock()
	if !ok {
		return nil, false, nil
	}

	var res domain.ResolveResult
	if err := json.Unmarshal(e.data, &res); err != nil {
		return nil, false, fmt.Errorf("decode cached answer: %w", err)
	}
	return &res, true, nil
}

// Set stores a copy of result for ttl. A non-positive ttl is a no-op.
func (c *Cache) Set(_ context.Context, key string, result *domain.ResolveResult, ttl time.Duration) error {
	if ttl <= 0 || result == nil {
		return nil
	}
	data, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("encode answer: %w", err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if _, exists := c.entries[key]; !exists && len(c.entries) >= c.maxEntries {
		c.evict()
	}
	c.entries[key] = entry{data: data, expiresAt: c.now().Add(ttl)}
	return nil
}

// evict makes room for one entry. Caller holds mu.
func (c *Cache) evict() {
	now := c.now()
	var victim string
	var soonest time.Time
	for k, e := range c.entries {
		if !now.Before(e.expiresAt) {
			delete(c.entries, k)
			continue
		}
		if victim == "" || e.expiresAt.Before(soonest) {
			victim, soonest = k, e.expiresAt
		}
	}
	if len(c.entries) >= c.maxEntries && victim != "" {
		delete(c.entries, victim)
	}
}

// Flush drops every entry.
func (c *Cache) Flush(_ context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]entry)
	return nil
}

// Len returns the number of stored entries, including expired ones not yet dropped.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// Close releases resources.
func (c *Cache) Close() error {
	return nil
}
