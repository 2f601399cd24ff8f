// Package matchcache keeps reconciliation results in a bounded in-memory
// cache keyed by (catalog entry, drive partition). The LRU bound and TTL
// keep a long-running service from accumulating matches forever.
package matchcache

import (
	"strconv"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/bitaca/mediadex/internal/domain"
)

// Stats reports cache occupancy for diagnostics.
type Stats struct {
	Size int      `json:"size"`
	Keys []string `json:"keys"`
}

// Cache is a concurrent LRU of match results with per-entry TTL. A write is
// visible to concurrent readers before the writing Reconcile call returns.
type Cache struct {
	lru *expirable.LRU[string, domain.MatchResult]
}

// New creates a cache holding up to capacity entries for at most ttl.
// A zero ttl disables expiry.
func New(capacity int, ttl time.Duration) *Cache {
	return &Cache{lru: expirable.NewLRU[string, domain.MatchResult](capacity, nil, ttl)}
}

// Get returns the cached match for (externalID, driveID), if any.
func (c *Cache) Get(externalID, driveID int) (domain.MatchResult, bool) {
	return c.lru.Get(key(externalID, driveID))
}

// Put stores a match for (externalID, driveID), evicting the least recently
// used entry when full.
func (c *Cache) Put(externalID, driveID int, match domain.MatchResult) {
	c.lru.Add(key(externalID, driveID), match)
}

// Clear drops all entries.
func (c *Cache) Clear() {
	c.lru.Purge()
}

// Stats returns the current size and up to ten keys.
func (c *Cache) Stats() Stats {
	keys := c.lru.Keys()
	if len(keys) > 10 {
		keys = keys[:10]
	}
	return Stats{Size: c.lru.Len(), Keys: keys}
}

func key(externalID, driveID int) string {
	return strconv.Itoa(externalID) + ":" + strconv.Itoa(driveID)
}
