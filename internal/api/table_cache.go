package api

import (
	"bytes"
	"crypto/sha256"
	"sync"
	"time"

	"github.com/thehamish555/49SQN-Automation/internal/schedule"
)

// tableCache memoizes parsed training program tables keyed by a content
// fingerprint, so repeated grid/report requests skip re-parsing until the
// file on disk changes.
type tableCache struct {
	mu    sync.Mutex
	ttl   time.Duration
	items map[[sha256.Size]byte]cachedTable
}

type cachedTable struct {
	table     *schedule.Table
	expiresAt time.Time
}

func newTableCache(ttl time.Duration) *tableCache {
	return &tableCache{
		ttl:   ttl,
		items: make(map[[sha256.Size]byte]cachedTable),
	}
}

// Parse returns the table for the given CSV bytes, parsing at most once per
// content fingerprint within the TTL.
func (c *tableCache) Parse(data []byte) (*schedule.Table, error) {
	key := sha256.Sum256(data)
	now := time.Now()

	c.mu.Lock()
	if entry, ok := c.items[key]; ok && now.Before(entry.expiresAt) {
		c.mu.Unlock()
		return entry.table, nil
	}
	c.mu.Unlock()

	table, err := schedule.Parse(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	for k, entry := range c.items {
		if now.After(entry.expiresAt) {
			delete(c.items, k)
		}
	}
	c.items[key] = cachedTable{table: table, expiresAt: now.Add(c.ttl)}
	c.mu.Unlock()
	return table, nil
}
