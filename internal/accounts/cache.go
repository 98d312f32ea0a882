package accounts

import (
	"context"
	"sync"
)

// LoginCustomerCache remembers the resolved login customer per user. It is an
// optimization only: a miss or a failing backend must never change the
// outcome of a resolution, only its cost.
type LoginCustomerCache interface {
	Get(ctx context.Context, userID string) (customerID string, ok bool, err error)
	Set(ctx context.Context, userID, customerID string) error
	Delete(ctx context.Context, userID string) error
}

// MemoryCache is a process-local LoginCustomerCache. Entries live until
// deleted or Reset; concurrent writers are last-writer-wins.
type MemoryCache struct {
	mu      sync.RWMutex
	entries map[string]string
}

var _ LoginCustomerCache = (*MemoryCache)(nil)

func NewMemoryCache() *MemoryCache {
	return &MemoryCache{entries: make(map[string]string)}
}

func (c *MemoryCache) Get(_ context.Context, userID string) (string, bool, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	id, ok := c.entries[userID]
	return id, ok, nil
}

func (c *MemoryCache) Set(_ context.Context, userID, customerID string) error {
	c.mu.Lock()
	c.entries[userID] = customerID
	c.mu.Unlock()
	return nil
}

func (c *MemoryCache) Delete(_ context.Context, userID string) error {
	c.mu.Lock()
	delete(c.entries, userID)
	c.mu.Unlock()
	return nil
}

// Reset drops every entry.
func (c *MemoryCache) Reset() {
	c.mu.Lock()
	c.entries = make(map[string]string)
	c.mu.Unlock()
}

// Len returns the number of cached users.
func (c *MemoryCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}
