package provider

import (
	"fmt"
	"sync"
	"time"

	"github.com/parleydev/parley/internal/profile"
)

// cacheKey identifies one constructed gateway. The credential is part of
// the key so a rotated key yields a fresh client, and the timeout is part
// of the key because it is baked into the gateway's HTTP client.
type cacheKey struct {
	name       string
	credential string
	timeout    time.Duration
}

// Cache hands out gateways, constructing one per provider, credential and
// timeout combination and reusing it across turns.
type Cache struct {
	mu      sync.Mutex
	entries map[cacheKey]Gateway
	debug   bool
}

// NewCache creates an empty gateway cache. When debug is set, constructed
// gateways log their HTTP traffic.
func NewCache(debug bool) *Cache {
	return &Cache{
		entries: make(map[cacheKey]Gateway),
		debug:   debug,
	}
}

// Get returns the cached gateway for the provider, constructing and
// caching one on first use.
func (c *Cache) Get(name string, cfg profile.Provider, timeout time.Duration) (Gateway, error) {
	credential, err := cfg.Credential()
	if err != nil {
		return nil, fmt.Errorf("provider %s: %w", name, err)
	}
	key := cacheKey{name: name, credential: credential, timeout: timeout}

	c.mu.Lock()
	defer c.mu.Unlock()

	if gw, ok := c.entries[key]; ok {
		return gw, nil
	}

	gw, err := New(name, cfg, timeout, c.debug)
	if err != nil {
		return nil, err
	}
	c.entries[key] = gw
	return gw, nil
}

// Invalidate closes and discards every cached gateway. The session calls
// this when its request timeout changes.
func (c *Cache) Invalidate() {
	c.mu.Lock()
	defer c.mu.Unlock()

	for _, gw := range c.entries {
		gw.Close()
	}
	c.entries = make(map[cacheKey]Gateway)
}

// Len reports the number of cached gateways.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}
