// Package cache provides a shared, lazily-populated cache of language-model
// client handles. Handles are keyed by (model, complexity, output format) so
// sessions with different needs never share a connection pool, and population
// is single-flight: concurrent first access for the same key creates exactly
// one client.
package cache

import (
	"fmt"
	"sync"

	"ai-assistant-be/pkg/llm"

	"golang.org/x/sync/singleflight"
)

// Key identifies one cached client handle.
type Key struct {
	Model   string
	Complex bool
	Format  string
}

func (k Key) String() string {
	return fmt.Sprintf("%s|%t|%s", k.Model, k.Complex, k.Format)
}

// Factory builds a provider for a given model name.
type Factory func(model string) (llm.LLMProvider, error)

// ClientCache is owned by the orchestrator and injected where needed. It is
// never a package-level singleton.
type ClientCache struct {
	mu      sync.RWMutex
	clients map[Key]llm.LLMProvider
	group   singleflight.Group
	factory Factory
}

func New(factory Factory) *ClientCache {
	return &ClientCache{
		clients: make(map[Key]llm.LLMProvider),
		factory: factory,
	}
}

// Get returns the cached client for key, creating it on first use.
func (c *ClientCache) Get(key Key) (llm.LLMProvider, error) {
	c.mu.RLock()
	client, ok := c.clients[key]
	c.mu.RUnlock()
	if ok {
		return client, nil
	}

	v, err, _ := c.group.Do(key.String(), func() (interface{}, error) {
		c.mu.RLock()
		existing, ok := c.clients[key]
		c.mu.RUnlock()
		if ok {
			return existing, nil
		}

		created, err := c.factory(key.Model)
		if err != nil {
			return nil, err
		}

		c.mu.Lock()
		c.clients[key] = created
		c.mu.Unlock()
		return created, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(llm.LLMProvider), nil
}

// GetClient satisfies llm.ClientSource.
func (c *ClientCache) GetClient(model string, complex bool, format string) (llm.LLMProvider, error) {
	return c.Get(Key{Model: model, Complex: complex, Format: format})
}

// Invalidate drops every cached handle. Called before a turn retry so a
// failure caused by a wedged client forces reinitialization.
func (c *ClientCache) Invalidate() {
	c.mu.Lock()
	c.clients = make(map[Key]llm.LLMProvider)
	c.mu.Unlock()
}

// Len reports the number of live handles (test hook).
func (c *ClientCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.clients)
}
