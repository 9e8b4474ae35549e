package contextmgr

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"specctl/internal/descriptor"
	"specctl/internal/failure"
	"specctl/pkg/logging"
)

// CacheStats is a snapshot of the context cache counters.
type CacheStats struct {
	Size   int `json:"size"`
	Hits   int `json:"hits"`
	Misses int `json:"misses"`
}

// ContextCache shares containers between classes with the same context
// configuration. It is safe for concurrent use by parallel class runs.
//
// Classes hold a container through Acquire and Release. An evicted container
// stays open until its last holder releases it.
type ContextCache struct {
	registry *Registry

	mu      sync.Mutex
	entries map[string]*cacheEntry
	// evicted entries still held by a class run
	draining map[*Container]*cacheEntry
	hits     int
	misses   int
}

type cacheEntry struct {
	key       string
	container *Container
	refs      int
}

// NewContextCache returns an empty cache building containers from registry.
func NewContextCache(registry *Registry) *ContextCache {
	return &ContextCache{
		registry: registry,
		entries:  make(map[string]*cacheEntry),
		draining: make(map[*Container]*cacheEntry),
	}
}

// Registry returns the module registry backing the cache.
func (cc *ContextCache) Registry() *Registry {
	return cc.registry
}

// Get returns the cached container for cfg, building it on a miss. The
// caller does not hold the container; an eviction closes it right away.
func (cc *ContextCache) Get(cfg descriptor.ContextConfig) (*Container, error) {
	cc.mu.Lock()
	defer cc.mu.Unlock()

	e, err := cc.lookup(cfg)
	if err != nil {
		return nil, err
	}
	return e.container, nil
}

// Acquire is Get for a class run: the container is not closed by an
// eviction until the run calls Release.
func (cc *ContextCache) Acquire(cfg descriptor.ContextConfig) (*Container, error) {
	cc.mu.Lock()
	defer cc.mu.Unlock()

	e, err := cc.lookup(cfg)
	if err != nil {
		return nil, err
	}
	e.refs++
	return e.container, nil
}

// Release gives up a hold taken by Acquire. Releasing the last hold on an
// evicted container closes it.
func (cc *ContextCache) Release(c *Container) error {
	cc.mu.Lock()
	e := cc.find(c)
	if e == nil || e.refs == 0 {
		cc.mu.Unlock()
		return nil
	}
	e.refs--
	drained := e.refs == 0 && cc.draining[c] == e
	if drained {
		delete(cc.draining, c)
	}
	cc.mu.Unlock()

	if !drained {
		return nil
	}
	logging.Debug("ContextCache", "Closing released context %s", e.key)
	return c.Close()
}

func (cc *ContextCache) lookup(cfg descriptor.ContextConfig) (*cacheEntry, error) {
	key := cfg.Key()
	if e, ok := cc.entries[key]; ok {
		cc.hits++
		return e, nil
	}
	cc.misses++

	c, err := cc.registry.NewContainer(cfg.Modules...)
	if err != nil {
		return nil, fmt.Errorf("failed to load context %s: %w", key, err)
	}
	e := &cacheEntry{key: key, container: c}
	cc.entries[key] = e
	logging.Debug("ContextCache", "Loaded context %s", key)
	return e, nil
}

func (cc *ContextCache) find(c *Container) *cacheEntry {
	if e, ok := cc.draining[c]; ok {
		return e
	}
	for _, e := range cc.entries {
		if e.container == c {
			return e
		}
	}
	return nil
}

// Evict removes the container for cfg from the cache, so the next Get or
// Acquire loads a fresh one. The container is closed now if nobody holds
// it, otherwise when the last holder releases it.
func (cc *ContextCache) Evict(cfg descriptor.ContextConfig) error {
	return cc.evict(cfg.Key(), nil)
}

// evict unlinks the entry under key. When only is set, the entry is left
// alone unless it holds that container.
func (cc *ContextCache) evict(key string, only *Container) error {
	cc.mu.Lock()
	e, ok := cc.entries[key]
	if !ok || (only != nil && e.container != only) {
		cc.mu.Unlock()
		return nil
	}
	delete(cc.entries, key)
	if e.refs > 0 {
		cc.draining[e.container] = e
		cc.mu.Unlock()
		logging.Debug("ContextCache", "Evicted context %s, closing after %d holders release it", key, e.refs)
		return nil
	}
	cc.mu.Unlock()

	logging.Debug("ContextCache", "Evicting context %s", key)
	return e.container.Close()
}

// Stats returns the current counters. Size counts cached containers only,
// not evicted ones still held.
func (cc *ContextCache) Stats() CacheStats {
	cc.mu.Lock()
	defer cc.mu.Unlock()
	return CacheStats{Size: len(cc.entries), Hits: cc.hits, Misses: cc.misses}
}

// Close closes every container the cache knows about, held or not.
func (cc *ContextCache) Close() error {
	cc.mu.Lock()
	entries := make([]*cacheEntry, 0, len(cc.entries)+len(cc.draining))
	for _, e := range cc.entries {
		entries = append(entries, e)
	}
	for _, e := range cc.draining {
		entries = append(entries, e)
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].key < entries[j].key })
	cc.entries = make(map[string]*cacheEntry)
	cc.draining = make(map[*Container]*cacheEntry)
	cc.mu.Unlock()

	var errs error
	for _, e := range entries {
		errs = failure.Append(errs, e.container.Close())
	}
	return errs
}

// ErrNoContext is returned when a test context has no cache to load from.
var ErrNoContext = errors.New("no managed context available")
