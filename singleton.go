package nasc

import (
	"sync"
)

// singletonEntry holds a built singleton together with the descriptor it was
// built from, so an overwritten registration never serves a stale instance.
type singletonEntry struct {
	descriptor *ServiceDescriptor
	value      interface{}
}

// singletonCache manages singleton instances. Reads are concurrent; a key
// is written only by the resolution that claimed its build, after the build
// fully succeeded.
type singletonCache struct {
	mu        sync.RWMutex
	instances map[Key]*singletonEntry
	order     []*singletonEntry
}

func newSingletonCache() *singletonCache {
	return &singletonCache{
		instances: make(map[Key]*singletonEntry),
	}
}

// get returns the cached instance built from d.
func (sc *singletonCache) get(d *ServiceDescriptor) (interface{}, bool) {
	sc.mu.RLock()
	defer sc.mu.RUnlock()

	entry, exists := sc.instances[d.key]
	if !exists || entry.descriptor != d {
		return nil, false
	}
	return entry.value, true
}

func (sc *singletonCache) put(d *ServiceDescriptor, value interface{}) {
	sc.mu.Lock()
	defer sc.mu.Unlock()

	entry := &singletonEntry{descriptor: d, value: value}
	sc.instances[d.key] = entry
	sc.order = append(sc.order, entry)
}

// evict drops the cached instance for key and reports whether one existed.
func (sc *singletonCache) evict(key Key) bool {
	sc.mu.Lock()
	defer sc.mu.Unlock()

	entry, exists := sc.instances[key]
	if !exists {
		return false
	}
	delete(sc.instances, key)
	sc.removeFromOrder(entry)
	return true
}

func (sc *singletonCache) removeFromOrder(entry *singletonEntry) {
	for i, e := range sc.order {
		if e == entry {
			sc.order = append(sc.order[:i], sc.order[i+1:]...)
			return
		}
	}
}

// drain empties the cache and returns the entries newest first.
func (sc *singletonCache) drain() []*singletonEntry {
	sc.mu.Lock()
	defer sc.mu.Unlock()

	entries := make([]*singletonEntry, 0, len(sc.order))
	for i := len(sc.order) - 1; i >= 0; i-- {
		entries = append(entries, sc.order[i])
	}
	sc.instances = make(map[Key]*singletonEntry)
	sc.order = nil
	return entries
}

func (sc *singletonCache) len() int {
	sc.mu.RLock()
	defer sc.mu.RUnlock()
	return len(sc.instances)
}
