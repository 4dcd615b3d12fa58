// Package registry provides thread-safe storage and retrieval of keyed
// registrations where the most recent registration for a key wins.
package registry

import (
	"fmt"
	"sync"
)

// Registry stores one live entry per key and remembers the order in which
// keys were first registered so iteration is deterministic.
type Registry[K comparable, V any] struct {
	mu      sync.RWMutex
	entries map[K]V
	order   []K
}

// New creates an empty Registry.
func New[K comparable, V any]() *Registry[K, V] {
	return &Registry[K, V]{
		entries: make(map[K]V),
	}
}

// Register stores value under key, replacing any previous entry.
// It returns the replaced entry and true if one existed.
//
// This method is goroutine-safe.
func (r *Registry[K, V]) Register(key K, value V) (V, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	prev, exists := r.entries[key]
	if !exists {
		r.order = append(r.order, key)
	}
	r.entries[key] = value
	return prev, exists
}

// Get retrieves the entry for key.
// Returns a *NotFoundError if the key has no entry.
//
// This method is goroutine-safe.
func (r *Registry[K, V]) Get(key K) (V, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	value, exists := r.entries[key]
	if !exists {
		var zero V
		return zero, &NotFoundError{Key: key}
	}
	return value, nil
}

// Has reports whether key has an entry.
func (r *Registry[K, V]) Has(key K) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	_, exists := r.entries[key]
	return exists
}

// Delete removes the entry for key. It reports whether an entry was removed.
func (r *Registry[K, V]) Delete(key K) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.entries[key]; !exists {
		return false
	}
	delete(r.entries, key)
	for i, k := range r.order {
		if k == key {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
	return true
}

// Keys returns all registered keys in first-registration order.
func (r *Registry[K, V]) Keys() []K {
	r.mu.RLock()
	defer r.mu.RUnlock()

	keys := make([]K, len(r.order))
	copy(keys, r.order)
	return keys
}

// Values returns all live entries in first-registration order.
func (r *Registry[K, V]) Values() []V {
	r.mu.RLock()
	defer r.mu.RUnlock()

	values := make([]V, 0, len(r.order))
	for _, k := range r.order {
		values = append(values, r.entries[k])
	}
	return values
}

// Filter returns the entries for which match returns true, in
// first-registration order. match must not call back into the registry.
func (r *Registry[K, V]) Filter(match func(K, V) bool) []V {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var result []V
	for _, k := range r.order {
		if v := r.entries[k]; match(k, v) {
			result = append(result, v)
		}
	}
	return result
}

// Len returns the number of live entries.
func (r *Registry[K, V]) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.entries)
}

// Clear removes every entry.
func (r *Registry[K, V]) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.entries = make(map[K]V)
	r.order = nil
}

// NotFoundError is returned when a requested key has no entry.
type NotFoundError struct {
	Key any
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("no entry registered for %v", e.Key)
}
