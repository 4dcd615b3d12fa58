package nasc

import "sync"

var (
	defaultMu        sync.Mutex
	defaultContainer *Container
)

// Default returns the process-wide container, creating it on first use.
// The same container is returned until ResetDefault is called.
func Default() *Container {
	defaultMu.Lock()
	defer defaultMu.Unlock()

	if defaultContainer == nil {
		defaultContainer = New()
	}
	return defaultContainer
}

// ResetDefault discards the process-wide container so the next Default call
// returns a fresh, empty one. It is meant for isolating tests; references
// to the old container stay usable.
func ResetDefault() {
	defaultMu.Lock()
	defer defaultMu.Unlock()

	defaultContainer = nil
}
