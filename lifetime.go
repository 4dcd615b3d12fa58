package nasc

import (
	"fmt"
	"strings"
)

// Lifetime represents the lifecycle strategy for a registered service.
type Lifetime string

const (
	// LifetimeTransient creates a new instance on every resolution.
	// This is the lifetime used when none is given.
	LifetimeTransient Lifetime = "transient"

	// LifetimeSingleton creates a single instance that is reused for all
	// resolutions for the remaining life of the container.
	LifetimeSingleton Lifetime = "singleton"

	// LifetimeScoped creates one instance per scope.
	// Each scope maintains its own instance cache, isolated from other scopes.
	LifetimeScoped Lifetime = "scoped"
)

// String returns the string representation of the lifetime.
func (l Lifetime) String() string {
	return string(l)
}

// Valid reports whether l is one of the recognized lifetimes.
func (l Lifetime) Valid() bool {
	switch l {
	case LifetimeTransient, LifetimeSingleton, LifetimeScoped:
		return true
	}
	return false
}

// ParseLifetime converts a case-insensitive name into a Lifetime.
func ParseLifetime(s string) (Lifetime, error) {
	l := Lifetime(strings.ToLower(strings.TrimSpace(s)))
	if !l.Valid() {
		return "", fmt.Errorf("unknown lifetime %q", s)
	}
	return l, nil
}
