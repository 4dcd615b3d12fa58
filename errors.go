package nasc

import (
	"errors"
	"fmt"
	"strings"
)

// ConfigurationError is returned when a registration is invalid: no usable
// construction strategy, an unrecognized lifetime, or a strategy whose
// result cannot satisfy the key.
type ConfigurationError struct {
	Key    Key
	Reason string
}

func (e *ConfigurationError) Error() string {
	if e.Key.Type == nil {
		return fmt.Sprintf("invalid registration: %s", e.Reason)
	}
	return fmt.Sprintf("invalid registration for %v: %s", e.Key, e.Reason)
}

// ResolutionError is returned when a key with no registration is resolved.
type ResolutionError struct {
	Key Key
}

func (e *ResolutionError) Error() string {
	return fmt.Sprintf("no registration for %v. Did you forget to register it?", e.Key)
}

// ScopeError is returned when a scoped key is resolved without a live scope.
type ScopeError struct {
	Key    Key
	Reason string
}

func (e *ScopeError) Error() string {
	return fmt.Sprintf("cannot resolve scoped %v: %s", e.Key, e.Reason)
}

// DependencyNotFoundError is returned when auto-wiring meets a required
// dependency that is neither registered nor defaulted.
type DependencyNotFoundError struct {
	// Parameter describes the unmet constructor parameter or struct field.
	Parameter string
	// Dependency is the key the parameter asked for.
	Dependency Key
	// Requester is the type whose construction needed the dependency.
	Requester string
}

func (e *DependencyNotFoundError) Error() string {
	return fmt.Sprintf("%s requires %s (%v), which is not registered and has no default",
		e.Requester, e.Parameter, e.Dependency)
}

// CircularDependencyError indicates a circular dependency was detected.
// Path starts and ends with the key that closed the cycle.
type CircularDependencyError struct {
	Path []Key
}

func (e *CircularDependencyError) Error() string {
	if len(e.Path) == 0 {
		return "circular dependency detected"
	}
	parts := make([]string, len(e.Path))
	for i, k := range e.Path {
		parts[i] = k.String()
	}
	return fmt.Sprintf("circular dependency detected: %s", strings.Join(parts, " -> "))
}

// ConstructionError wraps a failure reported by a factory or constructor.
type ConstructionError struct {
	Key   Key
	Cause error
}

func (e *ConstructionError) Error() string {
	return fmt.Sprintf("failed to construct %v: %v", e.Key, e.Cause)
}

// Unwrap returns the underlying cause error.
func (e *ConstructionError) Unwrap() error {
	return e.Cause
}

// ValidationError collects the problems found by Container.Validate.
type ValidationError struct {
	Errors []error
}

func (e *ValidationError) Error() string {
	if len(e.Errors) == 0 {
		return "validation failed"
	}
	if len(e.Errors) == 1 {
		return fmt.Sprintf("validation failed: %v", e.Errors[0])
	}

	var b strings.Builder
	b.WriteString(fmt.Sprintf("validation failed with %d errors:\n", len(e.Errors)))
	for i, err := range e.Errors {
		b.WriteString(fmt.Sprintf("  %d. %v\n", i+1, err))
	}
	return b.String()
}

func (e *ValidationError) Unwrap() []error {
	return e.Errors
}

// isContainerError reports whether err already carries one of the typed
// resolution errors, so it can travel up unchanged.
func isContainerError(err error) bool {
	var (
		re *ResolutionError
		se *ScopeError
		de *DependencyNotFoundError
		ce *CircularDependencyError
		ke *ConstructionError
		fe *ConfigurationError
	)
	return errors.As(err, &re) || errors.As(err, &se) || errors.As(err, &de) ||
		errors.As(err, &ce) || errors.As(err, &ke) || errors.As(err, &fe)
}
