package nasc

import (
	"slices"
)

// Validate checks the registered dependency graph without building
// anything. It reports required dependencies that are neither registered
// nor defaulted, singletons that would capture a scoped service, and
// cycles. Factory registrations are opaque and only checked at resolve time.
func (c *Container) Validate() error {
	descriptors := c.registry.Values()
	var errs []error

	for _, d := range descriptors {
		for _, dep := range d.dependencies {
			if dep.kind != dependencyService || c.registry.Has(dep.key) || dep.hasDefault {
				continue
			}
			errs = append(errs, &DependencyNotFoundError{
				Parameter:  dep.label,
				Dependency: dep.key,
				Requester:  d.requester(),
			})
		}

		if d.lifetime == LifetimeSingleton {
			if scoped, ok := c.findScopedDependency(d, map[Key]bool{}); ok {
				errs = append(errs, &ScopeError{
					Key:    scoped,
					Reason: "singleton " + d.key.String() + " cannot depend on a scoped service",
				})
			}
		}
	}

	errs = append(errs, c.findCycles(descriptors)...)

	if len(errs) > 0 {
		return &ValidationError{Errors: errs}
	}
	return nil
}

// findScopedDependency walks the non-singleton dependencies of d looking for
// a scoped registration. Singleton dependencies are checked on their own.
func (c *Container) findScopedDependency(d *ServiceDescriptor, seen map[Key]bool) (Key, bool) {
	seen[d.key] = true
	for _, key := range d.Dependencies() {
		if seen[key] {
			continue
		}
		target, err := c.registry.Get(key)
		if err != nil {
			continue
		}
		switch target.lifetime {
		case LifetimeScoped:
			return key, true
		case LifetimeTransient:
			if found, ok := c.findScopedDependency(target, seen); ok {
				return found, true
			}
		}
	}
	return Key{}, false
}

// findCycles runs a depth-first search over declared dependencies and
// reports every back edge as a CircularDependencyError.
func (c *Container) findCycles(descriptors []*ServiceDescriptor) []error {
	const (
		unvisited = iota
		visiting
		done
	)

	var (
		errs  []error
		state = make(map[Key]int, len(descriptors))
		stack []Key
		visit func(d *ServiceDescriptor)
	)

	visit = func(d *ServiceDescriptor) {
		state[d.key] = visiting
		stack = append(stack, d.key)

		for _, key := range d.Dependencies() {
			target, err := c.registry.Get(key)
			if err != nil {
				continue
			}
			switch state[key] {
			case visiting:
				path := append(slices.Clone(stack[slices.Index(stack, key):]), key)
				errs = append(errs, &CircularDependencyError{Path: path})
			case unvisited:
				visit(target)
			}
		}

		stack = stack[:len(stack)-1]
		state[d.key] = done
	}

	for _, d := range descriptors {
		if state[d.key] == unvisited {
			visit(d)
		}
	}
	return errs
}
