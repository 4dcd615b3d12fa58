package nasc

import (
	"context"
	"slices"
)

// Resolver resolves keys to instances. *Container resolves without a scope,
// *Scope resolves within itself, and factories receive a Resolver bound to
// the resolution that is building them.
type Resolver interface {
	Resolve(key Key) (interface{}, error)
}

// resolution is the state of one top-level Resolve call: the stack of keys
// under construction and the build it is waiting on, if any. It is used by
// a single goroutine and discarded when the top-level call returns.
type resolution struct {
	container *Container
	scope     *Scope
	ctx       context.Context
	stack     []Key

	// waitingOn is the build of another resolution this one is blocked on.
	// Guarded by waitMu.
	waitingOn *pendingBuild

	// captor is the singleton being built while the scope is hidden.
	captor *Key
}

func newResolution(ctx context.Context, c *Container, scope *Scope) *resolution {
	if ctx == nil {
		ctx = context.Background()
	}
	return &resolution{container: c, scope: scope, ctx: ctx}
}

// Resolve implements Resolver for factories and constructors.
func (r *resolution) Resolve(key Key) (interface{}, error) {
	return r.resolve(key)
}

// Context returns the context the resolution was started with.
func (r *resolution) Context() context.Context {
	return r.ctx
}

func (r *resolution) resolve(key Key) (interface{}, error) {
	d, err := r.container.descriptor(key)
	if err != nil {
		return nil, err
	}

	if slices.Contains(r.stack, key) {
		path := append(slices.Clone(r.stack[slices.Index(r.stack, key):]), key)
		return nil, &CircularDependencyError{Path: path}
	}
	r.stack = append(r.stack, key)
	defer func() { r.stack = r.stack[:len(r.stack)-1] }()

	switch d.lifetime {
	case LifetimeSingleton:
		return r.container.resolveSingleton(r, d)
	case LifetimeScoped:
		if r.captor != nil {
			return nil, &ScopeError{Key: key, Reason: "singleton " + r.captor.String() + " cannot depend on a scoped service"}
		}
		if r.scope == nil {
			return nil, &ScopeError{Key: key, Reason: "no active scope"}
		}
		return r.scope.resolveScoped(r, d)
	default:
		return d.build(r)
	}
}

// asSingleton runs fn with the scope hidden so the singleton being built
// cannot capture scoped instances. Nested singletons keep the outermost
// captor.
func (r *resolution) asSingleton(key Key, fn func() (interface{}, error)) (interface{}, error) {
	prevScope, prevCaptor := r.scope, r.captor
	r.scope = nil
	if r.captor == nil {
		r.captor = &key
	}
	defer func() { r.scope, r.captor = prevScope, prevCaptor }()
	return fn()
}
