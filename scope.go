package nasc

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/google/uuid"

	"github.com/sqamentor/nasc/logger"
)

// Disposable represents a service that requires cleanup.
// Services implementing this interface will have Dispose called
// when their scope is disposed.
//
// Example:
//
//	type DatabaseConnection struct {}
//	func (d *DatabaseConnection) Dispose() error {
//	    return d.connection.Close()
//	}
type Disposable interface {
	Dispose() error
}

// disposerOf returns the disposal callback an instance exposes through
// Disposable or io.Closer, or nil.
func disposerOf(instance interface{}) func() error {
	switch v := instance.(type) {
	case Disposable:
		return v.Dispose
	case io.Closer:
		return v.Close
	}
	return nil
}

// ScopeState is the lifecycle state of a Scope.
type ScopeState int

const (
	// ScopeActive scopes resolve and cache scoped instances.
	ScopeActive ScopeState = iota
	// ScopeDisposed scopes have released their instances. Terminal.
	ScopeDisposed
)

func (s ScopeState) String() string {
	switch s {
	case ScopeActive:
		return "active"
	case ScopeDisposed:
		return "disposed"
	}
	return fmt.Sprintf("ScopeState(%d)", int(s))
}

type scopedEntry struct {
	descriptor *ServiceDescriptor
	value      interface{}
}

type disposal struct {
	key     Key
	dispose func() error
}

// Scope represents an isolated dependency resolution context.
// Scoped registrations create one instance per scope, allowing for
// request-scoped or transaction-scoped dependencies. Singleton and transient
// registrations resolve exactly as they do on the container.
//
// Example:
//
//	scope := container.CreateScope()
//	defer scope.Dispose()
//
//	// Scoped instances are unique to this scope
//	uow, err := nasc.Resolve[UnitOfWork](scope)
type Scope struct {
	id        string
	container *Container
	parent    *Scope
	log       *logger.Logger

	mu        sync.Mutex
	instances map[Key]*scopedEntry
	disposals []disposal
	children  []*Scope
	state     ScopeState

	builds buildGroup
}

func newScope(c *Container, parent *Scope) *Scope {
	id := uuid.NewString()
	s := &Scope{
		id:        id,
		container: c,
		parent:    parent,
		log:       c.log.WithFields(logger.Fields(logger.FieldScopeID, id)),
		instances: make(map[Key]*scopedEntry),
		state:     ScopeActive,
	}
	s.log.Debug("scope opened")
	return s
}

// ID returns the scope's unique identifier.
func (s *Scope) ID() string { return s.id }

// Parent returns the scope this one is nested in, or nil.
func (s *Scope) Parent() *Scope { return s.parent }

// Container returns the container the scope resolves from.
func (s *Scope) Container() *Container { return s.container }

// State returns the scope's lifecycle state.
func (s *Scope) State() ScopeState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// IsDisposed reports whether the scope has been disposed.
func (s *Scope) IsDisposed() bool {
	return s.State() == ScopeDisposed
}

// Resolve resolves key within this scope. Scoped keys are built once per
// scope; a disposed scope behaves as if no scope were active.
func (s *Scope) Resolve(key Key) (interface{}, error) {
	return newResolution(nil, s.container, s).resolve(key)
}

// ResolveTagged resolves every registration tagged with tag within this
// scope.
func (s *Scope) ResolveTagged(tag string) ([]interface{}, error) {
	return s.container.resolveTagged(newResolution(nil, s.container, s), tag)
}

// resolveScoped returns the instance for d cached in this scope, building
// it on first use. Concurrent first resolves of the same key in this scope
// wait for the one build.
func (s *Scope) resolveScoped(r *resolution, d *ServiceDescriptor) (interface{}, error) {
	for {
		if instance, ok, err := s.lookup(d); ok || err != nil {
			return instance, err
		}

		release, err := s.builds.acquire(r, d.key)
		if err != nil {
			return nil, err
		}
		if release != nil {
			defer release()
			return s.buildScoped(r, d)
		}
	}
}

func (s *Scope) buildScoped(r *resolution, d *ServiceDescriptor) (interface{}, error) {
	if instance, ok, err := s.lookup(d); ok || err != nil {
		return instance, err
	}

	instance, err := d.build(r)
	if err != nil {
		return nil, err
	}

	dispose := d.disposerFor(instance)

	s.mu.Lock()
	if s.state == ScopeDisposed {
		s.mu.Unlock()
		if dispose != nil {
			if derr := dispose(); derr != nil {
				s.log.Warn("disposal of late scoped instance failed", logger.Fields(
					logger.FieldKey, d.key.String(), logger.FieldError, derr))
			}
		}
		return nil, &ScopeError{Key: d.key, Reason: "scope was disposed during construction"}
	}
	s.instances[d.key] = &scopedEntry{descriptor: d, value: instance}
	if dispose != nil {
		s.disposals = append(s.disposals, disposal{key: d.key, dispose: dispose})
	}
	s.mu.Unlock()

	s.log.Debug("scoped instance created", logger.Fields(logger.FieldKey, d.key.String()))
	return instance, nil
}

// lookup returns the cached instance built from d. An entry built from a
// replaced registration is ignored; its disposal stays scheduled.
func (s *Scope) lookup(d *ServiceDescriptor) (interface{}, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state == ScopeDisposed {
		return nil, false, &ScopeError{Key: d.key, Reason: "scope is disposed"}
	}
	entry, exists := s.instances[d.key]
	if !exists || entry.descriptor != d {
		return nil, false, nil
	}
	return entry.value, true, nil
}

// CreateScope opens a child scope nested in s. Children are disposed
// before their parent. Scoped instances are not shared between parent and
// child.
//
// Example:
//
//	parent := container.CreateScope()
//	defer parent.Dispose()
//
//	child := parent.CreateScope()
//	// child is disposed with parent
func (s *Scope) CreateScope() *Scope {
	child := newScope(s.container, s)

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == ScopeDisposed {
		child.state = ScopeDisposed
		return child
	}
	s.children = append(s.children, child)
	return child
}

func (s *Scope) removeChild(child *Scope) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i, c := range s.children {
		if c == child {
			s.children = append(s.children[:i], s.children[i+1:]...)
			return
		}
	}
}

// Dispose releases the scope: child scopes first, then the disposal
// callback of every scoped instance in reverse creation order, each exactly
// once. Later calls are no-ops. Errors from callbacks are joined.
//
// Example:
//
//	scope := container.CreateScope()
//	defer scope.Dispose()
func (s *Scope) Dispose() error {
	s.mu.Lock()
	if s.state == ScopeDisposed {
		s.mu.Unlock()
		return nil
	}
	s.state = ScopeDisposed
	children := s.children
	disposals := s.disposals
	s.children = nil
	s.disposals = nil
	s.instances = make(map[Key]*scopedEntry)
	s.mu.Unlock()

	var errs []error

	for i := len(children) - 1; i >= 0; i-- {
		if err := children[i].Dispose(); err != nil {
			errs = append(errs, fmt.Errorf("child scope %s: %w", children[i].id, err))
		}
	}

	for i := len(disposals) - 1; i >= 0; i-- {
		if err := disposals[i].dispose(); err != nil {
			s.log.Warn("scoped instance disposal failed", logger.Fields(
				logger.FieldKey, disposals[i].key.String(), logger.FieldError, err))
			errs = append(errs, fmt.Errorf("dispose %v: %w", disposals[i].key, err))
		}
	}

	if s.parent != nil {
		s.parent.removeChild(s)
	}

	s.log.Debug("scope disposed", logger.Fields(logger.FieldCount, len(disposals)))
	return errors.Join(errs...)
}

type scopeContextKey struct{}

// WithScope returns a copy of ctx carrying scope as the active scope.
// Contexts derived from the result see scope; the parent context keeps
// whatever scope it carried, which gives strict nesting.
func WithScope(ctx context.Context, scope *Scope) context.Context {
	return context.WithValue(ctx, scopeContextKey{}, scope)
}

// ScopeFromContext returns the active scope carried by ctx, or nil.
func ScopeFromContext(ctx context.Context) *Scope {
	if ctx == nil {
		return nil
	}
	scope, _ := ctx.Value(scopeContextKey{}).(*Scope)
	return scope
}
