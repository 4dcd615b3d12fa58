package nasc

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/sqamentor/nasc/config"
	"github.com/sqamentor/nasc/logger"
	"github.com/sqamentor/nasc/registry"
)

const instrumentationName = "github.com/sqamentor/nasc"

// Container is the dependency injection container. It holds the registered
// descriptors and the singleton instances, and resolves keys by lifetime.
//
// Registration is expected to happen during a setup phase; resolution is
// safe for concurrent use.
type Container struct {
	registry   *registry.Registry[Key, *ServiceDescriptor]
	singletons *singletonCache

	builds buildGroup

	providersMu sync.Mutex
	providers   []*providerEntry

	log    *logger.Logger
	tracer trace.Tracer
	cfg    config.Config
}

// New creates a new container. Options configure logging, tracing and
// behaviour switches.
//
// Example:
//
//	container := nasc.New()
//	// or with options:
//	container := nasc.New(nasc.WithConfig(cfg), nasc.WithTracerProvider(tp))
func New(options ...Option) *Container {
	c := &Container{
		registry:   registry.New[Key, *ServiceDescriptor](),
		singletons: newSingletonCache(),
		log:        logger.Nop(),
		tracer:     otel.Tracer(instrumentationName),
		cfg:        *config.Default(),
	}

	for _, opt := range options {
		if err := opt(c); err != nil {
			panic(fmt.Sprintf("failed to apply option: %v", err))
		}
	}

	return c
}

// Register creates a descriptor for key and stores it, replacing any earlier
// registration for the same key. A singleton already built from the
// replaced registration is evicted so the next resolve builds from the new
// one.
//
// Example:
//
//	err := container.Register(nasc.KeyOf((*Logger)(nil)), &ConsoleLogger{}, nasc.LifetimeSingleton)
func (c *Container) Register(key Key, strategy interface{}, lifetime Lifetime, opts ...DescriptorOption) error {
	d, err := NewDescriptor(key, strategy, lifetime, opts...)
	if err != nil {
		return err
	}

	_, replaced := c.registry.Register(key, d)
	fields := logger.Fields(logger.FieldKey, key.String(), logger.FieldLifetime, d.lifetime.String())
	if replaced {
		evicted := c.singletons.evict(key)
		fields["evicted"] = evicted
		c.log.Debug("registration replaced", fields)
	} else {
		c.log.Debug("service registered", fields)
	}

	return nil
}

// MustRegister is Register for startup code: it panics on an invalid
// registration and returns the container for chaining.
//
//	container.
//	    MustRegister(loggerKey, &ConsoleLogger{}, nasc.LifetimeSingleton).
//	    MustRegister(repoKey, NewRepository, nasc.LifetimeScoped)
func (c *Container) MustRegister(key Key, strategy interface{}, lifetime Lifetime, opts ...DescriptorOption) *Container {
	if err := c.Register(key, strategy, lifetime, opts...); err != nil {
		panic(err)
	}
	return c
}

// RegisterSingleton registers key with LifetimeSingleton.
func (c *Container) RegisterSingleton(key Key, strategy interface{}, opts ...DescriptorOption) error {
	return c.Register(key, strategy, LifetimeSingleton, opts...)
}

// RegisterTransient registers key with LifetimeTransient.
func (c *Container) RegisterTransient(key Key, strategy interface{}, opts ...DescriptorOption) error {
	return c.Register(key, strategy, LifetimeTransient, opts...)
}

// RegisterScoped registers key with LifetimeScoped.
func (c *Container) RegisterScoped(key Key, strategy interface{}, opts ...DescriptorOption) error {
	return c.Register(key, strategy, LifetimeScoped, opts...)
}

// MustRegisterSingleton is RegisterSingleton for startup code: it panics on
// an invalid registration and returns the container for chaining.
func (c *Container) MustRegisterSingleton(key Key, strategy interface{}, opts ...DescriptorOption) *Container {
	return c.MustRegister(key, strategy, LifetimeSingleton, opts...)
}

// MustRegisterTransient is the chaining form of RegisterTransient.
func (c *Container) MustRegisterTransient(key Key, strategy interface{}, opts ...DescriptorOption) *Container {
	return c.MustRegister(key, strategy, LifetimeTransient, opts...)
}

// MustRegisterScoped is the chaining form of RegisterScoped.
func (c *Container) MustRegisterScoped(key Key, strategy interface{}, opts ...DescriptorOption) *Container {
	return c.MustRegister(key, strategy, LifetimeScoped, opts...)
}

// Unregister removes the registration for key and evicts a singleton built
// from it. The evicted instance is not disposed. It reports whether key was
// registered.
func (c *Container) Unregister(key Key) bool {
	if !c.registry.Delete(key) {
		return false
	}
	evicted := c.singletons.evict(key)
	c.log.Debug("service unregistered", logger.Fields(logger.FieldKey, key.String(), "evicted", evicted))
	return true
}

// IsRegistered reports whether key has a registration.
func (c *Container) IsRegistered(key Key) bool {
	return c.registry.Has(key)
}

// Keys returns the registered keys in first-registration order.
func (c *Container) Keys() []Key {
	return c.registry.Keys()
}

// Descriptors returns the live registrations in first-registration order.
func (c *Container) Descriptors() []*ServiceDescriptor {
	return c.registry.Values()
}

// Logger returns the container's logger.
func (c *Container) Logger() *logger.Logger {
	return c.log
}

func (c *Container) descriptor(key Key) (*ServiceDescriptor, error) {
	d, err := c.registry.Get(key)
	if err != nil {
		return nil, &ResolutionError{Key: key}
	}
	return d, nil
}

// Resolve returns an instance for key with no scope active. Scoped keys
// fail with a *ScopeError; use a Scope or ResolveContext for those.
//
// Example:
//
//	instance, err := container.Resolve(nasc.KeyOf((*Logger)(nil)))
func (c *Container) Resolve(key Key) (interface{}, error) {
	return newResolution(nil, c, nil).resolve(key)
}

// ResolveIn resolves key within scope. A nil scope behaves like Resolve.
func (c *Container) ResolveIn(scope *Scope, key Key) (interface{}, error) {
	if scope == nil {
		return c.Resolve(key)
	}
	return scope.Resolve(key)
}

// ResolveContext resolves key using the scope carried by ctx, if any, and
// records a trace span for the call.
func (c *Container) ResolveContext(ctx context.Context, key Key) (interface{}, error) {
	ctx, span := c.tracer.Start(ctx, "nasc.resolve",
		trace.WithAttributes(attribute.String("nasc.key", key.String())))
	defer span.End()

	scope := ScopeFromContext(ctx)
	if scope != nil && scope.container != c {
		scope = nil
	}

	if d, err := c.descriptor(key); err == nil {
		span.SetAttributes(attribute.String("nasc.lifetime", d.lifetime.String()))
	}

	instance, err := newResolution(ctx, c, scope).resolve(key)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	return instance, err
}

// ResolveTagged resolves every registration tagged with tag, in
// registration order, with no scope active.
func (c *Container) ResolveTagged(tag string) ([]interface{}, error) {
	return c.resolveTagged(newResolution(nil, c, nil), tag)
}

func (c *Container) resolveTagged(r *resolution, tag string) ([]interface{}, error) {
	descriptors := c.registry.Filter(func(_ Key, d *ServiceDescriptor) bool {
		return d.HasTag(tag)
	})

	instances := make([]interface{}, 0, len(descriptors))
	for _, d := range descriptors {
		instance, err := r.resolve(d.key)
		if err != nil {
			return nil, err
		}
		instances = append(instances, instance)
	}
	return instances, nil
}

// resolveSingleton returns the cached instance for d or builds it exactly
// once. Concurrent first resolves of the same key wait for the one build;
// builds of different keys run in parallel. The cache is written only after
// the build succeeded, so after a failed build the next caller retries.
func (c *Container) resolveSingleton(r *resolution, d *ServiceDescriptor) (interface{}, error) {
	for {
		if instance, ok := c.singletons.get(d); ok {
			return instance, nil
		}

		release, err := c.builds.acquire(r, d.key)
		if err != nil {
			return nil, err
		}
		if release != nil {
			defer release()
			return c.buildSingleton(r, d)
		}
	}
}

func (c *Container) buildSingleton(r *resolution, d *ServiceDescriptor) (interface{}, error) {
	// Another resolution may have finished the build before we claimed it.
	if instance, ok := c.singletons.get(d); ok {
		return instance, nil
	}

	instance, err := r.asSingleton(d.key, func() (interface{}, error) {
		return d.build(r)
	})
	if err != nil {
		return nil, err
	}

	if current, err := c.registry.Get(d.key); err == nil && current == d {
		c.singletons.put(d, instance)
		c.log.Debug("singleton created", logger.Fields(logger.FieldKey, d.key.String()))
	}
	return instance, nil
}

// CreateScope opens a new top-level scope. The caller owns it and must
// Dispose it; InScope does that automatically.
//
// Example:
//
//	scope := container.CreateScope()
//	defer scope.Dispose()
//	uow, err := nasc.Resolve[UnitOfWork](scope)
func (c *Container) CreateScope() *Scope {
	return newScope(c, nil)
}

// InScope runs fn inside a new scope and disposes the scope when fn
// returns, fails or panics. If ctx already carries a live scope of this
// container, the new scope is nested in it. The context passed to fn
// carries the new scope, so ResolveContext and ScopeFromContext see it.
//
// Example:
//
//	err := container.InScope(ctx, func(ctx context.Context, s *nasc.Scope) error {
//	    repo, err := nasc.Resolve[Repository](s)
//	    if err != nil {
//	        return err
//	    }
//	    return repo.Save(ctx)
//	})
func (c *Container) InScope(ctx context.Context, fn func(ctx context.Context, scope *Scope) error) (err error) {
	if ctx == nil {
		ctx = context.Background()
	}

	var scope *Scope
	if parent := ScopeFromContext(ctx); parent != nil && parent.container == c && !parent.IsDisposed() {
		scope = parent.CreateScope()
	} else {
		scope = c.CreateScope()
	}

	ctx, span := c.tracer.Start(ctx, "nasc.scope",
		trace.WithAttributes(attribute.String("nasc.scope_id", scope.ID())))
	defer span.End()

	defer func() {
		if derr := scope.Dispose(); derr != nil {
			err = errors.Join(err, derr)
		}
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
	}()

	return fn(WithScope(ctx, scope), scope)
}

// Clear discards every registration and every cached singleton. Scopes
// that are still open keep their instances until they are disposed. When
// the container is configured with DisposeOnClear, cached singletons are
// disposed first and their disposal errors are returned joined.
func (c *Container) Clear() error {
	var err error
	if c.cfg.Container.DisposeOnClear {
		err = c.disposeSingletons()
	} else {
		c.singletons.drain()
	}
	n := c.registry.Len()
	c.registry.Clear()
	c.log.Debug("container cleared", logger.Fields(logger.FieldCount, n))
	return err
}

// Close disposes every cached singleton that has a disposal callback,
// newest first, then clears the container. Disposal errors are joined.
func (c *Container) Close() error {
	err := c.disposeSingletons()
	c.registry.Clear()
	return err
}

func (c *Container) disposeSingletons() error {
	var errs []error
	for _, entry := range c.singletons.drain() {
		dispose := entry.descriptor.disposerFor(entry.value)
		if dispose == nil {
			continue
		}
		if err := dispose(); err != nil {
			c.log.Warn("singleton disposal failed", logger.Fields(
				logger.FieldKey, entry.descriptor.key.String(),
				logger.FieldError, err,
			))
			errs = append(errs, fmt.Errorf("dispose %v: %w", entry.descriptor.key, err))
		}
	}
	return errors.Join(errs...)
}
