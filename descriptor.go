package nasc

import (
	"fmt"
	"reflect"
	"slices"
)

// FactoryFunc is a ready-made construction strategy. It receives a Resolver
// bound to the resolution in progress; dependencies must be resolved
// through it so cycle detection and the active scope apply.
//
// Example:
//
//	factory := func(r nasc.Resolver) (interface{}, error) {
//	    cfg, err := nasc.Resolve[*Config](r)
//	    if err != nil {
//	        return nil, err
//	    }
//	    return NewConnection(cfg.DSN), nil
//	}
type FactoryFunc func(r Resolver) (interface{}, error)

// Strategy names how a descriptor builds its instances.
type Strategy int

const (
	// StrategyFactory calls a FactoryFunc.
	StrategyFactory Strategy = iota
	// StrategyConstructor calls a constructor function with auto-wired parameters.
	StrategyConstructor
	// StrategyPrototype copies a struct prototype and injects its tagged fields.
	StrategyPrototype
)

func (s Strategy) String() string {
	switch s {
	case StrategyFactory:
		return "factory"
	case StrategyConstructor:
		return "constructor"
	case StrategyPrototype:
		return "prototype"
	}
	return fmt.Sprintf("strategy(%d)", int(s))
}

// ServiceDescriptor is the immutable registration record binding a key to
// one construction strategy and one lifetime.
type ServiceDescriptor struct {
	key          Key
	lifetime     Lifetime
	strategy     Strategy
	factory      FactoryFunc
	constructor  *constructorInfo
	prototype    reflect.Value
	dependencies []dependency
	disposer     func(interface{}) error
	tags         []string
}

// DescriptorOption customizes a descriptor while it is being created.
type DescriptorOption func(*ServiceDescriptor) error

// WithDisposer sets the callback run when an instance built from the
// descriptor is disposed. It takes precedence over Disposable and io.Closer.
func WithDisposer(fn func(instance interface{}) error) DescriptorOption {
	return func(d *ServiceDescriptor) error {
		if fn == nil {
			return fmt.Errorf("disposer cannot be nil")
		}
		d.disposer = fn
		return nil
	}
}

// WithTags labels the registration for ResolveTagged.
func WithTags(tags ...string) DescriptorOption {
	return func(d *ServiceDescriptor) error {
		for _, tag := range tags {
			if tag == "" {
				return fmt.Errorf("tag cannot be empty")
			}
			if !slices.Contains(d.tags, tag) {
				d.tags = append(d.tags, tag)
			}
		}
		return nil
	}
}

// WithDefault supplies the value used for constructor parameter index when
// its type is not registered.
func WithDefault(index int, value interface{}) DescriptorOption {
	return func(d *ServiceDescriptor) error {
		if d.strategy != StrategyConstructor {
			return fmt.Errorf("defaults only apply to constructor registrations")
		}
		if index < 0 || index >= len(d.dependencies) {
			return fmt.Errorf("default index %d out of range for %d parameters", index, len(d.dependencies))
		}
		dep := &d.dependencies[index]
		v, err := valueFor(value, dep.key)
		if err != nil {
			return fmt.Errorf("default for %s: %w", dep.label, err)
		}
		dep.hasDefault = true
		dep.defaultValue = v
		return nil
	}
}

// NewDescriptor validates and builds a descriptor. strategy is one of:
//   - a FactoryFunc (or a func(Resolver) (interface{}, error))
//   - a constructor function whose parameters are auto-wired
//   - a pointer to a struct used as prototype for tagged field injection
//
// An empty lifetime means LifetimeTransient. Any other problem is reported
// as a *ConfigurationError.
func NewDescriptor(key Key, strategy interface{}, lifetime Lifetime, opts ...DescriptorOption) (*ServiceDescriptor, error) {
	if key.Type == nil {
		return nil, &ConfigurationError{Key: key, Reason: "key type cannot be nil"}
	}
	if lifetime == "" {
		lifetime = LifetimeTransient
	}
	if !lifetime.Valid() {
		return nil, &ConfigurationError{Key: key, Reason: fmt.Sprintf("unknown lifetime %q", lifetime)}
	}

	d := &ServiceDescriptor{key: key, lifetime: lifetime}
	if err := d.setStrategy(strategy); err != nil {
		return nil, &ConfigurationError{Key: key, Reason: err.Error()}
	}

	for _, opt := range opts {
		if err := opt(d); err != nil {
			return nil, &ConfigurationError{Key: key, Reason: err.Error()}
		}
	}

	return d, nil
}

func (d *ServiceDescriptor) setStrategy(strategy interface{}) error {
	switch s := strategy.(type) {
	case nil:
		return fmt.Errorf("a factory, constructor or implementation is required")
	case FactoryFunc:
		if s == nil {
			return fmt.Errorf("factory function cannot be nil")
		}
		d.strategy = StrategyFactory
		d.factory = s
		return nil
	case func(Resolver) (interface{}, error):
		if s == nil {
			return fmt.Errorf("factory function cannot be nil")
		}
		d.strategy = StrategyFactory
		d.factory = s
		return nil
	}

	t := reflect.TypeOf(strategy)
	switch {
	case t.Kind() == reflect.Func:
		info, err := parseConstructor(strategy)
		if err != nil {
			return fmt.Errorf("invalid constructor: %w", err)
		}
		if !info.returnType.AssignableTo(d.key.Type) {
			return fmt.Errorf("constructor returns %v, which does not satisfy %v", info.returnType, d.key.Type)
		}
		d.strategy = StrategyConstructor
		d.constructor = info
		d.dependencies = slices.Clone(info.params)
		return nil

	case t.Kind() == reflect.Ptr && t.Elem().Kind() == reflect.Struct:
		v := reflect.ValueOf(strategy)
		if v.IsNil() {
			return fmt.Errorf("implementation prototype cannot be a nil pointer")
		}
		if !t.AssignableTo(d.key.Type) {
			return fmt.Errorf("implementation %v does not satisfy %v", t, d.key.Type)
		}
		// The descriptor owns a private copy of the prototype.
		prototype := reflect.New(t.Elem())
		prototype.Elem().Set(v.Elem())
		d.strategy = StrategyPrototype
		d.prototype = prototype
		d.dependencies = fieldDependencies(prototype.Elem())
		return nil
	}

	return fmt.Errorf("unsupported construction strategy %T: want a factory, constructor or pointer to struct", strategy)
}

// Key returns the contract key.
func (d *ServiceDescriptor) Key() Key { return d.key }

// Lifetime returns the lifetime policy.
func (d *ServiceDescriptor) Lifetime() Lifetime { return d.lifetime }

// Strategy returns how instances are built.
func (d *ServiceDescriptor) Strategy() Strategy { return d.strategy }

// Tags returns a copy of the registration's tags.
func (d *ServiceDescriptor) Tags() []string { return slices.Clone(d.tags) }

// HasTag reports whether the registration carries tag.
func (d *ServiceDescriptor) HasTag(tag string) bool { return slices.Contains(d.tags, tag) }

// Dependencies returns the keys the descriptor declares as inputs. Factory
// registrations are opaque and declare none.
func (d *ServiceDescriptor) Dependencies() []Key {
	keys := make([]Key, 0, len(d.dependencies))
	for _, dep := range d.dependencies {
		if dep.kind == dependencyService {
			keys = append(keys, dep.key)
		}
	}
	return keys
}

// requester names the type a descriptor builds, for error messages.
func (d *ServiceDescriptor) requester() string {
	switch d.strategy {
	case StrategyConstructor:
		return d.constructor.returnType.String()
	case StrategyPrototype:
		return d.prototype.Type().String()
	}
	return d.key.String()
}

// build creates a new instance through r.
func (d *ServiceDescriptor) build(r Resolver) (instance interface{}, err error) {
	defer func() {
		if p := recover(); p != nil {
			err = &ConstructionError{Key: d.key, Cause: fmt.Errorf("panic: %v", p)}
		}
	}()

	switch d.strategy {
	case StrategyFactory:
		instance, err = d.factory(r)
	case StrategyConstructor:
		instance, err = buildConstructor(r, d)
	case StrategyPrototype:
		instance, err = buildPrototype(r, d)
	}
	if err != nil {
		if isContainerError(err) {
			return nil, err
		}
		return nil, &ConstructionError{Key: d.key, Cause: err}
	}

	if d.strategy == StrategyFactory && instance != nil &&
		!reflect.TypeOf(instance).AssignableTo(d.key.Type) {
		return nil, &ConstructionError{
			Key:   d.key,
			Cause: fmt.Errorf("factory returned %T, which does not satisfy %v", instance, d.key.Type),
		}
	}

	return instance, nil
}

// disposerFor returns the disposal callback for instance, or nil when it
// has none.
func (d *ServiceDescriptor) disposerFor(instance interface{}) func() error {
	if d.disposer != nil {
		return func() error { return d.disposer(instance) }
	}
	return disposerOf(instance)
}
