package nasc

import (
	"fmt"
)

// Provide registers strategy under the key for T.
//
//	err := nasc.Provide[Logger](container, nasc.LifetimeSingleton, NewConsoleLogger)
func Provide[T any](c *Container, lifetime Lifetime, strategy interface{}, opts ...DescriptorOption) error {
	return c.Register(TypeKey[T](), strategy, lifetime, opts...)
}

// ProvideNamed registers strategy under the key for T bound to name.
func ProvideNamed[T any](c *Container, name string, lifetime Lifetime, strategy interface{}, opts ...DescriptorOption) error {
	if name == "" {
		return &ConfigurationError{Key: TypeKey[T](), Reason: "name cannot be empty"}
	}
	return c.Register(NamedKey[T](name), strategy, lifetime, opts...)
}

// Resolve provides type-safe resolution with generics.
//
//	logger, err := nasc.Resolve[Logger](container)
func Resolve[T any](r Resolver) (T, error) {
	return resolveAs[T](r, TypeKey[T]())
}

// ResolveNamed resolves the named binding of T.
func ResolveNamed[T any](r Resolver, name string) (T, error) {
	return resolveAs[T](r, NamedKey[T](name))
}

// MustResolve is Resolve that panics on error.
func MustResolve[T any](r Resolver) T {
	instance, err := Resolve[T](r)
	if err != nil {
		panic(err)
	}
	return instance
}

func resolveAs[T any](r Resolver, key Key) (T, error) {
	var zero T
	instance, err := r.Resolve(key)
	if err != nil {
		return zero, err
	}
	if instance == nil {
		return zero, nil
	}
	typed, ok := instance.(T)
	if !ok {
		return zero, &ConstructionError{
			Key:   key,
			Cause: fmt.Errorf("resolved %T is not %v", instance, key.Type),
		}
	}
	return typed, nil
}
