package nasc

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"strings"
)

// tagOptions represents parsed options from an inject tag.
type tagOptions struct {
	skip     bool   // Don't inject this field
	optional bool   // Keep the current value if the key is not registered
	name     string // Named binding to use
}

// parseInjectTag parses an inject struct tag and returns options.
// Supported formats:
//   - `inject:""` - required injection
//   - `inject:"optional"` - optional injection
//   - `inject:"name=foo"` - named binding
//   - `inject:"optional,name=foo"` - combined options
//   - `inject:"-"` - never injected
func parseInjectTag(tag string) tagOptions {
	opts := tagOptions{}

	if tag == "-" {
		opts.skip = true
		return opts
	}

	for _, part := range strings.Split(tag, ",") {
		part = strings.TrimSpace(part)
		switch {
		case part == "optional":
			opts.optional = true
		case strings.HasPrefix(part, "name="):
			opts.name = strings.TrimPrefix(part, "name=")
		}
	}

	return opts
}

type dependencyKind int

const (
	dependencyService dependencyKind = iota
	dependencyResolver
	dependencyContext
)

var (
	resolverType = reflect.TypeOf((*Resolver)(nil)).Elem()
	contextType  = reflect.TypeOf((*context.Context)(nil)).Elem()
	errorType    = reflect.TypeOf((*error)(nil)).Elem()
)

// dependency is one declared input of a constructor or prototype: a
// constructor parameter or an injectable struct field.
type dependency struct {
	key          Key
	label        string
	kind         dependencyKind
	hasDefault   bool
	defaultValue reflect.Value
}

func newParamDependency(i int, t reflect.Type) dependency {
	dep := dependency{
		key:   Key{Type: t},
		label: fmt.Sprintf("parameter #%d", i),
	}
	switch t {
	case resolverType:
		dep.kind = dependencyResolver
	case contextType:
		dep.kind = dependencyContext
	}
	return dep
}

// fieldDependencies lists the injectable fields of the struct value v.
// A field's current value is its default when it is non-zero or tagged
// optional.
func fieldDependencies(v reflect.Value) []dependency {
	fields := fieldCache.getFieldInfo(v.Type())
	deps := make([]dependency, 0, len(fields))
	for _, f := range fields {
		current := v.Field(f.index)
		deps = append(deps, dependency{
			key:          Key{Type: f.typ, Name: f.options.name},
			label:        "field " + f.name,
			hasDefault:   f.options.optional || !current.IsZero(),
			defaultValue: current,
		})
	}
	return deps
}

// wireDependency produces the value for one dependency through r: the
// registered service if there is one, else the default, else a
// DependencyNotFoundError naming the parameter and requester.
func wireDependency(r Resolver, dep dependency, requester string) (reflect.Value, error) {
	switch dep.kind {
	case dependencyResolver:
		return reflect.ValueOf(&r).Elem(), nil
	case dependencyContext:
		ctx := context.Background()
		if c, ok := r.(interface{ Context() context.Context }); ok {
			ctx = c.Context()
		}
		return reflect.ValueOf(&ctx).Elem(), nil
	}

	instance, err := r.Resolve(dep.key)
	if err != nil {
		var re *ResolutionError
		if errors.As(err, &re) && re.Key == dep.key {
			if dep.hasDefault {
				return dep.defaultValue, nil
			}
			return reflect.Value{}, &DependencyNotFoundError{
				Parameter:  dep.label,
				Dependency: dep.key,
				Requester:  requester,
			}
		}
		return reflect.Value{}, err
	}

	return valueFor(instance, dep.key)
}

// valueFor converts a resolved instance into a value of the key's type.
func valueFor(instance interface{}, key Key) (reflect.Value, error) {
	if instance == nil {
		return reflect.Zero(key.Type), nil
	}
	v := reflect.ValueOf(instance)
	if !v.Type().AssignableTo(key.Type) {
		return reflect.Value{}, &ConstructionError{
			Key:   key,
			Cause: fmt.Errorf("resolved %v is not assignable to %v", v.Type(), key.Type),
		}
	}
	return v, nil
}

// buildPrototype makes a shallow copy of the prototype struct and injects
// its dependencies.
func buildPrototype(r Resolver, d *ServiceDescriptor) (interface{}, error) {
	instance := reflect.New(d.prototype.Type().Elem())
	instance.Elem().Set(d.prototype.Elem())

	requester := d.requester()
	fields := fieldCache.getFieldInfo(instance.Type())
	for i, dep := range d.dependencies {
		value, err := wireDependency(r, dep, requester)
		if err != nil {
			return nil, err
		}
		instance.Elem().Field(fields[i].index).Set(value)
	}

	return instance.Interface(), nil
}

// Inject fills the `inject`-tagged fields of an existing struct through r.
// Required fields with no registration and no current value fail with
// DependencyNotFoundError; optional ones keep their current value.
//
// Example:
//
//	type Handler struct {
//	    Logger Logger `inject:""`
//	    Cache  Cache  `inject:"optional"`
//	}
//
//	h := &Handler{}
//	err := nasc.Inject(container, h)
func Inject(r Resolver, target interface{}) error {
	if r == nil {
		return errors.New("cannot inject with nil resolver")
	}
	if target == nil {
		return errors.New("cannot inject into nil target")
	}

	value := reflect.ValueOf(target)
	if value.Kind() != reflect.Ptr || value.IsNil() || value.Elem().Kind() != reflect.Struct {
		return fmt.Errorf("Inject requires a non-nil pointer to struct, got %T", target)
	}

	elem := value.Elem()
	fields := fieldCache.getFieldInfo(elem.Type())
	requester := value.Type().String()

	for i, dep := range fieldDependencies(elem) {
		resolved, err := wireDependency(r, dep, requester)
		if err != nil {
			return fmt.Errorf("failed to inject field %s: %w", fields[i].name, err)
		}
		elem.Field(fields[i].index).Set(resolved)
	}

	return nil
}
