package nasc

import (
	"errors"
	"fmt"
	"reflect"
)

// constructorInfo holds metadata about a constructor function.
//
// Supported signatures:
//   - func() T
//   - func() (T, error)
//   - func(Dep1, Dep2, ...) T
//   - func(Dep1, Dep2, ...) (T, error)
//
// A parameter of type Resolver receives the resolver doing the build and a
// parameter of type context.Context receives the resolution context.
type constructorInfo struct {
	fn           reflect.Value
	fnType       reflect.Type
	params       []dependency
	returnsError bool
	returnType   reflect.Type
}

// parseConstructor analyzes a constructor function and extracts metadata.
func parseConstructor(constructor interface{}) (*constructorInfo, error) {
	if constructor == nil {
		return nil, errors.New("constructor cannot be nil")
	}

	fnValue := reflect.ValueOf(constructor)
	fnType := fnValue.Type()

	if fnType.Kind() != reflect.Func {
		return nil, fmt.Errorf("constructor must be a function, got %v", fnType.Kind())
	}
	if fnValue.IsNil() {
		return nil, errors.New("constructor cannot be a nil function")
	}
	if fnType.IsVariadic() {
		return nil, errors.New("constructor cannot be variadic")
	}

	numOut := fnType.NumOut()
	if numOut == 0 || numOut > 2 {
		return nil, fmt.Errorf("constructor must return (T) or (T, error), got %d return values", numOut)
	}

	returnsError := false
	if numOut == 2 {
		if fnType.Out(1) != errorType {
			return nil, fmt.Errorf("constructor's second return value must be error, got %v", fnType.Out(1))
		}
		returnsError = true
	}

	params := make([]dependency, fnType.NumIn())
	for i := range params {
		params[i] = newParamDependency(i, fnType.In(i))
	}

	return &constructorInfo{
		fn:           fnValue,
		fnType:       fnType,
		params:       params,
		returnsError: returnsError,
		returnType:   fnType.Out(0),
	}, nil
}

// invokeWith resolves every parameter through r and calls the constructor.
func (info *constructorInfo) invokeWith(r Resolver, deps []dependency, requester string) ([]reflect.Value, error) {
	args := make([]reflect.Value, len(deps))
	for i, dep := range deps {
		value, err := wireDependency(r, dep, requester)
		if err != nil {
			return nil, err
		}
		args[i] = value
	}
	return info.fn.Call(args), nil
}

// buildConstructor calls the descriptor's constructor with auto-wired
// arguments.
func buildConstructor(r Resolver, d *ServiceDescriptor) (interface{}, error) {
	info := d.constructor
	results, err := info.invokeWith(r, d.dependencies, d.requester())
	if err != nil {
		return nil, err
	}

	if info.returnsError && !results[1].IsNil() {
		return nil, results[1].Interface().(error)
	}

	return results[0].Interface(), nil
}

// Invoke calls fn with each of its parameters resolved through r and returns
// fn's results. If fn's last result is an error, it is returned as the error
// and left out of the results.
//
// Example:
//
//	_, err := nasc.Invoke(container, func(logger Logger, db Database) error {
//	    return db.Migrate(logger)
//	})
func Invoke(r Resolver, fn interface{}) ([]interface{}, error) {
	if r == nil {
		return nil, errors.New("cannot invoke with nil resolver")
	}
	if fn == nil {
		return nil, errors.New("cannot invoke nil function")
	}

	fnValue := reflect.ValueOf(fn)
	fnType := fnValue.Type()
	if fnType.Kind() != reflect.Func || fnValue.IsNil() {
		return nil, fmt.Errorf("Invoke requires a function, got %T", fn)
	}
	if fnType.IsVariadic() {
		return nil, errors.New("Invoke does not support variadic functions")
	}

	info := &constructorInfo{fn: fnValue, fnType: fnType}
	deps := make([]dependency, fnType.NumIn())
	for i := range deps {
		deps[i] = newParamDependency(i, fnType.In(i))
	}

	results, err := info.invokeWith(r, deps, fnType.String())
	if err != nil {
		return nil, err
	}

	out := make([]interface{}, 0, len(results))
	for i, result := range results {
		if i == len(results)-1 && fnType.Out(i) == errorType {
			if !result.IsNil() {
				return out, result.Interface().(error)
			}
			break
		}
		out = append(out, result.Interface())
	}
	return out, nil
}
