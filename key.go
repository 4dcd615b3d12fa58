package nasc

import (
	"fmt"
	"reflect"
)

// Key identifies a contract in the container: the abstract type plus an
// optional name for keeping several bindings of the same type apart.
type Key struct {
	Type reflect.Type
	Name string
}

// KeyOf builds a Key from a type token. Interface contracts are passed as a
// nil pointer to the interface, so one level of pointer is stripped:
//
//	nasc.KeyOf((*Logger)(nil)) // Key{Type: Logger}
func KeyOf(token interface{}) Key {
	if token == nil {
		return Key{}
	}
	t := reflect.TypeOf(token)
	if t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	return Key{Type: t}
}

// TypeKey returns the Key for T.
func TypeKey[T any]() Key {
	return Key{Type: reflect.TypeOf((*T)(nil)).Elem()}
}

// NamedKey returns the Key for T under name.
func NamedKey[T any](name string) Key {
	return Key{Type: reflect.TypeOf((*T)(nil)).Elem(), Name: name}
}

// Named returns a copy of k bound to name.
func (k Key) Named(name string) Key {
	return Key{Type: k.Type, Name: name}
}

func (k Key) String() string {
	typeStr := "<nil>"
	if k.Type != nil {
		typeStr = k.Type.String()
	}
	if k.Name != "" {
		return fmt.Sprintf("%s[%s]", typeStr, k.Name)
	}
	return typeStr
}
