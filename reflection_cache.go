package nasc

import (
	"reflect"
	"sync"
)

// reflectionCache caches the injectable fields of struct types so repeated
// prototype builds and Inject calls skip the field scan.
type reflectionCache struct {
	mu     sync.RWMutex
	fields map[reflect.Type][]fieldInfo
}

// fieldInfo stores metadata about an injectable struct field.
type fieldInfo struct {
	index   int
	name    string
	typ     reflect.Type
	options tagOptions
}

var fieldCache = newReflectionCache()

func newReflectionCache() *reflectionCache {
	return &reflectionCache{
		fields: make(map[reflect.Type][]fieldInfo),
	}
}

// getFieldInfo returns the exported, `inject`-tagged, non-skipped fields of
// the struct type typ (or of the struct typ points to).
func (rc *reflectionCache) getFieldInfo(typ reflect.Type) []fieldInfo {
	if typ.Kind() == reflect.Ptr {
		typ = typ.Elem()
	}

	rc.mu.RLock()
	fields, exists := rc.fields[typ]
	rc.mu.RUnlock()
	if exists {
		return fields
	}

	rc.mu.Lock()
	defer rc.mu.Unlock()

	if fields, exists = rc.fields[typ]; exists {
		return fields
	}

	if typ.Kind() != reflect.Struct {
		rc.fields[typ] = nil
		return nil
	}

	for i := 0; i < typ.NumField(); i++ {
		field := typ.Field(i)
		tag, hasInjectTag := field.Tag.Lookup("inject")
		if !hasInjectTag || !field.IsExported() {
			continue
		}
		opts := parseInjectTag(tag)
		if opts.skip {
			continue
		}
		fields = append(fields, fieldInfo{
			index:   i,
			name:    field.Name,
			typ:     field.Type,
			options: opts,
		})
	}

	rc.fields[typ] = fields
	return fields
}
