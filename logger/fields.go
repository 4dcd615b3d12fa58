package logger

// Standard field keys used by the container.
const (
	FieldComponent = "component"
	FieldKey       = "key"
	FieldLifetime  = "lifetime"
	FieldScopeID   = "scope_id"
	FieldCount     = "count"
	FieldError     = "error"
)

// Fields builds a map[string]interface{} from alternating key-value pairs.
//
//	log.Debug("singleton created", logger.Fields("key", key.String()))
func Fields(kvs ...interface{}) map[string]interface{} {
	m := make(map[string]interface{}, len(kvs)/2)
	for i := 0; i < len(kvs)-1; i += 2 {
		if key, ok := kvs[i].(string); ok {
			m[key] = kvs[i+1]
		}
	}
	return m
}
