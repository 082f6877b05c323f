package logger

import "time"

// Field names shared by every package.
const (
	FieldApp       = "app"
	FieldComponent = "component"
	FieldOperation = "operation"
	FieldError     = "error"
	FieldDuration  = "duration_ms"
)

// Fields builds a field map from alternating keys and values. Pairs whose
// key is not a string are skipped.
//
//	log.Info("Tables created", logger.Fields("tables", 3))
func Fields(kvs ...interface{}) map[string]interface{} {
	m := make(map[string]interface{}, len(kvs)/2)
	for i := 0; i+1 < len(kvs); i += 2 {
		if key, ok := kvs[i].(string); ok {
			m[key] = kvs[i+1]
		}
	}
	return m
}

// ErrorFields names the failed operation and its error.
func ErrorFields(op string, err error) map[string]interface{} {
	return map[string]interface{}{FieldOperation: op, FieldError: err.Error()}
}

// DurationFields names an operation and how long it took.
func DurationFields(op string, d time.Duration) map[string]interface{} {
	return map[string]interface{}{FieldOperation: op, FieldDuration: d.Milliseconds()}
}
