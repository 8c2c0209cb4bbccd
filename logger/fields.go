package logger

import (
	"time"
)

// Standard field key constants for structured logging.
const (
	FieldComponent     = "component"
	FieldTraceID       = "trace_id"
	FieldRequestID     = "request_id"
	FieldCorrelationID = "correlation_id"
	FieldUserID        = "user_id"
	FieldService       = "service"
	FieldMethod        = "method"
	FieldURL           = "url"
	FieldScopes        = "scopes"
	FieldTokenFlow     = "token_flow"
	FieldStatus        = "status"
	FieldError         = "error"
	FieldDuration      = "duration_ms"
)

// Fields builds a map[string]interface{} from alternating key-value pairs.
//
//	logger.Info("done", logger.Fields("service", "graph", "status", 200))
func Fields(kvs ...interface{}) map[string]interface{} {
	m := make(map[string]interface{}, len(kvs)/2)
	for i := 0; i < len(kvs)-1; i += 2 {
		if key, ok := kvs[i].(string); ok {
			m[key] = kvs[i+1]
		}
	}
	return m
}

// MergeWithDuration adds a duration field to an existing map.
func MergeWithDuration(fields map[string]interface{}, d time.Duration) map[string]interface{} {
	if fields == nil {
		fields = make(map[string]interface{})
	}
	fields[FieldDuration] = d.Milliseconds()
	return fields
}
