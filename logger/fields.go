package logger

import (
	"strings"
	"time"
)

// Field keys shared by every vaultkit log line.
const (
	FieldComponent = "component"
	FieldTraceID   = "trace_id"
	FieldSpanID    = "span_id"
	FieldMethod    = "method"
	FieldURL       = "url"
	FieldNamespace = "namespace"
	FieldStatus    = "status"
	FieldError     = "error"
	FieldDuration  = "duration_ms"
	FieldAttempt   = "attempt"
	FieldRedirects = "redirects"
	FieldToken     = "token"
)

// Fields pairs up alternating keys and values. Non-string keys are dropped.
//
//	log.Info("mounted", logger.Fields("path", "kv/", "type", "kv-v2"))
func Fields(kvs ...interface{}) map[string]interface{} {
	m := make(map[string]interface{}, len(kvs)/2)
	for i := 0; i < len(kvs)-1; i += 2 {
		if key, ok := kvs[i].(string); ok {
			m[key] = kvs[i+1]
		}
	}
	return m
}

// RequestFields describes an outgoing Vault request. The namespace is
// omitted when empty.
func RequestFields(method, url, namespace string) map[string]interface{} {
	m := map[string]interface{}{
		FieldMethod: method,
		FieldURL:    url,
	}
	if namespace != "" {
		m[FieldNamespace] = namespace
	}
	return m
}

// MergeWithError sets the error field, allocating fields when nil.
func MergeWithError(fields map[string]interface{}, err error) map[string]interface{} {
	if fields == nil {
		fields = make(map[string]interface{})
	}
	fields[FieldError] = err.Error()
	return fields
}

// MergeWithDuration sets duration_ms, allocating fields when nil.
func MergeWithDuration(fields map[string]interface{}, d time.Duration) map[string]interface{} {
	if fields == nil {
		fields = make(map[string]interface{})
	}
	fields[FieldDuration] = d.Milliseconds()
	return fields
}

// RedactToken masks a Vault token for logging. The type prefix ("hvs.",
// "s.", "hvb.") is kept so token kinds stay distinguishable.
func RedactToken(token string) string {
	if token == "" {
		return ""
	}
	if i := strings.IndexByte(token, '.'); i > 0 && i <= 4 {
		return token[:i+1] + "****"
	}
	return "****"
}
