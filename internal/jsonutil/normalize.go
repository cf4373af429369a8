// Package jsonutil normalizes heterogeneous client input destined for
// JSON-typed columns.
package jsonutil

import (
	"encoding/json"
)

// NormalizeParam converts a value bound for a JSON/JSONB column into canonical
// JSON text. Callers may hand over nil, an already-serialized JSON string, or
// a structured value.
//
// A string that parses as JSON passes through verbatim. A string that does
// NOT parse also passes through unchanged: the failure, if any, is deferred
// to the database's JSON cast at write time. That leniency is deliberate and
// load-bearing for existing tenants; tightening it is a product decision, not
// a bug fix.
//
// NormalizeParam never fails; the worst case is nil.
func NormalizeParam(v any) any {
	if v == nil {
		return nil
	}

	if s, ok := v.(string); ok {
		return s
	}
	if raw, ok := v.(json.RawMessage); ok {
		return string(raw)
	}

	serialized, err := json.Marshal(v)
	if err != nil {
		return nil
	}
	return string(serialized)
}

// IsValid reports whether s is syntactically valid JSON. Exposed so callers
// that want to log the leniency (a pass-through of invalid text) can detect
// it without changing behavior.
func IsValid(s string) bool {
	return json.Valid([]byte(s))
}
