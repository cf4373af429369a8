// Package sqlutil provides SQL utility functions and the error taxonomy
// shared by the schema-adaptive query layer.
package sqlutil

import "strings"

// QuoteIdentifier quotes a SQL identifier (table name, column name, etc.)
// with double quotes and escapes any double quotes within the identifier.
// This is the only sanctioned concatenation point for dynamic identifiers;
// values must always travel as bound parameters.
func QuoteIdentifier(name string) string {
	escaped := strings.ReplaceAll(name, `"`, `""`)
	return `"` + escaped + `"`
}

// QuoteQualified quotes a schema-qualified identifier as "schema"."name".
// An empty schema yields a bare quoted name.
func QuoteQualified(schema, name string) string {
	if schema == "" {
		return QuoteIdentifier(name)
	}
	return QuoteIdentifier(schema) + "." + QuoteIdentifier(name)
}

// IsQuoted reports whether name is already wrapped in identifier delimiters.
func IsQuoted(name string) bool {
	return len(name) >= 2 && strings.HasPrefix(name, `"`) && strings.HasSuffix(name, `"`)
}

// Unquote strips identifier delimiters and collapses doubled inner quotes.
// Names that are not quoted are returned unchanged.
func Unquote(name string) string {
	if !IsQuoted(name) {
		return name
	}
	inner := name[1 : len(name)-1]
	return strings.ReplaceAll(inner, `""`, `"`)
}
