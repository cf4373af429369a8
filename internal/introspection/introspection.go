// Package introspection discovers physical schema metadata from the database
// catalog. Tenant databases drift from the canonical schema (casing,
// pluralization, missing optional columns), so nothing here is authoritative:
// catalog lookups are a best-effort optimization and the real correctness
// guarantee comes from executing candidate statements.
package introspection

import (
	"context"
	"database/sql"
	"sort"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Queryer provides query access for schema introspection.
type Queryer interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

// ListTables returns the actual-cased names of all tables and views in the
// given schema, ordered by name.
func ListTables(ctx context.Context, db Queryer, schema string) ([]string, error) {
	ctx, span := startSpan(ctx, "introspection.list_tables",
		attribute.String("db.schema", schema),
	)
	defer span.End()

	query := `
		SELECT table_name
		FROM information_schema.tables
		WHERE table_schema = $1
		AND table_type IN ('BASE TABLE', 'VIEW')
		ORDER BY table_name
	`

	rows, err := db.QueryContext(ctx, query, schema)
	if err != nil {
		recordSpanError(span, err)
		return nil, err
	}
	defer func() {
		_ = rows.Close()
	}()

	var tables []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			recordSpanError(span, err)
			return nil, err
		}
		tables = append(tables, name)
	}

	if err := rows.Err(); err != nil {
		recordSpanError(span, err)
		return nil, err
	}
	return tables, nil
}

// FindTable returns the actual-cased physical name of the first candidate
// present in the catalog. Each candidate is tried exact-case first; only if
// no table matches exactly does the lookup fall back to a case-insensitive
// comparison. Quoted candidates are compared by their inner name. The
// candidate order encodes priority and is preserved: the first listed
// candidate that exists wins.
func FindTable(ctx context.Context, db Queryer, schema string, candidates []string) (string, bool, error) {
	tables, err := ListTables(ctx, db, schema)
	if err != nil {
		return "", false, err
	}

	exact := make(map[string]struct{}, len(tables))
	byLower := make(map[string][]string, len(tables))
	for _, t := range tables {
		exact[t] = struct{}{}
		lower := strings.ToLower(t)
		byLower[lower] = append(byLower[lower], t)
	}

	for _, cand := range candidates {
		name := stripQuotes(cand)
		if _, ok := exact[name]; ok {
			return name, true, nil
		}
		// Case variants keep catalog order, so drifted casings resolve
		// the same way on every call.
		if variants := byLower[strings.ToLower(name)]; len(variants) > 0 {
			return variants[0], true, nil
		}
	}
	return "", false, nil
}

// FindTableLike returns the table whose name contains every given substring,
// case-insensitively. Ties rank shortest name first so concise canonical names
// beat verbose legacy ones.
func FindTableLike(ctx context.Context, db Queryer, schema string, substrings ...string) (string, bool, error) {
	tables, err := ListTables(ctx, db, schema)
	if err != nil {
		return "", false, err
	}

	var matches []string
	for _, t := range tables {
		lower := strings.ToLower(t)
		all := true
		for _, sub := range substrings {
			if !strings.Contains(lower, strings.ToLower(sub)) {
				all = false
				break
			}
		}
		if all {
			matches = append(matches, t)
		}
	}
	if len(matches) == 0 {
		return "", false, nil
	}

	sort.SliceStable(matches, func(i, j int) bool {
		if len(matches[i]) != len(matches[j]) {
			return len(matches[i]) < len(matches[j])
		}
		return matches[i] < matches[j]
	})
	return matches[0], true, nil
}

// TableColumns introspects the catalog for all columns of the given table and
// returns a ColumnMap keyed by lowercase name with the actual casing as value.
// An empty map is a valid degraded result meaning "could not introspect".
func TableColumns(ctx context.Context, db Queryer, schema, table string) (ColumnMap, error) {
	ctx, span := startSpan(ctx, "introspection.table_columns",
		attribute.String("db.schema", schema),
		attribute.String("db.table", table),
	)
	defer span.End()

	query := `
		SELECT column_name
		FROM information_schema.columns
		WHERE table_schema = $1 AND table_name = $2
		ORDER BY ordinal_position
	`

	rows, err := db.QueryContext(ctx, query, schema, table)
	if err != nil {
		recordSpanError(span, err)
		return nil, err
	}
	defer func() {
		_ = rows.Close()
	}()

	cols := ColumnMap{}
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			recordSpanError(span, err)
			return nil, err
		}
		key := strings.ToLower(name)
		// Keep the first spelling when a drifted schema momentarily carries
		// two columns differing only in case.
		if _, ok := cols[key]; !ok {
			cols[key] = name
		}
	}

	if err := rows.Err(); err != nil {
		recordSpanError(span, err)
		return nil, err
	}
	return cols, nil
}

func stripQuotes(name string) string {
	if len(name) >= 2 && strings.HasPrefix(name, `"`) && strings.HasSuffix(name, `"`) {
		return strings.ReplaceAll(name[1:len(name)-1], `""`, `"`)
	}
	return name
}

func startSpan(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	tracer := otel.Tracer("trmultichat/introspection")
	ctx, span := tracer.Start(ctx, name)
	if len(attrs) > 0 {
		span.SetAttributes(attrs...)
	}
	return ctx, span
}

func recordSpanError(span trace.Span, err error) {
	if err == nil {
		return
	}
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}
