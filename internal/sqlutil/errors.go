package sqlutil

import (
	"context"
	"errors"
	"regexp"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
)

// Sentinel errors for the query-resolution layer.
var (
	// ErrNoRelation is returned after every table candidate has failed with an
	// undefined-table error. Callers may route it to the legacy mapping fallback.
	ErrNoRelation = errors.New("no matching relation for any candidate table")

	// ErrScopeViolation is returned when a tenant-scoped statement is attempted
	// without a valid tenant context. This is a programming error and is never
	// downgraded to an empty filter.
	ErrScopeViolation = errors.New("tenant-scoped statement without tenant context")

	// ErrNotImplemented is returned when neither a candidate table nor a legacy
	// mapping exists for a logical entity. Distinct from not-found.
	ErrNotImplemented = errors.New("no data path registered for entity")
)

// SQLSTATE codes used for structured error classification.
const (
	pgUndefinedTable  = "42P01"
	pgUndefinedColumn = "42703"
	// Class 23 covers integrity constraint violations (unique, FK, not-null, check).
	pgConstraintClass = "23"
	pgQueryCanceled   = "57014"
)

// undefinedTablePattern is the message-level fallback for drivers or proxies
// that strip the structured SQLSTATE. Message matching is fragile across
// engines and locales; the SQLSTATE path is always preferred.
var undefinedTablePattern = regexp.MustCompile(`(?i)relation .* does not exist|no such table|doesn't exist`)

var undefinedColumnPattern = regexp.MustCompile(`(?i)column .* does not exist`)

// IsUndefinedTable reports whether err means the targeted relation is absent.
// This is the only error class the candidate iteration executor recovers from.
func IsUndefinedTable(err error) bool {
	if err == nil {
		return false
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == pgUndefinedTable
	}
	return undefinedTablePattern.MatchString(err.Error())
}

// IsUndefinedColumn reports whether err means a referenced column is absent.
// After the column resolver has been consulted this indicates a
// statement-construction bug and is surfaced as a hard failure.
func IsUndefinedColumn(err error) bool {
	if err == nil {
		return false
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == pgUndefinedColumn
	}
	return undefinedColumnPattern.MatchString(err.Error())
}

// IsConstraintViolation reports whether err is an integrity constraint
// violation. These are always surfaced verbatim and never retried.
func IsConstraintViolation(err error) bool {
	if err == nil {
		return false
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return strings.HasPrefix(pgErr.Code, pgConstraintClass)
	}
	return false
}

// IsCanceled reports whether err stems from caller cancellation or a pool
// timeout. Cancellation is never interpreted as schema drift.
func IsCanceled(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == pgQueryCanceled
	}
	return false
}
