package dbexec

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/therciotr/TrMultichat-sub001/internal/sqlutil"
)

// TemplateFunc builds the SQL text for one candidate table identifier. The
// identifier is already quote-escaped where quoting is needed; everything
// else in the statement must use bound parameters.
type TemplateFunc func(tableIdent string) string

// QueryCandidates runs the templated query against each candidate table in
// order and returns the first successful result along with the winning
// identifier.
//
// Only undefined-table failures advance the iteration. Every other failure
// (syntax errors, constraint violations, connectivity faults, cancellation)
// aborts immediately and propagates, so a real fault is never swallowed under
// the guise of schema drift. When every candidate is exhausted the terminal
// error wraps sqlutil.ErrNoRelation, which callers may route to the legacy
// mapping fallback.
func QueryCandidates(ctx context.Context, exec QueryExecutor, candidates []string, tmpl TemplateFunc, args ...any) (Rows, string, error) {
	var lastErr error
	for _, ident := range candidates {
		if err := ctx.Err(); err != nil {
			return nil, "", err
		}
		rows, err := exec.QueryContext(ctx, tmpl(ident), args...)
		if err == nil {
			return rows, ident, nil
		}
		if sqlutil.IsCanceled(err) || !sqlutil.IsUndefinedTable(err) {
			return nil, ident, err
		}
		lastErr = err
	}
	return nil, "", exhausted(candidates, lastErr)
}

// ExecCandidates is QueryCandidates for statements that return an affected-row
// count instead of rows.
func ExecCandidates(ctx context.Context, exec QueryExecutor, candidates []string, tmpl TemplateFunc, args ...any) (sql.Result, string, error) {
	var lastErr error
	for _, ident := range candidates {
		if err := ctx.Err(); err != nil {
			return nil, "", err
		}
		res, err := exec.ExecContext(ctx, tmpl(ident), args...)
		if err == nil {
			return res, ident, nil
		}
		if sqlutil.IsCanceled(err) || !sqlutil.IsUndefinedTable(err) {
			return nil, ident, err
		}
		lastErr = err
	}
	return nil, "", exhausted(candidates, lastErr)
}

func exhausted(candidates []string, lastErr error) error {
	if len(candidates) == 0 {
		return fmt.Errorf("%w: empty candidate list", sqlutil.ErrNoRelation)
	}
	if lastErr != nil {
		return fmt.Errorf("%w: tried %d candidates, last: %v", sqlutil.ErrNoRelation, len(candidates), lastErr)
	}
	return sqlutil.ErrNoRelation
}
