package tenant

import (
	sq "github.com/Masterminds/squirrel"

	"github.com/therciotr/TrMultichat-sub001/internal/introspection"
	"github.com/therciotr/TrMultichat-sub001/internal/sqlutil"
)

// ScopeFilter builds the mandatory tenant equality filter for a statement
// against the given table. The tenant id is always bound from the
// authenticated context, never from client-supplied data.
//
// Returns scoped=false only when the column map proves the table has no
// tenant column under any accepted spelling; callers must treat that as an
// explicit, logged exception, not a silent default. A degraded (empty) column
// map cannot prove absence, so the canonical spelling is used as a best guess
// and the database reports the mismatch if there is one.
func ScopeFilter(tc Context, cols introspection.ColumnMap, candidates []string) (filter sq.Eq, scoped bool, err error) {
	if !tc.Valid() {
		return nil, false, sqlutil.ErrScopeViolation
	}
	if len(candidates) == 0 {
		candidates = []string{"companyId"}
	}

	if len(cols) > 0 {
		found := false
		for _, cand := range candidates {
			if cols.Has(cand) {
				found = true
				break
			}
		}
		if !found {
			return nil, false, nil
		}
	}

	col := cols.Pick(candidates[0], candidates...)
	return sq.Eq{sqlutil.QuoteIdentifier(col): tc.CompanyID}, true, nil
}

// ScopeColumn returns the actual-cased tenant column for the table, or the
// canonical fallback when introspection was degraded. The boolean mirrors
// ScopeFilter's scoped result.
func ScopeColumn(cols introspection.ColumnMap, candidates []string) (string, bool) {
	if len(candidates) == 0 {
		candidates = []string{"companyId"}
	}
	if len(cols) > 0 {
		found := false
		for _, cand := range candidates {
			if cols.Has(cand) {
				found = true
				break
			}
		}
		if !found {
			return "", false
		}
	}
	return cols.Pick(candidates[0], candidates...), true
}
