// Package service implements the platform operations over the
// schema-adaptive store: queues, queue options and WhatsApp connections,
// each tenant-scoped and tolerant of drifted physical schemas.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	sq "github.com/Masterminds/squirrel"

	"github.com/therciotr/TrMultichat-sub001/internal/entity"
	"github.com/therciotr/TrMultichat-sub001/internal/introspection"
	"github.com/therciotr/TrMultichat-sub001/internal/sqlutil"
	"github.com/therciotr/TrMultichat-sub001/internal/store"
	"github.com/therciotr/TrMultichat-sub001/internal/tenant"
)

// ErrNotFound reports that no record matched within the tenant's scope.
var ErrNotFound = errors.New("record not found")

// ErrOwnership reports that a client-supplied reference points at a record
// the authenticated tenant does not own. Callers must not distinguish this
// from a missing record in responses, to avoid leaking other tenants' ids.
var ErrOwnership = errors.New("referenced record is not owned by the tenant")

// toStatement adapts a per-identifier squirrel builder into a statement
// template plus its bound arguments. Only the table identifier varies across
// candidates, so the arguments are captured once from a probe render.
func toStatement(kind store.StatementKind, build func(ident string) sq.Sqlizer) (store.Statement, error) {
	_, args, err := build(`"probe"`).ToSql()
	if err != nil {
		return store.Statement{}, fmt.Errorf("building statement: %w", err)
	}
	return store.Statement{
		Kind: kind,
		Template: func(ident string) string {
			q, _, _ := build(ident).ToSql()
			return q
		},
		Args: args,
	}, nil
}

// pickPresent resolves one logical column against the table's column map.
// The first spelling is canonical; later spellings cover legacy conventions.
// A degraded (empty) map cannot prove absence, so the canonical spelling is
// assumed present and the database reports any mismatch.
func pickPresent(cols introspection.ColumnMap, spellings ...string) (string, bool) {
	if len(cols) == 0 {
		return spellings[0], true
	}
	for _, s := range spellings {
		if cols.Has(s) {
			return cols.Pick(s, s), true
		}
	}
	return "", false
}

// projection builds the quoted select list from the logical columns that
// actually exist on the table.
func projection(cols introspection.ColumnMap, spellings [][]string) []string {
	out := make([]string, 0, len(spellings))
	for _, alts := range spellings {
		if name, ok := pickPresent(cols, alts...); ok {
			out = append(out, sqlutil.QuoteIdentifier(name))
		}
	}
	return out
}

func joinIdents(idents []string) string {
	return strings.Join(idents, ", ")
}

// scopeEntity resolves an entity's binding and column map and builds its
// tenant filter. A table proven to lack a tenant column runs unscoped, as an
// explicit logged exception.
func scopeEntity(ctx context.Context, st *store.Store, tc tenant.Context, ent entity.Entity) (introspection.ColumnMap, sq.Eq, bool, error) {
	b, err := st.ResolveTable(ctx, ent)
	if err != nil {
		return nil, nil, false, err
	}
	cols := st.Columns(ctx, b)
	d, _ := entity.Lookup(ent)
	filter, scoped, err := tenant.ScopeFilter(tc, cols, d.TenantColumns)
	if err != nil {
		return nil, nil, false, err
	}
	if !scoped {
		st.Metrics().RecordUnscoped(ctx, ent.String())
		st.Logger().Warn("table has no tenant column, running unscoped",
			slog.String("entity", ent.String()),
			slog.String("table", b.Table),
		)
	}
	return cols, filter, scoped, nil
}
