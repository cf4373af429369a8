package legacy

import (
	"context"
	"fmt"
	"log/slog"
	"sort"

	sq "github.com/Masterminds/squirrel"

	"github.com/therciotr/TrMultichat-sub001/internal/dbexec"
	"github.com/therciotr/TrMultichat-sub001/internal/sqlutil"
	"github.com/therciotr/TrMultichat-sub001/internal/tenant"
)

// Adapter executes the four legacy operations against a registry of
// declarative mappings, applying tenant scoping through the mapping's own
// filter column.
type Adapter struct {
	exec   dbexec.QueryExecutor
	reg    *Registry
	logger *slog.Logger
}

// NewAdapter creates a fallback adapter over the shared executor.
func NewAdapter(exec dbexec.QueryExecutor, reg *Registry, logger *slog.Logger) *Adapter {
	if logger == nil {
		logger = slog.Default()
	}
	return &Adapter{exec: exec, reg: reg, logger: logger}
}

// Registry returns the adapter's mapping registry.
func (a *Adapter) Registry() *Registry {
	return a.reg
}

// FindAll returns every mapped row for the tenant, with optional extra
// column filters (column names are mapping-era physical names).
func (a *Adapter) FindAll(ctx context.Context, entityName string, tc tenant.Context, extra sq.Eq) ([]map[string]any, error) {
	m, builder, err := a.selectBuilder(entityName, tc, extra)
	if err != nil {
		return nil, err
	}

	query, args, err := builder.OrderBy(sqlutil.QuoteIdentifier(m.PrimaryKey)).ToSql()
	if err != nil {
		return nil, err
	}
	rows, err := a.exec.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	return dbexec.ScanAll(rows)
}

// FindOne returns the first mapped row matching the filters, or nil when
// nothing matches.
func (a *Adapter) FindOne(ctx context.Context, entityName string, tc tenant.Context, extra sq.Eq) (map[string]any, error) {
	_, builder, err := a.selectBuilder(entityName, tc, extra)
	if err != nil {
		return nil, err
	}

	query, args, err := builder.Limit(1).ToSql()
	if err != nil {
		return nil, err
	}
	rows, err := a.exec.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	all, err := dbexec.ScanAll(rows)
	if err != nil {
		return nil, err
	}
	if len(all) == 0 {
		return nil, nil
	}
	return all[0], nil
}

// FindByPk returns the mapped row with the given primary key, tenant-scoped.
func (a *Adapter) FindByPk(ctx context.Context, entityName string, tc tenant.Context, pk any) (map[string]any, error) {
	m, ok := a.reg.Lookup(entityName)
	if !ok {
		return nil, notImplemented(entityName)
	}
	return a.FindOne(ctx, entityName, tc, sq.Eq{sqlutil.QuoteIdentifier(m.PrimaryKey): pk})
}

// Create inserts a row with the mapping's tenant column forced to the
// authenticated tenant and returns the new primary key.
func (a *Adapter) Create(ctx context.Context, entityName string, tc tenant.Context, values map[string]any) (int64, error) {
	m, ok := a.reg.Lookup(entityName)
	if !ok {
		return 0, notImplemented(entityName)
	}
	if m.TenantColumn != "" && !tc.Valid() {
		return 0, sqlutil.ErrScopeViolation
	}

	builder := sq.Insert(sqlutil.QuoteIdentifier(m.Table)).PlaceholderFormat(sq.Dollar)
	cols, vals := orderedValues(values)
	if m.TenantColumn != "" {
		cols = append(cols, sqlutil.QuoteIdentifier(m.TenantColumn))
		vals = append(vals, tc.CompanyID)
	}
	builder = builder.Columns(cols...).Values(vals...).
		Suffix("RETURNING " + sqlutil.QuoteIdentifier(m.PrimaryKey))

	query, args, err := builder.ToSql()
	if err != nil {
		return 0, err
	}

	rows, err := a.exec.QueryContext(ctx, query, args...)
	if err != nil {
		return 0, err
	}
	all, err := dbexec.ScanAll(rows)
	if err != nil {
		return 0, err
	}
	if len(all) == 0 {
		return 0, fmt.Errorf("insert into %s returned no key", m.Table)
	}
	return toInt64(all[0][m.PrimaryKey]), nil
}

// Update changes the mapped row with the given primary key and returns the
// affected-row count.
func (a *Adapter) Update(ctx context.Context, entityName string, tc tenant.Context, pk any, values map[string]any) (int64, error) {
	m, ok := a.reg.Lookup(entityName)
	if !ok {
		return 0, notImplemented(entityName)
	}
	if m.TenantColumn != "" && !tc.Valid() {
		return 0, sqlutil.ErrScopeViolation
	}

	builder := sq.Update(sqlutil.QuoteIdentifier(m.Table)).PlaceholderFormat(sq.Dollar)
	cols, vals := orderedValues(values)
	for i, col := range cols {
		builder = builder.Set(col, vals[i])
	}
	builder = builder.Where(sq.Eq{sqlutil.QuoteIdentifier(m.PrimaryKey): pk})
	if m.TenantColumn != "" {
		builder = builder.Where(sq.Eq{sqlutil.QuoteIdentifier(m.TenantColumn): tc.CompanyID})
	}

	query, args, err := builder.ToSql()
	if err != nil {
		return 0, err
	}
	res, err := a.exec.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// Destroy deletes the mapped row with the given primary key and returns the
// affected-row count.
func (a *Adapter) Destroy(ctx context.Context, entityName string, tc tenant.Context, pk any) (int64, error) {
	m, ok := a.reg.Lookup(entityName)
	if !ok {
		return 0, notImplemented(entityName)
	}
	if m.TenantColumn != "" && !tc.Valid() {
		return 0, sqlutil.ErrScopeViolation
	}

	builder := sq.Delete(sqlutil.QuoteIdentifier(m.Table)).
		PlaceholderFormat(sq.Dollar).
		Where(sq.Eq{sqlutil.QuoteIdentifier(m.PrimaryKey): pk})
	if m.TenantColumn != "" {
		builder = builder.Where(sq.Eq{sqlutil.QuoteIdentifier(m.TenantColumn): tc.CompanyID})
	}

	query, args, err := builder.ToSql()
	if err != nil {
		return 0, err
	}
	res, err := a.exec.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (a *Adapter) selectBuilder(entityName string, tc tenant.Context, extra sq.Eq) (Mapping, sq.SelectBuilder, error) {
	m, ok := a.reg.Lookup(entityName)
	if !ok {
		return Mapping{}, sq.SelectBuilder{}, notImplemented(entityName)
	}

	cols := make([]string, len(m.Columns))
	for i, c := range m.Columns {
		cols[i] = sqlutil.QuoteIdentifier(c)
	}
	builder := sq.Select(cols...).
		From(sqlutil.QuoteIdentifier(m.Table)).
		PlaceholderFormat(sq.Dollar)

	if m.TenantColumn != "" {
		if !tc.Valid() {
			return Mapping{}, sq.SelectBuilder{}, sqlutil.ErrScopeViolation
		}
		builder = builder.Where(sq.Eq{sqlutil.QuoteIdentifier(m.TenantColumn): tc.CompanyID})
	} else {
		a.logger.Warn("legacy mapping runs unscoped: table has no tenant column",
			slog.String("entity", entityName),
			slog.String("table", m.Table),
		)
	}

	if len(extra) > 0 {
		builder = builder.Where(extra)
	}
	return m, builder, nil
}

// orderedValues flattens a value map deterministically so generated SQL is
// stable across runs.
func orderedValues(values map[string]any) ([]string, []any) {
	keys := make([]string, 0, len(values))
	for k := range values {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	cols := make([]string, len(keys))
	vals := make([]any, len(keys))
	for i, k := range keys {
		cols[i] = sqlutil.QuoteIdentifier(k)
		vals[i] = values[k]
	}
	return cols, vals
}

func toInt64(v any) int64 {
	switch n := v.(type) {
	case int64:
		return n
	case int32:
		return int64(n)
	case int:
		return int64(n)
	default:
		return 0
	}
}

func notImplemented(entityName string) error {
	return fmt.Errorf("%w: %s", sqlutil.ErrNotImplemented, entityName)
}
