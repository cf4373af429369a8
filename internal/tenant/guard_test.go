package tenant

import (
	"context"
	"errors"
	"testing"

	sq "github.com/Masterminds/squirrel"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/therciotr/TrMultichat-sub001/internal/introspection"
	"github.com/therciotr/TrMultichat-sub001/internal/sqlutil"
)

var queueCols = introspection.ColumnMap{
	"id":        "id",
	"name":      "name",
	"companyid": "companyId",
}

func TestScopeFilterUsesActualCasing(t *testing.T) {
	tc := Context{CompanyID: 7, UserID: 3, Profile: "admin"}

	filter, scoped, err := ScopeFilter(tc, queueCols, []string{"companyId", "company_id"})
	require.NoError(t, err)
	require.True(t, scoped)

	assert.Equal(t, sq.Eq{`"companyId"`: int64(7)}, filter)
}

func TestScopeFilterRejectsMissingTenant(t *testing.T) {
	_, _, err := ScopeFilter(Context{}, queueCols, []string{"companyId"})
	assert.ErrorIs(t, err, sqlutil.ErrScopeViolation)

	_, _, err = ScopeFilter(Context{CompanyID: 0, UserID: 5}, queueCols, []string{"companyId"})
	assert.ErrorIs(t, err, sqlutil.ErrScopeViolation)
}

func TestScopeFilterLegacySpelling(t *testing.T) {
	legacy := introspection.ColumnMap{"id": "id", "company_id": "company_id"}

	filter, scoped, err := ScopeFilter(Context{CompanyID: 9}, legacy, []string{"companyId", "company_id"})
	require.NoError(t, err)
	require.True(t, scoped)
	assert.Equal(t, sq.Eq{`"company_id"`: int64(9)}, filter)
}

func TestScopeFilterProvenAbsence(t *testing.T) {
	// A populated map with no tenant column under any spelling: the statement
	// may run unscoped, but only as an explicit exception the caller logs.
	global := introspection.ColumnMap{"id": "id", "value": "value"}

	filter, scoped, err := ScopeFilter(Context{CompanyID: 7}, global, []string{"companyId", "company_id"})
	require.NoError(t, err)
	assert.False(t, scoped)
	assert.Nil(t, filter)
}

func TestScopeFilterDegradedMap(t *testing.T) {
	// An empty map means introspection failed, not that the column is absent:
	// scope with the canonical spelling and let the database arbitrate.
	filter, scoped, err := ScopeFilter(Context{CompanyID: 7}, introspection.ColumnMap{}, []string{"companyId"})
	require.NoError(t, err)
	require.True(t, scoped)
	assert.Equal(t, sq.Eq{`"companyId"`: int64(7)}, filter)
}

func TestContextRoundTrip(t *testing.T) {
	ctx := context.Background()

	_, ok := From(ctx)
	assert.False(t, ok)

	tc := Context{CompanyID: 4, UserID: 11, Profile: "user"}
	got, ok := From(With(ctx, tc))
	require.True(t, ok)
	assert.Equal(t, tc, got)
}

func TestScopeColumn(t *testing.T) {
	col, ok := ScopeColumn(queueCols, []string{"companyId"})
	require.True(t, ok)
	assert.Equal(t, "companyId", col)

	_, ok = ScopeColumn(introspection.ColumnMap{"id": "id"}, []string{"companyId"})
	assert.False(t, ok)
}

func TestScopeFilterValuePropagates(t *testing.T) {
	filter, _, err := ScopeFilter(Context{CompanyID: 42}, queueCols, []string{"companyId"})
	require.NoError(t, err)

	sqlText, args, err := sq.Select(`"id"`).From(`"Queues"`).Where(filter).
		PlaceholderFormat(sq.Dollar).ToSql()
	require.NoError(t, err)
	assert.Contains(t, sqlText, `"companyId" = $1`)
	assert.Equal(t, []interface{}{int64(42)}, args)
}

func TestErrScopeViolationIdentity(t *testing.T) {
	_, _, err := ScopeFilter(Context{}, nil, nil)
	assert.True(t, errors.Is(err, sqlutil.ErrScopeViolation))
}
