package legacy

import (
	"context"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	sq "github.com/Masterminds/squirrel"

	"github.com/therciotr/TrMultichat-sub001/internal/dbexec"
	"github.com/therciotr/TrMultichat-sub001/internal/sqlutil"
	"github.com/therciotr/TrMultichat-sub001/internal/tenant"
)

func newAdapter(t *testing.T) (*Adapter, sqlmock.Sqlmock, func()) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to create mock db: %v", err)
	}
	adapter := NewAdapter(dbexec.NewStandardExecutor(db), DefaultRegistry(), nil)
	return adapter, mock, func() { db.Close() }
}

var tc7 = tenant.Context{CompanyID: 7, UserID: 1, Profile: "admin"}

func TestFindAllAppliesTenantFilter(t *testing.T) {
	adapter, mock, done := newAdapter(t)
	defer done()

	rows := sqlmock.NewRows([]string{"id", "name", "color", "greeting_message", "schedules", "company_id", "created_at", "updated_at"}).
		AddRow(1, "Support", "#00f", "hi", "[]", 7, nil, nil)
	mock.ExpectQuery(`SELECT .+ FROM "queues" WHERE "company_id" = \$1 ORDER BY "id"`).
		WithArgs(int64(7)).
		WillReturnRows(rows)

	got, err := adapter.FindAll(context.Background(), "Queue", tc7, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 1 || got[0]["name"] != "Support" {
		t.Fatalf("unexpected rows: %v", got)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestFindOneReturnsNilWhenMissing(t *testing.T) {
	adapter, mock, done := newAdapter(t)
	defer done()

	mock.ExpectQuery(`SELECT .+ FROM "queues" WHERE "company_id" = \$1 AND "id" = \$2 LIMIT 1`).
		WithArgs(int64(7), 99).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	got, err := adapter.FindOne(context.Background(), "Queue", tc7, sq.Eq{`"id"`: 99})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != nil {
		t.Fatalf("expected nil row, got %v", got)
	}
}

func TestFindByPk(t *testing.T) {
	adapter, mock, done := newAdapter(t)
	defer done()

	rows := sqlmock.NewRows([]string{"id", "name"}).AddRow(3, "Sales")
	mock.ExpectQuery(`SELECT .+ FROM "queues" WHERE "company_id" = \$1 AND "id" = \$2 LIMIT 1`).
		WithArgs(int64(7), 3).
		WillReturnRows(rows)

	got, err := adapter.FindByPk(context.Background(), "Queue", tc7, 3)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got["name"] != "Sales" {
		t.Fatalf("unexpected row: %v", got)
	}
}

func TestCreateForcesTenantColumn(t *testing.T) {
	adapter, mock, done := newAdapter(t)
	defer done()

	mock.ExpectQuery(`INSERT INTO "queues" \("color","name","company_id"\) VALUES \(\$1,\$2,\$3\) RETURNING "id"`).
		WithArgs("#0f0", "Billing", int64(7)).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(12)))

	id, err := adapter.Create(context.Background(), "Queue", tc7, map[string]any{
		"name":  "Billing",
		"color": "#0f0",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if id != 12 {
		t.Errorf("id = %d, want 12", id)
	}
}

func TestUpdateScopesByTenantAndPk(t *testing.T) {
	adapter, mock, done := newAdapter(t)
	defer done()

	mock.ExpectExec(`UPDATE "queues" SET "name" = \$1 WHERE "id" = \$2 AND "company_id" = \$3`).
		WithArgs("Renamed", 3, int64(7)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	n, err := adapter.Update(context.Background(), "Queue", tc7, 3, map[string]any{"name": "Renamed"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if n != 1 {
		t.Errorf("affected = %d, want 1", n)
	}
}

func TestDestroy(t *testing.T) {
	adapter, mock, done := newAdapter(t)
	defer done()

	mock.ExpectExec(`DELETE FROM "queues" WHERE "id" = \$1 AND "company_id" = \$2`).
		WithArgs(3, int64(7)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	n, err := adapter.Destroy(context.Background(), "Queue", tc7, 3)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if n != 1 {
		t.Errorf("affected = %d, want 1", n)
	}
}

func TestUnregisteredEntityIsNotImplemented(t *testing.T) {
	adapter, _, done := newAdapter(t)
	defer done()

	_, err := adapter.FindAll(context.Background(), "Billing", tc7, nil)
	if !errors.Is(err, sqlutil.ErrNotImplemented) {
		t.Fatalf("expected ErrNotImplemented, got %v", err)
	}

	_, err = adapter.Create(context.Background(), "Billing", tc7, map[string]any{"x": 1})
	if !errors.Is(err, sqlutil.ErrNotImplemented) {
		t.Fatalf("expected ErrNotImplemented, got %v", err)
	}
}

func TestTenantScopedOpsRejectMissingTenant(t *testing.T) {
	adapter, _, done := newAdapter(t)
	defer done()

	var none tenant.Context

	if _, err := adapter.FindAll(context.Background(), "Queue", none, nil); !errors.Is(err, sqlutil.ErrScopeViolation) {
		t.Errorf("FindAll: expected ErrScopeViolation, got %v", err)
	}
	if _, err := adapter.Create(context.Background(), "Queue", none, map[string]any{"name": "x"}); !errors.Is(err, sqlutil.ErrScopeViolation) {
		t.Errorf("Create: expected ErrScopeViolation, got %v", err)
	}
	if _, err := adapter.Update(context.Background(), "Queue", none, 1, map[string]any{"name": "x"}); !errors.Is(err, sqlutil.ErrScopeViolation) {
		t.Errorf("Update: expected ErrScopeViolation, got %v", err)
	}
	if _, err := adapter.Destroy(context.Background(), "Queue", none, 1); !errors.Is(err, sqlutil.ErrScopeViolation) {
		t.Errorf("Destroy: expected ErrScopeViolation, got %v", err)
	}
}
