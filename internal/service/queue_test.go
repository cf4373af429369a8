package service

import (
	"context"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"

	"github.com/therciotr/TrMultichat-sub001/internal/store"
	"github.com/therciotr/TrMultichat-sub001/internal/tenant"
)

var tc7 = tenant.Context{CompanyID: 7, UserID: 1, Profile: "admin"}

func newTestStore(t *testing.T) (*store.Store, sqlmock.Sqlmock, func()) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to create mock db: %v", err)
	}
	return store.New(db, store.Options{}), mock, func() { db.Close() }
}

func expectCatalog(mock sqlmock.Sqlmock, table string, cols ...string) {
	mock.ExpectQuery("FROM information_schema.tables").
		WithArgs("public").
		WillReturnRows(sqlmock.NewRows([]string{"table_name"}).AddRow(table))
	colRows := sqlmock.NewRows([]string{"column_name"})
	for _, c := range cols {
		colRows.AddRow(c)
	}
	mock.ExpectQuery("FROM information_schema.columns").
		WithArgs("public", table).
		WillReturnRows(colRows)
}

var canonicalQueueCols = []string{
	"id", "name", "color", "greetingMessage", "outOfHoursMessage",
	"schedules", "orderQueue", "companyId", "createdAt", "updatedAt",
}

func TestQueueListScopedAndOrdered(t *testing.T) {
	st, mock, done := newTestStore(t)
	defer done()
	expectCatalog(mock, "Queues", canonicalQueueCols...)

	mock.ExpectQuery(`SELECT "id", "name", .+ FROM "Queues" WHERE "companyId" = \$1 ORDER BY "orderQueue" ASC`).
		WithArgs(int64(7)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "color"}).
			AddRow(1, "Support", "#0f0").
			AddRow(2, "Sales", "#00f"))

	rows, err := NewQueueService(st).List(context.Background(), tc7)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(rows) != 2 || rows[0]["name"] != "Support" {
		t.Fatalf("unexpected rows: %v", rows)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestQueueListSnakeCaseSchema(t *testing.T) {
	st, mock, done := newTestStore(t)
	defer done()
	// A drifted tenant schema: lowercase table, snake_case columns, and no
	// orderQueue column at all.
	expectCatalog(mock, "queues",
		"id", "name", "color", "greeting_message", "schedules", "company_id")

	mock.ExpectQuery(`SELECT "id", "name", "color", "greeting_message", "schedules", "company_id" FROM "queues" WHERE "company_id" = \$1 ORDER BY "name" ASC`).
		WithArgs(int64(7)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name"}).AddRow(1, "Support"))

	rows, err := NewQueueService(st).List(context.Background(), tc7)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("unexpected rows: %v", rows)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestQueueCreateBindsTenantFromContext(t *testing.T) {
	st, mock, done := newTestStore(t)
	defer done()
	expectCatalog(mock, "Queues", canonicalQueueCols...)

	mock.ExpectQuery(`INSERT INTO "Queues" \("name","color","greetingMessage","outOfHoursMessage","orderQueue","schedules","companyId"\) VALUES \(\$1,\$2,\$3,\$4,\$5,\$6,\$7\) RETURNING "id", "name"`).
		WithArgs("Support", "#0f0", "hello", "closed", 1, `[{"weekday":"monday"}]`, int64(7)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name"}).AddRow(3, "Support"))

	row, err := NewQueueService(st).Create(context.Background(), tc7, QueueInput{
		Name:              "Support",
		Color:             "#0f0",
		GreetingMessage:   "hello",
		OutOfHoursMessage: "closed",
		OrderQueue:        1,
		Schedules:         `[{"weekday":"monday"}]`,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if row["id"] != int64(3) {
		t.Fatalf("unexpected row: %v", row)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestQueueUpdateIncludesUpdatedAtOnlyWhenPresent(t *testing.T) {
	color := "#abc"

	t.Run("column present", func(t *testing.T) {
		st, mock, done := newTestStore(t)
		defer done()
		expectCatalog(mock, "Queues", canonicalQueueCols...)

		mock.ExpectExec(`UPDATE "Queues" SET "color" = \$1, "updatedAt" = NOW\(\) WHERE "id" = \$2 AND "companyId" = \$3`).
			WithArgs(color, int64(4), int64(7)).
			WillReturnResult(sqlmock.NewResult(0, 1))

		n, err := NewQueueService(st).Update(context.Background(), tc7, 4, QueuePatch{Color: &color})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if n != 1 {
			t.Fatalf("affected = %d, want 1", n)
		}
	})

	t.Run("column absent", func(t *testing.T) {
		st, mock, done := newTestStore(t)
		defer done()
		expectCatalog(mock, "queues", "id", "name", "color", "company_id")

		// Adjacent SET and WHERE: no timestamp fragment was included.
		mock.ExpectExec(`UPDATE "queues" SET "color" = \$1 WHERE "id" = \$2 AND "company_id" = \$3`).
			WithArgs(color, int64(4), int64(7)).
			WillReturnResult(sqlmock.NewResult(0, 1))

		if _, err := NewQueueService(st).Update(context.Background(), tc7, 4, QueuePatch{Color: &color}); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	})
}

func TestQueueUpdateNotFound(t *testing.T) {
	st, mock, done := newTestStore(t)
	defer done()
	expectCatalog(mock, "Queues", canonicalQueueCols...)

	name := "Renamed"
	mock.ExpectExec(`UPDATE "Queues" SET`).
		WithArgs(name, int64(99), int64(7)).
		WillReturnResult(sqlmock.NewResult(0, 0))

	_, err := NewQueueService(st).Update(context.Background(), tc7, 99, QueuePatch{Name: &name})
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestQueueDeleteScoped(t *testing.T) {
	st, mock, done := newTestStore(t)
	defer done()
	expectCatalog(mock, "Queues", canonicalQueueCols...)

	mock.ExpectExec(`DELETE FROM "Queues" WHERE "id" = \$1 AND "companyId" = \$2`).
		WithArgs(int64(4), int64(7)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	if err := NewQueueService(st).Delete(context.Background(), tc7, 4); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestQueueGetInvalidTenant(t *testing.T) {
	st, _, done := newTestStore(t)
	defer done()

	_, err := NewQueueService(st).Get(context.Background(), tenant.Context{}, 1)
	if err == nil {
		t.Fatal("expected scope violation for zero tenant")
	}
}
