package service

import (
	"context"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
)

var canonicalOptionCols = []string{
	"id", "title", "message", "option", "queueId", "parentId",
	"companyId", "createdAt", "updatedAt",
}

func expectQueueLookup(mock sqlmock.Sqlmock, queueID int64, owned bool) {
	expectCatalog(mock, "Queues", canonicalQueueCols...)
	rows := sqlmock.NewRows([]string{"id", "name"})
	if owned {
		rows.AddRow(queueID, "Support")
	}
	mock.ExpectQuery(`FROM "Queues" WHERE "id" = \$1 AND "companyId" = \$2`).
		WithArgs(queueID, int64(7)).
		WillReturnRows(rows)
}

func TestQueueOptionListByQueue(t *testing.T) {
	st, mock, done := newTestStore(t)
	defer done()

	expectQueueLookup(mock, 5, true)
	expectCatalog(mock, "QueueOptions", canonicalOptionCols...)
	mock.ExpectQuery(`FROM "QueueOptions" WHERE "queueId" = \$1 AND "companyId" = \$2 ORDER BY "option" ASC`).
		WithArgs(int64(5), int64(7)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "title", "option"}).
			AddRow(1, "Greeting", "1").
			AddRow(2, "Billing", "2"))

	rows, err := NewQueueOptionService(st).ListByQueue(context.Background(), tc7, 5)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(rows) != 2 || rows[1]["title"] != "Billing" {
		t.Fatalf("unexpected rows: %v", rows)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

// A queue id belonging to another tenant is rejected before any statement
// against the options table is built.
func TestQueueOptionListRejectsForeignQueue(t *testing.T) {
	st, mock, done := newTestStore(t)
	defer done()

	expectQueueLookup(mock, 42, false)

	_, err := NewQueueOptionService(st).ListByQueue(context.Background(), tc7, 42)
	if !errors.Is(err, ErrOwnership) {
		t.Fatalf("expected ErrOwnership, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestQueueOptionCreate(t *testing.T) {
	st, mock, done := newTestStore(t)
	defer done()

	expectQueueLookup(mock, 5, true)
	expectCatalog(mock, "QueueOptions", canonicalOptionCols...)
	mock.ExpectQuery(`INSERT INTO "QueueOptions" \("title","message","option","queueId","companyId"\) VALUES \(\$1,\$2,\$3,\$4,\$5\) RETURNING`).
		WithArgs("Greeting", "Welcome!", "1", int64(5), int64(7)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "title"}).AddRow(9, "Greeting"))

	row, err := NewQueueOptionService(st).Create(context.Background(), tc7, QueueOptionInput{
		Title:   "Greeting",
		Message: "Welcome!",
		Option:  "1",
		QueueID: 5,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if row["id"] != int64(9) {
		t.Fatalf("unexpected row: %v", row)
	}
}

func TestQueueOptionDeleteValidatesOwnership(t *testing.T) {
	st, mock, done := newTestStore(t)
	defer done()

	// Loading the option reveals its owning queue, which is then checked
	// against the tenant before the delete is built.
	expectCatalog(mock, "QueueOptions", canonicalOptionCols...)
	mock.ExpectQuery(`SELECT "queueId" FROM "QueueOptions" WHERE "id" = \$1 AND "companyId" = \$2`).
		WithArgs(int64(9), int64(7)).
		WillReturnRows(sqlmock.NewRows([]string{"queueId"}).AddRow(5))
	expectQueueLookup(mock, 5, true)
	mock.ExpectExec(`DELETE FROM "QueueOptions" WHERE "id" = \$1 AND "companyId" = \$2`).
		WithArgs(int64(9), int64(7)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	if err := NewQueueOptionService(st).Delete(context.Background(), tc7, 9); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}
