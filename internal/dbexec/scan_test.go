package dbexec

import (
	"context"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
)

func TestScanAllCopiesBytesToStrings(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to create mock db: %v", err)
	}
	defer db.Close()

	mock.ExpectQuery(`SELECT`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "schedules"}).
			AddRow(1, []byte("Support"), []byte(`[]`)).
			AddRow(2, []byte("Sales"), nil))

	rows, err := NewStandardExecutor(db).QueryContext(context.Background(), `SELECT "id", "name", "schedules" FROM "Queues"`)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	out, err := ScanAll(rows)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(out) != 2 {
		t.Fatalf("rows = %d, want 2", len(out))
	}
	if out[0]["name"] != "Support" || out[0]["schedules"] != "[]" {
		t.Errorf("byte columns not converted: %v", out[0])
	}
	if out[1]["schedules"] != nil {
		t.Errorf("NULL should stay nil, got %v", out[1]["schedules"])
	}
}

func TestToInt64(t *testing.T) {
	if got := ToInt64(nil, int64(5)); got != 5 {
		t.Errorf("ToInt64 skipped nil wrong: %d", got)
	}
	if got := ToInt64("x", int32(3)); got != 3 {
		t.Errorf("ToInt64 int32 = %d, want 3", got)
	}
	if got := ToInt64(int64(0), 7); got != 7 {
		t.Errorf("ToInt64 zero skip = %d, want 7", got)
	}
	if got := ToInt64(nil, "s"); got != 0 {
		t.Errorf("ToInt64 no match = %d, want 0", got)
	}
}
