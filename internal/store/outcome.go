package store

// OutcomeKind discriminates the variants of a query outcome.
type OutcomeKind int

const (
	// OutcomeRows carries a list of rows.
	OutcomeRows OutcomeKind = iota
	// OutcomeRow carries a single row (nil when nothing matched).
	OutcomeRow
	// OutcomeAffected carries an affected-row count.
	OutcomeAffected
)

// Outcome is the tagged result of a resolved statement. Callers switch on
// Kind instead of probing optional fields.
type Outcome struct {
	Kind     OutcomeKind
	Rows     []map[string]any
	Row      map[string]any
	Affected int64
}

// RowsOutcome wraps a row list.
func RowsOutcome(rows []map[string]any) Outcome {
	return Outcome{Kind: OutcomeRows, Rows: rows}
}

// RowOutcome wraps a single row.
func RowOutcome(row map[string]any) Outcome {
	return Outcome{Kind: OutcomeRow, Row: row}
}

// AffectedOutcome wraps an affected-row count.
func AffectedOutcome(n int64) Outcome {
	return Outcome{Kind: OutcomeAffected, Affected: n}
}

// StatementKind selects how a statement's result is consumed.
type StatementKind int

const (
	// StatementQuery returns all rows.
	StatementQuery StatementKind = iota
	// StatementQueryRow returns the first row or nil.
	StatementQueryRow
	// StatementExec returns the affected-row count.
	StatementExec
)
