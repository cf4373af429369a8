package dbexec

import (
	"time"
)

// ScanAll drains rows into generic column-keyed maps and closes them.
// Byte slices are copied to strings because the driver may reuse buffers
// between Next calls.
func ScanAll(rows Rows) ([]map[string]any, error) {
	defer func() {
		_ = rows.Close()
	}()

	cols, err := rows.Columns()
	if err != nil {
		return nil, err
	}

	var out []map[string]any
	for rows.Next() {
		values := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, err
		}

		row := make(map[string]any, len(cols))
		for i, col := range cols {
			row[col] = normalizeValue(values[i])
		}
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// ToInt64 returns the first value convertible to a nonzero int64. Row maps
// produced by ScanAll carry driver-dependent integer widths, and the same
// logical column may surface under more than one spelling.
func ToInt64(vals ...any) int64 {
	for _, v := range vals {
		switch n := v.(type) {
		case int64:
			if n != 0 {
				return n
			}
		case int32:
			if n != 0 {
				return int64(n)
			}
		case int:
			if n != 0 {
				return int64(n)
			}
		}
	}
	return 0
}

func normalizeValue(v any) any {
	switch val := v.(type) {
	case []byte:
		return string(val)
	case time.Time:
		return val
	default:
		return v
	}
}
