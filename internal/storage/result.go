package storage

import (
	"database/sql"
	"fmt"
)

// Row is one result row keyed by column name.
type Row map[string]any

// Result is the normalized outcome of Conn.Execute.
type Result struct {
	Rows         []Row
	Columns      []string
	RowsAffected int64
	LastInsertID int64
}

// Len returns the number of rows returned.
func (r *Result) Len() int {
	return len(r.Rows)
}

// Row returns the i-th row, or nil when i is out of range.
func (r *Result) Row(i int) Row {
	if i < 0 || i >= len(r.Rows) {
		return nil
	}
	return r.Rows[i]
}

// String returns the column as text; NULL and missing columns are "".
func (r Row) String(column string) string {
	v, ok := r[column]
	if !ok || v == nil {
		return ""
	}
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprint(v)
}

// Int64 returns the column as an integer, or 0 if it is not one.
func (r Row) Int64(column string) int64 {
	switch v := r[column].(type) {
	case int64:
		return v
	case float64:
		return int64(v)
	default:
		return 0
	}
}

func collectRows(rows *sql.Rows) (*Result, error) {
	cols, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("failed to read columns: %w", err)
	}

	out := &Result{Columns: cols}
	for rows.Next() {
		values := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}

		row := make(Row, len(cols))
		for i, col := range cols {
			if b, ok := values[i].([]byte); ok {
				row[col] = string(b)
				continue
			}
			row[col] = values[i]
		}
		out.Rows = append(out.Rows, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}
	return out, nil
}
