package domain

import (
	"fmt"
	"math"
	"strconv"
	"time"
)

// Table is a rectangular query result. A nil cell is a missing value.
type Table struct {
	Columns []string `json:"columns"`
	Rows    [][]any  `json:"rows"`
}

// NewTable builds a table and normalizes every cell with [NormalizeValue].
// Rows shorter than the column list are padded with nil.
func NewTable(columns []string, rows [][]any) Table {
	t := Table{
		Columns: append([]string(nil), columns...),
		Rows:    make([][]any, 0, len(rows)),
	}
	for _, r := range rows {
		row := make([]any, len(columns))
		for i := range row {
			if i < len(r) {
				row[i] = NormalizeValue(r[i])
			}
		}
		t.Rows = append(t.Rows, row)
	}
	return t
}

// SingleRow builds the one-row frame used by the chart layer, where every
// column is a series key and the only row holds its value.
func SingleRow(columns []string, values []any) Table {
	return NewTable(columns, [][]any{values})
}

// NormalizeValue converts driver values to the small set of types a Table
// holds: nil, string, int64, float64 and bool. Dates (postgres DATE columns
// arrive as time.Time) become "YYYY-MM-DD" strings so a table reads the same
// after a JSON round trip.
func NormalizeValue(v any) any {
	switch x := v.(type) {
	case nil:
		return nil
	case []byte:
		return string(x)
	case time.Time:
		return x.UTC().Format(DayLayout)
	case int:
		return int64(x)
	case int32:
		return int64(x)
	case int16:
		return int64(x)
	case int8:
		return int64(x)
	case uint32:
		return int64(x)
	case uint16:
		return int64(x)
	case uint8:
		return int64(x)
	case float32:
		return normalizeFloat(float64(x))
	case float64:
		return normalizeFloat(x)
	case *float64:
		if x == nil {
			return nil
		}
		return normalizeFloat(*x)
	default:
		return v
	}
}

func normalizeFloat(f float64) any {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return nil
	}
	return f
}

// Len returns the number of rows.
func (t Table) Len() int { return len(t.Rows) }

// Empty reports whether the table has no rows.
func (t Table) Empty() bool { return len(t.Rows) == 0 }

// Index returns the position of a column, or -1.
func (t Table) Index(col string) int {
	for i, c := range t.Columns {
		if c == col {
			return i
		}
	}
	return -1
}

// Has reports whether the table carries the column.
func (t Table) Has(col string) bool { return t.Index(col) >= 0 }

// Value returns the raw cell, or nil when the row or column does not exist.
func (t Table) Value(row int, col string) any {
	i := t.Index(col)
	if i < 0 || row < 0 || row >= len(t.Rows) || i >= len(t.Rows[row]) {
		return nil
	}
	return t.Rows[row][i]
}

// Float returns the cell as a float64. The boolean is false for missing,
// non-numeric and non-finite values.
func (t Table) Float(row int, col string) (float64, bool) {
	return ToFloat(t.Value(row, col))
}

// Int returns the cell as an int64, truncating floats.
func (t Table) Int(row int, col string) (int64, bool) {
	switch x := t.Value(row, col).(type) {
	case int64:
		return x, true
	case float64:
		return int64(x), true
	case string:
		n, err := strconv.ParseInt(x, 10, 64)
		return n, err == nil
	default:
		return 0, false
	}
}

// String returns the cell formatted as a string; missing cells are "".
func (t Table) String(row int, col string) string {
	switch x := t.Value(row, col).(type) {
	case nil:
		return ""
	case string:
		return x
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	default:
		return fmt.Sprint(x)
	}
}

// Column returns a copy of one column's values.
func (t Table) Column(col string) []any {
	i := t.Index(col)
	if i < 0 {
		return nil
	}
	out := make([]any, len(t.Rows))
	for r, row := range t.Rows {
		if i < len(row) {
			out[r] = row[i]
		}
	}
	return out
}

// ToFloat converts a normalized cell value to a finite float64.
func ToFloat(v any) (float64, bool) {
	var f float64
	switch x := v.(type) {
	case float64:
		f = x
	case int64:
		f = float64(x)
	case string:
		p, err := strconv.ParseFloat(x, 64)
		if err != nil {
			return 0, false
		}
		f = p
	default:
		return 0, false
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}
