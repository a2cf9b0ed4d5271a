package canonical

import "time"

// Row maps canonical (case-folded, alias-resolved) column names to values.
type Row map[string]Value

// Table is the normalized result of one side of a validation. Rows preserve
// the order the engine returned them in.
type Table struct {
	// Columns is the canonical column name list in result order.
	Columns []string
	Rows    []Row

	// Duration is the wall-clock execution time of the query that produced
	// this table.
	Duration time.Duration
}

// Get returns the value for a canonical column name on the given row,
// reporting whether the column exists at all.
func (t *Table) Get(rowIdx int, col string) (Value, bool) {
	v, ok := t.Rows[rowIdx][col]
	return v, ok
}

// HasColumn reports whether the table exposes the canonical column name.
func (t *Table) HasColumn(col string) bool {
	for _, c := range t.Columns {
		if c == col {
			return true
		}
	}
	return false
}
