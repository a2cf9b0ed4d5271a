package compare

import (
	"fmt"
	"strings"

	"github.com/cockroachdb/apd/v3"
	"github.com/qvet/qvet/canonical"
)

// Rowset compares full result sets. When KeyColumns are declared, rows are
// joined by key: keys present on one side only become missing_row/extra_row
// and matched rows are compared column by column under the same tolerance
// rule as the aggregation strategy.
//
// Without a key the strategy falls back to comparing row i against row i,
// trusting the caller-supplied ORDER BY. The positional fallback is a known
// approximation: it cannot tell a reordered pair of rows from two mismatching
// ones.
type Rowset struct {
	Tolerance  float64
	KeyColumns []string
	// Limit caps the number of rows compared per side; zero means all.
	Limit int
}

var _ Comparator = (*Rowset)(nil)

func (r *Rowset) Compare(source, target *canonical.Table) ([]Mismatch, error) {
	src := capRows(source.Rows, r.Limit)
	tgt := capRows(target.Rows, r.Limit)
	if len(r.KeyColumns) > 0 {
		return r.compareByKey(source, target, src, tgt)
	}
	return r.comparePositional(source, target, src, tgt)
}

func capRows(rows []canonical.Row, limit int) []canonical.Row {
	if limit > 0 && len(rows) > limit {
		return rows[:limit]
	}
	return rows
}

func (r *Rowset) compareByKey(
	source, target *canonical.Table, src, tgt []canonical.Row,
) ([]Mismatch, error) {
	for _, k := range r.KeyColumns {
		if !source.HasColumn(k) || !target.HasColumn(k) {
			return nil, comparisonErrorf("key column %q not present on both sides", k)
		}
	}

	// Index target rows by key, queueing duplicates in result order.
	tgtByKey := make(map[string][]int, len(tgt))
	for i, row := range tgt {
		k := r.rowKey(row)
		tgtByKey[k] = append(tgtByKey[k], i)
	}

	matched := make([]bool, len(tgt))
	var mismatches []Mismatch
	cols := unionColumns(source, target)
	for _, row := range src {
		k := r.rowKey(row)
		queue := tgtByKey[k]
		if len(queue) == 0 {
			// Unmatched keys produce exactly one row-level mismatch and no
			// column-level ones.
			mismatches = append(mismatches, Mismatch{Kind: KindMissingRow, RowKey: k})
			continue
		}
		tgtIdx := queue[0]
		tgtByKey[k] = queue[1:]
		matched[tgtIdx] = true

		for _, col := range cols {
			if r.isKeyColumn(col) {
				continue
			}
			s, sOK := row[col]
			t, tOK := tgt[tgtIdx][col]
			if m := compareColumn(k, col, s, sOK, t, tOK, r.Tolerance); m != nil {
				mismatches = append(mismatches, *m)
			}
		}
	}
	for i, row := range tgt {
		if !matched[i] {
			mismatches = append(mismatches, Mismatch{Kind: KindExtraRow, RowKey: r.rowKey(row)})
		}
	}
	return mismatches, nil
}

func (r *Rowset) comparePositional(
	source, target *canonical.Table, src, tgt []canonical.Row,
) ([]Mismatch, error) {
	cols := unionColumns(source, target)
	n := len(src)
	if len(tgt) < n {
		n = len(tgt)
	}
	var mismatches []Mismatch
	for i := 0; i < n; i++ {
		rowKey := fmt.Sprintf("row %d", i)
		for _, col := range cols {
			s, sOK := src[i][col]
			t, tOK := tgt[i][col]
			if m := compareColumn(rowKey, col, s, sOK, t, tOK, r.Tolerance); m != nil {
				mismatches = append(mismatches, *m)
			}
		}
	}
	for i := n; i < len(src); i++ {
		mismatches = append(mismatches, Mismatch{
			Kind:   KindMissingRow,
			RowKey: fmt.Sprintf("row %d", i),
		})
	}
	for i := n; i < len(tgt); i++ {
		mismatches = append(mismatches, Mismatch{
			Kind:   KindExtraRow,
			RowKey: fmt.Sprintf("row %d", i),
		})
	}
	return mismatches, nil
}

func (r *Rowset) isKeyColumn(col string) bool {
	for _, k := range r.KeyColumns {
		if k == col {
			return true
		}
	}
	return false
}

// rowKey renders the join key for a row. Numerics are reduced so that an
// integer key on one engine joins against a scale-carrying decimal on the
// other.
func (r *Rowset) rowKey(row canonical.Row) string {
	parts := make([]string, len(r.KeyColumns))
	for i, k := range r.KeyColumns {
		parts[i] = keyPart(row[k])
	}
	return strings.Join(parts, ",")
}

func keyPart(v canonical.Value) string {
	if d, ok := v.Numeric(); ok {
		var reduced apd.Decimal
		reduced.Reduce(d)
		return reduced.Text('f')
	}
	return v.String()
}
