package compare

import (
	"strconv"

	"github.com/qvet/qvet/canonical"
)

// Count compares a single count per side as an exact integer. Tolerance is
// never applied: a single-row discrepancy is a data-integrity failure, not a
// rounding artifact. When a side returns full rows instead of a scalar, its
// count is derived from row cardinality.
type Count struct{}

var _ Comparator = (*Count)(nil)

func (Count) Compare(source, target *canonical.Table) ([]Mismatch, error) {
	s := countOf(source)
	t := countOf(target)
	if s == t {
		return nil, nil
	}
	delta := s - t
	if delta < 0 {
		delta = -delta
	}
	return []Mismatch{{
		Kind:        KindRowCountDiff,
		SourceValue: strconv.FormatInt(s, 10),
		TargetValue: strconv.FormatInt(t, 10),
		Delta:       strconv.FormatInt(delta, 10),
	}}, nil
}

func countOf(tbl *canonical.Table) int64 {
	if len(tbl.Rows) == 1 && len(tbl.Columns) == 1 {
		if n, ok := tbl.Rows[0][tbl.Columns[0]].Int64(); ok {
			return n
		}
	}
	return int64(len(tbl.Rows))
}
