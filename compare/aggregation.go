package compare

import (
	"strconv"

	"github.com/qvet/qvet/canonical"
)

// Aggregation compares a single aggregated row per side, column by column by
// name. Numeric columns use relative tolerance; everything else requires
// exact canonical equality. Any row-count surprise short-circuits into a
// single row_count_diff and no column comparison is attempted.
type Aggregation struct {
	Tolerance float64
}

var _ Comparator = (*Aggregation)(nil)

func (a *Aggregation) Compare(source, target *canonical.Table) ([]Mismatch, error) {
	if len(source.Rows) != 1 || len(target.Rows) != 1 {
		return []Mismatch{{
			Kind:        KindRowCountDiff,
			SourceValue: strconv.Itoa(len(source.Rows)),
			TargetValue: strconv.Itoa(len(target.Rows)),
		}}, nil
	}

	var mismatches []Mismatch
	for _, col := range unionColumns(source, target) {
		s, sOK := source.Get(0, col)
		t, tOK := target.Get(0, col)
		if m := compareColumn("", col, s, sOK, t, tOK, a.Tolerance); m != nil {
			mismatches = append(mismatches, *m)
		}
	}
	return mismatches, nil
}
