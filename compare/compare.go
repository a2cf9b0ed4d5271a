// Package compare implements the pluggable comparison strategies that decide
// whether two canonical tables represent the same data: aggregation, rowset
// and count. New comparison semantics belong in a new Comparator, not as
// special cases inside an existing one.
package compare

import (
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/qvet/qvet/canonical"
	"github.com/qvet/qvet/querydef"
)

// ErrComparison marks internal invariant violations inside a strategy, e.g. a
// declared key column that neither side exposes. Recoverable at the
// granularity of a single validation.
var ErrComparison = errors.New("comparison failure")

func comparisonErrorf(format string, args ...any) error {
	return errors.Mark(errors.Newf(format, args...), ErrComparison)
}

// Comparator compares two canonical tables and reports every discrepancy.
// Implementations are pure and stateless across invocations.
type Comparator interface {
	Compare(source, target *canonical.Table) ([]Mismatch, error)
}

// ForDefinition selects the comparator for a validated query definition.
func ForDefinition(def *querydef.QueryDefinition) (Comparator, error) {
	tolerance := def.ToleranceOrDefault()
	switch def.Type {
	case querydef.ComparisonAggregation:
		return &Aggregation{Tolerance: tolerance}, nil
	case querydef.ComparisonRowset:
		keys := make([]string, len(def.KeyColumns))
		for i, k := range def.KeyColumns {
			keys[i] = strings.ToLower(k)
		}
		return &Rowset{Tolerance: tolerance, KeyColumns: keys, Limit: def.Limit}, nil
	case querydef.ComparisonCount:
		return &Count{}, nil
	}
	return nil, comparisonErrorf("no comparator registered for %q", def.Type)
}

// unionColumns returns source's columns in order followed by target-only
// columns, so mismatch output is deterministic.
func unionColumns(source, target *canonical.Table) []string {
	cols := make([]string, 0, len(source.Columns))
	seen := make(map[string]struct{}, len(source.Columns))
	for _, c := range source.Columns {
		cols = append(cols, c)
		seen[c] = struct{}{}
	}
	for _, c := range target.Columns {
		if _, ok := seen[c]; !ok {
			cols = append(cols, c)
		}
	}
	return cols
}

const absentMarker = "<absent>"

// compareColumn evaluates one column of one logical row, returning nil when
// the two sides agree within tolerance.
func compareColumn(
	rowKey, col string, s canonical.Value, sOK bool, t canonical.Value, tOK bool, tolerance float64,
) *Mismatch {
	if !sOK || !tOK {
		m := &Mismatch{
			Kind:        KindValueDiff,
			RowKey:      rowKey,
			Column:      col,
			SourceValue: absentMarker,
			TargetValue: absentMarker,
		}
		if sOK {
			m.SourceValue = s.String()
		}
		if tOK {
			m.TargetValue = t.String()
		}
		return m
	}
	if WithinTolerance(s, t, tolerance) {
		return nil
	}
	m := &Mismatch{
		Kind:        KindValueDiff,
		RowKey:      rowKey,
		Column:      col,
		SourceValue: s.String(),
		TargetValue: t.String(),
	}
	if delta, ok := Delta(s, t); ok {
		m.Delta = delta
	}
	return m
}
