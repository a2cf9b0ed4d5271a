package check

import (
	"fmt"
	"sort"
	"strings"

	"github.com/cockroachdb/apd/v3"
	"github.com/qvet/qvet/canonical"
	"github.com/qvet/qvet/compare"
	"github.com/qvet/qvet/queryexec"
)

// buildExplain condenses a comparison outcome into human-oriented structure.
// Tables may be nil when the corresponding side failed to execute or
// normalize.
func buildExplain(
	src, tgt *canonical.Table,
	srcRes, tgtRes queryexec.SideResult,
	mismatches []compare.Mismatch,
) Explain {
	e := Explain{
		AffectedColumns:  []string{},
		SourceExecMillis: srcRes.Duration.Milliseconds(),
		TargetExecMillis: tgtRes.Duration.Milliseconds(),
	}
	if src != nil {
		e.SourceRows = len(src.Rows)
	}
	if tgt != nil {
		e.TargetRows = len(tgt.Rows)
	}

	diffRows := map[string]struct{}{}
	cols := map[string]struct{}{}
	var missing, extra int
	var countDiff *compare.Mismatch
	var execErrs []string
	for i, m := range mismatches {
		switch m.Kind {
		case compare.KindValueDiff:
			diffRows[m.RowKey] = struct{}{}
			cols[m.Column] = struct{}{}
		case compare.KindMissingRow:
			missing++
		case compare.KindExtraRow:
			extra++
		case compare.KindRowCountDiff:
			countDiff = &mismatches[i]
		case compare.KindExecutionError:
			execErrs = append(execErrs, m.Message)
		}
	}
	e.DifferingRows = len(diffRows)
	for c := range cols {
		e.AffectedColumns = append(e.AffectedColumns, c)
	}
	sort.Strings(e.AffectedColumns)

	var parts []string
	switch {
	case len(execErrs) > 0:
		parts = execErrs
	case len(mismatches) == 0:
		parts = append(parts, fmt.Sprintf("source and target agree (%d rows compared)", e.SourceRows))
	default:
		if countDiff != nil {
			parts = append(parts, fmt.Sprintf(
				"row counts differ (source=%s, target=%s)", countDiff.SourceValue, countDiff.TargetValue,
			))
		} else if e.SourceRows == e.TargetRows {
			parts = append(parts, "row counts match")
		}
		if e.DifferingRows > 0 {
			p := fmt.Sprintf(
				"%d of %d rows differ in columns [%s]",
				e.DifferingRows, e.SourceRows, strings.Join(e.AffectedColumns, ", "),
			)
			if pct, ok := maxDeltaPercent(mismatches); ok {
				p += fmt.Sprintf(", max delta %.2f%%", pct)
			}
			parts = append(parts, p)
		}
		if missing > 0 {
			parts = append(parts, fmt.Sprintf("%d rows missing from target", missing))
		}
		if extra > 0 {
			parts = append(parts, fmt.Sprintf("%d extra rows in target", extra))
		}
	}
	e.Summary = strings.Join(parts, "; ")
	return e
}

// maxDeltaPercent finds the largest relative delta across numeric value
// diffs, as a percentage of the source value.
func maxDeltaPercent(mismatches []compare.Mismatch) (float64, bool) {
	var max *apd.Decimal
	for _, m := range mismatches {
		if m.Kind != compare.KindValueDiff || m.Delta == "" {
			continue
		}
		delta, _, err := apd.NewFromString(m.Delta)
		if err != nil {
			continue
		}
		src, _, err := apd.NewFromString(m.SourceValue)
		if err != nil || src.IsZero() {
			continue
		}
		ratio := new(apd.Decimal)
		if _, err := canonical.DecimalContext.Quo(ratio, delta, src); err != nil {
			continue
		}
		ratio.Abs(ratio)
		if max == nil || ratio.Cmp(max) > 0 {
			max = ratio
		}
	}
	if max == nil {
		return 0, false
	}
	f, err := max.Float64()
	if err != nil {
		return 0, false
	}
	return f * 100, true
}
