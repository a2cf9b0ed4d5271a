// Package normalize converts raw result sets from each engine into canonical
// tables. Both sides of a comparison are normalized independently but into
// the same canonical type set, which is what makes the cross-engine
// comparison downstream type-safe. Normalization is pure: the same raw input
// always yields the same canonical table.
package normalize

import (
	"strings"
	"time"

	"github.com/cockroachdb/apd/v3"
	"github.com/cockroachdb/errors"
	"github.com/qvet/qvet/canonical"
	"github.com/qvet/qvet/queryexec"
)

// ErrNormalization marks failures to coerce a value into the canonical type
// set, e.g. an unrecognized type code. Recoverable at the granularity of a
// single validation.
var ErrNormalization = errors.New("normalization failure")

func normalizationErrorf(format string, args ...any) error {
	return errors.Mark(errors.Newf(format, args...), ErrNormalization)
}

// Table normalizes one side's raw result set. Column names are case-folded
// and resolved through the alias map so that, say, CustomerID and customer_id
// are the same logical column. duration is the side's query execution time,
// carried on the canonical table for observability.
func Table(
	raw *queryexec.RawResultSet, duration time.Duration, aliases map[string]string,
) (*canonical.Table, error) {
	cols := make([]string, len(raw.Columns))
	seen := make(map[string]struct{}, len(raw.Columns))
	for i, name := range raw.Columns {
		folded := strings.ToLower(name)
		if alias, ok := aliases[folded]; ok {
			folded = alias
		}
		if _, dup := seen[folded]; dup {
			return nil, normalizationErrorf("result exposes column %q more than once", folded)
		}
		seen[folded] = struct{}{}
		cols[i] = folded
	}

	tbl := &canonical.Table{
		Columns:  cols,
		Rows:     make([]canonical.Row, 0, len(raw.Rows)),
		Duration: duration,
	}
	for rowIdx, rawRow := range raw.Rows {
		if len(rawRow) != len(cols) {
			return nil, normalizationErrorf(
				"row %d has %d values for %d columns", rowIdx, len(rawRow), len(cols),
			)
		}
		row := make(canonical.Row, len(cols))
		for i, rawVal := range rawRow {
			val, err := convertValue(raw, i, rawVal)
			if err != nil {
				return nil, errors.Wrapf(err, "row %d, column %q", rowIdx, cols[i])
			}
			row[cols[i]] = val
		}
		tbl.Rows = append(tbl.Rows, row)
	}
	return tbl, nil
}

func convertValue(raw *queryexec.RawResultSet, colIdx int, val any) (canonical.Value, error) {
	switch {
	case raw.OIDs != nil:
		return convertPGValue(val, raw.OIDs[colIdx])
	case raw.TypeNames != nil:
		return convertMySQLValue(val, raw.TypeNames[colIdx])
	}
	return convertGoValue(val)
}

// convertGoValue coerces a plain Go value, used for connections without
// engine type metadata (tests and canned results).
func convertGoValue(val any) (canonical.Value, error) {
	switch v := val.(type) {
	case nil:
		return canonical.Null, nil
	case canonical.Value:
		return v, nil
	case bool:
		return canonical.Bool(v), nil
	case string:
		return canonical.Text(v), nil
	case int:
		return canonical.Int(int64(v)), nil
	case int32:
		return canonical.Int(int64(v)), nil
	case int64:
		return canonical.Int(v), nil
	case float32:
		return canonical.DecimalFromFloat(float64(v))
	case float64:
		return canonical.DecimalFromFloat(v)
	case *apd.Decimal:
		return canonical.Decimal(v), nil
	case time.Time:
		return canonical.Time(v, canonical.GranularitySecond), nil
	}
	return canonical.Null, normalizationErrorf("unsupported value type %T", val)
}
