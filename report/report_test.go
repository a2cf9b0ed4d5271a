package report

import (
	"bytes"
	"testing"

	"github.com/qvet/qvet/check"
	"github.com/qvet/qvet/compare"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

type countingReporter struct {
	reports int
	closed  bool
}

func (c *countingReporter) Report(check.Result) { c.reports++ }
func (c *countingReporter) Close()              { c.closed = true }

func TestCombinedReporterFansOut(t *testing.T) {
	a, b := &countingReporter{}, &countingReporter{}
	combined := CombinedReporter{Reporters: []check.Reporter{a, b}}
	combined.Report(check.Result{QueryName: "x", Status: check.StatusPassed})
	combined.Report(check.Result{QueryName: "y", Status: check.StatusFailed})
	combined.Close()

	require.Equal(t, 2, a.reports)
	require.Equal(t, 2, b.reports)
	require.True(t, a.closed)
	require.True(t, b.closed)
}

func TestLogReporter(t *testing.T) {
	var buf bytes.Buffer
	l := LogReporter{Logger: zerolog.New(&buf)}

	l.Report(check.Result{
		QueryName: "orders_total",
		Status:    check.StatusFailed,
		Mismatches: []compare.Mismatch{{
			Kind:        compare.KindValueDiff,
			RowKey:      "2",
			Column:      "amt",
			SourceValue: "50.00",
			TargetValue: "50.51",
			Delta:       "0.51",
		}},
		Explain: check.Explain{
			DifferingRows:   1,
			AffectedColumns: []string{"amt"},
			Summary:         "row counts match; 1 of 2 rows differ in columns [amt]",
		},
	})
	out := buf.String()
	require.Contains(t, out, "orders_total")
	require.Contains(t, out, "value_diff row=2 column=amt source=50.00 target=50.51 delta=0.51")
	require.Contains(t, out, "row counts match")

	buf.Reset()
	l.Report(check.Result{
		QueryName: "broken",
		Status:    check.StatusErrored,
		Mismatches: []compare.Mismatch{{
			Kind:    compare.KindExecutionError,
			Message: "source query failed: fake: connection reset",
		}},
	})
	require.Contains(t, buf.String(), "connection reset")
	require.Contains(t, buf.String(), "check errored")
}
