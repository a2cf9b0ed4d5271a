// Package report turns check results into operator-facing output.
package report

import (
	"github.com/qvet/qvet/check"
	"github.com/qvet/qvet/compare"
	"github.com/rs/zerolog"
)

// CombinedReporter fans each result out to every wrapped reporter.
type CombinedReporter struct {
	Reporters []check.Reporter
}

func (c CombinedReporter) Report(result check.Result) {
	for _, r := range c.Reporters {
		r.Report(result)
	}
}

func (c CombinedReporter) Close() {
	for _, r := range c.Reporters {
		r.Close()
	}
}

// LogReporter reports to `zerolog`.
type LogReporter struct {
	zerolog.Logger
}

func (l LogReporter) Report(result check.Result) {
	switch result.Status {
	case check.StatusPassed:
		l.Info().
			Str("check", result.QueryName).
			Int("rows", result.Explain.SourceRows).
			Int64("source_ms", result.SourceExecMillis).
			Int64("target_ms", result.TargetExecMillis).
			Msg("check passed")
	case check.StatusWarning:
		l.Warn().
			Str("check", result.QueryName).
			Int("mismatches", len(result.Mismatches)).
			Msg(result.Explain.Summary)
	case check.StatusFailed:
		ev := l.Warn().
			Str("check", result.QueryName).
			Int("differing_rows", result.Explain.DifferingRows).
			Strs("affected_columns", result.Explain.AffectedColumns)
		arr := zerolog.Arr()
		for _, m := range result.Mismatches {
			arr = arr.Str(formatMismatch(m))
		}
		ev.Array("mismatches", arr).Msg(result.Explain.Summary)
	case check.StatusErrored:
		ev := l.Error().Str("check", result.QueryName)
		for _, m := range result.Mismatches {
			if m.Kind == compare.KindExecutionError {
				ev = ev.Str("error", m.Message)
			}
		}
		ev.Msg("check errored")
	default:
		l.Error().
			Str("check", result.QueryName).
			Str("status", string(result.Status)).
			Msg("unknown result status")
	}
}

func (l LogReporter) Close() {
}

func formatMismatch(m compare.Mismatch) string {
	s := string(m.Kind)
	if m.RowKey != "" {
		s += " row=" + m.RowKey
	}
	if m.Column != "" {
		s += " column=" + m.Column
	}
	if m.Kind == compare.KindValueDiff || m.Kind == compare.KindRowCountDiff {
		s += " source=" + m.SourceValue + " target=" + m.TargetValue
	}
	if m.Delta != "" {
		s += " delta=" + m.Delta
	}
	return s
}
