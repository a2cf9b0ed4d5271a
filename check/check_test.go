package check

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/qvet/qvet/compare"
	"github.com/qvet/qvet/dbconn"
	"github.com/qvet/qvet/querydef"
	"github.com/qvet/qvet/retry"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

func fakeConns(t *testing.T) (*dbconn.FakeConn, *dbconn.FakeConn, dbconn.OrderedConns) {
	t.Helper()
	src := dbconn.MakeFakeConn("source")
	tgt := dbconn.MakeFakeConn("target")
	return src, tgt, dbconn.OrderedConns{src, tgt}
}

// memReporter collects results for assertions.
type memReporter struct {
	mu      sync.Mutex
	results []Result
}

func (r *memReporter) Report(result Result) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.results = append(r.results, result)
}

func (r *memReporter) Close() {}

func TestRunAggregation(t *testing.T) {
	ctx := context.Background()
	logger := zerolog.Nop()

	for _, tc := range []struct {
		desc           string
		targetTotal    float64
		expectedStatus Status
	}{
		{desc: "within tolerance", targetTotal: 50.25, expectedStatus: StatusPassed},
		{desc: "just inside tolerance", targetTotal: 50.5, expectedStatus: StatusPassed},
		{desc: "beyond tolerance", targetTotal: 50.51, expectedStatus: StatusFailed},
	} {
		t.Run(tc.desc, func(t *testing.T) {
			src, tgt, conns := fakeConns(t)
			src.Results["SELECT sum(amt) AS total FROM orders"] = dbconn.FakeResult{
				Columns: []string{"total"},
				Rows:    [][]any{{50.00}},
			}
			tgt.Results["SELECT sum(amt) AS total FROM orders"] = dbconn.FakeResult{
				Columns: []string{"total"},
				Rows:    [][]any{{tc.targetTotal}},
			}
			def := &querydef.QueryDefinition{
				Name:        "orders_total",
				Type:        querydef.ComparisonAggregation,
				SourceQuery: "SELECT sum(amt) AS total FROM orders",
				TargetQuery: "SELECT sum(amt) AS total FROM orders",
			}

			result, err := Run(ctx, def, conns, logger)
			require.NoError(t, err)
			require.Equal(t, tc.expectedStatus, result.Status)
			require.Equal(t, "orders_total", result.QueryName)
			require.NotEmpty(t, result.Explain.Summary)
			require.Equal(t, 1, result.Explain.SourceRows)
			require.Equal(t, 1, result.Explain.TargetRows)

			if tc.expectedStatus == StatusPassed {
				require.Empty(t, result.Mismatches)
			} else {
				require.Len(t, result.Mismatches, 1)
				m := result.Mismatches[0]
				require.Equal(t, compare.KindValueDiff, m.Kind)
				require.Equal(t, "total", m.Column)
				require.Equal(t, "50", m.SourceValue)
				require.Equal(t, "50.51", m.TargetValue)
				require.Equal(t, "0.51", m.Delta)
				require.Equal(t, []string{"total"}, result.Explain.AffectedColumns)
				require.Equal(t, 1, result.Explain.DifferingRows)
			}
		})
	}
}

func TestRunIsIdempotent(t *testing.T) {
	ctx := context.Background()
	src, tgt, conns := fakeConns(t)
	src.Results["q"] = dbconn.FakeResult{
		Columns: []string{"id", "amt"},
		Rows:    [][]any{{int64(1), 10.5}, {int64(2), 20.0}},
	}
	tgt.Results["q"] = dbconn.FakeResult{
		Columns: []string{"id", "amt"},
		Rows:    [][]any{{int64(2), 20.0}, {int64(1), 10.75}},
	}
	def := &querydef.QueryDefinition{
		Name:        "amounts",
		Type:        querydef.ComparisonRowset,
		KeyColumns:  []string{"id"},
		SourceQuery: "q",
		TargetQuery: "q",
	}

	first, err := Run(ctx, def, conns, zerolog.Nop())
	require.NoError(t, err)
	second, err := Run(ctx, def, conns, zerolog.Nop())
	require.NoError(t, err)
	require.Equal(t, first.Status, second.Status)
	require.Equal(t, first.Mismatches, second.Mismatches)
	require.Equal(t, first.Explain.Summary, second.Explain.Summary)
}

func TestRunCount(t *testing.T) {
	ctx := context.Background()
	src, tgt, conns := fakeConns(t)
	src.Results["SELECT count(*) FROM t"] = dbconn.FakeResult{
		Columns: []string{"count"},
		Rows:    [][]any{{int64(100)}},
	}
	tgt.Results["SELECT count(*) FROM t"] = dbconn.FakeResult{
		Columns: []string{"count"},
		Rows:    [][]any{{int64(100)}},
	}
	def := &querydef.QueryDefinition{
		Name:        "t_count",
		Type:        querydef.ComparisonCount,
		SourceQuery: "SELECT count(*) FROM t",
		TargetQuery: "SELECT count(*) FROM t",
	}

	result, err := Run(ctx, def, conns, zerolog.Nop())
	require.NoError(t, err)
	require.Equal(t, StatusPassed, result.Status)
	require.Empty(t, result.Mismatches)

	tgt.Results["SELECT count(*) FROM t"] = dbconn.FakeResult{
		Columns: []string{"count"},
		Rows:    [][]any{{int64(99)}},
	}
	result, err = Run(ctx, def, conns, zerolog.Nop())
	require.NoError(t, err)
	require.Equal(t, StatusFailed, result.Status)
	require.Len(t, result.Mismatches, 1)
	require.Equal(t, compare.KindRowCountDiff, result.Mismatches[0].Kind)
	require.Contains(t, result.Explain.Summary, "row counts differ")
}

func TestRunExecutionFailure(t *testing.T) {
	ctx := context.Background()
	src, tgt, conns := fakeConns(t)
	src.Errs["q"] = errors.New(`relation "orders" does not exist`)
	tgt.Results["q"] = dbconn.FakeResult{
		Columns: []string{"total"},
		Rows:    [][]any{{50.00}},
	}
	def := &querydef.QueryDefinition{
		Name:        "orders_total",
		Type:        querydef.ComparisonAggregation,
		SourceQuery: "q",
		TargetQuery: "q",
	}

	result, err := Run(ctx, def, conns, zerolog.Nop())
	require.NoError(t, err)
	require.Equal(t, StatusErrored, result.Status)
	require.Len(t, result.Mismatches, 1)
	require.Equal(t, compare.KindExecutionError, result.Mismatches[0].Kind)
	require.Contains(t, result.Mismatches[0].Message, "source query failed")
	require.Contains(t, result.Mismatches[0].Message, "does not exist")
	require.Contains(t, result.Explain.Summary, "source query failed")
}

func TestRunNormalizationFailure(t *testing.T) {
	ctx := context.Background()
	src, tgt, conns := fakeConns(t)
	src.Results["q"] = dbconn.FakeResult{
		Columns: []string{"total", "TOTAL"},
		Rows:    [][]any{{int64(1), int64(2)}},
	}
	tgt.Results["q"] = dbconn.FakeResult{
		Columns: []string{"total"},
		Rows:    [][]any{{int64(1)}},
	}
	def := &querydef.QueryDefinition{
		Name:        "dup_cols",
		Type:        querydef.ComparisonAggregation,
		SourceQuery: "q",
		TargetQuery: "q",
	}

	result, err := Run(ctx, def, conns, zerolog.Nop())
	require.NoError(t, err)
	require.Equal(t, StatusErrored, result.Status)
	require.Len(t, result.Mismatches, 1)
	require.Contains(t, result.Mismatches[0].Message, "source normalization failed")
}

func TestRunComparisonFailure(t *testing.T) {
	ctx := context.Background()
	src, tgt, conns := fakeConns(t)
	src.Results["q"] = dbconn.FakeResult{
		Columns: []string{"id"},
		Rows:    [][]any{{int64(1)}},
	}
	tgt.Results["q"] = dbconn.FakeResult{
		Columns: []string{"id"},
		Rows:    [][]any{{int64(1)}},
	}
	def := &querydef.QueryDefinition{
		Name:        "bad_key",
		Type:        querydef.ComparisonRowset,
		KeyColumns:  []string{"customer_id"},
		SourceQuery: "q",
		TargetQuery: "q",
	}

	result, err := Run(ctx, def, conns, zerolog.Nop())
	require.NoError(t, err)
	require.Equal(t, StatusErrored, result.Status)
	require.Len(t, result.Mismatches, 1)
	require.Contains(t, result.Mismatches[0].Message, "comparison failed")
}

func TestRunInvalidDefinition(t *testing.T) {
	_, _, conns := fakeConns(t)
	def := &querydef.QueryDefinition{
		Name: "no_queries",
		Type: querydef.ComparisonCount,
	}
	_, err := Run(context.Background(), def, conns, zerolog.Nop())
	require.Error(t, err)
}

func TestRunWarningPolicy(t *testing.T) {
	ctx := context.Background()
	src, tgt, conns := fakeConns(t)
	src.Results["q"] = dbconn.FakeResult{
		Columns: []string{"id", "amt"},
		Rows: [][]any{
			{int64(1), 10.0}, {int64(2), 20.0}, {int64(3), 30.0},
			{int64(4), 40.0}, {int64(5), 50.0},
		},
	}
	tgt.Results["q"] = dbconn.FakeResult{
		Columns: []string{"id", "amt"},
		Rows: [][]any{
			{int64(1), 10.0}, {int64(2), 20.0}, {int64(3), 30.0},
			{int64(4), 40.0},
		},
	}
	def := &querydef.QueryDefinition{
		Name:        "row_drift",
		Type:        querydef.ComparisonRowset,
		KeyColumns:  []string{"id"},
		SourceQuery: "q",
		TargetQuery: "q",
	}

	// Without a policy a missing row fails the check.
	result, err := Run(ctx, def, conns, zerolog.Nop())
	require.NoError(t, err)
	require.Equal(t, StatusFailed, result.Status)

	// One of five rows missing is 20% drift.
	result, err = Run(ctx, def, conns, zerolog.Nop(), WithWarningPolicy(RowDriftWarningPolicy(0.25)))
	require.NoError(t, err)
	require.Equal(t, StatusWarning, result.Status)
	require.Len(t, result.Mismatches, 1)
	require.Equal(t, compare.KindMissingRow, result.Mismatches[0].Kind)

	result, err = Run(ctx, def, conns, zerolog.Nop(), WithWarningPolicy(RowDriftWarningPolicy(0.1)))
	require.NoError(t, err)
	require.Equal(t, StatusFailed, result.Status)
}

func TestRunLimitOverride(t *testing.T) {
	ctx := context.Background()
	src, tgt, conns := fakeConns(t)
	src.Results["q"] = dbconn.FakeResult{
		Columns: []string{"id", "amt"},
		Rows:    [][]any{{int64(1), 10.0}, {int64(2), 20.0}, {int64(3), 30.0}},
	}
	tgt.Results["q"] = dbconn.FakeResult{
		Columns: []string{"id", "amt"},
		Rows:    [][]any{{int64(1), 10.0}, {int64(2), 20.0}, {int64(3), 99.0}},
	}
	def := &querydef.QueryDefinition{
		Name:        "limited",
		Type:        querydef.ComparisonRowset,
		KeyColumns:  []string{"id"},
		SourceQuery: "q",
		TargetQuery: "q",
	}

	result, err := Run(ctx, def, conns, zerolog.Nop())
	require.NoError(t, err)
	require.Equal(t, StatusFailed, result.Status)

	// The third row never enters the comparison under the override.
	result, err = Run(ctx, def, conns, zerolog.Nop(), WithLimitOverride(2))
	require.NoError(t, err)
	require.Equal(t, StatusPassed, result.Status)
}

func TestRowDriftWarningPolicyRejectsValueDiffs(t *testing.T) {
	policy := RowDriftWarningPolicy(1.0)
	require.False(t, policy([]compare.Mismatch{
		{Kind: compare.KindValueDiff, Column: "amt"},
	}, 100, 100))
	require.True(t, policy([]compare.Mismatch{
		{Kind: compare.KindExtraRow, RowKey: "5"},
	}, 100, 101))
	require.False(t, policy(nil, 0, 0))
}

func TestVerdictTransitions(t *testing.T) {
	v := newVerdict()
	require.Equal(t, StatusPending, v.status)
	require.Error(t, v.finish(StatusPassed))
	require.NoError(t, v.start())
	require.Error(t, v.start())
	require.Error(t, v.finish(StatusRunning))
	require.NoError(t, v.finish(StatusFailed))
	require.Error(t, v.finish(StatusPassed))
}

func TestRunAll(t *testing.T) {
	ctx := context.Background()
	src, tgt, conns := fakeConns(t)
	src.Results["count"] = dbconn.FakeResult{Columns: []string{"n"}, Rows: [][]any{{int64(10)}}}
	tgt.Results["count"] = dbconn.FakeResult{Columns: []string{"n"}, Rows: [][]any{{int64(10)}}}
	src.Results["agg"] = dbconn.FakeResult{Columns: []string{"total"}, Rows: [][]any{{100.0}}}
	tgt.Results["agg"] = dbconn.FakeResult{Columns: []string{"total"}, Rows: [][]any{{110.0}}}
	src.Errs["boom"] = errors.New("connection reset")
	tgt.Results["boom"] = dbconn.FakeResult{Columns: []string{"n"}, Rows: [][]any{{int64(1)}}}

	suite := &querydef.Suite{
		Checks: []querydef.QueryDefinition{
			{Name: "counts", Type: querydef.ComparisonCount, SourceQuery: "count", TargetQuery: "count"},
			{Name: "totals", Type: querydef.ComparisonAggregation, SourceQuery: "agg", TargetQuery: "agg"},
			{Name: "broken", Type: querydef.ComparisonCount, SourceQuery: "boom", TargetQuery: "boom"},
		},
	}

	reporter := &memReporter{}
	summary, err := RunAll(ctx, suite, conns, zerolog.Nop(), reporter, WithConcurrency(2))
	require.NoError(t, err)

	require.Len(t, summary.Results, 3)
	require.Equal(t, "counts", summary.Results[0].QueryName)
	require.Equal(t, StatusPassed, summary.Results[0].Status)
	require.Equal(t, "totals", summary.Results[1].QueryName)
	require.Equal(t, StatusFailed, summary.Results[1].Status)
	require.Equal(t, "broken", summary.Results[2].QueryName)
	require.Equal(t, StatusErrored, summary.Results[2].Status)

	require.Equal(t, 1, summary.Passed)
	require.Equal(t, 1, summary.Failed)
	require.Equal(t, 1, summary.Errored)
	require.Equal(t, 0, summary.Warnings)
	require.False(t, summary.Ok())

	require.Len(t, reporter.results, 3)
}

func TestRunAllAppliesSuiteAliases(t *testing.T) {
	ctx := context.Background()
	src, tgt, conns := fakeConns(t)
	src.Results["q"] = dbconn.FakeResult{Columns: []string{"CustomerID"}, Rows: [][]any{{int64(7)}}}
	tgt.Results["q"] = dbconn.FakeResult{Columns: []string{"customer_id"}, Rows: [][]any{{int64(7)}}}

	suite := &querydef.Suite{
		ColumnAliases: map[string]string{"customerid": "customer_id"},
		Checks: []querydef.QueryDefinition{
			{Name: "ids", Type: querydef.ComparisonAggregation, SourceQuery: "q", TargetQuery: "q"},
		},
	}

	reporter := &memReporter{}
	summary, err := RunAll(ctx, suite, conns, zerolog.Nop(), reporter)
	require.NoError(t, err)
	require.Equal(t, StatusPassed, summary.Results[0].Status)
	require.True(t, summary.Ok())
}

// cloneFailConn refuses to clone.
type cloneFailConn struct {
	*dbconn.FakeConn
}

func (cloneFailConn) Clone(ctx context.Context) (dbconn.Conn, error) {
	return nil, errors.New("clone refused")
}

func TestRunAllCloneFailure(t *testing.T) {
	src, tgt, _ := fakeConns(t)
	conns := dbconn.OrderedConns{cloneFailConn{src}, cloneFailConn{tgt}}
	suite := &querydef.Suite{
		Checks: []querydef.QueryDefinition{
			{Name: "a", Type: querydef.ComparisonCount, SourceQuery: "q", TargetQuery: "q"},
			{Name: "b", Type: querydef.ComparisonCount, SourceQuery: "q", TargetQuery: "q"},
		},
	}
	// No worker has started, so the error surfaces immediately instead of
	// deadlocking on the work queue.
	_, err := RunAll(context.Background(), suite, conns, zerolog.Nop(), &memReporter{}, WithConcurrency(2))
	require.EqualError(t, err, "clone refused")
}

func TestRunAllRetriesErroredChecks(t *testing.T) {
	ctx := context.Background()
	src, tgt, conns := fakeConns(t)
	src.Errs["q"] = errors.New("connection reset")
	tgt.Results["q"] = dbconn.FakeResult{Columns: []string{"n"}, Rows: [][]any{{int64(1)}}}

	suite := &querydef.Suite{
		Checks: []querydef.QueryDefinition{
			{Name: "flaky", Type: querydef.ComparisonCount, SourceQuery: "q", TargetQuery: "q"},
		},
	}

	start := time.Now()
	reporter := &memReporter{}
	summary, err := RunAll(ctx, suite, conns, zerolog.Nop(), reporter, WithRetrySettings(retry.Settings{
		InitialBackoff: time.Millisecond,
		Multiplier:     2,
		MaxRetries:     3,
	}))
	require.NoError(t, err)
	require.Equal(t, StatusErrored, summary.Results[0].Status)
	// Two retries at 1ms and 2ms backoff.
	require.GreaterOrEqual(t, time.Since(start), 3*time.Millisecond)
	// The reporter sees only the final verdict.
	require.Len(t, reporter.results, 1)
}
