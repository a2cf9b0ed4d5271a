// Package check runs query validations end to end: execute the query pair,
// normalize both result sets, compare them with the configured strategy and
// settle on a verdict.
package check

import (
	"context"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/qvet/qvet/canonical"
	"github.com/qvet/qvet/compare"
	"github.com/qvet/qvet/dbconn"
	"github.com/qvet/qvet/normalize"
	"github.com/qvet/qvet/queryexec"
	"github.com/qvet/qvet/querydef"
	"github.com/qvet/qvet/retry"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"
)

const DefaultConcurrency = 4

// Reporter consumes results as checks complete. Implementations must be safe
// for concurrent use.
type Reporter interface {
	Report(result Result)
	Close()
}

type Opt func(*opts)

type opts struct {
	concurrency     int
	checksPerSecond int
	limitOverride   int
	retrySettings   *retry.Settings
	warningPolicy   WarningPolicy
	aliases         map[string]string
}

func (o opts) rateLimit() rate.Limit {
	if o.checksPerSecond == 0 {
		return rate.Inf
	}
	return rate.Limit(o.checksPerSecond)
}

func WithConcurrency(c int) Opt {
	return func(o *opts) {
		o.concurrency = c
	}
}

func WithChecksPerSecond(c int) Opt {
	return func(o *opts) {
		o.checksPerSecond = c
	}
}

// WithRetrySettings re-runs ERRORED checks with exponential backoff before
// accepting the verdict.
func WithRetrySettings(s retry.Settings) Opt {
	return func(o *opts) {
		o.retrySettings = &s
	}
}

// WithLimitOverride caps the rows compared per side for every rowset check,
// regardless of the per-check limit.
func WithLimitOverride(limit int) Opt {
	return func(o *opts) {
		o.limitOverride = limit
	}
}

func WithWarningPolicy(p WarningPolicy) Opt {
	return func(o *opts) {
		o.warningPolicy = p
	}
}

func WithColumnAliases(aliases map[string]string) Opt {
	return func(o *opts) {
		o.aliases = aliases
	}
}

var (
	checksRunning = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "qvet",
		Subsystem: "check",
		Name:      "running",
		Help:      "Number of checks currently executing.",
	})
	checkResults = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "qvet",
		Subsystem: "check",
		Name:      "results_total",
		Help:      "Completed checks by terminal status.",
	}, []string{"status"})
)

// Run executes one validation and returns its result. The returned error is
// reserved for malformed definitions; execution, normalization and comparison
// failures surface as an ERRORED result instead.
func Run(
	ctx context.Context,
	def *querydef.QueryDefinition,
	conns dbconn.OrderedConns,
	logger zerolog.Logger,
	inOpts ...Opt,
) (Result, error) {
	if err := def.Validate(); err != nil {
		return Result{}, err
	}
	o := opts{}
	for _, applyOpt := range inOpts {
		applyOpt(&o)
	}
	if o.limitOverride > 0 && def.Type == querydef.ComparisonRowset {
		overridden := *def
		if overridden.Limit == 0 || overridden.Limit > o.limitOverride {
			overridden.Limit = o.limitOverride
		}
		def = &overridden
	}

	checksRunning.Inc()
	defer checksRunning.Dec()

	v := newVerdict()
	if err := v.start(); err != nil {
		return Result{}, err
	}

	srcRes, tgtRes := queryexec.ExecutePair(ctx, conns, def)
	result := Result{
		QueryName:        def.Name,
		Mismatches:       []compare.Mismatch{},
		SourceExecMillis: srcRes.Duration.Milliseconds(),
		TargetExecMillis: tgtRes.Duration.Milliseconds(),
	}

	var srcTbl, tgtTbl *canonical.Table
	errored := func(mismatches []compare.Mismatch) (Result, error) {
		if err := v.finish(StatusErrored); err != nil {
			return Result{}, err
		}
		result.Status = v.status
		result.Mismatches = mismatches
		result.Explain = buildExplain(srcTbl, tgtTbl, srcRes, tgtRes, mismatches)
		finalize(logger, result)
		return result, nil
	}

	if srcRes.Failed() || tgtRes.Failed() {
		var mismatches []compare.Mismatch
		if srcRes.Failed() {
			mismatches = append(mismatches, compare.Mismatch{
				Kind:    compare.KindExecutionError,
				Message: fmt.Sprintf("source query failed: %s", srcRes.Failure),
			})
		}
		if tgtRes.Failed() {
			mismatches = append(mismatches, compare.Mismatch{
				Kind:    compare.KindExecutionError,
				Message: fmt.Sprintf("target query failed: %s", tgtRes.Failure),
			})
		}
		return errored(mismatches)
	}

	var err error
	srcTbl, err = normalize.Table(srcRes.Raw, srcRes.Duration, o.aliases)
	if err != nil {
		return errored([]compare.Mismatch{{
			Kind:    compare.KindExecutionError,
			Message: fmt.Sprintf("source normalization failed: %s", err),
		}})
	}
	tgtTbl, err = normalize.Table(tgtRes.Raw, tgtRes.Duration, o.aliases)
	if err != nil {
		return errored([]compare.Mismatch{{
			Kind:    compare.KindExecutionError,
			Message: fmt.Sprintf("target normalization failed: %s", err),
		}})
	}

	comparator, err := compare.ForDefinition(def)
	if err != nil {
		return errored([]compare.Mismatch{{
			Kind:    compare.KindExecutionError,
			Message: fmt.Sprintf("comparison failed: %s", err),
		}})
	}
	mismatches, err := comparator.Compare(srcTbl, tgtTbl)
	if err != nil {
		return errored([]compare.Mismatch{{
			Kind:    compare.KindExecutionError,
			Message: fmt.Sprintf("comparison failed: %s", err),
		}})
	}
	if mismatches == nil {
		mismatches = []compare.Mismatch{}
	}

	status := decide(mismatches, o.warningPolicy, len(srcTbl.Rows), len(tgtTbl.Rows))
	if err := v.finish(status); err != nil {
		return Result{}, err
	}
	result.Status = v.status
	result.Mismatches = mismatches
	result.Explain = buildExplain(srcTbl, tgtTbl, srcRes, tgtRes, mismatches)
	finalize(logger, result)
	return result, nil
}

func finalize(logger zerolog.Logger, result Result) {
	checkResults.WithLabelValues(string(result.Status)).Inc()
	ev := logger.Debug()
	switch result.Status {
	case StatusFailed, StatusErrored:
		ev = logger.Warn()
	case StatusWarning:
		ev = logger.Info()
	}
	ev.
		Str("check", result.QueryName).
		Str("status", string(result.Status)).
		Int("mismatches", len(result.Mismatches)).
		Msg(result.Explain.Summary)
}

// Summary tallies a full run of a checks suite.
type Summary struct {
	Results []Result

	Passed   int
	Failed   int
	Warnings int
	Errored  int
}

// Ok reports whether the run can be considered healthy: no check failed or
// errored.
func (s Summary) Ok() bool {
	return s.Failed == 0 && s.Errored == 0
}

type workItem struct {
	idx int
	def *querydef.QueryDefinition
}

// RunAll runs every check in the suite across a pool of workers, reporting
// each result as it completes. Results in the returned summary keep the
// suite's declared order. Suite-level column aliases apply to every check
// unless overridden by WithColumnAliases.
func RunAll(
	ctx context.Context,
	suite *querydef.Suite,
	conns dbconn.OrderedConns,
	logger zerolog.Logger,
	reporter Reporter,
	inOpts ...Opt,
) (Summary, error) {
	o := opts{concurrency: DefaultConcurrency}
	for _, applyOpt := range inOpts {
		applyOpt(&o)
	}
	if o.aliases == nil {
		o.aliases = suite.ColumnAliases
	}
	if o.concurrency <= 0 {
		o.concurrency = DefaultConcurrency
	}
	if o.concurrency > len(suite.Checks) {
		o.concurrency = len(suite.Checks)
	}

	runOpts := []Opt{WithColumnAliases(o.aliases)}
	if o.warningPolicy != nil {
		runOpts = append(runOpts, WithWarningPolicy(o.warningPolicy))
	}
	if o.limitOverride > 0 {
		runOpts = append(runOpts, WithLimitOverride(o.limitOverride))
	}

	limiter := rate.NewLimiter(o.rateLimit(), 1)
	results := make([]Result, len(suite.Checks))

	// Clone every worker's connection pair up front so a failed clone cannot
	// leave already-started workers blocked on the queue.
	workerConns := make([]dbconn.OrderedConns, o.concurrency)
	workerConns[0] = conns
	defer func() {
		for _, pair := range workerConns[1:] {
			for _, conn := range pair {
				if conn != nil {
					_ = conn.Close(ctx)
				}
			}
		}
	}()
	for workerIdx := 1; workerIdx < o.concurrency; workerIdx++ {
		for i, conn := range conns {
			cloned, err := conn.Clone(ctx)
			if err != nil {
				return Summary{}, err
			}
			workerConns[workerIdx][i] = cloned
		}
	}

	g, gCtx := errgroup.WithContext(ctx)
	workQueue := make(chan workItem)
	for workerIdx := 0; workerIdx < o.concurrency; workerIdx++ {
		pair := workerConns[workerIdx]
		g.Go(func() error {
			for {
				item, ok := <-workQueue
				if !ok {
					return nil
				}
				if err := limiter.Wait(gCtx); err != nil {
					return err
				}
				result, err := runWithRetry(gCtx, item.def, pair, logger, o, runOpts)
				if err != nil {
					return err
				}
				results[item.idx] = result
				reporter.Report(result)
			}
		})
	}

	g.Go(func() error {
		defer close(workQueue)
		for i := range suite.Checks {
			select {
			case workQueue <- workItem{idx: i, def: &suite.Checks[i]}:
			case <-gCtx.Done():
				return gCtx.Err()
			}
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		return Summary{}, err
	}

	summary := Summary{Results: results}
	for _, r := range results {
		switch r.Status {
		case StatusPassed:
			summary.Passed++
		case StatusFailed:
			summary.Failed++
		case StatusWarning:
			summary.Warnings++
		case StatusErrored:
			summary.Errored++
		}
	}
	return summary, nil
}

func runWithRetry(
	ctx context.Context,
	def *querydef.QueryDefinition,
	conns dbconn.OrderedConns,
	logger zerolog.Logger,
	o opts,
	runOpts []Opt,
) (Result, error) {
	result, err := Run(ctx, def, conns, logger, runOpts...)
	if err != nil || o.retrySettings == nil || result.Status != StatusErrored {
		return result, err
	}
	r, err := retry.NewRetry(*o.retrySettings)
	if err != nil {
		return Result{}, err
	}
	for result.Status == StatusErrored && r.ShouldContinue() {
		if err := r.Wait(ctx); err != nil {
			break
		}
		logger.Info().
			Str("check", def.Name).
			Int("attempt", r.Iteration).
			Msg("retrying errored check")
		result, err = Run(ctx, def, conns, logger, runOpts...)
		if err != nil {
			return Result{}, err
		}
	}
	return result, nil
}
