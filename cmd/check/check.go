package check

import (
	"context"
	"time"

	"cloud.google.com/go/storage"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/cockroachdb/errors"
	"github.com/qvet/qvet/check"
	"github.com/qvet/qvet/cmd/internal/cmdutil"
	"github.com/qvet/qvet/querydef"
	"github.com/qvet/qvet/report"
	"github.com/qvet/qvet/report/resultstore"
	"github.com/qvet/qvet/retry"
	"github.com/spf13/cobra"
	"golang.org/x/oauth2/google"
)

func Command() *cobra.Command {
	var (
		checksPath      string
		concurrency     int
		checksPerSecond int
		retryAttempts   int
		rowLimit        int
		warnRowDrift    float64
		runID           string
		resultsDir      string
		s3Bucket        string
		gcpBucket       string
	)

	cmd := &cobra.Command{
		Use:   "check",
		Short: "Run validation checks against the source and target databases.",
		Long:  `Check executes each query pair from a checks file against both databases and compares the normalized results.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()

			logger, err := cmdutil.Logger()
			if err != nil {
				return err
			}
			cmdutil.RunMetricsServer(logger)

			suite, err := querydef.LoadSuite(checksPath)
			if err != nil {
				return err
			}

			conns, err := cmdutil.LoadDBConns(ctx)
			if err != nil {
				return err
			}
			defer func() {
				for _, conn := range conns {
					_ = conn.Close(ctx)
				}
			}()

			if runID == "" {
				runID = time.Now().UTC().Format("20060102-150405")
			}

			reporter := report.CombinedReporter{}
			reporter.Reporters = append(reporter.Reporters, report.LogReporter{Logger: logger})
			switch {
			case gcpBucket != "":
				creds, err := google.FindDefaultCredentials(ctx)
				if err != nil {
					return err
				}
				gcpClient, err := storage.NewClient(ctx)
				if err != nil {
					return err
				}
				store := resultstore.NewGCPStore(logger, gcpClient, creds, gcpBucket)
				reporter.Reporters = append(reporter.Reporters, resultstore.NewReporter(ctx, logger, store, runID))
			case s3Bucket != "":
				sess, err := session.NewSession()
				if err != nil {
					return err
				}
				store := resultstore.NewS3Store(logger, sess, s3Bucket)
				reporter.Reporters = append(reporter.Reporters, resultstore.NewReporter(ctx, logger, store, runID))
			case resultsDir != "":
				store, err := resultstore.NewLocalStore(logger, resultsDir)
				if err != nil {
					return err
				}
				reporter.Reporters = append(reporter.Reporters, resultstore.NewReporter(ctx, logger, store, runID))
			}
			defer reporter.Close()

			opts := []check.Opt{
				check.WithConcurrency(concurrency),
				check.WithChecksPerSecond(checksPerSecond),
			}
			if retryAttempts > 0 {
				settings := retry.DefaultSettings()
				settings.MaxRetries = retryAttempts
				opts = append(opts, check.WithRetrySettings(settings))
			}
			if rowLimit > 0 {
				opts = append(opts, check.WithLimitOverride(rowLimit))
			}
			if warnRowDrift > 0 {
				opts = append(opts, check.WithWarningPolicy(check.RowDriftWarningPolicy(warnRowDrift)))
			}

			logger.Info().
				Str("run_id", runID).
				Int("checks", len(suite.Checks)).
				Msg("starting checks")
			summary, err := check.RunAll(ctx, suite, conns, logger, reporter, opts...)
			if err != nil {
				return errors.Wrap(err, "error running checks")
			}
			logger.Info().
				Int("passed", summary.Passed).
				Int("failed", summary.Failed).
				Int("warnings", summary.Warnings).
				Int("errored", summary.Errored).
				Msg("checks complete")
			if !summary.Ok() {
				return errors.Newf("%d checks failed, %d errored", summary.Failed, summary.Errored)
			}
			return nil
		},
	}

	cmd.PersistentFlags().StringVar(
		&checksPath,
		"checks",
		"checks.yaml",
		"path to the YAML checks file",
	)
	cmd.PersistentFlags().IntVar(
		&concurrency,
		"concurrency",
		check.DefaultConcurrency,
		"number of checks to run at a time",
	)
	cmd.PersistentFlags().IntVar(
		&checksPerSecond,
		"checks-per-second",
		0,
		"if set, maximum number of checks to start per second",
	)
	cmd.PersistentFlags().IntVar(
		&retryAttempts,
		"retry-attempts",
		0,
		"if set, number of attempts for checks that error before accepting the verdict",
	)
	cmd.PersistentFlags().IntVar(
		&rowLimit,
		"row-limit",
		0,
		"if set, maximum number of rows to compare per side for rowset checks",
	)
	cmd.PersistentFlags().Float64Var(
		&warnRowDrift,
		"warn-row-drift",
		0,
		"if set, missing/extra row drift at or below this ratio of source rows downgrades FAILED to WARNING",
	)
	cmd.PersistentFlags().StringVar(
		&runID,
		"run-id",
		"",
		"identifier for this run in persisted results (defaults to a UTC timestamp)",
	)
	cmd.PersistentFlags().StringVar(
		&resultsDir,
		"results-dir",
		"",
		"if set, directory to persist run results to",
	)
	cmd.PersistentFlags().StringVar(
		&s3Bucket,
		"results-s3-bucket",
		"",
		"if set, S3 bucket to persist run results to",
	)
	cmd.PersistentFlags().StringVar(
		&gcpBucket,
		"results-gcp-bucket",
		"",
		"if set, GCP bucket to persist run results to",
	)
	cmdutil.RegisterDBConnFlags(cmd)
	cmdutil.RegisterLoggerFlags(cmd)
	cmdutil.RegisterMetricsFlags(cmd)
	return cmd
}
