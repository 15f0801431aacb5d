package run

import (
	"context"
	"encoding/json"
	"io"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/cockroachdb/typecheck/check"
	"github.com/cockroachdb/typecheck/cmd/internal/cmdutil"
	"github.com/cockroachdb/typecheck/report"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

// writeResult prints the outcome of a completed run as one line of JSON.
func writeResult(w io.Writer, outcome check.Outcome) error {
	return json.NewEncoder(w).Encode(outcome)
}

// pause waits for d, returning false if ctx is done first.
func pause(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

func Command() *cobra.Command {
	var (
		runLimit           int
		runTimeout         time.Duration
		runContinuous      bool
		runContinuousPause time.Duration
	)

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Check that recent rows hold values of their columns' expected types.",
		Long: `Run reads the most recent rows of each configured table, checks every value against its column's expected type
and sends an event to the notifier for every violation, or a single success event if there are none.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			logger, err := cmdutil.Logger()
			if err != nil {
				return err
			}
			cmdutil.RunMetricsServer(logger)

			cfg, err := cmdutil.TablesConfig()
			if err != nil {
				return err
			}
			notifier, err := cmdutil.Notifier()
			if err != nil {
				return err
			}

			reporter := report.CombinedReporter{
				Reporters: []report.Reporter{
					report.LogReporter{Logger: logger},
					report.NotifierReporter{Notifier: notifier, Logger: logger},
				},
			}
			defer reporter.Close()

			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}
			for runNum := 1; runContinuous || runNum <= 1; runNum++ {
				if runContinuous {
					reporter.Report(ctx, report.StatusReport{Info: "starting type check run"})
					logger.Info().Int("run", runNum).Msgf("starting type check run #%d", runNum)
				}
				outcome, err := runOnce(
					ctx,
					cfg,
					logger,
					reporter,
					runTimeout,
					check.WithLimit(runLimit),
					check.WithFilter(cmdutil.TableFilter()),
				)
				cmdutil.PushMetrics(logger)
				if err != nil {
					return errors.Wrapf(err, "error checking record types")
				}
				if err := writeResult(cmd.OutOrStdout(), outcome); err != nil {
					return err
				}
				if runContinuous && !pause(ctx, runContinuousPause) {
					logger.Info().Msgf("stopping continuous runs")
					return nil
				}
			}
			return nil
		},
	}

	cmd.PersistentFlags().IntVar(
		&runLimit,
		"limit",
		check.DefaultLimit,
		"number of most recent rows to check in each table",
	)
	cmd.PersistentFlags().DurationVar(
		&runTimeout,
		"timeout",
		0,
		"if set, maximum amount of time a single run may take",
	)
	cmd.PersistentFlags().BoolVar(
		&runContinuous,
		"continuous",
		false,
		"whether runs should repeat until the process is stopped",
	)
	cmd.PersistentFlags().DurationVar(
		&runContinuousPause,
		"continuous-pause",
		0,
		"time to pause between continuous runs",
	)
	cmdutil.RegisterDBConnFlags(cmd)
	cmdutil.RegisterLoggerFlags(cmd)
	cmdutil.RegisterNameFilterFlags(cmd)
	cmdutil.RegisterMetricsFlags(cmd)
	cmdutil.RegisterNotifyFlags(cmd)
	cmdutil.RegisterTablesConfigFlags(cmd)
	return cmd
}

func runOnce(
	ctx context.Context,
	cfg check.Config,
	logger zerolog.Logger,
	reporter report.Reporter,
	timeout time.Duration,
	opts ...check.CheckOpt,
) (check.Outcome, error) {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	return check.Run(ctx, cmdutil.ConnectDB, cfg, logger, reporter, opts...)
}
