package check

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/cockroachdb/typecheck/dbconn"
	"github.com/cockroachdb/typecheck/report"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
)

// ConnectFunc opens the connection a run reads from.
type ConnectFunc func(ctx context.Context) (dbconn.Conn, error)

// Outcome is the result of a run that completed. Status is 200 whether or
// not violations were found.
type Outcome struct {
	Status     int
	Violations []report.Violation
}

func (o Outcome) Success() bool {
	return len(o.Violations) == 0
}

// MarshalJSON encodes the outcome as {"status":<status>,"violations":<count>}.
func (o Outcome) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Status     int `json:"status"`
		Violations int `json:"violations"`
	}{
		Status:     o.Status,
		Violations: len(o.Violations),
	})
}

type CheckOpt func(*checkOpts)

type checkOpts struct {
	limit  int
	filter FilterConfig
}

func WithLimit(limit int) CheckOpt {
	return func(o *checkOpts) {
		o.limit = limit
	}
}

func WithFilter(filter FilterConfig) CheckOpt {
	return func(o *checkOpts) {
		o.filter = filter
	}
}

var (
	rowsChecked = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "typecheck",
		Subsystem: "check",
		Name:      "rows_total",
		Help:      "Number of rows whose values were checked.",
	}, []string{"table"})
	violationsFound = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "typecheck",
		Subsystem: "check",
		Name:      "violations_total",
		Help:      "Number of values found not to match their column's expected type.",
	}, []string{"table", "column"})
	runsCompleted = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "typecheck",
		Subsystem: "check",
		Name:      "runs_total",
		Help:      "Number of runs, by result.",
	}, []string{"result"})
	runDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "typecheck",
		Subsystem: "check",
		Name:      "run_duration_seconds",
		Help:      "Duration of runs.",
	})
)

// Run checks the most recent rows of every configured table. All tables are
// read before anything is reported, so a storage error returns before any
// report is made. Otherwise every violation is reported in order, or a single
// Success is reported if there are none. Reporting stops with an error once
// ctx is done.
func Run(
	ctx context.Context,
	connect ConnectFunc,
	cfg Config,
	logger zerolog.Logger,
	reporter report.Reporter,
	inOpts ...CheckOpt,
) (Outcome, error) {
	opts := checkOpts{
		limit:  DefaultLimit,
		filter: DefaultFilterConfig(),
	}
	for _, applyOpt := range inOpts {
		applyOpt(&opts)
	}

	start := time.Now()
	defer func() { runDuration.Observe(time.Since(start).Seconds()) }()

	tables, err := FilterTables(opts.filter, cfg.Tables)
	if err != nil {
		return Outcome{}, err
	}
	if len(tables) == 0 {
		logger.Warn().Msgf("no tables left to check after filtering")
	}

	violations, numRows, err := scanTables(ctx, connect, tables, logger, opts.limit)
	if err != nil {
		runsCompleted.WithLabelValues("error").Inc()
		logger.Error().Err(err).Msgf("error checking record types")
		return Outcome{}, err
	}

	if len(violations) == 0 {
		runsCompleted.WithLabelValues("success").Inc()
		reporter.Report(ctx, report.Success{Tables: len(tables), Rows: numRows})
		return Outcome{Status: http.StatusOK}, nil
	}
	runsCompleted.WithLabelValues("violations").Inc()
	for i, v := range violations {
		if err := ctx.Err(); err != nil {
			logger.Error().Err(err).Int("reported", i).Int("violations", len(violations)).
				Msgf("stopped reporting violations")
			return Outcome{}, errors.Wrapf(err, "reported %d of %d violations", i, len(violations))
		}
		reporter.Report(ctx, v)
	}
	return Outcome{Status: http.StatusOK, Violations: violations}, nil
}

// scanTables holds one connection for the duration of the scan and closes it
// before returning.
func scanTables(
	ctx context.Context,
	connect ConnectFunc,
	tables []TableSpec,
	logger zerolog.Logger,
	limit int,
) ([]report.Violation, int, error) {
	conn, err := connect(ctx)
	if err != nil {
		return nil, 0, errors.Wrap(err, "error connecting to database")
	}
	logger.Debug().Str("conn", string(conn.ID())).Str("dialect", conn.Dialect()).Msgf("connection established")
	defer func() {
		if err := conn.Close(ctx); err != nil {
			logger.Warn().Err(err).Msgf("error closing connection")
			return
		}
		logger.Debug().Str("conn", string(conn.ID())).Msgf("connection closed")
	}()

	var violations []report.Violation
	numRows := 0
	for _, tbl := range tables {
		tblViolations, tblRows, err := scanTable(ctx, conn, tbl, limit)
		if err != nil {
			return nil, numRows, err
		}
		logger.Info().
			Str("table_schema", string(tbl.Schema)).
			Str("table_name", string(tbl.Table)).
			Int("rows", tblRows).
			Int("violations", len(tblViolations)).
			Msgf("checked table")
		rowsChecked.WithLabelValues(tbl.SafeString()).Add(float64(tblRows))
		for _, v := range tblViolations {
			violationsFound.WithLabelValues(tbl.SafeString(), string(v.Column)).Inc()
		}
		numRows += tblRows
		violations = append(violations, tblViolations...)
	}
	return violations, numRows, nil
}
