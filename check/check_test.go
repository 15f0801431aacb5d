package check

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/cockroachdb/cockroachdb-parser/pkg/sql/sem/tree"
	"github.com/cockroachdb/cockroachdb-parser/pkg/util/timeutil/pgdate"
	"github.com/cockroachdb/errors"
	"github.com/cockroachdb/typecheck/coltype"
	"github.com/cockroachdb/typecheck/dbconn"
	"github.com/cockroachdb/typecheck/dbtable"
	"github.com/cockroachdb/typecheck/notify"
	"github.com/cockroachdb/typecheck/report"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

var ordersTable = TableSpec{
	Name:                dbtable.Name{Schema: "sales", Table: "orders"},
	ReferenceDateColumn: "ref_date",
	Columns: []ColumnSpec{
		{Name: "order_id", Type: coltype.Integer},
		{Name: "seller_id", Type: coltype.Integer},
		{Name: "ref_date", Type: coltype.Date},
	},
}

var refundsTable = TableSpec{
	Name:                dbtable.Name{Schema: "sales", Table: "refunds"},
	ReferenceDateColumn: "ref_date",
	Columns: []ColumnSpec{
		{Name: "refund_id", Type: coltype.BigInt},
		{Name: "amount", Type: coltype.Numeric},
	},
}

func mustDate(t *testing.T) tree.Datum {
	d, err := pgdate.MakeDateFromTime(time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	return tree.NewDDate(d)
}

func orderRow(t *testing.T, id int64, sellerID tree.Datum) tree.Datums {
	return tree.Datums{tree.NewDInt(tree.DInt(id)), sellerID, mustDate(t)}
}

func connectTo(conn *dbconn.FakeConn) ConnectFunc {
	return func(ctx context.Context) (dbconn.Conn, error) {
		return conn, nil
	}
}

type recordingReporter struct {
	objs []report.ReportableObject
}

func (r *recordingReporter) Report(_ context.Context, obj report.ReportableObject) {
	r.objs = append(r.objs, obj)
}

func (r *recordingReporter) Close() {}

type recordingNotifier struct {
	events []notify.Event
	err    error
}

func (n *recordingNotifier) Notify(ctx context.Context, ev notify.Event) (int, error) {
	n.events = append(n.events, ev)
	if n.err != nil {
		return 0, n.err
	}
	return http.StatusOK, nil
}

func TestScanTable(t *testing.T) {
	ctx := context.Background()
	badRow := orderRow(t, 3, tree.NewDString("seller-3"))
	conn := dbconn.NewFakeConn("fake").WithRows(
		"sales.orders",
		orderRow(t, 1, tree.NewDInt(10)),
		orderRow(t, 2, tree.NewDInt(20)),
		badRow,
		orderRow(t, 4, tree.NewDInt(40)),
	)

	violations, err := ScanTable(ctx, conn, ordersTable, DefaultLimit)
	require.NoError(t, err)
	require.Equal(t, []report.Violation{
		{
			Name:     ordersTable.Name,
			Column:   "seller_id",
			Value:    badRow[1],
			Expected: coltype.Integer,
			Columns:  []tree.Name{"order_id", "seller_id", "ref_date"},
			Row:      badRow,
		},
	}, violations)
	require.Equal(t, []string{
		"SELECT order_id, seller_id, ref_date FROM sales.orders ORDER BY ref_date DESC LIMIT 1000",
	}, conn.Queries())
}

func TestScanTableOrdering(t *testing.T) {
	ctx := context.Background()
	conn := dbconn.NewFakeConn("fake").WithRows(
		"sales.orders",
		tree.Datums{tree.NewDString("a"), tree.MakeDBool(true), tree.DNull},
		orderRow(t, 2, tree.NewDFloat(1.5)),
	)
	violations, err := ScanTable(ctx, conn, ordersTable, 2)
	require.NoError(t, err)

	type loc struct {
		order  string
		column tree.Name
	}
	var got []loc
	for _, v := range violations {
		got = append(got, loc{order: report.ReportableVal(v.Row[0]), column: v.Column})
	}
	require.Equal(t, []loc{
		{order: "a", column: "order_id"},
		{order: "a", column: "seller_id"},
		{order: "a", column: "ref_date"},
		{order: "2", column: "seller_id"},
	}, got)
	require.Equal(t, []string{
		"SELECT order_id, seller_id, ref_date FROM sales.orders ORDER BY ref_date DESC LIMIT 2",
	}, conn.Queries())
}

func TestRun(t *testing.T) {
	ctx := context.Background()
	cfg := Config{Tables: []TableSpec{ordersTable, refundsTable}}
	goodRefund := tree.Datums{tree.NewDInt(1), tree.NewDFloat(9.99)}

	t.Run("no violations emits one success event", func(t *testing.T) {
		conn := dbconn.NewFakeConn("fake").
			WithRows("sales.orders", orderRow(t, 1, tree.NewDInt(10))).
			WithRows("sales.refunds", goodRefund)
		n := &recordingNotifier{}
		outcome, err := Run(
			ctx,
			connectTo(conn),
			cfg,
			zerolog.Nop(),
			report.NotifierReporter{Notifier: n, Logger: zerolog.Nop()},
		)
		require.NoError(t, err)
		require.Equal(t, http.StatusOK, outcome.Status)
		require.True(t, outcome.Success())
		require.Equal(t, []notify.Event{{Name: "validation_success", Status: notify.StatusSuccess}}, n.events)
		require.True(t, conn.Closed())
		require.Len(t, conn.Queries(), 2)
	})

	t.Run("one failure event per violation", func(t *testing.T) {
		conn := dbconn.NewFakeConn("fake").
			WithRows(
				"sales.orders",
				orderRow(t, 1, tree.NewDString("x")),
				orderRow(t, 2, tree.NewDString("y")),
			).
			WithRows("sales.refunds", tree.Datums{tree.NewDFloat(1), tree.NewDString("9.99")})
		n := &recordingNotifier{}
		outcome, err := Run(
			ctx,
			connectTo(conn),
			cfg,
			zerolog.Nop(),
			report.NotifierReporter{Notifier: n, Logger: zerolog.Nop()},
		)
		require.NoError(t, err)
		require.Equal(t, http.StatusOK, outcome.Status)
		require.False(t, outcome.Success())
		require.Len(t, outcome.Violations, 4)
		require.Equal(t, []notify.Event{
			{Name: "validation_error_sales.orders_seller_id", Status: notify.StatusFailure},
			{Name: "validation_error_sales.orders_seller_id", Status: notify.StatusFailure},
			{Name: "validation_error_sales.refunds_refund_id", Status: notify.StatusFailure},
			{Name: "validation_error_sales.refunds_amount", Status: notify.StatusFailure},
		}, n.events)
		require.True(t, conn.Closed())
	})

	t.Run("storage error returns before reporting", func(t *testing.T) {
		conn := dbconn.NewFakeConn("fake").
			WithRows("sales.orders", orderRow(t, 1, tree.NewDString("x"))).
			WithError("sales.refunds", errors.New("relation \"sales.refunds\" does not exist"))
		r := &recordingReporter{}
		_, err := Run(ctx, connectTo(conn), cfg, zerolog.Nop(), r)
		require.Error(t, err)
		require.Contains(t, err.Error(), `relation "sales.refunds" does not exist`)
		require.Empty(t, r.objs)
		require.True(t, conn.Closed())
	})

	t.Run("connection error", func(t *testing.T) {
		r := &recordingReporter{}
		_, err := Run(
			ctx,
			func(ctx context.Context) (dbconn.Conn, error) {
				return nil, errors.New("password authentication failed")
			},
			cfg,
			zerolog.Nop(),
			r,
		)
		require.EqualError(t, err, "error connecting to database: password authentication failed")
		require.Empty(t, r.objs)
	})

	t.Run("notifier failures do not fail the run", func(t *testing.T) {
		conn := dbconn.NewFakeConn("fake").
			WithRows("sales.orders", orderRow(t, 1, tree.NewDString("x"))).
			WithRows("sales.refunds", goodRefund)
		n := &recordingNotifier{err: errors.New("connection refused")}
		outcome, err := Run(
			ctx,
			connectTo(conn),
			cfg,
			zerolog.Nop(),
			report.NotifierReporter{Notifier: n, Logger: zerolog.Nop()},
		)
		require.NoError(t, err)
		require.Equal(t, http.StatusOK, outcome.Status)
		require.Len(t, outcome.Violations, 1)
		require.Len(t, n.events, 1)
	})

	t.Run("filter and limit", func(t *testing.T) {
		conn := dbconn.NewFakeConn("fake").WithRows("sales.refunds", goodRefund)
		r := &recordingReporter{}
		outcome, err := Run(
			ctx,
			connectTo(conn),
			cfg,
			zerolog.Nop(),
			r,
			WithLimit(5),
			WithFilter(FilterConfig{SchemaFilter: DefaultFilterString, TableFilter: "^refunds$"}),
		)
		require.NoError(t, err)
		require.True(t, outcome.Success())
		require.Equal(t, []report.ReportableObject{report.Success{Tables: 1, Rows: 1}}, r.objs)
		require.Equal(t, []string{
			"SELECT refund_id, amount FROM sales.refunds ORDER BY ref_date DESC LIMIT 5",
		}, conn.Queries())
	})
}

// cancellingNotifier cancels the run's context on the first event it is sent.
type cancellingNotifier struct {
	cancel context.CancelFunc
	events []notify.Event
}

func (n *cancellingNotifier) Notify(ctx context.Context, ev notify.Event) (int, error) {
	n.events = append(n.events, ev)
	n.cancel()
	return 0, ctx.Err()
}

func TestRunStopsReportingWhenDone(t *testing.T) {
	cfg := Config{Tables: []TableSpec{ordersTable}}
	newConn := func() *dbconn.FakeConn {
		return dbconn.NewFakeConn("fake").WithRows(
			"sales.orders",
			orderRow(t, 1, tree.NewDString("x")),
			orderRow(t, 2, tree.NewDString("y")),
			orderRow(t, 3, tree.NewDString("z")),
		)
	}

	t.Run("cancelled while notifying", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		conn := newConn()
		n := &cancellingNotifier{cancel: cancel}
		_, err := Run(
			ctx,
			connectTo(conn),
			cfg,
			zerolog.Nop(),
			report.NotifierReporter{Notifier: n, Logger: zerolog.Nop()},
		)
		require.True(t, errors.Is(err, context.Canceled))
		require.EqualError(t, err, "reported 1 of 3 violations: context canceled")
		require.Len(t, n.events, 1)
		require.True(t, conn.Closed())
	})

	t.Run("deadline bounds http notifications", func(t *testing.T) {
		var mu sync.Mutex
		requests := 0
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			mu.Lock()
			requests++
			mu.Unlock()
			select {
			case <-r.Context().Done():
			case <-time.After(5 * time.Second):
			}
			w.WriteHeader(http.StatusOK)
		}))
		defer srv.Close()

		n, err := notify.NewHTTPNotifier(notify.Config{URL: srv.URL, Timeout: 10 * time.Second})
		require.NoError(t, err)

		ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
		defer cancel()
		start := time.Now()
		_, err = Run(
			ctx,
			connectTo(newConn()),
			cfg,
			zerolog.Nop(),
			report.NotifierReporter{Notifier: n, Logger: zerolog.Nop()},
		)
		require.True(t, errors.Is(err, context.DeadlineExceeded))
		require.Less(t, time.Since(start), 2*time.Second)
		mu.Lock()
		defer mu.Unlock()
		require.LessOrEqual(t, requests, 1)
	})
}

func TestOutcomeJSON(t *testing.T) {
	for _, tc := range []struct {
		desc     string
		outcome  Outcome
		expected string
	}{
		{
			desc:     "success",
			outcome:  Outcome{Status: http.StatusOK},
			expected: `{"status":200,"violations":0}`,
		},
		{
			desc: "violations",
			outcome: Outcome{
				Status:     http.StatusOK,
				Violations: []report.Violation{{Column: "a"}, {Column: "b"}},
			},
			expected: `{"status":200,"violations":2}`,
		},
	} {
		t.Run(tc.desc, func(t *testing.T) {
			b, err := json.Marshal(tc.outcome)
			require.NoError(t, err)
			require.Equal(t, tc.expected, string(b))
		})
	}
}
