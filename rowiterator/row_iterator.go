package rowiterator

import (
	"context"

	"github.com/cockroachdb/cockroachdb-parser/pkg/sql/sem/tree"
	"github.com/cockroachdb/errors"
	"github.com/cockroachdb/typecheck/dbconn"
	"github.com/cockroachdb/typecheck/dbtable"
	"github.com/cockroachdb/typecheck/pgconv"
	"github.com/jackc/pgx/v5"
	"github.com/lib/pq/oid"
)

type Iterator interface {
	HasNext(ctx context.Context) bool
	Error() error
	Next(ctx context.Context) tree.Datums
	// Close releases the underlying result set. It is safe to call more than
	// once.
	Close()
}

// Table is the projection of a table that is read back, newest first.
type Table struct {
	dbtable.Name
	ColumnNames   []tree.Name
	OrderByColumn tree.Name
}

type rows interface {
	Err() error
	Next() bool
	Datums() (tree.Datums, error)
	Close()
}

type pgRows struct {
	pgx.Rows
	typOIDs []oid.Oid
}

func newPGRows(r pgx.Rows) *pgRows {
	fds := r.FieldDescriptions()
	typOIDs := make([]oid.Oid, len(fds))
	for i, fd := range fds {
		typOIDs[i] = oid.Oid(fd.DataTypeOID)
	}
	return &pgRows{Rows: r, typOIDs: typOIDs}
}

func (r *pgRows) Datums() (tree.Datums, error) {
	vals, err := r.Values()
	if err != nil {
		return nil, err
	}
	return pgconv.ConvertRowValues(vals, r.typOIDs)
}

type fakeRows struct {
	rows []tree.Datums
	curr tree.Datums
}

func (r *fakeRows) Err() error {
	return nil
}

func (r *fakeRows) Next() bool {
	if len(r.rows) == 0 {
		return false
	}
	r.curr, r.rows = r.rows[0], r.rows[1:]
	return true
}

func (r *fakeRows) Datums() (tree.Datums, error) {
	return r.curr, nil
}

func (r *fakeRows) Close() {}

type recentRowsIterator struct {
	table Table
	rows  rows

	next tree.Datums
	done bool
	err  error
}

// NewRecentRowsIterator runs a single statement reading at most limit rows of
// the table, newest first by the table's order by column, and iterates over
// them in fetch order.
func NewRecentRowsIterator(
	ctx context.Context, conn dbconn.Conn, table Table, limit int,
) (Iterator, error) {
	q, err := NewRecentRowsQuery(table, limit)
	if err != nil {
		return nil, err
	}
	it := &recentRowsIterator{table: table}
	switch conn := conn.(type) {
	case *dbconn.PGConn:
		r, err := conn.Query(ctx, q)
		if err != nil {
			return nil, errors.Wrapf(err, "error getting rows for table %s from %s", table.SafeString(), conn.ID())
		}
		it.rows = newPGRows(r)
	case *dbconn.FakeConn:
		r, err := conn.Rows(table.SafeString(), q)
		if err != nil {
			return nil, errors.Wrapf(err, "error getting rows for table %s from %s", table.SafeString(), conn.ID())
		}
		it.rows = &fakeRows{rows: r}
	default:
		return nil, errors.AssertionFailedf("unhandled conn type: %T", conn)
	}
	return it, nil
}

func (it *recentRowsIterator) HasNext(ctx context.Context) bool {
	if it.err != nil || it.done {
		return false
	}
	if it.next != nil {
		return true
	}
	if !it.rows.Next() {
		if err := it.rows.Err(); err != nil {
			it.err = errors.Wrapf(err, "error reading rows for table %s", it.table.SafeString())
		}
		it.Close()
		return false
	}
	d, err := it.rows.Datums()
	if err != nil {
		it.err = errors.Wrapf(err, "error getting datums for table %s", it.table.SafeString())
		it.Close()
		return false
	}
	if len(d) != len(it.table.ColumnNames) {
		it.err = errors.AssertionFailedf(
			"expected %d columns from table %s, got %d",
			len(it.table.ColumnNames),
			it.table.SafeString(),
			len(d),
		)
		it.Close()
		return false
	}
	it.next = d
	return true
}

func (it *recentRowsIterator) Next(ctx context.Context) tree.Datums {
	if it.HasNext(ctx) {
		ret := it.next
		it.next = nil
		return ret
	}
	return nil
}

func (it *recentRowsIterator) Error() error {
	return it.err
}

func (it *recentRowsIterator) Close() {
	if it.done {
		return
	}
	it.done = true
	it.rows.Close()
}
