package dbconn

import (
	"context"

	"github.com/cockroachdb/cockroachdb-parser/pkg/sql/sem/tree"
)

// FakeConn serves canned rows per table, keyed by "schema.table". It records
// every statement it is asked to run.
type FakeConn struct {
	id ID

	rows    map[string][]tree.Datums
	errs    map[string]error
	queries []string
	closed  bool
}

var _ Conn = (*FakeConn)(nil)

func NewFakeConn(id ID) *FakeConn {
	return &FakeConn{
		id:   id,
		rows: make(map[string][]tree.Datums),
		errs: make(map[string]error),
	}
}

// WithRows sets the rows returned when the given table is scanned.
func (f *FakeConn) WithRows(table string, rows ...tree.Datums) *FakeConn {
	f.rows[table] = rows
	return f
}

// WithError makes any scan of the given table fail with err.
func (f *FakeConn) WithError(table string, err error) *FakeConn {
	f.errs[table] = err
	return f
}

// Rows returns the canned rows for a table, recording the statement.
func (f *FakeConn) Rows(table string, stmt string) ([]tree.Datums, error) {
	f.queries = append(f.queries, stmt)
	if err := f.errs[table]; err != nil {
		return nil, err
	}
	return f.rows[table], nil
}

func (f *FakeConn) Queries() []string {
	return f.queries
}

func (f *FakeConn) Closed() bool {
	return f.closed
}

func (f *FakeConn) ID() ID {
	return f.id
}

func (f *FakeConn) Close(ctx context.Context) error {
	f.closed = true
	return nil
}

func (f *FakeConn) Dialect() string {
	return "fake"
}
