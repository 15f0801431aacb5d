package check

import (
	"context"

	"github.com/cockroachdb/errors"
	"github.com/cockroachdb/typecheck/coltype"
	"github.com/cockroachdb/typecheck/dbconn"
	"github.com/cockroachdb/typecheck/report"
	"github.com/cockroachdb/typecheck/rowiterator"
)

// ScanTable reads the limit most recent rows of a table and returns a
// violation for every value that is not of its column's expected type, in
// fetch order then column order.
func ScanTable(
	ctx context.Context, conn dbconn.Conn, table TableSpec, limit int,
) ([]report.Violation, error) {
	violations, _, err := scanTable(ctx, conn, table, limit)
	return violations, err
}

func scanTable(
	ctx context.Context, conn dbconn.Conn, table TableSpec, limit int,
) ([]report.Violation, int, error) {
	it, err := rowiterator.NewRecentRowsIterator(ctx, conn, table.scanTable(), limit)
	if err != nil {
		return nil, 0, err
	}
	defer it.Close()

	colNames := table.ColumnNames()
	var violations []report.Violation
	numRows := 0
	for it.HasNext(ctx) {
		row := it.Next(ctx)
		numRows++
		for i, col := range table.Columns {
			if coltype.IsValid(row[i], col.Type) {
				continue
			}
			violations = append(violations, report.Violation{
				Name:     table.Name,
				Column:   col.Name,
				Value:    row[i],
				Expected: col.Type,
				Columns:  colNames,
				Row:      row,
			})
		}
	}
	if err := it.Error(); err != nil {
		return nil, numRows, errors.Wrapf(err, "error scanning table %s", table.SafeString())
	}
	return violations, numRows, nil
}
