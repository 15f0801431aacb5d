package rowiterator

import (
	"go/constant"

	"github.com/cockroachdb/cockroachdb-parser/pkg/sql/sem/tree"
	"github.com/cockroachdb/errors"
)

// NewRecentRowsSelect builds
//
//	SELECT <columns> FROM <schema>.<table> ORDER BY <order by column> DESC LIMIT <limit>
func NewRecentRowsSelect(table Table, limit int) (*tree.Select, error) {
	if limit <= 0 {
		return nil, errors.Newf("limit must be positive, got %d", limit)
	}
	if len(table.ColumnNames) == 0 {
		return nil, errors.Newf("no columns to select from %s", table.SafeString())
	}
	if table.OrderByColumn == "" {
		return nil, errors.Newf("no order by column for %s", table.SafeString())
	}
	tn := table.MakeTableName()
	selectClause := &tree.SelectClause{
		From: tree.From{
			Tables: tree.TableExprs{&tn},
		},
	}
	for _, col := range table.ColumnNames {
		selectClause.Exprs = append(
			selectClause.Exprs,
			tree.SelectExpr{
				Expr: tree.NewUnresolvedName(string(col)),
			},
		)
	}
	return &tree.Select{
		Select: selectClause,
		OrderBy: tree.OrderBy{
			&tree.Order{
				Expr:      tree.NewUnresolvedName(string(table.OrderByColumn)),
				Direction: tree.Descending,
			},
		},
		Limit: &tree.Limit{Count: tree.NewNumVal(constant.MakeUint64(uint64(limit)), "", false)},
	}, nil
}

// NewRecentRowsQuery returns the SQL text of NewRecentRowsSelect.
func NewRecentRowsQuery(table Table, limit int) (string, error) {
	stmt, err := NewRecentRowsSelect(table, limit)
	if err != nil {
		return "", err
	}
	f := tree.NewFmtCtx(tree.FmtParsableNumerics)
	f.FormatNode(stmt)
	return f.CloseAndGetString(), nil
}
