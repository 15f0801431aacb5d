package report

import (
	"github.com/cockroachdb/cockroachdb-parser/pkg/sql/sem/tree"
	"github.com/cockroachdb/typecheck/coltype"
	"github.com/cockroachdb/typecheck/dbtable"
)

type ReportableObject interface{}

// Violation is a value that is not of its column's expected type.
type Violation struct {
	dbtable.Name

	Column   tree.Name
	Value    tree.Datum
	Expected coltype.ExpectedType

	// Columns and Row hold the full row the value was read from.
	Columns []tree.Name
	Row     tree.Datums
}

// Success is reported once when a run finds no violations.
type Success struct {
	Tables int
	Rows   int
}

type StatusReport struct {
	Info string
}
