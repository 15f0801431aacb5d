package report

import (
	"context"
	"fmt"

	"github.com/cockroachdb/cockroachdb-parser/pkg/sql/sem/tree"
	"github.com/rs/zerolog"
)

type Reporter interface {
	// Report handles obj. ctx bounds any I/O the reporter does.
	Report(ctx context.Context, obj ReportableObject)
	Close()
}

type CombinedReporter struct {
	Reporters []Reporter
}

func (c CombinedReporter) Report(ctx context.Context, obj ReportableObject) {
	for _, r := range c.Reporters {
		r.Report(ctx, obj)
	}
}

func (c CombinedReporter) Close() {
	for _, r := range c.Reporters {
		r.Close()
	}
}

// LogReporter reports to `zerolog`.
type LogReporter struct {
	zerolog.Logger
}

func (l LogReporter) Report(_ context.Context, obj ReportableObject) {
	switch obj := obj.(type) {
	case Violation:
		row := zerolog.Dict()
		for i, col := range obj.Columns {
			if i < len(obj.Row) {
				row = row.Str(string(col), ReportableVal(obj.Row[i]))
			}
		}
		l.Error().
			Str("table_schema", string(obj.Schema)).
			Str("table_name", string(obj.Table)).
			Str("column", string(obj.Column)).
			Str("value", ReportableVal(obj.Value)).
			Str("value_type", DatumTypeName(obj.Value)).
			Str("expected_type", obj.Expected.String()).
			Dict("row", row).
			Msgf("validation error in table %s, column %s", obj.SafeString(), obj.Column)
	case Success:
		l.Info().
			Int("tables", obj.Tables).
			Int("rows", obj.Rows).
			Msgf("all values match their expected types")
	case StatusReport:
		l.Info().Msg(obj.Info)
	default:
		l.Error().
			Str("type", fmt.Sprintf("%T", obj)).
			Msgf("unknown object type")
	}
}

func (l LogReporter) Close() {
}

// ReportableVal formats a datum for logs.
func ReportableVal(d tree.Datum) string {
	if d == nil {
		return "<nil>"
	}
	f := tree.NewFmtCtx(tree.FmtBareStrings | tree.FmtParsableNumerics)
	f.FormatNode(d)
	return f.CloseAndGetString()
}

// DatumTypeName returns the name of the SQL type of a datum.
func DatumTypeName(d tree.Datum) string {
	if d == nil {
		return "<nil>"
	}
	if w, ok := d.(*tree.DOidWrapper); ok {
		return fmt.Sprintf("oid %d", w.Oid)
	}
	return d.ResolvedType().SQLString()
}
