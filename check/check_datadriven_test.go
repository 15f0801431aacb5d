package check

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"testing"

	"github.com/cockroachdb/cockroachdb-parser/pkg/sql/sem/tree"
	"github.com/cockroachdb/datadriven"
	"github.com/cockroachdb/typecheck/report"
	"github.com/cockroachdb/typecheck/testutils"
	"github.com/stretchr/testify/require"
)

func TestDataDriven(t *testing.T) {
	datadriven.Walk(t, "testdata/datadriven/pg", func(t *testing.T, path string) {
		ctx := context.Background()
		dbName := "typecheck_datadriven_" + strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
		conn := testutils.CleanPGDatabase(t, dbName)

		datadriven.RunTest(t, path, func(t *testing.T, d *datadriven.TestData) string {
			switch d.Cmd {
			case "exec":
				return testutils.ExecConnCommand(t, d, conn)
			case "check":
				limit := DefaultLimit
				if d.HasArg("limit") {
					d.ScanArgs(t, "limit", &limit)
				}
				cfg, err := ParseConfig([]byte(d.Input))
				require.NoError(t, err)

				var sb strings.Builder
				for _, tbl := range cfg.Tables {
					violations, err := ScanTable(ctx, conn, tbl, limit)
					if err != nil {
						sb.WriteString(fmt.Sprintf("%s: error: %s\n", tbl.SafeString(), err.Error()))
						continue
					}
					sb.WriteString(fmt.Sprintf("%s: %d violations\n", tbl.SafeString(), len(violations)))
					for _, v := range violations {
						sb.WriteString(formatViolation(v))
					}
				}
				return sb.String()
			default:
				t.Fatalf("unknown command: %s", d.Cmd)
			}
			return ""
		})
	})
}

// formatViolation prints the row's first column as a key. Values of temporal
// columns are omitted as their text depends on the session.
func formatViolation(v report.Violation) string {
	key := fmt.Sprintf("%s=%s", v.Columns[0], report.ReportableVal(v.Row[0]))
	switch v.Value.(type) {
	case *tree.DDate, *tree.DTimestamp, *tree.DTimestampTZ:
		return fmt.Sprintf("%s %s: expected %s\n", key, v.Column, v.Expected)
	}
	return fmt.Sprintf("%s %s=%s: expected %s\n", key, v.Column, report.ReportableVal(v.Value), v.Expected)
}
