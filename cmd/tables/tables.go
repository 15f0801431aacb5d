package tables

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/cockroachdb/typecheck/check"
	"github.com/cockroachdb/typecheck/cmd/internal/cmdutil"
	"github.com/spf13/cobra"
)

func Command() *cobra.Command {
	var tablesLimit int

	cmd := &cobra.Command{
		Use:   "tables",
		Short: "Print the tables that are checked.",
		Long:  `Tables prints each configured table, the expected type of each of its columns and the query run against it.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := cmdutil.TablesConfig()
			if err != nil {
				return err
			}
			tbls, err := check.FilterTables(cmdutil.TableFilter(), cfg.Tables)
			if err != nil {
				return err
			}
			return writeTables(cmd.OutOrStdout(), tbls, tablesLimit)
		},
	}
	cmd.PersistentFlags().IntVar(
		&tablesLimit,
		"limit",
		check.DefaultLimit,
		"number of most recent rows to check in each table",
	)
	cmdutil.RegisterNameFilterFlags(cmd)
	cmdutil.RegisterTablesConfigFlags(cmd)
	return cmd
}

func writeTables(w io.Writer, tbls []check.TableSpec, limit int) error {
	for i, tbl := range tbls {
		q, err := tbl.Query(limit)
		if err != nil {
			return err
		}
		if i > 0 {
			fmt.Fprintln(w)
		}
		fmt.Fprintf(w, "%s (ordered by %s)\n", tbl.SafeString(), tbl.ReferenceDateColumn)
		tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
		for _, col := range tbl.Columns {
			fmt.Fprintf(tw, "  %s\t%s\n", col.Name, col.Type)
		}
		if err := tw.Flush(); err != nil {
			return err
		}
		fmt.Fprintf(w, "  query: %s\n", q)
	}
	return nil
}
