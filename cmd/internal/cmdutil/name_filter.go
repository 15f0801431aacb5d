package cmdutil

import (
	"github.com/cockroachdb/typecheck/check"
	"github.com/spf13/cobra"
)

var tableFilter = check.DefaultFilterConfig()

func RegisterNameFilterFlags(cmd *cobra.Command) {
	cmd.PersistentFlags().StringVar(
		&tableFilter.TableFilter,
		"table-filter",
		tableFilter.TableFilter,
		"POSIX regexp filter for tables to check",
	)
	cmd.PersistentFlags().StringVar(
		&tableFilter.SchemaFilter,
		"schema-filter",
		tableFilter.SchemaFilter,
		"POSIX regexp filter for schemas to check",
	)
}

func TableFilter() check.FilterConfig {
	return tableFilter
}
