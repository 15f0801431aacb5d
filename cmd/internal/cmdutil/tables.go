package cmdutil

import (
	"github.com/cockroachdb/typecheck/check"
	"github.com/spf13/cobra"
)

var tablesConfigPath string

func RegisterTablesConfigFlags(cmd *cobra.Command) {
	cmd.PersistentFlags().StringVar(
		&tablesConfigPath,
		"tables-config",
		"",
		"YAML file of tables and expected column types (defaults to the built-in datamart tables)",
	)
}

func TablesConfig() (check.Config, error) {
	if tablesConfigPath == "" {
		return check.DefaultConfig(), nil
	}
	return check.LoadConfig(tablesConfigPath)
}
