package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/cockroachdb/typecheck/cmd/run"
	"github.com/cockroachdb/typecheck/cmd/tables"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "typecheck",
	Short: "Checks datamart columns hold values of their expected types",
	Long: `typecheck reads the most recent rows of datamart tables, checks each value against the SQL type its column
is expected to hold and notifies an events endpoint of the result.`,
	SilenceUsage: true,
}

func Execute() {
	// Interrupts cancel the command's context so continuous runs stop between runs.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.AddCommand(run.Command())
	rootCmd.AddCommand(tables.Command())
}
