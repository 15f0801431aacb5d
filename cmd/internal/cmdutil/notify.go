package cmdutil

import (
	"github.com/cockroachdb/typecheck/notify"
	"github.com/spf13/cobra"
)

var notifyCfg = notify.DefaultConfig()

func RegisterNotifyFlags(cmd *cobra.Command) {
	cmd.PersistentFlags().StringVar(
		&notifyCfg.URL,
		"notifier-url",
		notifyCfg.URL,
		"endpoint events are posted to",
	)
	cmd.PersistentFlags().DurationVar(
		&notifyCfg.Timeout,
		"notifier-timeout",
		notifyCfg.Timeout,
		"timeout for each event sent to the notifier",
	)
	cmd.PersistentFlags().Float64Var(
		&notifyCfg.EventsPerSecond,
		"notifier-rate",
		notifyCfg.EventsPerSecond,
		"if set, maximum number of events to send per second",
	)
}

func Notifier() (*notify.HTTPNotifier, error) {
	return notify.NewHTTPNotifier(notifyCfg)
}
