package main

import (
	"github.com/spf13/cobra"

	"github.com/therminator/therminator-go/cmd/therminator/commands"
)

var logCmd = &cobra.Command{
	Use:   "log",
	Short: "Inspect event log files",
	Long:  `Read the CBOR event log written when log.event_file is configured.`,
}

var viewOpts commands.ViewOptions

var logViewCmd = &cobra.Command{
	Use:   "view <file.tlog>",
	Short: "View a log file in human-readable format",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		filter, err := commands.BuildFilter(viewOpts)
		if err != nil {
			return err
		}
		return commands.RunView(args[0], filter, cmd.OutOrStdout())
	},
}

var logStatsCmd = &cobra.Command{
	Use:   "stats <file.tlog>",
	Short: "Show statistics about a log file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return commands.RunStats(args[0], cmd.OutOrStdout())
	},
}

func init() {
	f := logViewCmd.Flags()
	f.StringVar(&viewOpts.ConnID, "conn-id", "", "Filter by connection ID")
	f.StringVar(&viewOpts.Layer, "layer", "", "Filter by layer: transport, http, safety")
	f.StringVar(&viewOpts.Category, "category", "", "Filter by category: message, state, error")
	f.StringVar(&viewOpts.Entity, "entity", "", "Filter state changes by entity: connection, channel, rail, watchdog, controller")
	f.IntVar(&viewOpts.MinStatus, "min-status", 0, "Only show responses with at least this status code")
	f.StringVar(&viewOpts.TimeStart, "time-start", "", "Show events at or after this time (RFC3339)")
	f.StringVar(&viewOpts.TimeEnd, "time-end", "", "Show events at or before this time (RFC3339)")

	logCmd.AddCommand(logViewCmd, logStatsCmd)
	rootCmd.AddCommand(logCmd)
}
