package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/therminator/therminator-go/pkg/version"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version of therminator",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "therminator %s\n", version.Full())
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
