package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/therminator/therminator-go/internal/config"
)

var rootCmd = &cobra.Command{
	Use:   "therminator",
	Short: "Therminator relay controller",
	Long: `Therminator drives a four channel relay board behind a power interlock
and exposes it through a small authenticated HTTP API.`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringP("config", "c", config.DefaultPath, "Configuration file")
}
