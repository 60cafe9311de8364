// Package main provides csctl, the operator CLI for the success API database.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var version = "dev"

func main() {
	rootCmd := &cobra.Command{
		Use:   "csctl",
		Short: "Operator tooling for the customer success engine",
		Long: `csctl works directly against the primary database using the service
configuration. It imports stage weights, recomputes health scores from the
data warehouse and triggers integration syncs.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.AddCommand(
		newWeightsCmd(),
		newHealthCmd(),
		newSyncCmd(),
	)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
