/*
Copyright © 2025 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(updateCmd)
}

var updateCmd = &cobra.Command{
	Use:   "check-updates",
	Short: "Check the remote registries for newer image digests",
	Long: `Resolves the remote digest of every tracked image and compares it with
the stored digest. Per-container lookup failures are reported inline and
never abort the check.`,
	Run: func(cmd *cobra.Command, args []string) {
		databaseContext := newDatabaseContext()
		trk := newTracker(cmd.Context(), databaseContext)

		result := trk.CheckForUpdates(cmd.Context())
		exitOnFailure(result.Success, result.Error)

		if RootArgs.JsonOutput {
			printJson(result)
			return
		}
		printUpdateResult(result)
	},
}
