/*
Copyright © 2025 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(scanCmd)
	scanCmd.Flags().BoolVar(&RootArgs.IncludeStopped, "include-stopped", false, "Also scan stopped containers")
}

var scanCmd = &cobra.Command{
	Use:   "scan",
	Short: "Scan containers and record digest changes",
	Long: `Scans the containers, appends a snapshot per container to the history
and records a change event for every digest transition.`,
	Run: func(cmd *cobra.Command, args []string) {
		databaseContext := newDatabaseContext()
		trk := newTracker(cmd.Context(), databaseContext)

		result := trk.ScanAndUpdate(cmd.Context(), RootArgs.IncludeStopped)
		exitOnFailure(result.Success, result.Error)

		if RootArgs.JsonOutput {
			printJson(result)
			return
		}
		printScanResult(result)
	},
}
