/*
Copyright © 2025 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(reportCmd)
}

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Generate a full tracking report",
	Long: `Combines the status of all tracked containers with the digest changes
of the last 7 days, grouped by day and by project.`,
	Run: func(cmd *cobra.Command, args []string) {
		databaseContext := newDatabaseContext()
		trk := newTracker(cmd.Context(), databaseContext)

		report := trk.GenerateReport(cmd.Context())
		exitOnFailure(report.Success, report.Error)

		if RootArgs.JsonOutput {
			printJson(report)
			return
		}
		printReport(report)
	},
}
