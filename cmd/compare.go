/*
Copyright © 2025 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"github.com/spf13/cobra"
)

var compareHours int

func init() {
	rootCmd.AddCommand(compareCmd)
	compareCmd.Flags().IntVar(&compareHours, "hours", 24, "Comparison window in hours")
}

var compareCmd = &cobra.Command{
	Use:   "compare",
	Short: "Compare the current state with a previous point in time",
	Long: `Partitions the tracked containers into changed, new and unchanged
relative to the given window. Containers with recorded digest changes in
the window count as changed even when they also appeared recently.`,
	Run: func(cmd *cobra.Command, args []string) {
		databaseContext := newDatabaseContext()
		trk := newTracker(cmd.Context(), databaseContext)

		result := trk.CompareWithPrevious(cmd.Context(), compareHours)
		exitOnFailure(result.Success, result.Error)

		if RootArgs.JsonOutput {
			printJson(result)
			return
		}
		printCompareResult(result)
	},
}
