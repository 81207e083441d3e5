/*
Copyright © 2025 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(historyCmd)
}

var historyCmd = &cobra.Command{
	Use:   "history <container>",
	Short: "Show the digest change history of one container",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		databaseContext := newDatabaseContext()
		trk := newTracker(cmd.Context(), databaseContext)

		result := trk.ContainerHistory(cmd.Context(), args[0])
		exitOnFailure(result.Success, "Container '"+args[0]+"' "+result.Error)

		if RootArgs.JsonOutput {
			printJson(result)
			return
		}
		printHistoryResult(result)
	},
}
