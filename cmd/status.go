/*
Copyright © 2025 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(statusCmd)
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the latest known state of all tracked containers",
	Run: func(cmd *cobra.Command, args []string) {
		databaseContext := newDatabaseContext()
		trk := newTracker(cmd.Context(), databaseContext)

		result := trk.ContainerStatus(cmd.Context())
		exitOnFailure(result.Success, result.Error)

		if RootArgs.JsonOutput {
			printJson(result)
			return
		}
		printStatusTable(result)
	},
}
