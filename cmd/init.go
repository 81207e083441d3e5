/*
Copyright © 2025 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(initCmd)
}

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize the tracking database with a baseline scan",
	Long: `Scans the running containers once and stores the baseline snapshots.
A first run records no change events.`,
	Run: func(cmd *cobra.Command, args []string) {
		databaseContext := newDatabaseContext()
		trk := newTracker(cmd.Context(), databaseContext)

		result := trk.Initialize(cmd.Context())
		exitOnFailure(result.Success, result.Error)

		if RootArgs.JsonOutput {
			printJson(result)
			return
		}
		fmt.Printf("Initialized tracking database with %d containers\n", result.ContainersScanned)
		for _, name := range result.ScannedNames {
			fmt.Printf("  %s\n", name)
		}
	},
}
