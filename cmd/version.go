/*
Copyright © 2025 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"fmt"

	"github.com/digestwatch/digestwatch/version"
	"github.com/spf13/cobra"
)

// versionCmd represents the version command
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Digestwatch version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("Digestwatch version %s (%s, %s)\n", version.Version, version.BuildTimestamp, version.GoVersion)
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
