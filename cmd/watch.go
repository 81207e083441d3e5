/*
Copyright © 2025 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/digestwatch/digestwatch/internal/routing"
)

var watchInterval time.Duration

func init() {
	rootCmd.AddCommand(watchCmd)
	watchCmd.Flags().DurationVar(&watchInterval, "interval", time.Hour, "Time between scans")
	watchCmd.Flags().BoolVar(&RootArgs.IncludeStopped, "include-stopped", false, "Also scan stopped containers")
}

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Scan periodically until interrupted",
	Long: `Runs a scan immediately and then every interval, recording digest
changes as they happen. Stops on SIGINT or SIGTERM.`,
	Run: func(cmd *cobra.Command, args []string) {
		databaseContext := newDatabaseContext()
		trk := newTracker(cmd.Context(), databaseContext)

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		logger.Info().Dur("interval", watchInterval).Msg("Starting watch")
		routing.NewWatchFlow(ctx, trk, watchInterval, RootArgs.IncludeStopped)
		logger.Info().Msg("Watch stopped")
	},
}
