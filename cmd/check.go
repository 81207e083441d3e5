/*
Copyright © 2025 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"context"
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/digestwatch/digestwatch/internal/integrations/cache"
	"github.com/digestwatch/digestwatch/internal/runtime"
	"github.com/digestwatch/digestwatch/pkg/model"
)

// define command line arguments
func init() {
	rootCmd.AddCommand(checkCmd)
}

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Check config and dependencies",
	Long:  `Check connectivity to the container runtime, the tracking database and the digest cache`,

	Run: func(cmd *cobra.Command, args []string) {
		ExecuteCheck(cmd.Context(), logger)
	},
}

// execute command
func ExecuteCheck(ctx context.Context, logger *zerolog.Logger) {

	logger.Info().Msg("-----< Digestwatch Check >-----")

	errors := 0

	scanner, err := runtime.NewDockerScanner(config.Docker, config.Registry, logger)
	runtimeUp := err == nil && scanner.IsRuntimeAvailable(ctx)
	if !runtimeUp {
		errors += 1
		logger.Error().Msg("Container runtime not reachable")
	}

	databaseUp := false
	if databaseContext, err := model.NewDatabaseContext(&config.Database, logger); err != nil {
		logger.Error().Err(err).Msg("Tracking database not reachable")
	} else if err := databaseContext.Migrate(); err != nil {
		logger.Error().Err(err).Msg("Tracking database migration failed")
	} else {
		databaseUp = true
	}
	if !databaseUp {
		errors += 1
	}

	cacheUp := true
	if config.Cache.Endpoint != "" {
		cacheUp = false
		if digestCache, err := cache.NewDigestCache(config.Cache.Endpoint, config.Cache.Ttl, logger); err != nil {
			logger.Error().Err(err).Msg("Invalid cache endpoint")
		} else if err := digestCache.Connect(ctx); err != nil {
			logger.Error().Err(err).Msg("Digest cache not reachable")
		} else {
			cacheUp = true
			digestCache.Close()
		}
	}

	logger.Info().
		Bool("runtime", runtimeUp).
		Bool("database", databaseUp).
		Bool("cache", cacheUp).
		Msg("check dependencies")

	if errors > 0 || !cacheUp {
		os.Exit(1)
	}
	logger.Info().Msg("Success")
}
