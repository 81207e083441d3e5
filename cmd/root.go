/*
Copyright © 2025 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"context"
	"io"
	"os"
	"strings"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/digestwatch/digestwatch/internal/logging"
	"github.com/digestwatch/digestwatch/internal/utils"
	"github.com/digestwatch/digestwatch/pkg/model"
)

// command line arguments of root command
type RootArgsType = struct {
	LogLevel       string
	IncludeStopped bool
	JsonOutput     bool
}

var EnvOrDefault = utils.EnvOrDefaultFunc("DIGESTWATCH", ".env")
var RootArgs = RootArgsType{}
var logger *zerolog.Logger

var cfgFile string
var config *model.Config = &model.Config{}

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "digestwatch",
	Short: "Container image digest tracker",
	Long: `Tracks the image digests of running containers over time, records
every digest transition in an append-only history and reconciles the
stored digests against the remote registries.`,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		logger = logging.NewLogger(RootArgs.LogLevel)
		ctx := context.WithValue(cmd.Context(), "config", config)
		cmd.SetContext(ctx)
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	rootCmd.CompletionOptions.DisableDefaultCmd = true

	logger = logging.NewLogger("info")

	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

func initConfig() {
	viper.AutomaticEnv() // read in environment variables that match

	cfgFilePath := cfgFile
	if cfgFilePath == "" {
		cfgFilePath = "./.digestwatch.yaml"
	}
	viper.SetConfigType("yaml")

	// Open config file for ENV variables substitution
	file, err := os.Open(cfgFilePath)
	if err != nil {
		if cfgFile != "" {
			logger.Fatal().Err(err).Str("path", cfgFilePath).Msg("No config file found")
		}
		// no config file, run on defaults
		applyDefaults(config)
		return
	}
	defer file.Close()
	content, err := io.ReadAll(file)
	if err != nil {
		logger.Fatal().Err(err).Msg("Error reading config file")
	}
	expandedContent := os.ExpandEnv(string(content))
	if err := viper.ReadConfig(strings.NewReader(expandedContent)); err != nil {
		logger.Fatal().Err(err).Str("path", cfgFilePath).Msg("Error loading config")
	}
	logger.Debug().Str("path", cfgFilePath).Msg("Using config file")

	if err := viper.Unmarshal(&config); err != nil {
		logger.Fatal().Err(err).Msg("Unable to decode config into struct")
	}
	applyDefaults(config)
}

func applyDefaults(config *model.Config) {
	if config.Database.Dsn == "" {
		config.Database.Dsn = EnvOrDefault("database_dsn", "digestwatch.db")
	}
	if config.Registry.Workers <= 0 {
		config.Registry.Workers = 4
	}
	if config.Server.Port == 0 {
		config.Server.Port = 8080
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	// accept snake_case spellings of flag names
	rootCmd.PersistentFlags().SetNormalizeFunc(func(f *pflag.FlagSet, name string) pflag.NormalizedName {
		return pflag.NormalizedName(strings.ReplaceAll(name, "_", "-"))
	})
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./.digestwatch.yaml)")
	rootCmd.PersistentFlags().StringVar(&RootArgs.LogLevel, "loglevel", EnvOrDefault("loglevel", "info"), "Loglevel [debug,info,warn,error]")
	rootCmd.PersistentFlags().BoolVar(&RootArgs.JsonOutput, "json", false, "Print results as JSON")
}
