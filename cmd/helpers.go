/*
Copyright © 2025 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sort"

	"github.com/dustin/go-humanize"

	"github.com/digestwatch/digestwatch/internal/integrations/cache"
	"github.com/digestwatch/digestwatch/internal/integrations/history"
	"github.com/digestwatch/digestwatch/internal/runtime"
	"github.com/digestwatch/digestwatch/internal/utils"
	"github.com/digestwatch/digestwatch/pkg/model"
	"github.com/digestwatch/digestwatch/pkg/tracker"
)

func newDatabaseContext() *model.DatabaseContext {
	databaseContext, err := model.NewDatabaseContext(&config.Database, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to open tracking database")
	}
	if err := databaseContext.Migrate(); err != nil {
		logger.Fatal().Err(err).Msg("Failed to migrate tracking database")
	}
	return databaseContext
}

func newTracker(ctx context.Context, databaseContext *model.DatabaseContext) *tracker.Tracker {
	scanner, err := runtime.NewDockerScanner(config.Docker, config.Registry, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to create Docker client")
	}
	store := history.NewStore(databaseContext, logger)
	trk := tracker.New(scanner, store, logger).WithWorkers(config.Registry.Workers)

	if config.Cache.Endpoint != "" {
		digestCache, err := cache.NewDigestCache(config.Cache.Endpoint, config.Cache.Ttl, logger)
		if err != nil {
			logger.Fatal().Err(err).Msg("Invalid cache endpoint")
		}
		if err := digestCache.Connect(ctx); err != nil {
			logger.Warn().Err(err).Msg("Digest cache unreachable, continuing without cache")
		} else {
			trk = trk.WithCache(digestCache)
		}
	}
	return trk
}

func printJson(v any) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to encode result")
	}
	fmt.Println(string(data))
}

func orDash(v *string) string {
	if v == nil || *v == "" {
		return "-"
	}
	return *v
}

func runState(isRunning bool) string {
	if isRunning {
		return "running"
	}
	return "stopped"
}

func printStatusTable(result model.StatusResult) {
	fmt.Printf("%-24s %-16s %-32s %-20s %-8s %-8s %s\n",
		"CONTAINER", "PROJECT", "IMAGE", "DIGEST", "STATE", "CHANGES", "LAST SEEN")
	for _, c := range result.Containers {
		fmt.Printf("%-24s %-16s %-32s %-20s %-8s %-8d %s\n",
			c.ContainerName, orDash(c.ProjectName), c.Image, c.DigestShort,
			runState(c.IsRunning), c.ChangeCount, humanize.Time(c.LastSeen))
	}
	fmt.Printf("\n%d containers tracked\n", len(result.Containers))
}

func printScanResult(result model.ScanResult) {
	fmt.Printf("Scanned %d containers: %d changed, %d new\n",
		result.ContainersScanned, result.ChangesDetected, result.NewContainers)
	for _, name := range result.ChangedNames {
		fmt.Printf("  changed: %s\n", name)
	}
	for _, name := range result.NewNames {
		fmt.Printf("  new:     %s\n", name)
	}
}

func printCompareResult(result model.CompareResult) {
	fmt.Printf("Comparing against the last %d hours (%d containers)\n\n",
		result.PeriodHours, result.TotalContainers)
	for _, changed := range result.Changed {
		fmt.Printf("changed  %s\n", changed.Container.ContainerName)
		for _, ev := range changed.Changes {
			fmt.Printf("         %s -> %s (%s)\n",
				shortOrDash(ev.OldDigest), shortOrDash(ev.NewDigest), humanize.Time(ev.ChangeTimestamp))
		}
	}
	for _, snap := range result.NewContainers {
		fmt.Printf("new      %s (%s)\n", snap.ContainerName, snap.ImageRef())
	}
	for _, snap := range result.Unchanged {
		fmt.Printf("ok       %s\n", snap.ContainerName)
	}
	fmt.Printf("\n%d changes in period\n", result.TotalChanges)
}

func printUpdateResult(result model.UpdateCheckResult) {
	fmt.Printf("%-24s %-32s %-20s %-20s %s\n",
		"CONTAINER", "IMAGE", "CURRENT", "REMOTE", "UPDATE")
	for _, c := range result.Containers {
		state := "up to date"
		if c.Error != "" {
			state = "error: " + c.Error
		} else if c.UpdateAvailable {
			state = "available"
		}
		fmt.Printf("%-24s %-32s %-20s %-20s %s\n",
			c.ContainerName, c.Image, shortOrDash(c.CurrentDigest), shortOrDash(c.RemoteDigest), state)
	}
	fmt.Printf("\n%d of %d containers have updates available\n",
		result.UpdatesAvailable, result.TotalContainers)
}

func printHistoryResult(result model.HistoryResult) {
	fmt.Printf("History for %s (%s)\n", result.ContainerName, runState(result.IsRunning))
	if result.Current != nil {
		fmt.Printf("  image:  %s\n  digest: %s\n\n", result.Current.ImageRef(), result.Current.Digest)
	}
	if result.TotalChanges == 0 {
		fmt.Println("  no digest changes recorded")
		return
	}
	for _, ev := range result.Changes {
		fmt.Printf("  %s  %s -> %s\n",
			ev.ChangeTimestamp.Format("2006-01-02 15:04:05"),
			shortOrDash(ev.OldDigest), shortOrDash(ev.NewDigest))
	}
}

func printReport(report model.Report) {
	s := report.Summary
	fmt.Printf("Digestwatch report, generated %s\n\n", report.GeneratedAt.Format("2006-01-02 15:04:05"))
	fmt.Printf("  containers: %d (%d running, %d stopped)\n", s.TotalContainers, s.RunningContainers, s.StoppedContainers)
	fmt.Printf("  projects:   %d\n", s.TotalProjects)
	fmt.Printf("  changed:    %d containers, %d changes in the last 7 days\n\n", s.ContainersWithChanges, s.RecentChanges7days)

	if len(report.ChangesByDay) > 0 {
		days := make([]string, 0, len(report.ChangesByDay))
		for day := range report.ChangesByDay {
			days = append(days, day)
		}
		sort.Sort(sort.Reverse(sort.StringSlice(days)))
		for _, day := range days {
			fmt.Printf("  %s\n", day)
			for _, ev := range report.ChangesByDay[day] {
				fmt.Printf("    %-24s %s -> %s\n",
					ev.ContainerName, shortOrDash(ev.OldDigest), shortOrDash(ev.NewDigest))
			}
		}
		fmt.Println()
	}
	printStatusTable(model.StatusResult{Success: true, Containers: report.Containers})
}

func shortOrDash(digest string) string {
	if digest == "" {
		return "-"
	}
	return utils.ShortDigest(digest)
}

func exitOnFailure(success bool, errMsg string) {
	if !success {
		logger.Error().Msg(errMsg)
		os.Exit(1)
	}
}
