package tracker

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/samber/lo"

	"github.com/digestwatch/digestwatch/internal/utils"
	"github.com/digestwatch/digestwatch/pkg/model"
)

// RuntimeScanner is the container runtime capability the tracker consumes.
type RuntimeScanner interface {
	ListSnapshots(ctx context.Context, includeStopped bool) ([]model.ContainerSnapshot, error)
	IsRuntimeAvailable(ctx context.Context) bool
	IsContainerRunning(ctx context.Context, name string) bool
	ResolveRemoteDigest(ctx context.Context, imageName, tag string) (string, error)
}

// HistoryStore is the durable snapshot and change-event log.
type HistoryStore interface {
	PutSnapshot(ctx context.Context, snap model.ContainerSnapshot, at time.Time) error
	GetLatestSnapshots(ctx context.Context) ([]model.ContainerSnapshot, error)
	GetHistory(ctx context.Context, containerName string) ([]model.DigestChangeEvent, error)
	GetRecentChanges(ctx context.Context, window time.Duration) ([]model.DigestChangeEvent, error)
}

// DigestCache is an optional TTL cache for resolved remote digests.
type DigestCache interface {
	GetDigest(ctx context.Context, imageRef string) (string, error)
	SetDigest(ctx context.Context, imageRef, digest string) error
}

// Tracker runs the scan, diff, persist and reconcile cycles. Every
// operation is one-shot and synchronous; expected failures never
// escape as errors, they become Success=false or per-item errors on
// the typed results.
type Tracker struct {
	scanner RuntimeScanner
	store   HistoryStore
	cache   DigestCache // nil = disabled
	workers int
	logger  *zerolog.Logger
}

func New(scanner RuntimeScanner, store HistoryStore, logger *zerolog.Logger) *Tracker {
	return &Tracker{
		scanner: scanner,
		store:   store,
		workers: 4,
		logger:  logger,
	}
}

func (tk *Tracker) WithCache(cache DigestCache) *Tracker {
	tk.cache = cache
	return tk
}

func (tk *Tracker) WithWorkers(workers int) *Tracker {
	if workers > 0 {
		tk.workers = workers
	}
	return tk
}

// Initialize performs the first scan and persists the baseline. No
// change events are possible on a first run.
func (tk *Tracker) Initialize(ctx context.Context) model.ScanResult {

	scanTimestamp := time.Now().UTC()
	if !tk.scanner.IsRuntimeAvailable(ctx) {
		return model.ScanResult{Success: false, Error: model.ErrRuntimeUnavailable.Error(), ScanTimestamp: scanTimestamp}
	}

	snapshots, err := tk.scanner.ListSnapshots(ctx, false)
	if err != nil {
		return model.ScanResult{Success: false, Error: err.Error(), ScanTimestamp: scanTimestamp}
	}

	names := []string{}
	for _, snap := range snapshots {
		if err := tk.store.PutSnapshot(ctx, snap, scanTimestamp); err != nil {
			return model.ScanResult{Success: false, Error: err.Error(), ScanTimestamp: scanTimestamp}
		}
		names = append(names, snap.ContainerName)
	}

	tk.logger.Info().Int("containers", len(snapshots)).Msg("initialization complete")
	return model.ScanResult{
		Success:           true,
		ScanId:            uuid.NewString(),
		ScanTimestamp:     scanTimestamp,
		ContainersScanned: len(snapshots),
		NewContainers:     len(snapshots),
		ScannedNames:      names,
		NewNames:          names,
	}
}

// ScanAndUpdate scans the runtime, persists every snapshot and
// classifies each scanned name as new, changed or unchanged relative
// to the pre-scan baseline. Zero containers is a success, not an error.
func (tk *Tracker) ScanAndUpdate(ctx context.Context, includeStopped bool) model.ScanResult {

	scanId := uuid.NewString()
	scanTimestamp := time.Now().UTC()

	snapshots, err := tk.scanner.ListSnapshots(ctx, includeStopped)
	if err != nil {
		tk.logger.Error().Err(err).Str("scan", scanId).Msg("scan failed")
		return model.ScanResult{Success: false, Error: err.Error(), ScanId: scanId, ScanTimestamp: scanTimestamp}
	}
	if len(snapshots) == 0 {
		tk.logger.Warn().Str("scan", scanId).Msg("no containers found during scan")
		return model.ScanResult{Success: true, ScanId: scanId, ScanTimestamp: scanTimestamp}
	}

	// baseline before this scan's writes
	previous, err := tk.store.GetLatestSnapshots(ctx)
	if err != nil {
		return model.ScanResult{Success: false, Error: err.Error(), ScanId: scanId, ScanTimestamp: scanTimestamp}
	}
	previousByName := lo.KeyBy(previous, func(snap model.ContainerSnapshot) string { return snap.ContainerName })

	result := model.ScanResult{
		Success:           true,
		ScanId:            scanId,
		ScanTimestamp:     scanTimestamp,
		ContainersScanned: len(snapshots),
		ScannedNames:      []string{},
		ChangedNames:      []string{},
		NewNames:          []string{},
	}
	for _, snap := range snapshots {
		if err := tk.store.PutSnapshot(ctx, snap, scanTimestamp); err != nil {
			return model.ScanResult{Success: false, Error: err.Error(), ScanId: scanId, ScanTimestamp: scanTimestamp}
		}
		result.ScannedNames = append(result.ScannedNames, snap.ContainerName)

		prior, seen := previousByName[snap.ContainerName]
		switch {
		case !seen:
			result.NewContainers++
			result.NewNames = append(result.NewNames, snap.ContainerName)
			tk.logger.Info().Str("container", snap.ContainerName).Msg("new container detected")
		case prior.Digest != snap.Digest:
			result.ChangesDetected++
			result.ChangedNames = append(result.ChangedNames, snap.ContainerName)
			tk.logger.Info().Str("container", snap.ContainerName).Msg("digest change detected")
		}
	}

	tk.logger.Info().
		Str("scan", scanId).
		Int("containers", result.ContainersScanned).
		Int("changes", result.ChangesDetected).
		Int("new", result.NewContainers).
		Msg("scan complete")
	return result
}

// CompareWithPrevious partitions the tracked containers against the
// change events of the last hoursBack hours. Change evidence beats a
// recent creation time: a container with both is "changed", not "new".
func (tk *Tracker) CompareWithPrevious(ctx context.Context, hoursBack int) model.CompareResult {

	current, err := tk.store.GetLatestSnapshots(ctx)
	if err != nil {
		return model.CompareResult{Success: false, Error: err.Error(), PeriodHours: hoursBack}
	}
	recent, err := tk.store.GetRecentChanges(ctx, time.Duration(hoursBack)*time.Hour)
	if err != nil {
		return model.CompareResult{Success: false, Error: err.Error(), PeriodHours: hoursBack}
	}

	result := model.CompareResult{
		Success:         true,
		PeriodHours:     hoursBack,
		TotalContainers: len(current),
		Unchanged:       []model.ContainerSnapshot{},
		Changed:         []model.ChangedContainer{},
		NewContainers:   []model.ContainerSnapshot{},
		TotalChanges:    len(recent),
	}
	cutoff := time.Now().UTC().Add(-time.Duration(hoursBack) * time.Hour)

	for _, snap := range current {
		changes := lo.Filter(recent, func(event model.DigestChangeEvent, _ int) bool {
			return event.ContainerName == snap.ContainerName
		})
		switch {
		case len(changes) > 0:
			result.Changed = append(result.Changed, model.ChangedContainer{Container: snap, Changes: changes})
		case snap.Created.After(cutoff):
			result.NewContainers = append(result.NewContainers, snap)
		default:
			result.Unchanged = append(result.Unchanged, snap)
		}
	}
	return result
}

// ContainerStatus enriches every latest snapshot with a best-effort
// running probe and its change history stats.
func (tk *Tracker) ContainerStatus(ctx context.Context) model.StatusResult {

	latest, err := tk.store.GetLatestSnapshots(ctx)
	if err != nil {
		return model.StatusResult{Success: false, Error: err.Error()}
	}

	statuses := []model.ContainerStatus{}
	for _, snap := range latest {
		changes, err := tk.store.GetHistory(ctx, snap.ContainerName)
		if err != nil {
			return model.StatusResult{Success: false, Error: err.Error()}
		}
		status := model.ContainerStatus{
			ContainerName: snap.ContainerName,
			ServiceName:   snap.ServiceName,
			Image:         snap.ImageRef(),
			Digest:        snap.Digest,
			DigestShort:   utils.ShortDigest(snap.Digest),
			ProjectName:   snap.ProjectName,
			IsRunning:     tk.scanner.IsContainerRunning(ctx, snap.ContainerName),
			LastSeen:      snap.Created,
			ChangeCount:   len(changes),
		}
		if len(changes) > 0 {
			status.LastChange = &changes[0].ChangeTimestamp
		}
		statuses = append(statuses, status)
	}
	return model.StatusResult{Success: true, Containers: statuses}
}

// ContainerHistory is the detail view for one tracked container name.
// An unknown name is an expected outcome, reported as "not found".
func (tk *Tracker) ContainerHistory(ctx context.Context, containerName string) model.HistoryResult {

	latest, err := tk.store.GetLatestSnapshots(ctx)
	if err != nil {
		return model.HistoryResult{Success: false, Error: err.Error(), ContainerName: containerName}
	}
	current, found := lo.Find(latest, func(snap model.ContainerSnapshot) bool {
		return snap.ContainerName == containerName
	})
	if !found {
		return model.HistoryResult{Success: false, Error: model.ErrNotFound.Error(), ContainerName: containerName}
	}

	changes, err := tk.store.GetHistory(ctx, containerName)
	if err != nil {
		return model.HistoryResult{Success: false, Error: err.Error(), ContainerName: containerName}
	}
	return model.HistoryResult{
		Success:       true,
		ContainerName: containerName,
		Current:       &current,
		IsRunning:     tk.scanner.IsContainerRunning(ctx, containerName),
		Changes:       changes,
		TotalChanges:  len(changes),
	}
}

// CheckForUpdates reconciles every latest snapshot against the remote
// registry. Lookups run on a bounded worker pool; one unreachable
// registry never aborts the batch, it becomes a per-item error.
func (tk *Tracker) CheckForUpdates(ctx context.Context) model.UpdateCheckResult {

	checkTimestamp := time.Now().UTC()
	latest, err := tk.store.GetLatestSnapshots(ctx)
	if err != nil {
		return model.UpdateCheckResult{Success: false, Error: err.Error(), CheckTimestamp: checkTimestamp}
	}

	result := model.UpdateCheckResult{
		Success:         true,
		CheckTimestamp:  checkTimestamp,
		TotalContainers: len(latest),
		Containers:      []model.ContainerUpdate{},
		Errors:          []string{},
	}
	if len(latest) == 0 {
		return result
	}

	updates := make([]model.ContainerUpdate, len(latest))
	jobs := make(chan int)
	var wg sync.WaitGroup
	for w := 0; w < min(tk.workers, len(latest)); w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for k := range jobs {
				updates[k] = tk.checkContainerUpdate(ctx, latest[k])
			}
		}()
	}
	for k := range latest {
		jobs <- k
	}
	close(jobs)
	wg.Wait()

	for _, update := range updates {
		result.Containers = append(result.Containers, update)
		if update.UpdateAvailable {
			result.UpdatesAvailable++
			tk.logger.Info().Str("container", update.ContainerName).Msg("update available")
		}
		if update.Error != "" {
			result.Errors = append(result.Errors, update.ContainerName+": "+update.Error)
		}
	}

	tk.logger.Info().
		Int("updates", result.UpdatesAvailable).
		Int("containers", result.TotalContainers).
		Msg("update check complete")
	return result
}

func (tk *Tracker) checkContainerUpdate(ctx context.Context, snap model.ContainerSnapshot) model.ContainerUpdate {

	update := model.ContainerUpdate{
		ContainerName: snap.ContainerName,
		Image:         snap.ImageRef(),
		CurrentDigest: snap.Digest,
	}

	remoteDigest, cached := tk.cachedDigest(ctx, snap.ImageRef())
	if !cached {
		var err error
		remoteDigest, err = tk.scanner.ResolveRemoteDigest(ctx, snap.ImageName, snap.ImageTag)
		if err != nil {
			update.Error = err.Error()
			return update
		}
		if remoteDigest != "" && tk.cache != nil {
			if err := tk.cache.SetDigest(ctx, snap.ImageRef(), remoteDigest); err != nil {
				tk.logger.Debug().Err(err).Str("image", snap.ImageRef()).Msg("digest cache write failed")
			}
		}
	}

	if remoteDigest == "" {
		// unresolved is a conclusive "no update", with an explanation
		update.Error = "could not fetch remote digest"
		return update
	}
	update.RemoteDigest = remoteDigest
	update.UpdateAvailable = remoteDigest != snap.Digest
	return update
}

func (tk *Tracker) cachedDigest(ctx context.Context, imageRef string) (string, bool) {
	if tk.cache == nil {
		return "", false
	}
	digest, err := tk.cache.GetDigest(ctx, imageRef)
	if err != nil || digest == "" {
		return "", false
	}
	return digest, true
}

// GenerateReport aggregates status, 7-day history and project grouping
// into one summary. Read-side only, no writes.
func (tk *Tracker) GenerateReport(ctx context.Context) model.Report {

	generatedAt := time.Now().UTC()
	status := tk.ContainerStatus(ctx)
	if !status.Success {
		return model.Report{Success: false, Error: status.Error, GeneratedAt: generatedAt}
	}
	recent, err := tk.store.GetRecentChanges(ctx, 7*24*time.Hour)
	if err != nil {
		return model.Report{Success: false, Error: err.Error(), GeneratedAt: generatedAt}
	}

	changesByDay := lo.GroupBy(recent, func(event model.DigestChangeEvent) string {
		return event.ChangeTimestamp.Format("2006-01-02")
	})
	projects := lo.Uniq(lo.FilterMap(status.Containers, func(item model.ContainerStatus, _ int) (string, bool) {
		return lo.FromPtr(item.ProjectName), item.ProjectName != nil && *item.ProjectName != ""
	}))
	sort.Strings(projects)

	running := lo.CountBy(status.Containers, func(item model.ContainerStatus) bool { return item.IsRunning })

	return model.Report{
		Success:     true,
		GeneratedAt: generatedAt,
		Summary: model.ReportSummary{
			TotalContainers:       len(status.Containers),
			RunningContainers:     running,
			StoppedContainers:     len(status.Containers) - running,
			ContainersWithChanges: lo.CountBy(status.Containers, func(item model.ContainerStatus) bool { return item.ChangeCount > 0 }),
			TotalProjects:         len(projects),
			RecentChanges7days:    len(recent),
		},
		Containers:    status.Containers,
		RecentChanges: recent,
		ChangesByDay:  changesByDay,
		Projects:      projects,
	}
}
