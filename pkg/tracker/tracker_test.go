package tracker

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/digestwatch/digestwatch/internal/integrations/history"
	"github.com/digestwatch/digestwatch/internal/logging"
	"github.com/digestwatch/digestwatch/pkg/model"
)

var logger = logging.NewLogger("error")

// fakeScanner is an in-memory RuntimeScanner.
type fakeScanner struct {
	mu           sync.Mutex
	available    bool
	snapshots    []model.ContainerSnapshot
	listErr      error
	running      map[string]bool
	remote       map[string]string // image ref -> digest
	remoteErrs   map[string]error
	resolveCalls int
}

func (fs *fakeScanner) ListSnapshots(ctx context.Context, includeStopped bool) ([]model.ContainerSnapshot, error) {
	if fs.listErr != nil {
		return nil, fs.listErr
	}
	return append([]model.ContainerSnapshot{}, fs.snapshots...), nil
}

func (fs *fakeScanner) IsRuntimeAvailable(ctx context.Context) bool {
	return fs.available
}

func (fs *fakeScanner) IsContainerRunning(ctx context.Context, name string) bool {
	return fs.running[name]
}

func (fs *fakeScanner) ResolveRemoteDigest(ctx context.Context, imageName, tag string) (string, error) {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	fs.resolveCalls++
	ref := imageName + ":" + tag
	if err, ok := fs.remoteErrs[ref]; ok {
		return "", err
	}
	return fs.remote[ref], nil
}

// mapCache is an in-memory DigestCache.
type mapCache struct {
	mu      sync.Mutex
	entries map[string]string
}

func (mc *mapCache) GetDigest(ctx context.Context, imageRef string) (string, error) {
	mc.mu.Lock()
	defer mc.mu.Unlock()
	digest, ok := mc.entries[imageRef]
	if !ok {
		return "", errors.New("key not found")
	}
	return digest, nil
}

func (mc *mapCache) SetDigest(ctx context.Context, imageRef, digest string) error {
	mc.mu.Lock()
	defer mc.mu.Unlock()
	if mc.entries == nil {
		mc.entries = map[string]string{}
	}
	mc.entries[imageRef] = digest
	return nil
}

func testTracker(t *testing.T, fs *fakeScanner) (*Tracker, *history.Store) {
	t.Helper()
	store := history.NewStore(model.NewTestDatabaseContext(t), logger)
	return New(fs, store, logger), store
}

func namedSnapshot(name, image, tag, digest string, created time.Time) model.ContainerSnapshot {
	snap := model.NewTestSnapshot(name, digest)
	snap.ImageName = image
	snap.ImageTag = tag
	snap.Created = created
	return snap
}

func TestInitializeRuntimeUnavailable(t *testing.T) {

	tk, _ := testTracker(t, &fakeScanner{available: false})
	result := tk.Initialize(context.Background())
	assert.False(t, result.Success)
	assert.Equal(t, model.ErrRuntimeUnavailable.Error(), result.Error)
}

func TestInitialize(t *testing.T) {

	fs := &fakeScanner{
		available: true,
		snapshots: []model.ContainerSnapshot{
			model.NewTestSnapshot("dockge", "sha256:aaa"),
			model.NewTestSnapshot("db", "sha256:bbb"),
		},
	}
	tk, store := testTracker(t, fs)

	result := tk.Initialize(context.Background())
	require.True(t, result.Success, result.Error)
	assert.Equal(t, 2, result.ContainersScanned)
	assert.Equal(t, 2, result.NewContainers)
	assert.ElementsMatch(t, []string{"dockge", "db"}, result.NewNames)

	// first run never produces change events
	for _, name := range []string{"dockge", "db"} {
		events, err := store.GetHistory(context.Background(), name)
		require.NoError(t, err)
		assert.Empty(t, events)
	}
}

func TestScanAndUpdateClassification(t *testing.T) {

	fs := &fakeScanner{available: true}
	tk, store := testTracker(t, fs)
	ctx := context.Background()

	// baseline
	require.NoError(t, store.PutSnapshot(ctx, model.NewTestSnapshot("dockge", "sha256:aaa"), time.Now().UTC().Add(-time.Hour)))

	fs.snapshots = []model.ContainerSnapshot{
		model.NewTestSnapshot("dockge", "sha256:bbb"), // changed
		model.NewTestSnapshot("fresh", "sha256:ccc"),  // never seen before
	}
	result := tk.ScanAndUpdate(ctx, true)
	require.True(t, result.Success, result.Error)
	assert.Equal(t, 2, result.ContainersScanned)
	assert.Equal(t, 1, result.ChangesDetected)
	assert.Equal(t, []string{"dockge"}, result.ChangedNames)
	assert.Equal(t, 1, result.NewContainers)
	// a never-before-seen name is new, not changed, whatever its digest
	assert.Equal(t, []string{"fresh"}, result.NewNames)
	assert.NotEmpty(t, result.ScanId)

	events, err := store.GetHistory(ctx, "dockge")
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, "sha256:aaa", events[0].OldDigest)
	assert.Equal(t, "sha256:bbb", events[0].NewDigest)
}

func TestScanAndUpdateIdempotent(t *testing.T) {

	fs := &fakeScanner{
		available: true,
		snapshots: []model.ContainerSnapshot{model.NewTestSnapshot("dockge", "sha256:aaa")},
	}
	tk, store := testTracker(t, fs)
	ctx := context.Background()

	first := tk.ScanAndUpdate(ctx, true)
	require.True(t, first.Success)
	second := tk.ScanAndUpdate(ctx, true)
	require.True(t, second.Success)
	assert.Equal(t, 0, second.ChangesDetected)
	assert.Equal(t, 0, second.NewContainers)

	events, err := store.GetHistory(ctx, "dockge")
	require.NoError(t, err)
	assert.Empty(t, events)
}

func TestScanAndUpdateNoContainers(t *testing.T) {

	tk, _ := testTracker(t, &fakeScanner{available: true})
	result := tk.ScanAndUpdate(context.Background(), true)
	assert.True(t, result.Success)
	assert.Equal(t, 0, result.ContainersScanned)
	assert.Equal(t, 0, result.ChangesDetected)
	assert.Equal(t, 0, result.NewContainers)
}

func TestScanAndUpdateRuntimeDown(t *testing.T) {

	tk, _ := testTracker(t, &fakeScanner{listErr: model.ErrRuntimeUnavailable})
	result := tk.ScanAndUpdate(context.Background(), true)
	assert.False(t, result.Success)
	assert.NotEmpty(t, result.Error)
}

func TestCompareWithPrevious(t *testing.T) {

	fs := &fakeScanner{available: true}
	tk, store := testTracker(t, fs)
	ctx := context.Background()
	now := time.Now().UTC()

	// "steady": one old snapshot, no events
	require.NoError(t, store.PutSnapshot(ctx, namedSnapshot("steady", "nginx", "latest", "sha256:aaa", now.Add(-90*24*time.Hour)), now.Add(-time.Hour)))
	// "flappy": digest transition inside the window, and recently created
	require.NoError(t, store.PutSnapshot(ctx, namedSnapshot("flappy", "redis", "7", "sha256:bbb", now.Add(-2*time.Hour)), now.Add(-3*time.Hour)))
	require.NoError(t, store.PutSnapshot(ctx, namedSnapshot("flappy", "redis", "7", "sha256:ccc", now.Add(-2*time.Hour)), now.Add(-time.Hour)))
	// "newborn": no events, created inside the window
	require.NoError(t, store.PutSnapshot(ctx, namedSnapshot("newborn", "caddy", "2", "sha256:ddd", now.Add(-time.Hour)), now.Add(-30*time.Minute)))

	result := tk.CompareWithPrevious(ctx, 24)
	require.True(t, result.Success, result.Error)
	assert.Equal(t, 3, result.TotalContainers)
	assert.Equal(t, 1, result.TotalChanges)

	require.Len(t, result.Changed, 1)
	// change evidence wins over the recent creation time
	assert.Equal(t, "flappy", result.Changed[0].Container.ContainerName)
	require.Len(t, result.Changed[0].Changes, 1)

	require.Len(t, result.NewContainers, 1)
	assert.Equal(t, "newborn", result.NewContainers[0].ContainerName)

	require.Len(t, result.Unchanged, 1)
	assert.Equal(t, "steady", result.Unchanged[0].ContainerName)
}

func TestContainerStatus(t *testing.T) {

	fs := &fakeScanner{available: true, running: map[string]bool{"dockge": true}}
	tk, store := testTracker(t, fs)
	ctx := context.Background()
	now := time.Now().UTC()

	require.NoError(t, store.PutSnapshot(ctx, model.NewTestSnapshot("dockge", "sha256:aaa"), now.Add(-2*time.Hour)))
	require.NoError(t, store.PutSnapshot(ctx, model.NewTestSnapshot("dockge", "sha256:bbb"), now.Add(-time.Hour)))
	require.NoError(t, store.PutSnapshot(ctx, model.NewTestSnapshot("db", "sha256:ccc"), now.Add(-time.Hour)))

	result := tk.ContainerStatus(ctx)
	require.True(t, result.Success, result.Error)
	require.Len(t, result.Containers, 2)

	db := result.Containers[0]
	assert.Equal(t, "db", db.ContainerName)
	assert.False(t, db.IsRunning)
	assert.Equal(t, 0, db.ChangeCount)
	assert.Nil(t, db.LastChange)

	dockge := result.Containers[1]
	assert.Equal(t, "dockge", dockge.ContainerName)
	assert.True(t, dockge.IsRunning)
	assert.Equal(t, "sha256:bbb", dockge.Digest)
	assert.Equal(t, "sha256:bbb", dockge.DigestShort)
	assert.Equal(t, 1, dockge.ChangeCount)
	require.NotNil(t, dockge.LastChange)
}

func TestContainerHistory(t *testing.T) {

	fs := &fakeScanner{available: true, running: map[string]bool{"dockge": true}}
	tk, store := testTracker(t, fs)
	ctx := context.Background()
	now := time.Now().UTC()

	require.NoError(t, store.PutSnapshot(ctx, model.NewTestSnapshot("dockge", "sha256:aaa"), now.Add(-2*time.Hour)))
	require.NoError(t, store.PutSnapshot(ctx, model.NewTestSnapshot("dockge", "sha256:bbb"), now.Add(-time.Hour)))

	result := tk.ContainerHistory(ctx, "dockge")
	require.True(t, result.Success, result.Error)
	require.NotNil(t, result.Current)
	assert.Equal(t, "sha256:bbb", result.Current.Digest)
	assert.True(t, result.IsRunning)
	assert.Equal(t, 1, result.TotalChanges)
}

func TestContainerHistoryNotFound(t *testing.T) {

	tk, _ := testTracker(t, &fakeScanner{available: true})
	result := tk.ContainerHistory(context.Background(), "ghost")
	assert.False(t, result.Success)
	assert.Equal(t, "not found", result.Error)
}

func TestCheckForUpdates(t *testing.T) {

	fs := &fakeScanner{
		available: true,
		remote: map[string]string{
			"nginx:latest": "sha256:aaa", // same as stored, no update
			"redis:7":      "sha256:new", // differs, update available
		},
		remoteErrs: map[string]error{
			"caddy:2": errors.New("registry unreachable"),
		},
	}
	tk, store := testTracker(t, fs)
	ctx := context.Background()
	now := time.Now().UTC()

	require.NoError(t, store.PutSnapshot(ctx, namedSnapshot("web", "nginx", "latest", "sha256:aaa", now), now))
	require.NoError(t, store.PutSnapshot(ctx, namedSnapshot("queue", "redis", "7", "sha256:old", now), now))
	require.NoError(t, store.PutSnapshot(ctx, namedSnapshot("proxy", "caddy", "2", "sha256:xxx", now), now))

	result := tk.CheckForUpdates(ctx)
	// one bad registry lookup never aborts the batch
	require.True(t, result.Success, result.Error)
	assert.Equal(t, 3, result.TotalContainers)
	assert.Equal(t, 1, result.UpdatesAvailable)
	require.Len(t, result.Containers, 3)
	require.Len(t, result.Errors, 1)
	assert.Contains(t, result.Errors[0], "proxy")

	byName := map[string]model.ContainerUpdate{}
	for _, item := range result.Containers {
		byName[item.ContainerName] = item
	}
	assert.False(t, byName["web"].UpdateAvailable)
	assert.Empty(t, byName["web"].Error)
	assert.True(t, byName["queue"].UpdateAvailable)
	assert.Equal(t, "sha256:new", byName["queue"].RemoteDigest)
	assert.False(t, byName["proxy"].UpdateAvailable)
	assert.NotEmpty(t, byName["proxy"].Error)
}

func TestCheckForUpdatesUnresolved(t *testing.T) {

	fs := &fakeScanner{available: true} // resolver knows nothing, resolves to ""
	tk, store := testTracker(t, fs)
	ctx := context.Background()
	now := time.Now().UTC()

	require.NoError(t, store.PutSnapshot(ctx, namedSnapshot("web", "nginx", "latest", "sha256:aaa", now), now))

	result := tk.CheckForUpdates(ctx)
	require.True(t, result.Success)
	require.Len(t, result.Containers, 1)
	// unresolved means no update plus an explanation, never an unknown state
	assert.False(t, result.Containers[0].UpdateAvailable)
	assert.Equal(t, "could not fetch remote digest", result.Containers[0].Error)
	assert.Len(t, result.Errors, 1)
}

func TestCheckForUpdatesEmpty(t *testing.T) {

	tk, _ := testTracker(t, &fakeScanner{available: true})
	result := tk.CheckForUpdates(context.Background())
	assert.True(t, result.Success)
	assert.Equal(t, 0, result.TotalContainers)
	assert.Empty(t, result.Containers)
	assert.Empty(t, result.Errors)
}

func TestCheckForUpdatesUsesCache(t *testing.T) {

	fs := &fakeScanner{
		available: true,
		remote:    map[string]string{"nginx:latest": "sha256:remote"},
	}
	tk, store := testTracker(t, fs)
	tk.WithCache(&mapCache{})
	ctx := context.Background()
	now := time.Now().UTC()

	require.NoError(t, store.PutSnapshot(ctx, namedSnapshot("web", "nginx", "latest", "sha256:aaa", now), now))

	first := tk.CheckForUpdates(ctx)
	require.True(t, first.Success)
	assert.Equal(t, 1, fs.resolveCalls)

	second := tk.CheckForUpdates(ctx)
	require.True(t, second.Success)
	// second check is served from the cache
	assert.Equal(t, 1, fs.resolveCalls)
	assert.Equal(t, 1, second.UpdatesAvailable)
}

func TestGenerateReport(t *testing.T) {

	fs := &fakeScanner{available: true, running: map[string]bool{"dockge": true}}
	tk, store := testTracker(t, fs)
	ctx := context.Background()
	now := time.Now().UTC()

	require.NoError(t, store.PutSnapshot(ctx, model.NewTestSnapshot("dockge", "sha256:aaa"), now.Add(-2*time.Hour)))
	require.NoError(t, store.PutSnapshot(ctx, model.NewTestSnapshot("dockge", "sha256:bbb"), now.Add(-time.Hour)))
	require.NoError(t, store.PutSnapshot(ctx, model.NewTestSnapshot("db", "sha256:ccc"), now.Add(-time.Hour)))

	report := tk.GenerateReport(ctx)
	require.True(t, report.Success, report.Error)
	assert.Equal(t, 2, report.Summary.TotalContainers)
	assert.Equal(t, 1, report.Summary.RunningContainers)
	assert.Equal(t, 1, report.Summary.StoppedContainers)
	assert.Equal(t, 1, report.Summary.ContainersWithChanges)
	assert.Equal(t, 1, report.Summary.RecentChanges7days)
	assert.Equal(t, []string{"demo"}, report.Projects)
	assert.Equal(t, 1, report.Summary.TotalProjects)
	assert.Len(t, report.ChangesByDay, 1)
}
