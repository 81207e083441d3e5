package history

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/digestwatch/digestwatch/internal/logging"
	dwmodel "github.com/digestwatch/digestwatch/pkg/model"
)

var logger = logging.NewLogger("error")

func testStore(t *testing.T) *Store {
	t.Helper()
	return NewStore(dwmodel.NewTestDatabaseContext(t), logger)
}

func TestPutSnapshotIdempotent(t *testing.T) {

	st := testStore(t)
	ctx := context.Background()
	base := time.Now().UTC().Add(-time.Hour)

	// scanning an unchanged system N times stores N snapshots, zero events
	for k := 0; k < 5; k++ {
		snap := dwmodel.NewTestSnapshot("dockge", "sha256:aaa")
		require.NoError(t, st.PutSnapshot(ctx, snap, base.Add(time.Duration(k)*time.Minute)))
	}

	events, err := st.GetHistory(ctx, "dockge")
	require.NoError(t, err)
	assert.Empty(t, events)

	latest, err := st.GetLatestSnapshots(ctx)
	require.NoError(t, err)
	require.Len(t, latest, 1)
	assert.Equal(t, "sha256:aaa", latest[0].Digest)
}

func TestPutSnapshotDetectsChange(t *testing.T) {

	st := testStore(t)
	ctx := context.Background()
	base := time.Now().UTC().Add(-time.Hour)

	require.NoError(t, st.PutSnapshot(ctx, dwmodel.NewTestSnapshot("dockge", "sha256:aaa"), base))
	require.NoError(t, st.PutSnapshot(ctx, dwmodel.NewTestSnapshot("dockge", "sha256:bbb"), base.Add(time.Minute)))

	events, err := st.GetHistory(ctx, "dockge")
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, "sha256:aaa", events[0].OldDigest)
	assert.Equal(t, "sha256:bbb", events[0].NewDigest)

	latest, err := st.GetLatestSnapshots(ctx)
	require.NoError(t, err)
	require.Len(t, latest, 1)
	assert.Equal(t, "sha256:bbb", latest[0].Digest)
}

func TestPutSnapshotFirstSightingHasNoEvent(t *testing.T) {

	st := testStore(t)
	ctx := context.Background()

	require.NoError(t, st.PutSnapshot(ctx, dwmodel.NewTestSnapshot("fresh", "sha256:ccc"), time.Now().UTC()))

	events, err := st.GetHistory(ctx, "fresh")
	require.NoError(t, err)
	assert.Empty(t, events)
}

func TestPutSnapshotRejectsEmptyDigest(t *testing.T) {

	st := testStore(t)
	snap := dwmodel.NewTestSnapshot("dockge", "")
	assert.Error(t, st.PutSnapshot(context.Background(), snap, time.Now().UTC()))
}

func TestGetLatestSnapshotsOrderedByName(t *testing.T) {

	st := testStore(t)
	ctx := context.Background()
	at := time.Now().UTC()

	for _, name := range []string{"zulu", "alfa", "mike"} {
		require.NoError(t, st.PutSnapshot(ctx, dwmodel.NewTestSnapshot(name, "sha256:aaa"), at))
		at = at.Add(time.Second)
	}

	latest, err := st.GetLatestSnapshots(ctx)
	require.NoError(t, err)
	require.Len(t, latest, 3)
	assert.Equal(t, "alfa", latest[0].ContainerName)
	assert.Equal(t, "mike", latest[1].ContainerName)
	assert.Equal(t, "zulu", latest[2].ContainerName)
}

func TestGetHistoryNewestFirst(t *testing.T) {

	st := testStore(t)
	ctx := context.Background()
	base := time.Now().UTC().Add(-3 * time.Hour)

	digests := []string{"sha256:aaa", "sha256:bbb", "sha256:ccc", "sha256:ddd"}
	for k, digest := range digests {
		require.NoError(t, st.PutSnapshot(ctx, dwmodel.NewTestSnapshot("dockge", digest), base.Add(time.Duration(k)*time.Minute)))
	}

	events, err := st.GetHistory(ctx, "dockge")
	require.NoError(t, err)
	require.Len(t, events, 3)
	for k := 0; k+1 < len(events); k++ {
		assert.True(t, !events[k].ChangeTimestamp.Before(events[k+1].ChangeTimestamp))
	}
	assert.Equal(t, "sha256:ddd", events[0].NewDigest)
}

func TestGetRecentChangesWindow(t *testing.T) {

	st := testStore(t)
	ctx := context.Background()
	now := time.Now().UTC()

	// one old transition, one recent
	require.NoError(t, st.PutSnapshot(ctx, dwmodel.NewTestSnapshot("dockge", "sha256:aaa"), now.Add(-72*time.Hour)))
	require.NoError(t, st.PutSnapshot(ctx, dwmodel.NewTestSnapshot("dockge", "sha256:bbb"), now.Add(-48*time.Hour)))
	require.NoError(t, st.PutSnapshot(ctx, dwmodel.NewTestSnapshot("dockge", "sha256:ccc"), now.Add(-time.Minute)))

	recent, err := st.GetRecentChanges(ctx, 24*time.Hour)
	require.NoError(t, err)
	require.Len(t, recent, 1)
	assert.Equal(t, "sha256:ccc", recent[0].NewDigest)

	all, err := st.GetRecentChanges(ctx, 30*24*time.Hour)
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func TestPutSnapshotConcurrentSameName(t *testing.T) {

	st := testStore(t)
	ctx := context.Background()
	base := time.Now().UTC()

	var wg sync.WaitGroup
	for k := 0; k < 8; k++ {
		wg.Add(1)
		go func(k int) {
			defer wg.Done()
			snap := dwmodel.NewTestSnapshot("racy", "sha256:same")
			_ = st.PutSnapshot(ctx, snap, base.Add(time.Duration(k)*time.Millisecond))
		}(k)
	}
	wg.Wait()

	// same digest throughout, so racing writers must not fabricate events
	events, err := st.GetHistory(ctx, "racy")
	require.NoError(t, err)
	assert.Empty(t, events)
}
