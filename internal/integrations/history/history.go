package history

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"gorm.io/gorm"

	dwmodel "github.com/digestwatch/digestwatch/pkg/model"
)

// Store is the durable append-only log of container snapshots and
// digest transitions. Change detection happens inside PutSnapshot so
// the event and the snapshot land in one transaction.
type Store struct {
	dbc    *dwmodel.DatabaseContext
	logger *zerolog.Logger
	locks  keyedMutex
}

func NewStore(dbc *dwmodel.DatabaseContext, logger *zerolog.Logger) *Store {
	return &Store{
		dbc:    dbc,
		logger: logger,
	}
}

// PutSnapshot inserts a snapshot taken at <at>. When the most recent
// prior snapshot for the same container name carries a different
// digest, a DigestChangeEvent is inserted first, atomically with the
// snapshot row. Identical digests never produce events, so repeated
// scans of an unchanged system stay event-free.
func (st *Store) PutSnapshot(ctx context.Context, snap dwmodel.ContainerSnapshot, at time.Time) error {

	if err := snap.Validate(); err != nil {
		return err
	}
	// the read-compare-insert for one name must not race with itself
	unlock := st.locks.lock(snap.ContainerName)
	defer unlock()

	snap.ID = 0
	snap.ScanTimestamp = at.UTC()

	return st.dbc.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var prior dwmodel.ContainerSnapshot
		err := tx.Where("container_name = ?", snap.ContainerName).
			Order("scan_timestamp DESC").
			First(&prior).Error
		switch {
		case err == nil:
			if prior.Digest != snap.Digest {
				event := dwmodel.DigestChangeEvent{
					ContainerName:   snap.ContainerName,
					OldDigest:       prior.Digest,
					NewDigest:       snap.Digest,
					ChangeTimestamp: snap.ScanTimestamp,
				}
				if err := tx.Create(&event).Error; err != nil {
					return err
				}
				st.logger.Info().Str("container", snap.ContainerName).Msg("digest change recorded")
			}
		case errors.Is(err, gorm.ErrRecordNotFound):
			// first sighting of this name, nothing to compare against
		default:
			return err
		}
		return tx.Create(&snap).Error
	})
}

// GetLatestSnapshots returns the newest snapshot per container name
// ever seen, ordered by name.
func (st *Store) GetLatestSnapshots(ctx context.Context) ([]dwmodel.ContainerSnapshot, error) {

	latest := st.dbc.DB.Model(&dwmodel.ContainerSnapshot{}).
		Select("container_name AS name, MAX(scan_timestamp) AS max_ts").
		Group("container_name")

	snapshots := []dwmodel.ContainerSnapshot{}
	err := st.dbc.DB.WithContext(ctx).Model(&dwmodel.ContainerSnapshot{}).
		Joins("JOIN (?) AS latest ON snapshots.container_name = latest.name AND snapshots.scan_timestamp = latest.max_ts", latest).
		Order("snapshots.container_name").
		Find(&snapshots).Error
	return snapshots, err
}

// GetHistory returns all change events for one container name, newest first.
func (st *Store) GetHistory(ctx context.Context, containerName string) ([]dwmodel.DigestChangeEvent, error) {
	events := []dwmodel.DigestChangeEvent{}
	err := st.dbc.DB.WithContext(ctx).
		Where("container_name = ?", containerName).
		Order("change_timestamp DESC").
		Find(&events).Error
	return events, err
}

// GetRecentChanges returns all change events inside the window, newest first.
func (st *Store) GetRecentChanges(ctx context.Context, window time.Duration) ([]dwmodel.DigestChangeEvent, error) {
	events := []dwmodel.DigestChangeEvent{}
	err := st.dbc.DB.WithContext(ctx).
		Where("change_timestamp >= ?", time.Now().UTC().Add(-window)).
		Order("change_timestamp DESC").
		Find(&events).Error
	return events, err
}

// keyedMutex serializes writers per container name.
type keyedMutex struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func (km *keyedMutex) lock(key string) func() {
	km.mu.Lock()
	if km.locks == nil {
		km.locks = map[string]*sync.Mutex{}
	}
	lock, ok := km.locks[key]
	if !ok {
		lock = &sync.Mutex{}
		km.locks[key] = lock
	}
	km.mu.Unlock()

	lock.Lock()
	return lock.Unlock
}
