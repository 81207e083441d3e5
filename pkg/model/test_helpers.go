package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// NewTestDatabaseContext is a test helper that opens an in-memory
// sqlite database and migrates the tracking models into it.
func NewTestDatabaseContext(t *testing.T) *DatabaseContext {
	t.Helper()
	dbc, err := NewDatabaseContext(&Database{Driver: DatabaseDriverSqlite, Dsn: ":memory:"}, nil)
	require.NoError(t, err)
	require.NoError(t, dbc.Migrate())
	return dbc
}

// NewTestSnapshot is a test helper that creates a ContainerSnapshot
// with standard defaults.
func NewTestSnapshot(name, digest string) ContainerSnapshot {
	service := "web"
	project := "demo"
	return ContainerSnapshot{
		ContainerId:   "cafebabe0001",
		ContainerName: name,
		ServiceName:   &service,
		ImageName:     "nginx",
		ImageTag:      "latest",
		Digest:        digest,
		ProjectName:   &project,
		Created:       time.Now().UTC().Add(-48 * time.Hour),
	}
}
