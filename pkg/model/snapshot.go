package model

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// sentinel errors for the failure modes the tracker maps to result objects
var (
	ErrRuntimeUnavailable = errors.New("container runtime unavailable")
	ErrNotFound           = errors.New("not found")
)

// ContainerSnapshot is one point-in-time record of a container and the
// digest of the image backing it. Rows are append-only, one per scan.
type ContainerSnapshot struct {
	ID            uint      `json:"-" gorm:"primarykey"`
	ContainerId   string    `json:"ContainerId"`
	ContainerName string    `json:"ContainerName" gorm:"index;uniqueIndex:idx_snapshots_name_scan,priority:1"`
	ServiceName   *string   `json:"ServiceName,omitempty"`
	ImageName     string    `json:"ImageName"`
	ImageTag      string    `json:"ImageTag"`
	Digest        string    `json:"Digest"`
	ProjectName   *string   `json:"ProjectName,omitempty"`
	ScanTimestamp time.Time `json:"ScanTimestamp" gorm:"index;uniqueIndex:idx_snapshots_name_scan,priority:2"`
	Created       time.Time `json:"Created" gorm:"column:created_at"` // container creation time, host-reported
}

func (ContainerSnapshot) TableName() string {
	return "snapshots"
}

// image reference the snapshot was scanned from, e.g. "nginx:1.21"
func (cs ContainerSnapshot) ImageRef() string {
	return cs.ImageName + ":" + cs.ImageTag
}

func (cs ContainerSnapshot) String() string {
	return fmt.Sprintf("%s (%s)", cs.ContainerName, cs.ImageRef())
}

// Validate rejects snapshots that must never reach the store.
func (cs ContainerSnapshot) Validate() error {
	if cs.ContainerName == "" {
		return errors.New("snapshot has no container name")
	}
	if cs.Digest == "" {
		return fmt.Errorf("snapshot %s has no digest", cs.ContainerName)
	}
	return nil
}

// DigestChangeEvent records one observed digest transition between two
// consecutive snapshots of the same container name. Append-only.
type DigestChangeEvent struct {
	ID              uint      `json:"-" gorm:"primarykey"`
	ContainerName   string    `json:"ContainerName" gorm:"index"`
	OldDigest       string    `json:"OldDigest"`
	NewDigest       string    `json:"NewDigest"`
	ChangeTimestamp time.Time `json:"ChangeTimestamp" gorm:"index"`
}

func (DigestChangeEvent) TableName() string {
	return "digest_events"
}

func (dc DigestChangeEvent) String() string {
	return fmt.Sprintf("%s: %.12s... -> %.12s...", dc.ContainerName, dc.OldDigest, dc.NewDigest)
}

// ParseImageRef splits a raw image reference into name and tag.
//
//	"nginx:latest"            -> ("nginx", "latest")
//	"registry.com/nginx:1.21" -> ("registry.com/nginx", "1.21")
//	"nginx@sha256:abc123"     -> ("nginx", "digest")
//	"nginx"                   -> ("nginx", "latest")
//	""                        -> ("unknown", "unknown")
func ParseImageRef(input string) (string, string) {
	if input == "" {
		return "unknown", "unknown"
	}
	if strings.Contains(input, "@sha256:") {
		return strings.SplitN(input, "@", 2)[0], "digest"
	}
	if k := strings.LastIndex(input, ":"); k >= 0 {
		return input[:k], input[k+1:]
	}
	return input, "latest"
}
