package model

import "time"

// Typed result shapes for every tracker operation. Each carries
// Success plus either a payload or an error message; per-item errors
// inside an otherwise successful batch live on the items themselves.

// ScanResult reports one scan-and-update cycle.
type ScanResult struct {
	Success           bool      `json:"Success"`
	Error             string    `json:"Error,omitempty"`
	ScanId            string    `json:"ScanId,omitempty"`
	ScanTimestamp     time.Time `json:"ScanTimestamp"`
	ContainersScanned int       `json:"ContainersScanned"`
	ChangesDetected   int       `json:"ChangesDetected"`
	NewContainers     int       `json:"NewContainers"`
	ScannedNames      []string  `json:"ScannedNames,omitempty"`
	ChangedNames      []string  `json:"ChangedNames,omitempty"`
	NewNames          []string  `json:"NewNames,omitempty"`
}

// ChangedContainer pairs a current snapshot with the events that put it
// in the "changed" partition.
type ChangedContainer struct {
	Container ContainerSnapshot   `json:"Container"`
	Changes   []DigestChangeEvent `json:"Changes"`
}

// CompareResult partitions the tracked containers against a time window.
type CompareResult struct {
	Success         bool                `json:"Success"`
	Error           string              `json:"Error,omitempty"`
	PeriodHours     int                 `json:"PeriodHours"`
	TotalContainers int                 `json:"TotalContainers"`
	Unchanged       []ContainerSnapshot `json:"Unchanged"`
	Changed         []ChangedContainer  `json:"Changed"`
	NewContainers   []ContainerSnapshot `json:"NewContainers"`
	TotalChanges    int                 `json:"TotalChanges"`
}

// ContainerStatus is one tracked container enriched with live state.
type ContainerStatus struct {
	ContainerName string     `json:"ContainerName"`
	ServiceName   *string    `json:"ServiceName,omitempty"`
	Image         string     `json:"Image"`
	Digest        string     `json:"Digest"`
	DigestShort   string     `json:"DigestShort"`
	ProjectName   *string    `json:"ProjectName,omitempty"`
	IsRunning     bool       `json:"IsRunning"`
	LastSeen      time.Time  `json:"LastSeen"`
	ChangeCount   int        `json:"ChangeCount"`
	LastChange    *time.Time `json:"LastChange,omitempty"`
}

type StatusResult struct {
	Success    bool              `json:"Success"`
	Error      string            `json:"Error,omitempty"`
	Containers []ContainerStatus `json:"Containers"`
}

// HistoryResult is the detail view for a single container name.
type HistoryResult struct {
	Success       bool                `json:"Success"`
	Error         string              `json:"Error,omitempty"`
	ContainerName string              `json:"ContainerName"`
	Current       *ContainerSnapshot  `json:"Current,omitempty"`
	IsRunning     bool                `json:"IsRunning"`
	Changes       []DigestChangeEvent `json:"Changes"`
	TotalChanges  int                 `json:"TotalChanges"`
}

// ContainerUpdate is the per-container outcome of an update check.
// Error is set when the remote digest could not be resolved; the item
// then reports UpdateAvailable=false rather than an unknown state.
type ContainerUpdate struct {
	ContainerName   string `json:"ContainerName"`
	Image           string `json:"Image"`
	CurrentDigest   string `json:"CurrentDigest"`
	RemoteDigest    string `json:"RemoteDigest,omitempty"`
	UpdateAvailable bool   `json:"UpdateAvailable"`
	Error           string `json:"Error,omitempty"`
}

type UpdateCheckResult struct {
	Success          bool              `json:"Success"`
	Error            string            `json:"Error,omitempty"`
	CheckTimestamp   time.Time         `json:"CheckTimestamp"`
	TotalContainers  int               `json:"TotalContainers"`
	UpdatesAvailable int               `json:"UpdatesAvailable"`
	Containers       []ContainerUpdate `json:"Containers"`
	Errors           []string          `json:"Errors"`
}

type ReportSummary struct {
	TotalContainers       int `json:"TotalContainers"`
	RunningContainers     int `json:"RunningContainers"`
	StoppedContainers     int `json:"StoppedContainers"`
	ContainersWithChanges int `json:"ContainersWithChanges"`
	TotalProjects         int `json:"TotalProjects"`
	RecentChanges7days    int `json:"RecentChanges7days"`
}

// Report aggregates status, recent history and project grouping.
// Read-side composition only, no writes.
type Report struct {
	Success       bool                           `json:"Success"`
	Error         string                         `json:"Error,omitempty"`
	GeneratedAt   time.Time                      `json:"GeneratedAt"`
	Summary       ReportSummary                  `json:"Summary"`
	Containers    []ContainerStatus              `json:"Containers"`
	RecentChanges []DigestChangeEvent            `json:"RecentChanges"`
	ChangesByDay  map[string][]DigestChangeEvent `json:"ChangesByDay"`
	Projects      []string                       `json:"Projects"`
}
