// Package storage defines the persistence boundary for fabrication tracking
// state: record shapes, store interfaces, and the sentinel errors every
// backend must surface.
package storage

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrNotFound indicates a requested location, blueprint, or job row is missing.
	ErrNotFound = errors.New("record not found")
	// ErrConflict indicates a write conflicts with uniqueness or reference constraints.
	ErrConflict = errors.New("record conflict")
	// ErrHasActiveJobs indicates a delete was refused because non-collected
	// jobs still reference the row.
	ErrHasActiveJobs = errors.New("row has active jobs")
)

// LocationRecord stores one place where jobs can be fabricated.
type LocationRecord struct {
	ID               string
	Name             string
	PhotoURL         string
	Available        bool
	PersistChannelID string
	PersistMessageID string
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// BlueprintRecord stores one craftable item category and its fixed duration.
type BlueprintRecord struct {
	ID              string
	Name            string
	DurationMinutes int
	IconURL         string
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// JobRecord stores one fabrication job. Reads join the referenced blueprint
// and location so the duration and display names travel with the row.
type JobRecord struct {
	ID              string
	LocationID      string
	BlueprintID     string
	OwnerID         string
	OwnerName       string
	Note            string
	NotifyChannelID string
	PlacedAt        time.Time
	CollectedAt     *time.Time
	Ready           bool
	Collected       bool
	Notified        bool

	// Joined fields, populated on reads only.
	LocationName    string
	BlueprintName   string
	DurationMinutes int
}

// LocationStore persists fabrication locations.
type LocationStore interface {
	PutLocation(ctx context.Context, record LocationRecord) error
	GetLocation(ctx context.Context, locationID string) (LocationRecord, error)
	GetLocationByName(ctx context.Context, name string) (LocationRecord, error)
	ListLocations(ctx context.Context) ([]LocationRecord, error)
	UpdateLocation(ctx context.Context, record LocationRecord) error
	// DeleteLocation removes the location and every job that references it,
	// atomically. It fails with ErrHasActiveJobs while any referencing job
	// is not yet collected.
	DeleteLocation(ctx context.Context, locationID string) error
}

// BlueprintStore persists blueprint types.
type BlueprintStore interface {
	PutBlueprint(ctx context.Context, record BlueprintRecord) error
	GetBlueprint(ctx context.Context, blueprintID string) (BlueprintRecord, error)
	GetBlueprintByName(ctx context.Context, name string) (BlueprintRecord, error)
	ListBlueprints(ctx context.Context) ([]BlueprintRecord, error)
	UpdateBlueprint(ctx context.Context, record BlueprintRecord) error
	// DeleteBlueprint removes the blueprint type. It fails with
	// ErrHasActiveJobs while non-collected jobs reference it and never
	// cascades to job rows.
	DeleteBlueprint(ctx context.Context, blueprintID string) error
}

// JobStore persists fabrication jobs and their lifecycle flags.
type JobStore interface {
	PutJob(ctx context.Context, record JobRecord) error
	GetJob(ctx context.Context, jobID string) (JobRecord, error)
	ListJobsByOwner(ctx context.Context, ownerID string) ([]JobRecord, error)
	ListJobsByLocation(ctx context.Context, locationID string) ([]JobRecord, error)
	ListActiveJobs(ctx context.Context) ([]JobRecord, error)
	// ListJobsNeedingNotification returns jobs that are neither collected
	// nor notified and whose completion time is at or before now. Jobs
	// already flipped to ready stay in the result until a send succeeds,
	// so failed announcements are retried. No ordering is guaranteed.
	ListJobsNeedingNotification(ctx context.Context, now time.Time) ([]JobRecord, error)
	// The mark operations are idempotent: the boolean reports whether a row
	// actually changed, and re-marking is never an error.
	MarkReady(ctx context.Context, jobID string) (bool, error)
	MarkNotified(ctx context.Context, jobID string) (bool, error)
	MarkCollected(ctx context.Context, jobID string, collectedAt time.Time) (bool, error)
}

// MaintenanceStore exposes bulk corrective operations for repair tooling.
// These bypass lifecycle rules and must not be used in normal operation.
type MaintenanceStore interface {
	MarkAllNotified(ctx context.Context) (int64, error)
	DeleteCollectedJobs(ctx context.Context) (int64, error)
	DeleteJobsByOwner(ctx context.Context, ownerID string) (int64, error)
}
