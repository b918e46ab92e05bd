// Package domain holds the fabrication tracking entities and the pure
// lifecycle logic deriving a job's user-facing state from stored fields.
package domain

import "time"

// Status is the derived lifecycle state of a fabrication job.
//
// The lifecycle is strictly linear: pending, then ready once the blueprint
// duration has elapsed, then collected once the owner picks the job up.
// There are no reverse transitions.
type Status string

const (
	// StatusPending means the job timer is still running.
	StatusPending Status = "pending"
	// StatusReady means the timer elapsed and the job awaits pickup.
	StatusReady Status = "ready"
	// StatusCollected means the owner retrieved the finished job. Terminal.
	StatusCollected Status = "collected"
)

// MessageRef points at a persisted chat message kept in sync by the UI layer.
// The tracker only stores it.
type MessageRef struct {
	ChannelID string
	MessageID string
}

// Location is a place in the game world where jobs can be placed.
type Location struct {
	ID                string
	Name              string
	PhotoURL          string
	Available         bool
	PersistentMessage MessageRef
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// Blueprint is a category of craftable item with a fixed fabrication duration.
type Blueprint struct {
	ID        string
	Name      string
	Duration  time.Duration
	IconURL   string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Job is one timed fabrication task tied to a location and a blueprint.
//
// BlueprintName, LocationName, and Duration are denormalized from the
// referenced entities at read time so status and announcements can be
// produced without further lookups.
type Job struct {
	ID              string
	LocationID      string
	LocationName    string
	BlueprintID     string
	BlueprintName   string
	Duration        time.Duration
	OwnerID         string
	OwnerName       string
	Note            string
	NotifyChannelID string
	PlacedAt        time.Time
	CollectedAt     *time.Time
	Ready           bool
	Collected       bool
	Notified        bool
}

// CompletionTime is the instant the job finishes fabricating. It is always
// computed from the placement time and blueprint duration, never stored.
func (j Job) CompletionTime() time.Time {
	return j.PlacedAt.Add(j.Duration)
}

// Status derives the lifecycle state from the persisted flags.
func (j Job) Status() Status {
	switch {
	case j.Collected:
		return StatusCollected
	case j.Ready:
		return StatusReady
	default:
		return StatusPending
	}
}

// StatusAt derives the lifecycle state at now, treating an elapsed timer as
// ready even before the dispatcher has persisted the flag. Display paths use
// this so a finished job never shows as pending between dispatcher ticks.
func (j Job) StatusAt(now time.Time) Status {
	if j.Collected {
		return StatusCollected
	}
	if j.Ready || !now.Before(j.CompletionTime()) {
		return StatusReady
	}
	return StatusPending
}

// Active reports whether the job still occupies its location: anything not
// yet collected counts as active.
func (j Job) Active() bool {
	return !j.Collected
}

// FilterByStatus returns the jobs whose derived status at now matches want.
func FilterByStatus(jobs []Job, want Status, now time.Time) []Job {
	var matched []Job
	for _, job := range jobs {
		if job.StatusAt(now) == want {
			matched = append(matched, job)
		}
	}
	return matched
}
