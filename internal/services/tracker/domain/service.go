package domain

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/duskfall-rp/fabricator/internal/platform/debounce"
	"github.com/duskfall-rp/fabricator/internal/platform/id"
)

// Store is the domain persistence boundary for fabrication tracking.
type Store interface {
	CreateLocation(ctx context.Context, location Location) error
	GetLocation(ctx context.Context, locationID string) (Location, error)
	GetLocationByName(ctx context.Context, name string) (Location, error)
	ListLocations(ctx context.Context) ([]Location, error)
	UpdateLocation(ctx context.Context, location Location) error
	DeleteLocation(ctx context.Context, locationID string) error

	CreateBlueprint(ctx context.Context, blueprint Blueprint) error
	GetBlueprint(ctx context.Context, blueprintID string) (Blueprint, error)
	GetBlueprintByName(ctx context.Context, name string) (Blueprint, error)
	ListBlueprints(ctx context.Context) ([]Blueprint, error)
	UpdateBlueprint(ctx context.Context, blueprint Blueprint) error
	DeleteBlueprint(ctx context.Context, blueprintID string) error

	CreateJob(ctx context.Context, job Job) error
	GetJob(ctx context.Context, jobID string) (Job, error)
	ListJobsByOwner(ctx context.Context, ownerID string) ([]Job, error)
	ListJobsByLocation(ctx context.Context, locationID string) ([]Job, error)
	ListActiveJobs(ctx context.Context) ([]Job, error)
	MarkReady(ctx context.Context, jobID string) (bool, error)
	MarkNotified(ctx context.Context, jobID string) (bool, error)
	MarkCollected(ctx context.Context, jobID string, collectedAt time.Time) (bool, error)
}

// Service orchestrates fabrication job lifecycle behavior for the command
// layer. It holds no state of its own beyond the advisory submission guard.
type Service struct {
	store Store
	clock func() time.Time
	newID func() (string, error)
	guard *debounce.Guard
}

// NewService constructs tracker domain use-cases. A nil clock defaults to
// time.Now, a nil id generator to the platform generator, and a nil guard to
// a short-lived default.
func NewService(store Store, clock func() time.Time, newID func() (string, error), guard *debounce.Guard) *Service {
	if clock == nil {
		clock = time.Now
	}
	if newID == nil {
		newID = id.NewID
	}
	if guard == nil {
		guard = debounce.New(0, 0)
	}
	return &Service{
		store: store,
		clock: clock,
		newID: newID,
		guard: guard,
	}
}

// CreateLocationInput describes one admin location creation request.
type CreateLocationInput struct {
	Name      string
	PhotoURL  string
	Available bool
}

// CreateLocation registers a new location.
func (s *Service) CreateLocation(ctx context.Context, input CreateLocationInput) (Location, error) {
	if s == nil || s.store == nil {
		return Location{}, ErrStoreNotConfigured
	}
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return Location{}, ErrNameRequired
	}
	locationID, err := s.newID()
	if err != nil {
		return Location{}, fmt.Errorf("generate location id: %w", err)
	}
	now := s.clock().UTC()
	location := Location{
		ID:        locationID,
		Name:      name,
		PhotoURL:  strings.TrimSpace(input.PhotoURL),
		Available: input.Available,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.store.CreateLocation(ctx, location); err != nil {
		return Location{}, err
	}
	return location, nil
}

// UpdateLocationInput carries optional location field updates. Nil fields are
// left unchanged.
type UpdateLocationInput struct {
	Name              *string
	PhotoURL          *string
	Available         *bool
	PersistentMessage *MessageRef
}

// UpdateLocation applies the provided field updates to one location.
func (s *Service) UpdateLocation(ctx context.Context, locationID string, input UpdateLocationInput) (Location, error) {
	if s == nil || s.store == nil {
		return Location{}, ErrStoreNotConfigured
	}
	locationID = strings.TrimSpace(locationID)
	if locationID == "" {
		return Location{}, ErrLocationRequired
	}
	location, err := s.store.GetLocation(ctx, locationID)
	if err != nil {
		return Location{}, err
	}
	if input.Name != nil {
		name := strings.TrimSpace(*input.Name)
		if name == "" {
			return Location{}, ErrNameRequired
		}
		location.Name = name
	}
	if input.PhotoURL != nil {
		location.PhotoURL = strings.TrimSpace(*input.PhotoURL)
	}
	if input.Available != nil {
		location.Available = *input.Available
	}
	if input.PersistentMessage != nil {
		location.PersistentMessage = *input.PersistentMessage
	}
	location.UpdatedAt = s.clock().UTC()
	if err := s.store.UpdateLocation(ctx, location); err != nil {
		return Location{}, err
	}
	return location, nil
}

// DeleteLocation removes a location and its collected job history. The store
// refuses the delete while non-collected jobs reference the location.
func (s *Service) DeleteLocation(ctx context.Context, locationID string) error {
	if s == nil || s.store == nil {
		return ErrStoreNotConfigured
	}
	locationID = strings.TrimSpace(locationID)
	if locationID == "" {
		return ErrLocationRequired
	}
	return s.store.DeleteLocation(ctx, locationID)
}

// ListLocations returns all registered locations.
func (s *Service) ListLocations(ctx context.Context) ([]Location, error) {
	if s == nil || s.store == nil {
		return nil, ErrStoreNotConfigured
	}
	return s.store.ListLocations(ctx)
}

// CreateBlueprintInput describes one admin blueprint creation request.
type CreateBlueprintInput struct {
	Name            string
	DurationMinutes int
	IconURL         string
}

// CreateBlueprint registers a new blueprint type.
func (s *Service) CreateBlueprint(ctx context.Context, input CreateBlueprintInput) (Blueprint, error) {
	if s == nil || s.store == nil {
		return Blueprint{}, ErrStoreNotConfigured
	}
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return Blueprint{}, ErrNameRequired
	}
	if input.DurationMinutes <= 0 {
		return Blueprint{}, ErrDurationInvalid
	}
	blueprintID, err := s.newID()
	if err != nil {
		return Blueprint{}, fmt.Errorf("generate blueprint id: %w", err)
	}
	now := s.clock().UTC()
	blueprint := Blueprint{
		ID:        blueprintID,
		Name:      name,
		Duration:  time.Duration(input.DurationMinutes) * time.Minute,
		IconURL:   strings.TrimSpace(input.IconURL),
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.store.CreateBlueprint(ctx, blueprint); err != nil {
		return Blueprint{}, err
	}
	return blueprint, nil
}

// UpdateBlueprintInput carries optional blueprint field updates.
type UpdateBlueprintInput struct {
	Name            *string
	DurationMinutes *int
	IconURL         *string
}

// UpdateBlueprint applies the provided field updates to one blueprint.
func (s *Service) UpdateBlueprint(ctx context.Context, blueprintID string, input UpdateBlueprintInput) (Blueprint, error) {
	if s == nil || s.store == nil {
		return Blueprint{}, ErrStoreNotConfigured
	}
	blueprintID = strings.TrimSpace(blueprintID)
	if blueprintID == "" {
		return Blueprint{}, ErrBlueprintRequired
	}
	blueprint, err := s.store.GetBlueprint(ctx, blueprintID)
	if err != nil {
		return Blueprint{}, err
	}
	if input.Name != nil {
		name := strings.TrimSpace(*input.Name)
		if name == "" {
			return Blueprint{}, ErrNameRequired
		}
		blueprint.Name = name
	}
	if input.DurationMinutes != nil {
		if *input.DurationMinutes <= 0 {
			return Blueprint{}, ErrDurationInvalid
		}
		blueprint.Duration = time.Duration(*input.DurationMinutes) * time.Minute
	}
	if input.IconURL != nil {
		blueprint.IconURL = strings.TrimSpace(*input.IconURL)
	}
	blueprint.UpdatedAt = s.clock().UTC()
	if err := s.store.UpdateBlueprint(ctx, blueprint); err != nil {
		return Blueprint{}, err
	}
	return blueprint, nil
}

// DeleteBlueprint removes a blueprint type. The store refuses the delete
// while jobs reference it; blueprint deletion never cascades.
func (s *Service) DeleteBlueprint(ctx context.Context, blueprintID string) error {
	if s == nil || s.store == nil {
		return ErrStoreNotConfigured
	}
	blueprintID = strings.TrimSpace(blueprintID)
	if blueprintID == "" {
		return ErrBlueprintRequired
	}
	return s.store.DeleteBlueprint(ctx, blueprintID)
}

// ListBlueprints returns all registered blueprint types.
func (s *Service) ListBlueprints(ctx context.Context) ([]Blueprint, error) {
	if s == nil || s.store == nil {
		return nil, ErrStoreNotConfigured
	}
	return s.store.ListBlueprints(ctx)
}

// StartJobInput describes one member request to begin fabricating.
type StartJobInput struct {
	LocationID      string
	BlueprintID     string
	OwnerID         string
	OwnerName       string
	Note            string
	NotifyChannelID string
}

// StartJob places a new fabrication job at a location. The placement
// timestamp is the current time; all lifecycle flags start false. Repeated
// identical submissions within the guard window are rejected so a double
// click does not place two jobs.
func (s *Service) StartJob(ctx context.Context, input StartJobInput) (Job, error) {
	if s == nil || s.store == nil {
		return Job{}, ErrStoreNotConfigured
	}
	locationID := strings.TrimSpace(input.LocationID)
	if locationID == "" {
		return Job{}, ErrLocationRequired
	}
	blueprintID := strings.TrimSpace(input.BlueprintID)
	if blueprintID == "" {
		return Job{}, ErrBlueprintRequired
	}
	ownerID := strings.TrimSpace(input.OwnerID)
	ownerName := strings.TrimSpace(input.OwnerName)
	if ownerID == "" || ownerName == "" {
		return Job{}, ErrOwnerRequired
	}

	guardKey := ownerID + ":" + locationID + ":" + blueprintID
	if !s.guard.TryAcquire(guardKey) {
		return Job{}, ErrDuplicateSubmission
	}

	location, err := s.store.GetLocation(ctx, locationID)
	if err != nil {
		s.guard.Release(guardKey)
		return Job{}, err
	}
	if !location.Available {
		s.guard.Release(guardKey)
		return Job{}, ErrLocationUnavailable
	}
	blueprint, err := s.store.GetBlueprint(ctx, blueprintID)
	if err != nil {
		s.guard.Release(guardKey)
		return Job{}, err
	}

	jobID, err := s.newID()
	if err != nil {
		s.guard.Release(guardKey)
		return Job{}, fmt.Errorf("generate job id: %w", err)
	}
	job := Job{
		ID:              jobID,
		LocationID:      location.ID,
		LocationName:    location.Name,
		BlueprintID:     blueprint.ID,
		BlueprintName:   blueprint.Name,
		Duration:        blueprint.Duration,
		OwnerID:         ownerID,
		OwnerName:       ownerName,
		Note:            strings.TrimSpace(input.Note),
		NotifyChannelID: strings.TrimSpace(input.NotifyChannelID),
		PlacedAt:        s.clock().UTC(),
	}
	if err := s.store.CreateJob(ctx, job); err != nil {
		s.guard.Release(guardKey)
		return Job{}, err
	}
	return job, nil
}

// CollectJob marks a job as picked up by its owner. Collecting a job whose
// timer has not elapsed is permitted and forces the ready flag first, so the
// stored flags never show a collected job that was never ready.
func (s *Service) CollectJob(ctx context.Context, jobID string) (Job, error) {
	if s == nil || s.store == nil {
		return Job{}, ErrStoreNotConfigured
	}
	jobID = strings.TrimSpace(jobID)
	if jobID == "" {
		return Job{}, ErrJobIDRequired
	}
	if _, err := s.store.MarkReady(ctx, jobID); err != nil {
		return Job{}, err
	}
	if _, err := s.store.MarkCollected(ctx, jobID, s.clock().UTC()); err != nil {
		return Job{}, err
	}
	return s.store.GetJob(ctx, jobID)
}

// GetJob loads one job by id.
func (s *Service) GetJob(ctx context.Context, jobID string) (Job, error) {
	if s == nil || s.store == nil {
		return Job{}, ErrStoreNotConfigured
	}
	jobID = strings.TrimSpace(jobID)
	if jobID == "" {
		return Job{}, ErrJobIDRequired
	}
	return s.store.GetJob(ctx, jobID)
}

// ListOwnerJobs returns one member's jobs, optionally filtered by derived
// status. An empty status returns everything.
func (s *Service) ListOwnerJobs(ctx context.Context, ownerID string, status Status) ([]Job, error) {
	if s == nil || s.store == nil {
		return nil, ErrStoreNotConfigured
	}
	ownerID = strings.TrimSpace(ownerID)
	if ownerID == "" {
		return nil, ErrOwnerRequired
	}
	jobs, err := s.store.ListJobsByOwner(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	if status == "" {
		return jobs, nil
	}
	return FilterByStatus(jobs, status, s.clock().UTC()), nil
}

// ListActiveJobs returns all non-collected jobs across locations.
func (s *Service) ListActiveJobs(ctx context.Context) ([]Job, error) {
	if s == nil || s.store == nil {
		return nil, ErrStoreNotConfigured
	}
	return s.store.ListActiveJobs(ctx)
}

// ListLocationJobs returns the jobs placed at one location.
func (s *Service) ListLocationJobs(ctx context.Context, locationID string) ([]Job, error) {
	if s == nil || s.store == nil {
		return nil, ErrStoreNotConfigured
	}
	locationID = strings.TrimSpace(locationID)
	if locationID == "" {
		return nil, ErrLocationRequired
	}
	return s.store.ListJobsByLocation(ctx, locationID)
}
