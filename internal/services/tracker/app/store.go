// Package app assembles the tracker runtime: storage, lifecycle service,
// dispatcher, and the Discord session they share.
package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/duskfall-rp/fabricator/internal/services/tracker/domain"
	"github.com/duskfall-rp/fabricator/internal/services/tracker/storage"
)

// recordStore is the storage surface the adapter needs. The sqlite store
// satisfies it.
type recordStore interface {
	storage.LocationStore
	storage.BlueprintStore
	storage.JobStore
}

// StoreAdapter exposes a record-level store as the domain and dispatch
// store interfaces, translating shapes and sentinel errors at the boundary.
type StoreAdapter struct {
	records recordStore
}

// NewStoreAdapter wraps a record store.
func NewStoreAdapter(records recordStore) (*StoreAdapter, error) {
	if records == nil {
		return nil, errors.New("app: record store is required")
	}
	return &StoreAdapter{records: records}, nil
}

func (a *StoreAdapter) CreateLocation(ctx context.Context, location domain.Location) error {
	if a == nil || a.records == nil {
		return domain.ErrStoreNotConfigured
	}
	return mapStorageErr(a.records.PutLocation(ctx, locationToRecord(location)))
}

func (a *StoreAdapter) GetLocation(ctx context.Context, locationID string) (domain.Location, error) {
	if a == nil || a.records == nil {
		return domain.Location{}, domain.ErrStoreNotConfigured
	}
	record, err := a.records.GetLocation(ctx, locationID)
	if err != nil {
		return domain.Location{}, mapStorageErr(err)
	}
	return locationFromRecord(record), nil
}

func (a *StoreAdapter) GetLocationByName(ctx context.Context, name string) (domain.Location, error) {
	if a == nil || a.records == nil {
		return domain.Location{}, domain.ErrStoreNotConfigured
	}
	record, err := a.records.GetLocationByName(ctx, name)
	if err != nil {
		return domain.Location{}, mapStorageErr(err)
	}
	return locationFromRecord(record), nil
}

func (a *StoreAdapter) ListLocations(ctx context.Context) ([]domain.Location, error) {
	if a == nil || a.records == nil {
		return nil, domain.ErrStoreNotConfigured
	}
	records, err := a.records.ListLocations(ctx)
	if err != nil {
		return nil, mapStorageErr(err)
	}
	locations := make([]domain.Location, 0, len(records))
	for _, record := range records {
		locations = append(locations, locationFromRecord(record))
	}
	return locations, nil
}

func (a *StoreAdapter) UpdateLocation(ctx context.Context, location domain.Location) error {
	if a == nil || a.records == nil {
		return domain.ErrStoreNotConfigured
	}
	return mapStorageErr(a.records.UpdateLocation(ctx, locationToRecord(location)))
}

func (a *StoreAdapter) DeleteLocation(ctx context.Context, locationID string) error {
	if a == nil || a.records == nil {
		return domain.ErrStoreNotConfigured
	}
	return mapStorageErr(a.records.DeleteLocation(ctx, locationID))
}

func (a *StoreAdapter) CreateBlueprint(ctx context.Context, blueprint domain.Blueprint) error {
	if a == nil || a.records == nil {
		return domain.ErrStoreNotConfigured
	}
	return mapStorageErr(a.records.PutBlueprint(ctx, blueprintToRecord(blueprint)))
}

func (a *StoreAdapter) GetBlueprint(ctx context.Context, blueprintID string) (domain.Blueprint, error) {
	if a == nil || a.records == nil {
		return domain.Blueprint{}, domain.ErrStoreNotConfigured
	}
	record, err := a.records.GetBlueprint(ctx, blueprintID)
	if err != nil {
		return domain.Blueprint{}, mapStorageErr(err)
	}
	return blueprintFromRecord(record), nil
}

func (a *StoreAdapter) GetBlueprintByName(ctx context.Context, name string) (domain.Blueprint, error) {
	if a == nil || a.records == nil {
		return domain.Blueprint{}, domain.ErrStoreNotConfigured
	}
	record, err := a.records.GetBlueprintByName(ctx, name)
	if err != nil {
		return domain.Blueprint{}, mapStorageErr(err)
	}
	return blueprintFromRecord(record), nil
}

func (a *StoreAdapter) ListBlueprints(ctx context.Context) ([]domain.Blueprint, error) {
	if a == nil || a.records == nil {
		return nil, domain.ErrStoreNotConfigured
	}
	records, err := a.records.ListBlueprints(ctx)
	if err != nil {
		return nil, mapStorageErr(err)
	}
	blueprints := make([]domain.Blueprint, 0, len(records))
	for _, record := range records {
		blueprints = append(blueprints, blueprintFromRecord(record))
	}
	return blueprints, nil
}

func (a *StoreAdapter) UpdateBlueprint(ctx context.Context, blueprint domain.Blueprint) error {
	if a == nil || a.records == nil {
		return domain.ErrStoreNotConfigured
	}
	return mapStorageErr(a.records.UpdateBlueprint(ctx, blueprintToRecord(blueprint)))
}

func (a *StoreAdapter) DeleteBlueprint(ctx context.Context, blueprintID string) error {
	if a == nil || a.records == nil {
		return domain.ErrStoreNotConfigured
	}
	return mapStorageErr(a.records.DeleteBlueprint(ctx, blueprintID))
}

func (a *StoreAdapter) CreateJob(ctx context.Context, job domain.Job) error {
	if a == nil || a.records == nil {
		return domain.ErrStoreNotConfigured
	}
	return mapStorageErr(a.records.PutJob(ctx, jobToRecord(job)))
}

func (a *StoreAdapter) GetJob(ctx context.Context, jobID string) (domain.Job, error) {
	if a == nil || a.records == nil {
		return domain.Job{}, domain.ErrStoreNotConfigured
	}
	record, err := a.records.GetJob(ctx, jobID)
	if err != nil {
		return domain.Job{}, mapStorageErr(err)
	}
	return jobFromRecord(record), nil
}

func (a *StoreAdapter) ListJobsByOwner(ctx context.Context, ownerID string) ([]domain.Job, error) {
	if a == nil || a.records == nil {
		return nil, domain.ErrStoreNotConfigured
	}
	records, err := a.records.ListJobsByOwner(ctx, ownerID)
	if err != nil {
		return nil, mapStorageErr(err)
	}
	return jobsFromRecords(records), nil
}

func (a *StoreAdapter) ListJobsByLocation(ctx context.Context, locationID string) ([]domain.Job, error) {
	if a == nil || a.records == nil {
		return nil, domain.ErrStoreNotConfigured
	}
	records, err := a.records.ListJobsByLocation(ctx, locationID)
	if err != nil {
		return nil, mapStorageErr(err)
	}
	return jobsFromRecords(records), nil
}

func (a *StoreAdapter) ListActiveJobs(ctx context.Context) ([]domain.Job, error) {
	if a == nil || a.records == nil {
		return nil, domain.ErrStoreNotConfigured
	}
	records, err := a.records.ListActiveJobs(ctx)
	if err != nil {
		return nil, mapStorageErr(err)
	}
	return jobsFromRecords(records), nil
}

func (a *StoreAdapter) ListJobsNeedingNotification(ctx context.Context, now time.Time) ([]domain.Job, error) {
	if a == nil || a.records == nil {
		return nil, domain.ErrStoreNotConfigured
	}
	records, err := a.records.ListJobsNeedingNotification(ctx, now)
	if err != nil {
		return nil, mapStorageErr(err)
	}
	return jobsFromRecords(records), nil
}

func (a *StoreAdapter) MarkReady(ctx context.Context, jobID string) (bool, error) {
	if a == nil || a.records == nil {
		return false, domain.ErrStoreNotConfigured
	}
	changed, err := a.records.MarkReady(ctx, jobID)
	return changed, mapStorageErr(err)
}

func (a *StoreAdapter) MarkNotified(ctx context.Context, jobID string) (bool, error) {
	if a == nil || a.records == nil {
		return false, domain.ErrStoreNotConfigured
	}
	changed, err := a.records.MarkNotified(ctx, jobID)
	return changed, mapStorageErr(err)
}

func (a *StoreAdapter) MarkCollected(ctx context.Context, jobID string, collectedAt time.Time) (bool, error) {
	if a == nil || a.records == nil {
		return false, domain.ErrStoreNotConfigured
	}
	changed, err := a.records.MarkCollected(ctx, jobID, collectedAt)
	return changed, mapStorageErr(err)
}

func mapStorageErr(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, storage.ErrNotFound):
		return fmt.Errorf("%w: %v", domain.ErrNotFound, err)
	case errors.Is(err, storage.ErrHasActiveJobs):
		return fmt.Errorf("%w: %v", domain.ErrHasActiveJobs, err)
	case errors.Is(err, storage.ErrConflict):
		return fmt.Errorf("%w: %v", domain.ErrConflict, err)
	default:
		return err
	}
}

func locationToRecord(location domain.Location) storage.LocationRecord {
	return storage.LocationRecord{
		ID:               location.ID,
		Name:             location.Name,
		PhotoURL:         location.PhotoURL,
		Available:        location.Available,
		PersistChannelID: location.PersistentMessage.ChannelID,
		PersistMessageID: location.PersistentMessage.MessageID,
		CreatedAt:        location.CreatedAt,
		UpdatedAt:        location.UpdatedAt,
	}
}

func locationFromRecord(record storage.LocationRecord) domain.Location {
	return domain.Location{
		ID:        record.ID,
		Name:      record.Name,
		PhotoURL:  record.PhotoURL,
		Available: record.Available,
		PersistentMessage: domain.MessageRef{
			ChannelID: record.PersistChannelID,
			MessageID: record.PersistMessageID,
		},
		CreatedAt: record.CreatedAt,
		UpdatedAt: record.UpdatedAt,
	}
}

func blueprintToRecord(blueprint domain.Blueprint) storage.BlueprintRecord {
	return storage.BlueprintRecord{
		ID:              blueprint.ID,
		Name:            blueprint.Name,
		DurationMinutes: int(blueprint.Duration / time.Minute),
		IconURL:         blueprint.IconURL,
		CreatedAt:       blueprint.CreatedAt,
		UpdatedAt:       blueprint.UpdatedAt,
	}
}

func blueprintFromRecord(record storage.BlueprintRecord) domain.Blueprint {
	return domain.Blueprint{
		ID:        record.ID,
		Name:      record.Name,
		Duration:  time.Duration(record.DurationMinutes) * time.Minute,
		IconURL:   record.IconURL,
		CreatedAt: record.CreatedAt,
		UpdatedAt: record.UpdatedAt,
	}
}

func jobToRecord(job domain.Job) storage.JobRecord {
	return storage.JobRecord{
		ID:              job.ID,
		LocationID:      job.LocationID,
		BlueprintID:     job.BlueprintID,
		OwnerID:         job.OwnerID,
		OwnerName:       job.OwnerName,
		Note:            job.Note,
		NotifyChannelID: job.NotifyChannelID,
		PlacedAt:        job.PlacedAt,
		CollectedAt:     job.CollectedAt,
		Ready:           job.Ready,
		Collected:       job.Collected,
		Notified:        job.Notified,
	}
}

func jobFromRecord(record storage.JobRecord) domain.Job {
	return domain.Job{
		ID:              record.ID,
		LocationID:      record.LocationID,
		LocationName:    record.LocationName,
		BlueprintID:     record.BlueprintID,
		BlueprintName:   record.BlueprintName,
		Duration:        time.Duration(record.DurationMinutes) * time.Minute,
		OwnerID:         record.OwnerID,
		OwnerName:       record.OwnerName,
		Note:            record.Note,
		NotifyChannelID: record.NotifyChannelID,
		PlacedAt:        record.PlacedAt,
		CollectedAt:     record.CollectedAt,
		Ready:           record.Ready,
		Collected:       record.Collected,
		Notified:        record.Notified,
	}
}

func jobsFromRecords(records []storage.JobRecord) []domain.Job {
	jobs := make([]domain.Job, 0, len(records))
	for _, record := range records {
		jobs = append(jobs, jobFromRecord(record))
	}
	return jobs
}
