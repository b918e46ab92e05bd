package domain

import "errors"

var (
	// ErrNotFound indicates a referenced location, blueprint, or job is missing.
	ErrNotFound = errors.New("record not found")
	// ErrConflict indicates a write collided with a uniqueness constraint.
	ErrConflict = errors.New("record conflict")
	// ErrHasActiveJobs indicates a delete was refused because non-collected
	// jobs still reference the entity.
	ErrHasActiveJobs = errors.New("entity has active jobs")
	// ErrStoreNotConfigured indicates the service is missing persistence wiring.
	ErrStoreNotConfigured = errors.New("tracker store is not configured")
	// ErrNameRequired indicates a location or blueprint name is required.
	ErrNameRequired = errors.New("name is required")
	// ErrDurationInvalid indicates a blueprint duration must be a positive
	// whole number of minutes.
	ErrDurationInvalid = errors.New("duration must be a positive number of minutes")
	// ErrOwnerRequired indicates the job owner identity is required.
	ErrOwnerRequired = errors.New("job owner is required")
	// ErrLocationRequired indicates a location reference is required.
	ErrLocationRequired = errors.New("location is required")
	// ErrBlueprintRequired indicates a blueprint reference is required.
	ErrBlueprintRequired = errors.New("blueprint is required")
	// ErrLocationUnavailable indicates the location is closed for new jobs.
	ErrLocationUnavailable = errors.New("location is unavailable")
	// ErrDuplicateSubmission indicates an identical start-job request is
	// already in flight. Advisory debounce, not a persistence conflict.
	ErrDuplicateSubmission = errors.New("duplicate submission in flight")
	// ErrJobIDRequired indicates a job id is required.
	ErrJobIDRequired = errors.New("job id is required")
)
