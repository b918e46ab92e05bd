// Package sqlite provides SQLite-backed persistence for fabrication
// tracking state.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	sqlitemigrate "github.com/duskfall-rp/fabricator/internal/platform/storage/sqlitemigrate"
	"github.com/duskfall-rp/fabricator/internal/services/tracker/storage"
	"github.com/duskfall-rp/fabricator/internal/services/tracker/storage/sqlite/migrations"
	_ "modernc.org/sqlite"
)

// Store provides SQLite-backed persistence for tracker state.
type Store struct {
	sqlDB *sql.DB
}

func toMillis(value time.Time) int64 {
	return value.UTC().UnixMilli()
}

func fromMillis(value int64) time.Time {
	return time.UnixMilli(value).UTC()
}

// Open opens a tracker SQLite store at the provided path.
func Open(path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("storage path is required")
	}

	cleanPath := filepath.Clean(path)
	dsn := cleanPath + "?_journal_mode=WAL&_busy_timeout=5000&_synchronous=NORMAL&_pragma=foreign_keys(ON)"
	sqlDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	if err := sqlDB.Ping(); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	if err := ensureForeignKeysEnabled(sqlDB); err != nil {
		_ = sqlDB.Close()
		return nil, err
	}

	store := &Store{sqlDB: sqlDB}
	if err := sqlitemigrate.ApplyMigrations(sqlDB, migrations.FS, ""); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	return store, nil
}

// Close closes the underlying SQLite database.
func (s *Store) Close() error {
	if s == nil || s.sqlDB == nil {
		return nil
	}
	return s.sqlDB.Close()
}

func ensureForeignKeysEnabled(db *sql.DB) error {
	if db == nil {
		return fmt.Errorf("sqlite db is required")
	}
	var enabled int
	if err := db.QueryRow("PRAGMA foreign_keys").Scan(&enabled); err != nil {
		return fmt.Errorf("check sqlite foreign key pragma: %w", err)
	}
	if enabled != 1 {
		return fmt.Errorf("sqlite foreign keys are disabled")
	}
	return nil
}

// PutLocation inserts one location row.
func (s *Store) PutLocation(ctx context.Context, record storage.LocationRecord) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil || s.sqlDB == nil {
		return fmt.Errorf("storage is not configured")
	}
	normalized, err := normalizeLocationRecord(record)
	if err != nil {
		return err
	}

	_, err = s.sqlDB.ExecContext(ctx, `
INSERT INTO locations (
	id, name, photo_url, available, persist_channel_id, persist_message_id, created_at, updated_at
) VALUES (?, ?, ?, ?, ?, ?, ?, ?)
`,
		normalized.ID,
		normalized.Name,
		normalized.PhotoURL,
		boolToInt(normalized.Available),
		normalized.PersistChannelID,
		normalized.PersistMessageID,
		toMillis(normalized.CreatedAt),
		toMillis(normalized.UpdatedAt),
	)
	if err != nil {
		if isUniqueConstraintError(err) {
			return storage.ErrConflict
		}
		return fmt.Errorf("put location: %w", err)
	}
	return nil
}

// GetLocation loads one location row by id.
func (s *Store) GetLocation(ctx context.Context, locationID string) (storage.LocationRecord, error) {
	if err := ctx.Err(); err != nil {
		return storage.LocationRecord{}, err
	}
	if s == nil || s.sqlDB == nil {
		return storage.LocationRecord{}, fmt.Errorf("storage is not configured")
	}
	locationID = strings.TrimSpace(locationID)
	if locationID == "" {
		return storage.LocationRecord{}, fmt.Errorf("location id is required")
	}

	row := s.sqlDB.QueryRowContext(ctx, locationSelect+` WHERE id = ?`, locationID)
	record, err := scanLocation(row.Scan)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return storage.LocationRecord{}, storage.ErrNotFound
		}
		return storage.LocationRecord{}, fmt.Errorf("get location: %w", err)
	}
	return record, nil
}

// GetLocationByName loads one location row by its unique name.
func (s *Store) GetLocationByName(ctx context.Context, name string) (storage.LocationRecord, error) {
	if err := ctx.Err(); err != nil {
		return storage.LocationRecord{}, err
	}
	if s == nil || s.sqlDB == nil {
		return storage.LocationRecord{}, fmt.Errorf("storage is not configured")
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return storage.LocationRecord{}, fmt.Errorf("location name is required")
	}

	row := s.sqlDB.QueryRowContext(ctx, locationSelect+` WHERE name = ?`, name)
	record, err := scanLocation(row.Scan)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return storage.LocationRecord{}, storage.ErrNotFound
		}
		return storage.LocationRecord{}, fmt.Errorf("get location by name: %w", err)
	}
	return record, nil
}

// ListLocations lists every location row ordered by name.
func (s *Store) ListLocations(ctx context.Context) ([]storage.LocationRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s == nil || s.sqlDB == nil {
		return nil, fmt.Errorf("storage is not configured")
	}

	rows, err := s.sqlDB.QueryContext(ctx, locationSelect+` ORDER BY name ASC`)
	if err != nil {
		return nil, fmt.Errorf("list locations: %w", err)
	}
	defer rows.Close()

	var results []storage.LocationRecord
	for rows.Next() {
		record, scanErr := scanLocation(rows.Scan)
		if scanErr != nil {
			return nil, fmt.Errorf("scan location row: %w", scanErr)
		}
		results = append(results, record)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate location rows: %w", err)
	}
	return results, nil
}

// UpdateLocation rewrites one location row.
func (s *Store) UpdateLocation(ctx context.Context, record storage.LocationRecord) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil || s.sqlDB == nil {
		return fmt.Errorf("storage is not configured")
	}
	normalized, err := normalizeLocationRecord(record)
	if err != nil {
		return err
	}

	result, err := s.sqlDB.ExecContext(ctx, `
UPDATE locations
SET name = ?, photo_url = ?, available = ?, persist_channel_id = ?, persist_message_id = ?, updated_at = ?
WHERE id = ?
`,
		normalized.Name,
		normalized.PhotoURL,
		boolToInt(normalized.Available),
		normalized.PersistChannelID,
		normalized.PersistMessageID,
		toMillis(normalized.UpdatedAt),
		normalized.ID,
	)
	if err != nil {
		if isUniqueConstraintError(err) {
			return storage.ErrConflict
		}
		return fmt.Errorf("update location: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("update location rows affected: %w", err)
	}
	if affected == 0 {
		return storage.ErrNotFound
	}
	return nil
}

// DeleteLocation removes one location and all its job rows atomically. The
// delete is refused while any referencing job is not yet collected.
func (s *Store) DeleteLocation(ctx context.Context, locationID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil || s.sqlDB == nil {
		return fmt.Errorf("storage is not configured")
	}
	locationID = strings.TrimSpace(locationID)
	if locationID == "" {
		return fmt.Errorf("location id is required")
	}

	tx, err := s.sqlDB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin location delete: %w", err)
	}
	rollbackWith := func(cause error) error {
		if rollbackErr := tx.Rollback(); rollbackErr != nil {
			return fmt.Errorf("%w: rollback location delete: %v", cause, rollbackErr)
		}
		return cause
	}

	var activeJobs int
	if err := tx.QueryRowContext(ctx, `
SELECT COUNT(1) FROM jobs WHERE location_id = ? AND collected = 0
`, locationID).Scan(&activeJobs); err != nil {
		return rollbackWith(fmt.Errorf("count active jobs for location: %w", err))
	}
	if activeJobs > 0 {
		return rollbackWith(storage.ErrHasActiveJobs)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM jobs WHERE location_id = ?`, locationID); err != nil {
		return rollbackWith(fmt.Errorf("delete location jobs: %w", err))
	}
	result, err := tx.ExecContext(ctx, `DELETE FROM locations WHERE id = ?`, locationID)
	if err != nil {
		return rollbackWith(fmt.Errorf("delete location: %w", err))
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return rollbackWith(fmt.Errorf("delete location rows affected: %w", err))
	}
	if affected == 0 {
		return rollbackWith(storage.ErrNotFound)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit location delete: %w", err)
	}
	return nil
}

// PutBlueprint inserts one blueprint row.
func (s *Store) PutBlueprint(ctx context.Context, record storage.BlueprintRecord) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil || s.sqlDB == nil {
		return fmt.Errorf("storage is not configured")
	}
	normalized, err := normalizeBlueprintRecord(record)
	if err != nil {
		return err
	}

	_, err = s.sqlDB.ExecContext(ctx, `
INSERT INTO blueprints (
	id, name, duration_minutes, icon_url, created_at, updated_at
) VALUES (?, ?, ?, ?, ?, ?)
`,
		normalized.ID,
		normalized.Name,
		normalized.DurationMinutes,
		normalized.IconURL,
		toMillis(normalized.CreatedAt),
		toMillis(normalized.UpdatedAt),
	)
	if err != nil {
		if isUniqueConstraintError(err) {
			return storage.ErrConflict
		}
		return fmt.Errorf("put blueprint: %w", err)
	}
	return nil
}

// GetBlueprint loads one blueprint row by id.
func (s *Store) GetBlueprint(ctx context.Context, blueprintID string) (storage.BlueprintRecord, error) {
	if err := ctx.Err(); err != nil {
		return storage.BlueprintRecord{}, err
	}
	if s == nil || s.sqlDB == nil {
		return storage.BlueprintRecord{}, fmt.Errorf("storage is not configured")
	}
	blueprintID = strings.TrimSpace(blueprintID)
	if blueprintID == "" {
		return storage.BlueprintRecord{}, fmt.Errorf("blueprint id is required")
	}

	row := s.sqlDB.QueryRowContext(ctx, blueprintSelect+` WHERE id = ?`, blueprintID)
	record, err := scanBlueprint(row.Scan)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return storage.BlueprintRecord{}, storage.ErrNotFound
		}
		return storage.BlueprintRecord{}, fmt.Errorf("get blueprint: %w", err)
	}
	return record, nil
}

// GetBlueprintByName loads one blueprint row by its unique name.
func (s *Store) GetBlueprintByName(ctx context.Context, name string) (storage.BlueprintRecord, error) {
	if err := ctx.Err(); err != nil {
		return storage.BlueprintRecord{}, err
	}
	if s == nil || s.sqlDB == nil {
		return storage.BlueprintRecord{}, fmt.Errorf("storage is not configured")
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return storage.BlueprintRecord{}, fmt.Errorf("blueprint name is required")
	}

	row := s.sqlDB.QueryRowContext(ctx, blueprintSelect+` WHERE name = ?`, name)
	record, err := scanBlueprint(row.Scan)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return storage.BlueprintRecord{}, storage.ErrNotFound
		}
		return storage.BlueprintRecord{}, fmt.Errorf("get blueprint by name: %w", err)
	}
	return record, nil
}

// ListBlueprints lists every blueprint row ordered by name.
func (s *Store) ListBlueprints(ctx context.Context) ([]storage.BlueprintRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s == nil || s.sqlDB == nil {
		return nil, fmt.Errorf("storage is not configured")
	}

	rows, err := s.sqlDB.QueryContext(ctx, blueprintSelect+` ORDER BY name ASC`)
	if err != nil {
		return nil, fmt.Errorf("list blueprints: %w", err)
	}
	defer rows.Close()

	var results []storage.BlueprintRecord
	for rows.Next() {
		record, scanErr := scanBlueprint(rows.Scan)
		if scanErr != nil {
			return nil, fmt.Errorf("scan blueprint row: %w", scanErr)
		}
		results = append(results, record)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate blueprint rows: %w", err)
	}
	return results, nil
}

// UpdateBlueprint rewrites one blueprint row.
func (s *Store) UpdateBlueprint(ctx context.Context, record storage.BlueprintRecord) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil || s.sqlDB == nil {
		return fmt.Errorf("storage is not configured")
	}
	normalized, err := normalizeBlueprintRecord(record)
	if err != nil {
		return err
	}

	result, err := s.sqlDB.ExecContext(ctx, `
UPDATE blueprints
SET name = ?, duration_minutes = ?, icon_url = ?, updated_at = ?
WHERE id = ?
`,
		normalized.Name,
		normalized.DurationMinutes,
		normalized.IconURL,
		toMillis(normalized.UpdatedAt),
		normalized.ID,
	)
	if err != nil {
		if isUniqueConstraintError(err) {
			return storage.ErrConflict
		}
		return fmt.Errorf("update blueprint: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("update blueprint rows affected: %w", err)
	}
	if affected == 0 {
		return storage.ErrNotFound
	}
	return nil
}

// DeleteBlueprint removes one blueprint row. Unlike location deletion this
// never cascades: it is refused while non-collected jobs reference the
// blueprint, and collected job history also blocks it at the foreign key.
func (s *Store) DeleteBlueprint(ctx context.Context, blueprintID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil || s.sqlDB == nil {
		return fmt.Errorf("storage is not configured")
	}
	blueprintID = strings.TrimSpace(blueprintID)
	if blueprintID == "" {
		return fmt.Errorf("blueprint id is required")
	}

	var activeJobs int
	if err := s.sqlDB.QueryRowContext(ctx, `
SELECT COUNT(1) FROM jobs WHERE blueprint_id = ? AND collected = 0
`, blueprintID).Scan(&activeJobs); err != nil {
		return fmt.Errorf("count active jobs for blueprint: %w", err)
	}
	if activeJobs > 0 {
		return storage.ErrHasActiveJobs
	}

	result, err := s.sqlDB.ExecContext(ctx, `DELETE FROM blueprints WHERE id = ?`, blueprintID)
	if err != nil {
		if isForeignKeyConstraintError(err) {
			return storage.ErrConflict
		}
		return fmt.Errorf("delete blueprint: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete blueprint rows affected: %w", err)
	}
	if affected == 0 {
		return storage.ErrNotFound
	}
	return nil
}

// PutJob inserts one job row. Unknown location or blueprint references are
// rejected at the foreign key and surface as ErrNotFound.
func (s *Store) PutJob(ctx context.Context, record storage.JobRecord) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil || s.sqlDB == nil {
		return fmt.Errorf("storage is not configured")
	}
	normalized, err := normalizeJobRecord(record)
	if err != nil {
		return err
	}

	var collectedAt sql.NullInt64
	if normalized.CollectedAt != nil {
		collectedAt = sql.NullInt64{Int64: toMillis(*normalized.CollectedAt), Valid: true}
	}

	_, err = s.sqlDB.ExecContext(ctx, `
INSERT INTO jobs (
	id, location_id, blueprint_id, owner_id, owner_name, note, notify_channel_id,
	placed_at, collected_at, ready, collected, notified
) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
`,
		normalized.ID,
		normalized.LocationID,
		normalized.BlueprintID,
		normalized.OwnerID,
		normalized.OwnerName,
		normalized.Note,
		normalized.NotifyChannelID,
		toMillis(normalized.PlacedAt),
		collectedAt,
		boolToInt(normalized.Ready),
		boolToInt(normalized.Collected),
		boolToInt(normalized.Notified),
	)
	if err != nil {
		if isForeignKeyConstraintError(err) {
			return storage.ErrNotFound
		}
		if isUniqueConstraintError(err) {
			return storage.ErrConflict
		}
		return fmt.Errorf("put job: %w", err)
	}
	return nil
}

// GetJob loads one job row by id with its joined names and duration.
func (s *Store) GetJob(ctx context.Context, jobID string) (storage.JobRecord, error) {
	if err := ctx.Err(); err != nil {
		return storage.JobRecord{}, err
	}
	if s == nil || s.sqlDB == nil {
		return storage.JobRecord{}, fmt.Errorf("storage is not configured")
	}
	jobID = strings.TrimSpace(jobID)
	if jobID == "" {
		return storage.JobRecord{}, fmt.Errorf("job id is required")
	}

	row := s.sqlDB.QueryRowContext(ctx, jobSelect+` WHERE j.id = ?`, jobID)
	record, err := scanJob(row.Scan)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return storage.JobRecord{}, storage.ErrNotFound
		}
		return storage.JobRecord{}, fmt.Errorf("get job: %w", err)
	}
	return record, nil
}

// ListJobsByOwner lists one member's jobs newest-first.
func (s *Store) ListJobsByOwner(ctx context.Context, ownerID string) ([]storage.JobRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s == nil || s.sqlDB == nil {
		return nil, fmt.Errorf("storage is not configured")
	}
	ownerID = strings.TrimSpace(ownerID)
	if ownerID == "" {
		return nil, fmt.Errorf("owner id is required")
	}

	rows, err := s.sqlDB.QueryContext(ctx, jobSelect+`
WHERE j.owner_id = ?
ORDER BY j.placed_at DESC, j.id DESC
`, ownerID)
	if err != nil {
		return nil, fmt.Errorf("list jobs by owner: %w", err)
	}
	defer rows.Close()
	return collectJobs(rows)
}

// ListJobsByLocation lists the jobs placed at one location newest-first.
func (s *Store) ListJobsByLocation(ctx context.Context, locationID string) ([]storage.JobRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s == nil || s.sqlDB == nil {
		return nil, fmt.Errorf("storage is not configured")
	}
	locationID = strings.TrimSpace(locationID)
	if locationID == "" {
		return nil, fmt.Errorf("location id is required")
	}

	rows, err := s.sqlDB.QueryContext(ctx, jobSelect+`
WHERE j.location_id = ?
ORDER BY j.placed_at DESC, j.id DESC
`, locationID)
	if err != nil {
		return nil, fmt.Errorf("list jobs by location: %w", err)
	}
	defer rows.Close()
	return collectJobs(rows)
}

// ListActiveJobs lists every non-collected job newest-first.
func (s *Store) ListActiveJobs(ctx context.Context) ([]storage.JobRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s == nil || s.sqlDB == nil {
		return nil, fmt.Errorf("storage is not configured")
	}

	rows, err := s.sqlDB.QueryContext(ctx, jobSelect+`
WHERE j.collected = 0
ORDER BY j.placed_at DESC, j.id DESC
`)
	if err != nil {
		return nil, fmt.Errorf("list active jobs: %w", err)
	}
	defer rows.Close()
	return collectJobs(rows)
}

// ListJobsNeedingNotification lists jobs whose timer has elapsed at now
// and that are neither collected nor notified. The ready flag is not part
// of the predicate: a job whose announcement failed stays in the result
// until a send succeeds.
func (s *Store) ListJobsNeedingNotification(ctx context.Context, now time.Time) ([]storage.JobRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s == nil || s.sqlDB == nil {
		return nil, fmt.Errorf("storage is not configured")
	}
	if now.IsZero() {
		return nil, fmt.Errorf("now is required")
	}

	rows, err := s.sqlDB.QueryContext(ctx, jobSelect+`
WHERE j.collected = 0
  AND j.notified = 0
  AND (j.placed_at + b.duration_minutes * 60000) <= ?
`, toMillis(now))
	if err != nil {
		return nil, fmt.Errorf("list jobs needing notification: %w", err)
	}
	defer rows.Close()
	return collectJobs(rows)
}

// MarkReady sets the ready flag on one job. Re-marking is a no-op.
func (s *Store) MarkReady(ctx context.Context, jobID string) (bool, error) {
	return s.markFlag(ctx, jobID, `UPDATE jobs SET ready = 1 WHERE id = ? AND ready = 0`, "mark ready")
}

// MarkNotified sets the notified flag on one job. The flag never goes back
// to false; re-marking is a no-op.
func (s *Store) MarkNotified(ctx context.Context, jobID string) (bool, error) {
	return s.markFlag(ctx, jobID, `UPDATE jobs SET notified = 1 WHERE id = ? AND notified = 0`, "mark notified")
}

// MarkCollected sets the collected flag and collection timestamp on one job.
// Collecting also forces the ready flag so the stored state never shows a
// collected job that was never ready. Re-marking is a no-op and preserves
// the original collection timestamp.
func (s *Store) MarkCollected(ctx context.Context, jobID string, collectedAt time.Time) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	if s == nil || s.sqlDB == nil {
		return false, fmt.Errorf("storage is not configured")
	}
	jobID = strings.TrimSpace(jobID)
	if jobID == "" {
		return false, fmt.Errorf("job id is required")
	}
	if collectedAt.IsZero() {
		return false, fmt.Errorf("collected at is required")
	}

	result, err := s.sqlDB.ExecContext(ctx, `
UPDATE jobs
SET collected = 1, ready = 1, collected_at = ?
WHERE id = ? AND collected = 0
`, toMillis(collectedAt), jobID)
	if err != nil {
		return false, fmt.Errorf("mark collected: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("mark collected rows affected: %w", err)
	}
	if affected > 0 {
		return true, nil
	}
	if err := s.jobExists(ctx, jobID); err != nil {
		return false, err
	}
	return false, nil
}

func (s *Store) markFlag(ctx context.Context, jobID string, query string, operation string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	if s == nil || s.sqlDB == nil {
		return false, fmt.Errorf("storage is not configured")
	}
	jobID = strings.TrimSpace(jobID)
	if jobID == "" {
		return false, fmt.Errorf("job id is required")
	}

	result, err := s.sqlDB.ExecContext(ctx, query, jobID)
	if err != nil {
		return false, fmt.Errorf("%s: %w", operation, err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("%s rows affected: %w", operation, err)
	}
	if affected > 0 {
		return true, nil
	}
	if err := s.jobExists(ctx, jobID); err != nil {
		return false, err
	}
	return false, nil
}

func (s *Store) jobExists(ctx context.Context, jobID string) error {
	var found int
	if err := s.sqlDB.QueryRowContext(ctx, `SELECT 1 FROM jobs WHERE id = ?`, jobID).Scan(&found); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return storage.ErrNotFound
		}
		return fmt.Errorf("check job exists: %w", err)
	}
	return nil
}

// MarkAllNotified force-sets the notified flag on every non-collected job.
// Repair tooling only.
func (s *Store) MarkAllNotified(ctx context.Context) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	if s == nil || s.sqlDB == nil {
		return 0, fmt.Errorf("storage is not configured")
	}
	result, err := s.sqlDB.ExecContext(ctx, `UPDATE jobs SET notified = 1 WHERE notified = 0 AND collected = 0`)
	if err != nil {
		return 0, fmt.Errorf("mark all notified: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("mark all notified rows affected: %w", err)
	}
	return affected, nil
}

// DeleteCollectedJobs removes every collected job row. Repair tooling only.
func (s *Store) DeleteCollectedJobs(ctx context.Context) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	if s == nil || s.sqlDB == nil {
		return 0, fmt.Errorf("storage is not configured")
	}
	result, err := s.sqlDB.ExecContext(ctx, `DELETE FROM jobs WHERE collected = 1`)
	if err != nil {
		return 0, fmt.Errorf("delete collected jobs: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("delete collected jobs rows affected: %w", err)
	}
	return affected, nil
}

// DeleteJobsByOwner removes every job row belonging to one member. Repair
// tooling only.
func (s *Store) DeleteJobsByOwner(ctx context.Context, ownerID string) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	if s == nil || s.sqlDB == nil {
		return 0, fmt.Errorf("storage is not configured")
	}
	ownerID = strings.TrimSpace(ownerID)
	if ownerID == "" {
		return 0, fmt.Errorf("owner id is required")
	}
	result, err := s.sqlDB.ExecContext(ctx, `DELETE FROM jobs WHERE owner_id = ?`, ownerID)
	if err != nil {
		return 0, fmt.Errorf("delete jobs by owner: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("delete jobs by owner rows affected: %w", err)
	}
	return affected, nil
}

const locationSelect = `
SELECT id, name, photo_url, available, persist_channel_id, persist_message_id, created_at, updated_at
FROM locations`

const blueprintSelect = `
SELECT id, name, duration_minutes, icon_url, created_at, updated_at
FROM blueprints`

const jobSelect = `
SELECT j.id, j.location_id, j.blueprint_id, j.owner_id, j.owner_name, j.note, j.notify_channel_id,
       j.placed_at, j.collected_at, j.ready, j.collected, j.notified,
       l.name, b.name, b.duration_minutes
FROM jobs j
JOIN locations l ON l.id = j.location_id
JOIN blueprints b ON b.id = j.blueprint_id`

type scanner func(dest ...any) error

func normalizeLocationRecord(record storage.LocationRecord) (storage.LocationRecord, error) {
	record.ID = strings.TrimSpace(record.ID)
	record.Name = strings.TrimSpace(record.Name)
	record.PhotoURL = strings.TrimSpace(record.PhotoURL)
	record.PersistChannelID = strings.TrimSpace(record.PersistChannelID)
	record.PersistMessageID = strings.TrimSpace(record.PersistMessageID)
	if record.ID == "" {
		return storage.LocationRecord{}, fmt.Errorf("location id is required")
	}
	if record.Name == "" {
		return storage.LocationRecord{}, fmt.Errorf("location name is required")
	}
	if record.CreatedAt.IsZero() {
		return storage.LocationRecord{}, fmt.Errorf("created_at is required")
	}
	if record.UpdatedAt.IsZero() {
		return storage.LocationRecord{}, fmt.Errorf("updated_at is required")
	}
	record.CreatedAt = record.CreatedAt.UTC()
	record.UpdatedAt = record.UpdatedAt.UTC()
	return record, nil
}

func normalizeBlueprintRecord(record storage.BlueprintRecord) (storage.BlueprintRecord, error) {
	record.ID = strings.TrimSpace(record.ID)
	record.Name = strings.TrimSpace(record.Name)
	record.IconURL = strings.TrimSpace(record.IconURL)
	if record.ID == "" {
		return storage.BlueprintRecord{}, fmt.Errorf("blueprint id is required")
	}
	if record.Name == "" {
		return storage.BlueprintRecord{}, fmt.Errorf("blueprint name is required")
	}
	if record.DurationMinutes <= 0 {
		return storage.BlueprintRecord{}, fmt.Errorf("blueprint duration must be positive")
	}
	if record.CreatedAt.IsZero() {
		return storage.BlueprintRecord{}, fmt.Errorf("created_at is required")
	}
	if record.UpdatedAt.IsZero() {
		return storage.BlueprintRecord{}, fmt.Errorf("updated_at is required")
	}
	record.CreatedAt = record.CreatedAt.UTC()
	record.UpdatedAt = record.UpdatedAt.UTC()
	return record, nil
}

func normalizeJobRecord(record storage.JobRecord) (storage.JobRecord, error) {
	record.ID = strings.TrimSpace(record.ID)
	record.LocationID = strings.TrimSpace(record.LocationID)
	record.BlueprintID = strings.TrimSpace(record.BlueprintID)
	record.OwnerID = strings.TrimSpace(record.OwnerID)
	record.OwnerName = strings.TrimSpace(record.OwnerName)
	record.Note = strings.TrimSpace(record.Note)
	record.NotifyChannelID = strings.TrimSpace(record.NotifyChannelID)
	if record.ID == "" {
		return storage.JobRecord{}, fmt.Errorf("job id is required")
	}
	if record.LocationID == "" {
		return storage.JobRecord{}, fmt.Errorf("location id is required")
	}
	if record.BlueprintID == "" {
		return storage.JobRecord{}, fmt.Errorf("blueprint id is required")
	}
	if record.OwnerID == "" || record.OwnerName == "" {
		return storage.JobRecord{}, fmt.Errorf("job owner is required")
	}
	if record.PlacedAt.IsZero() {
		return storage.JobRecord{}, fmt.Errorf("placed_at is required")
	}
	record.PlacedAt = record.PlacedAt.UTC()
	if record.CollectedAt != nil {
		collectedAt := record.CollectedAt.UTC()
		record.CollectedAt = &collectedAt
	}
	return record, nil
}

func scanLocation(scan scanner) (storage.LocationRecord, error) {
	var record storage.LocationRecord
	var available int
	var createdAt int64
	var updatedAt int64
	if err := scan(
		&record.ID,
		&record.Name,
		&record.PhotoURL,
		&available,
		&record.PersistChannelID,
		&record.PersistMessageID,
		&createdAt,
		&updatedAt,
	); err != nil {
		return storage.LocationRecord{}, err
	}
	record.Available = available != 0
	record.CreatedAt = fromMillis(createdAt)
	record.UpdatedAt = fromMillis(updatedAt)
	return record, nil
}

func scanBlueprint(scan scanner) (storage.BlueprintRecord, error) {
	var record storage.BlueprintRecord
	var createdAt int64
	var updatedAt int64
	if err := scan(
		&record.ID,
		&record.Name,
		&record.DurationMinutes,
		&record.IconURL,
		&createdAt,
		&updatedAt,
	); err != nil {
		return storage.BlueprintRecord{}, err
	}
	record.CreatedAt = fromMillis(createdAt)
	record.UpdatedAt = fromMillis(updatedAt)
	return record, nil
}

func scanJob(scan scanner) (storage.JobRecord, error) {
	var record storage.JobRecord
	var placedAt int64
	var collectedAt sql.NullInt64
	var ready int
	var collected int
	var notified int
	if err := scan(
		&record.ID,
		&record.LocationID,
		&record.BlueprintID,
		&record.OwnerID,
		&record.OwnerName,
		&record.Note,
		&record.NotifyChannelID,
		&placedAt,
		&collectedAt,
		&ready,
		&collected,
		&notified,
		&record.LocationName,
		&record.BlueprintName,
		&record.DurationMinutes,
	); err != nil {
		return storage.JobRecord{}, err
	}
	record.PlacedAt = fromMillis(placedAt)
	if collectedAt.Valid {
		value := fromMillis(collectedAt.Int64)
		record.CollectedAt = &value
	}
	record.Ready = ready != 0
	record.Collected = collected != 0
	record.Notified = notified != 0
	return record, nil
}

func collectJobs(rows *sql.Rows) ([]storage.JobRecord, error) {
	var results []storage.JobRecord
	for rows.Next() {
		record, err := scanJob(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("scan job row: %w", err)
		}
		results = append(results, record)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate job rows: %w", err)
	}
	return results, nil
}

func boolToInt(value bool) int {
	if value {
		return 1
	}
	return 0
}

func isUniqueConstraintError(err error) bool {
	if err == nil {
		return false
	}
	value := strings.ToLower(err.Error())
	return strings.Contains(value, "unique constraint failed")
}

func isForeignKeyConstraintError(err error) bool {
	if err == nil {
		return false
	}
	value := strings.ToLower(err.Error())
	return strings.Contains(value, "foreign key constraint failed")
}
