// Package maintenance provides bulk corrective operations against the
// tracker database: silencing notification backlogs, pruning collected
// history, and removing a single owner's jobs.
package maintenance

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"

	"github.com/duskfall-rp/fabricator/internal/services/tracker/storage/sqlite"
)

// Config holds maintenance command configuration.
type Config struct {
	DBPath          string
	Timeout         time.Duration
	MarkAllNotified bool
	DeleteCollected bool
	DeleteOwnerJobs string
	JSONOutput      bool
}

type envConfig struct {
	DBPath  string        `env:"FABRICATOR_TRACKER_DB_PATH"`
	Timeout time.Duration `env:"FABRICATOR_MAINTENANCE_TIMEOUT" envDefault:"10m"`
}

// ParseConfig parses environment and flags into a Config.
func ParseConfig(fs *flag.FlagSet, args []string) (Config, error) {
	var envCfg envConfig
	if err := env.Parse(&envCfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}

	cfg := Config{
		DBPath:  envCfg.DBPath,
		Timeout: envCfg.Timeout,
	}
	if cfg.DBPath == "" {
		cfg.DBPath = filepath.Join("data", "fabricator.db")
	}

	fs.StringVar(&cfg.DBPath, "db-path", cfg.DBPath, "path to tracker sqlite database (default: FABRICATOR_TRACKER_DB_PATH or data/fabricator.db)")
	fs.BoolVar(&cfg.MarkAllNotified, "mark-all-notified", false, "mark every uncollected job as notified, silencing the announcement backlog")
	fs.BoolVar(&cfg.DeleteCollected, "delete-collected", false, "delete all collected job rows")
	fs.StringVar(&cfg.DeleteOwnerJobs, "delete-owner-jobs", "", "delete every job belonging to the given owner id")
	fs.BoolVar(&cfg.JSONOutput, "json", false, "output a JSON report")
	fs.DurationVar(&cfg.Timeout, "timeout", cfg.Timeout, "overall timeout")
	if err := fs.Parse(args); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Report summarizes what one maintenance run changed.
type Report struct {
	Operation    string `json:"operation"`
	RowsAffected int64  `json:"rows_affected"`
}

// Run executes exactly one maintenance operation against the database at
// cfg.DBPath.
func Run(ctx context.Context, cfg Config, out io.Writer, errOut io.Writer) error {
	if out == nil {
		out = io.Discard
	}
	if errOut == nil {
		errOut = io.Discard
	}

	if err := validate(cfg); err != nil {
		return err
	}

	store, err := sqlite.Open(cfg.DBPath)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer func() {
		if err := store.Close(); err != nil {
			fmt.Fprintf(errOut, "close store: %v\n", err)
		}
	}()

	report, err := runWithStore(ctx, cfg, store)
	if err != nil {
		return err
	}
	return writeReport(out, cfg, report)
}

func validate(cfg Config) error {
	operations := 0
	if cfg.MarkAllNotified {
		operations++
	}
	if cfg.DeleteCollected {
		operations++
	}
	if strings.TrimSpace(cfg.DeleteOwnerJobs) != "" {
		operations++
	}
	switch operations {
	case 0:
		return errors.New("one of -mark-all-notified, -delete-collected, or -delete-owner-jobs is required")
	case 1:
		return nil
	default:
		return errors.New("only one maintenance operation may run at a time")
	}
}

func runWithStore(ctx context.Context, cfg Config, store maintenanceStore) (Report, error) {
	switch {
	case cfg.MarkAllNotified:
		marked, err := store.MarkAllNotified(ctx)
		if err != nil {
			return Report{}, fmt.Errorf("mark all notified: %w", err)
		}
		return Report{Operation: "mark-all-notified", RowsAffected: marked}, nil
	case cfg.DeleteCollected:
		deleted, err := store.DeleteCollectedJobs(ctx)
		if err != nil {
			return Report{}, fmt.Errorf("delete collected jobs: %w", err)
		}
		return Report{Operation: "delete-collected", RowsAffected: deleted}, nil
	default:
		ownerID := strings.TrimSpace(cfg.DeleteOwnerJobs)
		deleted, err := store.DeleteJobsByOwner(ctx, ownerID)
		if err != nil {
			return Report{}, fmt.Errorf("delete jobs for owner %s: %w", ownerID, err)
		}
		return Report{Operation: "delete-owner-jobs", RowsAffected: deleted}, nil
	}
}

func writeReport(out io.Writer, cfg Config, report Report) error {
	if cfg.JSONOutput {
		encoder := json.NewEncoder(out)
		encoder.SetIndent("", "  ")
		return encoder.Encode(report)
	}
	_, err := fmt.Fprintf(out, "%s: %d rows affected\n", report.Operation, report.RowsAffected)
	return err
}
