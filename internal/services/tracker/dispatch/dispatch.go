// Package dispatch polls for fabrication jobs whose timers have elapsed
// and announces each one exactly once.
package dispatch

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/duskfall-rp/fabricator/internal/services/tracker/domain"
)

// Announcement carries everything an outbound channel needs to tell an
// owner their job is done.
type Announcement struct {
	JobID         string
	OwnerID       string
	OwnerName     string
	LocationName  string
	BlueprintName string
	ChannelID     string
	PlacedAt      time.Time
	CompletedAt   time.Time
}

// Announcer delivers a completion announcement. Implementations must
// return a non-nil error when delivery did not happen, so the job is
// retried on the next tick.
type Announcer interface {
	Announce(ctx context.Context, announcement Announcement) error
}

// Store is the slice of job storage the dispatcher needs.
type Store interface {
	ListJobsNeedingNotification(ctx context.Context, now time.Time) ([]domain.Job, error)
	MarkReady(ctx context.Context, jobID string) (bool, error)
	MarkNotified(ctx context.Context, jobID string) (bool, error)
}

// Config controls the polling dispatcher.
type Config struct {
	// PollInterval is how often elapsed jobs are swept. Zero or
	// negative values fall back to one minute.
	PollInterval time.Duration
	// Clock returns the current time. Defaults to time.Now.
	Clock func() time.Time
	// Logger receives per-tick failures. Defaults to log.Printf.
	Logger func(format string, args ...any)
}

func (c Config) normalized() Config {
	if c.PollInterval <= 0 {
		c.PollInterval = time.Minute
	}
	if c.Clock == nil {
		c.Clock = time.Now
	}
	if c.Logger == nil {
		c.Logger = log.Printf
	}
	return c
}

// Dispatcher sweeps the store on a fixed interval and pushes one
// announcement per newly completed job.
type Dispatcher struct {
	store     Store
	announcer Announcer
	cfg       Config
	cron      *cron.Cron
}

// New builds a dispatcher. The announcer may be nil: jobs without a
// notification target are still marked notified, while jobs with one
// stay unnotified until an announcer can deliver.
func New(store Store, announcer Announcer, cfg Config) (*Dispatcher, error) {
	if store == nil {
		return nil, errors.New("dispatch: store is required")
	}
	return &Dispatcher{store: store, announcer: announcer, cfg: cfg.normalized()}, nil
}

// Run starts the polling schedule and blocks until ctx is done. A tick
// that is still in flight suppresses the next one instead of stacking.
func (d *Dispatcher) Run(ctx context.Context) error {
	if d == nil {
		return errors.New("dispatch: dispatcher is not configured")
	}

	runner := cron.New(cron.WithChain(
		cron.SkipIfStillRunning(cron.DiscardLogger),
	))
	runner.Schedule(cron.Every(d.cfg.PollInterval), cron.FuncJob(func() {
		if err := d.Tick(ctx); err != nil {
			d.cfg.Logger("dispatch tick: %v", err)
		}
	}))
	d.cron = runner

	runner.Start()
	<-ctx.Done()
	stopped := runner.Stop()
	<-stopped.Done()
	return ctx.Err()
}

// Tick runs one sweep: every job past its completion time is flipped to
// ready and announced. Failures on one job never block the others, and
// the notified flag is only set after the announcement went out, so a
// failed send is retried on a later tick.
func (d *Dispatcher) Tick(ctx context.Context) error {
	if d == nil || d.store == nil {
		return errors.New("dispatch: dispatcher is not configured")
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	now := d.cfg.Clock().UTC()
	jobs, err := d.store.ListJobsNeedingNotification(ctx, now)
	if err != nil {
		return fmt.Errorf("list jobs needing notification: %w", err)
	}

	var failures []error
	for _, job := range jobs {
		if err := ctx.Err(); err != nil {
			failures = append(failures, err)
			break
		}
		if err := d.dispatchJob(ctx, job); err != nil {
			failures = append(failures, fmt.Errorf("job %s: %w", job.ID, err))
		}
	}
	return errors.Join(failures...)
}

func (d *Dispatcher) dispatchJob(ctx context.Context, job domain.Job) error {
	if _, err := d.store.MarkReady(ctx, job.ID); err != nil {
		return fmt.Errorf("mark ready: %w", err)
	}

	if job.NotifyChannelID != "" {
		// A job with a captured target is only settled by a confirmed
		// send. Without an announcer it stays unnotified and delivers
		// once a session exists.
		if d.announcer == nil {
			return nil
		}
		err := d.announcer.Announce(ctx, Announcement{
			JobID:         job.ID,
			OwnerID:       job.OwnerID,
			OwnerName:     job.OwnerName,
			LocationName:  job.LocationName,
			BlueprintName: job.BlueprintName,
			ChannelID:     job.NotifyChannelID,
			PlacedAt:      job.PlacedAt,
			CompletedAt:   job.CompletionTime(),
		})
		if err != nil {
			return fmt.Errorf("announce: %w", err)
		}
	}

	if _, err := d.store.MarkNotified(ctx, job.ID); err != nil {
		return fmt.Errorf("mark notified: %w", err)
	}
	return nil
}
