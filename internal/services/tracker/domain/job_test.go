package domain

import (
	"testing"
	"time"
)

func TestStatusFollowsFlags(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name string
		job  Job
		want Status
	}{
		{name: "fresh job is pending", job: Job{}, want: StatusPending},
		{name: "ready flag wins over pending", job: Job{Ready: true}, want: StatusReady},
		{name: "collected is terminal", job: Job{Ready: true, Collected: true}, want: StatusCollected},
		{name: "collected without ready still reads collected", job: Job{Collected: true}, want: StatusCollected},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			if got := tc.job.Status(); got != tc.want {
				t.Fatalf("status = %q, want %q", got, tc.want)
			}
		})
	}
}

func TestStatusAtRecomputesFromTimestamps(t *testing.T) {
	t.Parallel()

	placed := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	job := Job{PlacedAt: placed, Duration: 10 * time.Minute}

	if got := job.StatusAt(placed.Add(5 * time.Minute)); got != StatusPending {
		t.Fatalf("status before completion = %q, want pending", got)
	}
	// The flag may lag behind the timer between dispatcher ticks; the
	// display path must not wait for it.
	if got := job.StatusAt(placed.Add(10 * time.Minute)); got != StatusReady {
		t.Fatalf("status at completion instant = %q, want ready", got)
	}
	if got := job.StatusAt(placed.Add(11 * time.Minute)); got != StatusReady {
		t.Fatalf("status after completion = %q, want ready", got)
	}

	job.Collected = true
	if got := job.StatusAt(placed.Add(time.Minute)); got != StatusCollected {
		t.Fatalf("collected job status = %q, want collected", got)
	}
}

func TestStatusNeverReverses(t *testing.T) {
	t.Parallel()

	placed := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	job := Job{PlacedAt: placed, Duration: 10 * time.Minute}

	rank := map[Status]int{StatusPending: 0, StatusReady: 1, StatusCollected: 2}
	previous := StatusPending
	for _, step := range []struct {
		at      time.Time
		mutate  func()
		comment string
	}{
		{at: placed, comment: "creation"},
		{at: placed.Add(9 * time.Minute), comment: "late pending"},
		{at: placed.Add(10 * time.Minute), comment: "timer elapsed"},
		{at: placed.Add(12 * time.Minute), mutate: func() { job.Ready = true }, comment: "flag persisted"},
		{at: placed.Add(15 * time.Minute), mutate: func() { job.Collected = true }, comment: "collected"},
	} {
		if step.mutate != nil {
			step.mutate()
		}
		got := job.StatusAt(step.at)
		if rank[got] < rank[previous] {
			t.Fatalf("status reversed from %q to %q at %s", previous, got, step.comment)
		}
		previous = got
	}
}

func TestCompletionTime(t *testing.T) {
	t.Parallel()

	placed := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	job := Job{PlacedAt: placed, Duration: 45 * time.Minute}
	want := placed.Add(45 * time.Minute)
	if got := job.CompletionTime(); !got.Equal(want) {
		t.Fatalf("completion time = %v, want %v", got, want)
	}
}

func TestProgressAt(t *testing.T) {
	t.Parallel()

	placed := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	job := Job{PlacedAt: placed, Duration: 10 * time.Minute}

	cases := []struct {
		name          string
		now           time.Time
		wantElapsed   int
		wantRemaining int
		wantPercent   float64
		wantComplete  bool
	}{
		{name: "at creation", now: placed, wantElapsed: 0, wantRemaining: 10, wantPercent: 0},
		{name: "halfway", now: placed.Add(5 * time.Minute), wantElapsed: 5, wantRemaining: 5, wantPercent: 50},
		{name: "partial minutes floor", now: placed.Add(5*time.Minute + 59*time.Second), wantElapsed: 5, wantRemaining: 5, wantPercent: 50},
		{name: "exactly complete", now: placed.Add(10 * time.Minute), wantElapsed: 10, wantRemaining: 0, wantPercent: 100, wantComplete: true},
		{name: "overdue clamps", now: placed.Add(25 * time.Minute), wantElapsed: 25, wantRemaining: 0, wantPercent: 100, wantComplete: true},
		{name: "clock behind placement clamps to zero", now: placed.Add(-time.Minute), wantElapsed: 0, wantRemaining: 10, wantPercent: 0},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			got := job.ProgressAt(tc.now)
			if got.ElapsedMinutes != tc.wantElapsed {
				t.Fatalf("elapsed = %d, want %d", got.ElapsedMinutes, tc.wantElapsed)
			}
			if got.RemainingMinutes != tc.wantRemaining {
				t.Fatalf("remaining = %d, want %d", got.RemainingMinutes, tc.wantRemaining)
			}
			if got.Percent != tc.wantPercent {
				t.Fatalf("percent = %v, want %v", got.Percent, tc.wantPercent)
			}
			if got.Complete != tc.wantComplete {
				t.Fatalf("complete = %v, want %v", got.Complete, tc.wantComplete)
			}
		})
	}
}

func TestProgressPercentIsMonotonic(t *testing.T) {
	t.Parallel()

	placed := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	job := Job{PlacedAt: placed, Duration: 30 * time.Minute}

	previous := -1.0
	for step := 0; step <= 40; step++ {
		now := placed.Add(time.Duration(step) * time.Minute)
		progress := job.ProgressAt(now)
		if progress.Percent < previous {
			t.Fatalf("percent decreased from %v to %v at minute %d", previous, progress.Percent, step)
		}
		previous = progress.Percent
	}
	if previous != 100 {
		t.Fatalf("final percent = %v, want 100", previous)
	}
}

func TestFilterByStatus(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	jobs := []Job{
		{ID: "pending", PlacedAt: now.Add(-time.Minute), Duration: 10 * time.Minute},
		{ID: "elapsed", PlacedAt: now.Add(-time.Hour), Duration: 10 * time.Minute},
		{ID: "flagged", Ready: true, PlacedAt: now, Duration: 10 * time.Minute},
		{ID: "done", Collected: true},
	}

	pending := FilterByStatus(jobs, StatusPending, now)
	if len(pending) != 1 || pending[0].ID != "pending" {
		t.Fatalf("pending filter = %+v", pending)
	}
	ready := FilterByStatus(jobs, StatusReady, now)
	if len(ready) != 2 {
		t.Fatalf("expected 2 ready jobs, got %d", len(ready))
	}
	collected := FilterByStatus(jobs, StatusCollected, now)
	if len(collected) != 1 || collected[0].ID != "done" {
		t.Fatalf("collected filter = %+v", collected)
	}
}
