package dispatch

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/duskfall-rp/fabricator/internal/services/tracker/domain"
)

type memoryStore struct {
	mu   sync.Mutex
	jobs map[string]*domain.Job

	listErr     error
	readyErr    map[string]error
	notifiedErr map[string]error
}

func newMemoryStore(jobs ...domain.Job) *memoryStore {
	store := &memoryStore{
		jobs:        make(map[string]*domain.Job),
		readyErr:    make(map[string]error),
		notifiedErr: make(map[string]error),
	}
	for i := range jobs {
		job := jobs[i]
		store.jobs[job.ID] = &job
	}
	return store
}

func (m *memoryStore) ListJobsNeedingNotification(ctx context.Context, now time.Time) ([]domain.Job, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.listErr != nil {
		return nil, m.listErr
	}
	var due []domain.Job
	for _, job := range m.jobs {
		if job.Collected || job.Notified {
			continue
		}
		if now.Before(job.CompletionTime()) {
			continue
		}
		due = append(due, *job)
	}
	return due, nil
}

func (m *memoryStore) MarkReady(ctx context.Context, jobID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.readyErr[jobID]; err != nil {
		return false, err
	}
	job, ok := m.jobs[jobID]
	if !ok {
		return false, errors.New("job not found")
	}
	if job.Ready {
		return false, nil
	}
	job.Ready = true
	return true, nil
}

func (m *memoryStore) MarkNotified(ctx context.Context, jobID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.notifiedErr[jobID]; err != nil {
		return false, err
	}
	job, ok := m.jobs[jobID]
	if !ok {
		return false, errors.New("job not found")
	}
	if job.Notified {
		return false, nil
	}
	job.Notified = true
	return true, nil
}

func (m *memoryStore) job(t *testing.T, jobID string) domain.Job {
	t.Helper()
	m.mu.Lock()
	defer m.mu.Unlock()
	job, ok := m.jobs[jobID]
	if !ok {
		t.Fatalf("job %s missing from store", jobID)
	}
	return *job
}

type recordingAnnouncer struct {
	mu            sync.Mutex
	sent          []Announcement
	failFor       map[string]error
	failRemaining map[string]int
}

func newRecordingAnnouncer() *recordingAnnouncer {
	return &recordingAnnouncer{
		failFor:       make(map[string]error),
		failRemaining: make(map[string]int),
	}
}

func (r *recordingAnnouncer) Announce(ctx context.Context, a Announcement) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.failFor[a.JobID]; err != nil {
		if remaining, tracked := r.failRemaining[a.JobID]; tracked {
			if remaining <= 0 {
				delete(r.failFor, a.JobID)
			} else {
				r.failRemaining[a.JobID] = remaining - 1
				return err
			}
		} else {
			return err
		}
	}
	r.sent = append(r.sent, a)
	return nil
}

func (r *recordingAnnouncer) sentFor(jobID string) []Announcement {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []Announcement
	for _, a := range r.sent {
		if a.JobID == jobID {
			out = append(out, a)
		}
	}
	return out
}

func dueJob(id string, placedAt time.Time, duration time.Duration, channelID string) domain.Job {
	return domain.Job{
		ID:              id,
		LocationID:      "loc-1",
		LocationName:    "Forge",
		BlueprintID:     "bp-1",
		BlueprintName:   "Dagger",
		Duration:        duration,
		OwnerID:         "owner-" + id,
		OwnerName:       "Owner " + id,
		NotifyChannelID: channelID,
		PlacedAt:        placedAt,
	}
}

func fixedClock(at time.Time) func() time.Time {
	return func() time.Time { return at }
}

func TestTickAnnouncesDueJobsOnce(t *testing.T) {
	t.Parallel()

	base := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	store := newMemoryStore(
		dueJob("job-1", base, 10*time.Minute, "chan-1"),
		dueJob("job-2", base, time.Hour, "chan-1"),
	)
	announcer := newRecordingAnnouncer()
	d, err := New(store, announcer, Config{Clock: fixedClock(base.Add(15 * time.Minute))})
	if err != nil {
		t.Fatalf("new dispatcher: %v", err)
	}

	if err := d.Tick(context.Background()); err != nil {
		t.Fatalf("tick: %v", err)
	}

	if got := announcer.sentFor("job-1"); len(got) != 1 {
		t.Fatalf("job-1 announcements = %d, want 1", len(got))
	}
	if got := announcer.sentFor("job-2"); len(got) != 0 {
		t.Fatalf("job-2 is not due yet, announcements = %d", len(got))
	}
	job := store.job(t, "job-1")
	if !job.Ready || !job.Notified {
		t.Fatalf("dispatched job flags = ready:%v notified:%v", job.Ready, job.Notified)
	}

	// A second tick finds nothing new to announce.
	if err := d.Tick(context.Background()); err != nil {
		t.Fatalf("second tick: %v", err)
	}
	if got := announcer.sentFor("job-1"); len(got) != 1 {
		t.Fatalf("job-1 re-announced: %d announcements", len(got))
	}
}

func TestTickAnnouncementCarriesJobDetails(t *testing.T) {
	t.Parallel()

	base := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	store := newMemoryStore(dueJob("job-1", base, 10*time.Minute, "chan-9"))
	announcer := newRecordingAnnouncer()
	d, err := New(store, announcer, Config{Clock: fixedClock(base.Add(10 * time.Minute))})
	if err != nil {
		t.Fatalf("new dispatcher: %v", err)
	}

	if err := d.Tick(context.Background()); err != nil {
		t.Fatalf("tick: %v", err)
	}

	sent := announcer.sentFor("job-1")
	if len(sent) != 1 {
		t.Fatalf("announcements = %d, want 1", len(sent))
	}
	got := sent[0]
	if got.ChannelID != "chan-9" || got.OwnerID != "owner-job-1" {
		t.Fatalf("announcement routing = %+v", got)
	}
	if got.LocationName != "Forge" || got.BlueprintName != "Dagger" {
		t.Fatalf("announcement names = %+v", got)
	}
	if !got.CompletedAt.Equal(base.Add(10 * time.Minute)) {
		t.Fatalf("completed at = %v, want %v", got.CompletedAt, base.Add(10*time.Minute))
	}
}

func TestFailedSendLeavesJobForRetry(t *testing.T) {
	t.Parallel()

	base := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	store := newMemoryStore(dueJob("job-1", base, 10*time.Minute, "chan-1"))
	announcer := newRecordingAnnouncer()
	announcer.failFor["job-1"] = errors.New("channel unavailable")
	announcer.failRemaining["job-1"] = 1

	d, err := New(store, announcer, Config{Clock: fixedClock(base.Add(time.Hour))})
	if err != nil {
		t.Fatalf("new dispatcher: %v", err)
	}

	if err := d.Tick(context.Background()); err == nil {
		t.Fatal("tick should report the failed send")
	}
	job := store.job(t, "job-1")
	if !job.Ready {
		t.Fatal("ready flag should be set even when the send fails")
	}
	if job.Notified {
		t.Fatal("notified must stay unset until the announcement goes out")
	}

	// The job still shows up on the next sweep and succeeds this time.
	if err := d.Tick(context.Background()); err != nil {
		t.Fatalf("retry tick: %v", err)
	}
	if got := announcer.sentFor("job-1"); len(got) != 1 {
		t.Fatalf("announcements after retry = %d, want 1", len(got))
	}
	if !store.job(t, "job-1").Notified {
		t.Fatal("notified flag should be set after the retry succeeds")
	}
}

func TestFailuresDoNotBlockOtherJobs(t *testing.T) {
	t.Parallel()

	base := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	store := newMemoryStore(
		dueJob("job-bad", base, 10*time.Minute, "chan-1"),
		dueJob("job-good", base, 10*time.Minute, "chan-1"),
	)
	announcer := newRecordingAnnouncer()
	announcer.failFor["job-bad"] = errors.New("boom")

	d, err := New(store, announcer, Config{Clock: fixedClock(base.Add(time.Hour))})
	if err != nil {
		t.Fatalf("new dispatcher: %v", err)
	}

	err = d.Tick(context.Background())
	if err == nil {
		t.Fatal("tick should surface the failed job")
	}
	if !strings.Contains(err.Error(), "job-bad") {
		t.Fatalf("tick error should name the failed job, got %v", err)
	}
	if got := announcer.sentFor("job-good"); len(got) != 1 {
		t.Fatalf("healthy job announcements = %d, want 1", len(got))
	}
	if !store.job(t, "job-good").Notified {
		t.Fatal("healthy job should be marked notified despite the sibling failure")
	}
}

func TestJobsWithoutChannelAreMarkedWithoutSending(t *testing.T) {
	t.Parallel()

	base := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	store := newMemoryStore(dueJob("job-1", base, 10*time.Minute, ""))
	announcer := newRecordingAnnouncer()

	d, err := New(store, announcer, Config{Clock: fixedClock(base.Add(time.Hour))})
	if err != nil {
		t.Fatalf("new dispatcher: %v", err)
	}
	if err := d.Tick(context.Background()); err != nil {
		t.Fatalf("tick: %v", err)
	}

	if len(announcer.sentFor("job-1")) != 0 {
		t.Fatal("job without a channel must not produce an announcement")
	}
	if !store.job(t, "job-1").Notified {
		t.Fatal("job without a channel is still marked notified")
	}
}

func TestNilAnnouncerOnlySettlesUntargetedJobs(t *testing.T) {
	t.Parallel()

	base := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	store := newMemoryStore(
		dueJob("job-targeted", base, 10*time.Minute, "chan-1"),
		dueJob("job-untargeted", base, 10*time.Minute, ""),
	)

	d, err := New(store, nil, Config{Clock: fixedClock(base.Add(time.Hour))})
	if err != nil {
		t.Fatalf("new dispatcher: %v", err)
	}
	if err := d.Tick(context.Background()); err != nil {
		t.Fatalf("tick: %v", err)
	}
	if !store.job(t, "job-untargeted").Notified {
		t.Fatal("job without a target should be marked notified")
	}
	targeted := store.job(t, "job-targeted")
	if targeted.Notified {
		t.Fatal("job with a target must stay unnotified until a send is possible")
	}
	if !targeted.Ready {
		t.Fatal("ready flag should still be set for the targeted job")
	}

	// Once an announcer exists the held-back job delivers.
	announcer := newRecordingAnnouncer()
	d2, err := New(store, announcer, Config{Clock: fixedClock(base.Add(2 * time.Hour))})
	if err != nil {
		t.Fatalf("new dispatcher: %v", err)
	}
	if err := d2.Tick(context.Background()); err != nil {
		t.Fatalf("tick with announcer: %v", err)
	}
	if got := announcer.sentFor("job-targeted"); len(got) != 1 {
		t.Fatalf("held-back job announcements = %d, want 1", len(got))
	}
	if !store.job(t, "job-targeted").Notified {
		t.Fatal("held-back job should settle after the send succeeds")
	}
}

func TestTickPropagatesListFailure(t *testing.T) {
	t.Parallel()

	store := newMemoryStore()
	store.listErr = errors.New("disk gone")

	d, err := New(store, nil, Config{})
	if err != nil {
		t.Fatalf("new dispatcher: %v", err)
	}
	if err := d.Tick(context.Background()); err == nil {
		t.Fatal("tick should propagate the listing failure")
	}
}

func TestNewRequiresStore(t *testing.T) {
	t.Parallel()

	if _, err := New(nil, nil, Config{}); err == nil {
		t.Fatal("expected error for nil store")
	}
}

func TestRunStopsWithContext(t *testing.T) {
	t.Parallel()

	base := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	store := newMemoryStore(dueJob("job-1", base, time.Minute, ""))
	d, err := New(store, nil, Config{
		PollInterval: 5 * time.Millisecond,
		Clock:        fixedClock(base.Add(time.Hour)),
		Logger:       func(string, ...any) {},
	})
	if err != nil {
		t.Fatalf("new dispatcher: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- d.Run(ctx) }()

	deadline := time.After(2 * time.Second)
	for {
		if store.job(t, "job-1").Notified {
			break
		}
		select {
		case <-deadline:
			t.Fatal("dispatcher never processed the due job")
		case <-time.After(5 * time.Millisecond):
		}
	}

	cancel()
	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Fatalf("run err = %v, want context.Canceled", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("run did not stop after cancel")
	}
}
