package app

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/duskfall-rp/fabricator/internal/services/tracker/dispatch"
	"github.com/duskfall-rp/fabricator/internal/services/tracker/domain"
	"github.com/duskfall-rp/fabricator/internal/services/tracker/storage/sqlite"
)

type captureAnnouncer struct {
	mu   sync.Mutex
	sent []dispatch.Announcement
}

func (c *captureAnnouncer) Announce(ctx context.Context, a dispatch.Announcement) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sent = append(c.sent, a)
	return nil
}

func (c *captureAnnouncer) all() []dispatch.Announcement {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]dispatch.Announcement(nil), c.sent...)
}

// Walks one job through its whole life against the real store: placed at
// T0 with a ten minute blueprint, halfway at T0+5, announced exactly once
// by the sweep at T0+10, then collected and gone from active listings.
func TestJobLifecycleEndToEnd(t *testing.T) {
	t.Parallel()

	store, err := sqlite.Open(filepath.Join(t.TempDir(), "tracker.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() {
		if err := store.Close(); err != nil {
			t.Fatalf("close store: %v", err)
		}
	})

	adapter, err := NewStoreAdapter(store)
	if err != nil {
		t.Fatalf("new adapter: %v", err)
	}

	t0 := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	now := t0
	clock := func() time.Time { return now }

	service := domain.NewService(adapter, clock, nil, nil)
	announcer := &captureAnnouncer{}
	dispatcher, err := dispatch.New(adapter, announcer, dispatch.Config{Clock: clock})
	if err != nil {
		t.Fatalf("new dispatcher: %v", err)
	}

	ctx := context.Background()
	location, err := service.CreateLocation(ctx, domain.CreateLocationInput{Name: "Old Forge", Available: true})
	if err != nil {
		t.Fatalf("create location: %v", err)
	}
	blueprint, err := service.CreateBlueprint(ctx, domain.CreateBlueprintInput{Name: "Iron Dagger", DurationMinutes: 10})
	if err != nil {
		t.Fatalf("create blueprint: %v", err)
	}

	job, err := service.StartJob(ctx, domain.StartJobInput{
		LocationID:      location.ID,
		BlueprintID:     blueprint.ID,
		OwnerID:         "owner-1",
		OwnerName:       "Mara",
		NotifyChannelID: "chan-1",
	})
	if err != nil {
		t.Fatalf("start job: %v", err)
	}
	if !job.PlacedAt.Equal(t0) {
		t.Fatalf("placed at = %v, want %v", job.PlacedAt, t0)
	}

	// T0+5: halfway; still pending and nothing announced by a sweep.
	now = t0.Add(5 * time.Minute)
	if err := dispatcher.Tick(ctx); err != nil {
		t.Fatalf("tick at +5m: %v", err)
	}
	if got := announcer.all(); len(got) != 0 {
		t.Fatalf("announcements at +5m = %d, want 0", len(got))
	}
	midway, err := service.GetJob(ctx, job.ID)
	if err != nil {
		t.Fatalf("get job: %v", err)
	}
	if midway.StatusAt(now) != domain.StatusPending {
		t.Fatalf("status at +5m = %s, want pending", midway.StatusAt(now))
	}
	progress := midway.ProgressAt(now)
	if progress.ElapsedMinutes != 5 || progress.RemainingMinutes != 5 {
		t.Fatalf("progress at +5m = %+v", progress)
	}
	if progress.Percent != 50 {
		t.Fatalf("percent at +5m = %v, want 50", progress.Percent)
	}

	// T0+10: the sweep flips ready, announces once, and marks notified.
	now = t0.Add(10 * time.Minute)
	if err := dispatcher.Tick(ctx); err != nil {
		t.Fatalf("tick at +10m: %v", err)
	}
	sent := announcer.all()
	if len(sent) != 1 {
		t.Fatalf("announcements at +10m = %d, want 1", len(sent))
	}
	if sent[0].ChannelID != "chan-1" || sent[0].OwnerID != "owner-1" {
		t.Fatalf("announcement routing = %+v", sent[0])
	}
	if sent[0].BlueprintName != "Iron Dagger" || sent[0].LocationName != "Old Forge" {
		t.Fatalf("announcement names = %+v", sent[0])
	}
	swept, err := service.GetJob(ctx, job.ID)
	if err != nil {
		t.Fatalf("get job: %v", err)
	}
	if !swept.Ready || !swept.Notified || swept.Collected {
		t.Fatalf("flags after sweep = ready:%v notified:%v collected:%v", swept.Ready, swept.Notified, swept.Collected)
	}
	if swept.Status() != domain.StatusReady {
		t.Fatalf("status after sweep = %s, want ready", swept.Status())
	}

	// A later sweep never re-announces.
	now = t0.Add(11 * time.Minute)
	if err := dispatcher.Tick(ctx); err != nil {
		t.Fatalf("tick at +11m: %v", err)
	}
	if got := announcer.all(); len(got) != 1 {
		t.Fatalf("announcements after second sweep = %d, want 1", len(got))
	}

	// Collect: terminal, timestamped, and out of the active listings.
	now = t0.Add(12 * time.Minute)
	collected, err := service.CollectJob(ctx, job.ID)
	if err != nil {
		t.Fatalf("collect job: %v", err)
	}
	if collected.Status() != domain.StatusCollected {
		t.Fatalf("status after collect = %s, want collected", collected.Status())
	}
	if collected.CollectedAt == nil || !collected.CollectedAt.Equal(now) {
		t.Fatalf("collected at = %v, want %v", collected.CollectedAt, now)
	}
	active, err := service.ListActiveJobs(ctx)
	if err != nil {
		t.Fatalf("list active jobs: %v", err)
	}
	if len(active) != 0 {
		t.Fatalf("active jobs after collect = %+v, want none", active)
	}
}
