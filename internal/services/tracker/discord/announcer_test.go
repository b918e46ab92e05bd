package discord

import (
	"strings"
	"testing"

	"github.com/duskfall-rp/fabricator/internal/services/tracker/dispatch"
)

func TestFormatAnnouncement(t *testing.T) {
	t.Parallel()

	got := FormatAnnouncement(dispatch.Announcement{
		OwnerID:       "1234",
		BlueprintName: "Iron Dagger",
		LocationName:  "Old Forge",
	})
	if !strings.Contains(got, "<@1234>") {
		t.Fatalf("message should mention the owner: %q", got)
	}
	if !strings.Contains(got, "Iron Dagger") || !strings.Contains(got, "Old Forge") {
		t.Fatalf("message should name the blueprint and location: %q", got)
	}
}

func TestFormatAnnouncementFallbacks(t *testing.T) {
	t.Parallel()

	got := FormatAnnouncement(dispatch.Announcement{OwnerID: "1234"})
	if !strings.Contains(got, "your fabrication") {
		t.Fatalf("missing blueprint fallback: %q", got)
	}
	if !strings.Contains(got, "its workbench") {
		t.Fatalf("missing location fallback: %q", got)
	}
}

func TestNewAnnouncerRequiresSession(t *testing.T) {
	t.Parallel()

	if _, err := NewAnnouncer(nil); err == nil {
		t.Fatal("expected error for nil session")
	}
}
