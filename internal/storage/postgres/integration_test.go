package postgres

import (
	"os"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/julianstephens/weekcal/internal/models"
)

// Set POSTGRES_TEST_URL to run, e.g.
// POSTGRES_TEST_URL="postgres://weekcal@localhost:5432/weekcal_test?sslmode=disable"
func TestStore_Integration(t *testing.T) {
	connStr := os.Getenv("POSTGRES_TEST_URL")
	if connStr == "" {
		t.Skip("POSTGRES_TEST_URL not set, skipping PostgreSQL integration test")
	}

	store := New(connStr)
	if err := store.Init(); err != nil {
		t.Fatalf("Failed to initialize store: %v", err)
	}
	defer store.Close()

	suffix := uuid.NewString()
	now := time.Date(2026, 1, 5, 8, 0, 0, 0, time.UTC)

	t.Run("Settings", func(t *testing.T) {
		end := "18:00"
		updated, err := store.UpdateSettings(models.SettingsPatch{WorkdayEnd: &end})
		if err != nil {
			t.Fatalf("UpdateSettings failed: %v", err)
		}
		if updated.WorkdayEnd != "18:00" {
			t.Errorf("WorkdayEnd = %s", updated.WorkdayEnd)
		}
	})

	t.Run("Tasks", func(t *testing.T) {
		path := "it/" + suffix
		if err := store.AddTask(models.SchedulableTask{EntryPath: path, Title: "Integration", DurationMin: 30, DueDate: "2026-01-05", CreatedAt: now}); err != nil {
			t.Fatalf("AddTask failed: %v", err)
		}
		defer store.DeleteTask(path)

		if err := store.MarkDone(path, now); err != nil {
			t.Fatalf("MarkDone failed: %v", err)
		}
		got, err := store.GetTask(path)
		if err != nil {
			t.Fatalf("GetTask failed: %v", err)
		}
		if got.Status != models.TaskStatusDone || got.DoneAt == nil {
			t.Errorf("task not marked done: %+v", got)
		}
	})

	t.Run("Sources", func(t *testing.T) {
		id := "it-" + suffix
		if err := store.AddSource(models.CalendarSource{ID: id, Name: "Integration", URL: "https://example.com/a.ics", Enabled: true, CreatedAt: now}); err != nil {
			t.Fatalf("AddSource failed: %v", err)
		}
		defer store.DeleteSource(id)

		err := store.RecordSyncResult(models.SyncResult{
			SourceID: id, SyncedAt: now, Status: models.FetchStatusOK, Validator: "etag:x", Replace: true,
			Intervals: []models.BusyInterval{{SourceID: id, Start: now.Add(time.Hour), End: now.Add(2 * time.Hour)}},
		})
		if err != nil {
			t.Fatalf("RecordSyncResult failed: %v", err)
		}
		active, err := store.ListActiveBusyIntervals(now, now.Add(24*time.Hour))
		if err != nil {
			t.Fatalf("ListActiveBusyIntervals failed: %v", err)
		}
		found := false
		for _, iv := range active {
			if iv.SourceID == id {
				found = true
			}
		}
		if !found {
			t.Error("synced interval not returned")
		}
	})

	t.Run("Revisions", func(t *testing.T) {
		first, err := store.SequenceForRevision("rev-"+suffix, now)
		if err != nil {
			t.Fatalf("SequenceForRevision failed: %v", err)
		}
		again, err := store.SequenceForRevision("rev-"+suffix, now)
		if err != nil || again != first {
			t.Errorf("sequence changed for same revision: %d vs %d (%v)", first, again, err)
		}
		other, err := store.SequenceForRevision("rev-other-"+suffix, now)
		if err != nil || other <= first {
			t.Errorf("new revision sequence = %d, want > %d (%v)", other, first, err)
		}
		back, err := store.SequenceForRevision("rev-"+suffix, now)
		if err != nil || back <= other {
			t.Errorf("returning revision sequence = %d, want > %d (%v)", back, other, err)
		}
	})
}
