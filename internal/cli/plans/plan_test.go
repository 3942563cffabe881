package plans

import (
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/julianstephens/weekcal/internal/cli"
	"github.com/julianstephens/weekcal/internal/config"
	"github.com/julianstephens/weekcal/internal/models"
	"github.com/julianstephens/weekcal/internal/storage/sqlite"
	"github.com/julianstephens/weekcal/internal/validation"
)

func setupTestDB(t *testing.T) *cli.Context {
	t.Helper()
	store := sqlite.NewStore(filepath.Join(t.TempDir(), "test.db"))
	if err := store.Init(); err != nil {
		t.Fatalf("failed to init store: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	ctx := cli.NewContext(store, config.Default(), "", nil)
	ctx.Clock = func() time.Time { return time.Date(2026, 1, 5, 6, 0, 0, 0, time.UTC) }

	fixed := time.Date(2026, 1, 6, 11, 0, 0, 0, time.UTC)
	for _, task := range []models.SchedulableTask{
		{EntryPath: "a", Title: "Write", DurationMin: 60, Priority: 2, DueDate: "2026-01-05"},
		{EntryPath: "b", Title: "Review", DurationMin: 30, FixedAt: &fixed},
	} {
		if err := store.AddTask(task); err != nil {
			t.Fatalf("AddTask failed: %v", err)
		}
	}
	return ctx
}

func TestPlanCmd_Formats(t *testing.T) {
	ctx := setupTestDB(t)

	for _, cmd := range []PlanCmd{
		{Start: "2026-01-05", Days: 7, Granularity: 15},
		{Start: "2026-01-05", Days: 7, Granularity: 15, JSON: true},
		{Start: "2026-01-05", Days: 7, ICS: true},
		{Days: 7, Granularity: 15},
	} {
		if err := cmd.Run(ctx); err != nil {
			t.Errorf("plan %+v failed: %v", cmd, err)
		}
	}
}

func TestPlanCmd_InvalidWindow(t *testing.T) {
	ctx := setupTestDB(t)

	cmd := &PlanCmd{Start: "2026-01-05", Days: 7, Granularity: 15, Buffer: 500}
	if err := cmd.Run(ctx); !errors.Is(err, validation.ErrInvalid) {
		t.Errorf("error = %v, want validation error", err)
	}
}

func TestBusyCmd(t *testing.T) {
	ctx := setupTestDB(t)

	if err := (&BusyCmd{From: "2026-01-05", To: "2026-01-11"}).Run(ctx); err != nil {
		t.Errorf("busy failed: %v", err)
	}
	if err := (&BusyCmd{From: "2026-01-11", To: "2026-01-05"}).Run(ctx); !errors.Is(err, validation.ErrInvalid) {
		t.Errorf("reversed range error = %v, want validation error", err)
	}
}
