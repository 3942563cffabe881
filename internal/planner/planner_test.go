package planner

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/julianstephens/weekcal/internal/models"
	"github.com/julianstephens/weekcal/internal/scheduler"
	"github.com/julianstephens/weekcal/internal/storage"
	"github.com/julianstephens/weekcal/internal/storage/sqlite"
	"github.com/julianstephens/weekcal/internal/validation"
)

var monday6am = time.Date(2026, 1, 5, 6, 0, 0, 0, time.UTC)

func setupStore(t *testing.T) *sqlite.Store {
	t.Helper()
	store := sqlite.NewStore(filepath.Join(t.TempDir(), "test.db"))
	if err := store.Init(); err != nil {
		t.Fatalf("failed to init store: %v", err)
	}
	t.Cleanup(func() {
		if err := store.Close(); err != nil {
			t.Errorf("failed to close store: %v", err)
		}
	})
	return store
}

func addSource(t *testing.T, store *sqlite.Store, id string, enabled bool, intervals ...models.BusyInterval) {
	t.Helper()
	if err := store.AddSource(models.CalendarSource{ID: id, Name: id, URL: "https://example.com/" + id, Enabled: enabled}); err != nil {
		t.Fatalf("AddSource failed: %v", err)
	}
	err := store.RecordSyncResult(models.SyncResult{
		SourceID:  id,
		SyncedAt:  monday6am,
		Status:    models.FetchStatusOK,
		Intervals: intervals,
		Replace:   true,
	})
	if err != nil {
		t.Fatalf("RecordSyncResult failed: %v", err)
	}
}

func busy(day, fromHour, toHour int) models.BusyInterval {
	return models.BusyInterval{
		Start: time.Date(2026, 1, day, fromHour, 0, 0, 0, time.UTC),
		End:   time.Date(2026, 1, day, toHour, 0, 0, 0, time.UTC),
		Title: "busy",
	}
}

func TestPlan_AroundBusyInterval(t *testing.T) {
	store := setupStore(t)
	addSource(t, store, "work", true, busy(5, 9, 12))
	if err := store.AddTask(models.SchedulableTask{EntryPath: "tasks/report", Title: "Report", DurationMin: 30, DueDate: "2026-01-05"}); err != nil {
		t.Fatalf("AddTask failed: %v", err)
	}

	svc := New(store, scheduler.New(), nil)
	plan, err := svc.Plan(context.Background(), PlanQuery{StartDate: "2026-01-05", Days: 1}, monday6am)
	if err != nil {
		t.Fatalf("Plan failed: %v", err)
	}
	if len(plan.Items) != 1 {
		t.Fatalf("expected 1 item, got %d (%+v)", len(plan.Items), plan.Unscheduled)
	}
	want := time.Date(2026, 1, 5, 12, 0, 0, 0, time.UTC)
	if !plan.Items[0].Start.Equal(want) || !plan.Items[0].End.Equal(want.Add(30*time.Minute)) {
		t.Errorf("item placed at %v-%v, want 12:00-12:30", plan.Items[0].Start, plan.Items[0].End)
	}
}

func TestPlan_DisabledSourceIgnored(t *testing.T) {
	store := setupStore(t)
	addSource(t, store, "personal", false, busy(5, 9, 17))
	if err := store.AddTask(models.SchedulableTask{EntryPath: "a", Title: "A", DurationMin: 30, DueDate: "2026-01-05"}); err != nil {
		t.Fatalf("AddTask failed: %v", err)
	}

	plan, err := New(store, nil, nil).Plan(context.Background(), PlanQuery{StartDate: "2026-01-05", Days: 1}, monday6am)
	if err != nil {
		t.Fatalf("Plan failed: %v", err)
	}
	if len(plan.Items) != 1 || plan.Items[0].Start.Hour() != 9 {
		t.Errorf("disabled source blocked time: %+v", plan)
	}
}

func TestPlan_Defaults(t *testing.T) {
	store := setupStore(t)
	plan, err := New(store, nil, nil).Plan(context.Background(), PlanQuery{}, monday6am)
	if err != nil {
		t.Fatalf("Plan failed: %v", err)
	}
	if plan.StartDate != "2026-01-05" || plan.EndDate != "2026-01-12" {
		t.Errorf("default window = %s..%s, want 2026-01-05..2026-01-12", plan.StartDate, plan.EndDate)
	}
	if !plan.GeneratedAt.Equal(monday6am) {
		t.Errorf("GeneratedAt = %v", plan.GeneratedAt)
	}
}

func TestPlan_DefaultStartUsesSettingsTimezone(t *testing.T) {
	if _, err := time.LoadLocation("Pacific/Auckland"); err != nil {
		t.Skip("tzdata unavailable")
	}
	store := setupStore(t)
	tz := "Pacific/Auckland"
	if _, err := store.UpdateSettings(models.SettingsPatch{Timezone: &tz}); err != nil {
		t.Fatalf("UpdateSettings failed: %v", err)
	}

	// 20:00 UTC Sunday is already Monday morning in Auckland.
	now := time.Date(2026, 1, 4, 20, 0, 0, 0, time.UTC)
	plan, err := New(store, nil, nil).Plan(context.Background(), PlanQuery{Days: 1}, now)
	if err != nil {
		t.Fatalf("Plan failed: %v", err)
	}
	if plan.StartDate != "2026-01-05" {
		t.Errorf("StartDate = %s, want 2026-01-05", plan.StartDate)
	}
}

func TestPlan_ValidationErrors(t *testing.T) {
	store := setupStore(t)
	svc := New(store, nil, nil)

	tests := []struct {
		name  string
		query PlanQuery
		field string
	}{
		{"malformed start", PlanQuery{StartDate: "05/01/2026"}, "start"},
		{"too many days", PlanQuery{StartDate: "2026-01-05", Days: 100}, "days"},
		{"negative buffer", PlanQuery{StartDate: "2026-01-05", BufferMin: -5}, "buffer"},
		{"negative granularity", PlanQuery{StartDate: "2026-01-05", GranularityMin: -1}, "granularity"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Plan(context.Background(), tt.query, monday6am)
			var verr *validation.Error
			if !errors.As(err, &verr) || verr.Field != tt.field {
				t.Errorf("error = %v, want validation error on %q", err, tt.field)
			}
		})
	}
}

func TestPlan_CancelledContext(t *testing.T) {
	store := setupStore(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := New(store, nil, nil).Plan(ctx, PlanQuery{}, monday6am); !errors.Is(err, context.Canceled) {
		t.Errorf("error = %v, want context.Canceled", err)
	}
}

type failingStore struct {
	*sqlite.Store
}

func (failingStore) ListActiveBusyIntervals(from, to time.Time) ([]models.BusyInterval, error) {
	return nil, errors.New("database is locked")
}

func TestPlan_CollaboratorFailure(t *testing.T) {
	store := failingStore{setupStore(t)}
	_, err := New(store, nil, nil).Plan(context.Background(), PlanQuery{StartDate: "2026-01-05"}, monday6am)
	if err == nil {
		t.Fatal("expected error when busy intervals cannot be read")
	}
	if errors.Is(err, validation.ErrInvalid) {
		t.Errorf("store failure reported as validation error: %v", err)
	}
}

func TestBusyIntervals(t *testing.T) {
	store := setupStore(t)
	addSource(t, store, "work", true, busy(5, 9, 10), busy(7, 9, 10), busy(9, 9, 10))
	addSource(t, store, "off", false, busy(6, 9, 10))
	svc := New(store, nil, nil)

	got, err := svc.BusyIntervals(context.Background(), BusyQuery{From: "2026-01-05", To: "2026-01-07"})
	if err != nil {
		t.Fatalf("BusyIntervals failed: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 intervals (inclusive to, enabled only), got %d", len(got))
	}
	if got[1].Start.Day() != 7 {
		t.Errorf("second interval on day %d, want 7", got[1].Start.Day())
	}

	for _, q := range []BusyQuery{{From: "2026-01-05"}, {To: "2026-01-05"}, {From: "monday", To: "2026-01-05"}, {From: "2026-01-07", To: "2026-01-05"}} {
		if _, err := svc.BusyIntervals(context.Background(), q); !errors.Is(err, validation.ErrInvalid) {
			t.Errorf("BusyIntervals(%+v) error = %v, want validation error", q, err)
		}
	}
}

func TestMarkDone(t *testing.T) {
	store := setupStore(t)
	if err := store.AddTask(models.SchedulableTask{EntryPath: "a", Title: "A", DueDate: "2026-01-05"}); err != nil {
		t.Fatalf("AddTask failed: %v", err)
	}
	svc := New(store, nil, nil)

	if err := svc.MarkDone(context.Background(), "a", monday6am); err != nil {
		t.Fatalf("MarkDone failed: %v", err)
	}
	plan, err := svc.Plan(context.Background(), PlanQuery{StartDate: "2026-01-05"}, monday6am)
	if err != nil {
		t.Fatalf("Plan failed: %v", err)
	}
	if len(plan.Items)+len(plan.Unscheduled) != 0 {
		t.Errorf("done task still planned: %+v", plan)
	}

	if err := svc.MarkDone(context.Background(), "missing", monday6am); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("MarkDone(missing) error = %v, want ErrNotFound", err)
	}
}

func TestValidate(t *testing.T) {
	store := setupStore(t)
	at := time.Date(2026, 1, 5, 9, 0, 0, 0, time.UTC)
	later := at.Add(10 * time.Minute)
	for _, task := range []models.SchedulableTask{
		{EntryPath: "a", Title: "Standup", DurationMin: 30, FixedAt: &at},
		{EntryPath: "b", Title: "Sync", DurationMin: 30, FixedAt: &later},
	} {
		if err := store.AddTask(task); err != nil {
			t.Fatalf("AddTask failed: %v", err)
		}
	}

	result, err := New(store, nil, nil).Validate(context.Background())
	if err != nil {
		t.Fatalf("Validate failed: %v", err)
	}
	if !result.HasConflicts() {
		t.Error("expected overlapping fixed tasks to be reported")
	}
}

func TestValidate_FixedAgainstBusy(t *testing.T) {
	store := setupStore(t)
	addSource(t, store, "work", true, busy(5, 10, 11))
	addSource(t, store, "off", false, busy(5, 14, 15))

	clash := time.Date(2026, 1, 5, 10, 30, 0, 0, time.UTC)
	hidden := time.Date(2026, 1, 5, 14, 0, 0, 0, time.UTC)
	for _, task := range []models.SchedulableTask{
		{EntryPath: "a", Title: "Call", DurationMin: 30, FixedAt: &clash},
		{EntryPath: "b", Title: "Review", DurationMin: 30, FixedAt: &hidden},
	} {
		if err := store.AddTask(task); err != nil {
			t.Fatalf("AddTask failed: %v", err)
		}
	}

	result, err := New(store, nil, nil).Validate(context.Background())
	if err != nil {
		t.Fatalf("Validate failed: %v", err)
	}
	var paths []string
	for _, c := range result.Conflicts {
		if c.Type == validation.ConflictFixedBusy {
			paths = append(paths, c.EntryPaths...)
		}
	}
	if len(paths) != 1 || paths[0] != "a" {
		t.Errorf("busy overlaps = %v, want [a]", paths)
	}
}
