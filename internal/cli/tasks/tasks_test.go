package tasks

import (
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/julianstephens/weekcal/internal/cli"
	"github.com/julianstephens/weekcal/internal/config"
	"github.com/julianstephens/weekcal/internal/models"
	"github.com/julianstephens/weekcal/internal/storage"
	"github.com/julianstephens/weekcal/internal/storage/sqlite"
)

func setupTestDB(t *testing.T) (*cli.Context, func()) {
	tempDir := t.TempDir()
	store := sqlite.NewStore(filepath.Join(tempDir, "test.db"))
	if err := store.Init(); err != nil {
		t.Fatalf("failed to init store: %v", err)
	}

	ctx := cli.NewContext(store, config.Default(), "", nil)
	ctx.Clock = func() time.Time { return time.Date(2026, 1, 5, 6, 0, 0, 0, time.UTC) }

	cleanup := func() {
		if err := store.Close(); err != nil {
			t.Errorf("failed to close store: %v", err)
		}
	}
	return ctx, cleanup
}

func TestTaskAddCmd(t *testing.T) {
	ctx, cleanup := setupTestDB(t)
	defer cleanup()

	cmd := &TaskAddCmd{Title: "  Write report ", Duration: 45, Priority: 2, Due: "2026-01-06", Path: "notes/report"}
	if err := cmd.Validate(); err != nil {
		t.Fatalf("Validate failed: %v", err)
	}
	if err := cmd.Run(ctx); err != nil {
		t.Fatalf("task add failed: %v", err)
	}

	task, err := ctx.Store.GetTask("notes/report")
	if err != nil {
		t.Fatalf("GetTask failed: %v", err)
	}
	if task.Title != "Write report" || task.DurationMin != 45 || task.Priority != 2 || task.DueDate != "2026-01-06" {
		t.Errorf("stored task = %+v", task)
	}
	if task.Status != models.TaskStatusPending {
		t.Errorf("Status = %q", task.Status)
	}
}

func TestTaskAddCmd_GeneratesPathAndPins(t *testing.T) {
	ctx, cleanup := setupTestDB(t)
	defer cleanup()

	cmd := &TaskAddCmd{Title: "Dentist", Duration: 60, Fixed: "2026-01-07 14:30"}
	if err := cmd.Run(ctx); err != nil {
		t.Fatalf("task add failed: %v", err)
	}

	tasks, err := ctx.Store.ListTasks(false)
	if err != nil || len(tasks) != 1 {
		t.Fatalf("ListTasks = %v, %v", tasks, err)
	}
	if len(tasks[0].EntryPath) != len("tasks/")+36 {
		t.Errorf("generated entry path %q", tasks[0].EntryPath)
	}
	want := time.Date(2026, 1, 7, 14, 30, 0, 0, time.UTC)
	if tasks[0].FixedAt == nil || !tasks[0].FixedAt.Equal(want) {
		t.Errorf("FixedAt = %v, want %v", tasks[0].FixedAt, want)
	}
}

func TestTaskAddCmd_Validate(t *testing.T) {
	tests := []TaskAddCmd{
		{Title: " ", Duration: 30},
		{Title: "x", Duration: 2},
		{Title: "x", Duration: 721},
		{Title: "x", Duration: 30, Due: "soon"},
	}
	for _, cmd := range tests {
		if err := cmd.Validate(); err == nil {
			t.Errorf("Validate(%+v) succeeded, want error", cmd)
		}
	}
}

func TestTaskEditDoneDelete(t *testing.T) {
	ctx, cleanup := setupTestDB(t)
	defer cleanup()

	if err := (&TaskAddCmd{Title: "Call", Duration: 30, Fixed: "2026-01-05 10:00", Path: "a"}).Run(ctx); err != nil {
		t.Fatalf("task add failed: %v", err)
	}

	title := "Call back"
	due := "2026-01-08"
	if err := (&TaskEditCmd{EntryPath: "a", Title: &title, Due: &due, ClearFixed: true}).Run(ctx); err != nil {
		t.Fatalf("task edit failed: %v", err)
	}
	task, _ := ctx.Store.GetTask("a")
	if task.Title != "Call back" || task.DueDate != due || task.FixedAt != nil {
		t.Errorf("edited task = %+v", task)
	}

	bad := 1000
	if err := (&TaskEditCmd{EntryPath: "a", Duration: &bad}).Run(ctx); err == nil {
		t.Error("expected error for out-of-range duration")
	}

	if err := (&TaskDoneCmd{EntryPath: "a"}).Run(ctx); err != nil {
		t.Fatalf("task done failed: %v", err)
	}
	task, _ = ctx.Store.GetTask("a")
	if task.Status != models.TaskStatusDone || task.DoneAt == nil {
		t.Errorf("task not marked done: %+v", task)
	}

	if err := (&TaskListCmd{All: true}).Run(ctx); err != nil {
		t.Errorf("task list failed: %v", err)
	}

	if err := (&TaskDeleteCmd{EntryPath: "a", Yes: true}).Run(ctx); err != nil {
		t.Fatalf("task delete failed: %v", err)
	}
	if _, err := ctx.Store.GetTask("a"); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("GetTask after delete error = %v", err)
	}
	if err := (&TaskDeleteCmd{EntryPath: "a", Yes: true}).Run(ctx); err == nil {
		t.Error("expected error deleting a missing task")
	}
}
