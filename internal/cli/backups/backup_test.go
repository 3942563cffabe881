package backups

import (
	"path/filepath"
	"testing"

	"github.com/julianstephens/weekcal/internal/backup"
	"github.com/julianstephens/weekcal/internal/cli"
	"github.com/julianstephens/weekcal/internal/config"
	"github.com/julianstephens/weekcal/internal/models"
	"github.com/julianstephens/weekcal/internal/storage/sqlite"
)

func TestBackupCommands(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "weekcal.db")
	store := sqlite.NewStore(dbPath)
	if err := store.Init(); err != nil {
		t.Fatalf("failed to init store: %v", err)
	}
	ctx := cli.NewContext(store, config.Default(), "", nil)

	if err := (&BackupListCmd{}).Run(ctx); err != nil {
		t.Errorf("backup list on empty dir failed: %v", err)
	}
	if err := (&BackupRestoreCmd{Yes: true}).Run(ctx); err == nil {
		t.Error("restore without backups should fail")
	}
	if err := (&BackupCreateCmd{}).Run(ctx); err != nil {
		t.Fatalf("backup create failed: %v", err)
	}
	if err := (&BackupListCmd{}).Run(ctx); err != nil {
		t.Errorf("backup list failed: %v", err)
	}

	if err := store.AddTask(models.SchedulableTask{EntryPath: "tasks/after", Title: "After", DurationMin: 30}); err != nil {
		t.Fatalf("AddTask failed: %v", err)
	}

	if err := (&BackupRestoreCmd{BackupFile: "missing.db", Yes: true}).Run(ctx); err == nil {
		t.Error("restore of a missing file should fail")
	}
	if err := (&BackupRestoreCmd{Yes: true}).Run(ctx); err != nil {
		t.Fatalf("backup restore failed: %v", err)
	}

	reopened := sqlite.NewStore(dbPath)
	t.Cleanup(func() { reopened.Close() })
	if err := reopened.Load(); err != nil {
		t.Fatalf("failed to reopen restored database: %v", err)
	}
	tasks, err := reopened.ListTasks(true)
	if err != nil {
		t.Fatalf("ListTasks failed: %v", err)
	}
	if len(tasks) != 0 {
		t.Errorf("restored database has %d tasks, want 0", len(tasks))
	}

	backups, err := backup.NewManager(dbPath).List()
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(backups) != 2 {
		t.Errorf("expected the original and the pre-restore backups, got %d", len(backups))
	}
}
