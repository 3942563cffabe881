package sources

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/julianstephens/weekcal/internal/cli"
	"github.com/julianstephens/weekcal/internal/config"
	"github.com/julianstephens/weekcal/internal/models"
	"github.com/julianstephens/weekcal/internal/storage"
	"github.com/julianstephens/weekcal/internal/storage/sqlite"
)

const calendar = "BEGIN:VCALENDAR\r\nBEGIN:VEVENT\r\nDTSTART:20260105T090000Z\r\nDTEND:20260105T100000Z\r\nSUMMARY:Standup\r\nEND:VEVENT\r\nEND:VCALENDAR\r\n"

func setupTestDB(t *testing.T) *cli.Context {
	t.Helper()
	store := sqlite.NewStore(filepath.Join(t.TempDir(), "test.db"))
	if err := store.Init(); err != nil {
		t.Fatalf("failed to init store: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	ctx := cli.NewContext(store, config.Default(), "", nil)
	ctx.Clock = func() time.Time { return time.Date(2026, 1, 5, 6, 0, 0, 0, time.UTC) }
	return ctx
}

func onlySource(t *testing.T, ctx *cli.Context) models.CalendarSource {
	t.Helper()
	sources, err := ctx.Store.ListSources()
	if err != nil || len(sources) != 1 {
		t.Fatalf("ListSources = %v, %v", sources, err)
	}
	return sources[0]
}

func TestSourceLifecycle(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(calendar))
	}))
	defer srv.Close()

	ctx := setupTestDB(t)

	add := &SourceAddCmd{Name: "Work", URL: srv.URL + "/work.ics", Sync: true}
	if err := add.Validate(); err != nil {
		t.Fatalf("Validate failed: %v", err)
	}
	if err := add.Run(ctx); err != nil {
		t.Fatalf("source add failed: %v", err)
	}

	src := onlySource(t, ctx)
	if !src.Enabled || src.FetchStatus != models.FetchStatusOK {
		t.Errorf("source after add+sync = %+v", src)
	}
	if ivs, _ := ctx.Store.ListBusyIntervals(src.ID); len(ivs) != 1 {
		t.Errorf("expected 1 busy interval, got %d", len(ivs))
	}

	if err := (&SourceListCmd{}).Run(ctx); err != nil {
		t.Errorf("source list failed: %v", err)
	}

	if err := (&SourceDisableCmd{ID: src.ID}).Run(ctx); err != nil {
		t.Fatalf("source disable failed: %v", err)
	}
	from := time.Date(2026, 1, 5, 0, 0, 0, 0, time.UTC)
	if ivs, _ := ctx.Store.ListActiveBusyIntervals(from, from.AddDate(0, 0, 1)); len(ivs) != 0 {
		t.Errorf("disabled source still blocks time: %d intervals", len(ivs))
	}
	if err := (&SourceSyncCmd{}).Run(ctx); err != nil {
		t.Errorf("sync all failed: %v", err)
	}

	if err := (&SourceEnableCmd{ID: src.ID}).Run(ctx); err != nil {
		t.Fatalf("source enable failed: %v", err)
	}
	if err := (&SourceSyncCmd{ID: src.ID}).Run(ctx); err != nil {
		t.Errorf("sync one failed: %v", err)
	}

	if err := (&SourceDeleteCmd{ID: src.ID, Yes: true}).Run(ctx); err != nil {
		t.Fatalf("source delete failed: %v", err)
	}
	if _, err := ctx.Store.GetSource(src.ID); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("GetSource after delete error = %v", err)
	}
}

func TestSourceAddCmd_Validate(t *testing.T) {
	tests := []SourceAddCmd{
		{Name: "", URL: "https://example.com/a.ics"},
		{Name: "x", URL: "ftp://example.com/a.ics"},
		{Name: "x", URL: "not a url"},
	}
	for _, cmd := range tests {
		if err := cmd.Validate(); err == nil {
			t.Errorf("Validate(%+v) succeeded, want error", cmd)
		}
	}

	ok := SourceAddCmd{Name: "Team", URL: "webcal://example.com/team.ics"}
	if err := ok.Validate(); err != nil {
		t.Errorf("webcal URL rejected: %v", err)
	}
}

func TestSourceSyncCmd_Unknown(t *testing.T) {
	ctx := setupTestDB(t)
	if err := (&SourceSyncCmd{ID: "missing"}).Run(ctx); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("error = %v, want ErrNotFound", err)
	}
}
