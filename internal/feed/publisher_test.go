package feed

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/julianstephens/weekcal/internal/models"
	"github.com/julianstephens/weekcal/internal/planner"
	"github.com/julianstephens/weekcal/internal/scheduler"
	"github.com/julianstephens/weekcal/internal/storage/sqlite"
)

type fixture struct {
	store     *sqlite.Store
	publisher *Publisher
	now       time.Time
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store := sqlite.NewStore(filepath.Join(t.TempDir(), "test.db"))
	if err := store.Init(); err != nil {
		t.Fatalf("failed to init store: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	f := &fixture{store: store, now: time.Date(2026, 1, 5, 6, 0, 0, 0, time.UTC)}
	f.publisher = NewPublisher(store, planner.New(store, nil, nil), nil, Options{
		BaseURL: "https://cal.example.com/",
		Clock:   func() time.Time { return f.now },
	})
	return f
}

func (f *fixture) addTask(t *testing.T, entryPath, title string) {
	t.Helper()
	task := models.SchedulableTask{EntryPath: entryPath, Title: title, DurationMin: 30, DueDate: "2026-01-05"}
	if err := f.store.AddTask(task); err != nil {
		t.Fatalf("AddTask failed: %v", err)
	}
}

func (f *fixture) issue(t *testing.T, ttl time.Duration) models.IssuedToken {
	t.Helper()
	issued, err := f.publisher.IssueToken(context.Background(), ttl)
	if err != nil {
		t.Fatalf("IssueToken failed: %v", err)
	}
	return issued
}

func TestIssueToken(t *testing.T) {
	f := newFixture(t)
	issued := f.issue(t, 48*time.Hour)

	if len(issued.Token) != 43 {
		t.Errorf("token length = %d, want 43", len(issued.Token))
	}
	if want := "https://cal.example.com/feed/" + issued.Token + ".ics"; issued.HTTPSURL != want {
		t.Errorf("HTTPSURL = %q, want %q", issued.HTTPSURL, want)
	}
	if want := "webcal://cal.example.com/feed/" + issued.Token + ".ics"; issued.WebcalURL != want {
		t.Errorf("WebcalURL = %q, want %q", issued.WebcalURL, want)
	}
	if !issued.ExpiresAt.Equal(f.now.Add(48 * time.Hour)) {
		t.Errorf("ExpiresAt = %v", issued.ExpiresAt)
	}

	tokens, err := f.store.ListTokens()
	if err != nil {
		t.Fatalf("ListTokens failed: %v", err)
	}
	if len(tokens) != 1 {
		t.Fatalf("expected 1 stored token, got %d", len(tokens))
	}
	if tokens[0].Hash == issued.Token || tokens[0].Hash != HashToken(issued.Token) {
		t.Error("store must hold the token hash, not the token")
	}

	other := f.issue(t, 0)
	if other.Token == issued.Token {
		t.Error("two issued tokens are identical")
	}
	if !other.ExpiresAt.Equal(f.now.Add(30 * 24 * time.Hour)) {
		t.Errorf("default ttl ExpiresAt = %v", other.ExpiresAt)
	}
}

func TestIssueToken_RequiresAbsoluteBaseURL(t *testing.T) {
	f := newFixture(t)
	f.publisher.opts.BaseURL = "cal.example.com"
	if _, err := f.publisher.IssueToken(context.Background(), time.Hour); err == nil {
		t.Error("expected error for relative base URL")
	}
}

func TestServeFeed(t *testing.T) {
	f := newFixture(t)
	f.addTask(t, "tasks/report", "Report; draft")
	issued := f.issue(t, time.Hour)

	resp, err := f.publisher.ServeFeed(context.Background(), issued.Token, "2026-01-05", 1)
	if err != nil {
		t.Fatalf("ServeFeed failed: %v", err)
	}

	for _, want := range []string{
		"BEGIN:VCALENDAR\r\n",
		"UID:" + scheduler.UIDFor("tasks/report") + "\r\n",
		"DTSTART:20260105T090000Z\r\n",
		"SUMMARY:Report\\; draft\r\n",
		"SEQUENCE:1\r\n",
		"REFRESH-INTERVAL;VALUE=DURATION:PT5M\r\n",
	} {
		if !strings.Contains(resp.Body, want) {
			t.Errorf("feed missing %q", want)
		}
	}

	h := resp.Header()
	if h.Get("Content-Type") != "text/calendar; charset=utf-8" {
		t.Errorf("Content-Type = %q", h.Get("Content-Type"))
	}
	if h.Get("Cache-Control") != "no-store" {
		t.Errorf("Cache-Control = %q", h.Get("Cache-Control"))
	}
	if h.Get("X-Plan-Revision") != resp.Revision || resp.Revision == "" {
		t.Errorf("X-Plan-Revision = %q, revision %q", h.Get("X-Plan-Revision"), resp.Revision)
	}
	if h.Get("X-Generated-At") != "2026-01-05T06:00:00Z" {
		t.Errorf("X-Generated-At = %q", h.Get("X-Generated-At"))
	}
}

func TestServeFeed_SequenceFollowsRevision(t *testing.T) {
	f := newFixture(t)
	f.addTask(t, "a", "A")
	issued := f.issue(t, time.Hour)
	ctx := context.Background()

	first, err := f.publisher.ServeFeed(ctx, issued.Token, "2026-01-05", 1)
	if err != nil {
		t.Fatalf("ServeFeed failed: %v", err)
	}
	f.now = f.now.Add(time.Minute)
	again, err := f.publisher.ServeFeed(ctx, issued.Token, "2026-01-05", 1)
	if err != nil {
		t.Fatalf("ServeFeed failed: %v", err)
	}
	if again.Sequence != first.Sequence || again.ETag != first.ETag {
		t.Errorf("unchanged plan changed sequence: %d -> %d", first.Sequence, again.Sequence)
	}

	f.addTask(t, "b", "B")
	changed, err := f.publisher.ServeFeed(ctx, issued.Token, "2026-01-05", 1)
	if err != nil {
		t.Fatalf("ServeFeed failed: %v", err)
	}
	if changed.Revision == first.Revision {
		t.Fatal("adding a task did not change the revision")
	}
	if changed.Sequence != first.Sequence+1 {
		t.Errorf("sequence = %d, want %d", changed.Sequence, first.Sequence+1)
	}
}

func TestServeFeed_SequenceNeverDecreases(t *testing.T) {
	f := newFixture(t)
	f.addTask(t, "a", "A")
	issued := f.issue(t, time.Hour)
	ctx := context.Background()

	serve := func() FeedResponse {
		t.Helper()
		resp, err := f.publisher.ServeFeed(ctx, issued.Token, "2026-01-05", 1)
		if err != nil {
			t.Fatalf("ServeFeed failed: %v", err)
		}
		return resp
	}

	first := serve()
	f.addTask(t, "b", "B")
	second := serve()
	if err := f.store.DeleteTask("b"); err != nil {
		t.Fatalf("DeleteTask failed: %v", err)
	}
	reverted := serve()

	if reverted.Revision != first.Revision {
		t.Fatalf("reverting the plan changed the revision: %s vs %s", first.Revision, reverted.Revision)
	}
	if second.Sequence <= first.Sequence || reverted.Sequence <= second.Sequence {
		t.Errorf("sequence went %d -> %d -> %d, want strictly increasing", first.Sequence, second.Sequence, reverted.Sequence)
	}
	if !strings.Contains(reverted.Body, fmt.Sprintf("SEQUENCE:%d\r\n", reverted.Sequence)) {
		t.Errorf("reverted feed does not carry SEQUENCE:%d", reverted.Sequence)
	}
	if again := serve(); again.Sequence != reverted.Sequence {
		t.Errorf("republishing the same plan moved the sequence: %d -> %d", reverted.Sequence, again.Sequence)
	}
}

func TestServeFeed_RenameChangesETag(t *testing.T) {
	f := newFixture(t)
	f.addTask(t, "a", "Old title")
	issued := f.issue(t, time.Hour)
	ctx := context.Background()

	before, err := f.publisher.ServeFeed(ctx, issued.Token, "2026-01-05", 1)
	if err != nil {
		t.Fatalf("ServeFeed failed: %v", err)
	}

	task, err := f.store.GetTask("a")
	if err != nil {
		t.Fatalf("GetTask failed: %v", err)
	}
	task.Title = "New title"
	if err := f.store.UpdateTask(task); err != nil {
		t.Fatalf("UpdateTask failed: %v", err)
	}

	after, err := f.publisher.ServeFeed(ctx, issued.Token, "2026-01-05", 1)
	if err != nil {
		t.Fatalf("ServeFeed failed: %v", err)
	}
	if after.Revision != before.Revision {
		t.Fatalf("rename should not move the placement revision")
	}
	if after.ETag == before.ETag {
		t.Errorf("ETag %s unchanged after rename", after.ETag)
	}
	if after.Sequence <= before.Sequence {
		t.Errorf("sequence = %d after rename, want > %d", after.Sequence, before.Sequence)
	}
	if !strings.Contains(after.Body, "SUMMARY:New title\r\n") {
		t.Error("feed missing renamed SUMMARY")
	}
}

func TestServeFeed_FailsClosed(t *testing.T) {
	f := newFixture(t)
	issued := f.issue(t, time.Hour)
	revoked := f.issue(t, time.Hour)
	ctx := context.Background()

	if err := f.publisher.RevokeToken(ctx, revoked.Token); err != nil {
		t.Fatalf("RevokeToken failed: %v", err)
	}

	cases := map[string]string{
		"empty":   "",
		"unknown": "not-a-real-token",
		"revoked": revoked.Token,
	}
	for name, token := range cases {
		if _, err := f.publisher.ServeFeed(ctx, token, "", 0); !errors.Is(err, ErrUnauthorized) {
			t.Errorf("%s token: error = %v, want ErrUnauthorized", name, err)
		}
	}

	f.now = f.now.Add(time.Hour)
	if _, err := f.publisher.ServeFeed(ctx, issued.Token, "", 0); !errors.Is(err, ErrUnauthorized) {
		t.Errorf("expired token: error = %v, want ErrUnauthorized", err)
	}
}

func TestPruneExpired(t *testing.T) {
	f := newFixture(t)
	f.issue(t, time.Hour)
	keep := f.issue(t, 72*time.Hour)

	f.now = f.now.Add(2 * time.Hour)
	n, err := f.publisher.PruneExpired(context.Background())
	if err != nil {
		t.Fatalf("PruneExpired failed: %v", err)
	}
	if n != 1 {
		t.Errorf("pruned %d tokens, want 1", n)
	}
	if _, err := f.publisher.Authorize(context.Background(), keep.Token); err != nil {
		t.Errorf("live token rejected after prune: %v", err)
	}
}

func TestEtagMatches(t *testing.T) {
	etag := `"abc-1"`
	tests := []struct {
		header string
		want   bool
	}{
		{`"abc-1"`, true},
		{`W/"abc-1"`, true},
		{`"zzz-2", "abc-1"`, true},
		{`*`, true},
		{`"abc-2"`, false},
	}
	for _, tt := range tests {
		if got := etagMatches(tt.header, etag); got != tt.want {
			t.Errorf("etagMatches(%q) = %v, want %v", tt.header, got, tt.want)
		}
	}
}
