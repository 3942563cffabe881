package models

import "time"

type FetchStatus string

const (
	FetchStatusOK    FetchStatus = "ok"
	FetchStatusError FetchStatus = "error"
	FetchStatusNever FetchStatus = "never"
)

// CalendarSource is an external calendar feed whose events block time.
type CalendarSource struct {
	ID          string      `json:"id"`
	Name        string      `json:"name"`
	URL         string      `json:"url"`
	Color       string      `json:"color,omitempty"`
	Enabled     bool        `json:"enabled"`
	LastSyncAt  *time.Time  `json:"last_sync_at,omitempty"`
	FetchStatus FetchStatus `json:"fetch_status"`
	FetchError  string      `json:"fetch_error,omitempty"`
	Validator   string      `json:"validator,omitempty"` // opaque; "etag:<v>" or "lm:<v>"
	CreatedAt   time.Time   `json:"created_at"`
}

// BusyInterval is a time range imported from a source during which nothing may be placed.
type BusyInterval struct {
	SourceID string    `json:"source_id"`
	UID      string    `json:"uid,omitempty"`
	Start    time.Time `json:"start"`
	End      time.Time `json:"end"`
	Title    string    `json:"title"`
	Location string    `json:"location,omitempty"`
	IsAllDay bool      `json:"is_all_day"`
}

// Overlaps reports whether the half-open ranges [Start, End) and [start, end) intersect.
func (b BusyInterval) Overlaps(start, end time.Time) bool {
	return b.Start.Before(end) && start.Before(b.End)
}

// SyncOutcome is the per-source result of a sync attempt.
type SyncOutcome struct {
	SourceID      string      `json:"source_id"`
	SourceName    string      `json:"source_name"`
	Status        FetchStatus `json:"status"`
	Error         string      `json:"error,omitempty"`
	IntervalCount int         `json:"interval_count"`
	NotModified   bool        `json:"not_modified"`
	Skipped       bool        `json:"skipped"`
	SyncedAt      time.Time   `json:"synced_at"`
}

// SyncResult is what the coordinator asks the source store to persist after a fetch.
// Intervals is nil when the previous interval set must be retained.
type SyncResult struct {
	SourceID  string
	SyncedAt  time.Time
	Status    FetchStatus
	Error     string
	Validator string
	Intervals []BusyInterval
	Replace   bool
}
