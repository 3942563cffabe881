package storage

import (
	"errors"
	"time"

	"github.com/julianstephens/weekcal/internal/models"
)

var (
	// ErrNotFound is returned when a task, source or token does not exist.
	ErrNotFound = errors.New("not found")
	// ErrAlreadyExists is returned when inserting a duplicate entry path or source id.
	ErrAlreadyExists = errors.New("already exists")
)

// TaskSource is the task store as seen by the planner.
type TaskSource interface {
	ListPendingTasks() ([]models.SchedulableTask, error)
	// MarkDone is only invoked on explicit user action, never by the scheduler.
	MarkDone(entryPath string, at time.Time) error

	AddTask(models.SchedulableTask) error
	GetTask(entryPath string) (models.SchedulableTask, error)
	UpdateTask(models.SchedulableTask) error
	DeleteTask(entryPath string) error
	ListTasks(includeDone bool) ([]models.SchedulableTask, error)
}

type SettingsStore interface {
	GetSettings() (models.CalendarSettings, error)
	SaveSettings(models.CalendarSettings) error
	// UpdateSettings applies patch to the stored settings, validates and saves the result.
	UpdateSettings(patch models.SettingsPatch) (models.CalendarSettings, error)
}

type SourceStore interface {
	AddSource(models.CalendarSource) error
	GetSource(id string) (models.CalendarSource, error)
	ListSources() ([]models.CalendarSource, error)
	ListEnabledSources() ([]models.CalendarSource, error)
	SetSourceEnabled(id string, enabled bool) error
	DeleteSource(id string) error

	// RecordSyncResult updates the source's sync state and, when result.Replace is
	// set, swaps its busy intervals in the same transaction.
	RecordSyncResult(result models.SyncResult) error
	ListBusyIntervals(sourceID string) ([]models.BusyInterval, error)
	// ListActiveBusyIntervals returns intervals of enabled sources overlapping [from, to).
	ListActiveBusyIntervals(from, to time.Time) ([]models.BusyInterval, error)
}

type TokenStore interface {
	SaveToken(models.FeedToken) error
	GetToken(hash string) (models.FeedToken, error)
	ListTokens() ([]models.FeedToken, error)
	DeleteToken(hash string) error
	// PruneTokens deletes tokens expired at now and returns how many were removed.
	PruneTokens(now time.Time) (int, error)
}

// RevisionLedger maps published feed revisions to monotonically increasing sequence
// numbers. A revision other than the latest one always gets a new, higher number.
type RevisionLedger interface {
	SequenceForRevision(revision string, seenAt time.Time) (int, error)
}

type Provider interface {
	// Lifecycle
	Init() error
	Load() error
	Close() error

	TaskSource
	SettingsStore
	SourceStore
	TokenStore
	RevisionLedger

	// Utils
	GetConfigPath() string
}
