package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/charmbracelet/huh"

	"github.com/julianstephens/weekcal/internal/calsync"
	"github.com/julianstephens/weekcal/internal/config"
	"github.com/julianstephens/weekcal/internal/constants"
	"github.com/julianstephens/weekcal/internal/feed"
	"github.com/julianstephens/weekcal/internal/metrics"
	"github.com/julianstephens/weekcal/internal/models"
	"github.com/julianstephens/weekcal/internal/planner"
	"github.com/julianstephens/weekcal/internal/scheduler"
	"github.com/julianstephens/weekcal/internal/storage"
	"github.com/julianstephens/weekcal/internal/utils"
)

type Context struct {
	Store       storage.Provider
	Scheduler   *scheduler.Scheduler
	Planner     *planner.Service
	Coordinator *calsync.Coordinator
	Publisher   *feed.Publisher
	Metrics     *metrics.Collector

	ServerConfig     config.ServerConfig
	ServerConfigPath string

	// Clock is the source of "now" for every command; tests pin it.
	Clock func() time.Time
	// Base is cancelled on interrupt.
	Base context.Context
}

// NewContext wires the services every command shares around store.
func NewContext(store storage.Provider, cfg config.ServerConfig, serverConfigPath string, m *metrics.Collector) *Context {
	sched := scheduler.NewWithOptions(scheduler.Options{MissedGrace: cfg.Planning.MissedGrace})
	plan := planner.New(store, sched, m)

	return &Context{
		Store:     store,
		Scheduler: sched,
		Planner:   plan,
		Coordinator: calsync.New(store, &http.Client{}, m, calsync.Options{
			MaxConcurrent: cfg.Sync.MaxConcurrent,
			MaxBodyBytes:  cfg.Sync.MaxBodyBytes,
			Timeout:       cfg.Sync.Timeout,
		}),
		Publisher: feed.NewPublisher(store, plan, m, feed.Options{
			BaseURL:    cfg.BaseURL,
			Refresh:    cfg.Feed.Refresh,
			DefaultTTL: cfg.Feed.TokenTTL,
		}),
		Metrics:          m,
		ServerConfig:     cfg,
		ServerConfigPath: serverConfigPath,
		Clock:            time.Now,
	}
}

func (c *Context) Context() context.Context {
	if c.Base == nil {
		return context.Background()
	}
	return c.Base
}

func (c *Context) Now() time.Time {
	if c.Clock == nil {
		return time.Now()
	}
	return c.Clock()
}

// Location returns the timezone working hours are expressed in.
func (c *Context) Location() (*time.Location, error) {
	settings, err := c.Store.GetSettings()
	if err != nil {
		return nil, fmt.Errorf("failed to get settings: %w", err)
	}
	return utils.LoadLocation(settings.Timezone)
}

// Migrator is implemented by stores that apply embedded schema migrations.
type Migrator interface {
	Migrate(logFn func(string)) (int, error)
	PendingMigrations() (int, error)
}

// ErrCancelled is returned when the user declines a confirmation prompt.
var ErrCancelled = errors.New("cancelled")

// Confirm asks a yes/no question unless assumeYes is set.
func Confirm(title string, assumeYes bool) error {
	if assumeYes {
		return nil
	}
	confirmed := false
	form := huh.NewForm(
		huh.NewGroup(
			huh.NewConfirm().
				Title(title).
				Affirmative("Yes").
				Negative("No").
				Value(&confirmed),
		),
	)
	if err := form.Run(); err != nil {
		return fmt.Errorf("confirmation failed: %w", err)
	}
	if !confirmed {
		return ErrCancelled
	}
	return nil
}

// ParseLocalDateTime parses "YYYY-MM-DD HH:MM" (or with a T separator) in loc.
func ParseLocalDateTime(s string, loc *time.Location) (time.Time, error) {
	s = strings.Replace(strings.TrimSpace(s), "T", " ", 1)
	t, err := time.ParseInLocation(constants.DateFormat+" "+constants.TimeFormat, s, loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date-time %q (expected YYYY-MM-DD HH:MM)", s)
	}
	return t, nil
}

// FormatStatus renders a source fetch status for listings.
func FormatStatus(src models.CalendarSource) string {
	switch src.FetchStatus {
	case models.FetchStatusOK:
		return "ok"
	case models.FetchStatusError:
		return "error: " + src.FetchError
	default:
		return "never synced"
	}
}

// FormatWeekdays renders weekdays as three-letter names.
func FormatWeekdays(days []time.Weekday) string {
	names := make([]string, len(days))
	for i, wd := range days {
		names[i] = wd.String()[:3]
	}
	return strings.Join(names, ",")
}
