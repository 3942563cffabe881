// Package planner is the query surface over the scheduler: it applies defaults,
// validates the query and assembles the scheduler's inputs from the store.
package planner

import (
	"context"
	"fmt"
	"time"

	"github.com/julianstephens/weekcal/internal/constants"
	"github.com/julianstephens/weekcal/internal/logger"
	"github.com/julianstephens/weekcal/internal/metrics"
	"github.com/julianstephens/weekcal/internal/models"
	"github.com/julianstephens/weekcal/internal/scheduler"
	"github.com/julianstephens/weekcal/internal/storage"
	"github.com/julianstephens/weekcal/internal/utils"
	"github.com/julianstephens/weekcal/internal/validation"
)

// Store is the part of storage.Provider the planner reads.
type Store interface {
	storage.TaskSource
	storage.SettingsStore
	ListActiveBusyIntervals(from, to time.Time) ([]models.BusyInterval, error)
}

// PlanQuery selects the plan window. Zero values take the defaults: today in the
// settings timezone, 7 days, 15 minute granularity and no buffer.
type PlanQuery struct {
	StartDate      string
	Days           int
	GranularityMin int
	BufferMin      int
}

// BusyQuery selects busy intervals between two inclusive dates.
type BusyQuery struct {
	From string
	To   string
}

type Service struct {
	store     Store
	scheduler *scheduler.Scheduler
	metrics   *metrics.Collector
}

func New(store Store, sched *scheduler.Scheduler, m *metrics.Collector) *Service {
	if sched == nil {
		sched = scheduler.New()
	}
	return &Service{store: store, scheduler: sched, metrics: m}
}

// Plan computes the week plan for q as of now.
func (s *Service) Plan(ctx context.Context, q PlanQuery, now time.Time) (models.WeekPlan, error) {
	started := time.Now()
	if err := ctx.Err(); err != nil {
		return models.WeekPlan{}, err
	}

	settings, err := s.store.GetSettings()
	if err != nil {
		return models.WeekPlan{}, fmt.Errorf("failed to load settings: %w", err)
	}
	loc, err := utils.LoadLocation(settings.Timezone)
	if err != nil {
		return models.WeekPlan{}, &validation.Error{Field: "timezone", Message: err.Error()}
	}

	q = withDefaults(q, now, loc)
	start, err := validation.Date("start", q.StartDate)
	if err != nil {
		return models.WeekPlan{}, err
	}
	if err := validation.PlanWindow(q.Days, q.GranularityMin, q.BufferMin); err != nil {
		return models.WeekPlan{}, err
	}
	if err := settings.Validate(); err != nil {
		return models.WeekPlan{}, &validation.Error{Field: "settings", Message: err.Error()}
	}

	tasks, err := s.store.ListPendingTasks()
	if err != nil {
		return models.WeekPlan{}, fmt.Errorf("failed to load tasks: %w", err)
	}

	// Intervals just outside the window still matter once buffered.
	buffer := time.Duration(q.BufferMin) * time.Minute
	from := midnight(start, loc).Add(-buffer)
	to := utils.AddDays(midnight(start, loc), q.Days, loc).Add(buffer)
	busy, err := s.store.ListActiveBusyIntervals(from, to)
	if err != nil {
		return models.WeekPlan{}, fmt.Errorf("failed to load busy intervals: %w", err)
	}

	if err := ctx.Err(); err != nil {
		return models.WeekPlan{}, err
	}

	plan, err := s.scheduler.PlanWeek(tasks, settings, busy, scheduler.PlanRequest{
		Now:            now,
		StartDate:      q.StartDate,
		Days:           q.Days,
		GranularityMin: q.GranularityMin,
		BufferMin:      q.BufferMin,
	})
	if err != nil {
		return models.WeekPlan{}, &validation.Error{Field: "plan", Message: err.Error()}
	}

	took := time.Since(started)
	s.metrics.RecordPlan(plan, took)
	logger.Debug("Plan computed",
		"start", plan.StartDate,
		"days", q.Days,
		"scheduled", len(plan.Items),
		"unscheduled", len(plan.Unscheduled),
		"revision", plan.Revision,
		"took", took,
	)
	return plan, nil
}

// BusyIntervals returns the active busy intervals overlapping [From, To+1d) in the
// settings timezone.
func (s *Service) BusyIntervals(ctx context.Context, q BusyQuery) ([]models.BusyInterval, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	from, to, err := validation.DateRange(q.From, q.To)
	if err != nil {
		return nil, err
	}

	settings, err := s.store.GetSettings()
	if err != nil {
		return nil, fmt.Errorf("failed to load settings: %w", err)
	}
	loc, err := utils.LoadLocation(settings.Timezone)
	if err != nil {
		return nil, &validation.Error{Field: "timezone", Message: err.Error()}
	}

	start := midnight(from, loc)
	end := utils.AddDays(midnight(to, loc), 1, loc)
	intervals, err := s.store.ListActiveBusyIntervals(start, end)
	if err != nil {
		return nil, fmt.Errorf("failed to load busy intervals: %w", err)
	}
	return intervals, nil
}

// MarkDone completes a task on explicit user request.
func (s *Service) MarkDone(ctx context.Context, entryPath string, at time.Time) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := s.store.MarkDone(entryPath, at); err != nil {
		return fmt.Errorf("failed to mark %s done: %w", entryPath, err)
	}
	logger.Info("Task marked done", "entry_path", entryPath)
	return nil
}

// Validate checks the stored tasks against the current settings.
func (s *Service) Validate(ctx context.Context) (validation.ValidationResult, error) {
	if err := ctx.Err(); err != nil {
		return validation.ValidationResult{}, err
	}
	settings, err := s.store.GetSettings()
	if err != nil {
		return validation.ValidationResult{}, fmt.Errorf("failed to load settings: %w", err)
	}
	tasks, err := s.store.ListPendingTasks()
	if err != nil {
		return validation.ValidationResult{}, fmt.Errorf("failed to load tasks: %w", err)
	}
	busy, err := s.busyAroundFixed(tasks)
	if err != nil {
		return validation.ValidationResult{}, err
	}
	return validation.New().ValidateTasks(tasks, settings, busy), nil
}

// busyAroundFixed loads the active busy intervals spanning every fixed task.
func (s *Service) busyAroundFixed(tasks []models.SchedulableTask) ([]models.BusyInterval, error) {
	var from, to time.Time
	for _, t := range tasks {
		if !t.IsFixed() {
			continue
		}
		end := t.FixedAt.Add(t.Duration(constants.DefaultTaskDurationMin))
		if from.IsZero() || t.FixedAt.Before(from) {
			from = *t.FixedAt
		}
		if end.After(to) {
			to = end
		}
	}
	if from.IsZero() {
		return nil, nil
	}
	busy, err := s.store.ListActiveBusyIntervals(from, to)
	if err != nil {
		return nil, fmt.Errorf("failed to load busy intervals: %w", err)
	}
	return busy, nil
}

func withDefaults(q PlanQuery, now time.Time, loc *time.Location) PlanQuery {
	if q.StartDate == "" {
		q.StartDate = utils.TodayIn(now, loc)
	}
	if q.Days == 0 {
		q.Days = constants.DefaultPlanDays
	}
	if q.GranularityMin == 0 {
		q.GranularityMin = constants.DefaultGranularityMin
	}
	return q
}

// midnight moves a parsed calendar date onto local midnight in loc.
func midnight(date time.Time, loc *time.Location) time.Time {
	return time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, loc)
}
