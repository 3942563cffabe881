package scheduler

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/julianstephens/weekcal/internal/constants"
	"github.com/julianstephens/weekcal/internal/models"
	"github.com/julianstephens/weekcal/internal/slots"
	"github.com/julianstephens/weekcal/internal/utils"
)

// Options tunes the scheduler; zero values fall back to the defaults.
type Options struct {
	// MissedGrace is how long after FixedAt a pinned task is still placed at its fixed time.
	MissedGrace time.Duration
	// DefaultDurationMin applies to tasks without a duration.
	DefaultDurationMin int
}

type Scheduler struct {
	opts Options
}

func New() *Scheduler {
	return NewWithOptions(Options{})
}

func NewWithOptions(opts Options) *Scheduler {
	if opts.MissedGrace <= 0 {
		opts.MissedGrace = constants.MissedFixedGrace
	}
	if opts.DefaultDurationMin <= 0 {
		opts.DefaultDurationMin = constants.DefaultTaskDurationMin
	}
	return &Scheduler{opts: opts}
}

// PlanRequest is the window and tuning of one planning run.
type PlanRequest struct {
	Now            time.Time
	StartDate      string // YYYY-MM-DD in the settings timezone
	Days           int
	GranularityMin int
	BufferMin      int
}

func (r PlanRequest) validate() error {
	if r.Now.IsZero() {
		return fmt.Errorf("now must be set")
	}
	if _, err := utils.ParseDate(r.StartDate); err != nil {
		return fmt.Errorf("invalid start date %q (expected YYYY-MM-DD): %w", r.StartDate, err)
	}
	if r.Days < 1 || r.Days > constants.MaxPlanDays {
		return fmt.Errorf("days must be between 1 and %d, got %d", constants.MaxPlanDays, r.Days)
	}
	if r.GranularityMin < 1 || r.GranularityMin > 24*60 {
		return fmt.Errorf("granularity must be between 1 and 1440 minutes, got %d", r.GranularityMin)
	}
	if r.BufferMin < 0 || r.BufferMin > constants.MaxBufferMin {
		return fmt.Errorf("buffer must be between 0 and %d minutes, got %d", constants.MaxBufferMin, r.BufferMin)
	}
	return nil
}

type candidate struct {
	task    models.SchedulableTask
	dueDate string
	dur     time.Duration
}

// PlanWeek places pending tasks due inside [StartDate, StartDate+Days) around the
// busy intervals. It only fails on invalid input; tasks that cannot be placed are
// reported in Unscheduled. The result depends only on its arguments.
func (s *Scheduler) PlanWeek(tasks []models.SchedulableTask, settings models.CalendarSettings, busy []models.BusyInterval, req PlanRequest) (models.WeekPlan, error) {
	if err := req.validate(); err != nil {
		return models.WeekPlan{}, err
	}
	wh, err := slots.Compile(settings)
	if err != nil {
		return models.WeekPlan{}, fmt.Errorf("invalid settings: %w", err)
	}

	windowStart, _ := utils.ParseDateInLocation(req.StartDate, wh.Location)
	windowEnd := utils.AddDays(windowStart, req.Days, wh.Location)
	endDate := windowEnd.Format(constants.DateFormat)

	plan := models.WeekPlan{
		StartDate:   req.StartDate,
		EndDate:     endDate,
		Items:       []models.ScheduledItem{},
		Unscheduled: []models.UnscheduledItem{},
		GeneratedAt: req.Now,
	}

	candidates := s.candidates(tasks, req.StartDate, endDate, wh.Location)
	buffer := time.Duration(req.BufferMin) * time.Minute
	gran := time.Duration(req.GranularityMin) * time.Minute

	occupied := slots.FromBusy(busy)
	notBefore := windowStart
	if req.Now.After(notBefore) {
		notBefore = req.Now
	}

	// Single greedy pass in candidate order: a pinned task only keeps its time if
	// no higher-ranked candidate has already claimed it.
	for _, c := range candidates {
		if c.task.IsFixed() && !s.missed(c.task, req.Now) {
			slot := slots.Interval{Start: *c.task.FixedAt, End: c.task.FixedAt.Add(c.dur)}
			if conflictsWith(occupied, slot, buffer) {
				plan.Unscheduled = append(plan.Unscheduled, models.UnscheduledItem{
					EntryPath:  c.task.EntryPath,
					SourceName: c.task.Title,
					ReasonCode: models.ReasonFixedConflict,
					Reason: fmt.Sprintf("Fixed time %s conflicts with a busy interval or another scheduled task",
						c.task.FixedAt.In(wh.Location).Format("2006-01-02 15:04")),
				})
				continue
			}
			occupied = append(occupied, slot)
			plan.Items = append(plan.Items, newItem(c, slot, "", true))
			continue
		}

		reason := ""
		if c.task.IsFixed() {
			reason = constants.ReasonMissedFixed
		}

		slot, ok := slots.FindSlot(occupied, wh, slots.Request{
			Duration:    c.dur,
			Buffer:      buffer,
			Granularity: gran,
			NotBefore:   notBefore,
			WindowEnd:   windowEnd,
		})
		if !ok {
			plan.Unscheduled = append(plan.Unscheduled, unplaced(c, wh, notBefore, windowEnd))
			continue
		}
		occupied = append(occupied, slot)
		plan.Items = append(plan.Items, newItem(c, slot, reason, false))
	}

	sort.SliceStable(plan.Items, func(i, j int) bool {
		a, b := plan.Items[i], plan.Items[j]
		if !a.Start.Equal(b.Start) {
			return a.Start.Before(b.Start)
		}
		return a.EntryPath < b.EntryPath
	})

	for _, item := range plan.Items {
		plan.TotalMinutes += item.DurationMin
	}
	plan.Revision = Revision(plan.Items)
	plan.Warnings = warnings(plan.Unscheduled)

	return plan, nil
}

// candidates filters to pending tasks due inside the window and orders them by
// priority desc, due date asc, entry path asc.
func (s *Scheduler) candidates(tasks []models.SchedulableTask, startDate, endDate string, loc *time.Location) []candidate {
	var out []candidate
	for _, t := range tasks {
		if t.Status != models.TaskStatusPending {
			continue
		}
		due := t.DueDate
		if due == "" && t.IsFixed() {
			due = t.FixedAt.In(loc).Format(constants.DateFormat)
		}
		if _, err := utils.ParseDate(due); err != nil {
			continue
		}
		if due < startDate || due >= endDate {
			continue
		}
		out = append(out, candidate{task: t, dueDate: due, dur: s.duration(t)})
	}

	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.task.Priority != b.task.Priority {
			return a.task.Priority > b.task.Priority
		}
		if a.dueDate != b.dueDate {
			return a.dueDate < b.dueDate
		}
		return a.task.EntryPath < b.task.EntryPath
	})
	return out
}

func (s *Scheduler) duration(t models.SchedulableTask) time.Duration {
	minutes := t.DurationMin
	switch {
	case minutes <= 0:
		minutes = s.opts.DefaultDurationMin
	case minutes < constants.MinTaskDurationMin:
		minutes = constants.MinTaskDurationMin
	case minutes > constants.MaxTaskDurationMin:
		minutes = constants.MaxTaskDurationMin
	}
	return time.Duration(minutes) * time.Minute
}

// missed reports whether a fixed task's start passed more than the grace period ago.
func (s *Scheduler) missed(t models.SchedulableTask, now time.Time) bool {
	return now.After(t.FixedAt.Add(s.opts.MissedGrace))
}

func conflictsWith(occupied []slots.Interval, slot slots.Interval, buffer time.Duration) bool {
	for _, o := range occupied {
		if o.Expand(buffer).Overlaps(slot) {
			return true
		}
	}
	return false
}

func unplaced(c candidate, wh slots.WorkingHours, from, to time.Time) models.UnscheduledItem {
	item := models.UnscheduledItem{
		EntryPath:  c.task.EntryPath,
		SourceName: c.task.Title,
	}
	if !slots.HasWorkingTime(wh, from, to) {
		item.ReasonCode = models.ReasonOutsideWorkingHours
		item.Reason = "No working hours remain in the planning window"
		return item
	}
	item.ReasonCode = models.ReasonNoFreeSlot
	item.Reason = fmt.Sprintf("No free %d-minute slot within working hours before %s",
		int(c.dur/time.Minute), to.In(wh.Location).Format(constants.DateFormat))
	return item
}

func newItem(c candidate, slot slots.Interval, reason string, fixed bool) models.ScheduledItem {
	return models.ScheduledItem{
		EntryPath:   c.task.EntryPath,
		Title:       c.task.Title,
		Start:       slot.Start,
		End:         slot.End,
		DurationMin: int(slot.Duration() / time.Minute),
		UID:         UIDFor(c.task.EntryPath),
		Reason:      reason,
		Fixed:       fixed,
	}
}

func warnings(unscheduled []models.UnscheduledItem) []string {
	if len(unscheduled) == 0 {
		return nil
	}
	counts := map[models.ReasonCode]int{}
	for _, u := range unscheduled {
		counts[u.ReasonCode]++
	}
	var parts []string
	for _, code := range []models.ReasonCode{models.ReasonNoFreeSlot, models.ReasonOutsideWorkingHours, models.ReasonFixedConflict} {
		if n := counts[code]; n > 0 {
			parts = append(parts, fmt.Sprintf("%s: %d", code, n))
		}
	}
	return []string{fmt.Sprintf("%d task(s) could not be scheduled (%s)", len(unscheduled), strings.Join(parts, ", "))}
}

// UIDFor derives a task's calendar identity from its entry path alone.
func UIDFor(entryPath string) string {
	sum := sha256.Sum256([]byte(entryPath))
	return hex.EncodeToString(sum[:16]) + "@" + constants.FeedUIDDomain
}

// Revision fingerprints the observable plan: the ordered (entryPath, start, end) tuples.
func Revision(items []models.ScheduledItem) string {
	h := sha256.New()
	for _, item := range items {
		fmt.Fprintf(h, "%s\x1f%d\x1f%d\n", item.EntryPath, item.Start.Unix(), item.End.Unix())
	}
	return hex.EncodeToString(h.Sum(nil))[:16]
}
