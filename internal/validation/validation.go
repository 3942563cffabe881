// Package validation checks user input before any planning work happens and
// reports conflicts in the stored task set.
package validation

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/julianstephens/weekcal/internal/constants"
	"github.com/julianstephens/weekcal/internal/models"
	"github.com/julianstephens/weekcal/internal/slots"
	"github.com/julianstephens/weekcal/internal/utils"
)

// ErrInvalid is matched by every *Error.
var ErrInvalid = errors.New("invalid input")

// Error is a rejected input value.
type Error struct {
	Field   string
	Message string
}

func (e *Error) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Message)
}

func (e *Error) Unwrap() error { return ErrInvalid }

func invalid(field, format string, args ...any) *Error {
	return &Error{Field: field, Message: fmt.Sprintf(format, args...)}
}

// Date parses a required YYYY-MM-DD value.
func Date(field, value string) (time.Time, error) {
	if strings.TrimSpace(value) == "" {
		return time.Time{}, invalid(field, "is required")
	}
	d, err := utils.ParseDate(value)
	if err != nil {
		return time.Time{}, invalid(field, "%q is not a date (expected YYYY-MM-DD)", value)
	}
	return d, nil
}

// DateRange validates an inclusive from/to pair; both bounds are required.
func DateRange(from, to string) (time.Time, time.Time, error) {
	f, err := Date("from", from)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	t, err := Date("to", to)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	if t.Before(f) {
		return time.Time{}, time.Time{}, invalid("to", "%s is before from %s", to, from)
	}
	return f, t, nil
}

// PlanWindow checks the numeric parameters of a plan query.
func PlanWindow(days, granularityMin, bufferMin int) error {
	if days < 1 || days > constants.MaxPlanDays {
		return invalid("days", "%d is outside 1-%d", days, constants.MaxPlanDays)
	}
	if granularityMin < 1 || granularityMin > 24*60 {
		return invalid("granularity", "%d is outside 1-1440 minutes", granularityMin)
	}
	if bufferMin < 0 || bufferMin > constants.MaxBufferMin {
		return invalid("buffer", "%d is outside 0-%d minutes", bufferMin, constants.MaxBufferMin)
	}
	return nil
}

// Duration checks a task duration in minutes. Zero means the default duration.
func Duration(minutes int) error {
	if minutes == 0 {
		return nil
	}
	if minutes < constants.MinTaskDurationMin || minutes > constants.MaxTaskDurationMin {
		return invalid("duration", "%d is outside %d-%d minutes", minutes, constants.MinTaskDurationMin, constants.MaxTaskDurationMin)
	}
	return nil
}

// ConflictType represents the type of validation conflict
type ConflictType string

const (
	ConflictOverlappingFixedTasks ConflictType = "overlapping_fixed_tasks"
	ConflictFixedOutsideHours     ConflictType = "fixed_outside_working_hours"
	ConflictFixedBusy             ConflictType = "fixed_overlaps_busy"
	ConflictInvalidDueDate        ConflictType = "invalid_due_date"
	ConflictInvalidDuration       ConflictType = "invalid_duration"
	ConflictDuplicateTitle        ConflictType = "duplicate_title"
	ConflictOvercommitted         ConflictType = "overcommitted"
)

// Conflict represents a detected conflict in the task set
type Conflict struct {
	Type        ConflictType
	Description string
	Date        string
	EntryPaths  []string
}

// ValidationResult contains all detected conflicts
type ValidationResult struct {
	Conflicts []Conflict
}

func (vr *ValidationResult) HasConflicts() bool {
	return len(vr.Conflicts) > 0
}

// FormatReport returns a human-readable report of all conflicts
func (vr *ValidationResult) FormatReport() string {
	if !vr.HasConflicts() {
		return "No conflicts detected."
	}

	var b strings.Builder
	b.WriteString("Conflicts detected:\n")
	for _, conflict := range vr.Conflicts {
		fmt.Fprintf(&b, "- %s\n", conflict.Description)
	}
	return b.String()
}

// Validator checks pending tasks against the calendar settings.
type Validator struct{}

func New() *Validator {
	return &Validator{}
}

// ValidateTasks reports problems the scheduler would otherwise surface only as
// unscheduled items. Done tasks are ignored. busy holds the calendar intervals
// fixed tasks are checked against; it may be nil.
func (v *Validator) ValidateTasks(tasks []models.SchedulableTask, settings models.CalendarSettings, busy []models.BusyInterval) ValidationResult {
	result := ValidationResult{Conflicts: []Conflict{}}

	pending := make([]models.SchedulableTask, 0, len(tasks))
	for _, t := range tasks {
		if t.Status != models.TaskStatusDone {
			pending = append(pending, t)
		}
	}
	sort.Slice(pending, func(i, j int) bool { return pending[i].EntryPath < pending[j].EntryPath })

	titles := make(map[string][]string)
	for _, t := range pending {
		if t.Title != "" {
			key := strings.ToLower(strings.TrimSpace(t.Title))
			titles[key] = append(titles[key], t.EntryPath)
		}

		if t.DueDate != "" {
			if _, err := utils.ParseDate(t.DueDate); err != nil {
				result.Conflicts = append(result.Conflicts, Conflict{
					Type:        ConflictInvalidDueDate,
					Description: fmt.Sprintf("Task %q has invalid due date: %s", t.Title, t.DueDate),
					EntryPaths:  []string{t.EntryPath},
				})
			}
		}
		if err := Duration(t.DurationMin); err != nil {
			result.Conflicts = append(result.Conflicts, Conflict{
				Type:        ConflictInvalidDuration,
				Description: fmt.Sprintf("Task %q has duration %d min (allowed %d-%d)", t.Title, t.DurationMin, constants.MinTaskDurationMin, constants.MaxTaskDurationMin),
				EntryPaths:  []string{t.EntryPath},
			})
		}
	}

	dupKeys := make([]string, 0)
	for key, paths := range titles {
		if len(paths) > 1 {
			dupKeys = append(dupKeys, key)
		}
	}
	sort.Strings(dupKeys)
	for _, key := range dupKeys {
		result.Conflicts = append(result.Conflicts, Conflict{
			Type:        ConflictDuplicateTitle,
			Description: fmt.Sprintf("Duplicate task title %q (%s)", key, strings.Join(titles[key], ", ")),
			EntryPaths:  titles[key],
		})
	}

	loc, err := utils.LoadLocation(settings.Timezone)
	if err != nil {
		loc = time.UTC
	}
	v.checkFixed(&result, pending, settings, loc, busy)
	return result
}

type fixedSpan struct {
	task       models.SchedulableTask
	start, end time.Time
}

func (v *Validator) checkFixed(result *ValidationResult, pending []models.SchedulableTask, settings models.CalendarSettings, loc *time.Location, busy []models.BusyInterval) {
	wh, errHours := slots.Compile(settings)

	var spans []fixedSpan
	for _, t := range pending {
		if !t.IsFixed() {
			continue
		}
		start := t.FixedAt.In(loc)
		end := start.Add(t.Duration(constants.DefaultTaskDurationMin))
		spans = append(spans, fixedSpan{task: t, start: start, end: end})

		for _, b := range busy {
			if b.Overlaps(start, end) {
				result.Conflicts = append(result.Conflicts, Conflict{
					Type: ConflictFixedBusy,
					Description: fmt.Sprintf("Task %q is fixed at %s, overlapping calendar event %q",
						t.Title, start.Format("Mon 2006-01-02 15:04"), b.Title),
					Date:       start.Format(constants.DateFormat),
					EntryPaths: []string{t.EntryPath},
				})
				break
			}
		}

		if errHours != nil {
			continue
		}
		if !wh.Contains(slots.Interval{Start: start, End: end}) {
			result.Conflicts = append(result.Conflicts, Conflict{
				Type: ConflictFixedOutsideHours,
				Description: fmt.Sprintf("Task %q is fixed at %s, outside working hours %s-%s",
					t.Title, start.Format("Mon 2006-01-02 15:04"), settings.WorkdayStart, settings.WorkdayEnd),
				Date:       start.Format(constants.DateFormat),
				EntryPaths: []string{t.EntryPath},
			})
		}
	}

	sort.Slice(spans, func(i, j int) bool {
		if !spans[i].start.Equal(spans[j].start) {
			return spans[i].start.Before(spans[j].start)
		}
		return spans[i].task.EntryPath < spans[j].task.EntryPath
	})
	for i := 0; i < len(spans); i++ {
		for j := i + 1; j < len(spans) && spans[j].start.Before(spans[i].end); j++ {
			result.Conflicts = append(result.Conflicts, Conflict{
				Type: ConflictOverlappingFixedTasks,
				Description: fmt.Sprintf("Fixed tasks %q and %q overlap on %s",
					spans[i].task.Title, spans[j].task.Title, spans[i].start.Format(constants.DateFormat)),
				Date:       spans[i].start.Format(constants.DateFormat),
				EntryPaths: []string{spans[i].task.EntryPath, spans[j].task.EntryPath},
			})
		}
	}

	if errHours != nil || wh.EndMin <= wh.StartMin {
		return
	}
	workdayMin := wh.EndMin - wh.StartMin
	perDay := make(map[string]int)
	for _, s := range spans {
		perDay[s.start.Format(constants.DateFormat)] += int(s.end.Sub(s.start).Minutes())
	}
	days := make([]string, 0, len(perDay))
	for d := range perDay {
		days = append(days, d)
	}
	sort.Strings(days)
	for _, d := range days {
		if perDay[d] > workdayMin {
			result.Conflicts = append(result.Conflicts, Conflict{
				Type:        ConflictOvercommitted,
				Description: fmt.Sprintf("Fixed tasks on %s need %d min but the workday has %d min", d, perDay[d], workdayMin),
				Date:        d,
			})
		}
	}
}
