package slots

import (
	"fmt"
	"time"

	"github.com/julianstephens/weekcal/internal/models"
	"github.com/julianstephens/weekcal/internal/utils"
)

// WorkingHours is CalendarSettings compiled for fast lookups.
type WorkingHours struct {
	Location *time.Location
	StartMin int // minutes from local midnight
	EndMin   int
	days     [7]bool
}

// Compile validates settings and resolves the timezone.
func Compile(settings models.CalendarSettings) (WorkingHours, error) {
	if err := settings.Validate(); err != nil {
		return WorkingHours{}, err
	}
	loc, err := utils.LoadLocation(settings.Timezone)
	if err != nil {
		return WorkingHours{}, err
	}
	startMin, err := utils.ParseTimeToMinutes(settings.WorkdayStart)
	if err != nil {
		return WorkingHours{}, fmt.Errorf("invalid workday start: %w", err)
	}
	endMin, err := utils.ParseTimeToMinutes(settings.WorkdayEnd)
	if err != nil {
		return WorkingHours{}, fmt.Errorf("invalid workday end: %w", err)
	}

	wh := WorkingHours{Location: loc, StartMin: startMin, EndMin: endMin}
	for _, wd := range settings.WorkingDays {
		wh.days[wd] = true
	}
	return wh, nil
}

// IsWorkingDay reports whether the local date of t is a working day.
func (wh WorkingHours) IsWorkingDay(t time.Time) bool {
	return wh.days[t.In(wh.Location).Weekday()]
}

// Window returns the working window of the local date of day.
func (wh WorkingHours) Window(day time.Time) Interval {
	return Interval{
		Start: utils.AtMinute(day, wh.StartMin, wh.Location),
		End:   utils.AtMinute(day, wh.EndMin, wh.Location),
	}
}

// Contains reports whether both the start and the end instant of iv fall inside
// [workdayStart, workdayEnd) of a single working day.
func (wh WorkingHours) Contains(iv Interval) bool {
	if !wh.IsWorkingDay(iv.Start) {
		return false
	}
	w := wh.Window(iv.Start)
	return !iv.Start.Before(w.Start) && iv.End.Before(w.End) && iv.Start.Before(iv.End)
}
