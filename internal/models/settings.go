package models

import (
	"fmt"
	"time"
)

// CalendarSettings holds the working-hours configuration every planning run reads
type CalendarSettings struct {
	WorkdayStart string         `json:"workday_start"` // e.g. "09:00"
	WorkdayEnd   string         `json:"workday_end"`   // e.g. "17:00"
	WorkingDays  []time.Weekday `json:"working_days"`  // 0=Sunday ... 6=Saturday
	Timezone     string         `json:"timezone"`      // IANA name working hours are expressed in
}

// SettingsPatch carries a partial update; nil fields are left unchanged.
type SettingsPatch struct {
	WorkdayStart *string
	WorkdayEnd   *string
	WorkingDays  []time.Weekday
	Timezone     *string
}

// IsEmpty reports whether the patch changes nothing.
func (p SettingsPatch) IsEmpty() bool {
	return p.WorkdayStart == nil && p.WorkdayEnd == nil && p.WorkingDays == nil && p.Timezone == nil
}

// Apply returns a copy of s with the patch applied.
func (p SettingsPatch) Apply(s CalendarSettings) CalendarSettings {
	if p.WorkdayStart != nil {
		s.WorkdayStart = *p.WorkdayStart
	}
	if p.WorkdayEnd != nil {
		s.WorkdayEnd = *p.WorkdayEnd
	}
	if p.WorkingDays != nil {
		s.WorkingDays = append([]time.Weekday(nil), p.WorkingDays...)
	}
	if p.Timezone != nil {
		s.Timezone = *p.Timezone
	}
	return s
}

func (s CalendarSettings) Validate() error {
	start, err := time.Parse("15:04", s.WorkdayStart)
	if err != nil {
		return fmt.Errorf("invalid workday start (expected HH:MM): %w", err)
	}
	end, err := time.Parse("15:04", s.WorkdayEnd)
	if err != nil {
		return fmt.Errorf("invalid workday end (expected HH:MM): %w", err)
	}
	if !start.Before(end) {
		return fmt.Errorf("workday start %s must be before workday end %s", s.WorkdayStart, s.WorkdayEnd)
	}
	if len(s.WorkingDays) == 0 {
		return fmt.Errorf("working days cannot be empty")
	}
	for _, wd := range s.WorkingDays {
		if wd < time.Sunday || wd > time.Saturday {
			return fmt.Errorf("invalid working day %d (expected 0-6)", wd)
		}
	}
	if s.Timezone != "" && s.Timezone != "Local" {
		if _, err := time.LoadLocation(s.Timezone); err != nil {
			return fmt.Errorf("invalid timezone %q: %w", s.Timezone, err)
		}
	}
	return nil
}
