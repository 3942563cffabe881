package models

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/julianstephens/weekcal/internal/constants"
)

// MapToSettings converts a map of key-value pairs to a CalendarSettings struct.
func MapToSettings(data map[string]string) (CalendarSettings, error) {
	settings := CalendarSettings{}

	for key, value := range data {
		switch key {
		case constants.SettingWorkdayStart:
			settings.WorkdayStart = value
		case constants.SettingWorkdayEnd:
			settings.WorkdayEnd = value
		case constants.SettingWorkingDays:
			days, err := ParseWorkingDays(value)
			if err != nil {
				return CalendarSettings{}, fmt.Errorf("parsing working_days: %w", err)
			}
			settings.WorkingDays = days
		case constants.SettingTimezone:
			settings.Timezone = value
		}
	}
	return settings, nil
}

// SettingsToMap converts a CalendarSettings struct to a map of key-value pairs.
func SettingsToMap(settings CalendarSettings) map[string]string {
	return map[string]string{
		constants.SettingWorkdayStart: settings.WorkdayStart,
		constants.SettingWorkdayEnd:   settings.WorkdayEnd,
		constants.SettingWorkingDays:  FormatWorkingDays(settings.WorkingDays),
		constants.SettingTimezone:     settings.Timezone,
	}
}

// ApplyDefaultSettings applies default values to missing settings.
func ApplyDefaultSettings(settings *CalendarSettings) {
	if settings.WorkdayStart == "" {
		settings.WorkdayStart = constants.DefaultWorkdayStart
	}
	if settings.WorkdayEnd == "" {
		settings.WorkdayEnd = constants.DefaultWorkdayEnd
	}
	if settings.WorkingDays == nil {
		settings.WorkingDays, _ = ParseWorkingDays(constants.DefaultWorkingDays)
	}
	if settings.Timezone == "" {
		settings.Timezone = constants.DefaultTimezone
	}
}

// DefaultSettings returns the settings a freshly initialized store starts with.
func DefaultSettings() CalendarSettings {
	var s CalendarSettings
	ApplyDefaultSettings(&s)
	return s
}

// ParseWorkingDays parses a comma-separated list of weekday numbers (0=Sunday) or names.
// The result is sorted and de-duplicated.
func ParseWorkingDays(s string) ([]time.Weekday, error) {
	dayMap := map[string]time.Weekday{
		"sun": time.Sunday, "sunday": time.Sunday,
		"mon": time.Monday, "monday": time.Monday,
		"tue": time.Tuesday, "tuesday": time.Tuesday,
		"wed": time.Wednesday, "wednesday": time.Wednesday,
		"thu": time.Thursday, "thursday": time.Thursday,
		"fri": time.Friday, "friday": time.Friday,
		"sat": time.Saturday, "saturday": time.Saturday,
	}

	seen := make(map[time.Weekday]bool)
	days := []time.Weekday{}
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(strings.ToLower(part))
		if part == "" {
			continue
		}
		wd, ok := dayMap[part]
		if !ok {
			num, err := strconv.Atoi(part)
			if err != nil || num < 0 || num > 6 {
				return nil, fmt.Errorf("invalid weekday: %s", part)
			}
			wd = time.Weekday(num)
		}
		if !seen[wd] {
			seen[wd] = true
			days = append(days, wd)
		}
	}
	sort.Slice(days, func(i, j int) bool { return days[i] < days[j] })
	return days, nil
}

// FormatWorkingDays renders weekdays as the comma-separated numeric form stored in settings.
func FormatWorkingDays(days []time.Weekday) string {
	parts := make([]string, len(days))
	for i, wd := range days {
		parts[i] = strconv.Itoa(int(wd))
	}
	return strings.Join(parts, ",")
}
