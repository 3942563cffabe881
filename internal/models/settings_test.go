package models

import (
	"reflect"
	"testing"
	"time"

	"github.com/julianstephens/weekcal/internal/constants"
)

func TestCalendarSettings_Validate(t *testing.T) {
	tests := []struct {
		name     string
		settings CalendarSettings
		wantErr  bool
	}{
		{
			name:     "defaults",
			settings: DefaultSettings(),
		},
		{
			name: "start equals end",
			settings: CalendarSettings{
				WorkdayStart: "09:00", WorkdayEnd: "09:00",
				WorkingDays: []time.Weekday{time.Monday},
			},
			wantErr: true,
		},
		{
			name: "start after end",
			settings: CalendarSettings{
				WorkdayStart: "18:00", WorkdayEnd: "09:00",
				WorkingDays: []time.Weekday{time.Monday},
			},
			wantErr: true,
		},
		{
			name: "empty working days",
			settings: CalendarSettings{
				WorkdayStart: "09:00", WorkdayEnd: "17:00",
				WorkingDays: []time.Weekday{},
			},
			wantErr: true,
		},
		{
			name: "weekday out of range",
			settings: CalendarSettings{
				WorkdayStart: "09:00", WorkdayEnd: "17:00",
				WorkingDays: []time.Weekday{7},
			},
			wantErr: true,
		},
		{
			name: "bad time format",
			settings: CalendarSettings{
				WorkdayStart: "9am", WorkdayEnd: "17:00",
				WorkingDays: []time.Weekday{time.Monday},
			},
			wantErr: true,
		},
		{
			name: "unknown timezone",
			settings: CalendarSettings{
				WorkdayStart: "09:00", WorkdayEnd: "17:00",
				WorkingDays: []time.Weekday{time.Monday},
				Timezone:    "Mars/Olympus_Mons",
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.settings.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestParseWorkingDays(t *testing.T) {
	tests := []struct {
		in      string
		want    []time.Weekday
		wantErr bool
	}{
		{in: "1,2,3,4,5", want: []time.Weekday{1, 2, 3, 4, 5}},
		{in: "fri, mon ,mon", want: []time.Weekday{time.Monday, time.Friday}},
		{in: "0,saturday", want: []time.Weekday{time.Sunday, time.Saturday}},
		{in: "8", wantErr: true},
		{in: "funday", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseWorkingDays(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseWorkingDays(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			}
			if !tt.wantErr && !reflect.DeepEqual(got, tt.want) {
				t.Errorf("ParseWorkingDays(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestSettingsMapRoundTrip(t *testing.T) {
	in := CalendarSettings{
		WorkdayStart: "08:30",
		WorkdayEnd:   "16:00",
		WorkingDays:  []time.Weekday{time.Tuesday, time.Thursday},
		Timezone:     "Europe/London",
	}
	m := SettingsToMap(in)
	if m[constants.SettingWorkingDays] != "2,4" {
		t.Errorf("working_days = %q, want %q", m[constants.SettingWorkingDays], "2,4")
	}
	out, err := MapToSettings(m)
	if err != nil {
		t.Fatalf("MapToSettings() error = %v", err)
	}
	if !reflect.DeepEqual(in, out) {
		t.Errorf("round trip = %+v, want %+v", out, in)
	}
}

func TestSettingsPatch_Apply(t *testing.T) {
	base := DefaultSettings()
	end := "18:00"
	patched := SettingsPatch{WorkdayEnd: &end, WorkingDays: []time.Weekday{time.Saturday}}.Apply(base)

	if patched.WorkdayEnd != "18:00" {
		t.Errorf("WorkdayEnd = %s, want 18:00", patched.WorkdayEnd)
	}
	if patched.WorkdayStart != base.WorkdayStart {
		t.Errorf("WorkdayStart changed to %s", patched.WorkdayStart)
	}
	if !reflect.DeepEqual(patched.WorkingDays, []time.Weekday{time.Saturday}) {
		t.Errorf("WorkingDays = %v", patched.WorkingDays)
	}
	if (SettingsPatch{}).IsEmpty() != true {
		t.Error("empty patch should report IsEmpty")
	}
}
