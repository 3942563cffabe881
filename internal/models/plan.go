package models

import "time"

type ReasonCode string

const (
	ReasonNoFreeSlot          ReasonCode = "no_free_slot"
	ReasonOutsideWorkingHours ReasonCode = "outside_working_hours"
	ReasonFixedConflict       ReasonCode = "fixed_conflict"
)

// ScheduledItem is a task placed at a concrete time.
type ScheduledItem struct {
	EntryPath   string    `json:"entry_path"`
	Title       string    `json:"title"`
	Start       time.Time `json:"start"`
	End         time.Time `json:"end"`
	DurationMin int       `json:"duration_min"`
	UID         string    `json:"uid"`
	Reason      string    `json:"reason,omitempty"`
	Fixed       bool      `json:"fixed"`
}

// UnscheduledItem records why a candidate task could not be placed.
type UnscheduledItem struct {
	EntryPath  string     `json:"entry_path"`
	SourceName string     `json:"source_name"`
	ReasonCode ReasonCode `json:"reason_code"`
	Reason     string     `json:"reason"`
}

// WeekPlan is the ephemeral result of one planning run.
type WeekPlan struct {
	StartDate    string            `json:"start_date"` // YYYY-MM-DD
	EndDate      string            `json:"end_date"`   // YYYY-MM-DD, exclusive
	Items        []ScheduledItem   `json:"items"`
	Unscheduled  []UnscheduledItem `json:"unscheduled"`
	GeneratedAt  time.Time         `json:"generated_at"`
	Revision     string            `json:"revision"`
	TotalMinutes int               `json:"total_minutes"`
	Warnings     []string          `json:"warnings,omitempty"`
}
