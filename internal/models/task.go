package models

import "time"

type TaskStatus string

const (
	TaskStatusPending TaskStatus = "pending"
	TaskStatusDone    TaskStatus = "done"
)

// SchedulableTask is the read-only view of a task the scheduler plans around.
type SchedulableTask struct {
	EntryPath   string     `json:"entry_path"`
	Title       string     `json:"title"`
	DurationMin int        `json:"duration_min"`
	Priority    int        `json:"priority"`           // higher is scheduled first
	DueDate     string     `json:"due_date,omitempty"` // YYYY-MM-DD format
	FixedAt     *time.Time `json:"fixed_at,omitempty"`
	Status      TaskStatus `json:"status"`
	CreatedAt   time.Time  `json:"created_at"`
	DoneAt      *time.Time `json:"done_at,omitempty"`
}

// IsFixed reports whether the task is pinned to an exact start time.
func (t SchedulableTask) IsFixed() bool {
	return t.FixedAt != nil && !t.FixedAt.IsZero()
}

// Duration returns the task duration, falling back to the default block when unset.
func (t SchedulableTask) Duration(defaultMin int) time.Duration {
	if t.DurationMin <= 0 {
		return time.Duration(defaultMin) * time.Minute
	}
	return time.Duration(t.DurationMin) * time.Minute
}
