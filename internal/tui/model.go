package tui

import (
	"context"
	"fmt"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/julianstephens/weekcal/internal/constants"
	"github.com/julianstephens/weekcal/internal/models"
	"github.com/julianstephens/weekcal/internal/planner"
	"github.com/julianstephens/weekcal/internal/tui/components/plan"
	"github.com/julianstephens/weekcal/internal/tui/components/tasklist"
	"github.com/julianstephens/weekcal/internal/validation"
)

// Planner is the slice of the planning service the TUI drives.
type Planner interface {
	Plan(ctx context.Context, q planner.PlanQuery, now time.Time) (models.WeekPlan, error)
	Validate(ctx context.Context) (validation.ValidationResult, error)
	MarkDone(ctx context.Context, entryPath string, at time.Time) error
}

type TaskStore interface {
	ListTasks(includeDone bool) ([]models.SchedulableTask, error)
	DeleteTask(entryPath string) error
}

type SessionState int

const (
	StateWeek SessionState = iota
	StateUnscheduled
	StateTasks
	StateConfirmDelete
)

var tabTitles = []string{"Week", "Unscheduled", "Tasks"}

type Options struct {
	Clock    func() time.Time
	Location *time.Location
}

type Model struct {
	ctx     context.Context
	planner Planner
	store   TaskStore
	clock   func() time.Time
	loc     *time.Location

	state         SessionState
	keys          KeyMap
	help          help.Model
	weekModel     plan.Model
	unscheduled   table.Model
	taskList      tasklist.Model
	startDate     string
	pendingDelete string

	status            string
	err               error
	validationWarning string

	width    int
	height   int
	quitting bool
}

type planLoadedMsg struct {
	plan    models.WeekPlan
	warning string
}

type tasksLoadedMsg struct {
	tasks []models.SchedulableTask
}

type actionDoneMsg struct {
	status string
}

type errMsg struct {
	err error
}

func NewModel(ctx context.Context, p Planner, store TaskStore, opts Options) Model {
	if opts.Clock == nil {
		opts.Clock = time.Now
	}
	if opts.Location == nil {
		opts.Location = time.UTC
	}

	unscheduled := table.New(
		table.WithColumns([]table.Column{
			{Title: "Task", Width: 30},
			{Title: "Reason", Width: 50},
		}),
		table.WithFocused(true),
	)

	return Model{
		ctx:         ctx,
		planner:     p,
		store:       store,
		clock:       opts.Clock,
		loc:         opts.Location,
		state:       StateWeek,
		keys:        DefaultKeyMap(),
		help:        help.New(),
		weekModel:   plan.New(0, 0),
		unscheduled: unscheduled,
		taskList:    tasklist.New(nil, 0, 0),
	}
}

func (m Model) ShortHelp() []key.Binding {
	if m.state == StateConfirmDelete {
		return []key.Binding{m.keys.Confirm, m.keys.Cancel}
	}
	return []key.Binding{m.keys.Tab, m.keys.PrevWeek, m.keys.NextWeek, m.keys.Refresh, m.keys.Quit, m.keys.Help}
}

func (m Model) FullHelp() [][]key.Binding {
	global := []key.Binding{m.keys.Tab, m.keys.ShiftTab, m.keys.Quit, m.keys.Help}
	week := []key.Binding{m.keys.PrevWeek, m.keys.NextWeek, m.keys.Today, m.keys.Refresh}
	return [][]key.Binding{global, week}
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(m.loadPlan(""), m.loadTasks())
}

func (m Model) loadPlan(startDate string) tea.Cmd {
	return func() tea.Msg {
		wp, err := m.planner.Plan(m.ctx, planner.PlanQuery{StartDate: startDate}, m.clock())
		if err != nil {
			return errMsg{err: err}
		}
		msg := planLoadedMsg{plan: wp}
		if result, err := m.planner.Validate(m.ctx); err != nil {
			msg.warning = "⚠ Validation unavailable"
		} else if result.HasConflicts() {
			msg.warning = fmt.Sprintf("⚠ %d validation warning(s)", len(result.Conflicts))
		}
		return msg
	}
}

func (m Model) loadTasks() tea.Cmd {
	return func() tea.Msg {
		tasks, err := m.store.ListTasks(false)
		if err != nil {
			return errMsg{err: fmt.Errorf("failed to list tasks: %w", err)}
		}
		return tasksLoadedMsg{tasks: tasks}
	}
}

func (m Model) markDone(entryPath string) tea.Cmd {
	return func() tea.Msg {
		if err := m.planner.MarkDone(m.ctx, entryPath, m.clock()); err != nil {
			return errMsg{err: err}
		}
		return actionDoneMsg{status: "Marked done: " + entryPath}
	}
}

func (m Model) deleteTask(entryPath string) tea.Cmd {
	return func() tea.Msg {
		if err := m.store.DeleteTask(entryPath); err != nil {
			return errMsg{err: fmt.Errorf("failed to delete task: %w", err)}
		}
		return actionDoneMsg{status: "Deleted: " + entryPath}
	}
}

// shiftWeek returns the start date offset by days from the displayed week.
func (m Model) shiftWeek(days int) string {
	start, err := time.ParseInLocation(constants.DateFormat, m.startDate, m.loc)
	if err != nil {
		return ""
	}
	return start.AddDate(0, 0, days).Format(constants.DateFormat)
}

func (m *Model) setPlan(wp models.WeekPlan) {
	m.startDate = wp.StartDate
	m.weekModel.SetPlan(wp, m.loc)

	rows := make([]table.Row, len(wp.Unscheduled))
	for i, u := range wp.Unscheduled {
		rows[i] = table.Row{u.SourceName, u.Reason}
	}
	m.unscheduled.SetRows(rows)
}
