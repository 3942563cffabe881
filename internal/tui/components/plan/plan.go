package plan

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/julianstephens/weekcal/internal/constants"
	"github.com/julianstephens/weekcal/internal/models"
)

var (
	dayStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("205")).
			Bold(true)

	timeStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("241")).
			Width(15)

	taskStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("252")).
			Bold(true)

	noteStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240")).
			Italic(true)
)

// Model renders one planned week, grouped by day.
type Model struct {
	viewport viewport.Model
	Plan     *models.WeekPlan
	loc      *time.Location
	content  string
}

func New(width, height int) Model {
	return Model{
		viewport: viewport.New(width, height),
		loc:      time.UTC,
	}
}

func (m Model) Init() tea.Cmd {
	return nil
}

func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	var cmd tea.Cmd
	m.viewport, cmd = m.viewport.Update(msg)
	return m, cmd
}

func (m Model) View() string {
	if m.Plan == nil {
		return "Planning..."
	}
	return m.viewport.View()
}

func (m *Model) SetSize(width, height int) {
	m.viewport.Width = width
	m.viewport.Height = height
	m.viewport.SetContent(m.content)
}

// SetPlan replaces the displayed plan; item times are shown in loc.
func (m *Model) SetPlan(plan models.WeekPlan, loc *time.Location) {
	if loc == nil {
		loc = time.UTC
	}
	m.Plan = &plan
	m.loc = loc
	m.content = Render(plan, loc)
	m.viewport.SetContent(m.content)
	m.viewport.GotoTop()
}

// Content returns the rendered week without viewport clipping.
func (m Model) Content() string {
	return m.content
}

// Render lays out plan one day per block, items in start order.
func Render(plan models.WeekPlan, loc *time.Location) string {
	start, err := time.ParseInLocation(constants.DateFormat, plan.StartDate, loc)
	if err != nil {
		return fmt.Sprintf("Invalid plan start %q", plan.StartDate)
	}
	end, err := time.ParseInLocation(constants.DateFormat, plan.EndDate, loc)
	if err != nil || !end.After(start) {
		end = start.AddDate(0, 0, constants.DefaultPlanDays)
	}

	byDay := make(map[string][]models.ScheduledItem)
	for _, item := range plan.Items {
		day := item.Start.In(loc).Format(constants.DateFormat)
		byDay[day] = append(byDay[day], item)
	}

	var b strings.Builder
	for d := start; d.Before(end); d = d.AddDate(0, 0, 1) {
		key := d.Format(constants.DateFormat)
		b.WriteString(dayStyle.Render(d.Format("Mon 2006-01-02")))
		b.WriteString("\n")

		items := byDay[key]
		if len(items) == 0 {
			b.WriteString("  " + noteStyle.Render("nothing planned") + "\n\n")
			continue
		}
		sort.Slice(items, func(i, j int) bool { return items[i].Start.Before(items[j].Start) })
		for _, item := range items {
			timeStr := fmt.Sprintf("%s - %s", item.Start.In(loc).Format(constants.TimeFormat), item.End.In(loc).Format(constants.TimeFormat))
			line := "  " + timeStyle.Render(timeStr) + " " + taskStyle.Render(item.Title)
			if item.Fixed {
				line += " " + noteStyle.Render("(fixed)")
			}
			if item.Reason != "" {
				line += " " + noteStyle.Render(item.Reason)
			}
			b.WriteString(line + "\n")
		}
		b.WriteString("\n")
	}

	fmt.Fprintf(&b, "%d item(s), %d min planned", len(plan.Items), plan.TotalMinutes)
	if n := len(plan.Unscheduled); n > 0 {
		fmt.Fprintf(&b, ", %d unscheduled", n)
	}
	return b.String()
}
