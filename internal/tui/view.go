package tui

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"
)

func (m Model) View() string {
	if m.quitting {
		return ""
	}

	var content string
	switch m.state {
	case StateWeek:
		content = docStyle.Render(m.weekModel.View())
	case StateUnscheduled:
		content = docStyle.Render(m.viewUnscheduled())
	case StateTasks:
		content = docStyle.Render(m.taskList.View())
	case StateConfirmDelete:
		content = m.viewConfirmDelete()
	}

	return lipgloss.JoinVertical(
		lipgloss.Left,
		m.viewTabs(),
		m.viewStatus(),
		content,
		m.help.View(m),
	)
}

func (m Model) viewTabs() string {
	var tabs []string
	for i, title := range tabTitles {
		if i == 0 && m.startDate != "" {
			title = "Week of " + m.startDate
		}
		if m.state == SessionState(i) {
			tabs = append(tabs, activeTabStyle.Render(title))
		} else {
			tabs = append(tabs, inactiveTabStyle.Render(title))
		}
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, tabs...)
}

func (m Model) viewStatus() string {
	switch {
	case m.err != nil:
		return dangerStyle.Render(fmt.Sprintf("Error: %v", m.err))
	case m.validationWarning != "":
		return warningStyle.Render(m.validationWarning)
	case m.status != "":
		return statusStyle.Render(m.status)
	}
	return ""
}

func (m Model) viewUnscheduled() string {
	if len(m.unscheduled.Rows()) == 0 {
		return "Everything fits this week."
	}
	return m.unscheduled.View()
}

func (m Model) viewConfirmDelete() string {
	return lipgloss.Place(m.width, max(m.height-4, 5),
		lipgloss.Center, lipgloss.Center,
		lipgloss.JoinVertical(lipgloss.Center,
			dangerStyle.Render("Delete task "+m.pendingDelete+"?"),
			"",
			"[y] Yes",
			"[n] No",
		),
	)
}
