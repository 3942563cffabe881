package tui

import (
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/julianstephens/weekcal/internal/tui/components/tasklist"
)

const chromeHeight = 6

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.help.Width = msg.Width
		bodyHeight := max(msg.Height-chromeHeight, 1)
		m.weekModel.SetSize(msg.Width-4, bodyHeight)
		m.taskList.SetSize(msg.Width-4, bodyHeight)
		m.unscheduled.SetWidth(msg.Width - 4)
		m.unscheduled.SetHeight(bodyHeight)
		return m, nil

	case planLoadedMsg:
		m.err = nil
		m.validationWarning = msg.warning
		m.setPlan(msg.plan)
		return m, nil

	case tasksLoadedMsg:
		m.taskList.SetTasks(msg.tasks)
		return m, nil

	case actionDoneMsg:
		m.status = msg.status
		return m, tea.Batch(m.loadPlan(m.startDate), m.loadTasks())

	case errMsg:
		m.err = msg.err
		return m, nil

	case tasklist.DoneTaskMsg:
		return m, m.markDone(msg.EntryPath)

	case tasklist.DeleteTaskMsg:
		m.pendingDelete = msg.EntryPath
		m.state = StateConfirmDelete
		return m, nil

	case tea.KeyMsg:
		if m.state == StateConfirmDelete {
			return m.updateConfirmDelete(msg)
		}
		if m.state == StateTasks && m.taskList.Filtering() {
			break
		}
		switch {
		case key.Matches(msg, m.keys.Quit):
			m.quitting = true
			return m, tea.Quit
		case key.Matches(msg, m.keys.Tab):
			m.state = (m.state + 1) % SessionState(len(tabTitles))
			return m, nil
		case key.Matches(msg, m.keys.ShiftTab):
			m.state = (m.state - 1 + SessionState(len(tabTitles))) % SessionState(len(tabTitles))
			return m, nil
		case key.Matches(msg, m.keys.Help):
			m.help.ShowAll = !m.help.ShowAll
			return m, nil
		case key.Matches(msg, m.keys.PrevWeek):
			return m, m.loadPlan(m.shiftWeek(-7))
		case key.Matches(msg, m.keys.NextWeek):
			return m, m.loadPlan(m.shiftWeek(7))
		case key.Matches(msg, m.keys.Today):
			return m, m.loadPlan("")
		case key.Matches(msg, m.keys.Refresh):
			m.status = ""
			return m, tea.Batch(m.loadPlan(m.startDate), m.loadTasks())
		}
	}

	var cmd tea.Cmd
	switch m.state {
	case StateWeek:
		m.weekModel, cmd = m.weekModel.Update(msg)
	case StateUnscheduled:
		m.unscheduled, cmd = m.unscheduled.Update(msg)
	case StateTasks:
		m.taskList, cmd = m.taskList.Update(msg)
	}
	return m, cmd
}

func (m Model) updateConfirmDelete(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Confirm):
		path := m.pendingDelete
		m.pendingDelete = ""
		m.state = StateTasks
		return m, m.deleteTask(path)
	case key.Matches(msg, m.keys.Cancel):
		m.pendingDelete = ""
		m.state = StateTasks
	}
	return m, nil
}
