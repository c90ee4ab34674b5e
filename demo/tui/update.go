package tui

import (
	"errors"

	"slidecast/types"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
)

// Update implements tea.Model interface
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if key.Matches(msg, m.quit) {
			m.Quitting = true
			return m, tea.Quit
		}
	case ProgressMsg:
		return m.handleProgress(msg), nil
	case StateMsg:
		m.State = msg.State
		return m.addLog("State: " + string(msg.State)), nil
	case DoneMsg:
		return m.handleDone(msg), nil
	case StatusUpdateMsg:
		return m.handleStatus(msg), nil
	case TickMsg:
		if m.Client == nil || m.Done() {
			return m, nil
		}
		return m, tea.Batch(pollStatus(m.Client, m.JobID), tickCmd())
	}
	return m, nil
}

func (m Model) handleProgress(msg ProgressMsg) Model {
	if msg.Percent > m.Percent {
		m.Percent = msg.Percent
	}
	m.Status = msg.Status
	return m.addLog(msg.Status)
}

func (m Model) handleDone(msg DoneMsg) Model {
	if msg.Err != nil {
		m.State = types.StateFailed
		m.Err = msg.Err
		return m
	}
	m.State = types.StateDone
	m.Percent = 100
	m.Result = msg.Result
	return m
}

func (m Model) handleStatus(msg StatusUpdateMsg) Model {
	if msg.Err != nil {
		// transient; keep polling
		m.Status = msg.Err.Error()
		return m
	}
	st := msg.Status
	m.State = st.State
	m.Percent = st.Progress
	m.Status = st.Status
	m.Logs = nil
	for _, l := range st.Logs {
		m = m.addLog(l.Message)
	}
	switch st.State {
	case types.StateDone:
		m.Result = &Result{Location: st.Location, Pipeline: st.Pipeline, Size: st.Size, VideoID: st.VideoID}
	case types.StateFailed:
		m.Err = errors.New(st.Error)
	}
	return m
}
