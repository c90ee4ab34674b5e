package tui

import (
	"fmt"
	"strings"

	"slidecast/types"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/progress"
	tea "github.com/charmbracelet/bubbletea"
)

const maxLogs = 8

// Model shows the progress of one export, either running in this process
// or polled from a server
type Model struct {
	Title string

	// Client and JobID are set when watching a remote job
	Client *Client
	JobID  string

	State    types.ExportState
	Percent  float64
	Status   string
	Logs     []string
	Result   *Result
	Err      error
	Quitting bool

	bar  progress.Model
	quit key.Binding
}

// Result summarizes a finished export
type Result struct {
	Location string
	Pipeline string
	Size     int
	VideoID  string
}

func newModel(title string) Model {
	return Model{
		Title: title,
		State: types.StateQueued,
		bar:   progress.New(progress.WithDefaultGradient(), progress.WithWidth(50)),
		quit: key.NewBinding(
			key.WithKeys("q", "ctrl+c"),
			key.WithHelp("q", "quit"),
		),
	}
}

// NewLocalModel follows an export driven by the caller through Send
func NewLocalModel(title string) Model {
	return newModel(title)
}

// NewWatchModel polls a job on a slidecast server
func NewWatchModel(baseURL, jobID string) Model {
	m := newModel("Job " + jobID)
	m.Client = NewClient(baseURL)
	m.JobID = jobID
	return m
}

// Init implements tea.Model interface
func (m Model) Init() tea.Cmd {
	if m.Client == nil {
		return nil
	}
	return tea.Batch(pollStatus(m.Client, m.JobID), tickCmd())
}

func (m Model) addLog(line string) Model {
	if line == "" || (len(m.Logs) > 0 && m.Logs[len(m.Logs)-1] == line) {
		return m
	}
	m.Logs = append(m.Logs, line)
	if len(m.Logs) > maxLogs {
		m.Logs = m.Logs[len(m.Logs)-maxLogs:]
	}
	return m
}

// Done reports whether the export reached a terminal state
func (m Model) Done() bool {
	return m.State.Terminal() || m.Err != nil
}

func (m Model) stateText() string {
	switch m.State {
	case types.StateQueued, types.StateIdle:
		return stateStyle.Render("⏳ Waiting to start...")
	case types.StateProbing:
		return stateStyle.Render("🔍 Checking encoder support...")
	case types.StateEncodingFast:
		return stateStyle.Render("⚡ Encoding")
	case types.StateEncodingLegacy:
		return legacyStyle.Render("🎥 Recording in real time")
	case types.StateDone:
		return badgeStyle.Render("✅ COMPLETE")
	case types.StateFailed:
		msg := "Unknown error"
		if m.Err != nil {
			msg = m.Err.Error()
		}
		return errorStyle.Render("❌ Error: " + msg)
	default:
		return string(m.State)
	}
}

func (m Model) formatResult() string {
	r := m.Result
	var b strings.Builder
	b.WriteString(badgeStyle.Render("Export Result"))
	b.WriteString("\n\n")
	if r.Location != "" {
		fmt.Fprintf(&b, "Output:   %s\n", r.Location)
	}
	if r.Pipeline != "" {
		fmt.Fprintf(&b, "Pipeline: %s\n", stateStyle.Render(r.Pipeline))
	}
	if r.Size > 0 {
		fmt.Fprintf(&b, "Size:     %.2f MB\n", float64(r.Size)/(1024*1024))
	}
	if r.VideoID != "" {
		fmt.Fprintf(&b, "YouTube:  https://youtube.com/watch?v=%s\n", r.VideoID)
	}
	return strings.TrimRight(b.String(), "\n")
}
