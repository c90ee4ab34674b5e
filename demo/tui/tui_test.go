package tui

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"slidecast/types"

	tea "github.com/charmbracelet/bubbletea"
)

func update(t *testing.T, m Model, msg tea.Msg) Model {
	t.Helper()
	next, _ := m.Update(msg)
	return next.(Model)
}

func TestLocalProgress(t *testing.T) {
	m := NewLocalModel("deck.yaml")
	m = update(t, m, StateMsg{State: types.StateEncodingFast})
	m = update(t, m, ProgressMsg{Percent: 40, Status: "Encoding slide 2/5"})
	m = update(t, m, ProgressMsg{Percent: 30, Status: "Encoding slide 2/5"})
	if m.Percent != 40 {
		t.Errorf("percent = %v, progress must not go backwards", m.Percent)
	}
	if len(m.Logs) != 2 {
		t.Errorf("logs = %v", m.Logs)
	}
	if !strings.Contains(m.View(), "Encoding slide 2/5") {
		t.Error("view should show the current status")
	}

	m = update(t, m, DoneMsg{Result: &Result{Location: "out.mp4", Pipeline: "fast", Size: 2 << 20}})
	if !m.Done() || m.Percent != 100 {
		t.Fatalf("state = %s, percent = %v", m.State, m.Percent)
	}
	view := m.View()
	for _, want := range []string{"COMPLETE", "out.mp4", "2.00 MB"} {
		if !strings.Contains(view, want) {
			t.Errorf("view missing %q", want)
		}
	}
}

func TestLocalFailure(t *testing.T) {
	m := update(t, NewLocalModel("deck"), DoneMsg{Err: errors.New("export failed: no raster")})
	if m.State != types.StateFailed || !strings.Contains(m.View(), "no raster") {
		t.Errorf("state = %s", m.State)
	}
}

func TestQuitKey(t *testing.T) {
	next, cmd := NewLocalModel("deck").Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("q")})
	if !next.(Model).Quitting || cmd == nil {
		t.Error("q should quit")
	}
}

func TestWatchPollsServer(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/exports/job-1" {
			http.NotFound(w, r)
			return
		}
		_ = json.NewEncoder(w).Encode(types.JobStatus{
			ID:       "job-1",
			State:    types.StateDone,
			Progress: 100,
			Location: "s3://bucket/job-1.mp4",
			Logs:     []types.LogEntry{{Message: "Queued 3 slides"}, {Message: "Export complete"}},
		})
	}))
	defer srv.Close()

	m := NewWatchModel(srv.URL, "job-1")
	if m.Init() == nil {
		t.Fatal("watch model should start polling")
	}

	msg := pollStatus(m.Client, m.JobID)()
	m = update(t, m, msg)
	if m.State != types.StateDone || m.Result == nil || m.Result.Location != "s3://bucket/job-1.mp4" {
		t.Fatalf("model = %+v", m)
	}
	if len(m.Logs) != 2 {
		t.Errorf("logs = %v", m.Logs)
	}
	if _, cmd := m.Update(TickMsg{}); cmd != nil {
		t.Error("a finished job should stop polling")
	}

	missing := pollStatus(m.Client, "nope")().(StatusUpdateMsg)
	if missing.Err == nil {
		t.Error("unknown job should fail")
	}
}
