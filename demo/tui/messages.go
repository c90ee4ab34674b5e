package tui

import (
	"time"

	"slidecast/types"
)

// ProgressMsg carries a progress callback from a local export
type ProgressMsg struct {
	Percent float64
	Status  string
}

// StateMsg carries an export state transition
type StateMsg struct {
	State types.ExportState
}

// DoneMsg is sent once when a local export finishes
type DoneMsg struct {
	Result *Result
	Err    error
}

// StatusUpdateMsg is sent when a remote job snapshot arrives
type StatusUpdateMsg struct {
	Status *types.JobStatus
	Err    error
}

// TickMsg is sent periodically to trigger polling
type TickMsg struct {
	Time time.Time
}
