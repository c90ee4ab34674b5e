package types

import "time"

// ExportState represents the export state machine
type ExportState string

const (
	StateIdle           ExportState = "idle"
	StateQueued         ExportState = "queued"
	StateProbing        ExportState = "probing"
	StateEncodingFast   ExportState = "encoding_fast"
	StateEncodingLegacy ExportState = "encoding_legacy"
	StateDone           ExportState = "done"
	StateFailed         ExportState = "failed"
)

// Terminal reports whether no further transitions are possible
func (s ExportState) Terminal() bool {
	return s == StateDone || s == StateFailed
}

// LogEntry represents a single log line with timestamp
type LogEntry struct {
	Timestamp time.Time `json:"timestamp"`
	Message   string    `json:"message"`
}

// JobStatus is the JSON response for GET /api/exports/:id
type JobStatus struct {
	ID        string      `json:"id"`
	Title     string      `json:"title,omitempty"`
	State     ExportState `json:"state"`
	Progress  float64     `json:"progress"`
	Status    string      `json:"status"`
	Pipeline  string      `json:"pipeline,omitempty"`
	Container string      `json:"container,omitempty"`
	Size      int         `json:"size,omitempty"`
	Location  string      `json:"location,omitempty"`
	VideoID   string      `json:"video_id,omitempty"`
	Logs      []LogEntry  `json:"logs"`
	Error     string      `json:"error,omitempty"`
	CreatedAt time.Time   `json:"created_at"`
	UpdatedAt time.Time   `json:"updated_at"`
}

// ExportEvent is published when a job reaches a terminal state
type ExportEvent struct {
	JobID    string      `json:"job_id"`
	State    ExportState `json:"state"`
	Location string      `json:"location,omitempty"`
	VideoID  string      `json:"video_id,omitempty"`
	Error    string      `json:"error,omitempty"`
}
