package model

import "time"

// SessionState is the agent session state machine.
type SessionState string

const (
	SessionPlanning SessionState = "planning"
	SessionIdle     SessionState = "idle"
	SessionRunning  SessionState = "running"
	SessionPaused   SessionState = "paused"
	SessionCompleted SessionState = "completed"
	SessionError    SessionState = "error"
)

// TaskStatus is the per-task lifecycle.
type TaskStatus string

const (
	TaskPending   TaskStatus = "pending"
	TaskRunning   TaskStatus = "running"
	TaskCompleted TaskStatus = "completed"
	TaskFailed    TaskStatus = "failed"
)

// ExtractionTask is one planned unit of work owned by a session.
type ExtractionTask struct {
	TaskID         string
	Kind           ExtractionKind
	Selector       float64
	SubRange       *Range
	Status         TaskStatus
	ResultMetadata map[string]interface{}
	Error          string
	StartedAt      *time.Time
	CompletedAt    *time.Time

	// ImageBytes is kept in process memory only; never copied into a
	// session summary (Results()).
	ImageBytes []byte
}

// Progress summarizes task counts for a status snapshot.
type Progress struct {
	Total     int     `json:"total"`
	Completed int     `json:"completed"`
	Failed    int     `json:"failed"`
	Pending   int     `json:"pending"`
	Percent   float64 `json:"percent"`
}
