// Package agentmgr implements the Agent Manager (C7): parses bulk
// extraction instructions into a task plan, runs them in the background
// sequentially, and exposes status/results accessors that never leak raw
// image bytes into a session summary.
package agentmgr

import (
	"context"
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"github.com/nextlevelbuilder/vdsgateway/internal/apierr"
	"github.com/nextlevelbuilder/vdsgateway/internal/model"
	"github.com/nextlevelbuilder/vdsgateway/internal/volume"
)

// Manager owns every session for the life of the process. One active
// session is tracked in addition to the full set, matching the state
// machine's "start_extraction makes the new session active" rule.
type Manager struct {
	access volume.Access
	logger *slog.Logger

	mu       sync.RWMutex
	sessions map[string]*session
	activeID string
}

// New builds a Manager backed by the given Volume Access implementation.
func New(access volume.Access, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{access: access, logger: logger, sessions: make(map[string]*session)}
}

// StatusSnapshot is the response shape for status(session_id?).
type StatusSnapshot struct {
	SessionID   string         `json:"session_id"`
	State       model.SessionState `json:"state"`
	Progress    model.Progress `json:"progress"`
	CurrentTask string         `json:"current_task,omitempty"`
}

// ResultsSnapshot is the response shape for results(session_id?); binary
// payloads are never included.
type ResultsSnapshot struct {
	SessionID     string                   `json:"session_id"`
	Summary       string                   `json:"summary"`
	CompletedTasks []map[string]interface{} `json:"completed_tasks"`
	FailedTasks    []map[string]interface{} `json:"failed_tasks"`
}

// StartExtraction parses instruction against the survey behind handle,
// builds the task list synchronously, registers a new session as active,
// and — if autoExecute is set — launches background execution. With
// autoExecute false, execution does not start; the session ends in
// SessionIdle.
func (m *Manager) StartExtraction(ctx context.Context, handle *volume.Handle, instruction string, autoExecute bool) (*StatusSnapshot, error) {
	plan, err := ParseInstruction(instruction, handle.Survey)
	if err != nil {
		return nil, apierr.New(apierr.InvalidArgument, "%v", err)
	}

	s := newSession(handle.SurveyID, handle)
	kind := model.KindInline
	if plan.Axis == model.AxisCrossline {
		kind = model.KindCrossline
	}

	for _, selector := range plan.Selectors {
		s.tasks = append(s.tasks, &model.ExtractionTask{
			TaskID:   uuid.NewString(),
			Kind:     kind,
			Selector: selector,
			SubRange: plan.SampleRange,
			Status:   model.TaskPending,
		})
	}

	m.mu.Lock()
	m.sessions[s.id] = s
	m.activeID = s.id
	m.mu.Unlock()

	if autoExecute {
		go s.run(context.Background(), m.access, m.logger)
	} else {
		s.setState(model.SessionIdle)
	}

	return m.Status(s.id)
}

func (m *Manager) resolveID(sessionID string) (*session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if sessionID == "" {
		sessionID = m.activeID
	}
	s, ok := m.sessions[sessionID]
	if !ok {
		return nil, apierr.NotFoundf("unknown agent session: %s", sessionID)
	}
	return s, nil
}

// Status reports a session's current state, progress, and in-flight task.
func (m *Manager) Status(sessionID string) (*StatusSnapshot, error) {
	s, err := m.resolveID(sessionID)
	if err != nil {
		return nil, err
	}
	return &StatusSnapshot{
		SessionID:   s.id,
		State:       s.getState(),
		Progress:    s.progress(),
		CurrentTask: s.currentTaskID(),
	}, nil
}

// Pause requests a session pause; only valid from running.
func (m *Manager) Pause(sessionID string) error {
	s, err := m.resolveID(sessionID)
	if err != nil {
		return err
	}
	if !s.pause() {
		return apierr.New(apierr.InvalidArgument, "session %s is not running, cannot pause", s.id)
	}
	return nil
}

// Resume requests a session resume; only valid from paused.
func (m *Manager) Resume(sessionID string) error {
	s, err := m.resolveID(sessionID)
	if err != nil {
		return err
	}
	if !s.resume() {
		return apierr.New(apierr.InvalidArgument, "session %s is not paused, cannot resume", s.id)
	}
	return nil
}

// Results strips binary payloads and returns a summary view of every
// completed and failed task.
func (m *Manager) Results(sessionID string) (*ResultsSnapshot, error) {
	s, err := m.resolveID(sessionID)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	out := &ResultsSnapshot{SessionID: s.id}
	for _, t := range s.tasks {
		switch t.Status {
		case model.TaskCompleted:
			out.CompletedTasks = append(out.CompletedTasks, t.ResultMetadata)
		case model.TaskFailed:
			out.FailedTasks = append(out.FailedTasks, map[string]interface{}{
				"task_id": t.TaskID, "selector": t.Selector, "error": t.Error,
			})
		}
	}
	out.Summary = summarize(s.getState(), s.progress())
	return out, nil
}

func summarize(state model.SessionState, p model.Progress) string {
	switch state {
	case model.SessionCompleted:
		return "extraction complete"
	case model.SessionError:
		return "extraction failed"
	case model.SessionPaused:
		return "extraction paused"
	default:
		if p.Total == 0 {
			return "planning"
		}
		return "extraction in progress"
	}
}
