package agentmgr

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/nextlevelbuilder/vdsgateway/internal/model"
	"github.com/nextlevelbuilder/vdsgateway/internal/volume"
)

// session is one background extraction run. State transitions are guarded
// by mu; resumeCh wakes the execution goroutine out of a pause without it
// busy-polling the state.
type session struct {
	id      string
	surveyID string
	handle  *volume.Handle

	mu          sync.Mutex
	state       model.SessionState
	tasks       []*model.ExtractionTask
	currentTask int // index into tasks, -1 when idle

	resumeCh chan struct{}
}

func newSession(surveyID string, handle *volume.Handle) *session {
	return &session{
		id:          uuid.NewString(),
		surveyID:    surveyID,
		handle:      handle,
		state:       model.SessionPlanning,
		currentTask: -1,
		resumeCh:    make(chan struct{}, 1),
	}
}

func (s *session) setState(state model.SessionState) {
	s.mu.Lock()
	s.state = state
	s.mu.Unlock()
}

func (s *session) getState() model.SessionState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// progress summarizes the task counters under lock.
func (s *session) progress() model.Progress {
	s.mu.Lock()
	defer s.mu.Unlock()

	p := model.Progress{Total: len(s.tasks)}
	for _, t := range s.tasks {
		switch t.Status {
		case model.TaskCompleted:
			p.Completed++
		case model.TaskFailed:
			p.Failed++
		case model.TaskPending:
			p.Pending++
		}
	}
	if p.Total > 0 {
		p.Percent = 100 * float64(p.Completed+p.Failed) / float64(p.Total)
	}
	return p
}

// currentTaskID returns the id of the task in flight, if any.
func (s *session) currentTaskID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.currentTask < 0 || s.currentTask >= len(s.tasks) {
		return ""
	}
	return s.tasks[s.currentTask].TaskID
}

// pause requests a transition to paused; only valid from running, per the
// state machine.
func (s *session) pause() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != model.SessionRunning {
		return false
	}
	s.state = model.SessionPaused
	return true
}

// resume requests a transition back to running from paused; wakes the
// execution loop if it is currently blocked waiting.
func (s *session) resume() bool {
	s.mu.Lock()
	if s.state != model.SessionPaused {
		s.mu.Unlock()
		return false
	}
	s.state = model.SessionRunning
	s.mu.Unlock()

	select {
	case s.resumeCh <- struct{}{}:
	default:
	}
	return true
}

// run executes every task sequentially, respecting pause, until the session
// completes, errors, or is torn down externally via ctx cancellation.
func (s *session) run(ctx context.Context, access volume.Access, logger *slog.Logger) {
	s.setState(model.SessionRunning)

	for i := range s.tasks {
		// Wait out a pause before starting the next task.
		for {
			state := s.getState()
			if state == model.SessionRunning {
				break
			}
			if state != model.SessionPaused {
				return
			}
			select {
			case <-s.resumeCh:
			case <-ctx.Done():
				return
			}
		}

		s.mu.Lock()
		s.currentTask = i
		task := s.tasks[i]
		task.Status = model.TaskRunning
		now := time.Now()
		task.StartedAt = &now
		s.mu.Unlock()

		s.runTask(ctx, access, task, logger)

		select {
		case <-time.After(500 * time.Millisecond):
		case <-ctx.Done():
			return
		}
	}

	s.mu.Lock()
	s.currentTask = -1
	s.mu.Unlock()
	s.setState(model.SessionCompleted)
}

func (s *session) runTask(ctx context.Context, access volume.Access, task *model.ExtractionTask, logger *slog.Logger) {
	req := model.ExtractionRequest{SurveyID: s.surveyID, Kind: task.Kind, Selector: task.Selector}
	if task.SubRange != nil {
		req.SubRanges = map[model.AxisName]model.Range{model.AxisSample: *task.SubRange}
	}

	buf, stats, err := access.Extract(ctx, s.handle, req)

	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now()
	task.CompletedAt = &now

	if err != nil {
		task.Status = model.TaskFailed
		task.Error = err.Error()
		logger.Warn("bulk extraction task failed", "session", s.id, "task", task.TaskID, "error", err)
		return
	}

	task.Status = model.TaskCompleted
	task.ResultMetadata = map[string]interface{}{
		"shape":      buf.Shape,
		"statistics": stats,
	}
}
