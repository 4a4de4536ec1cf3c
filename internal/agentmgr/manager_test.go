package agentmgr

import (
	"context"
	"testing"
	"time"

	"github.com/nextlevelbuilder/vdsgateway/internal/model"
	"github.com/nextlevelbuilder/vdsgateway/internal/volume"
)

// fakeAccess is a minimal volume.Access stand-in that returns a tiny fixed
// buffer for every extraction, fast enough to exercise the execution loop
// in tests without a real survey backend.
type fakeAccess struct{}

func (fakeAccess) Open(ctx context.Context, surveyID string) (*volume.Handle, error) {
	return &volume.Handle{SurveyID: surveyID, Survey: testSurvey()}, nil
}

func (fakeAccess) Describe(h *volume.Handle) model.Survey { return h.Survey }

func (fakeAccess) Extract(ctx context.Context, h *volume.Handle, req model.ExtractionRequest) (*model.ExtractedBuffer, model.Statistics, error) {
	buf := &model.ExtractedBuffer{Shape: []int{2}, Data: []float32{1, 2}}
	return buf, model.Statistics{Mean: 1.5, SampleCount: 2}, nil
}

func TestManager_StartExtraction_AutoExecute(t *testing.T) {
	mgr := New(fakeAccess{}, nil)
	handle := &volume.Handle{SurveyID: "s1", Survey: testSurvey()}

	status, err := mgr.StartExtraction(context.Background(), handle, "every 500 inline from 1000 to 3000", true)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if status.Progress.Total != 5 {
		t.Fatalf("got %d tasks, want 5", status.Progress.Total)
	}

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		st, err := mgr.Status(status.SessionID)
		if err != nil {
			t.Fatalf("status error: %v", err)
		}
		if st.State == model.SessionCompleted {
			break
		}
		time.Sleep(20 * time.Millisecond)
	}

	final, err := mgr.Status(status.SessionID)
	if err != nil {
		t.Fatalf("status error: %v", err)
	}
	if final.State != model.SessionCompleted {
		t.Fatalf("session did not complete in time, state = %v", final.State)
	}

	results, err := mgr.Results(status.SessionID)
	if err != nil {
		t.Fatalf("results error: %v", err)
	}
	if len(results.CompletedTasks) != 5 {
		t.Errorf("got %d completed tasks, want 5", len(results.CompletedTasks))
	}
}

func TestManager_StartExtraction_NoAutoExecute(t *testing.T) {
	mgr := New(fakeAccess{}, nil)
	handle := &volume.Handle{SurveyID: "s1", Survey: testSurvey()}

	status, err := mgr.StartExtraction(context.Background(), handle, "every 500 inline from 1000 to 3000", false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if status.State != model.SessionIdle {
		t.Errorf("state = %v, want idle", status.State)
	}
}

func TestManager_PauseResumeStateMachine(t *testing.T) {
	mgr := New(fakeAccess{}, nil)
	handle := &volume.Handle{SurveyID: "s1", Survey: testSurvey()}

	status, err := mgr.StartExtraction(context.Background(), handle, "every 100 inline from 1000 to 3000", false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// Pausing an idle session must fail: pause is only valid from running.
	if err := mgr.Pause(status.SessionID); err == nil {
		t.Error("expected pause to fail from idle state")
	}

	// Resuming a non-paused session must fail too.
	if err := mgr.Resume(status.SessionID); err == nil {
		t.Error("expected resume to fail from idle state")
	}
}

func TestManager_UnknownSession(t *testing.T) {
	mgr := New(fakeAccess{}, nil)
	if _, err := mgr.Status("nonexistent"); err == nil {
		t.Error("expected error for unknown session id")
	}
}
