package mount

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestChecker_Check_HealthyForReadableDir(t *testing.T) {
	dir := t.TempDir()
	c := NewChecker(time.Second, 1, time.Millisecond)

	r := c.Check(context.Background(), dir)
	if !r.IsHealthy() {
		t.Errorf("status = %v, want healthy", r.Status)
	}
	if r.Path != dir {
		t.Errorf("path = %q, want %q", r.Path, dir)
	}
}

func TestChecker_Check_NotFoundForMissingPath(t *testing.T) {
	dir := t.TempDir()
	missing := filepath.Join(dir, "does-not-exist")
	c := NewChecker(time.Second, 1, time.Millisecond)

	r := c.Check(context.Background(), missing)
	if r.Status != NotFound {
		t.Errorf("status = %v, want not_found", r.Status)
	}
}

func TestChecker_Check_InaccessibleForUnreadableFile(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "not-a-directory")
	if err := os.WriteFile(file, []byte("x"), 0644); err != nil {
		t.Fatalf("setup: %v", err)
	}
	c := NewChecker(time.Second, 1, time.Millisecond)

	r := c.Check(context.Background(), file)
	if r.Status != Inaccessible {
		t.Errorf("status = %v, want inaccessible for a plain file read as a directory", r.Status)
	}
}

func TestChecker_CheckMultiple_ChecksEveryPath(t *testing.T) {
	healthyDir := t.TempDir()
	missing := filepath.Join(t.TempDir(), "gone")
	c := NewChecker(time.Second, 1, time.Millisecond)

	results := c.CheckMultiple(context.Background(), []string{healthyDir, missing})
	if len(results) != 2 {
		t.Fatalf("got %d results, want 2", len(results))
	}
	if !results[healthyDir].IsHealthy() {
		t.Errorf("%s should be healthy", healthyDir)
	}
	if results[missing].Status != NotFound {
		t.Errorf("%s status = %v, want not_found", missing, results[missing].Status)
	}
}

func TestChecker_WaitUntilReady_ReturnsImmediatelyWhenHealthy(t *testing.T) {
	dir := t.TempDir()
	c := NewChecker(time.Second, 3, time.Millisecond)

	r := c.WaitUntilReady(context.Background(), dir)
	if !r.IsHealthy() {
		t.Errorf("status = %v, want healthy", r.Status)
	}
	if r.RetryCount != 0 {
		t.Errorf("retry count = %d, want 0", r.RetryCount)
	}
}

func TestChecker_WaitUntilReady_GivesUpAfterMaxRetries(t *testing.T) {
	missing := filepath.Join(t.TempDir(), "gone")
	c := NewChecker(time.Second, 2, time.Millisecond)

	r := c.WaitUntilReady(context.Background(), missing)
	if r.IsHealthy() {
		t.Fatal("expected an unhealthy result for a permanently missing path")
	}
	if r.RetryCount != 2 {
		t.Errorf("retry count = %d, want 2 (MaxRetries)", r.RetryCount)
	}
}

func TestResult_String_FormatsByStatus(t *testing.T) {
	healthy := Result{Status: Healthy, Path: "/data/vds", ResponseTime: time.Millisecond}
	if got := healthy.String(); got == "" {
		t.Error("expected a non-empty description")
	}

	stale := Result{Status: Stale, Path: "/data/vds", ErrorMessage: "timed out"}
	if got := stale.String(); got == "" {
		t.Error("expected a non-empty description")
	}
}

func TestRemediation_CoversEveryStatus(t *testing.T) {
	for _, status := range []Status{NotFound, Stale, Inaccessible, PermissionDenied} {
		r := Result{Status: status, Path: "/data/vds"}
		if advice := Remediation(r); advice == "" {
			t.Errorf("expected remediation advice for status %v", status)
		}
	}
	if advice := Remediation(Result{Status: Healthy, Path: "/data/vds"}); advice == "" {
		t.Error("expected a no-action message for a healthy result")
	}
}
