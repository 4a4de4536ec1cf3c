// Package mount implements Mount Health (C4): async liveness checks of
// filesystem mounts, classifying failures so callers can distinguish a
// merely-missing path from a stale NFS handle left behind by a dropped VPN
// connection.
package mount

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"
)

// Status classifies the outcome of a mount health check.
type Status string

const (
	Healthy           Status = "healthy"
	Stale             Status = "stale"
	Inaccessible      Status = "inaccessible"
	NotFound          Status = "not_found"
	PermissionDenied  Status = "permission_denied"
)

// Result is the outcome of one mount's health check.
type Result struct {
	Status        Status        `json:"status"`
	Path          string        `json:"path"`
	ResponseTime  time.Duration `json:"response_time"`
	ErrorMessage  string        `json:"error_message,omitempty"`
	RetryCount    int           `json:"retry_count"`
}

// IsHealthy reports whether the check succeeded.
func (r Result) IsHealthy() bool { return r.Status == Healthy }

func (r Result) String() string {
	if r.IsHealthy() {
		return fmt.Sprintf("Mount %s: HEALTHY (%s)", r.Path, r.ResponseTime)
	}
	return fmt.Sprintf("Mount %s: %s - %s", r.Path, r.Status, r.ErrorMessage)
}

// Checker checks mount health with timeouts and exponential backoff.
type Checker struct {
	Timeout      time.Duration
	MaxRetries   int
	RetryDelay   time.Duration
}

// NewChecker builds a Checker with the given timeout and retry budget.
func NewChecker(timeout time.Duration, maxRetries int, retryDelay time.Duration) *Checker {
	return &Checker{Timeout: timeout, MaxRetries: maxRetries, RetryDelay: retryDelay}
}

// Check performs a single health check: a directory listing under a hard
// timeout, run on a worker goroutine so the caller is never blocked past
// the timeout even if the underlying syscall hangs (as a stale NFS handle
// can).
func (c *Checker) Check(ctx context.Context, mountPath string) Result {
	start := time.Now()

	type outcome struct {
		status Status
		errMsg string
	}
	done := make(chan outcome, 1)

	go func() {
		if _, err := os.Stat(mountPath); err != nil && os.IsNotExist(err) {
			done <- outcome{status: NotFound, errMsg: fmt.Sprintf("path does not exist: %s", mountPath)}
			return
		}
		_, err := os.ReadDir(mountPath)
		if err == nil {
			done <- outcome{status: Healthy}
			return
		}
		done <- outcome{status: classifyError(err), errMsg: err.Error()}
	}()

	timeout := c.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	select {
	case o := <-done:
		elapsed := time.Since(start)
		if o.status == Healthy {
			return Result{Status: Healthy, Path: mountPath, ResponseTime: elapsed}
		}
		return Result{Status: o.status, Path: mountPath, ResponseTime: elapsed, ErrorMessage: o.errMsg}
	case <-time.After(timeout):
		return Result{
			Status:       Stale,
			Path:         mountPath,
			ResponseTime: time.Since(start),
			ErrorMessage: fmt.Sprintf("mount check timed out after %s, likely stale NFS mount", timeout),
		}
	case <-ctx.Done():
		return Result{
			Status:       Inaccessible,
			Path:         mountPath,
			ResponseTime: time.Since(start),
			ErrorMessage: ctx.Err().Error(),
		}
	}
}

// classifyError distinguishes a stale NFS handle or unreachable server
// (ESTALE, EHOSTDOWN, EHOSTUNREACH, ETIMEDOUT — often a dropped VPN tunnel
// mid-mount) from a permission failure or a generic I/O error.
func classifyError(err error) Status {
	if os.IsPermission(err) {
		return PermissionDenied
	}
	var errno syscall.Errno
	if errors.As(err, &errno) {
		switch errno {
		case syscall.ESTALE, syscall.EHOSTDOWN, syscall.EHOSTUNREACH, syscall.ETIMEDOUT:
			return Stale
		}
	}
	return Inaccessible
}

// WaitUntilReady retries a failing check with exponential backoff
// (delay*2^attempt) up to MaxRetries, returning the last result either way.
func (c *Checker) WaitUntilReady(ctx context.Context, mountPath string) Result {
	var result Result
	for attempt := 0; ; attempt++ {
		result = c.Check(ctx, mountPath)
		result.RetryCount = attempt
		if result.IsHealthy() || attempt >= c.MaxRetries {
			return result
		}

		delay := c.RetryDelay
		if delay <= 0 {
			delay = 2 * time.Second
		}
		for i := 0; i < attempt; i++ {
			delay *= 2
		}

		select {
		case <-time.After(delay):
		case <-ctx.Done():
			result.ErrorMessage = ctx.Err().Error()
			return result
		}
	}
}

// CheckMultiple runs health checks for every mount root concurrently.
func (c *Checker) CheckMultiple(ctx context.Context, mountPaths []string) map[string]Result {
	results := make(map[string]Result, len(mountPaths))
	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)

	for _, p := range mountPaths {
		p := p
		g.Go(func() error {
			r := c.Check(gctx, p)
			mu.Lock()
			results[p] = r
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()
	return results
}

// Remediation returns human-readable advice for an unhealthy result,
// keyed by classification.
func Remediation(r Result) string {
	if r.IsHealthy() {
		return "Mount is healthy, no action needed."
	}
	parent := filepath.Dir(r.Path)
	switch r.Status {
	case NotFound:
		return fmt.Sprintf("1. Check if the mount path is correct\n2. Verify the volume is mounted: ls -la %s\n3. Check if the backing server is reachable", parent)
	case Stale:
		return fmt.Sprintf("STALE MOUNT DETECTED — this typically happens when a VPN disconnects:\n1. Check VPN connection\n2. Force unmount: sudo umount -f %s\n3. Remount the volume\n4. If inside a container, restart it after remounting", r.Path)
	case Inaccessible:
		return fmt.Sprintf("1. Check permissions: ls -la %s\n2. Verify network connectivity to the backing server\n3. Check mount status: mount | grep %s", r.Path, r.Path)
	case PermissionDenied:
		return fmt.Sprintf("1. Check file permissions: ls -la %s\n2. Verify the process user has read access\n3. Check export permissions on the server", r.Path)
	default:
		return "Unknown issue. Check mount status and network connectivity."
	}
}
