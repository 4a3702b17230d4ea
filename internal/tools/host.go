package tools

import (
	"bytes"
	"context"
	"errors"
	"os/exec"
	"syscall"
	"time"
)

// hostRunner executes commands as local subprocesses. The whole process
// group is killed on timeout so stray children cannot outlive the budget.
type hostRunner struct{}

func (hostRunner) Run(ctx context.Context, cmd, cwd string, timeout time.Duration) (string, string, int, bool, error) {
	runCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	c := exec.Command("sh", "-c", cmd)
	c.Dir = cwd
	c.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}

	var stdout, stderr bytes.Buffer
	c.Stdout = &stdout
	c.Stderr = &stderr

	if err := c.Start(); err != nil {
		return "", "", -1, false, err
	}

	done := make(chan error, 1)
	go func() { done <- c.Wait() }()

	var waitErr error
	timedOut := false
	select {
	case waitErr = <-done:
	case <-runCtx.Done():
		syscall.Kill(-c.Process.Pid, syscall.SIGKILL)
		<-done
		timedOut = errors.Is(runCtx.Err(), context.DeadlineExceeded)
		if !timedOut {
			// Trial-level cancellation, not a tool timeout.
			return stdout.String(), stderr.String(), -1, false, ctx.Err()
		}
	}

	exitCode := 0
	if waitErr != nil {
		var exitErr *exec.ExitError
		if errors.As(waitErr, &exitErr) {
			exitCode = exitErr.ExitCode()
		} else if !timedOut {
			return stdout.String(), stderr.String(), -1, false, waitErr
		}
	}
	return stdout.String(), stderr.String(), exitCode, timedOut, nil
}
