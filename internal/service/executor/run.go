package executor

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Output is the aggregated result of a bounded command.
type Output struct {
	Stdout   string
	Stderr   string
	ExitCode int
	Duration time.Duration
}

// Run executes spec to completion and returns its output.
// A command that exceeds its timeout fails with a *TimeoutError, one that exceeds the output
// ceiling fails with an *OutputLimitError, one that cannot be started fails with a *SpawnError,
// and one that exits non-zero fails with an *ExitError. Output is returned alongside every
// error except SpawnError.
func (r *Runner) Run(ctx context.Context, spec Spec) (*Output, error) {
	timeout := r.timeoutFor(spec, r.defaultTimeout)
	limit := spec.MaxOutputBytes
	if limit <= 0 {
		limit = r.maxOutputBytes
	}

	runCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	var stdout, stderr bytes.Buffer
	limiter := newOutputLimiter(limit, cancel)

	cmd := r.command(runCtx, spec)
	cmd.Stdout = limiter.wrap(&stdout)
	cmd.Stderr = limiter.wrap(&stderr)

	started := time.Now()
	if err := cmd.Start(); err != nil {
		return nil, &SpawnError{Err: err}
	}
	r.logger.Debug("command started", zap.String("command", describe(spec)), zap.Int("pid", cmd.Process.Pid))

	waitErr := cmd.Wait()
	out := &Output{
		Stdout:   stdout.String(),
		Stderr:   stderr.String(),
		ExitCode: -1,
		Duration: time.Since(started),
	}
	if cmd.ProcessState != nil {
		out.ExitCode = cmd.ProcessState.ExitCode()
	}

	switch {
	case limiter.exceeded():
		return out, &OutputLimitError{Limit: limit}
	case errors.Is(runCtx.Err(), context.DeadlineExceeded):
		return out, &TimeoutError{After: timeout}
	case ctx.Err() != nil:
		return out, fmt.Errorf("command cancelled: %w", ctx.Err())
	case waitErr == nil:
		return out, nil
	}

	var exitErr *exec.ExitError
	if errors.As(waitErr, &exitErr) {
		return out, &ExitError{
			Code:   out.ExitCode,
			Signal: exitSignal(cmd.ProcessState),
			Stderr: out.Stderr,
		}
	}
	if errors.Is(waitErr, exec.ErrWaitDelay) && out.ExitCode == 0 {
		// the command itself succeeded; a background child kept the pipes open
		return out, nil
	}
	return out, fmt.Errorf("command failed: %w", waitErr)
}

// outputLimiter enforces one byte budget shared by stdout and stderr.
// Crossing the budget cancels the command.
type outputLimiter struct {
	mu     sync.Mutex
	limit  int
	total  int
	over   bool
	cancel context.CancelFunc
}

func newOutputLimiter(limit int, cancel context.CancelFunc) *outputLimiter {
	return &outputLimiter{limit: limit, cancel: cancel}
}

func (l *outputLimiter) wrap(w io.Writer) io.Writer {
	return &limitedWriter{l: l, w: w}
}

func (l *outputLimiter) exceeded() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.over
}

type limitedWriter struct {
	l *outputLimiter
	w io.Writer
}

// Write always reports the full length so the copying goroutine keeps draining the pipe
// until the killed process closes it.
func (lw *limitedWriter) Write(p []byte) (int, error) {
	l := lw.l
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.over {
		return len(p), nil
	}
	remaining := l.limit - l.total
	if len(p) > remaining {
		_, _ = lw.w.Write(p[:remaining])
		l.total = l.limit
		l.over = true
		l.cancel()
		return len(p), nil
	}
	n, err := lw.w.Write(p)
	l.total += n
	return len(p), err
}
