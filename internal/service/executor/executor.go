// Package executor runs shell commands for the agent, either to completion with bounded output
// or as a stream of output events.
package executor

import (
	"context"
	"os/exec"
	"runtime"
	"time"

	"go.uber.org/zap"
)

const (
	// DefaultMaxOutputBytes is the combined stdout+stderr ceiling for bounded execution.
	DefaultMaxOutputBytes = 10 * 1024 * 1024

	// DefaultTimeout applies to bounded execution when the caller does not supply one.
	DefaultTimeout = 30 * time.Second

	// DefaultStreamTimeout applies to streaming execution when the caller does not supply one.
	DefaultStreamTimeout = 60 * time.Second

	// DefaultWaitDelay bounds how long Wait blocks on output pipes held open by
	// background grandchildren after the command itself has exited or been killed.
	DefaultWaitDelay = 2 * time.Second
)

// RunnerConfig holds the configuration parameters for a Runner.
// Zero values are replaced by the defaults above.
type RunnerConfig struct {
	// Shell is the interpreter and its flags; the command string is appended as the last argument.
	Shell []string

	MaxOutputBytes int
	DefaultTimeout time.Duration
	StreamTimeout  time.Duration
	WaitDelay      time.Duration

	Logger *zap.Logger
}

// Spec describes a single command to run.
type Spec struct {
	// Command is passed to the shell. Ignored when Argv is set.
	Command string
	// Argv runs a program directly, without a shell.
	Argv []string

	Dir string
	// Env replaces the environment of the child when non-nil.
	Env []string

	// Timeout overrides the runner default for this command.
	Timeout time.Duration
	// MaxOutputBytes overrides the runner ceiling for this command. Bounded mode only.
	MaxOutputBytes int
}

// Runner spawns child processes. Every child is placed in its own process group
// so that a timeout or cancellation kills the whole tree.
type Runner struct {
	shell          []string
	maxOutputBytes int
	defaultTimeout time.Duration
	streamTimeout  time.Duration
	waitDelay      time.Duration
	logger         *zap.Logger
}

// NewRunner creates a Runner. A nil config yields a Runner with all defaults.
func NewRunner(c *RunnerConfig) *Runner {
	if c == nil {
		c = &RunnerConfig{}
	}
	r := &Runner{
		shell:          c.Shell,
		maxOutputBytes: c.MaxOutputBytes,
		defaultTimeout: c.DefaultTimeout,
		streamTimeout:  c.StreamTimeout,
		waitDelay:      c.WaitDelay,
		logger:         c.Logger,
	}
	if len(r.shell) == 0 {
		r.shell = DefaultShell()
	}
	if r.maxOutputBytes <= 0 {
		r.maxOutputBytes = DefaultMaxOutputBytes
	}
	if r.defaultTimeout <= 0 {
		r.defaultTimeout = DefaultTimeout
	}
	if r.streamTimeout <= 0 {
		r.streamTimeout = DefaultStreamTimeout
	}
	if r.waitDelay <= 0 {
		r.waitDelay = DefaultWaitDelay
	}
	if r.logger == nil {
		r.logger = zap.NewNop()
	}
	return r
}

// DefaultShell returns the platform shell used to interpret command strings.
func DefaultShell() []string {
	if runtime.GOOS == "windows" {
		return []string{"cmd", "/C"}
	}
	return []string{"sh", "-c"}
}

// MaxOutputBytes returns the combined output ceiling applied to bounded execution.
func (r *Runner) MaxOutputBytes() int {
	return r.maxOutputBytes
}

// command builds the exec.Cmd for spec. Cancelling ctx kills the child's process group.
func (r *Runner) command(ctx context.Context, spec Spec) *exec.Cmd {
	var cmd *exec.Cmd
	if len(spec.Argv) > 0 {
		cmd = exec.CommandContext(ctx, spec.Argv[0], spec.Argv[1:]...)
	} else {
		args := append(append([]string{}, r.shell[1:]...), spec.Command)
		cmd = exec.CommandContext(ctx, r.shell[0], args...)
	}
	cmd.Dir = spec.Dir
	cmd.Env = spec.Env

	setProcessGroup(cmd)
	cmd.Cancel = func() error {
		return killProcessGroup(cmd)
	}
	cmd.WaitDelay = r.waitDelay
	return cmd
}

func (r *Runner) timeoutFor(spec Spec, fallback time.Duration) time.Duration {
	if spec.Timeout > 0 {
		return spec.Timeout
	}
	return fallback
}

func describe(spec Spec) string {
	if len(spec.Argv) > 0 {
		return spec.Argv[0]
	}
	return spec.Command
}
