package executor

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

var (
	// ErrTimeout is matched by errors reporting that a command exceeded its wall-clock limit.
	ErrTimeout = errors.New("command timed out")

	// ErrOutputLimit is matched by errors reporting that a command produced too much output.
	ErrOutputLimit = errors.New("command output limit exceeded")
)

// maxStderrInError bounds how much stderr is quoted in an ExitError message.
const maxStderrInError = 2048

// TimeoutError reports that a command was killed after running for longer than After.
type TimeoutError struct {
	After time.Duration
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("Command timed out after %s", e.After)
}

func (e *TimeoutError) Is(target error) bool {
	return target == ErrTimeout
}

// OutputLimitError reports that a command was killed after its combined output exceeded Limit bytes.
type OutputLimitError struct {
	Limit int
}

func (e *OutputLimitError) Error() string {
	return fmt.Sprintf("Command output exceeded %d bytes", e.Limit)
}

func (e *OutputLimitError) Is(target error) bool {
	return target == ErrOutputLimit
}

// SpawnError reports that a command could not be started at all.
type SpawnError struct {
	Err error
}

func (e *SpawnError) Error() string {
	return fmt.Sprintf("Failed to start command: %v", e.Err)
}

func (e *SpawnError) Unwrap() error {
	return e.Err
}

// ExitError reports that a command ran to completion with a non-zero status.
type ExitError struct {
	Code   int
	Signal string
	Stderr string
}

func (e *ExitError) Error() string {
	var b strings.Builder
	if e.Signal != "" {
		fmt.Fprintf(&b, "Command terminated by signal %s", e.Signal)
	} else {
		fmt.Fprintf(&b, "Command failed with exit code %d", e.Code)
	}
	stderr := strings.TrimSpace(e.Stderr)
	if len(stderr) > maxStderrInError {
		stderr = stderr[:maxStderrInError] + "..."
	}
	if stderr != "" {
		b.WriteString(": ")
		b.WriteString(stderr)
	}
	return b.String()
}
