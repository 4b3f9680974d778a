package executor

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"
)

// EventType identifies the kind of a streaming event.
type EventType string

const (
	EventStdout EventType = "stdout"
	EventStderr EventType = "stderr"
	EventClose  EventType = "close"
	EventError  EventType = "error"
)

// streamBuffer is the number of events buffered between the process and the consumer.
const streamBuffer = 64

// Event is a single item in the output of a streaming command.
type Event struct {
	Type EventType
	Data string

	// ExitCode and Signal are set on close events. ExitCode is -1 when the process was killed by a signal.
	ExitCode int
	Signal   string

	// Message is set on error events, and on close events that followed a timeout.
	Message string
}

// Terminal reports whether e ends its stream.
func (e Event) Terminal() bool {
	return e.Type == EventClose || e.Type == EventError
}

// Stream starts spec and returns its events. Output is forwarded chunk by chunk as it is read.
// The sequence ends with exactly one close event, or one error event if the process could not
// be started, and the channel is closed right after it.
//
// Cancelling ctx kills the process group; the consumer may then stop reading, and the producer
// drops the remaining events instead of blocking. The timeout also kills the process group, but
// the close event is still delivered.
func (r *Runner) Stream(ctx context.Context, spec Spec) <-chan Event {
	events := make(chan Event, streamBuffer)
	go r.stream(ctx, spec, events)
	return events
}

func (r *Runner) stream(ctx context.Context, spec Spec, events chan<- Event) {
	defer close(events)

	emit := func(ev Event) bool {
		select {
		case events <- ev:
			return true
		case <-ctx.Done():
			return false
		}
	}

	timeout := r.timeoutFor(spec, r.streamTimeout)
	procCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	cmd := r.command(procCtx, spec)
	cmd.Stdout = &eventWriter{typ: EventStdout, emit: emit}
	cmd.Stderr = &eventWriter{typ: EventStderr, emit: emit}

	if err := cmd.Start(); err != nil {
		spawnErr := &SpawnError{Err: err}
		emit(Event{Type: EventError, Message: spawnErr.Error()})
		return
	}
	r.logger.Debug("streaming command started", zap.String("command", describe(spec)), zap.Int("pid", cmd.Process.Pid))

	// Wait returns only after both output copiers have finished,
	// so nothing is written after the close event.
	waitErr := cmd.Wait()

	closeEv := Event{Type: EventClose, ExitCode: -1}
	if cmd.ProcessState != nil {
		closeEv.ExitCode = cmd.ProcessState.ExitCode()
		closeEv.Signal = exitSignal(cmd.ProcessState)
	}
	if errors.Is(procCtx.Err(), context.DeadlineExceeded) && ctx.Err() == nil {
		closeEv.Message = (&TimeoutError{After: timeout}).Error()
	}
	if waitErr != nil {
		r.logger.Debug("streaming command ended", zap.String("command", describe(spec)), zap.Error(waitErr))
	}
	if !emit(closeEv) {
		r.logger.Debug("streaming consumer gone before close event", zap.String("command", describe(spec)))
	}
}

// eventWriter turns each chunk written by the process into an event.
type eventWriter struct {
	typ  EventType
	emit func(Event) bool
}

func (w *eventWriter) Write(p []byte) (int, error) {
	// p is reused by the caller, so the chunk is copied into a string
	w.emit(Event{Type: w.typ, Data: string(p)})
	return len(p), nil
}

// String is used in log fields and test failure messages.
func (e Event) String() string {
	switch e.Type {
	case EventClose:
		return fmt.Sprintf("close(%d)", e.ExitCode)
	case EventError:
		return "error(" + e.Message + ")"
	default:
		return fmt.Sprintf("%s(%q)", e.Type, e.Data)
	}
}
