// Package session binds streaming commands to a live client connection.
package session

import (
	"context"
	"sync"
	"time"

	"github.com/mcpagent/mcpagent/internal/sandbox"
	"github.com/mcpagent/mcpagent/internal/service/dispatch"
	"github.com/mcpagent/mcpagent/internal/service/executor"
	"github.com/mcpagent/mcpagent/internal/telemetry"
	"github.com/mcpagent/mcpagent/pkg/types"
	"go.uber.org/zap"
)

// Sink delivers messages to the remote end of a connection.
// Implementations must be safe for concurrent use.
type Sink interface {
	Send(msg types.StreamResponse) error
}

var _ dispatch.CommandStarter = (*Session)(nil)

// Config holds the dependencies of a Session.
type Config struct {
	ID      string
	Sink    Sink
	Runner  *executor.Runner
	Sandbox *sandbox.Sandbox

	Logger  *zap.Logger
	Metrics telemetry.CustomMetrics
}

// Session owns every streaming command started on one connection.
// Closing the session kills all of its processes.
type Session struct {
	id      string
	sink    Sink
	runner  *executor.Runner
	sandbox *sandbox.Sandbox
	logger  *zap.Logger
	metrics telemetry.CustomMetrics

	ctx    context.Context
	cancel context.CancelFunc

	mu     sync.Mutex
	closed bool
	wg     sync.WaitGroup
}

// New creates a session. Cancelling ctx has the same effect as Close, except that
// it does not wait for the forwarders to finish.
func New(ctx context.Context, c *Config) *Session {
	ctx, cancel := context.WithCancel(ctx)
	s := &Session{
		id:      c.ID,
		sink:    c.Sink,
		runner:  c.Runner,
		sandbox: c.Sandbox,
		logger:  c.Logger,
		metrics: c.Metrics,
		ctx:     ctx,
		cancel:  cancel,
	}
	if s.runner == nil {
		s.runner = executor.NewRunner(nil)
	}
	if s.logger == nil {
		s.logger = zap.NewNop()
	}
	if s.metrics == nil {
		s.metrics = telemetry.NewNoopCustomMetrics()
	}
	s.logger = s.logger.With(zap.String("session", s.id))
	return s
}

// ID returns the session identifier.
func (s *Session) ID() string {
	return s.id
}

// StartCommand starts req in the background and forwards its output events to the sink,
// wrapped as {"command_output": event}. It returns immediately.
// A working directory outside the sandbox yields a single error event.
func (s *Session) StartCommand(req types.CommandRequest) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		s.logger.Debug("ignoring command on closed session", zap.String("command", req.Command))
		return
	}
	s.wg.Add(1)
	s.mu.Unlock()

	cwd := req.Cwd
	if cwd == "" {
		cwd = "."
	}
	dir, err := s.sandbox.Resolve(cwd)
	if err != nil {
		defer s.wg.Done()
		s.send(types.CommandOutput{Type: types.OutputError, ID: req.ID, Message: err.Error()})
		s.metrics.RecordStreamCommand(s.ctx, telemetry.OutcomeError, -1, 0)
		return
	}

	spec := executor.Spec{
		Command: req.Command,
		Dir:     dir,
		Timeout: time.Duration(req.Timeout * float64(time.Second)),
	}
	s.logger.Info("starting streaming command", zap.String("command", req.Command), zap.String("cwd", dir))

	events := s.runner.Stream(s.ctx, spec)
	go s.forward(req, events)
}

func (s *Session) forward(req types.CommandRequest, events <-chan executor.Event) {
	defer s.wg.Done()
	started := time.Now()

	sinkOK := true
	for ev := range events {
		if sinkOK && !s.send(toCommandOutput(req.ID, ev)) {
			// keep draining so the producer never blocks on a dead connection
			sinkOK = false
		}
		if !ev.Terminal() {
			continue
		}

		outcome := telemetry.OutcomeSuccess
		switch {
		case ev.Type == executor.EventError:
			outcome = telemetry.OutcomeError
		case ev.ExitCode != 0:
			outcome = telemetry.OutcomeFailure
		}
		s.metrics.RecordStreamCommand(s.ctx, outcome, ev.ExitCode, time.Since(started))
		s.logger.Info("streaming command finished",
			zap.String("command", req.Command),
			zap.Stringer("event", ev),
			zap.Duration("duration", time.Since(started)),
		)
	}
}

func (s *Session) send(out types.CommandOutput) bool {
	if err := s.sink.Send(types.StreamResponse{CommandOutput: &out}); err != nil {
		s.logger.Warn("failed to deliver command output", zap.Error(err))
		return false
	}
	return true
}

func toCommandOutput(id string, ev executor.Event) types.CommandOutput {
	out := types.CommandOutput{
		Type:    string(ev.Type),
		ID:      id,
		Data:    ev.Data,
		Signal:  ev.Signal,
		Message: ev.Message,
	}
	if ev.Type == executor.EventClose {
		code := ev.ExitCode
		out.ExitCode = &code
	}
	return out
}

// Close kills every running command of the session and waits until their last events
// have been handled. It is safe to call more than once.
func (s *Session) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	s.mu.Unlock()

	s.cancel()
	s.wg.Wait()
}
