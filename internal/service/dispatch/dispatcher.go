// Package dispatch maps tool names to their handlers and runs tool calls.
// It is the single place where handler errors are turned into failed tool results.
package dispatch

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/mcpagent/mcpagent/internal/model"
	"github.com/mcpagent/mcpagent/internal/sandbox"
	"github.com/mcpagent/mcpagent/internal/service/executor"
	"github.com/mcpagent/mcpagent/internal/telemetry"
	"github.com/spf13/afero"
	"go.uber.org/zap"
)

var errHandlerPanic = errors.New("internal error")

// Handler implements a single tool.
type Handler interface {
	Handle(ctx context.Context, p Params) (model.Payload, error)
}

// HandlerFunc adapts a function to the Handler interface.
type HandlerFunc func(ctx context.Context, p Params) (model.Payload, error)

func (f HandlerFunc) Handle(ctx context.Context, p Params) (model.Payload, error) {
	return f(ctx, p)
}

// Config holds the dependencies of a Dispatcher.
type Config struct {
	Sandbox *sandbox.Sandbox
	Runner  *executor.Runner

	// Fs backs the filesystem tools. Defaults to the OS filesystem.
	Fs afero.Fs
	// HostFs is used to read host introspection files such as /proc/meminfo.
	// Defaults to the OS filesystem.
	HostFs afero.Fs
	// Getenv defaults to os.Getenv.
	Getenv func(string) string

	Metrics telemetry.CustomMetrics
	Logger  *zap.Logger
}

// Dispatcher holds the immutable tool catalog and its handler table.
// It is safe for concurrent use.
type Dispatcher struct {
	tools    []model.ToolDescriptor
	handlers map[string]Handler

	sandbox *sandbox.Sandbox
	runner  *executor.Runner
	fs      afero.Fs
	hostFs  afero.Fs
	getenv  func(string) string

	metrics telemetry.CustomMetrics
	logger  *zap.Logger
}

// entry pairs a descriptor with its implementation.
// The catalog is one list of entries so the advertised tools and the handler table cannot drift apart.
type entry struct {
	model.ToolDescriptor
	handler Handler
}

// NewDispatcher creates a Dispatcher serving the built-in tool catalog.
func NewDispatcher(c *Config) (*Dispatcher, error) {
	if c.Sandbox == nil {
		return nil, fmt.Errorf("dispatcher requires a sandbox")
	}
	d := &Dispatcher{
		sandbox: c.Sandbox,
		runner:  c.Runner,
		fs:      c.Fs,
		hostFs:  c.HostFs,
		getenv:  c.Getenv,
		metrics: c.Metrics,
		logger:  c.Logger,
	}
	if d.runner == nil {
		d.runner = executor.NewRunner(nil)
	}
	if d.fs == nil {
		d.fs = afero.NewOsFs()
	}
	if d.hostFs == nil {
		d.hostFs = afero.NewOsFs()
	}
	if d.getenv == nil {
		d.getenv = os.Getenv
	}
	if d.metrics == nil {
		d.metrics = telemetry.NewNoopCustomMetrics()
	}
	if d.logger == nil {
		d.logger = zap.NewNop()
	}

	if err := d.register(d.catalog()); err != nil {
		return nil, err
	}
	return d, nil
}

func (d *Dispatcher) register(entries []entry) error {
	d.tools = make([]model.ToolDescriptor, 0, len(entries))
	d.handlers = make(map[string]Handler, len(entries))
	for _, e := range entries {
		if e.Name == "" {
			return fmt.Errorf("tool with empty name in catalog")
		}
		if e.handler == nil {
			return fmt.Errorf("tool %s has no handler", e.Name)
		}
		if _, exists := d.handlers[e.Name]; exists {
			return fmt.Errorf("duplicate tool name in catalog: %s", e.Name)
		}
		d.handlers[e.Name] = e.handler
		d.tools = append(d.tools, e.ToolDescriptor)
	}
	return nil
}

// Tools returns the tool catalog in declaration order.
func (d *Dispatcher) Tools() []model.ToolDescriptor {
	return append([]model.ToolDescriptor(nil), d.tools...)
}

// Tool returns the descriptor of the named tool.
func (d *Dispatcher) Tool(name string) (model.ToolDescriptor, bool) {
	for _, t := range d.tools {
		if t.Name == name {
			return t, true
		}
	}
	return model.ToolDescriptor{}, false
}

// Execute runs the named tool. It never returns nil and never panics:
// unknown tools, handler errors and handler panics all come back as failed results.
func (d *Dispatcher) Execute(ctx context.Context, name string, params map[string]any) *model.ToolResult {
	started := time.Now()
	outcome := telemetry.OutcomeError
	metricName := name

	defer func() {
		d.metrics.RecordToolCall(ctx, metricName, outcome, time.Since(started))
	}()

	h, ok := d.handlers[name]
	if !ok {
		// keep the label set bounded
		metricName = "unknown"
		d.logger.Warn("unknown tool requested", zap.String("tool", name))
		return model.Failure("Unknown tool: " + name)
	}

	d.logger.Debug("executing tool", zap.String("tool", name))
	payload, err := d.invoke(ctx, h, Params(params))
	if err != nil {
		if !errors.Is(err, errHandlerPanic) {
			outcome = telemetry.OutcomeFailure
		}
		d.logger.Warn("tool call failed", zap.String("tool", name), zap.Error(err))
		return model.Failure(err.Error())
	}

	outcome = telemetry.OutcomeSuccess
	return model.Success(payload)
}

func (d *Dispatcher) invoke(ctx context.Context, h Handler, p Params) (payload model.Payload, err error) {
	defer func() {
		if r := recover(); r != nil {
			d.logger.Error("tool handler panicked", zap.Any("panic", r), zap.Stack("stack"))
			payload, err = nil, fmt.Errorf("%w: %v", errHandlerPanic, r)
		}
	}()
	if p == nil {
		p = Params{}
	}
	return h.Handle(ctx, p)
}
