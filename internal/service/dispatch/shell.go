package dispatch

import (
	"context"
	"errors"

	"github.com/mcpagent/mcpagent/internal/model"
	"github.com/mcpagent/mcpagent/internal/service/executor"
	"github.com/mcpagent/mcpagent/pkg/types"
)

// ErrNoStreamingConnection is returned by shell_execute_interactive when the call did not
// arrive on a streaming connection.
var ErrNoStreamingConnection = errors.New("shell_execute_interactive requires a streaming connection")

func (d *Dispatcher) shellExecute(ctx context.Context, p Params) (model.Payload, error) {
	command, err := p.RequireString("command")
	if err != nil {
		return nil, err
	}
	cwd, err := d.resolveParam(p, "cwd", ".")
	if err != nil {
		return nil, err
	}

	out, err := d.runner.Run(ctx, executor.Spec{
		Command: command,
		Dir:     cwd,
		// zero falls back to the runner's configured default
		Timeout: p.Seconds("timeout", 0),
	})
	if err != nil {
		return nil, err
	}
	return model.Payload{
		"command":  command,
		"cwd":      cwd,
		"exitCode": out.ExitCode,
		"stdout":   out.Stdout,
		"stderr":   out.Stderr,
		"duration": out.Duration.Milliseconds(),
	}, nil
}

// shellExecuteInteractive hands the command to the streaming connection the call arrived on.
// Its output is pushed over that connection as command_output events.
func (d *Dispatcher) shellExecuteInteractive(ctx context.Context, p Params) (model.Payload, error) {
	starter, ok := CommandStarterFrom(ctx)
	if !ok {
		return nil, ErrNoStreamingConnection
	}
	command, err := p.RequireString("command")
	if err != nil {
		return nil, err
	}
	cwd, err := d.resolveParam(p, "cwd", ".")
	if err != nil {
		return nil, err
	}

	req := types.CommandRequest{
		ID:      p.String("id", ""),
		Command: command,
		Cwd:     cwd,
		Timeout: p.Float("timeout", 0),
	}
	starter.StartCommand(req)

	payload := model.Payload{
		"started": true,
		"command": command,
		"cwd":     cwd,
	}
	if req.ID != "" {
		payload["id"] = req.ID
	}
	return payload, nil
}
