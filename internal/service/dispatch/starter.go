package dispatch

import (
	"context"

	"github.com/mcpagent/mcpagent/pkg/types"
)

// CommandStarter starts a streaming command whose output is pushed to a live connection.
// The command's working directory has already been resolved through the sandbox.
type CommandStarter interface {
	StartCommand(req types.CommandRequest)
}

type commandStarterKey struct{}

// WithCommandStarter returns a context that lets shell_execute_interactive reach the
// streaming connection the call arrived on.
func WithCommandStarter(ctx context.Context, s CommandStarter) context.Context {
	return context.WithValue(ctx, commandStarterKey{}, s)
}

// CommandStarterFrom returns the CommandStarter stored in ctx, if any.
func CommandStarterFrom(ctx context.Context) (CommandStarter, bool) {
	s, ok := ctx.Value(commandStarterKey{}).(CommandStarter)
	return s, ok && s != nil
}
