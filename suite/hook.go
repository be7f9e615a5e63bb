package suite

import (
	"context"

	"github.com/arloliu/go-equiptest/logger"
)

// Phase identifies when a suite command runs.
type Phase uint8

const (
	// SetupPhase commands run before the first step.
	SetupPhase Phase = iota
	// TeardownPhase commands run after the last executed step.
	TeardownPhase
)

// String returns "setup" or "teardown".
func (p Phase) String() string {
	switch p {
	case SetupPhase:
		return "setup"
	case TeardownPhase:
		return "teardown"
	}

	return "unknown"
}

// CommandHook executes suite setup and teardown commands.
type CommandHook interface {
	Execute(ctx context.Context, phase Phase, deviceID string, command string) error
}

// CommandHookFunc adapts a function to the CommandHook interface.
type CommandHookFunc func(ctx context.Context, phase Phase, deviceID string, command string) error

// Execute calls f(ctx, phase, deviceID, command).
func (f CommandHookFunc) Execute(ctx context.Context, phase Phase, deviceID string, command string) error {
	return f(ctx, phase, deviceID, command)
}

// logHook is the default hook; it records the command and does nothing else.
type logHook struct {
	logger logger.Logger
}

func (h logHook) Execute(_ context.Context, phase Phase, deviceID string, command string) error {
	h.logger.Info("suite command", "phase", phase.String(), "device_id", deviceID, "command", command)
	return nil
}
