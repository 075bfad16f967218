package command

import (
	"context"

	gocmd "github.com/goliatone/go-command"
	"github.com/goliatone/go-order-notify/core"
)

// ReconcileService is the part of the reconciler the manual triggers drive.
type ReconcileService interface {
	RunCycle(ctx context.Context) (core.CycleReport, error)
	DrainPending(ctx context.Context) (core.DrainReport, error)
	SendTest(ctx context.Context) error
	Cleanup(ctx context.Context) (core.CleanupReport, error)
}

type RunCycleCommand struct {
	service ReconcileService
}

func NewRunCycleCommand(service ReconcileService) *RunCycleCommand {
	return &RunCycleCommand{service: service}
}

func (c *RunCycleCommand) Execute(ctx context.Context, _ RunCycleMessage) error {
	if c == nil || c.service == nil {
		return commandDependencyError("command: reconcile service is required")
	}
	out, err := c.service.RunCycle(ctx)
	if err != nil {
		return err
	}
	storeResult(ctx, out)
	return nil
}

type DrainPendingCommand struct {
	service ReconcileService
}

func NewDrainPendingCommand(service ReconcileService) *DrainPendingCommand {
	return &DrainPendingCommand{service: service}
}

func (c *DrainPendingCommand) Execute(ctx context.Context, _ DrainPendingMessage) error {
	if c == nil || c.service == nil {
		return commandDependencyError("command: reconcile service is required")
	}
	out, err := c.service.DrainPending(ctx)
	if err != nil {
		return err
	}
	storeResult(ctx, out)
	return nil
}

type SendTestCommand struct {
	service ReconcileService
}

func NewSendTestCommand(service ReconcileService) *SendTestCommand {
	return &SendTestCommand{service: service}
}

func (c *SendTestCommand) Execute(ctx context.Context, _ SendTestMessage) error {
	if c == nil || c.service == nil {
		return commandDependencyError("command: reconcile service is required")
	}
	return c.service.SendTest(ctx)
}

type CleanupCommand struct {
	service ReconcileService
}

func NewCleanupCommand(service ReconcileService) *CleanupCommand {
	return &CleanupCommand{service: service}
}

func (c *CleanupCommand) Execute(ctx context.Context, _ CleanupMessage) error {
	if c == nil || c.service == nil {
		return commandDependencyError("command: reconcile service is required")
	}
	out, err := c.service.Cleanup(ctx)
	if err != nil {
		return err
	}
	storeResult(ctx, out)
	return nil
}

func storeResult[T any](ctx context.Context, value T) {
	collector := gocmd.ResultFromContext[T](ctx)
	if collector == nil {
		return
	}
	collector.Store(value)
}
