package cli

import (
	"context"
	"fmt"

	gocmd "github.com/goliatone/go-command"
	"github.com/goliatone/go-order-notify/adapters/gocommand"
	notifycommand "github.com/goliatone/go-order-notify/command"
	"github.com/goliatone/go-order-notify/core"
	"github.com/spf13/cobra"
)

func NewRunOnceCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:          "run-once",
		Short:        "Run a single reconciliation cycle and exit",
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, rootOpts, func(ctx context.Context, app *App) error {
				report, err := dispatch[notifycommand.RunCycleMessage, core.CycleReport](ctx,
					notifycommand.RunCycleMessage{Source: notifycommand.SourceCLI})
				if err != nil {
					return err
				}
				return writeOutput(cmd, rootOpts, report, fmt.Sprintf(
					"fetched=%d delivered=%d deferred=%d already_processed=%d ineligible=%d failed=%d",
					report.Fetched, report.Delivered, report.Deferred,
					report.AlreadyProcessed, report.Ineligible, report.Failed,
				))
			})
		},
	}
}

func NewDrainCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:          "drain",
		Short:        "Retry the pending delivery queue once",
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, rootOpts, func(ctx context.Context, app *App) error {
				report, err := dispatch[notifycommand.DrainPendingMessage, core.DrainReport](ctx,
					notifycommand.DrainPendingMessage{Source: notifycommand.SourceCLI})
				if err != nil {
					return err
				}
				text := fmt.Sprintf("claimed=%d delivered=%d retried=%d abandoned=%d failed=%d",
					report.Claimed, report.Delivered, report.Retried, report.Abandoned, report.Failed)
				if report.Skipped {
					text = "drain skipped: " + report.Reason
				}
				return writeOutput(cmd, rootOpts, report, text)
			})
		},
	}
}

func NewCleanupCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:          "cleanup",
		Short:        "Purge old processed markers and prune the system log",
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, rootOpts, func(ctx context.Context, app *App) error {
				report, err := dispatch[notifycommand.CleanupMessage, core.CleanupReport](ctx,
					notifycommand.CleanupMessage{Source: notifycommand.SourceCLI})
				if err != nil {
					return err
				}
				return writeOutput(cmd, rootOpts, report, fmt.Sprintf(
					"purged_orders=%d pruned_logs=%d", report.PurgedOrders, report.PrunedLogs))
			})
		},
	}
}

func NewTestSendCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:          "test-send",
		Short:        "Send the WhatsApp test message",
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, rootOpts, func(ctx context.Context, app *App) error {
				if err := gocommand.Dispatch(ctx, notifycommand.SendTestMessage{Source: notifycommand.SourceCLI}); err != nil {
					return err
				}
				return writeOutput(cmd, rootOpts, map[string]bool{"success": true}, "test message sent")
			})
		},
	}
}

// dispatch sends msg through the command bus and returns the stored result.
func dispatch[T any, R any](ctx context.Context, msg T) (R, error) {
	collector := gocmd.NewResult[R]()
	if err := gocommand.Dispatch(gocmd.ContextWithResult(ctx, collector), msg); err != nil {
		var zero R
		return zero, err
	}
	report, _ := collector.Load()
	return report, nil
}

// withApp builds the process for a one-shot command and always closes it.
func withApp(cmd *cobra.Command, rootOpts *RootOptions, fn func(ctx context.Context, app *App) error) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	app, err := newApp(ctx, rootOpts, runtimeConfig())
	if err != nil {
		return err
	}
	runErr := fn(ctx, app)
	closeErr := closeWithTimeout(app, app.Config.HTTP.ShutdownTimeout)
	if runErr != nil {
		return runErr
	}
	return closeErr
}
