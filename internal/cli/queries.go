package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/goliatone/go-order-notify/adapters/gocommand"
	"github.com/goliatone/go-order-notify/core"
	notifyquery "github.com/goliatone/go-order-notify/query"
	sqlstore "github.com/goliatone/go-order-notify/store/sql"
	"github.com/spf13/cobra"
)

func NewStatusCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:          "status",
		Short:        "Probe every dependency and print the service status",
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, rootOpts, func(ctx context.Context, app *App) error {
				app.Reconciler.Gate().CheckAll(ctx)
				report, err := gocommand.Query[notifyquery.StatusMessage, core.StatusReport](ctx, notifyquery.StatusMessage{})
				if err != nil {
					return err
				}
				return writeOutput(cmd, rootOpts, report, app.Reconciler.Formatter().StatusMessage(report))
			})
		},
	}
}

func NewOrderCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "order <id>",
		Short: "Fetch one order and print the message it would produce",
		Long: `Fetch a single order from the store and print the notification text.

Example:
  order-notify order 1042
  order-notify order 1042 --format json`,
		Args:         cobra.ExactArgs(1),
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, rootOpts, func(ctx context.Context, app *App) error {
				view, err := gocommand.Query[notifyquery.OrderMessage, notifyquery.OrderView](ctx,
					notifyquery.OrderMessage{ID: args[0]})
				if err != nil {
					return err
				}
				text := view.Message
				if !view.Eligible {
					text = fmt.Sprintf("order %s has status %q and would not be notified\n\n%s",
						view.Order.Number, view.Order.Status, view.Message)
				}
				return writeOutput(cmd, rootOpts, view, text)
			})
		},
	}
}

type MigrateOptions struct {
	*RootOptions
}

func NewMigrateCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &MigrateOptions{RootOptions: rootOpts}

	return &cobra.Command{
		Use:          "migrate",
		Short:        "Apply the ledger schema migrations",
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}
			cfg, err := loadConfig(ctx, opts.RootOptions, runtimeConfig())
			if err != nil {
				return err
			}
			ledger, err := sqlstore.Open(ctx, cfg.Database, true)
			if err != nil {
				return err
			}
			defer ledger.Close()
			stats, err := ledger.Stats(ctx)
			if err != nil {
				return err
			}
			return writeOutput(cmd, opts.RootOptions, stats, fmt.Sprintf(
				"migrations applied (%s): processed=%d pending=%d logs=%d",
				strings.TrimSpace(cfg.Database.Driver), stats.Processed, stats.Pending, stats.Logs,
			))
		},
	}
}
