package cli

import (
	"context"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/goliatone/go-order-notify/httpapi"
	"github.com/goliatone/go-order-notify/scheduler"
	"github.com/spf13/cobra"
)

type ServeOptions struct {
	*RootOptions
	Address        string
	AllowedOrigins []string
	NoScheduler    bool
}

func NewServeCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ServeOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the scheduler and the operational HTTP API",
		Long: `Start the long running service: the first check runs after the startup delay,
then every check interval; the pending queue drains on its own interval and the
ledger is cleaned up daily.

Example:
  order-notify serve --config ./order-notify.yaml
  order-notify serve --addr :8080 --verbose`,
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runServe(ctx, opts)
		},
	}

	cmd.Flags().StringVar(&opts.Address, "addr", "", "HTTP listen address (overrides PORT)")
	cmd.Flags().StringSliceVar(&opts.AllowedOrigins, "allowed-origin", nil, "origin allowed to call the API from a browser")
	cmd.Flags().BoolVar(&opts.NoScheduler, "no-scheduler", false, "serve the API without periodic jobs")

	return cmd
}

func runServe(ctx context.Context, opts *ServeOptions) error {
	runtime := runtimeConfig()
	runtime.HTTP.Address = strings.TrimSpace(opts.Address)

	app, err := newApp(ctx, opts.RootOptions, runtime)
	if err != nil {
		return err
	}
	logger := app.Logger.GetLogger("cli")
	defer func() {
		if err := closeWithTimeout(app, app.Config.HTTP.ShutdownTimeout); err != nil {
			logger.Error("shutdown failed", "error", err.Error())
		}
	}()

	var jobs *scheduler.Scheduler
	if !opts.NoScheduler {
		commands := app.Facade.Commands()
		jobs, err = scheduler.New(app.Config.Schedule, scheduler.Jobs{
			RunCycle:     commands.RunCycle,
			DrainPending: commands.DrainPending,
			Cleanup:      commands.Cleanup,
		},
			scheduler.WithLogger(app.Logger.GetLogger("scheduler")),
			scheduler.WithLocation(app.location()),
		)
		if err != nil {
			return err
		}
		jobs.Start(ctx)
	}

	server := httpapi.NewServer(app.Facade, app.Config.ServiceName,
		httpapi.WithLogger(app.Logger.GetLogger("http")),
		httpapi.WithErrorMapper(app.Reconciler.MapError),
		httpapi.WithAllowedOrigins(opts.AllowedOrigins...),
	)
	serveErr := server.Serve(ctx, app.Config.HTTP.Address, app.Config.HTTP.ShutdownTimeout)

	if jobs != nil {
		stopCtx, cancel := context.WithTimeout(context.Background(), app.Config.HTTP.ShutdownTimeout)
		defer cancel()
		if err := jobs.Stop(stopCtx); err != nil {
			logger.Warn("scheduler stop timed out", "error", err.Error())
		}
	}
	return serveErr
}
