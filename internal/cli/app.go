package cli

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/goliatone/go-command/dispatcher"
	ordernotify "github.com/goliatone/go-order-notify"
	"github.com/goliatone/go-order-notify/adapters/gocommand"
	"github.com/goliatone/go-order-notify/adapters/gologger"
	"github.com/goliatone/go-order-notify/adapters/otelmetrics"
	"github.com/goliatone/go-order-notify/core"
	sqlstore "github.com/goliatone/go-order-notify/store/sql"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

// App is the wired process: config, logging, ledger, reconciler and the
// command/query bus.
type App struct {
	Config        core.Config
	Logger        *gologger.ZapProvider
	Reconciler    *core.Reconciler
	Facade        *ordernotify.Facade
	subscriptions []dispatcher.Subscription
	zap           *zap.Logger
}

// loadConfig reads the dotenv file, then layers the YAML file and the
// environment over the defaults. runtime wins over both.
func loadConfig(ctx context.Context, opts *RootOptions, runtime core.Config) (core.Config, error) {
	if envFile := strings.TrimSpace(opts.EnvFile); envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return core.Config{}, fmt.Errorf("cli: load env file %s: %w", envFile, err)
		}
	}
	loader := core.MultiLoader{
		core.YAMLFileLoader{Path: opts.ConfigFile},
		core.EnvLoader{},
	}
	return core.LoadConfig(ctx, core.NewCfgxConfigProvider(loader), core.GoOptionsResolver{}, runtime)
}

func newApp(ctx context.Context, opts *RootOptions, runtime core.Config) (*App, error) {
	cfg, err := loadConfig(ctx, opts, runtime)
	if err != nil {
		return nil, err
	}

	level := opts.LogLevel
	if opts.Verbose {
		level = "debug"
	}
	zl, err := gologger.NewProduction(level, opts.Verbose)
	if err != nil {
		return nil, fmt.Errorf("cli: build logger: %w", err)
	}
	provider := gologger.NewZapProvider(zl.Named(cfg.ServiceName))

	base, err := sqlstore.Open(ctx, cfg.Database, true)
	if err != nil {
		_ = zl.Sync()
		return nil, err
	}
	var ledger core.Ledger = base
	if cfg.Cache.StatsTTL > 0 {
		cache, err := sqlstore.NewStatsCache(cfg.Cache.StatsTTL)
		if err != nil {
			_ = base.Close()
			return nil, err
		}
		if ledger, err = sqlstore.NewCachedLedger(base, cache); err != nil {
			_ = base.Close()
			return nil, err
		}
	}

	commerce := ordernotify.WooCommerceSource(cfg, nil, provider.GetLogger("commerce"))
	messenger := ordernotify.WhatsAppMessenger(cfg, nil)
	reconciler, err := ordernotify.NewReconciler(cfg, ledger, commerce, messenger,
		ordernotify.WithLoggerProvider(provider),
		ordernotify.WithMetricsRecorder(otelmetrics.New(otelmetrics.WithLogger(provider.GetLogger("metrics")))),
	)
	if err != nil {
		_ = ledger.Close()
		return nil, err
	}
	if err := reconciler.SeedPendingMirror(ctx); err != nil {
		provider.GetLogger("cli").Warn("pending mirror not seeded", "error", err.Error())
	}

	facade, err := ordernotify.NewFacade(reconciler)
	if err != nil {
		_ = ledger.Close()
		return nil, err
	}
	adapter := gocommand.NewRegistryAdapter(nil)
	subscriptions, err := facade.Subscribe(adapter)
	if err != nil {
		_ = ledger.Close()
		return nil, err
	}
	if err := adapter.Initialize(); err != nil {
		gocommand.Unsubscribe(subscriptions...)
		_ = ledger.Close()
		return nil, err
	}

	return &App{
		Config:        cfg,
		Logger:        provider,
		Reconciler:    reconciler,
		Facade:        facade,
		subscriptions: subscriptions,
		zap:           zl,
	}, nil
}

// Close releases the bus subscriptions, shuts the reconciler down and
// flushes the log.
func (a *App) Close(ctx context.Context) error {
	if a == nil {
		return nil
	}
	gocommand.Unsubscribe(a.subscriptions...)
	a.subscriptions = nil
	err := a.Reconciler.Shutdown(ctx)
	_ = a.zap.Sync()
	return err
}

func (a *App) location() *time.Location {
	location, err := time.LoadLocation(a.Config.Messages.Timezone)
	if err != nil {
		return time.UTC
	}
	return location
}

func closeWithTimeout(app *App, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	return app.Close(ctx)
}
