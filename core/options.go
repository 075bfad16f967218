package core

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/goliatone/go-config/cfgx"
	goerrors "github.com/goliatone/go-errors"
	opts "github.com/goliatone/go-options"
)

type ErrorMapper func(err error) *goerrors.Error

type ConfigProvider interface {
	Load(ctx context.Context, defaults Config) (Config, error)
}

type RawConfigLoader interface {
	LoadRaw(ctx context.Context) (map[string]any, error)
}

type OptionsResolver interface {
	Resolve(defaults Config, loaded Config, runtime Config) (Config, error)
}

type reconcilerBuilder struct {
	logger          Logger
	loggerProvider  LoggerProvider
	metricsRecorder MetricsRecorder
	errorMapper     ErrorMapper
	formatter       *MessageFormatter
	now             func() time.Time
}

type Option func(*reconcilerBuilder)

func WithLogger(logger Logger) Option {
	return func(b *reconcilerBuilder) {
		b.logger = logger
	}
}

func WithLoggerProvider(provider LoggerProvider) Option {
	return func(b *reconcilerBuilder) {
		b.loggerProvider = provider
	}
}

func WithMetricsRecorder(recorder MetricsRecorder) Option {
	return func(b *reconcilerBuilder) {
		b.metricsRecorder = recorder
	}
}

func WithErrorMapper(mapper ErrorMapper) Option {
	return func(b *reconcilerBuilder) {
		b.errorMapper = mapper
	}
}

func WithMessageFormatter(formatter *MessageFormatter) Option {
	return func(b *reconcilerBuilder) {
		b.formatter = formatter
	}
}

// WithClock replaces the wall clock, mostly for tests.
func WithClock(now func() time.Time) Option {
	return func(b *reconcilerBuilder) {
		b.now = now
	}
}

type staticRawConfigLoader struct {
	Values map[string]any
}

func (l staticRawConfigLoader) LoadRaw(context.Context) (map[string]any, error) {
	if len(l.Values) == 0 {
		return map[string]any{}, nil
	}
	out := make(map[string]any, len(l.Values))
	for key, value := range l.Values {
		out[key] = value
	}
	return out, nil
}

type CfgxConfigProvider struct {
	Loader RawConfigLoader
}

func NewCfgxConfigProvider(loader RawConfigLoader) *CfgxConfigProvider {
	return &CfgxConfigProvider{Loader: loader}
}

func (p *CfgxConfigProvider) Load(ctx context.Context, defaults Config) (Config, error) {
	if p == nil {
		return defaults, nil
	}
	loader := p.Loader
	if loader == nil {
		loader = staticRawConfigLoader{}
	}
	raw, err := loader.LoadRaw(ctx)
	if err != nil {
		return Config{}, err
	}
	cfg, err := cfgx.Build[Config](raw,
		cfgx.WithDefaults(defaults),
		cfgx.WithValidator[Config]((*Config).Validate),
	)
	if err != nil {
		return Config{}, err
	}
	return cfg, nil
}

type GoOptionsResolver struct{}

func (GoOptionsResolver) Resolve(defaults Config, loaded Config, runtime Config) (Config, error) {
	stack, err := opts.NewStack(
		opts.NewLayer(
			opts.NewScope("defaults", 0),
			configToLayerMap(defaults, true),
			opts.WithSnapshotID[map[string]any]("defaults"),
		),
		opts.NewLayer(
			opts.NewScope("config", 10),
			configToLayerMap(loaded, false),
			opts.WithSnapshotID[map[string]any]("config"),
		),
		opts.NewLayer(
			opts.NewScope("runtime", 20),
			configToLayerMap(runtime, false),
			opts.WithSnapshotID[map[string]any]("runtime"),
		),
	)
	if err != nil {
		return Config{}, fmt.Errorf("core: options stack build failed: %w", err)
	}
	merged, err := stack.Merge()
	if err != nil {
		return Config{}, fmt.Errorf("core: options merge failed: %w", err)
	}
	resolved, err := cfgx.Build[Config](merged.Value,
		cfgx.WithDefaults(defaults),
		cfgx.WithValidator[Config]((*Config).Validate),
	)
	if err != nil {
		return Config{}, err
	}
	if err := resolved.Validate(); err != nil {
		return Config{}, err
	}
	return resolved, nil
}

// LoadConfig resolves defaults, loaded values and runtime overrides, in that
// order of precedence from lowest to highest.
func LoadConfig(ctx context.Context, provider ConfigProvider, resolver OptionsResolver, runtime Config) (Config, error) {
	if provider == nil {
		provider = NewCfgxConfigProvider(nil)
	}
	if resolver == nil {
		resolver = GoOptionsResolver{}
	}
	defaults := DefaultConfig()
	loaded, err := provider.Load(ctx, defaults)
	if err != nil {
		return Config{}, err
	}
	return resolver.Resolve(defaults, loaded, runtime)
}

func configToLayerMap(cfg Config, includeZero bool) map[string]any {
	layer := map[string]any{}
	putString(layer, "service_name", cfg.ServiceName, includeZero)

	http := map[string]any{}
	putString(http, "address", cfg.HTTP.Address, includeZero)
	putDuration(http, "shutdown_timeout", cfg.HTTP.ShutdownTimeout, includeZero)
	putSection(layer, "http", http)

	schedule := map[string]any{}
	putDuration(schedule, "check_interval", cfg.Schedule.CheckInterval, includeZero)
	putDuration(schedule, "drain_interval", cfg.Schedule.DrainInterval, includeZero)
	putString(schedule, "cleanup_spec", cfg.Schedule.CleanupSpec, includeZero)
	putDuration(schedule, "startup_delay", cfg.Schedule.StartupDelay, includeZero)
	putSection(layer, "schedule", schedule)

	reconcile := map[string]any{}
	putInt(reconcile, "max_orders", cfg.Reconcile.MaxOrders, includeZero)
	putInt(reconcile, "max_attempts", cfg.Reconcile.MaxAttempts, includeZero)
	putDuration(reconcile, "processed_retention", cfg.Reconcile.ProcessedRetention, includeZero)
	putInt(reconcile, "log_retention", cfg.Reconcile.LogRetention, includeZero)
	putSection(layer, "reconcile", reconcile)

	database := map[string]any{}
	putString(database, "driver", cfg.Database.Driver, includeZero)
	putString(database, "dsn", cfg.Database.DSN, includeZero)
	if includeZero || cfg.Database.Debug {
		database["debug"] = cfg.Database.Debug
	}
	putDuration(database, "ping_timeout", cfg.Database.PingTimeout, includeZero)
	putSection(layer, "database", database)

	commerce := map[string]any{}
	putString(commerce, "base_url", cfg.Commerce.BaseURL, includeZero)
	putString(commerce, "consumer_key", cfg.Commerce.ConsumerKey, includeZero)
	putString(commerce, "consumer_secret", cfg.Commerce.ConsumerSecret, includeZero)
	putDuration(commerce, "timeout", cfg.Commerce.Timeout, includeZero)
	putSection(layer, "commerce", commerce)

	messaging := map[string]any{}
	putString(messaging, "api_url", cfg.Messaging.APIURL, includeZero)
	putString(messaging, "api_version", cfg.Messaging.APIVersion, includeZero)
	putString(messaging, "access_token", cfg.Messaging.AccessToken, includeZero)
	putString(messaging, "phone_number_id", cfg.Messaging.PhoneNumberID, includeZero)
	putString(messaging, "target_phone", cfg.Messaging.TargetPhone, includeZero)
	putDuration(messaging, "send_timeout", cfg.Messaging.SendTimeout, includeZero)
	putDuration(messaging, "ping_timeout", cfg.Messaging.PingTimeout, includeZero)
	if includeZero || cfg.Messaging.RatePerSecond > 0 {
		messaging["rate_per_second"] = cfg.Messaging.RatePerSecond
	}
	putInt(messaging, "burst", cfg.Messaging.Burst, includeZero)
	putSection(layer, "messaging", messaging)

	messages := map[string]any{}
	putString(messages, "timezone", cfg.Messages.Timezone, includeZero)
	putSection(layer, "messages", messages)

	cache := map[string]any{}
	putDuration(cache, "stats_ttl", cfg.Cache.StatsTTL, includeZero)
	putSection(layer, "cache", cache)
	return layer
}

func putString(layer map[string]any, key string, value string, includeZero bool) {
	if includeZero || strings.TrimSpace(value) != "" {
		layer[key] = strings.TrimSpace(value)
	}
}

func putInt(layer map[string]any, key string, value int, includeZero bool) {
	if includeZero || value != 0 {
		layer[key] = value
	}
}

func putDuration(layer map[string]any, key string, value time.Duration, includeZero bool) {
	if includeZero || value != 0 {
		layer[key] = value
	}
}

func putSection(layer map[string]any, key string, section map[string]any) {
	if len(section) > 0 {
		layer[key] = section
	}
}
