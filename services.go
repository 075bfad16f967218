package ordernotify

import "github.com/goliatone/go-order-notify/core"

type Config = core.Config

type Option = core.Option

type Reconciler = core.Reconciler

type Order = core.Order
type LineItem = core.LineItem
type Customer = core.Customer
type Address = core.Address

type Ledger = core.Ledger
type SystemLog = core.SystemLog
type CommerceSource = core.CommerceSource
type Messenger = core.Messenger
type MetricsRecorder = core.MetricsRecorder

type CycleReport = core.CycleReport
type DrainReport = core.DrainReport
type CleanupReport = core.CleanupReport
type StatusReport = core.StatusReport
type HealthReport = core.HealthReport

var (
	WithLogger           = core.WithLogger
	WithLoggerProvider   = core.WithLoggerProvider
	WithMetricsRecorder  = core.WithMetricsRecorder
	WithErrorMapper      = core.WithErrorMapper
	WithMessageFormatter = core.WithMessageFormatter
	WithClock            = core.WithClock
)

func DefaultConfig() Config {
	return core.DefaultConfig()
}

func NewReconciler(cfg Config, ledger Ledger, commerce CommerceSource, messenger Messenger, opts ...Option) (*Reconciler, error) {
	return core.NewReconciler(cfg, ledger, commerce, messenger, opts...)
}
