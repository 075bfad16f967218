package core

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	goerrors "github.com/goliatone/go-errors"
	glog "github.com/goliatone/go-logger/glog"
	"golang.org/x/sync/semaphore"
)

type OrderOutcome string

const (
	OutcomeAlreadyProcessed OrderOutcome = "already_processed"
	OutcomeIneligible       OrderOutcome = "ineligible"
	OutcomeDelivered        OrderOutcome = "delivered"
	OutcomeDeferred         OrderOutcome = "deferred"
	OutcomeFailed           OrderOutcome = "failed"
)

type CycleReport struct {
	Skipped          bool           `json:"skipped"`
	Reason           string         `json:"reason,omitempty"`
	StartedAt        time.Time      `json:"started_at"`
	Health           HealthSnapshot `json:"health"`
	Fetched          int            `json:"fetched"`
	Delivered        int            `json:"delivered"`
	Deferred         int            `json:"deferred"`
	AlreadyProcessed int            `json:"already_processed"`
	Ineligible       int            `json:"ineligible"`
	Failed           int            `json:"failed"`
	FetchError       string         `json:"fetch_error,omitempty"`
	Drain            *DrainReport   `json:"drain,omitempty"`
}

type CleanupReport struct {
	PurgedOrders int `json:"purged_orders"`
	PrunedLogs   int `json:"pruned_logs"`
}

type StatusReport struct {
	Running        bool           `json:"running"`
	ShuttingDown   bool           `json:"shutting_down"`
	LastCheck      *time.Time     `json:"last_check,omitempty"`
	PendingOrders  int            `json:"pending_orders"`
	PendingNumbers []string       `json:"pending_numbers"`
	StartedAt      time.Time      `json:"started_at"`
	UptimeSeconds  int64          `json:"uptime_seconds"`
	Health         HealthSnapshot `json:"health"`
	Ledger         *LedgerStats   `json:"ledger,omitempty"`
	LedgerError    string         `json:"ledger_error,omitempty"`
	Commerce       *CommerceStats `json:"commerce,omitempty"`
	CommerceError  string         `json:"commerce_error,omitempty"`
}

type HealthReport struct {
	Healthy       bool           `json:"healthy"`
	Health        HealthSnapshot `json:"health"`
	LastCheck     *time.Time     `json:"last_check,omitempty"`
	PendingOrders int            `json:"pending_orders"`
	UptimeSeconds int64          `json:"uptime_seconds"`
}

// Reconciler drives the notification pipeline: it pulls recent orders from
// the commerce source, sends one message per eligible order and keeps the
// pending-delivery queue draining while messaging is healthy.
type Reconciler struct {
	config          Config
	ledger          Ledger
	commerce        CommerceSource
	messenger       Messenger
	gate            *HealthGate
	policy          *ContinuePolicy
	formatter       *MessageFormatter
	mirror          *pendingMirror
	logger          Logger
	metricsRecorder MetricsRecorder
	errorMapper     ErrorMapper
	cycleGuard      *semaphore.Weighted
	drainGuard      *semaphore.Weighted
	now             func() time.Time

	mu           sync.Mutex
	running      bool
	shuttingDown bool
	lastCheck    time.Time
	startedAt    time.Time
}

func NewReconciler(
	cfg Config,
	ledger Ledger,
	commerce CommerceSource,
	messenger Messenger,
	opts ...Option,
) (*Reconciler, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if ledger == nil {
		return nil, fmt.Errorf("core: ledger is required")
	}
	if commerce == nil {
		return nil, fmt.Errorf("core: commerce source is required")
	}
	if messenger == nil {
		return nil, fmt.Errorf("core: messenger is required")
	}

	builder := reconcilerBuilder{}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		opt(&builder)
	}

	provider, logger := glog.Resolve("order_notify", builder.loggerProvider, builder.logger)
	logger = glog.Ensure(logger)
	if provider != nil {
		if named := provider.GetLogger("order_notify.reconciler"); named != nil {
			logger = glog.Ensure(named)
		}
	}
	if builder.metricsRecorder == nil {
		builder.metricsRecorder = NopMetricsRecorder{}
	}
	if builder.errorMapper == nil {
		builder.errorMapper = MapError
	}
	if builder.now == nil {
		builder.now = func() time.Time {
			return time.Now().UTC()
		}
	}
	if builder.formatter == nil {
		builder.formatter = NewMessageFormatter(cfg.Messages.Timezone)
		builder.formatter.now = builder.now
	}

	policy := NewContinuePolicy(logger, ledger, builder.metricsRecorder)
	gate := NewHealthGate(map[Dependency]ProbeFunc{
		DependencyCommerce:  commerce.Ping,
		DependencyLedger:    ledger.HealthCheck,
		DependencyMessaging: messenger.Ping,
	}, messenger, builder.formatter, policy)
	gate.now = builder.now

	return &Reconciler{
		config:          cfg,
		ledger:          ledger,
		commerce:        commerce,
		messenger:       messenger,
		gate:            gate,
		policy:          policy,
		formatter:       builder.formatter,
		mirror:          newPendingMirror(),
		logger:          logger,
		metricsRecorder: builder.metricsRecorder,
		errorMapper:     builder.errorMapper,
		cycleGuard:      semaphore.NewWeighted(1),
		drainGuard:      semaphore.NewWeighted(1),
		now:             builder.now,
		startedAt:       builder.now(),
	}, nil
}

func (r *Reconciler) Config() Config {
	return r.config
}

func (r *Reconciler) Formatter() *MessageFormatter {
	return r.formatter
}

func (r *Reconciler) Gate() *HealthGate {
	return r.gate
}

func (r *Reconciler) MapError(err error) *goerrors.Error {
	if err == nil {
		return nil
	}
	if r == nil || r.errorMapper == nil {
		return MapError(err)
	}
	return r.errorMapper(err)
}

// RunCycle executes one reconciliation pass. A pass that overlaps a running
// one is dropped and reported as skipped.
func (r *Reconciler) RunCycle(ctx context.Context) (report CycleReport, err error) {
	if r.isShuttingDown() {
		return CycleReport{}, ErrShuttingDown
	}
	if !r.cycleGuard.TryAcquire(1) {
		return CycleReport{Skipped: true, Reason: "cycle already running"}, nil
	}
	defer r.cycleGuard.Release(1)
	if r.isShuttingDown() {
		return CycleReport{}, ErrShuttingDown
	}

	startedAt := r.now()
	r.mu.Lock()
	r.running = true
	r.lastCheck = startedAt
	r.mu.Unlock()
	defer func() {
		r.mu.Lock()
		r.running = false
		r.mu.Unlock()
		r.observeOperation(ctx, startedAt, "cycle", err, map[string]any{
			"fetched":   report.Fetched,
			"delivered": report.Delivered,
			"deferred":  report.Deferred,
			"failed":    report.Failed,
		})
	}()

	report.StartedAt = startedAt
	report.Health = r.gate.CheckAll(ctx)

	if report.Health.Commerce.Online && report.Health.Ledger.Online {
		r.processBatch(ctx, &report)
	} else {
		report.Reason = "commerce or ledger offline, fetch skipped"
		r.logInfo(ctx, "reconcile fetch skipped", map[string]any{
			"commerce_online": report.Health.Commerce.Online,
			"ledger_online":   report.Health.Ledger.Online,
		})
	}

	if r.gate.IsOnline(DependencyMessaging) && r.gate.IsOnline(DependencyLedger) {
		drain, _ := r.drain(ctx)
		report.Drain = &drain
	}
	return report, nil
}

func (r *Reconciler) processBatch(ctx context.Context, report *CycleReport) {
	orders, err := r.commerce.FetchRecentOrders(ctx, r.config.Reconcile.MaxOrders)
	if err != nil {
		r.observeDependency(err)
		r.policy.Report(ctx, "fetch_orders", err, nil)
		report.FetchError = err.Error()
		return
	}
	r.gate.Observe(DependencyCommerce, nil)
	report.Fetched = len(orders)

	for _, order := range orders {
		var outcome OrderOutcome
		fields := map[string]any{"order_number": order.Number}
		runErr := r.policy.Run(ctx, "process_order", fields, func(ctx context.Context) error {
			var processErr error
			outcome, processErr = r.ProcessOrder(ctx, order)
			return processErr
		})
		if runErr != nil {
			outcome = OutcomeFailed
		}
		switch outcome {
		case OutcomeAlreadyProcessed:
			report.AlreadyProcessed++
		case OutcomeIneligible:
			report.Ineligible++
		case OutcomeDelivered:
			report.Delivered++
		case OutcomeDeferred:
			report.Deferred++
		default:
			report.Failed++
		}
	}
}

// ProcessOrder moves one order through the state machine. A failed send
// parks the order in the pending queue before it is marked processed, so a
// processed order is either delivered or queued for retry.
func (r *Reconciler) ProcessOrder(ctx context.Context, order Order) (OrderOutcome, error) {
	number := strings.TrimSpace(order.Number)
	if number == "" {
		return OutcomeFailed, fmt.Errorf("core: order number is required")
	}

	processed, err := r.ledger.IsProcessed(ctx, number)
	if err != nil {
		r.observeDependency(err)
		return OutcomeFailed, err
	}
	if processed {
		return OutcomeAlreadyProcessed, nil
	}
	if !order.IsEligible() {
		r.logDebug(ctx, "order ignored", map[string]any{
			"order_number": number,
			"status":       order.Status,
		})
		return OutcomeIneligible, nil
	}

	sendErr := r.send(ctx, "send_order", number, r.formatter.OrderMessage(order))
	if sendErr == nil {
		if err := r.ledger.MarkProcessed(ctx, number); err != nil {
			r.observeDependency(err)
			return OutcomeFailed, fmt.Errorf("core: order #%s delivered but not marked: %w", number, err)
		}
		r.policy.Record(ctx, LogKindSuccess, "order #"+number+" notified")
		return OutcomeDelivered, nil
	}

	if err := r.ledger.EnqueuePending(ctx, number, order); err != nil {
		r.observeDependency(err)
		return OutcomeFailed, err
	}
	r.mirror.Add(order)
	if err := r.ledger.MarkProcessed(ctx, number); err != nil {
		r.observeDependency(err)
		return OutcomeFailed, err
	}
	r.policy.Record(ctx, LogKindWarning, fmt.Sprintf("order #%s queued for retry: %v", number, sendErr))
	return OutcomeDeferred, nil
}

// Cleanup purges old processed markers and trims the system log.
func (r *Reconciler) Cleanup(ctx context.Context) (report CleanupReport, err error) {
	if r.isShuttingDown() {
		return CleanupReport{}, ErrShuttingDown
	}
	startedAt := r.now()
	defer func() {
		r.observeOperation(ctx, startedAt, "cleanup", err, map[string]any{
			"purged_orders": report.PurgedOrders,
			"pruned_logs":   report.PrunedLogs,
		})
	}()

	report.PurgedOrders, err = r.ledger.PurgeProcessedOlderThan(ctx, r.config.Reconcile.ProcessedRetention)
	if err != nil {
		r.observeDependency(err)
		r.policy.Report(ctx, "purge_processed", err, nil)
		return report, err
	}
	report.PrunedLogs, err = r.ledger.PruneLogs(ctx, r.config.Reconcile.LogRetention)
	if err != nil {
		r.observeDependency(err)
		r.policy.Report(ctx, "prune_logs", err, nil)
		return report, err
	}
	r.policy.Record(ctx, LogKindSystem, fmt.Sprintf(
		"cleanup removed %d processed orders and %d log entries",
		report.PurgedOrders,
		report.PrunedLogs,
	))
	return report, nil
}

func (r *Reconciler) SendTest(ctx context.Context) error {
	if r.isShuttingDown() {
		return ErrShuttingDown
	}
	if err := r.send(ctx, "send_test", "", r.formatter.TestMessage()); err != nil {
		r.policy.Report(ctx, "send_test", err, nil)
		return err
	}
	r.policy.Record(ctx, LogKindSuccess, "test message sent")
	return nil
}

// FetchOrder loads a single order from the commerce source.
func (r *Reconciler) FetchOrder(ctx context.Context, id string) (Order, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return Order{}, goerrors.NewValidation("order id is required",
			goerrors.FieldError{Field: "id", Message: "required"},
		).WithTextCode(ErrorBadInput)
	}
	order, err := r.commerce.FetchOrderByID(ctx, id)
	if err != nil {
		r.observeDependency(err)
		return Order{}, err
	}
	return order, nil
}

func (r *Reconciler) Status(ctx context.Context) (StatusReport, error) {
	now := r.now()
	r.mu.Lock()
	report := StatusReport{
		Running:       r.running,
		ShuttingDown:  r.shuttingDown,
		StartedAt:     r.startedAt,
		UptimeSeconds: int64(now.Sub(r.startedAt).Seconds()),
	}
	if !r.lastCheck.IsZero() {
		lastCheck := r.lastCheck
		report.LastCheck = &lastCheck
	}
	r.mu.Unlock()

	report.PendingOrders = r.mirror.Len()
	report.PendingNumbers = r.mirror.Numbers()
	report.Health = r.gate.Snapshot()

	if stats, err := r.ledger.Stats(ctx); err != nil {
		r.observeDependency(err)
		report.LedgerError = err.Error()
	} else {
		report.Ledger = &stats
	}
	if reader, ok := r.commerce.(CommerceStatsReader); ok && report.Health.Commerce.Online {
		if stats, err := reader.Stats(ctx); err != nil {
			report.CommerceError = err.Error()
		} else {
			report.Commerce = &stats
		}
	}
	return report, nil
}

// Health returns the last known dependency state with a fresh ledger probe.
func (r *Reconciler) Health(ctx context.Context) HealthReport {
	_ = r.gate.Check(ctx, DependencyLedger)
	snapshot := r.gate.Snapshot()
	now := r.now()

	r.mu.Lock()
	report := HealthReport{
		Health:        snapshot,
		UptimeSeconds: int64(now.Sub(r.startedAt).Seconds()),
	}
	if !r.lastCheck.IsZero() {
		lastCheck := r.lastCheck
		report.LastCheck = &lastCheck
	}
	r.mu.Unlock()

	report.PendingOrders = r.mirror.Len()
	report.Healthy = snapshot.Commerce.Online && snapshot.Ledger.Online && snapshot.Messaging.Online
	return report
}

// RecentLogs returns the newest system log entries, newest first.
func (r *Reconciler) RecentLogs(ctx context.Context, limit int) ([]SystemLogEntry, error) {
	entries, err := r.ledger.RecentLogs(ctx, limit)
	if err != nil {
		r.observeDependency(err)
		return nil, err
	}
	return entries, nil
}

// SeedPendingMirror loads the durable queue into the in-memory mirror.
func (r *Reconciler) SeedPendingMirror(ctx context.Context) error {
	entries, err := r.ledger.ListPending(ctx)
	if err != nil {
		r.observeDependency(err)
		return err
	}
	r.mirror.Replace(entries)
	r.logInfo(ctx, "pending mirror seeded", map[string]any{"pending": len(entries)})
	return nil
}

// Shutdown rejects new triggers, waits for the running cycle and drain to
// finish and closes the ledger.
func (r *Reconciler) Shutdown(ctx context.Context) error {
	r.mu.Lock()
	if r.shuttingDown {
		r.mu.Unlock()
		return nil
	}
	r.shuttingDown = true
	r.mu.Unlock()

	if err := r.cycleGuard.Acquire(ctx, 1); err != nil {
		return fmt.Errorf("core: wait for running cycle: %w", err)
	}
	defer r.cycleGuard.Release(1)
	if err := r.drainGuard.Acquire(ctx, 1); err != nil {
		return fmt.Errorf("core: wait for running drain: %w", err)
	}
	defer r.drainGuard.Release(1)

	r.policy.Record(ctx, LogKindSystem, "service shutting down")
	return r.ledger.Close()
}

func (r *Reconciler) isShuttingDown() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.shuttingDown
}

func (r *Reconciler) send(ctx context.Context, operation string, orderNumber string, text string) (err error) {
	startedAt := r.now()
	defer func() {
		fields := map[string]any{}
		if orderNumber != "" {
			fields["order_number"] = orderNumber
		}
		r.observeOperation(ctx, startedAt, operation, err, fields)
	}()
	err = r.messenger.Send(ctx, text)
	r.gate.Observe(DependencyMessaging, err)
	return err
}

// observeDependency feeds failures of regular calls into the health gate so
// the next status read reflects them without waiting for a probe.
func (r *Reconciler) observeDependency(err error) {
	if err == nil {
		return
	}
	dependency, ok := DependencyOf(err)
	if !ok || dependency == DependencyGeneric {
		return
	}
	if !IsDependencyUnavailable(err) && !IsConfigurationMissing(err) {
		return
	}
	r.gate.Observe(dependency, err)
}
