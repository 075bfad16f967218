package sqlstore

import (
	"context"
	"fmt"
	"time"

	"github.com/goliatone/go-order-notify/core"
	"github.com/uptrace/bun"
)

const defaultPingTimeout = 5 * time.Second

// Ledger is the SQL implementation of core.Ledger. Every error that reaches
// the caller is tagged as a ledger outage so the health gate can react.
type Ledger struct {
	db          *bun.DB
	processed   *ProcessedOrderStore
	pending     *PendingDeliveryStore
	logs        *SystemLogStore
	pingTimeout time.Duration
	closer      func() error
}

type LedgerOption func(*Ledger)

func WithPingTimeout(timeout time.Duration) LedgerOption {
	return func(l *Ledger) {
		if timeout > 0 {
			l.pingTimeout = timeout
		}
	}
}

// WithClock sets the clock used for every timestamp the ledger writes.
func WithClock(now func() time.Time) LedgerOption {
	return func(l *Ledger) {
		if now == nil {
			return
		}
		l.processed.now = now
		l.pending.now = now
		l.logs.now = now
	}
}

// WithCloser replaces the default close behaviour, which closes the bun db.
func WithCloser(closer func() error) LedgerOption {
	return func(l *Ledger) {
		l.closer = closer
	}
}

func (l *Ledger) ProcessedOrders() *ProcessedOrderStore {
	if l == nil {
		return nil
	}
	return l.processed
}

func (l *Ledger) PendingDeliveries() *PendingDeliveryStore {
	if l == nil {
		return nil
	}
	return l.pending
}

func (l *Ledger) SystemLogs() *SystemLogStore {
	if l == nil {
		return nil
	}
	return l.logs
}

func (l *Ledger) DB() *bun.DB {
	if l == nil {
		return nil
	}
	return l.db
}

func (l *Ledger) IsProcessed(ctx context.Context, orderNumber string) (bool, error) {
	if err := l.ready(); err != nil {
		return false, err
	}
	exists, err := l.processed.Exists(ctx, orderNumber)
	if err != nil {
		return false, unavailable(err, "sqlstore: check processed order")
	}
	return exists, nil
}

func (l *Ledger) MarkProcessed(ctx context.Context, orderNumber string) error {
	if err := l.ready(); err != nil {
		return err
	}
	if err := l.processed.Mark(ctx, orderNumber); err != nil {
		return unavailable(err, "sqlstore: mark order processed")
	}
	return nil
}

func (l *Ledger) EnqueuePending(ctx context.Context, orderNumber string, snapshot core.Order) error {
	if err := l.ready(); err != nil {
		return err
	}
	if err := l.pending.Enqueue(ctx, orderNumber, snapshot); err != nil {
		return unavailable(err, "sqlstore: enqueue pending delivery")
	}
	return nil
}

func (l *Ledger) DequeuePending(ctx context.Context, orderNumber string) error {
	if err := l.ready(); err != nil {
		return err
	}
	if err := l.pending.Dequeue(ctx, orderNumber); err != nil {
		return unavailable(err, "sqlstore: dequeue pending delivery")
	}
	return nil
}

func (l *Ledger) ListPending(ctx context.Context) ([]core.PendingEntry, error) {
	if err := l.ready(); err != nil {
		return nil, err
	}
	entries, err := l.pending.List(ctx)
	if err != nil {
		return nil, unavailable(err, "sqlstore: list pending deliveries")
	}
	return entries, nil
}

func (l *Ledger) UpdateAttempts(ctx context.Context, orderNumber string, attempts int) error {
	if err := l.ready(); err != nil {
		return err
	}
	if err := l.pending.UpdateAttempts(ctx, orderNumber, attempts); err != nil {
		return unavailable(err, "sqlstore: update delivery attempts")
	}
	return nil
}

func (l *Ledger) PurgeProcessedOlderThan(ctx context.Context, age time.Duration) (int, error) {
	if err := l.ready(); err != nil {
		return 0, err
	}
	purged, err := l.processed.PurgeOlderThan(ctx, age)
	if err != nil {
		return 0, unavailable(err, "sqlstore: purge processed orders")
	}
	return purged, nil
}

func (l *Ledger) AppendLog(ctx context.Context, kind string, message string) error {
	if err := l.ready(); err != nil {
		return err
	}
	if err := l.logs.Append(ctx, kind, message); err != nil {
		return unavailable(err, "sqlstore: append system log")
	}
	return nil
}

func (l *Ledger) RecentLogs(ctx context.Context, limit int) ([]core.SystemLogEntry, error) {
	if err := l.ready(); err != nil {
		return nil, err
	}
	entries, err := l.logs.Recent(ctx, limit)
	if err != nil {
		return nil, unavailable(err, "sqlstore: list system logs")
	}
	return entries, nil
}

func (l *Ledger) PruneLogs(ctx context.Context, keep int) (int, error) {
	if err := l.ready(); err != nil {
		return 0, err
	}
	pruned, err := l.logs.Prune(ctx, keep)
	if err != nil {
		return 0, unavailable(err, "sqlstore: prune system logs")
	}
	return pruned, nil
}

func (l *Ledger) HealthCheck(ctx context.Context) error {
	if err := l.ready(); err != nil {
		return err
	}
	if ctx == nil {
		ctx = context.Background()
	}
	pingCtx, cancel := context.WithTimeout(ctx, l.pingTimeout)
	defer cancel()
	if err := l.db.PingContext(pingCtx); err != nil {
		return unavailable(err, "sqlstore: ledger ping failed")
	}
	return nil
}

func (l *Ledger) Stats(ctx context.Context) (core.LedgerStats, error) {
	if err := l.ready(); err != nil {
		return core.LedgerStats{}, err
	}
	processed, err := l.processed.Count(ctx)
	if err != nil {
		return core.LedgerStats{}, unavailable(err, "sqlstore: count processed orders")
	}
	pending, err := l.pending.Count(ctx)
	if err != nil {
		return core.LedgerStats{}, unavailable(err, "sqlstore: count pending deliveries")
	}
	logs, err := l.logs.Count(ctx)
	if err != nil {
		return core.LedgerStats{}, unavailable(err, "sqlstore: count system logs")
	}
	return core.LedgerStats{Processed: processed, Pending: pending, Logs: logs}, nil
}

func (l *Ledger) Close() error {
	if l == nil {
		return nil
	}
	if l.closer != nil {
		return l.closer()
	}
	if l.db == nil {
		return nil
	}
	return l.db.Close()
}

func (l *Ledger) ready() error {
	if l == nil || l.db == nil || l.processed == nil || l.pending == nil || l.logs == nil {
		return core.DependencyUnavailable(core.DependencyLedger, nil, "sqlstore: ledger is not configured")
	}
	return nil
}

func unavailable(err error, message string) error {
	if err == nil {
		return nil
	}
	if core.IsDependencyUnavailable(err) {
		return err
	}
	return core.DependencyUnavailable(core.DependencyLedger, err, fmt.Sprintf("%s: %v", message, err))
}
