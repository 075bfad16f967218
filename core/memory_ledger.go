package core

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"
)

// MemoryLedger is a process-local Ledger. It is used by tests and by the
// CLI when no database is configured for a dry run.
type MemoryLedger struct {
	mu        sync.Mutex
	processed map[string]time.Time
	pending   map[string]*PendingEntry
	logs      []SystemLogEntry
	closed    bool
	now       func() time.Time
}

func NewMemoryLedger() *MemoryLedger {
	return &MemoryLedger{
		processed: map[string]time.Time{},
		pending:   map[string]*PendingEntry{},
		now: func() time.Time {
			return time.Now().UTC()
		},
	}
}

func (l *MemoryLedger) IsProcessed(_ context.Context, orderNumber string) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	_, ok := l.processed[strings.TrimSpace(orderNumber)]
	return ok, nil
}

func (l *MemoryLedger) MarkProcessed(_ context.Context, orderNumber string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	orderNumber = strings.TrimSpace(orderNumber)
	if _, ok := l.processed[orderNumber]; !ok {
		l.processed[orderNumber] = l.now()
	}
	return nil
}

func (l *MemoryLedger) EnqueuePending(_ context.Context, orderNumber string, snapshot Order) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	orderNumber = strings.TrimSpace(orderNumber)
	if _, ok := l.pending[orderNumber]; ok {
		return nil
	}
	l.pending[orderNumber] = &PendingEntry{
		OrderNumber: orderNumber,
		Snapshot:    snapshot,
		CreatedAt:   l.now(),
	}
	return nil
}

func (l *MemoryLedger) DequeuePending(_ context.Context, orderNumber string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.pending, strings.TrimSpace(orderNumber))
	return nil
}

func (l *MemoryLedger) ListPending(context.Context) ([]PendingEntry, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	entries := make([]PendingEntry, 0, len(l.pending))
	for _, entry := range l.pending {
		copied := *entry
		if entry.LastAttemptAt != nil {
			lastAttempt := *entry.LastAttemptAt
			copied.LastAttemptAt = &lastAttempt
		}
		entries = append(entries, copied)
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].CreatedAt.Equal(entries[j].CreatedAt) {
			return entries[i].OrderNumber < entries[j].OrderNumber
		}
		return entries[i].CreatedAt.Before(entries[j].CreatedAt)
	})
	return entries, nil
}

func (l *MemoryLedger) UpdateAttempts(_ context.Context, orderNumber string, attempts int) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	entry, ok := l.pending[strings.TrimSpace(orderNumber)]
	if !ok {
		return nil
	}
	now := l.now()
	entry.Attempts = attempts
	entry.LastAttemptAt = &now
	return nil
}

func (l *MemoryLedger) PurgeProcessedOlderThan(_ context.Context, age time.Duration) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	cutoff := l.now().Add(-age)
	purged := 0
	for number, processedAt := range l.processed {
		if processedAt.Before(cutoff) {
			delete(l.processed, number)
			purged++
		}
	}
	return purged, nil
}

func (l *MemoryLedger) AppendLog(_ context.Context, kind string, message string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.logs = append(l.logs, SystemLogEntry{
		Kind:      kind,
		Message:   message,
		CreatedAt: l.now(),
	})
	return nil
}

// RecentLogs returns the newest entries first.
func (l *MemoryLedger) RecentLogs(_ context.Context, limit int) ([]SystemLogEntry, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if limit <= 0 || limit > len(l.logs) {
		limit = len(l.logs)
	}
	out := make([]SystemLogEntry, 0, limit)
	for i := len(l.logs) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, l.logs[i])
	}
	return out, nil
}

func (l *MemoryLedger) PruneLogs(_ context.Context, keep int) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if keep < 0 {
		keep = 0
	}
	if len(l.logs) <= keep {
		return 0, nil
	}
	pruned := len(l.logs) - keep
	l.logs = append([]SystemLogEntry(nil), l.logs[pruned:]...)
	return pruned, nil
}

func (l *MemoryLedger) HealthCheck(context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return DependencyUnavailable(DependencyLedger, nil, "core: memory ledger is closed")
	}
	return nil
}

func (l *MemoryLedger) Stats(context.Context) (LedgerStats, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return LedgerStats{
		Processed: len(l.processed),
		Pending:   len(l.pending),
		Logs:      len(l.logs),
	}, nil
}

func (l *MemoryLedger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.closed = true
	return nil
}

var _ Ledger = (*MemoryLedger)(nil)
