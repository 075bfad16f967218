package sqlstore

import (
	"context"
	"fmt"
	"time"

	"github.com/goliatone/go-order-notify/core"
	repositorycache "github.com/goliatone/go-repository-cache/cache"
)

const ledgerStatsCacheKey = "go-order-notify::ledger_stats::v1"

// CachedLedger serves Stats from a short lived cache. Every write that can
// change a count drops the cached value.
type CachedLedger struct {
	core.Ledger
	cache repositorycache.CacheService
}

func NewCachedLedger(base core.Ledger, cacheService repositorycache.CacheService) (*CachedLedger, error) {
	if base == nil {
		return nil, fmt.Errorf("sqlstore: base ledger is required")
	}
	if cacheService == nil {
		return nil, fmt.Errorf("sqlstore: ledger cache service is required")
	}
	return &CachedLedger{Ledger: base, cache: cacheService}, nil
}

// NewStatsCache builds the cache service used by CachedLedger.
func NewStatsCache(ttl time.Duration) (repositorycache.CacheService, error) {
	config := repositorycache.DefaultConfig()
	if ttl > 0 {
		config.TTL = ttl
	}
	return repositorycache.NewCacheService(config)
}

func (l *CachedLedger) Stats(ctx context.Context) (core.LedgerStats, error) {
	if l == nil || l.Ledger == nil || l.cache == nil {
		return core.LedgerStats{}, fmt.Errorf("sqlstore: cached ledger is not configured")
	}
	return repositorycache.GetOrFetch(ctx, l.cache, ledgerStatsCacheKey, func(ctx context.Context) (core.LedgerStats, error) {
		return l.Ledger.Stats(ctx)
	})
}

func (l *CachedLedger) MarkProcessed(ctx context.Context, orderNumber string) error {
	err := l.Ledger.MarkProcessed(ctx, orderNumber)
	l.invalidate(ctx)
	return err
}

func (l *CachedLedger) EnqueuePending(ctx context.Context, orderNumber string, snapshot core.Order) error {
	err := l.Ledger.EnqueuePending(ctx, orderNumber, snapshot)
	l.invalidate(ctx)
	return err
}

func (l *CachedLedger) DequeuePending(ctx context.Context, orderNumber string) error {
	err := l.Ledger.DequeuePending(ctx, orderNumber)
	l.invalidate(ctx)
	return err
}

func (l *CachedLedger) PurgeProcessedOlderThan(ctx context.Context, age time.Duration) (int, error) {
	purged, err := l.Ledger.PurgeProcessedOlderThan(ctx, age)
	l.invalidate(ctx)
	return purged, err
}

func (l *CachedLedger) AppendLog(ctx context.Context, kind string, message string) error {
	err := l.Ledger.AppendLog(ctx, kind, message)
	l.invalidate(ctx)
	return err
}

func (l *CachedLedger) PruneLogs(ctx context.Context, keep int) (int, error) {
	pruned, err := l.Ledger.PruneLogs(ctx, keep)
	l.invalidate(ctx)
	return pruned, err
}

func (l *CachedLedger) invalidate(ctx context.Context) {
	if l == nil || l.cache == nil {
		return
	}
	_ = l.cache.Delete(ctx, ledgerStatsCacheKey)
}

var (
	_ core.Ledger = (*Ledger)(nil)
	_ core.Ledger = (*CachedLedger)(nil)
)
