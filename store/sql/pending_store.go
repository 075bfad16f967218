package sqlstore

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/goliatone/go-order-notify/core"
	repository "github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// PendingDeliveryStore is the retry queue. Entries are keyed by order
// number and hold a JSON snapshot of the order.
type PendingDeliveryStore struct {
	db   *bun.DB
	repo repository.Repository[*pendingDeliveryRecord]
	now  func() time.Time
}

func NewPendingDeliveryStore(db *bun.DB) (*PendingDeliveryStore, error) {
	if db == nil {
		return nil, fmt.Errorf("sqlstore: bun db is required")
	}
	repo := repository.NewRepository[*pendingDeliveryRecord](db, pendingDeliveryHandlers())
	if validator, ok := repo.(repository.Validator); ok {
		if err := validator.Validate(); err != nil {
			return nil, fmt.Errorf("sqlstore: invalid pending delivery repository wiring: %w", err)
		}
	}
	return &PendingDeliveryStore{db: db, repo: repo, now: utcNow}, nil
}

// Enqueue parks an order. An order already queued keeps its original entry.
func (s *PendingDeliveryStore) Enqueue(ctx context.Context, orderNumber string, snapshot core.Order) error {
	if s == nil || s.repo == nil {
		return fmt.Errorf("sqlstore: pending delivery store is not configured")
	}
	payload, err := core.EncodeSnapshot(snapshot)
	if err != nil {
		return fmt.Errorf("sqlstore: encode pending snapshot: %w", err)
	}
	record := &pendingDeliveryRecord{
		ID:          uuid.NewString(),
		OrderNumber: strings.TrimSpace(orderNumber),
		Snapshot:    string(payload),
		CreatedAt:   s.now(),
	}
	if _, err := s.repo.Create(ctx, record); err != nil {
		if isUniqueConstraintError(err) {
			return nil
		}
		return err
	}
	return nil
}

func (s *PendingDeliveryStore) Dequeue(ctx context.Context, orderNumber string) error {
	if s == nil || s.db == nil {
		return fmt.Errorf("sqlstore: pending delivery store is not configured")
	}
	_, err := s.db.NewDelete().
		Model((*pendingDeliveryRecord)(nil)).
		Where("order_number = ?", strings.TrimSpace(orderNumber)).
		Exec(ctx)
	return err
}

// List returns every entry, oldest first.
func (s *PendingDeliveryStore) List(ctx context.Context) ([]core.PendingEntry, error) {
	if s == nil || s.repo == nil {
		return nil, fmt.Errorf("sqlstore: pending delivery store is not configured")
	}
	records, _, err := s.repo.List(ctx,
		repository.OrderBy("created_at ASC, order_number ASC"),
	)
	if err != nil {
		return nil, err
	}
	entries := make([]core.PendingEntry, 0, len(records))
	for _, record := range records {
		entries = append(entries, pendingRecordToDomain(record))
	}
	return entries, nil
}

func (s *PendingDeliveryStore) UpdateAttempts(ctx context.Context, orderNumber string, attempts int) error {
	if s == nil || s.db == nil {
		return fmt.Errorf("sqlstore: pending delivery store is not configured")
	}
	_, err := s.db.NewUpdate().
		Model((*pendingDeliveryRecord)(nil)).
		Set("attempts = ?", attempts).
		Set("last_attempt_at = ?", s.now()).
		Where("order_number = ?", strings.TrimSpace(orderNumber)).
		Exec(ctx)
	return err
}

func (s *PendingDeliveryStore) Count(ctx context.Context) (int, error) {
	if s == nil || s.db == nil {
		return 0, fmt.Errorf("sqlstore: pending delivery store is not configured")
	}
	return s.db.NewSelect().Model((*pendingDeliveryRecord)(nil)).Count(ctx)
}

// An undecodable snapshot still yields an entry so the retry can run and,
// eventually, be abandoned.
func pendingRecordToDomain(record *pendingDeliveryRecord) core.PendingEntry {
	if record == nil {
		return core.PendingEntry{}
	}
	snapshot, err := core.DecodeSnapshot([]byte(record.Snapshot))
	if err != nil {
		snapshot = core.Order{Number: record.OrderNumber, Items: []core.LineItem{}}
	}
	if strings.TrimSpace(snapshot.Number) == "" {
		snapshot.Number = record.OrderNumber
	}
	entry := core.PendingEntry{
		OrderNumber: record.OrderNumber,
		Snapshot:    snapshot,
		Attempts:    record.Attempts,
		CreatedAt:   record.CreatedAt.UTC(),
	}
	if record.LastAttemptAt != nil {
		last := record.LastAttemptAt.UTC()
		entry.LastAttemptAt = &last
	}
	return entry
}
