package sqlstore

import (
	"context"
	"fmt"
	"strings"
	"time"

	repository "github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// ProcessedOrderStore keeps the set of order numbers already notified.
type ProcessedOrderStore struct {
	db   *bun.DB
	repo repository.Repository[*processedOrderRecord]
	now  func() time.Time
}

func NewProcessedOrderStore(db *bun.DB) (*ProcessedOrderStore, error) {
	if db == nil {
		return nil, fmt.Errorf("sqlstore: bun db is required")
	}
	repo := repository.NewRepository[*processedOrderRecord](db, processedOrderHandlers())
	if validator, ok := repo.(repository.Validator); ok {
		if err := validator.Validate(); err != nil {
			return nil, fmt.Errorf("sqlstore: invalid processed order repository wiring: %w", err)
		}
	}
	return &ProcessedOrderStore{db: db, repo: repo, now: utcNow}, nil
}

func (s *ProcessedOrderStore) Exists(ctx context.Context, orderNumber string) (bool, error) {
	if s == nil || s.db == nil {
		return false, fmt.Errorf("sqlstore: processed order store is not configured")
	}
	return s.db.NewSelect().
		Model((*processedOrderRecord)(nil)).
		Where("?TableAlias.order_number = ?", strings.TrimSpace(orderNumber)).
		Exists(ctx)
}

// Mark inserts the order number. A second insert of the same number is a
// no-op.
func (s *ProcessedOrderStore) Mark(ctx context.Context, orderNumber string) error {
	if s == nil || s.repo == nil {
		return fmt.Errorf("sqlstore: processed order store is not configured")
	}
	record := &processedOrderRecord{
		ID:          uuid.NewString(),
		OrderNumber: strings.TrimSpace(orderNumber),
		ProcessedAt: s.now(),
	}
	if _, err := s.repo.Create(ctx, record); err != nil {
		if isUniqueConstraintError(err) {
			return nil
		}
		return err
	}
	return nil
}

func (s *ProcessedOrderStore) PurgeOlderThan(ctx context.Context, age time.Duration) (int, error) {
	if s == nil || s.db == nil {
		return 0, fmt.Errorf("sqlstore: processed order store is not configured")
	}
	cutoff := s.now().Add(-age)
	res, err := s.db.NewDelete().
		Model((*processedOrderRecord)(nil)).
		Where("processed_at < ?", cutoff).
		Exec(ctx)
	if err != nil {
		return 0, err
	}
	affected, _ := res.RowsAffected()
	return int(affected), nil
}

func (s *ProcessedOrderStore) Count(ctx context.Context) (int, error) {
	if s == nil || s.db == nil {
		return 0, fmt.Errorf("sqlstore: processed order store is not configured")
	}
	return s.db.NewSelect().Model((*processedOrderRecord)(nil)).Count(ctx)
}

func isUniqueConstraintError(err error) bool {
	if err == nil {
		return false
	}
	text := strings.ToLower(err.Error())
	return strings.Contains(text, "unique") || strings.Contains(text, "duplicate")
}

func utcNow() time.Time {
	return time.Now().UTC()
}
