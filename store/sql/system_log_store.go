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

type SystemLogStore struct {
	db   *bun.DB
	repo repository.Repository[*systemLogRecord]
	now  func() time.Time
}

func NewSystemLogStore(db *bun.DB) (*SystemLogStore, error) {
	if db == nil {
		return nil, fmt.Errorf("sqlstore: bun db is required")
	}
	repo := repository.NewRepository[*systemLogRecord](db, systemLogHandlers())
	if validator, ok := repo.(repository.Validator); ok {
		if err := validator.Validate(); err != nil {
			return nil, fmt.Errorf("sqlstore: invalid system log repository wiring: %w", err)
		}
	}
	return &SystemLogStore{db: db, repo: repo, now: utcNow}, nil
}

func (s *SystemLogStore) Append(ctx context.Context, kind string, message string) error {
	if s == nil || s.repo == nil {
		return fmt.Errorf("sqlstore: system log store is not configured")
	}
	kind = strings.TrimSpace(kind)
	if kind == "" {
		kind = core.LogKindInfo
	}
	_, err := s.repo.Create(ctx, &systemLogRecord{
		ID:        uuid.NewString(),
		Kind:      kind,
		Message:   message,
		CreatedAt: s.now(),
	})
	return err
}

// Recent returns the newest entries first. A non-positive limit returns all.
func (s *SystemLogStore) Recent(ctx context.Context, limit int) ([]core.SystemLogEntry, error) {
	if s == nil || s.repo == nil {
		return nil, fmt.Errorf("sqlstore: system log store is not configured")
	}
	selectors := []repository.SelectCriteria{
		repository.OrderBy("created_at DESC"),
	}
	if limit > 0 {
		selectors = append(selectors, repository.SelectPaginate(limit, 0))
	}
	records, _, err := s.repo.List(ctx, selectors...)
	if err != nil {
		return nil, err
	}
	entries := make([]core.SystemLogEntry, 0, len(records))
	for _, record := range records {
		if record == nil {
			continue
		}
		entries = append(entries, core.SystemLogEntry{
			Kind:      record.Kind,
			Message:   record.Message,
			CreatedAt: record.CreatedAt.UTC(),
		})
	}
	return entries, nil
}

// Prune keeps the newest keep entries and deletes the rest.
func (s *SystemLogStore) Prune(ctx context.Context, keep int) (int, error) {
	if s == nil || s.db == nil {
		return 0, fmt.Errorf("sqlstore: system log store is not configured")
	}
	if keep < 0 {
		keep = 0
	}
	total, err := s.Count(ctx)
	if err != nil {
		return 0, err
	}
	excess := total - keep
	if excess <= 0 {
		return 0, nil
	}
	res, err := s.db.NewRaw(
		"DELETE FROM system_logs WHERE id IN (SELECT id FROM system_logs ORDER BY created_at ASC LIMIT ?)",
		excess,
	).Exec(ctx)
	if err != nil {
		return 0, err
	}
	affected, _ := res.RowsAffected()
	return int(affected), nil
}

func (s *SystemLogStore) Count(ctx context.Context) (int, error) {
	if s == nil || s.db == nil {
		return 0, fmt.Errorf("sqlstore: system log store is not configured")
	}
	return s.db.NewSelect().Model((*systemLogRecord)(nil)).Count(ctx)
}
