package sqlstore

import (
	"time"

	"github.com/uptrace/bun"
)

type processedOrderRecord struct {
	bun.BaseModel `bun:"table:processed_orders,alias:po"`

	ID          string    `bun:"id,pk"`
	OrderNumber string    `bun:"order_number,notnull"`
	ProcessedAt time.Time `bun:"processed_at,nullzero,notnull,default:current_timestamp"`
}

type pendingDeliveryRecord struct {
	bun.BaseModel `bun:"table:pending_deliveries,alias:pd"`

	ID            string     `bun:"id,pk"`
	OrderNumber   string     `bun:"order_number,notnull"`
	Snapshot      string     `bun:"snapshot,notnull"`
	Attempts      int        `bun:"attempts,notnull"`
	CreatedAt     time.Time  `bun:"created_at,nullzero,notnull,default:current_timestamp"`
	LastAttemptAt *time.Time `bun:"last_attempt_at,nullzero"`
}

type systemLogRecord struct {
	bun.BaseModel `bun:"table:system_logs,alias:sl"`

	ID        string    `bun:"id,pk"`
	Kind      string    `bun:"kind,notnull"`
	Message   string    `bun:"message,notnull"`
	CreatedAt time.Time `bun:"created_at,nullzero,notnull,default:current_timestamp"`
}
