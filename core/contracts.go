package core

import (
	"context"
	"time"

	glog "github.com/goliatone/go-logger/glog"
)

type Logger = glog.Logger

type LoggerProvider = glog.LoggerProvider

type FieldsLogger = glog.FieldsLogger

type MetricsRecorder interface {
	IncCounter(ctx context.Context, name string, value int64, tags map[string]string)
	ObserveHistogram(ctx context.Context, name string, value float64, tags map[string]string)
}

const (
	LogKindInfo      = "info"
	LogKindWarning   = "warning"
	LogKindError     = "error"
	LogKindSuccess   = "success"
	LogKindSystem    = "system"
	LogKindCommerce  = "commerce"
	LogKindLedger    = "ledger"
	LogKindMessaging = "messaging"
)

// PendingEntry is an order whose notification failed and waits for a retry.
type PendingEntry struct {
	OrderNumber   string
	Snapshot      Order
	Attempts      int
	CreatedAt     time.Time
	LastAttemptAt *time.Time
}

type SystemLogEntry struct {
	Kind      string    `json:"type"`
	Message   string    `json:"message"`
	CreatedAt time.Time `json:"timestamp"`
}

type LedgerStats struct {
	Processed int `json:"processed"`
	Pending   int `json:"pending"`
	Logs      int `json:"logs"`
}

type CommerceStats struct {
	ProcessingOrders int `json:"processing_orders"`
}

// SystemLog is the append-only operational log kept next to the ledger.
type SystemLog interface {
	AppendLog(ctx context.Context, kind string, message string) error
	RecentLogs(ctx context.Context, limit int) ([]SystemLogEntry, error)
	PruneLogs(ctx context.Context, keep int) (int, error)
}

// Ledger is the durable source of truth for processed orders and the
// pending-delivery queue. Every operation is atomic on its own.
type Ledger interface {
	SystemLog
	IsProcessed(ctx context.Context, orderNumber string) (bool, error)
	MarkProcessed(ctx context.Context, orderNumber string) error
	EnqueuePending(ctx context.Context, orderNumber string, snapshot Order) error
	DequeuePending(ctx context.Context, orderNumber string) error
	ListPending(ctx context.Context) ([]PendingEntry, error)
	UpdateAttempts(ctx context.Context, orderNumber string, attempts int) error
	PurgeProcessedOlderThan(ctx context.Context, age time.Duration) (int, error)
	HealthCheck(ctx context.Context) error
	Stats(ctx context.Context) (LedgerStats, error)
	Close() error
}

type CommerceSource interface {
	FetchRecentOrders(ctx context.Context, limit int) ([]Order, error)
	FetchOrderByID(ctx context.Context, id string) (Order, error)
	Ping(ctx context.Context) error
}

// CommerceStatsReader is implemented by commerce sources able to count the
// orders waiting upstream.
type CommerceStatsReader interface {
	Stats(ctx context.Context) (CommerceStats, error)
}

type Messenger interface {
	Send(ctx context.Context, text string) error
	Ping(ctx context.Context) error
}
