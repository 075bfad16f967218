package sqlstore

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/goliatone/go-order-notify/core"
	ordermigrations "github.com/goliatone/go-order-notify/migrations"
	persistence "github.com/goliatone/go-persistence-bun"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/schema"
)

func NewLedgerFromPersistence(client *persistence.Client, opts ...LedgerOption) (*Ledger, error) {
	if client == nil {
		return nil, fmt.Errorf("sqlstore: persistence client is required")
	}
	opts = append([]LedgerOption{WithCloser(client.Close)}, opts...)
	return NewLedger(client, opts...)
}

// NewLedger accepts a *bun.DB or anything exposing DB() *bun.DB.
func NewLedger(persistenceClient any, opts ...LedgerOption) (*Ledger, error) {
	db, err := resolveBunDB(persistenceClient)
	if err != nil {
		return nil, err
	}
	processed, err := NewProcessedOrderStore(db)
	if err != nil {
		return nil, err
	}
	pending, err := NewPendingDeliveryStore(db)
	if err != nil {
		return nil, err
	}
	logs, err := NewSystemLogStore(db)
	if err != nil {
		return nil, err
	}
	ledger := &Ledger{
		db:          db,
		processed:   processed,
		pending:     pending,
		logs:        logs,
		pingTimeout: defaultPingTimeout,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(ledger)
		}
	}
	return ledger, nil
}

// Open connects to the configured database, optionally applies the
// embedded migrations, and returns a ready ledger.
func Open(ctx context.Context, cfg core.DatabaseConfig, migrate bool) (*Ledger, error) {
	driver := strings.TrimSpace(cfg.Driver)
	dialectName, err := ordermigrations.DialectForDriver(driver)
	if err != nil {
		return nil, err
	}
	sqlDB, err := sql.Open(driver, cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("sqlstore: open %s: %w", driver, err)
	}

	var dialect schema.Dialect
	switch dialectName {
	case ordermigrations.DialectSQLite:
		sqlDB.SetMaxOpenConns(1)
		dialect = sqlitedialect.New()
	default:
		dialect = pgdialect.New()
	}

	client, err := persistence.New(cfg, sqlDB, dialect)
	if err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("sqlstore: new persistence client: %w", err)
	}
	if migrate {
		if err := Migrate(ctx, client, dialectName); err != nil {
			_ = client.Close()
			return nil, err
		}
	}
	return NewLedgerFromPersistence(client, WithPingTimeout(cfg.PingTimeout))
}

// Migrate registers the migrations of one dialect and applies them.
func Migrate(ctx context.Context, client *persistence.Client, dialect string) error {
	if client == nil {
		return fmt.Errorf("sqlstore: persistence client is required")
	}
	fsys, err := ordermigrations.ForDialect(dialect)
	if err != nil {
		return fmt.Errorf("sqlstore: load migrations: %w", err)
	}
	client.RegisterSQLMigrations(fsys)
	if err := client.Migrate(ctx); err != nil {
		return fmt.Errorf("sqlstore: migrate: %w", err)
	}
	return nil
}

func resolveBunDB(candidate any) (*bun.DB, error) {
	switch typed := candidate.(type) {
	case nil:
		return nil, fmt.Errorf("sqlstore: persistence client is required")
	case *bun.DB:
		return typed, nil
	case interface{ DB() *bun.DB }:
		db := typed.DB()
		if db == nil {
			return nil, fmt.Errorf("sqlstore: persistence client returned nil bun db")
		}
		return db, nil
	default:
		return nil, fmt.Errorf("sqlstore: unsupported persistence client type %T", candidate)
	}
}
