package core

import (
	"context"
	"testing"
	"time"
)

func TestMemoryLedger_InsertIfAbsentSemantics(t *testing.T) {
	ctx := context.Background()
	ledger := NewMemoryLedger()

	for i := 0; i < 2; i++ {
		if err := ledger.MarkProcessed(ctx, "1"); err != nil {
			t.Fatalf("mark processed: %v", err)
		}
		if err := ledger.EnqueuePending(ctx, "1", testOrder("1", "processing")); err != nil {
			t.Fatalf("enqueue: %v", err)
		}
	}
	_ = ledger.UpdateAttempts(ctx, "1", 2)
	_ = ledger.EnqueuePending(ctx, "1", testOrder("1", "processing"))

	pending, _ := ledger.ListPending(ctx)
	if len(pending) != 1 || pending[0].Attempts != 2 {
		t.Fatalf("expected existing entry to be kept, got %+v", pending)
	}
	if err := ledger.DequeuePending(ctx, "missing"); err != nil {
		t.Fatalf("dequeue of absent entry should be a no-op, got %v", err)
	}
}

func TestMemoryLedger_PurgeAndOrdering(t *testing.T) {
	ctx := context.Background()
	ledger := NewMemoryLedger()
	current := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	ledger.now = func() time.Time { return current }

	_ = ledger.MarkProcessed(ctx, "old")
	_ = ledger.EnqueuePending(ctx, "b", Order{Number: "b"})
	_ = ledger.EnqueuePending(ctx, "a", Order{Number: "a"})
	current = current.Add(31 * 24 * time.Hour)
	_ = ledger.MarkProcessed(ctx, "new")
	_ = ledger.EnqueuePending(ctx, "0", Order{Number: "0"})

	purged, _ := ledger.PurgeProcessedOlderThan(ctx, 30*24*time.Hour)
	if purged != 1 {
		t.Fatalf("expected 1 purged marker, got %d", purged)
	}
	pending, _ := ledger.ListPending(ctx)
	if len(pending) != 3 || pending[0].OrderNumber != "a" || pending[1].OrderNumber != "b" || pending[2].OrderNumber != "0" {
		t.Fatalf("expected oldest first then number, got %+v", pending)
	}
}
