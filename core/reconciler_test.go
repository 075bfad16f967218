package core

import (
	"context"
	"errors"
	"strings"
	"testing"
)

func TestRunCycle_DeliversEligibleOrderOnce(t *testing.T) {
	ctx := context.Background()
	fixture := newReconcilerFixture(t, testOrder("1001", "processing"))

	report, err := fixture.reconciler.RunCycle(ctx)
	if err != nil {
		t.Fatalf("run cycle: %v", err)
	}
	if report.Fetched != 1 || report.Delivered != 1 {
		t.Fatalf("expected 1 fetched and 1 delivered, got %+v", report)
	}
	if got := fixture.messenger.countContaining("NOVO PEDIDO PAGO"); got != 1 {
		t.Fatalf("expected one order message, got %d", got)
	}
	processed, _ := fixture.ledger.IsProcessed(ctx, "1001")
	if !processed {
		t.Fatalf("expected order 1001 to be marked processed")
	}
	pending, _ := fixture.ledger.ListPending(ctx)
	if len(pending) != 0 {
		t.Fatalf("expected empty pending queue, got %d", len(pending))
	}

	report, err = fixture.reconciler.RunCycle(ctx)
	if err != nil {
		t.Fatalf("second cycle: %v", err)
	}
	if report.AlreadyProcessed != 1 || report.Delivered != 0 {
		t.Fatalf("expected order to be skipped on second cycle, got %+v", report)
	}
	if got := fixture.messenger.countContaining("NOVO PEDIDO PAGO"); got != 1 {
		t.Fatalf("expected still one order message, got %d", got)
	}
}

func TestRunCycle_SendFailureParksOrderInPendingQueue(t *testing.T) {
	ctx := context.Background()
	order := testOrder("1002", "processing")
	fixture := newReconcilerFixture(t, order)
	fixture.messenger.sendErr = func(text string) error {
		if strings.Contains(text, "NOVO PEDIDO PAGO") && !strings.Contains(text, "TENTATIVA") {
			return errors.New("graph api 500")
		}
		return nil
	}

	report, err := fixture.reconciler.RunCycle(ctx)
	if err != nil {
		t.Fatalf("run cycle: %v", err)
	}
	if report.Deferred != 1 {
		t.Fatalf("expected deferred order, got %+v", report)
	}
	processed, _ := fixture.ledger.IsProcessed(ctx, "1002")
	if !processed {
		t.Fatalf("expected deferred order to be marked processed")
	}
	pending, _ := fixture.ledger.ListPending(ctx)
	if len(pending) != 1 || pending[0].OrderNumber != "1002" || pending[0].Attempts != 0 {
		t.Fatalf("expected one pending entry with zero attempts, got %+v", pending)
	}
	if !pending[0].Snapshot.Total.Equal(order.Total) {
		t.Fatalf("expected snapshot total %s, got %s", order.Total, pending[0].Snapshot.Total)
	}
	if report.Drain != nil {
		t.Fatalf("expected drain to be skipped after messaging failure, got %+v", report.Drain)
	}

	status, err := fixture.reconciler.Status(ctx)
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	if status.PendingOrders != 1 {
		t.Fatalf("expected mirror count 1, got %d", status.PendingOrders)
	}
	if len(fixture.ledger.logsOfKind(LogKindWarning)) == 0 {
		t.Fatalf("expected warning system log for queued order")
	}
}

func TestRunCycle_IneligibleOrderIsNotMarked(t *testing.T) {
	ctx := context.Background()
	fixture := newReconcilerFixture(t, testOrder("1003", "on-hold"), testOrder("1004", "Processando"))

	report, err := fixture.reconciler.RunCycle(ctx)
	if err != nil {
		t.Fatalf("run cycle: %v", err)
	}
	if report.Ineligible != 1 || report.Delivered != 1 {
		t.Fatalf("expected one ineligible and one delivered, got %+v", report)
	}
	processed, _ := fixture.ledger.IsProcessed(ctx, "1003")
	if processed {
		t.Fatalf("expected ineligible order to stay unmarked")
	}
}

func TestRunCycle_DuplicateOrdersInBatchSendOnce(t *testing.T) {
	fixture := newReconcilerFixture(t, testOrder("1005", "processing"), testOrder("1005", "processing"))

	report, err := fixture.reconciler.RunCycle(context.Background())
	if err != nil {
		t.Fatalf("run cycle: %v", err)
	}
	if report.Delivered != 1 || report.AlreadyProcessed != 1 {
		t.Fatalf("expected one delivery and one duplicate skip, got %+v", report)
	}
	if got := len(fixture.messenger.messages()); got != 1 {
		t.Fatalf("expected a single message, got %d", got)
	}
}

func TestRunCycle_OrderFailureDoesNotAbortBatch(t *testing.T) {
	ctx := context.Background()
	fixture := newReconcilerFixture(t, testOrder("2001", "processing"), testOrder("2002", "processing"))
	calls := 0
	fixture.messenger.sendErr = func(string) error {
		calls++
		if calls == 1 {
			panic("boom")
		}
		return nil
	}

	report, err := fixture.reconciler.RunCycle(ctx)
	if err != nil {
		t.Fatalf("run cycle: %v", err)
	}
	if report.Failed != 1 || report.Delivered != 1 {
		t.Fatalf("expected one failure and one delivery, got %+v", report)
	}
	if len(fixture.ledger.logsOfKind(LogKindError)) == 0 {
		t.Fatalf("expected recovered panic in the system log")
	}
}

func TestRunCycle_LedgerOutageAlertsOnce(t *testing.T) {
	ctx := context.Background()
	fixture := newReconcilerFixture(t, testOrder("3001", "processing"))
	fixture.ledger.setHealthErr(DependencyUnavailable(DependencyLedger, errors.New("connection refused"), "sqlstore: ping failed"))

	for i := 0; i < 3; i++ {
		report, err := fixture.reconciler.RunCycle(ctx)
		if err != nil {
			t.Fatalf("run cycle %d: %v", i, err)
		}
		if report.Fetched != 0 {
			t.Fatalf("expected fetch to be skipped while ledger is offline, got %+v", report)
		}
	}
	if got := fixture.messenger.countContaining("banco de dados"); got != 1 {
		t.Fatalf("expected exactly one ledger alert, got %d", got)
	}
	if fixture.commerce.fetchCount() != 0 {
		t.Fatalf("expected no commerce fetch while ledger is offline")
	}
	health := fixture.reconciler.Gate().Snapshot()
	if health.Ledger.Online || !health.Ledger.AlertSent || health.Ledger.ErrorCount != 3 {
		t.Fatalf("unexpected ledger health %+v", health.Ledger)
	}

	fixture.ledger.setHealthErr(nil)
	report, err := fixture.reconciler.RunCycle(ctx)
	if err != nil {
		t.Fatalf("recovery cycle: %v", err)
	}
	if report.Delivered != 1 {
		t.Fatalf("expected delivery after recovery, got %+v", report)
	}
	if fixture.reconciler.Gate().Snapshot().Ledger.AlertSent {
		t.Fatalf("expected alert flag to clear once the ledger is back")
	}

	fixture.ledger.setHealthErr(errors.New("down again"))
	if _, err := fixture.reconciler.RunCycle(ctx); err != nil {
		t.Fatalf("second outage cycle: %v", err)
	}
	if got := fixture.messenger.countContaining("banco de dados"); got != 2 {
		t.Fatalf("expected a new alert for the second outage, got %d", got)
	}
}

func TestRunCycle_CommerceOutageSkipsFetch(t *testing.T) {
	fixture := newReconcilerFixture(t, testOrder("3002", "processing"))
	fixture.commerce.pingErr = errors.New("503")

	report, err := fixture.reconciler.RunCycle(context.Background())
	if err != nil {
		t.Fatalf("run cycle: %v", err)
	}
	if report.Health.Commerce.Online || report.Fetched != 0 {
		t.Fatalf("expected commerce offline and no fetch, got %+v", report)
	}
	if report.Reason == "" {
		t.Fatalf("expected skip reason")
	}
	if got := fixture.messenger.countContaining("API da loja"); got != 1 {
		t.Fatalf("expected one commerce alert, got %d", got)
	}
}

func TestRunCycle_OverlappingCycleIsSkipped(t *testing.T) {
	fixture := newReconcilerFixture(t, testOrder("4001", "processing"))
	if !fixture.reconciler.cycleGuard.TryAcquire(1) {
		t.Fatalf("expected to hold the cycle guard")
	}
	defer fixture.reconciler.cycleGuard.Release(1)

	report, err := fixture.reconciler.RunCycle(context.Background())
	if err != nil {
		t.Fatalf("run cycle: %v", err)
	}
	if !report.Skipped {
		t.Fatalf("expected overlapping cycle to be skipped")
	}
	if fixture.commerce.fetchCount() != 0 {
		t.Fatalf("expected skipped cycle not to fetch")
	}
}

func TestRunCycle_ConfigurationMissingKeepsCommerceOffline(t *testing.T) {
	fixture := newReconcilerFixture(t)
	fixture.commerce.pingErr = ConfigurationMissing(DependencyCommerce, "consumer_key")

	for i := 0; i < 2; i++ {
		if _, err := fixture.reconciler.RunCycle(context.Background()); err != nil {
			t.Fatalf("run cycle: %v", err)
		}
	}
	fixture.commerce.pingErr = nil
	report, err := fixture.reconciler.RunCycle(context.Background())
	if err != nil {
		t.Fatalf("run cycle: %v", err)
	}
	if report.Health.Commerce.Online || !report.Health.Commerce.ConfigMissing {
		t.Fatalf("expected commerce to stay offline with missing configuration, got %+v", report.Health.Commerce)
	}
}

func TestProcessOrder_EnqueueFailureLeavesOrderUnmarked(t *testing.T) {
	ctx := context.Background()
	fixture := newReconcilerFixture(t)
	if _, err := fixture.reconciler.RunCycle(ctx); err != nil {
		t.Fatalf("warm up cycle: %v", err)
	}
	if !fixture.reconciler.Gate().IsOnline(DependencyLedger) {
		t.Fatalf("expected ledger online after warm up")
	}
	fixture.messenger.failSends(errors.New("timeout"))
	fixture.ledger.enqueueErr = DependencyUnavailable(DependencyLedger, errors.New("disk full"), "sqlstore: enqueue failed")

	outcome, err := fixture.reconciler.ProcessOrder(ctx, testOrder("5001", "processing"))
	if err == nil || outcome != OutcomeFailed {
		t.Fatalf("expected failed outcome, got %q err=%v", outcome, err)
	}
	processed, _ := fixture.ledger.IsProcessed(ctx, "5001")
	if processed {
		t.Fatalf("expected order to remain unprocessed so the next cycle retries it")
	}
	if fixture.reconciler.Gate().IsOnline(DependencyLedger) {
		t.Fatalf("expected ledger failure to be observed by the health gate")
	}
}

func TestShutdown_RejectsTriggersAndClosesLedger(t *testing.T) {
	ctx := context.Background()
	fixture := newReconcilerFixture(t)

	if err := fixture.reconciler.Shutdown(ctx); err != nil {
		t.Fatalf("shutdown: %v", err)
	}
	if _, err := fixture.reconciler.RunCycle(ctx); !errors.Is(err, ErrShuttingDown) {
		t.Fatalf("expected ErrShuttingDown from RunCycle, got %v", err)
	}
	if _, err := fixture.reconciler.DrainPending(ctx); !errors.Is(err, ErrShuttingDown) {
		t.Fatalf("expected ErrShuttingDown from DrainPending, got %v", err)
	}
	if fixture.ledger.closed != 1 {
		t.Fatalf("expected ledger to be closed once, got %d", fixture.ledger.closed)
	}
	if err := fixture.reconciler.Shutdown(ctx); err != nil {
		t.Fatalf("second shutdown: %v", err)
	}
	if fixture.ledger.closed != 1 {
		t.Fatalf("expected second shutdown to be a no-op")
	}
}

func TestCleanup_PurgesAndPrunes(t *testing.T) {
	ctx := context.Background()
	fixture := newReconcilerFixture(t)
	cfg := fixture.reconciler.Config()
	for i := 0; i < cfg.Reconcile.LogRetention+5; i++ {
		_ = fixture.ledger.AppendLog(ctx, LogKindInfo, "entry")
	}

	report, err := fixture.reconciler.Cleanup(ctx)
	if err != nil {
		t.Fatalf("cleanup: %v", err)
	}
	if report.PrunedLogs != 5 {
		t.Fatalf("expected 5 pruned logs, got %d", report.PrunedLogs)
	}
	stats, _ := fixture.ledger.Stats(ctx)
	if stats.Logs != cfg.Reconcile.LogRetention+1 {
		t.Fatalf("expected retention plus the cleanup entry, got %d", stats.Logs)
	}
}

func TestSeedPendingMirror_MatchesDurableQueue(t *testing.T) {
	ctx := context.Background()
	fixture := newReconcilerFixture(t)
	_ = fixture.ledger.EnqueuePending(ctx, "6001", testOrder("6001", "processing"))
	_ = fixture.ledger.EnqueuePending(ctx, "6002", testOrder("6002", "processing"))

	if err := fixture.reconciler.SeedPendingMirror(ctx); err != nil {
		t.Fatalf("seed mirror: %v", err)
	}
	status, _ := fixture.reconciler.Status(ctx)
	if status.PendingOrders != 2 {
		t.Fatalf("expected 2 mirrored pending orders, got %d", status.PendingOrders)
	}
	if len(status.PendingNumbers) != 2 || status.PendingNumbers[0] != "6001" {
		t.Fatalf("unexpected pending numbers %v", status.PendingNumbers)
	}
}

func TestStatus_ReportsLedgerAndCommerceStats(t *testing.T) {
	ctx := context.Background()
	fixture := newReconcilerFixture(t, testOrder("7001", "processing"))
	if _, err := fixture.reconciler.RunCycle(ctx); err != nil {
		t.Fatalf("run cycle: %v", err)
	}

	status, err := fixture.reconciler.Status(ctx)
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	if status.LastCheck == nil {
		t.Fatalf("expected last check to be recorded")
	}
	if status.Ledger == nil || status.Ledger.Processed != 1 {
		t.Fatalf("expected ledger stats with 1 processed order, got %+v", status.Ledger)
	}
	if status.Commerce == nil || status.Commerce.ProcessingOrders != 1 {
		t.Fatalf("expected commerce stats, got %+v", status.Commerce)
	}
	if status.Running {
		t.Fatalf("expected running flag to be cleared after the cycle")
	}
}

func TestFetchOrder_RequiresID(t *testing.T) {
	fixture := newReconcilerFixture(t, testOrder("8001", "processing"))
	if _, err := fixture.reconciler.FetchOrder(context.Background(), " "); err == nil {
		t.Fatalf("expected validation error")
	}
	order, err := fixture.reconciler.FetchOrder(context.Background(), "id-8001")
	if err != nil {
		t.Fatalf("fetch order: %v", err)
	}
	if order.Number != "8001" {
		t.Fatalf("expected order 8001, got %q", order.Number)
	}
}

func TestNewReconciler_RequiresCollaborators(t *testing.T) {
	if _, err := NewReconciler(DefaultConfig(), nil, &stubCommerce{}, &stubMessenger{}); err == nil {
		t.Fatalf("expected error without ledger")
	}
	if _, err := NewReconciler(DefaultConfig(), NewMemoryLedger(), nil, &stubMessenger{}); err == nil {
		t.Fatalf("expected error without commerce source")
	}
	if _, err := NewReconciler(DefaultConfig(), NewMemoryLedger(), &stubCommerce{}, nil); err == nil {
		t.Fatalf("expected error without messenger")
	}
}
