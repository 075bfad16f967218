package core

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

type stubLogger struct{}

func (stubLogger) Trace(string, ...any)                 {}
func (stubLogger) Debug(string, ...any)                 {}
func (stubLogger) Info(string, ...any)                  {}
func (stubLogger) Warn(string, ...any)                  {}
func (stubLogger) Error(string, ...any)                 {}
func (stubLogger) Fatal(string, ...any)                 {}
func (l stubLogger) WithContext(context.Context) Logger { return l }

type stubLoggerProvider struct {
	logger Logger
}

func (s stubLoggerProvider) GetLogger(string) Logger {
	return s.logger
}

type stubMessenger struct {
	mu      sync.Mutex
	sent    []string
	sendErr func(text string) error
	pingErr error
	pings   int
}

func (m *stubMessenger) Send(_ context.Context, text string) error {
	m.mu.Lock()
	hook := m.sendErr
	m.mu.Unlock()
	if hook != nil {
		if err := hook(text); err != nil {
			return err
		}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, text)
	return nil
}

func (m *stubMessenger) Ping(context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pings++
	return m.pingErr
}

func (m *stubMessenger) setPingErr(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pingErr = err
}

func (m *stubMessenger) failSends(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err == nil {
		m.sendErr = nil
		return
	}
	m.sendErr = func(string) error { return err }
}

func (m *stubMessenger) messages() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.sent...)
}

func (m *stubMessenger) countContaining(fragment string) int {
	count := 0
	for _, text := range m.messages() {
		if strings.Contains(text, fragment) {
			count++
		}
	}
	return count
}

type stubCommerce struct {
	mu       sync.Mutex
	orders   []Order
	byID     map[string]Order
	fetchErr error
	pingErr  error
	fetches  int
	limits   []int
}

func (c *stubCommerce) FetchRecentOrders(_ context.Context, limit int) ([]Order, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.fetches++
	c.limits = append(c.limits, limit)
	if c.fetchErr != nil {
		return nil, c.fetchErr
	}
	return append([]Order(nil), c.orders...), nil
}

func (c *stubCommerce) FetchOrderByID(_ context.Context, id string) (Order, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	order, ok := c.byID[id]
	if !ok {
		return Order{}, fmt.Errorf("order %s not found", id)
	}
	return order, nil
}

func (c *stubCommerce) Ping(context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.pingErr
}

func (c *stubCommerce) Stats(context.Context) (CommerceStats, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return CommerceStats{ProcessingOrders: len(c.orders)}, nil
}

func (c *stubCommerce) fetchCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.fetches
}

// flakyLedger wraps the memory ledger with injectable failures.
type flakyLedger struct {
	*MemoryLedger
	mu             sync.Mutex
	healthErr      error
	isProcessedErr error
	markErr        error
	enqueueErr     error
	updateErr      map[string]error
	dequeueErrs    []error
	closed         int
}

func newFlakyLedger() *flakyLedger {
	return &flakyLedger{MemoryLedger: NewMemoryLedger(), updateErr: map[string]error{}}
}

func (l *flakyLedger) setHealthErr(err error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.healthErr = err
}

func (l *flakyLedger) HealthCheck(ctx context.Context) error {
	l.mu.Lock()
	err := l.healthErr
	l.mu.Unlock()
	if err != nil {
		return err
	}
	return l.MemoryLedger.HealthCheck(ctx)
}

func (l *flakyLedger) IsProcessed(ctx context.Context, orderNumber string) (bool, error) {
	l.mu.Lock()
	err := l.isProcessedErr
	l.mu.Unlock()
	if err != nil {
		return false, err
	}
	return l.MemoryLedger.IsProcessed(ctx, orderNumber)
}

func (l *flakyLedger) MarkProcessed(ctx context.Context, orderNumber string) error {
	l.mu.Lock()
	err := l.markErr
	l.mu.Unlock()
	if err != nil {
		return err
	}
	return l.MemoryLedger.MarkProcessed(ctx, orderNumber)
}

func (l *flakyLedger) EnqueuePending(ctx context.Context, orderNumber string, snapshot Order) error {
	l.mu.Lock()
	err := l.enqueueErr
	l.mu.Unlock()
	if err != nil {
		return err
	}
	return l.MemoryLedger.EnqueuePending(ctx, orderNumber, snapshot)
}

func (l *flakyLedger) UpdateAttempts(ctx context.Context, orderNumber string, attempts int) error {
	l.mu.Lock()
	err := l.updateErr[orderNumber]
	l.mu.Unlock()
	if err != nil {
		return err
	}
	return l.MemoryLedger.UpdateAttempts(ctx, orderNumber, attempts)
}

// failDequeue makes the next DequeuePending calls fail, one error per call.
func (l *flakyLedger) failDequeue(errs ...error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.dequeueErrs = append(l.dequeueErrs, errs...)
}

func (l *flakyLedger) DequeuePending(ctx context.Context, orderNumber string) error {
	l.mu.Lock()
	var err error
	if len(l.dequeueErrs) > 0 {
		err = l.dequeueErrs[0]
		l.dequeueErrs = l.dequeueErrs[1:]
	}
	l.mu.Unlock()
	if err != nil {
		return err
	}
	return l.MemoryLedger.DequeuePending(ctx, orderNumber)
}

func (l *flakyLedger) Close() error {
	l.mu.Lock()
	l.closed++
	l.mu.Unlock()
	return l.MemoryLedger.Close()
}

func (l *flakyLedger) logsOfKind(kind string) []SystemLogEntry {
	entries, _ := l.RecentLogs(context.Background(), 0)
	out := []SystemLogEntry{}
	for _, entry := range entries {
		if entry.Kind == kind {
			out = append(out, entry)
		}
	}
	return out
}

type reconcilerFixture struct {
	reconciler *Reconciler
	ledger     *flakyLedger
	commerce   *stubCommerce
	messenger  *stubMessenger
	metrics    *captureMetricsRecorder
	logger     *captureLogger
}

func newReconcilerFixture(t *testing.T, orders ...Order) *reconcilerFixture {
	t.Helper()
	fixture := &reconcilerFixture{
		ledger:    newFlakyLedger(),
		commerce:  &stubCommerce{orders: orders, byID: map[string]Order{}},
		messenger: &stubMessenger{},
		metrics:   &captureMetricsRecorder{},
		logger:    newCaptureLogger(),
	}
	for _, order := range orders {
		fixture.commerce.byID[order.ID] = order
	}
	fixed := time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)
	reconciler, err := NewReconciler(DefaultConfig(), fixture.ledger, fixture.commerce, fixture.messenger,
		WithLogger(fixture.logger),
		WithLoggerProvider(stubLoggerProvider{logger: fixture.logger}),
		WithMetricsRecorder(fixture.metrics),
		WithClock(func() time.Time { return fixed }),
	)
	if err != nil {
		t.Fatalf("new reconciler: %v", err)
	}
	fixture.reconciler = reconciler
	return fixture
}

func testOrder(number string, status string) Order {
	return Order{
		ID:             "id-" + number,
		Number:         number,
		Status:         status,
		Total:          decimal.RequireFromString("150.00"),
		Subtotal:       decimal.RequireFromString("130.00"),
		Shipping:       decimal.RequireFromString("20.00"),
		PaymentMethod:  "Pix",
		ShippingMethod: "SEDEX",
		Customer: Customer{
			Name:  "Maria Souza",
			Email: "maria@example.com",
			Phone: "+5511999999999",
		},
		Items: []LineItem{{
			Name:     "Camiseta",
			Quantity: 2,
			Price:    decimal.RequireFromString("65.00"),
			Total:    decimal.RequireFromString("130.00"),
		}},
		Address: Address{
			Line1:    "Rua A, 10",
			City:     "São Paulo",
			State:    "SP",
			Postcode: "01000-000",
			Country:  "BR",
		},
	}
}
