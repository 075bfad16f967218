package core

import (
	"sort"
	"sync"
)

// pendingMirror is the in-process view of the pending-delivery queue. The
// ledger stays authoritative; the mirror only feeds status counts.
type pendingMirror struct {
	mu     sync.Mutex
	orders map[string]Order
}

func newPendingMirror() *pendingMirror {
	return &pendingMirror{orders: map[string]Order{}}
}

func (m *pendingMirror) Add(order Order) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.orders[order.Number] = order
}

func (m *pendingMirror) Remove(orderNumber string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.orders, orderNumber)
}

func (m *pendingMirror) Replace(entries []PendingEntry) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.orders = make(map[string]Order, len(entries))
	for _, entry := range entries {
		m.orders[entry.OrderNumber] = entry.Snapshot
	}
}

func (m *pendingMirror) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.orders)
}

func (m *pendingMirror) Numbers() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	numbers := make([]string, 0, len(m.orders))
	for number := range m.orders {
		numbers = append(numbers, number)
	}
	sort.Strings(numbers)
	return numbers
}
