// Package core contains the order notification domain: the canonical order
// entity, the ledger and dependency contracts, the health gate and the
// reconciler that drives order processing and pending-delivery retries.
// Adapters (SQL ledger, commerce and messaging clients, HTTP surface) depend
// on this package; core must not depend on them.
package core
