package query

import "fmt"

const (
	TypeStatus = "order_notify.query.status"
	TypeHealth = "order_notify.query.health"
	TypeLogs   = "order_notify.query.logs"
	TypeOrder  = "order_notify.query.order"
)

const (
	DefaultLogLimit = 50
	MaxLogLimit     = 1000
)

type StatusMessage struct{}

func (StatusMessage) Type() string { return TypeStatus }

type HealthMessage struct{}

func (HealthMessage) Type() string { return TypeHealth }

// LogsMessage asks for the newest system log entries. Limit ranges over
// 1..MaxLogLimit; zero selects DefaultLogLimit.
type LogsMessage struct {
	Limit int
}

func (LogsMessage) Type() string { return TypeLogs }

func (m LogsMessage) Validate() error {
	if m.Limit < 0 || m.Limit > MaxLogLimit {
		return queryValidationError("limit", fmt.Sprintf(
			"limit must be between 1 and %d, or omitted for the default of %d",
			MaxLogLimit,
			DefaultLogLimit,
		))
	}
	return nil
}

type OrderMessage struct {
	ID string
}

func (OrderMessage) Type() string { return TypeOrder }

func (m OrderMessage) Validate() error {
	if trimmed(m.ID) == "" {
		return queryValidationError("id", "order id is required")
	}
	return nil
}
