package query

import (
	"context"

	"github.com/goliatone/go-order-notify/core"
)

type StatusReader interface {
	Status(ctx context.Context) (core.StatusReport, error)
	Health(ctx context.Context) core.HealthReport
}

type LogReader interface {
	RecentLogs(ctx context.Context, limit int) ([]core.SystemLogEntry, error)
}

type OrderReader interface {
	FetchOrder(ctx context.Context, id string) (core.Order, error)
	Formatter() *core.MessageFormatter
}

// OrderView is an upstream order together with the notification text it
// would produce.
type OrderView struct {
	Order    core.Order `json:"order"`
	Eligible bool       `json:"eligible"`
	Message  string     `json:"message"`
}

type StatusQuery struct {
	reader StatusReader
}

func NewStatusQuery(reader StatusReader) *StatusQuery {
	return &StatusQuery{reader: reader}
}

func (q *StatusQuery) Query(ctx context.Context, _ StatusMessage) (core.StatusReport, error) {
	if q == nil || q.reader == nil {
		return core.StatusReport{}, queryDependencyError("query: status reader is required")
	}
	return q.reader.Status(ctx)
}

type HealthQuery struct {
	reader StatusReader
}

func NewHealthQuery(reader StatusReader) *HealthQuery {
	return &HealthQuery{reader: reader}
}

func (q *HealthQuery) Query(ctx context.Context, _ HealthMessage) (core.HealthReport, error) {
	if q == nil || q.reader == nil {
		return core.HealthReport{}, queryDependencyError("query: status reader is required")
	}
	return q.reader.Health(ctx), nil
}

type LogsQuery struct {
	reader LogReader
}

func NewLogsQuery(reader LogReader) *LogsQuery {
	return &LogsQuery{reader: reader}
}

func (q *LogsQuery) Query(ctx context.Context, msg LogsMessage) ([]core.SystemLogEntry, error) {
	if q == nil || q.reader == nil {
		return nil, queryDependencyError("query: log reader is required")
	}
	if err := msg.Validate(); err != nil {
		return nil, err
	}
	limit := msg.Limit
	if limit == 0 {
		limit = DefaultLogLimit
	}
	entries, err := q.reader.RecentLogs(ctx, limit)
	if err != nil {
		return nil, err
	}
	if entries == nil {
		entries = []core.SystemLogEntry{}
	}
	return entries, nil
}

type OrderQuery struct {
	reader OrderReader
}

func NewOrderQuery(reader OrderReader) *OrderQuery {
	return &OrderQuery{reader: reader}
}

func (q *OrderQuery) Query(ctx context.Context, msg OrderMessage) (OrderView, error) {
	if q == nil || q.reader == nil {
		return OrderView{}, queryDependencyError("query: order reader is required")
	}
	if err := msg.Validate(); err != nil {
		return OrderView{}, err
	}
	order, err := q.reader.FetchOrder(ctx, trimmed(msg.ID))
	if err != nil {
		return OrderView{}, err
	}
	view := OrderView{Order: order, Eligible: order.IsEligible()}
	if formatter := q.reader.Formatter(); formatter != nil {
		view.Message = formatter.OrderMessage(order)
	}
	return view, nil
}
