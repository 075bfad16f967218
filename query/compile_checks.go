package query

import (
	gocmd "github.com/goliatone/go-command"
	"github.com/goliatone/go-order-notify/core"
)

var (
	_ gocmd.Querier[StatusMessage, core.StatusReport]   = (*StatusQuery)(nil)
	_ gocmd.Querier[HealthMessage, core.HealthReport]   = (*HealthQuery)(nil)
	_ gocmd.Querier[LogsMessage, []core.SystemLogEntry] = (*LogsQuery)(nil)
	_ gocmd.Querier[OrderMessage, OrderView]            = (*OrderQuery)(nil)
)
