package sqlstore

import (
	"strings"

	repository "github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
)

func processedOrderHandlers() repository.ModelHandlers[*processedOrderRecord] {
	return repository.ModelHandlers[*processedOrderRecord]{
		NewRecord: func() *processedOrderRecord {
			return &processedOrderRecord{}
		},
		GetID: func(record *processedOrderRecord) uuid.UUID {
			if record == nil {
				return uuid.Nil
			}
			return parseUUID(record.ID)
		},
		SetID: func(record *processedOrderRecord, id uuid.UUID) {
			if record == nil {
				return
			}
			record.ID = id.String()
		},
		GetIdentifier: func() string {
			return "order_number"
		},
		GetIdentifierValue: func(record *processedOrderRecord) string {
			if record == nil {
				return ""
			}
			return strings.TrimSpace(record.OrderNumber)
		},
	}
}

func pendingDeliveryHandlers() repository.ModelHandlers[*pendingDeliveryRecord] {
	return repository.ModelHandlers[*pendingDeliveryRecord]{
		NewRecord: func() *pendingDeliveryRecord {
			return &pendingDeliveryRecord{}
		},
		GetID: func(record *pendingDeliveryRecord) uuid.UUID {
			if record == nil {
				return uuid.Nil
			}
			return parseUUID(record.ID)
		},
		SetID: func(record *pendingDeliveryRecord, id uuid.UUID) {
			if record == nil {
				return
			}
			record.ID = id.String()
		},
		GetIdentifier: func() string {
			return "order_number"
		},
		GetIdentifierValue: func(record *pendingDeliveryRecord) string {
			if record == nil {
				return ""
			}
			return strings.TrimSpace(record.OrderNumber)
		},
	}
}

func systemLogHandlers() repository.ModelHandlers[*systemLogRecord] {
	return repository.ModelHandlers[*systemLogRecord]{
		NewRecord: func() *systemLogRecord {
			return &systemLogRecord{}
		},
		GetID: func(record *systemLogRecord) uuid.UUID {
			if record == nil {
				return uuid.Nil
			}
			return parseUUID(record.ID)
		},
		SetID: func(record *systemLogRecord, id uuid.UUID) {
			if record == nil {
				return
			}
			record.ID = id.String()
		},
		GetIdentifier: func() string {
			return "id"
		},
		GetIdentifierValue: func(record *systemLogRecord) string {
			if record == nil {
				return ""
			}
			return strings.TrimSpace(record.ID)
		},
	}
}

func parseUUID(value string) uuid.UUID {
	parsed, err := uuid.Parse(strings.TrimSpace(value))
	if err != nil {
		return uuid.Nil
	}
	return parsed
}
