package enums

import "slices"

// OutboxAggregateType maps to the aggregate_type column of outbox_events.
type OutboxAggregateType string

const (
	AggregateOrder           OutboxAggregateType = "order"
	AggregateCheckoutSession OutboxAggregateType = "checkout_session"
	AggregateReconciliation  OutboxAggregateType = "payment_reconciliation"
)

var validAggregateTypes = []OutboxAggregateType{
	AggregateOrder,
	AggregateCheckoutSession,
	AggregateReconciliation,
}

// IsValid reports whether the value matches a known aggregate type.
func (a OutboxAggregateType) IsValid() bool {
	return slices.Contains(validAggregateTypes, a)
}

// OutboxEventType maps to the event_type column of outbox_events.
type OutboxEventType string

const (
	EventOrderSettled            OutboxEventType = "order_settled"
	EventOrderStatusChanged      OutboxEventType = "order_status_changed"
	EventCheckoutSessionExpired  OutboxEventType = "checkout_session_expired"
	EventReconciliationRequested OutboxEventType = "reconciliation_requested"
)

var validOutboxEventTypes = []OutboxEventType{
	EventOrderSettled,
	EventOrderStatusChanged,
	EventCheckoutSessionExpired,
	EventReconciliationRequested,
}

// IsValid reports whether the value matches a known event type.
func (e OutboxEventType) IsValid() bool {
	return slices.Contains(validOutboxEventTypes, e)
}

// ParseOutboxEventType converts raw input into OutboxEventType.
func ParseOutboxEventType(value string) (OutboxEventType, error) {
	return parse(validOutboxEventTypes, value, "event type")
}
