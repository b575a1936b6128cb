package registry

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/threadloom/storefront-backend/pkg/config"
	"github.com/threadloom/storefront-backend/pkg/db/models"
	"github.com/threadloom/storefront-backend/pkg/enums"
	"github.com/threadloom/storefront-backend/pkg/outbox"
	"github.com/threadloom/storefront-backend/pkg/outbox/payloads"
)

// EventDescriptor ties an event type to its aggregate, topic and payload shape.
type EventDescriptor struct {
	EventType      enums.OutboxEventType
	AggregateType  enums.OutboxAggregateType
	Topic          string
	PayloadFactory func() any
}

// ResolvedEvent is an outbox row with its envelope and typed payload decoded.
type ResolvedEvent struct {
	Descriptor EventDescriptor
	Envelope   outbox.PayloadEnvelope
	Payload    any
}

// EventRegistry resolves outbox rows into publishable events.
type EventRegistry struct {
	entries  map[enums.OutboxEventType]EventDescriptor
	validate *validator.Validate
}

// NonRetryableError marks a row that can never be published as stored.
type NonRetryableError struct {
	Err error
}

func (e NonRetryableError) Error() string {
	if e.Err == nil {
		return "non-retryable error"
	}
	return e.Err.Error()
}

func (e NonRetryableError) Unwrap() error {
	return e.Err
}

// NewNonRetryableError wraps err so the publisher dead-letters the row.
func NewNonRetryableError(err error) NonRetryableError {
	return NonRetryableError{Err: err}
}

func describe[T any](eventType enums.OutboxEventType, aggregate enums.OutboxAggregateType) EventDescriptor {
	return EventDescriptor{
		EventType:      eventType,
		AggregateType:  aggregate,
		PayloadFactory: func() any { return new(T) },
	}
}

var catalog = []EventDescriptor{
	describe[payloads.OrderSettledEvent](enums.EventOrderSettled, enums.AggregateOrder),
	describe[payloads.OrderStatusChangedEvent](enums.EventOrderStatusChanged, enums.AggregateOrder),
	describe[payloads.CheckoutSessionExpiredEvent](enums.EventCheckoutSessionExpired, enums.AggregateCheckoutSession),
	describe[payloads.ReconciliationRequestedEvent](enums.EventReconciliationRequested, enums.AggregateReconciliation),
}

// NewEventRegistry routes order and checkout events to the orders topic and
// reconciliation alerts to the ops topic.
func NewEventRegistry(cfg config.PubSubConfig) (*EventRegistry, error) {
	var missing []string
	if cfg.OrdersTopic == "" {
		missing = append(missing, "orders topic")
	}
	if cfg.OpsTopic == "" {
		missing = append(missing, "ops topic")
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("event registry: %v required", missing)
	}

	topics := map[enums.OutboxAggregateType]string{
		enums.AggregateOrder:           cfg.OrdersTopic,
		enums.AggregateCheckoutSession: cfg.OrdersTopic,
		enums.AggregateReconciliation:  cfg.OpsTopic,
	}
	reg := &EventRegistry{
		entries:  make(map[enums.OutboxEventType]EventDescriptor, len(catalog)),
		validate: validator.New(validator.WithRequiredStructEnabled()),
	}
	for _, desc := range catalog {
		topic, ok := topics[desc.AggregateType]
		if !ok {
			return nil, fmt.Errorf("event registry: no topic for aggregate %s", desc.AggregateType)
		}
		desc.Topic = topic
		reg.entries[desc.EventType] = desc
	}
	return reg, nil
}

// EventTypes lists the registered event types in sorted order.
func (r *EventRegistry) EventTypes() []enums.OutboxEventType {
	out := make([]enums.OutboxEventType, 0, len(r.entries))
	for t := range r.entries {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Resolve checks the row against its descriptor and decodes the payload.
// Every failure is non-retryable.
func (r *EventRegistry) Resolve(event models.OutboxEvent) (*ResolvedEvent, error) {
	desc, ok := r.entries[event.EventType]
	switch {
	case !ok:
		return nil, NewNonRetryableError(fmt.Errorf("unsupported event type %s", event.EventType))
	case desc.AggregateType != event.AggregateType:
		return nil, NewNonRetryableError(fmt.Errorf("aggregate mismatch: expected %s got %s", desc.AggregateType, event.AggregateType))
	case event.AggregateID == uuid.Nil:
		return nil, NewNonRetryableError(errors.New("missing aggregate_id"))
	}

	envelope, err := outbox.DecodeEnvelope(event.Payload)
	if err != nil {
		return nil, NewNonRetryableError(fmt.Errorf("%s: %w", event.EventType, err))
	}
	payload := desc.PayloadFactory()
	if err := json.Unmarshal(envelope.Data, payload); err != nil {
		return nil, NewNonRetryableError(fmt.Errorf("decode %s payload: %w", event.EventType, err))
	}
	if err := r.validate.Struct(payload); err != nil {
		return nil, NewNonRetryableError(fmt.Errorf("invalid %s payload: %w", event.EventType, err))
	}

	return &ResolvedEvent{
		Descriptor: desc,
		Envelope:   envelope,
		Payload:    payload,
	}, nil
}
