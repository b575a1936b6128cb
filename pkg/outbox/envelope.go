package outbox

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/threadloom/storefront-backend/pkg/enums"
)

// EnvelopeVersion is the newest envelope layout this build writes and reads.
const EnvelopeVersion = 1

// ErrEmptyEventData is returned for envelopes whose data is missing or null.
var ErrEmptyEventData = errors.New("envelope data is empty")

// ActorRef identifies who caused the event: a shopper (guest or account) or
// an admin acting on an order.
type ActorRef struct {
	Kind enums.IdentityKind `json:"kind"`
	ID   string             `json:"id"`
	Role enums.Role         `json:"role,omitempty"`
}

// NewActor returns nil for an anonymous caller so the envelope omits it.
func NewActor(kind enums.IdentityKind, id string, role enums.Role) *ActorRef {
	if id == "" || !kind.IsValid() {
		return nil
	}
	return &ActorRef{Kind: kind, ID: id, Role: role}
}

// PayloadEnvelope is the JSON stored in outbox_events.payload and sent as the
// Pub/Sub message body.
type PayloadEnvelope struct {
	Version    int             `json:"version"`
	EventID    string          `json:"eventId"`
	OccurredAt time.Time       `json:"occurredAt"`
	Actor      *ActorRef       `json:"actor,omitempty"`
	Data       json.RawMessage `json:"data"`
}

func newEnvelope(event DomainEvent, now time.Time) (PayloadEnvelope, error) {
	data, err := json.Marshal(event.Data)
	if err != nil {
		return PayloadEnvelope{}, fmt.Errorf("marshal %s data: %w", event.EventType, err)
	}
	if isEmptyJSON(data) {
		return PayloadEnvelope{}, fmt.Errorf("%s: %w", event.EventType, ErrEmptyEventData)
	}
	occurred := event.OccurredAt
	if occurred.IsZero() {
		occurred = now
	}
	version := event.Version
	if version == 0 {
		version = EnvelopeVersion
	}
	return PayloadEnvelope{
		Version:    version,
		EventID:    uuid.NewString(),
		OccurredAt: occurred.UTC(),
		Actor:      event.Actor,
		Data:       data,
	}, nil
}

// DecodeEnvelope parses a stored payload and rejects layouts this build cannot
// read.
func DecodeEnvelope(raw []byte) (PayloadEnvelope, error) {
	var env PayloadEnvelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return PayloadEnvelope{}, fmt.Errorf("decode envelope: %w", err)
	}
	if env.Version < 1 || env.Version > EnvelopeVersion {
		return PayloadEnvelope{}, fmt.Errorf("unsupported envelope version %d", env.Version)
	}
	if isEmptyJSON(env.Data) {
		return PayloadEnvelope{}, ErrEmptyEventData
	}
	return env, nil
}

func isEmptyJSON(data []byte) bool {
	trimmed := bytes.TrimSpace(data)
	return len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null"))
}
