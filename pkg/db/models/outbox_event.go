package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/threadloom/storefront-backend/pkg/enums"
)

// OutboxEvent is a domain event written in the same transaction as the state
// change it describes and later drained to Pub/Sub by cmd/outbox-publisher.
type OutboxEvent struct {
	ID            uuid.UUID                 `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	EventType     enums.OutboxEventType     `gorm:"column:event_type;not null"`
	AggregateType enums.OutboxAggregateType `gorm:"column:aggregate_type;not null"`
	AggregateID   uuid.UUID                 `gorm:"column:aggregate_id;type:uuid;not null"`
	Payload       json.RawMessage           `gorm:"column:payload;type:jsonb;not null"`
	CreatedAt     time.Time                 `gorm:"column:created_at;autoCreateTime"`
	PublishedAt   *time.Time                `gorm:"column:published_at"`
	AttemptCount  int                       `gorm:"column:attempt_count;not null;default:0"`
	LastError     *string                   `gorm:"column:last_error"`
}

func (e *OutboxEvent) BeforeCreate(*gorm.DB) error {
	ensureID(&e.ID)
	return nil
}

func (OutboxEvent) TableName() string {
	return "outbox_events"
}

// OrderingKey groups every event of one aggregate, e.g. "order:<uuid>", so a
// subscriber sees them in write order. Events without an aggregate are
// unordered.
func (e OutboxEvent) OrderingKey() string {
	if e.AggregateID == uuid.Nil {
		return ""
	}
	return string(e.AggregateType) + ":" + e.AggregateID.String()
}

// Published reports whether the publisher has already delivered the row.
func (e OutboxEvent) Published() bool {
	return e.PublishedAt != nil
}
