package outbox

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/threadloom/storefront-backend/internal/testdb"
	"github.com/threadloom/storefront-backend/pkg/db/models"
	"github.com/threadloom/storefront-backend/pkg/enums"
	"github.com/threadloom/storefront-backend/pkg/outbox/payloads"
)

func expiredEvent(sessionID uuid.UUID) DomainEvent {
	return DomainEvent{
		EventType:     enums.EventCheckoutSessionExpired,
		AggregateType: enums.AggregateCheckoutSession,
		AggregateID:   sessionID,
		Actor:         NewActor(enums.IdentityGuest, "guest-123", ""),
		Data:          payloads.CheckoutSessionExpiredEvent{CheckoutSessionID: sessionID},
	}
}

func TestServiceEmitWritesEnvelope(t *testing.T) {
	conn := testdb.Open(t)
	svc := NewService(NewRepository(conn), nil)
	fixed := time.Date(2026, 10, 19, 9, 30, 0, 0, time.UTC)
	svc.now = func() time.Time { return fixed }
	sessionID := uuid.New()

	require.NoError(t, conn.Transaction(func(tx *gorm.DB) error {
		return svc.Emit(context.Background(), tx, expiredEvent(sessionID))
	}))

	var row models.OutboxEvent
	require.NoError(t, conn.First(&row).Error)
	assert.Equal(t, sessionID, row.AggregateID)
	assert.Equal(t, "checkout_session:"+sessionID.String(), row.OrderingKey())
	assert.False(t, row.Published())

	env, err := DecodeEnvelope(row.Payload)
	require.NoError(t, err)
	assert.Equal(t, EnvelopeVersion, env.Version)
	assert.True(t, env.OccurredAt.Equal(fixed))
	require.NotNil(t, env.Actor)
	assert.Equal(t, enums.IdentityGuest, env.Actor.Kind)
	_, err = uuid.Parse(env.EventID)
	assert.NoError(t, err)
}

func TestServiceEmitRejectsIncompleteEvents(t *testing.T) {
	conn := testdb.Open(t)
	svc := NewService(NewRepository(conn), nil)

	missingID := expiredEvent(uuid.Nil)
	nilData := expiredEvent(uuid.New())
	nilData.Data = nil
	unknown := expiredEvent(uuid.New())
	unknown.EventType = "order_exploded"

	for _, event := range []DomainEvent{missingID, nilData, unknown} {
		err := conn.Transaction(func(tx *gorm.DB) error {
			return svc.Emit(context.Background(), tx, event)
		})
		assert.Error(t, err, "event %+v", event)
	}
	assert.ErrorIs(t, svc.Emit(context.Background(), conn, nilData), ErrEmptyEventData)
	assert.Error(t, svc.Emit(context.Background(), nil, expiredEvent(uuid.New())))

	var count int64
	require.NoError(t, conn.Model(&models.OutboxEvent{}).Count(&count).Error)
	assert.Zero(t, count)
}

func TestServiceEmitIfNotExistsIsOncePerAggregate(t *testing.T) {
	conn := testdb.Open(t)
	svc := NewService(NewRepository(conn), nil)
	sessionID := uuid.New()

	for i := 0; i < 2; i++ {
		require.NoError(t, conn.Transaction(func(tx *gorm.DB) error {
			return svc.EmitIfNotExists(context.Background(), tx, expiredEvent(sessionID))
		}))
	}

	var count int64
	require.NoError(t, conn.Model(&models.OutboxEvent{}).Where("aggregate_id = ?", sessionID).Count(&count).Error)
	assert.EqualValues(t, 1, count)
}

func TestDecodeEnvelopeRejectsUnknownLayouts(t *testing.T) {
	for name, raw := range map[string]string{
		"not json":       `{`,
		"future version": `{"version":2,"eventId":"x","data":{}}`,
		"zero version":   `{"version":0,"eventId":"x","data":{}}`,
		"null data":      `{"version":1,"eventId":"x","data":null}`,
	} {
		_, err := DecodeEnvelope([]byte(raw))
		assert.Error(t, err, name)
	}
	_, err := DecodeEnvelope([]byte(`{"version":1,"eventId":"x","data":null}`))
	assert.True(t, errors.Is(err, ErrEmptyEventData))
}

func TestNewActorSkipsAnonymousCallers(t *testing.T) {
	assert.Nil(t, NewActor(enums.IdentityUser, "", enums.RoleAdmin))
	assert.Nil(t, NewActor("robot", "x", ""))
	actor := NewActor(enums.IdentityUser, uuid.NewString(), enums.RoleAdmin)
	require.NotNil(t, actor)
	assert.Equal(t, enums.RoleAdmin, actor.Role)
}
