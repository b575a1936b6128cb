package orders

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/threadloom/storefront-backend/internal/identity"
	product "github.com/threadloom/storefront-backend/internal/products"
	"github.com/threadloom/storefront-backend/internal/testdb"
	"github.com/threadloom/storefront-backend/pkg/db/models"
	"github.com/threadloom/storefront-backend/pkg/enums"
	pkgerrors "github.com/threadloom/storefront-backend/pkg/errors"
	"github.com/threadloom/storefront-backend/pkg/outbox"
	"github.com/threadloom/storefront-backend/pkg/outbox/payloads"
)

type fixture struct {
	conn    *gorm.DB
	svc     Service
	repo    *Repository
	product models.Product
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	client, conn := testdb.Client(t)
	repo := NewRepository(conn)
	svc, err := NewService(repo, client, outbox.NewService(outbox.NewRepository(conn), nil), product.NewRepository(conn), nil)
	require.NoError(t, err)
	return &fixture{
		conn:    conn,
		svc:     svc,
		repo:    repo,
		product: testdb.SeedProduct(t, conn, "Linen Shirt", "999.00", 5, "M"),
	}
}

func (f *fixture) seedOrder(t *testing.T, status enums.OrderStatus, qty int) *models.Order {
	t.Helper()
	order := &models.Order{
		OrderNumber:       "SF-20260101-" + uuid.NewString()[:6],
		Status:            status,
		TotalAmount:       decimal.RequireFromString("999.00").Mul(decimal.NewFromInt(int64(qty))),
		Currency:          enums.CurrencyINR,
		CustomerName:      "Asha Rao",
		CustomerEmail:     "asha@example.com",
		CustomerPhone:     "9876543210",
		ShippingAddress:   "12 MG Road",
		ShippingCity:      "Bengaluru",
		ShippingState:     "Karnataka",
		ShippingPincode:   "560001",
		ShippingCountry:   "India",
		GatewayOrderID:    "order_" + uuid.NewString(),
		GatewayPaymentID:  "pay_1",
		GatewaySignature:  "sig",
		OwnerKind:         enums.IdentityGuest,
		OwnerID:           "guest-1",
		CheckoutSessionID: uuid.New(),
	}
	ctx := context.Background()
	require.NoError(t, f.repo.Create(ctx, order))
	require.NoError(t, f.repo.CreateItems(ctx, []models.OrderItem{{
		OrderID:             order.ID,
		ProductID:           f.product.ID,
		ProductNameSnapshot: f.product.Name,
		UnitPriceSnapshot:   f.product.Price,
		Quantity:            qty,
		Size:                "M",
	}}))
	return order
}

func (f *fixture) statusEvents(t *testing.T) []payloads.OrderStatusChangedEvent {
	t.Helper()
	var rows []models.OutboxEvent
	require.NoError(t, f.conn.Where("event_type = ?", enums.EventOrderStatusChanged).Order("created_at ASC").Find(&rows).Error)
	events := make([]payloads.OrderStatusChangedEvent, 0, len(rows))
	for _, row := range rows {
		var envelope outbox.PayloadEnvelope
		require.NoError(t, json.Unmarshal(row.Payload, &envelope))
		var data payloads.OrderStatusChangedEvent
		require.NoError(t, json.Unmarshal(envelope.Data, &data))
		events = append(events, data)
	}
	return events
}

func status(s enums.OrderStatus) *enums.OrderStatus { return &s }

func TestCanTransition(t *testing.T) {
	cases := []struct {
		from, to enums.OrderStatus
		want     bool
	}{
		{enums.OrderStatusPending, enums.OrderStatusProcessing, true},
		{enums.OrderStatusPending, enums.OrderStatusCancelled, true},
		{enums.OrderStatusPending, enums.OrderStatusShipped, false},
		{enums.OrderStatusPending, enums.OrderStatusDelivered, false},
		{enums.OrderStatusProcessing, enums.OrderStatusShipped, true},
		{enums.OrderStatusProcessing, enums.OrderStatusPending, false},
		{enums.OrderStatusShipped, enums.OrderStatusDelivered, true},
		{enums.OrderStatusShipped, enums.OrderStatusCancelled, true},
		{enums.OrderStatusDelivered, enums.OrderStatusCancelled, false},
		{enums.OrderStatusCancelled, enums.OrderStatusPending, false},
		{enums.OrderStatusCancelled, enums.OrderStatusProcessing, false},
	}
	for _, tc := range cases {
		assert.Equalf(t, tc.want, CanTransition(tc.from, tc.to), "%s -> %s", tc.from, tc.to)
	}
}

func TestTransitionHappyPathEmitsEvents(t *testing.T) {
	f := newFixture(t)
	order := f.seedOrder(t, enums.OrderStatusPending, 1)
	ctx := identity.WithCaller(context.Background(), identity.UserCaller(uuid.New(), "ops@example.com", true))

	for _, next := range []enums.OrderStatus{enums.OrderStatusProcessing, enums.OrderStatusShipped, enums.OrderStatusDelivered} {
		dto, err := f.svc.Transition(ctx, order.ID, next)
		require.NoError(t, err)
		assert.Equal(t, next, dto.Status)
	}

	events := f.statusEvents(t)
	require.Len(t, events, 3)
	assert.Equal(t, enums.OrderStatusPending, events[0].PreviousStatus)
	assert.Equal(t, enums.OrderStatusDelivered, events[2].Status)
}

func TestTransitionRejectsCurrentStatus(t *testing.T) {
	f := newFixture(t)
	for _, st := range []enums.OrderStatus{
		enums.OrderStatusPending,
		enums.OrderStatusProcessing,
		enums.OrderStatusShipped,
		enums.OrderStatusDelivered,
		enums.OrderStatusCancelled,
	} {
		order := f.seedOrder(t, st, 1)
		_, err := f.svc.Transition(context.Background(), order.ID, st)
		require.Errorf(t, err, "%s -> %s", st, st)
		assert.Truef(t, pkgerrors.IsCode(err, pkgerrors.CodeInvalidTransition), "%s -> %s: %v", st, st, err)

		stored, err := f.repo.FindByID(context.Background(), order.ID)
		require.NoError(t, err)
		assert.Equal(t, st, stored.Status)
	}
	assert.Empty(t, f.statusEvents(t))
	assert.Equal(t, 5, testdb.StockOf(t, f.conn, f.product.ID))
}

func TestUpdateFulfillmentUnchangedStatus(t *testing.T) {
	f := newFixture(t)
	open := f.seedOrder(t, enums.OrderStatusProcessing, 1)
	tracking := "AWB123"

	dto, err := f.svc.UpdateFulfillment(context.Background(), open.ID, UpdateInput{
		Status:         status(enums.OrderStatusProcessing),
		TrackingNumber: &tracking,
	})
	require.NoError(t, err)
	assert.Equal(t, enums.OrderStatusProcessing, dto.Status)
	require.NotNil(t, dto.TrackingNumber)
	assert.Equal(t, "AWB123", *dto.TrackingNumber)
	assert.Empty(t, f.statusEvents(t))

	for _, st := range []enums.OrderStatus{enums.OrderStatusDelivered, enums.OrderStatusCancelled} {
		closed := f.seedOrder(t, st, 1)
		_, err = f.svc.UpdateFulfillment(context.Background(), closed.ID, UpdateInput{Status: status(st)})
		require.Error(t, err)
		assert.Truef(t, pkgerrors.IsCode(err, pkgerrors.CodeInvalidTransition), "%s: %v", st, err)
	}
}

func TestTransitionRejectsSkipsAndTerminal(t *testing.T) {
	f := newFixture(t)
	pending := f.seedOrder(t, enums.OrderStatusPending, 1)
	cancelled := f.seedOrder(t, enums.OrderStatusCancelled, 1)

	_, err := f.svc.Transition(context.Background(), pending.ID, enums.OrderStatusShipped)
	require.Error(t, err)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeInvalidTransition))

	_, err = f.svc.Transition(context.Background(), cancelled.ID, enums.OrderStatusPending)
	require.Error(t, err)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeInvalidTransition))

	stored, err := f.repo.FindByID(context.Background(), pending.ID)
	require.NoError(t, err)
	assert.Equal(t, enums.OrderStatusPending, stored.Status)
}

func TestTransitionUnknownStatus(t *testing.T) {
	f := newFixture(t)
	order := f.seedOrder(t, enums.OrderStatusPending, 1)

	_, err := f.svc.Transition(context.Background(), order.ID, enums.OrderStatus("refunded"))
	require.Error(t, err)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
}

func TestCancelRestocksBeforeShipping(t *testing.T) {
	f := newFixture(t)
	order := f.seedOrder(t, enums.OrderStatusProcessing, 2)

	_, err := f.svc.Transition(context.Background(), order.ID, enums.OrderStatusCancelled)
	require.NoError(t, err)
	assert.Equal(t, 7, testdb.StockOf(t, f.conn, f.product.ID))

	events := f.statusEvents(t)
	require.Len(t, events, 1)
	assert.True(t, events[0].Restocked)
}

func TestCancelAfterShippingDoesNotRestock(t *testing.T) {
	f := newFixture(t)
	order := f.seedOrder(t, enums.OrderStatusShipped, 2)

	_, err := f.svc.Transition(context.Background(), order.ID, enums.OrderStatusCancelled)
	require.NoError(t, err)
	assert.Equal(t, 5, testdb.StockOf(t, f.conn, f.product.ID))
}

func TestUpdateFulfillmentTrackingAndLock(t *testing.T) {
	f := newFixture(t)
	order := f.seedOrder(t, enums.OrderStatusShipped, 1)
	tracking := "AWB123"
	notes := "left with neighbour"

	dto, err := f.svc.UpdateFulfillment(context.Background(), order.ID, UpdateInput{
		Status:         status(enums.OrderStatusDelivered),
		TrackingNumber: &tracking,
		Notes:          &notes,
	})
	require.NoError(t, err)
	require.NotNil(t, dto.TrackingNumber)
	assert.Equal(t, "AWB123", *dto.TrackingNumber)
	assert.Equal(t, enums.OrderStatusDelivered, dto.Status)

	changed := "AWB999"
	_, err = f.svc.UpdateFulfillment(context.Background(), order.ID, UpdateInput{TrackingNumber: &changed})
	require.Error(t, err)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeStateConflict))

	stored, err := f.repo.FindByID(context.Background(), order.ID)
	require.NoError(t, err)
	assert.Equal(t, "AWB123", *stored.TrackingNumber)
}

func TestGetByNumberOwnership(t *testing.T) {
	f := newFixture(t)
	order := f.seedOrder(t, enums.OrderStatusPending, 1)
	ctx := context.Background()

	dto, err := f.svc.GetByNumber(ctx, identity.GuestCaller("guest-1"), order.OrderNumber)
	require.NoError(t, err)
	require.Len(t, dto.Items, 1)
	assert.True(t, decimal.RequireFromString("999").Equal(dto.Items[0].LineTotal))

	_, err = f.svc.GetByNumber(ctx, identity.GuestCaller("guest-2"), order.OrderNumber)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))

	_, err = f.svc.GetByNumber(ctx, identity.UserCaller(uuid.New(), "ops@example.com", true), order.OrderNumber)
	require.NoError(t, err)

	_, err = f.svc.GetByNumber(ctx, identity.GuestCaller("guest-1"), "SF-MISSING")
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))
}

func TestListFiltersAndPages(t *testing.T) {
	f := newFixture(t)
	f.seedOrder(t, enums.OrderStatusPending, 1)
	f.seedOrder(t, enums.OrderStatusPending, 1)
	f.seedOrder(t, enums.OrderStatusShipped, 1)

	all, err := f.svc.List(context.Background(), ListFilter{Limit: 2})
	require.NoError(t, err)
	assert.Equal(t, int64(3), all.Total)
	assert.Len(t, all.Orders, 2)

	pending, err := f.svc.List(context.Background(), ListFilter{Status: status(enums.OrderStatusPending)})
	require.NoError(t, err)
	assert.Equal(t, int64(2), pending.Total)
	assert.Equal(t, defaultListLimit, pending.Limit)
}
