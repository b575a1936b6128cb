package payloads

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/threadloom/storefront-backend/pkg/enums"
)

// OrderSettledEvent is emitted when a verified payment becomes an order.
type OrderSettledEvent struct {
	OrderID           uuid.UUID          `json:"order_id" validate:"required"`
	OrderNumber       string             `json:"order_number" validate:"required"`
	CheckoutSessionID uuid.UUID          `json:"checkout_session_id"`
	OwnerKind         enums.IdentityKind `json:"owner_kind"`
	OwnerID           string             `json:"owner_id"`
	CustomerEmail     string             `json:"customer_email"`
	TotalAmount       decimal.Decimal    `json:"total_amount"`
	Currency          enums.Currency     `json:"currency"`
	GatewayOrderID    string             `json:"gateway_order_id"`
	GatewayPaymentID  string             `json:"gateway_payment_id"`
	ItemCount         int                `json:"item_count"`
}

// OrderStatusChangedEvent is emitted for every accepted status transition.
type OrderStatusChangedEvent struct {
	OrderID        uuid.UUID         `json:"order_id" validate:"required"`
	OrderNumber    string            `json:"order_number"`
	PreviousStatus enums.OrderStatus `json:"previous_status"`
	Status         enums.OrderStatus `json:"status" validate:"required"`
	TrackingNumber *string           `json:"tracking_number,omitempty"`
	Restocked      bool              `json:"restocked"`
	ChangedAt      time.Time         `json:"changed_at"`
}

// CheckoutSessionExpiredEvent is emitted when an unpaid session times out.
type CheckoutSessionExpiredEvent struct {
	CheckoutSessionID uuid.UUID                   `json:"checkout_session_id" validate:"required"`
	PreviousStatus    enums.CheckoutSessionStatus `json:"previous_status"`
	GatewayOrderID    *string                     `json:"gateway_order_id,omitempty"`
	ExpiredAt         time.Time                   `json:"expired_at"`
}

// ReconciliationRequestedEvent alerts operators that a captured payment has no order.
type ReconciliationRequestedEvent struct {
	ReconciliationID uuid.UUID       `json:"reconciliation_id"`
	GatewayOrderID   string          `json:"gateway_order_id" validate:"required"`
	GatewayPaymentID string          `json:"gateway_payment_id" validate:"required"`
	Amount           decimal.Decimal `json:"amount"`
	Reason           string          `json:"reason"`
}
