package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/threadloom/storefront-backend/pkg/enums"
)

// Order is the immutable record of a settled payment. Only Status,
// TrackingNumber and Notes change after creation.
type Order struct {
	ID                uuid.UUID          `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OrderNumber       string             `gorm:"column:order_number;not null;uniqueIndex"`
	Status            enums.OrderStatus  `gorm:"column:status;not null"`
	TotalAmount       decimal.Decimal    `gorm:"column:total_amount;type:numeric(12,2);not null"`
	Currency          enums.Currency     `gorm:"column:currency;not null"`
	CustomerName      string             `gorm:"column:customer_name;not null"`
	CustomerEmail     string             `gorm:"column:customer_email;not null"`
	CustomerPhone     string             `gorm:"column:customer_phone;not null"`
	ShippingAddress   string             `gorm:"column:shipping_address;not null"`
	ShippingCity      string             `gorm:"column:shipping_city;not null"`
	ShippingState     string             `gorm:"column:shipping_state;not null"`
	ShippingPincode   string             `gorm:"column:shipping_pincode;not null"`
	ShippingCountry   string             `gorm:"column:shipping_country;not null"`
	GatewayOrderID    string             `gorm:"column:gateway_order_id;not null;uniqueIndex"`
	GatewayPaymentID  string             `gorm:"column:gateway_payment_id;not null"`
	GatewaySignature  string             `gorm:"column:gateway_signature;not null"`
	TrackingNumber    *string            `gorm:"column:tracking_number"`
	Notes             *string            `gorm:"column:notes"`
	UserID            *uuid.UUID         `gorm:"column:user_id;type:uuid"`
	OwnerKind         enums.IdentityKind `gorm:"column:owner_kind;not null"`
	OwnerID           string             `gorm:"column:owner_id;not null"`
	CheckoutSessionID uuid.UUID          `gorm:"column:checkout_session_id;type:uuid;not null"`
	Items             []OrderItem        `gorm:"foreignKey:OrderID"`
	CreatedAt         time.Time          `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt         time.Time          `gorm:"column:updated_at;autoUpdateTime"`
}

func (o *Order) BeforeCreate(*gorm.DB) error {
	ensureID(&o.ID)
	return nil
}
