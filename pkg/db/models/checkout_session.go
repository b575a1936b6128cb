package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/threadloom/storefront-backend/pkg/enums"
	"github.com/threadloom/storefront-backend/pkg/types"
)

// CheckoutSession holds contact and shipping details plus the frozen price
// snapshot between checkout start and settlement.
type CheckoutSession struct {
	ID              uuid.UUID                   `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OwnerKind       enums.IdentityKind          `gorm:"column:owner_kind;not null"`
	OwnerID         string                      `gorm:"column:owner_id;not null"`
	UserID          *uuid.UUID                  `gorm:"column:user_id;type:uuid"`
	ContactName     string                      `gorm:"column:contact_name;not null"`
	ContactEmail    string                      `gorm:"column:contact_email;not null"`
	ContactPhone    string                      `gorm:"column:contact_phone;not null"`
	ShippingAddress *string                     `gorm:"column:shipping_address"`
	ShippingCity    *string                     `gorm:"column:shipping_city"`
	ShippingState   *string                     `gorm:"column:shipping_state"`
	ShippingPincode *string                     `gorm:"column:shipping_pincode"`
	ShippingCountry *string                     `gorm:"column:shipping_country"`
	Snapshot        types.PriceSnapshot         `gorm:"column:snapshot;type:jsonb;not null"`
	TotalAmount     decimal.Decimal             `gorm:"column:total_amount;type:numeric(12,2);not null"`
	Currency        enums.Currency              `gorm:"column:currency;not null"`
	GatewayOrderID  *string                     `gorm:"column:gateway_order_id;uniqueIndex"`
	Status          enums.CheckoutSessionStatus `gorm:"column:status;not null"`
	ExpiresAt       time.Time                   `gorm:"column:expires_at;not null"`
	CreatedAt       time.Time                   `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt       time.Time                   `gorm:"column:updated_at;autoUpdateTime"`
}

func (s *CheckoutSession) BeforeCreate(*gorm.DB) error {
	ensureID(&s.ID)
	return nil
}

// HasShipping reports whether phase two has been completed.
func (s CheckoutSession) HasShipping() bool {
	return s.ShippingAddress != nil && s.ShippingPincode != nil
}
