package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/threadloom/storefront-backend/pkg/enums"
)

// PaymentReconciliation queues a verified payment whose settlement failed for manual review.
type PaymentReconciliation struct {
	ID                uuid.UUID                  `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	GatewayOrderID    string                     `gorm:"column:gateway_order_id;not null"`
	GatewayPaymentID  string                     `gorm:"column:gateway_payment_id;not null"`
	CheckoutSessionID *uuid.UUID                 `gorm:"column:checkout_session_id;type:uuid"`
	Amount            decimal.Decimal            `gorm:"column:amount;type:numeric(12,2);not null"`
	Reason            string                     `gorm:"column:reason;not null"`
	ErrorCode         string                     `gorm:"column:error_code;not null"`
	Status            enums.ReconciliationStatus `gorm:"column:status;not null"`
	ResolutionNote    *string                    `gorm:"column:resolution_note"`
	ResolvedBy        *uuid.UUID                 `gorm:"column:resolved_by;type:uuid"`
	ResolvedAt        *time.Time                 `gorm:"column:resolved_at"`
	CreatedAt         time.Time                  `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt         time.Time                  `gorm:"column:updated_at;autoUpdateTime"`
}

func (r *PaymentReconciliation) BeforeCreate(*gorm.DB) error {
	ensureID(&r.ID)
	return nil
}
