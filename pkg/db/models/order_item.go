package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// OrderItem copies the product name and price at settlement time and is never updated.
type OrderItem struct {
	ID                  uuid.UUID       `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OrderID             uuid.UUID       `gorm:"column:order_id;type:uuid;not null"`
	ProductID           uuid.UUID       `gorm:"column:product_id;type:uuid;not null"`
	ProductNameSnapshot string          `gorm:"column:product_name_snapshot;not null"`
	UnitPriceSnapshot   decimal.Decimal `gorm:"column:unit_price_snapshot;type:numeric(12,2);not null"`
	Quantity            int             `gorm:"column:quantity;not null"`
	Size                string          `gorm:"column:size;not null"`
	CreatedAt           time.Time       `gorm:"column:created_at;autoCreateTime"`
}

func (i *OrderItem) BeforeCreate(*gorm.DB) error {
	ensureID(&i.ID)
	return nil
}

// LineTotal returns the snapshot price times quantity.
func (i OrderItem) LineTotal() decimal.Decimal {
	return i.UnitPriceSnapshot.Mul(decimal.NewFromInt(int64(i.Quantity)))
}
