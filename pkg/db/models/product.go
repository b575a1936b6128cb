package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/threadloom/storefront-backend/pkg/types"
)

// Product is the catalog row the checkout pipeline reads prices and stock from.
type Product struct {
	ID             uuid.UUID           `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Name           string              `gorm:"column:name;not null"`
	Price          decimal.Decimal     `gorm:"column:price;type:numeric(12,2);not null"`
	SalePrice      decimal.NullDecimal `gorm:"column:sale_price;type:numeric(12,2)"`
	StockQuantity  int                 `gorm:"column:stock_quantity;not null"`
	AvailableSizes types.SizeSet       `gorm:"column:available_sizes;type:jsonb;not null"`
	Images         types.ImageList     `gorm:"column:images;type:jsonb;not null"`
	IsActive       bool                `gorm:"column:is_active;not null"`
	CreatedAt      time.Time           `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt      time.Time           `gorm:"column:updated_at;autoUpdateTime"`
}

func (p *Product) BeforeCreate(*gorm.DB) error {
	ensureID(&p.ID)
	return nil
}

// EffectivePrice is the sale price when it is set, positive and below list
// price; otherwise the list price.
func (p Product) EffectivePrice() decimal.Decimal {
	if p.SalePrice.Valid && p.SalePrice.Decimal.IsPositive() && p.SalePrice.Decimal.LessThan(p.Price) {
		return p.SalePrice.Decimal
	}
	return p.Price
}
