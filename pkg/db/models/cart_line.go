package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/threadloom/storefront-backend/pkg/enums"
)

// CartLine is one mutable cart entry owned by a guest session or a user.
// Size is empty for unsized products.
type CartLine struct {
	ID        uuid.UUID          `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OwnerKind enums.IdentityKind `gorm:"column:owner_kind;not null"`
	OwnerID   string             `gorm:"column:owner_id;not null"`
	ProductID uuid.UUID          `gorm:"column:product_id;type:uuid;not null"`
	Quantity  int                `gorm:"column:quantity;not null"`
	Size      string             `gorm:"column:size;not null"`
	CreatedAt time.Time          `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time          `gorm:"column:updated_at;autoUpdateTime"`
}

func (l *CartLine) BeforeCreate(*gorm.DB) error {
	ensureID(&l.ID)
	return nil
}
