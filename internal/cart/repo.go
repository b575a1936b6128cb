package cart

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/threadloom/storefront-backend/internal/identity"
	"github.com/threadloom/storefront-backend/pkg/db/models"
)

// Repository exposes persistence operations for cart lines.
type Repository struct {
	db *gorm.DB
}

// NewRepository constructs a cart repository bound to the provided DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// WithTx binds the repository to a transaction.
func (r *Repository) WithTx(tx *gorm.DB) CartRepository {
	if tx == nil {
		return r
	}
	return &Repository{db: tx}
}

func ownerScope(owner identity.Identity) func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		return db.Where("owner_kind = ? AND owner_id = ?", owner.Kind, owner.ID)
	}
}

// ListByOwner returns the owner's lines oldest first.
func (r *Repository) ListByOwner(ctx context.Context, owner identity.Identity) ([]models.CartLine, error) {
	var lines []models.CartLine
	err := r.db.WithContext(ctx).
		Scopes(ownerScope(owner)).
		Order("created_at ASC").
		Order("id ASC").
		Find(&lines).Error
	return lines, err
}

// FindByIDAndOwner returns a line restricted to the provided owner.
func (r *Repository) FindByIDAndOwner(ctx context.Context, id uuid.UUID, owner identity.Identity) (*models.CartLine, error) {
	var line models.CartLine
	err := r.db.WithContext(ctx).
		Scopes(ownerScope(owner)).
		Where("id = ?", id).
		First(&line).Error
	if err != nil {
		return nil, err
	}
	return &line, nil
}

// FindMatching returns the owner's line for the product and size, or nil.
func (r *Repository) FindMatching(ctx context.Context, owner identity.Identity, productID uuid.UUID, size string) (*models.CartLine, error) {
	var line models.CartLine
	err := r.db.WithContext(ctx).
		Scopes(ownerScope(owner)).
		Where("product_id = ? AND size = ?", productID, size).
		First(&line).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &line, nil
}

// Create inserts a new line.
func (r *Repository) Create(ctx context.Context, line *models.CartLine) error {
	return r.db.WithContext(ctx).Create(line).Error
}

// SetQuantity overwrites the quantity of a line.
func (r *Repository) SetQuantity(ctx context.Context, id uuid.UUID, qty int) error {
	return r.db.WithContext(ctx).
		Model(&models.CartLine{}).
		Where("id = ?", id).
		Update("quantity", qty).Error
}

// Delete removes one line owned by owner and reports whether it existed.
func (r *Repository) Delete(ctx context.Context, id uuid.UUID, owner identity.Identity) (bool, error) {
	res := r.db.WithContext(ctx).
		Scopes(ownerScope(owner)).
		Where("id = ?", id).
		Delete(&models.CartLine{})
	return res.RowsAffected > 0, res.Error
}

// ClearOwner removes every line of the owner.
func (r *Repository) ClearOwner(ctx context.Context, owner identity.Identity) error {
	return r.db.WithContext(ctx).
		Scopes(ownerScope(owner)).
		Delete(&models.CartLine{}).Error
}
