package cart

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/threadloom/storefront-backend/internal/identity"
	"github.com/threadloom/storefront-backend/pkg/db/models"
)

// CartRepository defines the persistence surface required by the cart service.
type CartRepository interface {
	WithTx(tx *gorm.DB) CartRepository
	ListByOwner(ctx context.Context, owner identity.Identity) ([]models.CartLine, error)
	FindByIDAndOwner(ctx context.Context, id uuid.UUID, owner identity.Identity) (*models.CartLine, error)
	FindMatching(ctx context.Context, owner identity.Identity, productID uuid.UUID, size string) (*models.CartLine, error)
	Create(ctx context.Context, line *models.CartLine) error
	SetQuantity(ctx context.Context, id uuid.UUID, qty int) error
	Delete(ctx context.Context, id uuid.UUID, owner identity.Identity) (bool, error)
	ClearOwner(ctx context.Context, owner identity.Identity) error
}
