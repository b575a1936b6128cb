package product

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	pkgerrors "github.com/threadloom/storefront-backend/pkg/errors"
)

// Reserve decrements stock inside tx. It returns false, without error, when
// the product cannot cover qty.
func (r *Repository) Reserve(ctx context.Context, tx *gorm.DB, productID uuid.UUID, qty int) (bool, error) {
	if qty <= 0 {
		return true, nil
	}
	if tx == nil {
		return false, pkgerrors.New(pkgerrors.CodeDependency, "transaction required for inventory reservation")
	}
	ok, err := r.WithTx(tx).DecrementStock(ctx, productID, qty)
	if err != nil {
		return false, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reserve inventory")
	}
	return ok, nil
}

// Release returns qty units to stock inside tx.
func (r *Repository) Release(ctx context.Context, tx *gorm.DB, productID uuid.UUID, qty int) error {
	if qty <= 0 {
		return nil
	}
	if tx == nil {
		return pkgerrors.New(pkgerrors.CodeDependency, "transaction required for inventory release")
	}
	if err := r.WithTx(tx).IncrementStock(ctx, productID, qty); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "release inventory")
	}
	return nil
}
