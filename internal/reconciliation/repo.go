package reconciliation

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/threadloom/storefront-backend/pkg/db/models"
	"github.com/threadloom/storefront-backend/pkg/enums"
	pkgerrors "github.com/threadloom/storefront-backend/pkg/errors"
)

// Repository persists payment reconciliation entries.
type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	if tx == nil {
		return r
	}
	return &Repository{db: tx}
}

func (r *Repository) Create(ctx context.Context, entry *models.PaymentReconciliation) error {
	return r.db.WithContext(ctx).Create(entry).Error
}

func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.PaymentReconciliation, error) {
	var entry models.PaymentReconciliation
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&entry).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "reconciliation not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load reconciliation")
	}
	return &entry, nil
}

// List returns entries oldest first so the queue is worked in arrival order.
func (r *Repository) List(ctx context.Context, status *enums.ReconciliationStatus, limit, offset int) ([]models.PaymentReconciliation, int64, error) {
	q := r.db.WithContext(ctx).Model(&models.PaymentReconciliation{})
	if status != nil {
		q = q.Where("status = ?", *status)
	}
	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var rows []models.PaymentReconciliation
	if err := q.Order("created_at ASC").Order("id ASC").Limit(limit).Offset(offset).Find(&rows).Error; err != nil {
		return nil, 0, err
	}
	return rows, total, nil
}

// Resolve closes an open entry and reports whether it was still open.
func (r *Repository) Resolve(ctx context.Context, id, resolvedBy uuid.UUID, note string, at time.Time) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&models.PaymentReconciliation{}).
		Where("id = ? AND status = ?", id, enums.ReconciliationOpen).
		Updates(map[string]any{
			"status":          enums.ReconciliationResolved,
			"resolution_note": note,
			"resolved_by":     resolvedBy,
			"resolved_at":     at,
			"updated_at":      at,
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}
