package checkout

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

// Repository persists checkout sessions.
type Repository struct {
	db *gorm.DB
}

// NewRepository binds a session repository to db.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// WithTx returns a repository bound to tx.
func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	if tx == nil {
		return r
	}
	return &Repository{db: tx}
}

func (r *Repository) Create(ctx context.Context, session *models.CheckoutSession) error {
	return r.db.WithContext(ctx).Create(session).Error
}

// FindByID returns NOT_FOUND when the session does not exist.
func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.CheckoutSession, error) {
	var session models.CheckoutSession
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&session).Error; err != nil {
		return nil, notFound(err)
	}
	return &session, nil
}

// FindByGatewayOrderID returns NOT_FOUND when no session owns the gateway order.
func (r *Repository) FindByGatewayOrderID(ctx context.Context, gatewayOrderID string) (*models.CheckoutSession, error) {
	var session models.CheckoutSession
	if err := r.db.WithContext(ctx).Where("gateway_order_id = ?", gatewayOrderID).First(&session).Error; err != nil {
		return nil, notFound(err)
	}
	return &session, nil
}

// UpdateShipping stores the phase-two address.
func (r *Repository) UpdateShipping(ctx context.Context, id uuid.UUID, address, city, state, pincode, country string) error {
	return r.db.WithContext(ctx).
		Model(&models.CheckoutSession{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"shipping_address": address,
			"shipping_city":    city,
			"shipping_state":   state,
			"shipping_pincode": pincode,
			"shipping_country": country,
			"updated_at":       time.Now().UTC(),
		}).Error
}

// AttachIntent records the gateway order on a session that has none yet and
// reports whether this call won.
func (r *Repository) AttachIntent(ctx context.Context, id uuid.UUID, gatewayOrderID string) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&models.CheckoutSession{}).
		Where("id = ? AND gateway_order_id IS NULL", id).
		Updates(map[string]any{
			"gateway_order_id": gatewayOrderID,
			"status":           enums.CheckoutSessionPaymentPending,
			"updated_at":       time.Now().UTC(),
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

// MarkSettled flips the session to settled.
func (r *Repository) MarkSettled(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).
		Model(&models.CheckoutSession{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"status":     enums.CheckoutSessionSettled,
			"updated_at": time.Now().UTC(),
		}).Error
}

// ListExpirable returns open sessions past their expiry and payment-pending
// sessions past expiry plus pendingGrace, oldest first.
func (r *Repository) ListExpirable(ctx context.Context, now time.Time, pendingGrace time.Duration, limit int) ([]models.CheckoutSession, error) {
	var sessions []models.CheckoutSession
	err := r.db.WithContext(ctx).
		Where("(status = ? AND expires_at < ?) OR (status = ? AND expires_at < ?)",
			enums.CheckoutSessionOpen, now,
			enums.CheckoutSessionPaymentPending, now.Add(-pendingGrace)).
		Order("expires_at ASC").
		Limit(limit).
		Find(&sessions).Error
	return sessions, err
}

// MarkExpired expires a session that has not settled and reports whether a row changed.
func (r *Repository) MarkExpired(ctx context.Context, id uuid.UUID) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&models.CheckoutSession{}).
		Where("id = ? AND status IN ?", id, []enums.CheckoutSessionStatus{enums.CheckoutSessionOpen, enums.CheckoutSessionPaymentPending}).
		Updates(map[string]any{
			"status":     enums.CheckoutSessionExpired,
			"updated_at": time.Now().UTC(),
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func notFound(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return pkgerrors.New(pkgerrors.CodeNotFound, "checkout session not found")
	}
	return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load checkout session")
}
