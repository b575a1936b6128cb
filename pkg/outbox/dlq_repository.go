package outbox

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/threadloom/storefront-backend/pkg/db/models"
	"github.com/threadloom/storefront-backend/pkg/enums"
	"github.com/threadloom/storefront-backend/pkg/pagination"
)

const (
	maxDLQErrorLen  = 1024
	defaultDLQLimit = 50
	maxDLQListLimit = 200
)

// DLQRepository stores events the publisher gave up on.
type DLQRepository struct {
	db *gorm.DB
}

// DLQFilter narrows the parked event list.
type DLQFilter struct {
	Reason    *enums.OutboxDLQErrorReason
	EventType *enums.OutboxEventType
	Page      pagination.Window
}

func NewDLQRepository(db *gorm.DB) *DLQRepository {
	return &DLQRepository{db: db}
}

// InsertTx parks an event inside the publisher's claim transaction so the
// outbox row and its dead letter commit together.
func (r *DLQRepository) InsertTx(tx *gorm.DB, entry models.OutboxDLQ) error {
	if tx == nil {
		return errors.New("transaction required")
	}
	if !entry.ErrorReason.IsValid() {
		return fmt.Errorf("invalid dlq reason %q", entry.ErrorReason)
	}
	if entry.ErrorMessage != nil {
		msg := truncateMessage(*entry.ErrorMessage, maxDLQErrorLen)
		entry.ErrorMessage = &msg
	}
	return tx.Create(&entry).Error
}

// FindByEventID returns gorm.ErrRecordNotFound when the event was never parked.
func (r *DLQRepository) FindByEventID(ctx context.Context, eventID uuid.UUID) (*models.OutboxDLQ, error) {
	var dlq models.OutboxDLQ
	if err := r.db.WithContext(ctx).Where("event_id = ?", eventID).First(&dlq).Error; err != nil {
		return nil, err
	}
	return &dlq, nil
}

// List returns parked events newest first along with the unpaged total.
func (r *DLQRepository) List(ctx context.Context, filter DLQFilter) ([]models.OutboxDLQ, int64, error) {
	page := filter.Page.Normalize(defaultDLQLimit, maxDLQListLimit)
	q := r.db.WithContext(ctx).Model(&models.OutboxDLQ{})
	if filter.Reason != nil {
		q = q.Where("error_reason = ?", *filter.Reason)
	}
	if filter.EventType != nil {
		q = q.Where("event_type = ?", *filter.EventType)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var rows []models.OutboxDLQ
	err := q.Order("failed_at DESC").
		Order("id DESC").
		Limit(page.Limit).
		Offset(page.Offset).
		Find(&rows).Error
	return rows, total, err
}
