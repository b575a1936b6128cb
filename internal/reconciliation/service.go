package reconciliation

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/threadloom/storefront-backend/pkg/db/models"
	"github.com/threadloom/storefront-backend/pkg/enums"
	pkgerrors "github.com/threadloom/storefront-backend/pkg/errors"
	"github.com/threadloom/storefront-backend/pkg/logger"
	"github.com/threadloom/storefront-backend/pkg/outbox"
	"github.com/threadloom/storefront-backend/pkg/outbox/payloads"
	"github.com/threadloom/storefront-backend/pkg/pagination"
)

const (
	defaultLimit = 50
	maxLimit     = 200
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxPublisher interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

// Request describes a verified payment that did not become an order.
type Request struct {
	GatewayOrderID    string
	GatewayPaymentID  string
	CheckoutSessionID *uuid.UUID
	Amount            decimal.Decimal
	Reason            string
	ErrorCode         string
}

// Filter narrows the admin queue.
type Filter struct {
	Status *enums.ReconciliationStatus
	Limit  int
	Offset int
}

// Service is the manual-review queue for captured payments without an order.
type Service interface {
	Open(ctx context.Context, req Request) (*models.PaymentReconciliation, error)
	List(ctx context.Context, filter Filter) (*EntryList, error)
	Resolve(ctx context.Context, id, resolvedBy uuid.UUID, note string) (*EntryDTO, error)
}

type service struct {
	repo   *Repository
	tx     txRunner
	outbox outboxPublisher
	logg   *logger.Logger
	now    func() time.Time
}

func NewService(repo *Repository, tx txRunner, outbox outboxPublisher, logg *logger.Logger) (Service, error) {
	if repo == nil || tx == nil || outbox == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "reconciliation dependencies required")
	}
	return &service{
		repo:   repo,
		tx:     tx,
		outbox: outbox,
		logg:   logg,
		now:    func() time.Time { return time.Now().UTC() },
	}, nil
}

// Open records the entry and queues a reconciliation_requested event in one transaction.
func (s *service) Open(ctx context.Context, req Request) (*models.PaymentReconciliation, error) {
	if strings.TrimSpace(req.GatewayOrderID) == "" {
		return nil, pkgerrors.ValidationField("gateway_order_id", "is required")
	}
	entry := &models.PaymentReconciliation{
		GatewayOrderID:    req.GatewayOrderID,
		GatewayPaymentID:  req.GatewayPaymentID,
		CheckoutSessionID: req.CheckoutSessionID,
		Amount:            req.Amount,
		Reason:            truncate(req.Reason, 1024),
		ErrorCode:         req.ErrorCode,
		Status:            enums.ReconciliationOpen,
	}
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		if err := s.repo.WithTx(tx).Create(ctx, entry); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create reconciliation")
		}
		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventReconciliationRequested,
			AggregateType: enums.AggregateReconciliation,
			AggregateID:   entry.ID,
			Data: payloads.ReconciliationRequestedEvent{
				ReconciliationID: entry.ID,
				GatewayOrderID:   entry.GatewayOrderID,
				GatewayPaymentID: entry.GatewayPaymentID,
				Amount:           entry.Amount,
				Reason:           entry.Reason,
			},
		})
	})
	if err != nil {
		return nil, err
	}
	if s.logg != nil {
		logCtx := s.logg.WithFields(ctx, map[string]any{
			"reconciliation_id": entry.ID.String(),
			"gateway_order_id":  entry.GatewayOrderID,
			"error_code":        entry.ErrorCode,
		})
		s.logg.Warn(logCtx, "payment queued for reconciliation")
	}
	return entry, nil
}

func (s *service) List(ctx context.Context, filter Filter) (*EntryList, error) {
	page := pagination.Window{Limit: filter.Limit, Offset: filter.Offset}.Normalize(defaultLimit, maxLimit)
	filter.Limit, filter.Offset = page.Limit, page.Offset
	if filter.Status != nil && !filter.Status.IsValid() {
		return nil, pkgerrors.ValidationField("status", "unknown reconciliation status")
	}
	rows, total, err := s.repo.List(ctx, filter.Status, filter.Limit, filter.Offset)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list reconciliations")
	}
	out := &EntryList{Entries: make([]EntryDTO, 0, len(rows)), Total: total}
	for i := range rows {
		out.Entries = append(out.Entries, *ToEntryDTO(&rows[i]))
	}
	return out, nil
}

// Resolve closes an open entry. A note describing the manual action is required.
func (s *service) Resolve(ctx context.Context, id, resolvedBy uuid.UUID, note string) (*EntryDTO, error) {
	note = strings.TrimSpace(note)
	if note == "" {
		return nil, pkgerrors.ValidationField("note", "is required")
	}
	entry, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if entry.Status == enums.ReconciliationResolved {
		return nil, pkgerrors.New(pkgerrors.CodeConflict, "reconciliation already resolved")
	}
	ok, err := s.repo.Resolve(ctx, id, resolvedBy, truncate(note, 2048), s.now())
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "resolve reconciliation")
	}
	if !ok {
		return nil, pkgerrors.New(pkgerrors.CodeConflict, "reconciliation already resolved")
	}
	fresh, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return ToEntryDTO(fresh), nil
}

func truncate(value string, limit int) string {
	if len(value) <= limit {
		return value
	}
	return value[:limit]
}
