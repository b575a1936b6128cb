package orders

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/threadloom/storefront-backend/internal/identity"
	"github.com/threadloom/storefront-backend/pkg/db/models"
	"github.com/threadloom/storefront-backend/pkg/enums"
	pkgerrors "github.com/threadloom/storefront-backend/pkg/errors"
	"github.com/threadloom/storefront-backend/pkg/logger"
	"github.com/threadloom/storefront-backend/pkg/outbox"
	"github.com/threadloom/storefront-backend/pkg/outbox/payloads"
	"github.com/threadloom/storefront-backend/pkg/pagination"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxPublisher interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

// InventoryReleaser returns reserved units to stock inside a transaction.
type InventoryReleaser interface {
	Release(ctx context.Context, tx *gorm.DB, productID uuid.UUID, qty int) error
}

type orderStore interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.Order, error)
	FindByNumber(ctx context.Context, orderNumber string) (*models.Order, error)
	List(ctx context.Context, filter ListFilter) ([]models.Order, int64, error)
}

// Service owns order reads and the fulfillment state machine.
type Service interface {
	Transition(ctx context.Context, orderID uuid.UUID, target enums.OrderStatus) (*OrderDTO, error)
	UpdateFulfillment(ctx context.Context, orderID uuid.UUID, input UpdateInput) (*OrderDTO, error)
	GetByNumber(ctx context.Context, caller identity.Caller, orderNumber string) (*OrderDTO, error)
	Get(ctx context.Context, orderID uuid.UUID) (*OrderDTO, error)
	List(ctx context.Context, filter ListFilter) (*OrderList, error)
}

type service struct {
	repo      *Repository
	reads     orderStore
	tx        txRunner
	outbox    outboxPublisher
	inventory InventoryReleaser
	logg      *logger.Logger
}

func NewService(repo *Repository, tx txRunner, outbox outboxPublisher, inventory InventoryReleaser, logg *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "orders repository required")
	}
	if tx == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "transaction runner required")
	}
	if outbox == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "outbox publisher required")
	}
	if inventory == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "inventory releaser required")
	}
	return &service{
		repo:      repo,
		reads:     repo,
		tx:        tx,
		outbox:    outbox,
		inventory: inventory,
		logg:      logg,
	}, nil
}

// Transition moves an order to target. Anything outside the transition table,
// including the current status, is rejected. Cancelling from pending or
// processing returns stock.
func (s *service) Transition(ctx context.Context, orderID uuid.UUID, target enums.OrderStatus) (*OrderDTO, error) {
	return s.update(ctx, orderID, UpdateInput{Status: &target}, true)
}

// UpdateFulfillment applies a status change plus tracking and notes edits in
// one transaction. Tracking and notes are frozen once the order was already
// delivered or cancelled before this call. Resubmitting the current status of
// an open order leaves the status alone.
func (s *service) UpdateFulfillment(ctx context.Context, orderID uuid.UUID, input UpdateInput) (*OrderDTO, error) {
	return s.update(ctx, orderID, input, false)
}

func (s *service) update(ctx context.Context, orderID uuid.UUID, input UpdateInput, strict bool) (*OrderDTO, error) {
	if input.Status != nil && !input.Status.IsValid() {
		return nil, pkgerrors.ValidationField("status", "unknown order status")
	}

	var updated *models.Order
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		order, err := repo.FindByIDForUpdate(ctx, orderID)
		if err != nil {
			return err
		}
		before := order.Status

		fields := map[string]any{}
		if input.TrackingNumber != nil || input.Notes != nil {
			if isLocked(before) {
				return pkgerrors.New(pkgerrors.CodeStateConflict, "order is closed for edits").
					WithDetails(map[string]any{"status": before})
			}
			if input.TrackingNumber != nil {
				fields["tracking_number"] = nullable(*input.TrackingNumber)
			}
			if input.Notes != nil {
				fields["notes"] = nullable(*input.Notes)
			}
		}

		changed := false
		restocked := false
		unchanged := input.Status != nil && *input.Status == before && !strict && !before.IsTerminal()
		if input.Status != nil && !unchanged {
			target := *input.Status
			if !CanTransition(before, target) {
				return pkgerrors.InvalidTransition(string(before), string(target))
			}
			ok, err := repo.UpdateStatus(ctx, order.ID, before, target)
			if err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update order status")
			}
			if !ok {
				return pkgerrors.New(pkgerrors.CodeStateConflict, "order status changed concurrently")
			}
			if target == enums.OrderStatusCancelled && restocksOnCancel(before) {
				for _, item := range order.Items {
					if err := s.inventory.Release(ctx, tx, item.ProductID, item.Quantity); err != nil {
						return err
					}
				}
				restocked = true
			}
			changed = true
		}

		if err := repo.UpdateFulfillment(ctx, order.ID, fields); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update order fulfillment")
		}

		fresh, err := repo.FindByIDForUpdate(ctx, order.ID)
		if err != nil {
			return err
		}
		updated = fresh

		if !changed {
			return nil
		}
		event := outbox.DomainEvent{
			EventType:     enums.EventOrderStatusChanged,
			AggregateType: enums.AggregateOrder,
			AggregateID:   order.ID,
			Actor:         actorFromContext(ctx),
			Data: payloads.OrderStatusChangedEvent{
				OrderID:        order.ID,
				OrderNumber:    order.OrderNumber,
				PreviousStatus: before,
				Status:         fresh.Status,
				TrackingNumber: fresh.TrackingNumber,
				Restocked:      restocked,
				ChangedAt:      time.Now().UTC(),
			},
		}
		return s.outbox.Emit(ctx, tx, event)
	})
	if err != nil {
		return nil, err
	}

	if input.Status != nil && s.logg != nil {
		logCtx := s.logg.WithFields(ctx, map[string]any{
			"order_id":     updated.ID.String(),
			"order_number": updated.OrderNumber,
			"status":       string(updated.Status),
		})
		s.logg.Info(logCtx, "order status updated")
	}
	return ToOrderDTO(updated), nil
}

// GetByNumber returns the order to its owner or an admin. Everyone else sees
// not found so order numbers cannot be enumerated.
func (s *service) GetByNumber(ctx context.Context, caller identity.Caller, orderNumber string) (*OrderDTO, error) {
	order, err := s.reads.FindByNumber(ctx, orderNumber)
	if err != nil {
		return nil, err
	}
	if !caller.IsAdmin && !OwnedBy(order, caller) {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
	}
	return ToOrderDTO(order), nil
}

func (s *service) Get(ctx context.Context, orderID uuid.UUID) (*OrderDTO, error) {
	order, err := s.reads.FindByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	return ToOrderDTO(order), nil
}

func (s *service) List(ctx context.Context, filter ListFilter) (*OrderList, error) {
	filter = filter.normalized()
	if filter.Status != nil && !filter.Status.IsValid() {
		return nil, pkgerrors.ValidationField("status", "unknown order status")
	}
	rows, total, err := s.reads.List(ctx, filter)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list orders")
	}
	list := &OrderList{
		Orders: make([]SummaryDTO, 0, len(rows)),
		Total:  total,
		Limit:  filter.Limit,
		Offset: filter.Offset,
		More:   pagination.Window{Limit: filter.Limit, Offset: filter.Offset}.HasMore(total),
	}
	for _, row := range rows {
		list.Orders = append(list.Orders, toSummaryDTO(row))
	}
	return list, nil
}

// OwnedBy reports whether caller placed the order directly or through a linked account.
func OwnedBy(order *models.Order, caller identity.Caller) bool {
	if order.OwnerKind == caller.Identity.Kind && order.OwnerID == caller.Identity.ID {
		return true
	}
	if order.UserID == nil {
		return false
	}
	userID, ok := caller.Identity.UserID()
	return ok && userID == *order.UserID
}

func actorFromContext(ctx context.Context) *outbox.ActorRef {
	caller, ok := identity.FromContext(ctx)
	if !ok || caller.Identity.IsZero() {
		return nil
	}
	role := enums.RoleCustomer
	if caller.IsAdmin {
		role = enums.RoleAdmin
	}
	return outbox.NewActor(caller.Identity.Kind, caller.Identity.ID, role)
}

func nullable(value string) *string {
	if value == "" {
		return nil
	}
	return &value
}
