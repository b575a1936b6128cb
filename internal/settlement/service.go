package settlement

import (
	"bytes"
	"context"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sethvargo/go-retry"
	"golang.org/x/sync/singleflight"
	"gorm.io/gorm"

	"github.com/threadloom/storefront-backend/internal/cart"
	"github.com/threadloom/storefront-backend/internal/checkout"
	"github.com/threadloom/storefront-backend/internal/identity"
	"github.com/threadloom/storefront-backend/internal/orders"
	"github.com/threadloom/storefront-backend/internal/payments"
	"github.com/threadloom/storefront-backend/internal/reconciliation"
	dbpkg "github.com/threadloom/storefront-backend/pkg/db"
	"github.com/threadloom/storefront-backend/pkg/db/models"
	"github.com/threadloom/storefront-backend/pkg/enums"
	pkgerrors "github.com/threadloom/storefront-backend/pkg/errors"
	"github.com/threadloom/storefront-backend/pkg/logger"
	"github.com/threadloom/storefront-backend/pkg/metrics"
	"github.com/threadloom/storefront-backend/pkg/outbox"
	"github.com/threadloom/storefront-backend/pkg/outbox/payloads"
	"github.com/threadloom/storefront-backend/pkg/types"
)

const (
	// maxCommitAttempts covers order number collisions and lock conflicts.
	maxCommitAttempts = 3
	commitRetryBase   = 25 * time.Millisecond
	supportHint       = "your payment was received; contact support with this reference"
)

// Unique constraint names on postgres and the column reference sqlite reports.
var (
	gatewayOrderConstraints = []string{"orders_gateway_order_id_key", "orders.gateway_order_id"}
	orderNumberConstraints  = []string{"orders_order_number_key", "orders.order_number"}
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxPublisher interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

type stockReserver interface {
	Reserve(ctx context.Context, tx *gorm.DB, productID uuid.UUID, qty int) (bool, error)
}

type reconciliationQueue interface {
	Open(ctx context.Context, req reconciliation.Request) (*models.PaymentReconciliation, error)
}

type maintenanceGate interface {
	Guard(ctx context.Context, caller identity.Caller) error
}

// SettleInput is the gateway callback triple returned to the browser.
type SettleInput struct {
	GatewayOrderID   string
	GatewayPaymentID string
	Signature        string
}

func (in SettleInput) normalized() SettleInput {
	return SettleInput{
		GatewayOrderID:   strings.TrimSpace(in.GatewayOrderID),
		GatewayPaymentID: strings.TrimSpace(in.GatewayPaymentID),
		Signature:        strings.TrimSpace(in.Signature),
	}
}

func (in SettleInput) validate() error {
	fields := pkgerrors.FieldErrors{}
	if in.GatewayOrderID == "" {
		fields["razorpay_order_id"] = "is required"
	}
	if in.GatewayPaymentID == "" {
		fields["razorpay_payment_id"] = "is required"
	}
	if in.Signature == "" {
		fields["razorpay_signature"] = "is required"
	}
	if len(fields) > 0 {
		return pkgerrors.Validation(fields)
	}
	return nil
}

// Result carries the order and whether it already existed.
type Result struct {
	Order    *orders.OrderDTO
	Replayed bool
}

// Service turns a verified payment into exactly one order.
type Service interface {
	Settle(ctx context.Context, caller identity.Caller, input SettleInput) (*Result, error)
}

type ServiceParams struct {
	DB             txRunner
	Orders         *orders.Repository
	Sessions       *checkout.Repository
	Carts          cart.CartRepository
	Inventory      stockReserver
	Outbox         outboxPublisher
	Reconciliation reconciliationQueue
	Gateway        payments.Gateway
	Maintenance    maintenanceGate
	Numbers        NumberGenerator
	Metrics        *metrics.CheckoutMetrics
	Logger         *logger.Logger
}

type service struct {
	db             txRunner
	orders         *orders.Repository
	sessions       *checkout.Repository
	carts          cart.CartRepository
	inventory      stockReserver
	outbox         outboxPublisher
	reconciliation reconciliationQueue
	gateway        payments.Gateway
	maintenance    maintenanceGate
	numbers        NumberGenerator
	metrics        *metrics.CheckoutMetrics
	logg           *logger.Logger
	group          singleflight.Group
	now            func() time.Time
}

func NewService(params ServiceParams) (Service, error) {
	switch {
	case params.DB == nil:
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "transaction runner required")
	case params.Orders == nil:
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "orders repository required")
	case params.Sessions == nil:
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "checkout repository required")
	case params.Carts == nil:
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "cart repository required")
	case params.Inventory == nil:
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "inventory required")
	case params.Outbox == nil:
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "outbox publisher required")
	case params.Reconciliation == nil:
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "reconciliation queue required")
	case params.Gateway == nil:
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "payment gateway required")
	case params.Maintenance == nil:
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "maintenance gate required")
	}
	numbers := params.Numbers
	if numbers == nil {
		numbers = NewCounterNumbers(nil, params.Logger)
	}
	return &service{
		db:             params.DB,
		orders:         params.Orders,
		sessions:       params.Sessions,
		carts:          params.Carts,
		inventory:      params.Inventory,
		outbox:         params.Outbox,
		reconciliation: params.Reconciliation,
		gateway:        params.Gateway,
		maintenance:    params.Maintenance,
		numbers:        numbers,
		metrics:        params.Metrics,
		logg:           params.Logger,
		now:            func() time.Time { return time.Now().UTC() },
	}, nil
}

// Settle is safe to call repeatedly with the same gateway order: the first
// call creates the order, later calls return it with Replayed set.
func (s *service) Settle(ctx context.Context, caller identity.Caller, input SettleInput) (*Result, error) {
	if err := s.maintenance.Guard(ctx, caller); err != nil {
		return nil, err
	}
	if err := caller.Identity.Validate(); err != nil {
		return nil, err
	}
	input = input.normalized()
	if err := input.validate(); err != nil {
		return nil, err
	}

	if s.logg != nil {
		ctx = s.logg.WithGatewayOrderID(ctx, input.GatewayOrderID)
	}
	key := input.GatewayOrderID + "|" + caller.Identity.String()
	v, err, _ := s.group.Do(key, func() (any, error) {
		return s.settle(ctx, caller, input)
	})
	if err != nil {
		return nil, err
	}
	return v.(*Result), nil
}

func (s *service) settle(ctx context.Context, caller identity.Caller, input SettleInput) (*Result, error) {
	start := time.Now()

	if existing, err := s.replay(ctx, caller, input.GatewayOrderID); err != nil || existing != nil {
		if existing != nil {
			s.metrics.ObserveSettlement(metrics.OutcomeReplayed, time.Since(start))
		}
		return existing, err
	}

	session, err := s.sessions.FindByGatewayOrderID(ctx, input.GatewayOrderID)
	if err != nil {
		if pkgerrors.IsCode(err, pkgerrors.CodeNotFound) {
			s.metrics.ObserveSettlement(metrics.OutcomeVerificationError, time.Since(start))
			return nil, pkgerrors.PaymentVerification(input.GatewayOrderID)
		}
		return nil, err
	}
	if !checkout.OwnedBy(session, caller) {
		s.metrics.ObserveSettlement(metrics.OutcomeVerificationError, time.Since(start))
		return nil, pkgerrors.PaymentVerification(input.GatewayOrderID)
	}
	if !s.gateway.Verify(input.GatewayOrderID, input.GatewayPaymentID, input.Signature) {
		s.metrics.ObserveSettlement(metrics.OutcomeVerificationError, time.Since(start))
		if s.logg != nil {
			s.logg.Warn(ctx, "payment signature mismatch")
		}
		return nil, pkgerrors.PaymentVerification(input.GatewayOrderID)
	}

	var order *models.Order
	backoff := retry.WithMaxRetries(maxCommitAttempts-1, retry.NewExponential(commitRetryBase))
	commitErr := retry.Do(ctx, backoff, func(ctx context.Context) error {
		var err error
		order, err = s.commit(ctx, session, input)
		if dbpkg.IsTransient(err) || isUniqueOn(err, orderNumberConstraints) {
			return retry.RetryableError(err)
		}
		return err
	})
	switch {
	case commitErr == nil:
		s.metrics.ObserveSettlement(metrics.OutcomeSettled, time.Since(start))
		if s.logg != nil {
			logCtx := s.logg.WithFields(ctx, map[string]any{
				"order_id":     order.ID.String(),
				"order_number": order.OrderNumber,
				"total":        order.TotalAmount.StringFixed(2),
			})
			s.logg.Info(logCtx, "order settled")
		}
		return &Result{Order: orders.ToOrderDTO(order)}, nil
	case pkgerrors.IsCode(commitErr, pkgerrors.CodeDuplicateSettlement):
		existing, err := s.orders.FindByGatewayOrderID(ctx, input.GatewayOrderID)
		if err != nil {
			return nil, err
		}
		s.metrics.ObserveSettlement(metrics.OutcomeReplayed, time.Since(start))
		return &Result{Order: orders.ToOrderDTO(existing), Replayed: true}, nil
	case dbpkg.IsTransient(commitErr):
		commitErr = pkgerrors.Wrap(pkgerrors.CodeDependency, commitErr, "settlement contended")
	}

	return nil, s.fail(ctx, session, input, commitErr, start)
}

// replay returns the order already created for gatewayOrderID, if any.
func (s *service) replay(ctx context.Context, caller identity.Caller, gatewayOrderID string) (*Result, error) {
	existing, err := s.orders.FindByGatewayOrderID(ctx, gatewayOrderID)
	if err != nil {
		if pkgerrors.IsCode(err, pkgerrors.CodeNotFound) {
			return nil, nil
		}
		return nil, err
	}
	if !caller.IsAdmin && !orders.OwnedBy(existing, caller) {
		return nil, pkgerrors.PaymentVerification(gatewayOrderID)
	}
	return &Result{Order: orders.ToOrderDTO(existing), Replayed: true}, nil
}

// commit reserves stock, writes the order, clears the cart, closes the
// session and queues order_settled, all in one transaction.
func (s *service) commit(ctx context.Context, session *models.CheckoutSession, input SettleInput) (*models.Order, error) {
	number := s.numbers.Next(ctx, s.now())
	order := buildOrder(session, input, number)

	err := s.db.WithTx(ctx, func(tx *gorm.DB) error {
		for _, line := range reservationOrder(session.Snapshot) {
			ok, err := s.inventory.Reserve(ctx, tx, line.ProductID, line.Quantity)
			if err != nil {
				return err
			}
			if !ok {
				return pkgerrors.InsufficientStock(line.ProductID.String(), line.Name)
			}
		}

		orderRepo := s.orders.WithTx(tx)
		if err := orderRepo.Create(ctx, order); err != nil {
			if isUniqueOn(err, gatewayOrderConstraints) {
				return pkgerrors.DuplicateSettlement(input.GatewayOrderID, err)
			}
			return err
		}
		items := make([]models.OrderItem, 0, len(session.Snapshot))
		for _, line := range session.Snapshot {
			items = append(items, models.OrderItem{
				OrderID:             order.ID,
				ProductID:           line.ProductID,
				ProductNameSnapshot: line.Name,
				UnitPriceSnapshot:   line.UnitPrice,
				Quantity:            line.Quantity,
				Size:                line.Size,
			})
		}
		if err := orderRepo.CreateItems(ctx, items); err != nil {
			return err
		}
		order.Items = items

		owner := identity.Identity{Kind: session.OwnerKind, ID: session.OwnerID}
		if err := s.carts.WithTx(tx).ClearOwner(ctx, owner); err != nil {
			return err
		}
		if err := s.sessions.WithTx(tx).MarkSettled(ctx, session.ID); err != nil {
			return err
		}

		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventOrderSettled,
			AggregateType: enums.AggregateOrder,
			AggregateID:   order.ID,
			Actor:         outbox.NewActor(session.OwnerKind, session.OwnerID, ""),
			Data: payloads.OrderSettledEvent{
				OrderID:           order.ID,
				OrderNumber:       order.OrderNumber,
				CheckoutSessionID: session.ID,
				OwnerKind:         session.OwnerKind,
				OwnerID:           session.OwnerID,
				CustomerEmail:     order.CustomerEmail,
				TotalAmount:       order.TotalAmount,
				Currency:          order.Currency,
				GatewayOrderID:    order.GatewayOrderID,
				GatewayPaymentID:  order.GatewayPaymentID,
				ItemCount:         len(items),
			},
		})
	})
	if err != nil {
		return nil, err
	}
	return order, nil
}

// reservationOrder sorts lines by product id so concurrent settlements take
// row locks in the same order.
func reservationOrder(lines types.PriceSnapshot) types.PriceSnapshot {
	sorted := slices.Clone(lines)
	slices.SortStableFunc(sorted, func(a, b types.SnapshotLine) int {
		return bytes.Compare(a.ProductID[:], b.ProductID[:])
	})
	return sorted
}

// fail queues the captured payment for manual review and returns an error
// that points the customer at support.
func (s *service) fail(ctx context.Context, session *models.CheckoutSession, input SettleInput, cause error, start time.Time) error {
	outcome := metrics.OutcomeFailed
	code := pkgerrors.CodeSettlementFailed
	if pkgerrors.IsCode(cause, pkgerrors.CodeInsufficientStock) {
		outcome = metrics.OutcomeInsufficientStock
		code = pkgerrors.CodeInsufficientStock
	}
	s.metrics.ObserveSettlement(outcome, time.Since(start))

	reason := "settlement failed"
	if cause != nil {
		reason = cause.Error()
	}
	sessionID := session.ID
	reference := input.GatewayPaymentID
	entry, err := s.reconciliation.Open(ctx, reconciliation.Request{
		GatewayOrderID:    input.GatewayOrderID,
		GatewayPaymentID:  input.GatewayPaymentID,
		CheckoutSessionID: &sessionID,
		Amount:            session.TotalAmount,
		Reason:            reason,
		ErrorCode:         string(code),
	})
	if err != nil {
		if s.logg != nil {
			s.logg.Error(ctx, "failed to queue payment reconciliation", err)
		}
	} else {
		reference = entry.ID.String()
	}
	if s.logg != nil {
		s.logg.Error(s.logg.WithField(ctx, "reference", reference), "settlement failed after verification", cause)
	}

	if typed := pkgerrors.As(cause); typed != nil && typed.Code() == pkgerrors.CodeInsufficientStock {
		details := map[string]any{
			"reference": reference,
			"support":   supportHint,
		}
		if existing, ok := typed.Details().(map[string]any); ok {
			for k, v := range existing {
				details[k] = v
			}
		}
		return pkgerrors.New(pkgerrors.CodeInsufficientStock, typed.Message()).WithDetails(details)
	}
	return pkgerrors.SettlementFailed(cause, reference)
}

func buildOrder(session *models.CheckoutSession, input SettleInput, number string) *models.Order {
	return &models.Order{
		OrderNumber:       number,
		Status:            enums.OrderStatusPending,
		TotalAmount:       session.Snapshot.Total(),
		Currency:          session.Currency,
		CustomerName:      session.ContactName,
		CustomerEmail:     session.ContactEmail,
		CustomerPhone:     session.ContactPhone,
		ShippingAddress:   deref(session.ShippingAddress),
		ShippingCity:      deref(session.ShippingCity),
		ShippingState:     deref(session.ShippingState),
		ShippingPincode:   deref(session.ShippingPincode),
		ShippingCountry:   deref(session.ShippingCountry),
		GatewayOrderID:    input.GatewayOrderID,
		GatewayPaymentID:  input.GatewayPaymentID,
		GatewaySignature:  input.Signature,
		UserID:            session.UserID,
		OwnerKind:         session.OwnerKind,
		OwnerID:           session.OwnerID,
		CheckoutSessionID: session.ID,
	}
}

func isUniqueOn(err error, names []string) bool {
	for _, name := range names {
		if dbpkg.IsUniqueViolation(err, name) {
			return true
		}
	}
	return false
}

func deref(value *string) string {
	if value == nil {
		return ""
	}
	return *value
}
