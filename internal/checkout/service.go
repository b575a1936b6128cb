package checkout

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/threadloom/storefront-backend/internal/auth"
	"github.com/threadloom/storefront-backend/internal/identity"
	"github.com/threadloom/storefront-backend/internal/payments"
	rules "github.com/threadloom/storefront-backend/pkg/checkout"
	"github.com/threadloom/storefront-backend/pkg/db/models"
	"github.com/threadloom/storefront-backend/pkg/enums"
	pkgerrors "github.com/threadloom/storefront-backend/pkg/errors"
	"github.com/threadloom/storefront-backend/pkg/logger"
	"github.com/threadloom/storefront-backend/pkg/types"
)

const defaultSessionTTL = 2 * time.Hour

type sessionStore interface {
	Create(ctx context.Context, session *models.CheckoutSession) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.CheckoutSession, error)
	UpdateShipping(ctx context.Context, id uuid.UUID, address, city, state, pincode, country string) error
	AttachIntent(ctx context.Context, id uuid.UUID, gatewayOrderID string) (bool, error)
}

type cartReader interface {
	ListLines(ctx context.Context, owner identity.Identity) ([]models.CartLine, error)
}

type productLoader interface {
	FindByIDs(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]models.Product, error)
}

type accountCreator interface {
	CreateAccount(ctx context.Context, input auth.AccountInput) (*models.User, error)
}

type maintenanceGate interface {
	Guard(ctx context.Context, caller identity.Caller) error
}

// Service walks a caller from cart to payment intent.
type Service interface {
	BeginCheckout(ctx context.Context, caller identity.Caller, input rules.ContactInput) (*SessionDTO, error)
	SubmitShippingDetails(ctx context.Context, caller identity.Caller, sessionID uuid.UUID, input rules.ShippingInput) (*SessionDTO, error)
	CreatePaymentIntent(ctx context.Context, caller identity.Caller, sessionID uuid.UUID, quoted *decimal.Decimal) (*IntentDTO, error)
	GetSession(ctx context.Context, caller identity.Caller, sessionID uuid.UUID) (*SessionDTO, error)
}

// ServiceParams bundles the checkout collaborators.
type ServiceParams struct {
	Sessions    sessionStore
	Carts       cartReader
	Products    productLoader
	Accounts    accountCreator
	Gateway     payments.Gateway
	Maintenance maintenanceGate
	SessionTTL  time.Duration
	Currency    enums.Currency
	Logger      *logger.Logger
}

type service struct {
	sessions    sessionStore
	carts       cartReader
	products    productLoader
	accounts    accountCreator
	gateway     payments.Gateway
	maintenance maintenanceGate
	ttl         time.Duration
	currency    enums.Currency
	logg        *logger.Logger
	now         func() time.Time
}

// NewService builds the checkout orchestrator.
func NewService(params ServiceParams) (Service, error) {
	if params.Sessions == nil {
		return nil, fmt.Errorf("session store required")
	}
	if params.Carts == nil {
		return nil, fmt.Errorf("cart reader required")
	}
	if params.Products == nil {
		return nil, fmt.Errorf("product loader required")
	}
	if params.Accounts == nil {
		return nil, fmt.Errorf("account creator required")
	}
	if params.Gateway == nil {
		return nil, fmt.Errorf("payment gateway required")
	}
	if params.Maintenance == nil {
		return nil, fmt.Errorf("maintenance gate required")
	}
	ttl := params.SessionTTL
	if ttl <= 0 {
		ttl = defaultSessionTTL
	}
	currency := params.Currency
	if !currency.IsValid() {
		currency = enums.CurrencyINR
	}
	return &service{
		sessions:    params.Sessions,
		carts:       params.Carts,
		products:    params.Products,
		accounts:    params.Accounts,
		gateway:     params.Gateway,
		maintenance: params.Maintenance,
		ttl:         ttl,
		currency:    currency,
		logg:        params.Logger,
		now:         time.Now,
	}, nil
}

// BeginCheckout validates the contact block, freezes the cart into a price
// snapshot and opens a session. A guest supplying a password also gets an account.
func (s *service) BeginCheckout(ctx context.Context, caller identity.Caller, input rules.ContactInput) (*SessionDTO, error) {
	if err := s.maintenance.Guard(ctx, caller); err != nil {
		return nil, err
	}
	if err := caller.Identity.Validate(); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "checkout identity required")
	}
	contact := input.Normalize()
	if err := rules.ValidateContact(contact); err != nil {
		return nil, err
	}

	snapshot, err := s.buildSnapshot(ctx, caller.Identity)
	if err != nil {
		return nil, err
	}

	var userID *uuid.UUID
	if id, ok := caller.Identity.UserID(); ok {
		userID = &id
	}
	accountCreated := false
	if caller.Identity.IsGuest() && contact.Password != "" {
		phone := contact.Phone
		user, err := s.accounts.CreateAccount(ctx, auth.AccountInput{
			Email:    contact.Email,
			Name:     contact.Name,
			Phone:    &phone,
			Password: contact.Password,
		})
		if err != nil {
			return nil, err
		}
		userID = &user.ID
		accountCreated = true
	}

	now := s.now().UTC()
	session := &models.CheckoutSession{
		OwnerKind:    caller.Identity.Kind,
		OwnerID:      caller.Identity.ID,
		UserID:       userID,
		ContactName:  contact.Name,
		ContactEmail: contact.Email,
		ContactPhone: contact.Phone,
		Snapshot:     snapshot,
		TotalAmount:  snapshot.Total(),
		Currency:     s.currency,
		Status:       enums.CheckoutSessionOpen,
		ExpiresAt:    now.Add(s.ttl),
	}
	if err := s.sessions.Create(ctx, session); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create checkout session")
	}
	if s.logg != nil {
		logCtx := s.logg.WithFields(ctx, map[string]any{
			"checkout_session_id": session.ID.String(),
			"identity":            caller.Identity.String(),
		})
		s.logg.Info(logCtx, "checkout session opened")
	}

	dto := ToSessionDTO(session)
	dto.AccountCreated = accountCreated
	return dto, nil
}

// buildSnapshot prices every cart line at the current effective price.
func (s *service) buildSnapshot(ctx context.Context, owner identity.Identity) (types.PriceSnapshot, error) {
	lines, err := s.carts.ListLines(ctx, owner)
	if err != nil {
		return nil, err
	}
	if len(lines) == 0 {
		return nil, pkgerrors.EmptyCart()
	}
	ids := make([]uuid.UUID, 0, len(lines))
	for _, line := range lines {
		ids = append(ids, line.ProductID)
	}
	products, err := s.products.FindByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}

	snapshot := make(types.PriceSnapshot, 0, len(lines))
	for _, line := range lines {
		product, ok := products[line.ProductID]
		if !ok {
			return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "a product in the cart is no longer available").
				WithDetails(map[string]any{"product_id": line.ProductID.String()})
		}
		snapshot = append(snapshot, types.SnapshotLine{
			ProductID: product.ID,
			Name:      product.Name,
			UnitPrice: product.EffectivePrice(),
			Quantity:  line.Quantity,
			Size:      line.Size,
		})
	}
	return snapshot, nil
}

// SubmitShippingDetails stores the address on an open session.
func (s *service) SubmitShippingDetails(ctx context.Context, caller identity.Caller, sessionID uuid.UUID, input rules.ShippingInput) (*SessionDTO, error) {
	if err := s.maintenance.Guard(ctx, caller); err != nil {
		return nil, err
	}
	session, err := s.loadUsable(ctx, caller, sessionID)
	if err != nil {
		return nil, err
	}
	shipping := input.Normalize()
	if err := rules.ValidateShipping(shipping); err != nil {
		return nil, err
	}
	if err := s.sessions.UpdateShipping(ctx, session.ID, shipping.Address, shipping.City, shipping.State, shipping.Pincode, shipping.Country); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "save shipping details")
	}
	session.ShippingAddress = &shipping.Address
	session.ShippingCity = &shipping.City
	session.ShippingState = &shipping.State
	session.ShippingPincode = &shipping.Pincode
	session.ShippingCountry = &shipping.Country
	return ToSessionDTO(session), nil
}

// CreatePaymentIntent asks the gateway for an order covering the snapshot
// total. A session that already has an intent returns it unchanged.
func (s *service) CreatePaymentIntent(ctx context.Context, caller identity.Caller, sessionID uuid.UUID, quoted *decimal.Decimal) (*IntentDTO, error) {
	if err := s.maintenance.Guard(ctx, caller); err != nil {
		return nil, err
	}
	session, err := s.loadUsable(ctx, caller, sessionID)
	if err != nil {
		return nil, err
	}
	if !session.HasShipping() {
		return nil, pkgerrors.ValidationField("shipping", "submit shipping details first")
	}
	total := session.Snapshot.Total()
	if err := rules.ValidateQuotedAmount(quoted, total); err != nil {
		return nil, err
	}
	if session.GatewayOrderID != nil {
		return newIntentDTO(session.ID, payments.Intent{
			GatewayOrderID: *session.GatewayOrderID,
			Amount:         total,
			Currency:       session.Currency,
		}, s.gateway.KeyID()), nil
	}

	intent, err := s.gateway.CreateIntent(ctx, total, session.Currency, session.ID.String())
	if err != nil {
		return nil, err
	}
	won, err := s.sessions.AttachIntent(ctx, session.ID, intent.GatewayOrderID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "save payment intent")
	}
	if !won {
		// a concurrent request attached its intent first
		current, err := s.sessions.FindByID(ctx, session.ID)
		if err != nil {
			return nil, err
		}
		if current.GatewayOrderID == nil {
			return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "checkout session changed; retry")
		}
		return newIntentDTO(session.ID, payments.Intent{
			GatewayOrderID: *current.GatewayOrderID,
			Amount:         total,
			Currency:       current.Currency,
		}, s.gateway.KeyID()), nil
	}
	if s.logg != nil {
		logCtx := s.logg.WithGatewayOrderID(ctx, intent.GatewayOrderID)
		s.logg.Info(s.logg.WithField(logCtx, "checkout_session_id", session.ID.String()), "payment intent created")
	}
	return newIntentDTO(session.ID, *intent, s.gateway.KeyID()), nil
}

func (s *service) GetSession(ctx context.Context, caller identity.Caller, sessionID uuid.UUID) (*SessionDTO, error) {
	session, err := s.loadOwned(ctx, caller, sessionID)
	if err != nil {
		return nil, err
	}
	return ToSessionDTO(session), nil
}

func (s *service) loadOwned(ctx context.Context, caller identity.Caller, sessionID uuid.UUID) (*models.CheckoutSession, error) {
	if sessionID == uuid.Nil {
		return nil, pkgerrors.ValidationField("checkout_session_id", "is required")
	}
	session, err := s.sessions.FindByID(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if !OwnedBy(session, caller) {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "checkout session not found")
	}
	return session, nil
}

// loadUsable additionally rejects settled and expired sessions.
func (s *service) loadUsable(ctx context.Context, caller identity.Caller, sessionID uuid.UUID) (*models.CheckoutSession, error) {
	session, err := s.loadOwned(ctx, caller, sessionID)
	if err != nil {
		return nil, err
	}
	switch {
	case session.Status == enums.CheckoutSessionSettled:
		return nil, pkgerrors.New(pkgerrors.CodeConflict, "checkout session already settled")
	case session.Status == enums.CheckoutSessionExpired, !s.now().Before(session.ExpiresAt):
		return nil, pkgerrors.New(pkgerrors.CodeConflict, "checkout session expired")
	}
	return session, nil
}

// OwnedBy reports whether caller may act on session: the owning identity, or
// the account created or signed in for it.
func OwnedBy(session *models.CheckoutSession, caller identity.Caller) bool {
	if session == nil {
		return false
	}
	if session.OwnerKind == caller.Identity.Kind && session.OwnerID == caller.Identity.ID {
		return true
	}
	if uid, ok := caller.Identity.UserID(); ok && session.UserID != nil && *session.UserID == uid {
		return true
	}
	return false
}
