package checkout

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/threadloom/storefront-backend/internal/auth"
	"github.com/threadloom/storefront-backend/internal/cart"
	"github.com/threadloom/storefront-backend/internal/identity"
	"github.com/threadloom/storefront-backend/internal/maintenance"
	"github.com/threadloom/storefront-backend/internal/payments"
	product "github.com/threadloom/storefront-backend/internal/products"
	"github.com/threadloom/storefront-backend/internal/testdb"
	"github.com/threadloom/storefront-backend/internal/users"
	rules "github.com/threadloom/storefront-backend/pkg/checkout"
	"github.com/threadloom/storefront-backend/pkg/config"
	"github.com/threadloom/storefront-backend/pkg/db/models"
	"github.com/threadloom/storefront-backend/pkg/enums"
	pkgerrors "github.com/threadloom/storefront-backend/pkg/errors"
)

type fixture struct {
	svc     *service
	carts   cart.Service
	conn    *gorm.DB
	gateway *payments.Fake
	gate    *maintenance.Service
	store   *maintenance.MemoryStore
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	client, conn := testdb.Client(t)
	products := product.NewRepository(conn)
	carts, err := cart.NewService(cart.NewRepository(conn), client, products)
	require.NoError(t, err)
	accounts, err := auth.NewService(auth.ServiceParams{
		UserRepo: users.NewRepository(conn),
		JWTConfig: config.JWTConfig{
			Secret:            "secret",
			Issuer:            "storefront",
			ExpirationMinutes: 30,
		},
		PasswordConfig: config.PasswordConfig{
			ArgonMemoryKB:    64,
			ArgonTime:        1,
			ArgonParallelism: 1,
			ArgonSaltLen:     16,
			ArgonKeyLen:      32,
		},
	})
	require.NoError(t, err)
	store := maintenance.NewMemoryStore(false)
	gate, err := maintenance.NewService(store, time.Millisecond, nil)
	require.NoError(t, err)
	gateway := payments.NewFake("secret")

	svc, err := NewService(ServiceParams{
		Sessions:    NewRepository(conn),
		Carts:       carts,
		Products:    products,
		Accounts:    accounts,
		Gateway:     gateway,
		Maintenance: gate,
		SessionTTL:  time.Hour,
	})
	require.NoError(t, err)
	return &fixture{svc: svc.(*service), carts: carts, conn: conn, gateway: gateway, gate: gate, store: store}
}

func validContact() rules.ContactInput {
	return rules.ContactInput{Name: "Asha Rao", Email: "asha@example.com", Phone: "9876543210"}
}

func validShipping() rules.ShippingInput {
	return rules.ShippingInput{Address: "12 MG Road", City: "Pune", State: "MH", Pincode: "411001", Country: "India"}
}

func TestBeginCheckoutSnapshotsCart(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	tee := testdb.SeedProduct(t, f.conn, "Linen Tee", "999", 10, "M", "L")
	caller := identity.GuestCaller("sess-1")
	_, err := f.carts.AddLine(ctx, caller.Identity, tee.ID, 2, "M")
	require.NoError(t, err)

	session, err := f.svc.BeginCheckout(ctx, caller, validContact())
	require.NoError(t, err)
	assert.Equal(t, enums.CheckoutSessionOpen, session.Status)
	require.Len(t, session.Items, 1)
	assert.Equal(t, "Linen Tee", session.Items[0].Name)
	assert.Equal(t, 2, session.Items[0].Quantity)
	assert.True(t, session.Total.Equal(decimal.RequireFromString("1998")))
	assert.False(t, session.AccountCreated)
}

func TestBeginCheckoutTotalIsSumOfLines(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	tee := testdb.SeedProduct(t, f.conn, "Linen Tee", "999", 10, "M")
	scarf := testdb.SeedProduct(t, f.conn, "Silk Scarf", "450.50", 10)
	require.NoError(t, f.conn.Model(&models.Product{}).Where("id = ?", scarf.ID).
		Update("sale_price", decimal.RequireFromString("399.25")).Error)
	caller := identity.GuestCaller("sess-sum")
	_, err := f.carts.AddLine(ctx, caller.Identity, tee.ID, 1, "M")
	require.NoError(t, err)
	_, err = f.carts.AddLine(ctx, caller.Identity, scarf.ID, 3, "")
	require.NoError(t, err)

	session, err := f.svc.BeginCheckout(ctx, caller, validContact())
	require.NoError(t, err)

	sum := decimal.Zero
	for _, line := range session.Items {
		sum = sum.Add(line.LineTotal())
	}
	assert.True(t, session.Total.Equal(sum))
	assert.True(t, session.Total.Equal(decimal.RequireFromString("2196.75")))
}

func TestBeginCheckoutEmptyCart(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.BeginCheckout(context.Background(), identity.GuestCaller("sess-empty"), validContact())
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeEmptyCart))
}

func TestBeginCheckoutValidatesContact(t *testing.T) {
	f := newFixture(t)
	contact := validContact()
	contact.Phone = "12345"
	_, err := f.svc.BeginCheckout(context.Background(), identity.GuestCaller("sess-v"), contact)
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeValidation, typed.Code())
	assert.Contains(t, typed.Message(), "phone")
}

func TestBeginCheckoutBlockedByMaintenance(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	tee := testdb.SeedProduct(t, f.conn, "Linen Tee", "999", 10)
	guest := identity.GuestCaller("sess-m")
	admin := identity.UserCaller(uuid.New(), "ops@example.com", true)
	_, err := f.carts.AddLine(ctx, guest.Identity, tee.ID, 1, "")
	require.NoError(t, err)
	_, err = f.carts.AddLine(ctx, admin.Identity, tee.ID, 1, "")
	require.NoError(t, err)
	require.NoError(t, f.gate.Set(ctx, true))

	_, err = f.svc.BeginCheckout(ctx, guest, validContact())
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeMaintenance))

	var count int64
	require.NoError(t, f.conn.Model(&models.CheckoutSession{}).Count(&count).Error)
	assert.Zero(t, count)

	session, err := f.svc.BeginCheckout(ctx, admin, validContact())
	require.NoError(t, err)
	assert.NotEqual(t, uuid.Nil, session.ID)
}

func TestBeginCheckoutCreatesGuestAccount(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	tee := testdb.SeedProduct(t, f.conn, "Linen Tee", "999", 10)
	guest := identity.GuestCaller("sess-acct")
	_, err := f.carts.AddLine(ctx, guest.Identity, tee.ID, 1, "")
	require.NoError(t, err)

	contact := validContact()
	contact.Password = "long-enough-pass"
	session, err := f.svc.BeginCheckout(ctx, guest, contact)
	require.NoError(t, err)
	assert.True(t, session.AccountCreated)

	var stored models.CheckoutSession
	require.NoError(t, f.conn.First(&stored, "id = ?", session.ID).Error)
	require.NotNil(t, stored.UserID)

	var user models.User
	require.NoError(t, f.conn.First(&user, "id = ?", *stored.UserID).Error)
	assert.Equal(t, "asha@example.com", user.Email)
	assert.NotEqual(t, contact.Password, user.PasswordHash)

	_, err = f.svc.BeginCheckout(ctx, guest, contact)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeConflict))
}

func TestSubmitShippingDetails(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	tee := testdb.SeedProduct(t, f.conn, "Linen Tee", "999", 10)
	guest := identity.GuestCaller("sess-ship")
	_, err := f.carts.AddLine(ctx, guest.Identity, tee.ID, 1, "")
	require.NoError(t, err)
	session, err := f.svc.BeginCheckout(ctx, guest, validContact())
	require.NoError(t, err)

	bad := validShipping()
	bad.Pincode = "41100"
	_, err = f.svc.SubmitShippingDetails(ctx, guest, session.ID, bad)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))

	_, err = f.svc.SubmitShippingDetails(ctx, identity.GuestCaller("someone-else"), session.ID, validShipping())
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))

	updated, err := f.svc.SubmitShippingDetails(ctx, guest, session.ID, validShipping())
	require.NoError(t, err)
	require.NotNil(t, updated.Shipping)
	assert.Equal(t, "411001", updated.Shipping.Pincode)
}

func TestCreatePaymentIntentUsesSnapshotAndIsIdempotent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	tee := testdb.SeedProduct(t, f.conn, "Linen Tee", "999", 10)
	guest := identity.GuestCaller("sess-intent")
	_, err := f.carts.AddLine(ctx, guest.Identity, tee.ID, 2, "")
	require.NoError(t, err)
	session, err := f.svc.BeginCheckout(ctx, guest, validContact())
	require.NoError(t, err)

	_, err = f.svc.CreatePaymentIntent(ctx, guest, session.ID, nil)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))

	_, err = f.svc.SubmitShippingDetails(ctx, guest, session.ID, validShipping())
	require.NoError(t, err)

	// price changes after the snapshot do not affect the charge
	require.NoError(t, f.conn.Model(&models.Product{}).Where("id = ?", tee.ID).
		Update("price", decimal.RequireFromString("1499")).Error)

	wrong := decimal.RequireFromString("2998")
	_, err = f.svc.CreatePaymentIntent(ctx, guest, session.ID, &wrong)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))

	intent, err := f.svc.CreatePaymentIntent(ctx, guest, session.ID, nil)
	require.NoError(t, err)
	assert.True(t, intent.Amount.Equal(decimal.RequireFromString("1998")))
	assert.Equal(t, int64(199800), intent.AmountPaise)
	assert.NotEmpty(t, intent.OrderID)
	assert.NotEmpty(t, intent.KeyID)

	again, err := f.svc.CreatePaymentIntent(ctx, guest, session.ID, nil)
	require.NoError(t, err)
	assert.Equal(t, intent.OrderID, again.OrderID)
	assert.Equal(t, 1, f.gateway.Calls())

	var stored models.CheckoutSession
	require.NoError(t, f.conn.First(&stored, "id = ?", session.ID).Error)
	assert.Equal(t, enums.CheckoutSessionPaymentPending, stored.Status)
	require.NotNil(t, stored.GatewayOrderID)
	assert.Equal(t, intent.OrderID, *stored.GatewayOrderID)
}

func TestCreatePaymentIntentGatewayUnavailable(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	tee := testdb.SeedProduct(t, f.conn, "Linen Tee", "999", 10)
	guest := identity.GuestCaller("sess-gw")
	_, err := f.carts.AddLine(ctx, guest.Identity, tee.ID, 1, "")
	require.NoError(t, err)
	session, err := f.svc.BeginCheckout(ctx, guest, validContact())
	require.NoError(t, err)
	_, err = f.svc.SubmitShippingDetails(ctx, guest, session.ID, validShipping())
	require.NoError(t, err)

	f.gateway.FailWith(assert.AnError)
	_, err = f.svc.CreatePaymentIntent(ctx, guest, session.ID, nil)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeGatewayUnavailable))

	var stored models.CheckoutSession
	require.NoError(t, f.conn.First(&stored, "id = ?", session.ID).Error)
	assert.Nil(t, stored.GatewayOrderID)
	assert.Equal(t, enums.CheckoutSessionOpen, stored.Status)
}

func TestExpiredSessionIsRejected(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	tee := testdb.SeedProduct(t, f.conn, "Linen Tee", "999", 10)
	guest := identity.GuestCaller("sess-exp")
	_, err := f.carts.AddLine(ctx, guest.Identity, tee.ID, 1, "")
	require.NoError(t, err)
	session, err := f.svc.BeginCheckout(ctx, guest, validContact())
	require.NoError(t, err)

	f.svc.now = func() time.Time { return time.Now().Add(2 * time.Hour) }
	_, err = f.svc.SubmitShippingDetails(ctx, guest, session.ID, validShipping())
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeConflict, typed.Code())
	assert.Contains(t, typed.Message(), "expired")
}

func TestOwnedByAcceptsLinkedAccount(t *testing.T) {
	userID := uuid.New()
	session := &models.CheckoutSession{OwnerKind: enums.IdentityGuest, OwnerID: "sess-1", UserID: &userID}

	assert.True(t, OwnedBy(session, identity.GuestCaller("sess-1")))
	assert.True(t, OwnedBy(session, identity.UserCaller(userID, "a@example.com", false)))
	assert.False(t, OwnedBy(session, identity.GuestCaller("sess-2")))
	assert.False(t, OwnedBy(session, identity.UserCaller(uuid.New(), "b@example.com", false)))
}
