package payments

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/threadloom/storefront-backend/pkg/enums"
	pkgerrors "github.com/threadloom/storefront-backend/pkg/errors"
)

const fakeKeyID = "rzp_fake_key"

// Fake is an in-process gateway for local development and tests. Signatures
// use the same HMAC scheme as the live gateway.
type Fake struct {
	secret string

	mu      sync.Mutex
	intents map[string]Intent
	failErr error
	calls   int
}

// NewFake builds a fake gateway signing with secret.
func NewFake(secret string) *Fake {
	if secret == "" {
		secret = "fake-secret"
	}
	return &Fake{secret: secret, intents: map[string]Intent{}}
}

// FailWith makes subsequent CreateIntent calls fail with err until cleared with nil.
func (f *Fake) FailWith(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failErr = err
}

// Calls returns how many CreateIntent calls reached the fake.
func (f *Fake) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func (f *Fake) CreateIntent(ctx context.Context, amount decimal.Decimal, currency enums.Currency, receiptID string) (*Intent, error) {
	if err := ctx.Err(); err != nil {
		return nil, pkgerrors.GatewayUnavailable(err)
	}
	if _, err := ToMinorUnits(amount); err != nil {
		return nil, pkgerrors.ValidationField("amount", err.Error())
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.failErr != nil {
		return nil, pkgerrors.GatewayUnavailable(f.failErr)
	}
	intent := Intent{
		GatewayOrderID: fmt.Sprintf("order_fake_%s", uuid.NewString()[:12]),
		Amount:         amount,
		Currency:       currency,
	}
	f.intents[intent.GatewayOrderID] = intent
	return &intent, nil
}

func (f *Fake) Verify(gatewayOrderID, gatewayPaymentID, signature string) bool {
	return VerifySignature(f.secret, gatewayOrderID, gatewayPaymentID, signature)
}

func (f *Fake) KeyID() string {
	return fakeKeyID
}

// SignPayment returns the signature the client would receive after paying.
func (f *Fake) SignPayment(gatewayOrderID, gatewayPaymentID string) string {
	return Sign(f.secret, gatewayOrderID, gatewayPaymentID)
}
