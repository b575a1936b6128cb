package payments

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/threadloom/storefront-backend/pkg/enums"
)

// Intent is the gateway-side order the client pays against.
type Intent struct {
	GatewayOrderID string          `json:"gateway_order_id"`
	Amount         decimal.Decimal `json:"amount"`
	Currency       enums.Currency  `json:"currency"`
}

// Gateway creates payment intents and verifies payment confirmations.
// CreateIntent may retry internally; Verify is pure and never touches the network.
type Gateway interface {
	CreateIntent(ctx context.Context, amount decimal.Decimal, currency enums.Currency, receiptID string) (*Intent, error)
	Verify(gatewayOrderID, gatewayPaymentID, signature string) bool
	KeyID() string
}

// ToMinorUnits converts a rupee amount into paise. Amounts with more than two
// decimal places or non-positive amounts are rejected.
func ToMinorUnits(amount decimal.Decimal) (int64, error) {
	if !amount.IsPositive() {
		return 0, fmt.Errorf("amount must be positive")
	}
	shifted := amount.Shift(enums.CurrencyINR.Exponent())
	if !shifted.Equal(shifted.Truncate(0)) {
		return 0, fmt.Errorf("amount %s has sub-paise precision", amount.String())
	}
	return shifted.IntPart(), nil
}

// FromMinorUnits converts paise back into rupees.
func FromMinorUnits(paise int64) decimal.Decimal {
	return decimal.New(paise, -enums.CurrencyINR.Exponent())
}
