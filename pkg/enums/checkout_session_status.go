package enums

import "slices"

// CheckoutSessionStatus tracks a checkout session from contact capture to settlement.
type CheckoutSessionStatus string

const (
	CheckoutSessionOpen           CheckoutSessionStatus = "open"
	CheckoutSessionPaymentPending CheckoutSessionStatus = "payment_pending"
	CheckoutSessionSettled        CheckoutSessionStatus = "settled"
	CheckoutSessionExpired        CheckoutSessionStatus = "expired"
)

var validCheckoutSessionStatuses = []CheckoutSessionStatus{
	CheckoutSessionOpen,
	CheckoutSessionPaymentPending,
	CheckoutSessionSettled,
	CheckoutSessionExpired,
}

func (s CheckoutSessionStatus) String() string {
	return string(s)
}

func (s CheckoutSessionStatus) IsValid() bool {
	return slices.Contains(validCheckoutSessionStatuses, s)
}

func ParseCheckoutSessionStatus(value string) (CheckoutSessionStatus, error) {
	return parse(validCheckoutSessionStatuses, value, "checkout session status")
}
