package errors

import (
	"fmt"
	"sort"
	"strings"
)

// FieldErrors maps a request field to a human readable problem.
type FieldErrors map[string]string

// Fields returns the offending field names in a stable order.
func (f FieldErrors) Fields() []string {
	out := make([]string, 0, len(f))
	for k := range f {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// Validation builds a VALIDATION_ERROR naming each offending field.
func Validation(fields FieldErrors) *Error {
	if len(fields) == 0 {
		return New(CodeValidation, "validation failed")
	}
	names := fields.Fields()
	return New(CodeValidation, fmt.Sprintf("invalid %s", strings.Join(names, ", "))).WithDetails(map[string]any{"fields": fields})
}

// ValidationField is a shorthand for a single-field validation failure.
func ValidationField(field, problem string) *Error {
	return Validation(FieldErrors{field: problem})
}

func EmptyCart() *Error {
	return New(CodeEmptyCart, "cart is empty")
}

func Maintenance() *Error {
	return New(CodeMaintenance, "site is in maintenance mode")
}

func GatewayUnavailable(err error) *Error {
	return Wrap(CodeGatewayUnavailable, err, "payment gateway unavailable")
}

// GatewayRejected reports a definitive gateway refusal that a retry will not fix.
func GatewayRejected(err error, gatewayCode string) *Error {
	e := Wrap(CodeGatewayRejected, err, "payment gateway rejected the request")
	if gatewayCode != "" {
		e = e.WithDetails(map[string]any{"gateway_code": gatewayCode})
	}
	return e
}

func PaymentVerification(gatewayOrderID string) *Error {
	return New(CodePaymentVerification, "payment signature mismatch").
		WithDetails(map[string]any{"gateway_order_id": gatewayOrderID})
}

// InsufficientStock names the product that could not be fulfilled.
func InsufficientStock(productID, productName string) *Error {
	return New(CodeInsufficientStock, fmt.Sprintf("insufficient stock for %s", productName)).
		WithDetails(map[string]any{
			"product_id":   productID,
			"product_name": productName,
		})
}

func DuplicateSettlement(gatewayOrderID string, cause error) *Error {
	return Wrap(CodeDuplicateSettlement, cause, fmt.Sprintf("order already settled for %s", gatewayOrderID))
}

// InvalidTransition names both the current and attempted status.
func InvalidTransition(current, attempted string) *Error {
	return New(CodeInvalidTransition, fmt.Sprintf("cannot transition order from %s to %s", current, attempted)).
		WithDetails(map[string]any{
			"current":   current,
			"attempted": attempted,
		})
}

func SettlementFailed(err error, reference string) *Error {
	return Wrap(CodeSettlementFailed, err, "settlement failed after payment verification").
		WithDetails(map[string]any{"reference": reference})
}
