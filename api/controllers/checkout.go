package controllers

import (
	"net/http"
	"net/url"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/threadloom/storefront-backend/api/responses"
	"github.com/threadloom/storefront-backend/api/validators"
	checkoutsvc "github.com/threadloom/storefront-backend/internal/checkout"
	"github.com/threadloom/storefront-backend/internal/orders"
	"github.com/threadloom/storefront-backend/internal/settlement"
	rules "github.com/threadloom/storefront-backend/pkg/checkout"
	"github.com/threadloom/storefront-backend/pkg/logger"
)

type shippingRequest struct {
	CheckoutSessionID uuid.UUID `json:"checkout_session_id" validate:"required"`
	rules.ShippingInput
}

type createGatewayOrderRequest struct {
	CheckoutSessionID uuid.UUID        `json:"checkout_session_id" validate:"required"`
	Amount            *decimal.Decimal `json:"amount,omitempty"`
}

// settleRequest mirrors the payment widget callback form. Contact and address
// fields are echoed by the storefront but the binding copy is the session
// snapshot located through razorpay_order_id.
type settleRequest struct {
	CheckoutSessionID *uuid.UUID `json:"checkout_session_id,omitempty"`
	Name              string     `json:"name,omitempty"`
	Email             string     `json:"email,omitempty"`
	Phone             string     `json:"phone,omitempty"`
	Address           string     `json:"address,omitempty"`
	City              string     `json:"city,omitempty"`
	State             string     `json:"state,omitempty"`
	Pincode           string     `json:"pincode,omitempty"`
	Country           string     `json:"country,omitempty"`
	Password          string     `json:"password,omitempty"`
	PaymentID         string     `json:"razorpay_payment_id"`
	OrderID           string     `json:"razorpay_order_id"`
	Signature         string     `json:"razorpay_signature"`
}

type settleResponse struct {
	Order    *orders.OrderDTO `json:"order"`
	Replayed bool             `json:"replayed"`
}

// CheckoutContact opens a checkout session from the caller's cart.
func CheckoutContact(svc checkoutsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, serviceUnavailable("checkout"))
			return
		}
		caller, err := callerFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body rules.ContactInput
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		session, err := svc.BeginCheckout(r.Context(), caller, body)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, session)
	}
}

// CheckoutShipping attaches the delivery address to an open session.
func CheckoutShipping(svc checkoutsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, serviceUnavailable("checkout"))
			return
		}
		caller, err := callerFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body shippingRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		session, err := svc.SubmitShippingDetails(r.Context(), caller, body.CheckoutSessionID, body.ShippingInput)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, session)
	}
}

// CheckoutCreateGatewayOrder creates (or returns the existing) gateway order
// for the session's snapshot total.
func CheckoutCreateGatewayOrder(svc checkoutsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, serviceUnavailable("checkout"))
			return
		}
		caller, err := callerFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body createGatewayOrderRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		intent, err := svc.CreatePaymentIntent(r.Context(), caller, body.CheckoutSessionID, body.Amount)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, intent)
	}
}

// CheckoutSettle turns a verified payment callback into an order. A repeated
// callback for an already settled payment answers 200 with the same order.
func CheckoutSettle(svc settlement.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, serviceUnavailable("settlement"))
			return
		}
		caller, err := callerFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body settleRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.Settle(r.Context(), caller, settlement.SettleInput{
			GatewayOrderID:   body.OrderID,
			GatewayPaymentID: body.PaymentID,
			Signature:        body.Signature,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		payload := settleResponse{Order: result.Order, Replayed: result.Replayed}
		location := orderLocation(result.Order.OrderNumber)
		if result.Replayed {
			w.Header().Set("Location", location)
			responses.WriteSuccess(w, payload)
			return
		}
		responses.WriteCreated(w, location, payload)
	}
}

func orderLocation(orderNumber string) string {
	return "/api/v1/orders/" + url.PathEscape(orderNumber)
}
