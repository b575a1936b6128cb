package controllers

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/threadloom/storefront-backend/api/responses"
	"github.com/threadloom/storefront-backend/api/validators"
	"github.com/threadloom/storefront-backend/internal/orders"
	"github.com/threadloom/storefront-backend/pkg/enums"
	pkgerrors "github.com/threadloom/storefront-backend/pkg/errors"
	"github.com/threadloom/storefront-backend/pkg/logger"
)

// OrderConfirmation renders the post-payment confirmation view for the owner.
func OrderConfirmation(svc orders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, serviceUnavailable("orders"))
			return
		}
		caller, err := callerFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		number := strings.TrimSpace(chi.URLParam(r, "orderNumber"))
		if number == "" {
			responses.WriteError(r.Context(), logg, w, pkgerrors.ValidationField("orderNumber", "is required"))
			return
		}

		order, err := svc.GetByNumber(r.Context(), caller, number)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, order)
	}
}

type orderStatusRequest struct {
	Status string `json:"status" validate:"required"`
}

type orderUpdateRequest struct {
	Status         *string `json:"status,omitempty"`
	TrackingNumber *string `json:"trackingNumber,omitempty" validate:"omitempty,max=100"`
	Notes          *string `json:"notes,omitempty" validate:"omitempty,max=2000"`
}

// AdminOrderStatus moves an order through the state machine.
func AdminOrderStatus(svc orders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, serviceUnavailable("orders"))
			return
		}
		orderID, err := uuidParam(r, "id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body orderStatusRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		status, err := parseOrderStatus(body.Status)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		order, err := svc.Transition(r.Context(), orderID, status)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, order)
	}
}

// AdminOrderUpdate applies a status change plus tracking and notes.
func AdminOrderUpdate(svc orders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, serviceUnavailable("orders"))
			return
		}
		orderID, err := uuidParam(r, "id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body orderUpdateRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		input := orders.UpdateInput{
			TrackingNumber: validators.SanitizeOptional(body.TrackingNumber, 100),
			Notes:          validators.SanitizeOptional(body.Notes, 2000),
		}
		if body.Status != nil {
			status, err := parseOrderStatus(*body.Status)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, err)
				return
			}
			input.Status = &status
		}

		order, err := svc.UpdateFulfillment(r.Context(), orderID, input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, order)
	}
}

// AdminOrderList lists orders newest first, optionally filtered by status or a
// search over order number and customer email.
func AdminOrderList(svc orders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, serviceUnavailable("orders"))
			return
		}

		page, err := validators.ParsePage(r, 25, 100)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		filter := orders.ListFilter{
			Query:  validators.SanitizeString(r.URL.Query().Get("q"), 120),
			Limit:  page.Limit,
			Offset: page.Offset,
		}
		if raw := strings.TrimSpace(r.URL.Query().Get("status")); raw != "" {
			status, err := parseOrderStatus(raw)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, err)
				return
			}
			filter.Status = &status
		}

		list, err := svc.List(r.Context(), filter)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, list)
	}
}

func parseOrderStatus(raw string) (enums.OrderStatus, error) {
	status, err := enums.ParseOrderStatus(strings.ToLower(strings.TrimSpace(raw)))
	if err != nil {
		return "", pkgerrors.ValidationField("status", "is not a known order status")
	}
	return status, nil
}
