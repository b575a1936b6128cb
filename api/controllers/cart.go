package controllers

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/threadloom/storefront-backend/api/responses"
	"github.com/threadloom/storefront-backend/api/validators"
	cartsvc "github.com/threadloom/storefront-backend/internal/cart"
	"github.com/threadloom/storefront-backend/internal/identity"
	"github.com/threadloom/storefront-backend/pkg/logger"
)

type addCartLineRequest struct {
	ProductID uuid.UUID `json:"product_id" validate:"required"`
	Quantity  int       `json:"quantity" validate:"required,min=1"`
	Size      string    `json:"size" validate:"omitempty,max=20"`
}

type updateCartLineRequest struct {
	Quantity int `json:"quantity" validate:"required,min=1"`
}

// CartItems returns the caller's cart priced against the live catalog.
func CartItems(svc cartsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, serviceUnavailable("cart"))
			return
		}
		caller, err := callerFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		view, err := svc.View(r.Context(), caller.Identity)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, view)
	}
}

// CartAdd merges a product into the cart and returns the updated view.
func CartAdd(svc cartsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, serviceUnavailable("cart"))
			return
		}
		caller, err := callerFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body addCartLineRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if _, err := svc.AddLine(r.Context(), caller.Identity, body.ProductID, body.Quantity, validators.SanitizeString(body.Size, 20)); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		writeCartView(w, r, svc, caller.Identity, http.StatusCreated, logg)
	}
}

func CartUpdate(svc cartsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, serviceUnavailable("cart"))
			return
		}
		caller, err := callerFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		lineID, err := uuidParam(r, "id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body updateCartLineRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if _, err := svc.UpdateQuantity(r.Context(), caller.Identity, lineID, body.Quantity); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		writeCartView(w, r, svc, caller.Identity, http.StatusOK, logg)
	}
}

func CartRemove(svc cartsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, serviceUnavailable("cart"))
			return
		}
		caller, err := callerFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		lineID, err := uuidParam(r, "id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if err := svc.RemoveLine(r.Context(), caller.Identity, lineID); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		writeCartView(w, r, svc, caller.Identity, http.StatusOK, logg)
	}
}

func writeCartView(w http.ResponseWriter, r *http.Request, svc cartsvc.Service, owner identity.Identity, status int, logg *logger.Logger) {
	view, err := svc.View(r.Context(), owner)
	if err != nil {
		responses.WriteError(r.Context(), logg, w, err)
		return
	}
	responses.WriteSuccessStatus(w, status, view)
}
