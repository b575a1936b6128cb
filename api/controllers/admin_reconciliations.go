package controllers

import (
	"net/http"
	"strings"

	"github.com/threadloom/storefront-backend/api/middleware"
	"github.com/threadloom/storefront-backend/api/responses"
	"github.com/threadloom/storefront-backend/api/validators"
	"github.com/threadloom/storefront-backend/internal/reconciliation"
	"github.com/threadloom/storefront-backend/pkg/enums"
	pkgerrors "github.com/threadloom/storefront-backend/pkg/errors"
	"github.com/threadloom/storefront-backend/pkg/logger"
)

type resolveReconciliationRequest struct {
	Note string `json:"note" validate:"required,max=2048"`
}

// AdminReconciliationList shows captured payments that still need manual review.
func AdminReconciliationList(svc reconciliation.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, serviceUnavailable("reconciliation"))
			return
		}

		page, err := validators.ParsePage(r, 50, 200)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		filter := reconciliation.Filter{Limit: page.Limit, Offset: page.Offset}
		if raw := strings.TrimSpace(r.URL.Query().Get("status")); raw != "" {
			status, err := enums.ParseReconciliationStatus(strings.ToLower(raw))
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.ValidationField("status", "must be open or resolved"))
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

// AdminReconciliationResolve records the manual action taken on an entry.
func AdminReconciliationResolve(svc reconciliation.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, serviceUnavailable("reconciliation"))
			return
		}
		id, err := uuidParam(r, "id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		adminID, ok := middleware.UserIDFromContext(r.Context())
		if !ok {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "admin identity missing"))
			return
		}

		var body resolveReconciliationRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		entry, err := svc.Resolve(r.Context(), id, adminID, body.Note)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, entry)
	}
}
