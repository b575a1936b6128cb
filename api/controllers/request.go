package controllers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/threadloom/storefront-backend/api/validators"
	"github.com/threadloom/storefront-backend/internal/identity"
	pkgerrors "github.com/threadloom/storefront-backend/pkg/errors"
)

func callerFromRequest(r *http.Request) (identity.Caller, error) {
	caller, ok := identity.FromContext(r.Context())
	if !ok || caller.Identity.IsZero() {
		return identity.Caller{}, pkgerrors.New(pkgerrors.CodeUnauthorized, "caller identity missing")
	}
	return caller, nil
}

func uuidParam(r *http.Request, name string) (uuid.UUID, error) {
	return validators.ParseUUID(chi.URLParam(r, name), name)
}

func serviceUnavailable(name string) error {
	return pkgerrors.New(pkgerrors.CodeInternal, name+" service unavailable")
}
