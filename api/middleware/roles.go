package middleware

import (
	"net/http"

	"github.com/threadloom/storefront-backend/api/responses"
	"github.com/threadloom/storefront-backend/internal/identity"
	pkgerrors "github.com/threadloom/storefront-backend/pkg/errors"
	"github.com/threadloom/storefront-backend/pkg/logger"
)

// guard admits the request when check returns nil and writes the returned
// error otherwise.
func guard(logg *logger.Logger, check func(identity.Caller) *pkgerrors.Error) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if err := check(CallerFromContext(r.Context())); err != nil {
				responses.WriteError(r.Context(), logg, w, err)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RequireAdmin admits only back-office accounts. Guests get 401, customers 403.
func RequireAdmin(logg *logger.Logger) func(http.Handler) http.Handler {
	return guard(logg, func(caller identity.Caller) *pkgerrors.Error {
		switch {
		case !caller.Identity.IsUser():
			return pkgerrors.New(pkgerrors.CodeUnauthorized, "authentication required")
		case !caller.IsAdmin:
			return pkgerrors.New(pkgerrors.CodeForbidden, "admin role required")
		}
		return nil
	})
}
