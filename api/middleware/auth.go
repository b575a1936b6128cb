package middleware

import (
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/threadloom/storefront-backend/api/responses"
	"github.com/threadloom/storefront-backend/internal/identity"
	pkgAuth "github.com/threadloom/storefront-backend/pkg/auth"
	"github.com/threadloom/storefront-backend/pkg/config"
	pkgerrors "github.com/threadloom/storefront-backend/pkg/errors"
	"github.com/threadloom/storefront-backend/pkg/logger"
)

const (
	// CartSessionHeader carries the guest cart session for API clients.
	CartSessionHeader = "X-Cart-Session"
	// CartSessionCookie carries the guest cart session for browsers.
	CartSessionCookie = "sf_cart"

	cartSessionMaxAge = 30 * 24 * 60 * 60
)

// Identify resolves the request principal. A bearer token yields a user
// caller; otherwise the guest cart session is read from the header or cookie
// and minted when absent. An invalid bearer token is rejected rather than
// downgraded to a guest.
func Identify(cfg config.JWTConfig, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()

			token, present := bearerToken(r)
			var caller identity.Caller
			if present {
				if token == "" {
					responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing credentials"))
					return
				}
				claims, err := pkgAuth.ParseAccessToken(cfg, token)
				if err != nil {
					responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "invalid token"))
					return
				}
				caller = identity.UserCaller(claims.UserID, claims.Email, claims.IsAdmin())
			} else {
				caller = identity.GuestCaller(guestSession(w, r))
			}

			ctx = identity.WithCaller(ctx, caller)
			if logg != nil {
				ctx = logg.WithIdentity(ctx, caller.Identity.String())
				if caller.Identity.IsUser() {
					ctx = logg.WithUserID(ctx, caller.Identity.ID)
				}
			}

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func bearerToken(r *http.Request) (string, bool) {
	raw := strings.TrimSpace(r.Header.Get("Authorization"))
	if raw == "" {
		return "", false
	}
	token := raw
	if strings.HasPrefix(strings.ToLower(token), "bearer ") {
		token = strings.TrimSpace(token[7:])
	}
	return token, true
}

func guestSession(w http.ResponseWriter, r *http.Request) string {
	if id := strings.TrimSpace(r.Header.Get(CartSessionHeader)); validSessionID(id) {
		return id
	}
	if cookie, err := r.Cookie(CartSessionCookie); err == nil && validSessionID(cookie.Value) {
		return cookie.Value
	}

	id := uuid.NewString()
	http.SetCookie(w, &http.Cookie{
		Name:     CartSessionCookie,
		Value:    id,
		Path:     "/",
		MaxAge:   cartSessionMaxAge,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	w.Header().Set(CartSessionHeader, id)
	return id
}

func validSessionID(value string) bool {
	if value == "" {
		return false
	}
	_, err := uuid.Parse(value)
	return err == nil
}
