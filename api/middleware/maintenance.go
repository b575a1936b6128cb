package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/threadloom/storefront-backend/api/responses"
	pkgerrors "github.com/threadloom/storefront-backend/pkg/errors"
	"github.com/threadloom/storefront-backend/pkg/logger"
)

// MaintenancePath is where blocked browser traffic is redirected.
const MaintenancePath = "/maintenance"

// MaintenanceFlag reports the current site-wide maintenance state.
type MaintenanceFlag interface {
	Get(ctx context.Context) bool
}

var maintenanceAllowPrefixes = []string{
	"/api/admin/",
	"/admin/",
	"/api/v1/auth/",
	"/health/",
}

var maintenanceAllowExact = map[string]struct{}{
	MaintenancePath: {},
	"/metrics":      {},
}

// Maintenance blocks storefront traffic while the flag is on. Admin callers and
// the admin, auth, health and metrics surfaces stay reachable. Must run after
// Identify so admin tokens are recognised.
func Maintenance(flag MaintenanceFlag, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if flag == nil {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			if maintenanceExempt(r.URL.Path) || CallerFromContext(ctx).IsAdmin || !flag.Get(ctx) {
				next.ServeHTTP(w, r)
				return
			}

			if wantsJSON(r) {
				responses.WriteError(ctx, logg, w, pkgerrors.Maintenance())
				return
			}
			http.Redirect(w, r, MaintenancePath, http.StatusSeeOther)
		})
	}
}

func maintenanceExempt(path string) bool {
	if _, ok := maintenanceAllowExact[path]; ok {
		return true
	}
	for _, prefix := range maintenanceAllowPrefixes {
		if strings.HasPrefix(path, prefix) {
			return true
		}
	}
	return false
}

func wantsJSON(r *http.Request) bool {
	return strings.Contains(strings.ToLower(r.Header.Get("Accept")), "application/json")
}
