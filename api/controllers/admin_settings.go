package controllers

import (
	"context"
	"html/template"
	"net/http"
	"strings"

	"github.com/threadloom/storefront-backend/api/responses"
	"github.com/threadloom/storefront-backend/api/validators"
	pkgerrors "github.com/threadloom/storefront-backend/pkg/errors"
	"github.com/threadloom/storefront-backend/pkg/logger"
)

// MaintenanceToggle is the read/write surface of the maintenance gate.
type MaintenanceToggle interface {
	Get(ctx context.Context) bool
	Set(ctx context.Context, on bool) error
}

type maintenanceSetting struct {
	Enabled bool `json:"enabled"`
}

type maintenanceRequest struct {
	Enabled *bool `json:"enabled" validate:"required"`
}

func AdminMaintenanceGet(toggle MaintenanceToggle, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if toggle == nil {
			responses.WriteError(r.Context(), logg, w, serviceUnavailable("maintenance"))
			return
		}
		responses.WriteSuccess(w, maintenanceSetting{Enabled: toggle.Get(r.Context())})
	}
}

// AdminMaintenanceSet flips the site-wide flag. The response reflects the new
// value immediately on this replica.
func AdminMaintenanceSet(toggle MaintenanceToggle, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if toggle == nil {
			responses.WriteError(r.Context(), logg, w, serviceUnavailable("maintenance"))
			return
		}

		var body maintenanceRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if err := toggle.Set(r.Context(), *body.Enabled); err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update maintenance mode"))
			return
		}

		if logg != nil {
			ctx := logg.WithField(r.Context(), "enabled", *body.Enabled)
			logg.Warn(ctx, "maintenance.toggled")
		}
		responses.WriteSuccess(w, maintenanceSetting{Enabled: toggle.Get(r.Context())})
	}
}

var maintenancePage = template.Must(template.New("maintenance").Parse(`<!doctype html>
<html lang="en">
<head><meta charset="utf-8"><title>We'll be right back</title></head>
<body>
<h1>{{if .Enabled}}We'll be right back{{else}}We're open{{end}}</h1>
<p>{{if .Enabled}}The store is down for scheduled maintenance. Please check back shortly.{{else}}Maintenance is over. Happy shopping!{{end}}</p>
{{if .SupportEmail}}<p>Questions? Write to <a href="mailto:{{.SupportEmail}}">{{.SupportEmail}}</a>.</p>{{end}}
</body>
</html>
`))

// MaintenancePage is where blocked browser traffic lands. JSON clients get the
// flag instead of markup.
func MaintenancePage(toggle MaintenanceToggle, supportEmail string, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		enabled := toggle != nil && toggle.Get(r.Context())
		status := http.StatusOK
		if enabled {
			status = http.StatusServiceUnavailable
			w.Header().Set("Retry-After", "120")
		}

		if strings.Contains(r.Header.Get("Accept"), "application/json") {
			responses.WriteSuccessStatus(w, status, maintenanceSetting{Enabled: enabled})
			return
		}

		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.WriteHeader(status)
		data := struct {
			Enabled      bool
			SupportEmail string
		}{Enabled: enabled, SupportEmail: supportEmail}
		if err := maintenancePage.Execute(w, data); err != nil && logg != nil {
			logg.Error(r.Context(), "maintenance.page_render_failed", err)
		}
	}
}
