package middleware

import (
	"net/http"
	"strings"

	"github.com/go-chi/cors"

	"github.com/threadloom/storefront-backend/pkg/types"
)

var storefrontOrigins = []string{
	"https://threadloom.in",
	"https://www.threadloom.in",
	"https://admin.threadloom.in",
}

const localOrigin = "http://localhost:3000"

// CORS allows the storefront domains plus extra. The local dev frontend is
// admitted only when dev is set.
func CORS(dev bool, extra ...string) func(http.Handler) http.Handler {
	return cors.New(cors.Options{
		AllowedOrigins:   allowedOrigins(dev, extra),
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", CartSessionHeader, idempotencyHeader, "X-Requested-With"},
		ExposedHeaders:   []string{CartSessionHeader, "Location", "Retry-After", types.RequestIDHeader},
		AllowCredentials: true,
		MaxAge:           300,
	}).Handler
}

func allowedOrigins(dev bool, extra []string) []string {
	out := append([]string{}, storefrontOrigins...)
	if dev {
		out = append(out, localOrigin)
	}
	for _, origin := range extra {
		if origin = strings.TrimRight(strings.TrimSpace(origin), "/"); origin != "" {
			out = append(out, origin)
		}
	}
	return out
}
