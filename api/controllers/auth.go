package controllers

import (
	"context"
	"net/http"

	"github.com/threadloom/storefront-backend/api/middleware"
	"github.com/threadloom/storefront-backend/api/responses"
	"github.com/threadloom/storefront-backend/api/validators"
	"github.com/threadloom/storefront-backend/internal/auth"
	"github.com/threadloom/storefront-backend/pkg/logger"
)

type signInFunc[T any] func(ctx context.Context, req T, guestSession string) (*auth.LoginResponse, error)

// AuthLogin signs a customer in and folds their guest cart into the account.
func AuthLogin(svc auth.Service, logg *logger.Logger) http.HandlerFunc {
	if svc == nil {
		return unavailable("auth", logg)
	}
	return signIn[auth.LoginRequest](svc.Login, http.StatusOK, logg)
}

// AuthRegister creates a customer account and signs it in.
func AuthRegister(svc auth.Service, logg *logger.Logger) http.HandlerFunc {
	if svc == nil {
		return unavailable("auth", logg)
	}
	return signIn[auth.RegisterRequest](svc.Register, http.StatusCreated, logg)
}

// signIn decodes T, hands over the caller's guest session so its cart can be
// merged, and writes the token response with status.
func signIn[T any](call signInFunc[T], status int, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body T
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := call(r.Context(), body, middleware.GuestSessionFromContext(r.Context()))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, status, result)
	}
}

func unavailable(name string, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		responses.WriteError(r.Context(), logg, w, serviceUnavailable(name))
	}
}
