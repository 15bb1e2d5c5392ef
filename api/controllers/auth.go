package controllers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/angelmondragon/calorielens-backend/api/middleware"
	"github.com/angelmondragon/calorielens-backend/api/responses"
	"github.com/angelmondragon/calorielens-backend/api/validators"
	"github.com/angelmondragon/calorielens-backend/internal/identity"
	pkgerrors "github.com/angelmondragon/calorielens-backend/pkg/errors"
	"github.com/angelmondragon/calorielens-backend/pkg/logger"
)

type signInResponse struct {
	Provider string `json:"provider"`
	URL      string `json:"url"`
}

// AuthSignIn returns the hosted provider URL the client should open.
func AuthSignIn(provider identity.Provider, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if provider == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "identity provider unavailable"))
			return
		}

		name := chi.URLParam(r, "provider")
		redirect := validators.SanitizeString(r.URL.Query().Get("redirect_to"), 2048)
		url, err := provider.SignInURL(name, redirect)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, signInResponse{Provider: name, URL: url})
	}
}

// AuthMe returns the user of the current session.
func AuthMe(logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user := identity.UserFromContext(r.Context())
		if user == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "not signed in"))
			return
		}
		responses.WriteSuccess(w, user)
	}
}

// AuthLogout revokes the presented token and clears the session.
func AuthLogout(provider identity.Provider, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if provider == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "identity provider unavailable"))
			return
		}

		token := middleware.AccessTokenFromContext(r.Context())
		if token == "" {
			token = middleware.BearerToken(r)
		}
		if err := provider.SignOut(r.Context(), token); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		identity.SessionFromContext(r.Context()).Set(nil)
		responses.WriteSuccess(w, map[string]string{"status": "logged_out"})
	}
}

type devTokenMinter interface {
	MintDevToken(userID, email, name string) (string, error)
}

type devTokenRequest struct {
	UserID   string `json:"user_id" validate:"required,max=128"`
	Email    string `json:"email" validate:"required,email"`
	FullName string `json:"full_name" validate:"max=256"`
}

// DevToken mints a provider-shaped access token. Only mounted outside prod.
func DevToken(minter devTokenMinter, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body devTokenRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		token, err := minter.MintDevToken(body.UserID, body.Email, body.FullName)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, map[string]string{"access_token": token})
	}
}
