package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/angelmondragon/calorielens-backend/api/responses"
	"github.com/angelmondragon/calorielens-backend/internal/identity"
	pkgerrors "github.com/angelmondragon/calorielens-backend/pkg/errors"
	"github.com/angelmondragon/calorielens-backend/pkg/logger"
)

type userResolver interface {
	CurrentUser(ctx context.Context, token string) (*identity.User, error)
}

// Auth validates a bearer token with the identity provider and seeds the
// request context with a session holding the user.
func Auth(provider userResolver, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := BearerToken(r)
			if token == "" {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing credentials"))
				return
			}

			user, err := provider.CurrentUser(r.Context(), token)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, err)
				return
			}

			session := identity.NewSession(user)
			ctx := identity.WithSession(r.Context(), session)
			ctx = WithUserID(ctx, user.ID)
			ctx = context.WithValue(ctx, ctxAccessToken, token)
			if logg != nil {
				ctx = logg.WithUserID(ctx, user.ID)
				logCtx := ctx
				unsubscribe := session.Subscribe(func(u *identity.User) {
					if u == nil {
						logg.Info(logCtx, "auth.signed_out")
					}
				})
				defer unsubscribe()
			}

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// BearerToken extracts the token from the Authorization header. A bare
// token without the scheme is accepted too.
func BearerToken(r *http.Request) string {
	raw := strings.TrimSpace(r.Header.Get("Authorization"))
	if strings.HasPrefix(strings.ToLower(raw), "bearer ") {
		raw = strings.TrimSpace(raw[7:])
	}
	return raw
}
