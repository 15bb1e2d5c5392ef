package identity

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/angelmondragon/calorielens-backend/pkg/auth"
	"github.com/angelmondragon/calorielens-backend/pkg/config"
	pkgerrors "github.com/angelmondragon/calorielens-backend/pkg/errors"
)

// ProviderGoogle is the only sign-in provider offered.
const ProviderGoogle = "google"

const authorizePath = "/auth/v1/authorize"

// Provider is the hosted identity service as seen by the application.
type Provider interface {
	CurrentUser(ctx context.Context, token string) (*User, error)
	SignInURL(provider, redirect string) (string, error)
	SignOut(ctx context.Context, token string) error
}

type revocationStore interface {
	IsRevoked(ctx context.Context, sessionID string) (bool, error)
	Revoke(ctx context.Context, sessionID string, expiresAt time.Time) error
}

// TokenProvider trusts access tokens signed by the hosted identity provider
// and keeps its own record of signed-out sessions.
type TokenProvider struct {
	jwt             config.JWTConfig
	baseURL         string
	defaultRedirect string
	revocations     revocationStore
	now             func() time.Time
}

// NewTokenProvider wires the provider.
func NewTokenProvider(jwtCfg config.JWTConfig, idCfg config.IdentityConfig, revocations revocationStore) (*TokenProvider, error) {
	if revocations == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "session revocation store required")
	}
	if strings.TrimSpace(jwtCfg.Secret) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "jwt secret required")
	}
	return &TokenProvider{
		jwt:             jwtCfg,
		baseURL:         strings.TrimRight(strings.TrimSpace(idCfg.URL), "/"),
		defaultRedirect: strings.TrimSpace(idCfg.RedirectURL),
		revocations:     revocations,
		now:             time.Now,
	}, nil
}

// CurrentUser resolves the bearer token into a user. Invalid, expired and
// signed-out tokens are unauthorized.
func (p *TokenProvider) CurrentUser(ctx context.Context, token string) (*User, error) {
	claims, err := p.parse(token)
	if err != nil {
		return nil, err
	}

	revoked, err := p.revocations.IsRevoked(ctx, claims.RevocationID())
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check session revocation")
	}
	if revoked {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "session signed out")
	}

	return &User{
		ID:          claims.Subject,
		Email:       claims.Email,
		DisplayName: claims.DisplayName(),
	}, nil
}

// SignInURL returns the hosted OAuth authorize URL for provider.
func (p *TokenProvider) SignInURL(provider, redirect string) (string, error) {
	name := strings.ToLower(strings.TrimSpace(provider))
	if name != ProviderGoogle {
		return "", pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("unsupported sign-in provider %q", provider))
	}
	if p.baseURL == "" {
		return "", pkgerrors.New(pkgerrors.CodeDependency, "identity provider url not configured")
	}

	u, err := url.Parse(p.baseURL + authorizePath)
	if err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeDependency, err, "parse identity provider url")
	}

	q := u.Query()
	q.Set("provider", name)
	if target := firstNonEmpty(strings.TrimSpace(redirect), p.defaultRedirect); target != "" {
		q.Set("redirect_to", target)
	}
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// SignOut revokes the token's session until the token would have expired.
func (p *TokenProvider) SignOut(ctx context.Context, token string) error {
	claims, err := p.parse(token)
	if err != nil {
		return err
	}
	var expiresAt time.Time
	if claims.ExpiresAt != nil {
		expiresAt = claims.ExpiresAt.Time
	}
	if err := p.revocations.Revoke(ctx, claims.RevocationID(), expiresAt); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "revoke session")
	}
	return nil
}

// MintDevToken issues a provider-shaped token for local development.
func (p *TokenProvider) MintDevToken(userID, email, name string) (string, error) {
	token, err := auth.MintAccessToken(p.jwt, p.now(), auth.AccessTokenPayload{
		UserID:   userID,
		Email:    email,
		FullName: name,
	})
	if err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeValidation, err, "mint dev token")
	}
	return token, nil
}

func (p *TokenProvider) parse(token string) (*auth.AccessTokenClaims, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing access token")
	}
	claims, err := auth.ParseAccessToken(p.jwt, token)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "invalid access token")
	}
	return claims, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
