package controllers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/angelmondragon/calorielens-backend/internal/identity"
	"github.com/angelmondragon/calorielens-backend/pkg/config"
	pkgerrors "github.com/angelmondragon/calorielens-backend/pkg/errors"
)

type testIdentityProvider struct {
	signedOut []string
	signOutFn func(ctx context.Context, token string) error
}

func (p *testIdentityProvider) CurrentUser(context.Context, string) (*identity.User, error) {
	return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "not used")
}

func (p *testIdentityProvider) SignInURL(provider, redirect string) (string, error) {
	if provider != identity.ProviderGoogle {
		return "", pkgerrors.New(pkgerrors.CodeValidation, "unsupported sign-in provider")
	}
	return "https://id.example.com/auth/v1/authorize?provider=google&redirect_to=" + redirect, nil
}

func (p *testIdentityProvider) SignOut(ctx context.Context, token string) error {
	p.signedOut = append(p.signedOut, token)
	if p.signOutFn != nil {
		return p.signOutFn(ctx, token)
	}
	return nil
}

func (p *testIdentityProvider) MintDevToken(userID, email, name string) (string, error) {
	return "dev." + userID, nil
}

func routeRequest(method, target, param, value string) *http.Request {
	req := httptest.NewRequest(method, target, nil)
	rc := chi.NewRouteContext()
	rc.URLParams.Add(param, value)
	return req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rc))
}

func TestAuthSignIn(t *testing.T) {
	provider := &testIdentityProvider{}

	resp := httptest.NewRecorder()
	AuthSignIn(provider, testLogger())(resp, routeRequest(http.MethodGet, "/api/v1/auth/signin/google?redirect_to=app", "provider", "google"))
	if resp.Code != http.StatusOK {
		t.Fatalf("unexpected status %d", resp.Code)
	}
	if !strings.Contains(resp.Body.String(), "provider=google") {
		t.Fatalf("expected authorize url, got %s", resp.Body.String())
	}

	resp = httptest.NewRecorder()
	AuthSignIn(provider, testLogger())(resp, routeRequest(http.MethodGet, "/api/v1/auth/signin/github", "provider", "github"))
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", resp.Code)
	}
}

func TestAuthMe(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/api/v1/auth/me", nil)
	resp := httptest.NewRecorder()
	AuthMe(testLogger())(resp, withUser(req, &identity.User{ID: "user-1", Email: "ada@example.com", DisplayName: "Ada"}))
	if resp.Code != http.StatusOK {
		t.Fatalf("unexpected status %d", resp.Code)
	}
	if !strings.Contains(resp.Body.String(), `"display_name":"Ada"`) {
		t.Fatalf("unexpected body %s", resp.Body.String())
	}

	resp = httptest.NewRecorder()
	AuthMe(testLogger())(resp, httptest.NewRequest(http.MethodGet, "/api/v1/auth/me", nil))
	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 got %d", resp.Code)
	}
}

func TestAuthLogoutClearsSession(t *testing.T) {
	provider := &testIdentityProvider{}
	session := identity.NewSession(&identity.User{ID: "user-1"})
	var notified []*identity.User
	session.Subscribe(func(u *identity.User) { notified = append(notified, u) })

	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/logout", nil)
	req.Header.Set("Authorization", "Bearer tok-1")
	req = req.WithContext(identity.WithSession(req.Context(), session))

	resp := httptest.NewRecorder()
	AuthLogout(provider, testLogger())(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("unexpected status %d", resp.Code)
	}
	if len(provider.signedOut) != 1 || provider.signedOut[0] != "tok-1" {
		t.Fatalf("expected token revoked, got %v", provider.signedOut)
	}
	if session.Current() != nil {
		t.Fatal("expected session cleared")
	}
	if len(notified) != 1 || notified[0] != nil {
		t.Fatalf("expected one nil notification, got %v", notified)
	}
}

func TestAuthLogoutFailureKeepsSession(t *testing.T) {
	provider := &testIdentityProvider{signOutFn: func(context.Context, string) error {
		return pkgerrors.New(pkgerrors.CodeDependency, "revoke session")
	}}
	session := identity.NewSession(&identity.User{ID: "user-1"})

	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/logout", nil)
	req.Header.Set("Authorization", "Bearer tok-1")
	req = req.WithContext(identity.WithSession(req.Context(), session))

	resp := httptest.NewRecorder()
	AuthLogout(provider, testLogger())(resp, req)
	if resp.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503 got %d", resp.Code)
	}
	if session.Current() == nil {
		t.Fatal("session must survive a failed sign-out")
	}
}

func TestDevToken(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/api/dev/token", strings.NewReader(`{"user_id":"u-9","email":"dev@example.com"}`))
	resp := httptest.NewRecorder()
	DevToken(&testIdentityProvider{}, testLogger())(resp, req)
	if resp.Code != http.StatusCreated {
		t.Fatalf("unexpected status %d: %s", resp.Code, resp.Body.String())
	}
	if !strings.Contains(resp.Body.String(), `"access_token":"dev.u-9"`) {
		t.Fatalf("unexpected body %s", resp.Body.String())
	}

	req = httptest.NewRequest(http.MethodPost, "/api/dev/token", strings.NewReader(`{"user_id":"u-9","email":"nope"}`))
	resp = httptest.NewRecorder()
	DevToken(&testIdentityProvider{}, testLogger())(resp, req)
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", resp.Code)
	}
}

type pingFunc func(context.Context) error

func (f pingFunc) Ping(ctx context.Context) error { return f(ctx) }

func TestHealthReady(t *testing.T) {
	cfg := testConfig()
	ok := pingFunc(func(context.Context) error { return nil })
	down := pingFunc(func(context.Context) error { return context.DeadlineExceeded })

	resp := httptest.NewRecorder()
	HealthReady(cfg, map[string]Pinger{"db": ok, "redis": ok}, testLogger())(resp, httptest.NewRequest(http.MethodGet, "/health/ready", nil))
	if resp.Code != http.StatusOK {
		t.Fatalf("unexpected status %d", resp.Code)
	}

	resp = httptest.NewRecorder()
	HealthReady(cfg, map[string]Pinger{"db": ok, "redis": down}, testLogger())(resp, httptest.NewRequest(http.MethodGet, "/health/ready", nil))
	if resp.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503 got %d", resp.Code)
	}
}

func testConfig() *config.Config {
	return &config.Config{App: config.AppConfig{Env: "test"}}
}
