package middleware

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/angelmondragon/calorielens-backend/internal/identity"
	pkgerrors "github.com/angelmondragon/calorielens-backend/pkg/errors"
	"github.com/angelmondragon/calorielens-backend/pkg/logger"
)

type stubResolver struct {
	users map[string]*identity.User
	err   error
}

func (s stubResolver) CurrentUser(_ context.Context, token string) (*identity.User, error) {
	if s.err != nil {
		return nil, s.err
	}
	if u, ok := s.users[token]; ok {
		return u, nil
	}
	return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "invalid access token")
}

func newStubResolver() stubResolver {
	return stubResolver{users: map[string]*identity.User{
		"good-token": {ID: "user-1", Email: "ada@example.com", DisplayName: "Ada"},
	}}
}

func TestAuthRejectsMissingToken(t *testing.T) {
	handler := Auth(newStubResolver(), nil)(okHandler())

	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/", nil))
	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 got %d", resp.Code)
	}
}

func TestAuthRejectsInvalidToken(t *testing.T) {
	handler := Auth(newStubResolver(), nil)(okHandler())

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer invalid")
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)
	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 got %d", resp.Code)
	}
}

func TestAuthProviderOutageIsNotUnauthorized(t *testing.T) {
	resolver := stubResolver{err: pkgerrors.New(pkgerrors.CodeDependency, "check session revocation")}
	handler := Auth(resolver, nil)(okHandler())

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer good-token")
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)
	if resp.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503 got %d", resp.Code)
	}
}

func TestAuthSeedsSession(t *testing.T) {
	var (
		userID string
		token  string
		user   *identity.User
	)
	handler := Auth(newStubResolver(), nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userID = UserIDFromContext(r.Context())
		token = AccessTokenFromContext(r.Context())
		user = identity.UserFromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "bearer  good-token ")
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
	if userID != "user-1" || token != "good-token" {
		t.Fatalf("unexpected context values: user=%q token=%q", userID, token)
	}
	if user == nil || user.Email != "ada@example.com" {
		t.Fatalf("expected session user, got %+v", user)
	}
}

func TestBearerTokenAcceptsBareToken(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "raw-token")
	if got := BearerToken(req); got != "raw-token" {
		t.Fatalf("expected raw-token, got %q", got)
	}
}

func TestRequestIDPropagatesOrMints(t *testing.T) {
	var seen string
	handler := RequestID(nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = w.Header().Get(requestIDHeader)
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(requestIDHeader, "abc-123")
	handler.ServeHTTP(httptest.NewRecorder(), req)
	if seen != "abc-123" {
		t.Fatalf("expected propagated id, got %q", seen)
	}

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(requestIDHeader, "bad id\n")
	handler.ServeHTTP(httptest.NewRecorder(), req)
	if seen == "bad id\n" || seen == "" {
		t.Fatalf("expected minted id, got %q", seen)
	}
}

func TestRecovererWritesInternalError(t *testing.T) {
	handler := Recoverer(nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	}))

	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/", nil))
	if resp.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500 got %d", resp.Code)
	}
}

func TestAuthLogsSignOutTransition(t *testing.T) {
	var buf bytes.Buffer
	logg := logger.New(logger.Options{ServiceName: "test", Output: &buf})
	handler := Auth(newStubResolver(), logg)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		identity.SessionFromContext(r.Context()).Set(nil)
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/logout", nil)
	req.Header.Set("Authorization", "Bearer good-token")
	handler.ServeHTTP(httptest.NewRecorder(), req)

	out := buf.String()
	if !strings.Contains(out, "auth.signed_out") || !strings.Contains(out, "user-1") {
		t.Fatalf("expected sign-out log with user id, got %q", out)
	}
}
