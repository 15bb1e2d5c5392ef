package session

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/angelmondragon/calorielens-backend/pkg/config"
	redisclient "github.com/angelmondragon/calorielens-backend/pkg/redis"
)

type sessionStore interface {
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	Exists(ctx context.Context, key string) (bool, error)
}

type sessionKeyer interface {
	RevokedSessionKey(sessionID string) string
}

// Manager tracks identity sessions that were signed out before their tokens expired.
type Manager struct {
	store    sessionStore
	keyer    sessionKeyer
	fallback time.Duration
	now      func() time.Time
}

// RevocationChecker exposes the read-only surface needed by the identity provider.
type RevocationChecker interface {
	IsRevoked(ctx context.Context, sessionID string) (bool, error)
}

// NewManager constructs a revocation manager backed by Redis.
func NewManager(client *redisclient.Client, cfg config.JWTConfig) (*Manager, error) {
	if client == nil {
		return nil, fmt.Errorf("redis client is required")
	}
	return newManager(client, client, cfg)
}

func newManager(store sessionStore, keyer sessionKeyer, cfg config.JWTConfig) (*Manager, error) {
	fallback := cfg.RevocationTTL()
	if fallback <= 0 {
		return nil, fmt.Errorf("session revocation ttl must be positive")
	}
	return &Manager{
		store:    store,
		keyer:    keyer,
		fallback: fallback,
		now:      time.Now,
	}, nil
}

// Revoke marks the session as signed out until expiresAt. A zero expiresAt
// uses the configured revocation TTL.
func (m *Manager) Revoke(ctx context.Context, sessionID string, expiresAt time.Time) error {
	if strings.TrimSpace(sessionID) == "" {
		return fmt.Errorf("session id is required")
	}
	ttl := m.fallback
	if !expiresAt.IsZero() {
		remaining := expiresAt.Sub(m.now())
		if remaining <= 0 {
			// already expired tokens are rejected by the parser
			return nil
		}
		ttl = remaining
	}
	return m.store.Set(ctx, m.keyer.RevokedSessionKey(sessionID), "1", ttl)
}

// IsRevoked reports whether the session was signed out.
func (m *Manager) IsRevoked(ctx context.Context, sessionID string) (bool, error) {
	if strings.TrimSpace(sessionID) == "" {
		return false, fmt.Errorf("session id is required")
	}
	return m.store.Exists(ctx, m.keyer.RevokedSessionKey(sessionID))
}
