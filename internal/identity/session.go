package identity

import (
	"context"
	"sync"
)

// Session owns the current user for one client. Readers call Current; auth
// transitions call Set, which pushes the new user to every subscriber.
type Session struct {
	mu          sync.RWMutex
	user        *User
	subscribers map[uint64]func(*User)
	nextID      uint64
}

func NewSession(user *User) *Session {
	return &Session{
		user:        user,
		subscribers: make(map[uint64]func(*User)),
	}
}

// Current returns the signed-in user, or nil when signed out.
func (s *Session) Current() *User {
	if s == nil {
		return nil
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.user
}

// Set replaces the current user and notifies subscribers when it changed.
// Subscribers run on the caller's goroutine, outside the lock.
func (s *Session) Set(user *User) {
	if s == nil {
		return
	}
	s.mu.Lock()
	if sameUser(s.user, user) {
		s.mu.Unlock()
		return
	}
	s.user = user
	fns := make([]func(*User), 0, len(s.subscribers))
	for _, fn := range s.subscribers {
		fns = append(fns, fn)
	}
	s.mu.Unlock()

	for _, fn := range fns {
		fn(user)
	}
}

// Subscribe registers fn for auth transitions. The returned func removes it
// and is safe to call more than once.
func (s *Session) Subscribe(fn func(*User)) (unsubscribe func()) {
	if s == nil || fn == nil {
		return func() {}
	}
	s.mu.Lock()
	id := s.nextID
	s.nextID++
	s.subscribers[id] = fn
	s.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			delete(s.subscribers, id)
			s.mu.Unlock()
		})
	}
}

type sessionCtxKey struct{}

// WithSession attaches the session to ctx.
func WithSession(ctx context.Context, s *Session) context.Context {
	return context.WithValue(ctx, sessionCtxKey{}, s)
}

// SessionFromContext returns the session attached by WithSession, or nil.
func SessionFromContext(ctx context.Context) *Session {
	if ctx == nil {
		return nil
	}
	s, _ := ctx.Value(sessionCtxKey{}).(*Session)
	return s
}

// UserFromContext is shorthand for SessionFromContext(ctx).Current().
func UserFromContext(ctx context.Context) *User {
	return SessionFromContext(ctx).Current()
}
