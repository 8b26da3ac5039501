package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

var ErrSessionExpired = errors.New("session expired")

// SessionStore is the storage surface sessions need; satisfied by
// *storage.SQLiteRepository.
type SessionStore interface {
	CreateSession(ctx context.Context, id string, userID int64, expiresAt time.Time) error
	GetSession(ctx context.Context, id string) (int64, time.Time, error)
	RevokeSession(ctx context.Context, id string) error
}

// SessionProvider creates and validates server-side sessions. The clock is
// injectable so expiry behavior is testable without sleeping.
type SessionProvider struct {
	store SessionStore
	ttl   time.Duration
	now   func() time.Time
}

func NewSessionProvider(store SessionStore, ttl time.Duration) *SessionProvider {
	return &SessionProvider{
		store: store,
		ttl:   ttl,
		now:   time.Now,
	}
}

// WithClock replaces the provider's time source. Tests use it to move time
// forward.
func (p *SessionProvider) WithClock(now func() time.Time) *SessionProvider {
	p.now = now
	return p
}

// TTL returns the configured session lifetime.
func (p *SessionProvider) TTL() time.Duration {
	return p.ttl
}

// Now returns the provider's current time.
func (p *SessionProvider) Now() time.Time {
	return p.now()
}

// Create opens a session for the user and returns its id.
func (p *SessionProvider) Create(ctx context.Context, userID int64) (string, error) {
	id := uuid.NewString()
	expiresAt := p.now().Add(p.ttl)
	if err := p.store.CreateSession(ctx, id, userID, expiresAt); err != nil {
		return "", fmt.Errorf("create session: %w", err)
	}
	return id, nil
}

// Validate returns the session's user if the session is live and not past
// its expiry. An expired session is ErrSessionExpired; a revoked or
// unknown one surfaces the store's not-found error.
func (p *SessionProvider) Validate(ctx context.Context, id string) (int64, error) {
	userID, expiresAt, err := p.store.GetSession(ctx, id)
	if err != nil {
		return 0, err
	}
	if p.now().After(expiresAt) {
		return 0, ErrSessionExpired
	}
	return userID, nil
}

// Revoke invalidates a session.
func (p *SessionProvider) Revoke(ctx context.Context, id string) error {
	return p.store.RevokeSession(ctx, id)
}
