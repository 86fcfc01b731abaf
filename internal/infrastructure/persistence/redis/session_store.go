package redis

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

// ErrSessionNotFound is returned when a session token is unknown or
// expired.
var ErrSessionNotFound = errors.New("session: not found")

// Session holds an authenticated API session.
type Session struct {
	Token     string    `json:"token"`
	UserID    uuid.UUID `json:"user_id"`
	CreatedAt time.Time `json:"created_at"`
}

// SessionStore keeps API sessions in Redis with a sliding TTL. Tokens are
// random UUIDs handed out by the login endpoint.
type SessionStore struct {
	cache *Cache
	ttl   time.Duration
}

// NewSessionStore creates a new SessionStore.
func NewSessionStore(cache *Cache) *SessionStore {
	return &SessionStore{cache: cache, ttl: TTLSession}
}

func sessionKey(token string) string {
	return PrefixSession + token
}

// Create issues a new session for the user and returns its token.
func (s *SessionStore) Create(ctx context.Context, userID uuid.UUID) (*Session, error) {
	session := &Session{
		Token:     uuid.NewString(),
		UserID:    userID,
		CreatedAt: time.Now().UTC(),
	}

	if err := s.cache.Set(ctx, sessionKey(session.Token), session, s.ttl); err != nil {
		return nil, err
	}
	return session, nil
}

// Get resolves a token to its session and refreshes the TTL.
func (s *SessionStore) Get(ctx context.Context, token string) (*Session, error) {
	var session Session
	if err := s.cache.Get(ctx, sessionKey(token), &session); err != nil {
		if errors.Is(err, ErrCacheMiss) {
			return nil, ErrSessionNotFound
		}
		return nil, err
	}

	_ = s.cache.Expire(ctx, sessionKey(token), s.ttl)
	return &session, nil
}

// Revoke removes a session.
func (s *SessionStore) Revoke(ctx context.Context, token string) error {
	return s.cache.Delete(ctx, sessionKey(token))
}
