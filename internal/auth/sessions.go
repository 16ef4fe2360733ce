package auth

import (
	"crypto/rand"
	"encoding/base64"
	"sync"
	"time"
)

// Session ties a bearer token to a signed-in user.
type Session struct {
	UserID    string
	ExpiresAt time.Time
}

// SessionStore is an in-memory, TTL'd token store. Expired entries are
// purged opportunistically on access.
type SessionStore struct {
	mu    sync.Mutex
	ttl   time.Duration
	items map[string]Session
}

// NewSessionStore creates a session store with the given token lifetime.
func NewSessionStore(ttl time.Duration) *SessionStore {
	return &SessionStore{
		ttl:   ttl,
		items: make(map[string]Session),
	}
}

// Create issues a fresh token for a user.
func (s *SessionStore) Create(userID string) (token string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.purgeExpiredLocked(time.Now())

	token = NewRandomToken(24)
	s.items[token] = Session{
		UserID:    userID,
		ExpiresAt: time.Now().Add(s.ttl),
	}
	return token
}

// Get resolves a token to its session.
func (s *SessionStore) Get(token string) (Session, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.purgeExpiredLocked(time.Now())

	v, ok := s.items[token]
	if !ok {
		return Session{}, false
	}
	if time.Now().After(v.ExpiresAt) {
		delete(s.items, token)
		return Session{}, false
	}
	return v, true
}

// Delete revokes a token.
func (s *SessionStore) Delete(token string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.items, token)
}

// DeleteForUser revokes every token belonging to a user.
func (s *SessionStore) DeleteForUser(userID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for token, sess := range s.items {
		if sess.UserID == userID {
			delete(s.items, token)
		}
	}
}

func (s *SessionStore) purgeExpiredLocked(now time.Time) {
	for token, sess := range s.items {
		if now.After(sess.ExpiresAt) {
			delete(s.items, token)
		}
	}
}

// NewRandomToken returns n random bytes, URL-safe base64 encoded.
func NewRandomToken(n int) string {
	b := make([]byte, n)
	_, _ = rand.Read(b)
	return base64.RawURLEncoding.EncodeToString(b)
}
