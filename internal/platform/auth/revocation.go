package auth

import (
	"sync"
	"time"
)

// TokenRevocationStore remembers token IDs revoked by logout, and users
// whose earlier tokens were all revoked by deactivation, until those tokens
// would have expired on their own.
type TokenRevocationStore struct {
	mu      sync.RWMutex
	entries map[string]revocationEntry
	users   map[string]userCutoff
	done    chan struct{}
	now     func() time.Time
}

type revocationEntry struct {
	UserID    string
	ExpiresAt time.Time
}

// userCutoff rejects tokens issued at or before Before.
type userCutoff struct {
	Before    time.Time
	ExpiresAt time.Time
}

// NewTokenRevocationStore creates a store and starts a goroutine that drops
// expired entries every interval. Call Close to stop it.
func NewTokenRevocationStore(interval time.Duration) *TokenRevocationStore {
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	s := &TokenRevocationStore{
		entries: make(map[string]revocationEntry),
		users:   make(map[string]userCutoff),
		done:    make(chan struct{}),
		now:     time.Now,
	}
	go s.cleanupLoop(interval)
	return s
}

// Revoke marks a token ID as revoked until expiresAt.
func (s *TokenRevocationStore) Revoke(jti, userID string, expiresAt time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[jti] = revocationEntry{UserID: userID, ExpiresAt: expiresAt}
}

func (s *TokenRevocationStore) IsRevoked(jti string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.entries[jti]
	return ok
}

// RevokeUser revokes every token issued to userID up to now. ttl is the
// longest lifetime a token can have; the cutoff is dropped after it.
func (s *TokenRevocationStore) RevokeUser(userID string, ttl time.Duration) {
	now := s.now()
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users[userID] = userCutoff{Before: now, ExpiresAt: now.Add(ttl)}
}

// IsRevokedClaims reports whether the token was revoked by ID or was
// issued before its user's cutoff. Token timestamps have second precision,
// so a token issued in the same second as the cutoff counts as revoked.
func (s *TokenRevocationStore) IsRevokedClaims(c *Claims) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if c.ID != "" {
		if _, ok := s.entries[c.ID]; ok {
			return true
		}
	}
	cut, ok := s.users[c.Subject]
	if !ok {
		return false
	}
	if c.IssuedAt == nil {
		return true
	}
	return !c.IssuedAt.Time.After(cut.Before.Truncate(time.Second))
}

// CountForUser returns how many live revocations belong to userID.
func (s *TokenRevocationStore) CountForUser(userID string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n := 0
	for _, e := range s.entries {
		if e.UserID == userID {
			n++
		}
	}
	return n
}

func (s *TokenRevocationStore) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

// Close stops the cleanup goroutine. Safe to call more than once.
func (s *TokenRevocationStore) Close() {
	select {
	case <-s.done:
	default:
		close(s.done)
	}
}

func (s *TokenRevocationStore) cleanupLoop(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-s.done:
			return
		case <-ticker.C:
			s.cleanup()
		}
	}
}

func (s *TokenRevocationStore) cleanup() {
	now := s.now()
	s.mu.Lock()
	defer s.mu.Unlock()
	for jti, e := range s.entries {
		if now.After(e.ExpiresAt) {
			delete(s.entries, jti)
		}
	}
	for uid, u := range s.users {
		if now.After(u.ExpiresAt) {
			delete(s.users, uid)
		}
	}
}
