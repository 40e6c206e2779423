package auth

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"sync"
	"time"
)

// DefaultStateTTL is how long an issued state remains redeemable.
const DefaultStateTTL = 600 * time.Second

const stateBytes = 32

// StateStore holds pending OAuth state values. It is safe for concurrent use.
type StateStore struct {
	mu     sync.Mutex
	ttl    time.Duration
	issued map[string]time.Time
	now    func() time.Time
}

// NewStateStore creates a store whose states expire after ttl (defaults to [DefaultStateTTL]).
func NewStateStore(ttl time.Duration) *StateStore {
	if ttl <= 0 {
		ttl = DefaultStateTTL
	}
	return &StateStore{
		ttl:    ttl,
		issued: make(map[string]time.Time),
		now:    time.Now,
	}
}

// Issue creates, records and returns a new unguessable state value, sweeping expired entries first.
func (s *StateStore) Issue() (string, error) {
	buf := make([]byte, stateBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to generate state: %w", err)
	}
	state := base64.RawURLEncoding.EncodeToString(buf)

	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	s.sweepLocked(now)
	s.issued[state] = now
	return state, nil
}

// Consume reports whether state was issued and has not expired, removing it either way.
func (s *StateStore) Consume(state string) bool {
	if state == "" {
		return false
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	issuedAt, ok := s.issued[state]
	if !ok {
		return false
	}
	delete(s.issued, state)
	return s.now().Sub(issuedAt) <= s.ttl
}

// Sweep drops every expired state.
func (s *StateStore) Sweep() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sweepLocked(s.now())
}

// Len returns the number of pending states, including expired ones not yet swept.
func (s *StateStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.issued)
}

func (s *StateStore) sweepLocked(now time.Time) {
	for state, issuedAt := range s.issued {
		if now.Sub(issuedAt) > s.ttl {
			delete(s.issued, state)
		}
	}
}
