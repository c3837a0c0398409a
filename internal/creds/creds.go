// Package creds resolves per-user LLM API keys. Keys submitted through
// the API live only in memory and expire after a fixed TTL; a key set in
// the server environment takes precedence for every user.
package creds

import (
	"os"
	"sync"
	"time"
)

// DefaultTTL is how long a submitted key stays usable.
const DefaultTTL = 60 * time.Minute

// EnvVars maps a provider name to the environment variable holding a
// server-wide key for it.
var EnvVars = map[string]string{
	"openai":    "OPENAI_API_KEY",
	"anthropic": "ANTHROPIC_API_KEY",
	"gemini":    "GEMINI_API_KEY",
}

type entry struct {
	key       string
	expiresAt time.Time
}

// Store holds ephemeral API keys keyed by user ID.
type Store struct {
	mu  sync.Mutex
	ttl time.Duration
	m   map[string]entry
	now func() time.Time
}

// NewStore creates a store with the given TTL; ttl <= 0 uses DefaultTTL.
func NewStore(ttl time.Duration) *Store {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Store{ttl: ttl, m: make(map[string]entry), now: time.Now}
}

// Set stores a key for the user, replacing any previous one and
// restarting the TTL.
func (s *Store) Set(userID, key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.m[userID] = entry{key: key, expiresAt: s.now().Add(s.ttl)}
}

// Resolve returns the API key to use for the user with the given
// provider. The provider's environment variable wins; otherwise the
// user's ephemeral key is returned if it has not expired. Expired
// entries are evicted on read. ok is false when no key is available.
func (s *Store) Resolve(userID, provider string) (key string, ok bool) {
	if env := EnvVars[provider]; env != "" {
		if v := os.Getenv(env); v != "" {
			return v, true
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	e, found := s.m[userID]
	if !found {
		return "", false
	}
	if s.now().After(e.expiresAt) {
		delete(s.m, userID)
		return "", false
	}
	return e.key, true
}

// Clear removes the user's ephemeral key, if any.
func (s *Store) Clear(userID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.m, userID)
}
