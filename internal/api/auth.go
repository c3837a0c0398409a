package api

import (
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// sessionTTL bounds how long a login token stays valid.
const sessionTTL = 24 * time.Hour

type session struct {
	userID    string
	expiresAt time.Time
}

// sessionStore holds bearer tokens in memory. Tokens do not survive a
// restart; clients log in again.
type sessionStore struct {
	mu sync.Mutex
	m  map[string]session
	// now is swapped out in tests.
	now func() time.Time
}

func newSessionStore() *sessionStore {
	return &sessionStore{m: make(map[string]session), now: time.Now}
}

func (ss *sessionStore) issue(userID string) string {
	token := uuid.NewString()
	ss.mu.Lock()
	defer ss.mu.Unlock()
	ss.m[token] = session{userID: userID, expiresAt: ss.now().Add(sessionTTL)}
	return token
}

func (ss *sessionStore) lookup(token string) (string, bool) {
	ss.mu.Lock()
	defer ss.mu.Unlock()
	sess, ok := ss.m[token]
	if !ok {
		return "", false
	}
	if ss.now().After(sess.expiresAt) {
		delete(ss.m, token)
		return "", false
	}
	return sess.userID, true
}

// requireAuth resolves the bearer token to a user ID and passes it to
// the handler. Every data access downstream is scoped by that ID.
func (s *Server) requireAuth(next func(http.ResponseWriter, *http.Request, string)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || token == "" {
			writeError(w, http.StatusUnauthorized, "missing bearer token", s.logger)
			return
		}
		userID, ok := s.sessions.lookup(token)
		if !ok {
			writeError(w, http.StatusUnauthorized, "invalid or expired token", s.logger)
			return
		}
		next(w, r, userID)
	}
}
