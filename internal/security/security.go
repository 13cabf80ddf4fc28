// internal/security/security.go
package security

import (
	"crypto/rand"
	"encoding/base64"
	"net/http"
	"sync"
	"time"

	"pixelverk/internal/logger"
	"pixelverk/internal/middleware"
)

// DefaultCSRFTokenTTL is how long an issued form token stays valid
const DefaultCSRFTokenTTL = time.Hour

// MaxCSRFTokens bounds the number of outstanding tokens. Issuing past the
// limit evicts the token closest to expiry.
const MaxCSRFTokens = 1024

// CSRFStore issues single-use form tokens. Expired tokens are dropped
// whenever a new token is issued.
type CSRFStore struct {
	mu     sync.Mutex
	tokens map[string]time.Time
	ttl    time.Duration
	limit  int
	now    func() time.Time
}

func NewCSRFStore(ttl time.Duration) *CSRFStore {
	if ttl <= 0 {
		ttl = DefaultCSRFTokenTTL
	}
	return &CSRFStore{
		tokens: make(map[string]time.Time),
		ttl:    ttl,
		limit:  MaxCSRFTokens,
		now:    time.Now,
	}
}

// Generate creates and remembers a new token.
func (s *CSRFStore) Generate() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	token := base64.RawURLEncoding.EncodeToString(b)

	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	for t, expiry := range s.tokens {
		if now.After(expiry) {
			delete(s.tokens, t)
		}
	}
	for len(s.tokens) >= s.limit {
		s.evictOldest()
	}
	s.tokens[token] = now.Add(s.ttl)
	return token, nil
}

func (s *CSRFStore) evictOldest() {
	var oldest string
	var expiry time.Time
	for t, exp := range s.tokens {
		if oldest == "" || exp.Before(expiry) {
			oldest, expiry = t, exp
		}
	}
	delete(s.tokens, oldest)
}

// Validate consumes token and reports whether it was issued and unexpired.
func (s *CSRFStore) Validate(token string) bool {
	if token == "" {
		return false
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	expiry, ok := s.tokens[token]
	if !ok {
		return false
	}
	delete(s.tokens, token)
	return !s.now().After(expiry)
}

// TokenHandler hands out a fresh token as {"csrf_token": "..."}.
func (s *CSRFStore) TokenHandler(w http.ResponseWriter, r *http.Request) {
	token, err := s.Generate()
	if err != nil {
		logger.LogHTTPError(r, http.StatusInternalServerError, err)
		middleware.WriteAPIError(w, r, http.StatusInternalServerError, "csrf_unavailable",
			"Could not issue a form token", "")
		return
	}
	middleware.WriteJSON(w, http.StatusOK, map[string]string{"csrf_token": token})
}
