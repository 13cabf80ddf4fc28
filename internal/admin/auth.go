// internal/admin/auth.go
package admin

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"net/http"
	"strings"
)

const (
	CookieName   = "admin_auth"
	cookiePath   = "/admin"
	cookieMaxAge = 60 * 60 * 2 // 2 hours
)

// Access is the outcome of checking a request's admin credentials.
type Access struct {
	Ready      bool // a password is configured
	Authorized bool
}

// Authenticator checks the shared admin password. With no password
// configured the admin surface is disabled.
type Authenticator struct {
	expectedHash string
}

func NewAuthenticator(password string) *Authenticator {
	password = strings.TrimSpace(password)
	if password == "" {
		return &Authenticator{}
	}
	return &Authenticator{expectedHash: hashValue(password)}
}

func hashValue(value string) string {
	sum := sha256.Sum256([]byte(value))
	return hex.EncodeToString(sum[:])
}

func (a *Authenticator) Ready() bool {
	return a.expectedHash != ""
}

func (a *Authenticator) matches(value string) bool {
	return subtle.ConstantTimeCompare([]byte(value), []byte(a.expectedHash)) == 1
}

// ValidatePassword compares a login attempt with the configured password.
func (a *Authenticator) ValidatePassword(input string) bool {
	if !a.Ready() {
		return false
	}
	return a.matches(hashValue(strings.TrimSpace(input)))
}

// Check reads the admin cookie from r.
func (a *Authenticator) Check(r *http.Request) Access {
	if !a.Ready() {
		return Access{}
	}
	c, err := r.Cookie(CookieName)
	if err != nil {
		return Access{Ready: true}
	}
	return Access{Ready: true, Authorized: a.matches(c.Value)}
}

// SetCookie marks the browser as logged in for two hours.
func (a *Authenticator) SetCookie(w http.ResponseWriter) {
	if !a.Ready() {
		return
	}
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    a.expectedHash,
		Path:     cookiePath,
		MaxAge:   cookieMaxAge,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}

func (a *Authenticator) ClearCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    "",
		Path:     cookiePath,
		MaxAge:   -1,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}
