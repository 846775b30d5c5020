// Package csrf protects state-changing requests with the double-submit
// cookie pattern.
package csrf

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/hex"
	"log/slog"
	"net/http"
)

const (
	DefaultCookieName = "csrf_token"
	DefaultHeaderName = "X-CSRF-Token"
	tokenLen          = 32
)

// Guard issues a token cookie on safe requests and requires unsafe requests
// to echo it back in a header.
type Guard struct {
	CookieName string
	HeaderName string
	// Secure marks the cookie Secure; set it when served over TLS.
	Secure bool
}

func New() *Guard {
	return &Guard{CookieName: DefaultCookieName, HeaderName: DefaultHeaderName}
}

func generateToken() (string, error) {
	b := make([]byte, tokenLen)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

func safeMethod(m string) bool {
	switch m {
	case http.MethodGet, http.MethodHead, http.MethodOptions:
		return true
	}
	return false
}

func (g *Guard) Protect(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if safeMethod(r.Method) {
			if c, err := r.Cookie(g.CookieName); err != nil || c.Value == "" {
				token, err := generateToken()
				if err != nil {
					slog.Error("csrf token generation failed", "error", err)
					http.Error(w, "internal error", http.StatusInternalServerError)
					return
				}
				http.SetCookie(w, &http.Cookie{
					Name:     g.CookieName,
					Value:    token,
					Path:     "/",
					Secure:   g.Secure,
					SameSite: http.SameSiteStrictMode,
				})
			}
			next.ServeHTTP(w, r)
			return
		}

		cookie, err := r.Cookie(g.CookieName)
		if err != nil || cookie.Value == "" {
			http.Error(w, "forbidden: missing CSRF token", http.StatusForbidden)
			return
		}
		header := r.Header.Get(g.HeaderName)
		if header == "" || subtle.ConstantTimeCompare([]byte(header), []byte(cookie.Value)) != 1 {
			http.Error(w, "forbidden: invalid CSRF token", http.StatusForbidden)
			return
		}
		next.ServeHTTP(w, r)
	})
}
