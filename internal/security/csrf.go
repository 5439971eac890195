package security

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/noah-isme/forneria-pos/internal/common"
)

// CSRF protects the terminal's write endpoints with the double-submit
// technique: a token cookie is issued on safe requests and every write must
// echo it in a header.
type CSRF struct {
	Cookie string
	Header string
	Secure bool
}

func (c CSRF) names() (cookie, header string) {
	cookie = strings.TrimSpace(c.Cookie)
	if cookie == "" {
		cookie = "csrftoken"
	}
	header = strings.TrimSpace(c.Header)
	if header == "" {
		header = "X-CSRFToken"
	}
	return cookie, header
}

// Middleware issues the token cookie when missing and enforces that
// non-idempotent requests echo it.
func (c CSRF) Middleware(next http.Handler) http.Handler {
	cookieName, headerName := c.names()

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		existing := ""
		if ck, err := r.Cookie(cookieName); err == nil {
			existing = strings.TrimSpace(ck.Value)
		}

		if safeMethod(r.Method) {
			if existing == "" {
				http.SetCookie(w, &http.Cookie{
					Name:     cookieName,
					Value:    uuid.NewString(),
					Path:     "/",
					SameSite: http.SameSiteStrictMode,
					Secure:   c.Secure,
				})
			}
			next.ServeHTTP(w, r)
			return
		}

		token := strings.TrimSpace(r.Header.Get(headerName))
		if token == "" {
			common.JSONError(w, http.StatusForbidden, "CSRF_FAILED", "missing csrf token", nil)
			return
		}
		if existing == "" {
			common.JSONError(w, http.StatusForbidden, "CSRF_FAILED", "missing csrf cookie", nil)
			return
		}
		if subtle.ConstantTimeCompare([]byte(token), []byte(existing)) != 1 {
			common.JSONError(w, http.StatusForbidden, "CSRF_FAILED", "invalid csrf token", nil)
			return
		}

		next.ServeHTTP(w, r)
	})
}

func safeMethod(method string) bool {
	switch method {
	case http.MethodGet, http.MethodHead, http.MethodOptions, http.MethodTrace:
		return true
	}
	return false
}
