package middleware

import (
	"crypto/subtle"
	"net/http"
	"strings"
)

// Auth guards every /v1/ route with a static bearer token. An empty token
// disables the check.
func Auth(requiredToken string) func(http.Handler) http.Handler {
	expected := []byte(strings.TrimSpace(requiredToken))
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if len(expected) == 0 || !strings.HasPrefix(r.URL.Path, "/v1/") {
				next.ServeHTTP(w, r)
				return
			}

			const prefix = "Bearer "
			authorization := r.Header.Get("Authorization")
			if !strings.HasPrefix(authorization, prefix) {
				WriteError(w, r, http.StatusUnauthorized, "unauthorized", "authentication required")
				return
			}
			token := []byte(strings.TrimSpace(strings.TrimPrefix(authorization, prefix)))
			if subtle.ConstantTimeCompare(token, expected) != 1 {
				WriteError(w, r, http.StatusUnauthorized, "unauthorized", "authentication required")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
