// Package middleware holds HTTP middleware shared by the gateway routes.
package middleware

import (
	"crypto/subtle"
	"net/http"
	"strings"
)

// APIKeyAuth requires expectedKey as a bearer token or in x-api-key. An
// empty expectedKey disables the check.
func APIKeyAuth(expectedKey string) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if expectedKey == "" {
				next.ServeHTTP(w, r)
				return
			}

			// Check Authorization header (Bearer token)
			if authHeader := r.Header.Get("Authorization"); strings.HasPrefix(authHeader, "Bearer ") {
				if keyMatches(strings.TrimPrefix(authHeader, "Bearer "), expectedKey) {
					next.ServeHTTP(w, r)
					return
				}
			}

			// Check x-api-key header (alternative)
			if keyMatches(r.Header.Get("x-api-key"), expectedKey) {
				next.ServeHTTP(w, r)
				return
			}

			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusUnauthorized)
			w.Write([]byte(`{"error": {"message": "Invalid API key", "type": "authentication_error"}}`))
		})
	}
}

func keyMatches(got, expected string) bool {
	return got != "" && subtle.ConstantTimeCompare([]byte(got), []byte(expected)) == 1
}
