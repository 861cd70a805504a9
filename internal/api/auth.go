package api

import (
	"crypto/subtle"
	"log"
	"net/http"
	"strings"
)

// tokensEqual compares secrets in constant time.
func tokensEqual(got, want string) bool {
	return subtle.ConstantTimeCompare([]byte(got), []byte(want)) == 1
}

// bearerToken extracts the token from an "Authorization: Bearer <token>"
// header.
func bearerToken(r *http.Request) string {
	h := r.Header.Get("Authorization")
	const prefix = "Bearer "
	if len(h) < len(prefix) || !strings.EqualFold(h[:len(prefix)], prefix) {
		return ""
	}
	return strings.TrimSpace(h[len(prefix):])
}

// AdminAuth guards mutating admin routes with a static bearer token. An
// empty token disables the check.
func AdminAuth(token string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if token == "" {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !tokensEqual(bearerToken(r), token) {
				log.Printf("🔐 Admin request rejected from %s: %s %s", GetClientIP(r), r.Method, r.URL.Path)
				RecordConnectionRejected("auth")
				w.Header().Set("WWW-Authenticate", `Bearer realm="horde"`)
				writeError(w, "Unauthorized", http.StatusUnauthorized)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
