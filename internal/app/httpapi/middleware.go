package httpapi

import (
	"crypto/subtle"
	"fmt"
	"net/http"
	"strings"
)

// WithAuth guards the API behind static bearer tokens. /healthz stays open
// for probes; an empty token list disables the check entirely.
func WithAuth(next http.Handler, tokens []string) http.Handler {
	if len(tokens) == 0 {
		return next
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/healthz" {
			next.ServeHTTP(w, r)
			return
		}

		supplied := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
		for _, token := range tokens {
			if subtle.ConstantTimeCompare([]byte(supplied), []byte(token)) == 1 {
				next.ServeHTTP(w, r)
				return
			}
		}
		writeError(w, http.StatusUnauthorized, fmt.Errorf("invalid or missing bearer token"))
	})
}
