package auth

import (
	"net/http"
	"strings"

	"fxledger/internal/log"
)

func extractToken(r *http.Request) string {
	if h := r.Header.Get("Authorization"); len(h) > 7 && strings.EqualFold(h[:7], "Bearer ") {
		return strings.TrimSpace(h[7:])
	}
	if cookie, err := r.Cookie("token"); err == nil {
		return cookie.Value
	}
	return ""
}

// Middleware attaches the owner id of a valid bearer token to the request
// context. Requests without a valid token pass through anonymously; the
// ledger decides whether identity is required.
func Middleware(v *Verifier) func(http.Handler) http.Handler {
	logger := log.Component(log.ComponentAuth)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := extractToken(r)
			if token == "" {
				next.ServeHTTP(w, r)
				return
			}
			claims, err := v.ParseAndValidate(token)
			if err != nil {
				logger.DebugContext(r.Context(), "Rejected bearer token",
					log.FieldPath, r.URL.Path,
					log.FieldErrorType, log.ErrorTypeAuth)
				next.ServeHTTP(w, r)
				return
			}
			next.ServeHTTP(w, r.WithContext(WithOwner(r.Context(), claims.Subject)))
		})
	}
}
