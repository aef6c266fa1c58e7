package middleware

import (
	"net/http"
	"strings"

	"dptmirror/internal/auth"
	"dptmirror/internal/httputil"
)

// RequireAuth rejects requests without a valid bearer token. With a nil
// verifier the middleware is a pass-through, which is how the server runs
// when no JWKS URL is configured.
func RequireAuth(verifier auth.Verifier) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if verifier == nil {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			token, ok := strings.CutPrefix(header, "Bearer ")
			if !ok || token == "" {
				httputil.RespondError(w, http.StatusUnauthorized, "missing bearer token")
				return
			}

			if _, err := verifier.VerifyToken(token); err != nil {
				httputil.RespondError(w, http.StatusUnauthorized, "invalid token")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
