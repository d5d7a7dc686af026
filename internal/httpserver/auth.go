package httpserver

import (
	"context"
	"net/http"
	"strings"
)

const unauthorizedMsg = "Unauthorized. Please login to receive an updated token."

// ctxUsernameKey is the context key for the authenticated username.
type ctxUsernameKey struct{}

// bearerToken extracts the token from "Authorization: Bearer <token>".
// Returns "" when the header is missing or not a bearer credential.
func bearerToken(r *http.Request) string {
	a := r.Header.Get("Authorization")
	if !strings.HasPrefix(strings.ToLower(a), "bearer ") {
		return ""
	}
	return strings.TrimSpace(a[len("bearer "):])
}

// requireAuth verifies the bearer token and injects the resolved
// username into the request context. A missing or malformed header is
// rejected the same way as an invalid token: 401, never a fault.
func (s *Server) requireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		tok := bearerToken(r)
		if tok == "" {
			respondErr(w, http.StatusUnauthorized, unauthorizedMsg)
			return
		}
		username, err := s.tokens.Verify(tok)
		if err != nil {
			respondErr(w, http.StatusUnauthorized, unauthorizedMsg)
			return
		}
		ctx := context.WithValue(r.Context(), ctxUsernameKey{}, username)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// authedUsername returns the username placed in context by requireAuth.
func authedUsername(r *http.Request) string {
	u, _ := r.Context().Value(ctxUsernameKey{}).(string)
	return u
}
