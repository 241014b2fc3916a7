package issuer

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"
)

// Auth error codes returned by the bearer-token gate.
const (
	codeTokenMissing   = "token_missing"
	codeMalformedToken = "malformed_token"
	codeTokenInvalid   = "token_invalid"
	codeSessionExpired = "session_expired"
)

// unexported, collision-proof context key
type sessionContextKeyType struct{}

var sessionKey = sessionContextKeyType{}

// SessionFromContext extracts the authenticated session from the context.
func SessionFromContext(ctx context.Context) (*Session, bool) {
	s, ok := ctx.Value(sessionKey).(*Session)
	return s, ok
}

// AuthMiddleware gates protected routes on a valid bearer token.
type AuthMiddleware struct {
	codec   *TokenCodec
	store   Store
	timeout time.Duration
}

// NewAuthMiddleware creates an AuthMiddleware.
func NewAuthMiddleware(codec *TokenCodec, store Store, timeout time.Duration) *AuthMiddleware {
	return &AuthMiddleware{
		codec:   codec,
		store:   store,
		timeout: timeout,
	}
}

// RequireAuth verifies the Authorization header, cross-references the
// session table and renews the session before invoking the wrapped handler.
// Renewal happens on every successful authenticated call, so expiry is a
// sliding window.
func (a *AuthMiddleware) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		if header == "" {
			writeError(w, http.StatusUnauthorized, codeTokenMissing)
			return
		}

		parts := strings.Split(header, " ")
		if len(parts) != 2 || parts[0] != "Bearer" || parts[1] == "" {
			writeError(w, http.StatusUnauthorized, codeMalformedToken)
			return
		}

		claims, err := a.codec.Verify(parts[1])
		if err != nil {
			writeError(w, http.StatusUnauthorized, codeTokenInvalid)
			return
		}

		// A valid token for a session that has been logged out or evicted
		// is rejected: the table is the authority.
		session, err := a.store.Renew(claims.SessionID, a.timeout)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "internal_error")
			return
		}
		if session == nil {
			writeError(w, http.StatusUnauthorized, codeSessionExpired)
			return
		}

		ctx := context.WithValue(r.Context(), sessionKey, session)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, status int, code string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": code})
}
