// Package middleware provides HTTP middleware for the web backend.
package middleware

import (
	"context"
	"net/http"

	"mt5bridge/internal/auth"
)

// ContextKey is a type for context keys to avoid collisions.
type ContextKey string

const (
	// MirrorContextKey is the context key for the loaded session mirror.
	MirrorContextKey ContextKey = "mirror"

	// SessionCookieName is the name of the session cookie.
	SessionCookieName = "session_id"
)

// AuthMiddleware handles authentication for protected routes.
type AuthMiddleware struct {
	sessionManager *auth.SessionManager
}

// NewAuthMiddleware creates a new AuthMiddleware.
func NewAuthMiddleware(sm *auth.SessionManager) *AuthMiddleware {
	return &AuthMiddleware{sessionManager: sm}
}

// LoadSession loads the session mirror from the session cookie, if present.
// It does not require authentication - just loads the mirror if present.
func (m *AuthMiddleware) LoadSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		cookie, err := r.Cookie(SessionCookieName)
		if err != nil || cookie.Value == "" {
			next.ServeHTTP(w, r)
			return
		}

		mirror, err := m.sessionManager.Get(cookie.Value)
		if err != nil || mirror == nil {
			// Invalid or expired session, clear the cookie
			clearSessionCookie(w)
			next.ServeHTTP(w, r)
			return
		}

		ctx := context.WithValue(r.Context(), MirrorContextKey, mirror)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RequireAuth redirects to the login page unless the mirror's authenticated
// flag is set. The check is purely local: it does not re-validate against
// the issuer, so an issuer-side revocation only surfaces when a downstream
// call fails.
func (m *AuthMiddleware) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mirror := GetMirror(r)
		if mirror == nil || !mirror.Authenticated {
			http.Redirect(w, r, "/login", http.StatusSeeOther)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// RedirectIfAuthenticated redirects to the dashboard if already logged in.
// Used for the login page.
func (m *AuthMiddleware) RedirectIfAuthenticated(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mirror := GetMirror(r)
		if mirror != nil && mirror.Authenticated {
			http.Redirect(w, r, "/", http.StatusSeeOther)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// GetMirror retrieves the loaded session mirror from the request context.
// Returns nil if no mirror is loaded.
func GetMirror(r *http.Request) *auth.Mirror {
	mirror, ok := r.Context().Value(MirrorContextKey).(*auth.Mirror)
	if !ok {
		return nil
	}
	return mirror
}

// SetSessionCookie sets the session cookie.
func SetSessionCookie(w http.ResponseWriter, sessionID string, maxAge int) {
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookieName,
		Value:    sessionID,
		Path:     "/",
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   false, // Set to true in production with HTTPS
		SameSite: http.SameSiteLaxMode,
	})
}

// clearSessionCookie clears the session cookie.
func clearSessionCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
	})
}

// ClearSessionCookie is the exported version for use in handlers.
func ClearSessionCookie(w http.ResponseWriter) {
	clearSessionCookie(w)
}
