package middleware

import (
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"mt5bridge/internal/auth"
	"mt5bridge/internal/database"
)

func setupAuthMiddleware(t *testing.T) (*AuthMiddleware, *auth.SessionManager) {
	t.Helper()

	db, err := database.New(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("database.New() error = %v", err)
	}
	t.Cleanup(func() { db.Close() })
	if err := db.RunMigrations(); err != nil {
		t.Fatalf("RunMigrations() error = %v", err)
	}

	enc, err := auth.NewEncryptor("test-secret-that-is-long-enough!")
	if err != nil {
		t.Fatalf("NewEncryptor() error = %v", err)
	}
	sm := auth.NewSessionManager(db, enc)
	return NewAuthMiddleware(sm), sm
}

func mirrorProbe(got **auth.Mirror) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		*got = GetMirror(r)
		w.WriteHeader(http.StatusOK)
	})
}

func TestLoadSession_ValidCookie_MirrorInContext(t *testing.T) {
	mw, sm := setupAuthMiddleware(t)

	created, err := sm.Create(auth.Mirror{
		Authenticated:  true,
		Token:          "issued-token",
		TokenExpiresAt: time.Now().Add(30 * time.Minute),
		Login:          111,
	})
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	var loaded *auth.Mirror
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: SessionCookieName, Value: created.ID})
	rec := httptest.NewRecorder()
	mw.LoadSession(mirrorProbe(&loaded)).ServeHTTP(rec, req)

	if loaded == nil {
		t.Fatal("mirror not loaded into context")
	}
	if loaded.Login != 111 || loaded.Token != "issued-token" {
		t.Errorf("mirror = %+v", loaded)
	}
}

func TestLoadSession_UnknownCookie_ClearedAndContinues(t *testing.T) {
	mw, _ := setupAuthMiddleware(t)

	var loaded *auth.Mirror
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: SessionCookieName, Value: "missing"})
	rec := httptest.NewRecorder()
	mw.LoadSession(mirrorProbe(&loaded)).ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200 passthrough", rec.Code)
	}
	if loaded != nil {
		t.Error("mirror loaded for an unknown cookie")
	}

	cleared := false
	for _, c := range rec.Result().Cookies() {
		if c.Name == SessionCookieName && c.MaxAge == -1 {
			cleared = true
		}
	}
	if !cleared {
		t.Error("dangling cookie not cleared")
	}
}

func TestLoadSession_NoCookie_Passthrough(t *testing.T) {
	mw, _ := setupAuthMiddleware(t)

	var loaded *auth.Mirror
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	mw.LoadSession(mirrorProbe(&loaded)).ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if loaded != nil {
		t.Error("mirror loaded without a cookie")
	}
}

func TestRequireAuth_NoMirror_RedirectsLogin(t *testing.T) {
	mw, _ := setupAuthMiddleware(t)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	mw.RequireAuth(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("handler reached without authentication")
	})).ServeHTTP(rec, req)

	if rec.Code != http.StatusSeeOther {
		t.Fatalf("status = %d, want 303", rec.Code)
	}
	if loc := rec.Header().Get("Location"); loc != "/login" {
		t.Errorf("Location = %q, want /login", loc)
	}
}

func TestRequireAuth_AuthenticatedMirror_Passes(t *testing.T) {
	mw, sm := setupAuthMiddleware(t)

	created, err := sm.Create(auth.Mirror{
		Authenticated:  true,
		Token:          "issued-token",
		TokenExpiresAt: time.Now().Add(30 * time.Minute),
	})
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: SessionCookieName, Value: created.ID})
	rec := httptest.NewRecorder()

	reached := false
	handler := mw.LoadSession(mw.RequireAuth(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reached = true
		w.WriteHeader(http.StatusOK)
	})))
	handler.ServeHTTP(rec, req)

	if !reached {
		t.Error("authenticated request did not reach the handler")
	}
}

func TestRedirectIfAuthenticated_LoggedIn_GoesToDashboard(t *testing.T) {
	mw, sm := setupAuthMiddleware(t)

	created, err := sm.Create(auth.Mirror{
		Authenticated:  true,
		Token:          "issued-token",
		TokenExpiresAt: time.Now().Add(30 * time.Minute),
	})
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/login", nil)
	req.AddCookie(&http.Cookie{Name: SessionCookieName, Value: created.ID})
	rec := httptest.NewRecorder()

	handler := mw.LoadSession(mw.RedirectIfAuthenticated(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("login page served to an authenticated user")
	})))
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusSeeOther {
		t.Fatalf("status = %d, want 303", rec.Code)
	}
	if loc := rec.Header().Get("Location"); loc != "/" {
		t.Errorf("Location = %q, want /", loc)
	}
}

func TestRedirectIfAuthenticated_Anonymous_ServesPage(t *testing.T) {
	mw, _ := setupAuthMiddleware(t)

	req := httptest.NewRequest(http.MethodGet, "/login", nil)
	rec := httptest.NewRecorder()
	mw.RedirectIfAuthenticated(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})).ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", rec.Code)
	}
}
