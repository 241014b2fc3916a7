package handlers

import (
	"errors"
	"html/template"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"

	"mt5bridge/internal/auth"
	"mt5bridge/internal/middleware"
	"mt5bridge/internal/mt5"
	"mt5bridge/internal/services"
)

const maxServerLength = 100

// AuthHandler handles the terminal login and logout flows.
type AuthHandler struct {
	templates      map[string]*template.Template
	sessionManager *auth.SessionManager
	audit          *services.AuditService
	newClient      ClientFactory
}

// NewAuthHandler creates a new AuthHandler.
func NewAuthHandler(
	templates map[string]*template.Template,
	sessionManager *auth.SessionManager,
	audit *services.AuditService,
	newClient ClientFactory,
) *AuthHandler {
	return &AuthHandler{
		templates:      templates,
		sessionManager: sessionManager,
		audit:          audit,
		newClient:      newClient,
	}
}

// LoginPage renders the login form.
func (h *AuthHandler) LoginPage(w http.ResponseWriter, r *http.Request) {
	render(w, h.templates, "login.html", map[string]any{
		"Title":       "Login",
		"LoginValue":  "",
		"ServerValue": "",
	})
}

// Login handles the login form submission. Validation failures redisplay
// the form without any network call; issuer failures redisplay it with the
// issuer's message.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		h.renderLoginError(w, "Invalid form data", nil)
		return
	}

	loginValue := strings.TrimSpace(r.FormValue("login"))
	password := r.FormValue("password")
	server := strings.TrimSpace(r.FormValue("server"))

	fieldErrors := make(map[string]string)
	login, err := strconv.ParseInt(loginValue, 10, 64)
	if loginValue == "" || err != nil || login <= 0 {
		fieldErrors["login"] = "Login must be a positive account number"
	}
	if password == "" {
		fieldErrors["password"] = "Password is required"
	}
	if server == "" {
		fieldErrors["server"] = "Server is required"
	} else if len(server) > maxServerLength {
		fieldErrors["server"] = "Server must be at most 100 characters"
	}

	if len(fieldErrors) > 0 {
		render(w, h.templates, "login.html", map[string]any{
			"Title":       "Login",
			"FieldErrors": fieldErrors,
			"LoginValue":  loginValue,
			"ServerValue": server,
		})
		return
	}

	client := h.newClient()
	result, err := client.Login(login, password, server)
	if err != nil {
		h.audit.Record(services.AuditLoginFailed, login, loginErrorDetail(err))

		var apiErr *mt5.APIError
		if errors.As(err, &apiErr) {
			h.renderLoginError(w, "Error: "+apiErr.Message, map[string]string{
				"login": loginValue, "server": server,
			})
			return
		}
		log.Printf("Login call failed for account %d: %v", login, err)
		h.renderLoginError(w, "Error: connection error with the API", map[string]string{
			"login": loginValue, "server": server,
		})
		return
	}

	mirror, err := h.sessionManager.Create(auth.Mirror{
		Authenticated:  true,
		Token:          client.Token(),
		TokenExpiresAt: client.ExpiresAt(),
		Login:          login,
		Server:         server,
		AccountInfo:    result.AccountInfo,
	})
	if err != nil {
		log.Printf("Login error creating session: %v", err)
		h.renderLoginError(w, "An error occurred. Please try again.", nil)
		return
	}

	middleware.SetSessionCookie(w, mirror.ID, int(time.Until(mirror.ExpiresAt).Seconds()))
	h.audit.Record(services.AuditLoginSuccess, login, "server="+server)

	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// Logout closes the issuer session best effort and clears the mirror.
// Errors from the issuer call are swallowed: logout always succeeds
// locally.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	mirror := middleware.GetMirror(r)
	if mirror != nil {
		if mirror.Authenticated {
			client := h.newClient()
			client.Restore(mirror.Token, mirror.TokenExpiresAt)
			if err := client.Logout(); err != nil {
				log.Printf("Issuer logout failed: %v", err)
			}
			h.audit.Record(services.AuditLogout, mirror.Login, "")
		}
		if err := h.sessionManager.Delete(mirror.ID); err != nil {
			log.Printf("Logout error deleting session: %v", err)
		}
	}

	middleware.ClearSessionCookie(w)
	http.Redirect(w, r, "/login", http.StatusSeeOther)
}

// renderLoginError renders the login page with an error message.
func (h *AuthHandler) renderLoginError(w http.ResponseWriter, errMsg string, values map[string]string) {
	data := map[string]any{
		"Title":       "Login",
		"Error":       errMsg,
		"LoginValue":  values["login"],
		"ServerValue": values["server"],
	}
	render(w, h.templates, "login.html", data)
}

// loginErrorDetail summarizes a login failure for the audit log without
// leaking credentials.
func loginErrorDetail(err error) string {
	var apiErr *mt5.APIError
	if errors.As(err, &apiErr) {
		return "status=" + strconv.Itoa(apiErr.StatusCode)
	}
	return "connection_error"
}
