package handlers

import (
	"encoding/json"
	"html/template"
	"log"
	"net/http"

	"mt5bridge/internal/auth"
	"mt5bridge/internal/middleware"
	"mt5bridge/internal/mt5"
)

// DashboardHandler handles the protected dashboard.
type DashboardHandler struct {
	templates      map[string]*template.Template
	sessionManager *auth.SessionManager
	newClient      ClientFactory
}

// NewDashboardHandler creates a new DashboardHandler.
func NewDashboardHandler(
	templates map[string]*template.Template,
	sessionManager *auth.SessionManager,
	newClient ClientFactory,
) *DashboardHandler {
	return &DashboardHandler{
		templates:      templates,
		sessionManager: sessionManager,
		newClient:      newClient,
	}
}

// Dashboard renders the dashboard: live positions from the issuer next to
// the account snapshot cached at login time (not re-fetched).
//
// A failed downstream auth is treated as authoritative: the mirror is
// cleared and the user is sent back to login instead of trusting the local
// authenticated flag.
func (h *DashboardHandler) Dashboard(w http.ResponseWriter, r *http.Request) {
	mirror := middleware.GetMirror(r)
	if mirror == nil || !mirror.Authenticated {
		http.Redirect(w, r, "/login", http.StatusSeeOther)
		return
	}

	client := h.newClient()
	client.Restore(mirror.Token, mirror.TokenExpiresAt)

	positions, err := client.GetPositions(0)
	var positionsError string
	if err != nil {
		if mt5.IsAuthError(err) {
			if delErr := h.sessionManager.Delete(mirror.ID); delErr != nil {
				log.Printf("Error clearing stale session: %v", delErr)
			}
			middleware.ClearSessionCookie(w)
			http.Redirect(w, r, "/login", http.StatusSeeOther)
			return
		}
		log.Printf("Error fetching positions: %v", err)
		positionsError = "Could not load positions. Please try again."
	}

	// Cached snapshot from login time; shown as-is.
	var accountInfo map[string]any
	if len(mirror.AccountInfo) > 0 {
		if err := json.Unmarshal(mirror.AccountInfo, &accountInfo); err != nil {
			log.Printf("Error decoding cached account info: %v", err)
		}
	}

	render(w, h.templates, "dashboard.html", map[string]any{
		"Title":          "Dashboard",
		"Login":          mirror.Login,
		"Server":         mirror.Server,
		"AccountInfo":    accountInfo,
		"Positions":      positions,
		"PositionsError": positionsError,
	})
}
