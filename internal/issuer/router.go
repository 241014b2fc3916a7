package issuer

import (
	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"mt5bridge/internal/middleware"
)

// NewRouter assembles the issuer's HTTP surface.
func NewRouter(h *Handler, auth *AuthMiddleware) *chi.Mux {
	r := chi.NewRouter()

	r.Use(chimw.Logger)
	r.Use(chimw.Recoverer)
	r.Use(chimw.RealIP)
	r.Use(chimw.RequestID)

	r.Get("/health", h.Health)

	// Login is rate limited to slow down credential guessing.
	r.Group(func(r chi.Router) {
		r.Use(middleware.LimitAuth)
		r.Post("/login", h.Login)
	})

	// Everything else requires a valid bearer token; the gate renews the
	// session on every pass.
	r.Group(func(r chi.Router) {
		r.Use(auth.RequireAuth)
		r.Post("/logout", h.Logout)
		r.Get("/session", h.SessionInfo)
		r.Get("/account_info", h.AccountInfo)
		r.Get("/get_positions", h.Positions)
		r.Get("/symbol_info/{symbol}", h.SymbolInfo)
		r.Get("/fetch_data_pos", h.MarketData)
		r.Post("/order", h.PlaceOrder)
		r.Post("/close_position", h.ClosePosition)
	})

	return r
}
