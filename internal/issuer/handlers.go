package issuer

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"mt5bridge/internal/terminal"
)

// Handler holds the issuer's HTTP handlers.
type Handler struct {
	store   Store
	codec   *TokenCodec
	term    terminal.Terminal
	timeout time.Duration
}

// NewHandler creates a new Handler.
func NewHandler(store Store, codec *TokenCodec, term terminal.Terminal, timeout time.Duration) *Handler {
	return &Handler{
		store:   store,
		codec:   codec,
		term:    term,
		timeout: timeout,
	}
}

type loginRequest struct {
	Login    int64  `json:"login"`
	Password string `json:"password"`
	Server   string `json:"server"`
}

// Login authenticates against the terminal and mints a session token.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "login, password and server are required")
		return
	}
	if req.Login == 0 || req.Password == "" || req.Server == "" {
		writeError(w, http.StatusBadRequest, "login, password and server are required")
		return
	}

	accountInfo, err := h.term.Connect(req.Login, req.Password, req.Server)
	if err != nil {
		var termErr *terminal.Error
		if errors.As(err, &termErr) {
			// The password never reaches the log.
			log.Printf("Terminal login failed for account %d: code %d", req.Login, termErr.Code)
			writeJSON(w, http.StatusUnauthorized, map[string]any{
				"error": "invalid credentials or connection error",
				"code":  termErr.Code,
			})
			return
		}
		log.Printf("Terminal login error for account %d: %v", req.Login, err)
		writeError(w, http.StatusInternalServerError, "internal_error")
		return
	}

	sessionID, err := GenerateSessionID()
	if err != nil {
		log.Printf("Session ID generation failed: %v", err)
		writeError(w, http.StatusInternalServerError, "internal_error")
		return
	}

	now := time.Now()
	session := &Session{
		ID:          sessionID,
		Login:       req.Login,
		Server:      req.Server,
		CreatedAt:   now,
		ExpiresAt:   now.Add(h.timeout),
		AccountInfo: *accountInfo,
	}
	if err := h.store.Put(session); err != nil {
		log.Printf("Session store error: %v", err)
		writeError(w, http.StatusInternalServerError, "internal_error")
		return
	}

	token, err := h.codec.Mint(sessionID, req.Login, session.ExpiresAt)
	if err != nil {
		log.Printf("Token mint error: %v", err)
		writeError(w, http.StatusInternalServerError, "internal_error")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"token":        token,
		"expires_in":   int(h.timeout.Seconds()),
		"account_info": accountInfo,
	})
}

// Logout deletes the session and releases the terminal connection.
// Deleting an absent key is a no-op, so replayed logouts fail at the auth
// gate rather than here.
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	session, ok := SessionFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, codeSessionExpired)
		return
	}

	if err := h.store.Delete(session.ID); err != nil {
		log.Printf("Session delete error: %v", err)
		writeError(w, http.StatusInternalServerError, "internal_error")
		return
	}
	h.term.Shutdown()

	writeJSON(w, http.StatusOK, map[string]string{"message": "logged out"})
}

// SessionInfo returns the stored session fields verbatim.
func (h *Handler) SessionInfo(w http.ResponseWriter, r *http.Request) {
	session, ok := SessionFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, codeSessionExpired)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"session_id":   session.ID,
		"login":        session.Login,
		"server":       session.Server,
		"expires_at":   session.ExpiresAt.Format(time.RFC3339),
		"account_info": session.AccountInfo,
	})
}

// AccountInfo returns the current account state from the terminal.
func (h *Handler) AccountInfo(w http.ResponseWriter, r *http.Request) {
	info, err := h.term.AccountInfo()
	if err != nil {
		h.terminalError(w, "account info", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"account_info": info})
}

// Positions returns open positions, optionally filtered by magic number.
func (h *Handler) Positions(w http.ResponseWriter, r *http.Request) {
	var magic int64
	if raw := r.URL.Query().Get("magic"); raw != "" {
		parsed, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			writeError(w, http.StatusBadRequest, "magic must be an integer")
			return
		}
		magic = parsed
	}

	positions, err := h.term.Positions(magic)
	if err != nil {
		h.terminalError(w, "positions", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"positions": positions})
}

// SymbolInfo returns quote data for a symbol.
func (h *Handler) SymbolInfo(w http.ResponseWriter, r *http.Request) {
	symbol := chi.URLParam(r, "symbol")
	info, err := h.term.SymbolInfo(symbol)
	if err != nil {
		h.terminalError(w, "symbol info", err)
		return
	}
	writeJSON(w, http.StatusOK, info)
}

// MarketData returns OHLC bars for a symbol.
func (h *Handler) MarketData(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	symbol := q.Get("symbol")
	if symbol == "" {
		writeError(w, http.StatusBadRequest, "symbol is required")
		return
	}

	timeframe := q.Get("timeframe")
	if timeframe == "" {
		timeframe = "M1"
	}

	numBars := 100
	if raw := q.Get("num_bars"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			writeError(w, http.StatusBadRequest, "num_bars must be a positive integer")
			return
		}
		numBars = parsed
	}

	bars, err := h.term.Bars(symbol, timeframe, numBars)
	if err != nil {
		h.terminalError(w, "market data", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"symbol":    symbol,
		"timeframe": timeframe,
		"bars":      bars,
	})
}

// PlaceOrder submits an order to the terminal.
func (h *Handler) PlaceOrder(w http.ResponseWriter, r *http.Request) {
	var req terminal.OrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid order request")
		return
	}

	result, err := h.term.PlaceOrder(req)
	if err != nil {
		h.terminalError(w, "place order", err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

type closePositionRequest struct {
	Position struct {
		Ticket int64 `json:"ticket"`
	} `json:"position"`
}

// ClosePosition closes an open position by ticket.
func (h *Handler) ClosePosition(w http.ResponseWriter, r *http.Request) {
	var req closePositionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid close request")
		return
	}
	if req.Position.Ticket == 0 {
		writeError(w, http.StatusBadRequest, "position ticket is required")
		return
	}

	result, err := h.term.ClosePosition(req.Position.Ticket)
	if err != nil {
		h.terminalError(w, "close position", err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// Health reports service liveness.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// terminalError converts a terminal failure into a generic 500 response.
// Internals are logged, never exposed.
func (h *Handler) terminalError(w http.ResponseWriter, op string, err error) {
	var termErr *terminal.Error
	if errors.As(err, &termErr) {
		log.Printf("Terminal %s failed: code %d: %s", op, termErr.Code, termErr.Message)
	} else {
		log.Printf("Terminal %s failed: %v", op, err)
	}
	writeError(w, http.StatusInternalServerError, "internal_error")
}

// writeJSON writes a JSON response with the given status.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("Error encoding response: %v", err)
	}
}
