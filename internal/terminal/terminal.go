// Package terminal abstracts the external trading-terminal capability.
package terminal

import "fmt"

// AccountInfo is the account snapshot captured at login time.
type AccountInfo struct {
	Login    int64   `json:"login"`
	Name     string  `json:"name"`
	Server   string  `json:"server"`
	Currency string  `json:"currency"`
	Balance  float64 `json:"balance"`
	Equity   float64 `json:"equity"`
	Margin   float64 `json:"margin"`
	Leverage int     `json:"leverage"`
}

// Position represents an open position.
type Position struct {
	Ticket       int64   `json:"ticket"`
	Symbol       string  `json:"symbol"`
	Type         string  `json:"type"` // "buy" or "sell"
	Volume       float64 `json:"volume"`
	PriceOpen    float64 `json:"price_open"`
	PriceCurrent float64 `json:"price_current"`
	Profit       float64 `json:"profit"`
	Magic        int64   `json:"magic,omitempty"`
}

// SymbolInfo describes a tradable symbol.
type SymbolInfo struct {
	Symbol string  `json:"symbol"`
	Bid    float64 `json:"bid"`
	Ask    float64 `json:"ask"`
	Spread int     `json:"spread"`
	Digits int     `json:"digits"`
}

// Bar is a single OHLC bar of market data.
type Bar struct {
	Time   int64   `json:"time"`
	Open   float64 `json:"open"`
	High   float64 `json:"high"`
	Low    float64 `json:"low"`
	Close  float64 `json:"close"`
	Volume int64   `json:"tick_volume"`
}

// OrderRequest describes an order to place.
type OrderRequest struct {
	Symbol  string  `json:"symbol"`
	Volume  float64 `json:"volume"`
	Type    string  `json:"type"` // "buy" or "sell"
	Price   float64 `json:"price,omitempty"`
	SL      float64 `json:"sl,omitempty"`
	TP      float64 `json:"tp,omitempty"`
	Comment string  `json:"comment,omitempty"`
}

// OrderResult is the terminal's response to an order operation.
type OrderResult struct {
	Ticket  int64   `json:"ticket"`
	Retcode int     `json:"retcode"`
	Price   float64 `json:"price"`
	Comment string  `json:"comment"`
}

// Error carries the terminal's diagnostic code and message.
type Error struct {
	Code    int
	Message string
}

// Error implements the error interface.
func (e *Error) Error() string {
	return fmt.Sprintf("terminal error %d: %s", e.Code, e.Message)
}

// Terminal defines the interface to the trading terminal.
//
// The wrapped terminal is process-global and holds at most one active
// connection: a second Connect replaces the first. Concurrent logins from
// different users against the same process are mutually destructive.
type Terminal interface {
	// Connect authenticates against the terminal and returns the account
	// snapshot for the connected account.
	Connect(login int64, password, server string) (*AccountInfo, error)

	// AccountInfo returns the current account state.
	AccountInfo() (*AccountInfo, error)

	// Positions returns open positions, optionally filtered by magic number
	// (magic 0 means no filter).
	Positions(magic int64) ([]Position, error)

	// SymbolInfo returns quote data for a symbol.
	SymbolInfo(symbol string) (*SymbolInfo, error)

	// Bars returns up to count bars of market data for a symbol.
	Bars(symbol, timeframe string, count int) ([]Bar, error)

	// PlaceOrder submits an order.
	PlaceOrder(req OrderRequest) (*OrderResult, error)

	// ClosePosition closes an open position by ticket.
	ClosePosition(ticket int64) (*OrderResult, error)

	// Shutdown releases the terminal connection.
	Shutdown()
}
