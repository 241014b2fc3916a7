package terminal

import (
	"strings"
	"sync"
	"time"
)

// Terminal diagnostic codes, matching the wrapped platform's conventions.
const (
	CodeAuthFailed      = -6
	CodeNoConnection    = -10004
	CodeInvalidParams   = -2
	CodeTradeNotAllowed = -8
)

// Simulator is an in-process Terminal used in demo mode and tests.
// Like the real terminal it holds a single global connection.
type Simulator struct {
	mu        sync.Mutex
	connected bool
	account   AccountInfo
	positions []Position
	ticket    int64
}

// NewSimulator creates a simulated terminal with a small seeded book.
func NewSimulator() *Simulator {
	return &Simulator{ticket: 100000}
}

// Connect authorizes any credentials with a non-empty password.
func (s *Simulator) Connect(login int64, password, server string) (*AccountInfo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if login <= 0 || strings.TrimSpace(server) == "" {
		return nil, &Error{Code: CodeInvalidParams, Message: "Invalid arguments"}
	}
	if password == "" {
		return nil, &Error{Code: CodeAuthFailed, Message: "Terminal: Authorization failed"}
	}

	s.connected = true
	s.account = AccountInfo{
		Login:    login,
		Name:     "Demo Account",
		Server:   server,
		Currency: "USD",
		Balance:  10000,
		Equity:   10123.45,
		Margin:   231.80,
		Leverage: 100,
	}
	s.positions = []Position{
		{Ticket: s.nextTicket(), Symbol: "EURUSD", Type: "buy", Volume: 0.10, PriceOpen: 1.0832, PriceCurrent: 1.0847, Profit: 15.0},
		{Ticket: s.nextTicket(), Symbol: "XAUUSD", Type: "sell", Volume: 0.05, PriceOpen: 2031.10, PriceCurrent: 2028.40, Profit: 13.5, Magic: 42},
	}

	info := s.account
	return &info, nil
}

// AccountInfo returns the connected account snapshot.
func (s *Simulator) AccountInfo() (*AccountInfo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.connected {
		return nil, &Error{Code: CodeNoConnection, Message: "No IPC connection"}
	}
	info := s.account
	return &info, nil
}

// Positions returns the open positions, filtered by magic if non-zero.
func (s *Simulator) Positions(magic int64) ([]Position, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.connected {
		return nil, &Error{Code: CodeNoConnection, Message: "No IPC connection"}
	}

	out := make([]Position, 0, len(s.positions))
	for _, p := range s.positions {
		if magic != 0 && p.Magic != magic {
			continue
		}
		out = append(out, p)
	}
	return out, nil
}

// SymbolInfo returns canned quote data for any non-empty symbol.
func (s *Simulator) SymbolInfo(symbol string) (*SymbolInfo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.connected {
		return nil, &Error{Code: CodeNoConnection, Message: "No IPC connection"}
	}
	if symbol == "" {
		return nil, &Error{Code: CodeInvalidParams, Message: "Invalid arguments"}
	}
	return &SymbolInfo{
		Symbol: symbol,
		Bid:    1.0846,
		Ask:    1.0848,
		Spread: 2,
		Digits: 5,
	}, nil
}

// Bars returns count synthetic one-minute bars ending now.
func (s *Simulator) Bars(symbol, timeframe string, count int) ([]Bar, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.connected {
		return nil, &Error{Code: CodeNoConnection, Message: "No IPC connection"}
	}
	if symbol == "" || count <= 0 {
		return nil, &Error{Code: CodeInvalidParams, Message: "Invalid arguments"}
	}

	bars := make([]Bar, count)
	end := time.Now().Truncate(time.Minute)
	for i := range bars {
		t := end.Add(time.Duration(i-count+1) * time.Minute)
		base := 1.0830 + float64(i%7)*0.0002
		bars[i] = Bar{
			Time:   t.Unix(),
			Open:   base,
			High:   base + 0.0004,
			Low:    base - 0.0003,
			Close:  base + 0.0001,
			Volume: int64(100 + i%40),
		}
	}
	return bars, nil
}

// PlaceOrder accepts the order and returns a filled stub result.
func (s *Simulator) PlaceOrder(req OrderRequest) (*OrderResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.connected {
		return nil, &Error{Code: CodeNoConnection, Message: "No IPC connection"}
	}
	if req.Symbol == "" || req.Volume <= 0 || (req.Type != "buy" && req.Type != "sell") {
		return nil, &Error{Code: CodeInvalidParams, Message: "Invalid order request"}
	}

	pos := Position{
		Ticket:       s.nextTicket(),
		Symbol:       req.Symbol,
		Type:         req.Type,
		Volume:       req.Volume,
		PriceOpen:    1.0847,
		PriceCurrent: 1.0847,
	}
	s.positions = append(s.positions, pos)

	return &OrderResult{
		Ticket:  pos.Ticket,
		Retcode: 10009, // done
		Price:   pos.PriceOpen,
		Comment: "Request executed",
	}, nil
}

// ClosePosition removes an open position by ticket.
func (s *Simulator) ClosePosition(ticket int64) (*OrderResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.connected {
		return nil, &Error{Code: CodeNoConnection, Message: "No IPC connection"}
	}

	for i, p := range s.positions {
		if p.Ticket == ticket {
			s.positions = append(s.positions[:i], s.positions[i+1:]...)
			return &OrderResult{
				Ticket:  ticket,
				Retcode: 10009,
				Price:   p.PriceCurrent,
				Comment: "Request executed",
			}, nil
		}
	}
	return nil, &Error{Code: CodeInvalidParams, Message: "Position not found"}
}

// Shutdown drops the connection.
func (s *Simulator) Shutdown() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.connected = false
	s.positions = nil
}

func (s *Simulator) nextTicket() int64 {
	s.ticket++
	return s.ticket
}
