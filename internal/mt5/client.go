// Package mt5 provides a thin HTTP client for the trading-API service.
package mt5

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"mt5bridge/internal/terminal"
)

const (
	// dataTimeout bounds data-fetching calls.
	dataTimeout = 30 * time.Second

	// logoutTimeout bounds the best-effort logout call.
	logoutTimeout = 10 * time.Second

	// expiryBuffer is how long before the client-local expiry a session is
	// already treated as unauthenticated.
	expiryBuffer = 5 * time.Minute
)

var (
	// ErrNotAuthenticated is returned before any network call when the
	// client holds no usable token.
	ErrNotAuthenticated = errors.New("not authenticated")

	// ErrConnection is the generic transport failure.
	ErrConnection = errors.New("connection error with the API")
)

// APIError is an error reported by the issuer.
type APIError struct {
	StatusCode int
	Message    string
}

// Error implements the error interface.
func (e *APIError) Error() string {
	return fmt.Sprintf("api error %d: %s", e.StatusCode, e.Message)
}

// IsAuthError returns true if the issuer rejected the call as
// unauthenticated, either locally or with a 401.
func IsAuthError(err error) bool {
	if errors.Is(err, ErrNotAuthenticated) {
		return true
	}
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusUnauthorized
}

// LoginResult is the issuer's successful login response.
type LoginResult struct {
	Token       string          `json:"token"`
	ExpiresIn   int             `json:"expires_in"`
	AccountInfo json.RawMessage `json:"account_info"`
}

// MarketData is the issuer's market data response.
type MarketData struct {
	Symbol    string         `json:"symbol"`
	Timeframe string         `json:"timeframe"`
	Bars      []terminal.Bar `json:"bars"`
}

// Client is a thin forwarding wrapper over the issuer's HTTP API.
// The expiry it holds is a client-local, informational copy; the issuer's
// session table remains authoritative.
type Client struct {
	baseURL     string
	httpClient  *http.Client
	token       string
	expiresAt   time.Time
	accountInfo json.RawMessage
}

// NewClient creates a new Client for the given issuer base URL.
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{},
	}
}

// Login authenticates with the issuer and stores the returned token,
// expiry and account snapshot on the client.
func (c *Client) Login(login int64, password, server string) (*LoginResult, error) {
	body := map[string]any{
		"login":    login,
		"password": password,
		"server":   server,
	}

	var result LoginResult
	if err := c.do(http.MethodPost, "/login", nil, body, dataTimeout, &result); err != nil {
		return nil, err
	}

	c.token = result.Token
	c.expiresAt = time.Now().Add(time.Duration(result.ExpiresIn) * time.Second)
	c.accountInfo = result.AccountInfo

	return &result, nil
}

// IsAuthenticated reports whether the client holds a token that is more
// than five minutes away from its local expiry.
func (c *Client) IsAuthenticated() bool {
	if c.token == "" || c.expiresAt.IsZero() {
		return false
	}
	return time.Now().Before(c.expiresAt.Add(-expiryBuffer))
}

// Restore loads a previously issued token into the client, typically from
// the web backend's session mirror.
func (c *Client) Restore(token string, expiresAt time.Time) {
	c.token = token
	c.expiresAt = expiresAt
}

// Token returns the current token.
func (c *Client) Token() string {
	return c.token
}

// ExpiresAt returns the client-local expiry.
func (c *Client) ExpiresAt() time.Time {
	return c.expiresAt
}

// AccountInfo returns the account snapshot cached at login.
func (c *Client) AccountInfo() json.RawMessage {
	return c.accountInfo
}

// Logout closes the issuer session, best effort, and clears client state.
// The local state is cleared even when the call fails.
func (c *Client) Logout() error {
	var callErr error
	if c.token != "" {
		callErr = c.do(http.MethodPost, "/logout", nil, nil, logoutTimeout, nil)
	}

	c.token = ""
	c.expiresAt = time.Time{}
	c.accountInfo = nil

	return callErr
}

// GetPositions fetches open positions; magic 0 means no filter.
func (c *Client) GetPositions(magic int64) ([]terminal.Position, error) {
	if !c.IsAuthenticated() {
		return nil, ErrNotAuthenticated
	}

	query := url.Values{}
	if magic != 0 {
		query.Set("magic", strconv.FormatInt(magic, 10))
	}

	var result struct {
		Positions []terminal.Position `json:"positions"`
	}
	if err := c.do(http.MethodGet, "/get_positions", query, nil, dataTimeout, &result); err != nil {
		return nil, err
	}
	return result.Positions, nil
}

// GetAccountInfo fetches the live account state.
func (c *Client) GetAccountInfo() (*terminal.AccountInfo, error) {
	if !c.IsAuthenticated() {
		return nil, ErrNotAuthenticated
	}

	var result struct {
		AccountInfo terminal.AccountInfo `json:"account_info"`
	}
	if err := c.do(http.MethodGet, "/account_info", nil, nil, dataTimeout, &result); err != nil {
		return nil, err
	}
	return &result.AccountInfo, nil
}

// PlaceOrder submits an order.
func (c *Client) PlaceOrder(req terminal.OrderRequest) (*terminal.OrderResult, error) {
	if !c.IsAuthenticated() {
		return nil, ErrNotAuthenticated
	}

	var result terminal.OrderResult
	if err := c.do(http.MethodPost, "/order", nil, req, dataTimeout, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// ClosePosition closes an open position by ticket.
func (c *Client) ClosePosition(ticket int64) (*terminal.OrderResult, error) {
	if !c.IsAuthenticated() {
		return nil, ErrNotAuthenticated
	}

	body := map[string]any{
		"position": map[string]any{"ticket": ticket},
	}

	var result terminal.OrderResult
	if err := c.do(http.MethodPost, "/close_position", nil, body, dataTimeout, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// GetSymbolInfo fetches quote data for a symbol.
func (c *Client) GetSymbolInfo(symbol string) (*terminal.SymbolInfo, error) {
	if !c.IsAuthenticated() {
		return nil, ErrNotAuthenticated
	}

	var result terminal.SymbolInfo
	path := "/symbol_info/" + url.PathEscape(symbol)
	if err := c.do(http.MethodGet, path, nil, nil, dataTimeout, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// GetMarketData fetches OHLC bars for a symbol.
func (c *Client) GetMarketData(symbol, timeframe string, numBars int) (*MarketData, error) {
	if !c.IsAuthenticated() {
		return nil, ErrNotAuthenticated
	}

	query := url.Values{}
	query.Set("symbol", symbol)
	query.Set("timeframe", timeframe)
	query.Set("num_bars", strconv.Itoa(numBars))

	var result MarketData
	if err := c.do(http.MethodGet, "/fetch_data_pos", query, nil, dataTimeout, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// do performs a single HTTP call. No retries, no backoff.
func (c *Client) do(method, path string, query url.Values, body any, timeout time.Duration, out any) error {
	reqURL := c.baseURL + path
	if len(query) > 0 {
		reqURL += "?" + query.Encode()
	}

	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encoding request: %w", err)
		}
		reqBody = bytes.NewReader(data)
	}

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, method, reqURL, reqBody)
	if err != nil {
		return fmt.Errorf("building request: %w", err)
	}

	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-ID", uuid.NewString())
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrConnection, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrConnection, err)
	}

	if resp.StatusCode != http.StatusOK {
		var apiResp struct {
			Error string `json:"error"`
		}
		message := "unknown error"
		if err := json.Unmarshal(respBody, &apiResp); err == nil && apiResp.Error != "" {
			message = apiResp.Error
		}
		return &APIError{StatusCode: resp.StatusCode, Message: message}
	}

	if out != nil {
		if err := json.Unmarshal(respBody, out); err != nil {
			return fmt.Errorf("decoding response: %w", err)
		}
	}
	return nil
}
