// Package auth manages the web backend's server-side session mirror.
//
// Each browser gets one mirror row: a cached copy of an issuer session. It
// is a cache, not a source of truth. It can drift from the issuer's table
// and is only corrected when a downstream API call fails.
package auth

import (
	"crypto/rand"
	"database/sql"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"

	"mt5bridge/internal/database"
	apperrors "mt5bridge/internal/errors"
)

const (
	// DefaultMirrorDuration is the browser session lifetime.
	DefaultMirrorDuration = 24 * time.Hour
)

// Mirror is the per-browser copy of an issuer session.
type Mirror struct {
	ID             string
	Authenticated  bool
	Token          string // issuer-minted token, decrypted
	TokenExpiresAt time.Time
	Login          int64
	Server         string
	AccountInfo    json.RawMessage
	CreatedAt      time.Time
	ExpiresAt      time.Time
}

// IsExpired returns true if the mirror row itself has expired.
func (m *Mirror) IsExpired() bool {
	return time.Now().After(m.ExpiresAt)
}

// SessionManager handles mirror session operations.
type SessionManager struct {
	db        *database.DB
	encryptor *Encryptor
	duration  time.Duration
}

// NewSessionManager creates a new SessionManager.
func NewSessionManager(db *database.DB, encryptor *Encryptor) *SessionManager {
	return &SessionManager{
		db:        db,
		encryptor: encryptor,
		duration:  DefaultMirrorDuration,
	}
}

// WithDuration sets a custom mirror row duration.
func (sm *SessionManager) WithDuration(d time.Duration) *SessionManager {
	sm.duration = d
	return sm
}

// Create stores a new mirror row and returns it with ID and expiry filled.
// The issuer token is sealed with a session-specific key before it touches
// disk.
func (sm *SessionManager) Create(m Mirror) (*Mirror, error) {
	id, err := generateSessionID()
	if err != nil {
		return nil, err
	}
	m.ID = id
	m.CreatedAt = time.Now()
	m.ExpiresAt = m.CreatedAt.Add(sm.duration)

	ciphertext, nonce, err := sm.encryptor.Encrypt(m.Token, m.ID)
	if err != nil {
		return nil, apperrors.Internal("sealing token", err)
	}

	query := `
		INSERT INTO web_sessions
			(id, authenticated, token_ciphertext, token_nonce, token_expires_at,
			 login, server, account_info, created_at, expires_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err = sm.db.Exec(query,
		m.ID, m.Authenticated, ciphertext, nonce, m.TokenExpiresAt,
		m.Login, m.Server, string(m.AccountInfo), m.CreatedAt, m.ExpiresAt,
	)
	if err != nil {
		return nil, apperrors.Internal("creating session", err)
	}

	return &m, nil
}

// Get retrieves a mirror by ID. Returns nil if not found; an expired row is
// deleted on read.
func (sm *SessionManager) Get(id string) (*Mirror, error) {
	query := `
		SELECT id, authenticated, token_ciphertext, token_nonce, token_expires_at,
		       login, server, account_info, created_at, expires_at
		FROM web_sessions
		WHERE id = ?
	`

	m := &Mirror{}
	var ciphertext, nonce []byte
	var accountInfo string
	err := sm.db.QueryRow(query, id).Scan(
		&m.ID, &m.Authenticated, &ciphertext, &nonce, &m.TokenExpiresAt,
		&m.Login, &m.Server, &accountInfo, &m.CreatedAt, &m.ExpiresAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, apperrors.Internal("getting session", err)
	}

	if m.IsExpired() {
		sm.Delete(id)
		return nil, nil
	}

	token, err := sm.encryptor.Decrypt(ciphertext, nonce, m.ID)
	if err != nil {
		// Unreadable token means the row is useless; drop it.
		sm.Delete(id)
		return nil, nil
	}
	m.Token = token
	m.AccountInfo = json.RawMessage(accountInfo)

	return m, nil
}

// Delete removes a mirror by ID.
func (sm *SessionManager) Delete(id string) error {
	query := `DELETE FROM web_sessions WHERE id = ?`
	if _, err := sm.db.Exec(query, id); err != nil {
		return apperrors.Internal("deleting session", err)
	}
	return nil
}

// CleanExpired removes all expired mirror rows and returns the count.
func (sm *SessionManager) CleanExpired() (int64, error) {
	query := `DELETE FROM web_sessions WHERE expires_at < ?`
	result, err := sm.db.Exec(query, time.Now())
	if err != nil {
		return 0, apperrors.Internal("cleaning expired sessions", err)
	}

	count, err := result.RowsAffected()
	if err != nil {
		return 0, apperrors.Internal("getting affected rows", err)
	}

	return count, nil
}

// generateSessionID creates a cryptographically secure session ID.
func generateSessionID() (string, error) {
	bytes := make([]byte, 32)
	if _, err := rand.Read(bytes); err != nil {
		return "", fmt.Errorf("generating session id: %w", err)
	}
	return hex.EncodeToString(bytes), nil
}
