// Package services provides business logic services for the web backend.
package services

import (
	"log"
	"time"

	"mt5bridge/internal/database"
	apperrors "mt5bridge/internal/errors"
)

// AuditAction represents the type of audited action.
type AuditAction string

const (
	AuditLoginSuccess AuditAction = "mt5.login"
	AuditLoginFailed  AuditAction = "mt5.login_failed"
	AuditLogout       AuditAction = "mt5.logout"
)

// AuditEntry represents an audit log entry. Credentials are never recorded.
type AuditEntry struct {
	ID        int64       `json:"id"`
	Action    AuditAction `json:"action"`
	Login     int64       `json:"login"`
	Detail    string      `json:"detail,omitempty"`
	CreatedAt time.Time   `json:"created_at"`
}

// AuditService records authentication events.
type AuditService struct {
	db *database.DB
}

// NewAuditService creates a new AuditService.
func NewAuditService(db *database.DB) *AuditService {
	return &AuditService{db: db}
}

// Record writes an audit entry. Failures are logged, not propagated:
// auditing must never break the login flow.
func (s *AuditService) Record(action AuditAction, login int64, detail string) {
	query := `INSERT INTO audit_log (action, login, detail) VALUES (?, ?, ?)`
	if _, err := s.db.Exec(query, string(action), login, detail); err != nil {
		log.Printf("Audit write failed for %s: %v", action, err)
	}
}

// Recent returns the most recent audit entries, newest first.
func (s *AuditService) Recent(limit int) ([]AuditEntry, error) {
	query := `
		SELECT id, action, login, detail, created_at
		FROM audit_log
		ORDER BY created_at DESC, id DESC
		LIMIT ?
	`
	rows, err := s.db.Query(query, limit)
	if err != nil {
		return nil, apperrors.Internal("querying audit log", err)
	}
	defer rows.Close()

	var entries []AuditEntry
	for rows.Next() {
		var e AuditEntry
		if err := rows.Scan(&e.ID, &e.Action, &e.Login, &e.Detail, &e.CreatedAt); err != nil {
			return nil, apperrors.Internal("scanning audit entry", err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}
