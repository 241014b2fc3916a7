package database

// SQL migrations for the web backend database.
// All migrations use IF NOT EXISTS to be idempotent.

const migrationSessions = `
CREATE TABLE IF NOT EXISTS web_sessions (
    id TEXT PRIMARY KEY,
    authenticated INTEGER NOT NULL DEFAULT 0,
    token_ciphertext BLOB,
    token_nonce BLOB,
    token_expires_at DATETIME,
    login INTEGER,
    server TEXT,
    account_info TEXT,
    created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
    expires_at DATETIME NOT NULL
);
`

const migrationAuditLog = `
CREATE TABLE IF NOT EXISTS audit_log (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    action TEXT NOT NULL,
    login INTEGER,
    detail TEXT,
    created_at DATETIME DEFAULT CURRENT_TIMESTAMP
);
`

const migrationIndexes = `
CREATE INDEX IF NOT EXISTS idx_web_sessions_expires ON web_sessions(expires_at);
CREATE INDEX IF NOT EXISTS idx_audit_log_created ON audit_log(created_at);
`
