package services

import (
	"path/filepath"
	"testing"

	"mt5bridge/internal/database"
)

func setupAuditService(t *testing.T) *AuditService {
	t.Helper()

	db, err := database.New(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("database.New() error = %v", err)
	}
	t.Cleanup(func() { db.Close() })
	if err := db.RunMigrations(); err != nil {
		t.Fatalf("RunMigrations() error = %v", err)
	}
	return NewAuditService(db)
}

func TestAuditService_RecordAndRecent_NewestFirst(t *testing.T) {
	svc := setupAuditService(t)

	svc.Record(AuditLoginFailed, 111, "status=401")
	svc.Record(AuditLoginSuccess, 111, "server=Broker-Demo")
	svc.Record(AuditLogout, 111, "")

	entries, err := svc.Recent(10)
	if err != nil {
		t.Fatalf("Recent() error = %v", err)
	}
	if len(entries) != 3 {
		t.Fatalf("len = %d, want 3", len(entries))
	}
	if entries[0].Action != AuditLogout {
		t.Errorf("newest action = %s, want %s", entries[0].Action, AuditLogout)
	}
	if entries[2].Action != AuditLoginFailed {
		t.Errorf("oldest action = %s, want %s", entries[2].Action, AuditLoginFailed)
	}
	if entries[2].Detail != "status=401" {
		t.Errorf("detail = %q", entries[2].Detail)
	}
}

func TestAuditService_Recent_LimitApplied(t *testing.T) {
	svc := setupAuditService(t)

	for i := 0; i < 5; i++ {
		svc.Record(AuditLoginSuccess, int64(100+i), "")
	}

	entries, err := svc.Recent(2)
	if err != nil {
		t.Fatalf("Recent() error = %v", err)
	}
	if len(entries) != 2 {
		t.Errorf("len = %d, want 2", len(entries))
	}
}
