package issuer

import (
	"testing"
	"time"

	"mt5bridge/internal/terminal"
)

func testSession(id string, expiresAt time.Time) *Session {
	return &Session{
		ID:        id,
		Login:     111,
		Server:    "Broker-Demo",
		CreatedAt: time.Now(),
		ExpiresAt: expiresAt,
		AccountInfo: terminal.AccountInfo{
			Login:    111,
			Balance:  10000,
			Currency: "USD",
		},
	}
}

func TestMemoryStore_PutAndGet_RoundTrip(t *testing.T) {
	store := NewMemoryStore()
	want := testSession("s1", time.Now().Add(30*time.Minute))

	if err := store.Put(want); err != nil {
		t.Fatalf("Put() error = %v, want nil", err)
	}

	got, err := store.Get("s1")
	if err != nil {
		t.Fatalf("Get() error = %v, want nil", err)
	}
	if got == nil {
		t.Fatal("Get() returned nil for a live session")
	}
	if got.ID != "s1" || got.Login != 111 || got.Server != "Broker-Demo" {
		t.Errorf("Get() = %+v, want fields of %+v", got, want)
	}
}

func TestMemoryStore_Get_Absent_ReturnsNil(t *testing.T) {
	store := NewMemoryStore()

	got, err := store.Get("missing")
	if err != nil {
		t.Fatalf("Get() error = %v, want nil", err)
	}
	if got != nil {
		t.Errorf("Get() = %+v, want nil for absent session", got)
	}
}

func TestMemoryStore_Get_Expired_EvictsRecord(t *testing.T) {
	store := NewMemoryStore()
	store.Put(testSession("s1", time.Now().Add(-time.Second)))

	got, err := store.Get("s1")
	if err != nil {
		t.Fatalf("Get() error = %v, want nil", err)
	}
	if got != nil {
		t.Errorf("Get() = %+v, want nil for expired session", got)
	}
	if store.Len() != 0 {
		t.Errorf("Len() = %d, want 0 after lazy eviction", store.Len())
	}
}

func TestMemoryStore_Renew_SlidesExpiry(t *testing.T) {
	store := NewMemoryStore()
	original := time.Now().Add(time.Minute)
	store.Put(testSession("s1", original))

	got, err := store.Renew("s1", 30*time.Minute)
	if err != nil {
		t.Fatalf("Renew() error = %v, want nil", err)
	}
	if got == nil {
		t.Fatal("Renew() returned nil for a live session")
	}
	if !got.ExpiresAt.After(original.Add(25 * time.Minute)) {
		t.Errorf("ExpiresAt = %v, expiry did not slide forward from %v", got.ExpiresAt, original)
	}

	// The stored record carries the new expiry too.
	stored, _ := store.Get("s1")
	if stored == nil || !stored.ExpiresAt.Equal(got.ExpiresAt) {
		t.Error("stored session expiry does not match renewed expiry")
	}
}

func TestMemoryStore_Renew_Expired_ReturnsNilAndEvicts(t *testing.T) {
	store := NewMemoryStore()
	store.Put(testSession("s1", time.Now().Add(-time.Second)))

	got, err := store.Renew("s1", 30*time.Minute)
	if err != nil {
		t.Fatalf("Renew() error = %v, want nil", err)
	}
	if got != nil {
		t.Error("Renew() should not resurrect an expired session")
	}
	if store.Len() != 0 {
		t.Errorf("Len() = %d, want 0 after lazy eviction", store.Len())
	}
}

func TestMemoryStore_Renew_Absent_ReturnsNil(t *testing.T) {
	store := NewMemoryStore()

	got, err := store.Renew("missing", 30*time.Minute)
	if err != nil {
		t.Fatalf("Renew() error = %v, want nil", err)
	}
	if got != nil {
		t.Errorf("Renew() = %+v, want nil for absent session", got)
	}
}

func TestMemoryStore_Delete_Idempotent(t *testing.T) {
	store := NewMemoryStore()
	store.Put(testSession("s1", time.Now().Add(time.Minute)))

	if err := store.Delete("s1"); err != nil {
		t.Fatalf("Delete() error = %v, want nil", err)
	}
	if err := store.Delete("s1"); err != nil {
		t.Fatalf("repeat Delete() error = %v, want nil", err)
	}
	if err := store.Delete("never-existed"); err != nil {
		t.Fatalf("Delete() of absent key error = %v, want nil", err)
	}

	got, _ := store.Get("s1")
	if got != nil {
		t.Error("session still readable after Delete()")
	}
}

func TestMemoryStore_Get_ReturnsCopy(t *testing.T) {
	store := NewMemoryStore()
	store.Put(testSession("s1", time.Now().Add(time.Minute)))

	first, _ := store.Get("s1")
	first.Login = 999

	second, _ := store.Get("s1")
	if second.Login != 111 {
		t.Errorf("Login = %d, mutation of a returned session leaked into the store", second.Login)
	}
}
