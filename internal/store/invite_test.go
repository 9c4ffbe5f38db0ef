package store

import (
	"testing"
	"time"
)

func TestInviteCreateAndGetValid(t *testing.T) {
	db := setupTestDB(t)
	alice := createTestUser(t, db, "alice@example.com", "Alice")
	is := NewInviteStore(db)

	inv, err := is.Create(alice.ID, "Bob@Example.com")
	if err != nil {
		t.Fatalf("create invite: %v", err)
	}
	if len(inv.Code) != 6 {
		t.Errorf("code length = %d, want 6", len(inv.Code))
	}
	if inv.Email != "bob@example.com" {
		t.Errorf("email = %q, want normalized", inv.Email)
	}

	got, err := is.GetValid(inv.Code, "bob@example.com")
	if err != nil {
		t.Fatalf("get valid: %v", err)
	}
	if got == nil || got.ID != inv.ID {
		t.Fatalf("get valid = %+v, want invite %d", got, inv.ID)
	}

	wrongEmail, _ := is.GetValid(inv.Code, "eve@example.com")
	if wrongEmail != nil {
		t.Error("expected nil for mismatched email")
	}
}

func TestInviteMarkUsed(t *testing.T) {
	db := setupTestDB(t)
	alice := createTestUser(t, db, "alice@example.com", "Alice")
	is := NewInviteStore(db)

	inv, _ := is.Create(alice.ID, "bob@example.com")
	if err := is.MarkUsed(inv.ID); err != nil {
		t.Fatalf("mark used: %v", err)
	}
	got, _ := is.GetValid(inv.Code, "bob@example.com")
	if got != nil {
		t.Error("expected nil for used invite")
	}
}

func TestInviteCreateInvalidatesPrevious(t *testing.T) {
	db := setupTestDB(t)
	alice := createTestUser(t, db, "alice@example.com", "Alice")
	is := NewInviteStore(db)

	first, _ := is.Create(alice.ID, "bob@example.com")
	second, _ := is.Create(alice.ID, "bob@example.com")

	if got, _ := is.GetValid(first.Code, "bob@example.com"); got != nil && got.ID == first.ID {
		t.Error("first invite should be invalidated")
	}
	if got, _ := is.GetValid(second.Code, "bob@example.com"); got == nil {
		t.Error("second invite should be valid")
	}
}

func TestInviteExpired(t *testing.T) {
	db := setupTestDB(t)
	alice := createTestUser(t, db, "alice@example.com", "Alice")
	is := NewInviteStore(db)

	inv, _ := is.Create(alice.ID, "bob@example.com")
	if _, err := db.Exec(`UPDATE partner_invites SET expires_at = ? WHERE id = ?`, time.Now().UTC().Add(-time.Minute), inv.ID); err != nil {
		t.Fatalf("expire invite: %v", err)
	}

	if got, _ := is.GetValid(inv.Code, "bob@example.com"); got != nil {
		t.Error("expected nil for expired invite")
	}
	n, err := is.DeleteExpired()
	if err != nil {
		t.Fatalf("delete expired: %v", err)
	}
	if n != 1 {
		t.Errorf("deleted = %d, want 1", n)
	}
}
