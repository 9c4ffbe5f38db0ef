package store

import (
	"database/sql"
	"testing"

	"github.com/dukerupert/pairwish/internal/database"
	"github.com/dukerupert/pairwish/internal/model"
)

func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := database.Open(":memory:")
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func createTestUser(t *testing.T, db *sql.DB, email, name string) *model.User {
	t.Helper()
	u, err := NewUserStore(db).Create(email, name, "hash")
	if err != nil {
		t.Fatalf("create user %s: %v", email, err)
	}
	return u
}

// createTestCouple returns two linked users.
func createTestCouple(t *testing.T, db *sql.DB) (*model.User, *model.User) {
	t.Helper()
	alice := createTestUser(t, db, "alice@example.com", "Alice")
	bob := createTestUser(t, db, "bob@example.com", "Bob")
	if err := NewPartnerStore(db).Link(alice.ID, bob.ID); err != nil {
		t.Fatalf("link partners: %v", err)
	}
	return alice, bob
}
