package store

import (
	"testing"
	"time"

	"github.com/dukerupert/pairwish/internal/model"
)

func TestOccasionCreateAndList(t *testing.T) {
	db := setupTestDB(t)
	alice, bob := createTestCouple(t, db)
	carol := createTestUser(t, db, "carol@example.com", "Carol")
	occs := NewOccasionStore(db)

	later := time.Date(2026, 12, 25, 0, 0, 0, 0, time.UTC)
	sooner := time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)

	xmas, err := occs.Create("Christmas", later, alice.ID, []int64{alice.ID, bob.ID})
	if err != nil {
		t.Fatalf("create occasion: %v", err)
	}
	if xmas.ID == "" {
		t.Fatal("expected generated id")
	}
	if !xmas.Date.Equal(later) {
		t.Errorf("date = %v, want %v", xmas.Date, later)
	}
	if !xmas.HasParticipant(alice.ID) || !xmas.HasParticipant(bob.ID) || len(xmas.ParticipantIDs) != 2 {
		t.Errorf("participants = %v", xmas.ParticipantIDs)
	}

	if _, err := occs.Create("Birthday", sooner, bob.ID, []int64{alice.ID, bob.ID}); err != nil {
		t.Fatalf("create occasion: %v", err)
	}

	list, err := occs.ListByParticipant(bob.ID)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list) != 2 {
		t.Fatalf("len = %d, want 2", len(list))
	}
	if list[0].Name != "Birthday" {
		t.Errorf("first = %q, want Birthday (earliest date)", list[0].Name)
	}
	if len(list[1].ParticipantIDs) != 2 {
		t.Errorf("participants not loaded: %v", list[1].ParticipantIDs)
	}

	none, err := occs.ListByParticipant(carol.ID)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(none) != 0 {
		t.Errorf("carol sees %d occasions, want 0", len(none))
	}
}

func TestOccasionDeleteClearsItemReference(t *testing.T) {
	db := setupTestDB(t)
	alice, bob := createTestCouple(t, db)
	occs := NewOccasionStore(db)
	is := NewItemStore(db)

	occ, _ := occs.Create("Anniversary", time.Now().Add(48*time.Hour), alice.ID, []int64{alice.ID, bob.ID})
	it, err := is.Create(model.WishlistItem{AuthorID: alice.ID, Name: "Watch", OccasionID: occ.ID, Priority: model.PriorityP2})
	if err != nil {
		t.Fatalf("create item: %v", err)
	}
	if it.OccasionID != occ.ID {
		t.Fatalf("occasion = %q, want %q", it.OccasionID, occ.ID)
	}

	if err := occs.Delete(occ.ID); err != nil {
		t.Fatalf("delete occasion: %v", err)
	}
	got, _ := is.GetByID(it.ID)
	if got.OccasionID != "" {
		t.Errorf("occasion = %q, want cleared", got.OccasionID)
	}
	if o, _ := occs.GetByID(occ.ID); o != nil {
		t.Error("expected nil after delete")
	}
}

func TestOccasionListBetween(t *testing.T) {
	db := setupTestDB(t)
	alice, bob := createTestCouple(t, db)
	occs := NewOccasionStore(db)

	base := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	occs.Create("In", base.Add(24*time.Hour), alice.ID, []int64{alice.ID, bob.ID})
	occs.Create("Out", base.Add(10*24*time.Hour), alice.ID, []int64{alice.ID, bob.ID})

	got, err := occs.ListBetween(base, base.Add(2*24*time.Hour))
	if err != nil {
		t.Fatalf("list between: %v", err)
	}
	if len(got) != 1 || got[0].Name != "In" {
		t.Fatalf("got %+v, want only In", got)
	}
}
