package wishlist

import "github.com/dukerupert/pairwish/internal/model"

// The checks below run before any store write. A nil item or occasion
// means the lookup found nothing.

// CheckReserve validates that actorID may reserve item. partnerID is the
// actor's linked partner, zero when unlinked.
func CheckReserve(item *model.WishlistItem, actorID, partnerID int64) error {
	if item == nil {
		return ErrNotFound
	}
	if item.AuthorID == actorID {
		return ErrOwnItem
	}
	if partnerID == 0 || item.AuthorID != partnerID {
		return ErrNotPartner
	}
	if item.IsPurchased {
		return ErrPurchased
	}
	if item.IsReserved() {
		return ErrAlreadyReserved
	}
	return nil
}

// CheckUnreserve validates that actorID holds the reservation on item.
// A purchased item keeps its reservation so it stays in the reserver's
// history.
func CheckUnreserve(item *model.WishlistItem, actorID int64) error {
	if item == nil {
		return ErrNotFound
	}
	if item.IsPurchased {
		return ErrPurchased
	}
	if !item.IsReserved() {
		return ErrNotReserved
	}
	if !item.IsReservedBy(actorID) {
		return ErrNotReserver
	}
	return nil
}

// CheckPurchase validates a purchased toggle. Only the author or the
// current reserver may flip it.
func CheckPurchase(item *model.WishlistItem, actorID int64) error {
	if item == nil {
		return ErrNotFound
	}
	if item.AuthorID != actorID && !item.IsReservedBy(actorID) {
		return ErrNoStake
	}
	return nil
}

// CheckAuthor validates update and delete.
func CheckAuthor(item *model.WishlistItem, actorID int64) error {
	if item == nil {
		return ErrNotFound
	}
	if item.AuthorID != actorID {
		return ErrNotAuthor
	}
	return nil
}

// CheckOccasionRef validates that an item authored by authorID may point at
// occ. An empty occasionID needs no check.
func CheckOccasionRef(occasionID string, occ *model.Occasion, authorID int64) error {
	if occasionID == "" {
		return nil
	}
	if occ == nil || occ.ID != occasionID || !occ.HasParticipant(authorID) {
		return ErrInvalidOccasion
	}
	return nil
}

// CheckCreateOccasion requires a linked partner.
func CheckCreateOccasion(partnerID int64) error {
	if partnerID == 0 {
		return ErrNoPartner
	}
	return nil
}

// CheckDeleteOccasion requires the actor to be a participant.
func CheckDeleteOccasion(occ *model.Occasion, actorID int64) error {
	if occ == nil {
		return ErrNotFound
	}
	if !occ.HasParticipant(actorID) {
		return ErrNotParticipant
	}
	return nil
}

// NewItem builds an item for authorID from fields. An unset priority
// defaults to P2. ID and timestamps are assigned by the store.
func NewItem(authorID int64, f model.ItemFields) model.WishlistItem {
	item := model.WishlistItem{AuthorID: authorID}
	return ApplyFields(item, f)
}

// ApplyFields merges the editable fields into item. Author, reservation
// and purchase state are left untouched.
func ApplyFields(item model.WishlistItem, f model.ItemFields) model.WishlistItem {
	item.Name = f.Name
	item.Price = f.Price
	item.Link = f.Link
	item.Notes = f.Notes
	item.Priority = f.Priority
	if item.Priority == "" {
		item.Priority = model.PriorityP2
	}
	item.ImageURL = f.ImageURL
	item.OccasionID = f.OccasionID
	return item
}
