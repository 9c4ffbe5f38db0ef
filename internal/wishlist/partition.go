package wishlist

import (
	"github.com/dukerupert/pairwish/internal/model"
	"github.com/shopspring/decimal"
)

// Partition holds the view-independent split of one snapshot of both lists
// as seen by a single user.
type Partition struct {
	MyVisible      []model.WishlistItem
	PartnerVisible []model.WishlistItem
	ReservedByMe   []model.WishlistItem
	History        []model.WishlistItem
}

// NewPartition splits mine and theirs for userID. A nil theirs (no partner
// linked yet) behaves as an empty list.
func NewPartition(userID int64, mine, theirs []model.WishlistItem) Partition {
	var p Partition

	for _, item := range mine {
		if item.IsPurchased {
			continue
		}
		// A live reservation hides the item from its author.
		if !item.IsReserved() {
			p.MyVisible = append(p.MyVisible, item)
		}
	}

	for _, item := range theirs {
		if item.IsPurchased {
			continue
		}
		switch {
		case !item.IsReserved():
			p.PartnerVisible = append(p.PartnerVisible, item)
		case item.IsReservedBy(userID):
			p.ReservedByMe = append(p.ReservedByMe, item)
		}
	}

	for _, list := range [][]model.WishlistItem{mine, theirs} {
		for _, item := range list {
			if item.IsPurchased && (item.AuthorID == userID || item.IsReservedBy(userID)) {
				p.History = append(p.History, item)
			}
		}
	}

	return p
}

// All concatenates my visible items and my partner's visible items.
func (p Partition) All() []model.WishlistItem {
	all := make([]model.WishlistItem, 0, len(p.MyVisible)+len(p.PartnerVisible))
	all = append(all, p.MyVisible...)
	return append(all, p.PartnerVisible...)
}

// Select returns the unfiltered, unsorted items backing view v.
func (p Partition) Select(v View) []model.WishlistItem {
	switch v {
	case ViewTheirs:
		return p.PartnerVisible
	case ViewReservedByMe:
		return p.ReservedByMe
	case ViewHistory:
		return p.History
	case ViewAll:
		return p.All()
	default:
		return p.MyVisible
	}
}

// ReservedTotal sums the price of every item reserved by the user. It is
// independent of any filter so it always reflects the full commitment.
func (p Partition) ReservedTotal() decimal.Decimal {
	total := decimal.Zero
	for _, item := range p.ReservedByMe {
		total = total.Add(item.Price)
	}
	return total
}

// Conceal hides reservation details of an unpurchased item from its author.
func Conceal(item model.WishlistItem, viewerID int64) model.WishlistItem {
	if item.AuthorID == viewerID && !item.IsPurchased {
		item.ReservedBy = nil
		item.ReservedByName = ""
	}
	return item
}
