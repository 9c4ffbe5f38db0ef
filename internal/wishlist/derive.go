package wishlist

import (
	"github.com/dukerupert/pairwish/internal/model"
	"github.com/shopspring/decimal"
)

// Section is a labeled sub-list of the combined view.
type Section struct {
	Label string               `json:"label"`
	Items []model.WishlistItem `json:"items"`
}

// Result is what the rendering layer receives for one view request.
type Result struct {
	View          View                 `json:"view"`
	Items         []model.WishlistItem `json:"items"`
	Sections      []Section            `json:"sections,omitempty"`
	ReservedTotal *decimal.Decimal     `json:"reserved_total,omitempty"`
}

func apply(items []model.WishlistItem, req Request) []model.WishlistItem {
	return Sort(Filter(items, req.OccasionID, req.Priority), req.Sort)
}

// Derive computes the items to display for req from a fresh snapshot of the
// user's own items and their partner's items. It never fails.
func Derive(userID int64, mine, theirs []model.WishlistItem, req Request) Result {
	p := NewPartition(userID, mine, theirs)

	res := Result{
		View:  req.View,
		Items: apply(p.Select(req.View), req),
	}

	switch req.View {
	case ViewAll:
		res.Sections = []Section{
			{Label: string(ViewMine), Items: apply(p.MyVisible, req)},
			{Label: string(ViewTheirs), Items: apply(p.PartnerVisible, req)},
		}
	case ViewReservedByMe:
		total := p.ReservedTotal()
		res.ReservedTotal = &total
	case ViewMine, ViewTheirs, ViewHistory:
	default:
		res.View = ViewMine
	}

	return res
}
