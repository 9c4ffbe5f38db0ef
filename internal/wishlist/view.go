package wishlist

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/dukerupert/pairwish/internal/model"
)

// View names one of the derived item lists.
type View string

const (
	ViewMine         View = "mine"
	ViewTheirs       View = "theirs"
	ViewReservedByMe View = "reservedByMe"
	ViewHistory      View = "history"
	ViewAll          View = "all"
)

// SortKey selects the ordering applied to a view.
type SortKey string

const (
	SortNewest    SortKey = "newest"
	SortOldest    SortKey = "oldest"
	SortPriceHigh SortKey = "priceHigh"
	SortPriceLow  SortKey = "priceLow"
	SortPriority  SortKey = "priority"
)

// Request is the immutable set of parameters a view is derived with.
// Empty OccasionID and Priority mean no filter.
type Request struct {
	View       View
	OccasionID string
	Priority   model.Priority
	Sort       SortKey
}

// DefaultRequest is the dashboard's initial state.
var DefaultRequest = Request{View: ViewMine, Sort: SortNewest}

func parseView(s string) (View, bool) {
	switch View(s) {
	case ViewMine, ViewTheirs, ViewReservedByMe, ViewHistory, ViewAll:
		return View(s), true
	}
	return "", false
}

func parseSort(s string) (SortKey, bool) {
	switch SortKey(s) {
	case SortNewest, SortOldest, SortPriceHigh, SortPriceLow, SortPriority:
		return SortKey(s), true
	}
	return "", false
}

// isNone reports whether a filter value means "no filter".
func isNone(s string) bool {
	return s == "" || s == "none" || s == "all"
}

// ParseRequest reads view, occasion, priority and sort from query values.
// Missing values fall back to DefaultRequest.
func ParseRequest(q url.Values) (Request, error) {
	req := DefaultRequest

	if v := strings.TrimSpace(q.Get("view")); v != "" {
		view, ok := parseView(v)
		if !ok {
			return Request{}, fmt.Errorf("%w: view %q", ErrInvalidRequest, v)
		}
		req.View = view
	}

	if s := strings.TrimSpace(q.Get("sort")); s != "" {
		key, ok := parseSort(s)
		if !ok {
			return Request{}, fmt.Errorf("%w: sort %q", ErrInvalidRequest, s)
		}
		req.Sort = key
	}

	if o := strings.TrimSpace(q.Get("occasion")); !isNone(o) {
		req.OccasionID = o
	}

	if p := strings.TrimSpace(q.Get("priority")); !isNone(p) {
		prio := model.Priority(strings.ToUpper(p))
		if !prio.Valid() {
			return Request{}, fmt.Errorf("%w: priority %q", ErrInvalidRequest, p)
		}
		req.Priority = prio
	}

	return req, nil
}
