package wishlist

import (
	"sort"
	"time"

	"github.com/dukerupert/pairwish/internal/model"
)

// Filter keeps the items matching the occasion and priority filters. An
// empty value disables that filter.
func Filter(items []model.WishlistItem, occasionID string, priority model.Priority) []model.WishlistItem {
	out := make([]model.WishlistItem, 0, len(items))
	for _, item := range items {
		if occasionID != "" && item.OccasionID != occasionID {
			continue
		}
		if priority != "" && item.Priority != priority {
			continue
		}
		out = append(out, item)
	}
	return out
}

func createdMillis(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.UnixMilli()
}

func priorityLabel(p model.Priority) string {
	if p == "" {
		return string(model.PriorityP3)
	}
	return string(p)
}

// less reports whether a sorts strictly before b under key.
func less(key SortKey, a, b model.WishlistItem) bool {
	switch key {
	case SortOldest:
		return createdMillis(a.CreatedAt) < createdMillis(b.CreatedAt)
	case SortPriceHigh:
		return a.Price.GreaterThan(b.Price)
	case SortPriceLow:
		return a.Price.LessThan(b.Price)
	case SortPriority:
		return priorityLabel(a.Priority) < priorityLabel(b.Priority)
	default:
		return createdMillis(a.CreatedAt) > createdMillis(b.CreatedAt)
	}
}

// Sort returns a stably sorted copy of items; equal items keep their input order.
func Sort(items []model.WishlistItem, key SortKey) []model.WishlistItem {
	out := make([]model.WishlistItem, len(items))
	copy(out, items)
	sort.SliceStable(out, func(i, j int) bool {
		return less(key, out[i], out[j])
	})
	return out
}
