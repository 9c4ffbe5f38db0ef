package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Priority ranks a wishlist item. P1 is the most wanted.
type Priority string

const (
	PriorityP1 Priority = "P1"
	PriorityP2 Priority = "P2"
	PriorityP3 Priority = "P3"
)

// Valid reports whether p is one of the known priority labels.
func (p Priority) Valid() bool {
	switch p {
	case PriorityP1, PriorityP2, PriorityP3:
		return true
	}
	return false
}

type WishlistItem struct {
	ID             string          `json:"id"`
	Name           string          `json:"name"`
	Price          decimal.Decimal `json:"price"`
	Link           string          `json:"link,omitempty"`
	Notes          string          `json:"notes,omitempty"`
	AuthorID       int64           `json:"author_id"`
	Priority       Priority        `json:"priority"`
	ImageURL       string          `json:"image_url,omitempty"`
	OccasionID     string          `json:"occasion_id,omitempty"`
	ReservedBy     *int64          `json:"reserved_by,omitempty"`
	ReservedByName string          `json:"reserved_by_name,omitempty"`
	IsPurchased    bool            `json:"is_purchased"`
	CreatedAt      time.Time       `json:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at"`
}

// IsReserved reports whether someone holds a reservation on the item.
func (i WishlistItem) IsReserved() bool {
	return i.ReservedBy != nil
}

// IsReservedBy reports whether userID holds the reservation on the item.
func (i WishlistItem) IsReservedBy(userID int64) bool {
	return i.ReservedBy != nil && *i.ReservedBy == userID
}

// ItemFields is the author-editable part of an item.
type ItemFields struct {
	Name       string
	Price      decimal.Decimal
	Link       string
	Notes      string
	Priority   Priority
	ImageURL   string
	OccasionID string
}

// Fields returns the author-editable part of i.
func (i WishlistItem) Fields() ItemFields {
	return ItemFields{
		Name:       i.Name,
		Price:      i.Price,
		Link:       i.Link,
		Notes:      i.Notes,
		Priority:   i.Priority,
		ImageURL:   i.ImageURL,
		OccasionID: i.OccasionID,
	}
}
