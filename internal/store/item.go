package store

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/dukerupert/pairwish/internal/model"
	"github.com/dukerupert/pairwish/internal/wishlist"
)

type ItemStore struct {
	db *sql.DB
}

func NewItemStore(db *sql.DB) *ItemStore {
	return &ItemStore{db: db}
}

func scanItem(scanner interface{ Scan(...any) error }) (*model.WishlistItem, error) {
	var it model.WishlistItem
	var occasionID sql.NullString
	var reservedBy sql.NullInt64

	err := scanner.Scan(
		&it.ID, &it.AuthorID, &it.Name, &it.Price, &it.Link, &it.Notes, &it.Priority,
		&it.ImageURL, &occasionID, &reservedBy, &it.ReservedByName, &it.IsPurchased,
		&it.CreatedAt, &it.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if occasionID.Valid {
		it.OccasionID = occasionID.String
	}
	if reservedBy.Valid {
		it.ReservedBy = &reservedBy.Int64
	}
	return &it, nil
}

const itemCols = `id, author_id, name, price, link, notes, priority, image_url, occasion_id, reserved_by, reserved_by_name, is_purchased, created_at, updated_at`

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

// Create stores a new item. ID and timestamps are assigned here; the
// reservation and purchase state of the input are ignored.
func (s *ItemStore) Create(item model.WishlistItem) (*model.WishlistItem, error) {
	id := uuid.NewString()
	now := time.Now().UTC()

	_, err := s.db.Exec(
		`INSERT INTO wishlist_items (id, author_id, name, price, link, notes, priority, image_url, occasion_id, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		id, item.AuthorID, item.Name, item.Price, item.Link, item.Notes, item.Priority,
		item.ImageURL, nullString(item.OccasionID), now, now,
	)
	if err != nil {
		return nil, fmt.Errorf("insert wishlist item: %w", err)
	}
	return s.GetByID(id)
}

func (s *ItemStore) GetByID(id string) (*model.WishlistItem, error) {
	row := s.db.QueryRow(`SELECT `+itemCols+` FROM wishlist_items WHERE id = ?`, id)
	it, err := scanItem(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get wishlist item: %w", err)
	}
	return it, nil
}

// ListByAuthor returns every item authored by authorID, newest first.
func (s *ItemStore) ListByAuthor(authorID int64) ([]model.WishlistItem, error) {
	rows, err := s.db.Query(
		`SELECT `+itemCols+` FROM wishlist_items WHERE author_id = ? ORDER BY created_at DESC`,
		authorID,
	)
	if err != nil {
		return nil, fmt.Errorf("list wishlist items: %w", err)
	}
	defer rows.Close()

	var items []model.WishlistItem
	for rows.Next() {
		it, err := scanItem(rows)
		if err != nil {
			return nil, fmt.Errorf("scan wishlist item: %w", err)
		}
		items = append(items, *it)
	}
	return items, rows.Err()
}

// Update merges the author-editable fields. author_id is never written.
func (s *ItemStore) Update(id string, f model.ItemFields) (*model.WishlistItem, error) {
	_, err := s.db.Exec(
		`UPDATE wishlist_items
		 SET name = ?, price = ?, link = ?, notes = ?, priority = ?, image_url = ?, occasion_id = ?, updated_at = ?
		 WHERE id = ?`,
		f.Name, f.Price, f.Link, f.Notes, f.Priority, f.ImageURL, nullString(f.OccasionID), time.Now().UTC(), id,
	)
	if err != nil {
		return nil, fmt.Errorf("update wishlist item: %w", err)
	}
	return s.GetByID(id)
}

// Reserve sets the reservation only while the item is still free and
// unpurchased. A lost race returns wishlist.ErrAlreadyReserved.
func (s *ItemStore) Reserve(id string, userID int64, userName string) (*model.WishlistItem, error) {
	result, err := s.db.Exec(
		`UPDATE wishlist_items SET reserved_by = ?, reserved_by_name = ?, updated_at = ?
		 WHERE id = ? AND reserved_by IS NULL AND is_purchased = 0`,
		userID, userName, time.Now().UTC(), id,
	)
	if err != nil {
		return nil, fmt.Errorf("reserve wishlist item: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return nil, wishlist.ErrAlreadyReserved
	}
	return s.GetByID(id)
}

// Unreserve clears the reservation only when userID holds it and the item
// is not purchased yet.
func (s *ItemStore) Unreserve(id string, userID int64) (*model.WishlistItem, error) {
	result, err := s.db.Exec(
		`UPDATE wishlist_items SET reserved_by = NULL, reserved_by_name = '', updated_at = ?
		 WHERE id = ? AND reserved_by = ? AND is_purchased = 0`,
		time.Now().UTC(), id, userID,
	)
	if err != nil {
		return nil, fmt.Errorf("unreserve wishlist item: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		current, err := s.GetByID(id)
		if err != nil {
			return nil, err
		}
		if current != nil && current.IsPurchased {
			return nil, wishlist.ErrPurchased
		}
		return nil, wishlist.ErrNotReserver
	}
	return s.GetByID(id)
}

func (s *ItemStore) SetPurchased(id string, purchased bool) (*model.WishlistItem, error) {
	_, err := s.db.Exec(
		`UPDATE wishlist_items SET is_purchased = ?, updated_at = ? WHERE id = ?`,
		purchased, time.Now().UTC(), id,
	)
	if err != nil {
		return nil, fmt.Errorf("set wishlist item purchased: %w", err)
	}
	return s.GetByID(id)
}

func (s *ItemStore) Delete(id string) error {
	_, err := s.db.Exec(`DELETE FROM wishlist_items WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete wishlist item: %w", err)
	}
	return nil
}

// ClearReservationsBetween drops reservations either user holds on the
// other's unpurchased items. Used when a partner link is removed.
func (s *ItemStore) ClearReservationsBetween(a, b int64) error {
	_, err := s.db.Exec(
		`UPDATE wishlist_items SET reserved_by = NULL, reserved_by_name = '', updated_at = ?
		 WHERE is_purchased = 0 AND ((author_id = ? AND reserved_by = ?) OR (author_id = ? AND reserved_by = ?))`,
		time.Now().UTC(), a, b, b, a,
	)
	if err != nil {
		return fmt.Errorf("clear reservations: %w", err)
	}
	return nil
}
