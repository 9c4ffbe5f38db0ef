package store

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/dukerupert/pairwish/internal/model"
	"github.com/dukerupert/pairwish/internal/wishlist"
)

// PartnerStore keeps the symmetric partner link. A link is stored as two
// directed rows so lookups from either side hit the primary key.
type PartnerStore struct {
	db *sql.DB
}

func NewPartnerStore(db *sql.DB) *PartnerStore {
	return &PartnerStore{db: db}
}

// Link connects a and b. It fails with wishlist.ErrAlreadyLinked when
// either user already has a partner.
func (s *PartnerStore) Link(a, b int64) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin link: %w", err)
	}
	defer tx.Rollback()

	var n int
	err = tx.QueryRow(
		`SELECT COUNT(*) FROM partner_links WHERE user_id IN (?, ?) OR partner_id IN (?, ?)`,
		a, b, a, b,
	).Scan(&n)
	if err != nil {
		return fmt.Errorf("check existing links: %w", err)
	}
	if n > 0 {
		return wishlist.ErrAlreadyLinked
	}

	now := time.Now().UTC()
	for _, pair := range [][2]int64{{a, b}, {b, a}} {
		_, err := tx.Exec(
			`INSERT INTO partner_links (user_id, partner_id, created_at) VALUES (?, ?, ?)`,
			pair[0], pair[1], now,
		)
		if err != nil {
			return fmt.Errorf("insert partner link: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit link: %w", err)
	}
	return nil
}

// Get returns the partner of userID, or nil when unlinked.
func (s *PartnerStore) Get(userID int64) (*model.Partner, error) {
	var p model.Partner
	err := s.db.QueryRow(
		`SELECT u.id, u.name, u.email, pl.created_at
		 FROM partner_links pl JOIN users u ON u.id = pl.partner_id
		 WHERE pl.user_id = ?`, userID,
	).Scan(&p.UserID, &p.Name, &p.Email, &p.LinkedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get partner: %w", err)
	}
	return &p, nil
}

// PartnerID returns the partner's user id, or 0 when unlinked.
func (s *PartnerStore) PartnerID(userID int64) (int64, error) {
	var id int64
	err := s.db.QueryRow(`SELECT partner_id FROM partner_links WHERE user_id = ?`, userID).Scan(&id)
	if err == sql.ErrNoRows {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("get partner id: %w", err)
	}
	return id, nil
}

// Unlink removes both directions of userID's link and returns the former
// partner's id, or 0 when there was none.
func (s *PartnerStore) Unlink(userID int64) (int64, error) {
	partnerID, err := s.PartnerID(userID)
	if err != nil || partnerID == 0 {
		return 0, err
	}

	_, err = s.db.Exec(
		`DELETE FROM partner_links WHERE user_id IN (?, ?)`,
		userID, partnerID,
	)
	if err != nil {
		return 0, fmt.Errorf("delete partner link: %w", err)
	}
	return partnerID, nil
}
