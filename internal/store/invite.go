package store

import (
	"crypto/rand"
	"database/sql"
	"fmt"
	"math/big"
	"time"

	"github.com/dukerupert/pairwish/internal/model"
)

// InviteTTL is how long a partner invite code stays valid.
const InviteTTL = 72 * time.Hour

type InviteStore struct {
	db *sql.DB
}

func NewInviteStore(db *sql.DB) *InviteStore {
	return &InviteStore{db: db}
}

func scanInvite(scanner interface{ Scan(...any) error }) (*model.PartnerInvite, error) {
	var inv model.PartnerInvite
	var usedAt sql.NullTime

	err := scanner.Scan(&inv.ID, &inv.Code, &inv.InviterID, &inv.Email, &inv.ExpiresAt, &usedAt, &inv.CreatedAt)
	if err != nil {
		return nil, err
	}
	if usedAt.Valid {
		inv.UsedAt = &usedAt.Time
	}
	return &inv, nil
}

const inviteCols = `id, code, inviter_id, email, expires_at, used_at, created_at`

// generateCode returns a 6-digit numeric code (100000–999999).
func generateCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(900000))
	if err != nil {
		return "", fmt.Errorf("generate code: %w", err)
	}
	return fmt.Sprintf("%06d", n.Int64()+100000), nil
}

// Create issues a new invite from inviterID to email. Pending invites from
// the same inviter are invalidated first.
func (s *InviteStore) Create(inviterID int64, email string) (*model.PartnerInvite, error) {
	now := time.Now().UTC()

	_, err := s.db.Exec(
		`UPDATE partner_invites SET used_at = ? WHERE inviter_id = ? AND used_at IS NULL`,
		now, inviterID,
	)
	if err != nil {
		return nil, fmt.Errorf("invalidate previous invites: %w", err)
	}

	code, err := generateCode()
	if err != nil {
		return nil, err
	}

	result, err := s.db.Exec(
		`INSERT INTO partner_invites (code, inviter_id, email, expires_at, created_at) VALUES (?, ?, ?, ?, ?)`,
		code, inviterID, normalizeEmail(email), now.Add(InviteTTL), now,
	)
	if err != nil {
		return nil, fmt.Errorf("insert partner invite: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	row := s.db.QueryRow(`SELECT `+inviteCols+` FROM partner_invites WHERE id = ?`, id)
	return scanInvite(row)
}

// GetValid returns the unused, unexpired invite matching code and email,
// or nil if there is none.
func (s *InviteStore) GetValid(code, email string) (*model.PartnerInvite, error) {
	row := s.db.QueryRow(
		`SELECT `+inviteCols+` FROM partner_invites
		 WHERE code = ? AND email = ? AND used_at IS NULL AND expires_at > ?
		 ORDER BY created_at DESC LIMIT 1`,
		code, normalizeEmail(email), time.Now().UTC(),
	)
	inv, err := scanInvite(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get partner invite: %w", err)
	}
	return inv, nil
}

func (s *InviteStore) MarkUsed(id int64) error {
	_, err := s.db.Exec(`UPDATE partner_invites SET used_at = ? WHERE id = ?`, time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("mark partner invite used: %w", err)
	}
	return nil
}

func (s *InviteStore) DeleteExpired() (int64, error) {
	result, err := s.db.Exec(`DELETE FROM partner_invites WHERE expires_at <= ?`, time.Now().UTC())
	if err != nil {
		return 0, fmt.Errorf("delete expired partner invites: %w", err)
	}
	count, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("rows affected: %w", err)
	}
	return count, nil
}
