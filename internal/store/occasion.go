package store

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/dukerupert/pairwish/internal/model"
)

type OccasionStore struct {
	db *sql.DB
}

func NewOccasionStore(db *sql.DB) *OccasionStore {
	return &OccasionStore{db: db}
}

func scanOccasion(scanner interface{ Scan(...any) error }) (*model.Occasion, error) {
	var o model.Occasion
	err := scanner.Scan(&o.ID, &o.Name, &o.Date, &o.CreatedBy, &o.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &o, nil
}

const occasionCols = `o.id, o.name, o.date, o.created_by, o.created_at`

// Create stores an occasion shared by the given participants.
func (s *OccasionStore) Create(name string, date time.Time, createdBy int64, participantIDs []int64) (*model.Occasion, error) {
	id := uuid.NewString()

	tx, err := s.db.Begin()
	if err != nil {
		return nil, fmt.Errorf("begin create occasion: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.Exec(
		`INSERT INTO occasions (id, name, date, created_by, created_at) VALUES (?, ?, ?, ?, ?)`,
		id, name, date.UTC(), createdBy, time.Now().UTC(),
	)
	if err != nil {
		return nil, fmt.Errorf("insert occasion: %w", err)
	}
	for _, uid := range participantIDs {
		_, err := tx.Exec(
			`INSERT OR IGNORE INTO occasion_participants (occasion_id, user_id) VALUES (?, ?)`,
			id, uid,
		)
		if err != nil {
			return nil, fmt.Errorf("insert occasion participant: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit create occasion: %w", err)
	}
	return s.GetByID(id)
}

func (s *OccasionStore) GetByID(id string) (*model.Occasion, error) {
	row := s.db.QueryRow(`SELECT `+occasionCols+` FROM occasions o WHERE o.id = ?`, id)
	o, err := scanOccasion(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get occasion: %w", err)
	}
	if err := s.loadParticipants(o); err != nil {
		return nil, err
	}
	return o, nil
}

// ListByParticipant returns the occasions userID takes part in, by date.
func (s *OccasionStore) ListByParticipant(userID int64) ([]model.Occasion, error) {
	rows, err := s.db.Query(
		`SELECT `+occasionCols+` FROM occasions o
		 JOIN occasion_participants op ON op.occasion_id = o.id
		 WHERE op.user_id = ? ORDER BY o.date ASC, o.created_at ASC`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("list occasions: %w", err)
	}
	return s.collect(rows)
}

// ListBetween returns occasions whose date falls in [from, to).
func (s *OccasionStore) ListBetween(from, to time.Time) ([]model.Occasion, error) {
	rows, err := s.db.Query(
		`SELECT `+occasionCols+` FROM occasions o WHERE o.date >= ? AND o.date < ? ORDER BY o.date ASC`,
		from.UTC(), to.UTC(),
	)
	if err != nil {
		return nil, fmt.Errorf("list occasions between: %w", err)
	}
	return s.collect(rows)
}

func (s *OccasionStore) Delete(id string) error {
	_, err := s.db.Exec(`DELETE FROM occasions WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete occasion: %w", err)
	}
	return nil
}

// collect drains rows before loading participants; the pool has a single
// connection so nested queries would block.
func (s *OccasionStore) collect(rows *sql.Rows) ([]model.Occasion, error) {
	var occasions []model.Occasion
	for rows.Next() {
		o, err := scanOccasion(rows)
		if err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan occasion: %w", err)
		}
		occasions = append(occasions, *o)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, fmt.Errorf("iterate occasions: %w", err)
	}
	rows.Close()

	for i := range occasions {
		if err := s.loadParticipants(&occasions[i]); err != nil {
			return nil, err
		}
	}
	return occasions, nil
}

func (s *OccasionStore) loadParticipants(o *model.Occasion) error {
	rows, err := s.db.Query(
		`SELECT user_id FROM occasion_participants WHERE occasion_id = ? ORDER BY user_id`,
		o.ID,
	)
	if err != nil {
		return fmt.Errorf("list occasion participants: %w", err)
	}
	defer rows.Close()

	o.ParticipantIDs = nil
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return fmt.Errorf("scan occasion participant: %w", err)
		}
		o.ParticipantIDs = append(o.ParticipantIDs, id)
	}
	return rows.Err()
}
