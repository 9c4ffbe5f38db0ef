package model

import "time"

type Occasion struct {
	ID             string    `json:"id"`
	Name           string    `json:"name"`
	Date           time.Time `json:"date"`
	CreatedBy      int64     `json:"created_by"`
	ParticipantIDs []int64   `json:"participant_ids"`
	CreatedAt      time.Time `json:"created_at"`
}

// HasParticipant reports whether userID takes part in the occasion.
func (o Occasion) HasParticipant(userID int64) bool {
	for _, id := range o.ParticipantIDs {
		if id == userID {
			return true
		}
	}
	return false
}
