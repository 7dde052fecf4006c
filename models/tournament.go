package models

import "time"

// TournamentStatus mirrors the tournament status ENUM in the database.
type TournamentStatus string

const (
	TournamentStatusUpcoming  TournamentStatus = "upcoming"
	TournamentStatusActive    TournamentStatus = "active"
	TournamentStatusCompleted TournamentStatus = "completed"
	TournamentStatusCanceled  TournamentStatus = "canceled"
)

type Tournament struct {
	ID          int              `json:"id" db:"id"`
	Name        string           `json:"name" db:"name"`
	Description *string          `json:"description,omitempty" db:"description"`
	Special     bool             `json:"special" db:"special"`
	StartDate   time.Time        `json:"start_date" db:"start_date"`
	Status      TournamentStatus `json:"status" db:"status"`
	CreatedAt   time.Time        `json:"created_at" db:"created_at"`
	LogoKey     *string          `json:"-" db:"logo_key"`
	LogoURL     *string          `json:"logo_url,omitempty" db:"-"`

	// Optional related entities, loaded on demand.
	Matches []Match `json:"matches,omitempty" db:"-"`
}

// Started reports whether the tournament start date has been reached,
// the precondition for opening the first (or special) level.
func (t *Tournament) Started(now time.Time) bool {
	return !now.Before(t.StartDate)
}
