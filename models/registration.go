package models

import "time"

type RegistrationStatus string

const (
	RegistrationStatusPending   RegistrationStatus = "pending"
	RegistrationStatusConfirmed RegistrationStatus = "confirmed"
	RegistrationStatusWithdrawn RegistrationStatus = "withdrawn"
)

// Registration ties a player to a tournament. Confirmed registrations
// are what the community-level (or special) pairing draws from.
type Registration struct {
	ID           int                `json:"id"`
	UserID       int                `json:"user_id"`
	TournamentID int                `json:"tournament_id"`
	Status       RegistrationStatus `json:"status"`
	CreatedAt    time.Time          `json:"created_at"`

	User *User `json:"user,omitempty"`
}
