package models

import "time"

// Winner is a recorded level outcome: player placed at `position` within
// the group identified by LevelID at the given tournament level. Rows are
// written once a group finishes and are never mutated; this service reads
// them for progression gating and removes them only on admin purges.
type Winner struct {
	ID           int             `json:"id"`
	PlayerID     int             `json:"player_id"`
	TournamentID int             `json:"tournament_id"`
	Level        TournamentLevel `json:"level"`
	Position     int             `json:"position"`
	LevelID      *int            `json:"level_id,omitempty"`
	CreatedAt    time.Time       `json:"created_at"`
}
