package models

import "time"

type MatchStatus string

const (
	MatchStatusPending             MatchStatus = "pending"
	MatchStatusScheduled           MatchStatus = "scheduled"
	MatchStatusInProgress          MatchStatus = "in_progress"
	MatchStatusPendingConfirmation MatchStatus = "pending_confirmation"
	MatchStatusCompleted           MatchStatus = "completed"
	MatchStatusForfeit             MatchStatus = "forfeit"
)

// IsFinal reports whether the status counts as a final outcome for
// level aggregation. Forfeit is final, same as completed.
func (s MatchStatus) IsFinal() bool {
	return s == MatchStatusCompleted || s == MatchStatusForfeit
}

type TournamentLevel string

const (
	LevelCommunity TournamentLevel = "community"
	LevelCounty    TournamentLevel = "county"
	LevelRegional  TournamentLevel = "regional"
	LevelNational  TournamentLevel = "national"
	LevelSpecial   TournamentLevel = "special"
)

// LevelLadder is the ordered progression for regular tournaments.
// Special tournaments use the single flat LevelSpecial instead.
var LevelLadder = []TournamentLevel{LevelCommunity, LevelCounty, LevelRegional, LevelNational}

func (l TournamentLevel) Valid() bool {
	switch l {
	case LevelCommunity, LevelCounty, LevelRegional, LevelNational, LevelSpecial:
		return true
	}
	return false
}

// HasGroups reports whether matches at this level carry a group id.
// National and special matches form a single flat pool.
func (l TournamentLevel) HasGroups() bool {
	return l == LevelCommunity || l == LevelCounty || l == LevelRegional
}

type Match struct {
	ID           int             `json:"id"`
	TournamentID int             `json:"tournament_id"`
	Level        TournamentLevel `json:"level"`
	GroupID      *int            `json:"group_id,omitempty"`

	Player1ID   *int `json:"player_1_id,omitempty"`
	Player2ID   *int `json:"player_2_id,omitempty"`
	ByePlayerID *int `json:"bye_player_id,omitempty"`

	ProposedDates         []time.Time `json:"proposed_dates,omitempty"`
	Player1PreferredDates []time.Time `json:"player_1_preferred_dates,omitempty"`
	Player2PreferredDates []time.Time `json:"player_2_preferred_dates,omitempty"`
	ScheduledDate         *time.Time  `json:"scheduled_date,omitempty"`

	Player1Points *int `json:"player_1_points,omitempty"`
	Player2Points *int `json:"player_2_points,omitempty"`
	WinnerID      *int `json:"winner_id,omitempty"`
	SubmittedBy   *int `json:"submitted_by,omitempty"`

	Status    MatchStatus `json:"status"`
	CreatedAt time.Time   `json:"created_at"`

	// Optional related entities, loaded on demand.
	Player1 *User `json:"player_1,omitempty"`
	Player2 *User `json:"player_2,omitempty"`
}

// HasParticipant reports whether userID plays in this match.
func (m *Match) HasParticipant(userID int) bool {
	if m.Player1ID != nil && *m.Player1ID == userID {
		return true
	}
	if m.Player2ID != nil && *m.Player2ID == userID {
		return true
	}
	return false
}

// Opponent returns the other participant's id, if both slots are filled.
func (m *Match) Opponent(userID int) *int {
	if m.Player1ID != nil && *m.Player1ID == userID {
		return m.Player2ID
	}
	if m.Player2ID != nil && *m.Player2ID == userID {
		return m.Player1ID
	}
	return nil
}
