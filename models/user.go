package models

import "time"

type User struct {
	ID           int       `json:"id"`
	FirstName    string    `json:"first_name"`
	LastName     string    `json:"last_name"`
	Nickname     *string   `json:"nickname,omitempty"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	Role         string    `json:"role"`
	TotalPoints  int       `json:"total_points"`
	CreatedAt    time.Time `json:"created_at"`
	LogoKey      *string   `json:"-"`
	LogoURL      *string   `json:"logo_url,omitempty"`

	// Geographic placement, the grouping axis for hierarchical pairing.
	CommunityID *int `json:"community_id,omitempty"`
	CountyID    *int `json:"county_id,omitempty"`
	RegionID    *int `json:"region_id,omitempty"`
}

const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

type Credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// GroupIDForLevel returns the user's group id at the given tournament
// level, or nil for levels without groups.
func (u *User) GroupIDForLevel(level TournamentLevel) *int {
	switch level {
	case LevelCommunity:
		return u.CommunityID
	case LevelCounty:
		return u.CountyID
	case LevelRegional:
		return u.RegionID
	}
	return nil
}
