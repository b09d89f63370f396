package response

import (
	"time"

	"github.com/mcoot/playersync/internal/model"
)

// Session represents the authentication session in API responses
type Session struct {
	State      string     `json:"state"`
	PlayerID   string     `json:"player_id,omitempty"`
	PlayerName string     `json:"player_name,omitempty"`
	ExpiresAt  *time.Time `json:"expires_at,omitempty"`
	SignedInAt *time.Time `json:"signed_in_at,omitempty"`
	LastError  string     `json:"last_error,omitempty"`
}

// SessionFromModel converts a session snapshot. The access token is never exposed.
func SessionFromModel(s model.Session) Session {
	out := Session{
		State:      string(s.State),
		PlayerID:   string(s.PlayerID),
		PlayerName: s.PlayerName,
		LastError:  s.LastError,
	}
	if !s.ExpiresAt.IsZero() {
		expires := s.ExpiresAt
		out.ExpiresAt = &expires
	}
	if !s.SignedInAt.IsZero() {
		signedIn := s.SignedInAt
		out.SignedInAt = &signedIn
	}
	return out
}

// Progression represents the player's progression in API responses
type Progression struct {
	Loaded               bool    `json:"loaded"`
	Outcome              string  `json:"outcome,omitempty"`
	PlayerID             string  `json:"player_id,omitempty"`
	PlayerName           string  `json:"player_name"`
	Level                int     `json:"level"`
	Experience           int     `json:"experience"`
	ExperienceToNext     int     `json:"experience_to_next"`
	Progress             float64 `json:"progress"`
	AvailableSkillPoints int     `json:"available_skill_points"`
	Strength             int     `json:"strength"`
	Defense              int     `json:"defense"`
	Agility              int     `json:"agility"`
	TotalClicks          int     `json:"total_clicks"`
}

// ProgressionFromModel converts a progression snapshot
func ProgressionFromModel(p model.Progression, playerID model.PlayerID, loaded bool, outcome model.LoadOutcome) Progression {
	return Progression{
		Loaded:               loaded,
		Outcome:              string(outcome),
		PlayerID:             string(playerID),
		PlayerName:           p.PlayerName,
		Level:                p.Level,
		Experience:           p.Experience,
		ExperienceToNext:     p.RequiredXP() - p.Experience,
		Progress:             p.Progress(),
		AvailableSkillPoints: p.AvailableSkillPoints,
		Strength:             p.Strength,
		Defense:              p.Defense,
		Agility:              p.Agility,
		TotalClicks:          p.TotalClicks,
	}
}

// Accepted acknowledges an operation whose outcome arrives as an event
type Accepted struct {
	Status string `json:"status"`
}
