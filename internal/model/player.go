package model

import "time"

// PlayerID uniquely identifies a player at the identity provider
type PlayerID string

// Account is the identity provider's record of a player
type Account struct {
	PlayerID     PlayerID  `json:"playerId"`
	Username     string    `json:"username,omitempty"` // empty for anonymous players
	Name         string    `json:"name"`
	PasswordHash string    `json:"passwordHash,omitempty"` // bcrypt hash
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// IsAnonymous reports whether the account was created without credentials
func (a *Account) IsAnonymous() bool {
	return a.Username == ""
}
