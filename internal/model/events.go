package model

import "time"

// EventType identifies the type of event
type EventType string

const (
	// Session events
	EventSignedIn    EventType = "signed_in"
	EventNameUpdated EventType = "name_updated"
	EventSignedOut   EventType = "signed_out"
	EventAuthError   EventType = "auth_error"

	// Progression events
	EventProgressionLoaded  EventType = "progression_loaded"
	EventProgressionUpdated EventType = "progression_updated"
)

// Event is the base structure for all events
type Event struct {
	Type      EventType `json:"type"`
	Timestamp time.Time `json:"timestamp"`
	PlayerID  PlayerID  `json:"player_id,omitempty"`
	Payload   any       `json:"payload,omitempty"`
}

// SignedInPayload contains data for signed in events
type SignedInPayload struct {
	PlayerID   PlayerID `json:"player_id"`
	PlayerName string   `json:"player_name"`
}

// NameUpdatedPayload contains data for name updated events
type NameUpdatedPayload struct {
	Name string `json:"name"`
}

// AuthErrorKind classifies an auth error for display; it never changes control flow
type AuthErrorKind string

const (
	AuthErrorInitialization AuthErrorKind = "initialization"
	AuthErrorAuthentication AuthErrorKind = "authentication"
	AuthErrorConnectivity   AuthErrorKind = "connectivity"
	AuthErrorExpired        AuthErrorKind = "expired"
	AuthErrorRename         AuthErrorKind = "rename"
	AuthErrorAccount        AuthErrorKind = "account"
)

// AuthErrorPayload contains data for auth error events
type AuthErrorPayload struct {
	Kind    AuthErrorKind `json:"kind"`
	Message string        `json:"message"`
}

// LoadOutcome describes how a progression load completed
type LoadOutcome string

const (
	LoadOutcomeNone     LoadOutcome = ""         // no load has completed
	LoadOutcomeStored   LoadOutcome = "stored"   // decoded from the remote blob
	LoadOutcomeCreated  LoadOutcome = "created"  // no blob existed; defaults were written
	LoadOutcomeDefaults LoadOutcome = "defaults" // fetch or decode failed; defaults in memory only
)

// ProgressionLoadedPayload contains data for progression loaded events
type ProgressionLoadedPayload struct {
	Outcome LoadOutcome `json:"outcome"`
}

// UpdateReason names what caused a progression update
type UpdateReason string

const (
	UpdateReasonLoad       UpdateReason = "load"
	UpdateReasonExperience UpdateReason = "experience"
	UpdateReasonSkillPoint UpdateReason = "skill_point"
	UpdateReasonRename     UpdateReason = "rename"
	UpdateReasonReset      UpdateReason = "reset"
	UpdateReasonSaved      UpdateReason = "saved"
	UpdateReasonForget     UpdateReason = "forget"
)

// ProgressionUpdatedPayload contains data for progression updated events
type ProgressionUpdatedPayload struct {
	Reason       UpdateReason `json:"reason"`
	Progression  Progression  `json:"progression"`
	LevelsGained int          `json:"levels_gained,omitempty"`
}
