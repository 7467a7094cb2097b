package domain

import "time"

// PresenceStatus definition user presence status
type PresenceStatus string

const (
	// PresenceOnline connected and active
	PresenceOnline PresenceStatus = "online"
	// PresenceAway connected, user-declared away
	PresenceAway PresenceStatus = "away"
	// PresenceBusy connected, user-declared busy
	PresenceBusy PresenceStatus = "busy"
	// PresenceOffline no live connection
	PresenceOffline PresenceStatus = "offline"
)

// Valid reports whether s is a known presence status.
func (s PresenceStatus) Valid() bool {
	switch s {
	case PresenceOnline, PresenceAway, PresenceBusy, PresenceOffline:
		return true
	}
	return false
}

// Reachable reports whether a user in this status has a live connection.
func (s PresenceStatus) Reachable() bool {
	return s == PresenceOnline || s == PresenceAway || s == PresenceBusy
}

// ActivityViewingConversation marks a user as currently looking at a
// conversation; its Detail field carries the conversation id.
const ActivityViewingConversation = "viewing_conversation"

// Activity what a connected user is currently doing, used to suppress
// redundant notifications.
type Activity struct {
	Kind      string `json:"kind"`
	Detail    string `json:"detail,omitempty"`
	StartedAt int64  `json:"started_at"`
}

// PresenceRecord live presence for one user. ConnectionIDs and Status
// move together: the set is empty exactly when Status is offline.
type PresenceRecord struct {
	UserID        string
	Status        PresenceStatus
	ConnectionIDs map[string]struct{}
	Activity      *Activity
	LastSeenAt    time.Time
}

// PresenceSnapshot durable view of a user's presence, synced out on a
// slow cadence so other services can read last-seen without the gateway.
type PresenceSnapshot struct {
	UserID     string         `json:"user_id"`
	Status     PresenceStatus `json:"status"`
	LastSeenAt int64          `json:"last_seen_at"`
}
