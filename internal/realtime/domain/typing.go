package domain

import "time"

// TypingStatus one user typing in one conversation. Entries expire after
// a short TTL unless refreshed by another typing_start.
type TypingStatus struct {
	UserID         string    `json:"user_id"`
	ConversationID string    `json:"conversation_id"`
	StartedAt      time.Time `json:"-"`
}

// Expired reports whether the entry is older than ttl at now.
func (t TypingStatus) Expired(now time.Time, ttl time.Duration) bool {
	return now.Sub(t.StartedAt) > ttl
}
