package domain

import "time"

// ConversationType definition conversation type
type ConversationType string

const (
	// ConversationDirect 1 on 1 conversation
	ConversationDirect ConversationType = "direct"
	// ConversationGroup group conversation, 2-50 participants
	ConversationGroup ConversationType = "group"
	// ConversationSupport conversation with a support agent
	ConversationSupport ConversationType = "support"
)

// ConversationStatus definition conversation lifecycle status
type ConversationStatus string

const (
	// ConversationActive messages may flow
	ConversationActive ConversationStatus = "active"
	// ConversationArchived kept for history, no new messages
	ConversationArchived ConversationStatus = "archived"
	// ConversationBlocked blocked by a participant
	ConversationBlocked ConversationStatus = "blocked"
	// ConversationDeleted soft-deleted, rows are never removed
	ConversationDeleted ConversationStatus = "deleted"
)

// ParticipantRole definition participant role
type ParticipantRole string

const (
	// RoleMember regular participant
	RoleMember ParticipantRole = "member"
	// RoleAdmin group admin
	RoleAdmin ParticipantRole = "admin"
)

// MaxGroupParticipants upper bound on group conversation size
const MaxGroupParticipants = 50

// ParticipantState per-participant conversation state
type ParticipantState struct {
	Role        ParticipantRole `bson:"role" json:"role"`
	Active      bool            `bson:"active" json:"active"`
	LastSeenAt  int64           `bson:"last_seen_at,omitempty" json:"last_seen_at,omitempty"`
	UnreadCount int             `bson:"unread_count" json:"unread_count"`
	Muted       bool            `bson:"muted" json:"muted"`
	MuteUntil   int64           `bson:"mute_until,omitempty" json:"mute_until,omitempty"`
}

// LastMessage denormalized summary for conversation list views
type LastMessage struct {
	MessageID string      `bson:"message_id" json:"message_id"`
	Preview   string      `bson:"preview" json:"preview"`
	SenderID  string      `bson:"sender_id" json:"sender_id"`
	Type      MessageType `bson:"type" json:"type"`
	Timestamp int64       `bson:"timestamp" json:"timestamp"`
}

// Analytics incrementally maintained conversation counters
type Analytics struct {
	TotalMessages       int64   `bson:"total_messages" json:"total_messages"`
	MessagesThisWeek    int64   `bson:"messages_this_week" json:"messages_this_week"`
	MessagesThisMonth   int64   `bson:"messages_this_month" json:"messages_this_month"`
	AverageResponseTime float64 `bson:"average_response_time" json:"average_response_time"`
	LastActivityAt      int64   `bson:"last_activity_at" json:"last_activity_at"`
}

// Conversation definition conversation document
type Conversation struct {
	ID               string                       `bson:"_id,omitempty" json:"id"`
	Type             ConversationType             `bson:"type" json:"type"`
	Participants     []string                     `bson:"participants" json:"participants"`
	ParticipantState map[string]*ParticipantState `bson:"participant_state" json:"participant_state"`
	LastMessage      *LastMessage                 `bson:"last_message,omitempty" json:"last_message,omitempty"`
	Status           ConversationStatus           `bson:"status" json:"status"`
	CreatedAt        int64                        `bson:"created_at" json:"created_at"`
	Analytics        Analytics                    `bson:"analytics" json:"analytics"`
}

// StateOf returns the participant state for userID, nil when not a participant.
func (c *Conversation) StateOf(userID string) *ParticipantState {
	if c.ParticipantState == nil {
		return nil
	}
	return c.ParticipantState[userID]
}

// IsActiveParticipant reports whether userID is an active participant.
func (c *Conversation) IsActiveParticipant(userID string) bool {
	st := c.StateOf(userID)
	return st != nil && st.Active
}

// IsMutedFor reports whether the conversation is muted for userID at now.
// An expired mute-until no longer counts.
func (c *Conversation) IsMutedFor(userID string, now time.Time) bool {
	st := c.StateOf(userID)
	if st == nil || !st.Muted {
		return false
	}
	if st.MuteUntil > 0 && st.MuteUntil <= now.UnixMilli() {
		return false
	}
	return true
}

// DirectReceiver returns the other participant of a direct conversation,
// empty for group and support conversations.
func (c *Conversation) DirectReceiver(senderID string) string {
	if c.Type != ConversationDirect {
		return ""
	}
	for _, p := range c.Participants {
		if p != senderID {
			return p
		}
	}
	return ""
}

// AcceptsMessages reports whether new messages may be sent.
func (c *Conversation) AcceptsMessages() bool {
	return c.Status == ConversationActive
}
