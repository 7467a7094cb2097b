package domain

// NotificationClass which out-of-band channel should carry the nudge
type NotificationClass string

const (
	// NotifyNone no out-of-band notification
	NotifyNone NotificationClass = "none"
	// NotifyPush push notification to the recipient's devices
	NotifyPush NotificationClass = "push"
	// NotifyEmail email digest for recipients absent for a while
	NotifyEmail NotificationClass = "email"
)

// NotificationRequest out-of-band notification handed to the dispatcher.
// Dispatch is fire-and-forget: a failed dispatch never rolls back the
// persisted message.
type NotificationRequest struct {
	Class          NotificationClass `json:"class"`
	RecipientID    string            `json:"recipient_id"`
	SenderID       string            `json:"sender_id"`
	ConversationID string            `json:"conversation_id"`
	MessageID      string            `json:"message_id"`
	Preview        string            `json:"preview"`
	SentAt         int64             `json:"sent_at"`
}
