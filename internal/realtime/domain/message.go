package domain

import "time"

// MessageType definition message type
type MessageType string

const (
	// MessageText plain text
	MessageText MessageType = "text"
	// MessageImage image attachment
	MessageImage MessageType = "image"
	// MessageFile file attachment
	MessageFile MessageType = "file"
	// MessageLocation shared coordinates
	MessageLocation MessageType = "location"
	// MessageSharedListing housing listing card
	MessageSharedListing MessageType = "shared_listing"
	// MessageSystem system generated event
	MessageSystem MessageType = "system"
)

// Valid reports whether t is a known message type.
func (t MessageType) Valid() bool {
	switch t {
	case MessageText, MessageImage, MessageFile, MessageLocation, MessageSharedListing, MessageSystem:
		return true
	}
	return false
}

// DeliveryState definition message delivery state
type DeliveryState string

const (
	// DeliverySent persisted, not yet confirmed at the receiver
	DeliverySent DeliveryState = "sent"
	// DeliveryDelivered confirmed at the receiver's client
	DeliveryDelivered DeliveryState = "delivered"
	// DeliveryRead seen by the receiver
	DeliveryRead DeliveryState = "read"
	// DeliveryFailed persistence failed, retryable by the sender
	DeliveryFailed DeliveryState = "failed"
)

// CanAdvanceTo reports whether the state machine allows moving to next.
// Only forward transitions exist: sent→delivered→read, plus sent→failed.
func (s DeliveryState) CanAdvanceTo(next DeliveryState) bool {
	switch s {
	case DeliverySent:
		return next == DeliveryDelivered || next == DeliveryRead || next == DeliveryFailed
	case DeliveryDelivered:
		return next == DeliveryRead
	}
	return false
}

// Edit and delete-for-everyone windows, measured from message creation.
const (
	EditWindow         = 24 * time.Hour
	DeleteForAllWindow = time.Hour
	LastMessagePreview = 80
)

// Reaction one user's reaction on a message, at most one active per user
type Reaction struct {
	UserID    string `bson:"user_id" json:"user_id"`
	Kind      string `bson:"kind" json:"kind"`
	Timestamp int64  `bson:"timestamp" json:"timestamp"`
}

// Metadata optional message payload details by type
type Metadata struct {
	FileName string `bson:"file_name,omitempty" json:"file_name,omitempty"`
	FileSize int64  `bson:"file_size,omitempty" json:"file_size,omitempty"`
	MimeType string `bson:"mime_type,omitempty" json:"mime_type,omitempty"`

	Latitude  float64 `bson:"latitude,omitempty" json:"latitude,omitempty"`
	Longitude float64 `bson:"longitude,omitempty" json:"longitude,omitempty"`

	ListingID       string `bson:"listing_id,omitempty" json:"listing_id,omitempty"`
	ListingTitle    string `bson:"listing_title,omitempty" json:"listing_title,omitempty"`
	ListingImageURL string `bson:"listing_image_url,omitempty" json:"listing_image_url,omitempty"`

	SystemEvent string `bson:"system_event,omitempty" json:"system_event,omitempty"`
}

// Message definition message document. Messages are append-only: edits,
// reactions and deletes flip state flags, the row itself is never removed.
type Message struct {
	ID             string        `bson:"_id,omitempty" json:"id"`
	ConversationID string        `bson:"conversation_id" json:"conversation_id"`
	SenderID       string        `bson:"sender_id" json:"sender_id"`
	ReceiverID     string        `bson:"receiver_id,omitempty" json:"receiver_id,omitempty"`
	Type           MessageType   `bson:"type" json:"type"`
	Content        string        `bson:"content" json:"content"`
	Metadata       *Metadata     `bson:"metadata,omitempty" json:"metadata,omitempty"`
	ReplyTo        string        `bson:"reply_to,omitempty" json:"reply_to,omitempty"`
	ClientTempID   string        `bson:"client_temp_id,omitempty" json:"client_temp_id,omitempty"`
	DeliveryState  DeliveryState `bson:"delivery_state" json:"delivery_state"`
	SentAt         int64         `bson:"sent_at" json:"sent_at"`
	DeliveredAt    int64         `bson:"delivered_at,omitempty" json:"delivered_at,omitempty"`
	ReadAt         int64         `bson:"read_at,omitempty" json:"read_at,omitempty"`
	Reactions      []Reaction    `bson:"reactions,omitempty" json:"reactions,omitempty"`

	IsEdited        bool   `bson:"is_edited" json:"is_edited"`
	EditedAt        int64  `bson:"edited_at,omitempty" json:"edited_at,omitempty"`
	OriginalContent string `bson:"original_content,omitempty" json:"original_content,omitempty"`

	Deleted       bool  `bson:"deleted" json:"deleted"`
	DeletedAt     int64 `bson:"deleted_at,omitempty" json:"deleted_at,omitempty"`
	DeletedForAll bool  `bson:"deleted_for_all" json:"deleted_for_all"`
}

// EditableBy reports whether userID may still edit the message at now.
// Only the sender can edit, only text messages, within the edit window,
// and never after deletion.
func (m *Message) EditableBy(userID string, now time.Time) bool {
	if m.Deleted || m.SenderID != userID || m.Type != MessageText {
		return false
	}
	return now.UnixMilli()-m.SentAt <= EditWindow.Milliseconds()
}

// DeletableForAllBy reports whether userID may delete the message for
// every participant at now.
func (m *Message) DeletableForAllBy(userID string, now time.Time) bool {
	if m.SenderID != userID {
		return false
	}
	return now.UnixMilli()-m.SentAt <= DeleteForAllWindow.Milliseconds()
}

// SetReaction replaces any existing reaction by userID with kind.
// A user keeps at most one reaction per message.
func (m *Message) SetReaction(userID, kind string, now time.Time) {
	for i := range m.Reactions {
		if m.Reactions[i].UserID == userID {
			m.Reactions[i].Kind = kind
			m.Reactions[i].Timestamp = now.UnixMilli()
			return
		}
	}
	m.Reactions = append(m.Reactions, Reaction{UserID: userID, Kind: kind, Timestamp: now.UnixMilli()})
}

// RemoveReaction clears userID's reaction if present. It reports whether
// a reaction was removed.
func (m *Message) RemoveReaction(userID string) bool {
	for i := range m.Reactions {
		if m.Reactions[i].UserID == userID {
			m.Reactions = append(m.Reactions[:i], m.Reactions[i+1:]...)
			return true
		}
	}
	return false
}
