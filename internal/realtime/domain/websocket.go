package domain

import "encoding/json"

// Inbound actions accepted on the realtime channel.
const (
	ActionSendMessage       = "send_message"
	ActionEditMessage       = "edit_message"
	ActionDeleteMessage     = "delete_message"
	ActionReactToMessage    = "react_to_message"
	ActionMessageDelivered  = "message_delivered"
	ActionMessageRead       = "message_read"
	ActionJoinConversation  = "join_conversation"
	ActionLeaveConversation = "leave_conversation"
	ActionTypingStart       = "typing_start"
	ActionTypingStop        = "typing_stop"
	ActionStatusChange      = "status_change"
	ActionSetActivity       = "set_activity"
	ActionClearActivity     = "clear_activity"
	ActionHeartbeat         = "heartbeat"
)

// Outbound events pushed on the realtime channel.
const (
	EventNewMessage       = "new_message"
	EventMessageDelivered = "message_delivered"
	EventMessageRead      = "message_read"
	EventMessageFailed    = "message_failed"
	EventMessageEdited    = "message_edited"
	EventMessageDeleted   = "message_deleted"
	EventMessageReaction  = "message_reaction"
	EventUserTyping       = "user_typing"
	EventUserStatusChange = "user_status_change"
	EventError            = "error"
)

// WSRequest definition inbound realtime frame
type WSRequest struct {
	Action         string      `json:"action"`
	ConversationID string      `json:"conversation_id,omitempty"`
	MessageID      string      `json:"message_id,omitempty"`
	MessageIDs     []string    `json:"message_ids,omitempty"`
	Content        string      `json:"content,omitempty"`
	Type           MessageType `json:"type,omitempty"`
	Metadata       *Metadata   `json:"metadata,omitempty"`
	ReplyTo        string      `json:"reply_to,omitempty"`
	ClientTempID   string      `json:"client_temp_id,omitempty"`
	Reaction       string      `json:"reaction,omitempty"`
	Status         string      `json:"status,omitempty"`
	Activity       string      `json:"activity,omitempty"`
	ForEveryone    bool        `json:"for_everyone,omitempty"`
}

// WSResponse definition outbound realtime frame
type WSResponse struct {
	Action  string      `json:"action"`
	Success bool        `json:"success"`
	Payload interface{} `json:"payload,omitempty"`
	Error   string      `json:"error,omitempty"`
	Code    string      `json:"code,omitempty"`
}

// Encode marshals the frame for the wire.
func (r WSResponse) Encode() []byte {
	b, _ := json.Marshal(r)
	return b
}

// TypingEvent payload of user_typing broadcasts
type TypingEvent struct {
	UserID         string `json:"user_id"`
	ConversationID string `json:"conversation_id"`
	IsTyping       bool   `json:"is_typing"`
}

// StatusEvent payload of user_status_change broadcasts
type StatusEvent struct {
	UserID   string         `json:"user_id"`
	Status   PresenceStatus `json:"status"`
	LastSeen int64          `json:"last_seen"`
}

// DeliveryEvent payload of message_delivered and message_read broadcasts
type DeliveryEvent struct {
	MessageID      string        `json:"message_id"`
	ConversationID string        `json:"conversation_id"`
	State          DeliveryState `json:"state"`
	Timestamp      int64         `json:"timestamp"`
	ReaderID       string        `json:"reader_id,omitempty"`
}
