package app

import (
	"context"
	"strings"
	"time"

	"github.com/LajoLouis/lajospacesbackend-sub000/internal/realtime/domain"
	"github.com/LajoLouis/lajospacesbackend-sub000/internal/realtime/repository"
	"github.com/LajoLouis/lajospacesbackend-sub000/pkg"
	errprocess "github.com/LajoLouis/lajospacesbackend-sub000/pkg/err"
	"github.com/LajoLouis/lajospacesbackend-sub000/pkg/logger"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// reactionKinds the accepted reaction vocabulary.
var reactionKinds = []string{"like", "love", "laugh", "wow", "sad", "angry"}

// SendInput one outbound message as submitted by a client.
type SendInput struct {
	ConversationID string
	Content        string
	Type           domain.MessageType
	Metadata       *domain.Metadata
	ReplyTo        string
	ClientTempID   string
}

// MessageUseCase runs the delivery pipeline: validate, persist, update
// conversation counters, broadcast, auto-deliver, and decide the
// out-of-band notification. All mutations of one conversation's message
// sequence run under that conversation's lock so subscribers observe
// persisted order.
type MessageUseCase struct {
	convRepo   repository.ConversationRepository
	msgRepo    repository.MessageRepository
	presence   *PresenceRegistry
	hub        *Hub
	dispatcher *NotificationDispatcher
	convLocks  *KeyedMutex

	absentAfter time.Duration
	clock       func() time.Time
}

// NewMessageUseCase init create message use case
func NewMessageUseCase(
	convRepo repository.ConversationRepository,
	msgRepo repository.MessageRepository,
	presence *PresenceRegistry,
	hub *Hub,
	dispatcher *NotificationDispatcher,
	absentAfter time.Duration,
) *MessageUseCase {
	if absentAfter <= 0 {
		absentAfter = DefaultAbsentAfter
	}
	return &MessageUseCase{
		convRepo:    convRepo,
		msgRepo:     msgRepo,
		presence:    presence,
		hub:         hub,
		dispatcher:  dispatcher,
		convLocks:   NewKeyedMutex(),
		absentAfter: absentAfter,
		clock:       time.Now,
	}
}

// Send runs one message through the pipeline. On a store failure the
// returned message carries the failed state so the sender can retry
// with the same ClientTempID.
func (uc *MessageUseCase) Send(ctx context.Context, senderID string, in SendInput) (*domain.Message, error) {
	if err := validateSendInput(&in); err != nil {
		return nil, err
	}

	conv, err := uc.convRepo.FindByID(ctx, in.ConversationID)
	if err != nil {
		return nil, errprocess.Newf(errprocess.Transient, "load conversation: %v", err)
	}
	if conv == nil {
		return nil, errprocess.New(errprocess.NotFound, "conversation not found")
	}
	if !conv.IsActiveParticipant(senderID) {
		return nil, errprocess.New(errprocess.PermissionDenied, "not a participant of this conversation")
	}
	if !conv.AcceptsMessages() {
		return nil, errprocess.New(errprocess.PermissionDenied, "conversation does not accept messages")
	}

	if in.ReplyTo != "" {
		target, err := uc.msgRepo.FindByID(ctx, in.ReplyTo)
		if err != nil {
			return nil, errprocess.Newf(errprocess.Transient, "load reply target: %v", err)
		}
		if target == nil || target.DeletedForAll || target.ConversationID != conv.ID {
			return nil, errprocess.New(errprocess.NotFound, "reply target not found")
		}
	}

	uc.convLocks.Lock(conv.ID)
	defer uc.convLocks.Unlock(conv.ID)

	// Idempotent resubmission: a retry with the same temp id returns
	// the already-persisted message instead of inserting twice.
	if in.ClientTempID != "" {
		existing, err := uc.msgRepo.FindByClientTempID(ctx, conv.ID, senderID, in.ClientTempID)
		if err != nil {
			return nil, errprocess.Newf(errprocess.Transient, "dedup lookup: %v", err)
		}
		if existing != nil {
			return existing, nil
		}
	}

	now := uc.clock()
	msg := &domain.Message{
		ID:             uuid.New().String(),
		ConversationID: conv.ID,
		SenderID:       senderID,
		ReceiverID:     conv.DirectReceiver(senderID),
		Type:           in.Type,
		Content:        in.Content,
		Metadata:       in.Metadata,
		ReplyTo:        in.ReplyTo,
		ClientTempID:   in.ClientTempID,
		DeliveryState:  domain.DeliverySent,
		SentAt:         now.UnixMilli(),
	}

	if err := uc.msgRepo.Insert(ctx, msg); err != nil {
		msg.DeliveryState = domain.DeliveryFailed
		failed := domain.WSResponse{
			Action:  domain.EventMessageFailed,
			Success: false,
			Payload: msg,
			Code:    string(errprocess.Transient),
		}
		uc.hub.BroadcastToUser(senderID, failed.Encode())
		logger.Log.Error("message insert failed",
			zap.String("conversationID", conv.ID), zap.Error(err))
		return msg, errprocess.Newf(errprocess.Transient, "persist message: %v", err)
	}

	uc.applyToConversation(ctx, conv, msg, now)

	uc.broadcastToConversation(conv, domain.WSResponse{
		Action:  domain.EventNewMessage,
		Success: true,
		Payload: msg,
	})

	// Reachable direct receivers get the delivered transition at once;
	// everyone else acknowledges after reconnecting.
	if msg.ReceiverID != "" && uc.presence.IsOnline(msg.ReceiverID) {
		msg.DeliveryState = domain.DeliveryDelivered
		msg.DeliveredAt = now.UnixMilli()
		if err := uc.msgRepo.Update(ctx, msg); err != nil {
			logger.Log.Error("auto-deliver update failed",
				zap.String("messageID", msg.ID), zap.Error(err))
		} else {
			uc.broadcastDelivery(conv, msg, "")
		}
	}

	uc.notifyRecipients(conv, msg, now)

	return msg, nil
}

// AcknowledgeDelivered moves a message from sent to delivered. Calls on
// a message already delivered or read are no-ops.
func (uc *MessageUseCase) AcknowledgeDelivered(ctx context.Context, messageID, userID string) error {
	msg, err := uc.msgRepo.FindByID(ctx, messageID)
	if err != nil {
		return errprocess.Newf(errprocess.Transient, "load message: %v", err)
	}
	if msg == nil {
		return errprocess.New(errprocess.NotFound, "message not found")
	}

	uc.convLocks.Lock(msg.ConversationID)
	defer uc.convLocks.Unlock(msg.ConversationID)

	msg, err = uc.msgRepo.FindByID(ctx, messageID)
	if err != nil || msg == nil {
		return errprocess.New(errprocess.NotFound, "message not found")
	}
	if msg.DeliveryState != domain.DeliverySent {
		return nil
	}

	conv, err := uc.convRepo.FindByID(ctx, msg.ConversationID)
	if err != nil || conv == nil {
		return errprocess.New(errprocess.NotFound, "conversation not found")
	}
	if !conv.IsActiveParticipant(userID) || userID == msg.SenderID {
		return errprocess.New(errprocess.PermissionDenied, "not a recipient of this message")
	}

	now := uc.clock()
	msg.DeliveryState = domain.DeliveryDelivered
	msg.DeliveredAt = now.UnixMilli()
	if err := uc.msgRepo.Update(ctx, msg); err != nil {
		return errprocess.Newf(errprocess.Transient, "update message: %v", err)
	}
	uc.broadcastDelivery(conv, msg, "")
	return nil
}

// AcknowledgeRead moves a message to read, zeroes the reader's unread
// counter and stamps their last seen. Safe to call repeatedly.
func (uc *MessageUseCase) AcknowledgeRead(ctx context.Context, messageID, readerID string) error {
	msg, err := uc.msgRepo.FindByID(ctx, messageID)
	if err != nil {
		return errprocess.Newf(errprocess.Transient, "load message: %v", err)
	}
	if msg == nil {
		return errprocess.New(errprocess.NotFound, "message not found")
	}

	uc.convLocks.Lock(msg.ConversationID)
	defer uc.convLocks.Unlock(msg.ConversationID)

	msg, err = uc.msgRepo.FindByID(ctx, messageID)
	if err != nil || msg == nil {
		return errprocess.New(errprocess.NotFound, "message not found")
	}

	conv, err := uc.convRepo.FindByID(ctx, msg.ConversationID)
	if err != nil || conv == nil {
		return errprocess.New(errprocess.NotFound, "conversation not found")
	}
	if !conv.IsActiveParticipant(readerID) || readerID == msg.SenderID {
		return errprocess.New(errprocess.PermissionDenied, "not a recipient of this message")
	}
	if msg.DeliveryState == domain.DeliveryRead {
		return nil
	}
	if !msg.DeliveryState.CanAdvanceTo(domain.DeliveryRead) {
		return errprocess.New(errprocess.PermissionDenied, "message is not readable")
	}

	now := uc.clock()
	if msg.DeliveredAt == 0 {
		msg.DeliveredAt = now.UnixMilli()
	}
	msg.DeliveryState = domain.DeliveryRead
	msg.ReadAt = now.UnixMilli()
	if err := uc.msgRepo.Update(ctx, msg); err != nil {
		return errprocess.Newf(errprocess.Transient, "update message: %v", err)
	}
	if err := uc.convRepo.ResetUnread(ctx, conv.ID, readerID, now); err != nil {
		logger.Log.Error("reset unread failed",
			zap.String("conversationID", conv.ID), zap.Error(err))
	}
	uc.broadcastDelivery(conv, msg, readerID)
	return nil
}

// MarkConversationRead marks every unread message addressed to readerID
// in the conversation read, or only ids when given. Returns how many
// messages changed state.
func (uc *MessageUseCase) MarkConversationRead(ctx context.Context, convID, readerID string, ids []string) (int, error) {
	conv, err := uc.convRepo.FindByID(ctx, convID)
	if err != nil {
		return 0, errprocess.Newf(errprocess.Transient, "load conversation: %v", err)
	}
	if conv == nil {
		return 0, errprocess.New(errprocess.NotFound, "conversation not found")
	}
	if !conv.IsActiveParticipant(readerID) {
		return 0, errprocess.New(errprocess.PermissionDenied, "not a participant of this conversation")
	}

	uc.convLocks.Lock(convID)
	defer uc.convLocks.Unlock(convID)

	unread, err := uc.msgRepo.FindUnread(ctx, convID, readerID, ids)
	if err != nil {
		return 0, errprocess.Newf(errprocess.Transient, "find unread: %v", err)
	}

	now := uc.clock()
	if len(unread) > 0 {
		msgIDs := make([]string, 0, len(unread))
		for i := range unread {
			msgIDs = append(msgIDs, unread[i].ID)
		}
		if err := uc.msgRepo.MarkRead(ctx, msgIDs, now); err != nil {
			return 0, errprocess.Newf(errprocess.Transient, "mark read: %v", err)
		}
	}
	if err := uc.convRepo.ResetUnread(ctx, convID, readerID, now); err != nil {
		return 0, errprocess.Newf(errprocess.Transient, "reset unread: %v", err)
	}

	for i := range unread {
		m := &unread[i]
		m.DeliveryState = domain.DeliveryRead
		m.ReadAt = now.UnixMilli()
		uc.broadcastDelivery(conv, m, readerID)
	}
	return len(unread), nil
}

// Edit rewrites a text message's content. Only the sender, only inside
// the edit window, and the first edit preserves the original content.
func (uc *MessageUseCase) Edit(ctx context.Context, messageID, requesterID, content string) (*domain.Message, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, errprocess.New(errprocess.ValidationFailed, "content must not be empty")
	}

	msg, err := uc.msgRepo.FindByID(ctx, messageID)
	if err != nil {
		return nil, errprocess.Newf(errprocess.Transient, "load message: %v", err)
	}
	if msg == nil || msg.Deleted {
		return nil, errprocess.New(errprocess.NotFound, "message not found")
	}

	uc.convLocks.Lock(msg.ConversationID)
	defer uc.convLocks.Unlock(msg.ConversationID)

	msg, err = uc.msgRepo.FindByID(ctx, messageID)
	if err != nil || msg == nil || msg.Deleted {
		return nil, errprocess.New(errprocess.NotFound, "message not found")
	}

	now := uc.clock()
	if !msg.EditableBy(requesterID, now) {
		return nil, errprocess.New(errprocess.PermissionDenied, "message can no longer be edited")
	}

	if !msg.IsEdited {
		msg.OriginalContent = msg.Content
	}
	msg.Content = content
	msg.IsEdited = true
	msg.EditedAt = now.UnixMilli()
	if err := uc.msgRepo.Update(ctx, msg); err != nil {
		return nil, errprocess.Newf(errprocess.Transient, "update message: %v", err)
	}

	conv, err := uc.convRepo.FindByID(ctx, msg.ConversationID)
	if err == nil && conv != nil {
		uc.broadcastToConversation(conv, domain.WSResponse{
			Action:  domain.EventMessageEdited,
			Success: true,
			Payload: msg,
		})
	}
	return msg, nil
}

// Delete soft-deletes a message. Only the sender may delete, and
// deleting for everyone must happen inside the delete window.
func (uc *MessageUseCase) Delete(ctx context.Context, messageID, requesterID string, forEveryone bool) error {
	msg, err := uc.msgRepo.FindByID(ctx, messageID)
	if err != nil {
		return errprocess.Newf(errprocess.Transient, "load message: %v", err)
	}
	if msg == nil {
		return errprocess.New(errprocess.NotFound, "message not found")
	}

	uc.convLocks.Lock(msg.ConversationID)
	defer uc.convLocks.Unlock(msg.ConversationID)

	msg, err = uc.msgRepo.FindByID(ctx, messageID)
	if err != nil || msg == nil {
		return errprocess.New(errprocess.NotFound, "message not found")
	}
	if msg.SenderID != requesterID {
		return errprocess.New(errprocess.PermissionDenied, "only the sender can delete a message")
	}
	if msg.Deleted {
		return nil
	}

	now := uc.clock()
	if forEveryone && !msg.DeletableForAllBy(requesterID, now) {
		return errprocess.New(errprocess.PermissionDenied, "delete window has passed")
	}

	msg.Deleted = true
	msg.DeletedAt = now.UnixMilli()
	msg.DeletedForAll = forEveryone
	if err := uc.msgRepo.Update(ctx, msg); err != nil {
		return errprocess.Newf(errprocess.Transient, "update message: %v", err)
	}

	conv, err := uc.convRepo.FindByID(ctx, msg.ConversationID)
	if err == nil && conv != nil {
		uc.broadcastToConversation(conv, domain.WSResponse{
			Action:  domain.EventMessageDeleted,
			Success: true,
			Payload: redacted(msg),
		})
	}
	return nil
}

// React sets userID's reaction on a message, replacing any prior one.
// An empty kind removes the reaction.
func (uc *MessageUseCase) React(ctx context.Context, messageID, userID, kind string) (*domain.Message, error) {
	if kind != "" && !pkg.Contains(reactionKinds, kind) {
		return nil, errprocess.Newf(errprocess.ValidationFailed, "unknown reaction kind %q", kind)
	}

	msg, err := uc.msgRepo.FindByID(ctx, messageID)
	if err != nil {
		return nil, errprocess.Newf(errprocess.Transient, "load message: %v", err)
	}
	if msg == nil || msg.DeletedForAll {
		return nil, errprocess.New(errprocess.NotFound, "message not found")
	}

	conv, err := uc.convRepo.FindByID(ctx, msg.ConversationID)
	if err != nil || conv == nil {
		return nil, errprocess.New(errprocess.NotFound, "conversation not found")
	}
	if !conv.IsActiveParticipant(userID) {
		return nil, errprocess.New(errprocess.PermissionDenied, "not a participant of this conversation")
	}

	uc.convLocks.Lock(msg.ConversationID)
	defer uc.convLocks.Unlock(msg.ConversationID)

	msg, err = uc.msgRepo.FindByID(ctx, messageID)
	if err != nil || msg == nil || msg.DeletedForAll {
		return nil, errprocess.New(errprocess.NotFound, "message not found")
	}

	now := uc.clock()
	if kind == "" {
		msg.RemoveReaction(userID)
	} else {
		msg.SetReaction(userID, kind, now)
	}
	if err := uc.msgRepo.Update(ctx, msg); err != nil {
		return nil, errprocess.Newf(errprocess.Transient, "update message: %v", err)
	}

	uc.broadcastToConversation(conv, domain.WSResponse{
		Action:  domain.EventMessageReaction,
		Success: true,
		Payload: msg,
	})
	return msg, nil
}

// History pages a conversation's messages newest first, keyed by
// message-id cursors. Content deleted for everyone comes back blank.
func (uc *MessageUseCase) History(ctx context.Context, convID, userID, before, after string, limit int) ([]domain.Message, error) {
	conv, err := uc.convRepo.FindByID(ctx, convID)
	if err != nil {
		return nil, errprocess.Newf(errprocess.Transient, "load conversation: %v", err)
	}
	if conv == nil {
		return nil, errprocess.New(errprocess.NotFound, "conversation not found")
	}
	if conv.StateOf(userID) == nil {
		return nil, errprocess.New(errprocess.PermissionDenied, "not a participant of this conversation")
	}

	msgs, err := uc.msgRepo.History(ctx, convID, before, after, limit)
	if err != nil {
		return nil, errprocess.Newf(errprocess.Transient, "load history: %v", err)
	}
	for i := range msgs {
		if msgs[i].DeletedForAll {
			msgs[i].Content = ""
			msgs[i].Metadata = nil
		}
	}
	return msgs, nil
}

// Mute flips userID's mute flag on the conversation. until of zero
// mutes indefinitely.
func (uc *MessageUseCase) Mute(ctx context.Context, convID, userID string, muted bool, until int64) error {
	conv, err := uc.convRepo.FindByID(ctx, convID)
	if err != nil {
		return errprocess.Newf(errprocess.Transient, "load conversation: %v", err)
	}
	if conv == nil {
		return errprocess.New(errprocess.NotFound, "conversation not found")
	}
	if !conv.IsActiveParticipant(userID) {
		return errprocess.New(errprocess.PermissionDenied, "not a participant of this conversation")
	}
	if err := uc.convRepo.SetMuted(ctx, convID, userID, muted, until); err != nil {
		return errprocess.Newf(errprocess.Transient, "set muted: %v", err)
	}
	return nil
}

// applyToConversation folds a freshly persisted message into the
// conversation document: unread counters, last-message preview and the
// incrementally maintained analytics.
func (uc *MessageUseCase) applyToConversation(ctx context.Context, conv *domain.Conversation, msg *domain.Message, now time.Time) {
	for userID, state := range conv.ParticipantState {
		if userID == msg.SenderID || !state.Active {
			continue
		}
		if conv.IsMutedFor(userID, now) {
			continue
		}
		state.UnreadCount++
	}

	if prev := conv.LastMessage; prev != nil && prev.SenderID != msg.SenderID {
		if delta := float64(msg.SentAt - prev.Timestamp); delta > 0 {
			if conv.Analytics.AverageResponseTime == 0 {
				conv.Analytics.AverageResponseTime = delta
			} else {
				conv.Analytics.AverageResponseTime = (conv.Analytics.AverageResponseTime + delta) / 2
			}
		}
	}
	conv.LastMessage = &domain.LastMessage{
		MessageID: msg.ID,
		Preview:   pkg.Truncate(msg.Content, domain.LastMessagePreview),
		SenderID:  msg.SenderID,
		Type:      msg.Type,
		Timestamp: msg.SentAt,
	}
	conv.Analytics.TotalMessages++
	conv.Analytics.MessagesThisWeek++
	conv.Analytics.MessagesThisMonth++
	conv.Analytics.LastActivityAt = msg.SentAt

	if err := uc.convRepo.Update(ctx, conv); err != nil {
		logger.Log.Error("conversation update failed",
			zap.String("conversationID", conv.ID), zap.Error(err))
	}
}

func (uc *MessageUseCase) notifyRecipients(conv *domain.Conversation, msg *domain.Message, now time.Time) {
	preview := pkg.Truncate(msg.Content, domain.LastMessagePreview)
	for _, userID := range conv.Participants {
		if userID == msg.SenderID || !conv.IsActiveParticipant(userID) {
			continue
		}
		view := RecipientView{
			Status:   uc.presence.Status(userID),
			Activity: uc.presence.Activity(userID),
			LastSeen: uc.presence.LastSeen(userID),
		}
		for _, class := range DecideNotification(conv, userID, view, uc.absentAfter, now) {
			req := domain.NotificationRequest{
				Class:          class,
				RecipientID:    userID,
				SenderID:       msg.SenderID,
				ConversationID: conv.ID,
				MessageID:      msg.ID,
				Preview:        preview,
				SentAt:         msg.SentAt,
			}
			// Fire and forget off the send path.
			go uc.dispatcher.Dispatch(context.Background(), req)
		}
	}
}

func (uc *MessageUseCase) broadcastToConversation(conv *domain.Conversation, resp domain.WSResponse) {
	uc.hub.BroadcastToParticipants(conv.ID, conv.Participants, resp.Encode())
}

func (uc *MessageUseCase) broadcastDelivery(conv *domain.Conversation, msg *domain.Message, readerID string) {
	event := domain.DeliveryEvent{
		MessageID:      msg.ID,
		ConversationID: msg.ConversationID,
		State:          msg.DeliveryState,
		ReaderID:       readerID,
	}
	action := domain.EventMessageDelivered
	if msg.DeliveryState == domain.DeliveryRead {
		action = domain.EventMessageRead
		event.Timestamp = msg.ReadAt
	} else {
		event.Timestamp = msg.DeliveredAt
	}
	uc.broadcastToConversation(conv, domain.WSResponse{
		Action:  action,
		Success: true,
		Payload: event,
	})
}

func validateSendInput(in *SendInput) error {
	if in.ConversationID == "" {
		return errprocess.New(errprocess.ValidationFailed, "conversation id is required")
	}
	if in.Type == "" {
		in.Type = domain.MessageText
	}
	if !in.Type.Valid() {
		return errprocess.Newf(errprocess.ValidationFailed, "unknown message type %q", in.Type)
	}
	switch in.Type {
	case domain.MessageText:
		if strings.TrimSpace(in.Content) == "" {
			return errprocess.New(errprocess.ValidationFailed, "content must not be empty")
		}
	case domain.MessageLocation:
		if in.Metadata == nil || (in.Metadata.Latitude == 0 && in.Metadata.Longitude == 0) {
			return errprocess.New(errprocess.ValidationFailed, "location messages need coordinates")
		}
	case domain.MessageSharedListing:
		if in.Metadata == nil || in.Metadata.ListingID == "" {
			return errprocess.New(errprocess.ValidationFailed, "shared listing messages need a listing id")
		}
	case domain.MessageImage, domain.MessageFile:
		if in.Metadata == nil || in.Metadata.FileName == "" {
			return errprocess.New(errprocess.ValidationFailed, "attachment messages need file metadata")
		}
	}
	return nil
}

// redacted returns a copy safe to show after delete-for-everyone.
func redacted(msg *domain.Message) *domain.Message {
	out := *msg
	if out.DeletedForAll {
		out.Content = ""
		out.Metadata = nil
	}
	return &out
}
