package app

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/LajoLouis/lajospacesbackend-sub000/internal/realtime/domain"
	errprocess "github.com/LajoLouis/lajospacesbackend-sub000/pkg/err"
	"github.com/LajoLouis/lajospacesbackend-sub000/pkg/logger"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

func directConversation(convID string) *domain.Conversation {
	return &domain.Conversation{
		ID:           convID,
		Type:         domain.ConversationDirect,
		Participants: []string{"alice", "bob"},
		ParticipantState: map[string]*domain.ParticipantState{
			"alice": {Role: domain.RoleMember, Active: true},
			"bob":   {Role: domain.RoleMember, Active: true},
		},
		Status: domain.ConversationActive,
	}
}

func newTestUseCase(convRepo *MockConversationRepository, msgRepo *MockMessageRepository, at time.Time) (*MessageUseCase, *PresenceRegistry, *Hub) {
	logger.SetNewNop()
	presence := NewPresenceRegistry()
	hub := NewHub()
	uc := &MessageUseCase{
		convRepo:    convRepo,
		msgRepo:     msgRepo,
		presence:    presence,
		hub:         hub,
		dispatcher:  NewNotificationDispatcher(nil),
		convLocks:   NewKeyedMutex(),
		absentAfter: DefaultAbsentAfter,
		clock:       func() time.Time { return at },
	}
	return uc, presence, hub
}

func actionsOf(t *testing.T, c *Client) []string {
	t.Helper()
	var actions []string
	for _, raw := range drain(c) {
		var resp domain.WSResponse
		assert.NoError(t, json.Unmarshal(raw, &resp))
		actions = append(actions, resp.Action)
	}
	return actions
}

func TestMessageUseCase_SendToOnlineReceiver(t *testing.T) {
	ctx := context.Background()
	now := time.Now()
	convID := uuid.New().String()

	convRepo := new(MockConversationRepository)
	msgRepo := new(MockMessageRepository)
	uc, presence, hub := newTestUseCase(convRepo, msgRepo, now)

	conv := directConversation(convID)
	convRepo.On("FindByID", ctx, convID).Return(conv, nil)
	convRepo.On("Update", ctx, conv).Return(nil)
	msgRepo.On("Insert", ctx, mock.Anything).Return(nil)
	msgRepo.On("Update", ctx, mock.Anything).Return(nil)

	bobConn := NewClient("conn-bob", "bob", 8)
	hub.Register(bobConn)
	presence.Connect("bob", "conn-bob", now)

	msg, err := uc.Send(ctx, "alice", SendInput{ConversationID: convID, Content: "hey"})

	assert.NoError(t, err)
	assert.Equal(t, domain.DeliveryDelivered, msg.DeliveryState)
	assert.Equal(t, now.UnixMilli(), msg.DeliveredAt)
	assert.Equal(t, "bob", msg.ReceiverID)

	// Bob sees the message and then the delivered transition, in order.
	assert.Equal(t, []string{domain.EventNewMessage, domain.EventMessageDelivered}, actionsOf(t, bobConn))

	// Bob's unread counter went up, the sender's did not.
	assert.Equal(t, 1, conv.ParticipantState["bob"].UnreadCount)
	assert.Equal(t, 0, conv.ParticipantState["alice"].UnreadCount)
	assert.Equal(t, int64(1), conv.Analytics.TotalMessages)
	assert.Equal(t, msg.ID, conv.LastMessage.MessageID)

	convRepo.AssertExpectations(t)
	msgRepo.AssertExpectations(t)
}

func TestMessageUseCase_SendToOfflineReceiverStaysSent(t *testing.T) {
	ctx := context.Background()
	now := time.Now()
	convID := uuid.New().String()

	convRepo := new(MockConversationRepository)
	msgRepo := new(MockMessageRepository)
	uc, _, _ := newTestUseCase(convRepo, msgRepo, now)

	conv := directConversation(convID)
	convRepo.On("FindByID", ctx, convID).Return(conv, nil)
	convRepo.On("Update", ctx, conv).Return(nil)
	msgRepo.On("Insert", ctx, mock.Anything).Return(nil)

	msg, err := uc.Send(ctx, "alice", SendInput{ConversationID: convID, Content: "hey"})

	assert.NoError(t, err)
	assert.Equal(t, domain.DeliverySent, msg.DeliveryState)
	assert.Zero(t, msg.DeliveredAt)
	msgRepo.AssertNotCalled(t, "Update", mock.Anything, mock.Anything)
}

func TestMessageUseCase_SendPersistFailure(t *testing.T) {
	ctx := context.Background()
	now := time.Now()
	convID := uuid.New().String()

	convRepo := new(MockConversationRepository)
	msgRepo := new(MockMessageRepository)
	uc, _, hub := newTestUseCase(convRepo, msgRepo, now)

	conv := directConversation(convID)
	convRepo.On("FindByID", ctx, convID).Return(conv, nil)
	msgRepo.On("FindByClientTempID", ctx, convID, "alice", "tmp-1").Return(nil, nil)
	msgRepo.On("Insert", ctx, mock.Anything).Return(errors.New("store unavailable"))

	aliceConn := NewClient("conn-alice", "alice", 8)
	hub.Register(aliceConn)

	msg, err := uc.Send(ctx, "alice", SendInput{ConversationID: convID, Content: "hey", ClientTempID: "tmp-1"})

	assert.Error(t, err)
	assert.Equal(t, errprocess.Transient, errprocess.CodeOf(err))
	assert.Equal(t, domain.DeliveryFailed, msg.DeliveryState)
	assert.Equal(t, "tmp-1", msg.ClientTempID)

	// The failure is reported to the sender only, as an authoritative state.
	assert.Equal(t, []string{domain.EventMessageFailed}, actionsOf(t, aliceConn))
	convRepo.AssertNotCalled(t, "Update", mock.Anything, mock.Anything)
}

func TestMessageUseCase_SendIdempotentResubmission(t *testing.T) {
	ctx := context.Background()
	now := time.Now()
	convID := uuid.New().String()

	convRepo := new(MockConversationRepository)
	msgRepo := new(MockMessageRepository)
	uc, _, _ := newTestUseCase(convRepo, msgRepo, now)

	conv := directConversation(convID)
	existing := &domain.Message{
		ID:             uuid.New().String(),
		ConversationID: convID,
		SenderID:       "alice",
		ClientTempID:   "tmp-1",
		DeliveryState:  domain.DeliverySent,
	}
	convRepo.On("FindByID", ctx, convID).Return(conv, nil)
	msgRepo.On("FindByClientTempID", ctx, convID, "alice", "tmp-1").Return(existing, nil)

	msg, err := uc.Send(ctx, "alice", SendInput{ConversationID: convID, Content: "hey", ClientTempID: "tmp-1"})

	assert.NoError(t, err)
	assert.Equal(t, existing.ID, msg.ID)
	msgRepo.AssertNotCalled(t, "Insert", mock.Anything, mock.Anything)
}

func TestMessageUseCase_SendValidation(t *testing.T) {
	ctx := context.Background()
	now := time.Now()
	convID := uuid.New().String()

	convRepo := new(MockConversationRepository)
	msgRepo := new(MockMessageRepository)
	uc, _, _ := newTestUseCase(convRepo, msgRepo, now)

	t.Run("empty content", func(t *testing.T) {
		_, err := uc.Send(ctx, "alice", SendInput{ConversationID: convID, Content: "   "})
		assert.Equal(t, errprocess.ValidationFailed, errprocess.CodeOf(err))
	})

	t.Run("unknown type", func(t *testing.T) {
		_, err := uc.Send(ctx, "alice", SendInput{ConversationID: convID, Content: "x", Type: "video"})
		assert.Equal(t, errprocess.ValidationFailed, errprocess.CodeOf(err))
	})

	t.Run("conversation missing", func(t *testing.T) {
		convRepo.On("FindByID", ctx, "nope").Return(nil, nil)
		_, err := uc.Send(ctx, "alice", SendInput{ConversationID: "nope", Content: "x"})
		assert.Equal(t, errprocess.NotFound, errprocess.CodeOf(err))
	})

	t.Run("not a participant", func(t *testing.T) {
		conv := directConversation(convID)
		convRepo.On("FindByID", ctx, convID).Return(conv, nil)
		_, err := uc.Send(ctx, "mallory", SendInput{ConversationID: convID, Content: "x"})
		assert.Equal(t, errprocess.PermissionDenied, errprocess.CodeOf(err))
	})

	t.Run("archived conversation", func(t *testing.T) {
		archived := directConversation("archived-conv")
		archived.Status = domain.ConversationArchived
		convRepo.On("FindByID", ctx, "archived-conv").Return(archived, nil)
		_, err := uc.Send(ctx, "alice", SendInput{ConversationID: "archived-conv", Content: "x"})
		assert.Equal(t, errprocess.PermissionDenied, errprocess.CodeOf(err))
	})
}

func TestMessageUseCase_AcknowledgeReadIdempotent(t *testing.T) {
	ctx := context.Background()
	now := time.Now()
	convID := uuid.New().String()
	msgID := uuid.New().String()

	convRepo := new(MockConversationRepository)
	msgRepo := new(MockMessageRepository)
	uc, _, _ := newTestUseCase(convRepo, msgRepo, now)

	conv := directConversation(convID)
	convRepo.On("FindByID", ctx, convID).Return(conv, nil)
	convRepo.On("ResetUnread", ctx, convID, "bob", now).Return(nil)

	sent := &domain.Message{
		ID:             msgID,
		ConversationID: convID,
		SenderID:       "alice",
		ReceiverID:     "bob",
		DeliveryState:  domain.DeliverySent,
		SentAt:         now.UnixMilli(),
	}
	msgRepo.On("FindByID", ctx, msgID).Return(sent, nil)
	msgRepo.On("Update", ctx, mock.Anything).Return(nil)

	assert.NoError(t, uc.AcknowledgeRead(ctx, msgID, "bob"))
	assert.Equal(t, domain.DeliveryRead, sent.DeliveryState)
	assert.Equal(t, now.UnixMilli(), sent.ReadAt)
	// Skipping delivered goes straight to read but still stamps deliveredAt.
	assert.Equal(t, now.UnixMilli(), sent.DeliveredAt)

	// A second call leaves everything as it was.
	assert.NoError(t, uc.AcknowledgeRead(ctx, msgID, "bob"))
	msgRepo.AssertNumberOfCalls(t, "Update", 1)
	convRepo.AssertNumberOfCalls(t, "ResetUnread", 1)
}

func TestMessageUseCase_AcknowledgeReadPermissions(t *testing.T) {
	ctx := context.Background()
	now := time.Now()
	convID := uuid.New().String()
	msgID := uuid.New().String()

	convRepo := new(MockConversationRepository)
	msgRepo := new(MockMessageRepository)
	uc, _, _ := newTestUseCase(convRepo, msgRepo, now)

	conv := directConversation(convID)
	convRepo.On("FindByID", ctx, convID).Return(conv, nil)
	msgRepo.On("FindByID", ctx, msgID).Return(&domain.Message{
		ID:             msgID,
		ConversationID: convID,
		SenderID:       "alice",
		DeliveryState:  domain.DeliverySent,
	}, nil)

	// The sender cannot mark their own message read.
	err := uc.AcknowledgeRead(ctx, msgID, "alice")
	assert.Equal(t, errprocess.PermissionDenied, errprocess.CodeOf(err))

	err = uc.AcknowledgeRead(ctx, msgID, "mallory")
	assert.Equal(t, errprocess.PermissionDenied, errprocess.CodeOf(err))
}

func TestMessageUseCase_EditWindow(t *testing.T) {
	ctx := context.Background()
	sentAt := time.Now()
	convID := uuid.New().String()
	msgID := uuid.New().String()

	newMsg := func() *domain.Message {
		return &domain.Message{
			ID:             msgID,
			ConversationID: convID,
			SenderID:       "alice",
			Type:           domain.MessageText,
			Content:        "original",
			DeliveryState:  domain.DeliverySent,
			SentAt:         sentAt.UnixMilli(),
		}
	}

	t.Run("first edit preserves the original", func(t *testing.T) {
		convRepo := new(MockConversationRepository)
		msgRepo := new(MockMessageRepository)
		uc, _, _ := newTestUseCase(convRepo, msgRepo, sentAt.Add(time.Hour))

		msg := newMsg()
		convRepo.On("FindByID", ctx, convID).Return(directConversation(convID), nil)
		msgRepo.On("FindByID", ctx, msgID).Return(msg, nil)
		msgRepo.On("Update", ctx, mock.Anything).Return(nil)

		edited, err := uc.Edit(ctx, msgID, "alice", "first edit")
		assert.NoError(t, err)
		assert.True(t, edited.IsEdited)
		assert.Equal(t, "first edit", edited.Content)
		assert.Equal(t, "original", edited.OriginalContent)

		// A second edit keeps the first original, not the interim text.
		edited, err = uc.Edit(ctx, msgID, "alice", "second edit")
		assert.NoError(t, err)
		assert.Equal(t, "second edit", edited.Content)
		assert.Equal(t, "original", edited.OriginalContent)
	})

	t.Run("non-sender cannot edit", func(t *testing.T) {
		convRepo := new(MockConversationRepository)
		msgRepo := new(MockMessageRepository)
		uc, _, _ := newTestUseCase(convRepo, msgRepo, sentAt.Add(time.Hour))

		msgRepo.On("FindByID", ctx, msgID).Return(newMsg(), nil)
		_, err := uc.Edit(ctx, msgID, "bob", "hijack")
		assert.Equal(t, errprocess.PermissionDenied, errprocess.CodeOf(err))
	})

	t.Run("window closes after 24h", func(t *testing.T) {
		convRepo := new(MockConversationRepository)
		msgRepo := new(MockMessageRepository)
		uc, _, _ := newTestUseCase(convRepo, msgRepo, sentAt.Add(25*time.Hour))

		msgRepo.On("FindByID", ctx, msgID).Return(newMsg(), nil)
		_, err := uc.Edit(ctx, msgID, "alice", "too late")
		assert.Equal(t, errprocess.PermissionDenied, errprocess.CodeOf(err))
	})

	t.Run("only text messages can be edited", func(t *testing.T) {
		convRepo := new(MockConversationRepository)
		msgRepo := new(MockMessageRepository)
		uc, _, _ := newTestUseCase(convRepo, msgRepo, sentAt.Add(time.Minute))

		img := newMsg()
		img.Type = domain.MessageImage
		msgRepo.On("FindByID", ctx, msgID).Return(img, nil)
		_, err := uc.Edit(ctx, msgID, "alice", "caption")
		assert.Equal(t, errprocess.PermissionDenied, errprocess.CodeOf(err))
	})
}

func TestMessageUseCase_DeleteWindow(t *testing.T) {
	ctx := context.Background()
	sentAt := time.Now()
	convID := uuid.New().String()
	msgID := uuid.New().String()

	newMsg := func() *domain.Message {
		return &domain.Message{
			ID:             msgID,
			ConversationID: convID,
			SenderID:       "alice",
			Type:           domain.MessageText,
			Content:        "secret",
			DeliveryState:  domain.DeliverySent,
			SentAt:         sentAt.UnixMilli(),
		}
	}

	t.Run("delete for everyone inside the window", func(t *testing.T) {
		convRepo := new(MockConversationRepository)
		msgRepo := new(MockMessageRepository)
		uc, _, _ := newTestUseCase(convRepo, msgRepo, sentAt.Add(30*time.Minute))

		msg := newMsg()
		convRepo.On("FindByID", ctx, convID).Return(directConversation(convID), nil)
		msgRepo.On("FindByID", ctx, msgID).Return(msg, nil)
		msgRepo.On("Update", ctx, mock.Anything).Return(nil)

		assert.NoError(t, uc.Delete(ctx, msgID, "alice", true))
		assert.True(t, msg.Deleted)
		assert.True(t, msg.DeletedForAll)
	})

	t.Run("delete for everyone after the window is refused", func(t *testing.T) {
		convRepo := new(MockConversationRepository)
		msgRepo := new(MockMessageRepository)
		uc, _, _ := newTestUseCase(convRepo, msgRepo, sentAt.Add(2*time.Hour))

		msgRepo.On("FindByID", ctx, msgID).Return(newMsg(), nil)
		err := uc.Delete(ctx, msgID, "alice", true)
		assert.Equal(t, errprocess.PermissionDenied, errprocess.CodeOf(err))
	})

	t.Run("delete for self has no window", func(t *testing.T) {
		convRepo := new(MockConversationRepository)
		msgRepo := new(MockMessageRepository)
		uc, _, _ := newTestUseCase(convRepo, msgRepo, sentAt.Add(48*time.Hour))

		msg := newMsg()
		convRepo.On("FindByID", ctx, convID).Return(directConversation(convID), nil)
		msgRepo.On("FindByID", ctx, msgID).Return(msg, nil)
		msgRepo.On("Update", ctx, mock.Anything).Return(nil)

		assert.NoError(t, uc.Delete(ctx, msgID, "alice", false))
		assert.True(t, msg.Deleted)
		assert.False(t, msg.DeletedForAll)
	})

	t.Run("non-sender cannot delete", func(t *testing.T) {
		convRepo := new(MockConversationRepository)
		msgRepo := new(MockMessageRepository)
		uc, _, _ := newTestUseCase(convRepo, msgRepo, sentAt.Add(time.Minute))

		msgRepo.On("FindByID", ctx, msgID).Return(newMsg(), nil)
		err := uc.Delete(ctx, msgID, "bob", false)
		assert.Equal(t, errprocess.PermissionDenied, errprocess.CodeOf(err))
	})
}

func TestMessageUseCase_ReactLastWriteWins(t *testing.T) {
	ctx := context.Background()
	now := time.Now()
	convID := uuid.New().String()
	msgID := uuid.New().String()

	convRepo := new(MockConversationRepository)
	msgRepo := new(MockMessageRepository)
	uc, _, _ := newTestUseCase(convRepo, msgRepo, now)

	msg := &domain.Message{
		ID:             msgID,
		ConversationID: convID,
		SenderID:       "alice",
		Type:           domain.MessageText,
		DeliveryState:  domain.DeliverySent,
		SentAt:         now.UnixMilli(),
	}
	convRepo.On("FindByID", ctx, convID).Return(directConversation(convID), nil)
	msgRepo.On("FindByID", ctx, msgID).Return(msg, nil)
	msgRepo.On("Update", ctx, mock.Anything).Return(nil)

	got, err := uc.React(ctx, msgID, "bob", "like")
	assert.NoError(t, err)
	assert.Len(t, got.Reactions, 1)
	assert.Equal(t, "like", got.Reactions[0].Kind)

	// Reacting again replaces, never appends.
	got, err = uc.React(ctx, msgID, "bob", "love")
	assert.NoError(t, err)
	assert.Len(t, got.Reactions, 1)
	assert.Equal(t, "love", got.Reactions[0].Kind)

	// An empty kind clears the reaction.
	got, err = uc.React(ctx, msgID, "bob", "")
	assert.NoError(t, err)
	assert.Empty(t, got.Reactions)
}

func TestMessageUseCase_ReactValidation(t *testing.T) {
	ctx := context.Background()
	now := time.Now()
	convID := uuid.New().String()
	msgID := uuid.New().String()

	convRepo := new(MockConversationRepository)
	msgRepo := new(MockMessageRepository)
	uc, _, _ := newTestUseCase(convRepo, msgRepo, now)

	_, err := uc.React(ctx, msgID, "bob", "sparkle")
	assert.Equal(t, errprocess.ValidationFailed, errprocess.CodeOf(err))

	msg := &domain.Message{ID: msgID, ConversationID: convID, SenderID: "alice", SentAt: now.UnixMilli()}
	convRepo.On("FindByID", ctx, convID).Return(directConversation(convID), nil)
	msgRepo.On("FindByID", ctx, msgID).Return(msg, nil)

	_, err = uc.React(ctx, msgID, "mallory", "like")
	assert.Equal(t, errprocess.PermissionDenied, errprocess.CodeOf(err))
}

func TestMessageUseCase_MarkConversationRead(t *testing.T) {
	ctx := context.Background()
	now := time.Now()
	convID := uuid.New().String()

	convRepo := new(MockConversationRepository)
	msgRepo := new(MockMessageRepository)
	uc, _, hub := newTestUseCase(convRepo, msgRepo, now)

	conv := directConversation(convID)
	unread := []domain.Message{
		{ID: "m1", ConversationID: convID, SenderID: "alice", ReceiverID: "bob", DeliveryState: domain.DeliverySent},
		{ID: "m2", ConversationID: convID, SenderID: "alice", ReceiverID: "bob", DeliveryState: domain.DeliveryDelivered},
	}
	convRepo.On("FindByID", ctx, convID).Return(conv, nil)
	convRepo.On("ResetUnread", ctx, convID, "bob", now).Return(nil)
	msgRepo.On("FindUnread", ctx, convID, "bob", []string(nil)).Return(unread, nil)
	msgRepo.On("MarkRead", ctx, []string{"m1", "m2"}, now).Return(nil)

	aliceConn := NewClient("conn-alice", "alice", 8)
	hub.Register(aliceConn)

	count, err := uc.MarkConversationRead(ctx, convID, "bob", nil)

	assert.NoError(t, err)
	assert.Equal(t, 2, count)
	// The sender observes both read transitions.
	assert.Equal(t, []string{domain.EventMessageRead, domain.EventMessageRead}, actionsOf(t, aliceConn))

	convRepo.AssertExpectations(t)
	msgRepo.AssertExpectations(t)
}

func TestMessageUseCase_HistoryRedactsDeletedForAll(t *testing.T) {
	ctx := context.Background()
	now := time.Now()
	convID := uuid.New().String()

	convRepo := new(MockConversationRepository)
	msgRepo := new(MockMessageRepository)
	uc, _, _ := newTestUseCase(convRepo, msgRepo, now)

	conv := directConversation(convID)
	page := []domain.Message{
		{ID: "m2", ConversationID: convID, Content: "visible"},
		{ID: "m1", ConversationID: convID, Content: "gone", DeletedForAll: true, Deleted: true},
	}
	convRepo.On("FindByID", ctx, convID).Return(conv, nil)
	msgRepo.On("History", ctx, convID, "", "", 50).Return(page, nil)

	msgs, err := uc.History(ctx, convID, "bob", "", "", 50)

	assert.NoError(t, err)
	assert.Len(t, msgs, 2)
	assert.Equal(t, "visible", msgs[0].Content)
	assert.Empty(t, msgs[1].Content)
	assert.True(t, msgs[1].Deleted)
}
