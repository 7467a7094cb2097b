package app

import (
	"context"
	"time"

	"github.com/LajoLouis/lajospacesbackend-sub000/internal/realtime/domain"

	"github.com/stretchr/testify/mock"
)

// MockConversationRepository Mock ConversationRepository
type MockConversationRepository struct {
	mock.Mock
}

// Insert mock insert conversation
func (m *MockConversationRepository) Insert(ctx context.Context, conv *domain.Conversation) error {
	args := m.Called(ctx, conv)
	return args.Error(0)
}

// FindByID mock find conversation by id
func (m *MockConversationRepository) FindByID(ctx context.Context, id string) (*domain.Conversation, error) {
	args := m.Called(ctx, id)
	if args.Get(0) != nil {
		return args.Get(0).(*domain.Conversation), args.Error(1)
	}
	return nil, args.Error(1)
}

// Update mock update conversation
func (m *MockConversationRepository) Update(ctx context.Context, conv *domain.Conversation) error {
	args := m.Called(ctx, conv)
	return args.Error(0)
}

// ResetUnread mock reset unread counter
func (m *MockConversationRepository) ResetUnread(ctx context.Context, convID, userID string, now time.Time) error {
	args := m.Called(ctx, convID, userID, now)
	return args.Error(0)
}

// SetMuted mock set mute flag
func (m *MockConversationRepository) SetMuted(ctx context.Context, convID, userID string, muted bool, muteUntil int64) error {
	args := m.Called(ctx, convID, userID, muted, muteUntil)
	return args.Error(0)
}

// FindByParticipant mock list conversations by participant
func (m *MockConversationRepository) FindByParticipant(ctx context.Context, userID string) ([]domain.Conversation, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) != nil {
		return args.Get(0).([]domain.Conversation), args.Error(1)
	}
	return nil, args.Error(1)
}

// MockMessageRepository Mock MessageRepository
type MockMessageRepository struct {
	mock.Mock
}

// Insert mock insert message
func (m *MockMessageRepository) Insert(ctx context.Context, msg *domain.Message) error {
	args := m.Called(ctx, msg)
	return args.Error(0)
}

// FindByID mock find message by id
func (m *MockMessageRepository) FindByID(ctx context.Context, id string) (*domain.Message, error) {
	args := m.Called(ctx, id)
	if args.Get(0) != nil {
		return args.Get(0).(*domain.Message), args.Error(1)
	}
	return nil, args.Error(1)
}

// FindByClientTempID mock resolve idempotency key
func (m *MockMessageRepository) FindByClientTempID(ctx context.Context, convID, senderID, tempID string) (*domain.Message, error) {
	args := m.Called(ctx, convID, senderID, tempID)
	if args.Get(0) != nil {
		return args.Get(0).(*domain.Message), args.Error(1)
	}
	return nil, args.Error(1)
}

// Update mock update message
func (m *MockMessageRepository) Update(ctx context.Context, msg *domain.Message) error {
	args := m.Called(ctx, msg)
	return args.Error(0)
}

// FindUnread mock find unread messages
func (m *MockMessageRepository) FindUnread(ctx context.Context, convID, readerID string, ids []string) ([]domain.Message, error) {
	args := m.Called(ctx, convID, readerID, ids)
	if args.Get(0) != nil {
		return args.Get(0).([]domain.Message), args.Error(1)
	}
	return nil, args.Error(1)
}

// MarkRead mock bulk mark read
func (m *MockMessageRepository) MarkRead(ctx context.Context, ids []string, now time.Time) error {
	args := m.Called(ctx, ids, now)
	return args.Error(0)
}

// History mock message history page
func (m *MockMessageRepository) History(ctx context.Context, convID, before, after string, limit int) ([]domain.Message, error) {
	args := m.Called(ctx, convID, before, after, limit)
	if args.Get(0) != nil {
		return args.Get(0).([]domain.Message), args.Error(1)
	}
	return nil, args.Error(1)
}

// MockNotificationPublisher Mock NotificationPublisher
type MockNotificationPublisher struct {
	mock.Mock
}

// PublishPush mock push request publish
func (m *MockNotificationPublisher) PublishPush(ctx context.Context, req domain.NotificationRequest) error {
	args := m.Called(ctx, req)
	return args.Error(0)
}

// PublishEmail mock email request publish
func (m *MockNotificationPublisher) PublishEmail(ctx context.Context, req domain.NotificationRequest) error {
	args := m.Called(ctx, req)
	return args.Error(0)
}
