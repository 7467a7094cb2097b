package app

import (
	"context"
	"time"

	"github.com/LajoLouis/lajospacesbackend-sub000/internal/realtime/domain"
	"github.com/LajoLouis/lajospacesbackend-sub000/internal/realtime/repository"
	"github.com/LajoLouis/lajospacesbackend-sub000/pkg/logger"

	"go.uber.org/zap"
)

// DefaultAbsentAfter how long a user must be offline before a new
// message earns an email alongside the push.
const DefaultAbsentAfter = 30 * time.Minute

// RecipientView what the notification decision sees about a recipient
// at the moment a message lands.
type RecipientView struct {
	Status   domain.PresenceStatus
	Activity *domain.Activity
	LastSeen time.Time
}

// DecideNotification picks the out-of-band channels for one recipient
// of a freshly sent message. Muted conversations and recipients already
// looking at the conversation get nothing; everyone else gets a push,
// and recipients offline past absentAfter get an email on top of it.
func DecideNotification(conv *domain.Conversation, recipientID string, view RecipientView, absentAfter time.Duration, now time.Time) []domain.NotificationClass {
	if conv.IsMutedFor(recipientID, now) {
		return nil
	}
	if view.Status.Reachable() {
		if view.Activity != nil &&
			view.Activity.Kind == domain.ActivityViewingConversation &&
			view.Activity.Detail == conv.ID {
			return nil
		}
		return []domain.NotificationClass{domain.NotifyPush}
	}
	classes := []domain.NotificationClass{domain.NotifyPush}
	if !view.LastSeen.IsZero() && now.Sub(view.LastSeen) > absentAfter {
		classes = append(classes, domain.NotifyEmail)
	}
	return classes
}

// NotificationDispatcher hands notification requests to their transport.
// Dispatch never propagates an error: a lost nudge must not fail the
// message that triggered it.
type NotificationDispatcher struct {
	publisher repository.NotificationPublisher
}

// NewNotificationDispatcher create a NotificationDispatcher
func NewNotificationDispatcher(publisher repository.NotificationPublisher) *NotificationDispatcher {
	return &NotificationDispatcher{publisher: publisher}
}

// Dispatch routes the request by class. NotifyNone is a no-op.
func (d *NotificationDispatcher) Dispatch(ctx context.Context, req domain.NotificationRequest) {
	if d == nil || d.publisher == nil || req.Class == domain.NotifyNone {
		return
	}
	var err error
	switch req.Class {
	case domain.NotifyPush:
		err = d.publisher.PublishPush(ctx, req)
	case domain.NotifyEmail:
		err = d.publisher.PublishEmail(ctx, req)
	}
	if err != nil {
		logger.Log.Error("notification dispatch failed",
			zap.String("class", string(req.Class)),
			zap.String("recipientID", req.RecipientID),
			zap.String("messageID", req.MessageID),
			zap.Error(err))
	}
}
