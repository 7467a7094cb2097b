package repository

import (
	"context"
	"errors"
	"time"

	"github.com/LajoLouis/lajospacesbackend-sub000/internal/realtime/domain"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

// ConversationRepository definition conversation store access
type ConversationRepository interface {
	// Insert creates a conversation document.
	Insert(ctx context.Context, conv *domain.Conversation) error
	// FindByID looks a conversation up by id.
	FindByID(ctx context.Context, id string) (*domain.Conversation, error)
	// Update rewrites the mutable conversation fields. Callers serialize
	// per conversation, so read-modify-write is safe here.
	Update(ctx context.Context, conv *domain.Conversation) error
	// ResetUnread zeroes userID's unread counter and stamps last seen.
	ResetUnread(ctx context.Context, convID, userID string, now time.Time) error
	// SetMuted flips userID's mute flag; muteUntil of zero means no expiry.
	SetMuted(ctx context.Context, convID, userID string, muted bool, muteUntil int64) error
	// FindByParticipant lists conversations userID takes part in.
	FindByParticipant(ctx context.Context, userID string) ([]domain.Conversation, error)
}

type conversationRepository struct {
	coll *mongo.Collection
}

// NewMongoConversationRepository create a ConversationRepository
func NewMongoConversationRepository(db *mongo.Database) ConversationRepository {
	return &conversationRepository{
		coll: db.Collection("conversations"),
	}
}

func (r *conversationRepository) Insert(ctx context.Context, conv *domain.Conversation) error {
	_, err := r.coll.InsertOne(ctx, conv)
	return err
}

func (r *conversationRepository) FindByID(ctx context.Context, id string) (*domain.Conversation, error) {
	var conv domain.Conversation
	err := r.coll.FindOne(ctx, bson.M{"_id": id}).Decode(&conv)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &conv, nil
}

func (r *conversationRepository) Update(ctx context.Context, conv *domain.Conversation) error {
	update := bson.M{"$set": bson.M{
		"participant_state": conv.ParticipantState,
		"last_message":      conv.LastMessage,
		"status":            conv.Status,
		"analytics":         conv.Analytics,
	}}
	_, err := r.coll.UpdateOne(ctx, bson.M{"_id": conv.ID}, update)
	return err
}

func (r *conversationRepository) ResetUnread(ctx context.Context, convID, userID string, now time.Time) error {
	update := bson.M{"$set": bson.M{
		"participant_state." + userID + ".unread_count": 0,
		"participant_state." + userID + ".last_seen_at": now.UnixMilli(),
	}}
	_, err := r.coll.UpdateOne(ctx, bson.M{"_id": convID}, update)
	return err
}

func (r *conversationRepository) SetMuted(ctx context.Context, convID, userID string, muted bool, muteUntil int64) error {
	update := bson.M{"$set": bson.M{
		"participant_state." + userID + ".muted":      muted,
		"participant_state." + userID + ".mute_until": muteUntil,
	}}
	_, err := r.coll.UpdateOne(ctx, bson.M{"_id": convID}, update)
	return err
}

func (r *conversationRepository) FindByParticipant(ctx context.Context, userID string) ([]domain.Conversation, error) {
	cur, err := r.coll.Find(ctx, bson.M{"participants": userID})
	if err != nil {
		return nil, err
	}
	var convs []domain.Conversation
	if err := cur.All(ctx, &convs); err != nil {
		return nil, err
	}
	return convs, nil
}
