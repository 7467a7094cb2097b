package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/LajoLouis/lajospacesbackend-sub000/internal/realtime/domain"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// HistoryPageLimit max messages returned by one history query.
const HistoryPageLimit = 100

// MessageRepository definition message store access. One document per
// message, queried by conversation and sent_at.
type MessageRepository interface {
	Insert(ctx context.Context, msg *domain.Message) error
	FindByID(ctx context.Context, id string) (*domain.Message, error)
	// FindByClientTempID resolves a sender's idempotency key inside a
	// conversation, nil when unused.
	FindByClientTempID(ctx context.Context, convID, senderID, tempID string) (*domain.Message, error)
	// Update rewrites the mutable message fields. Callers serialize per
	// conversation.
	Update(ctx context.Context, msg *domain.Message) error
	// FindUnread lists messages addressed to readerID in convID that are
	// not yet read, optionally restricted to ids.
	FindUnread(ctx context.Context, convID, readerID string, ids []string) ([]domain.Message, error)
	// MarkRead stamps the given messages read for readerID.
	MarkRead(ctx context.Context, ids []string, now time.Time) error
	// History pages messages by sent_at, newest first. before/after are
	// message ids used as exclusive cursors.
	History(ctx context.Context, convID, before, after string, limit int) ([]domain.Message, error)
}

type messageRepository struct {
	coll *mongo.Collection
}

// NewMongoMessageRepository create a MessageRepository
func NewMongoMessageRepository(db *mongo.Database) MessageRepository {
	return &messageRepository{
		coll: db.Collection("messages"),
	}
}

func (r *messageRepository) Insert(ctx context.Context, msg *domain.Message) error {
	_, err := r.coll.InsertOne(ctx, msg)
	return err
}

func (r *messageRepository) FindByID(ctx context.Context, id string) (*domain.Message, error) {
	var msg domain.Message
	err := r.coll.FindOne(ctx, bson.M{"_id": id}).Decode(&msg)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &msg, nil
}

func (r *messageRepository) FindByClientTempID(ctx context.Context, convID, senderID, tempID string) (*domain.Message, error) {
	filter := bson.M{
		"conversation_id": convID,
		"sender_id":       senderID,
		"client_temp_id":  tempID,
	}
	var msg domain.Message
	err := r.coll.FindOne(ctx, filter).Decode(&msg)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &msg, nil
}

func (r *messageRepository) Update(ctx context.Context, msg *domain.Message) error {
	update := bson.M{"$set": bson.M{
		"content":          msg.Content,
		"metadata":         msg.Metadata,
		"delivery_state":   msg.DeliveryState,
		"delivered_at":     msg.DeliveredAt,
		"read_at":          msg.ReadAt,
		"reactions":        msg.Reactions,
		"is_edited":        msg.IsEdited,
		"edited_at":        msg.EditedAt,
		"original_content": msg.OriginalContent,
		"deleted":          msg.Deleted,
		"deleted_at":       msg.DeletedAt,
		"deleted_for_all":  msg.DeletedForAll,
	}}
	_, err := r.coll.UpdateOne(ctx, bson.M{"_id": msg.ID}, update)
	return err
}

func (r *messageRepository) FindUnread(ctx context.Context, convID, readerID string, ids []string) ([]domain.Message, error) {
	filter := bson.M{
		"conversation_id": convID,
		"receiver_id":     readerID,
		"delivery_state":  bson.M{"$in": []domain.DeliveryState{domain.DeliverySent, domain.DeliveryDelivered}},
	}
	if len(ids) > 0 {
		filter["_id"] = bson.M{"$in": ids}
	}
	cur, err := r.coll.Find(ctx, filter, options.Find().SetSort(bson.M{"sent_at": 1}))
	if err != nil {
		return nil, err
	}
	var msgs []domain.Message
	if err := cur.All(ctx, &msgs); err != nil {
		return nil, err
	}
	return msgs, nil
}

func (r *messageRepository) MarkRead(ctx context.Context, ids []string, now time.Time) error {
	if len(ids) == 0 {
		return nil
	}
	filter := bson.M{
		"_id":            bson.M{"$in": ids},
		"delivery_state": bson.M{"$ne": domain.DeliveryRead},
	}
	update := bson.M{"$set": bson.M{
		"delivery_state": domain.DeliveryRead,
		"read_at":        now.UnixMilli(),
	}}
	_, err := r.coll.UpdateMany(ctx, filter, update)
	return err
}

func (r *messageRepository) History(ctx context.Context, convID, before, after string, limit int) ([]domain.Message, error) {
	if limit <= 0 || limit > HistoryPageLimit {
		limit = HistoryPageLimit
	}
	filter := bson.M{"conversation_id": convID}

	if before != "" {
		anchor, err := r.FindByID(ctx, before)
		if err != nil {
			return nil, err
		}
		if anchor == nil {
			return nil, fmt.Errorf("cursor message %s not found", before)
		}
		filter["sent_at"] = bson.M{"$lt": anchor.SentAt}
	} else if after != "" {
		anchor, err := r.FindByID(ctx, after)
		if err != nil {
			return nil, err
		}
		if anchor == nil {
			return nil, fmt.Errorf("cursor message %s not found", after)
		}
		filter["sent_at"] = bson.M{"$gt": anchor.SentAt}
	}

	opts := options.Find().
		SetSort(bson.M{"sent_at": -1}).
		SetLimit(int64(limit))
	cur, err := r.coll.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	var msgs []domain.Message
	if err := cur.All(ctx, &msgs); err != nil {
		return nil, err
	}
	return msgs, nil
}
