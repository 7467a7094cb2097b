package repository

import (
	"context"
	"time"

	"github.com/LajoLouis/lajospacesbackend-sub000/internal/realtime/domain"
	"github.com/LajoLouis/lajospacesbackend-sub000/pkg/database"
)

const presenceKeyPrefix = "presence:user:"

// SnapshotTTL how long a durable presence entry lives without refresh.
const SnapshotTTL = 24 * time.Hour

// PresenceSnapshotRepository definition durable presence sync. Other
// services read last-seen from here without reaching into the gateway.
type PresenceSnapshotRepository interface {
	Save(ctx context.Context, snap domain.PresenceSnapshot) error
	Load(ctx context.Context, userID string) (domain.PresenceSnapshot, error)
	Remove(ctx context.Context, userID string) error
}

type presenceSnapshotRepository struct {
	store database.RedisRepository[domain.PresenceSnapshot]
}

// NewPresenceSnapshotRepository create a PresenceSnapshotRepository
func NewPresenceSnapshotRepository(store database.RedisRepository[domain.PresenceSnapshot]) PresenceSnapshotRepository {
	return &presenceSnapshotRepository{store: store}
}

func (r *presenceSnapshotRepository) Save(ctx context.Context, snap domain.PresenceSnapshot) error {
	return r.store.Set(ctx, presenceKeyPrefix+snap.UserID, snap, SnapshotTTL)
}

func (r *presenceSnapshotRepository) Load(ctx context.Context, userID string) (domain.PresenceSnapshot, error) {
	return r.store.Get(ctx, presenceKeyPrefix+userID)
}

func (r *presenceSnapshotRepository) Remove(ctx context.Context, userID string) error {
	return r.store.Del(ctx, presenceKeyPrefix+userID)
}
