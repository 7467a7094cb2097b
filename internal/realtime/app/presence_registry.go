package app

import (
	"sync"
	"time"

	"github.com/LajoLouis/lajospacesbackend-sub000/internal/realtime/domain"
)

const presenceShardCount = 32

// PresenceRegistry tracks live presence for all users connected to this
// process. State is sharded by user id and every mutation of one user's
// record runs under that shard's lock, which keeps the status and the
// connection set moving together: the set is empty exactly when the
// status is offline.
type PresenceRegistry struct {
	shards [presenceShardCount]*presenceShard
}

type presenceShard struct {
	mu      sync.Mutex
	records map[string]*domain.PresenceRecord
}

// NewPresenceRegistry create a PresenceRegistry
func NewPresenceRegistry() *PresenceRegistry {
	r := &PresenceRegistry{}
	for i := range r.shards {
		r.shards[i] = &presenceShard{records: make(map[string]*domain.PresenceRecord)}
	}
	return r
}

func (r *PresenceRegistry) shard(userID string) *presenceShard {
	return r.shards[shardIndex(userID, presenceShardCount)]
}

// Connect registers a connection for userID and reports whether the
// user was offline before it.
func (r *PresenceRegistry) Connect(userID, connID string, now time.Time) (wasOffline bool) {
	s := r.shard(userID)
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.records[userID]
	if !ok {
		rec = &domain.PresenceRecord{
			UserID:        userID,
			Status:        domain.PresenceOffline,
			ConnectionIDs: make(map[string]struct{}),
		}
		s.records[userID] = rec
	}
	wasOffline = rec.Status == domain.PresenceOffline
	rec.ConnectionIDs[connID] = struct{}{}
	if wasOffline {
		rec.Status = domain.PresenceOnline
	}
	rec.LastSeenAt = now
	return wasOffline
}

// Disconnect drops a connection for userID and reports whether that was
// the last one, which forces the user offline and clears activity.
func (r *PresenceRegistry) Disconnect(userID, connID string, now time.Time) (becameOffline bool) {
	s := r.shard(userID)
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.records[userID]
	if !ok {
		return false
	}
	delete(rec.ConnectionIDs, connID)
	rec.LastSeenAt = now
	if len(rec.ConnectionIDs) == 0 && rec.Status != domain.PresenceOffline {
		rec.Status = domain.PresenceOffline
		rec.Activity = nil
		return true
	}
	return false
}

// SetStatus applies a user-declared status. Only reachable statuses can
// be declared, and only while at least one connection is live.
func (r *PresenceRegistry) SetStatus(userID string, status domain.PresenceStatus, now time.Time) bool {
	if !status.Reachable() {
		return false
	}
	s := r.shard(userID)
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.records[userID]
	if !ok || len(rec.ConnectionIDs) == 0 {
		return false
	}
	rec.Status = status
	rec.LastSeenAt = now
	return true
}

// SetActivity records what userID is currently doing.
func (r *PresenceRegistry) SetActivity(userID string, act domain.Activity) {
	s := r.shard(userID)
	s.mu.Lock()
	defer s.mu.Unlock()

	if rec, ok := s.records[userID]; ok && len(rec.ConnectionIDs) > 0 {
		rec.Activity = &act
	}
}

// ClearActivity drops userID's current activity.
func (r *PresenceRegistry) ClearActivity(userID string) {
	s := r.shard(userID)
	s.mu.Lock()
	defer s.mu.Unlock()

	if rec, ok := s.records[userID]; ok {
		rec.Activity = nil
	}
}

// Activity returns userID's current activity, nil when none.
func (r *PresenceRegistry) Activity(userID string) *domain.Activity {
	s := r.shard(userID)
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.records[userID]
	if !ok || rec.Activity == nil {
		return nil
	}
	act := *rec.Activity
	return &act
}

// Status returns userID's current status, offline when unknown.
func (r *PresenceRegistry) Status(userID string) domain.PresenceStatus {
	s := r.shard(userID)
	s.mu.Lock()
	defer s.mu.Unlock()

	if rec, ok := s.records[userID]; ok {
		return rec.Status
	}
	return domain.PresenceOffline
}

// IsOnline reports whether userID has a live connection.
func (r *PresenceRegistry) IsOnline(userID string) bool {
	return r.Status(userID).Reachable()
}

// LastSeen returns the last time userID was seen, zero when unknown.
func (r *PresenceRegistry) LastSeen(userID string) time.Time {
	s := r.shard(userID)
	s.mu.Lock()
	defer s.mu.Unlock()

	if rec, ok := s.records[userID]; ok {
		return rec.LastSeenAt
	}
	return time.Time{}
}

// Touch refreshes userID's last-seen stamp on a heartbeat.
func (r *PresenceRegistry) Touch(userID string, now time.Time) {
	s := r.shard(userID)
	s.mu.Lock()
	defer s.mu.Unlock()

	if rec, ok := s.records[userID]; ok {
		rec.LastSeenAt = now
	}
}

// ConnectionCount returns how many live connections userID holds.
func (r *PresenceRegistry) ConnectionCount(userID string) int {
	s := r.shard(userID)
	s.mu.Lock()
	defer s.mu.Unlock()

	if rec, ok := s.records[userID]; ok {
		return len(rec.ConnectionIDs)
	}
	return 0
}

// Snapshot returns the durable view of userID's presence.
func (r *PresenceRegistry) Snapshot(userID string) domain.PresenceSnapshot {
	s := r.shard(userID)
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.records[userID]
	if !ok {
		return domain.PresenceSnapshot{UserID: userID, Status: domain.PresenceOffline}
	}
	return domain.PresenceSnapshot{
		UserID:     userID,
		Status:     rec.Status,
		LastSeenAt: rec.LastSeenAt.UnixMilli(),
	}
}

// Snapshots returns the durable view of every known user.
func (r *PresenceRegistry) Snapshots() []domain.PresenceSnapshot {
	var snaps []domain.PresenceSnapshot
	for _, s := range r.shards {
		s.mu.Lock()
		for _, rec := range s.records {
			snaps = append(snaps, domain.PresenceSnapshot{
				UserID:     rec.UserID,
				Status:     rec.Status,
				LastSeenAt: rec.LastSeenAt.UnixMilli(),
			})
		}
		s.mu.Unlock()
	}
	return snaps
}

// Sweep forces stale records offline and clears their connections.
// Covers ungraceful disconnects whose close event never fired. Returns
// the user ids forced offline.
func (r *PresenceRegistry) Sweep(now time.Time, staleAfter time.Duration) []string {
	var forced []string
	for _, s := range r.shards {
		s.mu.Lock()
		for _, rec := range s.records {
			if rec.Status == domain.PresenceOffline {
				continue
			}
			if now.Sub(rec.LastSeenAt) > staleAfter {
				rec.Status = domain.PresenceOffline
				rec.ConnectionIDs = make(map[string]struct{})
				rec.Activity = nil
				forced = append(forced, rec.UserID)
			}
		}
		s.mu.Unlock()
	}
	return forced
}
