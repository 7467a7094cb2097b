package app

import (
	"sync"
	"time"

	"github.com/LajoLouis/lajospacesbackend-sub000/internal/realtime/domain"
)

const typingShardCount = 32

// TypingRegistry tracks who is typing in which conversation. Entries
// carry a TTL: a client that crashes without sending typing_stop gets
// cleaned up by Sweep.
type TypingRegistry struct {
	ttl    time.Duration
	shards [typingShardCount]*typingShard
}

type typingShard struct {
	mu      sync.Mutex
	entries map[string]domain.TypingStatus
}

// NewTypingRegistry create a TypingRegistry
func NewTypingRegistry(ttl time.Duration) *TypingRegistry {
	if ttl <= 0 {
		ttl = defaultTypingTTLSeconds * time.Second
	}
	r := &TypingRegistry{ttl: ttl}
	for i := range r.shards {
		r.shards[i] = &typingShard{entries: make(map[string]domain.TypingStatus)}
	}
	return r
}

func typingKey(userID, convID string) string {
	return userID + "|" + convID
}

func (r *TypingRegistry) shard(key string) *typingShard {
	return r.shards[shardIndex(key, typingShardCount)]
}

// Start marks userID typing in convID, refreshing the TTL. It reports
// whether the user was not already typing there.
func (r *TypingRegistry) Start(userID, convID string, now time.Time) bool {
	key := typingKey(userID, convID)
	s := r.shard(key)
	s.mu.Lock()
	defer s.mu.Unlock()

	prev, existed := s.entries[key]
	s.entries[key] = domain.TypingStatus{UserID: userID, ConversationID: convID, StartedAt: now}
	return !existed || prev.Expired(now, r.ttl)
}

// Stop clears userID's typing entry in convID. It reports whether a
// live entry was removed.
func (r *TypingRegistry) Stop(userID, convID string, now time.Time) bool {
	key := typingKey(userID, convID)
	s := r.shard(key)
	s.mu.Lock()
	defer s.mu.Unlock()

	prev, existed := s.entries[key]
	if !existed {
		return false
	}
	delete(s.entries, key)
	return !prev.Expired(now, r.ttl)
}

// IsTyping reports whether userID has a live typing entry in convID.
func (r *TypingRegistry) IsTyping(userID, convID string, now time.Time) bool {
	key := typingKey(userID, convID)
	s := r.shard(key)
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.entries[key]
	return ok && !entry.Expired(now, r.ttl)
}

// ClearUser removes every typing entry userID holds, returning the
// removed entries so stop events can be broadcast on disconnect.
func (r *TypingRegistry) ClearUser(userID string) []domain.TypingStatus {
	var cleared []domain.TypingStatus
	for _, s := range r.shards {
		s.mu.Lock()
		for key, entry := range s.entries {
			if entry.UserID == userID {
				delete(s.entries, key)
				cleared = append(cleared, entry)
			}
		}
		s.mu.Unlock()
	}
	return cleared
}

// Sweep removes entries past their TTL, returning them so "stopped
// typing" broadcasts can be emitted for clients that never sent one.
func (r *TypingRegistry) Sweep(now time.Time) []domain.TypingStatus {
	var expired []domain.TypingStatus
	for _, s := range r.shards {
		s.mu.Lock()
		for key, entry := range s.entries {
			if entry.Expired(now, r.ttl) {
				delete(s.entries, key)
				expired = append(expired, entry)
			}
		}
		s.mu.Unlock()
	}
	return expired
}
