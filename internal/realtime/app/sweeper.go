package app

import (
	"context"
	"time"

	"github.com/LajoLouis/lajospacesbackend-sub000/internal/realtime/domain"
	"github.com/LajoLouis/lajospacesbackend-sub000/internal/realtime/repository"
	"github.com/LajoLouis/lajospacesbackend-sub000/pkg/config"
	"github.com/LajoLouis/lajospacesbackend-sub000/pkg/logger"

	"go.uber.org/zap"
)

const (
	defaultPresenceSweepSeconds = 30
	defaultPresenceStaleSeconds = 300
	defaultTypingSweepSeconds   = 10
	defaultTypingTTLSeconds     = 30
)

// Sweeper runs the background staleness passes: presence records whose
// last-seen went stale are forced offline, and typing entries past
// their TTL get a stop broadcast. Sweep failures never reach clients,
// the next cycle heals them.
type Sweeper struct {
	presence  *PresenceRegistry
	typing    *TypingRegistry
	hub       *Hub
	snapshots repository.PresenceSnapshotRepository

	presenceCfg config.PresenceConfig
	typingCfg   config.TypingConfig
}

// NewSweeper create a Sweeper
func NewSweeper(
	presence *PresenceRegistry,
	typing *TypingRegistry,
	hub *Hub,
	snapshots repository.PresenceSnapshotRepository,
	presenceCfg config.PresenceConfig,
	typingCfg config.TypingConfig,
) *Sweeper {
	if presenceCfg.SweepIntervalSeconds <= 0 {
		presenceCfg.SweepIntervalSeconds = defaultPresenceSweepSeconds
	}
	if presenceCfg.StaleAfterSeconds <= 0 {
		presenceCfg.StaleAfterSeconds = defaultPresenceStaleSeconds
	}
	if typingCfg.SweepIntervalSeconds <= 0 {
		typingCfg.SweepIntervalSeconds = defaultTypingSweepSeconds
	}
	if typingCfg.TTLSeconds <= 0 {
		typingCfg.TTLSeconds = defaultTypingTTLSeconds
	}
	return &Sweeper{
		presence:    presence,
		typing:      typing,
		hub:         hub,
		snapshots:   snapshots,
		presenceCfg: presenceCfg,
		typingCfg:   typingCfg,
	}
}

// Run blocks until ctx is done, firing both sweeps on their intervals.
func (s *Sweeper) Run(ctx context.Context) {
	presenceTicker := time.NewTicker(time.Duration(s.presenceCfg.SweepIntervalSeconds) * time.Second)
	typingTicker := time.NewTicker(time.Duration(s.typingCfg.SweepIntervalSeconds) * time.Second)
	defer presenceTicker.Stop()
	defer typingTicker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-presenceTicker.C:
			s.sweepPresence()
		case <-typingTicker.C:
			s.sweepTyping()
		}
	}
}

func (s *Sweeper) sweepPresence() {
	staleAfter := time.Duration(s.presenceCfg.StaleAfterSeconds) * time.Second
	forced := s.presence.Sweep(time.Now(), staleAfter)
	for _, userID := range forced {
		logger.Log.Info("presence sweep forced user offline", zap.String("userID", userID))
		s.broadcastOffline(userID)
		s.syncSnapshot(userID)
	}
}

func (s *Sweeper) sweepTyping() {
	for _, entry := range s.typing.Sweep(time.Now()) {
		resp := domain.WSResponse{
			Action:  domain.EventUserTyping,
			Success: true,
			Payload: domain.TypingEvent{
				UserID:         entry.UserID,
				ConversationID: entry.ConversationID,
				IsTyping:       false,
			},
		}
		s.hub.BroadcastToRoom(entry.ConversationID, resp.Encode(), entry.UserID)
	}
}

func (s *Sweeper) broadcastOffline(userID string) {
	snap := s.presence.Snapshot(userID)
	resp := domain.WSResponse{
		Action:  domain.EventUserStatusChange,
		Success: true,
		Payload: domain.StatusEvent{
			UserID:   userID,
			Status:   snap.Status,
			LastSeen: snap.LastSeenAt,
		},
	}
	s.hub.BroadcastToAll(resp.Encode(), userID)
}

func (s *Sweeper) syncSnapshot(userID string) {
	if s.snapshots == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := s.snapshots.Save(ctx, s.presence.Snapshot(userID)); err != nil {
		logger.Log.Warn("presence snapshot sync failed",
			zap.String("userID", userID), zap.Error(err))
	}
}
