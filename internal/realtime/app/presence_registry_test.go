package app

import (
	"testing"
	"time"

	"github.com/LajoLouis/lajospacesbackend-sub000/internal/realtime/domain"

	"github.com/stretchr/testify/assert"
)

func TestPresenceRegistry_ConnectDisconnect(t *testing.T) {
	reg := NewPresenceRegistry()
	now := time.Now()

	assert.Equal(t, domain.PresenceOffline, reg.Status("user-1"))
	assert.False(t, reg.IsOnline("user-1"))

	wasOffline := reg.Connect("user-1", "conn-1", now)
	assert.True(t, wasOffline)
	assert.Equal(t, domain.PresenceOnline, reg.Status("user-1"))
	assert.Equal(t, 1, reg.ConnectionCount("user-1"))

	// A second device does not re-announce the user.
	wasOffline = reg.Connect("user-1", "conn-2", now)
	assert.False(t, wasOffline)
	assert.Equal(t, 2, reg.ConnectionCount("user-1"))

	// Dropping one of two connections keeps the user online.
	becameOffline := reg.Disconnect("user-1", "conn-1", now)
	assert.False(t, becameOffline)
	assert.True(t, reg.IsOnline("user-1"))

	becameOffline = reg.Disconnect("user-1", "conn-2", now)
	assert.True(t, becameOffline)
	assert.Equal(t, domain.PresenceOffline, reg.Status("user-1"))
	assert.Equal(t, 0, reg.ConnectionCount("user-1"))
}

func TestPresenceRegistry_SetStatusNeedsConnection(t *testing.T) {
	reg := NewPresenceRegistry()
	now := time.Now()

	assert.False(t, reg.SetStatus("user-1", domain.PresenceAway, now))

	reg.Connect("user-1", "conn-1", now)
	assert.True(t, reg.SetStatus("user-1", domain.PresenceAway, now))
	assert.Equal(t, domain.PresenceAway, reg.Status("user-1"))
	assert.True(t, reg.IsOnline("user-1"))

	assert.False(t, reg.SetStatus("user-1", domain.PresenceOffline, now))

	reg.Disconnect("user-1", "conn-1", now)
	assert.False(t, reg.SetStatus("user-1", domain.PresenceBusy, now))
}

func TestPresenceRegistry_DisconnectClearsActivity(t *testing.T) {
	reg := NewPresenceRegistry()
	now := time.Now()

	reg.Connect("user-1", "conn-1", now)
	reg.SetActivity("user-1", domain.Activity{
		Kind:   domain.ActivityViewingConversation,
		Detail: "conv-1",
	})
	assert.NotNil(t, reg.Activity("user-1"))

	reg.Disconnect("user-1", "conn-1", now)
	assert.Nil(t, reg.Activity("user-1"))
}

func TestPresenceRegistry_Sweep(t *testing.T) {
	reg := NewPresenceRegistry()
	base := time.Now()

	reg.Connect("stale-user", "conn-1", base.Add(-10*time.Minute))
	reg.Connect("fresh-user", "conn-2", base)

	forced := reg.Sweep(base, 5*time.Minute)

	assert.Equal(t, []string{"stale-user"}, forced)
	assert.Equal(t, domain.PresenceOffline, reg.Status("stale-user"))
	assert.Equal(t, 0, reg.ConnectionCount("stale-user"))
	assert.Equal(t, domain.PresenceOnline, reg.Status("fresh-user"))

	// Already-offline records are not reported again.
	forced = reg.Sweep(base.Add(time.Hour), 5*time.Minute)
	assert.NotContains(t, forced, "stale-user")
}

func TestPresenceRegistry_Snapshot(t *testing.T) {
	reg := NewPresenceRegistry()
	now := time.Now()

	reg.Connect("user-1", "conn-1", now)
	snap := reg.Snapshot("user-1")
	assert.Equal(t, "user-1", snap.UserID)
	assert.Equal(t, domain.PresenceOnline, snap.Status)
	assert.Equal(t, now.UnixMilli(), snap.LastSeenAt)

	unknown := reg.Snapshot("nobody")
	assert.Equal(t, domain.PresenceOffline, unknown.Status)
	assert.Zero(t, unknown.LastSeenAt)
}

func TestPresenceRegistry_Touch(t *testing.T) {
	reg := NewPresenceRegistry()
	base := time.Now()

	reg.Connect("user-1", "conn-1", base)
	later := base.Add(time.Minute)
	reg.Touch("user-1", later)

	assert.Equal(t, later.UnixMilli(), reg.LastSeen("user-1").UnixMilli())

	// Heartbeats keep the record out of the sweep.
	forced := reg.Sweep(later.Add(4*time.Minute), 5*time.Minute)
	assert.Empty(t, forced)
}
