package app

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestTypingRegistry_StartStop(t *testing.T) {
	reg := NewTypingRegistry(30 * time.Second)
	now := time.Now()

	assert.True(t, reg.Start("user-1", "conv-1", now))
	assert.True(t, reg.IsTyping("user-1", "conv-1", now))

	// Refreshing an existing entry is not a new start.
	assert.False(t, reg.Start("user-1", "conv-1", now.Add(time.Second)))

	assert.True(t, reg.Stop("user-1", "conv-1", now.Add(2*time.Second)))
	assert.False(t, reg.IsTyping("user-1", "conv-1", now))
	assert.False(t, reg.Stop("user-1", "conv-1", now))
}

func TestTypingRegistry_TTL(t *testing.T) {
	reg := NewTypingRegistry(30 * time.Second)
	now := time.Now()

	reg.Start("user-1", "conv-1", now)
	assert.False(t, reg.IsTyping("user-1", "conv-1", now.Add(31*time.Second)))

	// Restarting after expiry counts as a fresh start again.
	assert.True(t, reg.Start("user-1", "conv-1", now.Add(time.Minute)))
}

func TestTypingRegistry_Sweep(t *testing.T) {
	reg := NewTypingRegistry(30 * time.Second)
	now := time.Now()

	reg.Start("user-1", "conv-1", now.Add(-time.Minute))
	reg.Start("user-2", "conv-1", now)

	expired := reg.Sweep(now)

	assert.Len(t, expired, 1)
	assert.Equal(t, "user-1", expired[0].UserID)
	assert.Equal(t, "conv-1", expired[0].ConversationID)
	assert.False(t, reg.IsTyping("user-1", "conv-1", now))
	assert.True(t, reg.IsTyping("user-2", "conv-1", now))
}

func TestTypingRegistry_ClearUser(t *testing.T) {
	reg := NewTypingRegistry(30 * time.Second)
	now := time.Now()

	reg.Start("user-1", "conv-1", now)
	reg.Start("user-1", "conv-2", now)
	reg.Start("user-2", "conv-1", now)

	cleared := reg.ClearUser("user-1")

	assert.Len(t, cleared, 2)
	assert.False(t, reg.IsTyping("user-1", "conv-1", now))
	assert.False(t, reg.IsTyping("user-1", "conv-2", now))
	assert.True(t, reg.IsTyping("user-2", "conv-1", now))
}
