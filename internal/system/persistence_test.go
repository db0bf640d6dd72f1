package system

import (
	"testing"
	"time"

	"github.com/cybrelink/server/internal/world"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPersistenceWaitsForInterval(t *testing.T) {
	deps := newSystemDeps(t)
	deps.Config.World.SaveInterval = 100 * time.Millisecond
	deps.World.AddPlayer(&world.PlayerInfo{
		SessionID: 1, AuthID: "auth-1", Handle: "NeonRat", Dirty: true,
	})

	ps := NewPersistenceSystem(deps)
	ps.Update(60 * time.Millisecond)

	// Below the interval nothing is snapshotted; the dirty bit survives.
	assert.True(t, deps.World.GetPlayer(1).Dirty)

	// Crossing the interval drains the dirty set.
	ps.Update(60 * time.Millisecond)
	assert.False(t, deps.World.GetPlayer(1).Dirty)

	// The accumulator reset: another partial step does not fire again.
	deps.World.GetPlayer(1).Dirty = true
	ps.Update(60 * time.Millisecond)
	assert.True(t, deps.World.GetPlayer(1).Dirty)
}

func TestPersistenceDisabledByZeroInterval(t *testing.T) {
	deps := newSystemDeps(t)
	deps.Config.World.SaveInterval = 0
	deps.World.AddPlayer(&world.PlayerInfo{
		SessionID: 1, AuthID: "auth-1", Handle: "NeonRat", Dirty: true,
	})

	ps := NewPersistenceSystem(deps)
	ps.Update(time.Hour)
	assert.True(t, deps.World.GetPlayer(1).Dirty)
}

func TestPersistenceSkipsCleanWorld(t *testing.T) {
	deps := newSystemDeps(t)
	deps.Config.World.SaveInterval = 10 * time.Millisecond
	deps.World.AddPlayer(&world.PlayerInfo{
		SessionID: 1, AuthID: "auth-1", Handle: "NeonRat",
	})

	ps := NewPersistenceSystem(deps)
	ps.Update(20 * time.Millisecond)

	// Nothing was dirty, so nothing changed.
	p := deps.World.GetPlayer(1)
	require.NotNil(t, p)
	assert.False(t, p.Dirty)
}
