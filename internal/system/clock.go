package system

import (
	"time"

	"github.com/cybrelink/server/internal/core/system"
	"github.com/cybrelink/server/internal/world"
)

// ClockSystem advances the in-game calendar on the game cadence and keeps
// the number of elapsed game seconds for the systems behind it in the
// same tick (jobs and agents run on game time, not wall time).
type ClockSystem struct {
	clock *world.Clock

	gameSeconds int // game seconds elapsed this tick
}

func NewClockSystem(clock *world.Clock) *ClockSystem {
	return &ClockSystem{clock: clock}
}

func (s *ClockSystem) Phase() system.Phase { return system.PhaseUpdate }

func (s *ClockSystem) Update(dt time.Duration) {
	s.gameSeconds = s.clock.Tick(dt.Seconds())
}

// GameSeconds returns how many whole game seconds the last Update applied.
func (s *ClockSystem) GameSeconds() int { return s.gameSeconds }
