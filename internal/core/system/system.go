package system

import "time"

// Phase defines execution ordering within a single tick.
type Phase int

const (
	PhaseInput   Phase = iota // 0: accept sessions, drain packet queues
	PhaseUpdate               // 1: clock, agents, timed jobs, timeouts
	PhaseOutput               // 2: build + send packets
	PhasePersist              // 3: dirty-state snapshot handoff
)

// System is the interface every tick system implements.
type System interface {
	Phase() Phase
	Update(dt time.Duration)
}
