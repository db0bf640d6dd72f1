package world

// NPC agents run a two-state loop: idle agents hunt the mission board for
// work they are rated for; working agents attempt completion when their
// think timer fires. Success odds scale with rating against difficulty.

// defaultAgentHandles is the built-in NPC roster, overridable by seed data.
var defaultAgentHandles = []string{
	"Scarab", "Serpent", "Phoenix", "Raven", "Falcon",
	"Shadow", "Ghost", "Phantom", "Specter", "Wraith",
}

// DefaultAgentHandles returns a copy of the built-in NPC handle pool.
func DefaultAgentHandles() []string {
	return append([]string(nil), defaultAgentHandles...)
}

// SpawnAgents populates the world with n NPC agents drawn from the handle
// pool. Stats and think stagger are position-derived so a fixed spawn
// order gives a reproducible roster.
func (st *State) SpawnAgents(n int, handles []string) int {
	if len(handles) == 0 {
		handles = defaultAgentHandles
	}
	spawned := 0
	for i := 0; i < n; i++ {
		a := &Agent{
			Handle:       handles[i%len(handles)],
			UplinkRating: int16(1 + i%5),
			Credits:      int32(1000 + i*500),
			ThinkTimer:   float64(5 + 2*i),
		}
		st.AddAgent(a)
		spawned++
	}
	return spawned
}

// AgentEvent reports one NPC state change for broadcast.
type AgentEvent struct {
	Agent     AgentView
	MissionID int32
	Claimed   bool
	Completed bool
	Failed    bool
}

// TickAgents advances every NPC's think timer by dt game seconds and runs
// due decisions. The lock is taken per agent so long rosters do not stall
// packet handling for a whole tick.
func (st *State) TickAgents(dt float64) []AgentEvent {
	st.mu.Lock()
	ids := append([]int32(nil), st.agentOrder...)
	st.mu.Unlock()

	var events []AgentEvent
	for _, id := range ids {
		st.mu.Lock()
		a, ok := st.agents[id]
		if !ok {
			st.mu.Unlock()
			continue
		}
		a.ThinkTimer -= dt
		if a.ThinkTimer > 0 {
			st.mu.Unlock()
			continue
		}
		// Re-think between 10 and 30 game seconds from now.
		a.ThinkTimer = float64(10 + st.rng.Intn(20))

		if a.CurrentMissionID == 0 {
			if ev, ok := st.agentClaimLocked(a); ok {
				events = append(events, ev)
			}
		} else {
			events = append(events, st.agentAttemptLocked(a))
		}
		st.mu.Unlock()
	}
	return events
}

// agentClaimLocked tries to claim the first open mission the agent is
// rated for. The gate is mission difficulty against uplink rating.
func (st *State) agentClaimLocked(a *Agent) (AgentEvent, bool) {
	for _, id := range st.missionOrder {
		m := st.missions[id]
		if m.Completed || m.ClaimedBy != 0 || m.Difficulty > a.UplinkRating {
			continue
		}
		if !st.claimMissionLocked(m.ID, a.ID) {
			continue
		}
		a.CurrentMissionID = m.ID
		st.changedAgents[a.ID] = true
		return AgentEvent{
			Agent:     agentView(a),
			MissionID: m.ID,
			Claimed:   true,
		}, true
	}
	return AgentEvent{}, false
}

// agentAttemptLocked rolls the agent's current mission. Success pays out
// and can raise the rating; failure releases the claim and can lower it.
func (st *State) agentAttemptLocked(a *Agent) AgentEvent {
	missionID := a.CurrentMissionID
	m, ok := st.missions[missionID]
	if !ok {
		a.CurrentMissionID = 0
		return AgentEvent{Agent: agentView(a), MissionID: missionID, Failed: true}
	}

	p := 0.5 + 0.1*float64(a.UplinkRating-m.Difficulty)
	if p < 0.10 {
		p = 0.10
	}
	if p > 0.90 {
		p = 0.90
	}

	ev := AgentEvent{MissionID: missionID}
	if st.rng.Float64() < p {
		if payment, ok := st.completeMissionLocked(missionID, a.ID); ok {
			a.Credits += payment
			if st.rng.Intn(3) == 0 {
				a.UplinkRating++
			}
			a.CurrentMissionID = 0
			ev.Completed = true
		}
	} else {
		// The claim stays; the agent retries at its next think.
		if a.UplinkRating > 0 && st.rng.Intn(10) == 0 {
			a.UplinkRating--
		}
		ev.Failed = true
	}
	st.changedAgents[a.ID] = true
	ev.Agent = agentView(a)
	return ev
}

// FindAgent returns the NPC agent with the given id, or nil.
func (st *State) FindAgent(id int32) *Agent {
	st.mu.Lock()
	defer st.mu.Unlock()
	return st.agents[id]
}
