package system

import (
	"time"

	"github.com/cybrelink/server/internal/core/system"
	"github.com/cybrelink/server/internal/handler"
	"github.com/cybrelink/server/internal/net/packet"
	"github.com/cybrelink/server/internal/world"
	"go.uber.org/zap"
)

// AgentSystem drives the NPC economy and the timed jobs (traces, file
// transfers) on the game cadence. Both run on game seconds taken from the
// clock system, so pausing or accelerating the clock pauses or accelerates
// the whole simulation with it.
type AgentSystem struct {
	deps  *handler.Deps
	clock *ClockSystem
}

func NewAgentSystem(deps *handler.Deps, clock *ClockSystem) *AgentSystem {
	return &AgentSystem{deps: deps, clock: clock}
}

func (s *AgentSystem) Phase() system.Phase { return system.PhaseUpdate }

func (s *AgentSystem) Update(dt time.Duration) {
	gameDt := float64(s.clock.GameSeconds())
	if gameDt == 0 {
		return
	}
	now := s.deps.Clock.Stamp()

	for _, ev := range s.deps.World.TickAgents(gameDt) {
		s.announceAgent(ev)
	}
	for _, ev := range s.deps.World.TickJobs(gameDt, now) {
		s.announceJob(ev)
	}
}

// announceAgent fans one NPC decision out: the agent's new stats to
// everyone, plus the mission board change if the decision touched it.
func (s *AgentSystem) announceAgent(ev world.AgentEvent) {
	au := packet.AgentUpdate{
		AgentID: uint32(ev.Agent.ID),
		Handle:  ev.Agent.Handle,
		Rating:  uint16(ev.Agent.Rating),
		Credits: ev.Agent.Credits,
	}
	handler.Broadcast(s.deps, packet.AGENT_UPDATE, au.Encode())

	// A failed attempt keeps the claim, so the board does not change.
	if ev.MissionID == 0 || (!ev.Claimed && !ev.Completed) {
		return
	}
	mu := packet.MissionUpdate{
		MissionID: uint32(ev.MissionID),
		ClaimedBy: uint32(ev.Agent.ID),
	}
	if ev.Completed {
		mu.Completed = 1
	}
	handler.Broadcast(s.deps, packet.MISSION_UPDATE, mu.Encode())

	if ev.Completed {
		s.deps.Log.Debug("NPC 完成任務",
			zap.Int32("agent", ev.Agent.ID),
			zap.Int32("mission", ev.MissionID))
	}
}

// announceJob reports a completed trace or download. The world has already
// applied the consequences; this only sends the packets.
func (s *AgentSystem) announceJob(ev world.JobEvent) {
	switch ev.Kind {
	case world.JobTraceComplete:
		s.deps.Log.Info("追蹤完成，強制斷線",
			zap.Uint32("session", ev.Player.SessionID),
			zap.String("handle", ev.Player.Handle),
			zap.Int32("computer", ev.ComputerID))
		if sess := ev.Player.Session; sess != nil {
			tu := packet.TraceUpdate{}
			sess.SendPacket(packet.TRACE_UPDATE, tu.Encode())
			au := packet.AgentUpdate{
				AgentID: ev.Player.SessionID,
				Handle:  ev.Player.Handle,
				Rating:  uint16(ev.Player.UplinkRating),
				Credits: ev.Player.Credits,
			}
			sess.SendPacket(packet.AGENT_UPDATE, au.Encode())
		}
		handler.BroadcastLog(s.deps, ev.Log)

	case world.JobDownloadComplete:
		handler.BroadcastLog(s.deps, ev.Log)
	}
}
