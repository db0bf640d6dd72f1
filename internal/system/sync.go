package system

import (
	"time"

	"github.com/cybrelink/server/internal/core/system"
	"github.com/cybrelink/server/internal/handler"
	gonet "github.com/cybrelink/server/internal/net"
	"github.com/cybrelink/server/internal/net/packet"
	"github.com/cybrelink/server/internal/world"
	"go.uber.org/zap"
)

// periodicInterval spaces the low-urgency broadcasts (clock, roster) so
// they do not ride every network tick.
const periodicInterval = time.Second

// SyncSystem runs last each network tick: it turns the world change
// journal into one WORLD_DELTA broadcast, streams trace countdowns, sends
// the periodic clock and roster, and flushes every session's output buffer
// to its writer goroutine.
type SyncSystem struct {
	deps *handler.Deps

	sincePeriodic time.Duration
}

func NewSyncSystem(deps *handler.Deps) *SyncSystem {
	return &SyncSystem{deps: deps}
}

func (s *SyncSystem) Phase() system.Phase { return system.PhaseOutput }

func (s *SyncSystem) Update(dt time.Duration) {
	s.broadcastDelta()
	s.sendTraces()

	s.sincePeriodic += dt
	if s.sincePeriodic >= periodicInterval {
		s.sincePeriodic = 0
		handler.Broadcast(s.deps, packet.TIME_SYNC, handler.EncodeTimeSync(s.deps.Clock))
		s.broadcastPlayerList()
	}

	s.deps.Sessions.ForEach(func(sess *gonet.Session) {
		sess.FlushOutput()
	})
}

// broadcastDelta drains the change journal into one WORLD_DELTA. Every
// authenticated client gets the same frame; an empty journal sends nothing.
func (s *SyncSystem) broadcastDelta() {
	cs := s.deps.World.TakeChanges()
	if cs.Empty() {
		return
	}
	payload := handler.EncodeWorld(cs, false)
	frame, err := gonet.EncodeCompressed(packet.WORLD_DELTA, payload)
	if err != nil {
		s.deps.Log.Error("世界增量編碼失敗", zap.Error(err))
		return
	}
	s.deps.Sessions.ForEach(func(sess *gonet.Session) {
		if sess.State() == packet.StateAuth {
			sess.Send(frame)
		}
	})
}

// sendTraces streams the countdown to every player with a trace running.
type traceRow struct {
	sess      *gonet.Session
	remaining uint32
	total     uint32
}

func (s *SyncSystem) sendTraces() {
	var rows []traceRow
	s.deps.World.AllPlayers(func(p *world.PlayerInfo) {
		if p.Trace == nil || p.Session == nil {
			return
		}
		remaining := p.Trace.Remaining
		if remaining < 0 {
			remaining = 0
		}
		rows = append(rows, traceRow{
			sess:      p.Session,
			remaining: uint32(remaining),
			total:     uint32(p.Trace.Total),
		})
	})
	for _, r := range rows {
		tu := packet.TraceUpdate{Remaining: r.remaining, Total: r.total}
		r.sess.SendPacket(packet.TRACE_UPDATE, tu.Encode())
	}
}

// broadcastPlayerList sends the online roster. The payload caps itself at
// the connection limit.
func (s *SyncSystem) broadcastPlayerList() {
	var pl packet.PlayerList
	s.deps.World.AllPlayers(func(p *world.PlayerInfo) {
		pl.Players = append(pl.Players, packet.PlayerListEntry{
			PlayerID: p.SessionID,
			Handle:   p.Handle,
			Rating:   uint16(p.UplinkRating),
		})
	})
	if len(pl.Players) == 0 {
		return
	}
	handler.Broadcast(s.deps, packet.PLAYER_LIST, pl.Encode())
}
