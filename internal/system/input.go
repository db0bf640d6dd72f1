package system

import (
	"fmt"
	"time"

	"github.com/cybrelink/server/internal/core/system"
	"github.com/cybrelink/server/internal/handler"
	gonet "github.com/cybrelink/server/internal/net"
	"github.com/cybrelink/server/internal/net/packet"
	"github.com/cybrelink/server/internal/world"
)

// InputSystem runs first each network tick: it admits new connections,
// sweeps out dead sessions, and drains inbound packet queues into the
// dispatch registry.
type InputSystem struct {
	deps   *handler.Deps
	reg    *packet.Registry
	server *gonet.Server
}

func NewInputSystem(deps *handler.Deps, reg *packet.Registry, server *gonet.Server) *InputSystem {
	return &InputSystem{deps: deps, reg: reg, server: server}
}

func (s *InputSystem) Phase() system.Phase { return system.PhaseInput }

func (s *InputSystem) Update(dt time.Duration) {
	s.acceptNew()
	s.sweepClosed()
	s.drainPackets()
}

// acceptNew pulls freshly accepted sessions into the store. The player cap
// is enforced again at handshake; this gate just sheds load early.
func (s *InputSystem) acceptNew() {
	for {
		select {
		case sess := <-s.server.NewSessions():
			if s.deps.Sessions.Count() >= s.deps.Config.Network.MaxPlayers {
				handler.Disconnect(s.deps, sess, "Server full")
				continue
			}
			s.deps.Sessions.Add(sess)
		default:
			return
		}
	}
}

// sweepClosed removes sessions whose I/O goroutines have died (TCP error,
// decode failure, slow-client cut). Sessions torn down through Disconnect
// are already saved and detached; ones that died on the wire get their
// final save here.
func (s *InputSystem) sweepClosed() {
	for id, sess := range s.deps.Sessions.Raw() {
		if !sess.IsClosed() {
			continue
		}
		if s.deps.World.GetPlayer(id) != nil {
			s.deps.Log.Info(fmt.Sprintf("連線中斷  session=%d  handle=%s  online=%d",
				id, sess.Handle, s.deps.World.PlayerCount()-1))
			if save, ok := s.deps.World.SnapshotPlayer(id); ok && save.AuthID != "" {
				s.deps.Flusher.Enqueue(world.DirtySnapshot{Players: []world.PlayerSave{save}})
			}
			s.deps.World.RemovePlayer(id)
			pd := packet.PlayerDisconnect{PlayerID: id, Reason: "Connection lost"}
			handler.Broadcast(s.deps, packet.PLAYER_DISCONNECT, pd.Encode())
		}
		s.deps.Sessions.Remove(id)
	}
}

// drainPackets dispatches queued frames, capped per session per tick so one
// chatty client cannot starve the rest.
func (s *InputSystem) drainPackets() {
	maxPerTick := s.deps.Config.Network.MaxPacketsPerTick
	s.deps.Sessions.ForEach(func(sess *gonet.Session) {
		for i := 0; i < maxPerTick; i++ {
			select {
			case frame := <-sess.InQueue:
				err := s.reg.Dispatch(sess, sess.State(), frame)
				if err != nil && sess.State() == packet.StateUnauth {
					// An unauthenticated client gets exactly one shot.
					handler.Disconnect(s.deps, sess, "Invalid handshake sequence")
					return
				}
			default:
				return
			}
		}
	})
}
